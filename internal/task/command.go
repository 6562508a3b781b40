package task

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const (
	defaultCommandTimeout = 120 * time.Second
	defaultWaitDelay      = 5 * time.Second
	maxOutputSize         = 10 * 1024 // 10KB
)

// CommandRunner runs an external program and returns its combined output.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// ExecRunner runs commands directly (no shell) with a timeout.
type ExecRunner struct {
	WorkDir string
	Timeout time.Duration
	// WaitDelay bounds how long Run waits for output pipes after the
	// process is killed; grandchildren such as npx workers can hold them
	// open. Zero means defaultWaitDelay.
	WaitDelay time.Duration
}

func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	timeout := r.Timeout
	if timeout == 0 {
		timeout = defaultCommandTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = defaultWaitDelay
	}
	if r.WorkDir != "" {
		cmd.Dir = r.WorkDir
	}

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()

	output := buf.String()
	if len(output) > maxOutputSize {
		output = output[:maxOutputSize] + "\n... [truncated]"
	}

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return output, fmt.Errorf("%s: timed out after %s", name, timeout)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return output, fmt.Errorf("%s: exit code %d: %s", name, exitErr.ExitCode(), strings.TrimSpace(output))
		}
		return output, fmt.Errorf("%s: %w", name, err)
	}
	return output, nil
}
