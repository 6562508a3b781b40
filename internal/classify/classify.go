// Package classify maps a free-text instruction onto one task invocation by
// asking a function-calling model to pick from the task catalog.
package classify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/taskd-io/taskd/internal/provider"
	"github.com/taskd-io/taskd/pkg/protocol"
)

const systemPrompt = "You are a function classifier that extracts structured parameters from queries."

var (
	// ErrNoToolCall means the model answered without selecting a task.
	ErrNoToolCall = errors.New("model did not select a task")
	// ErrBadArguments means the selected task's arguments are not a JSON object.
	ErrBadArguments = errors.New("model returned malformed task arguments")
)

// Catalog supplies the function definitions offered to the model.
type Catalog interface {
	Definitions() []protocol.ToolDefinition
}

// Classifier turns instructions into task invocations. It holds no state
// between calls and never caches results.
type Classifier struct {
	Provider provider.Provider
	Catalog  Catalog
	Model    string        // empty uses the provider default
	Timeout  time.Duration // 0 uses provider.DefaultTimeout
	Logger   *slog.Logger
}

// Classify makes exactly one chat call and returns the first tool call.
func (c *Classifier) Classify(ctx context.Context, instruction string) (protocol.Invocation, error) {
	timeout := c.Timeout
	if timeout == 0 {
		timeout = provider.DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.Provider.Chat(ctx, protocol.ChatRequest{
		Model: c.Model,
		Messages: []protocol.ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: instruction},
		},
		Tools:      c.Catalog.Definitions(),
		ToolChoice: protocol.ToolChoiceAuto,
	})
	if err != nil {
		return protocol.Invocation{}, fmt.Errorf("classify: %w", err)
	}

	logger := c.logger()
	if !resp.HasToolCalls() {
		logger.Warn("classification without tool call", "content", resp.Content)
		return protocol.Invocation{}, ErrNoToolCall
	}

	call := resp.ToolCalls[0]
	if call.Name == "" {
		return protocol.Invocation{}, ErrNoToolCall
	}
	args, err := parseArguments(call.Arguments)
	if err != nil {
		return protocol.Invocation{}, err
	}

	logger.Info("instruction classified",
		"task", call.Name,
		"tokens", resp.Usage.TotalTokens(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return protocol.Invocation{Name: call.Name, Arguments: args}, nil
}

// parseArguments checks that raw is a JSON object.
func parseArguments(raw string) (json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadArguments, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: arguments are null", ErrBadArguments)
	}
	return json.RawMessage(raw), nil
}

func (c *Classifier) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
