package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/taskd-io/taskd/pkg/protocol"
)

// Registry is the immutable, ordered catalog of tasks. It is built once at
// startup and safe for concurrent use without locking.
type Registry struct {
	order  []Task
	byName map[string]Task
	logger *slog.Logger
}

// NewRegistry indexes tasks by name, keeping their order. It panics on a
// duplicate name since the catalog is fixed at compile time.
func NewRegistry(logger *slog.Logger, tasks ...Task) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		order:  make([]Task, 0, len(tasks)),
		byName: make(map[string]Task, len(tasks)),
		logger: logger,
	}
	for _, t := range tasks {
		name := t.Descriptor().Name
		if _, dup := r.byName[name]; dup {
			panic(fmt.Sprintf("task: duplicate task name %q", name))
		}
		r.order = append(r.order, t)
		r.byName[name] = t
	}
	return r
}

// Get returns a task by name.
func (r *Registry) Get(name string) (Task, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// List returns task names in catalog order.
func (r *Registry) List() []string {
	names := make([]string, len(r.order))
	for i, t := range r.order {
		names[i] = t.Descriptor().Name
	}
	return names
}

// Descriptors returns every task descriptor in catalog order.
func (r *Registry) Descriptors() []protocol.TaskDescriptor {
	out := make([]protocol.TaskDescriptor, len(r.order))
	for i, t := range r.order {
		out[i] = t.Descriptor()
	}
	return out
}

// Definitions returns all tasks in OpenAI function-calling format.
func (r *Registry) Definitions() []protocol.ToolDefinition {
	defs := make([]protocol.ToolDefinition, len(r.order))
	for i, t := range r.order {
		defs[i] = t.Descriptor().ToolDefinition()
	}
	return defs
}

// Len returns the number of registered tasks.
func (r *Registry) Len() int {
	return len(r.order)
}

// Dispatch resolves inv.Name against the catalog and runs the task.
// An unregistered name yields an error wrapping ErrUnknownTask; argument
// problems yield *ArgumentError; task failures are returned unchanged.
func (r *Registry) Dispatch(ctx context.Context, inv protocol.Invocation) error {
	t, ok := r.byName[inv.Name]
	if !ok {
		r.logger.Warn("dispatch rejected", "task", inv.Name, "error", ErrUnknownTask)
		return fmt.Errorf("%w: %q", ErrUnknownTask, inv.Name)
	}

	start := time.Now()
	err := t.Run(ctx, inv.Arguments)
	elapsed := time.Since(start)

	var argErr *ArgumentError
	switch {
	case err == nil:
		r.logger.Info("task completed", "task", inv.Name, "duration_ms", elapsed.Milliseconds())
	case errors.As(err, &argErr):
		r.logger.Warn("task arguments rejected", "task", inv.Name, "reason", argErr.Reason)
	default:
		r.logger.Error("task failed", "task", inv.Name, "duration_ms", elapsed.Milliseconds(), "error", err)
	}
	return err
}
