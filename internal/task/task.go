// Package task holds the fixed catalog of file-processing tasks and the
// registry that dispatches classified invocations to them.
package task

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/taskd-io/taskd/pkg/protocol"
)

// Task is the interface every dispatchable task implements.
type Task interface {
	Descriptor() protocol.TaskDescriptor
	Run(ctx context.Context, args json.RawMessage) error
}

// ErrUnknownTask is returned when an invocation names no registered task.
var ErrUnknownTask = errors.New("unknown task")

// ArgumentError reports arguments that do not fit the task's parameter list.
type ArgumentError struct {
	Task   string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s: invalid arguments: %s", e.Task, e.Reason)
}

type validator interface {
	Validate() error
}

// handler binds a descriptor to a typed argument struct A.
type handler[A any] struct {
	desc protocol.TaskDescriptor
	run  func(ctx context.Context, args A) error
}

func newHandler[A any](desc protocol.TaskDescriptor, run func(ctx context.Context, args A) error) Task {
	return &handler[A]{desc: desc, run: run}
}

func (h *handler[A]) Descriptor() protocol.TaskDescriptor { return h.desc }

func (h *handler[A]) Run(ctx context.Context, raw json.RawMessage) error {
	args, err := decodeArgs[A](h.desc, raw)
	if err != nil {
		return err
	}
	return h.run(ctx, args)
}

// decodeArgs checks raw against the descriptor (object shape, required keys,
// no extra keys), decodes it strictly into A and runs A's own validation.
func decodeArgs[A any](desc protocol.TaskDescriptor, raw json.RawMessage) (A, error) {
	var args A
	fail := func(format string, a ...any) (A, error) {
		return args, &ArgumentError{Task: desc.Name, Reason: fmt.Sprintf(format, a...)}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return fail("arguments must be a JSON object")
	}

	var extra []string
	for name := range fields {
		if _, ok := desc.Param(name); !ok {
			extra = append(extra, name)
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		return fail("unexpected parameter(s): %s", strings.Join(extra, ", "))
	}

	var missing []string
	for _, p := range desc.Params {
		if !p.Required {
			continue
		}
		v, ok := fields[p.Name]
		if !ok || string(bytes.TrimSpace(v)) == "null" {
			missing = append(missing, p.Name)
		}
	}
	if len(missing) > 0 {
		return fail("missing required parameter(s): %s", strings.Join(missing, ", "))
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&args); err != nil {
		return fail("%v", err)
	}
	if v, ok := any(&args).(validator); ok {
		if err := v.Validate(); err != nil {
			return fail("%v", err)
		}
	}
	return args, nil
}

// str is shorthand for a required string parameter.
func str(name, description string) protocol.ParamSpec {
	return protocol.ParamSpec{Name: name, Type: "string", Required: true, Description: description}
}

// integer is shorthand for a required integer parameter.
func integer(name, description string) protocol.ParamSpec {
	return protocol.ParamSpec{Name: name, Type: "integer", Required: true, Description: description}
}

// requirePaths returns an error naming the first empty value.
func requirePaths(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return fmt.Errorf("%s must not be empty", pairs[i])
		}
	}
	return nil
}
