package protocol

import "encoding/json"

// ParamSpec describes one named argument of a task.
type ParamSpec struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // JSON Schema type: "string", "integer", ...
	Required    bool   `json:"required"`
	Description string `json:"description,omitempty"`
}

// TaskDescriptor is the static metadata of one invocable task.
type TaskDescriptor struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Params      []ParamSpec `json:"params"`
}

// Schema renders the parameter list as a JSON Schema object.
func (d TaskDescriptor) Schema() map[string]any {
	props := make(map[string]any, len(d.Params))
	required := make([]string, 0, len(d.Params))
	for _, p := range d.Params {
		prop := map[string]any{"type": p.Type}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		props[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// ToolDefinition returns the descriptor in function-calling format.
func (d TaskDescriptor) ToolDefinition() ToolDefinition {
	return NewToolDefinition(d.Name, d.Description, d.Schema())
}

// Param looks up a parameter by name.
func (d TaskDescriptor) Param(name string) (ParamSpec, bool) {
	for _, p := range d.Params {
		if p.Name == name {
			return p, true
		}
	}
	return ParamSpec{}, false
}

// Invocation is a classified request to run a task. It lives for one
// request only.
type Invocation struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}
