package protocol

import (
	"encoding/json"
	"testing"
)

func testDescriptor() TaskDescriptor {
	return TaskDescriptor{
		Name:        "count_weekdays",
		Description: "Count weekdays",
		Params: []ParamSpec{
			{Name: "filename", Type: "string", Required: true},
			{Name: "weekday", Type: "integer", Required: true, Description: "0=Monday"},
			{Name: "note", Type: "string"},
		},
	}
}

func TestTaskDescriptorSchema(t *testing.T) {
	schema := testDescriptor().Schema()

	if schema["type"] != "object" {
		t.Errorf("type = %v", schema["type"])
	}
	props := schema["properties"].(map[string]any)
	if len(props) != 3 {
		t.Fatalf("expected 3 properties, got %d", len(props))
	}
	weekday := props["weekday"].(map[string]any)
	if weekday["type"] != "integer" {
		t.Errorf("weekday type = %v", weekday["type"])
	}
	if weekday["description"] != "0=Monday" {
		t.Errorf("weekday description = %v", weekday["description"])
	}
	if _, ok := props["filename"].(map[string]any)["description"]; ok {
		t.Error("expected no description for filename")
	}

	required := schema["required"].([]string)
	if len(required) != 2 || required[0] != "filename" || required[1] != "weekday" {
		t.Errorf("required = %v", required)
	}
}

func TestTaskDescriptorToolDefinition(t *testing.T) {
	def := testDescriptor().ToolDefinition()
	if def.Type != "function" {
		t.Errorf("type = %q", def.Type)
	}
	if def.Function.Name != "count_weekdays" {
		t.Errorf("name = %q", def.Function.Name)
	}

	// Must serialize the way the chat completions API expects.
	data, err := json.Marshal(def)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	json.Unmarshal(data, &decoded)
	fn := decoded["function"].(map[string]any)
	if fn["parameters"].(map[string]any)["type"] != "object" {
		t.Errorf("parameters = %v", fn["parameters"])
	}
}

func TestTaskDescriptorParam(t *testing.T) {
	d := testDescriptor()
	if p, ok := d.Param("weekday"); !ok || p.Type != "integer" {
		t.Errorf("Param(weekday) = %+v, %v", p, ok)
	}
	if _, ok := d.Param("missing"); ok {
		t.Error("expected missing param lookup to fail")
	}
}
