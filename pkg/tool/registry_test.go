package tool

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeTool struct {
	name   string
	schema *JSONSchema
	run    func(ctx context.Context, params map[string]interface{}) (*ToolResult, error)
}

func (f *fakeTool) Name() string        { return f.name }
func (f *fakeTool) Description() string { return "fake tool " + f.name }
func (f *fakeTool) Schema() *JSONSchema { return f.schema }

func (f *fakeTool) Execute(ctx context.Context, params map[string]interface{}) (*ToolResult, error) {
	if f.run != nil {
		return f.run(ctx, params)
	}
	return Text("ok"), nil
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(&fakeTool{name: "echo"}); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := reg.Register(&fakeTool{name: "echo"}); err == nil {
		t.Fatal("expected duplicate rejection")
	}
	if err := reg.Register(nil); err == nil {
		t.Fatal("expected nil rejection")
	}
	if err := reg.Register(&fakeTool{name: ""}); err == nil {
		t.Fatal("expected empty-name rejection")
	}
}

func TestRegistryExecuteValidates(t *testing.T) {
	reg := NewRegistry()
	schema := ObjectSchema(map[string]interface{}{
		"command": map[string]interface{}{"type": "string"},
	}, "command")
	executed := false
	err := reg.Register(&fakeTool{
		name:   "bash",
		schema: schema,
		run: func(_ context.Context, params map[string]interface{}) (*ToolResult, error) {
			executed = true
			return Text(params["command"].(string)), nil
		},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := reg.Execute(context.Background(), "bash", map[string]interface{}{}); err == nil {
		t.Fatal("expected missing-field validation error")
	}
	if executed {
		t.Fatal("tool must not run when validation fails")
	}

	if _, err := reg.Execute(context.Background(), "bash", map[string]interface{}{"command": 42}); err == nil {
		t.Fatal("expected type validation error")
	}

	res, err := reg.Execute(context.Background(), "bash", map[string]interface{}{"command": "ls"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !res.Success || res.Output != "ls" {
		t.Fatalf("result = %+v", res)
	}

	if _, err := reg.Execute(context.Background(), "unknown", nil); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestRegistryDefinitionsOrdered(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"write_file", "bash", "todo_write"} {
		if err := reg.Register(&fakeTool{name: name, schema: ObjectSchema(nil)}); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}
	defs := reg.Definitions()
	if len(defs) != 3 {
		t.Fatalf("definitions = %d", len(defs))
	}
	want := []string{"bash", "todo_write", "write_file"}
	for i, def := range defs {
		if def.Name != want[i] {
			t.Fatalf("definitions order = %v", defs)
		}
		schema, ok := def.InputSchema.(map[string]interface{})
		if !ok {
			t.Fatalf("schema type = %T", def.InputSchema)
		}
		if schema["type"] != "object" {
			t.Fatalf("schema = %v", schema)
		}
	}
}

func TestFailfCarriesError(t *testing.T) {
	res := Failf("bad input: %s", "path")
	if res.Success {
		t.Fatal("Failf must not be successful")
	}
	if res.Error == nil || !errors.Is(res.Error, res.Error) || res.Output != "bad input: path" {
		t.Fatalf("result = %+v", res)
	}
}
