package tools

import (
	"context"
	"errors"
	"testing"
)

func testTool(name string) *Tool {
	return &Tool{
		Name:        name,
		Description: "A test tool",
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return "success", nil
		},
	}
}

func TestRegisterAndGet(t *testing.T) {
	reg := NewRegistry(nil)

	if err := reg.Register(testTool("test_tool")); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	got := reg.Get("test_tool")
	if got == nil {
		t.Fatal("Get returned nil for registered tool")
	}
	if got.Name != "test_tool" {
		t.Errorf("got name %q, want %q", got.Name, "test_tool")
	}
	if reg.Count() != 1 {
		t.Errorf("got count %d, want 1", reg.Count())
	}
}

func TestRegisterDuplicate(t *testing.T) {
	reg := NewRegistry(nil)

	if err := reg.Register(testTool("dupe")); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}
	if err := reg.Register(testTool("dupe")); !errors.Is(err, ErrToolAlreadyRegistered) {
		t.Fatalf("want ErrToolAlreadyRegistered, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	reg := NewRegistry(nil)

	tests := []struct {
		name    string
		tool    *Tool
		wantErr error
	}{
		{
			name:    "empty name",
			tool:    &Tool{Execute: func(ctx context.Context, args map[string]any) (string, error) { return "", nil }},
			wantErr: ErrToolNameEmpty,
		},
		{
			name:    "nil execute",
			tool:    &Tool{Name: "test"},
			wantErr: ErrToolExecuteNil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := reg.Register(tt.tool); !errors.Is(err, tt.wantErr) {
				t.Errorf("want %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestExecuteUnknownTool(t *testing.T) {
	reg := NewRegistry(nil)

	if _, err := reg.Execute(context.Background(), "ghost", nil); !errors.Is(err, ErrToolNotFound) {
		t.Fatalf("want ErrToolNotFound, got %v", err)
	}
}

func TestExecuteMissingRequiredArg(t *testing.T) {
	reg := NewRegistry(nil)
	tool := testTool("strict")
	tool.Schema = Schema{Required: []string{"query"}}
	if err := reg.Register(tool); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	_, err := reg.Execute(context.Background(), "strict", map[string]any{})
	if !errors.Is(err, ErrMissingRequiredArg) {
		t.Fatalf("want ErrMissingRequiredArg, got %v", err)
	}
}

func TestDefinitionsSortedAndShaped(t *testing.T) {
	reg := NewRegistry(nil)
	b := testTool("b_tool")
	b.Schema = Schema{
		Required:   []string{"query"},
		Properties: map[string]Property{"query": {Type: "string", Description: "SQL"}},
	}
	reg.MustRegister(b)
	reg.MustRegister(testTool("a_tool"))

	defs := reg.Definitions()
	if len(defs) != 2 {
		t.Fatalf("got %d definitions, want 2", len(defs))
	}
	if defs[0].Name != "a_tool" || defs[1].Name != "b_tool" {
		t.Errorf("definitions not sorted: %s, %s", defs[0].Name, defs[1].Name)
	}

	schema := defs[1].InputSchema
	if schema["type"] != "object" {
		t.Errorf("got schema type %v, want object", schema["type"])
	}
	props, ok := schema["properties"].(map[string]any)
	if !ok {
		t.Fatalf("properties missing from schema: %v", schema)
	}
	if _, ok := props["query"]; !ok {
		t.Errorf("query property missing: %v", props)
	}
}
