// Package tools provides the callable actions exposed to the model and the
// registry that executes them. Tools close over their capability handles
// (dashboard store, query gate), so rebinding a fresh registry against the
// same handles is how forked sessions keep a single source of truth.
package tools

import (
	"context"

	"sidebot/internal/provider"
)

// Property describes a single parameter for the JSON schema.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Schema defines the expected tool arguments.
type Schema struct {
	// Required lists parameters that must be provided.
	Required []string `json:"required"`

	// Properties describes each parameter.
	Properties map[string]Property `json:"properties"`
}

// ExecuteFunc is the signature for tool execution.
type ExecuteFunc func(ctx context.Context, args map[string]any) (string, error)

// Tool defines a callable action the model may invoke.
type Tool struct {
	// Name is the unique identifier for the tool.
	Name string

	// Description explains what the tool does; sent to the model.
	Description string

	// Execute runs the tool with the given arguments.
	Execute ExecuteFunc

	// Schema defines the expected arguments.
	Schema Schema
}

// Validate checks if the tool definition is valid.
func (t *Tool) Validate() error {
	if t.Name == "" {
		return ErrToolNameEmpty
	}
	if t.Execute == nil {
		return ErrToolExecuteNil
	}
	return nil
}

// Definition renders the tool declaration providers send to the model.
func (t *Tool) Definition() provider.ToolDefinition {
	properties := make(map[string]any, len(t.Schema.Properties))
	for name, prop := range t.Schema.Properties {
		properties[name] = map[string]any{
			"type":        prop.Type,
			"description": prop.Description,
		}
	}
	required := t.Schema.Required
	if required == nil {
		required = []string{}
	}
	return provider.ToolDefinition{
		Name:        t.Name,
		Description: t.Description,
		InputSchema: map[string]any{
			"type":       "object",
			"properties": properties,
			"required":   required,
		},
	}
}
