package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"sidebot/internal/provider"
)

// Registry holds the tools bound to one session and executes them by name.
// It is thread-safe and supports registration at runtime.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]*Tool
	logger *zap.Logger
}

// NewRegistry creates a new empty tool registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		tools:  make(map[string]*Tool),
		logger: logger,
	}
}

// Register adds a tool to the registry.
// Returns an error if a tool with the same name already exists.
func (r *Registry) Register(tool *Tool) error {
	if err := tool.Validate(); err != nil {
		return fmt.Errorf("invalid tool: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("%w: %s", ErrToolAlreadyRegistered, tool.Name)
	}
	r.tools[tool.Name] = tool

	r.logger.Debug("registered tool", zap.String("tool", tool.Name))
	return nil
}

// MustRegister registers a tool and panics on error.
// Use this for static tool registration at startup.
func (r *Registry) MustRegister(tool *Tool) {
	if err := r.Register(tool); err != nil {
		panic(fmt.Sprintf("failed to register tool %s: %v", tool.Name, err))
	}
}

// Get returns a tool by name, or nil if not found.
func (r *Registry) Get(name string) *Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Names returns all registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Definitions returns the declarations for every registered tool, sorted by
// name for a stable prompt.
func (r *Registry) Definitions() []provider.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]provider.ToolDefinition, 0, len(r.tools))
	for _, tool := range r.tools {
		defs = append(defs, tool.Definition())
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Execute runs a tool by name with the given arguments. Missing tools and
// missing required arguments are errors; tool failures are returned as-is so
// the session can hand them back to the model.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	tool := r.Get(name)
	if tool == nil {
		return "", fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	for _, required := range tool.Schema.Required {
		if _, ok := args[required]; !ok {
			return "", fmt.Errorf("%w: %s", ErrMissingRequiredArg, required)
		}
	}

	start := time.Now()
	result, err := tool.Execute(ctx, args)
	r.logger.Debug("executed tool",
		zap.String("tool", name),
		zap.Duration("elapsed", time.Since(start)),
		zap.Bool("failed", err != nil))
	return result, err
}

// StringArg extracts a string argument, tolerating absence.
func StringArg(args map[string]any, name string) string {
	if v, ok := args[name].(string); ok {
		return v
	}
	return ""
}
