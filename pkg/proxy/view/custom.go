package view

import (
	"context"
	"fmt"
	"sync"

	"github.com/toolview/toolview/pkg/proxy"
)

// Upstream gives a custom tool the same upstream-call capability the
// regular pipeline has, addressed by server and original tool name.
type Upstream interface {
	CallTool(ctx context.Context, server, tool string, args map[string]any) (*proxy.Result, error)
}

// Handler is the body of a custom tool.
type Handler func(ctx context.Context, upstream Upstream, args map[string]any) (*proxy.Result, error)

// CustomTool is a callable exposed by a view that is implemented in-process
// instead of forwarding to a single upstream tool.
type CustomTool struct {
	// Description is the exposed tool description.
	Description string

	// InputSchema is the exposed JSON Schema, may be nil.
	InputSchema map[string]any

	// Handler executes the tool.
	Handler Handler
}

// CustomRegistry holds named custom tool registrations. Configuration
// references custom tools by these names; there is no runtime code loading.
type CustomRegistry struct {
	mu    sync.RWMutex
	tools map[string]CustomTool
}

// NewCustomRegistry creates an empty custom tool registry.
func NewCustomRegistry() *CustomRegistry {
	return &CustomRegistry{tools: make(map[string]CustomTool)}
}

// Register adds or replaces a custom tool under a name.
func (r *CustomRegistry) Register(name string, tool CustomTool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[name] = tool
}

// Get looks up a custom tool by name.
func (r *CustomRegistry) Get(name string) (CustomTool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	if !ok {
		return CustomTool{}, fmt.Errorf("%w: custom tool %q is not registered", proxy.ErrInvalidConfig, name)
	}
	return t, nil
}
