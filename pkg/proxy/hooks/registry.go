package hooks

import (
	"fmt"
	"sync"

	"github.com/toolview/toolview/pkg/proxy"
)

// Registry holds named hook registrations. Registration happens during
// startup wiring; lookups happen when views are built from configuration.
type Registry struct {
	mu   sync.RWMutex
	pre  map[string]PreHook
	post map[string]PostHook
}

// NewRegistry creates an empty hook registry.
func NewRegistry() *Registry {
	return &Registry{
		pre:  make(map[string]PreHook),
		post: make(map[string]PostHook),
	}
}

// RegisterPre registers a pre-call hook under a name, replacing any previous
// registration.
func (r *Registry) RegisterPre(name string, h PreHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pre[name] = h
}

// RegisterPost registers a post-call hook under a name, replacing any
// previous registration.
func (r *Registry) RegisterPost(name string, h PostHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.post[name] = h
}

// Pre looks up a pre-call hook by name. An empty name returns a nil hook,
// meaning no middleware runs in that direction.
func (r *Registry) Pre(name string) (PreHook, error) {
	if name == "" {
		return nil, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.pre[name]
	if !ok {
		return nil, fmt.Errorf("%w: pre-call hook %q is not registered", proxy.ErrInvalidConfig, name)
	}
	return h, nil
}

// Post looks up a post-call hook by name. An empty name returns a nil hook.
func (r *Registry) Post(name string) (PostHook, error) {
	if name == "" {
		return nil, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.post[name]
	if !ok {
		return nil, fmt.Errorf("%w: post-call hook %q is not registered", proxy.ErrInvalidConfig, name)
	}
	return h, nil
}
