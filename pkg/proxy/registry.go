package proxy

import (
	"fmt"
	"sync"
)

// LinkRegistry provides thread-safe access to upstream links by server name.
// It is the single source of truth for which upstream servers currently have
// a live connection. Lookups are safe for concurrent use; registration
// normally happens once at startup but replacing a link is permitted.
type LinkRegistry interface {
	// Get retrieves the link for a server.
	// Returns ErrUnknownServer when no link is registered under the name.
	Get(server string) (UpstreamLink, error)

	// Names returns the registered server names. The slice is a snapshot
	// and safe to iterate without additional locking. Order is unspecified.
	Names() []string

	// Register adds or replaces the link for a server.
	Register(server string, link UpstreamLink)

	// CloseAll closes every registered link, returning the first error seen.
	CloseAll() error
}

type linkRegistry struct {
	mu    sync.RWMutex
	links map[string]UpstreamLink
}

// NewLinkRegistry creates an empty link registry.
func NewLinkRegistry() LinkRegistry {
	return &linkRegistry{links: make(map[string]UpstreamLink)}
}

func (r *linkRegistry) Get(server string) (UpstreamLink, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	link, ok := r.links[server]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownServer, server)
	}
	return link, nil
}

func (r *linkRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.links))
	for name := range r.links {
		names = append(names, name)
	}
	return names
}

func (r *linkRegistry) Register(server string, link UpstreamLink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.links[server] = link
}

func (r *linkRegistry) CloseAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for name, link := range r.links {
		if err := link.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing link %s: %w", name, err)
		}
	}
	return firstErr
}
