// Package router owns the proxy's runtime: upstream links, the set of
// views plus the default namespace, and the single entry point the
// transport layer invokes for every incoming call.
package router

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/errgroup"

	"github.com/toolview/toolview/pkg/config"
	"github.com/toolview/toolview/pkg/logger"
	"github.com/toolview/toolview/pkg/proxy"
	"github.com/toolview/toolview/pkg/proxy/debug"
	"github.com/toolview/toolview/pkg/proxy/hooks"
	"github.com/toolview/toolview/pkg/proxy/view"
)

const (
	// maxConcurrentDiscovery caps parallel upstream ListTools calls.
	maxConcurrentDiscovery = 8

	// discoveryMaxTries bounds retry attempts per server during discovery,
	// initial attempt included.
	discoveryMaxTries = 3

	// discoveryInitialDelay seeds the exponential backoff between retries.
	discoveryInitialDelay = 500 * time.Millisecond
)

// Router dispatches incoming calls to the view that should handle them.
// It performs no business logic of its own beyond view selection and the
// outermost per-call timeout.
type Router struct {
	name        string
	links       proxy.LinkRegistry
	settings    *debug.Settings
	callTimeout time.Duration

	views   map[string]*view.View
	callers map[string]debug.Caller
}

// New builds the router from configuration: one view per configured view
// definition plus the default unfiltered namespace. Links are registered
// separately via RegisterLink before the first call or refresh.
func New(cfg *config.Config, hookReg *hooks.Registry, customReg *view.CustomRegistry, settings *debug.Settings) (*Router, error) {
	r := &Router{
		name:        cfg.Name,
		links:       proxy.NewLinkRegistry(),
		settings:    settings,
		callTimeout: time.Duration(cfg.CallTimeout),
		views:       make(map[string]*view.View, len(cfg.Views)+1),
		callers:     make(map[string]debug.Caller, len(cfg.Views)+1),
	}

	deps := view.Deps{
		Servers: cfg.Servers,
		Hooks:   hookReg,
		Custom:  customReg,
		Links:   r.links,
	}

	for name, viewCfg := range cfg.Views {
		if name == view.DefaultViewName {
			return nil, fmt.Errorf("%w: view name %q is reserved", proxy.ErrInvalidConfig, name)
		}
		v, err := view.Build(name, viewCfg, deps)
		if err != nil {
			return nil, err
		}
		r.addView(v)
	}

	def, err := view.BuildDefault(deps, 0)
	if err != nil {
		return nil, err
	}
	r.addView(def)

	return r, nil
}

func (r *Router) addView(v *view.View) {
	r.views[v.Name()] = v
	r.callers[v.Name()] = debug.WrapCaller(v, r.settings)
}

// RegisterLink attaches a live upstream link under a server name. The link
// is wrapped with instrumentation once, here, so every caller shares it.
func (r *Router) RegisterLink(server string, link proxy.UpstreamLink) {
	r.links.Register(server, debug.WrapLink(server, link, r.settings))
}

// CallTool is the single entry point for incoming calls. An empty viewName
// selects the default namespace. The configured call timeout wraps the
// whole invocation, composite fan-out included.
func (r *Router) CallTool(ctx context.Context, viewName, tool string, args map[string]any) (*proxy.Result, error) {
	if viewName == "" {
		viewName = view.DefaultViewName
	}
	caller, ok := r.callers[viewName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", proxy.ErrUnknownView, viewName)
	}

	if r.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.callTimeout)
		defer cancel()
	}

	res, err := caller.Call(ctx, tool, args)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: %s (after %s)", proxy.ErrTimeout, tool, r.callTimeout)
	}
	return res, err
}

// View returns a view by name, the default namespace for "".
func (r *Router) View(name string) (*view.View, error) {
	if name == "" {
		name = view.DefaultViewName
	}
	v, ok := r.views[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", proxy.ErrUnknownView, name)
	}
	return v, nil
}

// Views returns the descriptors of every view, sorted by name.
func (r *Router) Views() []proxy.ViewDescriptor {
	out := make([]proxy.ViewDescriptor, 0, len(r.views))
	for _, v := range r.views {
		out = append(out, v.Descriptor())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// RefreshAll re-discovers every upstream server's tools and rebuilds the
// mapping of every view. Servers are queried concurrently with retry;
// an unreachable server logs a warning and keeps its config-declared tools
// exposed schema-less rather than failing the refresh.
func (r *Router) RefreshAll(ctx context.Context) error {
	servers := r.links.Names()

	var mu sync.Mutex
	var discovered []proxy.Tool

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentDiscovery)

	for _, server := range servers {
		g.Go(func() error {
			tools, err := r.discoverServer(gctx, server)
			if err != nil {
				logger.Warnw("upstream discovery failed, keeping configured tools only",
					"server", server, "error", err)
				return nil
			}
			mu.Lock()
			discovered = append(discovered, tools...)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	for _, v := range r.views {
		v.Refresh(discovered)
	}

	logger.Infow("tool mappings refreshed",
		"servers", len(servers), "tools", len(discovered), "views", len(r.views))
	return nil
}

// discoverServer lists one server's tools with exponential-backoff retry.
func (r *Router) discoverServer(ctx context.Context, server string) ([]proxy.Tool, error) {
	link, err := r.links.Get(server)
	if err != nil {
		return nil, err
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = discoveryInitialDelay

	return backoff.Retry(ctx,
		func() ([]proxy.Tool, error) {
			return link.ListTools(ctx)
		},
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxTries(discoveryMaxTries),
		backoff.WithNotify(func(err error, duration time.Duration) {
			logger.Debugf("Retrying discovery for %s after %v: %v", server, duration, err)
		}),
	)
}

// Name returns the proxy's advertised server name.
func (r *Router) Name() string {
	return r.name
}

// Settings exposes the instrumentation switchboard.
func (r *Router) Settings() *debug.Settings {
	return r.settings
}

// Close shuts down every upstream link.
func (r *Router) Close() error {
	return r.links.CloseAll()
}
