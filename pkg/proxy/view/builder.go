package view

import (
	"fmt"

	"dario.cat/mergo"

	"github.com/toolview/toolview/pkg/config"
	"github.com/toolview/toolview/pkg/proxy"
	"github.com/toolview/toolview/pkg/proxy/composite"
	"github.com/toolview/toolview/pkg/proxy/hooks"
	"github.com/toolview/toolview/pkg/proxy/mapper"
)

// DefaultViewName is the unfiltered namespace every proxy carries.
const DefaultViewName = "default"

// Deps are the collaborators a view is wired with at build time.
type Deps struct {
	// Servers is the full upstream server configuration.
	Servers map[string]*config.UpstreamServer

	// Hooks resolves configured hook names.
	Hooks *hooks.Registry

	// Custom resolves configured custom tool names.
	Custom *CustomRegistry

	// Links provides live upstream connections.
	Links proxy.LinkRegistry
}

// Build constructs one view from its configuration. The view is immutable
// afterwards except for its tool mapping, which Refresh rebuilds.
func Build(name string, cfg *config.View, deps Deps) (*View, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: view %q has no definition", proxy.ErrInvalidConfig, name)
	}

	scope, overrides := resolveScope(cfg, deps.Servers)

	v := &View{
		name:        name,
		description: cfg.Description,
		exposure:    cfg.Exposure,
		searchLimit: cfg.SearchLimit,
		mapper:      mapper.New(name, scope, overrides, cfg.IncludeAll),
		composites:  make(map[string]*composite.Spec, len(cfg.Composites)),
		custom:      make(map[string]CustomTool, len(cfg.CustomTools)),
		links:       deps.Links,
	}

	var preName, postName string
	if cfg.Hooks != nil {
		preName, postName = cfg.Hooks.Pre, cfg.Hooks.Post
	}
	pre, err := deps.Hooks.Pre(preName)
	if err != nil {
		return nil, fmt.Errorf("view %q: %w", name, err)
	}
	post, err := deps.Hooks.Post(postName)
	if err != nil {
		return nil, fmt.Errorf("view %q: %w", name, err)
	}
	v.pipeline = hooks.NewPipeline(pre, post)

	for compName, compCfg := range cfg.Composites {
		spec, err := composite.FromConfig(compName, compCfg)
		if err != nil {
			return nil, fmt.Errorf("view %q: %w", name, err)
		}
		v.composites[compName] = spec
	}

	for _, customName := range cfg.CustomTools {
		tool, err := deps.Custom.Get(customName)
		if err != nil {
			return nil, fmt.Errorf("view %q: %w", name, err)
		}
		v.custom[customName] = tool
	}

	v.executor = composite.NewExecutor(v.callUpstream)

	return v, nil
}

// BuildDefault constructs the unfiltered namespace: every tool from every
// server, shaped only by server-level overrides, direct exposure, no hooks.
func BuildDefault(deps Deps, searchLimit int) (*View, error) {
	cfg := &config.View{
		Description: "All tools from all upstream servers",
		Exposure:    config.ExposureDirect,
		IncludeAll:  true,
		SearchLimit: searchLimit,
	}
	return Build(DefaultViewName, cfg, deps)
}

// resolveScope determines which servers the view covers and merges
// server-level override tables with view-level ones. View-level settings win
// field by field; server-level config fills what the view leaves unset.
// Without includeAll, only tools the view names are exposed.
func resolveScope(cfg *config.View, servers map[string]*config.UpstreamServer) ([]string, map[string]map[string]*config.ToolOverride) {
	overrides := make(map[string]map[string]*config.ToolOverride)

	if cfg.IncludeAll {
		scope := make([]string, 0, len(servers))
		for serverName, srv := range servers {
			scope = append(scope, serverName)
			merged := make(map[string]*config.ToolOverride)
			if srv != nil {
				for tool, o := range srv.Tools {
					merged[tool] = o
				}
			}
			for tool, o := range cfg.Tools[serverName] {
				merged[tool] = mergeOverride(o, merged[tool])
			}
			if len(merged) > 0 {
				overrides[serverName] = merged
			}
		}
		return scope, overrides
	}

	scope := make([]string, 0, len(cfg.Tools))
	for serverName, tools := range cfg.Tools {
		scope = append(scope, serverName)
		merged := make(map[string]*config.ToolOverride, len(tools))
		var serverLevel map[string]*config.ToolOverride
		if srv := servers[serverName]; srv != nil {
			serverLevel = srv.Tools
		}
		for tool, o := range tools {
			merged[tool] = mergeOverride(o, serverLevel[tool])
		}
		overrides[serverName] = merged
	}
	return scope, overrides
}

// mergeOverride layers a view-level override on top of a server-level one.
// Fields the view sets win; empty fields fall back to the server level.
func mergeOverride(viewLevel, serverLevel *config.ToolOverride) *config.ToolOverride {
	if viewLevel == nil && serverLevel == nil {
		return nil
	}
	if viewLevel == nil {
		return serverLevel
	}
	if serverLevel == nil {
		return viewLevel
	}

	merged := *viewLevel
	// Only fills zero fields; view-level values are preserved.
	_ = mergo.Merge(&merged, *serverLevel)
	return &merged
}
