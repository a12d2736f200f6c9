// Package view implements the curated tool namespaces the proxy exposes.
// A view composes a tool mapper, a hook pipeline, composite tools and
// custom callables into one addressable surface with an exposure mode.
package view

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/toolview/toolview/pkg/config"
	"github.com/toolview/toolview/pkg/proxy"
	"github.com/toolview/toolview/pkg/proxy/composite"
	"github.com/toolview/toolview/pkg/proxy/hooks"
	"github.com/toolview/toolview/pkg/proxy/mapper"
	"github.com/toolview/toolview/pkg/proxy/search"
)

// View is one named namespace of tools. It is immutable for the process
// lifetime except for its mapper's mapping, which Refresh rebuilds.
type View struct {
	name        string
	description string
	exposure    string
	searchLimit int

	mapper     *mapper.Mapper
	pipeline   *hooks.Pipeline
	composites map[string]*composite.Spec
	executor   *composite.Executor
	custom     map[string]CustomTool
	links      proxy.LinkRegistry
}

// Name returns the view's name.
func (v *View) Name() string { return v.name }

// Description returns the view's description.
func (v *View) Description() string { return v.description }

// Exposure returns the view's exposure mode.
func (v *View) Exposure() string { return v.exposure }

// SearchLimit returns the result cap for the search meta-tool.
func (v *View) SearchLimit() int { return v.searchLimit }

// SearchToolName is the name of the fuzzy-search meta-tool registered when
// the view's exposure mode is "search".
func (v *View) SearchToolName() string { return v.name + "_search_tools" }

// CallToolName is the companion meta-tool that invokes a tool found through
// search, so callers never leave the view's pipeline.
func (v *View) CallToolName() string { return v.name + "_call_tool" }

// Call invokes an exposed tool: a custom callable, a composite, or a
// hook-wrapped upstream forward, in that resolution order.
func (v *View) Call(ctx context.Context, tool string, args map[string]any) (*proxy.Result, error) {
	if custom, ok := v.custom[tool]; ok {
		return custom.Handler(ctx, upstreamCaller{v}, args)
	}

	if spec, ok := v.composites[tool]; ok {
		results, err := v.executor.Execute(ctx, spec, args)
		if err != nil {
			return nil, err
		}
		return proxy.StructuredResult(results), nil
	}

	entry, err := v.mapper.Entry(tool)
	if err != nil {
		return nil, err
	}

	call := proxy.CallContext{View: v.name, Tool: tool, Server: entry.Target.Server}

	args, err = v.pipeline.RunPreCall(ctx, call, args)
	if err != nil {
		return nil, err
	}

	if entry.Override != nil {
		args = mapper.TransformArgs(args, entry.Override.Parameters)
	}

	res, err := v.callUpstream(ctx, entry.Target.Server, entry.Target.OriginalName, args)
	if err != nil {
		return nil, err
	}

	return v.pipeline.RunPostCall(ctx, call, args, res)
}

// callUpstream issues one raw upstream call. Composite branches and custom
// tools go through here as well, so every upstream invocation shares the
// same link lookup and error shaping.
func (v *View) callUpstream(ctx context.Context, server, tool string, args map[string]any) (*proxy.Result, error) {
	link, err := v.links.Get(server)
	if err != nil {
		return nil, err
	}

	res, err := link.CallTool(ctx, tool, args)
	if err != nil {
		if errors.Is(err, proxy.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s.%s: %v", proxy.ErrTimeout, server, tool, err)
		}
		return nil, fmt.Errorf("%w: %s.%s: %v", proxy.ErrUpstreamCallFailed, server, tool, err)
	}
	return res, nil
}

// upstreamCaller hands custom tools the view's upstream-call capability
// without exposing the view itself.
type upstreamCaller struct{ v *View }

func (c upstreamCaller) CallTool(ctx context.Context, server, tool string, args map[string]any) (*proxy.Result, error) {
	return c.v.callUpstream(ctx, server, tool, args)
}

// Catalog returns every tool the view exposes: mapped upstream tools plus
// composites plus custom tools.
func (v *View) Catalog() []proxy.ToolDescriptor {
	catalog := v.mapper.Catalog()

	for name, spec := range v.composites {
		catalog = append(catalog, proxy.ToolDescriptor{
			Name:        name,
			Description: spec.Description,
			InputSchema: spec.InputSchema,
		})
	}
	for name, custom := range v.custom {
		catalog = append(catalog, proxy.ToolDescriptor{
			Name:        name,
			Description: custom.Description,
			InputSchema: custom.InputSchema,
		})
	}
	sort.Slice(catalog, func(i, j int) bool { return catalog[i].Name < catalog[j].Name })
	return catalog
}

// Search ranks the view's catalog against a free-text query. The limit
// argument caps results; zero falls back to the view's configured limit.
func (v *View) Search(query string, limit int) []proxy.ToolDescriptor {
	if limit <= 0 {
		limit = v.searchLimit
	}
	return search.Search(v.Catalog(), query, limit)
}

// Refresh rebuilds the view's tool mapping from the given discovery results.
func (v *View) Refresh(discovered []proxy.Tool) {
	v.mapper.Refresh(discovered)
}

// Descriptor returns the view's introspection shape. Search mode reports
// only its meta-tool names, matching what a client can actually invoke.
func (v *View) Descriptor() proxy.ViewDescriptor {
	d := proxy.ViewDescriptor{
		Name:         v.name,
		Description:  v.description,
		ExposureMode: v.exposure,
	}

	if v.exposure == config.ExposureSearch {
		d.Tools = []string{v.SearchToolName(), v.CallToolName()}
		return d
	}

	catalog := v.Catalog()
	d.Tools = make([]string, 0, len(catalog))
	for _, t := range catalog {
		d.Tools = append(d.Tools, t.Name)
	}
	return d
}
