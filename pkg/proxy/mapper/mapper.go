// Package mapper resolves exposed tool names to upstream targets for one
// view. The mapping merges static configuration with dynamically discovered
// tools; configuration always wins over discovery. Lookups are lock-free:
// Refresh rebuilds the whole mapping off to the side and swaps it in
// atomically, so readers never observe a partially rebuilt structure.
package mapper

import (
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/toolview/toolview/pkg/config"
	"github.com/toolview/toolview/pkg/logger"
	"github.com/toolview/toolview/pkg/proxy"
)

// Entry is one resolved exposed tool, carrying everything a caller needs to
// forward or describe it.
type Entry struct {
	Target     proxy.Target
	Descriptor proxy.ToolDescriptor

	// Override is the configuration that shaped this entry, nil for tools
	// exposed purely through discovery.
	Override *config.ToolOverride
}

// mapping is one immutable snapshot of the view's exposed surface.
type mapping struct {
	entries map[string]*Entry

	// byOriginal maps "server.original" to the exposed names pointing at it,
	// for reverse lookups in hooks and log lines.
	byOriginal map[string][]string
}

// Mapper maintains the exposed-name mapping for one view.
type Mapper struct {
	view       string
	includeAll bool

	// overrides maps server name to its per-tool override table, already
	// merged from server-level and view-level configuration.
	overrides map[string]map[string]*config.ToolOverride

	// servers is the set of upstream servers in scope for this view.
	servers map[string]struct{}

	snapshot atomic.Pointer[mapping]
}

// New creates a mapper for one view. servers is the set of upstream servers
// in scope; overrides is the merged per-server override table. The initial
// mapping contains the configured entries only, with nil schemas, until the
// first Refresh supplies discovery results.
func New(view string, servers []string, overrides map[string]map[string]*config.ToolOverride, includeAll bool) *Mapper {
	m := &Mapper{
		view:       view,
		includeAll: includeAll,
		overrides:  overrides,
		servers:    make(map[string]struct{}, len(servers)),
	}
	for _, s := range servers {
		m.servers[s] = struct{}{}
	}
	m.snapshot.Store(m.build(nil))
	return m
}

// Resolve maps an exposed tool name to its upstream target.
func (m *Mapper) Resolve(exposed string) (proxy.Target, error) {
	entry, ok := m.snapshot.Load().entries[exposed]
	if !ok {
		return proxy.Target{}, fmt.Errorf("%w: %s", proxy.ErrUnknownTool, exposed)
	}
	return entry.Target, nil
}

// Entry returns the full entry for an exposed tool name.
func (m *Mapper) Entry(exposed string) (*Entry, error) {
	entry, ok := m.snapshot.Load().entries[exposed]
	if !ok {
		return nil, fmt.Errorf("%w: %s", proxy.ErrUnknownTool, exposed)
	}
	return entry, nil
}

// ExposedNames returns the exposed names currently pointing at an upstream
// tool, addressed as server and original name.
func (m *Mapper) ExposedNames(server, original string) []string {
	return m.snapshot.Load().byOriginal[server+"."+original]
}

// Catalog returns the view's tool descriptors sorted by exposed name.
func (m *Mapper) Catalog() []proxy.ToolDescriptor {
	snap := m.snapshot.Load()
	out := make([]proxy.ToolDescriptor, 0, len(snap.entries))
	for _, e := range snap.entries {
		out = append(out, e.Descriptor)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Refresh rebuilds the mapping from configuration plus the given discovery
// results and swaps it in atomically. discovered is the full current tool
// set for the servers in scope; tools from out-of-scope servers are ignored.
// Configured entries are never removed or overwritten by a refresh.
func (m *Mapper) Refresh(discovered []proxy.Tool) {
	m.snapshot.Store(m.build(discovered))
}

func (m *Mapper) build(discovered []proxy.Tool) *mapping {
	snap := &mapping{
		entries:    make(map[string]*Entry),
		byOriginal: make(map[string][]string),
	}

	// Index discovery by server and original name for schema lookups.
	live := make(map[string]proxy.Tool)
	for _, t := range discovered {
		if _, ok := m.servers[t.Server]; !ok {
			continue
		}
		live[t.Server+"."+t.Name] = t
	}

	// Configured entries first. These claim their exposed names and are
	// never displaced by discovery.
	for server, tools := range m.overrides {
		for original, override := range tools {
			upstream, known := live[server+"."+original]
			for _, d := range configuredDescriptors(server, original, override, upstream, known) {
				m.add(snap, d, override)
			}
		}
	}

	// Discovered entries fill the rest when the view includes everything.
	if m.includeAll {
		for _, t := range discovered {
			if _, ok := m.servers[t.Server]; !ok {
				continue
			}
			if _, configured := m.overrides[t.Server][t.Name]; configured {
				continue
			}
			if _, taken := snap.entries[t.Name]; taken {
				logger.Debugf("view %s: discovered tool %s.%s shadowed by configured name", m.view, t.Server, t.Name)
				continue
			}
			m.add(snap, proxy.ToolDescriptor{
				Name:         t.Name,
				OriginalName: t.Name,
				Server:       t.Server,
				Description:  t.Description,
				InputSchema:  t.InputSchema,
			}, nil)
		}
	}

	return snap
}

func (m *Mapper) add(snap *mapping, d proxy.ToolDescriptor, override *config.ToolOverride) {
	if _, taken := snap.entries[d.Name]; taken {
		logger.Warnf("view %s: duplicate exposed name %s, keeping first", m.view, d.Name)
		return
	}
	snap.entries[d.Name] = &Entry{
		Target:     proxy.Target{Server: d.Server, OriginalName: d.OriginalName},
		Descriptor: d,
		Override:   override,
	}
	key := d.Server + "." + d.OriginalName
	snap.byOriginal[key] = append(snap.byOriginal[key], d.Name)
}

// configuredDescriptors expands one override into its exposed descriptors.
// Aliases replace the primary exposure: k aliases yield exactly k exposed
// names and the original (or renamed) name is not exposed at all. Without
// aliases the single primary name is exposed. When the upstream tool is not
// yet discovered, schemas stay nil so the entry is still listed and callable
// once the tool appears.
func configuredDescriptors(server, original string, override *config.ToolOverride, upstream proxy.Tool, known bool) []proxy.ToolDescriptor {
	upstreamDesc := ""
	var schema map[string]any
	if known {
		upstreamDesc = upstream.Description
		schema = upstream.InputSchema
	}

	primary := original
	primaryDesc := upstreamDesc
	var params map[string]*config.ParameterOverride
	if override != nil {
		if override.Name != "" {
			primary = override.Name
		}
		if override.Description != "" {
			primaryDesc = templateDescription(override.Description, upstreamDesc)
		}
		params = override.Parameters
	}
	if primaryDesc == "" {
		primaryDesc = fmt.Sprintf("Tool %s on server %s", original, server)
	}

	if override != nil && len(override.Aliases) > 0 {
		out := make([]proxy.ToolDescriptor, 0, len(override.Aliases))
		for _, alias := range override.Aliases {
			desc := templateDescription(alias.Description, upstreamDesc)
			if desc == "" {
				desc = primaryDesc
			}
			out = append(out, proxy.ToolDescriptor{
				Name:         alias.Name,
				OriginalName: original,
				Server:       server,
				Description:  desc,
				InputSchema:  TransformSchema(schema, params),
			})
		}
		return out
	}

	return []proxy.ToolDescriptor{{
		Name:         primary,
		OriginalName: original,
		Server:       server,
		Description:  primaryDesc,
		InputSchema:  TransformSchema(schema, params),
	}}
}

// templateDescription splices the upstream description into an override
// description at the {original} placeholder.
func templateDescription(desc, original string) string {
	return strings.ReplaceAll(desc, "{original}", original)
}
