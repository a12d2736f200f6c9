// Package config provides the configuration model for the tool-view proxy.
//
// The model is transport-agnostic: the YAML loader in this package and any
// future source (flags, env) produce the same Config, which the rest of the
// system consumes read-only after validation.
package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Transport type constants for upstream server configuration.
const (
	// TransportStdio runs the upstream server as a child process over stdio.
	TransportStdio = "stdio"
	// TransportSSE is the Server-Sent Events transport protocol.
	TransportSSE = "sse"
	// TransportStreamableHTTP is the streamable HTTP transport protocol.
	TransportStreamableHTTP = "streamable-http"
)

// AllowedTransports lists all transport types accepted for upstream servers.
var AllowedTransports = []string{TransportStdio, TransportSSE, TransportStreamableHTTP}

// Exposure mode constants for views.
const (
	// ExposureDirect registers every allowed tool individually.
	ExposureDirect = "direct"
	// ExposureSearch registers only the fuzzy-search meta-tool plus its
	// companion call tool.
	ExposureSearch = "search"
)

// Duration is a wrapper around time.Duration that marshals/unmarshals as a
// duration string ("30s", "1m") instead of a nanosecond integer.
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	*d = Duration(dur)
	return nil
}

// Config is the root configuration for the proxy.
type Config struct {
	// Name is the proxy's advertised server name.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Host is the HTTP listen address.
	Host string `json:"host,omitempty" yaml:"host,omitempty"`

	// Port is the HTTP listen port.
	Port int `json:"port,omitempty" yaml:"port,omitempty"`

	// Servers maps upstream server name to its connection and tool config.
	Servers map[string]*UpstreamServer `json:"servers" yaml:"servers"`

	// Views maps view name to its definition.
	Views map[string]*View `json:"views,omitempty" yaml:"views,omitempty"`

	// Debug configures call instrumentation.
	Debug *Debug `json:"debug,omitempty" yaml:"debug,omitempty"`

	// CallTimeout bounds one whole view-level call, composite branches
	// included. Zero means no timeout.
	CallTimeout Duration `json:"callTimeout,omitempty" yaml:"callTimeout,omitempty"`
}

// UpstreamServer describes one upstream MCP server: how to reach it and
// which of its tools are exposed, renamed or aliased.
type UpstreamServer struct {
	// Transport selects the wire protocol. Defaults to "stdio" when Command
	// is set and "streamable-http" when URL is set.
	Transport string `json:"transport,omitempty" yaml:"transport,omitempty"`

	// Command is the child process argv for stdio transport.
	Command []string `json:"command,omitempty" yaml:"command,omitempty"`

	// Env holds extra environment variables for the child process.
	Env map[string]string `json:"env,omitempty" yaml:"env,omitempty"`

	// URL is the endpoint for sse and streamable-http transports.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// Headers are sent with every HTTP request to the upstream.
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`

	// Tools maps original tool name to its override. When non-empty this is
	// also the server's allowlist unless a view sets includeAll.
	Tools map[string]*ToolOverride `json:"tools,omitempty" yaml:"tools,omitempty"`
}

// ToolOverride reshapes how one upstream tool is exposed.
type ToolOverride struct {
	// Name renames the tool's exposed name. Empty keeps the original name.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Description overrides the upstream description. The placeholder
	// "{original}" splices the upstream description in.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Aliases exposes the tool under these names instead of its primary
	// name: k aliases yield exactly k exposed names.
	Aliases []Alias `json:"aliases,omitempty" yaml:"aliases,omitempty"`

	// Parameters transforms individual input-schema parameters.
	Parameters map[string]*ParameterOverride `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// Alias is one exposed name for an aliased tool.
type Alias struct {
	// Name is the alias's exposed name. Required.
	Name string `json:"name" yaml:"name"`

	// Description is the alias's own description.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// ParameterOverride transforms one input parameter of an exposed tool.
type ParameterOverride struct {
	// Hide removes the parameter from the exposed schema. A hidden parameter
	// with a Default still gets that value injected on every call.
	Hide bool `json:"hide,omitempty" yaml:"hide,omitempty"`

	// Name renames the parameter in the exposed schema; calls are mapped
	// back to the original name before forwarding.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Description overrides the parameter description.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Default is injected when the caller omits the parameter.
	Default any `json:"default,omitempty" yaml:"default,omitempty"`
}

// View defines one curated namespace of tools.
type View struct {
	// Description is shown on discovery endpoints.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Exposure is "direct" or "search". Defaults to "direct".
	Exposure string `json:"exposure,omitempty" yaml:"exposure,omitempty"`

	// IncludeAll exposes every tool from every referenced server unless an
	// override says otherwise. When false, only tools named in Tools (or in
	// the server-level override table) are exposed.
	IncludeAll bool `json:"includeAll,omitempty" yaml:"includeAll,omitempty"`

	// Tools maps server name to per-tool overrides scoped to this view.
	// View-level overrides layer on top of server-level ones.
	Tools map[string]map[string]*ToolOverride `json:"tools,omitempty" yaml:"tools,omitempty"`

	// Hooks names the registered pre/post hooks for this view.
	Hooks *Hooks `json:"hooks,omitempty" yaml:"hooks,omitempty"`

	// Composites maps composite tool name to its definition.
	Composites map[string]*CompositeTool `json:"composites,omitempty" yaml:"composites,omitempty"`

	// CustomTools names registered custom callables exposed by this view.
	// Like hooks, custom tools are registered in a typed registry at startup
	// and referenced here by name only.
	CustomTools []string `json:"customTools,omitempty" yaml:"customTools,omitempty"`

	// SearchLimit caps results from the search meta-tool. Defaults to 10.
	SearchLimit int `json:"searchLimit,omitempty" yaml:"searchLimit,omitempty"`
}

// Hooks names the registered middleware functions for a view.
// Hooks are looked up in the typed hook registry at startup; a name with no
// registration is a validation error.
type Hooks struct {
	Pre  string `json:"pre,omitempty" yaml:"pre,omitempty"`
	Post string `json:"post,omitempty" yaml:"post,omitempty"`
}

// CompositeTool defines a tool whose execution fans out to several upstream
// calls concurrently.
type CompositeTool struct {
	// Description is the exposed tool description.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// InputSchema is the declared JSON Schema for the composite's inputs.
	InputSchema map[string]any `json:"inputSchema,omitempty" yaml:"inputSchema,omitempty"`

	// Branches maps branch name to its target and argument template.
	Branches map[string]*CompositeBranch `json:"branches" yaml:"branches"`

	// PartialResults, when true, reports completed branch results on
	// timeout instead of failing the whole call.
	PartialResults bool `json:"partialResults,omitempty" yaml:"partialResults,omitempty"`
}

// CompositeBranch is one concurrent leg of a composite tool.
type CompositeBranch struct {
	// Tool addresses the upstream tool as "server.tool".
	Tool string `json:"tool" yaml:"tool"`

	// Args is the argument template. String values (at any nesting depth)
	// may contain "{inputs.<field>}" placeholders.
	Args map[string]any `json:"args,omitempty" yaml:"args,omitempty"`
}

// Debug configures call instrumentation.
type Debug struct {
	// Enabled turns instrumentation on at startup. The TOOLVIEW_DEBUG
	// environment flag overrides this field when set.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`

	// ViewSlowMs is the slow-call warning threshold for view-level calls.
	ViewSlowMs int64 `json:"viewSlowMs,omitempty" yaml:"viewSlowMs,omitempty"`

	// UpstreamSlowMs is the slow-call warning threshold for upstream calls.
	UpstreamSlowMs int64 `json:"upstreamSlowMs,omitempty" yaml:"upstreamSlowMs,omitempty"`
}
