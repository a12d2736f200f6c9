package proxy

import "context"

// This file contains shared domain types used across the proxy subpackages.
// They are core concepts that cross package boundaries and therefore live at
// the package root.

// Tool is a tool capability as reported by an upstream server.
type Tool struct {
	// Name is the tool name as the upstream server knows it.
	Name string

	// Description describes what the tool does.
	Description string

	// InputSchema is the JSON Schema for tool parameters.
	// Nil for config-declared tools that have not yet been confirmed upstream.
	InputSchema map[string]any

	// Server identifies the upstream server that provides this tool.
	Server string
}

// ToolDescriptor is a resolved, view-scoped tool entry. It is produced by
// merging configuration overrides with live upstream discovery and is what a
// view publishes in its catalog.
type ToolDescriptor struct {
	// Name is the exposed tool name within the view.
	Name string

	// OriginalName is the name the upstream server knows the tool by.
	OriginalName string

	// Server is the upstream server that owns the tool.
	Server string

	// Description is the human-readable description, after any override or
	// alias description has been applied.
	Description string

	// InputSchema is the JSON Schema for the exposed parameters, after any
	// parameter transforms. Nil for config-only entries whose upstream schema
	// is not yet known.
	InputSchema map[string]any
}

// Target identifies where an exposed tool name routes to.
type Target struct {
	// Server is the upstream server name.
	Server string

	// OriginalName is the tool name to use when forwarding the call upstream.
	OriginalName string
}

// Content is one item of tool output (text, image, audio or resource).
type Content struct {
	// Type indicates the content type: "text", "image", "audio", "resource".
	Type string

	// Text is the content text (for text content).
	Text string

	// Data is the base64-encoded payload (for image/audio content).
	Data string

	// MimeType is the MIME type (for image/audio content).
	MimeType string

	// URI is the resource URI (for embedded resources).
	URI string
}

// Result wraps a tool call response.
type Result struct {
	// Content is the ordered list of content items returned upstream.
	Content []Content

	// StructuredContent is structured output when the upstream provides it.
	StructuredContent map[string]any

	// IsError indicates the upstream reported a tool-level failure.
	IsError bool
}

// TextResult builds a Result holding a single text content item.
func TextResult(text string) *Result {
	return &Result{Content: []Content{{Type: "text", Text: text}}}
}

// StructuredResult builds a Result whose payload is a structured map.
func StructuredResult(m map[string]any) *Result {
	return &Result{StructuredContent: m}
}

// UpstreamLink is an open connection to one upstream server. Links are
// long-lived and reused across calls; acquiring one for a call never blocks
// once the link is connected. Reconnect and backoff concerns live in the
// transport implementation, not in callers.
type UpstreamLink interface {
	// ListTools queries the upstream server for its tool catalog.
	ListTools(ctx context.Context) ([]Tool, error)

	// CallTool invokes a tool on the upstream server.
	CallTool(ctx context.Context, name string, args map[string]any) (*Result, error)

	// Close shuts the connection down. The link is unusable afterwards.
	Close() error
}

// CallContext is the immutable per-call value passed to every hook
// invocation. It carries identification only, never mutable state.
type CallContext struct {
	// View is the name of the view handling the call.
	View string

	// Tool is the exposed tool name as the caller invoked it.
	Tool string

	// Server is the resolved upstream server name.
	Server string
}

// ViewDescriptor is the introspection shape published for one view.
type ViewDescriptor struct {
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	ExposureMode string   `json:"exposure_mode"`
	Tools        []string `json:"tools"`
}
