package proxy

import "errors"

// Common domain errors used across the proxy subpackages.
// These errors should be checked using errors.Is(). Wrapping errors provide
// the specific tool, server or composite detail.

var (
	// ErrUnknownTool indicates an exposed tool name has no mapping in the view.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrUnknownServer indicates a mapped server has no live upstream link.
	ErrUnknownServer = errors.New("unknown server")

	// ErrUnknownView indicates a call addressed a view that does not exist.
	ErrUnknownView = errors.New("unknown view")

	// ErrCallAborted indicates a pre-call hook vetoed the call.
	// Wrapping errors carry the hook's reason string.
	ErrCallAborted = errors.New("call aborted")

	// ErrUpstreamCallFailed indicates the upstream link itself errored.
	// Wrapping errors should include the underlying transport error.
	ErrUpstreamCallFailed = errors.New("upstream call failed")

	// ErrInvalidCompositeSpec indicates a malformed composite tool definition.
	// This is caught before any branch executes.
	ErrInvalidCompositeSpec = errors.New("invalid composite spec")

	// ErrTimeout indicates an operation exceeded its deadline.
	ErrTimeout = errors.New("operation timed out")

	// ErrInvalidConfig indicates invalid configuration was provided.
	// Wrapping errors should provide specific details about what is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")
)
