// Package hooks provides the middleware pipeline that runs around a single
// upstream tool invocation. Hooks are plain Go functions registered by name
// at startup; configuration references them by that name, never by a code
// path resolved at runtime.
package hooks

import (
	"context"

	"github.com/toolview/toolview/pkg/proxy"
)

// Result is what a hook returns. The zero value means "no change, proceed".
type Result struct {
	// Args replaces the call arguments when non-nil (pre-call only).
	Args map[string]any

	// Result replaces the upstream result when non-nil (post-call only).
	Result *proxy.Result

	// Abort vetoes the call before it reaches the upstream link.
	Abort bool

	// Reason is the human-readable abort explanation.
	Reason string
}

// PreHook runs before the upstream call. It may replace the arguments or
// abort the call.
type PreHook func(ctx context.Context, call proxy.CallContext, args map[string]any) (Result, error)

// PostHook runs after the upstream call with the (possibly replaced)
// arguments and the upstream result. It may replace the result.
type PostHook func(ctx context.Context, call proxy.CallContext, args map[string]any, result *proxy.Result) (Result, error)
