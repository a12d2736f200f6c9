package hooks

import (
	"context"
	"fmt"

	"github.com/toolview/toolview/pkg/proxy"
)

// Pipeline runs a view's pre- and post-call hooks around one upstream
// invocation. Either hook may be nil, in which case that direction is a
// no-op. Each hook is invoked at most once per call.
type Pipeline struct {
	pre  PreHook
	post PostHook
}

// NewPipeline creates a pipeline from the view's hooks. Both arguments may
// be nil.
func NewPipeline(pre PreHook, post PostHook) *Pipeline {
	return &Pipeline{pre: pre, post: post}
}

// RunPreCall executes the pre-call hook. It returns the arguments to forward
// upstream: the hook's replacement when given, the originals otherwise.
// An abort surfaces as ErrCallAborted carrying the hook's reason, and the
// caller must not issue the upstream call.
func (p *Pipeline) RunPreCall(ctx context.Context, call proxy.CallContext, args map[string]any) (map[string]any, error) {
	if p == nil || p.pre == nil {
		return args, nil
	}

	res, err := p.pre(ctx, call, args)
	if err != nil {
		return nil, fmt.Errorf("pre-call hook for %s: %w", call.Tool, err)
	}
	if res.Abort {
		return nil, fmt.Errorf("%w: %s", proxy.ErrCallAborted, res.Reason)
	}
	if res.Args != nil {
		return res.Args, nil
	}
	return args, nil
}

// RunPostCall executes the post-call hook. It returns the result the caller
// should see: the hook's replacement when given, the upstream result
// otherwise.
func (p *Pipeline) RunPostCall(ctx context.Context, call proxy.CallContext, args map[string]any, result *proxy.Result) (*proxy.Result, error) {
	if p == nil || p.post == nil {
		return result, nil
	}

	res, err := p.post(ctx, call, args, result)
	if err != nil {
		return nil, fmt.Errorf("post-call hook for %s: %w", call.Tool, err)
	}
	if res.Result != nil {
		return res.Result, nil
	}
	return result, nil
}
