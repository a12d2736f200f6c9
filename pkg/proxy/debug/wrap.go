package debug

import (
	"context"
	"time"

	"github.com/toolview/toolview/pkg/logger"
	"github.com/toolview/toolview/pkg/proxy"
)

// Caller is the view-level call surface instrumentation wraps.
type Caller interface {
	// Name identifies the view for log lines.
	Name() string

	// Call invokes an exposed tool.
	Call(ctx context.Context, tool string, args map[string]any) (*proxy.Result, error)
}

// WrapCaller instruments a view-level caller. When the settings are
// disabled every call passes straight through after one boolean check.
// Wrapping an already wrapped caller returns it unchanged.
func WrapCaller(c Caller, s *Settings) Caller {
	if ic, ok := c.(*instrumentedCaller); ok {
		return ic
	}
	return &instrumentedCaller{inner: c, settings: s}
}

type instrumentedCaller struct {
	inner    Caller
	settings *Settings
}

func (c *instrumentedCaller) Name() string {
	return c.inner.Name()
}

func (c *instrumentedCaller) Call(ctx context.Context, tool string, args map[string]any) (*proxy.Result, error) {
	if !c.settings.Enabled() {
		return c.inner.Call(ctx, tool, args)
	}

	ctx, id := WithCorrelationID(ctx)
	start := time.Now()
	logger.Debugw("call start", "correlation_id", id, "view", c.inner.Name(), "tool", tool)

	res, err := c.inner.Call(ctx, tool, args)
	elapsed := time.Since(start)

	logCompletion("call", id, c.inner.Name(), tool, elapsed, c.settings.ViewSlowThreshold(), err)
	return res, err
}

// WrapLink instruments an upstream link. When the settings are disabled
// every call passes straight through after one boolean check. Wrapping an
// already wrapped link returns it unchanged.
func WrapLink(server string, link proxy.UpstreamLink, s *Settings) proxy.UpstreamLink {
	if il, ok := link.(*instrumentedLink); ok {
		return il
	}
	return &instrumentedLink{server: server, inner: link, settings: s}
}

type instrumentedLink struct {
	server   string
	inner    proxy.UpstreamLink
	settings *Settings
}

func (l *instrumentedLink) ListTools(ctx context.Context) ([]proxy.Tool, error) {
	if !l.settings.Enabled() {
		return l.inner.ListTools(ctx)
	}

	ctx, id := WithCorrelationID(ctx)
	start := time.Now()

	tools, err := l.inner.ListTools(ctx)
	elapsed := time.Since(start)

	logCompletion("upstream list", id, l.server, "", elapsed, l.settings.UpstreamSlowThreshold(), err)
	return tools, err
}

func (l *instrumentedLink) CallTool(ctx context.Context, name string, args map[string]any) (*proxy.Result, error) {
	if !l.settings.Enabled() {
		return l.inner.CallTool(ctx, name, args)
	}

	ctx, id := WithCorrelationID(ctx)
	start := time.Now()
	logger.Debugw("upstream call start", "correlation_id", id, "server", l.server, "tool", name)

	res, err := l.inner.CallTool(ctx, name, args)
	elapsed := time.Since(start)

	logCompletion("upstream call", id, l.server, name, elapsed, l.settings.UpstreamSlowThreshold(), err)
	return res, err
}

func (l *instrumentedLink) Close() error {
	return l.inner.Close()
}

// logCompletion emits one line per finished call: debug for a normal
// completion, warn when the slow threshold is exceeded, error on failure.
// Errors are logged and re-returned by the caller unchanged.
func logCompletion(op, id, scope, tool string, elapsed, slow time.Duration, err error) {
	fields := []any{
		"correlation_id", id,
		"scope", scope,
		"elapsed_ms", elapsed.Milliseconds(),
	}
	if tool != "" {
		fields = append(fields, "tool", tool)
	}

	switch {
	case err != nil:
		logger.Errorw(op+" failed", append(fields, "error", err.Error())...)
	case slow > 0 && elapsed > slow:
		logger.Warnw(op+" slow", append(fields, "threshold_ms", slow.Milliseconds())...)
	default:
		logger.Debugw(op+" done", fields...)
	}
}
