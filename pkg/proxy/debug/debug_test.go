package debug

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolview/toolview/pkg/config"
	"github.com/toolview/toolview/pkg/logger"
	"github.com/toolview/toolview/pkg/proxy"
)

// captureLogs routes the singleton logger into a buffer for the duration of
// the test. Tests using it must not run in parallel, the logger is global.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	old := logger.Get()
	logger.Set(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { logger.Set(old) })
	return &buf
}

func testSettings(enabled bool, viewSlow, upstreamSlow int64) *Settings {
	s := NewSettings(&config.Debug{ViewSlowMs: viewSlow, UpstreamSlowMs: upstreamSlow})
	if enabled {
		s.Enable()
	} else {
		s.Disable()
	}
	return s
}

// fakeView counts calls and returns a fixed result.
type fakeView struct {
	mu    sync.Mutex
	calls int
	res   *proxy.Result
	err   error
	delay time.Duration
}

func (f *fakeView) Name() string { return "test" }

func (f *fakeView) Call(_ context.Context, _ string, _ map[string]any) (*proxy.Result, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.res, f.err
}

// fakeLink counts calls and returns fixed values.
type fakeLink struct {
	calls int
	res   *proxy.Result
	err   error
}

func (f *fakeLink) ListTools(context.Context) ([]proxy.Tool, error) { return nil, nil }

func (f *fakeLink) CallTool(context.Context, string, map[string]any) (*proxy.Result, error) {
	f.calls++
	return f.res, f.err
}

func (f *fakeLink) Close() error { return nil }

func TestSettings_EnvFlag(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"1", true},
		{"true", true},
		{"yes", true},
		{"on", true},
		{"0", false},
		{"false", false},
		{"no", false},
		{"", false},
		{"garbage", false},
	}

	for _, tt := range tests {
		t.Run("value_"+tt.value, func(t *testing.T) {
			t.Setenv(EnvFlag, tt.value)
			s := NewSettings(&config.Debug{Enabled: !tt.want})
			assert.Equal(t, tt.want, s.Enabled(), "env value %q must override config", tt.value)
		})
	}
}

func TestSettings_ThresholdsFromConfig(t *testing.T) {
	t.Parallel()

	s := NewSettings(&config.Debug{ViewSlowMs: 250, UpstreamSlowMs: 100})
	assert.Equal(t, 250*time.Millisecond, s.ViewSlowThreshold())
	assert.Equal(t, 100*time.Millisecond, s.UpstreamSlowThreshold())
}

func TestSettings_EnableDisable(t *testing.T) {
	t.Parallel()

	s := testSettings(false, 0, 0)
	assert.False(t, s.Enabled())
	s.Enable()
	assert.True(t, s.Enabled())
	s.Disable()
	assert.False(t, s.Enabled())
}

func TestCorrelationID_StableAndExplicit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	assert.Empty(t, CorrelationID(ctx))

	ctx, id := WithCorrelationID(ctx)
	require.Len(t, id, 8)
	assert.Equal(t, id, CorrelationID(ctx))

	// Reusing the context keeps the same id.
	ctx2, id2 := WithCorrelationID(ctx)
	assert.Equal(t, id, id2)
	assert.Equal(t, ctx, ctx2)
}

func TestWrapCaller_DisabledIsTransparent(t *testing.T) {
	t.Parallel()

	want := proxy.TextResult("hello")
	inner := &fakeView{res: want}
	wrapped := WrapCaller(inner, testSettings(false, 1000, 500))

	res, err := wrapped.Call(context.Background(), "tool", nil)
	require.NoError(t, err)
	assert.Same(t, want, res, "wrapped call must return the inner value unchanged")
	assert.Equal(t, 1, inner.calls, "inner must be called exactly once")
}

func TestWrapCaller_Idempotent(t *testing.T) {
	t.Parallel()

	s := testSettings(true, 1000, 500)
	inner := &fakeView{res: proxy.TextResult("x")}

	once := WrapCaller(inner, s)
	twice := WrapCaller(once, s)
	assert.Same(t, once, twice)
}

func TestWrapCaller_ErrorReturnedUnchanged(t *testing.T) {
	buf := captureLogs(t)
	innerErr := errors.New("upstream exploded")
	inner := &fakeView{err: innerErr}
	wrapped := WrapCaller(inner, testSettings(true, 1000, 500))

	_, err := wrapped.Call(context.Background(), "tool", nil)
	require.Error(t, err)
	assert.Same(t, innerErr, err, "instrumentation must never alter the error")
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), "upstream exploded")
}

func TestWrapCaller_SlowCallLoggedAtWarn(t *testing.T) {
	buf := captureLogs(t)
	inner := &fakeView{res: proxy.TextResult("x"), delay: 30 * time.Millisecond}
	wrapped := WrapCaller(inner, testSettings(true, 1, 500))

	_, err := wrapped.Call(context.Background(), "tool", nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "slow")
}

func TestWrapCaller_FastCallLoggedAtDebug(t *testing.T) {
	buf := captureLogs(t)
	inner := &fakeView{res: proxy.TextResult("x")}
	wrapped := WrapCaller(inner, testSettings(true, 10_000, 500))

	_, err := wrapped.Call(context.Background(), "tool", nil)
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "level=WARN")
	assert.NotContains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), "level=DEBUG")
}

func TestWrapLink_DisabledIsTransparent(t *testing.T) {
	t.Parallel()

	want := proxy.TextResult("ok")
	inner := &fakeLink{res: want}
	wrapped := WrapLink("github", inner, testSettings(false, 1000, 500))

	res, err := wrapped.CallTool(context.Background(), "tool", nil)
	require.NoError(t, err)
	assert.Same(t, want, res)
	assert.Equal(t, 1, inner.calls)
}

func TestWrapLink_Idempotent(t *testing.T) {
	t.Parallel()

	s := testSettings(true, 1000, 500)
	inner := &fakeLink{}

	once := WrapLink("github", inner, s)
	twice := WrapLink("github", once, s)
	assert.Same(t, once, twice)
}

func TestWrapLink_SlowCallLoggedAtWarn(t *testing.T) {
	buf := captureLogs(t)
	slowLink := &slowFakeLink{delay: 30 * time.Millisecond}
	wrapped := WrapLink("github", slowLink, testSettings(true, 10_000, 1))

	_, err := wrapped.CallTool(context.Background(), "tool", nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "level=WARN")
}

func TestWrapLink_ErrorLogged(t *testing.T) {
	buf := captureLogs(t)
	innerErr := errors.New("refused")
	wrapped := WrapLink("github", &fakeLink{err: innerErr}, testSettings(true, 1000, 500))

	_, err := wrapped.CallTool(context.Background(), "tool", nil)
	require.Error(t, err)
	assert.Same(t, innerErr, err)
	assert.Contains(t, buf.String(), "level=ERROR")
}

type slowFakeLink struct {
	delay time.Duration
}

func (s *slowFakeLink) ListTools(context.Context) ([]proxy.Tool, error) { return nil, nil }

func (s *slowFakeLink) CallTool(context.Context, string, map[string]any) (*proxy.Result, error) {
	time.Sleep(s.delay)
	return proxy.TextResult("late"), nil
}

func (s *slowFakeLink) Close() error { return nil }
