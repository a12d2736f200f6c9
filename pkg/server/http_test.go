package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolview/toolview/pkg/config"
	"github.com/toolview/toolview/pkg/proxy"
	"github.com/toolview/toolview/pkg/proxy/debug"
	"github.com/toolview/toolview/pkg/proxy/hooks"
	"github.com/toolview/toolview/pkg/proxy/router"
	"github.com/toolview/toolview/pkg/proxy/view"
)

type fakeLink struct {
	mu    sync.Mutex
	tools []proxy.Tool
}

func (f *fakeLink) ListTools(context.Context) ([]proxy.Tool, error) { return f.tools, nil }

func (f *fakeLink) CallTool(_ context.Context, tool string, _ map[string]any) (*proxy.Result, error) {
	return proxy.TextResult("ok:" + tool), nil
}

func (f *fakeLink) Close() error { return nil }

func testServer(t *testing.T) *Server {
	t.Helper()

	cfg := &config.Config{
		Name: "toolview",
		Servers: map[string]*config.UpstreamServer{
			"github": {Transport: config.TransportStdio, Command: []string{"github-mcp"}},
		},
		Views: map[string]*config.View{
			"research": {
				Tools: map[string]map[string]*config.ToolOverride{
					"github": {"search_code": nil},
				},
			},
			"findable": {
				Exposure:   config.ExposureSearch,
				IncludeAll: true,
			},
		},
	}
	cfg.EnsureDefaults()

	rt, err := router.New(cfg, hooks.NewRegistry(), view.NewCustomRegistry(), debug.NewSettings(cfg.Debug))
	require.NoError(t, err)

	rt.RegisterLink("github", &fakeLink{tools: []proxy.Tool{
		{Name: "search_code", Description: "Search code", Server: "github", InputSchema: map[string]any{"type": "object"}},
		{Name: "create_issue", Description: "Open an issue", Server: "github", InputSchema: map[string]any{"type": "object"}},
	}})
	require.NoError(t, rt.RefreshAll(context.Background()))

	s := New(cfg, rt)
	require.NoError(t, s.SyncTools())
	return s
}

func get(t *testing.T, handler http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHandler_Health(t *testing.T) {
	t.Parallel()

	rec := get(t, testServer(t).Handler(), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestHandler_Views(t *testing.T) {
	t.Parallel()

	rec := get(t, testServer(t).Handler(), "/views")
	require.Equal(t, http.StatusOK, rec.Code)

	var views []proxy.ViewDescriptor
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 3)

	byName := make(map[string]proxy.ViewDescriptor, len(views))
	for _, v := range views {
		byName[v.Name] = v
	}

	assert.Contains(t, byName, "default")
	assert.ElementsMatch(t, []string{"search_code"}, byName["research"].Tools)
	assert.ElementsMatch(t,
		[]string{"findable_search_tools", "findable_call_tool"},
		byName["findable"].Tools,
		"search mode reports only its meta-tools")
}

func TestHandler_ViewByName(t *testing.T) {
	t.Parallel()

	rec := get(t, testServer(t).Handler(), "/views/research")
	require.Equal(t, http.StatusOK, rec.Code)

	var d proxy.ViewDescriptor
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.Equal(t, "research", d.Name)
	assert.Equal(t, config.ExposureDirect, d.ExposureMode)
	assert.Equal(t, []string{"search_code"}, d.Tools)
}

func TestHandler_UnknownView(t *testing.T) {
	t.Parallel()

	rec := get(t, testServer(t).Handler(), "/views/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "nope")
}

func TestResultToMCP(t *testing.T) {
	t.Parallel()

	t.Run("text content", func(t *testing.T) {
		t.Parallel()
		out := resultToMCP(proxy.TextResult("hello"))
		require.Len(t, out.Content, 1)
		assert.False(t, out.IsError)
	})

	t.Run("structured only gets text fallback", func(t *testing.T) {
		t.Parallel()
		out := resultToMCP(proxy.StructuredResult(map[string]any{"n": 1}))
		assert.NotNil(t, out.StructuredContent)
		require.Len(t, out.Content, 1, "clients ignoring structuredContent still get a payload")
	})

	t.Run("nil result", func(t *testing.T) {
		t.Parallel()
		out := resultToMCP(nil)
		assert.Empty(t, out.Content)
	})
}
