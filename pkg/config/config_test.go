package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolview/toolview/pkg/proxy"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestYAMLLoader_Load(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
name: myproxy
port: 9000
servers:
  github:
    transport: stdio
    command: ["github-mcp", "serve"]
  docs:
    url: https://docs.example.com/mcp
views:
  research:
    description: Read-only research tools
    tools:
      github:
        search_code:
        search_issues:
          name: find_issues
`)

	cfg, err := NewYAMLLoader(path, nil).Load()
	require.NoError(t, err)

	assert.Equal(t, "myproxy", cfg.Name)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, time.Duration(cfg.CallTimeout), 60*time.Second)

	require.Contains(t, cfg.Servers, "github")
	assert.Equal(t, TransportStdio, cfg.Servers["github"].Transport)
	assert.Equal(t, TransportStreamableHTTP, cfg.Servers["docs"].Transport, "url implies streamable-http")

	research := cfg.Views["research"]
	require.NotNil(t, research)
	assert.Equal(t, ExposureDirect, research.Exposure)
	assert.Equal(t, 10, research.SearchLimit)
	assert.Equal(t, "find_issues", research.Tools["github"]["search_issues"].Name)
}

func TestYAMLLoader_EnvExpansion(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
servers:
  api:
    url: ${API_URL}
    headers:
      Authorization: Bearer ${API_TOKEN}
`)

	env := map[string]string{
		"API_URL":   "https://api.example.com/mcp",
		"API_TOKEN": "s3cret",
	}
	cfg, err := NewYAMLLoader(path, func(k string) string { return env[k] }).Load()
	require.NoError(t, err)

	srv := cfg.Servers["api"]
	assert.Equal(t, "https://api.example.com/mcp", srv.URL)
	assert.Equal(t, "Bearer s3cret", srv.Headers["Authorization"])
}

func TestYAMLLoader_UnsetEnvExpandsEmpty(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
servers:
  api:
    transport: sse
    url: prefix-${MISSING_VAR}-suffix
`)

	cfg, err := NewYAMLLoader(path, func(string) string { return "" }).Load()
	require.NoError(t, err)
	assert.Equal(t, "prefix--suffix", cfg.Servers["api"].URL)
}

func TestYAMLLoader_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := NewYAMLLoader(filepath.Join(t.TempDir(), "absent.yaml"), nil).Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, proxy.ErrInvalidConfig)
}

func TestYAMLLoader_MalformedYAML(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "servers: [not a map")
	_, err := NewYAMLLoader(path, nil).Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, proxy.ErrInvalidConfig)
}

func validConfig() *Config {
	return &Config{
		Servers: map[string]*UpstreamServer{
			"github": {Transport: TransportStdio, Command: []string{"github-mcp"}},
			"docs":   {Transport: TransportSSE, URL: "https://docs.example.com/sse"},
		},
		Views: map[string]*View{
			"research": {
				Exposure: ExposureDirect,
				Tools: map[string]map[string]*ToolOverride{
					"github": {"search_code": nil},
				},
			},
		},
	}
}

func TestValidate_Valid(t *testing.T) {
	t.Parallel()
	assert.NoError(t, NewValidator().Validate(validConfig()))
}

func TestValidate_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{
			name:    "no servers",
			mutate:  func(c *Config) { c.Servers = nil },
			wantMsg: "at least one upstream server",
		},
		{
			name:    "stdio without command",
			mutate:  func(c *Config) { c.Servers["github"].Command = nil },
			wantMsg: "requires a command",
		},
		{
			name: "stdio with url",
			mutate: func(c *Config) {
				c.Servers["github"].URL = "https://example.com"
			},
			wantMsg: "does not take a url",
		},
		{
			name:    "sse without url",
			mutate:  func(c *Config) { c.Servers["docs"].URL = "" },
			wantMsg: "requires a url",
		},
		{
			name: "unknown transport",
			mutate: func(c *Config) {
				c.Servers["github"].Transport = "carrier-pigeon"
			},
			wantMsg: "unsupported transport",
		},
		{
			name: "unknown exposure mode",
			mutate: func(c *Config) {
				c.Views["research"].Exposure = "telepathy"
			},
			wantMsg: "unsupported exposure mode",
		},
		{
			name: "view references unknown server",
			mutate: func(c *Config) {
				c.Views["research"].Tools["gitlab"] = map[string]*ToolOverride{"x": nil}
			},
			wantMsg: "unknown server",
		},
		{
			name: "alias without name",
			mutate: func(c *Config) {
				c.Views["research"].Tools["github"]["search_code"] = &ToolOverride{
					Aliases: []Alias{{Description: "no name"}},
				}
			},
			wantMsg: "alias without a name",
		},
		{
			name: "parameter hidden and renamed",
			mutate: func(c *Config) {
				c.Servers["github"].Tools = map[string]*ToolOverride{
					"search_code": {
						Parameters: map[string]*ParameterOverride{
							"owner": {Hide: true, Name: "org"},
						},
					},
				}
			},
			wantMsg: "cannot be both hidden and renamed",
		},
		{
			name: "duplicate exposed name via rename",
			mutate: func(c *Config) {
				c.Views["research"].Tools["github"]["search_issues"] = &ToolOverride{Name: "search_code"}
			},
			wantMsg: "declared by both",
		},
		{
			name: "alias collides with exposed name",
			mutate: func(c *Config) {
				c.Views["research"].Tools["github"]["search_issues"] = &ToolOverride{
					Aliases: []Alias{{Name: "search_code"}},
				}
			},
			wantMsg: "declared by both",
		},
		{
			name: "composite name collides with tool",
			mutate: func(c *Config) {
				c.Views["research"].Composites = map[string]*CompositeTool{
					"search_code": {
						Branches: map[string]*CompositeBranch{
							"a": {Tool: "github.search_code"},
						},
					},
				}
			},
			wantMsg: "declared by both",
		},
		{
			name: "composite branch bad addressing",
			mutate: func(c *Config) {
				c.Views["research"].Composites = map[string]*CompositeTool{
					"combo": {
						Branches: map[string]*CompositeBranch{
							"a": {Tool: "noservertool"},
						},
					},
				}
			},
			wantMsg: "server.tool addressing",
		},
		{
			name: "composite branch unknown server",
			mutate: func(c *Config) {
				c.Views["research"].Composites = map[string]*CompositeTool{
					"combo": {
						Branches: map[string]*CompositeBranch{
							"a": {Tool: "gitlab.search"},
						},
					},
				}
			},
			wantMsg: "unknown server",
		},
		{
			name: "composite without branches",
			mutate: func(c *Config) {
				c.Views["research"].Composites = map[string]*CompositeTool{
					"combo": {},
				}
			},
			wantMsg: "at least one branch",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)
			err := NewValidator().Validate(cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, proxy.ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestValidate_AliasesFreeThePrimaryName(t *testing.T) {
	t.Parallel()

	// Aliases replace the primary exposure, so another tool may take the
	// aliased tool's original name.
	cfg := validConfig()
	cfg.Views["research"].Tools["github"]["search_issues"] = &ToolOverride{
		Aliases: []Alias{{Name: "find_issues"}, {Name: "find_bugs"}},
	}
	cfg.Views["research"].Tools["github"]["search_code"] = &ToolOverride{Name: "search_issues"}

	assert.NoError(t, NewValidator().Validate(cfg))
}

func TestEnsureDefaults(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Servers: map[string]*UpstreamServer{
			"stdio_srv": {Command: []string{"run"}},
			"http_srv":  {URL: "https://example.com/mcp"},
		},
		Views: map[string]*View{
			"v": {},
		},
	}
	cfg.EnsureDefaults()

	assert.Equal(t, "toolview", cfg.Name)
	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, 60*time.Second, time.Duration(cfg.CallTimeout))

	require.NotNil(t, cfg.Debug)
	assert.False(t, cfg.Debug.Enabled)
	assert.Equal(t, int64(1000), cfg.Debug.ViewSlowMs)
	assert.Equal(t, int64(500), cfg.Debug.UpstreamSlowMs)

	assert.Equal(t, TransportStdio, cfg.Servers["stdio_srv"].Transport)
	assert.Equal(t, TransportStreamableHTTP, cfg.Servers["http_srv"].Transport)

	assert.Equal(t, ExposureDirect, cfg.Views["v"].Exposure)
	assert.Equal(t, 10, cfg.Views["v"].SearchLimit)
}

func TestEnsureDefaults_PreservesUserValues(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Name:        "custom",
		Port:        1234,
		CallTimeout: Duration(5 * time.Second),
		Debug:       &Debug{Enabled: true, ViewSlowMs: 50},
	}
	cfg.EnsureDefaults()

	assert.Equal(t, "custom", cfg.Name)
	assert.Equal(t, 1234, cfg.Port)
	assert.Equal(t, 5*time.Second, time.Duration(cfg.CallTimeout))
	assert.True(t, cfg.Debug.Enabled)
	assert.Equal(t, int64(50), cfg.Debug.ViewSlowMs)
	assert.Equal(t, int64(500), cfg.Debug.UpstreamSlowMs, "unset field still defaulted")
}

func TestDuration_YAMLRoundTrip(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
callTimeout: 90s
servers:
  s:
    command: ["x"]
`)
	loaded, err := NewYAMLLoader(path, nil).Load()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, time.Duration(loaded.CallTimeout))
}
