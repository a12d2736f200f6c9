package config

import (
	"time"

	"dario.cat/mergo"
)

// Default constants for proxy configuration.
const (
	// defaultName is the advertised server name when none is configured.
	defaultName = "toolview"

	// defaultHost is the HTTP listen address.
	defaultHost = "127.0.0.1"

	// defaultPort is the HTTP listen port.
	defaultPort = 8000

	// defaultCallTimeout bounds one whole view-level call.
	defaultCallTimeout = 60 * time.Second

	// defaultViewSlowMs is the slow-call threshold for view-level calls.
	defaultViewSlowMs = 1000

	// defaultUpstreamSlowMs is the slow-call threshold for upstream calls.
	defaultUpstreamSlowMs = 500

	// defaultSearchLimit caps results from the search meta-tool.
	defaultSearchLimit = 10
)

// DefaultDebug returns a fully populated Debug config with default values.
// This is the single source of truth for instrumentation defaults.
func DefaultDebug() *Debug {
	return &Debug{
		Enabled:        false,
		ViewSlowMs:     defaultViewSlowMs,
		UpstreamSlowMs: defaultUpstreamSlowMs,
	}
}

// EnsureDefaults fills zero-value fields with defaults while preserving any
// user-provided values. Safe to call on a nil-free, freshly parsed Config.
func (c *Config) EnsureDefaults() {
	if c == nil {
		return
	}

	if c.Name == "" {
		c.Name = defaultName
	}
	if c.Host == "" {
		c.Host = defaultHost
	}
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.CallTimeout == 0 {
		c.CallTimeout = Duration(defaultCallTimeout)
	}

	if c.Debug == nil {
		c.Debug = DefaultDebug()
	} else {
		// Only fills zero fields; user-provided values win.
		_ = mergo.Merge(c.Debug, DefaultDebug())
	}

	for _, srv := range c.Servers {
		if srv == nil {
			continue
		}
		if srv.Transport == "" {
			if srv.URL != "" {
				srv.Transport = TransportStreamableHTTP
			} else {
				srv.Transport = TransportStdio
			}
		}
	}

	for _, view := range c.Views {
		if view == nil {
			continue
		}
		if view.Exposure == "" {
			view.Exposure = ExposureDirect
		}
		if view.SearchLimit == 0 {
			view.SearchLimit = defaultSearchLimit
		}
	}
}
