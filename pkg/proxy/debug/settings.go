// Package debug layers call instrumentation over views and upstream links:
// correlation ids, elapsed timing, slow-call detection and failure logging.
// Instrumentation never changes what a call returns; disabled, it costs a
// single boolean check.
package debug

import (
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/toolview/toolview/pkg/config"
)

// EnvFlag is the environment variable that toggles instrumentation at
// startup. Absent, "0", "false" and "no" leave it off; "1", "true", "yes"
// and "on" switch it on.
const EnvFlag = "TOOLVIEW_DEBUG"

// Settings is the injected instrumentation switchboard. One instance is
// shared by every wrapper in the process so tests can flip it
// deterministically without package-level mutable state.
type Settings struct {
	enabled atomic.Bool

	viewSlow     time.Duration
	upstreamSlow time.Duration
}

// NewSettings builds Settings from configuration. When the EnvFlag
// environment variable is set, its value overrides cfg.Enabled.
func NewSettings(cfg *config.Debug) *Settings {
	if cfg == nil {
		cfg = config.DefaultDebug()
	}

	s := &Settings{
		viewSlow:     time.Duration(cfg.ViewSlowMs) * time.Millisecond,
		upstreamSlow: time.Duration(cfg.UpstreamSlowMs) * time.Millisecond,
	}

	enabled := cfg.Enabled
	if val, set := os.LookupEnv(EnvFlag); set {
		enabled = parseFlag(val)
	}
	s.enabled.Store(enabled)
	return s
}

// Enable turns instrumentation on.
func (s *Settings) Enable() {
	s.enabled.Store(true)
}

// Disable turns instrumentation off.
func (s *Settings) Disable() {
	s.enabled.Store(false)
}

// Enabled reports whether instrumentation is on. This is the single read
// path every wrapper checks before doing any work.
func (s *Settings) Enabled() bool {
	return s.enabled.Load()
}

// ViewSlowThreshold is the elapsed time above which a view-level call is
// logged as slow.
func (s *Settings) ViewSlowThreshold() time.Duration {
	return s.viewSlow
}

// UpstreamSlowThreshold is the elapsed time above which an upstream call is
// logged as slow.
func (s *Settings) UpstreamSlowThreshold() time.Duration {
	return s.upstreamSlow
}

// parseFlag interprets an environment boolean. Values outside the allow-list
// fall back to strconv.ParseBool and default to disabled when unparseable.
func parseFlag(val string) bool {
	switch val {
	case "", "0", "false", "no":
		return false
	case "1", "true", "yes", "on":
		return true
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false
	}
	return b
}
