// Package obsconfig holds runtime configuration for the interpreter
// pipeline, populated from the environment with mstoykov/envconfig the
// way grafana-k6's internal/cmd config loader does.
package obsconfig

import (
	"time"

	"github.com/mstoykov/envconfig"
)

// Config controls the parts of the pipeline that need tunables rather
// than hard-coded magic numbers: include-path roots for *LOAD, skeleton
// bank sizing, and the timing knobs named by spec §5.
type Config struct {
	// IncludePaths lists include-path roots for *LOAD "path" targets.
	// Nothing in this module reads it: *LOAD targets are resolved through
	// the obelib.Loader the caller passes to obelib.ResolveLoads.
	IncludePaths []string `envconfig:"OSCRIPT_INCLUDE_PATH"`

	// SkeletonBankSize is a size for the lazy skeleton cache (§2.11).
	// Nothing in this module reads it; skbank.New takes its capacity as
	// an argument.
	SkeletonBankSize int `envconfig:"OSCRIPT_SKBANK_SIZE" default:"256"`

	// CriticalSectionTimeout is a wait limit for the global skeleton
	// critical-section lock (§5). Nothing in this module reads it:
	// CriticalSection.Acquire waits until the lock is free or its
	// context is cancelled.
	CriticalSectionTimeout time.Duration `envconfig:"OSCRIPT_CRITSEC_TIMEOUT" default:"5m"`

	// AsyncPollInterval is the sleep between checks while an executor is
	// paused (§5). Async children are joined by their block's errgroup,
	// not polled.
	AsyncPollInterval time.Duration `envconfig:"OSCRIPT_ASYNC_POLL_INTERVAL" default:"100ms"`
}

// Default returns a Config with only the envconfig-declared defaults
// applied (no environment variables consulted).
func Default() Config {
	return Config{
		SkeletonBankSize:       256,
		CriticalSectionTimeout: 5 * time.Minute,
		AsyncPollInterval:      100 * time.Millisecond,
	}
}

// Load populates a Config from the environment, applying defaults for any
// variable that is unset.
func Load() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
