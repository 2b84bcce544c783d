package pulse

import "time"

// Config tunes the pipeline. Zero values select production defaults.
type Config struct {
	// RefreshInterval is the cadence of the scheduled refresh batch.
	RefreshInterval time.Duration
	// WatchdogInterval is the cadence of the probe batch.
	WatchdogInterval time.Duration
	// AdapterTimeout bounds one adapter invocation, fallbacks included.
	AdapterTimeout time.Duration
	// ProbeTimeout bounds one watchdog probe check.
	ProbeTimeout time.Duration
	// CatalogPath optionally points at a YAML catalog overriding the
	// built-in dataset definitions.
	CatalogPath string
	// GitHubToken raises the rate limit for commit probes. Optional.
	GitHubToken string
}

func (c *Config) withDefaults() *Config {
	if c == nil {
		return &Config{}
	}
	out := *c
	return &out
}
