package scheduler

import "time"

// Config controls the sweep cadence and windows.
type Config struct {
	RunInterval  time.Duration
	AbandonAfter time.Duration
	RunTimeout   time.Duration
}

func DefaultConfig() Config {
	return Config{
		RunInterval:  5 * time.Minute,
		AbandonAfter: time.Hour,
		RunTimeout:   30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.AbandonAfter <= 0 {
		c.AbandonAfter = defaults.AbandonAfter
	}
	if c.RunTimeout <= 0 {
		c.RunTimeout = defaults.RunTimeout
	}
	return c
}
