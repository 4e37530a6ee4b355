package config

import (
	"fmt"
	"hash/fnv"
	"time"

	"schedstore/internal/docstore"
	"schedstore/pkg/jobstore"
	"schedstore/pkg/logx"
)

type Config struct {
	Store   StoreConfig   `json:"store"`
	Logging LoggingConfig `json:"logging,omitempty"`
	Monitor MonitorConfig `json:"monitor,omitempty"`
}

// StoreConfig tunes the document store and the misfire policy.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type StoreConfig struct {
	// Path is the SQLite database file.
	Path string `json:"path"`

	// BusyTimeout bounds waits on a locked database. Default "5s".
	BusyTimeout string `json:"busy_timeout,omitempty"`

	// MisfireThreshold is how far a trigger may slip past its fire time
	// before misfire correction applies. Default "60s".
	MisfireThreshold string `json:"misfire_threshold,omitempty"`
}

type LoggingConfig struct {
	Level string `json:"level,omitempty"`

	// Console is a pointer so "omitted" (default true) is distinguishable
	// from an explicit false.
	Console *bool         `json:"console,omitempty"`
	File    FileLogConfig `json:"file,omitempty"`
}

type FileLogConfig struct {
	Enabled bool   `json:"enabled,omitempty"`
	Path    string `json:"path,omitempty"`
}

// MonitorConfig drives the CLI's polling view of upcoming triggers.
type MonitorConfig struct {
	// Interval between polls. Default "5s".
	Interval string `json:"interval,omitempty"`

	// Horizon is how far ahead to look for due triggers. Default "1m".
	Horizon string `json:"horizon,omitempty"`

	// MaxTriggers caps one poll's result. Default 20.
	MaxTriggers int `json:"max_triggers,omitempty"`
}

// StoreSettings is the validated, defaulted form of StoreConfig.
type StoreSettings struct {
	Docstore         docstore.Config
	MisfireThreshold time.Duration
}

func (c *Config) StoreSettings() (StoreSettings, error) {
	if c.Store.Path == "" {
		return StoreSettings{}, fmt.Errorf("store.path is required")
	}
	busy, err := ParseDurationOrDefault("store.busy_timeout", c.Store.BusyTimeout, 5*time.Second)
	if err != nil {
		return StoreSettings{}, err
	}
	misfire, err := ParseDurationOrDefault("store.misfire_threshold", c.Store.MisfireThreshold, jobstore.DefaultMisfireThreshold)
	if err != nil {
		return StoreSettings{}, err
	}
	return StoreSettings{
		Docstore:         docstore.Config{Path: c.Store.Path, BusyTimeout: busy},
		MisfireThreshold: misfire,
	}, nil
}

func (c *Config) LogxConfig() logx.Config {
	console := true
	if c.Logging.Console != nil {
		console = *c.Logging.Console
	}
	return logx.Config{
		Level:   c.Logging.Level,
		Console: console,
		File: logx.FileConfig{
			Enabled: c.Logging.File.Enabled,
			Path:    c.Logging.File.Path,
		},
	}
}

// MonitorSettings is the validated, defaulted form of MonitorConfig.
type MonitorSettings struct {
	Interval    time.Duration
	Horizon     time.Duration
	MaxTriggers int
}

func (c *Config) MonitorSettings() (MonitorSettings, error) {
	interval, err := ParseDurationOrDefault("monitor.interval", c.Monitor.Interval, 5*time.Second)
	if err != nil {
		return MonitorSettings{}, err
	}
	horizon, err := ParseDurationOrDefault("monitor.horizon", c.Monitor.Horizon, time.Minute)
	if err != nil {
		return MonitorSettings{}, err
	}
	max := c.Monitor.MaxTriggers
	if max <= 0 {
		max = 20
	}
	return MonitorSettings{Interval: interval, Horizon: horizon, MaxTriggers: max}, nil
}

func hashBytes(b []byte) uint64 {
	h := fnv.New64a()
	_, _ = h.Write(b)
	return h.Sum64()
}
