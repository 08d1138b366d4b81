// Package config loads runtime settings for the lanpan CLI.
//
// Sources are applied in order, later ones winning:
// defaults -> JSON file -> .env / environment -> command-line flags.
package config

import "time"

// Config holds every knob the transfer core consumes as opaque settings.
//
// Units: Timeout is a time.Duration; ChunkCap is in bytes.
type Config struct {
	// DownloadDir is where finished downloads land.
	DownloadDir string
	// Workers bounds the number of concurrently running transfer jobs.
	Workers int
	// Timeout applies per HTTP request, not per job.
	Timeout time.Duration
	// ChunkCap is the single-file size cap enforced by the remote service;
	// files above it are split before upload.
	ChunkCap int64
	// Cookie is an optional pre-obtained cookie string for cookie login,
	// e.g. "ylogin=123; phpdisk_info=abc".
	Cookie string
	// AutoPassword, if set, is applied to every uploaded file/folder.
	AutoPassword string
	// AutoDescription, if set, is applied to every uploaded file/folder.
	AutoDescription string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DownloadDir = "."
	c.Workers = 3
	c.Timeout = 15 * time.Second
	c.ChunkCap = 100 << 20
}

// Load constructs a Config, applies defaults, then overlays values from
// JSON (if a file is configured), the environment (.env honored) and
// command-line flags. Later sources take precedence over earlier ones.
func Load() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJSON(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
