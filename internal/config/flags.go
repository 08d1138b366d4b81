package config

import (
	"flag"
	"os"
	"time"

	"lanpan/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   download directory
//	-w int      worker-pool size
//	-t int      per-request timeout in seconds
//
// The function filters os.Args to only the flags it owns, via
// flagx.FilterArgs, so cobra's own parsing is left undisturbed.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-w", "-t"})

	fs := flag.NewFlagSet("config", flag.ContinueOnError)

	fs.StringVar(&cfg.DownloadDir, "d", cfg.DownloadDir, "download directory")
	workers := fs.Int("w", cfg.Workers, "max concurrent transfer jobs")
	timeout := fs.Int("t", int(cfg.Timeout.Seconds()), "request timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	if *workers > 0 {
		cfg.Workers = *workers
	}
	if *timeout > 0 {
		cfg.Timeout = time.Duration(*timeout) * time.Second
	}
}
