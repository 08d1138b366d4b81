// Package cli implements the lanpan command tree. Commands are thin: they
// parse arguments, call the cloud client or the task manager, and print.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"lanpan/internal/config"
	"lanpan/internal/lanzou"
	"lanpan/internal/logging"
)

// App carries the shared state every command needs. Built once in Execute,
// threaded through command closures.
type App struct {
	cfg    *config.Config
	log    logging.Logger
	client *lanzou.Client
}

func Execute() int {
	cfg := config.Load()

	app := &App{cfg: cfg}

	var verbose bool
	var timeoutSec int

	root := &cobra.Command{
		Use:           "lanpan",
		Short:         "client for the woozooo cloud drive",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if timeoutSec > 0 {
				cfg.Timeout = time.Duration(timeoutSec) * time.Second
			}
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			app.log = logging.NewText(os.Stderr, level)
			app.client = lanzou.NewClient(cfg.Timeout, app.log, lanzou.WithOptions(lanzou.Options{
				ChunkCap:        cfg.ChunkCap,
				AutoPassword:    cfg.AutoPassword,
				AutoDescription: cfg.AutoDescription,
			}))
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&cfg.DownloadDir, "dir", "d", cfg.DownloadDir, "download directory")
	pf.IntVarP(&cfg.Workers, "workers", "w", cfg.Workers, "max concurrent transfer jobs")
	pf.IntVarP(&timeoutSec, "timeout", "t", int(cfg.Timeout.Seconds()), "request timeout in seconds")
	pf.StringP("config", "c", "", "path to JSON config file")
	pf.BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newLoginCmd(app),
		newLsCmd(app),
		newMkdirCmd(app),
		newRenameCmd(app),
		newMoveCmd(app),
		newRmCmd(app),
		newDescCmd(app),
		newPasswdCmd(app),
		newShareCmd(app),
		newResolveCmd(app),
		newDownloadCmd(app),
		newUploadCmd(app),
		newBinCmd(app),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

// authenticate performs cookie login with the configured cookie. Commands
// that talk to the authenticated API call this first.
func (a *App) authenticate(ctx context.Context) error {
	if a.cfg.Cookie == "" {
		return fmt.Errorf("no cookie configured; run `lanpan login` and export LANPAN_COOKIE")
	}
	return a.client.LoginByCookie(ctx, a.cfg.Cookie)
}
