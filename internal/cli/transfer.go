package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"lanpan/internal/task"
	"lanpan/internal/transfer"
)

// runJobs feeds the jobs into a fresh manager and blocks until the queue
// drains. Progress is rewritten in place on stderr; the completion event
// reports failures through the exit error.
func (a *App) runJobs(jobs map[string]*task.Job) error {
	runner := transfer.NewRunner(a.client, a.cfg.DownloadDir)

	done := make(chan int, 1)
	mgr := task.NewManager(a.cfg.Workers, runner, a.log, task.Callbacks{
		OnProgress: func(line string, _ task.View) {
			fmt.Fprintf(os.Stderr, "\r\033[K%s", line)
		},
		OnAllDone: func(failed int) {
			done <- failed
		},
	})

	mgr.AddTasks(jobs)
	failed := <-done
	mgr.Wait()
	fmt.Fprintln(os.Stderr)

	for _, j := range mgr.Queue().Jobs() {
		v := j.Snapshot()
		if v.Status == task.StatusFailed {
			fmt.Fprintf(os.Stderr, "failed: %s: %v\n", v.Locator, v.Err)
		} else {
			fmt.Fprintf(os.Stderr, "%s: %s (%s)\n", v.Status, v.Locator, task.FormatBytes(v.Transferred))
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d transfers failed", failed, len(jobs))
	}
	return nil
}

func newDownloadCmd(app *App) *cobra.Command {
	var password string
	var folder bool
	cmd := &cobra.Command{
		Use:   "download <share-url>...",
		Short: "download one or more share links",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs := make(map[string]*task.Job, len(args))
			for _, u := range args {
				j := task.New(task.KindDownload, u)
				j.Password = password
				j.LocalPath = app.cfg.DownloadDir
				j.IsFolder = folder
				jobs[u] = j
			}
			return app.runJobs(jobs)
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "share password")
	cmd.Flags().BoolVar(&folder, "folder", false, "links are chunked-folder shares")
	return cmd
}

func newUploadCmd(app *App) *cobra.Command {
	var folderID int64
	cmd := &cobra.Command{
		Use:   "upload <file>...",
		Short: "upload one or more local files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.authenticate(cmd.Context()); err != nil {
				return err
			}
			jobs := make(map[string]*task.Job, len(args))
			for _, p := range args {
				abs, err := filepath.Abs(p)
				if err != nil {
					return err
				}
				j := task.New(task.KindUpload, abs)
				j.FolderID = folderID
				jobs[abs] = j
			}
			return app.runJobs(jobs)
		},
	}
	cmd.Flags().Int64VarP(&folderID, "folder-id", "f", -1, "destination folder id")
	return cmd
}
