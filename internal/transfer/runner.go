// Package transfer binds the cloud client to the task scheduler: it turns
// a queued job into the matching client call and feeds progress back into
// the job record.
package transfer

import (
	"context"
	"fmt"

	"lanpan/internal/lanzou"
	"lanpan/internal/task"
)

// Client is the slice of the cloud client the runner needs.
type Client interface {
	DownloadFile(ctx context.Context, shareURL, password, destDir string, progress lanzou.ProgressFunc) (string, error)
	DownloadChunkedFolder(ctx context.Context, folderURL, password, destDir string, progress lanzou.ProgressFunc) (string, error)
	UploadFile(ctx context.Context, localPath string, folderID int64, progress lanzou.ProgressFunc) (*lanzou.UploadResult, error)
}

type Runner struct {
	client Client
	// downloadDir is the fallback destination when a job names none.
	downloadDir string
}

func NewRunner(client Client, downloadDir string) *Runner {
	return &Runner{client: client, downloadDir: downloadDir}
}

// Run executes one job. Progress callbacks write straight into the job's
// counters; the scheduler's sampler turns those into rate and display
// updates on its own clock.
func (r *Runner) Run(ctx context.Context, j *task.Job) error {
	progress := func(transferred, total int64) {
		j.SetProgress(transferred, total)
	}

	switch j.Kind {
	case task.KindDownload:
		dest := j.LocalPath
		if dest == "" {
			dest = r.downloadDir
		}
		if j.IsFolder {
			_, err := r.client.DownloadChunkedFolder(ctx, j.Locator, j.Password, dest, progress)
			return err
		}
		_, err := r.client.DownloadFile(ctx, j.Locator, j.Password, dest, progress)
		return err

	case task.KindUpload:
		res, err := r.client.UploadFile(ctx, j.Locator, j.FolderID, progress)
		if err != nil {
			return err
		}
		if res.Chunked {
			j.SetItems(res.Parts, res.Parts)
		}
		return nil

	default:
		return fmt.Errorf("unknown job kind %d", j.Kind)
	}
}
