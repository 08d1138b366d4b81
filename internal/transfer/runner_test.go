package transfer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lanpan/internal/lanzou"
	"lanpan/internal/task"
)

type fakeClient struct {
	gotKind    string
	gotLocator string
	gotPwd     string
	gotDest    string
	gotFolder  int64
	uploadRes  *lanzou.UploadResult
	err        error
}

func (f *fakeClient) DownloadFile(ctx context.Context, shareURL, password, destDir string, progress lanzou.ProgressFunc) (string, error) {
	f.gotKind, f.gotLocator, f.gotPwd, f.gotDest = "file", shareURL, password, destDir
	if progress != nil {
		progress(50, 100)
	}
	return destDir + "/out.bin", f.err
}

func (f *fakeClient) DownloadChunkedFolder(ctx context.Context, folderURL, password, destDir string, progress lanzou.ProgressFunc) (string, error) {
	f.gotKind, f.gotLocator, f.gotPwd, f.gotDest = "folder", folderURL, password, destDir
	return destDir + "/out.bin", f.err
}

func (f *fakeClient) UploadFile(ctx context.Context, localPath string, folderID int64, progress lanzou.ProgressFunc) (*lanzou.UploadResult, error) {
	f.gotKind, f.gotLocator, f.gotFolder = "upload", localPath, folderID
	return f.uploadRes, f.err
}

func TestRunnerDownloadFile(t *testing.T) {
	fc := &fakeClient{}
	r := NewRunner(fc, "/downloads")

	j := task.New(task.KindDownload, "https://x/ifile")
	j.Password = "pw"

	require.NoError(t, r.Run(context.Background(), j))
	assert.Equal(t, "file", fc.gotKind)
	assert.Equal(t, "pw", fc.gotPwd)
	assert.Equal(t, "/downloads", fc.gotDest, "falls back to the configured dir")

	v := j.Snapshot()
	assert.Equal(t, int64(50), v.Transferred)
	assert.Equal(t, int64(100), v.Total)
}

func TestRunnerDownloadFolder(t *testing.T) {
	fc := &fakeClient{}
	r := NewRunner(fc, "/downloads")

	j := task.New(task.KindDownload, "https://x/bfolder")
	j.IsFolder = true
	j.LocalPath = "/elsewhere"

	require.NoError(t, r.Run(context.Background(), j))
	assert.Equal(t, "folder", fc.gotKind)
	assert.Equal(t, "/elsewhere", fc.gotDest, "explicit destination wins")
}

func TestRunnerUpload(t *testing.T) {
	fc := &fakeClient{uploadRes: &lanzou.UploadResult{Name: "big.bin", Chunked: true, Parts: 4}}
	r := NewRunner(fc, "")

	j := task.New(task.KindUpload, "/tmp/big.bin")
	j.FolderID = 77

	require.NoError(t, r.Run(context.Background(), j))
	assert.Equal(t, "upload", fc.gotKind)
	assert.Equal(t, int64(77), fc.gotFolder)

	v := j.Snapshot()
	assert.Equal(t, 4, v.TotalItems)
	assert.Equal(t, 4, v.DoneItems)
}

func TestRunnerPropagatesError(t *testing.T) {
	want := errors.New("share gone")
	fc := &fakeClient{err: want}
	r := NewRunner(fc, "/downloads")

	err := r.Run(context.Background(), task.New(task.KindDownload, "u"))
	assert.ErrorIs(t, err, want)
}
