package lanzou

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"lanpan/internal/chunk"
)

// ProgressFunc receives transfer progress: bytes done so far and the total
// when known (0 otherwise). Called from the transfer goroutine; keep it
// cheap; typically it just stores counters a sampler reads later.
type ProgressFunc func(transferred, total int64)

const copyBufSize = 64 << 10

// localName reduces a remote-supplied display name to a bare file name.
// Share pages are not trusted input: a name carrying path separators or dot
// segments must never reach a filepath.Join.
func localName(remote string) (string, error) {
	name := filepath.Base(chunk.TrueName(remote))
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: unusable remote file name %q", ErrFailed, remote)
	}
	return name, nil
}

// DownloadFile downloads a file share into destDir and returns the final
// local path. A pre-existing partial file is resumed with a Range request
// from its current size. Cancellation is cooperative: the copy loop checks
// ctx at buffer boundaries, flushes, and leaves the partial file in place
// so a later attempt resumes instead of restarting.
func (c *Client) DownloadFile(ctx context.Context, shareURL, password, destDir string, progress ProgressFunc) (string, error) {
	detail, err := c.GetFileInfoByURL(ctx, shareURL, password)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrPath, err)
	}
	name, err := localName(detail.Name)
	if err != nil {
		return "", err
	}
	path := filepath.Join(destDir, name)

	var offset int64
	if st, err := os.Stat(path); err == nil {
		offset = st.Size()
	}

	rc, start, total, err := c.session.OpenStream(ctx, detail.URL, offset)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPath, err)
	}
	defer out.Close()

	// The server may have ignored the Range request; write where the
	// stream actually starts.
	if err := out.Truncate(start); err != nil {
		return "", fmt.Errorf("%w: %v", ErrPath, err)
	}
	if _, err := out.Seek(start, io.SeekStart); err != nil {
		return "", fmt.Errorf("%w: %v", ErrPath, err)
	}

	written := start
	buf := make([]byte, copyBufSize)
	for {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("download cancelled: %w", err)
		}
		n, rerr := rc.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				return "", fmt.Errorf("%w: %v", ErrPath, werr)
			}
			written += int64(n)
			if progress != nil {
				progress(written, total)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return "", netFail(rerr)
		}
	}

	if total > 0 && written != total {
		return "", fmt.Errorf("%w: got %d of %d bytes", ErrNetwork, written, total)
	}
	c.log.Info(ctx, "download complete", "name", name, "bytes", written)
	return path, nil
}

// DownloadChunkedFolder downloads every file of a folder share into a
// scratch directory and reassembles them into the original file in destDir.
// The folder is expected to hold one chunk sequence produced by the upload
// side; reassembly fails closed when any chunk is missing.
func (c *Client) DownloadChunkedFolder(ctx context.Context, folderURL, password, destDir string, progress ProgressFunc) (string, error) {
	detail, err := c.GetFolderInfoByURL(ctx, folderURL, password)
	if err != nil {
		return "", err
	}
	if len(detail.Files) == 0 {
		return "", fmt.Errorf("%w: folder share is empty", ErrItemGone)
	}

	var total int64
	for _, f := range detail.Files {
		total += parseDisplaySize(f.Size)
	}

	scratch, err := os.MkdirTemp("", "lanpan-parts-*")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPath, err)
	}
	defer os.RemoveAll(scratch)

	var done int64
	paths := make([]string, 0, len(detail.Files))
	for _, f := range detail.Files {
		base := done
		p, err := c.DownloadFile(ctx, f.URL, "", scratch, func(n, _ int64) {
			if progress != nil {
				progress(base+n, total)
			}
		})
		if err != nil {
			return "", fmt.Errorf("chunk %s: %w", f.Name, err)
		}
		if st, err := os.Stat(p); err == nil {
			done += st.Size()
		}
		paths = append(paths, p)
	}

	out, err := chunk.Reassemble(destDir, paths)
	if err != nil {
		return "", err
	}
	c.log.Info(ctx, "reassembled", "name", filepath.Base(out), "parts", len(paths))
	return out, nil
}
