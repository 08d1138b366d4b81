package lanzou

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// shareHost wires up the full file-share resolution chain in front of a
// binary payload served with Range support.
func shareHost(t *testing.T, payload []byte) *Client {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/iabc123":
			fmt.Fprint(w, publicSharePage)
		case "/fn":
			fmt.Fprint(w, iframePage)
		case "/ajaxm.php":
			fmt.Fprintf(w, `{"zt":1,"dom":"http://%s","url":"xyz987","inf":""}`, r.Host)
		case "/file/xyz987":
			w.Header().Set("Location", "http://"+r.Host+"/bin/archive.zip")
			w.WriteHeader(http.StatusFound)
		case "/bin/archive.zip":
			http.ServeContent(w, r, "archive.zip", time.Now(), bytes.NewReader(payload))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})
	return c
}

func TestDownloadFile(t *testing.T) {
	payload := bytes.Repeat([]byte("0123456789abcdef"), 4096)
	c := shareHost(t, payload)

	dest := t.TempDir()
	var lastDone, lastTotal int64
	path, err := c.DownloadFile(context.Background(), c.base+"/iabc123", "", dest,
		func(done, total int64) { lastDone, lastTotal = done, total })
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dest, "archive.zip"), path)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	assert.Equal(t, int64(len(payload)), lastDone)
	assert.Equal(t, int64(len(payload)), lastTotal)
}

func TestDownloadFileResumesPartial(t *testing.T) {
	payload := bytes.Repeat([]byte("0123456789abcdef"), 4096)
	c := shareHost(t, payload)

	dest := t.TempDir()
	// a previous interrupted attempt left the first 10000 bytes behind
	partial := filepath.Join(dest, "archive.zip")
	require.NoError(t, os.WriteFile(partial, payload[:10000], 0o644))

	var firstDone int64 = -1
	path, err := c.DownloadFile(context.Background(), c.base+"/iabc123", "", dest,
		func(done, _ int64) {
			if firstDone < 0 {
				firstDone = done
			}
		})
	require.NoError(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	// progress started past the resume point, not from zero
	assert.Greater(t, firstDone, int64(10000))
}

func TestDownloadFileStripsPathFromRemoteName(t *testing.T) {
	payload := []byte("payload-bytes")
	hostilePage := `
<title>../../evil.zip - 蓝奏云</title>
<div class="n_box_3fn">../../evil.zip</div>
<iframe class="ifr2" src="/fn?AbCdEf123" frameborder="0"></iframe>`
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ihostile":
			fmt.Fprint(w, hostilePage)
		case "/fn":
			fmt.Fprint(w, iframePage)
		case "/ajaxm.php":
			fmt.Fprintf(w, `{"zt":1,"dom":"http://%s","url":"xyz987","inf":""}`, r.Host)
		case "/file/xyz987":
			w.Header().Set("Location", "http://"+r.Host+"/bin/evil.zip")
			w.WriteHeader(http.StatusFound)
		case "/bin/evil.zip":
			http.ServeContent(w, r, "evil.zip", time.Now(), bytes.NewReader(payload))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	parent := t.TempDir()
	dest := filepath.Join(parent, "downloads")
	require.NoError(t, os.Mkdir(dest, 0o755))

	path, err := c.DownloadFile(context.Background(), c.base+"/ihostile", "", dest, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dest, "evil.zip"), path)

	_, serr := os.Stat(filepath.Join(parent, "evil.zip"))
	assert.True(t, os.IsNotExist(serr), "remote name must not climb out of the destination")
}

func TestDownloadFileAlreadyComplete(t *testing.T) {
	payload := bytes.Repeat([]byte("0123456789abcdef"), 512)
	c := shareHost(t, payload)

	dest := t.TempDir()
	full := filepath.Join(dest, "archive.zip")
	require.NoError(t, os.WriteFile(full, payload, 0o644))

	// the resume request asks for bytes=<size>-, answered with 416
	path, err := c.DownloadFile(context.Background(), c.base+"/iabc123", "", dest, nil)
	require.NoError(t, err)
	assert.Equal(t, full, path)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestDownloadFileNoContentLength(t *testing.T) {
	payload := bytes.Repeat([]byte("z"), 32<<10)
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/iabc123":
			fmt.Fprint(w, publicSharePage)
		case "/fn":
			fmt.Fprint(w, iframePage)
		case "/ajaxm.php":
			fmt.Fprintf(w, `{"zt":1,"dom":"http://%s","url":"xyz987","inf":""}`, r.Host)
		case "/file/xyz987":
			w.Header().Set("Location", "http://"+r.Host+"/bin/archive.zip")
			w.WriteHeader(http.StatusFound)
		case "/bin/archive.zip":
			// flushing the header first forces a chunked body, no Content-Length
			w.WriteHeader(http.StatusOK)
			w.(http.Flusher).Flush()
			w.Write(payload)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	dest := t.TempDir()
	var lastTotal int64 = -1
	path, err := c.DownloadFile(context.Background(), c.base+"/iabc123", "", dest,
		func(_, total int64) { lastTotal = total })
	require.NoError(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	// unknown entity size reports as 0, never a bogus negative total
	assert.Equal(t, int64(0), lastTotal)
}

func TestDownloadFileCancelKeepsPartial(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 1<<20)
	c := shareHost(t, payload)

	dest := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	_, err := c.DownloadFile(ctx, c.base+"/iabc123", "", dest, func(done, _ int64) {
		if done > 0 {
			cancel()
		}
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	// the partial file survives for a later resume
	st, serr := os.Stat(filepath.Join(dest, "archive.zip"))
	require.NoError(t, serr)
	assert.Less(t, st.Size(), int64(len(payload)))
}
