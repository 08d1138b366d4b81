package lanzou

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fullPage renders a full page of file rows (the size that signals "more
// remains").
func fullPage(start int) string {
	rows := make([]string, 0, filePageSize)
	for i := 0; i < filePageSize; i++ {
		rows = append(rows, fmt.Sprintf(
			`{"id":"%d","name_all":"f%d.txt","size":"1.0 K","time":"昨天","downs":"0","onof":"0","is_des":"0","icon":"txt"}`,
			start+i, start+i))
	}
	return "[" + strings.Join(rows, ",") + "]"
}

func TestListFilesPaginates(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "5", r.PostFormValue("task"))
		assert.Equal(t, "-1", r.PostFormValue("folder_id"))
		switch r.PostFormValue("pg") {
		case "1":
			fmt.Fprintf(w, `{"zt":1,"info":"","text":%s}`, fullPage(0))
		case "2":
			fmt.Fprintf(w, `{"zt":1,"info":"","text":%s}`, fullPage(filePageSize))
		case "3":
			// short final page
			fmt.Fprint(w, `{"zt":1,"info":"","text":[{"id":"99","name_all":"last.bin","size":"5.0 M","time":"刚刚","downs":"3","onof":"1","is_des":"1","icon":"bin"}]}`)
		default:
			t.Errorf("unexpected page %q", r.PostFormValue("pg"))
		}
	})
	asLoggedIn(c)

	files, err := c.ListFiles(context.Background(), RootID)
	require.NoError(t, err)
	require.Len(t, files, 2*filePageSize+1)

	last := files[len(files)-1]
	assert.Equal(t, int64(99), last.ID)
	assert.Equal(t, "last.bin", last.Name)
	assert.True(t, last.HasPassword)
	assert.True(t, last.HasDescription)
	assert.Equal(t, 3, last.Downloads)
	assert.Equal(t, int64(5<<20), last.SizeBytes())
}

func TestListFilesTerminalMarker(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"zt":2,"info":"no more","text":""}`)
	})
	asLoggedIn(c)

	files, err := c.ListFiles(context.Background(), 42)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestListFilesRetriesNetworkFailure(t *testing.T) {
	calls := 0
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			// drop the connection mid-response
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, _ := hj.Hijack()
			conn.Close()
			return
		}
		fmt.Fprint(w, `{"zt":1,"info":"","text":[{"id":"1","name_all":"a.txt","size":"1 K","time":"","downs":"0","onof":"0","is_des":"0","icon":"txt"}]}`)
	})
	asLoggedIn(c)

	files, err := c.ListFiles(context.Background(), RootID)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, 3, calls)
}

func TestListFilesRetryGivesUp(t *testing.T) {
	calls := 0
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		hj := w.(http.Hijacker)
		conn, _, _ := hj.Hijack()
		conn.Close()
	})
	asLoggedIn(c)

	_, err := c.ListFiles(context.Background(), RootID)
	require.ErrorIs(t, err, ErrNetwork)
	assert.Equal(t, listRetryAttempts, calls)
}

func TestListFolders(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "47", r.PostFormValue("task"))
		fmt.Fprint(w, `{"zt":1,
			"info":[{"name":"docs","folderid":"10","folder_des":""},{"name":"work","folderid":"20","folder_des":"projects"}],
			"text":[{"fol_id":"30","name":"sub","onof":"1","folder_des":"[secret]"}]}`)
	})
	asLoggedIn(c)

	folders, path, err := c.ListFolders(context.Background(), 20)
	require.NoError(t, err)

	require.Len(t, folders, 1)
	assert.Equal(t, int64(30), folders[0].ID)
	assert.True(t, folders[0].HasPassword)
	assert.Equal(t, "secret", folders[0].Description)

	require.Len(t, path, 3)
	assert.Equal(t, PathSegment{Name: RootName, ID: RootID, Pos: 0}, path[0])
	assert.Equal(t, "docs", path[1].Name)
	assert.Equal(t, int64(20), path[2].ID)
	assert.Equal(t, 2, path[2].Pos)
}

func TestListFoldersRootHasSentinelOnly(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"zt":1,"info":"","text":""}`)
	})
	asLoggedIn(c)

	folders, path, err := c.ListFolders(context.Background(), RootID)
	require.NoError(t, err)
	assert.Empty(t, folders)
	require.Len(t, path, 1)
	assert.Equal(t, RootID, path[0].ID)
}
