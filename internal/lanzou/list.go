package lanzou

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/avast/retry-go"
)

// Pagination retry policy: a partial listing must never be shown as
// complete, so a transient network failure on a page is retried in place.
// Retries are bounded; after listRetryAttempts the ErrNetwork surfaces.
const (
	listRetryAttempts = 5
	listRetryDelay    = 300 * time.Millisecond
)

func retryNetwork(op func() error) error {
	return retry.Do(op,
		retry.Attempts(listRetryAttempts),
		retry.Delay(listRetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool { return errors.Is(err, ErrNetwork) }),
	)
}

// ListFiles returns every file in the folder, walking all pages. The server
// signals "more remains" by returning a full page with zt==1; a zt==2 page
// or an empty page terminates the walk.
func (c *Client) ListFiles(ctx context.Context, folderID int64) ([]File, error) {
	if err := c.requireLogin(); err != nil {
		return nil, err
	}

	var out []File
	for pg := 1; ; pg++ {
		var resp *baseResp
		err := retryNetwork(func() error {
			var e error
			resp, e = c.doTask(ctx, taskListFiles, map[string]string{
				"folder_id": strconv.FormatInt(folderID, 10),
				"pg":        strconv.Itoa(pg),
			})
			return e
		})
		if err != nil {
			return nil, err
		}

		switch resp.Zt {
		case 1:
			// page with content
		case 2:
			// terminal "no more" marker
			return out, nil
		default:
			return nil, fmt.Errorf("%w: file listing zt=%d", ErrFailed, int(resp.Zt))
		}

		var page []fileDTO
		if !emptyRaw(resp.Text) {
			if err := json.Unmarshal(resp.Text, &page); err != nil {
				return nil, fmt.Errorf("%w: file listing page %d: %v", ErrFailed, pg, err)
			}
		}
		if len(page) == 0 {
			return out, nil
		}
		for _, d := range page {
			out = append(out, d.toFile())
		}
		if len(page) < filePageSize {
			return out, nil
		}
	}
}

// ListFolders returns the subfolders of folderID together with the
// breadcrumb path from the root. The root sentinel segment (id -1) is
// always first.
func (c *Client) ListFolders(ctx context.Context, folderID int64) ([]Folder, []PathSegment, error) {
	if err := c.requireLogin(); err != nil {
		return nil, nil, err
	}

	var resp *baseResp
	err := retryNetwork(func() error {
		var e error
		resp, e = c.doTask(ctx, taskListDirs, map[string]string{
			"folder_id": strconv.FormatInt(folderID, 10),
		})
		return e
	})
	if err != nil {
		return nil, nil, err
	}
	if resp.Zt != 1 {
		return nil, nil, fmt.Errorf("%w: folder listing zt=%d", ErrFailed, int(resp.Zt))
	}

	var dtos []folderDTO
	if !emptyRaw(resp.Text) {
		if err := json.Unmarshal(resp.Text, &dtos); err != nil {
			return nil, nil, fmt.Errorf("%w: folder listing: %v", ErrFailed, err)
		}
	}
	folders := make([]Folder, 0, len(dtos))
	for _, d := range dtos {
		folders = append(folders, d.toFolder())
	}

	path := []PathSegment{{Name: RootName, ID: RootID, Pos: 0}}
	if !emptyRaw(resp.Info) {
		var segs []pathDTO
		if err := json.Unmarshal(resp.Info, &segs); err != nil {
			return nil, nil, fmt.Errorf("%w: folder path: %v", ErrFailed, err)
		}
		for i, s := range segs {
			path = append(path, PathSegment{
				Name:        s.Name,
				ID:          int64(s.ID),
				Description: s.Des,
				Pos:         i + 1,
			})
		}
	}

	return folders, path, nil
}

// allFolders returns a flat view of every folder in the account, used to
// disambiguate folder names globally before creation.
func (c *Client) allFolders(ctx context.Context) ([]Folder, error) {
	resp, err := c.doTask(ctx, taskAllDirs, nil)
	if err != nil {
		return nil, err
	}
	if resp.Zt != 1 {
		return nil, fmt.Errorf("%w: folder index zt=%d", ErrFailed, int(resp.Zt))
	}
	var dtos []folderDTO
	if !emptyRaw(resp.Text) {
		if err := json.Unmarshal(resp.Text, &dtos); err != nil {
			return nil, fmt.Errorf("%w: folder index: %v", ErrFailed, err)
		}
	}
	out := make([]Folder, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.toFolder())
	}
	return out, nil
}
