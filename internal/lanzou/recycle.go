package lanzou

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// The recycle bin has no AJAX endpoint; its state is scraped from the HTML
// view. Row markup carries a checkbox input whose value is the id, plus
// name/size/time cells.
var (
	recycleFileIDRe   = regexp.MustCompile(`name="fl_sel_ids\[\]"\s+value="(\d+)"`)
	recycleFolderIDRe = regexp.MustCompile(`name="fol_sel_ids\[\]"\s+value="(\d+)"`)
	recycleNameRe     = regexp.MustCompile(`class="filename"[^>]*>\s*([^<]+?)\s*</a>`)
	recycleSizeRe     = regexp.MustCompile(`class="filesize"[^>]*>\s*([^<]*?)\s*<`)
	recycleTimeRe     = regexp.MustCompile(`class="filetime"[^>]*>\s*([^<]*?)\s*<`)
)

// ListRecycle scrapes one snapshot of the recycle bin, fetching folder
// contents with a secondary request per folder.
//
// The web view truncates long names, so two distinct items can display the
// same text. To keep a stable name→id mapping, a deterministic "(n)" suffix
// is appended in first-seen order whenever a display name repeats.
func (c *Client) ListRecycle(ctx context.Context) (*RecycleBin, error) {
	if err := c.requireLogin(); err != nil {
		return nil, err
	}

	page, err := c.session.Get(ctx, c.diskURL(), map[string]string{
		"item": "recycle", "action": "files",
	})
	if err != nil {
		return nil, err
	}
	text := StripComments(string(page))

	bin := &RecycleBin{NameIndex: map[string]int64{}}

	for _, row := range strings.Split(text, "<tr") {
		if m := recycleFolderIDRe.FindStringSubmatch(row); m != nil {
			id, _ := strconv.ParseInt(m[1], 10, 64)
			folder := RecycleFolder{ID: id, Name: rowField(row, recycleNameRe)}
			folder.Name = claimName(bin.NameIndex, folder.Name, id)

			files, err := c.recycleFolderFiles(ctx, id)
			if err != nil {
				return nil, err
			}
			folder.Files = files
			bin.Folders = append(bin.Folders, folder)
			continue
		}
		if m := recycleFileIDRe.FindStringSubmatch(row); m != nil {
			id, _ := strconv.ParseInt(m[1], 10, 64)
			f := RecycleFile{
				ID:   id,
				Name: rowField(row, recycleNameRe),
				Size: rowField(row, recycleSizeRe),
				Time: rowField(row, recycleTimeRe),
			}
			f.Name = claimName(bin.NameIndex, f.Name, id)
			bin.Files = append(bin.Files, f)
		}
	}

	return bin, nil
}

func (c *Client) recycleFolderFiles(ctx context.Context, folderID int64) ([]RecycleFile, error) {
	page, err := c.session.Get(ctx, c.diskURL(), map[string]string{
		"item":      "recycle",
		"action":    "folder",
		"folder_id": strconv.FormatInt(folderID, 10),
	})
	if err != nil {
		return nil, err
	}
	var files []RecycleFile
	for _, row := range strings.Split(StripComments(string(page)), "<tr") {
		m := recycleFileIDRe.FindStringSubmatch(row)
		if m == nil {
			continue
		}
		id, _ := strconv.ParseInt(m[1], 10, 64)
		files = append(files, RecycleFile{
			ID:   id,
			Name: rowField(row, recycleNameRe),
			Size: rowField(row, recycleSizeRe),
			Time: rowField(row, recycleTimeRe),
		})
	}
	return files, nil
}

func rowField(row string, re *regexp.Regexp) string {
	if m := re.FindStringSubmatch(row); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// claimName registers name→id in idx, disambiguating repeats with "(2)",
// "(3)", ... in first-seen order. Returns the final name.
func claimName(idx map[string]int64, name string, id int64) string {
	final := name
	for n := 2; ; n++ {
		if _, taken := idx[final]; !taken {
			break
		}
		final = fmt.Sprintf("%s(%d)", name, n)
	}
	idx[final] = id
	return final
}

// recycleAction posts one recycle-bin mutation. The form token is scraped
// from the bin page right before the post.
func (c *Client) recycleAction(ctx context.Context, action string, extra map[string]string) error {
	if err := c.requireLogin(); err != nil {
		return err
	}
	page, err := c.session.Get(ctx, c.diskURL(), map[string]string{
		"item": "recycle", "action": "files",
	})
	if err != nil {
		return err
	}
	hash, err := ExtractFormHash(StripComments(string(page)))
	if err != nil {
		return fmt.Errorf("%w: recycle form token: %v", ErrFailed, err)
	}

	form := map[string]string{"action": action, "formhash": hash}
	for k, v := range extra {
		form[k] = v
	}
	body, err := c.session.PostForm(ctx, c.diskURL()+"?item=recycle", form)
	if err != nil {
		return err
	}
	if !strings.Contains(string(body), actionOKMarker) {
		return fmt.Errorf("%w: recycle action %q rejected", ErrFailed, action)
	}
	return nil
}

// RestoreFile restores a soft-deleted file to its original folder.
func (c *Client) RestoreFile(ctx context.Context, fileID int64) error {
	return c.recycleAction(ctx, "file_restore", map[string]string{
		"file_id": strconv.FormatInt(fileID, 10),
	})
}

// RestoreFolder restores a soft-deleted folder and its contents.
func (c *Client) RestoreFolder(ctx context.Context, folderID int64) error {
	return c.recycleAction(ctx, "folder_restore", map[string]string{
		"folder_id": strconv.FormatInt(folderID, 10),
	})
}

// PurgeFile permanently deletes a file from the bin.
func (c *Client) PurgeFile(ctx context.Context, fileID int64) error {
	return c.recycleAction(ctx, "file_delete_complete", map[string]string{
		"file_id": strconv.FormatInt(fileID, 10),
	})
}

// PurgeFolder permanently deletes a folder from the bin.
func (c *Client) PurgeFolder(ctx context.Context, folderID int64) error {
	return c.recycleAction(ctx, "folder_delete_complete", map[string]string{
		"folder_id": strconv.FormatInt(folderID, 10),
	})
}

// PurgeAll empties the recycle bin.
func (c *Client) PurgeAll(ctx context.Context) error {
	return c.recycleAction(ctx, "delete_all", nil)
}

// RestoreAll restores everything in the recycle bin.
func (c *Client) RestoreAll(ctx context.Context) error {
	return c.recycleAction(ctx, "restore_all", nil)
}
