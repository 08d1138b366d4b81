package lanzou

import (
	"context"
	"fmt"
	"strconv"
)

// Mkdir creates a folder under parentID and returns its id and final name.
//
// Create is idempotent: when a sibling with the same name already exists its
// id is returned unchanged. When the name collides with a folder anywhere
// else in the tree, a numbered suffix is appended and creation retried;
// the remote's move/rename behavior is inconsistent when two folders share a
// name, even in different parents.
func (c *Client) Mkdir(ctx context.Context, parentID int64, name, description string) (int64, string, error) {
	if err := c.requireLogin(); err != nil {
		return 0, "", err
	}

	siblings, _, err := c.ListFolders(ctx, parentID)
	if err != nil {
		return 0, "", err
	}
	for _, f := range siblings {
		if f.Name == name {
			return f.ID, f.Name, nil
		}
	}

	all, err := c.allFolders(ctx)
	if err != nil {
		return 0, "", err
	}
	taken := make(map[string]struct{}, len(all))
	for _, f := range all {
		taken[f.Name] = struct{}{}
	}
	final := name
	for n := 2; ; n++ {
		if _, ok := taken[final]; !ok {
			break
		}
		final = fmt.Sprintf("%s(%d)", name, n)
	}

	resp, err := c.doTask(ctx, taskMkdir, map[string]string{
		"parent_id":          strconv.FormatInt(parentID, 10),
		"folder_name":        final,
		"folder_description": description,
	})
	if err != nil {
		return 0, "", err
	}
	if resp.Zt != 1 {
		return 0, "", fmt.Errorf("%w: zt=%d", ErrMkdir, int(resp.Zt))
	}
	id, err := resp.textInt64()
	if err != nil {
		return 0, "", fmt.Errorf("%w: folder id: %v", ErrMkdir, err)
	}
	c.log.Info(ctx, "folder created", "id", id, "name", final)
	return id, final, nil
}

// RenameFile renames a file. The service keeps the extension fixed: newName
// must carry the same extension or the call is rejected remotely.
func (c *Client) RenameFile(ctx context.Context, fileID int64, newName string) error {
	if err := c.requireLogin(); err != nil {
		return err
	}
	resp, err := c.doTask(ctx, taskRenameFile, map[string]string{
		"file_id":   strconv.FormatInt(fileID, 10),
		"file_name": newName,
		"type":      "2",
	})
	if err != nil {
		return err
	}
	return ztToErr(resp.Zt)
}

// SetFolderInfo renames a folder and/or updates its description in one call.
func (c *Client) SetFolderInfo(ctx context.Context, folderID int64, name, description string) error {
	if err := c.requireLogin(); err != nil {
		return err
	}
	resp, err := c.doTask(ctx, taskFolderInfo, map[string]string{
		"folder_id":          strconv.FormatInt(folderID, 10),
		"folder_name":        name,
		"folder_description": description,
	})
	if err != nil {
		return err
	}
	return ztToErr(resp.Zt)
}

// SetFileDescription sets or clears a file's description.
func (c *Client) SetFileDescription(ctx context.Context, fileID int64, description string) error {
	if err := c.requireLogin(); err != nil {
		return err
	}
	resp, err := c.doTask(ctx, taskSetFileDesc, map[string]string{
		"file_id": strconv.FormatInt(fileID, 10),
		"desc":    description,
	})
	if err != nil {
		return err
	}
	return ztToErr(resp.Zt)
}

// SetFilePassword sets the share password of a file; empty password
// disables protection.
func (c *Client) SetFilePassword(ctx context.Context, fileID int64, password string) error {
	if err := c.requireLogin(); err != nil {
		return err
	}
	resp, err := c.doTask(ctx, taskFilePasswd, passwordForm("file_id", fileID, password))
	if err != nil {
		return err
	}
	return ztToErr(resp.Zt)
}

// SetFolderPassword sets the share password of a folder; empty password
// disables protection.
func (c *Client) SetFolderPassword(ctx context.Context, folderID int64, password string) error {
	if err := c.requireLogin(); err != nil {
		return err
	}
	resp, err := c.doTask(ctx, taskDirPasswd, passwordForm("folder_id", folderID, password))
	if err != nil {
		return err
	}
	return ztToErr(resp.Zt)
}

func passwordForm(idField string, id int64, password string) map[string]string {
	shows := "0"
	if password != "" {
		shows = "1"
	}
	return map[string]string{
		idField:     strconv.FormatInt(id, 10),
		"shows":     shows,
		"shownames": password,
	}
}

// MoveFile moves one file into another folder.
func (c *Client) MoveFile(ctx context.Context, fileID, folderID int64) error {
	if err := c.requireLogin(); err != nil {
		return err
	}
	resp, err := c.doTask(ctx, taskMoveFile, map[string]string{
		"file_id":   strconv.FormatInt(fileID, 10),
		"folder_id": strconv.FormatInt(folderID, 10),
	})
	if err != nil {
		return err
	}
	return ztToErr(resp.Zt)
}

// DeleteFile soft-deletes a file into the recycle bin.
func (c *Client) DeleteFile(ctx context.Context, fileID int64) error {
	if err := c.requireLogin(); err != nil {
		return err
	}
	resp, err := c.doTask(ctx, taskDeleteFile, map[string]string{
		"file_id": strconv.FormatInt(fileID, 10),
	})
	if err != nil {
		return err
	}
	return ztToErr(resp.Zt)
}

// DeleteFolder soft-deletes a folder into the recycle bin.
func (c *Client) DeleteFolder(ctx context.Context, folderID int64) error {
	if err := c.requireLogin(); err != nil {
		return err
	}
	resp, err := c.doTask(ctx, taskDeleteDir, map[string]string{
		"folder_id": strconv.FormatInt(folderID, 10),
	})
	if err != nil {
		return err
	}
	return ztToErr(resp.Zt)
}

func ztToErr(zt intString) error {
	if zt == 1 {
		return nil
	}
	return fmt.Errorf("%w: zt=%d", ErrFailed, int(zt))
}

type fileShareDTO struct {
	FileID string    `json:"f_id"`
	Domain string    `json:"is_newd"`
	Pwd    string    `json:"pwd"`
	Onof   intString `json:"onof"`
}

// GetFileShareInfo returns the outward-facing share record of a file.
func (c *Client) GetFileShareInfo(ctx context.Context, fileID int64) (*ShareInfo, error) {
	if err := c.requireLogin(); err != nil {
		return nil, err
	}
	resp, err := c.doTask(ctx, taskFileShare, map[string]string{
		"file_id": strconv.FormatInt(fileID, 10),
	})
	if err != nil {
		return nil, err
	}
	if resp.Zt != 1 {
		return nil, fmt.Errorf("%w: zt=%d", ErrIDInvalid, int(resp.Zt))
	}
	var info fileShareDTO
	if err := json.Unmarshal(resp.Info, &info); err != nil {
		return nil, fmt.Errorf("%w: file share info: %v", ErrFailed, err)
	}
	si := &ShareInfo{URL: info.Domain + "/" + info.FileID}
	if info.Onof == 1 {
		si.Password = info.Pwd
	}
	return si, nil
}

type folderShareDTO struct {
	Name   string    `json:"name"`
	Des    string    `json:"des"`
	NewURL string    `json:"new_url"`
	Pwd    string    `json:"pwd"`
	Onof   intString `json:"onof"`
}

// GetFolderShareInfo returns the outward-facing share record of a folder.
func (c *Client) GetFolderShareInfo(ctx context.Context, folderID int64) (*ShareInfo, error) {
	if err := c.requireLogin(); err != nil {
		return nil, err
	}
	resp, err := c.doTask(ctx, taskDirShare, map[string]string{
		"folder_id": strconv.FormatInt(folderID, 10),
	})
	if err != nil {
		return nil, err
	}
	if resp.Zt != 1 {
		return nil, fmt.Errorf("%w: zt=%d", ErrIDInvalid, int(resp.Zt))
	}
	var info folderShareDTO
	if err := json.Unmarshal(resp.Info, &info); err != nil {
		return nil, fmt.Errorf("%w: folder share info: %v", ErrFailed, err)
	}
	si := &ShareInfo{Name: info.Name, URL: info.NewURL, Description: info.Des}
	if info.Onof == 1 {
		si.Password = info.Pwd
	}
	return si, nil
}

// MoveFolder moves a folder by synthesis; the service has no native folder
// move. It creates a same-named folder under the target, copies the
// password, moves every contained file individually, then soft-deletes the
// original and purges it from the recycle bin.
//
// Best-effort, not transactional: when any file move fails the returned
// error is non-nil, but files already moved stay in the destination (see
// MoveFolderResult). A folder containing subfolders is refused; recursive
// move is out of scope.
func (c *Client) MoveFolder(ctx context.Context, folderID, targetParentID int64) (*MoveFolderResult, error) {
	if err := c.requireLogin(); err != nil {
		return nil, err
	}

	subs, _, err := c.ListFolders(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if len(subs) > 0 {
		return nil, fmt.Errorf("%w: folder has subfolders", ErrFailed)
	}

	info, err := c.GetFolderShareInfo(ctx, folderID)
	if err != nil {
		return nil, err
	}

	newID, _, err := c.Mkdir(ctx, targetParentID, info.Name, info.Description)
	if err != nil {
		return nil, err
	}
	if newID == folderID {
		return nil, fmt.Errorf("%w: target equals source", ErrFailed)
	}
	if info.Password != "" {
		if err := c.SetFolderPassword(ctx, newID, info.Password); err != nil {
			c.log.Warn(ctx, "password copy failed", "folder", newID, "err", err)
		}
	}

	files, err := c.ListFiles(ctx, folderID)
	if err != nil {
		return nil, err
	}

	res := &MoveFolderResult{NewFolderID: newID}
	for _, f := range files {
		if err := c.MoveFile(ctx, f.ID, newID); err != nil {
			c.log.Warn(ctx, "file move failed", "file", f.Name, "err", err)
			res.Failed = append(res.Failed, f.Name)
			continue
		}
		res.Moved = append(res.Moved, f.Name)
	}
	if len(res.Failed) > 0 {
		return res, fmt.Errorf("%w: %d of %d files not moved", ErrFailed, len(res.Failed), len(files))
	}

	if err := c.DeleteFolder(ctx, folderID); err != nil {
		return res, err
	}
	// Purge the now-empty original so it does not linger in the bin.
	if err := c.PurgeFolder(ctx, folderID); err != nil {
		c.log.Warn(ctx, "recycle purge failed", "folder", folderID, "err", err)
	}
	return res, nil
}
