package drive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// listPageSize is the pageSize value for list requests. 1000 is the
// maximum the Drive API allows per page.
const listPageSize = 1000

// escapeQueryTerm escapes a value for interpolation into a Drive query
// expression. Backslashes must be doubled before quotes are escaped,
// otherwise a trailing backslash in a name would neutralize the
// closing quote.
func escapeQueryTerm(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)

	return strings.ReplaceAll(s, `'`, `\'`)
}

// listURL builds a files-list URL for the given query expression.
func (c *Client) listURL(query string, pageToken string) string {
	v := url.Values{}
	v.Set("q", query)
	v.Set("fields", "nextPageToken,files("+fileFields+")")
	v.Set("pageSize", fmt.Sprint(listPageSize))

	if pageToken != "" {
		v.Set("pageToken", pageToken)
	}

	return c.apiBase + "/files?" + v.Encode()
}

// queryFiles runs a files-list query and returns a single page.
func (c *Client) queryFiles(ctx context.Context, query, pageToken string) ([]File, string, error) {
	resp, err := c.do(ctx, http.MethodGet, c.listURL(query, pageToken), "", nil)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	var list fileListResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, "", fmt.Errorf("drive: decoding file list: %w", err)
	}

	files := make([]File, 0, len(list.Files))
	for i := range list.Files {
		files = append(files, list.Files[i].toFile(c.logger))
	}

	return files, list.NextPageToken, nil
}

// FindFolder searches for a non-trashed folder with the exact name
// under parentID (or the Drive root when parentID is empty). Returns
// (nil, nil) when no folder matches.
func (c *Client) FindFolder(ctx context.Context, name, parentID string) (*File, error) {
	parent := "root"
	if parentID != "" {
		parent = parentID
	}

	query := fmt.Sprintf("name = '%s' and mimeType = '%s' and '%s' in parents and trashed = false",
		escapeQueryTerm(name), FolderMimeType, escapeQueryTerm(parent))

	files, _, err := c.queryFiles(ctx, query, "")
	if err != nil {
		return nil, err
	}

	if len(files) == 0 {
		return nil, nil //nolint:nilnil // sentinel for "not found"
	}

	return &files[0], nil
}

// CreateFolder creates a folder under parentID (or the Drive root when
// parentID is empty).
func (c *Client) CreateFolder(ctx context.Context, name, parentID string) (*File, error) {
	c.logger.Info("creating folder",
		slog.String("name", name),
		slog.String("parent_id", parentID),
	)

	meta := map[string]any{
		"name":     name,
		"mimeType": FolderMimeType,
	}
	if parentID != "" {
		meta["parents"] = []string{parentID}
	}

	body, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("drive: marshaling folder metadata: %w", err)
	}

	reqURL := c.apiBase + "/files?fields=" + url.QueryEscape(fileFields)

	resp, err := c.do(ctx, http.MethodPost, reqURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var res fileResource
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("drive: decoding create folder response: %w", err)
	}

	folder := res.toFile(c.logger)

	return &folder, nil
}

// FolderLayout holds the IDs of the remote folders diary content
// lives in.
type FolderLayout struct {
	AppFolderID     string
	EntriesFolderID string
	ImagesFolderID  string
}

// EnsureFolderStructure finds or creates the app root folder and its
// entries and images subfolders. Idempotent — safe to call every pass.
func (c *Client) EnsureFolderStructure(ctx context.Context) (*FolderLayout, error) {
	app, err := c.ensureFolder(ctx, AppFolderName, "")
	if err != nil {
		return nil, err
	}

	entries, err := c.ensureFolder(ctx, EntriesFolderName, app.ID)
	if err != nil {
		return nil, err
	}

	images, err := c.ensureFolder(ctx, ImagesFolderName, app.ID)
	if err != nil {
		return nil, err
	}

	return &FolderLayout{
		AppFolderID:     app.ID,
		EntriesFolderID: entries.ID,
		ImagesFolderID:  images.ID,
	}, nil
}

// ensureFolder is the find-or-create primitive behind EnsureFolderStructure.
func (c *Client) ensureFolder(ctx context.Context, name, parentID string) (*File, error) {
	folder, err := c.FindFolder(ctx, name, parentID)
	if err != nil {
		return nil, err
	}

	if folder != nil {
		return folder, nil
	}

	return c.CreateFolder(ctx, name, parentID)
}

// ListFiles returns all non-trashed children of a folder, following
// pagination tokens until exhausted. Callers never see partial pages.
func (c *Client) ListFiles(ctx context.Context, folderID string) ([]File, error) {
	query := fmt.Sprintf("'%s' in parents and trashed = false", escapeQueryTerm(folderID))

	var all []File

	pageToken := ""

	for {
		files, next, err := c.queryFiles(ctx, query, pageToken)
		if err != nil {
			return nil, err
		}

		all = append(all, files...)

		if next == "" {
			break
		}

		pageToken = next
	}

	c.logger.Debug("listed folder",
		slog.String("folder_id", folderID),
		slog.Int("total_files", len(all)),
	)

	return all, nil
}

// FindFile searches for a non-trashed file with the exact name inside
// folderID. Returns (nil, nil) when no file matches.
func (c *Client) FindFile(ctx context.Context, name, folderID string) (*File, error) {
	query := fmt.Sprintf("name = '%s' and '%s' in parents and trashed = false",
		escapeQueryTerm(name), escapeQueryTerm(folderID))

	files, _, err := c.queryFiles(ctx, query, "")
	if err != nil {
		return nil, err
	}

	if len(files) == 0 {
		return nil, nil //nolint:nilnil // sentinel for "not found"
	}

	return &files[0], nil
}

// GetFileMetadata fetches the metadata of a single file by ID.
func (c *Client) GetFileMetadata(ctx context.Context, fileID string) (*File, error) {
	reqURL := fmt.Sprintf("%s/files/%s?fields=%s",
		c.apiBase, url.PathEscape(fileID), url.QueryEscape(fileFields+",parents"))

	resp, err := c.do(ctx, http.MethodGet, reqURL, "", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var res fileResource
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("drive: decoding file metadata: %w", err)
	}

	file := res.toFile(c.logger)

	return &file, nil
}

// DeleteFile deletes a file by ID. An already-deleted file (404) is
// treated as success, not an error.
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	c.logger.Info("deleting file", slog.String("file_id", fileID))

	reqURL := c.apiBase + "/files/" + url.PathEscape(fileID)

	resp, err := c.do(ctx, http.MethodDelete, reqURL, "", nil)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.logger.Debug("file already gone", slog.String("file_id", fileID))
			return nil
		}

		return err
	}

	// 204 No Content — drain and close to reuse the connection.
	defer resp.Body.Close()

	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return fmt.Errorf("drive: draining delete response: %w", err)
	}

	return nil
}
