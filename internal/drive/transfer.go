package drive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
)

// octetStream is the fallback MIME type when nothing better is known.
const octetStream = "application/octet-stream"

// mimeTypeForPath infers a MIME type from the file extension,
// defaulting to application/octet-stream.
func mimeTypeForPath(path string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}

	return octetStream
}

// UploadFile uploads a local file. When existingID is non-empty the
// remote file's content is replaced in place (same remote ID);
// otherwise a new file is created under folderID. The MIME type is
// inferred from the file extension.
func (c *Client) UploadFile(ctx context.Context, localPath, name, folderID, existingID string) (*File, error) {
	content, err := os.ReadFile(localPath)
	if err != nil {
		return nil, fmt.Errorf("drive: reading %s: %w", localPath, err)
	}

	return c.UploadContent(ctx, content, name, folderID, mimeTypeForPath(localPath), existingID)
}

// UploadContent uploads raw bytes with an explicit MIME type. When
// existingID is non-empty the remote file's content is replaced in
// place; otherwise a new file is created under folderID.
func (c *Client) UploadContent(ctx context.Context, content []byte, name, folderID, mimeType, existingID string) (*File, error) {
	if existingID != "" {
		return c.updateContent(ctx, existingID, content, mimeType)
	}

	return c.createFile(ctx, name, folderID, content, mimeType)
}

// createFile creates a new file via a multipart upload: a JSON
// metadata part followed by the content part.
func (c *Client) createFile(ctx context.Context, name, folderID string, content []byte, mimeType string) (*File, error) {
	c.logger.Info("uploading new file",
		slog.String("name", name),
		slog.String("folder_id", folderID),
		slog.Int("size", len(content)),
	)

	meta, err := json.Marshal(map[string]any{
		"name":    name,
		"parents": []string{folderID},
	})
	if err != nil {
		return nil, fmt.Errorf("drive: marshaling file metadata: %w", err)
	}

	var buf bytes.Buffer

	w := multipart.NewWriter(&buf)

	metaPart, err := w.CreatePart(textproto.MIMEHeader{"Content-Type": {"application/json; charset=UTF-8"}})
	if err != nil {
		return nil, fmt.Errorf("drive: building metadata part: %w", err)
	}

	if _, err := metaPart.Write(meta); err != nil {
		return nil, fmt.Errorf("drive: writing metadata part: %w", err)
	}

	filePart, err := w.CreatePart(textproto.MIMEHeader{"Content-Type": {mimeType}})
	if err != nil {
		return nil, fmt.Errorf("drive: building content part: %w", err)
	}

	if _, err := filePart.Write(content); err != nil {
		return nil, fmt.Errorf("drive: writing content part: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("drive: finalizing multipart body: %w", err)
	}

	reqURL := c.uploadBase + "/files?uploadType=multipart&fields=" + url.QueryEscape(fileFields)
	contentType := "multipart/related; boundary=" + w.Boundary()

	resp, err := c.do(ctx, http.MethodPost, reqURL, contentType, &buf)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return decodeFileResponse(resp.Body, c.logger)
}

// updateContent replaces an existing file's content via a media-only
// upload. The remote ID is unchanged — no new object is created.
func (c *Client) updateContent(ctx context.Context, fileID string, content []byte, mimeType string) (*File, error) {
	c.logger.Info("updating file content",
		slog.String("file_id", fileID),
		slog.Int("size", len(content)),
	)

	reqURL := fmt.Sprintf("%s/files/%s?uploadType=media&fields=%s",
		c.uploadBase, url.PathEscape(fileID), url.QueryEscape(fileFields))

	resp, err := c.do(ctx, http.MethodPatch, reqURL, mimeType, bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return decodeFileResponse(resp.Body, c.logger)
}

// DownloadFile fetches a file's content by ID.
func (c *Client) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	reqURL := fmt.Sprintf("%s/files/%s?alt=media", c.apiBase, url.PathEscape(fileID))

	resp, err := c.do(ctx, http.MethodGet, reqURL, "", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("drive: reading download body: %w", err)
	}

	c.logger.Debug("downloaded file",
		slog.String("file_id", fileID),
		slog.Int("size", len(content)),
	)

	return content, nil
}

// decodeFileResponse decodes a single file resource from an upload or
// update response body.
func decodeFileResponse(r io.Reader, logger *slog.Logger) (*File, error) {
	var res fileResource
	if err := json.NewDecoder(r).Decode(&res); err != nil {
		return nil, fmt.Errorf("drive: decoding upload response: %w", err)
	}

	file := res.toFile(logger)

	return &file, nil
}
