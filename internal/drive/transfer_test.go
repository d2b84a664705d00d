package drive

import (
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMimeTypeForPath(t *testing.T) {
	assert.Equal(t, "text/plain; charset=utf-8", mimeTypeForPath("2024-01-01.txt"))
	assert.Equal(t, "image/png", mimeTypeForPath("photo.png"))
	assert.Equal(t, octetStream, mimeTypeForPath("noext"))
}

func TestCreateFileMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Contains(t, r.URL.Path, "/upload/")
		assert.Equal(t, "multipart", r.URL.Query().Get("uploadType"))

		mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		require.NoError(t, err)
		require.Equal(t, "multipart/related", mediaType)

		mr := multipart.NewReader(r.Body, params["boundary"])

		metaPart, err := mr.NextPart()
		require.NoError(t, err)
		assert.Contains(t, metaPart.Header.Get("Content-Type"), "application/json")

		meta, err := io.ReadAll(metaPart)
		require.NoError(t, err)
		assert.Contains(t, string(meta), `"name":"2024-01-01.txt"`)
		assert.Contains(t, string(meta), `"parents":["folder-1"]`)

		contentPart, err := mr.NextPart()
		require.NoError(t, err)
		assert.Equal(t, "text/plain", contentPart.Header.Get("Content-Type"))

		content, err := io.ReadAll(contentPart)
		require.NoError(t, err)
		assert.Equal(t, "Dear diary, today was a long day.", string(content))

		_, _ = w.Write([]byte(`{"id": "new-id", "name": "2024-01-01.txt", "modifiedTime": "2024-01-01T20:00:00.000Z"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	f, err := c.UploadContent(context.Background(),
		[]byte("Dear diary, today was a long day."), "2024-01-01.txt", "folder-1", "text/plain", "")
	require.NoError(t, err)
	assert.Equal(t, "new-id", f.ID)
	assert.Equal(t, "2024-01-01T20:00:00.000Z", f.ModifiedTime)
}

func TestUpdateContentKeepsID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		assert.Contains(t, r.URL.Path, "/files/existing-id")
		assert.Equal(t, "media", r.URL.Query().Get("uploadType"))
		assert.Equal(t, "text/plain", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, "updated body", string(body))

		_, _ = w.Write([]byte(`{"id": "existing-id", "name": "2024-01-01.txt"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	f, err := c.UploadContent(context.Background(), []byte("updated body"), "2024-01-01.txt", "folder-1", "text/plain", "existing-id")
	require.NoError(t, err)
	assert.Equal(t, "existing-id", f.ID)
}

func TestUploadFileInfersMimeType(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.png")
	require.NoError(t, os.WriteFile(path, []byte("not really a png"), 0o644))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		require.NoError(t, err)

		mr := multipart.NewReader(r.Body, params["boundary"])

		_, err = mr.NextPart() // metadata
		require.NoError(t, err)

		contentPart, err := mr.NextPart()
		require.NoError(t, err)
		assert.Equal(t, "image/png", contentPart.Header.Get("Content-Type"))

		_, _ = w.Write([]byte(`{"id": "img-1", "name": "photo.png"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	f, err := c.UploadFile(context.Background(), path, "photo.png", "images-folder", "")
	require.NoError(t, err)
	assert.Equal(t, "img-1", f.ID)
}

func TestDownloadFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/files/f-1")
		assert.Equal(t, "media", r.URL.Query().Get("alt"))

		_, _ = w.Write([]byte("remote content"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	content, err := c.DownloadFile(context.Background(), "f-1")
	require.NoError(t, err)
	assert.Equal(t, "remote content", string(content))
}

func TestDownloadFileNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	_, err := c.DownloadFile(context.Background(), "f-gone")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUploadFileMissingLocal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Error("no request expected for a missing local file")
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	_, err := c.UploadFile(context.Background(), filepath.Join(t.TempDir(), "absent.txt"), "absent.txt", "folder-1", "")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "reading"))
}
