package drive

import (
	"log/slog"
	"strconv"
)

// FolderMimeType is the MIME type Drive assigns to folders.
const FolderMimeType = "application/vnd.google-apps.folder"

// Remote folder names under which diary content is stored.
const (
	AppFolderName     = "BingoDiary"
	EntriesFolderName = "entries"
	ImagesFolderName  = "images"
)

// File represents one object in Drive. The ID is opaque and stable
// across renames. ModifiedTime is the server's RFC 3339 timestamp kept
// as a string — the sync engine compares it for equality against its
// stored marker and only parses it when ordering matters.
type File struct {
	ID           string
	Name         string
	MimeType     string
	ModifiedTime string
	Size         int64
	MD5Checksum  string
	Parents      []string
}

// IsFolder reports whether the file is a Drive folder.
func (f *File) IsFolder() bool {
	return f.MimeType == FolderMimeType
}

// fileResource mirrors the Drive v3 file JSON. Drive serializes size
// as a quoted decimal string. Unexported — callers see File via toFile().
type fileResource struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	MimeType     string   `json:"mimeType"`
	ModifiedTime string   `json:"modifiedTime"`
	Size         string   `json:"size"`
	MD5Checksum  string   `json:"md5Checksum"`
	Parents      []string `json:"parents"`
}

type fileListResponse struct {
	Files         []fileResource `json:"files"`
	NextPageToken string         `json:"nextPageToken"`
}

// toFile normalizes a Drive file resource into our File type.
func (r *fileResource) toFile(logger *slog.Logger) File {
	f := File{
		ID:           r.ID,
		Name:         r.Name,
		MimeType:     r.MimeType,
		ModifiedTime: r.ModifiedTime,
		MD5Checksum:  r.MD5Checksum,
		Parents:      r.Parents,
	}

	if r.Size != "" {
		size, err := strconv.ParseInt(r.Size, 10, 64)
		if err != nil {
			logger.Warn("unparsable size in file resource",
				slog.String("file_id", r.ID),
				slog.String("raw", r.Size),
			)
		} else {
			f.Size = size
		}
	}

	return f
}
