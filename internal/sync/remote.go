package sync

import (
	"context"

	"github.com/bingoyes/diarysync/internal/drive"
)

// Remote is the subset of the Drive client the engine needs. Defined
// at the consumer so tests can substitute an in-memory fake.
type Remote interface {
	EnsureFolderStructure(ctx context.Context) (*drive.FolderLayout, error)
	ListFiles(ctx context.Context, folderID string) ([]drive.File, error)
	FindFile(ctx context.Context, name, folderID string) (*drive.File, error)
	GetFileMetadata(ctx context.Context, fileID string) (*drive.File, error)
	UploadFile(ctx context.Context, localPath, name, folderID, existingID string) (*drive.File, error)
	UploadContent(ctx context.Context, content []byte, name, folderID, mimeType, existingID string) (*drive.File, error)
	DownloadFile(ctx context.Context, fileID string) ([]byte, error)
	DeleteFile(ctx context.Context, fileID string) error
}

var _ Remote = (*drive.Client)(nil)
