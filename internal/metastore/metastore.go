// Package metastore persists per-path synchronization state: the last
// hash both sides agreed on, remote IDs, modification markers, cached
// folder IDs, and sync settings. The whole document is loaded at the
// start of a pass, mutated in place, and saved wholesale at the end.
package metastore

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/bingoyes/diarysync/internal/atomicfile"
)

// metaFileName is the metadata document inside the app data directory.
const metaFileName = "sync_meta.json"

const filePerms = 0o600

// Settings controls how sync runs are scheduled.
type Settings struct {
	Enabled         bool   `json:"enabled"`
	Mode            string `json:"syncMode"` // "auto" or "manual"
	IntervalMinutes int    `json:"syncIntervalMinutes"`
}

// DefaultSettings mirrors a fresh installation: manual sync, 15 minute
// interval when enabled.
func DefaultSettings() Settings {
	return Settings{
		Enabled:         false,
		Mode:            "manual",
		IntervalMinutes: 15,
	}
}

// FileState records the last state both sides agreed on for one
// relative path (e.g. "entries/2024-01-01.txt"). SyncedHash is always
// a hash over the exact bytes last transferred in either direction.
type FileState struct {
	LocalModified  string `json:"localModified"`
	RemoteID       string `json:"remoteId,omitempty"`
	RemoteModified string `json:"remoteModified,omitempty"`
	SyncedHash     string `json:"syncedHash"`
}

// Metadata is the process-wide persisted sync state. Entries in Files
// are created the first time a path syncs and updated on every
// subsequent transfer; they are never proactively deleted — a stale
// entry for a removed file is simply unused until the path reappears.
type Metadata struct {
	Settings        Settings             `json:"settings"`
	LastSyncTime    string               `json:"lastSyncTime,omitempty"`
	AppFolderID     string               `json:"driveFolderId,omitempty"`
	EntriesFolderID string               `json:"entriesFolderId,omitempty"`
	ImagesFolderID  string               `json:"imagesFolderId,omitempty"`
	Files           map[string]FileState `json:"files"`
}

// newMetadata returns an empty default document.
func newMetadata() *Metadata {
	return &Metadata{
		Settings: DefaultSettings(),
		Files:    make(map[string]FileState),
	}
}

// FileState returns the stored state for a relative path, if any.
func (m *Metadata) FileState(relPath string) (FileState, bool) {
	fs, ok := m.Files[relPath]
	return fs, ok
}

// SetFileState records the state for a relative path after a transfer.
func (m *Metadata) SetFileState(relPath string, fs FileState) {
	if m.Files == nil {
		m.Files = make(map[string]FileState)
	}

	m.Files[relPath] = fs
}

// TouchLastSync stamps the last successful sync time.
func (m *Metadata) TouchLastSync(now time.Time) {
	m.LastSyncTime = now.UTC().Format(time.RFC3339)
}

// Store loads and saves the metadata document.
type Store struct {
	path   string
	logger *slog.Logger
}

// NewStore creates a Store rooted at dataDir.
func NewStore(dataDir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		path:   filepath.Join(dataDir, metaFileName),
		logger: logger,
	}
}

// Load reads the metadata document. It never fails the caller: a
// missing or unparsable document yields an empty default (unparsable
// is logged — the prior state is lost but sync re-derives it).
func (s *Store) Load() *Metadata {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return newMetadata()
	}

	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		s.logger.Warn("unparsable sync metadata, starting fresh",
			slog.String("path", s.path),
			slog.String("error", err.Error()),
		)

		return newMetadata()
	}

	if m.Files == nil {
		m.Files = make(map[string]FileState)
	}

	if m.Settings.Mode == "" {
		m.Settings = DefaultSettings()
	}

	return &m
}

// Save overwrites the metadata document wholesale.
func (s *Store) Save(m *Metadata) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("metastore: encoding metadata: %w", err)
	}

	if err := atomicfile.WriteFile(s.path, data, filePerms); err != nil {
		return fmt.Errorf("metastore: saving metadata: %w", err)
	}

	return nil
}
