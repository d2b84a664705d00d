package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	stdsync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bingoyes/diarysync/internal/drive"
	"github.com/bingoyes/diarysync/internal/metastore"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeFile is one remote file held by fakeRemote.
type fakeFile struct {
	id       string
	name     string
	modified string
	content  []byte
}

// fakeRemote is an in-memory Remote with a fixed folder layout.
type fakeRemote struct {
	mu     stdsync.Mutex
	nextID int
	clock  int

	layout drive.FolderLayout
	files  map[string]map[string]*fakeFile // folderID -> fileID -> file

	failUploads map[string]bool // file names whose upload fails
	deleted     []string
}

func newFakeRemote() *fakeRemote {
	layout := drive.FolderLayout{
		AppFolderID:     "app-folder",
		EntriesFolderID: "entries-folder",
		ImagesFolderID:  "images-folder",
	}

	return &fakeRemote{
		layout: layout,
		files: map[string]map[string]*fakeFile{
			layout.AppFolderID:     {},
			layout.EntriesFolderID: {},
			layout.ImagesFolderID:  {},
		},
		failUploads: map[string]bool{},
	}
}

// stamp returns a strictly increasing RFC 3339 timestamp.
func (f *fakeRemote) stamp() string {
	f.clock++
	return fmt.Sprintf("2024-06-01T10:%02d:%02d.000Z", f.clock/60, f.clock%60)
}

// seed places a file on the remote directly, bypassing uploads.
func (f *fakeRemote) seed(folderID, name string, content []byte) *fakeFile {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	ff := &fakeFile{
		id:       fmt.Sprintf("id-%d", f.nextID),
		name:     name,
		modified: f.stamp(),
		content:  append([]byte(nil), content...),
	}
	f.files[folderID][ff.id] = ff

	return ff
}

// fileByName returns the remote file with the given name, or nil.
func (f *fakeRemote) fileByName(folderID, name string) *fakeFile {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, ff := range f.files[folderID] {
		if ff.name == name {
			return ff
		}
	}

	return nil
}

func (f *fakeRemote) toDriveFile(ff *fakeFile) drive.File {
	return drive.File{
		ID:           ff.id,
		Name:         ff.name,
		ModifiedTime: ff.modified,
		Size:         int64(len(ff.content)),
	}
}

func (f *fakeRemote) EnsureFolderStructure(_ context.Context) (*drive.FolderLayout, error) {
	layout := f.layout
	return &layout, nil
}

func (f *fakeRemote) ListFiles(_ context.Context, folderID string) ([]drive.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []drive.File
	for _, ff := range f.files[folderID] {
		out = append(out, f.toDriveFile(ff))
	}

	return out, nil
}

func (f *fakeRemote) FindFile(_ context.Context, name, folderID string) (*drive.File, error) {
	ff := f.fileByName(folderID, name)
	if ff == nil {
		return nil, nil
	}

	df := f.toDriveFile(ff)

	return &df, nil
}

func (f *fakeRemote) GetFileMetadata(_ context.Context, fileID string) (*drive.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, folder := range f.files {
		if ff, ok := folder[fileID]; ok {
			df := f.toDriveFile(ff)
			return &df, nil
		}
	}

	return nil, drive.ErrNotFound
}

func (f *fakeRemote) UploadFile(ctx context.Context, localPath, name, folderID, existingID string) (*drive.File, error) {
	content, err := os.ReadFile(localPath)
	if err != nil {
		return nil, err
	}

	return f.UploadContent(ctx, content, name, folderID, "", existingID)
}

func (f *fakeRemote) UploadContent(_ context.Context, content []byte, name, folderID, _ string, existingID string) (*drive.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failUploads[name] {
		return nil, errors.New("simulated upload failure")
	}

	if existingID != "" {
		for _, folder := range f.files {
			if ff, ok := folder[existingID]; ok {
				ff.content = append([]byte(nil), content...)
				ff.modified = f.stamp()

				df := f.toDriveFile(ff)

				return &df, nil
			}
		}

		return nil, drive.ErrNotFound
	}

	f.nextID++
	ff := &fakeFile{
		id:       fmt.Sprintf("id-%d", f.nextID),
		name:     name,
		modified: f.stamp(),
		content:  append([]byte(nil), content...),
	}
	f.files[folderID][ff.id] = ff

	df := f.toDriveFile(ff)

	return &df, nil
}

func (f *fakeRemote) DownloadFile(_ context.Context, fileID string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, folder := range f.files {
		if ff, ok := folder[fileID]; ok {
			return append([]byte(nil), ff.content...), nil
		}
	}

	return nil, drive.ErrNotFound
}

func (f *fakeRemote) DeleteFile(_ context.Context, fileID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, folder := range f.files {
		if ff, ok := folder[fileID]; ok {
			f.deleted = append(f.deleted, ff.name)
			delete(folder, fileID)

			return nil
		}
	}

	return nil
}

// testEngine wires an Engine over a fake remote and temp directories.
func testEngine(t *testing.T) (*Engine, *fakeRemote, string, *metastore.Store) {
	t.Helper()

	fake := newFakeRemote()
	diaryDir := t.TempDir()
	store := metastore.NewStore(t.TempDir(), testLogger())

	e := NewEngine(Config{
		Remote:   fake,
		Store:    store,
		DiaryDir: diaryDir,
		Logger:   testLogger(),
	})

	return e, fake, diaryDir, store
}

// writeLocal writes a diary file with content comfortably above the
// near-empty threshold unless told otherwise.
func writeLocal(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

const longEntry = "Dear diary, today I planted tomatoes and it rained all afternoon."

func TestSyncFirstUpload(t *testing.T) {
	e, fake, dir, store := testEngine(t)

	writeLocal(t, dir, "2024-01-01.txt", longEntry)
	writeLocal(t, dir, "2024-01-02.txt", longEntry+" Again.")
	writeLocal(t, dir, "tags.json", `{"tags": ["garden", "weather"]}`)
	writeLocal(t, dir, filepath.Join("images", "photo.png"), "pretend this is png data")

	report, err := e.Sync(context.Background())
	require.NoError(t, err)
	require.Empty(t, report.Errors)

	assert.ElementsMatch(t,
		[]string{"2024-01-01.txt", "2024-01-02.txt", "tags.json", "images/photo.png"},
		report.Uploaded,
	)
	assert.Empty(t, report.Downloaded)
	assert.Empty(t, report.ConflictsResolved)
	assert.NotEmpty(t, report.PassID)

	// Bytes actually landed in the right folders.
	entry := fake.fileByName(fake.layout.EntriesFolderID, "2024-01-01.txt")
	require.NotNil(t, entry)
	assert.Equal(t, longEntry, string(entry.content))

	require.NotNil(t, fake.fileByName(fake.layout.AppFolderID, "tags.json"))
	require.NotNil(t, fake.fileByName(fake.layout.ImagesFolderID, "photo.png"))

	// Metadata recorded the agreed state and the folder IDs.
	meta := store.Load()
	assert.Equal(t, "app-folder", meta.AppFolderID)
	assert.Equal(t, "entries-folder", meta.EntriesFolderID)
	assert.Equal(t, "images-folder", meta.ImagesFolderID)
	assert.NotEmpty(t, meta.LastSyncTime)

	for _, key := range []string{"entries/2024-01-01.txt", "entries/2024-01-02.txt", "tags.json", "images/photo.png"} {
		fs, ok := meta.FileState(key)
		require.True(t, ok, "missing state for %s", key)
		assert.NotEmpty(t, fs.RemoteID)
		assert.NotEmpty(t, fs.SyncedHash)
		assert.NotEmpty(t, fs.RemoteModified)
	}
}

func TestSyncIsIdempotent(t *testing.T) {
	e, _, dir, _ := testEngine(t)

	writeLocal(t, dir, "2024-01-01.txt", longEntry)
	writeLocal(t, dir, "tags.json", `{"tags": ["garden", "weather"]}`)
	writeLocal(t, dir, filepath.Join("images", "photo.png"), "pretend this is png data")

	first, err := e.Sync(context.Background())
	require.NoError(t, err)
	require.Empty(t, first.Errors)
	require.NotEmpty(t, first.Uploaded)

	second, err := e.Sync(context.Background())
	require.NoError(t, err)
	assert.Empty(t, second.Uploaded, "an unchanged tree must transfer nothing")
	assert.Empty(t, second.Downloaded)
	assert.Empty(t, second.ConflictsResolved)
	assert.Empty(t, second.Errors)
}

func TestSyncDownloadsRemoteOnlyFiles(t *testing.T) {
	e, fake, dir, store := testEngine(t)

	fake.seed(fake.layout.EntriesFolderID, "2024-02-02.txt", []byte(longEntry))
	fake.seed(fake.layout.ImagesFolderID, "sunset.jpg", []byte("pretend this is jpg data"))

	report, err := e.Sync(context.Background())
	require.NoError(t, err)
	require.Empty(t, report.Errors)

	assert.ElementsMatch(t, []string{"2024-02-02.txt", "images/sunset.jpg"}, report.Downloaded)

	data, err := os.ReadFile(filepath.Join(dir, "2024-02-02.txt"))
	require.NoError(t, err)
	assert.Equal(t, longEntry, string(data))

	assert.FileExists(t, filepath.Join(dir, "images", "sunset.jpg"))

	_, ok := store.Load().FileState("entries/2024-02-02.txt")
	assert.True(t, ok)
}

func TestSyncConflictLocalWins(t *testing.T) {
	e, fake, dir, _ := testEngine(t)

	path := writeLocal(t, dir, "2024-01-01.txt", longEntry)

	_, err := e.Sync(context.Background())
	require.NoError(t, err)

	// Both sides change. The local mtime is far in the future, so
	// last-write-wins picks the local side.
	require.NoError(t, os.WriteFile(path, []byte(longEntry+" Local edit."), 0o644))
	future := time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(path, future, future))

	remote := fake.fileByName(fake.layout.EntriesFolderID, "2024-01-01.txt")
	require.NotNil(t, remote)
	remote.content = []byte(longEntry + " Remote edit.")
	remote.modified = fake.stamp()

	report, err := e.Sync(context.Background())
	require.NoError(t, err)
	require.Empty(t, report.Errors)

	assert.Equal(t, []string{"2024-01-01.txt"}, report.Uploaded)
	assert.Equal(t, []string{"2024-01-01.txt"}, report.ConflictsResolved)
	assert.Empty(t, report.Downloaded)

	assert.Equal(t, longEntry+" Local edit.", string(remote.content))
}

func TestSyncConflictRemoteWins(t *testing.T) {
	e, fake, dir, _ := testEngine(t)

	path := writeLocal(t, dir, "2024-01-01.txt", longEntry)

	_, err := e.Sync(context.Background())
	require.NoError(t, err)

	// Both sides change; the local mtime is pushed into the past so
	// the remote side is newer.
	require.NoError(t, os.WriteFile(path, []byte(longEntry+" Local edit."), 0o644))
	past := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(path, past, past))

	remote := fake.fileByName(fake.layout.EntriesFolderID, "2024-01-01.txt")
	require.NotNil(t, remote)
	remote.content = []byte(longEntry + " Remote edit.")
	remote.modified = fake.stamp()

	report, err := e.Sync(context.Background())
	require.NoError(t, err)
	require.Empty(t, report.Errors)

	assert.Equal(t, []string{"2024-01-01.txt"}, report.Downloaded)
	assert.Equal(t, []string{"2024-01-01.txt"}, report.ConflictsResolved)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, longEntry+" Remote edit.", string(data))
}

func TestSyncSkipsNearEmptyNewFiles(t *testing.T) {
	e, fake, dir, _ := testEngine(t)

	writeLocal(t, dir, "stub.txt", "2024-01-01\n")

	report, err := e.Sync(context.Background())
	require.NoError(t, err)

	assert.Empty(t, report.Uploaded)
	assert.Nil(t, fake.fileByName(fake.layout.EntriesFolderID, "stub.txt"))
}

func TestSyncEmptyRemoteLosesToLocal(t *testing.T) {
	e, fake, dir, _ := testEngine(t)

	writeLocal(t, dir, "2024-01-01.txt", longEntry)

	// Remote copy is a stub even though it has the newer timestamp.
	fake.seed(fake.layout.EntriesFolderID, "2024-01-01.txt", []byte("2024-01-01\n"))

	report, err := e.Sync(context.Background())
	require.NoError(t, err)
	require.Empty(t, report.Errors)

	assert.Equal(t, []string{"2024-01-01.txt"}, report.Uploaded)

	remote := fake.fileByName(fake.layout.EntriesFolderID, "2024-01-01.txt")
	assert.Equal(t, longEntry, string(remote.content))
}

func TestSyncPerItemFailureDoesNotAbortPass(t *testing.T) {
	e, fake, dir, _ := testEngine(t)

	writeLocal(t, dir, "2024-01-01.txt", longEntry)
	writeLocal(t, dir, "2024-01-02.txt", longEntry+" More.")
	fake.failUploads["2024-01-01.txt"] = true

	report, err := e.Sync(context.Background())
	require.NoError(t, err, "per-item failures must not abort the pass")

	assert.Equal(t, []string{"2024-01-02.txt"}, report.Uploaded)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "2024-01-01.txt")
}

func TestSyncTagsRemoteOnly(t *testing.T) {
	e, fake, dir, _ := testEngine(t)

	fake.seed(fake.layout.AppFolderID, "tags.json", []byte(`{"tags": ["travel", "food"]}`))

	report, err := e.Sync(context.Background())
	require.NoError(t, err)
	require.Empty(t, report.Errors)

	assert.Equal(t, []string{"tags.json"}, report.Downloaded)

	data, err := os.ReadFile(filepath.Join(dir, "tags.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "travel")
}

func TestForceUploadNeverDownloadsOrDeletes(t *testing.T) {
	e, fake, dir, _ := testEngine(t)

	writeLocal(t, dir, "2024-01-01.txt", longEntry)
	writeLocal(t, dir, "tags.json", `{"tags": ["garden", "weather"]}`)

	// Remote has a newer same-name copy plus a file with no local
	// counterpart. A normal pass would download both.
	existing := fake.seed(fake.layout.EntriesFolderID, "2024-01-01.txt", []byte(longEntry+" Newer remote."))
	fake.seed(fake.layout.EntriesFolderID, "2024-03-03.txt", []byte(longEntry+" Remote only."))

	report, err := e.ForceUpload(context.Background())
	require.NoError(t, err)
	require.Empty(t, report.Errors)

	assert.ElementsMatch(t, []string{"2024-01-01.txt", "tags.json"}, report.Uploaded)
	assert.Empty(t, report.Downloaded)
	assert.Empty(t, report.DeletedLocal)
	assert.Empty(t, report.DeletedRemote)
	assert.Empty(t, fake.deleted)

	// The same-name remote file was overwritten in place.
	assert.Equal(t, longEntry, string(existing.content))

	// The remote-only file is untouched and was not pulled down.
	assert.NotNil(t, fake.fileByName(fake.layout.EntriesFolderID, "2024-03-03.txt"))
	assert.NoFileExists(t, filepath.Join(dir, "2024-03-03.txt"))
}

func TestSyncEmptyDiary(t *testing.T) {
	e, _, _, store := testEngine(t)

	report, err := e.Sync(context.Background())
	require.NoError(t, err)

	assert.Empty(t, report.Uploaded)
	assert.Empty(t, report.Downloaded)
	assert.Empty(t, report.Errors)
	assert.NotEmpty(t, store.Load().LastSyncTime)
}

// recordingObserver captures the event stream for ordering assertions.
type recordingObserver struct {
	mu        stdsync.Mutex
	started   int
	completed int
	progress  []Progress
}

func (r *recordingObserver) SyncStarted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started++
}

func (r *recordingObserver) SyncProgress(p Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, p)
}

func (r *recordingObserver) SyncCompleted(*Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed++
}

func TestSyncObserverEvents(t *testing.T) {
	fake := newFakeRemote()
	dir := t.TempDir()
	obs := &recordingObserver{}

	e := NewEngine(Config{
		Remote:   fake,
		Store:    metastore.NewStore(t.TempDir(), testLogger()),
		DiaryDir: dir,
		Observer: obs,
		Logger:   testLogger(),
	})

	writeLocal(t, dir, "2024-01-01.txt", longEntry)

	_, err := e.Sync(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, obs.started)
	assert.Equal(t, 1, obs.completed)
	require.NotEmpty(t, obs.progress)

	// The stream starts with the init stage and visits every stage in
	// the fixed order.
	assert.Equal(t, StageInit, obs.progress[0].Stage)

	var stages []Stage
	for _, p := range obs.progress {
		if len(stages) == 0 || stages[len(stages)-1] != p.Stage {
			stages = append(stages, p.Stage)
		}
	}

	assert.Equal(t, []Stage{StageInit, StageEntries, StageTags, StageImages}, stages)
}
