// Package sync implements the bidirectional reconciliation engine: it
// detects which side of each local/remote pair changed since the last
// pass, resolves conflicts last-write-wins, moves bytes in the right
// direction, and records enough state to keep subsequent passes
// incremental and idempotent.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	stdsync "sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/bingoyes/diarysync/internal/metastore"
)

// tagsFileName is the single aggregate file synced at the app folder
// root, alongside the entries and images subfolders.
const tagsFileName = "tags.json"

// initSteps is the Total reported for the init stage.
const initSteps = 4

// Config holds the collaborators for NewEngine.
type Config struct {
	Remote   Remote
	Store    *metastore.Store
	DiaryDir string // local root: flat entry files, tags.json, images/
	Observer Observer
	Logger   *slog.Logger
}

// Engine runs sync passes. The run mutex guarantees no two passes
// mutate metadata concurrently; the singleflight group additionally
// collapses concurrent Sync triggers (interval tick plus watcher
// burst) into a single in-flight pass sharing one report.
type Engine struct {
	remote   Remote
	store    *metastore.Store
	diaryDir string
	observer Observer
	logger   *slog.Logger

	runMu stdsync.Mutex
	group singleflight.Group

	// now is overridable for tests.
	now func() time.Time
}

// NewEngine creates an Engine. A nil Observer gets NopObserver.
func NewEngine(cfg Config) *Engine {
	obs := cfg.Observer
	if obs == nil {
		obs = NopObserver{}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		remote:   cfg.Remote,
		store:    cfg.Store,
		diaryDir: cfg.DiaryDir,
		observer: obs,
		logger:   logger,
		now:      time.Now,
	}
}

// imagesDir is the flat local images folder.
func (e *Engine) imagesDir() string {
	return filepath.Join(e.diaryDir, "images")
}

// Sync runs one full reconciliation pass. Concurrent calls collapse
// into the in-flight pass and share its report.
func (e *Engine) Sync(ctx context.Context) (*Report, error) {
	v, err, _ := e.group.Do("sync", func() (any, error) {
		return e.runPass(ctx, e.reconcile)
	})
	if err != nil {
		return nil, err
	}

	return v.(*Report), nil
}

// ForceUpload runs a pass that unconditionally uploads every local
// entry, the tags file, and every local image — a manual "local is
// authoritative" override. It never deletes or downloads.
func (e *Engine) ForceUpload(ctx context.Context) (*Report, error) {
	v, err, _ := e.group.Do("force-upload", func() (any, error) {
		return e.runPass(ctx, e.forceUpload)
	})
	if err != nil {
		return nil, err
	}

	return v.(*Report), nil
}

// passContext carries per-pass state through the category functions.
type passContext struct {
	meta   *metastore.Metadata
	report *Report
}

// runPass wraps a pass body with the shared prologue and epilogue:
// run lock, pass ID, start event, folder bootstrap (fatal on failure),
// metadata load/save checkpoints, and the completed event.
func (e *Engine) runPass(ctx context.Context, body func(ctx context.Context, pc *passContext) error) (*Report, error) {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	start := e.now()

	pc := &passContext{
		meta:   e.store.Load(),
		report: newReport(uuid.NewString()),
	}

	logger := e.logger.With(slog.String("pass_id", pc.report.PassID))
	logger.Info("sync pass starting")

	e.observer.SyncStarted()
	e.progress(StageInit, 0, initSteps, "Initializing...")

	if err := body(ctx, pc); err != nil {
		logger.Error("sync pass aborted", slog.String("error", err.Error()))
		return nil, err
	}

	pc.meta.TouchLastSync(e.now())
	if err := e.store.Save(pc.meta); err != nil {
		return nil, err
	}

	pc.report.DurationMs = e.now().Sub(start).Milliseconds()

	logger.Info("sync pass complete",
		slog.Int("uploaded", len(pc.report.Uploaded)),
		slog.Int("downloaded", len(pc.report.Downloaded)),
		slog.Int("conflicts_resolved", len(pc.report.ConflictsResolved)),
		slog.Int("errors", len(pc.report.Errors)),
		slog.Int64("duration_ms", pc.report.DurationMs),
	)

	e.observer.SyncCompleted(pc.report)

	return pc.report, nil
}

// bootstrapFolders ensures the remote folder layout and caches the IDs
// in metadata. Failure here is fatal for the whole pass — nothing else
// has run yet.
func (e *Engine) bootstrapFolders(ctx context.Context, pc *passContext) error {
	e.progress(StageInit, 1, initSteps, "Connecting to Google Drive...")

	layout, err := e.remote.EnsureFolderStructure(ctx)
	if err != nil {
		return fmt.Errorf("sync: ensuring remote folders: %w", err)
	}

	pc.meta.AppFolderID = layout.AppFolderID
	pc.meta.EntriesFolderID = layout.EntriesFolderID
	pc.meta.ImagesFolderID = layout.ImagesFolderID

	return nil
}

// reconcile is the normal pass body: entries, tags, images, each
// category catching its own per-item failures so the pass always
// completes once folder bootstrap has succeeded.
func (e *Engine) reconcile(ctx context.Context, pc *passContext) error {
	if err := e.bootstrapFolders(ctx, pc); err != nil {
		return err
	}

	if err := e.syncCategory(ctx, pc, e.entriesCategory(pc.meta.EntriesFolderID)); err != nil {
		pc.report.Errors = append(pc.report.Errors, fmt.Sprintf("entry sync failed: %v", err))
	}

	e.progress(StageTags, 0, 1, "Syncing tags...")

	if err := e.syncTags(ctx, pc); err != nil {
		pc.report.Errors = append(pc.report.Errors, fmt.Sprintf("tags sync failed: %v", err))
	}

	if err := e.syncCategory(ctx, pc, e.imagesCategory(pc.meta.ImagesFolderID)); err != nil {
		pc.report.Errors = append(pc.report.Errors, fmt.Sprintf("image sync failed: %v", err))
	}

	return nil
}

// progress emits one ordered progress event.
func (e *Engine) progress(stage Stage, current, total int, message string) {
	e.observer.SyncProgress(Progress{
		Stage:   stage,
		Current: current,
		Total:   total,
		Message: message,
	})
}
