package sync

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/text/unicode/norm"

	"github.com/bingoyes/diarysync/internal/drive"
	"github.com/bingoyes/diarysync/internal/metastore"
)

// localFilePerms is used for files materialized by downloads.
const localFilePerms = 0o644

// category describes one 1:1 content category: flat local directory,
// flat remote folder, one remote file per local filename.
type category struct {
	stage        Stage
	dir          string                 // local directory
	folderID     string                 // remote folder
	metaPrefix   string                 // metadata key prefix, e.g. "entries/"
	reportPrefix string                 // prefix for report entries, e.g. "images/"
	match        func(name string) bool // nil matches everything
	mimeType     string                 // "" infers per file from extension
}

func (e *Engine) entriesCategory(folderID string) category {
	return category{
		stage:      StageEntries,
		dir:        e.diaryDir,
		folderID:   folderID,
		metaPrefix: "entries/",
		match:      isTextEntry,
		mimeType:   "text/plain",
	}
}

func (e *Engine) imagesCategory(folderID string) category {
	return category{
		stage:        StageImages,
		dir:          e.imagesDir(),
		folderID:     folderID,
		metaPrefix:   "images/",
		reportPrefix: "images/",
	}
}

// syncCategory reconciles one category: plan actions with the pair
// decision procedure, then execute them sequentially. Per-action
// failures are recorded in the report and do not stop the category.
// An error return means the category could not even be planned
// (scan or listing failed) — the caller records it and moves on.
func (e *Engine) syncCategory(ctx context.Context, pc *passContext, cat category) error {
	if cat.dir != e.diaryDir {
		// Images live in a subdirectory that may not exist yet.
		if err := os.MkdirAll(cat.dir, 0o755); err != nil {
			return fmt.Errorf("sync: creating %s: %w", cat.dir, err)
		}
	}

	e.progress(cat.stage, 0, 1, "Scanning local files...")

	locals, err := scanDir(cat.dir, cat.match)
	if err != nil {
		return err
	}

	e.progress(cat.stage, 0, 1, "Fetching remote listing...")

	remotes, err := e.listRemote(ctx, cat)
	if err != nil {
		return err
	}

	actions, conflicts := e.planCategory(pc.meta, cat, locals, remotes)

	if len(actions) == 0 {
		e.progress(cat.stage, 1, 1, "Up to date")
		return nil
	}

	for i, act := range actions {
		e.executeAction(ctx, pc, cat, act, i+1, len(actions), conflicts)
	}

	return nil
}

// listRemote lists the category's remote folder into a name-keyed map.
// Remote names are NFC-normalized to key consistently against local
// scans.
func (e *Engine) listRemote(ctx context.Context, cat category) (map[string]drive.File, error) {
	files, err := e.remote.ListFiles(ctx, cat.folderID)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]drive.File, len(files))

	for _, f := range files {
		name := norm.NFC.String(f.Name)
		if cat.match != nil && !cat.match(name) {
			continue
		}

		byName[name] = f
	}

	return byName, nil
}

// planCategory runs the pair decision procedure over every local file
// and schedules downloads for remote-only names. Returns the ordered
// action list and the set of names whose transfer resolves a
// both-sides-changed conflict.
func (e *Engine) planCategory(
	meta *metastore.Metadata, cat category, locals []localFile, remotes map[string]drive.File,
) ([]*action, map[string]bool) {
	var actions []*action

	conflicts := make(map[string]bool)
	seen := make(map[string]bool, len(locals))

	for _, lf := range locals {
		seen[lf.name] = true

		pair, err := e.buildPairState(meta, cat, lf, remotes)
		if err != nil {
			e.logger.Warn("skipping unreadable local file",
				slog.String("path", lf.path),
				slog.String("error", err.Error()),
			)

			continue
		}

		d := decidePair(pair)
		if d.act == nil {
			continue
		}

		if d.conflict {
			conflicts[lf.name] = true
			e.logger.Info("conflict resolved last-write-wins",
				slog.String("name", lf.name),
				slog.Bool("local_wins", d.act.typ == actionUpload),
			)
		}

		actions = append(actions, d.act)
	}

	// Remote-only names: download to a freshly computed local path.
	for name, rf := range remotes {
		if seen[name] {
			continue
		}

		actions = append(actions, &action{
			typ:        actionDownload,
			localPath:  filepath.Join(cat.dir, name),
			remoteName: name,
			remoteID:   rf.ID,
		})
	}

	return actions, conflicts
}

// buildPairState gathers the local-side inputs for the pair decision.
func (e *Engine) buildPairState(
	meta *metastore.Metadata, cat category, lf localFile, remotes map[string]drive.File,
) (pairState, error) {
	hash, err := metastore.HashFile(lf.path)
	if err != nil {
		return pairState{}, err
	}

	modified, err := fileModifiedTime(lf.path)
	if err != nil {
		return pairState{}, err
	}

	size, err := fileSize(lf.path)
	if err != nil {
		return pairState{}, err
	}

	pair := pairState{
		name:          lf.name,
		localPath:     lf.path,
		localHash:     hash,
		localModified: modified,
		localSize:     size,
	}

	if rf, ok := remotes[lf.name]; ok {
		remote := rf
		pair.remote = &remote
	}

	if stored, ok := meta.FileState(cat.metaPrefix + lf.name); ok {
		pair.stored = &stored
	}

	return pair, nil
}

// executeAction dispatches one planned action, emitting progress and
// recording the outcome in the report.
func (e *Engine) executeAction(
	ctx context.Context, pc *passContext, cat category, act *action, current, total int, conflicts map[string]bool,
) {
	reportName := cat.reportPrefix + act.remoteName

	switch act.typ {
	case actionUpload:
		e.progress(cat.stage, current, total, fmt.Sprintf("Uploading %s...", act.remoteName))

		if err := e.uploadItem(ctx, pc.meta, cat, act); err != nil {
			pc.report.Errors = append(pc.report.Errors, fmt.Sprintf("upload %s failed: %v", act.remoteName, err))
			return
		}

		pc.report.Uploaded = append(pc.report.Uploaded, reportName)

	case actionDownload:
		e.progress(cat.stage, current, total, fmt.Sprintf("Downloading %s...", act.remoteName))

		if err := e.downloadItem(ctx, pc.meta, cat, act); err != nil {
			pc.report.Errors = append(pc.report.Errors, fmt.Sprintf("download %s failed: %v", act.remoteName, err))
			return
		}

		pc.report.Downloaded = append(pc.report.Downloaded, reportName)

	case actionDeleteLocal:
		e.progress(cat.stage, current, total, fmt.Sprintf("Removing local %s...", act.remoteName))

		if err := os.Remove(act.localPath); err != nil {
			pc.report.Errors = append(pc.report.Errors, fmt.Sprintf("delete local %s failed: %v", act.remoteName, err))
			return
		}

		pc.report.DeletedLocal = append(pc.report.DeletedLocal, reportName)

	case actionDeleteRemote:
		e.progress(cat.stage, current, total, fmt.Sprintf("Removing remote %s...", act.remoteName))

		if err := e.remote.DeleteFile(ctx, act.remoteID); err != nil {
			pc.report.Errors = append(pc.report.Errors, fmt.Sprintf("delete remote %s failed: %v", act.remoteName, err))
			return
		}

		pc.report.DeletedRemote = append(pc.report.DeletedRemote, reportName)
	}

	if conflicts[act.remoteName] {
		pc.report.ConflictsResolved = append(pc.report.ConflictsResolved, reportName)
	}
}

// uploadItem pushes one local file and records the new agreed state.
// Entries carry an explicit MIME type; other categories infer from the
// file extension.
func (e *Engine) uploadItem(ctx context.Context, meta *metastore.Metadata, cat category, act *action) error {
	var (
		result *drive.File
		hash   string
		err    error
	)

	if cat.mimeType != "" {
		var content []byte

		content, err = os.ReadFile(act.localPath)
		if err != nil {
			return fmt.Errorf("sync: reading %s: %w", act.localPath, err)
		}

		hash = metastore.HashBytes(content)
		result, err = e.remote.UploadContent(ctx, content, act.remoteName, cat.folderID, cat.mimeType, act.remoteID)
	} else {
		result, err = e.remote.UploadFile(ctx, act.localPath, act.remoteName, cat.folderID, act.remoteID)
		if err == nil {
			hash, err = metastore.HashFile(act.localPath)
		}
	}

	if err != nil {
		return err
	}

	modified, err := fileModifiedTime(act.localPath)
	if err != nil {
		return err
	}

	meta.SetFileState(cat.metaPrefix+act.remoteName, metastore.FileState{
		LocalModified:  modified,
		RemoteID:       result.ID,
		RemoteModified: result.ModifiedTime,
		SyncedHash:     hash,
	})

	return nil
}

// downloadItem pulls one remote file to disk and records the new
// agreed state.
func (e *Engine) downloadItem(ctx context.Context, meta *metastore.Metadata, cat category, act *action) error {
	content, err := e.remote.DownloadFile(ctx, act.remoteID)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(act.localPath), 0o755); err != nil {
		return fmt.Errorf("sync: creating directory for %s: %w", act.localPath, err)
	}

	if err := os.WriteFile(act.localPath, content, localFilePerms); err != nil {
		return fmt.Errorf("sync: writing %s: %w", act.localPath, err)
	}

	modified, err := fileModifiedTime(act.localPath)
	if err != nil {
		return err
	}

	remoteMeta, err := e.remote.GetFileMetadata(ctx, act.remoteID)
	if err != nil {
		return err
	}

	meta.SetFileState(cat.metaPrefix+act.remoteName, metastore.FileState{
		LocalModified:  modified,
		RemoteID:       act.remoteID,
		RemoteModified: remoteMeta.ModifiedTime,
		SyncedHash:     metastore.HashBytes(content),
	})

	return nil
}
