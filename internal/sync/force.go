package sync

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// forceUpload is the pass body for ForceUpload: every local entry, the
// tags file, and every local image is uploaded regardless of stored
// state or remote timestamps. Existing remote files are updated in
// place so no duplicates appear. Nothing is downloaded or deleted.
func (e *Engine) forceUpload(ctx context.Context, pc *passContext) error {
	if err := e.bootstrapFolders(ctx, pc); err != nil {
		return err
	}

	if err := e.forceCategory(ctx, pc, e.entriesCategory(pc.meta.EntriesFolderID)); err != nil {
		pc.report.Errors = append(pc.report.Errors, fmt.Sprintf("entry upload failed: %v", err))
	}

	e.progress(StageTags, 0, 1, "Uploading tags...")

	if err := e.forceTags(ctx, pc); err != nil {
		pc.report.Errors = append(pc.report.Errors, fmt.Sprintf("tags upload failed: %v", err))
	}

	if err := e.forceCategory(ctx, pc, e.imagesCategory(pc.meta.ImagesFolderID)); err != nil {
		pc.report.Errors = append(pc.report.Errors, fmt.Sprintf("image upload failed: %v", err))
	}

	return nil
}

// forceCategory uploads every local file in one category, reusing the
// remote file ID when a same-named remote file already exists.
func (e *Engine) forceCategory(ctx context.Context, pc *passContext, cat category) error {
	e.progress(cat.stage, 0, 1, "Scanning local files...")

	locals, err := scanDir(cat.dir, cat.match)
	if err != nil {
		return err
	}

	if len(locals) == 0 {
		e.progress(cat.stage, 1, 1, "Nothing to upload")
		return nil
	}

	remotes, err := e.listRemote(ctx, cat)
	if err != nil {
		return err
	}

	for i, lf := range locals {
		act := &action{
			typ:        actionUpload,
			localPath:  lf.path,
			remoteName: lf.name,
		}
		if rf, ok := remotes[lf.name]; ok {
			act.remoteID = rf.ID
		}

		e.executeAction(ctx, pc, cat, act, i+1, len(locals), nil)
	}

	return nil
}

// forceTags uploads the tags file if it exists locally.
func (e *Engine) forceTags(ctx context.Context, pc *passContext) error {
	localPath := filepath.Join(e.diaryDir, tagsFileName)

	if _, err := os.Stat(localPath); err != nil {
		if os.IsNotExist(err) {
			e.progress(StageTags, 1, 1, "Nothing to upload")
			return nil
		}

		return fmt.Errorf("sync: stat %s: %w", localPath, err)
	}

	remote, err := e.remote.FindFile(ctx, tagsFileName, pc.meta.AppFolderID)
	if err != nil {
		return err
	}

	act := &action{
		typ:        actionUpload,
		localPath:  localPath,
		remoteName: tagsFileName,
	}
	if remote != nil {
		act.remoteID = remote.ID
	}

	cat := category{
		stage:    StageTags,
		dir:      e.diaryDir,
		folderID: pc.meta.AppFolderID,
		mimeType: tagsMimeType,
	}

	e.executeAction(ctx, pc, cat, act, 1, 1, nil)

	return nil
}
