package sync

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bingoyes/diarysync/internal/drive"
)

const tagsMimeType = "application/json"

// syncTags reconciles the single aggregate tags file, which lives at
// the diary root locally and at the app folder root remotely. The same
// pair decision procedure applies; only the lookup differs, since there
// is exactly one candidate on each side.
func (e *Engine) syncTags(ctx context.Context, pc *passContext) error {
	cat := category{
		stage:      StageTags,
		dir:        e.diaryDir,
		folderID:   pc.meta.AppFolderID,
		metaPrefix: "",
		mimeType:   tagsMimeType,
	}

	localPath := filepath.Join(e.diaryDir, tagsFileName)

	localExists := true
	if _, err := os.Stat(localPath); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("sync: stat %s: %w", localPath, err)
		}

		localExists = false
	}

	remote, err := e.remote.FindFile(ctx, tagsFileName, pc.meta.AppFolderID)
	if err != nil {
		return err
	}

	switch {
	case !localExists && remote == nil:
		e.progress(StageTags, 1, 1, "Up to date")
		return nil

	case !localExists:
		act := &action{
			typ:        actionDownload,
			localPath:  localPath,
			remoteName: tagsFileName,
			remoteID:   remote.ID,
		}
		e.executeAction(ctx, pc, cat, act, 1, 1, nil)

		return nil
	}

	lf := localFile{name: tagsFileName, path: localPath}

	remotes := map[string]drive.File{}
	if remote != nil {
		remotes[tagsFileName] = *remote
	}

	pair, err := e.buildPairState(pc.meta, cat, lf, remotes)
	if err != nil {
		return err
	}

	d := decidePair(pair)
	if d.act == nil {
		e.progress(StageTags, 1, 1, "Up to date")
		return nil
	}

	conflicts := map[string]bool{}
	if d.conflict {
		conflicts[tagsFileName] = true
	}

	e.executeAction(ctx, pc, cat, d.act, 1, 1, conflicts)

	return nil
}
