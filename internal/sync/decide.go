package sync

import (
	"github.com/bingoyes/diarysync/internal/drive"
	"github.com/bingoyes/diarysync/internal/metastore"
)

// emptyThreshold is the size below which a file is treated as having
// no real content — e.g. a bare date header with no body. Such files
// never win against a non-trivial counterpart and are not worth
// creating on the remote.
const emptyThreshold = 20

// actionType tags a planned sync action.
type actionType int

const (
	actionUpload actionType = iota
	actionDownload
	actionDeleteLocal
	actionDeleteRemote
)

// action is one planned transfer, computed and consumed within a
// single pass. Never persisted.
type action struct {
	typ        actionType
	localPath  string
	remoteName string
	remoteID   string // upload target for in-place update; download source
}

// pairState is the input to the per-pair decision: a local file and an
// optionally-present remote counterpart with the same name, plus the
// stored state from the last successful sync of this path.
type pairState struct {
	name          string
	localPath     string
	localHash     string
	localModified string
	localSize     int64
	remote        *drive.File
	stored        *metastore.FileState
}

// decision is the outcome of the pair decision procedure.
type decision struct {
	act *action // nil means the pair is in sync
	// conflict is set when both sides changed and last-write-wins
	// picked a direction.
	conflict bool
}

// decidePair implements the per-pair decision procedure for a local
// file and its optional remote counterpart:
//
//  1. Remote absent: upload, unless the local file is near-empty.
//  2. Both present, exactly one side near-empty: the non-trivial side
//     wins regardless of timestamps.
//  3. Both present otherwise: compare against the stored state. Both
//     changed is a conflict resolved last-write-wins; one side changed
//     transfers that side; neither changed is a no-op. With no stored
//     state (first sync of this path) the newer timestamp wins.
//
// Remote-only names are handled by the caller, which knows the
// download path to materialize.
func decidePair(p pairState) decision {
	localIsEmpty := p.localSize < emptyThreshold

	if p.remote == nil {
		if localIsEmpty {
			return decision{}
		}

		return decision{act: &action{
			typ:        actionUpload,
			localPath:  p.localPath,
			remoteName: p.name,
		}}
	}

	upload := &action{
		typ:        actionUpload,
		localPath:  p.localPath,
		remoteName: p.name,
		remoteID:   p.remote.ID,
	}
	download := &action{
		typ:        actionDownload,
		localPath:  p.localPath,
		remoteName: p.name,
		remoteID:   p.remote.ID,
	}

	remoteIsEmpty := p.remote.Size < emptyThreshold

	switch {
	case localIsEmpty && !remoteIsEmpty:
		return decision{act: download}
	case !localIsEmpty && remoteIsEmpty:
		return decision{act: upload}
	}

	if p.stored != nil {
		localChanged := p.stored.SyncedHash != p.localHash
		remoteChanged := p.stored.RemoteModified != p.remote.ModifiedTime

		switch {
		case localChanged && remoteChanged:
			if compareTimestamps(p.localModified, p.remote.ModifiedTime) > 0 {
				return decision{act: upload, conflict: true}
			}

			return decision{act: download, conflict: true}
		case localChanged:
			return decision{act: upload}
		case remoteChanged:
			return decision{act: download}
		default:
			return decision{}
		}
	}

	// First time this path is seen: newer side wins.
	if compareTimestamps(p.localModified, p.remote.ModifiedTime) > 0 {
		return decision{act: upload}
	}

	return decision{act: download}
}
