package sync

// Stage identifies one phase of a sync pass. Stages always run in a
// fixed order: init, entries, tags, images.
type Stage string

// Pass stages.
const (
	StageInit    Stage = "init"
	StageEntries Stage = "entries"
	StageTags    Stage = "tags"
	StageImages  Stage = "images"
)

// Progress is one ordered progress event. Within a stage, Current
// increases monotonically up to Total — or reports 1/1 when the stage
// had nothing to do.
type Progress struct {
	Stage   Stage  `json:"stage"`
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Message string `json:"message"`
}

// Observer receives sync lifecycle events. The engine calls it
// synchronously from the pass goroutine, so implementations should
// return quickly.
type Observer interface {
	SyncStarted()
	SyncProgress(p Progress)
	SyncCompleted(report *Report)
}

// NopObserver discards all events.
type NopObserver struct{}

func (NopObserver) SyncStarted()          {}
func (NopObserver) SyncProgress(Progress) {}
func (NopObserver) SyncCompleted(*Report) {}
