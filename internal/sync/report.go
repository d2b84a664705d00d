package sync

// Report summarizes one sync pass. A non-empty Errors list with a nil
// pass error means partial success: the pass completed, metadata was
// updated for the items that succeeded, and the listed items failed.
type Report struct {
	PassID            string   `json:"passId"`
	Uploaded          []string `json:"uploaded"`
	Downloaded        []string `json:"downloaded"`
	DeletedLocal      []string `json:"deletedLocal"`
	DeletedRemote     []string `json:"deletedRemote"`
	ConflictsResolved []string `json:"conflictsResolved"`
	Errors            []string `json:"errors"`
	DurationMs        int64    `json:"durationMs"`
}

func newReport(passID string) *Report {
	return &Report{
		PassID:            passID,
		Uploaded:          []string{},
		Downloaded:        []string{},
		DeletedLocal:      []string{},
		DeletedRemote:     []string{},
		ConflictsResolved: []string{},
		Errors:            []string{},
	}
}

// HasErrors reports whether any per-item action failed.
func (r *Report) HasErrors() bool {
	return len(r.Errors) > 0
}
