package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/bingoyes/diarysync/internal/sync"
)

// statusf prints a status message to stderr unless quiet mode is set.
func statusf(format string, args ...any) {
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// terminalObserver prints progress lines to stderr as a pass runs.
// Suppressed in quiet mode; the final report is printed by the command
// itself so --json keeps working.
type terminalObserver struct{}

func (terminalObserver) SyncStarted() {
	statusf("Starting sync...\n")
}

func (terminalObserver) SyncProgress(p sync.Progress) {
	statusf("[%s] %d/%d %s\n", p.Stage, p.Current, p.Total, p.Message)
}

func (terminalObserver) SyncCompleted(*sync.Report) {}

// printReport renders a completed pass, honoring --json.
func printReport(r *sync.Report) error {
	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		if err := enc.Encode(r); err != nil {
			return err
		}
	} else {
		fmt.Printf("Uploaded %d, downloaded %d, conflicts resolved %d in %dms\n",
			len(r.Uploaded), len(r.Downloaded), len(r.ConflictsResolved), r.DurationMs)

		for _, e := range r.Errors {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", e)
		}
	}

	if r.HasErrors() {
		return fmt.Errorf("%d item(s) failed to sync", len(r.Errors))
	}

	return nil
}
