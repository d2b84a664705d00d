package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bingoyes/diarysync/internal/metastore"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show account, diary, and last-sync state",
		RunE:  runStatus,
	}
}

// statusOutput is the JSON schema for `status --json`.
type statusOutput struct {
	Authenticated bool   `json:"authenticated"`
	Email         string `json:"email,omitempty"`
	DiaryDir      string `json:"diaryDir"`
	LastSyncTime  string `json:"lastSyncTime,omitempty"`
	TrackedFiles  int    `json:"trackedFiles"`
	SyncMode      string `json:"syncMode"`
}

func runStatus(_ *cobra.Command, _ []string) error {
	logger := buildLogger()

	mgr, err := newManager(logger)
	if err != nil {
		return err
	}

	meta := metastore.NewStore(resolvedCfg.Diary.DataDir, logger).Load()

	out := statusOutput{
		Authenticated: mgr.IsAuthenticated(),
		Email:         mgr.Email(),
		DiaryDir:      resolvedCfg.Diary.Dir,
		LastSyncTime:  meta.LastSyncTime,
		TrackedFiles:  len(meta.Files),
		SyncMode:      meta.Settings.Mode,
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(out)
	}

	if out.Authenticated {
		if out.Email != "" {
			fmt.Printf("Account:       %s\n", out.Email)
		} else {
			fmt.Println("Account:       logged in")
		}
	} else {
		fmt.Println("Account:       not logged in")
	}

	fmt.Printf("Diary:         %s\n", valueOrUnset(out.DiaryDir))
	fmt.Printf("Last sync:     %s\n", valueOrNever(out.LastSyncTime))
	fmt.Printf("Tracked files: %d\n", out.TrackedFiles)
	fmt.Printf("Sync mode:     %s\n", out.SyncMode)

	return nil
}

func valueOrUnset(s string) string {
	if s == "" {
		return "(not set)"
	}

	return s
}

func valueOrNever(s string) string {
	if s == "" {
		return "never"
	}

	return s
}
