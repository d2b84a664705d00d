package main

import (
	"github.com/spf13/cobra"
)

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one bidirectional sync pass",
		RunE:  runSync,
	}
}

func newPushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Force-upload all local files, overwriting the remote copies",
		Long: "Uploads every local entry, the tags file, and every image to Google Drive " +
			"regardless of remote state. Never downloads or deletes. Use when the local " +
			"diary is known-good and the remote should match it.",
		RunE: runPush,
	}
}

func runSync(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	sess, err := buildSession(ctx, terminalObserver{})
	if err != nil {
		return err
	}

	report, err := sess.engine.Sync(ctx)
	if err != nil {
		return err
	}

	return printReport(report)
}

func runPush(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	sess, err := buildSession(ctx, terminalObserver{})
	if err != nil {
		return err
	}

	report, err := sess.engine.ForceUpload(ctx)
	if err != nil {
		return err
	}

	return printReport(report)
}
