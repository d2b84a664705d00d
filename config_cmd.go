package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bingoyes/diarysync/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and modify diarysync configuration",
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigSetClientCmd())
	cmd.AddCommand(newConfigClearCredentialsCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE:  runConfigShow,
	}
}

func newConfigSetClientCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-client <client-id> [client-secret]",
		Short: "Store the Google OAuth client credentials",
		Long: "Stores the OAuth client ID (and optional client secret) used for login. " +
			"Create a desktop-type OAuth client in the Google Cloud console and paste " +
			"its ID here before running 'diarysync login'.",
		Args: cobra.RangeArgs(1, 2),
		RunE: runConfigSetClient,
	}
}

func newConfigClearCredentialsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-credentials",
		Short: "Remove all stored tokens and OAuth client credentials",
		RunE:  runConfigClearCredentials,
	}
}

func runConfigShow(_ *cobra.Command, _ []string) error {
	fmt.Printf("Config file:   %s\n", configPathInUse())
	fmt.Printf("Diary dir:     %s\n", valueOrUnset(resolvedCfg.Diary.Dir))
	fmt.Printf("Data dir:      %s\n", resolvedCfg.Diary.DataDir)
	fmt.Printf("Sync interval: %dm\n", resolvedCfg.Sync.IntervalMinutes)
	fmt.Printf("Watch:         %v\n", resolvedCfg.Sync.Watch)
	fmt.Printf("Log level:     %s\n", resolvedCfg.Logging.Level)
	fmt.Printf("Log format:    %s\n", resolvedCfg.Logging.Format)

	return nil
}

func configPathInUse() string {
	if flagConfigPath != "" {
		return flagConfigPath
	}

	if env := config.ReadEnvOverrides(); env.ConfigPath != "" {
		return env.ConfigPath
	}

	return config.DefaultConfigPath()
}

func runConfigSetClient(_ *cobra.Command, args []string) error {
	logger := buildLogger()

	mgr, err := newManager(logger)
	if err != nil {
		return err
	}

	clientSecret := ""
	if len(args) == 2 {
		clientSecret = args[1]
	}

	if err := mgr.SaveClientCredentials(args[0], clientSecret); err != nil {
		return err
	}

	statusf("OAuth client saved. Run 'diarysync login' to connect an account.\n")

	return nil
}

func runConfigClearCredentials(_ *cobra.Command, _ []string) error {
	logger := buildLogger()

	mgr, err := newManager(logger)
	if err != nil {
		return err
	}

	if err := mgr.ClearAllCredentials(); err != nil {
		return err
	}

	statusf("All credentials removed.\n")

	return nil
}
