package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/bingoyes/diarysync/internal/auth"
)

// loginTimeout bounds how long login waits for the browser callback.
const loginTimeout = 5 * time.Minute

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Authenticate with Google Drive in the browser",
		RunE:  runLogin,
	}
}

var flagPurge bool

func newLogoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove saved authentication tokens",
		RunE:  runLogout,
	}

	cmd.Flags().BoolVar(&flagPurge, "purge", false, "also remove the stored OAuth client credentials")

	return cmd
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Display the authenticated account",
		RunE:  runWhoami,
	}
}

func runLogin(_ *cobra.Command, _ []string) error {
	logger := buildLogger()

	mgr, err := newManager(logger)
	if err != nil {
		return err
	}

	url, err := mgr.BuildAuthorizationURL(uuid.NewString())
	if err != nil {
		if errors.Is(err, auth.ErrNotConfigured) {
			return errors.New("no OAuth client configured, run 'diarysync config set-client' first")
		}

		return err
	}

	// Sign-in instructions must stay visible regardless of --quiet.
	fmt.Fprintf(os.Stderr, "To sign in, visit:\n\n  %s\n\nWaiting for the browser to complete sign-in...\n", url)

	ctx, cancel := context.WithTimeout(context.Background(), loginTimeout)
	defer cancel()

	code, err := auth.WaitForCode(ctx, logger)
	if err != nil {
		return fmt.Errorf("waiting for authorization: %w", err)
	}

	if err := mgr.ExchangeCode(ctx, code); err != nil {
		return err
	}

	logger.Info("login successful", "email", mgr.Email())
	statusf("Login successful")

	if email := mgr.Email(); email != "" {
		statusf(" (%s)", email)
	}

	statusf(".\n")

	return nil
}

func runLogout(_ *cobra.Command, _ []string) error {
	logger := buildLogger()

	mgr, err := newManager(logger)
	if err != nil {
		return err
	}

	if flagPurge {
		if err := mgr.ClearAllCredentials(); err != nil {
			return err
		}

		logger.Info("logout successful, credentials purged")
		statusf("Logged out and removed all credentials.\n")

		return nil
	}

	if err := mgr.Disconnect(); err != nil {
		return err
	}

	logger.Info("logout successful")
	statusf("Logged out.\n")

	return nil
}

// whoamiOutput is the JSON schema for `whoami --json`.
type whoamiOutput struct {
	Authenticated bool   `json:"authenticated"`
	Email         string `json:"email,omitempty"`
}

func runWhoami(_ *cobra.Command, _ []string) error {
	logger := buildLogger()

	mgr, err := newManager(logger)
	if err != nil {
		return err
	}

	out := whoamiOutput{
		Authenticated: mgr.IsAuthenticated(),
		Email:         mgr.Email(),
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(out)
	}

	if !out.Authenticated {
		fmt.Println("Not logged in.")
		return nil
	}

	if out.Email != "" {
		fmt.Printf("Logged in as %s\n", out.Email)
	} else {
		fmt.Println("Logged in.")
	}

	return nil
}
