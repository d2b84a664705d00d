package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmdSubcommands(t *testing.T) {
	cmd := newRootCmd()

	want := []string{"login", "logout", "whoami", "status", "sync", "push", "daemon", "config"}
	for _, name := range want {
		found := false

		for _, sub := range cmd.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}

		assert.True(t, found, "missing subcommand %q", name)
	}
}

func TestRootCmdFlags(t *testing.T) {
	cmd := newRootCmd()

	for _, name := range []string{"config", "diary-dir", "json", "verbose", "quiet"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "missing flag %q", name)
	}
}

func TestDaemonFlags(t *testing.T) {
	cmd := newDaemonCmd()

	require.NotNil(t, cmd.Flags().Lookup("watch"))
	require.NotNil(t, cmd.Flags().Lookup("interval"))
}

func TestConfigSetClientArgs(t *testing.T) {
	cmd := newConfigSetClientCmd()

	assert.Error(t, cmd.Args(cmd, nil))
	assert.NoError(t, cmd.Args(cmd, []string{"client-id"}))
	assert.NoError(t, cmd.Args(cmd, []string{"client-id", "secret"}))
	assert.Error(t, cmd.Args(cmd, []string{"a", "b", "c"}))
}
