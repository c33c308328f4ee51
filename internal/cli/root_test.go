package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "kerntest", cmd.Use)
	assert.Contains(t, cmd.Long, "Exit codes")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	sub, _, err := cmd.Find([]string{"history"})
	require.NoError(t, err)
	assert.Equal(t, "history", sub.Name())
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)
}

func TestRootFlags(t *testing.T) {
	cmd := NewRootCommand()

	output := cmd.Flags().Lookup("output")
	require.NotNil(t, output)
	assert.Equal(t, "o", output.Shorthand)
	assert.Equal(t, "", output.DefValue)

	defaults := map[string]string{
		"image":            "bin/OS-x86.iso",
		"log":              "kernel-x86.log",
		"qemu":             "qemu-system-i386",
		"boot-timeout":     "10s",
		"shutdown-timeout": "5s",
		"encoding":         "utf-8",
		"strict":           "false",
	}
	for name, want := range defaults {
		f := cmd.Flags().Lookup(name)
		require.NotNil(t, f, name)
		assert.Equal(t, want, f.DefValue, name)
	}
}

func TestResolveConfig_FlagsOverrideFile(t *testing.T) {
	opts := &RootOptions{}
	cmd := newRootCommand(opts)
	require.NoError(t, cmd.Flags().Parse([]string{"--config", "testdata/kerntest.yaml", "--boot-timeout", "45s", "--strict"}))

	cfg, err := resolveConfig(opts, cmd)
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, cfg.BootTimeout, "flag beats file")
	assert.Equal(t, "strict", cfg.Policy)
	assert.Equal(t, "FileSuite", cfg.Suite, "file beats default")
	assert.Equal(t, 2*time.Second, cfg.ShutdownTimeout, "unset flag does not clobber file")
}

func TestResolveConfig_Invalid(t *testing.T) {
	opts := &RootOptions{}
	cmd := newRootCommand(opts)
	require.NoError(t, cmd.Flags().Parse([]string{"--boot-timeout", "0s"}))

	_, err := resolveConfig(opts, cmd)
	assert.ErrorContains(t, err, "boot timeout must be positive")
}
