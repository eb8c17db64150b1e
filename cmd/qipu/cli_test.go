package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCLI executes rootCmd with args, resetting persistent flags to their
// default values first so tests don't leak state through cobra's shared
// package-level flag variables.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	rootFlag = "."
	quiet = false
	verbose = false

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestCLIInitCreateSearchRoundTrip(t *testing.T) {
	root := t.TempDir()

	_, err := runCLI(t, "init", root)
	require.NoError(t, err)

	_, err = runCLI(t, "--root", root, "create", "My Note", "--body", "hello from the cli")
	require.NoError(t, err)

	entries, err := filepath.Glob(filepath.Join(root, "notes", "*.md"))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	_, err = runCLI(t, "--root", root, "search", "hello")
	require.NoError(t, err)
}

func TestCLIDoctorReportsNoIssuesOnFreshStore(t *testing.T) {
	root := t.TempDir()
	_, err := runCLI(t, "init", root)
	require.NoError(t, err)

	_, err = runCLI(t, "--root", root, "doctor")
	assert.NoError(t, err)
}
