package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the root command with args and returns its output.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "scenectl dev")
}

func TestSimulateCommand(t *testing.T) {
	out, err := run(t, "simulate", "-n", "4", "-f", "3", "--workers", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Simulation")
	assert.Contains(t, out, "4 / 64")
}

func TestSimulateCommand_SceneFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pair.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"roots":[0],"nodes":[{"children":[1]},{"translation":[1,0,0]}]}`), 0o600))

	out, err := run(t, "simulate", "--scene", path, "-n", "2", "-f", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Nodes/entity")

	out, err = run(t, "simulate", "--scene", path, "-n", "2", "-f", "1", "--scene-codec", "go-json")
	require.NoError(t, err)
	assert.Contains(t, out, "Nodes/entity")
}

func TestSimulateCommand_Errors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cycle.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"roots":[0],"nodes":[{"children":[1]},{"children":[0]}]}`), 0o600))

	_, err := run(t, "simulate", "--scene", path, "-n", "1", "-f", "1")
	assert.ErrorContains(t, err, "malformed scene")

	_, err = run(t, "simulate", "--scene", "", "-n", "1", "-f", "1", "--profile", "gpu")
	assert.ErrorContains(t, err, "unknown profile")

	_, err = run(t, "simulate", "--profile", "", "-n", "3", "-f", "1", "--capacity", "2")
	assert.ErrorContains(t, err, "capacity exhausted")

	_, err = run(t, "simulate", "--capacity", "64", "-n", "1", "-f", "1", "--scene-codec", "yaml")
	assert.ErrorContains(t, err, "unknown --scene-codec")

	// Flags are package globals; restore the defaults for later tests.
	_, err = run(t, "simulate", "-n", "1", "--capacity", "64", "--scene-codec", "sonnet")
	require.NoError(t, err)
}

func TestPoolsCommand(t *testing.T) {
	out, err := run(t, "pools", "--allocs", "64", "--free", "25", "--seed", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "Pool small")
	assert.Contains(t, out, "Pool medium")
	assert.Contains(t, out, "Tiers")
}

func TestCaptureAndInspect(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, "capture", "--dir", dir, "-n", "3", "-f", "2", "--codec", "zstd")
	require.NoError(t, err)
	assert.Contains(t, out, dir)

	first := filepath.Join(dir, "frames", "frame-000001.scap")
	require.FileExists(t, first)
	require.FileExists(t, filepath.Join(dir, "frames", "frame-000002.scap"))

	out, err = run(t, "inspect", first, "--matrices", "--codec", "lz4")
	require.NoError(t, err)
	assert.Contains(t, out, "frame-000001.scap")
	assert.Contains(t, out, "(2.000, 0.000, 0.000)")

	_, err = run(t, "inspect", filepath.Join(dir, "missing.scap"))
	assert.Error(t, err)
}
