package main

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/CoastalDD/utils"
)

// writeChannel writes a 4x2-cell channel split into two domains and returns
// the directory and file names.
func writeChannel(t *testing.T) (dir, meshFile, ifaceFile, depthFile string) {
	t.Helper()
	g, iface, err := utils.Channel(4, 2, 4000, 2000, 2)
	require.NoError(t, err)
	dir = t.TempDir()
	meshFile, ifaceFile, depthFile, err = utils.WriteFiles(dir, g, iface, utils.SlopingDepth(g, 10, 30))
	require.NoError(t, err)
	return dir, meshFile, ifaceFile, depthFile
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestInspect(t *testing.T) {
	_, meshFile, ifaceFile, depthFile := writeChannel(t)
	out, logs, err := execute(t, "inspect", "-v", "--mesh", meshFile, "--interface", ifaceFile, "--depth", depthFile)
	require.NoError(t, err)

	assert.Contains(t, out, "Global mesh: 15 vertices, 16 triangles, 3 interface vertices")
	assert.Contains(t, out, "Domains: 2")
	assert.Contains(t, out, "=== Domain 1 ===")
	assert.Contains(t, out, "=== Domain 2 ===")
	assert.Contains(t, out, "Neighbors: [2]")
	assert.Contains(t, out, "Neighbors: [1]")
	assert.Contains(t, logs, "domain extracted")

	out, _, err = execute(t, "inspect", "--mesh", meshFile, "--interface", ifaceFile, "--depth", depthFile, "--domain", "2")
	require.NoError(t, err)
	assert.NotContains(t, out, "=== Domain 1 ===")
	assert.Contains(t, out, "Neighbors: []")

	_, _, err = execute(t, "inspect", "--mesh", meshFile, "--interface", ifaceFile, "--depth", depthFile, "--domain", "9")
	assert.Error(t, err)

	_, _, err = execute(t, "inspect", "--mesh", meshFile)
	assert.Error(t, err)
}

func TestSolve(t *testing.T) {
	dir, _, _, _ := writeChannel(t)
	cfg := filepath.Join(dir, "run.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(`
mesh:
  mesh_file: mesh.txt
  interface_file: interface.txt
  depth_file: depth.txt
physics:
  amplitude: 0.5
output:
  directory: out
`), 0o644))

	out, _, err := execute(t, "solve", "--config", cfg, "--workers", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Domain 1:")
	assert.Contains(t, out, "Domain 2:")
	assert.Contains(t, out, "Interface mismatch:")

	for _, name := range []string{"domain_1.csv", "domain_2.csv"} {
		rows := readCSV(t, filepath.Join(dir, "out", name))
		assert.Equal(t, "local", rows[0][0])
		assert.Len(t, rows, 10, "%s: header plus 9 vertices", name)
	}

	rows := readCSV(t, filepath.Join(dir, "out", "solution.csv"))
	require.Len(t, rows, 16)
	// The open boundary carries the forcing amplitude
	for _, r := range rows[1:] {
		x, err := strconv.ParseFloat(r[1], 64)
		require.NoError(t, err)
		if x == 0 {
			amp, err := strconv.ParseFloat(r[5], 64)
			require.NoError(t, err)
			assert.InDelta(t, 0.5, amp, 1e-9)
		}
	}
}

func TestSolveRejectsBadConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "run.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("physics: {gravity: 9.81}\n"), 0o644))
	_, _, err := execute(t, "solve", "--config", cfg)
	assert.Error(t, err)

	_, _, err = execute(t, "solve")
	assert.Error(t, err)
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}
