package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/pano-twist/internal/config"
	"github.com/menta2k/pano-twist/pkg/equirect"
	"github.com/menta2k/pano-twist/pkg/imageio"
	"github.com/menta2k/pano-twist/pkg/metadata"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writePanoramas(t *testing.T, sizes map[string][2]int) string {
	t.Helper()
	dir := t.TempDir()
	for name, size := range sizes {
		img := equirect.Filled(size[0], size[1], equirect.RGB{R: 90, G: 120, B: 150})
		require.NoError(t, imageio.New().Write(filepath.Join(dir, name), img))
	}
	return dir
}

func TestConfigInitAndShow(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "pano", "config.json")

	out, err := execute(t, "config", "init", "--config", cfgPath)
	require.NoError(t, err)
	assert.Equal(t, cfgPath, strings.TrimSpace(out))

	loaded, err := config.LoadFromFile(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), loaded)

	out, err = execute(t, "config", "show", "--config", cfgPath)
	require.NoError(t, err)
	var shown config.Config
	require.NoError(t, json.Unmarshal([]byte(out), &shown))
	assert.Equal(t, "Panotwist output", shown.Output.Subfolder)
}

func TestScanCommand(t *testing.T) {
	dir := writePanoramas(t, map[string][2]int{
		"a.png": {8, 4},
		"b.png": {5, 4},
		"c.png": {16, 8},
	})

	out, err := execute(t, "scan", dir, "--config", filepath.Join(dir, "none.json"))
	require.NoError(t, err)
	assert.Equal(t, "a.png\nc.png\n", out)
}

func TestApplyCommand(t *testing.T) {
	dir := writePanoramas(t, map[string][2]int{"a.png": {16, 8}})

	out, err := execute(t, "apply", filepath.Join(dir, "a.png"),
		"--config", filepath.Join(dir, "none.json"),
		"--rotate", "90",
		"--nadir", "--nadir-fill", "color", "--nadir-color", "#FF0000", "--nadir-angle", "90",
		"--max-height", "4",
	)
	require.NoError(t, err)

	path := strings.TrimSpace(out)
	assert.Equal(t, filepath.Join(dir, "Panotwist output", "a.png"), path)

	got, err := imageio.New().Read(path)
	require.NoError(t, err)
	assert.Equal(t, 8, got.Width)
	assert.Equal(t, 4, got.Height)
	assert.Equal(t, equirect.RGB{R: 255}, got.At(0, 3))
	assert.FileExists(t, metadata.SidecarPath(path))
}

func TestBatchCommand(t *testing.T) {
	dir := writePanoramas(t, map[string][2]int{
		"a.png":      {8, 4},
		"b.png":      {8, 4},
		"square.png": {4, 4},
	})

	_, err := execute(t, "batch", dir,
		"--config", filepath.Join(dir, "none.json"),
		"--zenith", "--zenith-fill", "color", "--zenith-angle", "90",
		"--no-sidecar",
	)
	require.NoError(t, err)

	outDir := filepath.Join(dir, "Panotwist output")
	for _, name := range []string{"a.png", "b.png"} {
		got, err := imageio.New().Read(filepath.Join(outDir, name))
		require.NoError(t, err)
		assert.Equal(t, equirect.DefaultZenithColor, got.At(0, 0))
		assert.NoFileExists(t, metadata.SidecarPath(filepath.Join(outDir, name)))
	}
	assert.NoFileExists(t, filepath.Join(outDir, "square.png"))
}

func TestInfoCommand(t *testing.T) {
	dir := writePanoramas(t, map[string][2]int{"a.png": {16, 8}})
	cfg := filepath.Join(dir, "none.json")
	src := filepath.Join(dir, "a.png")

	out, err := execute(t, "info", src, "--config", cfg)
	require.NoError(t, err)
	assert.Equal(t, "size: 16x8\nequirectangular: true\ngpano: none\n", out)

	out, err = execute(t, "apply", src, "--config", cfg)
	require.NoError(t, err)

	out, err = execute(t, "info", strings.TrimSpace(out), "--config", cfg)
	require.NoError(t, err)
	assert.Equal(t, "size: 16x8\nequirectangular: true\ngpano: 16x8\n", out)

	_, err = execute(t, "info", filepath.Join(dir, "missing.png"), "--config", cfg)
	assert.Error(t, err)
}

func TestInvalidFlags(t *testing.T) {
	dir := writePanoramas(t, map[string][2]int{"a.png": {8, 4}})

	_, err := execute(t, "apply", filepath.Join(dir, "a.png"),
		"--config", filepath.Join(dir, "none.json"),
		"--nadir-angle", "120",
	)
	assert.Error(t, err)

	_, err = execute(t, "scan", filepath.Join(dir, "missing"), "--config", filepath.Join(dir, "none.json"))
	assert.Error(t, err)
}
