package panotwist

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/pano-twist/pkg/equirect"
	"github.com/menta2k/pano-twist/pkg/imageio"
	"github.com/menta2k/pano-twist/pkg/metadata"
)

// createTestPanorama builds a panorama whose pixels encode their coordinates.
func createTestPanorama(width, height int) *equirect.Image {
	img := equirect.New(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, equirect.RGB{R: uint8(10 + x*20), G: uint8(10 + y*30), B: 200})
		}
	}
	return img
}

func writeFolder(t *testing.T, images map[string]*equirect.Image) string {
	t.Helper()
	dir := t.TempDir()
	codec := imageio.New()
	for name, img := range images {
		require.NoError(t, codec.Write(filepath.Join(dir, name), img))
	}
	return dir
}

func waitJob(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not finish")
	}
}

func TestNew(t *testing.T) {
	editor := New(Options{})
	require.NotNil(t, editor)

	assert.Equal(t, -1, editor.Index())
	assert.Equal(t, DefaultOutputSubfolder, editor.subfolder)
	assert.False(t, editor.Patch(equirect.Nadir).Enabled)
	assert.Equal(t, equirect.Zenith, editor.Patch(equirect.Zenith).Side)

	_, _, ok := editor.Current()
	assert.False(t, ok)
}

func TestSetFolderSwapsSelectedToFront(t *testing.T) {
	dir := writeFolder(t, map[string]*equirect.Image{
		"a.png": createTestPanorama(8, 4),
		"b.png": createTestPanorama(8, 4),
		"c.png": createTestPanorama(16, 8),
	})
	editor := New(Options{})

	require.NoError(t, editor.SetFolder(dir, []string{"a.png", "b.png", "c.png"}, "c.png"))

	assert.Equal(t, []string{"c.png", "b.png", "a.png"}, editor.Files())
	name, img, ok := editor.Current()
	require.True(t, ok)
	assert.Equal(t, "c.png", name)
	assert.Equal(t, 16, img.Width)
}

func TestSetFolderEmpty(t *testing.T) {
	editor := New(Options{})
	require.NoError(t, editor.SetFolder(t.TempDir(), nil, ""))
	assert.Equal(t, -1, editor.Index())

	_, err := editor.SaveChecks()
	assert.ErrorIs(t, err, ErrNoImage)
}

func TestNavigationResetsRotation(t *testing.T) {
	dir := writeFolder(t, map[string]*equirect.Image{
		"a.png": createTestPanorama(8, 4),
		"b.png": createTestPanorama(8, 4),
	})
	editor := New(Options{})
	require.NoError(t, editor.SetFolder(dir, []string{"a.png", "b.png"}, ""))

	moved, err := editor.Prev()
	require.NoError(t, err)
	assert.False(t, moved)

	editor.SetAngle(1)
	moved, err = editor.Next()
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, 1, editor.Index())
	assert.Zero(t, editor.Angle())

	moved, err = editor.Next()
	require.NoError(t, err)
	assert.False(t, moved)

	moved, err = editor.Prev()
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, 0, editor.Index())
}

func TestLoadErrors(t *testing.T) {
	dir := writeFolder(t, map[string]*equirect.Image{"a.png": createTestPanorama(8, 4)})
	editor := New(Options{})
	require.NoError(t, editor.SetFolder(dir, []string{"a.png", "gone.png"}, ""))

	assert.Error(t, editor.Load(5))
	assert.Error(t, editor.Load(1))
	assert.Equal(t, 0, editor.Index())
}

func TestDrag(t *testing.T) {
	dir := writeFolder(t, map[string]*equirect.Image{"a.png": createTestPanorama(8, 4)})
	editor := New(Options{})

	assert.False(t, editor.DragTo(10, 100), "no drag without a panorama")

	require.NoError(t, editor.SetFolder(dir, []string{"a.png"}, ""))
	editor.SetAngle(math.Pi / 2)

	editor.BeginDrag(10)
	assert.True(t, editor.Dragging())
	require.True(t, editor.DragTo(60, 100))
	assert.InDelta(t, 3*math.Pi/2, editor.Angle(), 1e-12)

	require.True(t, editor.DragTo(-40, 100))
	assert.InDelta(t, 3*math.Pi/2, editor.Angle(), 1e-12)

	require.True(t, editor.DragTo(-90, 100))
	assert.InDelta(t, math.Pi/2, editor.Angle(), 1e-12)

	editor.EndDrag()
	assert.False(t, editor.DragTo(0, 100))
	assert.InDelta(t, math.Pi/2, editor.Angle(), 1e-12)
}

func TestPreviewLeavesSourceUntouched(t *testing.T) {
	src := createTestPanorama(8, 4)
	dir := writeFolder(t, map[string]*equirect.Image{"a.png": src})
	editor := New(Options{})
	require.NoError(t, editor.SetFolder(dir, []string{"a.png"}, ""))

	_, err := New(Options{}).Preview(8, 4)
	assert.ErrorIs(t, err, ErrNoImage)

	editor.SetAngle(math.Pi)
	view, err := editor.Preview(8, 4)
	require.NoError(t, err)
	assert.Equal(t, src.At(0, 1), view.At(4, 1))

	_, current, _ := editor.Current()
	assert.True(t, current.Equal(src))

	small, err := editor.Preview(4, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, small.Width)
	assert.Equal(t, 2, small.Height)
}

func TestSaveChecks(t *testing.T) {
	dir := writeFolder(t, map[string]*equirect.Image{"a.png": createTestPanorama(8, 4)})
	editor := New(Options{})
	require.NoError(t, editor.SetFolder(dir, []string{"a.png"}, ""))

	out, err := editor.SaveChecks()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, DefaultOutputSubfolder), out)
	assert.DirExists(t, out)

	require.NoError(t, os.RemoveAll(dir))
	_, err = editor.SaveChecks()
	assert.ErrorIs(t, err, ErrFolderMissing)
}

func TestSaveChecksOutputBlocked(t *testing.T) {
	dir := writeFolder(t, map[string]*equirect.Image{"a.png": createTestPanorama(8, 4)})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "out"), []byte("file"), 0o644))

	editor := New(Options{OutputSubfolder: "out"})
	require.NoError(t, editor.SetFolder(dir, []string{"a.png"}, ""))

	_, err := editor.SaveChecks()
	assert.ErrorIs(t, err, ErrOutputUnavailable)

	_, err = editor.SaveAll(context.Background())
	assert.ErrorIs(t, err, ErrOutputUnavailable)
}

func TestApplyCurrentRotatesAndTags(t *testing.T) {
	src := createTestPanorama(8, 4)
	dir := writeFolder(t, map[string]*equirect.Image{"a.png": src})
	editor := New(Options{})
	require.NoError(t, editor.SetFolder(dir, []string{"a.png"}, ""))
	editor.SetAngle(math.Pi)

	path, err := editor.ApplyCurrent()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, DefaultOutputSubfolder, "a.png"), path)

	got, err := imageio.New().Read(path)
	require.NoError(t, err)
	for y := 0; y < 4; y++ {
		for x := 0; x < 8; x++ {
			assert.Equal(t, src.At(x, y), got.At((x+4)%8, y))
		}
	}

	pano, err := metadata.Read(path)
	require.NoError(t, err)
	assert.Equal(t, 8, pano.Width)
	assert.Equal(t, 4, pano.Height)
}

func TestApplyCurrentRescales(t *testing.T) {
	dir := writeFolder(t, map[string]*equirect.Image{"a.png": createTestPanorama(16, 8)})
	editor := New(Options{Tagger: metadata.Nop})
	require.NoError(t, editor.SetFolder(dir, []string{"a.png"}, ""))
	editor.SetMaxHeight(4)

	path, err := editor.ApplyCurrent()
	require.NoError(t, err)

	got, err := imageio.New().Read(path)
	require.NoError(t, err)
	assert.Equal(t, 8, got.Width)
	assert.Equal(t, 4, got.Height)
	assert.NoFileExists(t, metadata.SidecarPath(path))
}

func TestTagFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)
	failing := metadata.TaggerFunc(func(string, *equirect.Image) error {
		return os.ErrPermission
	})

	dir := writeFolder(t, map[string]*equirect.Image{"a.png": createTestPanorama(8, 4)})
	editor := New(Options{Tagger: failing, Logger: &log})
	require.NoError(t, editor.SetFolder(dir, []string{"a.png"}, ""))

	_, err := editor.ApplyCurrent()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "failed to write panorama metadata")
}

func TestSaveAllPatchesWithoutRotating(t *testing.T) {
	src := createTestPanorama(8, 4)
	dir := writeFolder(t, map[string]*equirect.Image{
		"a.png": src,
		"b.png": src,
	})

	var mu sync.Mutex
	var tagged []string
	tagger := metadata.TaggerFunc(func(path string, _ *equirect.Image) error {
		mu.Lock()
		defer mu.Unlock()
		tagged = append(tagged, filepath.Base(path))
		return nil
	})

	editor := New(Options{Tagger: tagger})
	require.NoError(t, editor.SetFolder(dir, []string{"a.png", "b.png", "missing.png"}, ""))
	editor.SetAngle(math.Pi)

	zenith := equirect.DefaultPatch(equirect.Zenith)
	zenith.Enabled = true
	zenith.Fill = equirect.FillColor
	zenith.AngleDeg = 90
	editor.SetPatch(zenith)

	job, err := editor.SaveAll(context.Background())
	require.NoError(t, err)
	waitJob(t, job.Done())

	snap := job.Snapshot()
	assert.Equal(t, 2, snap.Processed)
	assert.Equal(t, []string{"a.png", "b.png"}, job.Completed())
	assert.InDelta(t, 200.0/3, snap.Percent, 1e-9)

	got, err := imageio.New().Read(filepath.Join(editor.OutputDir(), "b.png"))
	require.NoError(t, err)
	assert.Equal(t, equirect.DefaultZenithColor, got.At(3, 0))
	assert.Equal(t, src.At(3, 1), got.At(3, 1))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a.png", "b.png"}, tagged)
}

func TestScanFolder(t *testing.T) {
	dir := writeFolder(t, map[string]*equirect.Image{
		"pano.png":   createTestPanorama(8, 4),
		"square.png": createTestPanorama(4, 4),
	})
	editor := New(Options{})

	_, err := editor.ScanFolder(context.Background(), filepath.Join(dir, "nope"))
	assert.ErrorIs(t, err, ErrFolderMissing)

	job, err := editor.ScanFolder(context.Background(), dir)
	require.NoError(t, err)
	waitJob(t, job.Done())

	assert.Equal(t, []string{"pano.png"}, job.Completed())
	assert.InDelta(t, 100.0, job.Snapshot().Percent, 1e-9)

	require.NoError(t, editor.SetFolder(dir, job.Completed(), ""))
	assert.Equal(t, 0, editor.Index())
}

func TestGetVersion(t *testing.T) {
	assert.Equal(t, Version, GetVersion())
}
