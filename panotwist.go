// Package panotwist edits equirectangular 360° panoramas: it rotates them
// around the vertical axis, patches the nadir and zenith, limits their size
// and saves them with panorama metadata.
//
// Basic usage:
//
//	package main
//
//	import (
//		"log"
//		"math"
//
//		panotwist "github.com/menta2k/pano-twist"
//		"github.com/menta2k/pano-twist/pkg/equirect"
//	)
//
//	func main() {
//		editor := panotwist.New(panotwist.Options{})
//
//		if err := editor.SetFolder("/photos/trip", []string{"pano.jpg"}, ""); err != nil {
//			log.Fatal(err)
//		}
//
//		nadir := equirect.DefaultPatch(equirect.Nadir)
//		nadir.Enabled = true
//		editor.SetPatch(nadir)
//		editor.SetAngle(math.Pi / 2)
//
//		path, err := editor.ApplyCurrent()
//		if err != nil {
//			log.Fatal(err)
//		}
//		log.Printf("wrote %s", path)
//	}
//
// The package is built from these components:
//
//  1. Engine (pkg/equirect): pixel buffer, rotation, patching, rescaling
//  2. Batch (pkg/batch): cancellable background jobs with progress snapshots
//  3. Image I/O (pkg/imageio) and metadata (pkg/metadata)
//  4. Scanner (pkg/scanner): finds 2:1 panoramas in a folder
package panotwist

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/menta2k/pano-twist/internal/logger"
	"github.com/menta2k/pano-twist/internal/utils"
	"github.com/menta2k/pano-twist/pkg/batch"
	"github.com/menta2k/pano-twist/pkg/equirect"
	"github.com/menta2k/pano-twist/pkg/imageio"
	"github.com/menta2k/pano-twist/pkg/metadata"
	"github.com/menta2k/pano-twist/pkg/scanner"
)

// Version of the pano twist library
const Version = "1.0.0"

// DefaultOutputSubfolder is created inside the opened folder to hold results.
const DefaultOutputSubfolder = "Panotwist output"

var (
	// ErrFolderMissing is returned when the opened folder no longer exists.
	ErrFolderMissing = errors.New("folder does not exist")
	// ErrOutputUnavailable is returned when the output subfolder cannot be
	// created.
	ErrOutputUnavailable = errors.New("output folder unavailable")
	// ErrNoImage is returned by operations that need a loaded panorama.
	ErrNoImage = errors.New("no panorama loaded")
)

// Options configures an Editor. Zero values select the defaults.
type Options struct {
	OutputSubfolder string
	Codec           imageio.ReadWriter
	Tagger          metadata.Tagger
	Logger          *zerolog.Logger
}

// Editor holds the open folder, the current panorama and the edit settings.
// It is meant to be driven from a single goroutine; background jobs receive
// a copy of the settings when they start.
type Editor struct {
	subfolder string
	codec     imageio.ReadWriter
	tagger    metadata.Tagger
	log       zerolog.Logger

	transform equirect.Transform

	folder  string
	files   []string
	index   int
	current *equirect.Image

	view     *equirect.Image
	viewSize [2]int

	dragging   bool
	dragStartX float64
	dragAngle  float64
}

// New creates an Editor with no folder open.
func New(opts Options) *Editor {
	e := &Editor{
		subfolder: opts.OutputSubfolder,
		codec:     opts.Codec,
		tagger:    opts.Tagger,
		log:       zerolog.Nop(),
		transform: equirect.NewTransform(),
		index:     -1,
	}
	if e.subfolder == "" {
		e.subfolder = DefaultOutputSubfolder
	}
	if e.codec == nil {
		e.codec = imageio.New()
	}
	if e.tagger == nil {
		e.tagger = metadata.Sidecar{}
	}
	if opts.Logger != nil {
		e.log = logger.Component(*opts.Logger, "editor")
	}
	return e
}

// Transform returns a copy of the current edit settings.
func (e *Editor) Transform() equirect.Transform {
	return e.transform
}

// SetTransform replaces all edit settings at once.
func (e *Editor) SetTransform(t equirect.Transform) {
	e.transform = t
}

// Angle returns the current rotation in radians.
func (e *Editor) Angle() float64 {
	return e.transform.Angle
}

// SetAngle sets the rotation, reduced into [0, 2π).
func (e *Editor) SetAngle(angle float64) {
	e.transform.Angle = normalizeAngle(angle)
}

// Patch returns the settings for one pole.
func (e *Editor) Patch(side equirect.Side) equirect.PatchSpec {
	if side == equirect.Zenith {
		return e.transform.Zenith
	}
	return e.transform.Nadir
}

// SetPatch stores spec for the pole named by spec.Side.
func (e *Editor) SetPatch(spec equirect.PatchSpec) {
	if spec.Side == equirect.Zenith {
		e.transform.Zenith = spec
		return
	}
	e.transform.Nadir = spec
}

// LoadPatchSource reads the photo at path and uses its centre as the
// source picture for side.
func (e *Editor) LoadPatchSource(side equirect.Side, path string) error {
	img, err := e.codec.Read(path)
	if err != nil {
		return fmt.Errorf("failed to load patch source: %w", err)
	}
	spec := e.Patch(side)
	spec.Side = side
	spec.Source = equirect.NewSourcePatch(img.ToNRGBA())
	e.SetPatch(spec)
	e.log.Debug().Stringer("side", side).Int("size", spec.Source.Size()).Msg("patch source loaded")
	return nil
}

// SetMaxHeight limits saved panoramas to maxHeight rows; 0 disables it.
func (e *Editor) SetMaxHeight(maxHeight int) {
	e.transform.MaxHeight = max(maxHeight, 0)
}

// ScanFolder starts a background job that reads every image in dir and keeps
// the 2:1 ones. Progress counts every file read.
func (e *Editor) ScanFolder(ctx context.Context, dir string) (*batch.Job[*equirect.Image], error) {
	if !utils.DirExists(dir) {
		return nil, fmt.Errorf("%w: %s", ErrFolderMissing, dir)
	}
	names, err := scanner.ListImages(dir)
	if err != nil {
		return nil, err
	}
	e.log.Info().Str("folder", dir).Int("files", len(names)).Msg("scanning folder")

	return batch.Start(ctx, names, scanner.ClassifyWork(e.codec, dir),
		batch.CountAttempts[*equirect.Image](),
		batch.WithLogger[*equirect.Image](e.log.With().Str("job", "scan").Logger()),
	), nil
}

// SetFolder switches to dir with the given panorama names. When selected is
// in the list it trades places with the first entry. The first panorama is
// loaded; an empty list closes the folder.
func (e *Editor) SetFolder(dir string, names []string, selected string) error {
	files := make([]string, len(names))
	copy(files, names)
	if pos := lo.IndexOf(files, selected); pos > 0 {
		files[0], files[pos] = files[pos], files[0]
	}

	e.folder = dir
	e.files = files
	e.index = -1
	e.current = nil
	e.view = nil

	if len(files) == 0 {
		return nil
	}
	return e.Load(0)
}

// Folder returns the open folder.
func (e *Editor) Folder() string {
	return e.folder
}

// Files returns the panorama names in display order.
func (e *Editor) Files() []string {
	out := make([]string, len(e.files))
	copy(out, e.files)
	return out
}

// Index returns the position of the current panorama, or -1.
func (e *Editor) Index() int {
	return e.index
}

// Load reads the panorama at position i. The rotation is reset to zero.
func (e *Editor) Load(i int) error {
	if i < 0 || i >= len(e.files) {
		return fmt.Errorf("index %d out of range [0, %d)", i, len(e.files))
	}
	img, err := e.codec.Read(filepath.Join(e.folder, e.files[i]))
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", e.files[i], err)
	}

	e.index = i
	e.current = img
	e.view = nil
	e.transform.Angle = 0
	e.dragging = false

	e.log.Debug().
		Str("file", e.files[i]).
		Int("width", img.Width).
		Int("height", img.Height).
		Msgf("file %d of %d", i+1, len(e.files))
	return nil
}

// Next loads the following panorama. At the end of the list it does nothing
// and returns false.
func (e *Editor) Next() (bool, error) {
	if e.index < 0 || e.index >= len(e.files)-1 {
		return false, nil
	}
	return true, e.Load(e.index + 1)
}

// Prev loads the preceding panorama. At the start of the list it does
// nothing and returns false.
func (e *Editor) Prev() (bool, error) {
	if e.index <= 0 {
		return false, nil
	}
	return true, e.Load(e.index - 1)
}

// Current returns the name and full-size pixels of the loaded panorama.
// The image must not be modified.
func (e *Editor) Current() (string, *equirect.Image, bool) {
	if e.index < 0 || e.current == nil {
		return "", nil, false
	}
	return e.files[e.index], e.current, true
}

// BeginDrag records the pointer position and rotation at the start of a
// drag.
func (e *Editor) BeginDrag(x float64) {
	e.dragging = true
	e.dragStartX = x
	e.dragAngle = e.transform.Angle
}

// DragTo updates the rotation from the pointer position. viewWidth is the
// width of the displayed panorama, which spans one full turn.
func (e *Editor) DragTo(x, viewWidth float64) bool {
	if !e.dragging || e.current == nil {
		return false
	}
	e.transform.Angle = normalizeAngle(e.dragAngle + equirect.DragAngle(x-e.dragStartX, viewWidth))
	return true
}

// EndDrag finishes the drag; the rotation keeps its last value.
func (e *Editor) EndDrag() {
	e.dragging = false
}

// Dragging reports whether a drag is in progress.
func (e *Editor) Dragging() bool {
	return e.dragging
}

// Preview renders the current panorama at width x height with the rotation
// and patches applied. The scaled copy is cached until the size or the file
// changes.
func (e *Editor) Preview(width, height int) (*equirect.Image, error) {
	if e.current == nil {
		return nil, ErrNoImage
	}
	if e.view == nil || e.viewSize != [2]int{width, height} {
		e.view = equirect.FitView(e.current, width, height)
		e.viewSize = [2]int{width, height}
	}
	return e.transform.Apply(e.view.Clone(), equirect.Interactive), nil
}

// OutputDir returns the folder results are written to.
func (e *Editor) OutputDir() string {
	return filepath.Join(e.folder, e.subfolder)
}

// SaveChecks verifies that the open folder still exists and creates the
// output subfolder. It returns the output folder.
func (e *Editor) SaveChecks() (string, error) {
	if e.index < 0 {
		return "", ErrNoImage
	}
	if !utils.DirExists(e.folder) {
		return "", fmt.Errorf("%w: %s", ErrFolderMissing, e.folder)
	}
	out := e.OutputDir()
	if err := utils.EnsureDir(out); err != nil {
		return "", fmt.Errorf("%w: %w", ErrOutputUnavailable, err)
	}
	if !utils.DirExists(out) {
		return "", fmt.Errorf("%w: %s", ErrOutputUnavailable, out)
	}
	return out, nil
}

// ApplyCurrent rotates, rescales and patches a copy of the full-size
// panorama and writes it to the output folder under its own name.
func (e *Editor) ApplyCurrent() (string, error) {
	if _, err := e.SaveChecks(); err != nil {
		return "", err
	}
	name := e.files[e.index]
	out := e.transform.Apply(e.current.Clone(), equirect.Single)

	dst := utils.OutputPath(e.folder, e.subfolder, name)
	if err := e.codec.Write(dst, out); err != nil {
		return "", fmt.Errorf("failed to save %s: %w", name, err)
	}
	e.tag(dst, out)

	e.log.Info().Str("file", name).Str("path", dst).Msg("saved panorama")
	return dst, nil
}

// SaveAll starts a background job that patches and rescales every panorama
// in the folder and writes the results to the output folder. Batch saves do
// not rotate. The settings are copied when the job starts.
func (e *Editor) SaveAll(ctx context.Context) (*batch.Job[*equirect.Image], error) {
	if _, err := e.SaveChecks(); err != nil {
		return nil, err
	}
	e.log.Info().Str("folder", e.folder).Int("files", len(e.files)).Msg("saving all panoramas")

	return batch.Start(ctx, e.files, e.saveWork(e.transform),
		batch.WithLogger[*equirect.Image](e.log.With().Str("job", "save").Logger()),
	), nil
}

func (e *Editor) saveWork(t equirect.Transform) batch.WorkFunc[*equirect.Image] {
	folder, subfolder := e.folder, e.subfolder
	return func(_ context.Context, name string) (*equirect.Image, error) {
		img, err := e.codec.Read(filepath.Join(folder, name))
		if err != nil {
			return nil, err
		}
		out := t.Apply(img, equirect.Batch)

		dst := utils.OutputPath(folder, subfolder, name)
		if err := e.codec.Write(dst, out); err != nil {
			return nil, fmt.Errorf("failed to save %s: %w", name, err)
		}
		e.tag(dst, out)
		return out, nil
	}
}

// tag writes panorama metadata. Failures are logged and otherwise ignored.
func (e *Editor) tag(path string, img *equirect.Image) {
	if err := e.tagger.Tag(path, img); err != nil {
		e.log.Warn().Err(err).Str("path", path).Msg("failed to write panorama metadata")
	}
}

func normalizeAngle(angle float64) float64 {
	return equirect.NormalizeAngle(angle)
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
