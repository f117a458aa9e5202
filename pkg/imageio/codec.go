// Package imageio reads and writes panorama files as equirect.Image buffers.
package imageio

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/pano-twist/pkg/equirect"
)

// ErrUnsupportedFormat is returned for file extensions the codec cannot write.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Reader loads an image from disk.
type Reader interface {
	Read(path string) (*equirect.Image, error)
}

// Writer stores an image on disk.
type Writer interface {
	Write(path string, img *equirect.Image) error
}

// ReadWriter is the image source and sink used by batch jobs.
type ReadWriter interface {
	Reader
	Writer
}

// Codec handles JPEG, PNG, TIFF and WebP files, picking the encoder from the
// destination extension.
type Codec struct {
	// Quality is the JPEG and lossy WebP quality, 1-100.
	Quality int
	// Lossless switches WebP output to lossless mode.
	Lossless bool
}

// New creates a codec with quality 95.
func New() *Codec {
	return &Codec{Quality: 95}
}

// Read decodes the file at path. A file that decodes to zero pixels is an
// error.
func (c *Codec) Read(path string) (*equirect.Image, error) {
	img, err := c.decodeFile(path)
	if err != nil {
		return nil, err
	}
	out := equirect.FromImage(img)
	if out.Empty() {
		return nil, fmt.Errorf("image %s has no pixels", path)
	}
	return out, nil
}

// decodeFile opens path with every registered decoder; x/image/webp
// covers WebP input.
func (c *Codec) decodeFile(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %w", path, err)
	}
	return img, nil
}

// Write encodes img to path in the format implied by its extension.
func (c *Codec) Write(path string, img *equirect.Image) error {
	if img.Empty() {
		return fmt.Errorf("refusing to write empty image to %s", path)
	}
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	nrgba := img.ToNRGBA()

	switch format {
	case "webp":
		return c.writeFile(path, func(w io.Writer) error {
			return webp.Encode(w, nrgba, &webp.Options{Lossless: c.Lossless, Quality: float32(c.quality())})
		})
	case "tiff":
		return c.writeFile(path, func(w io.Writer) error {
			return tiff.Encode(w, nrgba, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
		})
	case "png":
		return imaging.Save(nrgba, path)
	default:
		return imaging.Save(nrgba, path, imaging.JPEGQuality(c.quality()))
	}
}

func (c *Codec) writeFile(path string, encode func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := encode(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}

func (c *Codec) quality() int {
	if c.Quality < 1 || c.Quality > 100 {
		return 95
	}
	return c.Quality
}

// FormatOf maps a file extension to "jpeg", "png", "tiff" or "webp".
func FormatOf(path string) (string, error) {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "jpg", "jpeg":
		return "jpeg", nil
	case "png":
		return "png", nil
	case "tif", "tiff":
		return "tiff", nil
	case "webp":
		return "webp", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}
