// Package scanner finds equirectangular panoramas in a folder.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/menta2k/pano-twist/internal/utils"
	"github.com/menta2k/pano-twist/pkg/batch"
	"github.com/menta2k/pano-twist/pkg/equirect"
	"github.com/menta2k/pano-twist/pkg/imageio"
)

// ErrNotPanorama marks an image that is not 2:1.
var ErrNotPanorama = errors.New("not an equirectangular panorama")

// ListImages returns the sorted names of image files directly inside dir.
func ListImages(dir string) ([]string, error) {
	names, err := utils.ListImageFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	return names, nil
}

// ClassifyWork returns a unit of work that loads dir/<item> and keeps it only
// if it is a 2:1 panorama. Other images are dropped with batch.ErrSkip;
// unreadable files fail with the read error.
func ClassifyWork(reader imageio.Reader, dir string) batch.WorkFunc[*equirect.Image] {
	return func(_ context.Context, item string) (*equirect.Image, error) {
		img, err := reader.Read(filepath.Join(dir, item))
		if err != nil {
			return nil, err
		}
		if !img.IsEquirectangular() {
			return nil, fmt.Errorf("%w: %s is %dx%d: %w", batch.ErrSkip, item, img.Width, img.Height, ErrNotPanorama)
		}
		return img, nil
	}
}
