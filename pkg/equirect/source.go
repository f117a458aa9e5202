package equirect

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// MaskGray fills the part of a source patch outside its inscribed circle.
var MaskGray = RGB{120, 120, 120}

// SourcePatch is the square, circularly masked photo used by FillImage.
// It is derived once from the user's picture and never modified afterwards,
// so one value may be shared by concurrent transforms.
type SourcePatch struct {
	img *Image
}

// NewSourcePatch crops the centred square of side min(width, height) out of
// src and greys every pixel farther than radius+1 from the square's centre.
// It returns nil for an empty picture.
func NewSourcePatch(src image.Image) *SourcePatch {
	if src == nil {
		return nil
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil
	}

	var rect image.Rectangle
	if w > h {
		x0 := b.Min.X + (w-h)/2
		rect = image.Rect(x0, b.Min.Y, x0+h, b.Max.Y)
	} else {
		y0 := b.Min.Y + (h-w)/2
		rect = image.Rect(b.Min.X, y0, b.Max.X, y0+w)
	}

	square := FromImage(imaging.Crop(src, rect))
	maskOutsideCircle(square)
	return &SourcePatch{img: square}
}

func maskOutsideCircle(square *Image) {
	side := square.Width
	center := float64(side-1) / 2
	limit := center + 1
	limit2 := limit * limit

	for y := 0; y < side; y++ {
		dy := float64(y) - center
		for x := 0; x < side; x++ {
			dx := float64(x) - center
			if dx*dx+dy*dy > limit2 {
				square.Set(x, y, MaskGray)
			}
		}
	}
}

// Size is the side of the square in pixels.
func (s *SourcePatch) Size() int {
	if s == nil || s.img == nil {
		return 0
	}
	return s.img.Width
}

// radius is the usable circle radius measured in pixel spacings.
func (s *SourcePatch) radius() float64 {
	side := math.Min(float64(s.img.Width-1), float64(s.img.Height-1))
	return side / 2
}
