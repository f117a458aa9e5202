package equirect

import (
	"fmt"
	"math"
	"strings"
)

// Side selects which pole a patch covers.
type Side int

const (
	Nadir Side = iota
	Zenith
)

func (s Side) String() string {
	if s == Zenith {
		return "zenith"
	}
	return "nadir"
}

// FillMode selects how the patch band is painted.
type FillMode int

const (
	FillAverage FillMode = iota
	FillColor
	FillImage
)

func (f FillMode) String() string {
	switch f {
	case FillAverage:
		return "average"
	case FillColor:
		return "color"
	case FillImage:
		return "image"
	default:
		return "unknown"
	}
}

// ParseFillMode accepts "average", "color" or "image".
func ParseFillMode(s string) (FillMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "average", "avg", "":
		return FillAverage, nil
	case "color", "colour", "solid":
		return FillColor, nil
	case "image", "source":
		return FillImage, nil
	default:
		return FillAverage, fmt.Errorf("unknown fill mode %q", s)
	}
}

// MaxPatchAngle is the largest angular extent a patch may cover, in degrees.
const MaxPatchAngle = 90

// Default patch colours.
var (
	DefaultNadirColor  = MustParseColor("#AAAAAA")
	DefaultZenithColor = MustParseColor("#66D9FF")
)

// PatchSpec describes how one pole is patched.
type PatchSpec struct {
	Side     Side
	Enabled  bool
	AngleDeg int
	Fill     FillMode
	Color    RGB
	Source   *SourcePatch
}

// DefaultPatch returns a disabled average-fill spec for side.
func DefaultPatch(side Side) PatchSpec {
	c := DefaultNadirColor
	if side == Zenith {
		c = DefaultZenithColor
	}
	return PatchSpec{Side: side, AngleDeg: 30, Fill: FillAverage, Color: c}
}

// SetColor parses s into the solid fill colour. On malformed input the
// previous colour is kept and the parse error returned.
func (p *PatchSpec) SetColor(s string) error {
	c, err := ParseColor(s)
	if err != nil {
		return err
	}
	p.Color = c
	return nil
}

// BandHeight is the number of rows covered by a patch of angleDeg degrees on
// an image imageHeight rows tall: floor(imageHeight * angleDeg / 180 / 2).
func BandHeight(imageHeight, angleDeg int) int {
	if imageHeight <= 0 || angleDeg <= 0 {
		return 0
	}
	if angleDeg > MaxPatchAngle {
		angleDeg = MaxPatchAngle
	}
	return imageHeight * angleDeg / 360
}

// ApplyPatch paints the band of the pole named by spec.Side, in place.
// Rows outside the band are never touched.
func ApplyPatch(img *Image, spec PatchSpec) {
	if !spec.Enabled || img.Empty() {
		return
	}
	h := BandHeight(img.Height, spec.AngleDeg)
	if h == 0 {
		return
	}
	y0 := 0
	if spec.Side == Nadir {
		y0 = img.Height - h
	}

	switch spec.Fill {
	case FillAverage:
		img.fillRows(y0, y0+h, bandAverage(img, y0, y0+h))
	case FillColor:
		img.fillRows(y0, y0+h, spec.Color)
	case FillImage:
		if spec.Source == nil || spec.Source.img.Empty() {
			return
		}
		warpPolar(img, y0, h, spec.Side, spec.Source)
	}
}

// bandAverage is the rounded mean colour of rows [y0, y1), ignoring pure
// black pixels. It is black when no pixel qualifies.
func bandAverage(img *Image, y0, y1 int) RGB {
	var r, g, b, n uint64
	pix := img.Pix[y0*img.Stride() : y1*img.Stride()]
	for i := 0; i < len(pix); i += 3 {
		if pix[i] == 0 && pix[i+1] == 0 && pix[i+2] == 0 {
			continue
		}
		r += uint64(pix[i])
		g += uint64(pix[i+1])
		b += uint64(pix[i+2])
		n++
	}
	if n == 0 {
		return Black
	}
	f := float64(n)
	return RGB{
		R: clampByte(math.Round(float64(r) / f)),
		G: clampByte(math.Round(float64(g) / f)),
		B: clampByte(math.Round(float64(b) / f)),
	}
}

// warpPolar maps the source circle onto the band: band-local row i is the
// polar distance from the pole, column j the azimuth. The pole itself lands
// on the image edge and the circle's rim on the band's inner edge.
func warpPolar(img *Image, y0, h int, side Side, src *SourcePatch) {
	s := src.img
	radius := src.radius()
	cx := float64(s.Width-1) / 2
	cy := float64(s.Height-1) / 2

	dir := -1.0
	if side == Nadir {
		dir = 1
	}

	w := img.Width
	cos := make([]float64, w)
	sin := make([]float64, w)
	for j := 0; j < w; j++ {
		phi := float64(j)/float64(w)*FullTurn + math.Pi/2
		cos[j] = math.Cos(phi)
		sin[j] = math.Sin(phi)
	}

	for i := 0; i < h; i++ {
		r := 0.0
		if h > 1 {
			r = float64(i) / float64(h-1) * radius
		}
		row := i
		if side == Nadir {
			row = h - 1 - i
		}
		dst := img.Row(y0 + row)
		for j := 0; j < w; j++ {
			x := cx + r*cos[j]
			y := cy + dir*r*sin[j]
			c := Sample(s, x, y, BorderReflect101, BorderReflect101)
			dst[j*3] = c.R
			dst[j*3+1] = c.G
			dst[j*3+2] = c.B
		}
	}
}
