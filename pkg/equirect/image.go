// Package equirect implements the geometric transforms applied to
// equirectangular (360°x180°, 2:1) panoramas: azimuth rotation, nadir and
// zenith patching, rescaling and bilinear sampling.
//
// All functions operate on Image, a packed 8-bit RGB buffer. Nothing in this
// package performs I/O or spawns goroutines; callers own the buffers they pass
// in and must not share them across goroutines without copying.
package equirect

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// RGB is a single pixel with three 8-bit channels.
type RGB struct {
	R, G, B uint8
}

// Black is the pixel excluded from average fills.
var Black = RGB{}

// IsBlack reports whether all three channels are zero.
func (c RGB) IsBlack() bool {
	return c.R == 0 && c.G == 0 && c.B == 0
}

// Image is a row-major RGB pixel buffer, 3 bytes per pixel, no padding.
type Image struct {
	Width  int
	Height int
	Pix    []uint8
}

// New allocates a black image of the given size.
func New(width, height int) *Image {
	if width < 0 || height < 0 {
		width, height = 0, 0
	}
	return &Image{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*3),
	}
}

// Filled allocates an image with every pixel set to c.
func Filled(width, height int, c RGB) *Image {
	img := New(width, height)
	img.Fill(c)
	return img
}

// Stride is the number of bytes per row.
func (m *Image) Stride() int {
	return m.Width * 3
}

// Empty reports whether the image has no pixels. A nil image is empty.
func (m *Image) Empty() bool {
	return m == nil || m.Width <= 0 || m.Height <= 0
}

// IsEquirectangular reports whether width is exactly twice the height.
func (m *Image) IsEquirectangular() bool {
	return !m.Empty() && m.Width == 2*m.Height
}

// Clone returns a deep copy.
func (m *Image) Clone() *Image {
	if m == nil {
		return nil
	}
	pix := make([]uint8, len(m.Pix))
	copy(pix, m.Pix)
	return &Image{Width: m.Width, Height: m.Height, Pix: pix}
}

// At returns the pixel at (x, y). Coordinates must be in range.
func (m *Image) At(x, y int) RGB {
	i := y*m.Stride() + x*3
	return RGB{m.Pix[i], m.Pix[i+1], m.Pix[i+2]}
}

// Set writes the pixel at (x, y). Coordinates must be in range.
func (m *Image) Set(x, y int, c RGB) {
	i := y*m.Stride() + x*3
	m.Pix[i] = c.R
	m.Pix[i+1] = c.G
	m.Pix[i+2] = c.B
}

// Row returns the bytes of row y, aliased to the image buffer.
func (m *Image) Row(y int) []uint8 {
	s := m.Stride()
	return m.Pix[y*s : (y+1)*s]
}

// Fill sets every pixel to c.
func (m *Image) Fill(c RGB) {
	m.fillRows(0, m.Height, c)
}

func (m *Image) fillRows(y0, y1 int, c RGB) {
	if m.Empty() || y0 >= y1 {
		return
	}
	s := m.Stride()
	first := m.Pix[y0*s : (y0+1)*s]
	for i := 0; i < len(first); i += 3 {
		first[i] = c.R
		first[i+1] = c.G
		first[i+2] = c.B
	}
	for y := y0 + 1; y < y1; y++ {
		copy(m.Pix[y*s:(y+1)*s], first)
	}
}

// Equal reports whether both images have the same size and pixels.
func (m *Image) Equal(o *Image) bool {
	if m == nil || o == nil {
		return m == o
	}
	if m.Width != o.Width || m.Height != o.Height || len(m.Pix) != len(o.Pix) {
		return false
	}
	for i := range m.Pix {
		if m.Pix[i] != o.Pix[i] {
			return false
		}
	}
	return true
}

// FromImage converts any image.Image to an RGB buffer. Alpha is dropped
// without premultiplication, matching how decoders hand out opaque photos.
func FromImage(src image.Image) *Image {
	if src == nil {
		return New(0, 0)
	}
	var nrgba *image.NRGBA
	switch s := src.(type) {
	case *image.NRGBA:
		nrgba = s
	default:
		nrgba = imaging.Clone(src)
	}

	b := nrgba.Bounds()
	out := New(b.Dx(), b.Dy())
	for y := 0; y < out.Height; y++ {
		si := nrgba.PixOffset(b.Min.X, b.Min.Y+y)
		row := out.Row(y)
		for x := 0; x < out.Width; x++ {
			row[x*3] = nrgba.Pix[si]
			row[x*3+1] = nrgba.Pix[si+1]
			row[x*3+2] = nrgba.Pix[si+2]
			si += 4
		}
	}
	return out
}

// ToNRGBA converts the buffer to an opaque *image.NRGBA.
func (m *Image) ToNRGBA() *image.NRGBA {
	if m.Empty() {
		return image.NewNRGBA(image.Rect(0, 0, 0, 0))
	}
	dst := image.NewNRGBA(image.Rect(0, 0, m.Width, m.Height))
	for y := 0; y < m.Height; y++ {
		row := m.Row(y)
		di := y * dst.Stride
		for x := 0; x < m.Width; x++ {
			dst.Pix[di] = row[x*3]
			dst.Pix[di+1] = row[x*3+1]
			dst.Pix[di+2] = row[x*3+2]
			dst.Pix[di+3] = 0xff
			di += 4
		}
	}
	return dst
}

// NRGBA returns the pixel as a color.NRGBA.
func (c RGB) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 0xff}
}
