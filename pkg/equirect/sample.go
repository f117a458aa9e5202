package equirect

import "math"

// BorderPolicy decides which in-range pixel stands in for a tap that falls
// outside the image along one axis.
type BorderPolicy int

const (
	// BorderReflect mirrors including the edge pixel: fedcba|abcdef|fedcba.
	BorderReflect BorderPolicy = iota
	// BorderReflect101 mirrors around the edge pixel: fedcb|abcdef|edcba.
	BorderReflect101
	// BorderReplicate repeats the edge pixel: aaaaa|abcdef|fffff.
	BorderReplicate
	// BorderWrap tiles the image: bcdef|abcdef|abcde.
	BorderWrap
)

func (b BorderPolicy) String() string {
	switch b {
	case BorderReflect:
		return "reflect"
	case BorderReflect101:
		return "reflect101"
	case BorderReplicate:
		return "replicate"
	case BorderWrap:
		return "wrap"
	default:
		return "unknown"
	}
}

// Index maps coordinate p onto [0, n) according to the policy.
func (b BorderPolicy) Index(p, n int) int {
	if p >= 0 && p < n {
		return p
	}
	if n <= 1 {
		return 0
	}

	switch b {
	case BorderReplicate:
		if p < 0 {
			return 0
		}
		return n - 1
	case BorderWrap:
		p %= n
		if p < 0 {
			p += n
		}
		return p
	default:
		delta := 0
		if b == BorderReflect101 {
			delta = 1
		}
		for p < 0 || p >= n {
			if p < 0 {
				p = -p - 1 + delta
			} else {
				p = n - 1 - (p - n) - delta
			}
		}
		return p
	}
}

// Sample bilinearly interpolates img at the real-valued point (x, y). Taps
// outside the image are resolved independently per axis with borderX and
// borderY. Each channel is rounded to the nearest integer.
func Sample(img *Image, x, y float64, borderX, borderY BorderPolicy) RGB {
	fx := math.Floor(x)
	fy := math.Floor(y)
	ix, iy := int(fx), int(fy)

	x0 := borderX.Index(ix, img.Width)
	x1 := borderX.Index(ix+1, img.Width)
	y0 := borderY.Index(iy, img.Height)
	y1 := borderY.Index(iy+1, img.Height)

	a := x - fx
	c := y - fy

	s := img.Stride()
	p00 := img.Pix[y0*s+x0*3:]
	p01 := img.Pix[y0*s+x1*3:]
	p10 := img.Pix[y1*s+x0*3:]
	p11 := img.Pix[y1*s+x1*3:]

	var out [3]uint8
	for ch := 0; ch < 3; ch++ {
		top := float64(p00[ch])*(1-a) + float64(p01[ch])*a
		bottom := float64(p10[ch])*(1-a) + float64(p11[ch])*a
		out[ch] = clampByte(math.Round(top*(1-c) + bottom*c))
	}
	return RGB{out[0], out[1], out[2]}
}

func clampByte(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}
