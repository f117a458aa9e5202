package equirect

import "math"

// FullTurn is one full azimuth revolution in radians.
const FullTurn = 2 * math.Pi

// PixelShift converts an azimuth angle to a rightward column shift in
// [0, width). The angle is reduced modulo 2π before rounding to whole pixels.
func PixelShift(width int, angle float64) int {
	if width <= 0 || math.IsNaN(angle) || math.IsInf(angle, 0) {
		return 0
	}
	reduced := math.Mod(angle, FullTurn)
	shift := int(math.Round(float64(width) * reduced / FullTurn))
	shift %= width
	if shift < 0 {
		shift += width
	}
	return shift
}

// Rotate turns the panorama by angle radians around the vertical axis,
// in place. Positive angles move content to the right.
func Rotate(img *Image, angle float64) {
	if img.Empty() {
		return
	}
	ShiftPixels(img, PixelShift(img.Width, angle))
}

// ShiftPixels cyclically shifts every row right by n columns, in place:
// out[c] = in[(c-n) mod width]. Rows are shifted independently.
func ShiftPixels(img *Image, n int) {
	if img.Empty() {
		return
	}
	n %= img.Width
	if n < 0 {
		n += img.Width
	}
	if n == 0 {
		return
	}

	head := (img.Width - n) * 3
	tmp := make([]uint8, img.Stride())
	for y := 0; y < img.Height; y++ {
		row := img.Row(y)
		copy(tmp[n*3:], row[:head])
		copy(tmp[:n*3], row[head:])
		copy(row, tmp)
	}
}

// DragAngle converts a horizontal pointer drag, measured in pixels of a view
// that is viewWidth pixels wide, into an azimuth delta.
func DragAngle(pixelDelta, viewWidth float64) float64 {
	if viewWidth <= 0 {
		return 0
	}
	return pixelDelta / viewWidth * FullTurn
}

// NormalizeAngle reduces angle into [0, 2π). NaN and infinities become 0.
func NormalizeAngle(angle float64) float64 {
	if math.IsNaN(angle) || math.IsInf(angle, 0) {
		return 0
	}
	a := math.Mod(angle, FullTurn)
	if a < 0 {
		a += FullTurn
	}
	if a >= FullTurn {
		a = 0
	}
	return a
}
