package equirect

import "github.com/disintegration/imaging"

// Rescale resizes img to width x height. A zero target dimension returns img
// unchanged; an identical size returns a copy without resampling. Enlarging
// uses a linear kernel and reducing a box (area-averaging) kernel.
func Rescale(img *Image, width, height int) *Image {
	if width <= 0 || height <= 0 || img.Empty() {
		return img
	}
	if width == img.Width && height == img.Height {
		return img.Clone()
	}

	filter := imaging.Box
	if width >= img.Width {
		filter = imaging.Linear
	}
	return FromImage(imaging.Resize(img.ToNRGBA(), width, height, filter))
}

// FitMaxHeight shrinks img to maxHeight rows when it is taller. The width is
// forced to exactly 2*maxHeight so the result stays equirectangular.
// maxHeight <= 0 disables the limit.
func FitMaxHeight(img *Image, maxHeight int) *Image {
	if img.Empty() || maxHeight <= 0 || maxHeight >= img.Height {
		return img
	}
	return Rescale(img, 2*maxHeight, maxHeight)
}

// FitView resizes img for display in a view of the given size. Unlike
// Rescale, the kernel is chosen as area when the source is at least as wide
// as the view and linear otherwise.
func FitView(img *Image, width, height int) *Image {
	if width <= 0 || height <= 0 || img.Empty() {
		return img
	}
	if width == img.Width && height == img.Height {
		return img.Clone()
	}
	filter := imaging.Linear
	if img.Width >= width {
		filter = imaging.Box
	}
	return FromImage(imaging.Resize(img.ToNRGBA(), width, height, filter))
}
