package equirect

// Transform bundles the edit settings applied to a panorama. It is a plain
// value: copy it before handing it to another goroutine and both sides keep
// independent settings (SourcePatch values are immutable and safely shared).
type Transform struct {
	// Angle is the accumulated azimuth offset in radians.
	Angle float64
	// MaxHeight limits the output height; 0 disables rescaling.
	MaxHeight int
	Nadir     PatchSpec
	Zenith    PatchSpec
}

// NewTransform returns settings with both patches disabled and no rotation.
func NewTransform() Transform {
	return Transform{
		Nadir:  DefaultPatch(Nadir),
		Zenith: DefaultPatch(Zenith),
	}
}

// Steps selects which optional stages Apply runs. Patching always runs.
type Steps struct {
	Rotate  bool
	Rescale bool
}

var (
	// Interactive rotates and patches but keeps the size.
	Interactive = Steps{Rotate: true}
	// Single is used when saving the current panorama.
	Single = Steps{Rotate: true, Rescale: true}
	// Batch rescales and patches but does not rotate.
	Batch = Steps{Rescale: true}
)

// Apply runs rescale, rotate, nadir patch and zenith patch in that order.
// img may be modified in place; the returned image holds the result.
func (t Transform) Apply(img *Image, steps Steps) *Image {
	if img.Empty() {
		return img
	}
	if steps.Rescale {
		img = FitMaxHeight(img, t.MaxHeight)
	}
	if steps.Rotate {
		Rotate(img, t.Angle)
	}
	nadir := t.Nadir
	nadir.Side = Nadir
	zenith := t.Zenith
	zenith.Side = Zenith
	ApplyPatch(img, nadir)
	ApplyPatch(img, zenith)
	return img
}
