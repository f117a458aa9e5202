// Package metadata marks written files as equirectangular panoramas so that
// viewers switch to spherical display.
package metadata

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"text/template"

	"github.com/menta2k/pano-twist/pkg/equirect"
)

// ErrNoGPano is returned when an XMP packet has no equirectangular GPano
// description.
var ErrNoGPano = errors.New("no GPano panorama description")

// Tagger records panorama metadata for a file that was just written.
type Tagger interface {
	Tag(path string, img *equirect.Image) error
}

// TaggerFunc adapts a function to Tagger.
type TaggerFunc func(path string, img *equirect.Image) error

// Tag calls f.
func (f TaggerFunc) Tag(path string, img *equirect.Image) error {
	return f(path, img)
}

// Nop discards tagging requests.
var Nop Tagger = TaggerFunc(func(string, *equirect.Image) error { return nil })

// GPano holds the Google Photo Sphere properties written for a full
// 360x180 panorama.
type GPano struct {
	Width  int
	Height int
}

// NewGPano describes img as an uncropped equirectangular panorama.
func NewGPano(img *equirect.Image) GPano {
	return GPano{Width: img.Width, Height: img.Height}
}

var xmpTemplate = template.Must(template.New("xmp").Parse(`<?xpacket begin="" id="W5M0MpCehiHzreSzNTczkc9d"?>
<x:xmpmeta xmlns:x="adobe:ns:meta/">
 <rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">
  <rdf:Description rdf:about=""
    xmlns:GPano="http://ns.google.com/photos/1.0/panorama/"
    xmlns:exif="http://ns.adobe.com/exif/1.0/"
    exif:PixelXDimension="{{.Width}}"
    exif:PixelYDimension="{{.Height}}"
    GPano:ProjectionType="equirectangular"
    GPano:UsePanoramaViewer="True"
    GPano:CroppedAreaLeftPixels="0"
    GPano:CroppedAreaTopPixels="0"
    GPano:CroppedAreaImageWidthPixels="{{.Width}}"
    GPano:CroppedAreaImageHeightPixels="{{.Height}}"
    GPano:FullPanoWidthPixels="{{.Width}}"
    GPano:FullPanoHeightPixels="{{.Height}}"/>
 </rdf:RDF>
</x:xmpmeta>
<?xpacket end="w"?>
`))

// XMP renders the properties as an XMP packet.
func (g GPano) XMP() ([]byte, error) {
	var buf bytes.Buffer
	if err := xmpTemplate.Execute(&buf, g); err != nil {
		return nil, fmt.Errorf("failed to render xmp: %w", err)
	}
	return buf.Bytes(), nil
}

// Sidecar writes GPano metadata to "<file>.xmp" next to each image.
type Sidecar struct{}

// SidecarPath returns the sidecar file name for an image path.
func SidecarPath(imagePath string) string {
	return imagePath + ".xmp"
}

// Tag writes the sidecar for path.
func (Sidecar) Tag(path string, img *equirect.Image) error {
	if img.Empty() {
		return fmt.Errorf("no image dimensions for %s", path)
	}
	data, err := NewGPano(img).XMP()
	if err != nil {
		return err
	}
	if err := os.WriteFile(SidecarPath(path), data, 0o644); err != nil {
		return fmt.Errorf("failed to write sidecar: %w", err)
	}
	return nil
}

type xmpMeta struct {
	RDF struct {
		Descriptions []xmpDescription `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# Description"`
	} `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# RDF"`
}

type xmpDescription struct {
	Projection string `xml:"http://ns.google.com/photos/1.0/panorama/ ProjectionType,attr"`
	Width      int    `xml:"http://ns.google.com/photos/1.0/panorama/ FullPanoWidthPixels,attr"`
	Height     int    `xml:"http://ns.google.com/photos/1.0/panorama/ FullPanoHeightPixels,attr"`
}

// Read returns the GPano dimensions stored in the sidecar of path. The
// first rdf:Description with an equirectangular projection wins.
func Read(path string) (GPano, error) {
	data, err := os.ReadFile(SidecarPath(path))
	if err != nil {
		return GPano{}, err
	}
	return ParseXMP(data)
}

// ParseXMP extracts the GPano dimensions from an XMP packet.
func ParseXMP(data []byte) (GPano, error) {
	var meta xmpMeta
	if err := xml.Unmarshal(data, &meta); err != nil {
		return GPano{}, fmt.Errorf("failed to parse xmp: %w", err)
	}
	for _, d := range meta.RDF.Descriptions {
		if d.Projection != "equirectangular" {
			continue
		}
		if d.Width <= 0 || d.Height <= 0 {
			return GPano{}, fmt.Errorf("invalid GPano dimensions %dx%d", d.Width, d.Height)
		}
		return GPano{Width: d.Width, Height: d.Height}, nil
	}
	return GPano{}, ErrNoGPano
}
