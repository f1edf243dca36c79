// Package annotate draws landmark markers onto captured images.
package annotate

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/signcapture/internal/detector"
)

// Defaults used by the capture form.
const (
	DefaultRadius  = 5
	DefaultQuality = 95
)

// MarkerColor is the fill of every landmark marker (green).
var MarkerColor = color.RGBA{R: 0, G: 255, B: 0, A: 0}

// Renderer produces annotated previews. It holds no per-image state and is
// safe for concurrent use.
type Renderer struct {
	radius  int
	quality int
}

// NewRenderer creates a Renderer drawing filled markers of the given radius
// and encoding JPEG at the given quality. Non-positive values use the defaults.
func NewRenderer(radius, quality int) *Renderer {
	if radius <= 0 {
		radius = DefaultRadius
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return &Renderer{radius: radius, quality: quality}
}

// MarkerPosition maps a normalized landmark to pixel coordinates in an image
// of the given size, truncating toward zero.
func MarkerPosition(p detector.Point3D, width, height int) image.Point {
	return image.Pt(int(p.X*float64(width)), int(p.Y*float64(height)))
}

// Draw returns a copy of img with a marker on every landmark of every set.
// img is not modified. The caller is responsible for closing the result.
func (r *Renderer) Draw(img gocv.Mat, sets detector.LandmarkSets) gocv.Mat {
	out := img.Clone()
	width, height := img.Cols(), img.Rows()

	for _, set := range sets {
		for _, p := range set {
			gocv.Circle(&out, MarkerPosition(p, width, height), r.radius, MarkerColor, -1)
		}
	}
	return out
}

// Render draws the markers and returns the annotated image as JPEG bytes.
func (r *Renderer) Render(img gocv.Mat, sets detector.LandmarkSets) ([]byte, error) {
	if img.Empty() {
		return nil, fmt.Errorf("render: empty image")
	}

	annotated := r.Draw(img, sets)
	defer annotated.Close()

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, annotated, []int{int(gocv.IMWriteJpegQuality), r.quality})
	if err != nil {
		return nil, fmt.Errorf("encode annotated image: %w", err)
	}
	defer buf.Close()

	return append([]byte(nil), buf.GetBytes()...), nil
}
