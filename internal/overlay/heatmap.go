package overlay

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"

	"github.com/hazmap/hazmap/internal/geo"
	"github.com/hazmap/hazmap/internal/hazard"
)

const (
	heatmapMaxDim      = 2048
	heatmapSupersample = 2
	blobRadiusFrac     = 0.08 // blob radius as a fraction of the image diagonal
)

// Heatmap rasterizes hazard density over the given bounds into a WebP
// image sized width x height. Severity weights scale each marker's
// contribution; the output is transparent where no hazard reaches.
func Heatmap(markers []hazard.Marker, bounds geo.Bounds, width, height int) ([]byte, error) {
	if width <= 0 || height <= 0 || width > heatmapMaxDim || height > heatmapMaxDim {
		return nil, fmt.Errorf("heatmap size %dx%d out of range", width, height)
	}
	if bounds.MaxLat <= bounds.MinLat || bounds.MaxLon <= bounds.MinLon {
		return nil, fmt.Errorf("degenerate bounds: %+v", bounds)
	}

	// Render supersampled, then scale down for smooth edges.
	w := width * heatmapSupersample
	h := height * heatmapSupersample

	intensity := make([]float64, w*h)
	radius := blobRadiusFrac * math.Hypot(float64(w), float64(h))

	for _, m := range markers {
		cx := (m.Coord.Lon - bounds.MinLon) / (bounds.MaxLon - bounds.MinLon) * float64(w)
		cy := (bounds.MaxLat - m.Coord.Lat) / (bounds.MaxLat - bounds.MinLat) * float64(h)
		weight := m.Severity.Weight()

		minX := clampInt(int(cx-radius), 0, w)
		maxX := clampInt(int(cx+radius)+1, 0, w)
		minY := clampInt(int(cy-radius), 0, h)
		maxY := clampInt(int(cy+radius)+1, 0, h)

		for y := minY; y < maxY; y++ {
			for x := minX; x < maxX; x++ {
				d := math.Hypot(float64(x)-cx, float64(y)-cy)
				if d >= radius {
					continue
				}
				// Quadratic falloff to zero at the blob edge.
				falloff := 1 - d/radius
				intensity[y*w+x] += weight * falloff * falloff
			}
		}
	}

	// Straight-alpha buffers: the ramp colors carry channel values
	// above their alpha, which premultiplied RGBA cannot represent.
	src := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := intensity[y*w+x]
			if v <= 0 {
				continue
			}
			src.SetNRGBA(x, y, heatColor(v))
		}
	}

	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	if err := webp.Encode(&buf, dst, &webp.Options{Lossless: true}); err != nil {
		return nil, fmt.Errorf("encoding heatmap: %w", err)
	}

	return buf.Bytes(), nil
}

// heatColor maps accumulated intensity to a yellow-to-red ramp with
// alpha tracking intensity.
func heatColor(v float64) color.NRGBA {
	if v > 1 {
		v = 1
	}

	alpha := 40 + v*160
	green := 220 * (1 - v)

	return color.NRGBA{
		R: 230,
		G: uint8(green),
		B: 0,
		A: uint8(alpha),
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
