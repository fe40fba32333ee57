// Package perimeter computes curvature descriptors along object boundaries and
// groups concave stretches into regions that can anchor a cut.
package perimeter

import (
	"image"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"

	"declump/internal/models"
	"declump/pkg/contour"
	"declump/pkg/morphology"
)

// ErrHoles is returned for label images whose objects enclose background
var ErrHoles = errors.New("object has holes")

// DefaultDeadBand is the turning angle, in radians, below which a point counts as flat
const DefaultDeadBand = 1e-3

// Analyzer derives boundary descriptors from label images
type Analyzer struct {
	// DeadBand overrides DefaultDeadBand when positive
	DeadBand float64
}

// Analyze returns the descriptors of every boundary point, grouped by object in
// ascending label order and following the traced boundary within an object.
// windowSize is the length of the moving average applied to the boundary
// coordinates before the turning angles are measured.
func (a Analyzer) Analyze(labels *models.LabelImage, windowSize int) ([]models.BoundaryPoint, error) {
	if labels == nil {
		return nil, errors.New("label image is nil")
	}
	if len(labels.Pix) != labels.Width*labels.Height {
		return nil, errors.Errorf("malformed label image: %d samples for %dx%d", len(labels.Pix), labels.Width, labels.Height)
	}
	if windowSize < 1 {
		return nil, errors.Errorf("window size must be positive, got %d", windowSize)
	}
	if label, holes := morphology.LabelWithHoles(labels); holes {
		return nil, errors.Wrapf(ErrHoles, "object %d", label)
	}

	deadBand := a.DeadBand
	if deadBand <= 0 {
		deadBand = DefaultDeadBand
	}

	contours := contour.TraceAll(labels)
	var points []models.BoundaryPoint
	for _, label := range labels.Labels() {
		points = append(points, describe(label, contours[label], windowSize, deadBand)...)
	}
	return points, nil
}

func describe(label int, pts []image.Point, window int, deadBand float64) []models.BoundaryPoint {
	n := len(pts)
	out := make([]models.BoundaryPoint, n)
	for i, p := range pts {
		out[i] = models.BoundaryPoint{Label: label, Position: p}
	}
	if n < 3 {
		return out
	}

	// Convex turns are positive whichever way the chain runs
	orientation := 1.0
	if contour.SignedArea(pts) < 0 {
		orientation = -1
	}

	xs, ys := smooth(pts, window)
	for i := range pts {
		prev, next := (i+n-1)%n, (i+1)%n
		v1x, v1y := xs[i]-xs[prev], ys[i]-ys[prev]
		v2x, v2y := xs[next]-xs[i], ys[next]-ys[i]

		turn := orientation * math.Atan2(v1x*v2y-v1y*v2x, v1x*v2x+v1y*v2y)
		arc := (math.Hypot(v1x, v1y) + math.Hypot(v2x, v2y)) / 2

		out[i].Turn = turn
		if arc > 0 {
			out[i].Curvature = turn / arc
		}
		switch {
		case turn < -deadBand:
			out[i].Concavity = models.Concave
		case turn > deadBand:
			out[i].Concavity = models.Convex
		default:
			out[i].Concavity = models.Flat
		}
	}

	numberRegions(out)
	return out
}

// smooth applies a circular moving average to the chain coordinates
func smooth(pts []image.Point, window int) ([]float64, []float64) {
	n := len(pts)
	if window%2 == 0 {
		window++
	}
	half := window / 2
	if 2*half+1 > n {
		half = (n - 1) / 2
	}

	xs := make([]float64, n)
	ys := make([]float64, n)
	bufX := make([]float64, 2*half+1)
	bufY := make([]float64, 2*half+1)
	for i := range pts {
		for k := -half; k <= half; k++ {
			p := pts[((i+k)%n+n)%n]
			bufX[k+half] = float64(p.X)
			bufY[k+half] = float64(p.Y)
		}
		xs[i] = stat.Mean(bufX, nil)
		ys[i] = stat.Mean(bufY, nil)
	}
	return xs, ys
}

// numberRegions assigns ids 1.. to maximal runs of concave points; a run that
// wraps past the end of the chain is a single region
func numberRegions(points []models.BoundaryPoint) {
	n := len(points)
	start := -1
	for i, p := range points {
		if p.Concavity != models.Concave {
			start = i
			break
		}
	}
	if start < 0 {
		for i := range points {
			points[i].Region = 1
		}
		return
	}

	region := 0
	inRun := false
	for k := 1; k <= n; k++ {
		i := (start + k) % n
		if points[i].Concavity != models.Concave {
			inRun = false
			continue
		}
		if !inRun {
			region++
			inRun = true
		}
		points[i].Region = region
	}
}
