// Package shape measures connected components and sorts them into clumps and
// single objects.
package shape

import (
	"math"

	"github.com/pkg/errors"

	"declump/internal/models"
	"declump/pkg/contour"
	"declump/pkg/morphology"
)

// Features holds the shape measurements of one object
type Features struct {
	Label int

	// Area is the pixel count
	Area int

	// Perimeter is the boundary chain length
	Perimeter float64

	// ConvexArea is the area of the convex hull of the pixel squares
	ConvexArea float64

	// Solidity is Area / ConvexArea
	Solidity float64

	// FormFactor is 4*pi*Area / Perimeter^2
	FormFactor float64
}

// Criteria are the thresholds an object must meet to count as a clump
type Criteria struct {
	MaxSolidity   float64
	MinFormFactor float64
	MinArea       int
	MaxArea       int
}

// IsClump reports whether the features satisfy every clump criterion
func (c Criteria) IsClump(f Features) bool {
	return f.Area >= c.MinArea &&
		f.Area <= c.MaxArea &&
		f.Solidity < c.MaxSolidity &&
		f.FormFactor > c.MinFormFactor
}

// Measure computes the features of every labeled object, in ascending label order
func Measure(l *models.LabelImage) []Features {
	areas := l.Areas()
	contours := contour.TraceAll(l)
	labels := l.Labels()

	features := make([]Features, 0, len(labels))
	for _, label := range labels {
		pts := contours[label]
		f := Features{
			Label:      label,
			Area:       areas[label],
			Perimeter:  contour.Length(pts),
			ConvexArea: contour.RingArea(contour.ConvexHull(pts)),
		}
		if f.ConvexArea > 0 {
			f.Solidity = float64(f.Area) / f.ConvexArea
		}
		if f.Perimeter > 0 {
			f.FormFactor = 4 * math.Pi * float64(f.Area) / (f.Perimeter * f.Perimeter)
		}
		features = append(features, f)
	}
	return features
}

// Classifier splits mask components into clumps and non-clumps
type Classifier struct{}

// Classify labels the mask and assigns every foreground pixel to exactly one
// of the two returned masks
func (Classifier) Classify(mask models.Mask, c Criteria) (models.Mask, models.Mask, error) {
	if len(mask.Pix) != mask.Width*mask.Height {
		return models.Mask{}, models.Mask{}, errors.Errorf("malformed mask: %d samples for %dx%d", len(mask.Pix), mask.Width, mask.Height)
	}

	labels := morphology.Label(mask)
	selected := make(map[int]bool)
	for _, f := range Measure(labels) {
		if c.IsClump(f) {
			selected[f.Label] = true
		}
	}

	clumps := models.NewMask(mask.Width, mask.Height)
	nonClumps := models.NewMask(mask.Width, mask.Height)
	for i, v := range labels.Pix {
		if v == 0 {
			continue
		}
		if selected[v] {
			clumps.Pix[i] = true
		} else {
			nonClumps.Pix[i] = true
		}
	}
	return clumps, nonClumps, nil
}
