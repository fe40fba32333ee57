package models

import (
	"image"
)

// Concavity classifies the local bending of a boundary point
type Concavity int

const (
	Concave Concavity = -1
	Flat    Concavity = 0
	Convex  Concavity = 1
)

// BoundaryPoint describes one boundary pixel of a labeled object
type BoundaryPoint struct {
	// Label is the object the point belongs to
	Label int

	// Position is the pixel location
	Position image.Point

	// Turn is the signed turning angle of the smoothed contour at this point, in radians.
	// Positive values bend towards the object interior (convex).
	Turn float64

	// Curvature is Turn divided by the local arc length, in 1/pixel
	Curvature float64

	// Concavity is the sign of Turn after a small dead band
	Concavity Concavity

	// Region is the concave region id within the object, 0 for points outside any concave region
	Region int
}

// PassRecord is the complete provenance of one cutting pass.
// It is built while the pass runs and never modified afterwards.
type PassRecord struct {
	// Index is the 1-based pass number
	Index int

	// WorkingMask is the input of this pass
	WorkingMask Mask

	// SelectedClumps are the working-mask objects classified as clumps
	SelectedClumps Mask

	// NonClumps are the remaining working-mask objects
	NonClumps Mask

	// CleanedClumps are the selected clumps after opening, re-labelling and small-object removal
	CleanedClumps *LabelImage

	// Perimeters are the boundary descriptors of CleanedClumps
	Perimeters []BoundaryPoint

	// CutMask holds the cut-line pixels proposed by the separator
	CutMask Mask

	// SeparatedClumps is CleanedClumps with the cut lines removed
	SeparatedClumps Mask
}
