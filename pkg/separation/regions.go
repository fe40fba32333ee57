package separation

import (
	"image"
	"math"
	"sort"

	"declump/internal/models"
)

// Region summarises one concave stretch of an object boundary
type Region struct {
	Label int
	ID    int

	// Angle is the net inward turn of the stretch, in radians (positive)
	Angle float64

	// Length is the number of boundary pixels in the stretch
	Length int

	// Radius is the radius of the circle with the same arc length and angle
	Radius float64

	// Anchor is the point of most negative curvature, the cut endpoint
	Anchor image.Point

	anchorCurvature float64
}

// Criteria bound the regions and cuts the separator accepts
type Criteria struct {
	// MaxRadius is the largest radius of a concave region
	MaxRadius float64

	// MinAngle is the smallest net turn of a concave region, in radians
	MinAngle float64

	// MinCutArea is the smallest fragment a cut may produce
	MinCutArea int

	// MaxNumRegions caps the regions examined per object
	MaxNumRegions int
}

// Regions groups concave boundary points into regions, keyed by label
func Regions(points []models.BoundaryPoint) map[int][]Region {
	type key struct{ label, id int }
	byKey := make(map[key]*Region)
	var order []key

	for _, p := range points {
		if p.Region <= 0 {
			continue
		}
		k := key{p.Label, p.Region}
		r, ok := byKey[k]
		if !ok {
			r = &Region{Label: p.Label, ID: p.Region, Anchor: p.Position, anchorCurvature: math.Inf(1)}
			byKey[k] = r
			order = append(order, k)
		}
		r.Angle -= p.Turn
		r.Length++
		if p.Curvature < r.anchorCurvature {
			r.anchorCurvature = p.Curvature
			r.Anchor = p.Position
		}
	}

	out := make(map[int][]Region)
	for _, k := range order {
		r := byKey[k]
		if r.Angle > 0 {
			r.Radius = float64(r.Length) / r.Angle
		} else {
			r.Radius = math.Inf(1)
		}
		out[k.label] = append(out[k.label], *r)
	}
	for label := range out {
		regions := out[label]
		sort.Slice(regions, func(i, j int) bool { return regions[i].ID < regions[j].ID })
	}
	return out
}

// Select keeps the regions that are sharp and tight enough, strongest first,
// at most MaxNumRegions of them
func (c Criteria) Select(regions []Region) []Region {
	var kept []Region
	for _, r := range regions {
		if r.Angle >= c.MinAngle && r.Radius <= c.MaxRadius {
			kept = append(kept, r)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Angle != kept[j].Angle {
			return kept[i].Angle > kept[j].Angle
		}
		return kept[i].ID < kept[j].ID
	})
	if c.MaxNumRegions > 0 && len(kept) > c.MaxNumRegions {
		kept = kept[:c.MaxNumRegions]
	}
	return kept
}
