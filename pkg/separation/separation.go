// Package separation proposes cut lines that split clumped objects between
// pairs of concave boundary regions.
package separation

import (
	"image"
	"math"
	"sort"

	"github.com/pkg/errors"

	"declump/internal/models"
)

// Separator draws at most one cut per object. A cut is the cheapest path
// through the object between the anchors of two concave regions, where
// each pixel costs 1 plus IntensityWeight times its intensity, so bright
// pixels repel cuts and dark valleys between touching objects attract them.
type Separator struct {
	// IntensityWeight scales the intensity term of the path cost
	IntensityWeight float64
}

// NewSeparator returns a separator with unit intensity weight
func NewSeparator() Separator {
	return Separator{IntensityWeight: 1}
}

// Separate returns the cut-line mask for every object in labels.
// Objects whose candidate cuts all fail to yield exactly two fragments of at
// least MinCutArea pixels are left uncut.
func (s Separator) Separate(labels *models.LabelImage, intensity *models.IntensityImage, points []models.BoundaryPoint, c Criteria) (models.Mask, error) {
	if labels == nil || labels.Width < 0 || labels.Height < 0 || len(labels.Pix) != labels.Width*labels.Height {
		return models.Mask{}, errors.New("separation: malformed label image")
	}
	if intensity.Width() != labels.Width || intensity.Height() != labels.Height {
		return models.Mask{}, errors.Errorf("separation: intensity image is %dx%d, labels are %dx%d",
			intensity.Width(), intensity.Height(), labels.Width, labels.Height)
	}
	for _, p := range points {
		if got := labels.At(p.Position.X, p.Position.Y); got != p.Label {
			return models.Mask{}, errors.Errorf("separation: boundary point %v is labelled %d, not %d", p.Position, got, p.Label)
		}
	}

	cut := models.NewMask(labels.Width, labels.Height)
	regions := Regions(points)
	boxes := labels.BoundingBoxes()

	for _, label := range labels.Labels() {
		selected := c.Select(regions[label])
		if len(selected) < 2 {
			continue
		}
		obj := newObject(labels, label, boxes[label], intensity, s.IntensityWeight)
		for _, p := range obj.bestCut(selected, c) {
			cut.Set(p.X, p.Y, true)
		}
	}
	return cut, nil
}

// object is one labelled object cropped to its bounding box
type object struct {
	rect   image.Rectangle
	w, h   int
	inside []bool
	cost   []float64
}

func newObject(labels *models.LabelImage, label int, rect image.Rectangle, intensity *models.IntensityImage, weight float64) *object {
	o := &object{rect: rect, w: rect.Dx(), h: rect.Dy()}
	o.inside = make([]bool, o.w*o.h)
	o.cost = make([]float64, o.w*o.h)
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			if labels.At(x, y) != label {
				continue
			}
			i := o.index(image.Pt(x, y))
			o.inside[i] = true
			o.cost[i] = 1 + weight*math.Max(0, intensity.At(x, y))
		}
	}
	return o
}

func (o *object) index(p image.Point) int {
	return (p.Y-o.rect.Min.Y)*o.w + p.X - o.rect.Min.X
}

func (o *object) point(i int) image.Point {
	return image.Pt(o.rect.Min.X+i%o.w, o.rect.Min.Y+i/o.w)
}

func (o *object) contains(p image.Point) bool {
	return p.In(o.rect) && o.inside[o.index(p)]
}

type candidate struct {
	from, to int
	cost     float64
}

// bestCut tries anchor pairs by ascending path cost and returns the pixels of
// the first cut that splits the object cleanly, or nil
func (o *object) bestCut(selected []Region, c Criteria) []image.Point {
	var anchors []image.Point
	seen := make(map[image.Point]bool)
	for _, r := range selected {
		if !o.contains(r.Anchor) || seen[r.Anchor] {
			continue
		}
		seen[r.Anchor] = true
		anchors = append(anchors, r.Anchor)
	}
	if len(anchors) < 2 {
		return nil
	}

	trees := make([]pathTree, len(anchors))
	for i, a := range anchors {
		trees[i] = o.shortestPaths(o.index(a))
	}

	// A concave region is no wider than 2*MaxRadius, so neither is a neck
	// between two of them
	maxChord := 2 * c.MaxRadius
	var candidates []candidate
	for i := range anchors {
		for j := i + 1; j < len(anchors); j++ {
			d := anchors[i].Sub(anchors[j])
			if math.Hypot(float64(d.X), float64(d.Y)) > maxChord {
				continue
			}
			cost := trees[i].dist[o.index(anchors[j])]
			if math.IsInf(cost, 1) {
				continue
			}
			candidates = append(candidates, candidate{from: i, to: j, cost: cost})
		}
	}
	sort.Slice(candidates, func(a, b int) bool {
		ca, cb := candidates[a], candidates[b]
		if ca.cost != cb.cost {
			return ca.cost < cb.cost
		}
		if ca.from != cb.from {
			return ca.from < cb.from
		}
		return ca.to < cb.to
	})

	for _, cand := range candidates {
		band := o.band(trees[cand.from].path(o.index(anchors[cand.to])))
		if o.splits(band, c.MinCutArea) {
			pts := make([]image.Point, 0, len(band))
			for i, removed := range band {
				if removed {
					pts = append(pts, o.point(i))
				}
			}
			return pts
		}
	}
	return nil
}

// band thickens a 4-connected path by its 4-neighbours so that no pair of
// diagonal pixels can bridge it
func (o *object) band(path []int) []bool {
	removed := make([]bool, len(o.inside))
	for _, i := range path {
		p := o.point(i)
		removed[i] = true
		for _, d := range neighbours4 {
			q := p.Add(d)
			if o.contains(q) {
				removed[o.index(q)] = true
			}
		}
	}
	return removed
}

// splits reports whether removing the band leaves exactly two 8-connected
// fragments of at least minArea pixels each
func (o *object) splits(removed []bool, minArea int) bool {
	visited := make([]bool, len(o.inside))
	var sizes []int
	queue := make([]int, 0, len(o.inside))

	for start := range o.inside {
		if !o.inside[start] || removed[start] || visited[start] {
			continue
		}
		if len(sizes) == 2 {
			return false
		}
		visited[start] = true
		queue = append(queue[:0], start)
		size := 0
		for len(queue) > 0 {
			i := queue[0]
			queue = queue[1:]
			size++
			p := o.point(i)
			for _, d := range neighbours8 {
				q := p.Add(d)
				if !o.contains(q) {
					continue
				}
				j := o.index(q)
				if removed[j] || visited[j] {
					continue
				}
				visited[j] = true
				queue = append(queue, j)
			}
		}
		sizes = append(sizes, size)
	}
	return len(sizes) == 2 && sizes[0] >= minArea && sizes[1] >= minArea
}

var neighbours4 = []image.Point{{1, 0}, {0, 1}, {-1, 0}, {0, -1}}

var neighbours8 = []image.Point{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}
