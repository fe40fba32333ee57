// Package contour traces object boundaries in label images and derives the
// polygon measures the classifier and diagnostics need.
package contour

import (
	"image"
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/simplify"

	"declump/internal/models"
)

// Moore neighbourhood in clockwise order (image coordinates, y grows downwards),
// starting west
var dirs = [8]image.Point{
	{-1, 0}, {-1, -1}, {0, -1}, {1, -1},
	{1, 0}, {1, 1}, {0, 1}, {-1, 1},
}

func dirIndex(d image.Point) int {
	for i, v := range dirs {
		if v == d {
			return i
		}
	}
	return 0
}

// Trace follows the outer boundary of the object containing start using
// Moore-neighbour tracing. start must be the first object pixel in raster
// order so that its west neighbour is background. The returned chain is
// closed implicitly: the last point is adjacent to the first.
func Trace(in func(x, y int) bool, start image.Point, maxSteps int) []image.Point {
	pts := []image.Point{start}
	c := start
	b := start.Add(dirs[0])

	for steps := 0; steps < maxSteps; steps++ {
		n, nb, found := nextBoundaryPixel(in, c, b)
		if !found {
			// isolated pixel
			return pts
		}

		// Back at the start and about to repeat the first move: done
		if c == start && len(pts) > 1 && n == pts[1] {
			return pts[:len(pts)-1]
		}

		c, b = n, nb
		pts = append(pts, c)
	}
	return pts
}

// nextBoundaryPixel scans the neighbours of c clockwise, starting after the
// backtrack pixel b, and returns the first object pixel together with the
// background pixel examined just before it
func nextBoundaryPixel(in func(x, y int) bool, c, b image.Point) (image.Point, image.Point, bool) {
	d0 := dirIndex(b.Sub(c))
	for k := 1; k <= 8; k++ {
		d := (d0 + k) % 8
		p := c.Add(dirs[d])
		if in(p.X, p.Y) {
			return p, c.Add(dirs[(d+7)%8]), true
		}
	}
	return c, b, false
}

// TraceAll returns the outer boundary of every labeled object
func TraceAll(l *models.LabelImage) map[int][]image.Point {
	areas := l.Areas()
	contours := make(map[int][]image.Point, len(areas))
	for y := 0; y < l.Height; y++ {
		for x := 0; x < l.Width; x++ {
			label := l.Pix[y*l.Width+x]
			if label <= 0 {
				continue
			}
			if _, done := contours[label]; done {
				continue
			}
			in := func(px, py int) bool { return l.At(px, py) == label }
			contours[label] = Trace(in, image.Point{X: x, Y: y}, 4*areas[label]+8)
		}
	}
	return contours
}

// Length returns the length of the closed chain, counting diagonal steps as sqrt(2)
func Length(pts []image.Point) float64 {
	if len(pts) < 2 {
		return 0
	}
	total := 0.0
	for i := range pts {
		d := pts[(i+1)%len(pts)].Sub(pts[i])
		if d.X != 0 && d.Y != 0 {
			total += math.Sqrt2
		} else {
			total += math.Abs(float64(d.X + d.Y))
		}
	}
	return total
}

// SignedArea returns the shoelace area of the closed chain.
// It is positive for chains that run clockwise on screen.
func SignedArea(pts []image.Point) float64 {
	a := 0
	for i := range pts {
		p, q := pts[i], pts[(i+1)%len(pts)]
		a += p.X*q.Y - q.X*p.Y
	}
	return float64(a) / 2
}

// ConvexHull returns the convex hull of the pixel squares along the boundary,
// as a closed ring
func ConvexHull(pts []image.Point) orb.Ring {
	corners := make([]image.Point, 0, 4*len(pts))
	seen := make(map[image.Point]struct{}, 4*len(pts))
	for _, p := range pts {
		for _, c := range [4]image.Point{p, {p.X + 1, p.Y}, {p.X, p.Y + 1}, {p.X + 1, p.Y + 1}} {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			corners = append(corners, c)
		}
	}
	if len(corners) < 3 {
		return nil
	}
	sort.Slice(corners, func(i, j int) bool {
		if corners[i].X != corners[j].X {
			return corners[i].X < corners[j].X
		}
		return corners[i].Y < corners[j].Y
	})

	cross := func(o, a, b image.Point) int {
		return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
	}

	// Andrew's monotone chain
	hull := make([]image.Point, 0, 2*len(corners))
	for _, p := range corners {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(corners) - 2; i >= 0; i-- {
		p := corners[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}

	ring := make(orb.Ring, 0, len(hull))
	for _, p := range hull {
		ring = append(ring, orb.Point{float64(p.X), float64(p.Y)})
	}
	// the chain ends on its first point, which closes the ring
	return ring
}

// RingArea returns the unsigned area enclosed by the ring
func RingArea(r orb.Ring) float64 {
	if len(r) < 4 {
		return 0
	}
	return math.Abs(planar.Area(r))
}

// Outline converts a boundary chain to a closed ring of pixel centres,
// simplified with Douglas-Peucker when tolerance is positive
func Outline(pts []image.Point, tolerance float64) orb.Ring {
	if len(pts) == 0 {
		return nil
	}
	ring := make(orb.Ring, 0, len(pts)+1)
	for _, p := range pts {
		ring = append(ring, orb.Point{float64(p.X) + 0.5, float64(p.Y) + 0.5})
	}
	ring = append(ring, ring[0])
	if tolerance <= 0 || len(ring) < 4 {
		return ring
	}
	return simplify.DouglasPeucker(tolerance).Ring(ring)
}
