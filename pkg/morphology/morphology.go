// Package morphology implements the binary image operations used to prepare
// clumps for perimeter analysis: disk structuring elements, erosion, dilation,
// opening, hole filling and connected-component labelling.
package morphology

import (
	"image"

	"declump/internal/models"
)

// StructuringElement is the set of offsets covered by the element,
// relative to its centre
type StructuringElement struct {
	Radius  int
	Offsets []image.Point
}

// Disk returns a disk-shaped structuring element of the given radius.
// Radii below 1 are clamped to 1.
func Disk(radius int) StructuringElement {
	if radius < 1 {
		radius = 1
	}
	se := StructuringElement{Radius: radius}
	r2 := radius * radius
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy <= r2 {
				se.Offsets = append(se.Offsets, image.Point{X: dx, Y: dy})
			}
		}
	}
	return se
}

// Erode keeps a pixel when every offset of the element lands on foreground.
// Pixels outside the mask count as background.
func Erode(m models.Mask, se StructuringElement) models.Mask {
	out := models.NewMask(m.Width, m.Height)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if !m.Pix[y*m.Width+x] {
				continue
			}
			keep := true
			for _, o := range se.Offsets {
				if !m.At(x+o.X, y+o.Y) {
					keep = false
					break
				}
			}
			out.Pix[y*m.Width+x] = keep
		}
	}
	return out
}

// Dilate sets every pixel covered by the element centred on a foreground pixel
func Dilate(m models.Mask, se StructuringElement) models.Mask {
	out := models.NewMask(m.Width, m.Height)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if !m.Pix[y*m.Width+x] {
				continue
			}
			for _, o := range se.Offsets {
				out.Set(x+o.X, y+o.Y, true)
			}
		}
	}
	return out
}

// Open performs erosion followed by dilation. The result is always a subset of m.
func Open(m models.Mask, se StructuringElement) models.Mask {
	return Dilate(Erode(m, se), se)
}

// FillHoles sets every background pixel that is not 4-connected to the image border
func FillHoles(m models.Mask) models.Mask {
	w, h := m.Width, m.Height
	reached := make([]bool, w*h)
	queue := make([]image.Point, 0, 2*(w+h))

	push := func(x, y int) {
		idx := y*w + x
		if m.Pix[idx] || reached[idx] {
			return
		}
		reached[idx] = true
		queue = append(queue, image.Point{X: x, Y: y})
	}

	// Seed with border background
	for x := 0; x < w; x++ {
		push(x, 0)
		push(x, h-1)
	}
	for y := 0; y < h; y++ {
		push(0, y)
		push(w-1, y)
	}

	for len(queue) != 0 {
		p := queue[0]
		queue = queue[1:]
		fourPoints := []image.Point{{p.X, p.Y - 1}, {p.X, p.Y + 1}, {p.X - 1, p.Y}, {p.X + 1, p.Y}}
		for _, n := range fourPoints {
			if m.In(n.X, n.Y) {
				push(n.X, n.Y)
			}
		}
	}

	out := models.NewMask(w, h)
	for i := range out.Pix {
		out.Pix[i] = m.Pix[i] || !reached[i]
	}
	return out
}

// HasHoles reports whether the foreground encloses background
func HasHoles(m models.Mask) bool {
	return FillHoles(m).Count() != m.Count()
}

// LabelWithHoles returns the first label (ascending) whose object encloses background
func LabelWithHoles(l *models.LabelImage) (int, bool) {
	boxes := l.BoundingBoxes()
	for _, label := range l.Labels() {
		box := boxes[label].Inset(-1)
		crop := models.NewMask(box.Dx(), box.Dy())
		for y := box.Min.Y; y < box.Max.Y; y++ {
			for x := box.Min.X; x < box.Max.X; x++ {
				if l.At(x, y) == label {
					crop.Set(x-box.Min.X, y-box.Min.Y, true)
				}
			}
		}
		if HasHoles(crop) {
			return label, true
		}
	}
	return 0, false
}
