package models

import (
	"image"
	"sort"
)

// LabelImage assigns each pixel a connected-component id.
// 0 is background; positive ids need not be contiguous.
type LabelImage struct {
	Width  int
	Height int
	Pix    []int
}

// NewLabelImage allocates an all-background label image
func NewLabelImage(width, height int) *LabelImage {
	return &LabelImage{
		Width:  width,
		Height: height,
		Pix:    make([]int, width*height),
	}
}

// In reports whether (x, y) lies inside the image
func (l *LabelImage) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < l.Width && y < l.Height
}

// At returns the label at (x, y); outside points are background
func (l *LabelImage) At(x, y int) int {
	if !l.In(x, y) {
		return 0
	}
	return l.Pix[y*l.Width+x]
}

// Set writes the label at (x, y)
func (l *LabelImage) Set(x, y, label int) {
	if l.In(x, y) {
		l.Pix[y*l.Width+x] = label
	}
}

// Clone returns a deep copy
func (l *LabelImage) Clone() *LabelImage {
	out := &LabelImage{Width: l.Width, Height: l.Height, Pix: make([]int, len(l.Pix))}
	copy(out.Pix, l.Pix)
	return out
}

// Labels returns the distinct non-zero labels in ascending order
func (l *LabelImage) Labels() []int {
	seen := make(map[int]struct{})
	for _, v := range l.Pix {
		if v > 0 {
			seen[v] = struct{}{}
		}
	}
	labels := make([]int, 0, len(seen))
	for v := range seen {
		labels = append(labels, v)
	}
	sort.Ints(labels)
	return labels
}

// Areas returns the pixel count of every non-zero label
func (l *LabelImage) Areas() map[int]int {
	areas := make(map[int]int)
	for _, v := range l.Pix {
		if v > 0 {
			areas[v]++
		}
	}
	return areas
}

// BoundingBoxes returns the bounding rectangle of every non-zero label
func (l *LabelImage) BoundingBoxes() map[int]image.Rectangle {
	boxes := make(map[int]image.Rectangle)
	for y := 0; y < l.Height; y++ {
		for x := 0; x < l.Width; x++ {
			v := l.Pix[y*l.Width+x]
			if v <= 0 {
				continue
			}
			px := image.Rect(x, y, x+1, y+1)
			if r, ok := boxes[v]; ok {
				boxes[v] = r.Union(px)
			} else {
				boxes[v] = px
			}
		}
	}
	return boxes
}

// Mask returns the foreground of all labels
func (l *LabelImage) Mask() Mask {
	m := NewMask(l.Width, l.Height)
	for i, v := range l.Pix {
		m.Pix[i] = v > 0
	}
	return m
}

// MaskOf returns the pixels carrying the given label
func (l *LabelImage) MaskOf(label int) Mask {
	m := NewMask(l.Width, l.Height)
	for i, v := range l.Pix {
		m.Pix[i] = v == label
	}
	return m
}

// Erase returns a copy with every pixel of m set to background
func (l *LabelImage) Erase(m Mask) *LabelImage {
	out := l.Clone()
	for i, v := range m.Pix {
		if v && i < len(out.Pix) {
			out.Pix[i] = 0
		}
	}
	return out
}
