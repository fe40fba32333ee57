package models

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
)

// Mask is a binary image stored in row-major order.
// A true pixel is foreground, a false pixel is background.
type Mask struct {
	// Width is the number of columns
	Width int

	// Height is the number of rows
	Height int

	// Pix holds Width*Height samples, index y*Width+x
	Pix []bool
}

// NewMask allocates an all-background mask of the given dimensions
func NewMask(width, height int) Mask {
	return Mask{
		Width:  width,
		Height: height,
		Pix:    make([]bool, width*height),
	}
}

// In reports whether (x, y) lies inside the mask
func (m Mask) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < m.Width && y < m.Height
}

// At returns the sample at (x, y); points outside the mask are background
func (m Mask) At(x, y int) bool {
	if !m.In(x, y) {
		return false
	}
	return m.Pix[y*m.Width+x]
}

// Set writes the sample at (x, y). Points outside the mask are ignored.
func (m Mask) Set(x, y int, v bool) {
	if m.In(x, y) {
		m.Pix[y*m.Width+x] = v
	}
}

// Count returns the number of foreground pixels
func (m Mask) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v {
			n++
		}
	}
	return n
}

// Any reports whether the mask has at least one foreground pixel
func (m Mask) Any() bool {
	for _, v := range m.Pix {
		if v {
			return true
		}
	}
	return false
}

// Clone returns a deep copy
func (m Mask) Clone() Mask {
	out := Mask{Width: m.Width, Height: m.Height, Pix: make([]bool, len(m.Pix))}
	copy(out.Pix, m.Pix)
	return out
}

// SameSize reports whether both masks have the same dimensions
func (m Mask) SameSize(o Mask) bool {
	return m.Width == o.Width && m.Height == o.Height
}

// Equal reports whether both masks have the same dimensions and samples
func (m Mask) Equal(o Mask) bool {
	if !m.SameSize(o) {
		return false
	}
	for i, v := range m.Pix {
		if o.Pix[i] != v {
			return false
		}
	}
	return true
}

// Union returns m OR o
func (m Mask) Union(o Mask) (Mask, error) {
	if !m.SameSize(o) {
		return Mask{}, sizeError(m, o)
	}
	out := m.Clone()
	for i, v := range o.Pix {
		if v {
			out.Pix[i] = true
		}
	}
	return out, nil
}

// Subtract returns m AND NOT o
func (m Mask) Subtract(o Mask) (Mask, error) {
	if !m.SameSize(o) {
		return Mask{}, sizeError(m, o)
	}
	out := m.Clone()
	for i, v := range o.Pix {
		if v {
			out.Pix[i] = false
		}
	}
	return out, nil
}

// Intersect returns m AND o
func (m Mask) Intersect(o Mask) (Mask, error) {
	if !m.SameSize(o) {
		return Mask{}, sizeError(m, o)
	}
	out := NewMask(m.Width, m.Height)
	for i, v := range m.Pix {
		out.Pix[i] = v && o.Pix[i]
	}
	return out, nil
}

// Disjoint reports whether no pixel is foreground in both masks
func (m Mask) Disjoint(o Mask) bool {
	if !m.SameSize(o) {
		return false
	}
	for i, v := range m.Pix {
		if v && o.Pix[i] {
			return false
		}
	}
	return true
}

// SubsetOf reports whether every foreground pixel of m is foreground in o
func (m Mask) SubsetOf(o Mask) bool {
	if !m.SameSize(o) {
		return false
	}
	for i, v := range m.Pix {
		if v && !o.Pix[i] {
			return false
		}
	}
	return true
}

// Bounds returns the smallest rectangle containing every foreground pixel.
// An empty mask yields the zero rectangle.
func (m Mask) Bounds() image.Rectangle {
	r := image.Rectangle{}
	found := false
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if !m.Pix[y*m.Width+x] {
				continue
			}
			if !found {
				r = image.Rect(x, y, x+1, y+1)
				found = true
				continue
			}
			r = r.Union(image.Rect(x, y, x+1, y+1))
		}
	}
	return r
}

// ToGray renders the mask as an 8-bit image with foreground at 255
func (m Mask) ToGray() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.Pix[y*m.Width+x] {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

func sizeError(a, b Mask) error {
	return errors.Errorf("mask sizes differ: %dx%d != %dx%d", a.Width, a.Height, b.Width, b.Height)
}
