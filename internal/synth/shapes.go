// Package synth draws the synthetic masks and images used by the tests:
// filled disks, dumbbells made of two disks joined by a neck, and flat or
// graded intensity images.
package synth

import (
	"image"
	"image/color"

	"declump/internal/models"
)

// Disk draws a filled disk into m
func Disk(m models.Mask, cx, cy, r int) {
	for y := cy - r; y <= cy+r; y++ {
		for x := cx - r; x <= cx+r; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= r*r {
				m.Set(x, y, true)
			}
		}
	}
}

// Rect fills the half-open rectangle into m
func Rect(m models.Mask, r image.Rectangle) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			m.Set(x, y, true)
		}
	}
}

// DiskMask returns a mask holding a single disk
func DiskMask(width, height, cx, cy, r int) models.Mask {
	m := models.NewMask(width, height)
	Disk(m, cx, cy, r)
	return m
}

// Dumbbell returns a mask with two disks of radius r centred on the horizontal
// midline, separated by gap pixels between centres and joined by a neck of the
// given height
func Dumbbell(width, height, r, gap, neck int) models.Mask {
	m := models.NewMask(width, height)
	cy := height / 2
	left := (width - gap) / 2
	right := left + gap
	Disk(m, left, cy, r)
	Disk(m, right, cy, r)
	Rect(m, image.Rect(left, cy-neck/2, right+1, cy-neck/2+neck))
	return m
}

// GrayFromMask renders a mask as 8-bit gray with the given foreground value
func GrayFromMask(m models.Mask, fg uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.At(x, y) {
				img.SetGray(x, y, color.Gray{Y: fg})
			}
		}
	}
	return img
}

// FlatGray returns a uniform 8-bit image
func FlatGray(width, height int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

// RampGray16 returns a 16-bit image increasing from left to right
func RampGray16(width, height int) *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetGray16(x, y, color.Gray16{Y: uint16(x * 65535 / max(width-1, 1))})
		}
	}
	return img
}
