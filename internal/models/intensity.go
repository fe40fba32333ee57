package models

import (
	"gonum.org/v1/gonum/mat"
)

// IntensityImage holds real-valued samples used to guide cut placement.
// Rows of the matrix are image rows, so pixel (x, y) is Data.At(y, x).
type IntensityImage struct {
	// Data is nil for an image with no pixels
	Data *mat.Dense
}

// NewIntensityImage allocates a zero image
func NewIntensityImage(width, height int) *IntensityImage {
	if width <= 0 || height <= 0 {
		return &IntensityImage{}
	}
	return &IntensityImage{Data: mat.NewDense(height, width, nil)}
}

// Width returns the number of columns
func (im *IntensityImage) Width() int {
	if im == nil || im.Data == nil {
		return 0
	}
	_, c := im.Data.Dims()
	return c
}

// Height returns the number of rows
func (im *IntensityImage) Height() int {
	if im == nil || im.Data == nil {
		return 0
	}
	r, _ := im.Data.Dims()
	return r
}

// At returns the sample at (x, y)
func (im *IntensityImage) At(x, y int) float64 {
	return im.Data.At(y, x)
}

// Set writes the sample at (x, y)
func (im *IntensityImage) Set(x, y int, v float64) {
	im.Data.Set(y, x, v)
}

// Raw exposes the row-major backing slice
func (im *IntensityImage) Raw() []float64 {
	if im.Data == nil {
		return nil
	}
	return im.Data.RawMatrix().Data
}
