package declump

import (
	"fmt"
	"image"

	"gonum.org/v1/gonum/floats"

	"declump/internal/models"
)

// MaskFromImage converts a single-channel image into a mask.
// The samples may take at most two values, one of them zero; the other is foreground.
func MaskFromImage(img image.Image) (models.Mask, error) {
	if img == nil {
		return models.Mask{}, &TypeError{Input: "mask", Reason: "image is nil"}
	}

	var sample func(x, y int) uint32
	switch im := img.(type) {
	case *image.Gray:
		sample = func(x, y int) uint32 { return uint32(im.GrayAt(x, y).Y) }
	case *image.Gray16:
		sample = func(x, y int) uint32 { return uint32(im.Gray16At(x, y).Y) }
	default:
		return models.Mask{}, &TypeError{Input: "mask", Reason: fmt.Sprintf("expected a single-channel gray image, got %T", img)}
	}

	b := img.Bounds()
	m := models.NewMask(b.Dx(), b.Dy())
	var fg uint32
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := sample(x, y)
			if v == 0 {
				continue
			}
			if fg == 0 {
				fg = v
			} else if v != fg {
				return models.Mask{}, &TypeError{Input: "mask", Reason: fmt.Sprintf("not binary: found values %d and %d besides 0", fg, v)}
			}
			m.Set(x-b.Min.X, y-b.Min.Y, true)
		}
	}
	return m, nil
}

// IntensityFromImage converts an integer gray image into intensities rescaled
// to [0, 1] by its own minimum and maximum. A constant image maps to zeros.
func IntensityFromImage(img image.Image) (*models.IntensityImage, error) {
	if img == nil {
		return nil, &TypeError{Input: "image", Reason: "image is nil"}
	}

	b := img.Bounds()
	out := models.NewIntensityImage(b.Dx(), b.Dy())
	switch im := img.(type) {
	case *image.Gray:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				out.Set(x-b.Min.X, y-b.Min.Y, float64(im.GrayAt(x, y).Y))
			}
		}
	case *image.Gray16:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				out.Set(x-b.Min.X, y-b.Min.Y, float64(im.Gray16At(x, y).Y))
			}
		}
	default:
		return nil, &TypeError{Input: "image", Reason: fmt.Sprintf("expected an integer gray image, got %T", img)}
	}

	rescale(out.Raw())
	return out, nil
}

func rescale(data []float64) {
	if len(data) == 0 {
		return
	}
	lo, hi := floats.Min(data), floats.Max(data)
	if hi == lo {
		for i := range data {
			data[i] = 0
		}
		return
	}
	floats.AddConst(-lo, data)
	floats.Scale(1/(hi-lo), data)
}
