// Package smoothing low-passes intensity images in the frequency domain so
// that cut paths follow intensity valleys rather than pixel noise.
package smoothing

import (
	"math"

	"declump/internal/models"
)

// Gaussian returns a copy of im blurred with a Gaussian of the given sigma (pixels).
// The image is padded by edge replication before the transform so that the
// periodic convolution does not bleed opposite borders into each other.
// A non-positive sigma returns an unmodified copy.
func Gaussian(im *models.IntensityImage, sigma float64) *models.IntensityImage {
	w, h := im.Width(), im.Height()
	out := models.NewIntensityImage(w, h)
	if w == 0 || h == 0 {
		return out
	}
	if sigma <= 0 {
		out.Data.Copy(im.Data)
		return out
	}

	pad := int(math.Ceil(3 * sigma))
	pw, ph := w+2*pad, h+2*pad
	padded := make([]float64, pw*ph)
	for y := 0; y < ph; y++ {
		sy := clamp(y-pad, 0, h-1)
		for x := 0; x < pw; x++ {
			sx := clamp(x-pad, 0, w-1)
			padded[y*pw+x] = im.At(sx, sy)
		}
	}

	s := fft2D(padded, pw, ph)

	// Transfer function of a unit-sum Gaussian: exp(-2 pi^2 sigma^2 f^2)
	half := pw/2 + 1
	k := -2 * math.Pi * math.Pi * sigma * sigma
	for v := 0; v < ph; v++ {
		fv := float64(v) / float64(ph)
		if v > ph/2 {
			fv = float64(ph-v) / float64(ph)
		}
		for u := 0; u < half; u++ {
			fu := float64(u) / float64(pw)
			s.coeff[v*half+u] *= complex(math.Exp(k*(fu*fu+fv*fv)), 0)
		}
	}

	blurred := ifft2D(s)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.Set(x, y, blurred[(y+pad)*pw+x+pad])
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
