package smoothing

import (
	"gonum.org/v1/gonum/dsp/fourier"
)

// spectrum is the half-plane 2D Fourier transform of a real image:
// each of the height rows keeps width/2+1 coefficients
type spectrum struct {
	width  int
	height int
	coeff  []complex128
}

// fft2D performs a 2D Fast Fourier Transform on the input data.
// Rows use the real transform, columns the complex transform over the
// retained half spectrum.
//
// Parameters:
//   - data: Input image data as a 1D array (row-major order)
//   - width, height: Dimensions of the image
//
// Returns:
//   - The half-plane spectrum of the input
func fft2D(data []float64, width, height int) spectrum {
	half := width/2 + 1
	s := spectrum{width: width, height: height, coeff: make([]complex128, height*half)}

	// Perform row-wise FFT
	rowFFT := fourier.NewFFT(width)
	for y := 0; y < height; y++ {
		rowFFT.Coefficients(s.coeff[y*half:(y+1)*half], data[y*width:(y+1)*width])
	}

	// Perform column-wise FFT on the complex row coefficients
	colFFT := fourier.NewCmplxFFT(height)
	col := make([]complex128, height)
	colOut := make([]complex128, height)
	for x := 0; x < half; x++ {
		for y := 0; y < height; y++ {
			col[y] = s.coeff[y*half+x]
		}
		colFFT.Coefficients(colOut, col)
		for y := 0; y < height; y++ {
			s.coeff[y*half+x] = colOut[y]
		}
	}

	return s
}

// ifft2D inverts fft2D, including the 1/(width*height) normalisation
// that gonum leaves to the caller
func ifft2D(s spectrum) []float64 {
	half := s.width/2 + 1
	coeff := make([]complex128, len(s.coeff))
	copy(coeff, s.coeff)

	colFFT := fourier.NewCmplxFFT(s.height)
	col := make([]complex128, s.height)
	colOut := make([]complex128, s.height)
	for x := 0; x < half; x++ {
		for y := 0; y < s.height; y++ {
			col[y] = coeff[y*half+x]
		}
		colFFT.Sequence(colOut, col)
		for y := 0; y < s.height; y++ {
			coeff[y*half+x] = colOut[y]
		}
	}

	out := make([]float64, s.width*s.height)
	rowFFT := fourier.NewFFT(s.width)
	norm := float64(s.width * s.height)
	for y := 0; y < s.height; y++ {
		row := out[y*s.width : (y+1)*s.width]
		rowFFT.Sequence(row, coeff[y*half:(y+1)*half])
		for x := range row {
			row[x] /= norm
		}
	}
	return out
}
