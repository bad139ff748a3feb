package mot

import (
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
)

// framePlane is intensity data of a frame shared read-only between template trackers:
// the plane itself, summed-area tables and (lazily) its 2D spectrum.
type framePlane struct {
	gray  *grayImage
	sum   []float64
	sqSum []float64
	// Padded spectrum size
	rows int
	cols int

	once     sync.Once
	spectrum []complex128
}

func newFramePlane(f Frame) *framePlane {
	gray := f.gray()
	sum, sqSum := integralImages(gray)
	return &framePlane{
		gray:  gray,
		sum:   sum,
		sqSum: sqSum,
		rows:  fftSize(gray.height),
		cols:  fftSize(gray.width),
	}
}

// imageSpectrum returns Fourier coefficients of the zero-padded plane. Computed once.
func (plane *framePlane) imageSpectrum() []complex128 {
	plane.once.Do(func() {
		data := make([]complex128, plane.rows*plane.cols)
		for y := 0; y < plane.gray.height; y++ {
			row := plane.gray.pix[y*plane.gray.width : (y+1)*plane.gray.width]
			for x, v := range row {
				data[y*plane.cols+x] = complex(v, 0)
			}
		}
		newFFT2D(plane.rows, plane.cols).forward(data)
		plane.spectrum = data
	})
	return plane.spectrum
}

// fftSize returns the smallest n' >= n having no prime factors other than 2, 3 and 5
func fftSize(n int) int {
	for m := max(n, 1); ; m++ {
		k := m
		for _, p := range [...]int{2, 3, 5} {
			for k%p == 0 {
				k /= p
			}
		}
		if k == 1 {
			return m
		}
	}
}

// fft2D is row-column 2D transform of rows x cols row-major data. Not safe for concurrent use.
type fft2D struct {
	rows   int
	cols   int
	rowFFT *fourier.CmplxFFT
	colFFT *fourier.CmplxFFT
	column []complex128
}

func newFFT2D(rows, cols int) *fft2D {
	return &fft2D{
		rows:   rows,
		cols:   cols,
		rowFFT: fourier.NewCmplxFFT(cols),
		colFFT: fourier.NewCmplxFFT(rows),
		column: make([]complex128, rows),
	}
}

// forward transforms data in place
func (plan *fft2D) forward(data []complex128) {
	plan.transform(data, false)
}

// inverse transforms data in place. The result is scaled by rows*cols.
func (plan *fft2D) inverse(data []complex128) {
	plan.transform(data, true)
}

func (plan *fft2D) transform(data []complex128, inverse bool) {
	for r := 0; r < plan.rows; r++ {
		row := data[r*plan.cols : (r+1)*plan.cols]
		if inverse {
			plan.rowFFT.Sequence(row, row)
		} else {
			plan.rowFFT.Coefficients(row, row)
		}
	}
	for c := 0; c < plan.cols; c++ {
		for r := 0; r < plan.rows; r++ {
			plan.column[r] = data[r*plan.cols+c]
		}
		if inverse {
			plan.colFFT.Sequence(plan.column, plan.column)
		} else {
			plan.colFFT.Coefficients(plan.column, plan.column)
		}
		for r := 0; r < plan.rows; r++ {
			data[r*plan.cols+c] = plan.column[r]
		}
	}
}
