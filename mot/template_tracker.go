package mot

import (
	"math"
	"math/cmplx"
)

// TemplateTracker is the built-in fallback tracker. It stores intensity template cropped at
// initialization and finds it on new frames by normalized cross-correlation (mean-subtracted,
// same as OpenCV TM_CCOEFF_NORMED), accepting the global maximum when it exceeds
// MatchConfidence.
//
// Whole-frame search computes the cross term through the frame spectrum; a bounded
// search window (SearchMargin > 0) sums it directly.
//
// Template size is frozen at Init: scale and rotation changes of the target are not followed.
// Template content is never refreshed either.
type TemplateTracker struct {
	options TrackerOptions
	// Template with its mean subtracted
	centered []float64
	// sqrt(sum(centered^2))
	norm        float64
	tplWidth    int
	tplHeight   int
	box         Rectangle
	lastScore   float64
	initialized bool

	// Conjugated template spectrum for the padded frame size it was built for
	tplSpectrum []complex128
	plan        *fft2D
	product     []complex128
}

// NewTemplateTracker creates uninitialized template matching tracker
func NewTemplateTracker(options TrackerOptions) *TemplateTracker {
	return &TemplateTracker{
		options: options,
	}
}

func (tracker *TemplateTracker) sealed() {}

// Strategy returns StrategyTemplate
func (tracker *TemplateTracker) Strategy() Strategy {
	return StrategyTemplate
}

// Close is no-op
func (tracker *TemplateTracker) Close() error {
	return nil
}

// LastScore returns correlation score of the most recent Update
func (tracker *TemplateTracker) LastScore() float64 {
	return tracker.lastScore
}

// Init crops template from the frame. The box is clipped to frame bounds; it fails if
// box has non-positive size or nothing is left after clipping.
func (tracker *TemplateTracker) Init(frame Frame, box Rectangle) bool {
	if box.Empty() || !frame.valid() {
		return false
	}
	x, y, w, h := clipRect(box, frame.Width, frame.Height)
	if w <= 0 || h <= 0 {
		return false
	}
	template := frame.intensity().gray.crop(x, y, w, h)

	mean := 0.0
	for _, v := range template.pix {
		mean += v
	}
	mean /= float64(len(template.pix))
	centered := make([]float64, len(template.pix))
	sumSq := 0.0
	for i, v := range template.pix {
		centered[i] = v - mean
		sumSq += centered[i] * centered[i]
	}

	if sumSq <= 1e-6*float64(len(centered)) {
		// Flat template: every window scores 0
		sumSq = 0
	}
	tracker.centered = centered
	tracker.norm = math.Sqrt(sumSq)
	tracker.tplWidth = w
	tracker.tplHeight = h
	tracker.box = Rectangle{X: float64(x), Y: float64(y), Width: float64(w), Height: float64(h)}
	tracker.lastScore = 1.0
	tracker.initialized = true
	tracker.tplSpectrum = nil
	tracker.plan = nil
	return true
}

// Update searches template on the frame
func (tracker *TemplateTracker) Update(frame Frame) (bool, Rectangle) {
	if !tracker.initialized || !frame.valid() {
		return false, tracker.box
	}
	w, h := tracker.tplWidth, tracker.tplHeight
	if frame.Width < w || frame.Height < h {
		return false, tracker.box
	}
	plane := frame.intensity()

	// Range of top-left corners to evaluate
	minX, minY := 0, 0
	maxX, maxY := frame.Width-w, frame.Height-h
	var cross func(x, y int) float64
	if margin := tracker.options.SearchMargin; margin > 0 {
		minX = max(minX, int(tracker.box.X)-margin)
		minY = max(minY, int(tracker.box.Y)-margin)
		maxX = min(maxX, int(tracker.box.X)+margin)
		maxY = min(maxY, int(tracker.box.Y)+margin)
		cross = func(x, y int) float64 {
			return tracker.directCross(plane.gray, x, y)
		}
	} else if tracker.norm > 0 {
		table := tracker.spectralCross(plane)
		cols := plane.cols
		cross = func(x, y int) float64 {
			return table[y*cols+x]
		}
	}

	stride := plane.gray.width + 1
	n := float64(w * h)
	// Windows flatter than this have no texture to correlate with
	minVariance := 1e-6 * n

	bestScore := math.Inf(-1)
	bestX, bestY := -1, -1
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			score := 0.0
			if tracker.norm > 0 {
				windowSum := rectSum(plane.sum, stride, x, y, w, h)
				windowSqSum := rectSum(plane.sqSum, stride, x, y, w, h)
				variance := windowSqSum - windowSum*windowSum/n
				if variance > minVariance {
					score = cross(x, y) / (tracker.norm * math.Sqrt(variance))
					score = max(-1, min(1, score))
				}
			}
			if score > bestScore {
				bestScore = score
				bestX, bestY = x, y
			}
		}
	}
	if bestX < 0 {
		tracker.lastScore = 0
		return false, tracker.box
	}
	tracker.lastScore = bestScore
	if bestScore <= tracker.options.MatchConfidence {
		return false, tracker.box
	}
	tracker.box = Rectangle{X: float64(bestX), Y: float64(bestY), Width: float64(w), Height: float64(h)}
	return true, tracker.box
}

// directCross is sum of centered template times window with top-left corner (x, y)
func (tracker *TemplateTracker) directCross(img *grayImage, x, y int) float64 {
	w, h := tracker.tplWidth, tracker.tplHeight
	cross := 0.0
	for row := 0; row < h; row++ {
		tplRow := tracker.centered[row*w : (row+1)*w]
		imgRow := img.pix[(y+row)*img.width+x : (y+row)*img.width+x+w]
		for col := range tplRow {
			cross += tplRow[col] * imgRow[col]
		}
	}
	return cross
}

// spectralCross returns directCross for every top-left corner at once, row-major with
// plane.cols stride, via the correlation theorem. Template spectrum is cached per padded size.
func (tracker *TemplateTracker) spectralCross(plane *framePlane) []float64 {
	rows, cols := plane.rows, plane.cols
	if tracker.plan == nil || tracker.plan.rows != rows || tracker.plan.cols != cols {
		tracker.plan = newFFT2D(rows, cols)
		spectrum := make([]complex128, rows*cols)
		for row := 0; row < tracker.tplHeight; row++ {
			for col := 0; col < tracker.tplWidth; col++ {
				spectrum[row*cols+col] = complex(tracker.centered[row*tracker.tplWidth+col], 0)
			}
		}
		tracker.plan.forward(spectrum)
		for i, v := range spectrum {
			spectrum[i] = cmplx.Conj(v)
		}
		tracker.tplSpectrum = spectrum
		tracker.product = make([]complex128, rows*cols)
	}

	image := plane.imageSpectrum()
	for i := range tracker.product {
		tracker.product[i] = image[i] * tracker.tplSpectrum[i]
	}
	tracker.plan.inverse(tracker.product)

	scale := 1.0 / float64(rows*cols)
	out := make([]float64, rows*cols)
	for i, v := range tracker.product {
		out[i] = real(v) * scale
	}
	return out
}

// integralImages builds summed-area tables of intensities and squared intensities
func integralImages(img *grayImage) ([]float64, []float64) {
	stride := img.width + 1
	sum := make([]float64, stride*(img.height+1))
	sqSum := make([]float64, stride*(img.height+1))
	for y := 0; y < img.height; y++ {
		rowSum, rowSqSum := 0.0, 0.0
		for x := 0; x < img.width; x++ {
			v := img.at(x, y)
			rowSum += v
			rowSqSum += v * v
			sum[(y+1)*stride+x+1] = sum[y*stride+x+1] + rowSum
			sqSum[(y+1)*stride+x+1] = sqSum[y*stride+x+1] + rowSqSum
		}
	}
	return sum, sqSum
}

func rectSum(table []float64, stride, x, y, w, h int) float64 {
	return table[(y+h)*stride+x+w] - table[y*stride+x+w] - table[(y+h)*stride+x] + table[y*stride+x]
}
