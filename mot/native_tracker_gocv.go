//go:build gocv

package mot

import (
	"sync"

	"gocv.io/x/gocv"
	"gocv.io/x/gocv/contrib"
)

var (
	nativeOnce  sync.Once
	nativeReady bool
)

// NativeTracker delegates to OpenCV trackers via gocv
type NativeTracker struct {
	tracker  gocv.Tracker
	strategy Strategy
	box      Rectangle
}

func nativeAvailable() bool {
	nativeOnce.Do(func() {
		defer func() {
			if r := recover(); r != nil {
				nativeReady = false
			}
		}()
		probe := contrib.NewTrackerCSRT()
		probe.Close()
		nativeReady = true
	})
	return nativeReady
}

func newNativeTracker(hint Strategy) (Tracker, bool) {
	var tracker gocv.Tracker
	strategy := hint
	switch hint {
	case StrategyCSRT:
		tracker = contrib.NewTrackerCSRT()
	case StrategyKCF, StrategyMOSSE:
		// MOSSE is gone from recent OpenCV contrib builds
		tracker = contrib.NewTrackerKCF()
		strategy = StrategyKCF
	case StrategyMIL:
		tracker = gocv.NewTrackerMIL()
	default:
		return nil, false
	}
	return &NativeTracker{tracker: tracker, strategy: strategy}, true
}

func (native *NativeTracker) sealed() {}

// Strategy returns native algorithm name
func (native *NativeTracker) Strategy() Strategy {
	return native.strategy
}

// Close releases OpenCV tracker
func (native *NativeTracker) Close() error {
	if native.tracker == nil {
		return nil
	}
	err := native.tracker.Close()
	native.tracker = nil
	return err
}

// Init initializes OpenCV tracker with the box clipped to frame bounds
func (native *NativeTracker) Init(frame Frame, box Rectangle) bool {
	if native.tracker == nil || box.Empty() || !frame.valid() {
		return false
	}
	x, y, w, h := clipRect(box, frame.Width, frame.Height)
	if w <= 0 || h <= 0 {
		return false
	}
	mat, err := frameToMat(frame)
	if err != nil {
		return false
	}
	defer mat.Close()
	clipped := Rectangle{X: float64(x), Y: float64(y), Width: float64(w), Height: float64(h)}
	if !native.tracker.Init(mat, clipped.Image()) {
		return false
	}
	native.box = clipped
	return true
}

// Update runs OpenCV tracker on the frame
func (native *NativeTracker) Update(frame Frame) (bool, Rectangle) {
	if native.tracker == nil || !frame.valid() {
		return false, native.box
	}
	mat, err := frameToMat(frame)
	if err != nil {
		return false, native.box
	}
	defer mat.Close()
	rect, ok := native.tracker.Update(mat)
	if !ok || rect.Empty() {
		return false, native.box
	}
	native.box = NewRectFrom(rect)
	return true, native.box
}

func frameToMat(frame Frame) (gocv.Mat, error) {
	return gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC3, frame.Pix[:frame.Width*frame.Height*Channels])
}
