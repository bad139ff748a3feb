//go:build !gocv

package mot

// NativeTracker is a placeholder when the module is built without the gocv tag.
// It never initializes; NewTracker does not hand it out since NativeAvailable is false.
type NativeTracker struct{}

func nativeAvailable() bool {
	return false
}

func newNativeTracker(hint Strategy) (Tracker, bool) {
	return nil, false
}

func (native *NativeTracker) sealed() {}

// Strategy returns StrategyCSRT
func (native *NativeTracker) Strategy() Strategy {
	return StrategyCSRT
}

// Close is no-op
func (native *NativeTracker) Close() error {
	return nil
}

// Init always fails
func (native *NativeTracker) Init(frame Frame, box Rectangle) bool {
	return false
}

// Update always fails
func (native *NativeTracker) Update(frame Frame) (bool, Rectangle) {
	return false, Rectangle{}
}
