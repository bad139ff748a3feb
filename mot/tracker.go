package mot

import (
	"strings"
)

// Strategy names algorithm backing a single-target tracker
type Strategy string

const (
	// StrategyCSRT is native discriminative correlation filter tracker with channel and spatial reliability
	StrategyCSRT Strategy = "CSRT"
	// StrategyKCF is native kernelized correlation filter tracker
	StrategyKCF Strategy = "KCF"
	// StrategyMIL is native multiple instance learning tracker
	StrategyMIL Strategy = "MIL"
	// StrategyMOSSE is accepted for compatibility and served by KCF
	StrategyMOSSE Strategy = "MOSSE"
	// StrategyTemplate is built-in normalized cross-correlation template matcher
	StrategyTemplate Strategy = "template"
)

// ParseStrategy parses strategy name (case-insensitive). Unknown names give CSRT.
func ParseStrategy(s string) Strategy {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "KCF":
		return StrategyKCF
	case "MIL":
		return StrategyMIL
	case "MOSSE":
		return StrategyMOSSE
	case "TEMPLATE", "BASIC", "FALLBACK":
		return StrategyTemplate
	default:
		return StrategyCSRT
	}
}

// IsNative reports whether strategy needs native tracking capability
func (s Strategy) IsNative() bool {
	return s != StrategyTemplate
}

// Tracker is the single-target tracking contract.
// Implementations are TemplateTracker and NativeTracker; the set is closed.
type Tracker interface {
	// Init starts tracking of box on the frame
	Init(frame Frame, box Rectangle) bool
	// Update searches target on the new frame. On failure it returns the last known box.
	Update(frame Frame) (bool, Rectangle)
	// Strategy returns algorithm actually backing the tracker
	Strategy() Strategy
	// Close releases resources held by tracker
	Close() error

	sealed()
}

// TrackerOptions holds parameters shared by tracker implementations
type TrackerOptions struct {
	// Minimum normalized cross-correlation for template match to be accepted
	MatchConfidence float64
	// Search margin around last box in pixels for template matching. 0 means whole frame
	SearchMargin int
}

// DefaultTrackerOptions returns options with match confidence 0.5 and global search
func DefaultTrackerOptions() TrackerOptions {
	return TrackerOptions{
		MatchConfidence: 0.5,
		SearchMargin:    0,
	}
}

// NativeAvailable reports whether native tracking capability was compiled in and works.
// The check is performed once per process.
func NativeAvailable() bool {
	return nativeAvailable()
}

// NewTracker creates tracker for the requested strategy. When native capability is
// unavailable (or fails to construct) it transparently falls back to template matching;
// inspect Tracker.Strategy() to know what backs the result.
func NewTracker(hint Strategy, options TrackerOptions) Tracker {
	if hint.IsNative() && NativeAvailable() {
		if native, ok := newNativeTracker(hint); ok {
			return native
		}
	}
	return NewTemplateTracker(options)
}
