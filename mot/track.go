package mot

import (
	kalman_filter "github.com/LdDl/kalman-filter"
	"github.com/pkg/errors"
)

// TrackState is lifecycle state of a track
type TrackState uint16

const (
	// TrackActive means the last update succeeded
	TrackActive TrackState = iota
	// TrackLost means the last update failed but lost-frames threshold is not exceeded yet
	TrackLost
	// TrackTerminated is terminal: track is not updated anymore
	TrackTerminated
)

func (state TrackState) String() string {
	switch state {
	case TrackActive:
		return "active"
	case TrackLost:
		return "lost"
	case TrackTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Color is three-channel color
type Color [3]uint8

// trackColors is display palette indexed by track id
var trackColors = []Color{
	{255, 0, 0},     // Red
	{0, 255, 0},     // Green
	{0, 0, 255},     // Blue
	{255, 255, 0},   // Yellow
	{255, 0, 255},   // Magenta
	{0, 255, 255},   // Cyan
	{255, 165, 0},   // Orange
	{128, 0, 128},   // Purple
	{255, 192, 203}, // Pink
	{0, 128, 0},     // Dark Green
}

// TrackColor returns display color for track id
func TrackColor(id int) Color {
	if id < 0 {
		id = -id
	}
	return trackColors[id%len(trackColors)]
}

// Track is a single tracked target owned by TrackManager
type Track struct {
	id         int
	state      TrackState
	box        Rectangle
	lostFrames int
	tracker    Tracker
	requested  Strategy
	// Kalman filter over box center
	kf        *kalman_filter.Kalman2D
	smoothed  Point
	predicted Point
	// Frame indices of creation and of the last successful update
	createdFrame  int
	lastSeenFrame int
}

func newTrack(id int, tracker Tracker, requested Strategy, box Rectangle, frameIndex int, dt float64) *Track {
	center := box.Center()
	return &Track{
		id:            id,
		state:         TrackActive,
		box:           box,
		tracker:       tracker,
		requested:     requested,
		kf:            newCenterFilter(center, dt),
		smoothed:      center,
		predicted:     center,
		createdFrame:  frameIndex,
		lastSeenFrame: frameIndex,
	}
}

func newCenterFilter(center Point, dt float64) *kalman_filter.Kalman2D {
	/* Kalman filter props */
	ux := 1.0
	uy := 1.0
	stdDevA := 2.0
	stdDevMx := 0.1
	stdDevMy := 0.1
	return kalman_filter.NewKalman2D(dt, ux, uy, stdDevA, stdDevMx, stdDevMy, kalman_filter.WithState2D(center.X, center.Y))
}

// markSeen applies successful update
func (track *Track) markSeen(box Rectangle, frameIndex int) error {
	track.box = box
	track.lostFrames = 0
	track.state = TrackActive
	track.lastSeenFrame = frameIndex

	center := box.Center()
	track.kf.Predict()
	err := track.kf.Update(center.X, center.Y)
	if err != nil {
		track.smoothed = center
		track.predicted = center
		return errors.Wrap(err, "Can't update center filter")
	}
	stateX, stateY := track.kf.GetState()
	track.smoothed = Point{X: stateX, Y: stateY}
	track.predicted = track.smoothed
	return nil
}

// markMissed applies failed update. Returns true when track became terminated.
func (track *Track) markMissed(maxLostFrames int) bool {
	track.lostFrames++
	track.state = TrackLost
	// Coast: prediction without correction
	track.kf.Predict()
	stateX, stateY := track.kf.GetState()
	track.predicted = Point{X: stateX, Y: stateY}
	if track.lostFrames > maxLostFrames {
		track.terminate()
		return true
	}
	return false
}

func (track *Track) terminate() {
	track.state = TrackTerminated
	if track.tracker != nil {
		track.tracker.Close()
	}
}

// replace swaps underlying tracker after reinitialization
func (track *Track) replace(tracker Tracker, box Rectangle, frameIndex int, dt float64) {
	if track.tracker != nil {
		track.tracker.Close()
	}
	center := box.Center()
	track.tracker = tracker
	track.box = box
	track.lostFrames = 0
	track.state = TrackActive
	track.kf = newCenterFilter(center, dt)
	track.smoothed = center
	track.predicted = center
	track.lastSeenFrame = frameIndex
}

// TrackInfo is read-only snapshot of a track
type TrackInfo struct {
	ID                int
	State             TrackState
	Box               Rectangle
	Center            Point
	SmoothedCenter    Point
	LostFrames        int
	Strategy          Strategy
	RequestedStrategy Strategy
	Color             Color
	CreatedFrame      int
	LastSeenFrame     int
}

func (track *Track) info() TrackInfo {
	return TrackInfo{
		ID:                track.id,
		State:             track.state,
		Box:               track.box,
		Center:            track.box.Center(),
		SmoothedCenter:    track.smoothed,
		LostFrames:        track.lostFrames,
		Strategy:          track.tracker.Strategy(),
		RequestedStrategy: track.requested,
		Color:             TrackColor(track.id),
		CreatedFrame:      track.createdFrame,
		LastSeenFrame:     track.lastSeenFrame,
	}
}
