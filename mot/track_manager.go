package mot

import (
	"context"
	"runtime"
	"sort"
	"sync"

	"github.com/LdDl/mot-zones/logger"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// UpdateResult is the outcome of a single track update on a frame
type UpdateResult struct {
	Success bool
	// Current box. Last known box when update failed
	Box    Rectangle
	Center Point
	// Kalman estimate of the center. While lost it coasts on the motion model
	Predicted  Point
	State      TrackState
	LostFrames int
}

// TrackManager owns all tracks: assigns identifiers, drives per-frame updates and applies
// Active -> Lost -> Terminated lifecycle.
type TrackManager struct {
	mu     sync.Mutex
	tracks map[int]*Track
	// Identifiers taking part in updates, ascending
	live   []int
	nextID int
	// Max number of consecutive failed updates before track is terminated. Default 30
	maxLostFrames int
	// Number of concurrent tracker updates. Default is GOMAXPROCS
	workers int
	options TrackerOptions
	// Time step between frames for Kalman filter (seconds)
	dt float64
}

// NewTrackManagerDefault creates manager with 30 lost frames threshold at 30 fps
func NewTrackManagerDefault() *TrackManager {
	return NewTrackManager(30, 0, 30.0, DefaultTrackerOptions())
}

// NewTrackManager creates new instance of TrackManager. Non-positive workers means GOMAXPROCS.
func NewTrackManager(maxLostFrames, workers int, fps float64, options TrackerOptions) *TrackManager {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	dt := 1.0 / 30.0
	if fps > 0 {
		dt = 1.0 / fps
	}
	return &TrackManager{
		tracks:        make(map[int]*Track),
		live:          make([]int, 0),
		nextID:        1,
		maxLostFrames: maxLostFrames,
		workers:       workers,
		options:       options,
		dt:            dt,
	}
}

// NativeAvailable reports whether native tracking strategies can back new tracks
func (manager *TrackManager) NativeAvailable() bool {
	return NativeAvailable()
}

// AddTrack starts tracking of box on the frame. Returns new identifier.
func (manager *TrackManager) AddTrack(frame Frame, box Rectangle, hint Strategy) (int, error) {
	if box.Empty() {
		return 0, errors.Wrapf(ErrInitializationFailed, "box %vx%v has non-positive size", box.Width, box.Height)
	}
	tracker := NewTracker(hint, manager.options)
	if !tracker.Init(frame, box) {
		tracker.Close()
		return 0, errors.Wrapf(ErrInitializationFailed, "strategy %s rejected box %+v", tracker.Strategy(), box)
	}
	if hint.IsNative() && !tracker.Strategy().IsNative() {
		logger.Debug("mot", "native strategy %s is not available, using %s", hint, tracker.Strategy())
	}
	initialBox := clippedBox(frame, box)

	manager.mu.Lock()
	defer manager.mu.Unlock()
	id := manager.nextID
	manager.nextID++
	manager.tracks[id] = newTrack(id, tracker, hint, initialBox, frame.Index, manager.dt)
	manager.live = append(manager.live, id)
	return id, nil
}

// UpdateAll updates every Active or Lost track on the frame. Tracks are updated concurrently:
// they share nothing except the read-only frame. Terminated tracks are pruned from the update
// set at the start of the call. Context is checked once before any work; a started frame is
// always completed.
func (manager *TrackManager) UpdateAll(ctx context.Context, frame Frame) (map[int]UpdateResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "frame update cancelled")
	}
	manager.mu.Lock()
	defer manager.mu.Unlock()

	manager.prune()
	ids := make([]int, len(manager.live))
	copy(ids, manager.live)

	type outcome struct {
		ok  bool
		box Rectangle
	}
	outcomes := make([]outcome, len(ids))
	if len(ids) > 0 {
		// Intensity plane and its spectrum are built once and shared by all trackers
		frame = frame.Prepare()
	}
	group := errgroup.Group{}
	group.SetLimit(manager.workers)
	for i, id := range ids {
		tracker := manager.tracks[id].tracker
		group.Go(func() error {
			ok, box := tracker.Update(frame)
			outcomes[i] = outcome{ok: ok, box: box}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, errors.Wrap(err, "can't update trackers")
	}

	results := make(map[int]UpdateResult, len(ids))
	for i, id := range ids {
		track := manager.tracks[id]
		if outcomes[i].ok && !outcomes[i].box.Empty() {
			if err := track.markSeen(outcomes[i].box, frame.Index); err != nil {
				logger.Warn("mot", "track %d: %v", id, err)
			}
		} else {
			wasActive := track.state == TrackActive
			if track.markMissed(manager.maxLostFrames) {
				logger.Info("mot", "track %d terminated after %d lost frames", id, track.lostFrames)
			} else if wasActive {
				logger.Debug("mot", "track %d lost at frame %d", id, frame.Index)
			}
		}
		results[id] = UpdateResult{
			Success:    track.state == TrackActive,
			Box:        track.box,
			Center:     track.box.Center(),
			Predicted:  track.predicted,
			State:      track.state,
			LostFrames: track.lostFrames,
		}
	}
	return results, nil
}

// prune drops terminated tracks from update set. Must be called with lock held.
func (manager *TrackManager) prune() {
	live := manager.live[:0]
	for _, id := range manager.live {
		if track, ok := manager.tracks[id]; ok && track.state != TrackTerminated {
			live = append(live, id)
		}
	}
	manager.live = live
}

// RemoveTrack terminates track immediately. Removing terminated track is no-op.
func (manager *TrackManager) RemoveTrack(id int) error {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	track, ok := manager.tracks[id]
	if !ok {
		return errors.Wrapf(ErrTrackNotFound, "id %d", id)
	}
	if track.state != TrackTerminated {
		track.terminate()
	}
	return nil
}

// Reinitialize replaces tracker of existing live track with a fresh one started on box.
// Lost frames counter is reset and state becomes Active. Terminated tracks can't be revived.
func (manager *TrackManager) Reinitialize(id int, frame Frame, box Rectangle) error {
	if box.Empty() {
		return errors.Wrapf(ErrInitializationFailed, "box %vx%v has non-positive size", box.Width, box.Height)
	}
	manager.mu.Lock()
	defer manager.mu.Unlock()
	track, ok := manager.tracks[id]
	if !ok {
		return errors.Wrapf(ErrTrackNotFound, "id %d", id)
	}
	if track.state == TrackTerminated {
		return errors.Wrapf(ErrTrackTerminated, "id %d", id)
	}
	tracker := NewTracker(track.requested, manager.options)
	if !tracker.Init(frame, box) {
		tracker.Close()
		return errors.Wrapf(ErrInitializationFailed, "reinitialize track %d", id)
	}
	initialBox := clippedBox(frame, box)
	track.replace(tracker, initialBox, frame.Index, manager.dt)
	return nil
}

// Track returns snapshot of track including terminated ones not discarded yet
func (manager *TrackManager) Track(id int) (TrackInfo, bool) {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	track, ok := manager.tracks[id]
	if !ok {
		return TrackInfo{}, false
	}
	return track.info(), true
}

// Tracks returns snapshots of all known tracks ordered by identifier
func (manager *TrackManager) Tracks() []TrackInfo {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	out := make([]TrackInfo, 0, len(manager.tracks))
	for _, track := range manager.tracks {
		out = append(out, track.info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ActiveIDs returns identifiers of tracks which are not terminated, ascending
func (manager *TrackManager) ActiveIDs() []int {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	out := make([]int, 0, len(manager.live))
	for _, id := range manager.live {
		if manager.tracks[id].state != TrackTerminated {
			out = append(out, id)
		}
	}
	return out
}

// Discard forgets terminated track
func (manager *TrackManager) Discard(id int) error {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	track, ok := manager.tracks[id]
	if !ok {
		return errors.Wrapf(ErrTrackNotFound, "id %d", id)
	}
	if track.state != TrackTerminated {
		return errors.Errorf("track %d is %s, only terminated tracks can be discarded", id, track.state)
	}
	delete(manager.tracks, id)
	manager.prune()
	return nil
}

// Clear terminates and forgets every track. Identifiers are not reused afterwards.
func (manager *TrackManager) Clear() {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	for id, track := range manager.tracks {
		if track.state != TrackTerminated {
			track.terminate()
		}
		delete(manager.tracks, id)
	}
	manager.live = manager.live[:0]
}

// clippedBox is box restricted to frame bounds, the region trackers actually start from
func clippedBox(frame Frame, box Rectangle) Rectangle {
	x, y, w, h := clipRect(box, frame.Width, frame.Height)
	return Rectangle{X: float64(x), Y: float64(y), Width: float64(w), Height: float64(h)}
}
