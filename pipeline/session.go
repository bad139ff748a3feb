// Package pipeline drives the per-frame flow: track updates, zone membership, visit
// detection and path accumulation. Session is the caller-side owner of paths and visits.
package pipeline

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/LdDl/mot-zones/config"
	"github.com/LdDl/mot-zones/export"
	"github.com/LdDl/mot-zones/logger"
	"github.com/LdDl/mot-zones/metrics"
	"github.com/LdDl/mot-zones/mot"
	"github.com/LdDl/mot-zones/zones"
	"github.com/pkg/errors"
)

// FrameResult is outcome of a single frame advance
type FrameResult struct {
	Frame   int
	Updates map[int]mot.UpdateResult
	// Visits closed on this frame, ordered by track identifier and zone name.
	// Includes visits flushed for tracks terminated on this frame.
	Visits []zones.Visit
	// Tracks terminated on this frame, ascending
	Terminated []int
}

// Session owns track manager, visit tracker and everything accumulated for tracks
type Session struct {
	mu       sync.Mutex
	manager  *mot.TrackManager
	registry *zones.Registry
	visits   *zones.VisitTracker
	metrics  *metrics.Metrics
	fps      float64
	strategy mot.Strategy

	paths      map[int]mot.Path
	visitLog   map[int][]zones.Visit
	strategies map[int]mot.Strategy
	// Tracks whose open entries are already flushed
	closed map[int]bool
}

// NewSession creates session tuned by cfg. Registry is shared; m may be nil.
func NewSession(cfg *config.TuningConfig, registry *zones.Registry, m *metrics.Metrics) *Session {
	if cfg == nil {
		cfg = config.EmptyTuningConfig()
	}
	return &Session{
		manager:    cfg.NewTrackManager(),
		registry:   registry,
		visits:     zones.NewVisitTracker(registry),
		metrics:    m,
		fps:        cfg.GetFPS(),
		strategy:   cfg.GetDefaultStrategy(),
		paths:      make(map[int]mot.Path),
		visitLog:   make(map[int][]zones.Visit),
		strategies: make(map[int]mot.Strategy),
		closed:     make(map[int]bool),
	}
}

// NativeAvailable reports whether native tracking strategies are available
func (session *Session) NativeAvailable() bool {
	return session.manager.NativeAvailable()
}

// Registry returns zone registry used by the session
func (session *Session) Registry() *zones.Registry {
	return session.registry
}

// AddTrack starts tracking of box with configured default strategy
func (session *Session) AddTrack(frame mot.Frame, box mot.Rectangle) (int, error) {
	return session.AddTrackWithStrategy(frame, box, session.strategy)
}

// AddTrackWithStrategy starts tracking of box with requested strategy
func (session *Session) AddTrackWithStrategy(frame mot.Frame, box mot.Rectangle, hint mot.Strategy) (int, error) {
	id, err := session.manager.AddTrack(frame, box, hint)
	if err != nil {
		if session.metrics != nil {
			session.metrics.InitFailures.Add(1)
		}
		return 0, err
	}
	info, _ := session.manager.Track(id)

	session.mu.Lock()
	defer session.mu.Unlock()
	session.paths[id] = make(mot.Path, 0)
	session.visitLog[id] = make([]zones.Visit, 0)
	session.strategies[id] = info.Strategy
	if session.metrics != nil {
		session.metrics.TracksAdded.Add(1)
	}
	logger.Info("pipeline", "track %d started with %s strategy at frame %d", id, info.Strategy, frame.Index)
	return id, nil
}

// Advance processes one frame: updates all tracks, appends successful positions to paths,
// observes zone membership in ascending track order and flushes open entries of tracks
// terminated on this frame (exit frame is this frame index).
func (session *Session) Advance(ctx context.Context, frame mot.Frame) (FrameResult, error) {
	started := time.Now()
	updates, err := session.manager.UpdateAll(ctx, frame)
	if err != nil {
		if session.metrics != nil {
			session.metrics.FramesCancelled.Add(1)
		}
		return FrameResult{}, err
	}
	return session.apply(frame, updates, started), nil
}

// apply records outcome of UpdateAll. Tracks removed after the update started are skipped.
func (session *Session) apply(frame mot.Frame, updates map[int]mot.UpdateResult, started time.Time) FrameResult {
	session.mu.Lock()
	defer session.mu.Unlock()

	ids := make([]int, 0, len(updates))
	for id := range updates {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	result := FrameResult{
		Frame:      frame.Index,
		Updates:    updates,
		Visits:     make([]zones.Visit, 0),
		Terminated: make([]int, 0),
	}
	active, lost := 0, 0
	for _, id := range ids {
		update := updates[id]
		switch update.State {
		case mot.TrackActive:
			if session.closed[id] {
				continue
			}
			active++
			path, err := session.paths[id].Append(mot.PathPoint{
				Frame:     frame.Index,
				Timestamp: frame.Timestamp,
				Center:    update.Center,
				Box:       update.Box,
			})
			if err != nil {
				logger.Warn("pipeline", "track %d: %v", id, err)
				continue
			}
			session.paths[id] = path
			result.Visits = append(result.Visits, session.visits.Observe(id, frame.Index, update.Center)...)
		case mot.TrackLost:
			lost++
			if session.metrics != nil {
				session.metrics.TracksLostFrames.Add(1)
			}
		case mot.TrackTerminated:
			if session.metrics != nil {
				session.metrics.TracksLostFrames.Add(1)
				session.metrics.TracksTerminated.Add(1)
			}
			result.Terminated = append(result.Terminated, id)
			result.Visits = append(result.Visits, session.flush(id, frame.Index)...)
		}
	}
	for _, visit := range result.Visits {
		session.visitLog[visit.TrackID] = append(session.visitLog[visit.TrackID], visit)
	}

	if session.metrics != nil {
		session.metrics.FramesProcessed.Add(1)
		session.metrics.VisitsEmitted.Add(uint64(len(result.Visits)))
		session.metrics.SetTrackStates(active, lost)
		session.metrics.OpenEntries.Store(uint64(session.openEntries()))
		session.metrics.UpdateFrameLatency(time.Since(started))
	}
	return result
}

// flush closes open entries of track at the last known position. Must be called with lock held.
func (session *Session) flush(id, frameIndex int) []zones.Visit {
	if session.closed[id] {
		return []zones.Visit{}
	}
	session.closed[id] = true
	last := mot.Point{}
	if path := session.paths[id]; len(path) > 0 {
		last = path[len(path)-1].Center
	} else if info, ok := session.manager.Track(id); ok {
		last = info.Center
	}
	return session.visits.Flush(id, frameIndex, last)
}

func (session *Session) openEntries() int {
	total := 0
	for _, id := range session.manager.ActiveIDs() {
		total += len(session.visits.OpenEntries(id))
	}
	return total
}

// RemoveTrack terminates track manually at given frame index and returns visits flushed for it
func (session *Session) RemoveTrack(id, frameIndex int) ([]zones.Visit, error) {
	if err := session.manager.RemoveTrack(id); err != nil {
		return nil, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	visits := session.flush(id, frameIndex)
	session.visitLog[id] = append(session.visitLog[id], visits...)
	if session.metrics != nil {
		session.metrics.TracksRemoved.Add(1)
		session.metrics.VisitsEmitted.Add(uint64(len(visits)))
	}
	logger.Info("pipeline", "track %d removed at frame %d", id, frameIndex)
	return visits, nil
}

// Reinitialize restarts lost or active track on a new box. Open zone entries are kept:
// the next observation diffs against zones seen before re-selection.
func (session *Session) Reinitialize(id int, frame mot.Frame, box mot.Rectangle) error {
	if err := session.manager.Reinitialize(id, frame, box); err != nil {
		if session.metrics != nil && errors.Is(err, mot.ErrInitializationFailed) {
			session.metrics.InitFailures.Add(1)
		}
		return err
	}
	info, _ := session.manager.Track(id)
	session.mu.Lock()
	session.strategies[id] = info.Strategy
	session.mu.Unlock()
	return nil
}

// Track returns state of track
func (session *Session) Track(id int) (mot.TrackInfo, bool) {
	return session.manager.Track(id)
}

// ActiveIDs returns identifiers of tracks which are not terminated
func (session *Session) ActiveIDs() []int {
	return session.manager.ActiveIDs()
}

// Path returns copy of track path
func (session *Session) Path(id int) (mot.Path, bool) {
	session.mu.Lock()
	defer session.mu.Unlock()
	path, ok := session.paths[id]
	return path.Clone(), ok
}

// Paths returns copies of all paths
func (session *Session) Paths() map[int]mot.Path {
	session.mu.Lock()
	defer session.mu.Unlock()
	out := make(map[int]mot.Path, len(session.paths))
	for id, path := range session.paths {
		out[id] = path.Clone()
	}
	return out
}

// Visits returns copies of all emitted visits by track
func (session *Session) Visits() map[int][]zones.Visit {
	session.mu.Lock()
	defer session.mu.Unlock()
	out := make(map[int][]zones.Visit, len(session.visitLog))
	for id, visits := range session.visitLog {
		out[id] = append(make([]zones.Visit, 0, len(visits)), visits...)
	}
	return out
}

// OpenEntries returns zone -> entry frame for zones the track is currently in
func (session *Session) OpenEntries(id int) map[string]int {
	return session.visits.OpenEntries(id)
}

// Finish terminates all remaining tracks at given frame index and flushes their open entries.
// Accumulated paths and visits stay available.
func (session *Session) Finish(frameIndex int) []zones.Visit {
	out := make([]zones.Visit, 0)
	for _, id := range session.manager.ActiveIDs() {
		visits, err := session.RemoveTrack(id, frameIndex)
		if err != nil {
			logger.Warn("pipeline", "can't finish track %d: %v", id, err)
			continue
		}
		out = append(out, visits...)
	}
	return out
}

// Snapshot exports zones, paths and visits with analytics summary
func (session *Session) Snapshot() (*export.Snapshot, error) {
	snapshot := export.NewSnapshot(session.fps)
	snapshot.Zones = session.registry.Zones()

	paths := session.Paths()
	visits := session.Visits()
	session.mu.Lock()
	strategies := make(map[int]mot.Strategy, len(session.strategies))
	for id, strategy := range session.strategies {
		strategies[id] = strategy
	}
	session.mu.Unlock()

	for id, path := range paths {
		state := mot.TrackTerminated
		if info, ok := session.manager.Track(id); ok {
			state = info.State
		}
		snapshot.Tracks = append(snapshot.Tracks, export.TrackRecord{
			ID:       id,
			Strategy: strategies[id],
			State:    state.String(),
			Color:    mot.TrackColor(id),
			Path:     path,
			Visits:   visits[id],
		})
	}
	snapshot.SortTracks()
	if err := snapshot.ComputeAnalytics(); err != nil {
		return nil, err
	}
	return snapshot, nil
}
