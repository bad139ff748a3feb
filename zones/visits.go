package zones

import (
	"sort"
	"sync"

	"github.com/LdDl/mot-zones/mot"
)

// Visit is closed interval during which track was continuously inside zone.
// ExitFrame >= EntryFrame and DurationFrames = ExitFrame - EntryFrame.
type Visit struct {
	TrackID        int       `json:"track_id"`
	Zone           string    `json:"zone"`
	EntryFrame     int       `json:"entry_frame"`
	ExitFrame      int       `json:"exit_frame"`
	DurationFrames int       `json:"duration_frames"`
	EntryPosition  mot.Point `json:"entry_position"`
	ExitPosition   mot.Point `json:"exit_position"`
}

type openEntry struct {
	frame    int
	position mot.Point
}

type trackZones struct {
	previous map[string]struct{}
	open     map[string]openEntry
}

// VisitTracker turns per-frame track positions into zone visits. It keeps, per track, the set
// of zones seen on the previous observation and open entries for zones the track is still in.
type VisitTracker struct {
	mu       sync.Mutex
	registry *Registry
	tracks   map[int]*trackZones
}

// NewVisitTracker creates visit tracker querying given registry
func NewVisitTracker(registry *Registry) *VisitTracker {
	return &VisitTracker{
		registry: registry,
		tracks:   make(map[int]*trackZones),
	}
}

func (vt *VisitTracker) state(trackID int) *trackZones {
	state, ok := vt.tracks[trackID]
	if !ok {
		state = &trackZones{
			previous: make(map[string]struct{}),
			open:     make(map[string]openEntry),
		}
		vt.tracks[trackID] = state
	}
	return state
}

// Observe diffs zones containing point against zones of the previous observation of the track.
// Newly entered zones get open entries; zones left are closed and returned as visits sorted by zone name.
func (vt *VisitTracker) Observe(trackID, frame int, point mot.Point) []Visit {
	current := vt.registry.ZonesContaining(point.X, point.Y)

	vt.mu.Lock()
	defer vt.mu.Unlock()
	state := vt.state(trackID)

	currentSet := make(map[string]struct{}, len(current))
	for _, name := range current {
		currentSet[name] = struct{}{}
		if _, ok := state.previous[name]; ok {
			continue
		}
		state.open[name] = openEntry{frame: frame, position: point}
	}

	left := make([]string, 0)
	for name := range state.previous {
		if _, ok := currentSet[name]; !ok {
			left = append(left, name)
		}
	}
	sort.Strings(left)

	visits := make([]Visit, 0, len(left))
	for _, name := range left {
		if visit, ok := state.close(trackID, name, frame, point); ok {
			visits = append(visits, visit)
		}
	}
	state.previous = currentSet
	return visits
}

func (state *trackZones) close(trackID int, zone string, frame int, point mot.Point) (Visit, bool) {
	entry, ok := state.open[zone]
	if !ok {
		return Visit{}, false
	}
	delete(state.open, zone)
	if frame < entry.frame {
		frame = entry.frame
	}
	return Visit{
		TrackID:        trackID,
		Zone:           zone,
		EntryFrame:     entry.frame,
		ExitFrame:      frame,
		DurationFrames: frame - entry.frame,
		EntryPosition:  entry.position,
		ExitPosition:   point,
	}, true
}

// Flush closes every open entry of the track at given frame and forgets the track.
// Terminated tracks are not closed automatically: call Flush when track stops being updated.
func (vt *VisitTracker) Flush(trackID, frame int, point mot.Point) []Visit {
	vt.mu.Lock()
	defer vt.mu.Unlock()
	state, ok := vt.tracks[trackID]
	if !ok {
		return []Visit{}
	}
	names := make([]string, 0, len(state.open))
	for name := range state.open {
		names = append(names, name)
	}
	sort.Strings(names)
	visits := make([]Visit, 0, len(names))
	for _, name := range names {
		if visit, ok := state.close(trackID, name, frame, point); ok {
			visits = append(visits, visit)
		}
	}
	delete(vt.tracks, trackID)
	return visits
}

// OpenEntries returns zone -> entry frame for zones the track is currently in
func (vt *VisitTracker) OpenEntries(trackID int) map[string]int {
	vt.mu.Lock()
	defer vt.mu.Unlock()
	out := make(map[string]int)
	state, ok := vt.tracks[trackID]
	if !ok {
		return out
	}
	for name, entry := range state.open {
		out[name] = entry.frame
	}
	return out
}

// Forget drops state of the track without emitting visits
func (vt *VisitTracker) Forget(trackID int) {
	vt.mu.Lock()
	defer vt.mu.Unlock()
	delete(vt.tracks, trackID)
}
