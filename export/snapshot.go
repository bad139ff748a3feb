// Package export writes session results in formats consumed by offline reporting:
// a JSON snapshot sufficient to recompute all analytics, and flat CSV tables.
package export

import (
	"encoding/json"
	"io"
	"sort"
	"time"

	"github.com/LdDl/mot-zones/analytics"
	"github.com/LdDl/mot-zones/mot"
	"github.com/LdDl/mot-zones/zones"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// TrackRecord is everything accumulated for a single track
type TrackRecord struct {
	ID       int           `json:"id"`
	Strategy mot.Strategy  `json:"strategy"`
	State    string        `json:"state"`
	Color    mot.Color     `json:"color"`
	Path     mot.Path      `json:"path"`
	Visits   []zones.Visit `json:"visits"`
}

// Snapshot is the exported state of a session. Tracks are ordered by identifier.
type Snapshot struct {
	SessionID uuid.UUID         `json:"session_id"`
	CreatedAt time.Time         `json:"created_at"`
	FPS       float64           `json:"fps"`
	Zones     []zones.Zone      `json:"zones"`
	Tracks    []TrackRecord     `json:"tracks"`
	Analytics *analytics.Report `json:"analytics,omitempty"`
}

// NewSnapshot creates empty snapshot with fresh session identifier
func NewSnapshot(fps float64) *Snapshot {
	return &Snapshot{
		SessionID: uuid.New(),
		CreatedAt: time.Now().UTC(),
		FPS:       fps,
		Zones:     make([]zones.Zone, 0),
		Tracks:    make([]TrackRecord, 0),
	}
}

// SortTracks orders tracks by identifier
func (snapshot *Snapshot) SortTracks() {
	sort.Slice(snapshot.Tracks, func(i, j int) bool {
		return snapshot.Tracks[i].ID < snapshot.Tracks[j].ID
	})
}

// Paths returns track identifier -> path
func (snapshot *Snapshot) Paths() map[int]mot.Path {
	out := make(map[int]mot.Path, len(snapshot.Tracks))
	for _, track := range snapshot.Tracks {
		out[track.ID] = track.Path
	}
	return out
}

// VisitsByTrack returns track identifier -> visits
func (snapshot *Snapshot) VisitsByTrack() map[int][]zones.Visit {
	out := make(map[int][]zones.Visit, len(snapshot.Tracks))
	for _, track := range snapshot.Tracks {
		out[track.ID] = track.Visits
	}
	return out
}

// Registry rebuilds zone registry from snapshot zones
func (snapshot *Snapshot) Registry() (*zones.Registry, error) {
	registry := zones.NewRegistry()
	for _, zone := range snapshot.Zones {
		if _, err := registry.Define(zone); err != nil {
			return nil, errors.Wrapf(err, "snapshot zone %q", zone.Name)
		}
	}
	return registry, nil
}

// ComputeAnalytics fills analytics summary from tracks
func (snapshot *Snapshot) ComputeAnalytics() error {
	report, err := analytics.Summary(snapshot.Paths(), snapshot.VisitsByTrack(), snapshot.FPS)
	if err != nil {
		return errors.Wrap(err, "can't summarize snapshot")
	}
	snapshot.Analytics = &report
	return nil
}

// WriteJSON writes snapshot as indented JSON
func WriteJSON(w io.Writer, snapshot *Snapshot) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(snapshot); err != nil {
		return errors.Wrap(err, "can't encode snapshot")
	}
	return nil
}

// ReadJSON reads snapshot written by WriteJSON
func ReadJSON(r io.Reader) (*Snapshot, error) {
	snapshot := &Snapshot{}
	if err := json.NewDecoder(r).Decode(snapshot); err != nil {
		return nil, errors.Wrap(err, "can't decode snapshot")
	}
	if snapshot.FPS <= 0 {
		return nil, errors.Wrap(analytics.ErrInvalidFPS, "snapshot")
	}
	snapshot.SortTracks()
	return snapshot, nil
}
