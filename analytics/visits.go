package analytics

import (
	"sort"

	"github.com/LdDl/mot-zones/mot"
	"github.com/LdDl/mot-zones/zones"
	"gonum.org/v1/gonum/stat"
)

// ZoneCount is a zone with number of distinct visitors
type ZoneCount struct {
	Zone  string `json:"zone"`
	Count int    `json:"count"`
}

// VisitDuration returns total seconds spent in zone over given visits
func VisitDuration(visits []zones.Visit, zone string, fps float64) (float64, error) {
	if fps <= 0 {
		return 0, ErrInvalidFPS
	}
	frames := 0
	for _, visit := range visits {
		if visit.Zone == zone {
			frames += visit.DurationFrames
		}
	}
	return float64(frames) / fps, nil
}

// AverageVisitDuration returns mean visit length in seconds for zone across all tracks.
// Zero when the zone was never visited.
func AverageVisitDuration(visitsByTrack map[int][]zones.Visit, zone string, fps float64) (float64, error) {
	if fps <= 0 {
		return 0, ErrInvalidFPS
	}
	durations := make([]float64, 0)
	for _, id := range trackIDs(visitsByTrack) {
		for _, visit := range visitsByTrack[id] {
			if visit.Zone == zone {
				durations = append(durations, float64(visit.DurationFrames)/fps)
			}
		}
	}
	if len(durations) == 0 {
		return 0, nil
	}
	return stat.Mean(durations, nil), nil
}

// ZoneVisitors returns zone -> sorted identifiers of tracks which visited it at least once
func ZoneVisitors(visitsByTrack map[int][]zones.Visit) map[string][]int {
	out := make(map[string][]int)
	for _, id := range trackIDs(visitsByTrack) {
		seen := make(map[string]struct{})
		for _, visit := range visitsByTrack[id] {
			if _, ok := seen[visit.Zone]; ok {
				continue
			}
			seen[visit.Zone] = struct{}{}
			out[visit.Zone] = append(out[visit.Zone], id)
		}
	}
	return out
}

// PopularZones orders zones by number of distinct visitors, descending. Ties are broken by zone name.
func PopularZones(visitsByTrack map[int][]zones.Visit) []ZoneCount {
	visitors := ZoneVisitors(visitsByTrack)
	out := make([]ZoneCount, 0, len(visitors))
	for zone, ids := range visitors {
		out = append(out, ZoneCount{Zone: zone, Count: len(ids)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Zone < out[j].Zone
	})
	return out
}

// ConversionRate returns 100 * |visitors(exitZone)| / |visitors(entryZone)|.
// Zero when entry zone has no visitors.
func ConversionRate(entryZone, exitZone string, visitsByTrack map[int][]zones.Visit) float64 {
	visitors := ZoneVisitors(visitsByTrack)
	entries := len(visitors[entryZone])
	if entries == 0 {
		return 0
	}
	return 100.0 * float64(len(visitors[exitZone])) / float64(entries)
}

// Conversion groups entrance-to-checkout funnel numbers
type Conversion struct {
	Entries       int     `json:"total_entries"`
	Checkouts     int     `json:"total_checkouts"`
	RatePercent   float64 `json:"conversion_rate_percent"`
	BouncePercent float64 `json:"bounce_rate_percent"`
}

// ConversionMetrics returns funnel numbers between two zones. Bounce is 100 minus conversion.
func ConversionMetrics(entryZone, checkoutZone string, visitsByTrack map[int][]zones.Visit) Conversion {
	visitors := ZoneVisitors(visitsByTrack)
	rate := ConversionRate(entryZone, checkoutZone, visitsByTrack)
	return Conversion{
		Entries:       len(visitors[entryZone]),
		Checkouts:     len(visitors[checkoutZone]),
		RatePercent:   rate,
		BouncePercent: 100.0 - rate,
	}
}

// HeatMap holds visit entry and exit positions
type HeatMap struct {
	EntryPoints []mot.Point `json:"entry_points"`
	ExitPoints  []mot.Point `json:"exit_points"`
}

// HeatMapPoints collects entry/exit positions of visits. Empty zone means all zones.
func HeatMapPoints(visitsByTrack map[int][]zones.Visit, zone string) HeatMap {
	out := HeatMap{
		EntryPoints: make([]mot.Point, 0),
		ExitPoints:  make([]mot.Point, 0),
	}
	for _, id := range trackIDs(visitsByTrack) {
		for _, visit := range visitsByTrack[id] {
			if zone != "" && visit.Zone != zone {
				continue
			}
			out.EntryPoints = append(out.EntryPoints, visit.EntryPosition)
			out.ExitPoints = append(out.ExitPoints, visit.ExitPosition)
		}
	}
	return out
}

// chronological returns copy of visits ordered by entry frame (then exit frame, then zone)
func chronological(visits []zones.Visit) []zones.Visit {
	out := make([]zones.Visit, len(visits))
	copy(out, visits)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].EntryFrame != out[j].EntryFrame {
			return out[i].EntryFrame < out[j].EntryFrame
		}
		if out[i].ExitFrame != out[j].ExitFrame {
			return out[i].ExitFrame < out[j].ExitFrame
		}
		return out[i].Zone < out[j].Zone
	})
	return out
}

func trackIDs[T any](byTrack map[int]T) []int {
	ids := make([]int, 0, len(byTrack))
	for id := range byTrack {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
