package analytics

import (
	"sort"

	"github.com/LdDl/mot-zones/mot"
	"github.com/LdDl/mot-zones/zones"
	"gonum.org/v1/gonum/stat"
)

// ZoneStats aggregates visits of a single zone
type ZoneStats struct {
	Zone           string  `json:"zone"`
	Visitors       int     `json:"total_visitors"`
	Visits         int     `json:"total_visits"`
	AverageSeconds float64 `json:"average_duration_seconds"`
	VisitorIDs     []int   `json:"visitor_ids"`
}

// TrackStats aggregates path and visits of a single track
type TrackStats struct {
	TrackID         int     `json:"track_id"`
	Distance        float64 `json:"distance"`
	DurationSeconds float64 `json:"duration_seconds"`
	ZonesVisited    int     `json:"zones_visited"`
	Points          int     `json:"points"`
}

// Report is analytics summary over a whole session
type Report struct {
	Tracks            int          `json:"total_tracks"`
	Visits            int          `json:"total_visits"`
	AveragePathLength float64      `json:"average_path_length"`
	Popular           []ZoneCount  `json:"popular_zones"`
	Zones             []ZoneStats  `json:"zones"`
	PerTrack          []TrackStats `json:"tracks"`
}

// Summary computes session-wide report. Zones are ordered by number of visits, descending,
// ties by name. Tracks are ordered by identifier.
func Summary(paths map[int]mot.Path, visitsByTrack map[int][]zones.Visit, fps float64) (Report, error) {
	if fps <= 0 {
		return Report{}, ErrInvalidFPS
	}
	ids := make(map[int]struct{}, len(paths))
	for id := range paths {
		ids[id] = struct{}{}
	}
	for id := range visitsByTrack {
		ids[id] = struct{}{}
	}

	report := Report{
		Tracks:   len(ids),
		Popular:  PopularZones(visitsByTrack),
		Zones:    make([]ZoneStats, 0),
		PerTrack: make([]TrackStats, 0, len(ids)),
	}

	distances := make([]float64, 0, len(ids))
	for _, id := range trackIDs(ids) {
		path := paths[id]
		distinct := make(map[string]struct{})
		for _, visit := range visitsByTrack[id] {
			distinct[visit.Zone] = struct{}{}
		}
		distance := PathDistance(path)
		distances = append(distances, distance)
		report.Visits += len(visitsByTrack[id])
		report.PerTrack = append(report.PerTrack, TrackStats{
			TrackID:         id,
			Distance:        distance,
			DurationSeconds: PathDuration(path),
			ZonesVisited:    len(distinct),
			Points:          len(path),
		})
	}
	if len(distances) > 0 {
		report.AveragePathLength = stat.Mean(distances, nil)
	}

	visitors := ZoneVisitors(visitsByTrack)
	for zone, visitorIDs := range visitors {
		visits := 0
		for _, id := range visitorIDs {
			for _, visit := range visitsByTrack[id] {
				if visit.Zone == zone {
					visits++
				}
			}
		}
		average, err := AverageVisitDuration(visitsByTrack, zone, fps)
		if err != nil {
			return Report{}, err
		}
		report.Zones = append(report.Zones, ZoneStats{
			Zone:           zone,
			Visitors:       len(visitorIDs),
			Visits:         visits,
			AverageSeconds: average,
			VisitorIDs:     visitorIDs,
		})
	}
	sort.Slice(report.Zones, func(i, j int) bool {
		if report.Zones[i].Visits != report.Zones[j].Visits {
			return report.Zones[i].Visits > report.Zones[j].Visits
		}
		return report.Zones[i].Zone < report.Zones[j].Zone
	})
	return report, nil
}
