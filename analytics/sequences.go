package analytics

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/LdDl/mot-zones/zones"
)

// Subpath is contiguous zone sequence with number of occurrences
type Subpath struct {
	Zones []string `json:"zones"`
	Count int      `json:"count"`
}

// VisitSequences returns chronological (by entry frame) zone sequence for every track
func VisitSequences(visitsByTrack map[int][]zones.Visit) map[int][]string {
	out := make(map[int][]string, len(visitsByTrack))
	for id, visits := range visitsByTrack {
		ordered := chronological(visits)
		sequence := make([]string, len(ordered))
		for i, visit := range ordered {
			sequence[i] = visit.Zone
		}
		out[id] = sequence
	}
	return out
}

// FrequentSubpaths enumerates every contiguous subsequence of length >= 2 of every track sequence
// and counts occurrences across all tracks (a subsequence repeated inside one track counts each time).
// Subsequences seen at least minSupport times are returned, most frequent first. Equal counts keep
// first-seen order: tracks by ascending identifier, then shorter subsequences first, then by start.
func FrequentSubpaths(sequencesByTrack map[int][]string, minSupport int) []Subpath {
	index := make(map[string]int)
	found := make([]Subpath, 0)
	for _, id := range trackIDs(sequencesByTrack) {
		sequence := sequencesByTrack[id]
		for length := 2; length <= len(sequence); length++ {
			for start := 0; start+length <= len(sequence); start++ {
				window := sequence[start : start+length]
				key := subpathKey(window)
				i, ok := index[key]
				if !ok {
					i = len(found)
					index[key] = i
					found = append(found, Subpath{Zones: append([]string(nil), window...)})
				}
				found[i].Count++
			}
		}
	}
	out := make([]Subpath, 0)
	for _, subpath := range found {
		if subpath.Count >= minSupport {
			out = append(out, subpath)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

// Pattern describes zone visiting behaviour of a single track
type Pattern struct {
	DistinctZones int            `json:"total_zones_visited"`
	TotalVisits   int            `json:"total_visits"`
	Sequence      []string       `json:"visit_sequence"`
	ZoneFrames    map[string]int `json:"zone_durations"`
	// Zone with the largest total time inside. Ties are broken by zone name
	MostVisited       string `json:"most_visited_zone"`
	MostVisitedFrames int    `json:"most_visited_frames"`
	// Share of visits returning to already visited zone: (total - distinct) / total
	BacktrackingScore float64 `json:"backtracking_score"`
}

// ShoppingPattern summarizes visits of a single track. Returns false when there are no visits.
func ShoppingPattern(visits []zones.Visit) (Pattern, bool) {
	if len(visits) == 0 {
		return Pattern{}, false
	}
	ordered := chronological(visits)
	pattern := Pattern{
		TotalVisits: len(ordered),
		Sequence:    make([]string, len(ordered)),
		ZoneFrames:  make(map[string]int),
	}
	for i, visit := range ordered {
		pattern.Sequence[i] = visit.Zone
		pattern.ZoneFrames[visit.Zone] += visit.DurationFrames
	}
	pattern.DistinctZones = len(pattern.ZoneFrames)

	names := make([]string, 0, len(pattern.ZoneFrames))
	for name := range pattern.ZoneFrames {
		names = append(names, name)
	}
	sort.Strings(names)
	pattern.MostVisited = names[0]
	pattern.MostVisitedFrames = pattern.ZoneFrames[names[0]]
	for _, name := range names[1:] {
		if frames := pattern.ZoneFrames[name]; frames > pattern.MostVisitedFrames {
			pattern.MostVisited = name
			pattern.MostVisitedFrames = frames
		}
	}
	pattern.BacktrackingScore = float64(pattern.TotalVisits-pattern.DistinctZones) / float64(pattern.TotalVisits)
	return pattern, true
}

// TimelineEntry is a visit expressed in seconds with human readable forms
type TimelineEntry struct {
	Zone              string  `json:"zone"`
	EntrySeconds      float64 `json:"entry_time_seconds"`
	ExitSeconds       float64 `json:"exit_time_seconds"`
	DurationSeconds   float64 `json:"duration_seconds"`
	EntryFormatted    string  `json:"entry_time_formatted"`
	ExitFormatted     string  `json:"exit_time_formatted"`
	DurationFormatted string  `json:"duration_formatted"`
}

// Timeline returns chronological visits of a single track in seconds
func Timeline(visits []zones.Visit, fps float64) ([]TimelineEntry, error) {
	if fps <= 0 {
		return nil, ErrInvalidFPS
	}
	ordered := chronological(visits)
	out := make([]TimelineEntry, 0, len(ordered))
	for _, visit := range ordered {
		entry := float64(visit.EntryFrame) / fps
		exit := float64(visit.ExitFrame) / fps
		duration := float64(visit.DurationFrames) / fps
		out = append(out, TimelineEntry{
			Zone:              visit.Zone,
			EntrySeconds:      entry,
			ExitSeconds:       exit,
			DurationSeconds:   duration,
			EntryFormatted:    FormatClock(entry),
			ExitFormatted:     FormatClock(exit),
			DurationFormatted: FormatDuration(duration),
		})
	}
	return out, nil
}

// FormatClock formats seconds as MM:SS
func FormatClock(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// FormatDuration formats seconds as "12.3s" or "2m 5.0s"
func FormatDuration(seconds float64) string {
	if seconds < 60 {
		return fmt.Sprintf("%.1fs", seconds)
	}
	minutes := int(seconds / 60)
	return fmt.Sprintf("%dm %.1fs", minutes, seconds-float64(minutes*60))
}

// subpathKey is injective: every zone name is prefixed with its length
func subpathKey(zoneNames []string) string {
	var sb strings.Builder
	for _, name := range zoneNames {
		sb.WriteString(strconv.Itoa(len(name)))
		sb.WriteByte(':')
		sb.WriteString(name)
	}
	return sb.String()
}
