package export

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/LdDl/mot-zones/zones"
	"github.com/pkg/errors"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WritePathsCSV writes one row per path point: center, box and timestamp. The zones column lists (";"-separated, sorted)
// zones whose visit interval covers the frame: entry frame <= frame < exit frame.
func WritePathsCSV(w io.Writer, snapshot *Snapshot) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"track_id", "frame", "x", "y", "box_x", "box_y", "box_w", "box_h", "timestamp", "zones"}); err != nil {
		return errors.Wrap(err, "can't write paths header")
	}
	for _, track := range snapshot.Tracks {
		for _, point := range track.Path {
			row := []string{
				strconv.Itoa(track.ID),
				strconv.Itoa(point.Frame),
				formatFloat(point.Center.X),
				formatFloat(point.Center.Y),
				formatFloat(point.Box.X),
				formatFloat(point.Box.Y),
				formatFloat(point.Box.Width),
				formatFloat(point.Box.Height),
				formatFloat(point.Timestamp),
				strings.Join(zonesAt(track.Visits, point.Frame), ";"),
			}
			if err := writer.Write(row); err != nil {
				return errors.Wrapf(err, "can't write path row of track %d", track.ID)
			}
		}
	}
	writer.Flush()
	return errors.Wrap(writer.Error(), "can't flush paths CSV")
}

func zonesAt(visits []zones.Visit, frame int) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, visit := range visits {
		if frame < visit.EntryFrame || frame >= visit.ExitFrame {
			continue
		}
		if _, ok := seen[visit.Zone]; ok {
			continue
		}
		seen[visit.Zone] = struct{}{}
		out = append(out, visit.Zone)
	}
	sort.Strings(out)
	return out
}

// WriteVisitsCSV writes one row per visit
func WriteVisitsCSV(w io.Writer, snapshot *Snapshot) error {
	writer := csv.NewWriter(w)
	header := []string{"track_id", "zone", "entry_frame", "exit_frame", "duration_frames", "duration_seconds", "entry_x", "entry_y", "exit_x", "exit_y"}
	if err := writer.Write(header); err != nil {
		return errors.Wrap(err, "can't write visits header")
	}
	for _, track := range snapshot.Tracks {
		for _, visit := range track.Visits {
			seconds := 0.0
			if snapshot.FPS > 0 {
				seconds = float64(visit.DurationFrames) / snapshot.FPS
			}
			row := []string{
				strconv.Itoa(track.ID),
				visit.Zone,
				strconv.Itoa(visit.EntryFrame),
				strconv.Itoa(visit.ExitFrame),
				strconv.Itoa(visit.DurationFrames),
				formatFloat(seconds),
				formatFloat(visit.EntryPosition.X),
				formatFloat(visit.EntryPosition.Y),
				formatFloat(visit.ExitPosition.X),
				formatFloat(visit.ExitPosition.Y),
			}
			if err := writer.Write(row); err != nil {
				return errors.Wrapf(err, "can't write visit row of track %d", track.ID)
			}
		}
	}
	writer.Flush()
	return errors.Wrap(writer.Error(), "can't flush visits CSV")
}
