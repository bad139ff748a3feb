// Command zonereport prints zone analytics of an exported tracking session.
// Sessions are read from a JSON snapshot or from a sqlite store; a JSON snapshot can be
// imported into the store on the way.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/LdDl/mot-zones/analytics"
	"github.com/LdDl/mot-zones/config"
	"github.com/LdDl/mot-zones/export"
	"github.com/LdDl/mot-zones/logger"
	"github.com/LdDl/mot-zones/storage/sqlite"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

func main() {
	var snapshotPath string
	var dbPath string
	var sessionStr string
	var configPath string
	var entryZone string
	var checkoutZone string
	var minSupport int
	var listSessions bool
	var pathsCSV string
	var visitsCSV string

	flag.StringVar(&snapshotPath, "snapshot", "", "path to JSON snapshot")
	flag.StringVar(&dbPath, "db", "", "path to sqlite db with stored sessions")
	flag.StringVar(&sessionStr, "session", "", "session id to load from db")
	flag.StringVar(&configPath, "config", "", "path to tuning config (JSON)")
	flag.StringVar(&entryZone, "entry", "Entrance", "entry zone for conversion")
	flag.StringVar(&checkoutZone, "checkout", "Checkout", "checkout zone for conversion")
	flag.IntVar(&minSupport, "min-support", 2, "minimum occurrences of a frequent zone path")
	flag.BoolVar(&listSessions, "list", false, "list sessions stored in db and exit")
	flag.StringVar(&pathsCSV, "paths-csv", "", "write path points to CSV file")
	flag.StringVar(&visitsCSV, "visits-csv", "", "write visits to CSV file")
	flag.Parse()

	cfg := config.EmptyTuningConfig()
	if configPath != "" {
		var err error
		cfg, err = config.LoadTuningConfig(configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
	}
	logger.SetLevel(cfg.GetLogLevel())

	ctx := context.Background()
	var store *sqlite.Store
	if dbPath != "" {
		var err error
		store, err = sqlite.Open(dbPath)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer store.Close()
	}

	if listSessions {
		if store == nil {
			log.Fatalf("-list requires -db")
		}
		sessions, err := store.ListSessions(ctx)
		if err != nil {
			log.Fatalf("list sessions: %v", err)
		}
		for _, session := range sessions {
			fmt.Printf("%s  %s  fps=%g  tracks=%d\n", session.ID, session.CreatedAt.Format("2006-01-02 15:04:05"), session.FPS, session.Tracks)
		}
		return
	}

	snapshot, err := loadSnapshot(ctx, snapshotPath, store, sessionStr)
	if err != nil {
		log.Fatalf("load snapshot: %v", err)
	}
	if snapshotPath != "" && store != nil {
		if err := store.SaveSnapshot(ctx, snapshot); err != nil {
			log.Fatalf("import snapshot: %v", err)
		}
		logger.Info("zonereport", "snapshot imported as session %s", snapshot.SessionID)
	}
	if err := snapshot.ComputeAnalytics(); err != nil {
		log.Fatalf("analytics: %v", err)
	}

	if err := printReport(os.Stdout, snapshot, reportOptions{
		entry:           entryZone,
		checkout:        checkoutZone,
		minSupport:      minSupport,
		directionChange: cfg.GetDirectionChangeDegrees(),
	}); err != nil {
		log.Fatalf("report: %v", err)
	}

	if pathsCSV != "" {
		if err := writeFile(pathsCSV, snapshot, export.WritePathsCSV); err != nil {
			log.Fatalf("paths csv: %v", err)
		}
	}
	if visitsCSV != "" {
		if err := writeFile(visitsCSV, snapshot, export.WriteVisitsCSV); err != nil {
			log.Fatalf("visits csv: %v", err)
		}
	}
}

func loadSnapshot(ctx context.Context, path string, store *sqlite.Store, sessionStr string) (*export.Snapshot, error) {
	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrap(err, "can't open snapshot")
		}
		defer file.Close()
		return export.ReadJSON(file)
	}
	if store == nil || sessionStr == "" {
		return nil, errors.New("either -snapshot or -db with -session must be provided")
	}
	id, err := uuid.Parse(sessionStr)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid session id %q", sessionStr)
	}
	return store.LoadSnapshot(ctx, id)
}

func writeFile(path string, snapshot *export.Snapshot, write func(io.Writer, *export.Snapshot) error) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "can't create file")
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return write(file, snapshot)
}

type reportOptions struct {
	entry           string
	checkout        string
	minSupport      int
	directionChange float64
}

func printReport(w io.Writer, snapshot *export.Snapshot, options reportOptions) error {
	report := snapshot.Analytics
	visitsByTrack := snapshot.VisitsByTrack()

	fmt.Fprintf(w, "Session %s (%g fps)\n", snapshot.SessionID, snapshot.FPS)
	fmt.Fprintf(w, "Tracks: %d, visits: %d, average path length: %.1f px\n\n", report.Tracks, report.Visits, report.AveragePathLength)

	fmt.Fprintln(w, "Zones:")
	for _, zone := range report.Zones {
		fmt.Fprintf(w, "  %-16s visits=%d visitors=%d avg=%s\n", zone.Zone, zone.Visits, zone.Visitors, analytics.FormatDuration(zone.AverageSeconds))
	}

	conversion := analytics.ConversionMetrics(options.entry, options.checkout, visitsByTrack)
	fmt.Fprintf(w, "\nConversion %s -> %s: %d/%d (%.1f%%), bounce %.1f%%\n",
		options.entry, options.checkout, conversion.Checkouts, conversion.Entries, conversion.RatePercent, conversion.BouncePercent)

	subpaths := analytics.FrequentSubpaths(analytics.VisitSequences(visitsByTrack), options.minSupport)
	if len(subpaths) > 0 {
		fmt.Fprintf(w, "\nFrequent paths (min support %d):\n", options.minSupport)
		for _, subpath := range subpaths {
			fmt.Fprintf(w, "  %3d  %s\n", subpath.Count, strings.Join(subpath.Zones, " -> "))
		}
	}

	fmt.Fprintln(w, "\nTracks:")
	for _, track := range snapshot.Tracks {
		fmt.Fprintf(w, "  #%d %s (%s): %d points, %.1f px, %d turns\n",
			track.ID, track.State, track.Strategy, len(track.Path),
			analytics.PathDistance(track.Path), len(analytics.DirectionChanges(track.Path, options.directionChange)))
		pattern, ok := analytics.ShoppingPattern(track.Visits)
		if !ok {
			continue
		}
		fmt.Fprintf(w, "    most visited %s, backtracking %.2f\n", pattern.MostVisited, pattern.BacktrackingScore)
		timeline, err := analytics.Timeline(track.Visits, snapshot.FPS)
		if err != nil {
			return errors.Wrapf(err, "timeline of track %d", track.ID)
		}
		for _, entry := range timeline {
			fmt.Fprintf(w, "    %s-%s  %-16s %s\n", entry.EntryFormatted, entry.ExitFormatted, entry.Zone, entry.DurationFormatted)
		}
	}
	return nil
}
