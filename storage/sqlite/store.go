// Package sqlite persists exported session snapshots in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"strings"
	"time"

	"github.com/LdDl/mot-zones/export"
	"github.com/LdDl/mot-zones/logger"
	"github.com/LdDl/mot-zones/mot"
	"github.com/LdDl/mot-zones/zones"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// ErrSessionNotFound is returned when there is no stored session with given identifier
var ErrSessionNotFound = errors.New("session not found")

// schema.sql contains tables for sessions, zones, tracks, path points and visits.
//
//go:embed schema.sql
var schemaSQL string

// Store is snapshot storage backed by SQLite
type Store struct {
	*sql.DB
}

// SessionInfo is short description of stored session
type SessionInfo struct {
	ID        uuid.UUID
	CreatedAt time.Time
	FPS       float64
	Tracks    int
}

// Open opens (creating if needed) database at path and applies schema
func Open(path string) (*Store, error) {
	dsn := path
	if strings.Contains(dsn, "?") {
		dsn += "&_pragma=foreign_keys(1)"
	} else {
		dsn += "?_pragma=foreign_keys(1)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "can't open database")
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "can't apply schema")
	}
	logger.Debug("storage", "initialized snapshot database schema at %s", path)
	return &Store{db}, nil
}

// SaveSnapshot stores snapshot in a single transaction, replacing session with the same identifier
func (store *Store) SaveSnapshot(ctx context.Context, snapshot *export.Snapshot) (err error) {
	tx, err := store.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "can't begin transaction")
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	sessionID := snapshot.SessionID.String()
	if err = deleteSession(ctx, tx, sessionID); err != nil {
		return errors.Wrap(err, "can't replace session")
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO sessions (session_id, created_at, fps) VALUES (?, ?, ?)`,
		sessionID, snapshot.CreatedAt.UTC().Format(time.RFC3339Nano), snapshot.FPS)
	if err != nil {
		return errors.Wrap(err, "can't insert session")
	}

	for _, zone := range snapshot.Zones {
		if err = insertZone(ctx, tx, sessionID, zone); err != nil {
			return err
		}
	}

	pointStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO path_points (session_id, track_id, seq, frame, timestamp, center_x, center_y, box_x, box_y, box_w, box_h)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return errors.Wrap(err, "can't prepare path statement")
	}
	defer pointStmt.Close()
	visitStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO visits (session_id, track_id, seq, zone, entry_frame, exit_frame, duration_frames, entry_x, entry_y, exit_x, exit_y)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return errors.Wrap(err, "can't prepare visit statement")
	}
	defer visitStmt.Close()

	for _, track := range snapshot.Tracks {
		_, err = tx.ExecContext(ctx, `INSERT INTO tracks (session_id, track_id, strategy, state) VALUES (?, ?, ?, ?)`,
			sessionID, track.ID, string(track.Strategy), track.State)
		if err != nil {
			return errors.Wrapf(err, "can't insert track %d", track.ID)
		}
		for seq, p := range track.Path {
			_, err = pointStmt.ExecContext(ctx, sessionID, track.ID, seq, p.Frame, p.Timestamp,
				p.Center.X, p.Center.Y, p.Box.X, p.Box.Y, p.Box.Width, p.Box.Height)
			if err != nil {
				return errors.Wrapf(err, "can't insert path point of track %d", track.ID)
			}
		}
		for seq, v := range track.Visits {
			_, err = visitStmt.ExecContext(ctx, sessionID, track.ID, seq, v.Zone, v.EntryFrame, v.ExitFrame, v.DurationFrames,
				v.EntryPosition.X, v.EntryPosition.Y, v.ExitPosition.X, v.ExitPosition.Y)
			if err != nil {
				return errors.Wrapf(err, "can't insert visit of track %d", track.ID)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "can't commit snapshot")
	}
	return nil
}

func insertZone(ctx context.Context, tx *sql.Tx, sessionID string, zone zones.Zone) error {
	polygon, err := json.Marshal(zone.Polygon)
	if err != nil {
		return errors.Wrapf(err, "can't encode polygon of zone %q", zone.Name)
	}
	color, err := json.Marshal(zone.Color)
	if err != nil {
		return errors.Wrapf(err, "can't encode color of zone %q", zone.Name)
	}
	var shelves interface{}
	if len(zone.Shelves) > 0 {
		shelves = string(zone.Shelves)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO zones (session_id, name, category, color, polygon, shelves) VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, zone.Name, zone.Category, string(color), string(polygon), shelves)
	if err != nil {
		return errors.Wrapf(err, "can't insert zone %q", zone.Name)
	}
	return nil
}

// LoadSnapshot reads stored session. Analytics summary is not stored and left empty.
func (store *Store) LoadSnapshot(ctx context.Context, id uuid.UUID) (*export.Snapshot, error) {
	sessionID := id.String()
	snapshot := &export.Snapshot{
		SessionID: id,
		Zones:     make([]zones.Zone, 0),
		Tracks:    make([]export.TrackRecord, 0),
	}
	var createdAt string
	err := store.QueryRowContext(ctx, `SELECT created_at, fps FROM sessions WHERE session_id = ?`, sessionID).Scan(&createdAt, &snapshot.FPS)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrSessionNotFound, "id %s", sessionID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "can't read session")
	}
	snapshot.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, errors.Wrap(err, "can't parse session creation time")
	}

	if snapshot.Zones, err = store.loadZones(ctx, sessionID); err != nil {
		return nil, err
	}
	if snapshot.Tracks, err = store.loadTracks(ctx, sessionID); err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (store *Store) loadZones(ctx context.Context, sessionID string) ([]zones.Zone, error) {
	rows, err := store.QueryContext(ctx, `SELECT name, category, color, polygon, shelves FROM zones WHERE session_id = ? ORDER BY name`, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "can't query zones")
	}
	defer rows.Close()
	out := make([]zones.Zone, 0)
	for rows.Next() {
		var zone zones.Zone
		var color, polygon string
		var shelves sql.NullString
		if err := rows.Scan(&zone.Name, &zone.Category, &color, &polygon, &shelves); err != nil {
			return nil, errors.Wrap(err, "can't scan zone")
		}
		if err := json.Unmarshal([]byte(color), &zone.Color); err != nil {
			return nil, errors.Wrapf(err, "zone %q color", zone.Name)
		}
		if err := json.Unmarshal([]byte(polygon), &zone.Polygon); err != nil {
			return nil, errors.Wrapf(err, "zone %q polygon", zone.Name)
		}
		if shelves.Valid {
			zone.Shelves = json.RawMessage(shelves.String)
		}
		out = append(out, zone)
	}
	return out, errors.Wrap(rows.Err(), "can't iterate zones")
}

func (store *Store) loadTracks(ctx context.Context, sessionID string) ([]export.TrackRecord, error) {
	rows, err := store.QueryContext(ctx, `SELECT track_id, strategy, state FROM tracks WHERE session_id = ? ORDER BY track_id`, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "can't query tracks")
	}
	tracks := make([]export.TrackRecord, 0)
	index := make(map[int]int)
	for rows.Next() {
		var track export.TrackRecord
		var strategy string
		if err := rows.Scan(&track.ID, &strategy, &track.State); err != nil {
			rows.Close()
			return nil, errors.Wrap(err, "can't scan track")
		}
		track.Strategy = mot.Strategy(strategy)
		track.Color = mot.TrackColor(track.ID)
		track.Path = make(mot.Path, 0)
		track.Visits = make([]zones.Visit, 0)
		index[track.ID] = len(tracks)
		tracks = append(tracks, track)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, errors.Wrap(err, "can't iterate tracks")
	}
	rows.Close()

	pointRows, err := store.QueryContext(ctx, `
		SELECT track_id, frame, timestamp, center_x, center_y, box_x, box_y, box_w, box_h
		FROM path_points WHERE session_id = ? ORDER BY track_id, seq
	`, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "can't query path points")
	}
	defer pointRows.Close()
	for pointRows.Next() {
		var trackID int
		var p mot.PathPoint
		err := pointRows.Scan(&trackID, &p.Frame, &p.Timestamp, &p.Center.X, &p.Center.Y, &p.Box.X, &p.Box.Y, &p.Box.Width, &p.Box.Height)
		if err != nil {
			return nil, errors.Wrap(err, "can't scan path point")
		}
		i := index[trackID]
		tracks[i].Path = append(tracks[i].Path, p)
	}
	if err := pointRows.Err(); err != nil {
		return nil, errors.Wrap(err, "can't iterate path points")
	}

	visitRows, err := store.QueryContext(ctx, `
		SELECT track_id, zone, entry_frame, exit_frame, duration_frames, entry_x, entry_y, exit_x, exit_y
		FROM visits WHERE session_id = ? ORDER BY track_id, seq
	`, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "can't query visits")
	}
	defer visitRows.Close()
	for visitRows.Next() {
		var v zones.Visit
		err := visitRows.Scan(&v.TrackID, &v.Zone, &v.EntryFrame, &v.ExitFrame, &v.DurationFrames,
			&v.EntryPosition.X, &v.EntryPosition.Y, &v.ExitPosition.X, &v.ExitPosition.Y)
		if err != nil {
			return nil, errors.Wrap(err, "can't scan visit")
		}
		i := index[v.TrackID]
		tracks[i].Visits = append(tracks[i].Visits, v)
	}
	return tracks, errors.Wrap(visitRows.Err(), "can't iterate visits")
}

// ListSessions returns stored sessions, newest first
func (store *Store) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	rows, err := store.QueryContext(ctx, `
		SELECT s.session_id, s.created_at, s.fps, COUNT(t.track_id)
		FROM sessions s LEFT JOIN tracks t ON t.session_id = s.session_id
		GROUP BY s.session_id
		ORDER BY s.created_at DESC
	`)
	if err != nil {
		return nil, errors.Wrap(err, "can't query sessions")
	}
	defer rows.Close()
	out := make([]SessionInfo, 0)
	for rows.Next() {
		var info SessionInfo
		var id, createdAt string
		if err := rows.Scan(&id, &createdAt, &info.FPS, &info.Tracks); err != nil {
			return nil, errors.Wrap(err, "can't scan session")
		}
		if info.ID, err = uuid.Parse(id); err != nil {
			return nil, errors.Wrapf(err, "bad session identifier %q", id)
		}
		if info.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, errors.Wrapf(err, "bad creation time of session %s", id)
		}
		out = append(out, info)
	}
	return out, errors.Wrap(rows.Err(), "can't iterate sessions")
}

// DeleteSession removes session with all its data
func (store *Store) DeleteSession(ctx context.Context, id uuid.UUID) (err error) {
	sessionID := id.String()
	tx, err := store.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "can't begin transaction")
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()
	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions WHERE session_id = ?`, sessionID).Scan(&exists)
	if err != nil {
		return errors.Wrap(err, "can't check session")
	}
	if exists == 0 {
		err = errors.Wrapf(ErrSessionNotFound, "id %s", sessionID)
		return err
	}
	if err = deleteSession(ctx, tx, sessionID); err != nil {
		return errors.Wrap(err, "can't delete session")
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "can't commit deletion")
	}
	return nil
}

// deleteSession removes rows of the session, children first
func deleteSession(ctx context.Context, tx *sql.Tx, sessionID string) error {
	for _, table := range []string{"visits", "path_points", "tracks", "zones", "sessions"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE session_id = ?`, sessionID); err != nil {
			return errors.Wrapf(err, "table %s", table)
		}
	}
	return nil
}
