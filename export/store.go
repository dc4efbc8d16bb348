package export

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/swdee/go-orgtrack/tracker"
)

// schema.sql creates the session and track observation tables
//
//go:embed schema.sql
var schemaSQL string

// Store persists track tables in a SQLite database
type Store struct {
	*sql.DB
}

// SessionInfo is the summary of a stored session
type SessionInfo struct {
	ID     string
	Name   string
	Frames int
	Tracks int
}

// Open opens or creates the SQLite database at path and applies the schema
func Open(path string) (*Store, error) {

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open track database: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create track schema: %w", err)
	}

	return &Store{db}, nil
}

// SaveSession stores the track table of the session under name.  Saving the
// same session again replaces the previous copy.
func (s *Store) SaveSession(sess *tracker.Session, name string) error {
	return s.SaveRows(sess.ID().String(), name, sess.Frame(), len(sess.Tracks()),
		Rows(sess))
}

// SaveRows stores rows of a session in a single transaction
func (s *Store) SaveRows(sessionID, name string, frames, tracks int, rows []Row) error {

	tx, err := s.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM track_observations WHERE session_id = ?`,
		sessionID); err != nil {
		return fmt.Errorf("failed to clear session %s: %w", sessionID, err)
	}

	_, err = tx.Exec(`
		INSERT OR REPLACE INTO sessions (session_id, name, frames, tracks)
		VALUES (?, ?, ?, ?)
	`, sessionID, name, frames, tracks)
	if err != nil {
		return fmt.Errorf("failed to insert session %s: %w", sessionID, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO track_observations (
			session_id, track_id, frame, label, detected, centroid_x, centroid_y,
			area, box_left, box_top, box_right, box_bottom, major_axis_length
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare observation insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		_, err := stmt.Exec(sessionID, r.TrackID, r.Frame, r.Label, r.Detected,
			r.CentroidX, r.CentroidY, r.Area, r.Left, r.Top, r.Right, r.Bottom,
			r.MajorAxisLength)
		if err != nil {
			return fmt.Errorf("failed to insert track %d frame %d: %w", r.TrackID,
				r.Frame, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session %s: %w", sessionID, err)
	}

	return nil
}

// Rows returns the stored track table of a session ordered by frame then
// track ID
func (s *Store) Rows(sessionID string) ([]Row, error) {

	res, err := s.Query(`
		SELECT track_id, frame, label, detected, centroid_x, centroid_y, area,
			box_left, box_top, box_right, box_bottom, major_axis_length
		FROM track_observations
		WHERE session_id = ?
		ORDER BY frame, track_id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query session %s: %w", sessionID, err)
	}
	defer res.Close()

	var rows []Row

	for res.Next() {
		r := Row{SessionID: sessionID}

		err := res.Scan(&r.TrackID, &r.Frame, &r.Label, &r.Detected, &r.CentroidX,
			&r.CentroidY, &r.Area, &r.Left, &r.Top, &r.Right, &r.Bottom,
			&r.MajorAxisLength)
		if err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}

		rows = append(rows, r)
	}

	return rows, res.Err()
}

// Sessions lists the stored sessions in the order they were saved
func (s *Store) Sessions() ([]SessionInfo, error) {

	res, err := s.Query(`
		SELECT session_id, name, frames, tracks
		FROM sessions
		ORDER BY created_at, rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer res.Close()

	var list []SessionInfo

	for res.Next() {
		var info SessionInfo

		if err := res.Scan(&info.ID, &info.Name, &info.Frames, &info.Tracks); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}

		list = append(list, info)
	}

	return list, res.Err()
}
