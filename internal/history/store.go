package history

import (
	"database/sql"
	"fmt"
	"time"

	"cadenza/internal/playback"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// Store records track lifecycle transitions (started, finished, failed,
// skipped) in a SQLite database. Playback positions are deliberately not
// stored; the log answers "what played when", nothing more. Safe for
// concurrent use because the underlying *sql.DB is concurrency-safe.
type Store struct {
	conn   *sql.DB
	logger *logrus.Logger

	insertStmt *sql.Stmt
	recentStmt *sql.Stmt
}

// Entry is one recorded transition.
type Entry struct {
	ID     int64     `json:"id"`
	Title  string    `json:"title"`
	Artist string    `json:"artist"`
	Source string    `json:"source"`
	Event  string    `json:"event"`
	At     time.Time `json:"at"`
}

// NewStore opens (or creates) the history database at the given path and
// ensures the schema exists. Caller should Close() it when finished.
func NewStore(dbPath string, logger *logrus.Logger) (*Store, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	conn, err := sql.Open("sqlite3", dbPath+"?cache=shared&mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	// SQLite works better with fewer connections
	conn.SetMaxOpenConns(2)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(15 * time.Minute)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA temp_store=memory;",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			logger.WithError(err).WithField("pragma", pragma).Warn("Failed to set pragma")
		}
	}

	s := &Store{
		conn:   conn,
		logger: logger,
	}

	if err := s.createTables(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	logger.WithField("db_path", dbPath).Info("History store initialized")
	return s, nil
}

// createTables creates the plays table if it does not already exist.
// Idempotent and safe to call multiple times.
func (s *Store) createTables() error {
	playsTable := `
	CREATE TABLE IF NOT EXISTS plays (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		artist TEXT NOT NULL,
		source TEXT NOT NULL,
		event TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_plays_created_at ON plays(created_at);
	`
	_, err := s.conn.Exec(playsTable)
	return err
}

func (s *Store) prepareStatements() error {
	var err error

	s.insertStmt, err = s.conn.Prepare(
		"INSERT INTO plays (title, artist, source, event, created_at) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}

	s.recentStmt, err = s.conn.Prepare(
		"SELECT id, title, artist, source, event, created_at FROM plays ORDER BY created_at DESC, id DESC LIMIT ?")
	return err
}

// Record writes one transition to the log.
func (s *Store) Record(tr playback.Transition) error {
	_, err := s.insertStmt.Exec(tr.Track.Title, tr.Track.Artist, tr.Track.Source, tr.Type.String(), tr.At)
	if err != nil {
		return fmt.Errorf("failed to record %s transition: %w", tr.Type, err)
	}
	return nil
}

// Consume drains a transition channel into the store until the channel is
// closed. Meant to run as a goroutine fed by the controller.
func (s *Store) Consume(transitions <-chan playback.Transition) {
	for tr := range transitions {
		if err := s.Record(tr); err != nil {
			s.logger.WithError(err).Error("Failed to record play history")
			continue
		}
		s.logger.WithFields(logrus.Fields{
			"event":  tr.Type.String(),
			"title":  tr.Track.Title,
			"artist": tr.Track.Artist,
		}).Debug("Recorded play history")
	}
}

// Recent returns the newest entries, most recent first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.recentStmt.Query(limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Title, &e.Artist, &e.Source, &e.Event, &e.At); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Ping verifies the database connection, for health checks.
func (s *Store) Ping() error {
	return s.conn.Ping()
}

// Close releases the prepared statements and the connection.
func (s *Store) Close() error {
	if s.insertStmt != nil {
		s.insertStmt.Close()
	}
	if s.recentStmt != nil {
		s.recentStmt.Close()
	}
	return s.conn.Close()
}
