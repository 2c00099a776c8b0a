package sessionstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/phonalabs/phona-core/internal/config"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a session is unknown to the store.
var ErrNotFound = errors.New("session not found")

// Session is one practice session: the text being practiced and its
// reference phoneme sequence.
type Session struct {
	SessionID string
	Text      string
	Phonemes  []string
	CreatedAt time.Time
}

// Attempt records one scored pronunciation attempt. Report holds the
// marshaled score report so clients can replay past attempts.
type Attempt struct {
	ID        int64
	SessionID string
	AttemptID string
	Score     int
	Report    []byte
	CreatedAt time.Time
}

// Store wraps a SQLite-backed practice history store.
type Store struct {
	db    *sql.DB
	cfg   config.SessionStoreConfig
	log   *slog.Logger
	clock func() time.Time
}

// Open initializes the session store according to config.
func Open(ctx context.Context, cfg config.SessionStoreConfig, log *slog.Logger) (*Store, error) {
	if cfg.RetentionMode == "ephemeral" {
		return &Store{cfg: cfg, log: log, clock: time.Now}, nil
	}

	dir := filepath.Dir(cfg.Path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, cfg: cfg, log: log, clock: time.Now}

	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if cfg.VacuumOnStart {
		if err := s.vacuum(ctx); err != nil {
			log.Warn("session store vacuum failed", slog.String("error", err.Error()))
		}
	}

	if err := s.Prune(ctx); err != nil {
		log.Warn("session store prune on start failed", slog.String("error", err.Error()))
	}

	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	ddl := `
CREATE TABLE IF NOT EXISTS sessions (
    session_id TEXT PRIMARY KEY,
    text TEXT NOT NULL,
    phonemes TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS attempts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL,
    attempt_id TEXT,
    score INTEGER NOT NULL,
    report BLOB,
    created_at TIMESTAMP NOT NULL,
    FOREIGN KEY(session_id) REFERENCES sessions(session_id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_attempts_session_created ON attempts(session_id, created_at);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

func (s *Store) vacuum(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// Close releases underlying resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveSession upserts a practice session with its reference phonemes.
func (s *Store) SaveSession(ctx context.Context, sessionID, text string, phonemes []string) error {
	if s.cfg.RetentionMode == "ephemeral" || s.db == nil {
		return nil
	}
	encoded, err := json.Marshal(phonemes)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions(session_id, text, phonemes, created_at)
		 VALUES(?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET text=excluded.text, phonemes=excluded.phonemes`,
		sessionID, text, string(encoded), s.clock().UTC())
	return err
}

// GetSession loads a practice session by id.
func (s *Store) GetSession(ctx context.Context, sessionID string) (Session, error) {
	if s.cfg.RetentionMode == "ephemeral" || s.db == nil {
		return Session{}, ErrNotFound
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT session_id, text, phonemes, created_at FROM sessions WHERE session_id = ?`, sessionID)

	var sess Session
	var phonemes string
	var created string
	if err := row.Scan(&sess.SessionID, &sess.Text, &phonemes, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}
	if err := json.Unmarshal([]byte(phonemes), &sess.Phonemes); err != nil {
		return Session{}, fmt.Errorf("decode phonemes: %w", err)
	}
	if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
		sess.CreatedAt = ts
	}
	return sess, nil
}

// RecordAttempt writes a scored attempt into the store.
func (s *Store) RecordAttempt(ctx context.Context, att Attempt) error {
	if s.cfg.RetentionMode == "ephemeral" || s.db == nil {
		return nil
	}
	if att.CreatedAt.IsZero() {
		att.CreatedAt = s.clock().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO attempts(session_id, attempt_id, score, report, created_at)
		 VALUES(?, ?, ?, ?, ?)`,
		att.SessionID, att.AttemptID, att.Score, att.Report, att.CreatedAt)
	return err
}

// ListAttempts retrieves up to limit attempts for a session ordered ascending by time.
func (s *Store) ListAttempts(ctx context.Context, sessionID string, limit int) ([]Attempt, error) {
	if s.cfg.RetentionMode == "ephemeral" || s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, attempt_id, score, report, created_at
		 FROM attempts WHERE session_id = ? ORDER BY created_at ASC LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		var a Attempt
		var created string
		if err := rows.Scan(&a.ID, &a.SessionID, &a.AttemptID, &a.Score, &a.Report, &created); err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			a.CreatedAt = ts
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// Prune applies configured retention (called on startup and can be scheduled).
func (s *Store) Prune(ctx context.Context) error {
	if s.cfg.RetentionMode == "ephemeral" || s.db == nil {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if s.cfg.RetentionDays > 0 {
		cutoff := s.clock().Add(-time.Duration(s.cfg.RetentionDays) * 24 * time.Hour)
		if _, err = tx.ExecContext(ctx, `DELETE FROM attempts WHERE created_at < ?`, cutoff.UTC()); err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx, `DELETE FROM sessions WHERE created_at < ?`, cutoff.UTC()); err != nil {
			return err
		}
	}
	if s.cfg.MaxSessions > 0 {
		_, err = tx.ExecContext(ctx, `DELETE FROM sessions WHERE session_id IN (
			SELECT session_id FROM sessions ORDER BY created_at DESC LIMIT -1 OFFSET ?
		)`, s.cfg.MaxSessions)
		if err != nil {
			return err
		}
	}
	err = tx.Commit()
	return err
}
