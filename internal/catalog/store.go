package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"montage/internal/services"
)

// Shot is a previously uploaded source video clip eligible for use in a
// composition.
type Shot struct {
	ID        int64
	ObjectKey string
	Title     string
	Duration  float64
	CreatedAt time.Time
}

// VoiceSample is a user-submitted recording used to train a clone voice.
type VoiceSample struct {
	ID           int64
	OwnerUserID  int64
	Status       string
	CloneVoiceID string
	CreatedAt    time.Time
}

// Store manages shot and voice-sample records backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the catalog database and applies the
// schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure catalog directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applySchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) applySchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS shots (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    object_key  TEXT NOT NULL,
    title       TEXT NOT NULL DEFAULT '',
    duration    REAL NOT NULL DEFAULT 0,
    created_at  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS voice_samples (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    owner_user_id  INTEGER NOT NULL,
    status         TEXT NOT NULL,
    clone_voice_id TEXT NOT NULL DEFAULT '',
    created_at     TEXT NOT NULL
);`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply catalog schema: %w", err)
	}
	return nil
}

// AddShot inserts a shot record and returns its identifier.
func (s *Store) AddShot(ctx context.Context, objectKey, title string, duration float64) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO shots (object_key, title, duration, created_at) VALUES (?, ?, ?, ?)`,
		objectKey, title, duration, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert shot: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// ShotByID resolves a shot record. A missing record is a not-found error so
// the cut phase can fail fast without retries.
func (s *Store) ShotByID(ctx context.Context, id int64) (*Shot, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, object_key, title, duration, created_at FROM shots WHERE id = ?`,
		id,
	)
	var shot Shot
	var createdAt string
	if err := row.Scan(&shot.ID, &shot.ObjectKey, &shot.Title, &shot.Duration, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, services.Wrap(services.ErrNotFound, "catalog", "shot lookup", fmt.Sprintf("shot %d", id), nil)
		}
		return nil, fmt.Errorf("query shot %d: %w", id, err)
	}
	shot.CreatedAt = parseTimestamp(createdAt)
	return &shot, nil
}

// AddVoiceSample inserts a voice-sample record and returns its identifier.
func (s *Store) AddVoiceSample(ctx context.Context, ownerUserID int64, status, cloneVoiceID string) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO voice_samples (owner_user_id, status, clone_voice_id, created_at) VALUES (?, ?, ?, ?)`,
		ownerUserID, status, cloneVoiceID, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert voice sample: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// VoiceSampleByID resolves a voice-sample record.
func (s *Store) VoiceSampleByID(ctx context.Context, id int64) (*VoiceSample, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, owner_user_id, status, clone_voice_id, created_at FROM voice_samples WHERE id = ?`,
		id,
	)
	var sample VoiceSample
	var createdAt string
	if err := row.Scan(&sample.ID, &sample.OwnerUserID, &sample.Status, &sample.CloneVoiceID, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, services.Wrap(services.ErrNotFound, "catalog", "voice sample lookup", fmt.Sprintf("sample %d", id), nil)
		}
		return nil, fmt.Errorf("query voice sample %d: %w", id, err)
	}
	sample.CreatedAt = parseTimestamp(createdAt)
	return &sample, nil
}

func parseTimestamp(value string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return ts
}
