package run

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteRepository persists runs in a SQLite database so run history
// survives process restarts.
type SQLiteRepository struct {
	db *sql.DB
}

// Compile-time check that SQLiteRepository implements Repository.
var _ Repository = (*SQLiteRepository)(nil)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	status        TEXT NOT NULL,
	scene_count   INTEGER NOT NULL DEFAULT 0,
	assets        TEXT NOT NULL DEFAULT '[]',
	progress      INTEGER NOT NULL DEFAULT 0,
	error         TEXT NOT NULL DEFAULT '',
	music_path    TEXT NOT NULL DEFAULT '',
	push_to_s3    INTEGER NOT NULL DEFAULT 0,
	artifact_path TEXT NOT NULL DEFAULT '',
	artifact_url  TEXT NOT NULL DEFAULT '',
	created_at    INTEGER NOT NULL,
	updated_at    INTEGER NOT NULL,
	started_at    INTEGER NOT NULL DEFAULT 0,
	completed_at  INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);
`

// NewSQLiteRepository opens (or creates) the database at path and ensures the
// schema exists. SQLite handles one writer at a time, so the pool is capped
// at a single connection.
func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create runs schema: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteRepository) Close() error {
	return s.db.Close()
}

// Save inserts or updates a run.
func (s *SQLiteRepository) Save(ctx context.Context, r *Run) error {
	c := r.Clone()

	assets, err := json.Marshal(c.Assets)
	if err != nil {
		return fmt.Errorf("marshal run assets: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, status, scene_count, assets, progress, error,
			music_path, push_to_s3, artifact_path, artifact_url,
			created_at, updated_at, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			scene_count = excluded.scene_count,
			assets = excluded.assets,
			progress = excluded.progress,
			error = excluded.error,
			music_path = excluded.music_path,
			push_to_s3 = excluded.push_to_s3,
			artifact_path = excluded.artifact_path,
			artifact_url = excluded.artifact_url,
			updated_at = excluded.updated_at,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at`,
		c.ID, string(c.Status), c.SceneCount, string(assets), c.Progress, c.Error,
		c.MusicPath, boolToInt(c.PushToS3), c.ArtifactPath, c.ArtifactURL,
		c.CreatedAt.UnixNano(), c.UpdatedAt.UnixNano(),
		c.StartedAt.UnixNano(), c.CompletedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("save run %s: %w", c.ID, err)
	}
	return nil
}

// FindByID retrieves a run by its ID.
func (s *SQLiteRepository) FindByID(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, status, scene_count, assets, progress, error,
			music_path, push_to_s3, artifact_path, artifact_url,
			created_at, updated_at, started_at, completed_at
		FROM runs WHERE id = ?`, id)

	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find run %s: %w", id, err)
	}
	return r, nil
}

// List returns all runs, newest first.
func (s *SQLiteRepository) List(ctx context.Context) ([]*Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, status, scene_count, assets, progress, error,
			music_path, push_to_s3, artifact_path, artifact_url,
			created_at, updated_at, started_at, completed_at
		FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return runs, nil
}

// Delete removes a run by its ID.
func (s *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	if n == 0 {
		return ErrRunNotFound
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanRun.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var (
		r           Run
		status      string
		assets      string
		pushToS3    int
		createdAt   int64
		updatedAt   int64
		startedAt   int64
		completedAt int64
	)

	err := s.Scan(&r.ID, &status, &r.SceneCount, &assets, &r.Progress, &r.Error,
		&r.MusicPath, &pushToS3, &r.ArtifactPath, &r.ArtifactURL,
		&createdAt, &updatedAt, &startedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	r.Status = Status(status)
	r.PushToS3 = pushToS3 != 0
	if err := json.Unmarshal([]byte(assets), &r.Assets); err != nil {
		return nil, fmt.Errorf("unmarshal run assets: %w", err)
	}
	r.CreatedAt = time.Unix(0, createdAt)
	r.UpdatedAt = time.Unix(0, updatedAt)
	if startedAt != 0 {
		r.StartedAt = time.Unix(0, startedAt)
	}
	if completedAt != 0 {
		r.CompletedAt = time.Unix(0, completedAt)
	}
	return &r, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
