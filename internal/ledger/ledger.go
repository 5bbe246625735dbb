package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes incompatibly.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was created by another schema
// version.
var ErrSchemaMismatch = errors.New("ledger schema version mismatch")

// Ledger is the run history store.
type Ledger struct {
	db   *sql.DB
	path string
}

// Run is one fleet invocation.
type Run struct {
	ID         string
	URLs       []string
	RootFolder string
	Workers    int
	StartedAt  time.Time
	FinishedAt *time.Time
	Succeeded  int
	Failed     int
	Skipped    int
	Error      string
}

// Video is one per-video outcome within a run.
type Video struct {
	RunID      string
	VideoID    string
	Title      string
	URL        string
	Folder     string
	Outcome    string
	Attempts   int
	Error      string
	Duration   time.Duration
	RecordedAt time.Time
}

// Open creates or connects to the ledger at path.
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Workers record outcomes concurrently; one connection keeps SQLite
	// writes serialized.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}

	l := &Ledger{db: db, path: path}
	if err := l.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

// Path returns the database location.
func (l *Ledger) Path() string { return l.path }

// Close closes the database.
func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

func (l *Ledger) initSchema(ctx context.Context) error {
	var exists int
	err := l.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if exists == 0 {
		return l.createSchema(ctx)
	}

	var version int
	if err := l.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s)",
			ErrSchemaMismatch, version, schemaVersion, l.path)
	}
	return nil
}

func (l *Ledger) createSchema(ctx context.Context) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// StartRun inserts a new run row.
func (l *Ledger) StartRun(ctx context.Context, run Run) error {
	if strings.TrimSpace(run.ID) == "" {
		return errors.New("run id is required")
	}
	started := run.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO runs (id, urls, root_folder, workers, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID,
		strings.Join(run.URLs, "\n"),
		run.RootFolder,
		run.Workers,
		formatTime(started),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// RecordVideo appends a per-video outcome to a run.
func (l *Ledger) RecordVideo(ctx context.Context, v Video) error {
	recorded := v.RecordedAt
	if recorded.IsZero() {
		recorded = time.Now()
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO videos (run_id, video_id, title, url, folder, outcome, attempts, error, duration_ms, recorded_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.RunID,
		nullable(v.VideoID),
		nullable(v.Title),
		nullable(v.URL),
		nullable(v.Folder),
		v.Outcome,
		v.Attempts,
		nullable(v.Error),
		v.Duration.Milliseconds(),
		formatTime(recorded),
	)
	if err != nil {
		return fmt.Errorf("insert video outcome: %w", err)
	}
	return nil
}

// FinishRun stores the final tally of a run.
func (l *Ledger) FinishRun(ctx context.Context, id string, succeeded, failed, skipped int, runErr error) error {
	var errText any
	if runErr != nil {
		errText = runErr.Error()
	}
	res, err := l.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, succeeded = ?, failed = ?, skipped = ?, error = ? WHERE id = ?`,
		formatTime(time.Now()), succeeded, failed, skipped, errText, id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run: run %s not found", id)
	}
	return nil
}

// Runs returns the most recent runs, newest first.
func (l *Ledger) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, urls, root_folder, workers, started_at, finished_at, succeeded, failed, skipped, error
         FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r                  Run
			urls, started      string
			finished, errorMsg sql.NullString
		)
		if err := rows.Scan(&r.ID, &urls, &r.RootFolder, &r.Workers, &started, &finished,
			&r.Succeeded, &r.Failed, &r.Skipped, &errorMsg); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if urls != "" {
			r.URLs = strings.Split(urls, "\n")
		}
		r.StartedAt = parseTime(started)
		if finished.Valid {
			t := parseTime(finished.String)
			r.FinishedAt = &t
		}
		r.Error = errorMsg.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// Videos returns the outcomes recorded for a run in completion order.
func (l *Ledger) Videos(ctx context.Context, runID string) ([]Video, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT run_id, video_id, title, url, folder, outcome, attempts, error, duration_ms, recorded_at
         FROM videos WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query videos: %w", err)
	}
	defer rows.Close()

	var out []Video
	for rows.Next() {
		var (
			v                                    Video
			videoID, title, url, folder, errText sql.NullString
			durationMS                           int64
			recorded                             string
		)
		if err := rows.Scan(&v.RunID, &videoID, &title, &url, &folder, &v.Outcome, &v.Attempts,
			&errText, &durationMS, &recorded); err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		v.VideoID, v.Title, v.URL, v.Folder, v.Error = videoID.String, title.String, url.String, folder.String, errText.String
		v.Duration = time.Duration(durationMS) * time.Millisecond
		v.RecordedAt = parseTime(recorded)
		out = append(out, v)
	}
	return out, rows.Err()
}

// LastOutcome returns the most recent outcome recorded for a video ID, or
// "" when none exists.
func (l *Ledger) LastOutcome(ctx context.Context, videoID string) (string, error) {
	var outcome string
	err := l.db.QueryRowContext(ctx,
		`SELECT outcome FROM videos WHERE video_id = ? ORDER BY id DESC LIMIT 1`, videoID,
	).Scan(&outcome)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query last outcome: %w", err)
	}
	return outcome, nil
}

func nullable(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
