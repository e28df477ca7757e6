package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/filmlist/internal/model"
	"github.com/rcliao/filmlist/internal/record"
)

// DefaultBusyTimeout is how long a connection waits on a locked database.
const DefaultBusyTimeout = 5 * time.Second

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db    *sql.DB
	path  string
	limit *record.LimitDate

	mu      sync.Mutex
	entropy *rand.Rand
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)",
		dbPath, DefaultBusyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		path:    dbPath,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

// UseLimitDate makes reads classify records against l. Without it every
// record with a positive timestamp counts as recent.
func (s *SQLiteStore) UseLimitDate(l *record.LimitDate) { s.limit = l }

func (s *SQLiteStore) newID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS films (
		channel      TEXT NOT NULL,
		theme        TEXT NOT NULL,
		title        TEXT NOT NULL,
		date         TEXT NOT NULL DEFAULT '',
		time         TEXT NOT NULL DEFAULT '',
		duration     TEXT NOT NULL DEFAULT '',
		size_mb      TEXT NOT NULL DEFAULT '',
		description  TEXT NOT NULL DEFAULT '',
		geo          TEXT NOT NULL DEFAULT '',
		is_new       INTEGER NOT NULL DEFAULT 0,
		url          TEXT NOT NULL DEFAULT '',
		small_url    TEXT NOT NULL DEFAULT '',
		hd_url       TEXT NOT NULL DEFAULT '',
		subtitle_url TEXT NOT NULL DEFAULT '',
		website      TEXT NOT NULL DEFAULT '',
		timestamp    INTEGER NOT NULL DEFAULT 0,
		updated_at   TEXT NOT NULL,
		PRIMARY KEY (channel, theme, title)
	);
	CREATE INDEX IF NOT EXISTS idx_films_timestamp ON films(timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_films_channel_theme ON films(channel, theme);

	CREATE TABLE IF NOT EXISTS favorites (
		channel  TEXT NOT NULL,
		theme    TEXT NOT NULL,
		title    TEXT NOT NULL,
		added_at TEXT NOT NULL,
		PRIMARY KEY (channel, theme, title)
	);

	CREATE TABLE IF NOT EXISTS history (
		channel    TEXT NOT NULL,
		theme      TEXT NOT NULL,
		title      TEXT NOT NULL,
		watched_at TEXT NOT NULL,
		position   INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (channel, theme, title)
	);
	CREATE INDEX IF NOT EXISTS idx_history_watched ON history(watched_at DESC);

	CREATE TABLE IF NOT EXISTS ingest_runs (
		id          TEXT PRIMARY KEY,
		mode        TEXT NOT NULL,
		source      TEXT NOT NULL,
		started_at  TEXT NOT NULL,
		finished_at TEXT,
		status      TEXT NOT NULL,
		records     INTEGER NOT NULL DEFAULT 0,
		error       TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON ingest_runs(started_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

const filmColumns = `channel, theme, title, date, time, duration, size_mb, description, geo, is_new,
	url, small_url, hd_url, subtitle_url, website, timestamp`

const upsertFilm = `INSERT INTO films (` + filmColumns + `, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (channel, theme, title) DO UPDATE SET
		date = excluded.date,
		time = excluded.time,
		duration = excluded.duration,
		size_mb = excluded.size_mb,
		description = excluded.description,
		geo = excluded.geo,
		is_new = excluded.is_new,
		url = excluded.url,
		small_url = excluded.small_url,
		hd_url = excluded.hd_url,
		subtitle_url = excluded.subtitle_url,
		website = excluded.website,
		timestamp = excluded.timestamp,
		updated_at = excluded.updated_at`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsert(ctx context.Context, e execer, r model.Record, now string) error {
	_, err := e.ExecContext(ctx, upsertFilm,
		r.Channel, r.Theme, r.Title, r.Date, r.Time, r.Duration, r.SizeMB, r.Description, r.Geo, r.IsNew,
		r.URL, r.SmallURL, r.HDURL, r.SubtitleURL, r.Website, r.Timestamp, now)
	return err
}

// InsertBatch writes one chunk in a single transaction. Records whose key
// already exists replace the stored row.
func (s *SQLiteStore) InsertBatch(ctx context.Context, records []model.Record) error {
	if len(records) == 0 {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, upsertFilm)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx,
			r.Channel, r.Theme, r.Title, r.Date, r.Time, r.Duration, r.SizeMB, r.Description, r.Geo, r.IsNew,
			r.URL, r.SmallURL, r.HDURL, r.SubtitleURL, r.Website, r.Timestamp, now); err != nil {
			return fmt.Errorf("insert film %s: %w", r.Key(), err)
		}
	}
	return tx.Commit()
}

// Upsert inserts r or replaces the record with the same natural key.
func (s *SQLiteStore) Upsert(ctx context.Context, r model.Record) error {
	if err := upsert(ctx, s.db, r, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("upsert film %s: %w", r.Key(), err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, key model.Key) (model.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+filmColumns+` FROM films WHERE channel = ? AND theme = ? AND title = ?`,
		key.Channel, key.Theme, key.Title)
	r, err := s.scanFilm(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Record{}, fmt.Errorf("film %s: %w", key, ErrNotFound)
	}
	return r, err
}

func (s *SQLiteStore) List(ctx context.Context, p ListParams) ([]model.Record, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	where := []string{"1 = 1"}
	var args []any
	if p.Channel != "" {
		where = append(where, "channel = ?")
		args = append(args, p.Channel)
	}
	if p.Theme != "" {
		where = append(where, "theme = ?")
		args = append(args, p.Theme)
	}
	if p.Recent {
		where = append(where, "timestamp > ?")
		args = append(args, s.limit.Get())
	}
	args = append(args, limit)

	query := `SELECT ` + filmColumns + ` FROM films WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY timestamp DESC, channel, theme, title LIMIT ?`
	return s.queryFilms(ctx, query, args...)
}

func (s *SQLiteStore) Delete(ctx context.Context, key model.Key) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM films WHERE channel = ? AND theme = ? AND title = ?`,
		key.Channel, key.Theme, key.Title)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("film %s: %w", key, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) Reset(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM films`)
	return err
}

// Count returns the number of stored records.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM films`).Scan(&n)
	return n, err
}

// CountInTimePeriod returns how many stored records are newer than limit.
// The comparison runs at query time, so a changed limit date applies to
// everything already persisted.
func (s *SQLiteStore) CountInTimePeriod(ctx context.Context, limit int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM films WHERE timestamp > ?`, limit).Scan(&n)
	return n, err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) queryFilms(ctx context.Context, query string, args ...any) ([]model.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var films []model.Record
	for rows.Next() {
		r, err := s.scanFilm(rows)
		if err != nil {
			return nil, err
		}
		films = append(films, r)
	}
	return films, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *SQLiteStore) scanFilm(row scanner) (model.Record, error) {
	var r model.Record
	err := row.Scan(
		&r.Channel, &r.Theme, &r.Title, &r.Date, &r.Time, &r.Duration, &r.SizeMB, &r.Description, &r.Geo, &r.IsNew,
		&r.URL, &r.SmallURL, &r.HDURL, &r.SubtitleURL, &r.Website, &r.Timestamp,
	)
	if err != nil {
		return r, err
	}
	s.limit.Classify(&r)
	return r, nil
}

func parseTime(v string) time.Time {
	t, _ := time.Parse(time.RFC3339, v)
	return t
}
