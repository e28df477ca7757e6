package store

import (
	"context"
	"errors"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath       string         `json:"db_path"`
	DBSizeBytes  int64          `json:"db_size_bytes"`
	TotalFilms   int            `json:"total_films"`
	InTimePeriod int            `json:"in_time_period"`
	LimitDate    int64          `json:"limit_date"`
	Favorites    int            `json:"favorites"`
	History      int            `json:"history"`
	Channels     []ChannelStats `json:"channels"`
	LastRun      *Run           `json:"last_run,omitempty"`
}

// ChannelStats holds per-channel counts.
type ChannelStats struct {
	Channel string `json:"channel"`
	Count   int    `json:"count"`
	Themes  int    `json:"themes"`
}

// Stats returns database statistics. Recent counts use the store's
// current limit date.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{DBPath: s.path, LimitDate: s.limit.Get()}

	if info, err := os.Stat(s.path); err == nil {
		st.DBSizeBytes = info.Size()
	}

	var err error
	if st.TotalFilms, err = s.Count(ctx); err != nil {
		return st, err
	}
	if st.InTimePeriod, err = s.CountInTimePeriod(ctx, st.LimitDate); err != nil {
		return st, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM favorites`).Scan(&st.Favorites); err != nil {
		return st, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM history`).Scan(&st.History); err != nil {
		return st, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT channel, COUNT(*) AS cnt, COUNT(DISTINCT theme) AS themes
		FROM films GROUP BY channel ORDER BY cnt DESC, channel`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var c ChannelStats
		if err := rows.Scan(&c.Channel, &c.Count, &c.Themes); err != nil {
			return st, err
		}
		st.Channels = append(st.Channels, c)
	}
	if err := rows.Err(); err != nil {
		return st, err
	}

	last, err := s.LastRun(ctx)
	switch {
	case err == nil:
		st.LastRun = &last
	case !errors.Is(err, ErrNotFound):
		return st, err
	}
	return st, nil
}
