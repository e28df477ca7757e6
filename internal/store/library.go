package store

import (
	"context"
	"fmt"
	"time"

	"github.com/rcliao/filmlist/internal/model"
)

// AddFavorite bookmarks key. Adding an existing favorite keeps its
// original timestamp. Favorites are independent of the films table and
// survive a full reload.
func (s *SQLiteStore) AddFavorite(ctx context.Context, key model.Key) (model.Favorite, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO favorites (channel, theme, title, added_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (channel, theme, title) DO NOTHING`,
		key.Channel, key.Theme, key.Title, now)
	if err != nil {
		return model.Favorite{}, fmt.Errorf("add favorite: %w", err)
	}

	var added string
	err = s.db.QueryRowContext(ctx,
		`SELECT added_at FROM favorites WHERE channel = ? AND theme = ? AND title = ?`,
		key.Channel, key.Theme, key.Title).Scan(&added)
	if err != nil {
		return model.Favorite{}, err
	}
	return model.Favorite{Key: key, AddedAt: parseTime(added)}, nil
}

// RemoveFavorite deletes the bookmark for key.
func (s *SQLiteStore) RemoveFavorite(ctx context.Context, key model.Key) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM favorites WHERE channel = ? AND theme = ? AND title = ?`,
		key.Channel, key.Theme, key.Title)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("favorite %s: %w", key, ErrNotFound)
	}
	return nil
}

// ListFavorites returns bookmarks, most recent first.
func (s *SQLiteStore) ListFavorites(ctx context.Context) ([]model.Favorite, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT channel, theme, title, added_at FROM favorites ORDER BY added_at DESC, rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var favs []model.Favorite
	for rows.Next() {
		var f model.Favorite
		var added string
		if err := rows.Scan(&f.Channel, &f.Theme, &f.Title, &added); err != nil {
			return nil, err
		}
		f.AddedAt = parseTime(added)
		favs = append(favs, f)
	}
	return favs, rows.Err()
}

// RecordWatch stores the playback position for key, replacing any earlier
// entry.
func (s *SQLiteStore) RecordWatch(ctx context.Context, key model.Key, position int) (model.HistoryEntry, error) {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO history (channel, theme, title, watched_at, position) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (channel, theme, title) DO UPDATE SET
			watched_at = excluded.watched_at,
			position = excluded.position`,
		key.Channel, key.Theme, key.Title, now.Format(time.RFC3339), position)
	if err != nil {
		return model.HistoryEntry{}, fmt.Errorf("record watch: %w", err)
	}
	return model.HistoryEntry{Key: key, WatchedAt: now.Truncate(time.Second), Position: position}, nil
}

// RemoveHistory deletes the history entry for key.
func (s *SQLiteStore) RemoveHistory(ctx context.Context, key model.Key) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM history WHERE channel = ? AND theme = ? AND title = ?`,
		key.Channel, key.Theme, key.Title)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("history %s: %w", key, ErrNotFound)
	}
	return nil
}

// ListHistory returns watched entries, most recent first.
func (s *SQLiteStore) ListHistory(ctx context.Context, limit int) ([]model.HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT channel, theme, title, watched_at, position FROM history
		 ORDER BY watched_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.HistoryEntry
	for rows.Next() {
		var h model.HistoryEntry
		var watched string
		if err := rows.Scan(&h.Channel, &h.Theme, &h.Title, &watched, &h.Position); err != nil {
			return nil, err
		}
		h.WatchedAt = parseTime(watched)
		entries = append(entries, h)
	}
	return entries, rows.Err()
}
