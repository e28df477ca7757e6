package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/renameio/v2"

	"github.com/rcliao/filmlist/internal/chunker"
	"github.com/rcliao/filmlist/internal/model"
)

// ExportAll returns all stored records ordered by natural key, optionally
// filtered by channel.
func (s *SQLiteStore) ExportAll(ctx context.Context, channel string) ([]model.Record, error) {
	query := `SELECT ` + filmColumns + ` FROM films`
	var args []any
	if channel != "" {
		query += ` WHERE channel = ?`
		args = append(args, channel)
	}
	query += ` ORDER BY channel, theme, title`
	return s.queryFilms(ctx, query, args...)
}

// WriteExport writes the records of ExportAll as a JSON array to path. The
// file is replaced atomically.
func (s *SQLiteStore) WriteExport(ctx context.Context, path, channel string) (int, error) {
	films, err := s.ExportAll(ctx, channel)
	if err != nil {
		return 0, err
	}
	if films == nil {
		films = []model.Record{}
	}
	b, err := json.MarshalIndent(films, "", "  ")
	if err != nil {
		return 0, err
	}
	if err := renameio.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return 0, fmt.Errorf("write export: %w", err)
	}
	return len(films), nil
}

// Import stores records from an export, merging by natural key.
func (s *SQLiteStore) Import(ctx context.Context, records []model.Record) (int, error) {
	c := chunker.New[model.Record](chunker.DefaultOptions())
	imported := 0
	flush := func() error {
		batch := c.Take()
		if err := s.InsertBatch(ctx, batch); err != nil {
			return err
		}
		imported += len(batch)
		return nil
	}
	for _, r := range records {
		if c.Add(r) {
			if err := flush(); err != nil {
				return imported, err
			}
		}
	}
	if c.Len() > 0 {
		if err := flush(); err != nil {
			return imported, err
		}
	}
	return imported, nil
}

// ReadExport decodes an export produced by WriteExport.
func ReadExport(r io.Reader) ([]model.Record, error) {
	var records []model.Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("parse export: %w", err)
	}
	return records, nil
}
