// Package config loads filmlist configuration from defaults, an optional
// YAML file and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rcliao/filmlist/internal/chunker"
	"github.com/rcliao/filmlist/internal/filmlist"
)

// ParserConfig holds the stream parser settings.
type ParserConfig struct {
	ChunkSize      int `yaml:"chunkSize"`
	MaxEntries     int `yaml:"maxEntries"`
	ReadWindow     int `yaml:"readWindow"`
	MaxRecordChars int `yaml:"maxRecordChars"`
	ProgressEvery  int `yaml:"progressEvery"`
}

// Config is the effective configuration.
type Config struct {
	DataDir       string       `yaml:"dataDir"`
	Database      string       `yaml:"database"`
	Parser        ParserConfig `yaml:"parser"`
	LimitDays     int          `yaml:"limitDays"`
	KeepTransient bool         `yaml:"keepTransient"`
	LogLevel      string       `yaml:"logLevel"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir: filepath.Join(home, ".filmlist"),
		Parser: ParserConfig{
			ChunkSize:      filmlist.DefaultChunkSize,
			ReadWindow:     filmlist.DefaultReadWindow,
			MaxRecordChars: filmlist.DefaultMaxRecordChars,
			ProgressEvery:  filmlist.DefaultProgressEvery,
		},
		LogLevel: "info",
	}
}

// DatabasePath returns Database, or films.db inside DataDir when unset.
func (c Config) DatabasePath() string {
	if c.Database != "" {
		return c.Database
	}
	return filepath.Join(c.DataDir, "films.db")
}

// ParserOptions converts the parser section to filmlist.Options.
func (c Config) ParserOptions() filmlist.Options {
	return filmlist.Options{
		ChunkSize:      c.Parser.ChunkSize,
		MaxEntries:     c.Parser.MaxEntries,
		ReadWindow:     c.Parser.ReadWindow,
		MaxRecordChars: c.Parser.MaxRecordChars,
		ProgressEvery:  c.Parser.ProgressEvery,
		Mode:           filmlist.ModeFull,
	}
}

// LimitDate returns the "recent" threshold in epoch seconds: now minus
// LimitDays. Zero days disables the threshold.
func (c Config) LimitDate(now time.Time) int64 {
	if c.LimitDays <= 0 {
		return 0
	}
	return now.Add(-time.Duration(c.LimitDays) * 24 * time.Hour).Unix()
}

// Validate checks value ranges.
func (c Config) Validate() error {
	var errs []error
	if c.DataDir == "" && c.Database == "" {
		errs = append(errs, errors.New("dataDir or database must be set"))
	}
	if c.Parser.ChunkSize < chunker.MinSize || c.Parser.ChunkSize > chunker.MaxSize {
		errs = append(errs, fmt.Errorf("parser.chunkSize must be in [%d, %d], got %d",
			chunker.MinSize, chunker.MaxSize, c.Parser.ChunkSize))
	}
	if c.Parser.MaxEntries < 0 {
		errs = append(errs, fmt.Errorf("parser.maxEntries must not be negative, got %d", c.Parser.MaxEntries))
	}
	if c.Parser.ReadWindow < 1024 {
		errs = append(errs, fmt.Errorf("parser.readWindow must be at least 1024, got %d", c.Parser.ReadWindow))
	}
	if c.Parser.MaxRecordChars < 64 {
		errs = append(errs, fmt.Errorf("parser.maxRecordChars must be at least 64, got %d", c.Parser.MaxRecordChars))
	}
	if c.Parser.ProgressEvery < 0 {
		errs = append(errs, fmt.Errorf("parser.progressEvery must not be negative, got %d", c.Parser.ProgressEvery))
	}
	if c.LimitDays < 0 {
		errs = append(errs, fmt.Errorf("limitDays must not be negative, got %d", c.LimitDays))
	}
	return errors.Join(errs...)
}
