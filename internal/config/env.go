package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rcliao/filmlist/internal/log"
)

// Environment variables.
const (
	EnvDataDir        = "FILMLIST_DATA_DIR"
	EnvDatabase       = "FILMLIST_DB"
	EnvChunkSize      = "FILMLIST_CHUNK_SIZE"
	EnvMaxEntries     = "FILMLIST_MAX_ENTRIES"
	EnvReadWindow     = "FILMLIST_READ_WINDOW"
	EnvMaxRecordChars = "FILMLIST_MAX_RECORD_CHARS"
	EnvProgressEvery  = "FILMLIST_PROGRESS_EVERY"
	EnvLimitDays      = "FILMLIST_LIMIT_DAYS"
	EnvKeepTransient  = "FILMLIST_KEEP_TRANSIENT"
	EnvLogLevel       = "LOG_LEVEL"
)

func logger() zerolog.Logger { return log.WithComponent("config") }

// ParseString reads a string from the environment or returns defaultValue.
// An empty variable counts as unset.
func ParseString(key, defaultValue string) string {
	l := logger()
	if v, ok := os.LookupEnv(key); ok && v != "" {
		l.Debug().Str("key", key).Str("value", v).Str("source", "environment").Msg("using environment variable")
		return v
	}
	l.Debug().Str("key", key).Str("default", defaultValue).Str("source", "default").Msg("using default value")
	return defaultValue
}

// ParseInt reads an integer from the environment. Invalid values are
// logged and ignored.
func ParseInt(key string, defaultValue int) int {
	l := logger()
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		l.Debug().Str("key", key).Int("default", defaultValue).Str("source", "default").Msg("using default value")
		return defaultValue
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		l.Warn().Str("key", key).Str("value", v).Int("default", defaultValue).
			Msg("invalid integer in environment variable, using default")
		return defaultValue
	}
	l.Debug().Str("key", key).Int("value", i).Str("source", "environment").Msg("using environment variable")
	return i
}

// ParseBool reads a boolean from the environment. It accepts true, false,
// 1, 0, yes and no, case-insensitively.
func ParseBool(key string, defaultValue bool) bool {
	l := logger()
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		l.Debug().Str("key", key).Bool("default", defaultValue).Str("source", "default").Msg("using default value")
		return defaultValue
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	l.Warn().Str("key", key).Str("value", v).Bool("default", defaultValue).
		Msg("invalid boolean in environment variable, using default")
	return defaultValue
}

func (c *Config) applyEnv() {
	c.DataDir = ParseString(EnvDataDir, c.DataDir)
	c.Database = ParseString(EnvDatabase, c.Database)
	c.Parser.ChunkSize = ParseInt(EnvChunkSize, c.Parser.ChunkSize)
	c.Parser.MaxEntries = ParseInt(EnvMaxEntries, c.Parser.MaxEntries)
	c.Parser.ReadWindow = ParseInt(EnvReadWindow, c.Parser.ReadWindow)
	c.Parser.MaxRecordChars = ParseInt(EnvMaxRecordChars, c.Parser.MaxRecordChars)
	c.Parser.ProgressEvery = ParseInt(EnvProgressEvery, c.Parser.ProgressEvery)
	c.LimitDays = ParseInt(EnvLimitDays, c.LimitDays)
	c.KeepTransient = ParseBool(EnvKeepTransient, c.KeepTransient)
	c.LogLevel = ParseString(EnvLogLevel, c.LogLevel)
}
