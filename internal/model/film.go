// Package model defines the core film-list data types.
package model

import (
	"strconv"
	"strings"
	"time"
)

// Key is the natural key of a listing entry. Films, favorites and history
// entries all share this shape.
type Key struct {
	Channel string `json:"channel"`
	Theme   string `json:"theme"`
	Title   string `json:"title"`
}

func (k Key) String() string {
	return k.Channel + "/" + k.Theme + "/" + k.Title
}

// Record represents one decoded film-list entry.
type Record struct {
	Channel     string `json:"channel"`
	Theme       string `json:"theme"`
	Title       string `json:"title"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Duration    string `json:"duration"`
	SizeMB      string `json:"size_mb"`
	Description string `json:"description"`
	Geo         string `json:"geo,omitempty"`
	IsNew       bool   `json:"is_new"`

	URL         string `json:"url"`
	SmallURL    string `json:"small_url,omitempty"`
	HDURL       string `json:"hd_url,omitempty"`
	SubtitleURL string `json:"subtitle_url,omitempty"`
	Website     string `json:"website,omitempty"`

	Timestamp int64 `json:"timestamp"`

	// InTimePeriod is derived from Timestamp and the current limit date.
	// It is not persisted.
	InTimePeriod bool `json:"in_time_period"`
}

// Key returns the natural key of r.
func (r Record) Key() Key {
	return Key{Channel: r.Channel, Theme: r.Theme, Title: r.Title}
}

// WithinPeriod reports whether r is newer than limit (epoch seconds).
func (r Record) WithinPeriod(limit int64) bool {
	return r.Timestamp > limit
}

// Aired returns the broadcast time, or the zero time if unknown.
func (r Record) Aired() time.Time {
	if r.Timestamp == 0 {
		return time.Time{}
	}
	return time.Unix(r.Timestamp, 0).UTC()
}

// SmallURLResolved returns the low quality locator, falling back to URL.
func (r Record) SmallURLResolved() string {
	if r.SmallURL == "" {
		return r.URL
	}
	return ResolveLocator(r.URL, r.SmallURL)
}

// HDURLResolved returns the high quality locator, falling back to URL.
func (r Record) HDURLResolved() string {
	if r.HDURL == "" {
		return r.URL
	}
	return ResolveLocator(r.URL, r.HDURL)
}

// SubtitleURLResolved returns the subtitle locator. Empty means no subtitles.
func (r Record) SubtitleURLResolved() string {
	return ResolveLocator(r.URL, r.SubtitleURL)
}

// WebsiteResolved returns the website locator.
func (r Record) WebsiteResolved() string {
	return ResolveLocator(r.URL, r.Website)
}

// ResolveLocator expands the compact "<N>|<suffix>" form against base:
// the first N bytes of base followed by suffix. Values that are not in
// compact form are returned unchanged. N is clamped to len(base).
func ResolveLocator(base, locator string) string {
	idx := strings.IndexByte(locator, '|')
	if idx <= 0 {
		return locator
	}
	n, err := strconv.Atoi(locator[:idx])
	if err != nil || n < 0 {
		return locator
	}
	if n > len(base) {
		n = len(base)
	}
	return base[:n] + locator[idx+1:]
}

// Favorite is a bookmarked listing entry.
type Favorite struct {
	Key
	AddedAt time.Time `json:"added_at"`
}

// HistoryEntry records that a listing entry was watched.
type HistoryEntry struct {
	Key
	WatchedAt time.Time `json:"watched_at"`
	Position  int       `json:"position_seconds"`
}
