// Package record maps positional film-list fields onto model.Record.
package record

import (
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/rcliao/filmlist/internal/model"
)

// Positions of the fields inside one "X" array. Slots 11, 13, 15 and 17
// carry legacy RTMP and history locators and are ignored.
const (
	FieldChannel     = 0
	FieldTheme       = 1
	FieldTitle       = 2
	FieldDate        = 3
	FieldTime        = 4
	FieldDuration    = 5
	FieldSize        = 6
	FieldDescription = 7
	FieldURL         = 8
	FieldWebsite     = 9
	FieldSubtitleURL = 10
	FieldSmallURL    = 12
	FieldHDURL       = 14
	FieldTimestamp   = 16
	FieldGeo         = 18
	FieldNew         = 19

	// FieldCount is the number of slots in a current film-list array.
	FieldCount = 20
)

// Decode builds a record from fields. A blank channel or theme is copied
// from prev, which may be nil for the first record of a pass. Missing
// trailing fields decode as empty values.
func Decode(fields []string, prev *model.Record) model.Record {
	r := model.Record{
		Channel:     field(fields, FieldChannel),
		Theme:       field(fields, FieldTheme),
		Title:       field(fields, FieldTitle),
		Date:        field(fields, FieldDate),
		Time:        field(fields, FieldTime),
		Duration:    field(fields, FieldDuration),
		SizeMB:      field(fields, FieldSize),
		Description: field(fields, FieldDescription),
		URL:         field(fields, FieldURL),
		Website:     field(fields, FieldWebsite),
		SubtitleURL: field(fields, FieldSubtitleURL),
		SmallURL:    field(fields, FieldSmallURL),
		HDURL:       field(fields, FieldHDURL),
		Timestamp:   parseTimestamp(field(fields, FieldTimestamp)),
		Geo:         field(fields, FieldGeo),
		IsNew:       strings.EqualFold(strings.TrimSpace(field(fields, FieldNew)), "true"),
	}

	if prev != nil {
		if isBlank(r.Channel) {
			r.Channel = prev.Channel
		}
		if isBlank(r.Theme) {
			r.Theme = prev.Theme
		}
	}
	return r
}

func field(fields []string, i int) string {
	if i < len(fields) {
		return fields[i]
	}
	return ""
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func parseTimestamp(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// LimitDate is the shared "recent" threshold in epoch seconds. It may be
// changed between parses; records already built keep their flag.
type LimitDate struct {
	v atomic.Int64
}

// NewLimitDate returns a threshold initialised to ts.
func NewLimitDate(ts int64) *LimitDate {
	l := &LimitDate{}
	l.v.Store(ts)
	return l
}

// Set replaces the threshold.
func (l *LimitDate) Set(ts int64) { l.v.Store(ts) }

// Get returns the current threshold. A nil LimitDate is zero.
func (l *LimitDate) Get() int64 {
	if l == nil {
		return 0
	}
	return l.v.Load()
}

// Classify sets r.InTimePeriod against the current threshold.
func (l *LimitDate) Classify(r *model.Record) {
	r.InTimePeriod = r.WithinPeriod(l.Get())
}
