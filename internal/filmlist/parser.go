// Package filmlist streams broadcaster film lists into bounded chunks of
// decoded records.
//
// A film list is one JSON-like object whose record arrays all sit under the
// repeated key "X". The parser walks the top-level object with the scan
// package, skips every other key structurally, and hands records to a
// Handler in chunks so that at most one chunk plus the read window is held
// in memory.
package filmlist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rcliao/filmlist/internal/chunker"
	"github.com/rcliao/filmlist/internal/log"
	"github.com/rcliao/filmlist/internal/metrics"
	"github.com/rcliao/filmlist/internal/model"
	"github.com/rcliao/filmlist/internal/record"
	"github.com/rcliao/filmlist/internal/scan"
)

// Marker introduces every record array.
const Marker = `"X":`

const recordKey = "X"

const (
	DefaultChunkSize      = chunker.DefaultSize
	DefaultReadWindow     = 64 * 1024
	DefaultMaxRecordChars = 10_000
	DefaultProgressEvery  = 100_000

	ModeFull = "full"
	ModeDiff = "diff"
)

var bom = []byte{0xEF, 0xBB, 0xBF}

// Options configures a Parser.
type Options struct {
	ChunkSize      int // records per OnChunk call
	MaxEntries     int // stop after this many records; 0 means unlimited
	ReadWindow     int // bytes requested per read
	MaxRecordChars int // largest value accepted before the scanner resynchronises
	ProgressEvery  int // log and report progress every N records; 0 disables

	// OnProgress, when set, is called synchronously every ProgressEvery records.
	OnProgress func(total int)

	// Mode labels logs and metrics, ModeFull or ModeDiff.
	Mode string
}

// DefaultOptions returns the default parser options.
func DefaultOptions() Options {
	return Options{
		ChunkSize:      DefaultChunkSize,
		ReadWindow:     DefaultReadWindow,
		MaxRecordChars: DefaultMaxRecordChars,
		ProgressEvery:  DefaultProgressEvery,
		Mode:           ModeFull,
	}
}

func (o Options) normalize() Options {
	d := DefaultOptions()
	if o.ChunkSize <= 0 {
		o.ChunkSize = d.ChunkSize
	}
	if o.MaxEntries < 0 {
		o.MaxEntries = 0
	}
	if o.ReadWindow <= 0 {
		o.ReadWindow = d.ReadWindow
	}
	if o.MaxRecordChars <= 0 {
		o.MaxRecordChars = d.MaxRecordChars
	}
	if o.ProgressEvery < 0 {
		o.ProgressEvery = 0
	}
	if o.Mode == "" {
		o.Mode = d.Mode
	}
	return o
}

// Handler receives the output of a parse. OnChunk is called in file order
// and must finish its work with the records before returning; the parser
// does not read further until it does. Exactly one of OnComplete or OnError
// is called, unless the parse is cancelled, in which case neither is.
type Handler interface {
	OnChunk(ctx context.Context, records []model.Record, total int) error
	OnComplete(total int)
	OnError(err error, partial int)
}

// Callbacks adapts plain functions to Handler. Nil fields are no-ops.
type Callbacks struct {
	Chunk    func(ctx context.Context, records []model.Record, total int) error
	Complete func(total int)
	Error    func(err error, partial int)
}

var _ Handler = Callbacks{}

func (c Callbacks) OnChunk(ctx context.Context, records []model.Record, total int) error {
	if c.Chunk == nil {
		return nil
	}
	return c.Chunk(ctx, records, total)
}

func (c Callbacks) OnComplete(total int) {
	if c.Complete != nil {
		c.Complete(total)
	}
}

func (c Callbacks) OnError(err error, partial int) {
	if c.Error != nil {
		c.Error(err, partial)
	}
}

// Result summarises one parse.
type Result struct {
	Total          int   `json:"total"`
	Dropped        int   `json:"dropped"`
	SafeguardTrips int   `json:"safeguard_trips"`
	Resyncs        int   `json:"resyncs"`
	Chunks         int   `json:"chunks"`
	BytesRead      int64 `json:"bytes_read"`
	Capped         bool  `json:"capped"`
}

// Parser runs chunked parses. A Parser is safe for concurrent use; each
// Parse call keeps its own scan state.
type Parser struct {
	opts  Options
	limit *record.LimitDate
}

// New returns a parser. limit may be nil, in which case every record with
// a positive timestamp is in the time period.
func New(opts Options, limit *record.LimitDate) *Parser {
	return &Parser{opts: opts.normalize(), limit: limit}
}

// Options returns the effective options.
func (p *Parser) Options() Options { return p.opts }

// ParseFile parses the decompressed film list at path.
func (p *Parser) ParseFile(ctx context.Context, path string, h Handler) (Result, error) {
	return p.Parse(ctx, FileSource(path), h)
}

// Parse scans src and delivers records to h. The returned error is the
// same one passed to OnError, or the context error after cancellation.
func (p *Parser) Parse(ctx context.Context, src Source, h Handler) (Result, error) {
	if h == nil {
		h = Callbacks{}
	}
	logger := log.FromContext(ctx, "filmlist").With().
		Str(log.FieldSource, src.String()).
		Str(log.FieldMode, p.opts.Mode).
		Logger()

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	var w *window
	if b, ok := src.(Buffered); ok {
		w = newBufferedWindow(b.Bytes())
	} else {
		rc, err := src.Open(ctx)
		if err != nil {
			h.OnError(err, 0)
			return Result{}, err
		}
		defer func() { _ = rc.Close() }()
		w = newWindow(rc, p.opts.ReadWindow)
	}

	s := &scanState{
		opts:   p.opts,
		limit:  p.limit,
		w:      w,
		h:      h,
		chunk:  chunker.New[model.Record](chunker.Options{Size: p.opts.ChunkSize}),
		logger: logger,
	}

	start := time.Now()
	err := s.run(ctx)
	s.res.BytesRead = w.read
	res := s.res

	switch {
	case err == nil:
		logger.Info().
			Int(log.FieldTotal, res.Total).
			Int(log.FieldDropped, res.Dropped).
			Int(log.FieldTrips, res.SafeguardTrips).
			Int(log.FieldChunks, res.Chunks).
			Bool("capped", res.Capped).
			Dur("duration", time.Since(start)).
			Msg("film list parsed")
		h.OnComplete(res.Total)
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		logger.Info().Int(log.FieldTotal, res.Total).Msg("film list parse cancelled")
	default:
		logger.Error().Err(err).Int(log.FieldTotal, res.Total).Msg("film list parse failed")
		h.OnError(err, res.Total)
	}
	return res, err
}

type state int

const (
	stateObjectStart state = iota
	stateKey
	stateColon
	stateValue
	stateNext
	stateResync
	stateDone
)

// scanState is the per-parse accumulator. prev carries the last decoded
// record for channel/theme inheritance.
type scanState struct {
	opts   Options
	limit  *record.LimitDate
	w      *window
	h      Handler
	chunk  *chunker.Chunker[model.Record]
	logger zerolog.Logger

	st      state
	key     string
	prev    model.Record
	hasPrev bool

	res Result
}

func (s *scanState) run(ctx context.Context) error {
	for s.st != stateDone {
		if s.st == stateResync {
			if err := s.resync(ctx); err != nil {
				return err
			}
			continue
		}

		s.w.pos = scan.SkipSpace(s.w.buf, s.w.pos)
		if s.w.pending() == 0 {
			if s.w.eof {
				break
			}
			if err := s.more(ctx); err != nil {
				return err
			}
			continue
		}
		if err := s.step(ctx); err != nil {
			return err
		}
	}
	return s.deliver(ctx)
}

func (s *scanState) more(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.w.fill()
}

func (s *scanState) step(ctx context.Context) error {
	b, pos := s.w.buf, s.w.pos
	c := b[pos]

	switch s.st {
	case stateObjectStart:
		switch {
		case c == '{':
			s.w.pos++
			s.st = stateKey
		case c == bom[0] && s.w.pending() < len(bom) && !s.w.eof:
			return s.more(ctx)
		case bytes.HasPrefix(b[pos:], bom):
			s.w.pos += len(bom)
		default:
			s.desync("expected object start")
		}

	case stateKey:
		switch c {
		case '}':
			s.st = stateDone
			return nil
		case ',':
			s.w.pos++
			return nil
		}
		key, next, err := scan.ReadString(b, pos)
		if err != nil {
			return s.incomplete(ctx, err, false)
		}
		s.key, s.w.pos, s.st = key, next, stateColon

	case stateColon:
		if c != ':' {
			s.desync("expected colon")
			return nil
		}
		s.w.pos++
		s.st = stateValue

	case stateValue:
		if s.key == recordKey {
			return s.readRecord(ctx)
		}
		end, err := scan.SkipValue(b, pos)
		if err != nil {
			return s.incomplete(ctx, err, false)
		}
		s.w.pos, s.st = end, stateNext

	case stateNext:
		switch c {
		case ',':
			s.w.pos++
			s.st = stateKey
		case '}':
			s.st = stateDone
		default:
			s.desync("expected comma")
		}
	}
	return nil
}

func (s *scanState) readRecord(ctx context.Context) error {
	b, pos := s.w.buf, s.w.pos

	if b[pos] != '[' {
		end, err := scan.SkipValue(b, pos)
		if err != nil {
			return s.incomplete(ctx, err, true)
		}
		s.w.pos, s.st = end, stateNext
		s.drop("malformed")
		return nil
	}

	end, err := scan.ArrayEnd(b, pos)
	if err != nil {
		return s.incomplete(ctx, err, true)
	}
	s.w.pos, s.st = end, stateNext

	if end-pos > s.opts.MaxRecordChars {
		s.drop("oversized")
		return nil
	}
	fields, err := scan.DecodeStringArray(b[pos:end])
	if err != nil {
		s.drop("malformed")
		return nil
	}

	var prev *model.Record
	if s.hasPrev {
		prev = &s.prev
	}
	rec := record.Decode(fields, prev)
	s.limit.Classify(&rec)
	s.prev, s.hasPrev = rec, true
	return s.emit(ctx, rec)
}

// incomplete handles a value that did not fit the window: refill, trip the
// safeguard once the value outgrows the limit, or at end of input drop an
// unterminated record and look for the next marker after its start.
func (s *scanState) incomplete(ctx context.Context, err error, inRecord bool) error {
	if !errors.Is(err, scan.ErrIncomplete) {
		if inRecord {
			s.drop("malformed")
		}
		s.desync("malformed value")
		return nil
	}
	if s.w.pending() > s.opts.MaxRecordChars {
		s.trip()
		return nil
	}
	if !s.w.eof {
		return s.more(ctx)
	}
	if !inRecord {
		s.st = stateDone
		return nil
	}
	s.drop("truncated")
	s.w.pos++
	s.st = stateResync
	return nil
}

func (s *scanState) emit(ctx context.Context, rec model.Record) error {
	s.res.Total++
	full := s.chunk.Add(rec)

	if every := s.opts.ProgressEvery; every > 0 && s.res.Total%every == 0 {
		s.logger.Info().Int(log.FieldTotal, s.res.Total).Msg("film list progress")
		if s.opts.OnProgress != nil {
			s.opts.OnProgress(s.res.Total)
		}
	}

	if full {
		if err := s.deliver(ctx); err != nil {
			return err
		}
	}
	if s.opts.MaxEntries > 0 && s.res.Total >= s.opts.MaxEntries {
		s.res.Capped = true
		s.st = stateDone
	}
	return nil
}

// deliver hands the buffered chunk to the handler. It is the parser's only
// yield point and checks for cancellation on both sides of the call.
func (s *scanState) deliver(ctx context.Context) error {
	if s.chunk.Len() == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	batch := s.chunk.Take()
	if err := s.h.OnChunk(ctx, batch, s.res.Total); err != nil {
		return fmt.Errorf("deliver chunk: %w", err)
	}
	s.res.Chunks++
	metrics.IncChunkDelivered(s.opts.Mode)
	metrics.AddRecordsParsed(s.opts.Mode, len(batch))
	return ctx.Err()
}

func (s *scanState) drop(reason string) {
	s.res.Dropped++
	metrics.IncRecordDropped(reason)
	s.logger.Debug().Str("reason", reason).Int(log.FieldTotal, s.res.Total).Msg("record dropped")
}

func (s *scanState) trip() {
	s.res.SafeguardTrips++
	metrics.IncSafeguardTrip()
	s.logger.Warn().
		Int("pending", s.w.pending()).
		Int("limit", s.opts.MaxRecordChars).
		Msg("unterminated value exceeds limit, resynchronising")
	s.w.pos++
	s.st = stateResync
}

func (s *scanState) desync(reason string) {
	s.res.Resyncs++
	s.logger.Debug().Str("reason", reason).Msg("resynchronising on record marker")
	s.st = stateResync
}

// resync discards input up to the next literal record marker.
func (s *scanState) resync(ctx context.Context) error {
	marker := []byte(Marker)
	for {
		if idx := bytes.Index(s.w.buf[s.w.pos:], marker); idx >= 0 {
			s.w.pos += idx + len(marker)
			s.key, s.st = recordKey, stateValue
			return nil
		}
		if s.w.eof {
			s.w.pos = len(s.w.buf)
			s.st = stateDone
			return nil
		}
		if keep := len(marker) - 1; s.w.pending() > keep {
			s.w.pos = len(s.w.buf) - keep
		}
		if err := s.more(ctx); err != nil {
			return err
		}
	}
}
