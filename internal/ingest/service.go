// Package ingest runs film-list imports as cancellable units of work.
//
// A Service owns the load state machine NotLoaded → Loading → Loaded or
// Failed. It decompresses the input to a transient file, streams it into
// the store (full reload or diff), reports progress, records the run and
// deletes the transient file once the import succeeded. Only one run is
// active at a time.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/rcliao/filmlist/internal/decompress"
	"github.com/rcliao/filmlist/internal/diff"
	"github.com/rcliao/filmlist/internal/filmlist"
	"github.com/rcliao/filmlist/internal/log"
	"github.com/rcliao/filmlist/internal/metrics"
	"github.com/rcliao/filmlist/internal/model"
	"github.com/rcliao/filmlist/internal/record"
	"github.com/rcliao/filmlist/internal/store"
)

// ErrRunActive is returned when a run is started while another is active.
var ErrRunActive = errors.New("ingest run already active")

// Store is the persistence collaborator.
type Store interface {
	store.Sink
	store.Upserter
	Reset(ctx context.Context) error
}

// RunLog records ingest runs. *store.SQLiteStore implements it.
type RunLog interface {
	BeginRun(ctx context.Context, r store.Run) (store.Run, error)
	FinishRun(ctx context.Context, id, status string, records int, runErr error) error
}

// Options configures a Service.
type Options struct {
	Parser filmlist.Options

	// KeepTransient keeps the decompressed file after a successful run.
	KeepTransient bool

	// RunLog is optional.
	RunLog RunLog

	// OnState is called synchronously on every state change.
	OnState func(State)

	// Remove deletes the transient file. Defaults to os.Remove.
	Remove func(path string) error
}

// Service is the orchestration facade.
type Service struct {
	store  Store
	limit  *record.LimitDate
	opts   Options
	logger zerolog.Logger

	mu     sync.Mutex
	state  State
	active *Run
}

// New returns an idle service. limit is shared with the caller; a nil
// limit starts at zero.
func New(st Store, limit *record.LimitDate, opts Options) *Service {
	if limit == nil {
		limit = record.NewLimitDate(0)
	}
	if opts.Remove == nil {
		opts.Remove = os.Remove
	}
	return &Service{
		store:  st,
		limit:  limit,
		opts:   opts,
		logger: log.WithComponent("ingest"),
	}
}

// State returns the current state.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetLimitDate changes the recent threshold for subsequent parses.
// Records already persisted are compared against it at read time.
func (s *Service) SetLimitDate(ts int64) {
	s.limit.Set(ts)
	s.logger.Info().Int64("limit_date", ts).Msg("limit date changed")
}

// LimitDate returns the shared threshold.
func (s *Service) LimitDate() *record.LimitDate { return s.limit }

// Active returns the running run, or nil.
func (s *Service) Active() *Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Cancel stops the active run, if any.
func (s *Service) Cancel() {
	if r := s.Active(); r != nil {
		r.Cancel()
	}
}

// StartFull begins a full reload from path, which may be compressed.
func (s *Service) StartFull(ctx context.Context, path string) (*Run, error) {
	return s.start(ctx, filmlist.ModeFull, path)
}

// StartDiff begins applying the diff at path, which may be compressed.
func (s *Service) StartDiff(ctx context.Context, path string) (*Run, error) {
	return s.start(ctx, filmlist.ModeDiff, path)
}

// ImportFull runs a full reload and waits for it.
func (s *Service) ImportFull(ctx context.Context, path string) (Outcome, error) {
	r, err := s.StartFull(ctx, path)
	if err != nil {
		return Outcome{}, err
	}
	return r.Wait()
}

// ApplyDiff applies a diff and waits for it.
func (s *Service) ApplyDiff(ctx context.Context, path string) (Outcome, error) {
	r, err := s.StartDiff(ctx, path)
	if err != nil {
		return Outcome{}, err
	}
	return r.Wait()
}

func (s *Service) start(ctx context.Context, mode, path string) (*Run, error) {
	s.mu.Lock()
	if s.active != nil {
		s.mu.Unlock()
		return nil, ErrRunActive
	}

	id := ulid.Make().String()
	runCtx, cancel := context.WithCancel(log.ContextWithRunID(ctx, id))
	r := &Run{
		ID:      id,
		Mode:    mode,
		Source:  path,
		Started: time.Now().UTC(),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	s.active = r
	s.mu.Unlock()

	s.setState(State{Status: Loading, RunID: id, Mode: mode})
	go s.run(runCtx, r)
	return r, nil
}

func (s *Service) run(ctx context.Context, r *Run) {
	defer r.cancel()
	logger := log.FromContext(ctx, "ingest").With().
		Str(log.FieldMode, r.Mode).
		Str(log.FieldPath, r.Source).
		Logger()
	logger.Info().Msg("ingest run started")

	s.beginRun(ctx, r, logger)
	out, err := s.execute(ctx, r, logger)

	switch {
	case err == nil:
		out.Status = store.RunOK
		s.removeTransient(out.Transient, logger)
		s.setState(State{Status: Loaded, Progress: out.Total, RunID: r.ID, Mode: r.Mode})
		logger.Info().Int(log.FieldTotal, out.Total).Int(log.FieldDropped, out.Dropped).Msg("ingest run finished")
	case errors.Is(err, context.Canceled):
		out.Status = store.RunCancelled
		s.setState(State{Status: NotLoaded, Progress: out.Total, RunID: r.ID, Mode: r.Mode})
		logger.Info().Int(log.FieldTotal, out.Total).Msg("ingest run cancelled")
	default:
		out.Status = store.RunFailed
		s.setState(State{Status: Failed, Progress: out.Total, RunID: r.ID, Mode: r.Mode, Err: err})
		logger.Error().Err(err).Int(log.FieldTotal, out.Total).Msg("ingest run failed")
	}

	metrics.RecordIngestRun(r.Mode, out.Status, time.Since(r.Started).Seconds())
	s.finishRun(ctx, r, out, err, logger)

	s.mu.Lock()
	s.active = nil
	s.mu.Unlock()

	r.finish(out, err)
}

// execute decompresses the input when needed and streams it into the store.
func (s *Service) execute(ctx context.Context, r *Run, logger zerolog.Logger) (Outcome, error) {
	var out Outcome

	input, transient, err := s.prepare(ctx, r.Source)
	if err != nil {
		return out, err
	}
	out.Transient = transient

	opts := s.opts.Parser
	opts.Mode = r.Mode
	userProgress := opts.OnProgress
	opts.OnProgress = func(total int) {
		s.progress(r, total)
		if userProgress != nil {
			userProgress(total)
		}
	}

	h := filmlist.Callbacks{
		Chunk: func(ctx context.Context, records []model.Record, total int) error {
			s.progress(r, total)
			return nil
		},
	}

	switch r.Mode {
	case filmlist.ModeDiff:
		res, err := diff.New(opts, s.limit, s.store).ApplyFile(ctx, input, h)
		out.Result, out.Upserted = res.Result, res.Upserted
		return out, err
	default:
		if err := s.store.Reset(ctx); err != nil {
			return out, fmt.Errorf("reset store: %w", err)
		}
		h.Chunk = func(ctx context.Context, records []model.Record, total int) error {
			if err := s.store.InsertBatch(ctx, records); err != nil {
				return err
			}
			s.progress(r, total)
			return nil
		}
		res, err := filmlist.New(opts, s.limit).ParseFile(ctx, input, h)
		out.Result = res
		return out, err
	}
}

// prepare returns the path to parse and, for compressed input, the
// transient file that was written.
func (s *Service) prepare(ctx context.Context, path string) (string, string, error) {
	format, err := decompress.Detect(path)
	if err != nil {
		return "", "", err
	}
	if format == decompress.FormatNone {
		return path, "", nil
	}
	dst := decompress.TransientPath(path)
	if _, err := decompress.ToFile(ctx, path, dst); err != nil {
		return "", "", err
	}
	return dst, dst, nil
}

func (s *Service) removeTransient(path string, logger zerolog.Logger) {
	if path == "" || s.opts.KeepTransient {
		return
	}
	if err := s.opts.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		metrics.IncTransientDeleteError()
		logger.Warn().Err(err).Str(log.FieldPath, path).Msg("delete transient film list")
	}
}

// progress advances the Loading counter. It never moves backwards.
func (s *Service) progress(r *Run, total int) {
	s.mu.Lock()
	if s.active != r || s.state.Status != Loading || total <= s.state.Progress {
		s.mu.Unlock()
		return
	}
	s.state.Progress = total
	st := s.state
	s.mu.Unlock()

	metrics.SetIngestProgress(total)
	if s.opts.OnState != nil {
		s.opts.OnState(st)
	}
}

func (s *Service) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()

	if st.Status == Loading {
		metrics.SetIngestProgress(st.Progress)
	}
	if s.opts.OnState != nil {
		s.opts.OnState(st)
	}
}

func (s *Service) beginRun(ctx context.Context, r *Run, logger zerolog.Logger) {
	if s.opts.RunLog == nil {
		return
	}
	_, err := s.opts.RunLog.BeginRun(context.WithoutCancel(ctx), store.Run{
		ID:        r.ID,
		Mode:      r.Mode,
		Source:    r.Source,
		StartedAt: r.Started,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("record run start")
	}
}

func (s *Service) finishRun(ctx context.Context, r *Run, out Outcome, runErr error, logger zerolog.Logger) {
	if s.opts.RunLog == nil {
		return
	}
	if out.Status == store.RunCancelled {
		runErr = nil
	}
	if err := s.opts.RunLog.FinishRun(context.WithoutCancel(ctx), r.ID, out.Status, out.Total, runErr); err != nil {
		logger.Warn().Err(err).Msg("record run outcome")
	}
}
