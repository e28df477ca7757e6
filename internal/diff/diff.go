// Package diff merges incremental film lists into the persisted set.
//
// A diff file has the same grammar as a full list. Each decoded record is
// upserted by natural key in file order, so applying the same diff twice
// leaves the store as applying it once. No index of the existing data is
// loaded.
package diff

import (
	"context"
	"fmt"

	"github.com/rcliao/filmlist/internal/filmlist"
	"github.com/rcliao/filmlist/internal/log"
	"github.com/rcliao/filmlist/internal/model"
	"github.com/rcliao/filmlist/internal/record"
	"github.com/rcliao/filmlist/internal/store"
)

// Result summarises one applied diff.
type Result struct {
	filmlist.Result
	Upserted int `json:"upserted"`
}

// Applier streams diff files into an Upserter.
type Applier struct {
	parser *filmlist.Parser
	store  store.Upserter
}

// New returns an Applier. The parser mode is always diff.
func New(opts filmlist.Options, limit *record.LimitDate, u store.Upserter) *Applier {
	opts.Mode = filmlist.ModeDiff
	return &Applier{parser: filmlist.New(opts, limit), store: u}
}

// ApplyFile applies the decompressed diff at path.
func (a *Applier) ApplyFile(ctx context.Context, path string, h filmlist.Handler) (Result, error) {
	return a.Apply(ctx, filmlist.FileSource(path), h)
}

// Apply upserts every record of src and then forwards the chunk to h,
// which may be nil. The chunk, completion and error contract is the
// parser's: an upsert failure aborts the run and reaches h.OnError with
// the number of records parsed so far.
func (a *Applier) Apply(ctx context.Context, src filmlist.Source, h filmlist.Handler) (Result, error) {
	if h == nil {
		h = filmlist.Callbacks{}
	}
	logger := log.FromContext(ctx, "diff")

	var upserted int
	sink := filmlist.Callbacks{
		Chunk: func(ctx context.Context, records []model.Record, total int) error {
			for _, r := range records {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := a.store.Upsert(ctx, r); err != nil {
					return fmt.Errorf("apply %s: %w", r.Key(), err)
				}
				upserted++
			}
			return h.OnChunk(ctx, records, total)
		},
		Complete: h.OnComplete,
		Error:    h.OnError,
	}

	res, err := a.parser.Parse(ctx, src, sink)
	if err == nil {
		logger.Info().Int("upserted", upserted).Str(log.FieldSource, src.String()).Msg("diff applied")
	}
	return Result{Result: res, Upserted: upserted}, err
}
