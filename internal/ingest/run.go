package ingest

import (
	"context"
	"time"

	"github.com/rcliao/filmlist/internal/filmlist"
)

// Outcome is the result of a finished run.
type Outcome struct {
	filmlist.Result
	Upserted  int    `json:"upserted,omitempty"`
	Status    string `json:"status"`
	Transient string `json:"transient,omitempty"`
}

// Run is a handle on one asynchronous ingest.
type Run struct {
	ID      string
	Mode    string
	Source  string
	Started time.Time

	cancel context.CancelFunc
	done   chan struct{}
	out    Outcome
	err    error
}

// Cancel asks the run to stop. Chunks already stored stay stored.
func (r *Run) Cancel() { r.cancel() }

// Done is closed when the run has finished.
func (r *Run) Done() <-chan struct{} { return r.done }

// Wait blocks until the run has finished.
func (r *Run) Wait() (Outcome, error) {
	<-r.done
	return r.out, r.err
}

func (r *Run) finish(out Outcome, err error) {
	r.out, r.err = out, err
	close(r.done)
}
