package filmlist

import (
	"context"

	"github.com/rcliao/filmlist/internal/model"
)

// EventKind tags an Event.
type EventKind int

const (
	EventChunk EventKind = iota
	EventCompleted
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventChunk:
		return "chunk"
	case EventCompleted:
		return "completed"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is one item of a parse stream. Records is set for EventChunk and
// Err for EventFailed; Total is the running record count.
type Event struct {
	Kind    EventKind
	Records []model.Record
	Total   int
	Err     error
}

// Stream runs Parse in a goroutine and returns its output as events on an
// unbuffered channel, so the parser advances only as fast as the consumer
// receives. The channel is closed after the terminal event, or without one
// when ctx is cancelled. Consumers must drain the channel or cancel ctx.
func (p *Parser) Stream(ctx context.Context, src Source) <-chan Event {
	out := make(chan Event)

	send := func(ev Event) error {
		select {
		case out <- ev:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	h := Callbacks{
		Chunk: func(ctx context.Context, records []model.Record, total int) error {
			return send(Event{Kind: EventChunk, Records: records, Total: total})
		},
		Complete: func(total int) {
			_ = send(Event{Kind: EventCompleted, Total: total})
		},
		Error: func(err error, partial int) {
			_ = send(Event{Kind: EventFailed, Total: partial, Err: err})
		},
	}

	go func() {
		defer close(out)
		_, _ = p.Parse(ctx, src, h)
	}()
	return out
}
