// Package chunker accumulates streamed items into bounded batches.
package chunker

const (
	DefaultSize = 5000
	MinSize     = 1
	MaxSize     = 1_000_000
)

// Options configures chunking behavior.
type Options struct {
	Size int
}

// DefaultOptions returns default chunking options.
func DefaultOptions() Options {
	return Options{Size: DefaultSize}
}

// normalize clamps the size into [MinSize, MaxSize].
func (o Options) normalize() Options {
	switch {
	case o.Size == 0:
		o.Size = DefaultSize
	case o.Size < MinSize:
		o.Size = MinSize
	case o.Size > MaxSize:
		o.Size = MaxSize
	}
	return o
}

// Chunker holds at most Size items. Take hands the current batch to the
// caller and starts a fresh one, so the chunker never keeps a reference to
// a batch it has released.
type Chunker[T any] struct {
	size  int
	items []T
}

// New returns an empty chunker.
func New[T any](opts Options) *Chunker[T] {
	opts = opts.normalize()
	return &Chunker[T]{size: opts.Size, items: make([]T, 0, opts.Size)}
}

// Add appends v and reports whether the batch is now full.
func (c *Chunker[T]) Add(v T) bool {
	c.items = append(c.items, v)
	return len(c.items) >= c.size
}

// Len returns the number of buffered items.
func (c *Chunker[T]) Len() int { return len(c.items) }

// Size returns the batch capacity.
func (c *Chunker[T]) Size() int { return c.size }

// Take returns the buffered batch, or nil when empty.
func (c *Chunker[T]) Take() []T {
	if len(c.items) == 0 {
		return nil
	}
	batch := c.items
	c.items = make([]T, 0, c.size)
	return batch
}

// Reset drops the buffered items.
func (c *Chunker[T]) Reset() {
	c.items = make([]T, 0, c.size)
}
