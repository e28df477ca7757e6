package filmlist

import (
	"errors"
	"fmt"
	"io"
)

const maxEmptyReads = 100

// window is the bounded read buffer. buf[pos:] is unconsumed text; fill
// drops everything before pos and appends at most size new bytes.
type window struct {
	r    io.Reader
	buf  []byte
	pos  int
	size int
	eof  bool
	read int64
}

func newWindow(r io.Reader, size int) *window {
	return &window{r: r, size: size, buf: make([]byte, 0, size)}
}

func newBufferedWindow(data []byte) *window {
	return &window{buf: data, eof: true, read: int64(len(data))}
}

// pending returns the number of unconsumed bytes.
func (w *window) pending() int { return len(w.buf) - w.pos }

// fill compacts the window and reads more input.
func (w *window) fill() error {
	if w.eof {
		return io.EOF
	}

	rest := w.pending()
	if w.pos > 0 {
		copy(w.buf, w.buf[w.pos:])
		w.buf = w.buf[:rest]
		w.pos = 0
	}
	if cap(w.buf)-rest < w.size {
		grown := make([]byte, rest, rest+w.size)
		copy(grown, w.buf)
		w.buf = grown
	}

	for empty := 0; ; empty++ {
		if empty >= maxEmptyReads {
			return fmt.Errorf("read film list: %w", io.ErrNoProgress)
		}
		n, err := w.r.Read(w.buf[rest : rest+w.size])
		w.buf = w.buf[:rest+n]
		w.read += int64(n)
		if errors.Is(err, io.EOF) {
			w.eof = true
			return nil
		}
		if err != nil {
			return fmt.Errorf("read film list: %w", err)
		}
		if n > 0 {
			return nil
		}
	}
}
