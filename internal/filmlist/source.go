package filmlist

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Source supplies the film-list text. Sources that also implement
// Buffered are scanned in place instead of through the read window.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	String() string
}

// Buffered is implemented by sources whose whole text is already in memory.
type Buffered interface {
	Bytes() []byte
}

// FileSource streams a decompressed film list from disk.
type FileSource string

func (f FileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	path := filepath.Clean(string(f))
	// #nosec G304 -- path is chosen by the operator
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open film list: %w", err)
	}
	return file, nil
}

func (f FileSource) String() string { return string(f) }

// MemorySource is a film list held entirely in memory.
type MemorySource []byte

func (m MemorySource) Open(ctx context.Context) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(m)), nil
}

func (m MemorySource) Bytes() []byte { return m }

func (m MemorySource) String() string { return "memory" }

// ReaderSource adapts an open function, for example a decompressing reader.
type ReaderSource struct {
	Name   string
	OpenFn func(ctx context.Context) (io.ReadCloser, error)
}

func (r ReaderSource) Open(ctx context.Context) (io.ReadCloser, error) {
	return r.OpenFn(ctx)
}

func (r ReaderSource) String() string { return r.Name }
