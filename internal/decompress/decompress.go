// Package decompress turns compressed film lists into plain text files.
//
// Broadcaster lists ship as .xz; .gz and .zst are accepted as well. The
// format is taken from the file extension and, failing that, from the
// magic bytes at the start of the file.
package decompress

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"
	"github.com/ulikunitz/xz"

	"github.com/rcliao/filmlist/internal/log"
)

// Format identifies a compression format.
type Format string

const (
	FormatNone Format = "none"
	FormatXZ   Format = "xz"
	FormatGzip Format = "gzip"
	FormatZstd Format = "zstd"
)

var magic = []struct {
	format Format
	prefix []byte
}{
	{FormatXZ, []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}},
	{FormatGzip, []byte{0x1F, 0x8B}},
	{FormatZstd, []byte{0x28, 0xB5, 0x2F, 0xFD}},
}

// FromExtension returns the format implied by the file name, or FormatNone.
func FromExtension(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xz":
		return FormatXZ
	case ".gz", ".gzip":
		return FormatGzip
	case ".zst", ".zstd":
		return FormatZstd
	default:
		return FormatNone
	}
}

// Sniff returns the format whose magic bytes start head, or FormatNone.
func Sniff(head []byte) Format {
	for _, m := range magic {
		if bytes.HasPrefix(head, m.prefix) {
			return m.format
		}
	}
	return FormatNone
}

// Detect reports the format of the file at path.
func Detect(path string) (Format, error) {
	if f := FromExtension(path); f != FormatNone {
		return f, nil
	}
	// #nosec G304 -- path is chosen by the operator
	file, err := os.Open(path)
	if err != nil {
		return FormatNone, fmt.Errorf("detect format: %w", err)
	}
	defer file.Close()

	head := make([]byte, 6)
	n, err := io.ReadFull(file, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return FormatNone, fmt.Errorf("detect format: %w", err)
	}
	return Sniff(head[:n]), nil
}

// TransientPath is where the decompressed copy of path is written: the
// same name without its compression extension, or with ".json" appended
// when there is none to strip.
func TransientPath(path string) string {
	if FromExtension(path) != FormatNone {
		return strings.TrimSuffix(path, filepath.Ext(path))
	}
	return path + ".json"
}

// NewReader wraps r with the decoder for format.
func NewReader(r io.Reader, format Format) (io.ReadCloser, error) {
	switch format {
	case FormatNone:
		return io.NopCloser(r), nil
	case FormatXZ:
		zr, err := xz.NewReader(bufio.NewReader(r))
		if err != nil {
			return nil, fmt.Errorf("xz: %w", err)
		}
		return io.NopCloser(zr), nil
	case FormatGzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		return zr, nil
	case FormatZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		return zr.IOReadCloser(), nil
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// Open opens path and returns a reader over its decompressed content.
func Open(path string) (io.ReadCloser, error) {
	format, err := Detect(path)
	if err != nil {
		return nil, err
	}
	// #nosec G304 -- path is chosen by the operator
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	zr, err := NewReader(file, format)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	return &readCloser{Reader: zr, closers: []io.Closer{zr, file}}, nil
}

type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (r *readCloser) Close() error {
	var first error
	for _, c := range r.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// ToFile decompresses src into dst and returns the number of bytes
// written. dst only appears once it is complete; a cancelled or failed
// run leaves no partial file behind.
func ToFile(ctx context.Context, src, dst string) (int64, error) {
	logger := log.FromContext(ctx, "decompress")

	in, err := Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	pending, err := renameio.NewPendingFile(dst)
	if err != nil {
		return 0, fmt.Errorf("create pending file: %w", err)
	}
	defer cleanup(pending, logger)

	n, err := io.Copy(pending, &ctxReader{ctx: ctx, r: in})
	if err != nil {
		return n, fmt.Errorf("decompress %s: %w", src, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return n, fmt.Errorf("replace %s: %w", dst, err)
	}

	logger.Debug().Str(log.FieldPath, dst).Int64("bytes", n).Msg("film list decompressed")
	return n, nil
}

func cleanup(p *renameio.PendingFile, logger zerolog.Logger) {
	if err := p.Cleanup(); err != nil {
		logger.Debug().Err(err).Msg("cleanup pending file")
	}
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
