package filmlist_test

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/filmlist/internal/filmlist"
	"github.com/rcliao/filmlist/internal/filmlist/filmlisttest"
	"github.com/rcliao/filmlist/internal/model"
	"github.com/rcliao/filmlist/internal/record"
)

// collector is an instrumented handler.
type collector struct {
	chunks    [][]model.Record
	totals    []int
	completed int
	completes int
	errs      []error
	partial   int
	maxChunk  int
}

func (c *collector) OnChunk(ctx context.Context, records []model.Record, total int) error {
	c.chunks = append(c.chunks, records)
	c.totals = append(c.totals, total)
	if len(records) > c.maxChunk {
		c.maxChunk = len(records)
	}
	return nil
}

func (c *collector) OnComplete(total int) {
	c.completed = total
	c.completes++
}

func (c *collector) OnError(err error, partial int) {
	c.errs = append(c.errs, err)
	c.partial = partial
}

func (c *collector) records() []model.Record {
	var out []model.Record
	for _, ch := range c.chunks {
		out = append(out, ch...)
	}
	return out
}

func streamed(content string) filmlist.Source {
	return filmlist.ReaderSource{
		Name: "one-byte",
		OpenFn: func(ctx context.Context) (io.ReadCloser, error) {
			return io.NopCloser(iotest.OneByteReader(strings.NewReader(content))), nil
		},
	}
}

func parse(t *testing.T, opts filmlist.Options, src filmlist.Source) (*collector, filmlist.Result) {
	t.Helper()
	c := &collector{}
	res, err := filmlist.New(opts, nil).Parse(context.Background(), src, c)
	require.NoError(t, err)
	require.Empty(t, c.errs)
	require.Equal(t, 1, c.completes)
	return c, res
}

func TestParseDecodesRecordsInOrder(t *testing.T) {
	content := filmlisttest.Films(
		filmlisttest.Film("ARD", "News", "T1", 100),
		filmlisttest.Film("", "", "T2", 200),
		filmlisttest.Film("ZDF", "", "T3", 300),
	)

	c, res := parse(t, filmlist.DefaultOptions(), filmlist.MemorySource(content))

	recs := c.records()
	require.Len(t, recs, 3)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 3, c.completed)

	assert.Equal(t, model.Key{Channel: "ARD", Theme: "News", Title: "T1"}, recs[0].Key())
	assert.Equal(t, model.Key{Channel: "ARD", Theme: "News", Title: "T2"}, recs[1].Key())
	assert.Equal(t, model.Key{Channel: "ZDF", Theme: "News", Title: "T3"}, recs[2].Key())
	assert.Equal(t, int64(200), recs[1].Timestamp)
	assert.Equal(t, "https://media.example/small.mp4", recs[0].SmallURLResolved())
}

func TestParseChunkBound(t *testing.T) {
	content := filmlisttest.Films(filmlisttest.Numbered("ARD", "Tatort", 10, 1)...)

	for _, src := range []filmlist.Source{filmlist.MemorySource(content), streamed(content)} {
		t.Run(src.String(), func(t *testing.T) {
			opts := filmlist.DefaultOptions()
			opts.ChunkSize = 3
			opts.ReadWindow = 16

			c, res := parse(t, opts, src)

			assert.LessOrEqual(t, c.maxChunk, 3)
			assert.Equal(t, []int{3, 6, 9, 10}, c.totals)
			assert.Equal(t, 4, res.Chunks)
			assert.Equal(t, 10, c.completed)
			assert.Len(t, c.records(), 10)
		})
	}
}

func TestParseInheritanceAcrossChunks(t *testing.T) {
	content := filmlisttest.Films(filmlisttest.Numbered("ARD", "Tatort", 5, 1)...)
	opts := filmlist.DefaultOptions()
	opts.ChunkSize = 2

	c, _ := parse(t, opts, streamed(content))
	for _, r := range c.records() {
		assert.Equal(t, "ARD", r.Channel)
		assert.Equal(t, "Tatort", r.Theme)
	}
}

func TestParseMaxEntries(t *testing.T) {
	content := filmlisttest.Films(filmlisttest.Numbered("ARD", "Tatort", 10, 1)...)
	opts := filmlist.DefaultOptions()
	opts.ChunkSize = 3
	opts.MaxEntries = 4

	c, res := parse(t, opts, streamed(content))

	assert.Equal(t, 4, c.completed)
	assert.Len(t, c.records(), 4)
	assert.True(t, res.Capped)
	assert.Less(t, res.BytesRead, int64(len(content)), "remainder must not be consumed")
}

func TestParseDropsMalformedRecord(t *testing.T) {
	tests := []struct {
		name string
		bad  string
	}{
		{"number element", `["ARD","Tatort",42,"01.01.2024"]`},
		{"unterminated string", `["ARD","Tatort","kaputt]`},
		{"unclosed array", `["ARD","Tatort","kaputt"`},
	}
	for _, tt := range tests {
		films := filmlisttest.Numbered("ARD", "Tatort", 10, 1)
		arrays := make([]string, 0, 10)
		for i, f := range films {
			if i == 4 {
				arrays = append(arrays, tt.bad)
				continue
			}
			arrays = append(arrays, filmlisttest.Array(f))
		}
		content := filmlisttest.List(arrays...)

		for _, src := range []filmlist.Source{filmlist.MemorySource(content), streamed(content)} {
			t.Run(tt.name+"/"+src.String(), func(t *testing.T) {
				c, res := parse(t, filmlist.DefaultOptions(), src)
				assert.Equal(t, 9, c.completed)
				assert.Equal(t, 1, res.Dropped)

				recs := c.records()
				require.Len(t, recs, 9)
				assert.Equal(t, "Folge 10", recs[8].Title)
				assert.Equal(t, "ARD", recs[8].Channel)
			})
		}
	}
}

func TestParseMalformedVariants(t *testing.T) {
	good := filmlisttest.Array(filmlisttest.Film("ARD", "News", "T1", 1))
	tail := filmlisttest.Array(filmlisttest.Film("", "", "T2", 2))

	tests := []struct {
		name string
		bad  string
	}{
		{"number element", `["a",1]`},
		{"missing comma", `["a" "b"]`},
		{"not an array", `"oops"`},
		{"object", `{"a":["b"]}`},
		{"nested array", `["a",["b"]]`},
		{"unterminated string", `["a","b]`},
		{"unclosed array", `["a","b"`},
		{"mismatched closer", `["a","b"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := `{"X":` + good + `,"X":` + tt.bad + `,"X":` + tail + `}`
			c, res := parse(t, filmlist.DefaultOptions(), filmlist.MemorySource(content))

			recs := c.records()
			require.Len(t, recs, 2)
			assert.Equal(t, 1, res.Dropped)
			assert.Equal(t, "ARD", recs[1].Channel, "inherits from last good record")
		})
	}
}

func TestParseEscapes(t *testing.T) {
	content := `{"X":["ARD","News","T1","","","","","Er sagt \"Hallo\"\nM\u00e4rchen \/ ü"]}`

	c, _ := parse(t, filmlist.DefaultOptions(), streamed(content))

	recs := c.records()
	require.Len(t, recs, 1)
	assert.Equal(t, "Er sagt \"Hallo\"\nM\u00e4rchen / ü", recs[0].Description)
}

func TestParseSkipsOtherKeys(t *testing.T) {
	content := `{` +
		`"Filmliste":["a","b ] \" [ {"],` +
		`"meta":{"nested":{"X":["not","a","record"]},"list":[1,2,[3]],"s":"\"X\":[\"x\"]"},` +
		`"count":12,"flag":true,"none":null,` +
		`"X":["ARD","News","T1"]` +
		`}`

	for _, src := range []filmlist.Source{filmlist.MemorySource(content), streamed(content)} {
		t.Run(src.String(), func(t *testing.T) {
			c, res := parse(t, filmlist.DefaultOptions(), src)
			recs := c.records()
			require.Len(t, recs, 1)
			assert.Equal(t, "T1", recs[0].Title)
			assert.Zero(t, res.Dropped)
			assert.Zero(t, res.Resyncs)
		})
	}
}

func TestParseWhitespaceAndBOM(t *testing.T) {
	content := "\xEF\xBB\xBF{\n  \"Filmliste\" : [ \"x\" ] ,\n  \"X\" : [ \"ARD\" , \"News\" , \"T1\" ] ,\n  \"X\" :\n[\"\",\"\",\"T2\"]\n}\n"

	c, _ := parse(t, filmlist.DefaultOptions(), streamed(content))
	recs := c.records()
	require.Len(t, recs, 2)
	assert.Equal(t, "News", recs[1].Theme)
}

func TestParseSafeguardResynchronises(t *testing.T) {
	good := filmlisttest.Array(filmlisttest.Film("ARD", "News", "T1", 1))
	content := `{"X":` + good +
		`,"X":["ZDF","Doku","unterminated ` + strings.Repeat("a", 500) +
		`,"X":["ZDF","Doku","T3"]}`

	for _, src := range []filmlist.Source{filmlist.MemorySource(content), streamed(content)} {
		t.Run(src.String(), func(t *testing.T) {
			opts := filmlist.DefaultOptions()
			opts.MaxRecordChars = 400
			opts.ReadWindow = 64

			c, res := parse(t, opts, src)

			recs := c.records()
			require.Len(t, recs, 2)
			assert.Equal(t, "T1", recs[0].Title)
			assert.Equal(t, "T3", recs[1].Title)
			assert.Equal(t, 1, res.SafeguardTrips)
		})
	}
}

func TestParseOversizedRecordDropped(t *testing.T) {
	big := filmlisttest.Film("ARD", "News", "Big", 1)
	big[record.FieldDescription] = strings.Repeat("x", 600)
	content := filmlisttest.Films(big, filmlisttest.Film("", "", "Small", 2))

	opts := filmlist.DefaultOptions()
	opts.MaxRecordChars = 500

	c, res := parse(t, opts, filmlist.MemorySource(content))
	recs := c.records()
	require.Len(t, recs, 1)
	assert.Equal(t, "Small", recs[0].Title)
	assert.Empty(t, recs[0].Channel, "nothing to inherit from")
	assert.Equal(t, 1, res.Dropped)
}

func TestParseGarbagePrefixResyncs(t *testing.T) {
	content := `garbage "X" here "X":["ARD","News","T1"],"X":["","","T2"]}`

	c, res := parse(t, filmlist.DefaultOptions(), streamed(content))
	recs := c.records()
	require.Len(t, recs, 2)
	assert.Equal(t, "ARD", recs[1].Channel)
	assert.Equal(t, 1, res.Resyncs)
}

func TestParseTruncatedInput(t *testing.T) {
	content := `{"X":["ARD","News","T1"],"X":["ARD","News","T2`

	c, res := parse(t, filmlist.DefaultOptions(), streamed(content))
	assert.Len(t, c.records(), 1)
	assert.Equal(t, 1, res.Dropped)
}

func TestParseEmptyInputs(t *testing.T) {
	for _, content := range []string{"", "{}", "   ", `{"Filmliste":["x"]}`} {
		c, res := parse(t, filmlist.DefaultOptions(), filmlist.MemorySource(content))
		assert.Zero(t, res.Total, content)
		assert.Empty(t, c.chunks, content)
		assert.Equal(t, 0, c.completed, content)
	}
}

func TestParseWindowBoundaries(t *testing.T) {
	content := filmlisttest.Films(filmlisttest.Numbered("3Sat", "Kultur \"Zeit\" [1]", 7, 1_700_000_000)...)
	want, _ := parse(t, filmlist.DefaultOptions(), filmlist.MemorySource(content))

	for size := 1; size <= 48; size++ {
		opts := filmlist.DefaultOptions()
		opts.ReadWindow = size
		opts.ChunkSize = 2

		src := filmlist.ReaderSource{
			Name: "window",
			OpenFn: func(ctx context.Context) (io.ReadCloser, error) {
				return io.NopCloser(strings.NewReader(content)), nil
			},
		}
		got, _ := parse(t, opts, src)
		require.Equal(t, want.records(), got.records(), "read window %d", size)
	}
}

func TestParseTimePeriod(t *testing.T) {
	const limit = int64(1_700_000_000)
	content := filmlisttest.Films(
		filmlisttest.Film("ARD", "News", "old", limit),
		filmlisttest.Film("ARD", "News", "new", limit+1),
	)

	c := &collector{}
	_, err := filmlist.New(filmlist.DefaultOptions(), record.NewLimitDate(limit)).
		Parse(context.Background(), filmlist.MemorySource(content), c)
	require.NoError(t, err)

	recs := c.records()
	require.Len(t, recs, 2)
	assert.False(t, recs[0].InTimePeriod)
	assert.True(t, recs[1].InTimePeriod)
}

func TestParseProgress(t *testing.T) {
	content := filmlisttest.Films(filmlisttest.Numbered("ARD", "Tatort", 5, 1)...)

	var seen []int
	opts := filmlist.DefaultOptions()
	opts.ProgressEvery = 2
	opts.OnProgress = func(total int) { seen = append(seen, total) }

	parse(t, opts, filmlist.MemorySource(content))
	assert.Equal(t, []int{2, 4}, seen)
}

func TestParseReadError(t *testing.T) {
	boom := errors.New("disk on fire")
	prefix := `{"X":["ARD","News","T1"],"X":["","","T2"],"X":["","","T3"],"X":["","","T4`

	src := filmlist.ReaderSource{
		Name: "failing",
		OpenFn: func(ctx context.Context) (io.ReadCloser, error) {
			return io.NopCloser(io.MultiReader(strings.NewReader(prefix), iotest.ErrReader(boom))), nil
		},
	}

	opts := filmlist.DefaultOptions()
	opts.ChunkSize = 2

	c := &collector{}
	res, err := filmlist.New(opts, nil).Parse(context.Background(), src, c)

	require.ErrorIs(t, err, boom)
	require.Len(t, c.errs, 1)
	assert.ErrorIs(t, c.errs[0], boom)
	assert.Equal(t, 3, c.partial)
	assert.Equal(t, 3, res.Total)
	assert.Zero(t, c.completes)
	assert.Len(t, c.records(), 2, "delivered chunks are not retracted")
}

func TestParseMissingFile(t *testing.T) {
	c := &collector{}
	_, err := filmlist.New(filmlist.DefaultOptions(), nil).
		ParseFile(context.Background(), "/nonexistent/filmliste.json", c)

	require.ErrorIs(t, err, fs.ErrNotExist)
	require.Len(t, c.errs, 1)
	assert.Zero(t, c.partial)
	assert.Zero(t, c.completes)
}

func TestParseFile(t *testing.T) {
	path := filmlisttest.WriteFile(t, "filmliste.json",
		filmlisttest.Films(filmlisttest.Numbered("ARD", "Tatort", 3, 1)...))

	c := &collector{}
	res, err := filmlist.New(filmlist.DefaultOptions(), nil).ParseFile(context.Background(), path, c)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 3, c.completed)
}

func TestParseSinkError(t *testing.T) {
	content := filmlisttest.Films(filmlisttest.Numbered("ARD", "Tatort", 5, 1)...)
	sinkErr := errors.New("database is locked")

	var gotErr error
	var partial int
	h := filmlist.Callbacks{
		Chunk: func(ctx context.Context, records []model.Record, total int) error {
			return sinkErr
		},
		Complete: func(int) { t.Error("complete must not be called") },
		Error: func(err error, n int) {
			gotErr, partial = err, n
		},
	}

	opts := filmlist.DefaultOptions()
	opts.ChunkSize = 2
	_, err := filmlist.New(opts, nil).Parse(context.Background(), filmlist.MemorySource(content), h)

	require.ErrorIs(t, err, sinkErr)
	assert.ErrorIs(t, gotErr, sinkErr)
	assert.Equal(t, 2, partial)
}

func TestParseCancellation(t *testing.T) {
	content := filmlisttest.Films(filmlisttest.Numbered("ARD", "Tatort", 10, 1)...)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chunks := 0
	h := filmlist.Callbacks{
		Chunk: func(ctx context.Context, records []model.Record, total int) error {
			chunks++
			cancel()
			return nil
		},
		Complete: func(int) { t.Error("complete must not be called after cancel") },
		Error:    func(error, int) { t.Error("error must not be called after cancel") },
	}

	opts := filmlist.DefaultOptions()
	opts.ChunkSize = 2
	res, err := filmlist.New(opts, nil).Parse(ctx, streamed(content), h)

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, chunks)
	assert.Equal(t, 2, res.Total)
}

func TestParseAlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := &collector{}
	_, err := filmlist.New(filmlist.DefaultOptions(), nil).
		Parse(ctx, filmlist.MemorySource(`{"X":["a","b","c"]}`), c)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, c.chunks)
	assert.Zero(t, c.completes)
}
