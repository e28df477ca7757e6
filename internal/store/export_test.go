package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/rcliao/filmlist/internal/model"
	"github.com/rcliao/filmlist/internal/record"
)

func TestExportRoundTripAcrossStores(t *testing.T) {
	ctx := context.Background()
	src := newTestStore(t)
	src.InsertBatch(ctx, []model.Record{
		film("ZDF", "heute", "19 Uhr", 400),
		film("ARD", "Tatort", "Folge 1", 100),
	})

	path := filepath.Join(t.TempDir(), "export.json")
	n, err := src.WriteExport(ctx, path, "")
	if err != nil {
		t.Fatalf("write export: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 exported, got %d", n)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer f.Close()
	records, err := ReadExport(f)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}

	dst := newTestStore(t)
	imported, err := dst.Import(ctx, records)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if imported != 2 {
		t.Errorf("expected 2 imported, got %d", imported)
	}

	want, _ := src.ExportAll(ctx, "")
	got, _ := dst.ExportAll(ctx, "")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("stores differ after import (-want +got):\n%s", diff)
	}
	if got[0].Channel != "ARD" {
		t.Errorf("expected export ordered by key, got %q first", got[0].Channel)
	}
}

func TestExportChannelFilter(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	s.InsertBatch(ctx, []model.Record{
		film("ZDF", "heute", "19 Uhr", 400),
		film("ARD", "Tatort", "Folge 1", 100),
	})

	zdf, err := s.ExportAll(ctx, "ZDF")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(zdf) != 1 || zdf[0].Channel != "ZDF" {
		t.Errorf("unexpected export: %+v", zdf)
	}
}

func TestWriteExportEmpty(t *testing.T) {
	s := newTestStore(t)
	path := filepath.Join(t.TempDir(), "empty.json")
	if _, err := s.WriteExport(context.Background(), path, ""); err != nil {
		t.Fatalf("write export: %v", err)
	}
	b, _ := os.ReadFile(path)
	if string(b) != "[]\n" {
		t.Errorf("expected empty array, got %q", b)
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	s.UseLimitDate(record.NewLimitDate(150))
	s.InsertBatch(ctx, []model.Record{
		film("ARD", "Tatort", "Folge 1", 100),
		film("ARD", "Sportschau", "Bundesliga", 200),
		film("ZDF", "heute", "19 Uhr", 300),
	})
	s.AddFavorite(ctx, model.Key{Channel: "ARD", Theme: "Tatort", Title: "Folge 1"})
	run, _ := s.BeginRun(ctx, Run{Mode: "full", Source: "filme.xz"})
	s.FinishRun(ctx, run.ID, RunOK, 3, nil)

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.TotalFilms != 3 || st.InTimePeriod != 2 || st.Favorites != 1 || st.History != 0 {
		t.Errorf("unexpected counts: %+v", st)
	}
	if st.DBPath != s.Path() {
		t.Errorf("expected db path %q, got %q", s.Path(), st.DBPath)
	}
	want := []ChannelStats{
		{Channel: "ARD", Count: 2, Themes: 2},
		{Channel: "ZDF", Count: 1, Themes: 1},
	}
	if diff := cmp.Diff(want, st.Channels); diff != "" {
		t.Errorf("channel stats (-want +got):\n%s", diff)
	}
	if st.LastRun == nil || st.LastRun.ID != run.ID {
		t.Errorf("expected last run %s, got %+v", run.ID, st.LastRun)
	}
}
