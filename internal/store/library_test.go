package store

import (
	"context"
	"errors"
	"testing"

	"github.com/rcliao/filmlist/internal/model"
)

func TestFavorites(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	k1 := model.Key{Channel: "ARD", Theme: "Tatort", Title: "Folge 1"}
	k2 := model.Key{Channel: "ZDF", Theme: "heute", Title: "19 Uhr"}

	f1, err := s.AddFavorite(ctx, k1)
	if err != nil {
		t.Fatalf("add favorite: %v", err)
	}
	if f1.Key != k1 || f1.AddedAt.IsZero() {
		t.Errorf("unexpected favorite: %+v", f1)
	}
	again, err := s.AddFavorite(ctx, k1)
	if err != nil {
		t.Fatalf("add favorite twice: %v", err)
	}
	if !again.AddedAt.Equal(f1.AddedAt) {
		t.Errorf("expected original added_at to be kept")
	}
	s.AddFavorite(ctx, k2)

	favs, err := s.ListFavorites(ctx)
	if err != nil {
		t.Fatalf("list favorites: %v", err)
	}
	if len(favs) != 2 {
		t.Fatalf("expected 2 favorites, got %d", len(favs))
	}
	if favs[0].Key != k2 {
		t.Errorf("expected most recent favorite first, got %v", favs[0].Key)
	}

	if err := s.RemoveFavorite(ctx, k1); err != nil {
		t.Fatalf("remove favorite: %v", err)
	}
	if err := s.RemoveFavorite(ctx, k1); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	favs, _ = s.ListFavorites(ctx)
	if len(favs) != 1 {
		t.Errorf("expected 1 favorite left, got %d", len(favs))
	}
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	k := model.Key{Channel: "ARD", Theme: "Tatort", Title: "Folge 1"}
	if _, err := s.RecordWatch(ctx, k, 120); err != nil {
		t.Fatalf("record watch: %v", err)
	}
	h, err := s.RecordWatch(ctx, k, 600)
	if err != nil {
		t.Fatalf("record watch again: %v", err)
	}
	if h.Position != 600 {
		t.Errorf("expected position 600, got %d", h.Position)
	}

	entries, err := s.ListHistory(ctx, 0)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Key != k || entries[0].Position != 600 {
		t.Errorf("unexpected entry: %+v", entries[0])
	}

	if err := s.RemoveHistory(ctx, k); err != nil {
		t.Fatalf("remove history: %v", err)
	}
	if err := s.RemoveHistory(ctx, k); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
