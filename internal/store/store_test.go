package store

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/dgallion1/skillsprint/internal/lesson"
)

func sampleDoc(title string) *lesson.Document {
	return &lesson.Document{
		Title:       title,
		TotalSlides: 2,
		Extraction:  lesson.ExtractionHeuristic,
		Slides: []lesson.Slide{
			{SlideNumber: 1, Headings: []string{"Intro"}, Paragraphs: []string{"Body."}, RawText: "Intro Body."},
			{SlideNumber: 2, Headings: []string{}, Paragraphs: []string{}, RawText: ""},
		},
	}
}

func backends(t *testing.T) map[string]Store {
	t.Helper()
	sq, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { sq.Close() })
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sq,
	}
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			doc := sampleDoc("Cells")
			if err := s.Put(ctx, "L1", "hash-1", doc); err != nil {
				t.Fatalf("put: %v", err)
			}
			got, err := s.Get(ctx, "L1")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got.Title != "Cells" || got.TotalSlides != 2 || len(got.Slides) != 2 {
				t.Fatalf("unexpected document %+v", got)
			}
			if got.Slides[0].RawText != "Intro Body." {
				t.Errorf("expected rawText %q, got %q", "Intro Body.", got.Slides[0].RawText)
			}
			if got.Slides[1].Headings == nil || got.Slides[1].Paragraphs == nil {
				t.Error("expected empty slices to survive the round trip")
			}
		})
	}
}

func TestStore_Immutable(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			doc := sampleDoc("Original")
			if err := s.Put(ctx, "L1", "", doc); err != nil {
				t.Fatalf("put: %v", err)
			}
			doc.Slides[0].Headings[0] = "mutated after put"

			err := s.Put(ctx, "L1", "", sampleDoc("Replacement"))
			if !errors.Is(err, ErrExists) {
				t.Fatalf("expected ErrExists, got %v", err)
			}

			got, _ := s.Get(ctx, "L1")
			if got.Title != "Original" || got.Slides[0].Headings[0] != "Intro" {
				t.Errorf("stored document changed: %+v", got)
			}
			got.Slides[0].Headings[0] = "mutated after get"
			again, _ := s.Get(ctx, "L1")
			if again.Slides[0].Headings[0] != "Intro" {
				t.Error("Get returned shared state")
			}
		})
	}
}

func TestStore_NotFound(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(context.Background(), "missing")
			if !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestStore_FindByHash(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := s.FindByHash(ctx, "abc"); err != nil || ok {
				t.Fatalf("expected no match, got ok=%v err=%v", ok, err)
			}
			s.Put(ctx, "L1", "abc", sampleDoc("a"))
			id, ok, err := s.FindByHash(ctx, "abc")
			if err != nil || !ok || id != "L1" {
				t.Fatalf("expected L1, got %q ok=%v err=%v", id, ok, err)
			}
		})
	}
}

func TestStore_List(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s.Put(ctx, "A", "", sampleDoc("first"))
			time.Sleep(2 * time.Millisecond)
			s.Put(ctx, "B", "", sampleDoc("second"))

			all, err := s.List(ctx, 0)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(all) != 2 || all[0].ID != "B" || all[1].ID != "A" {
				t.Fatalf("expected [B A], got %+v", all)
			}
			one, _ := s.List(ctx, 1)
			if len(one) != 1 || one[0].Title != "second" {
				t.Errorf("expected newest only, got %+v", one)
			}
		})
	}
}

func TestNewID_SortableAndUnique(t *testing.T) {
	seen := make(map[string]bool)
	var ids []string
	for i := 0; i < 1000; i++ {
		id := NewID()
		if len(id) != 26 {
			t.Fatalf("expected 26 chars, got %d (%s)", len(id), id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if !sort.StringsAreSorted(ids) {
		t.Error("expected ids in creation order")
	}
}

func TestEncodeID_KnownValue(t *testing.T) {
	var b [16]byte
	if got := encodeID(b); got != "00000000000000000000000000" {
		t.Errorf("unexpected zero encoding %q", got)
	}
	for i := range b {
		b[i] = 0xFF
	}
	if got := encodeID(b); got != "7ZZZZZZZZZZZZZZZZZZZZZZZZZ" {
		t.Errorf("unexpected max encoding %q", got)
	}
}

func TestOpen(t *testing.T) {
	s, err := Open("memory", "")
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	s.Close()

	s, err = Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	s.Close()

	if _, err := Open("redis", ""); err == nil {
		t.Error("expected error for unknown driver")
	}
}
