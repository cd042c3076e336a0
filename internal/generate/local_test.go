package generate

import (
	"context"
	"strings"
	"testing"

	"github.com/dgallion1/skillsprint/internal/lesson"
)

func studyDoc() *lesson.Document {
	return &lesson.Document{
		Title:       "Biology",
		TotalSlides: 3,
		Slides: []lesson.Slide{
			{
				SlideNumber: 1,
				Headings:    []string{"Photosynthesis"},
				Paragraphs:  []string{"Plants convert sunlight into chemical energy stored in glucose molecules."},
			},
			{SlideNumber: 2, Headings: []string{"Only a heading"}, Paragraphs: []string{}},
			{
				SlideNumber: 3,
				Headings:    []string{"Respiration"},
				Paragraphs: []string{
					"Cells break glucose down to release energy for work. This happens in the mitochondria of every living cell, and it produces carbon dioxide and water as byproducts of the reaction.",
				},
			},
		},
	}
}

func TestLocalFlashcards(t *testing.T) {
	g := NewLocalGenerator(DefaultLimits())
	cards, err := g.Flashcards(context.Background(), studyDoc())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cards) != 2 {
		t.Fatalf("expected 2 flashcards, got %d: %+v", len(cards), cards)
	}
	if cards[0].Front != "Photosynthesis" || cards[0].Category != "main" {
		t.Errorf("unexpected first card %+v", cards[0])
	}
	if cards[1].Back != "Cells break glucose down to release energy for work" {
		t.Errorf("expected first sentence as back, got %q", cards[1].Back)
	}
}

func TestLocalFlashcards_LongSentenceTruncated(t *testing.T) {
	long := strings.Repeat("word ", 60)
	doc := &lesson.Document{Slides: []lesson.Slide{{SlideNumber: 1, Headings: []string{"H"}, Paragraphs: []string{long}}}}
	cards, _ := NewLocalGenerator(DefaultLimits()).Flashcards(context.Background(), doc)
	if len(cards) != 1 {
		t.Fatalf("expected 1 card, got %d", len(cards))
	}
	if !strings.HasSuffix(cards[0].Back, "...") {
		t.Errorf("expected truncated back, got %q", cards[0].Back)
	}
}

func TestLocalFlashcards_Fallback(t *testing.T) {
	cards, err := NewLocalGenerator(DefaultLimits()).Flashcards(context.Background(), &lesson.Document{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cards) != 2 || cards[0].Front != "What is micro-learning?" {
		t.Errorf("expected fallback deck, got %+v", cards)
	}
}

func TestLocalFlashcards_Limit(t *testing.T) {
	doc := &lesson.Document{}
	for i := 1; i <= 15; i++ {
		doc.Slides = append(doc.Slides, lesson.Slide{SlideNumber: i, Headings: []string{"H"}, Paragraphs: []string{"Some body."}})
	}
	cards, _ := NewLocalGenerator(Limits{MaxFlashcards: 10, MaxQuestions: 5}).Flashcards(context.Background(), doc)
	if len(cards) != 10 {
		t.Errorf("expected 10 flashcards, got %d", len(cards))
	}
}

func TestLocalQuiz(t *testing.T) {
	g := NewLocalGenerator(DefaultLimits())
	qs, err := g.Quiz(context.Background(), studyDoc())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(qs) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(qs))
	}
	for _, q := range qs {
		if err := q.Validate(); err != nil {
			t.Errorf("invalid question %+v: %v", q, err)
		}
		if len(q.Options) != 4 {
			t.Errorf("expected 4 options, got %d", len(q.Options))
		}
	}
	if qs[0].Correct != "molecules" {
		t.Errorf("expected longest keyword %q, got %q", "molecules", qs[0].Correct)
	}
	if qs[0].Question != "What is the main purpose of molecules?" {
		t.Errorf("unexpected question %q", qs[0].Question)
	}

	again, _ := g.Quiz(context.Background(), studyDoc())
	for i := range qs {
		if strings.Join(qs[i].Options, "|") != strings.Join(again[i].Options, "|") {
			t.Errorf("question %d options not deterministic", i)
		}
	}
}

func TestLocalQuiz_Fallback(t *testing.T) {
	doc := &lesson.Document{Slides: []lesson.Slide{{SlideNumber: 1, Headings: []string{"Tiny"}, Paragraphs: []string{"too short"}}}}
	qs, _ := NewLocalGenerator(DefaultLimits()).Quiz(context.Background(), doc)
	if len(qs) != 2 || qs[0].Correct != "Learning and education" {
		t.Errorf("expected fallback questions, got %+v", qs)
	}
}

func TestKeywords(t *testing.T) {
	got := keywords("The mitochondria is the powerhouse of the cell and the cell needs energy")
	want := []string{"mitochondria", "powerhouse", "energy", "needs", "cell"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, got)
	}
}
