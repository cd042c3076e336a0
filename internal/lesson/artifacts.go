package lesson

import (
	"errors"
	"fmt"
)

// Kind is a derived-content type generated from a Document.
type Kind string

const (
	KindFlashcards Kind = "flashcards"
	KindQuiz       Kind = "quiz"
)

// ParseKind accepts the kind names used in URLs and tool arguments.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindFlashcards, KindQuiz:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown artifact kind: %q", s)
}

// State is the generation state of one artifact kind for one document.
type State string

const (
	StateEmpty    State = "empty"
	StateInFlight State = "in_flight"
	StateReady    State = "ready"
	StateFailed   State = "failed"
)

// Flashcard is a two-sided study card.
type Flashcard struct {
	Front    string `json:"front"`
	Back     string `json:"back"`
	Category string `json:"category,omitempty"`
}

// QuizQuestion is a multiple-choice question.
type QuizQuestion struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Correct     string   `json:"correct"`
	Explanation string   `json:"explanation,omitempty"`
}

// Validate checks that the question has at least two unique options and
// that the correct answer is one of them.
func (q QuizQuestion) Validate() error {
	if q.Question == "" {
		return errors.New("empty question")
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("need at least 2 options, got %d", len(q.Options))
	}
	seen := make(map[string]bool, len(q.Options))
	found := false
	for _, o := range q.Options {
		if seen[o] {
			return fmt.Errorf("duplicate option %q", o)
		}
		seen[o] = true
		if o == q.Correct {
			found = true
		}
	}
	if !found {
		return fmt.Errorf("correct answer %q is not an option", q.Correct)
	}
	return nil
}
