package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/skillsprint/internal/lesson"
)

// Completer sends one system+user prompt to a chat model and returns the
// reply text.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
	Model() string
}

// LLMGenerator builds artifacts by prompting a chat model for JSON.
// Transient provider failures are retried with backoff inside one call.
// These retries belong to the backend: the review coordinator still issues
// one request per ensure and never retries on its own.
type LLMGenerator struct {
	llm     Completer
	limits  Limits
	Stats   *LLMStats
	log     *slog.Logger
	backoff func(attempt int) time.Duration
}

func NewLLMGenerator(llm Completer, limits Limits, stats *LLMStats, log *slog.Logger) *LLMGenerator {
	return &LLMGenerator{
		llm:     llm,
		limits:  limits,
		Stats:   stats,
		log:     log,
		backoff: Backoff,
	}
}

// Model returns the model name of the underlying completer.
func (g *LLMGenerator) Model() string { return g.llm.Model() }

func (g *LLMGenerator) Flashcards(ctx context.Context, doc *lesson.Document) ([]lesson.Flashcard, error) {
	text, err := g.complete(ctx, flashcardPrompt(g.limits.MaxFlashcards), documentPrompt(doc))
	if err != nil {
		return nil, fmt.Errorf("generate flashcards: %w", err)
	}
	var cards []lesson.Flashcard
	if err := json.Unmarshal([]byte(stripCodeBlock(text)), &cards); err != nil {
		return nil, fmt.Errorf("parse flashcards json: %w (raw: %s)", err, truncate(text, 200))
	}
	return cleanFlashcards(cards, g.limits.MaxFlashcards), nil
}

func (g *LLMGenerator) Quiz(ctx context.Context, doc *lesson.Document) ([]lesson.QuizQuestion, error) {
	text, err := g.complete(ctx, quizPrompt(g.limits.MaxQuestions), documentPrompt(doc))
	if err != nil {
		return nil, fmt.Errorf("generate quiz: %w", err)
	}
	var qs []lesson.QuizQuestion
	if err := json.Unmarshal([]byte(stripCodeBlock(text)), &qs); err != nil {
		return nil, fmt.Errorf("parse quiz json: %w (raw: %s)", err, truncate(text, 200))
	}
	return cleanQuestions(qs, g.limits.MaxQuestions), nil
}

func (g *LLMGenerator) complete(ctx context.Context, system, user string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if attempt > 0 {
			wait := g.backoff(attempt - 1)
			g.log.Warn("retrying llm call", "model", g.llm.Model(), "attempt", attempt, "wait", wait, "error", lastErr)
			if err := sleepCtx(ctx, wait); err != nil {
				return "", err
			}
		}

		start := time.Now()
		text, err := g.llm.Complete(ctx, system, user)
		if g.Stats != nil {
			g.Stats.Record(time.Since(start).Milliseconds())
		}
		if err == nil {
			return text, nil
		}
		if !IsRetryable(err) {
			return "", err
		}
		lastErr = err
	}
	return "", fmt.Errorf("after %d retries: %w", MaxRetries, lastErr)
}
