package generate

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
	"time"

	"github.com/dgallion1/skillsprint/internal/lesson"
)

// Generator produces study artifacts for a structured document. A call
// is one request to the backing collaborator; callers decide on retries.
type Generator interface {
	Flashcards(ctx context.Context, doc *lesson.Document) ([]lesson.Flashcard, error)
	Quiz(ctx context.Context, doc *lesson.Document) ([]lesson.QuizQuestion, error)
}

// Limits cap how many items a backend returns.
type Limits struct {
	MaxFlashcards int
	MaxQuestions  int
}

func DefaultLimits() Limits {
	return Limits{MaxFlashcards: 10, MaxQuestions: 5}
}

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *RetryableError
	return errors.As(err, &retryErr)
}

// retryableStatus reports whether an HTTP status is transient.
func retryableStatus(code int) bool {
	return code == 429 || code >= 500
}

const MaxRetries = 3

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var codeBlockRe = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

func stripCodeBlock(s string) string {
	s = strings.TrimSpace(s)
	if m := codeBlockRe.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// cleanFlashcards sanitizes text fields, drops empty cards and applies limit.
func cleanFlashcards(cards []lesson.Flashcard, limit int) []lesson.Flashcard {
	out := make([]lesson.Flashcard, 0, len(cards))
	for _, c := range cards {
		c.Front = Sanitize(c.Front)
		c.Back = Sanitize(c.Back)
		c.Category = Sanitize(c.Category)
		if c.Front == "" || c.Back == "" {
			continue
		}
		out = append(out, c)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// cleanQuestions sanitizes text fields, drops questions that fail
// validation and applies limit.
func cleanQuestions(qs []lesson.QuizQuestion, limit int) []lesson.QuizQuestion {
	out := make([]lesson.QuizQuestion, 0, len(qs))
	for _, q := range qs {
		q.Question = Sanitize(q.Question)
		q.Correct = Sanitize(q.Correct)
		q.Explanation = Sanitize(q.Explanation)
		opts := make([]string, len(q.Options))
		for i, o := range q.Options {
			opts[i] = Sanitize(o)
		}
		q.Options = opts
		if q.Validate() != nil {
			continue
		}
		out = append(out, q)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
