package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/skillsprint/internal/generate"
	"github.com/dgallion1/skillsprint/internal/lesson"
	"github.com/dgallion1/skillsprint/internal/metrics"
)

// ErrClosed is returned by a Coordinator after Close.
var ErrClosed = errors.New("review coordinator closed")

type key struct {
	docID string
	kind  lesson.Kind
}

// entry is the state machine for one (document, kind) pair.
type entry struct {
	state      lesson.State
	flashcards []lesson.Flashcard
	questions  []lesson.QuizQuestion
	err        string
	attempts   int
	done       chan struct{} // closed when the current request finishes
}

func (e *entry) empty() bool {
	return len(e.flashcards) == 0 && len(e.questions) == 0
}

// Snapshot is the caller-visible state of one artifact kind. Retry is
// set whenever the caller should offer the user a retry action.
type Snapshot struct {
	LessonID   string                `json:"lesson_id"`
	Kind       lesson.Kind           `json:"kind"`
	State      lesson.State          `json:"state"`
	Flashcards []lesson.Flashcard    `json:"flashcards,omitempty"`
	Questions  []lesson.QuizQuestion `json:"questions,omitempty"`
	Retry      bool                  `json:"retry"`
	Message    string                `json:"message,omitempty"`
	Error      string                `json:"error,omitempty"`
	Attempts   int                   `json:"attempts"`
}

// Coordinator generates derived artifacts at most once per document and
// kind, tracking each pair in an explicit state table. Requests run in
// the background; callers observe progress through Snapshot or Wait.
// Kinds never affect each other.
type Coordinator struct {
	gen     generate.Generator
	timeout time.Duration
	log     *slog.Logger
	metrics *metrics.Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	entries map[key]*entry
	closed  bool
}

func NewCoordinator(gen generate.Generator, timeout time.Duration, log *slog.Logger, m *metrics.Metrics) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		gen:     gen,
		timeout: timeout,
		log:     log,
		metrics: m,
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[key]*entry),
	}
}

// EnsureGenerated starts a generation request for (docID, kind) unless
// one is in flight or a non-empty result is already held. Failed and
// empty results are requested again. It never blocks on the generator.
func (c *Coordinator) EnsureGenerated(docID string, doc *lesson.Document, kind lesson.Kind) (Snapshot, error) {
	if _, err := lesson.ParseKind(string(kind)); err != nil {
		return Snapshot{}, err
	}
	if doc == nil {
		return Snapshot{}, fmt.Errorf("ensure %s for %s: nil document", kind, docID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return Snapshot{}, ErrClosed
	}

	k := key{docID: docID, kind: kind}
	e, ok := c.entries[k]
	if !ok {
		e = &entry{state: lesson.StateEmpty}
		c.entries[k] = e
	}

	switch {
	case e.state == lesson.StateInFlight:
		return c.snapshotLocked(k, e), nil
	case e.state == lesson.StateReady && !e.empty():
		return c.snapshotLocked(k, e), nil
	}

	e.state = lesson.StateInFlight
	e.err = ""
	e.attempts++
	e.done = make(chan struct{})
	c.wg.Add(1)
	go c.run(k, e.done, doc)

	c.log.Info("generation started", "lesson_id", docID, "kind", kind, "attempt", e.attempts)
	return c.snapshotLocked(k, e), nil
}

// run issues exactly one generator call and records its outcome.
func (c *Coordinator) run(k key, done chan struct{}, doc *lesson.Document) {
	defer c.wg.Done()

	ctx, cancel := context.WithTimeout(c.ctx, c.timeout)
	defer cancel()

	kind := string(k.kind)
	c.metrics.GenerationStarted(kind)
	start := time.Now()

	var (
		cards []lesson.Flashcard
		qs    []lesson.QuizQuestion
		err   error
	)
	switch k.kind {
	case lesson.KindFlashcards:
		cards, err = c.gen.Flashcards(ctx, doc)
	case lesson.KindQuiz:
		qs, err = c.gen.Quiz(ctx, doc)
		qs = validQuestions(qs)
	}

	outcome := "ready"
	c.mu.Lock()
	e := c.entries[k]
	switch {
	case err != nil:
		outcome = "failed"
		e.state = lesson.StateFailed
		e.err = err.Error()
		e.flashcards, e.questions = nil, nil
	default:
		e.state = lesson.StateReady
		e.flashcards, e.questions = cards, qs
		if e.empty() {
			outcome = "empty"
		}
	}
	close(done)
	c.mu.Unlock()

	elapsed := time.Since(start)
	c.metrics.GenerationFinished(kind, outcome, elapsed)
	log := c.log.With("lesson_id", k.docID, "kind", kind, "duration_ms", elapsed.Milliseconds())
	if err != nil {
		log.Warn("generation failed", "error", err)
	} else {
		log.Info("generation finished", "outcome", outcome, "items", len(cards)+len(qs))
	}
}

func validQuestions(qs []lesson.QuizQuestion) []lesson.QuizQuestion {
	out := qs[:0:0]
	for _, q := range qs {
		if q.Validate() == nil {
			out = append(out, q)
		}
	}
	return out
}

// Snapshot returns the current state of (docID, kind) without starting
// anything. Unknown pairs report StateEmpty.
func (c *Coordinator) Snapshot(docID string, kind lesson.Kind) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := key{docID: docID, kind: kind}
	e, ok := c.entries[k]
	if !ok {
		e = &entry{state: lesson.StateEmpty}
	}
	return c.snapshotLocked(k, e)
}

// Wait blocks until (docID, kind) is not in flight or ctx is done.
func (c *Coordinator) Wait(ctx context.Context, docID string, kind lesson.Kind) (Snapshot, error) {
	k := key{docID: docID, kind: kind}
	c.mu.Lock()
	e, ok := c.entries[k]
	if !ok || e.state != lesson.StateInFlight {
		c.mu.Unlock()
		return c.Snapshot(docID, kind), nil
	}
	done := e.done
	c.mu.Unlock()

	select {
	case <-done:
		return c.Snapshot(docID, kind), nil
	case <-ctx.Done():
		return c.Snapshot(docID, kind), ctx.Err()
	}
}

// Close cancels outstanding requests and waits for them to record their
// outcome. Later calls to EnsureGenerated return ErrClosed.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.cancel()
	c.wg.Wait()
}

func (c *Coordinator) snapshotLocked(k key, e *entry) Snapshot {
	s := Snapshot{
		LessonID: k.docID,
		Kind:     k.kind,
		State:    e.state,
		Error:    e.err,
		Attempts: e.attempts,
	}
	switch e.state {
	case lesson.StateReady:
		s.Flashcards = append([]lesson.Flashcard(nil), e.flashcards...)
		s.Questions = append([]lesson.QuizQuestion(nil), e.questions...)
		if e.empty() {
			s.Retry = true
			s.Message = emptyMessage(k.kind)
		}
	case lesson.StateFailed:
		s.Retry = true
		s.Message = "generation failed, retry"
	}
	return s
}

func emptyMessage(kind lesson.Kind) string {
	if kind == lesson.KindQuiz {
		return "no questions generated, retry"
	}
	return "no flashcards generated, retry"
}
