package review

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/skillsprint/internal/generate"
	"github.com/dgallion1/skillsprint/internal/lesson"
	"github.com/dgallion1/skillsprint/internal/metrics"
	"github.com/google/uuid"
)

// Session is one review of one stored lesson. Its coordinator lives and
// dies with the session.
type Session struct {
	ID        string    `json:"session_id"`
	LessonID  string    `json:"lesson_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	doc       *lesson.Document
	coord     *Coordinator

	mu       sync.Mutex
	lastUsed time.Time
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastUsed = time.Now()
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// Document returns the lesson under review.
func (s *Session) Document() *lesson.Document { return s.doc }

// Ensure starts generation of kind for the session's lesson if needed.
func (s *Session) Ensure(kind lesson.Kind) (Snapshot, error) {
	s.touch()
	return s.coord.EnsureGenerated(s.LessonID, s.doc, kind)
}

func (s *Session) Snapshot(kind lesson.Kind) Snapshot {
	s.touch()
	return s.coord.Snapshot(s.LessonID, kind)
}

func (s *Session) Wait(ctx context.Context, kind lesson.Kind) (Snapshot, error) {
	s.touch()
	return s.coord.Wait(ctx, s.LessonID, kind)
}

// Sessions is a registry of open review sessions with idle expiry.
type Sessions struct {
	gen     generate.Generator
	timeout time.Duration
	ttl     time.Duration
	log     *slog.Logger
	metrics *metrics.Metrics

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewSessions(gen generate.Generator, generationTimeout, ttl time.Duration, log *slog.Logger, m *metrics.Metrics) *Sessions {
	return &Sessions{
		gen:      gen,
		timeout:  generationTimeout,
		ttl:      ttl,
		log:      log,
		metrics:  m,
		sessions: make(map[string]*Session),
	}
}

// Open starts a session for a stored lesson.
func (r *Sessions) Open(lessonID string, doc *lesson.Document) *Session {
	now := time.Now()
	s := &Session{
		ID:        uuid.NewString(),
		LessonID:  lessonID,
		Title:     doc.Title,
		CreatedAt: now,
		doc:       doc,
		coord:     NewCoordinator(r.gen, r.timeout, r.log.With("component", "review"), r.metrics),
		lastUsed:  now,
	}

	r.mu.Lock()
	r.sessions[s.ID] = s
	n := len(r.sessions)
	r.mu.Unlock()

	r.metrics.SetSessions(n)
	r.log.Info("review session opened", "session_id", s.ID, "lesson_id", lessonID)
	return s
}

// Get returns an open session and marks it used.
func (r *Sessions) Get(id string) (*Session, bool) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if ok {
		s.touch()
	}
	return s, ok
}

// End closes a session and discards its generated artifacts.
func (r *Sessions) End(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	n := len(r.sessions)
	r.mu.Unlock()
	if !ok {
		return false
	}
	s.coord.Close()
	r.metrics.SetSessions(n)
	return true
}

// Cleanup ends sessions idle for longer than the TTL.
func (r *Sessions) Cleanup() {
	cutoff := time.Now().Add(-r.ttl)
	var expired []*Session

	r.mu.Lock()
	for id, s := range r.sessions {
		if s.idleSince().Before(cutoff) {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	n := len(r.sessions)
	r.mu.Unlock()

	for _, s := range expired {
		s.coord.Close()
		r.log.Info("review session expired", "session_id", s.ID, "lesson_id", s.LessonID)
	}
	r.metrics.SetSessions(n)
}

// Run expires idle sessions every interval until ctx is done.
func (r *Sessions) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Cleanup()
		}
	}
}

// Close ends every session.
func (r *Sessions) Close() {
	r.mu.Lock()
	all := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range all {
		s.coord.Close()
	}
	r.metrics.SetSessions(0)
}

// Len returns the number of open sessions.
func (r *Sessions) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
