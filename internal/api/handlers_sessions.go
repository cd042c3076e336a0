package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/dgallion1/skillsprint/internal/lesson"
	"github.com/dgallion1/skillsprint/internal/review"
	"github.com/go-chi/chi/v5"
)

// handleOpenSession starts a review session for a stored lesson.
func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LessonID string `json:"lesson_id"`
	}
	if err := decodeJSON(http.MaxBytesReader(w, r.Body, 1<<20), &req); err != nil || req.LessonID == "" {
		jsonError(w, "lesson_id is required", http.StatusBadRequest)
		return
	}
	doc, err := s.Lessons.Get(r.Context(), req.LessonID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	sess := s.Sessions.Open(req.LessonID, doc)
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*review.Session, bool) {
	sess, ok := s.Sessions.Get(chi.URLParam(r, "sessionID"))
	if !ok {
		jsonError(w, "session not found", http.StatusNotFound)
	}
	return sess, ok
}

func (s *Server) kind(w http.ResponseWriter, r *http.Request) (lesson.Kind, bool) {
	k, err := lesson.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusNotFound)
		return "", false
	}
	return k, true
}

// handleGetSession returns the session with both artifact states.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session":    sess,
		"flashcards": sess.Snapshot(lesson.KindFlashcards),
		"quiz":       sess.Snapshot(lesson.KindQuiz),
	})
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	if !s.Sessions.End(chi.URLParam(r, "sessionID")) {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleEnsureArtifact starts generation of one artifact kind if needed.
// It answers 202 while a request is in flight.
func (s *Server) handleEnsureArtifact(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	k, ok := s.kind(w, r)
	if !ok {
		return
	}
	snap, err := sess.Ensure(k)
	if err != nil {
		s.writeError(w, err)
		return
	}
	code := http.StatusOK
	if snap.State == lesson.StateInFlight {
		code = http.StatusAccepted
	}
	writeJSON(w, code, snap)
}

// handleArtifactState reports one artifact kind. With ?wait=true it blocks
// until the in-flight request finishes or the generation timeout passes.
func (s *Server) handleArtifactState(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	k, ok := s.kind(w, r)
	if !ok {
		return
	}
	if r.URL.Query().Get("wait") != "true" {
		writeJSON(w, http.StatusOK, sess.Snapshot(k))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.GenerationTimeout)
	defer cancel()
	// Wait only fails when ctx ends; the snapshot is still current then.
	snap, err := sess.Wait(ctx, k)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
