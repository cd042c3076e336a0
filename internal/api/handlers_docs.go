package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/dgallion1/skillsprint/internal/export"
	"github.com/dgallion1/skillsprint/internal/validate"
	"github.com/go-chi/chi/v5"
)

func decodeJSON(r io.Reader, v any) error {
	return json.NewDecoder(r).Decode(v)
}

// handleListLessons lists stored lessons, newest first.
func (s *Server) handleListLessons(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			jsonError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, 500)
	}

	lessons, err := s.Lessons.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, fmt.Errorf("list lessons: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"lessons": lessons})
}

func (s *Server) handleGetLesson(w http.ResponseWriter, r *http.Request) {
	doc, err := s.Lessons.Get(r.Context(), chi.URLParam(r, "lessonID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// handleExportLesson renders a stored lesson as md, html or docx.
func (s *Server) handleExportLesson(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	doc, err := s.Lessons.Get(r.Context(), chi.URLParam(r, "lessonID"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, doc, format); err != nil {
		s.writeError(w, fmt.Errorf("export lesson: %w", err))
		return
	}

	filename := validate.SanitizeFilename(doc.Title) + "." + string(format)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Write(buf.Bytes())
}
