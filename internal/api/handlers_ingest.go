package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/dgallion1/skillsprint/internal/lesson"
	"github.com/dgallion1/skillsprint/internal/pipeline"
	"github.com/dgallion1/skillsprint/internal/validate"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// upload is one validated file from a multipart request.
type upload struct {
	filename string
	data     []byte
}

// readUpload runs the validation gate on fh and reads its bytes. Nothing
// is decoded here.
func (s *Server) readUpload(fh *multipart.FileHeader) (upload, error) {
	filename := validate.SanitizeFilename(fh.Filename)
	limit := validate.Limit(s.cfg.MaxUploadBytes)
	res := validate.CheckLimit(validate.FileInfo{
		Size:      fh.Size,
		MediaType: fh.Header.Get("Content-Type"),
		Filename:  filename,
	}, limit)
	if err := res.Err(); err != nil {
		s.Metrics.Rejected(res.Reason)
		return upload{filename: filename}, err
	}

	f, err := fh.Open()
	if err != nil {
		return upload{filename: filename}, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return upload{filename: filename}, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return upload{filename: filename}, s.tooLarge(limit)
	}
	return upload{filename: filename, data: data}, nil
}

// tooLarge records a size rejection and returns the gate's error for it.
func (s *Server) tooLarge(limit int64) error {
	reason := validate.TooLargeReason(limit)
	s.Metrics.Rejected(reason)
	return &validate.Error{Reason: reason}
}

// parseForm limits the body and parses a multipart form. A body cut off by
// the limit is reported as the gate's size rejection.
func (s *Server) parseForm(w http.ResponseWriter, r *http.Request, limit int64) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			s.writeError(w, s.tooLarge(validate.Limit(s.cfg.MaxUploadBytes)))
			return false
		}
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// handleParse validates and structures one file synchronously and returns
// the document.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r, validate.Limit(s.cfg.MaxUploadBytes)+1024*1024) { // extra 1MB for form overhead
		return
	}
	defer r.MultipartForm.RemoveAll()

	_, fh, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	up, err := s.readUpload(fh)
	if err != nil {
		s.writeError(w, err)
		return
	}

	start := time.Now()
	doc, err := s.Structurer.Structure(r.Context(), up.filename, up.data)
	if err != nil {
		reason := pipeline.FailureReason(err)
		s.Metrics.StructureFailed(reason)
		s.log.Warn("parse failed", "filename", up.filename, "reason", reason, "error", err)
		s.writeError(w, err)
		return
	}
	s.Metrics.ObserveStructure(doc.SourceFormat, string(doc.Extraction), time.Since(start))
	writeJSON(w, http.StatusOK, doc)
}

// handleUpload queues one file for structuring and storage.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r, validate.Limit(s.cfg.MaxUploadBytes)+1024*1024) {
		return
	}
	defer r.MultipartForm.RemoveAll()

	_, fh, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	up, err := s.readUpload(fh)
	if err != nil {
		s.writeError(w, err)
		return
	}

	job := pipeline.NewJob(uuid.NewString(), up.filename, up.data)
	if err := s.Orchestrator.Submit(job); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, submitted(job))
}

func submitted(job *pipeline.Job) map[string]any {
	snap := job.Snapshot()
	return map[string]any{
		"job_id":   snap.ID,
		"filename": snap.Filename,
		"status":   snap.Status,
		"poll_url": fmt.Sprintf("/api/jobs/%s", snap.ID),
	}
}

// handleBatchUpload validates and queues every file under "files". Each
// file succeeds or fails on its own.
func (s *Server) handleBatchUpload(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r, validate.Limit(s.cfg.MaxUploadBytes)*10+10*1024*1024) {
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}

	results := make([]map[string]any, len(files))
	var g errgroup.Group
	g.SetLimit(s.cfg.BatchConcurrency)
	for i, fh := range files {
		g.Go(func() error {
			up, err := s.readUpload(fh)
			if err == nil {
				job := pipeline.NewJob(uuid.NewString(), up.filename, up.data)
				if err = s.Orchestrator.Submit(job); err == nil {
					results[i] = submitted(job)
					return nil
				}
			}
			_, msg := statusFor(err)
			results[i] = map[string]any{"filename": up.filename, "error": msg}
			return nil
		})
	}
	g.Wait()

	writeJSON(w, http.StatusAccepted, map[string]any{"jobs": results})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.Orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

// decodeDocument reads a Document JSON body and checks its invariants.
func (s *Server) decodeDocument(w http.ResponseWriter, r *http.Request) (*lesson.Document, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	var doc lesson.Document
	if err := decodeJSON(r.Body, &doc); err != nil {
		jsonError(w, "invalid document: "+err.Error(), http.StatusBadRequest)
		return nil, false
	}
	doc.Normalize()
	if err := doc.Check(); err != nil {
		jsonError(w, "invalid document: "+err.Error(), http.StatusBadRequest)
		return nil, false
	}
	return &doc, true
}

func (s *Server) handleGenerateFlashcards(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.decodeDocument(w, r)
	if !ok {
		return
	}
	cards, err := s.Generator.Flashcards(r.Context(), doc)
	if err != nil {
		s.log.Warn("flashcard generation failed", "title", doc.Title, "error", err)
		jsonError(w, "generation failed", http.StatusBadGateway)
		return
	}
	if cards == nil {
		cards = []lesson.Flashcard{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"flashcards": cards})
}

func (s *Server) handleGenerateQuiz(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.decodeDocument(w, r)
	if !ok {
		return
	}
	qs, err := s.Generator.Quiz(r.Context(), doc)
	if err != nil {
		s.log.Warn("quiz generation failed", "title", doc.Title, "error", err)
		jsonError(w, "generation failed", http.StatusBadGateway)
		return
	}
	if qs == nil {
		qs = []lesson.QuizQuestion{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"questions": qs})
}
