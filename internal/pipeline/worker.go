package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/skillsprint/internal/lesson"
	"github.com/dgallion1/skillsprint/internal/metrics"
	"github.com/dgallion1/skillsprint/internal/parser"
	"github.com/dgallion1/skillsprint/internal/store"
	"github.com/dgallion1/skillsprint/internal/structure"
)

// Structurer turns uploaded bytes into a document. *structure.Structurer
// satisfies it.
type Structurer interface {
	Structure(ctx context.Context, filename string, data []byte) (*lesson.Document, error)
}

// Worker processes a single structuring job.
type Worker struct {
	structurer Structurer
	lessons    store.Store
	metrics    *metrics.Metrics
	log        *slog.Logger
	newID      func() string
}

func NewWorker(s Structurer, lessons store.Store, m *metrics.Metrics, log *slog.Logger) *Worker {
	return &Worker{
		structurer: s,
		lessons:    lessons,
		metrics:    m,
		log:        log,
		newID:      store.NewID,
	}
}

// Process runs the full structuring pipeline for a job. Nothing is
// written to the store unless the whole document was structured.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)
	data := job.FileData()

	// Phase 1: Dedup on the raw bytes.
	hash := ContentHashHex(data)
	job.SetContentHash(hash)
	existing, found, err := w.lessons.FindByHash(ctx, hash)
	if err != nil {
		log.Warn("dedup check failed, proceeding", "error", err)
	} else if found {
		log.Info("duplicate document, skipping", "lesson_id", existing)
		job.MarkDuplicate(existing)
		return
	}

	// Phase 2: Structure
	job.SetStatus(StatusStructuring, "structuring")
	start := time.Now()
	doc, err := w.structurer.Structure(ctx, job.Filename, data)
	if err != nil {
		reason := FailureReason(err)
		w.metrics.StructureFailed(reason)
		log.Error("structure failed", "reason", reason, "error", err)
		job.Fail("structuring", err)
		return
	}
	w.metrics.ObserveStructure(doc.SourceFormat, string(doc.Extraction), time.Since(start))
	log.Info("document structured", "slides", doc.TotalSlides, "extraction", doc.Extraction,
		"duration_ms", time.Since(start).Milliseconds())

	// Phase 3: Store
	job.SetStatus(StatusStoring, "storing")
	id := w.newID()
	if err := w.lessons.Put(ctx, id, hash, doc); err != nil {
		w.metrics.StructureFailed("store")
		log.Error("store failed", "lesson_id", id, "error", err)
		job.Fail("storing", fmt.Errorf("store lesson: %w", err))
		return
	}

	job.Complete(id, doc.Title, doc.TotalSlides, string(doc.Extraction))
	log.Info("lesson stored", "lesson_id", id)
}

// FailureReason classifies a structuring error for metrics and logs.
func FailureReason(err error) string {
	var de *parser.DecodeError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, parser.ErrUnsupportedFormat):
		return "unsupported"
	case errors.Is(err, structure.ErrInvariant):
		return "invariant"
	case errors.As(err, &de):
		return "decode"
	}
	return "other"
}
