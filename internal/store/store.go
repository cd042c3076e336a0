package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgallion1/skillsprint/internal/lesson"
)

var (
	// ErrNotFound is returned by Get for an unknown lesson id.
	ErrNotFound = errors.New("lesson not found")
	// ErrExists is returned by Put when the id is already taken. Stored
	// documents are never overwritten.
	ErrExists = errors.New("lesson already exists")
)

// Store persists structured documents under generated lesson ids. A
// document is written once and read back unchanged.
type Store interface {
	Put(ctx context.Context, id, contentHash string, doc *lesson.Document) error
	Get(ctx context.Context, id string) (*lesson.Document, error)
	// FindByHash returns the id of a lesson built from identical bytes.
	FindByHash(ctx context.Context, contentHash string) (string, bool, error)
	List(ctx context.Context, limit int) ([]Summary, error)
	Close() error
}

// Summary describes a stored lesson without its slides.
type Summary struct {
	ID          string            `json:"lesson_id"`
	Title       string            `json:"title"`
	TotalSlides int               `json:"totalSlides"`
	Extraction  lesson.Extraction `json:"extraction"`
	CreatedAt   time.Time         `json:"created_at"`
}

func summarize(id string, doc *lesson.Document, at time.Time) Summary {
	return Summary{
		ID:          id,
		Title:       doc.Title,
		TotalSlides: doc.TotalSlides,
		Extraction:  doc.Extraction,
		CreatedAt:   at,
	}
}

// Open returns the store named by driver: "memory" or "sqlite" at path.
func Open(driver, path string) (Store, error) {
	switch driver {
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		s, err := OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", driver)
}
