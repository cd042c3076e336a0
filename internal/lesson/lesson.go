package lesson

import (
	"errors"
	"fmt"
)

// Extraction tells callers whether slides came from the document itself.
type Extraction string

const (
	ExtractionHeuristic Extraction = "heuristic" // Real extraction, size-delta classified.
	ExtractionSimulated Extraction = "simulated" // Fixed placeholder slides.
)

// Document is the structured form of an uploaded lecture file. It is
// immutable once stored.
type Document struct {
	Title        string     `json:"title"`
	Slides       []Slide    `json:"slides"`
	TotalSlides  int        `json:"totalSlides"`
	Extraction   Extraction `json:"extraction"`
	SourceFormat string     `json:"sourceFormat,omitempty"`
}

// Slide is one page or slide of the source document.
type Slide struct {
	SlideNumber int      `json:"slideNumber"` // 1-based
	Headings    []string `json:"headings"`
	Paragraphs  []string `json:"paragraphs"`
	RawText     string   `json:"rawText"`
}

// Fragment is a contiguous piece of page text with a visual size metric.
// Sizes are only comparable within one page.
type Fragment struct {
	Text string
	Size float64
}

// ErrInconsistent is returned by Check for documents that break the
// slide count or numbering invariants.
var ErrInconsistent = errors.New("inconsistent document")

// Check verifies TotalSlides and slide numbering.
func (d *Document) Check() error {
	if d.TotalSlides != len(d.Slides) {
		return fmt.Errorf("%w: totalSlides=%d, slides=%d", ErrInconsistent, d.TotalSlides, len(d.Slides))
	}
	for i, s := range d.Slides {
		if s.SlideNumber != i+1 {
			return fmt.Errorf("%w: slide at position %d numbered %d", ErrInconsistent, i+1, s.SlideNumber)
		}
	}
	return nil
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := *d
	out.Slides = make([]Slide, len(d.Slides))
	for i, s := range d.Slides {
		out.Slides[i] = Slide{
			SlideNumber: s.SlideNumber,
			Headings:    append([]string{}, s.Headings...),
			Paragraphs:  append([]string{}, s.Paragraphs...),
			RawText:     s.RawText,
		}
	}
	return &out
}

// Normalize replaces nil heading/paragraph slices with empty ones so the
// JSON form always carries arrays.
func (d *Document) Normalize() {
	if d.Slides == nil {
		d.Slides = []Slide{}
	}
	for i := range d.Slides {
		if d.Slides[i].Headings == nil {
			d.Slides[i].Headings = []string{}
		}
		if d.Slides[i].Paragraphs == nil {
			d.Slides[i].Paragraphs = []string{}
		}
	}
}
