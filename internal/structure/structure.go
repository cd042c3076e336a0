package structure

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dgallion1/skillsprint/internal/lesson"
	"github.com/dgallion1/skillsprint/internal/parser"
)

// ErrInvariant marks a produced document that breaks its own slide count
// or numbering. It is a programming error, never a user error.
var ErrInvariant = errors.New("structure invariant violated")

// Structurer turns raw document bytes into a lesson.Document.
type Structurer struct {
	decoder    parser.Decoder
	thresholds Thresholds
}

func New(decoder parser.Decoder, th Thresholds) *Structurer {
	return &Structurer{decoder: decoder, thresholds: th}
}

// Structure decodes data and classifies every page. The result is all or
// nothing: on error or cancellation no document is returned. Formats with
// no structural extraction yield the placeholder document.
func (s *Structurer) Structure(ctx context.Context, filename string, data []byte) (*lesson.Document, error) {
	format, err := parser.Detect(filename, data)
	if err != nil {
		return nil, err
	}
	title := Title(filename)

	src, err := s.decoder.Open(format, data)
	var unsupported *parser.UnsupportedFormatError
	if errors.As(err, &unsupported) {
		return Placeholder(title, format), nil
	}
	if err != nil {
		return nil, err
	}
	return s.FromSource(ctx, title, format, src)
}

// FromSource builds a document from an already opened source.
func (s *Structurer) FromSource(ctx context.Context, title string, format parser.Format, src parser.Source) (*lesson.Document, error) {
	n := src.NumPages()
	doc := &lesson.Document{
		Title:        title,
		Slides:       make([]lesson.Slide, 0, n),
		TotalSlides:  n,
		Extraction:   lesson.ExtractionHeuristic,
		SourceFormat: string(format),
	}

	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		frags, err := src.Page(i)
		if err != nil {
			var de *parser.DecodeError
			if !errors.As(err, &de) {
				err = &parser.DecodeError{Format: format, Err: fmt.Errorf("page %d: %w", i, err)}
			}
			return nil, err
		}
		headings, paragraphs := Classify(frags, s.thresholds)
		doc.Slides = append(doc.Slides, lesson.Slide{
			SlideNumber: i,
			Headings:    headings,
			Paragraphs:  paragraphs,
			RawText:     RawText(frags),
		})
	}

	if err := doc.Check(); err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvariant, title, err)
	}
	return doc, nil
}

// Title strips a recognized extension from filename, matching it
// case-insensitively.
func Title(filename string) string {
	ext := filepath.Ext(filename)
	if parser.IsSupportedExtension(filename) {
		return strings.TrimSuffix(filename, ext)
	}
	return filename
}
