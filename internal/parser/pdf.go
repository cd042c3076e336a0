package parser

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strings"

	"github.com/dgallion1/skillsprint/internal/lesson"
	pdflib "github.com/ledongthuc/pdf"
)

// OpenPDF decodes a PDF with the Go library. Fragment sizes are font sizes
// in text space units.
func OpenPDF(data []byte) (src Source, err error) {
	defer recoverDecode(FormatPDF, &err)

	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &DecodeError{Format: FormatPDF, Err: err}
	}
	return &pdfSource{reader: reader}, nil
}

type pdfSource struct {
	reader *pdflib.Reader
}

func (s *pdfSource) NumPages() int {
	return s.reader.NumPage()
}

func (s *pdfSource) Page(n int) (frags []lesson.Fragment, err error) {
	defer recoverDecode(FormatPDF, &err)

	page := s.reader.Page(n)
	if page.V.IsNull() {
		return nil, nil
	}
	texts := page.Content().Text
	glyphs := make([]glyph, 0, len(texts))
	for _, t := range texts {
		glyphs = append(glyphs, glyph{font: t.Font, size: t.FontSize, x: t.X, y: t.Y, w: t.W, s: t.S})
	}
	return coalesce(glyphs), nil
}

// glyph is one positioned piece of text as emitted by the content stream.
type glyph struct {
	font    string
	size    float64
	x, y, w float64
	s       string
}

// coalesce joins glyphs into fragments. Glyphs on the same baseline with
// the same font and size form one fragment; a gap wider than a quarter em
// becomes a space.
func coalesce(glyphs []glyph) []lesson.Fragment {
	var frags []lesson.Fragment
	var cur strings.Builder
	var prev glyph
	open := false

	flush := func() {
		if open && cur.Len() > 0 {
			frags = append(frags, lesson.Fragment{Text: cur.String(), Size: prev.size})
		}
		cur.Reset()
		open = false
	}

	for _, g := range glyphs {
		if g.s == "" {
			continue
		}
		if open {
			sameRun := g.font == prev.font && g.size == prev.size && math.Abs(g.y-prev.y) <= g.size/2
			if !sameRun {
				flush()
			} else if gap := g.x - (prev.x + prev.w); gap > g.size/4 && !strings.HasSuffix(cur.String(), " ") && g.s != " " {
				cur.WriteByte(' ')
			}
		}
		cur.WriteString(g.s)
		prev = g
		open = true
	}
	flush()
	return frags
}

// openPdftotext extracts text with the poppler binary. It carries no size
// information, so every line becomes a body-sized fragment.
func openPdftotext(data []byte) (Source, error) {
	tmp, err := os.CreateTemp("", "skillsprint-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	out, err := exec.Command("pdftotext", "-layout", tmpPath, "-").Output()
	if err != nil {
		return nil, &DecodeError{Format: FormatPDF, Err: fmt.Errorf("pdftotext: %w", err)}
	}
	return splitPlainPages(string(out)), nil
}

// splitPlainPages splits form-feed separated text into pages of line
// fragments.
func splitPlainPages(text string) Source {
	pages := strings.Split(strings.TrimSuffix(text, "\f"), "\f")
	src := &pageSource{pages: make([][]lesson.Fragment, len(pages))}
	for i, page := range pages {
		for _, line := range strings.Split(page, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			src.pages[i] = append(src.pages[i], lesson.Fragment{Text: line})
		}
	}
	return src
}
