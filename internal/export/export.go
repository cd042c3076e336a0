// Package export renders stored lessons as Markdown, HTML and DOCX.
package export

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/skillsprint/internal/lesson"
	"github.com/fumiama/go-docx"
	"github.com/yuin/goldmark"
)

// Format names an export rendering.
type Format string

const (
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
	FormatDOCX     Format = "docx"
)

// ParseFormat accepts the query-string spellings of an export format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "md", "markdown":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	case "docx":
		return FormatDOCX, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// ContentType returns the MIME type served for f.
func (f Format) ContentType() string {
	switch f {
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	}
	return "text/markdown; charset=utf-8"
}

const placeholderNote = "This lesson is placeholder content. Text could not be extracted from the uploaded file."

// Write renders doc in format f to w.
func Write(w io.Writer, doc *lesson.Document, f Format) error {
	switch f {
	case FormatMarkdown:
		_, err := io.WriteString(w, Markdown(doc))
		return err
	case FormatHTML:
		html, err := HTML(doc)
		if err != nil {
			return err
		}
		_, err = w.Write(html)
		return err
	case FormatDOCX:
		return DOCX(doc, w)
	}
	return fmt.Errorf("unknown export format %q", f)
}

// Markdown renders one section per slide. Headings become level-3
// headings and paragraphs become Markdown paragraphs.
func Markdown(doc *lesson.Document) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", escapeLine(doc.Title))
	if doc.Extraction == lesson.ExtractionSimulated {
		fmt.Fprintf(&sb, "> %s\n\n", placeholderNote)
	}
	for _, s := range doc.Slides {
		fmt.Fprintf(&sb, "## Slide %d\n\n", s.SlideNumber)
		for _, h := range s.Headings {
			fmt.Fprintf(&sb, "### %s\n\n", escapeLine(h))
		}
		for _, p := range s.Paragraphs {
			sb.WriteString(escapeLine(p))
			sb.WriteString("\n\n")
		}
	}
	return sb.String()
}

// escapeLine keeps extracted text from being read as Markdown block syntax.
func escapeLine(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return s
	}
	switch s[0] {
	case '#', '>', '-', '+', '*', '=', '|', '`':
		return `\` + s
	}
	return s
}

// HTML converts the Markdown rendering with goldmark. Raw HTML in
// extracted text is not passed through.
func HTML(doc *lesson.Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(Markdown(doc)), &buf); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	return buf.Bytes(), nil
}

// DOCX writes a Word document with the title, then each slide's headings
// in bold followed by its paragraphs.
func DOCX(doc *lesson.Document, w io.Writer) error {
	d := docx.New().WithDefaultTheme()
	d.AddParagraph().AddText(doc.Title).Size("40").Bold()
	if doc.Extraction == lesson.ExtractionSimulated {
		d.AddParagraph().AddText(placeholderNote).Size("20")
	}
	for _, s := range doc.Slides {
		d.AddParagraph().AddText(fmt.Sprintf("Slide %d", s.SlideNumber)).Size("32").Bold()
		for _, h := range s.Headings {
			d.AddParagraph().AddText(h).Size("28").Bold()
		}
		for _, p := range s.Paragraphs {
			d.AddParagraph().AddText(p).Size("22")
		}
	}
	if _, err := d.WriteTo(w); err != nil {
		return fmt.Errorf("write docx: %w", err)
	}
	return nil
}
