package export

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dgallion1/skillsprint/internal/lesson"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF"))

	slideStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	headingStyle = lipgloss.NewStyle().
			Bold(true).
			PaddingLeft(2)

	paragraphStyle = lipgloss.NewStyle().
			PaddingLeft(4).
			Width(100)

	noteStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFF00"))
)

// Outline renders a terminal summary of doc: the title, then each slide's
// headings and paragraphs indented beneath its number. Colors are dropped
// when the output is not a terminal.
func Outline(doc *lesson.Document) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(doc.Title))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "%d slides, %s extraction\n", doc.TotalSlides, doc.Extraction)
	if doc.Extraction == lesson.ExtractionSimulated {
		sb.WriteString(noteStyle.Render(placeholderNote))
		sb.WriteString("\n")
	}
	for _, s := range doc.Slides {
		sb.WriteString("\n")
		sb.WriteString(slideStyle.Render(fmt.Sprintf("Slide %d", s.SlideNumber)))
		sb.WriteString("\n")
		for _, h := range s.Headings {
			sb.WriteString(headingStyle.Render(h))
			sb.WriteString("\n")
		}
		for _, p := range s.Paragraphs {
			sb.WriteString(paragraphStyle.Render(p))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
