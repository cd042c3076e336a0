package structure

import (
	"math"
	"strings"

	"github.com/dgallion1/skillsprint/internal/lesson"
)

// Thresholds tune the size-delta heading heuristic.
type Thresholds struct {
	// Delta is the size difference a fragment must exceed, relative to the
	// run it would join, before it can start a new run.
	Delta float64
	// HeadingSize is the size above which a run counts as a heading.
	HeadingSize float64
}

// DefaultThresholds returns the empirically chosen values.
func DefaultThresholds() Thresholds {
	return Thresholds{Delta: 2, HeadingSize: 14}
}

// run is a maximal group of fragments merged into one heading or paragraph.
type run struct {
	text    string
	size    float64
	heading bool
}

// fold is the reduction state: runs already closed plus the open one.
type fold struct {
	closed []run
	open   run
}

// Classify groups one page's fragments into headings and paragraphs,
// preserving order. It never returns nil slices.
func Classify(frags []lesson.Fragment, th Thresholds) (headings, paragraphs []string) {
	state := fold{}
	for _, f := range frags {
		state = step(state, f, th)
	}

	headings, paragraphs = []string{}, []string{}
	for _, r := range append(state.closed, state.open) {
		text := strings.TrimSpace(r.text)
		if text == "" {
			continue
		}
		if r.heading {
			headings = append(headings, text)
		} else {
			paragraphs = append(paragraphs, text)
		}
	}
	return headings, paragraphs
}

// step consumes one fragment. A fragment starts a new run when it is
// heading-sized and larger than the open run by more than Delta, or when
// its heading class differs from the open run's and the sizes are more
// than Delta apart. Otherwise its text is appended verbatim.
func step(s fold, f lesson.Fragment, th Thresholds) fold {
	heading := f.Size > th.HeadingSize
	grows := heading && f.Size > s.open.size+th.Delta
	switches := heading != s.open.heading && math.Abs(f.Size-s.open.size) > th.Delta

	if !grows && !switches {
		s.open.text += f.Text
		return s
	}

	closed := s.closed
	if strings.TrimSpace(s.open.text) != "" {
		closed = append(closed[:len(closed):len(closed)], s.open)
	}
	return fold{
		closed: closed,
		open:   run{text: f.Text, size: f.Size, heading: heading},
	}
}

// RawText is the page text space-joined, whitespace-collapsed at
// boundaries: fragments are joined with single spaces and the separator is
// skipped where either side of a boundary already carries whitespace.
func RawText(frags []lesson.Fragment) string {
	var sb strings.Builder
	for i, f := range frags {
		if i > 0 && !endsWithSpace(sb.String()) && !startsWithSpace(f.Text) {
			sb.WriteByte(' ')
		}
		sb.WriteString(f.Text)
	}
	return sb.String()
}

func endsWithSpace(s string) bool {
	return s != "" && strings.TrimRight(s[len(s)-1:], " \t\n\r") == ""
}

func startsWithSpace(s string) bool {
	return s != "" && strings.TrimLeft(s[:1], " \t\n\r") == ""
}
