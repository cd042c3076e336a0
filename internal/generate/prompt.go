package generate

import (
	"fmt"
	"strings"

	"github.com/dgallion1/skillsprint/internal/lesson"
)

const flashcardSystem = `You write study flashcards from lecture slides. Return a JSON array of flashcards. Each flashcard object must have these fields:

- "front": a short prompt, usually the concept or heading (string, max 80 chars)
- "back": a concise answer of at most 60 words in clear, simple language (string)
- "category": one of "main", "concept", "definition", "process" (string)

Rules:
- Focus on the single most important idea per card
- Do not copy whole paragraphs
- Return at most %d flashcards
- Return an empty array [] if the slides contain nothing worth studying

Respond with ONLY the JSON array, no other text.`

const quizSystem = `You write multiple-choice quiz questions from lecture slides. Return a JSON array of questions. Each question object must have these fields:

- "question": a clear question that does not just copy a paragraph (string)
- "options": exactly 4 short, plausible, distinct options (list of strings)
- "correct": the correct option, copied exactly from "options" (string)
- "explanation": one sentence on why the answer is correct (string)

Rules:
- Return at most %d questions
- Return an empty array [] if the slides contain nothing to ask about

Respond with ONLY the JSON array, no other text.`

// maxPromptChars bounds the slide text sent in one request.
const maxPromptChars = 48000

func flashcardPrompt(limit int) string { return fmt.Sprintf(flashcardSystem, limit) }
func quizPrompt(limit int) string      { return fmt.Sprintf(quizSystem, limit) }

// documentPrompt renders a document as the user message: the title
// followed by each slide's headings and paragraphs.
func documentPrompt(doc *lesson.Document) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Document: %q\n", doc.Title)
	for _, s := range doc.Slides {
		if len(s.Headings) == 0 && len(s.Paragraphs) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\n--- Slide %d ---\n", s.SlideNumber)
		for _, h := range s.Headings {
			sb.WriteString("# ")
			sb.WriteString(h)
			sb.WriteByte('\n')
		}
		for _, p := range s.Paragraphs {
			sb.WriteString(p)
			sb.WriteByte('\n')
		}
		if sb.Len() > maxPromptChars {
			break
		}
	}
	return truncate(sb.String(), maxPromptChars)
}
