package generate

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/skillsprint/internal/lesson"
)

// LocalGenerator derives artifacts from slide text without calling any
// service. Each slide with a heading and body text yields at most one
// flashcard and one question.
type LocalGenerator struct {
	limits Limits
}

func NewLocalGenerator(limits Limits) *LocalGenerator {
	return &LocalGenerator{limits: limits}
}

const (
	backMaxChars   = 150
	sentenceCutoff = 100
	minQuizContent = 20
)

var (
	disallowedRe = regexp.MustCompile(`[^\p{L}\p{N}_\s.,!?:-]`)
	sentenceRe   = regexp.MustCompile(`[.!?]+`)
	wordRe       = regexp.MustCompile(`[\p{L}\p{N}_]+`)
)

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true, "in": true, "on": true,
	"at": true, "to": true, "for": true, "of": true, "with": true, "by": true, "is": true, "are": true,
	"was": true, "were": true, "be": true, "been": true, "have": true, "has": true, "had": true,
	"do": true, "does": true, "did": true, "will": true, "would": true, "could": true, "should": true,
	"may": true, "might": true, "can": true, "this": true, "that": true, "these": true, "those": true,
	"i": true, "you": true, "he": true, "she": true, "it": true, "we": true, "they": true, "me": true,
	"him": true, "her": true, "us": true, "them": true,
}

var distractors = []string{"an unrelated process", "a different approach", "an outdated method"}

var questionTemplates = []string{
	"What is the main purpose of %s?",
	"Which of the following best describes %s?",
	"What are the key benefits of %s?",
	"How does %s work?",
}

var fallbackFlashcards = []lesson.Flashcard{
	{Front: "What is micro-learning?", Back: "A learning approach that delivers content in small, focused units for better retention and engagement.", Category: "concept"},
	{Front: "Key benefit of flashcards", Back: "Active recall practice that strengthens memory and improves long-term retention.", Category: "benefit"},
}

var fallbackQuestions = []lesson.QuizQuestion{
	{
		Question: "What is the main topic of this document?",
		Options:  []string{"Learning and education", "Technology", "Business", "Science"},
		Correct:  "Learning and education",
	},
	{
		Question: "Which learning method is most effective for retention?",
		Options:  []string{"Active recall", "Passive reading", "Skimming", "Memorization"},
		Correct:  "Active recall",
	},
}

func (g *LocalGenerator) Flashcards(ctx context.Context, doc *lesson.Document) ([]lesson.Flashcard, error) {
	var cards []lesson.Flashcard
	for _, s := range studySlides(doc) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cards = append(cards, lesson.Flashcard{
			Front:    s.heading,
			Back:     keyPoint(cleanText(s.content)),
			Category: "main",
		})
	}
	if len(cards) == 0 {
		cards = append(cards, fallbackFlashcards...)
	}
	return cleanFlashcards(cards, g.limits.MaxFlashcards), nil
}

func (g *LocalGenerator) Quiz(ctx context.Context, doc *lesson.Document) ([]lesson.QuizQuestion, error) {
	var qs []lesson.QuizQuestion
	for i, s := range studySlides(doc) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if q, ok := keywordQuestion(i, s.content); ok {
			qs = append(qs, q)
		}
	}
	if len(qs) == 0 {
		for _, q := range fallbackQuestions {
			q.Options = append([]string(nil), q.Options...)
			qs = append(qs, q)
		}
	}
	return cleanQuestions(qs, g.limits.MaxQuestions), nil
}

type studySlide struct {
	heading string
	content string
}

// studySlides keeps slides that have both a heading and body text.
func studySlides(doc *lesson.Document) []studySlide {
	var out []studySlide
	for _, s := range doc.Slides {
		if len(s.Headings) == 0 || len(s.Paragraphs) == 0 {
			continue
		}
		out = append(out, studySlide{heading: s.Headings[0], content: strings.Join(s.Paragraphs, " ")})
	}
	return out
}

func cleanText(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return disallowedRe.ReplaceAllString(s, "")
}

// keyPoint is the first sentence of long text, cut to backMaxChars.
func keyPoint(text string) string {
	if utf8.RuneCountInString(text) > sentenceCutoff {
		if first := strings.TrimSpace(sentenceRe.Split(text, 2)[0]); first != "" {
			text = first
		}
	}
	if r := []rune(text); len(r) > backMaxChars {
		return string(r[:backMaxChars]) + "..."
	}
	return text
}

// keywords returns distinct non-stop words longer than three letters,
// longest first, ties in order of appearance.
func keywords(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, w := range wordRe.FindAllString(strings.ToLower(text), -1) {
		if utf8.RuneCountInString(w) <= 3 || stopWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	slices.SortStableFunc(out, func(a, b string) int {
		return utf8.RuneCountInString(b) - utf8.RuneCountInString(a)
	})
	return out
}

// keywordQuestion asks about the most prominent keyword of a slide. The
// option order is shuffled deterministically from the content so the
// same document always yields the same quiz.
func keywordQuestion(idx int, content string) (lesson.QuizQuestion, bool) {
	clean := cleanText(content)
	if len(clean) < minQuizContent {
		return lesson.QuizQuestion{}, false
	}
	kw := keywords(clean)
	if len(kw) == 0 {
		return lesson.QuizQuestion{}, false
	}
	concept := kw[0]

	options := append([]string{concept}, distractors...)
	h := fnv.New64a()
	h.Write([]byte(clean))
	r := rand.New(rand.NewPCG(h.Sum64(), uint64(idx)))
	r.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })

	return lesson.QuizQuestion{
		Question:    fmt.Sprintf(questionTemplates[idx%len(questionTemplates)], concept),
		Options:     options,
		Correct:     concept,
		Explanation: "This question tests understanding of " + concept + ".",
	}, true
}
