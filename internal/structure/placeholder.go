package structure

import (
	"github.com/dgallion1/skillsprint/internal/lesson"
	"github.com/dgallion1/skillsprint/internal/parser"
)

var placeholderSlides = []lesson.Slide{
	{
		SlideNumber: 1,
		Headings:    []string{"Introduction to SkillSprint"},
		Paragraphs:  []string{"Welcome to the micro-learning platform that transforms your study materials into actionable content."},
		RawText:     "Introduction to SkillSprint. Welcome to the micro-learning platform that transforms your study materials into actionable content.",
	},
	{
		SlideNumber: 2,
		Headings:    []string{"Key Features"},
		Paragraphs:  []string{"Fast processing, AI-powered content generation, and evidence-based learning methods."},
		RawText:     "Key Features. Fast processing, AI-powered content generation, and evidence-based learning methods.",
	},
	{
		SlideNumber: 3,
		Headings:    []string{"How It Works"},
		Paragraphs:  []string{"Upload your materials, let AI process them, and start studying with generated flash-cards and quizzes."},
		RawText:     "How It Works. Upload your materials, let AI process them, and start studying with generated flash-cards and quizzes.",
	},
}

// Placeholder returns the fixed introductory deck used for formats that
// cannot be extracted. It is marked ExtractionSimulated.
func Placeholder(title string, format parser.Format) *lesson.Document {
	doc := &lesson.Document{
		Title:        title,
		Slides:       placeholderSlides,
		TotalSlides:  len(placeholderSlides),
		Extraction:   lesson.ExtractionSimulated,
		SourceFormat: string(format),
	}
	return doc.Clone()
}
