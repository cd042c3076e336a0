package generate

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/skillsprint/internal/config"
)

// Backend is the generator selected by configuration.
type Backend struct {
	Generator Generator
	// Stats and Model are set for LLM backends only.
	Stats *LLMStats
	Model string
	close func()
}

// Close releases idle connections held by the backend.
func (b *Backend) Close() {
	if b.close != nil {
		b.close()
	}
}

// NewBackend builds the generator named by cfg.Generator.
func NewBackend(cfg config.Config, log *slog.Logger) (*Backend, error) {
	limits := Limits{MaxFlashcards: cfg.MaxFlashcards, MaxQuestions: cfg.MaxQuestions}
	log = log.With("component", "generate", "backend", cfg.Generator)

	switch cfg.Generator {
	case "", "local":
		return &Backend{Generator: NewLocalGenerator(limits)}, nil
	case "anthropic":
		claude := NewClaudeClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
		stats := NewLLMStats(time.Hour)
		return &Backend{
			Generator: NewLLMGenerator(claude, limits, stats, log),
			Stats:     stats,
			Model:     claude.Model(),
			close:     claude.Close,
		}, nil
	case "openai":
		oa, err := NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
		if err != nil {
			return nil, fmt.Errorf("openai backend: %w", err)
		}
		stats := NewLLMStats(time.Hour)
		return &Backend{
			Generator: NewLLMGenerator(oa, limits, stats, log),
			Stats:     stats,
			Model:     oa.Model(),
		}, nil
	case "remote":
		rc := NewRemoteClient(cfg.GeneratorURL, cfg.GeneratorAPIKey, limits)
		return &Backend{Generator: rc, close: rc.Close}, nil
	}
	return nil, fmt.Errorf("unknown generator %q", cfg.Generator)
}
