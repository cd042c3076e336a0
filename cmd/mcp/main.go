// Command mcp serves skillsprint tools over MCP stdio.
package main

import (
	"log/slog"
	"os"

	"github.com/dgallion1/skillsprint/internal/config"
	"github.com/dgallion1/skillsprint/internal/generate"
	"github.com/dgallion1/skillsprint/internal/mcptools"
	"github.com/dgallion1/skillsprint/internal/parser"
	"github.com/dgallion1/skillsprint/internal/review"
	"github.com/dgallion1/skillsprint/internal/store"
	"github.com/dgallion1/skillsprint/internal/structure"
	"github.com/mark3labs/mcp-go/server"
)

func main() {
	cfg := config.Load()
	// Stdout carries the protocol.
	log := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	lessons, err := store.Open(cfg.StoreDriver, cfg.StorePath)
	if err != nil {
		log.Error("open lesson store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer lessons.Close()

	backend, err := generate.NewBackend(cfg, log)
	if err != nil {
		log.Error("init generator", "error", err)
		os.Exit(1)
	}
	defer backend.Close()

	coord := review.NewCoordinator(backend.Generator, cfg.GenerationTimeout, log.With("component", "review"), nil)
	defer coord.Close()

	st := structure.New(
		parser.Decoder{FallbackPdftotext: cfg.PDFFallbackPdftotext},
		structure.Thresholds{Delta: cfg.HeadingDelta, HeadingSize: cfg.HeadingMinSize},
	)

	srv := server.NewMCPServer("skillsprint", "0.1.0", server.WithToolCapabilities(false))
	mcptools.New(st, lessons, coord, cfg.GenerationTimeout, log).Register(srv)

	if err := server.ServeStdio(srv); err != nil {
		log.Error("mcp server", "error", err)
		os.Exit(1)
	}
}
