// Command structure turns PDF and PowerPoint files into lesson documents
// and prints them as JSON or as a terminal outline.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/dgallion1/skillsprint/internal/export"
	"github.com/dgallion1/skillsprint/internal/generate"
	"github.com/dgallion1/skillsprint/internal/lesson"
	"github.com/dgallion1/skillsprint/internal/parser"
	"github.com/dgallion1/skillsprint/internal/structure"
	"github.com/dgallion1/skillsprint/internal/validate"
)

var (
	delta     = flag.Float64("delta", structure.DefaultThresholds().Delta, "size difference that starts a new run")
	heading   = flag.Float64("heading", structure.DefaultThresholds().HeadingSize, "size above which a run is a heading")
	pdftotext = flag.Bool("pdftotext", false, "fall back to the pdftotext binary for unreadable PDFs")
	remote    = flag.String("remote", "", "parse with the collaborator service at this base URL instead of locally")
	format    = flag.String("format", "json", "output format: json or outline")
	timeout   = flag.Duration("timeout", 2*time.Minute, "per-file time limit")
)

// parseFunc structures one file.
type parseFunc func(ctx context.Context, filename string, data []byte) (*lesson.Document, error)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: structure [flags] file...\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	if *format != "json" && *format != "outline" {
		log.Error("unknown output format", "format", *format)
		os.Exit(2)
	}

	var parse parseFunc
	if *remote != "" {
		rc := generate.NewRemoteClient(*remote, os.Getenv("GENERATOR_API_KEY"), generate.DefaultLimits())
		defer rc.Close()
		parse = rc.Parse
	} else {
		st := structure.New(
			parser.Decoder{FallbackPdftotext: *pdftotext},
			structure.Thresholds{Delta: *delta, HeadingSize: *heading},
		)
		parse = st.Structure
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	failed := 0
	for _, path := range flag.Args() {
		if err := run(ctx, parse, path); err != nil {
			log.Error("structure failed", "file", path, "error", err)
			failed++
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func run(ctx context.Context, parse parseFunc, path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	if err := validate.Check(validate.FileInfo{Size: fi.Size(), Filename: fi.Name()}).Err(); err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()
	doc, err := parse(ctx, fi.Name(), data)
	if err != nil {
		return err
	}

	if *format == "outline" {
		fmt.Print(export.Outline(doc))
		return nil
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
