// Package mcptools exposes lesson structuring and review generation as
// MCP tools.
package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dgallion1/skillsprint/internal/lesson"
	"github.com/dgallion1/skillsprint/internal/parser"
	"github.com/dgallion1/skillsprint/internal/pipeline"
	"github.com/dgallion1/skillsprint/internal/review"
	"github.com/dgallion1/skillsprint/internal/store"
	"github.com/dgallion1/skillsprint/internal/validate"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Tools holds what the tool handlers need. Generated artifacts are cached
// per lesson in one coordinator for the life of the process.
type Tools struct {
	structurer pipeline.Structurer
	lessons    store.Store
	coord      *review.Coordinator
	timeout    time.Duration
	log        *slog.Logger
}

func New(s pipeline.Structurer, lessons store.Store, coord *review.Coordinator, timeout time.Duration, log *slog.Logger) *Tools {
	return &Tools{structurer: s, lessons: lessons, coord: coord, timeout: timeout, log: log}
}

// Register adds every tool to srv.
func (t *Tools) Register(srv *server.MCPServer) {
	srv.AddTool(mcp.NewTool("structure_file",
		mcp.WithDescription("Structure a local PDF or PowerPoint file into a lesson and store it. Returns the lesson id and document."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path to a .pdf, .pptx or .ppt file")),
	), t.StructureFile)

	srv.AddTool(mcp.NewTool("get_lesson",
		mcp.WithDescription("Fetch a stored lesson by id."),
		mcp.WithString("lesson_id", mcp.Required(), mcp.Description("Lesson id returned by structure_file")),
	), t.GetLesson)

	srv.AddTool(mcp.NewTool("list_lessons",
		mcp.WithDescription("List stored lessons, newest first."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of lessons (default 20)")),
	), t.ListLessons)

	srv.AddTool(mcp.NewTool("generate_flashcards",
		mcp.WithDescription("Generate flashcards for a stored lesson. Results are cached per lesson."),
		mcp.WithString("lesson_id", mcp.Required(), mcp.Description("Lesson id")),
	), t.GenerateFlashcards)

	srv.AddTool(mcp.NewTool("generate_quiz",
		mcp.WithDescription("Generate multiple-choice questions for a stored lesson. Results are cached per lesson."),
		mcp.WithString("lesson_id", mcp.Required(), mcp.Description("Lesson id")),
	), t.GenerateQuiz)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}

// StructureFile validates, structures and stores a file. Identical bytes
// return the lesson already stored.
func (t *Tools) StructureFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fi, err := os.Stat(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("cannot read %s: %v", path, err)), nil
	}
	name := filepath.Base(path)
	if err := validate.Check(validate.FileInfo{Size: fi.Size(), Filename: name}).Err(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("cannot read %s: %v", path, err)), nil
	}

	hash := pipeline.ContentHashHex(data)
	if id, found, err := t.lessons.FindByHash(ctx, hash); err == nil && found {
		doc, err := t.lessons.Get(ctx, id)
		if err == nil {
			return jsonResult(map[string]any{"lesson_id": id, "duplicate": true, "document": doc})
		}
	}

	doc, err := t.structurer.Structure(ctx, name, data)
	if err != nil {
		t.log.Warn("structure failed", "path", path, "reason", pipeline.FailureReason(err), "error", err)
		return mcp.NewToolResultError(userMessage(err)), nil
	}
	id := store.NewID()
	if err := t.lessons.Put(ctx, id, hash, doc); err != nil {
		return nil, fmt.Errorf("store lesson: %w", err)
	}
	t.log.Info("lesson stored", "lesson_id", id, "slides", doc.TotalSlides)
	return jsonResult(map[string]any{"lesson_id": id, "document": doc})
}

func (t *Tools) GetLesson(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("lesson_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := t.lessons.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return mcp.NewToolResultError("lesson not found: " + id), nil
	}
	if err != nil {
		return nil, err
	}
	return jsonResult(doc)
}

func (t *Tools) ListLessons(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 20)
	if limit <= 0 {
		limit = 20
	}
	list, err := t.lessons.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	return jsonResult(map[string]any{"lessons": list})
}

func (t *Tools) GenerateFlashcards(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return t.generate(ctx, req, lesson.KindFlashcards)
}

func (t *Tools) GenerateQuiz(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return t.generate(ctx, req, lesson.KindQuiz)
}

// generate ensures the artifact and waits for it. A failed or empty
// result can be retried by calling the tool again.
func (t *Tools) generate(ctx context.Context, req mcp.CallToolRequest, kind lesson.Kind) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("lesson_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := t.lessons.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return mcp.NewToolResultError("lesson not found: " + id), nil
	}
	if err != nil {
		return nil, err
	}

	if _, err := t.coord.EnsureGenerated(id, doc, kind); err != nil {
		return nil, err
	}
	waitCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	snap, err := t.coord.Wait(waitCtx, id, kind)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s still generating, call again later", kind)), nil
	}
	if snap.State == lesson.StateFailed {
		return mcp.NewToolResultError(snap.Message + ": " + snap.Error), nil
	}
	return jsonResult(snap)
}

func userMessage(err error) string {
	var de *parser.DecodeError
	switch {
	case errors.As(err, &de):
		return de.UserMessage()
	case errors.Is(err, parser.ErrUnsupportedFormat):
		return validate.ReasonUnsupported
	}
	return err.Error()
}
