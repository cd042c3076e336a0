package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/skillsprint/internal/config"
	"github.com/dgallion1/skillsprint/internal/generate"
	"github.com/dgallion1/skillsprint/internal/lesson"
	"github.com/dgallion1/skillsprint/internal/parser"
	"github.com/dgallion1/skillsprint/internal/pipeline"
	"github.com/dgallion1/skillsprint/internal/review"
	"github.com/dgallion1/skillsprint/internal/store"
	"github.com/dgallion1/skillsprint/internal/structure"
	"github.com/dgallion1/skillsprint/internal/validate"
)

const testKey = "test-key"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	srv     *httptest.Server
	handler http.Handler
	lessons store.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, nil, generate.NewLocalGenerator(generate.DefaultLimits()))
}

// newTestEnvWith lets a test adjust the config and swap the generator.
func newTestEnvWith(t *testing.T, adjust func(*config.Config), gen generate.Generator) *testEnv {
	t.Helper()
	cfg := config.Config{
		APIKey:            testKey,
		WorkerCount:       1,
		MaxQueueSize:      10,
		BatchConcurrency:  2,
		MaxUploadBytes:    validate.MaxSize,
		JobTTL:            time.Hour,
		GenerationTimeout: 2 * time.Second,
	}
	if adjust != nil {
		adjust(&cfg)
	}
	log := testLogger()
	lessons := store.NewMemoryStore()
	st := structure.New(parser.Decoder{}, structure.DefaultThresholds())

	orch := pipeline.NewOrchestrator(cfg, st, lessons, nil, log)
	orch.Start(context.Background())
	sessions := review.NewSessions(gen, cfg.GenerationTimeout, time.Hour, log, nil)

	s := NewServer(Deps{
		Orchestrator: orch,
		Structurer:   st,
		Lessons:      lessons,
		Generator:    gen,
		Sessions:     sessions,
	}, log, cfg)
	srv := httptest.NewServer(s)
	t.Cleanup(func() {
		srv.Close()
		sessions.Close()
		orch.Stop()
	})
	return &testEnv{srv: srv, handler: s, lessons: lessons}
}

// serve runs one request through the handler without a network round trip.
func (e *testEnv) serve(req *http.Request) *httptest.ResponseRecorder {
	req.Header.Set("Authorization", "Bearer "+testKey)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeRecorder[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func (e *testEnv) do(t *testing.T, method, path, contentType string, body io.Reader) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, body)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+testKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// multipartFile builds a form with one file part under field.
func multipartFile(t *testing.T, field, filename, mediaType string, data []byte) (string, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	h.Set("Content-Type", mediaType)
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatal(err)
	}
	part.Write(data)
	mw.Close()
	return mw.FormDataContentType(), &buf
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

var pptBytes = []byte("\xD0\xCF\x11\xE0\xA1\xB1\x1A\xE1legacy deck")

func TestHealth_NoAuth(t *testing.T) {
	env := newTestEnv(t)
	resp, err := http.Get(env.srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestAuth_Rejected(t *testing.T) {
	env := newTestEnv(t)
	resp, err := http.Get(env.srv.URL + "/api/lessons")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", resp.StatusCode)
	}
}

func TestParse_PlaceholderForPPT(t *testing.T) {
	env := newTestEnv(t)
	ct, body := multipartFile(t, "file", "Week1.ppt", validate.MediaTypePPT, pptBytes)
	resp := env.do(t, http.MethodPost, "/parse", ct, body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	doc := decode[lesson.Document](t, resp)
	if doc.Title != "Week1" || doc.TotalSlides != 3 || doc.Extraction != lesson.ExtractionSimulated {
		t.Errorf("unexpected document %+v", doc)
	}
}

func TestParse_Rejections(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		name      string
		filename  string
		mediaType string
		data      []byte
		code      int
		message   string
	}{
		{"unsupported type", "notes.txt", "text/plain", []byte("hello"), http.StatusBadRequest, validate.ReasonUnsupported},
		{"corrupt pdf", "broken.pdf", validate.MediaTypePDF, []byte("not a pdf"), http.StatusUnprocessableEntity, "Failed to parse PDF file"},
		{"pdf type but text body", "upload.bin", validate.MediaTypePDF, []byte("plain words"), http.StatusUnsupportedMediaType, validate.ReasonUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ct, body := multipartFile(t, "file", tt.filename, tt.mediaType, tt.data)
			resp := env.do(t, http.MethodPost, "/parse", ct, body)
			if resp.StatusCode != tt.code {
				t.Fatalf("expected %d, got %d", tt.code, resp.StatusCode)
			}
			got := decode[map[string]string](t, resp)
			if got["error"] != tt.message {
				t.Errorf("expected error %q, got %q", tt.message, got["error"])
			}
		})
	}
}

func TestUpload_TooLargeShowsReason(t *testing.T) {
	env := newTestEnvWith(t, func(cfg *config.Config) {
		cfg.MaxUploadBytes = 1 << 20
	}, generate.NewLocalGenerator(generate.DefaultLimits()))
	reason := "File size must be less than 1MB"

	tests := []struct {
		name string
		path string
		size int
	}{
		{"parse body over form limit", "/parse", 3 << 20},
		{"parse file over gate limit", "/parse", 1<<20 + 512<<10},
		{"upload body over form limit", "/api/lessons", 3 << 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ct, body := multipartFile(t, "file", "big.pptx", validate.MediaTypePPTX, make([]byte, tt.size))
			req := httptest.NewRequest(http.MethodPost, tt.path, body)
			req.Header.Set("Content-Type", ct)
			rec := env.serve(req)
			if rec.Code != http.StatusRequestEntityTooLarge {
				t.Fatalf("expected 413, got %d: %s", rec.Code, rec.Body.String())
			}
			if got := decodeRecorder[map[string]string](t, rec); got["error"] != reason {
				t.Errorf("expected error %q, got %q", reason, got["error"])
			}
		})
	}
}

func TestParse_150MiBDeckRejected(t *testing.T) {
	env := newTestEnv(t)

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="file"; filename="big.pptx"`)
		h.Set("Content-Type", validate.MediaTypePPTX)
		part, err := mw.CreatePart(h)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		chunk := make([]byte, 1<<20)
		for i := 0; i < 150; i++ {
			if _, err := part.Write(chunk); err != nil {
				pw.CloseWithError(err)
				return
			}
		}
		pw.CloseWithError(mw.Close())
	}()

	req := httptest.NewRequest(http.MethodPost, "/parse", pr)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := env.serve(req)
	pr.CloseWithError(io.ErrClosedPipe)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := decodeRecorder[map[string]string](t, rec); got["error"] != validate.ReasonTooLarge {
		t.Errorf("expected error %q, got %q", validate.ReasonTooLarge, got["error"])
	}
}

func waitJob(t *testing.T, env *testEnv, jobID string) pipeline.JobSnapshot {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		resp := env.do(t, http.MethodGet, "/api/jobs/"+jobID, "", nil)
		snap := decode[pipeline.JobSnapshot](t, resp)
		if snap.Status.Done() {
			return snap
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", jobID)
	return pipeline.JobSnapshot{}
}

func TestUpload_LessonLifecycle(t *testing.T) {
	env := newTestEnv(t)

	ct, body := multipartFile(t, "file", "Week1.ppt", validate.MediaTypePPT, pptBytes)
	resp := env.do(t, http.MethodPost, "/api/lessons", ct, body)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	accepted := decode[map[string]any](t, resp)
	jobID, _ := accepted["job_id"].(string)
	if jobID == "" || accepted["poll_url"] != "/api/jobs/"+jobID {
		t.Fatalf("unexpected response %v", accepted)
	}

	snap := waitJob(t, env, jobID)
	if snap.Status != pipeline.StatusCompleted || snap.LessonID == "" {
		t.Fatalf("expected completed job with lesson, got %+v", snap)
	}

	resp = env.do(t, http.MethodGet, "/api/lessons/"+snap.LessonID, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if doc := decode[lesson.Document](t, resp); doc.TotalSlides != 3 {
		t.Errorf("expected 3 slides, got %d", doc.TotalSlides)
	}

	resp = env.do(t, http.MethodGet, "/api/lessons/"+snap.LessonID+"/export?format=md", "", nil)
	md, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(string(md), "# Week1") {
		t.Errorf("unexpected export %d %q", resp.StatusCode, md)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "Week1.md") {
		t.Errorf("unexpected content disposition %q", cd)
	}

	// Same bytes again point at the same lesson.
	ct, body = multipartFile(t, "file", "copy.ppt", validate.MediaTypePPT, pptBytes)
	resp = env.do(t, http.MethodPost, "/api/lessons", ct, body)
	again := decode[map[string]any](t, resp)
	dup := waitJob(t, env, again["job_id"].(string))
	if dup.Status != pipeline.StatusDuplicate || dup.LessonID != snap.LessonID {
		t.Errorf("expected duplicate of %s, got %+v", snap.LessonID, dup)
	}

	resp = env.do(t, http.MethodGet, "/api/lessons", "", nil)
	list := decode[map[string][]store.Summary](t, resp)
	if len(list["lessons"]) != 1 {
		t.Errorf("expected 1 stored lesson, got %d", len(list["lessons"]))
	}
}

func TestBatchUpload_PerFileResults(t *testing.T) {
	env := newTestEnv(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range []struct{ name, mt string }{{"a.ppt", validate.MediaTypePPT}, {"b.txt", "text/plain"}} {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename=%q`, f.name))
		h.Set("Content-Type", f.mt)
		part, _ := mw.CreatePart(h)
		part.Write(pptBytes)
	}
	mw.Close()

	resp := env.do(t, http.MethodPost, "/api/lessons/batch", mw.FormDataContentType(), &buf)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	got := decode[map[string][]map[string]any](t, resp)
	jobs := got["jobs"]
	if len(jobs) != 2 {
		t.Fatalf("expected 2 results, got %d", len(jobs))
	}
	if jobs[0]["job_id"] == nil {
		t.Errorf("expected first file queued, got %v", jobs[0])
	}
	if jobs[1]["error"] != validate.ReasonUnsupported {
		t.Errorf("expected second file rejected, got %v", jobs[1])
	}
}

func TestLesson_NotFound(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodGet, "/api/lessons/01NOPE", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func studyDoc() *lesson.Document {
	return &lesson.Document{
		Title:       "Chemistry",
		TotalSlides: 1,
		Slides: []lesson.Slide{{
			SlideNumber: 1,
			Headings:    []string{"Molecules"},
			Paragraphs:  []string{"Molecules are groups of atoms bonded together. They form every substance around us."},
		}},
	}
}

// stalledGenerator blocks until its context ends.
type stalledGenerator struct{}

func (stalledGenerator) Flashcards(ctx context.Context, _ *lesson.Document) ([]lesson.Flashcard, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (stalledGenerator) Quiz(ctx context.Context, _ *lesson.Document) ([]lesson.QuizQuestion, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestSession_WaitClientGone(t *testing.T) {
	env := newTestEnvWith(t, nil, stalledGenerator{})
	if err := env.lessons.Put(context.Background(), "L1", "h", studyDoc()); err != nil {
		t.Fatal(err)
	}
	rec := env.serve(httptest.NewRequest(http.MethodPost, "/api/sessions", strings.NewReader(`{"lesson_id":"L1"}`)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	id, _ := decodeRecorder[map[string]any](t, rec)["session_id"].(string)

	rec = env.serve(httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/quiz", nil))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/sessions/"+id+"/quiz?wait=true", nil).WithContext(ctx)
	rec = env.serve(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if snap := decodeRecorder[review.Snapshot](t, rec); snap.State != lesson.StateInFlight {
		t.Errorf("expected in_flight, got %q", snap.State)
	}
}

func TestSession_GenerateFlashcards(t *testing.T) {
	env := newTestEnv(t)
	if err := env.lessons.Put(context.Background(), "L1", "h", studyDoc()); err != nil {
		t.Fatal(err)
	}

	resp := env.do(t, http.MethodPost, "/api/sessions", "application/json", strings.NewReader(`{"lesson_id":"L1"}`))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	sess := decode[map[string]any](t, resp)
	id, _ := sess["session_id"].(string)
	if id == "" {
		t.Fatalf("expected session id, got %v", sess)
	}

	resp = env.do(t, http.MethodPost, "/api/sessions/"+id+"/flashcards", "", nil)
	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 202 or 200, got %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodGet, "/api/sessions/"+id+"/flashcards?wait=true", "", nil)
	snap := decode[review.Snapshot](t, resp)
	if snap.State != lesson.StateReady || len(snap.Flashcards) == 0 {
		t.Fatalf("expected ready flashcards, got %+v", snap)
	}
	if snap.Flashcards[0].Front != "Molecules" {
		t.Errorf("expected front %q, got %q", "Molecules", snap.Flashcards[0].Front)
	}

	resp = env.do(t, http.MethodGet, "/api/sessions/"+id+"/quiz", "", nil)
	if quiz := decode[review.Snapshot](t, resp); quiz.State != lesson.StateEmpty {
		t.Errorf("expected quiz untouched, got %q", quiz.State)
	}

	resp = env.do(t, http.MethodPost, "/api/sessions/"+id+"/summary", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for unknown kind, got %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodDelete, "/api/sessions/"+id, "", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("expected 204, got %d", resp.StatusCode)
	}
	resp = env.do(t, http.MethodGet, "/api/sessions/"+id, "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 after end, got %d", resp.StatusCode)
	}
}

func TestOpenSession_UnknownLesson(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodPost, "/api/sessions", "application/json", strings.NewReader(`{"lesson_id":"missing"}`))
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestGenerateQuiz_Collaborator(t *testing.T) {
	env := newTestEnv(t)
	body, _ := json.Marshal(studyDoc())
	resp := env.do(t, http.MethodPost, "/generate-quiz", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	got := decode[map[string][]lesson.QuizQuestion](t, resp)
	if len(got["questions"]) == 0 {
		t.Fatal("expected questions")
	}
	for _, q := range got["questions"] {
		if err := q.Validate(); err != nil {
			t.Errorf("invalid question %+v: %v", q, err)
		}
	}
}

func TestGenerateFlashcards_InvalidDocument(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodPost, "/generate-flashcards", "application/json",
		strings.NewReader(`{"title":"x","totalSlides":2,"slides":[]}`))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestLLMStats_Unavailable(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodGet, "/api/stats/llm", "", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", resp.StatusCode)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{&validate.Error{Reason: validate.ReasonTooLarge}, http.StatusRequestEntityTooLarge},
		{&validate.Error{Reason: validate.ReasonUnsupported}, http.StatusBadRequest},
		{&parser.DecodeError{Format: parser.FormatPPTX, Err: errors.New("zip")}, http.StatusUnprocessableEntity},
		{&parser.UnsupportedFormatError{Ext: ".key"}, http.StatusUnsupportedMediaType},
		{fmt.Errorf("get: %w", store.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w (10)", pipeline.ErrQueueFull), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if code, _ := statusFor(tt.err); code != tt.code {
			t.Errorf("statusFor(%v): expected %d, got %d", tt.err, tt.code, code)
		}
	}
}
