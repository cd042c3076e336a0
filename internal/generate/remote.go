package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/dgallion1/skillsprint/internal/lesson"
)

// RemoteClient talks to an external generation service that exposes
// /generate-flashcards, /generate-quiz and /parse.
type RemoteClient struct {
	baseURL    string
	apiKey     string
	limits     Limits
	httpClient *http.Client
}

func NewRemoteClient(baseURL, apiKey string, limits Limits) *RemoteClient {
	return &RemoteClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		limits:  limits,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

type flashcardsReply struct {
	Flashcards []lesson.Flashcard `json:"flashcards"`
	Error      string             `json:"error,omitempty"`
}

type quizReply struct {
	Questions []lesson.QuizQuestion `json:"questions"`
	Error     string                `json:"error,omitempty"`
}

func (c *RemoteClient) Flashcards(ctx context.Context, doc *lesson.Document) ([]lesson.Flashcard, error) {
	var reply flashcardsReply
	if err := c.postJSON(ctx, "/generate-flashcards", doc, &reply); err != nil {
		return nil, err
	}
	if reply.Error != "" {
		return nil, fmt.Errorf("generate flashcards: %s", reply.Error)
	}
	return cleanFlashcards(reply.Flashcards, c.limits.MaxFlashcards), nil
}

func (c *RemoteClient) Quiz(ctx context.Context, doc *lesson.Document) ([]lesson.QuizQuestion, error) {
	var reply quizReply
	if err := c.postJSON(ctx, "/generate-quiz", doc, &reply); err != nil {
		return nil, err
	}
	if reply.Error != "" {
		return nil, fmt.Errorf("generate quiz: %s", reply.Error)
	}
	return cleanQuestions(reply.Questions, c.limits.MaxQuestions), nil
}

// Parse uploads a raw file as multipart field "file" and returns the
// structured document the service built from it.
func (c *RemoteClient) Parse(ctx context.Context, filename string, data []byte) (*lesson.Document, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return nil, fmt.Errorf("write form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	var reply struct {
		lesson.Document
		Error string `json:"error,omitempty"`
	}
	if err := c.do(ctx, "/parse", mw.FormDataContentType(), &buf, &reply); err != nil {
		return nil, err
	}
	if reply.Error != "" {
		return nil, fmt.Errorf("parse %s: %s", filename, reply.Error)
	}
	doc := reply.Document
	doc.Normalize()
	if err := doc.Check(); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	return &doc, nil
}

func (c *RemoteClient) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	return c.do(ctx, path, "application/json", bytes.NewReader(body), out)
}

func (c *RemoteClient) do(ctx context.Context, path, contentType string, body io.Reader, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		if retryableStatus(resp.StatusCode) {
			return &RetryableError{StatusCode: resp.StatusCode, Message: string(respBody)}
		}
		return fmt.Errorf("post %s: status %d: %s", path, resp.StatusCode, string(respBody))
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 32<<20)).Decode(out); err != nil {
		return fmt.Errorf("decode %s reply: %w", path, err)
	}
	return nil
}

// Close releases resources.
func (c *RemoteClient) Close() {
	c.httpClient.CloseIdleConnections()
}
