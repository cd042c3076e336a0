package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgallion1/skillsprint/internal/lesson"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS lessons (
	id TEXT PRIMARY KEY,
	content_hash TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL,
	total_slides INTEGER NOT NULL,
	extraction TEXT NOT NULL,
	body TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS lessons_content_hash ON lessons(content_hash);
`

// SQLiteStore persists lessons in a single SQLite table. The document
// itself is stored as JSON.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path. Use
// ":memory:" for a throwaway store.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection: an in-memory database is per connection, and
	// SQLite serializes writers anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Put(ctx context.Context, id, contentHash string, doc *lesson.Document) error {
	if doc == nil {
		return fmt.Errorf("put %s: nil document", id)
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode lesson %s: %w", id, err)
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO lessons (id, content_hash, title, total_slides, extraction, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, contentHash, doc.Title, doc.TotalSlides, string(doc.Extraction), string(body), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("insert lesson %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert lesson %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("put %s: %w", id, ErrExists)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*lesson.Document, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM lessons WHERE id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query lesson %s: %w", id, err)
	}
	var doc lesson.Document
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, fmt.Errorf("decode lesson %s: %w", id, err)
	}
	doc.Normalize()
	return &doc, nil
}

func (s *SQLiteStore) FindByHash(ctx context.Context, contentHash string) (string, bool, error) {
	if contentHash == "" {
		return "", false, nil
	}
	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM lessons
		WHERE content_hash = ?
		ORDER BY created_at ASC
		LIMIT 1
	`, contentHash).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query content hash: %w", err)
	}
	return id, true, nil
}

// List returns the newest lessons first.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, total_slides, extraction, created_at
		FROM lessons
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query lessons: %w", err)
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var sum Summary
		var extraction string
		var createdAt int64
		if err := rows.Scan(&sum.ID, &sum.Title, &sum.TotalSlides, &extraction, &createdAt); err != nil {
			return nil, fmt.Errorf("scan lesson: %w", err)
		}
		sum.Extraction = lesson.Extraction(extraction)
		sum.CreatedAt = time.UnixMilli(createdAt)
		out = append(out, sum)
	}
	return out, rows.Err()
}
