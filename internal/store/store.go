package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ibeckermayer/x2notion/internal/types"
	_ "modernc.org/sqlite"
)

// Store handles all database operations
type Store struct {
	db *sql.DB
}

// New creates a new Store with SQLite backend
func New(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// sqlite allows one writer; the queue and the save path share this handle
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS post_status (
		status_id TEXT PRIMARY KEY,
		post_url TEXT NOT NULL,
		page_id TEXT NOT NULL,
		page_url TEXT NOT NULL,
		title TEXT,
		author TEXT,
		kind TEXT NOT NULL,
		status TEXT NOT NULL,
		saved_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS summary_queue (
		id TEXT PRIMARY KEY,
		status_id TEXT NOT NULL,
		page_id TEXT NOT NULL,
		text TEXT NOT NULL,
		retries INTEGER NOT NULL DEFAULT 0,
		last_error TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_post_status_saved_at ON post_status(saved_at);
	CREATE INDEX IF NOT EXISTS idx_summary_queue_created_at ON summary_queue(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// RecordSave inserts or replaces the status of a saved post
func (s *Store) RecordSave(p *PostStatus) error {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO post_status (status_id, post_url, page_id, page_url, title, author,
			kind, status, saved_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(status_id) DO UPDATE SET
			page_id = excluded.page_id,
			page_url = excluded.page_url,
			title = excluded.title,
			kind = excluded.kind,
			status = excluded.status,
			saved_at = excluded.saved_at,
			updated_at = excluded.updated_at
	`, p.StatusID, p.PostURL, p.PageID, p.PageURL, p.Title, p.Author,
		p.Kind, p.Status, p.SavedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to record save: %w", err)
	}
	return nil
}

// SetStatus merges a new status into an existing record
func (s *Store) SetStatus(statusID, status string) error {
	res, err := s.db.Exec(`UPDATE post_status SET status = ?, updated_at = ? WHERE status_id = ?`,
		status, time.Now(), statusID)
	if err != nil {
		return fmt.Errorf("failed to set status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return types.ErrNotFound
	}
	return nil
}

// GetStatus returns the record for a post
func (s *Store) GetStatus(statusID string) (*PostStatus, error) {
	row := s.db.QueryRow(`
		SELECT status_id, post_url, page_id, page_url, title, author, kind, status, saved_at, updated_at
		FROM post_status WHERE status_id = ?
	`, statusID)

	var p PostStatus
	err := row.Scan(&p.StatusID, &p.PostURL, &p.PageID, &p.PageURL, &p.Title, &p.Author,
		&p.Kind, &p.Status, &p.SavedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// RecentSaves returns the most recently saved posts
func (s *Store) RecentSaves(limit int) ([]PostStatus, error) {
	rows, err := s.db.Query(`
		SELECT status_id, post_url, page_id, page_url, title, author, kind, status, saved_at, updated_at
		FROM post_status
		ORDER BY saved_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PostStatus
	for rows.Next() {
		var p PostStatus
		if err := rows.Scan(&p.StatusID, &p.PostURL, &p.PageID, &p.PageURL, &p.Title, &p.Author,
			&p.Kind, &p.Status, &p.SavedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// EnqueueTask adds a summary task
func (s *Store) EnqueueTask(t *SummaryTask) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO summary_queue (id, status_id, page_id, text, retries, last_error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.StatusID, t.PageID, t.Text, t.Retries, t.LastError, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

// PendingTasks returns queued tasks oldest first
func (s *Store) PendingTasks() ([]SummaryTask, error) {
	rows, err := s.db.Query(`
		SELECT id, status_id, page_id, text, retries, COALESCE(last_error, ''), created_at
		FROM summary_queue
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []SummaryTask
	for rows.Next() {
		var t SummaryTask
		if err := rows.Scan(&t.ID, &t.StatusID, &t.PageID, &t.Text, &t.Retries, &t.LastError, &t.CreatedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// CompleteTask removes a finished task
func (s *Store) CompleteTask(id string) error {
	_, err := s.db.Exec(`DELETE FROM summary_queue WHERE id = ?`, id)
	return err
}

// FailTask bumps the retry counter of a task and returns the new count
func (s *Store) FailTask(id string, cause error) (int, error) {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	if _, err := s.db.Exec(`UPDATE summary_queue SET retries = retries + 1, last_error = ? WHERE id = ?`, msg, id); err != nil {
		return 0, fmt.Errorf("failed to update task: %w", err)
	}

	var retries int
	if err := s.db.QueryRow(`SELECT retries FROM summary_queue WHERE id = ?`, id).Scan(&retries); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, types.ErrNotFound
		}
		return 0, err
	}
	return retries, nil
}
