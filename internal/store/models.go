package store

import "time"

// Post status values
const (
	StatusSaved   = "saved"
	StatusPending = "pending"
	StatusDone    = "done"
	StatusDropped = "dropped"
)

// PostStatus records what happened to one saved post
type PostStatus struct {
	StatusID  string    `json:"status_id"`
	PostURL   string    `json:"post_url"`
	PageID    string    `json:"page_id"`
	PageURL   string    `json:"page_url"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Kind      string    `json:"kind"` // "post" or "thread"
	Status    string    `json:"status"`
	SavedAt   time.Time `json:"saved_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SummaryTask is a queued enrichment job for a created page
type SummaryTask struct {
	ID        string    `json:"id"`
	StatusID  string    `json:"status_id"`
	PageID    string    `json:"page_id"`
	Text      string    `json:"text"`
	Retries   int       `json:"retries"`
	LastError string    `json:"last_error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
