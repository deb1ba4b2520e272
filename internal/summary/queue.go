package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/ibeckermayer/x2notion/internal/store"
	"github.com/ibeckermayer/x2notion/internal/types"
	"github.com/rs/zerolog/log"
)

// DefaultMaxRetries is how many failed attempts drop a task
const DefaultMaxRetries = 3

// ErrQueueBusy is returned when ProcessAll is already running
var ErrQueueBusy = errors.New("summary queue is already being processed")

// Task asks for the page created for a post to be summarized
type Task struct {
	StatusID string `json:"status_id"`
	PageID   string `json:"page_id"`
	Text     string `json:"text"`
}

// PageUpdater writes the summary onto the page
type PageUpdater interface {
	UpdateRichTextProperty(ctx context.Context, pageID, property, text string) error
}

// TaskStore persists queued tasks and post status
type TaskStore interface {
	EnqueueTask(t *store.SummaryTask) error
	PendingTasks() ([]store.SummaryTask, error)
	CompleteTask(id string) error
	FailTask(id string, cause error) (int, error)
	SetStatus(statusID, status string) error
}

// Result counts the outcome of one ProcessAll run
type Result struct {
	Done    int `json:"done"`
	Retried int `json:"retried"`
	Dropped int `json:"dropped"`
}

// Queue is a durable, best-effort summary queue. It is decoupled from saving:
// a failed summary never fails the save that enqueued it.
type Queue struct {
	store      TaskStore
	summarizer Summarizer
	pages      PageUpdater
	property   string
	maxRetries int

	running sync.Mutex
}

// NewQueue creates a queue writing summaries into the given page property
func NewQueue(s TaskStore, summarizer Summarizer, pages PageUpdater, property string, maxRetries int) *Queue {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	if property == "" {
		property = "Comments"
	}
	return &Queue{
		store:      s,
		summarizer: summarizer,
		pages:      pages,
		property:   property,
		maxRetries: maxRetries,
	}
}

// Enqueue stores a task and returns its id
func (q *Queue) Enqueue(_ context.Context, t Task) (string, error) {
	if t.PageID == "" {
		return "", &types.ValidationError{Field: "page_id", Message: "summary task needs a page id"}
	}
	id := uuid.NewString()
	if err := q.store.EnqueueTask(&store.SummaryTask{
		ID:       id,
		StatusID: t.StatusID,
		PageID:   t.PageID,
		Text:     t.Text,
	}); err != nil {
		return "", err
	}
	log.Debug().Str("component", "summary").Str("task", id).Str("page", t.PageID).Msg("enqueued summary task")
	return id, nil
}

// ProcessAll attempts every queued task once. Successful and empty summaries
// complete the task; failures are retried on the next run until maxRetries.
func (q *Queue) ProcessAll(ctx context.Context) (Result, error) {
	var res Result
	if !q.running.TryLock() {
		return res, ErrQueueBusy
	}
	defer q.running.Unlock()

	tasks, err := q.store.PendingTasks()
	if err != nil {
		return res, fmt.Errorf("failed to load summary queue: %w", err)
	}
	if len(tasks) == 0 {
		log.Debug().Str("component", "summary").Msg("summary queue is empty")
		return res, nil
	}

	for _, t := range tasks {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		if err := q.process(ctx, t); err != nil {
			retries, ferr := q.store.FailTask(t.ID, err)
			if ferr != nil {
				return res, fmt.Errorf("failed to record task failure: %w", ferr)
			}
			if retries < q.maxRetries {
				log.Info().Err(err).Str("component", "summary").Str("task", t.ID).Int("retries", retries).Msg("summary failed, will retry")
				res.Retried++
				continue
			}
			log.Warn().Err(err).Str("component", "summary").Str("task", t.ID).Msg("summary task failed too many times, dropping")
			q.finish(t, store.StatusDropped)
			res.Dropped++
			continue
		}

		q.finish(t, store.StatusDone)
		res.Done++
	}

	log.Info().Str("component", "summary").Int("done", res.Done).Int("retried", res.Retried).Int("dropped", res.Dropped).Msg("summary queue processed")
	return res, nil
}

func (q *Queue) process(ctx context.Context, t store.SummaryTask) error {
	summary, err := q.summarizer.Summarize(ctx, t.Text)
	if err != nil {
		return err
	}
	if strings.TrimSpace(summary) == "" {
		return nil
	}
	return q.pages.UpdateRichTextProperty(ctx, t.PageID, q.property, summary)
}

func (q *Queue) finish(t store.SummaryTask, status string) {
	if err := q.store.CompleteTask(t.ID); err != nil {
		log.Error().Err(err).Str("task", t.ID).Msg("failed to remove summary task")
	}
	if t.StatusID == "" {
		return
	}
	if err := q.store.SetStatus(t.StatusID, status); err != nil && !types.IsNotFound(err) {
		log.Error().Err(err).Str("status_id", t.StatusID).Msg("failed to update post status")
	}
}
