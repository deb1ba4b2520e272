package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ibeckermayer/x2notion/internal/blocks"
	"github.com/ibeckermayer/x2notion/internal/dom"
	"github.com/ibeckermayer/x2notion/internal/extract"
	"github.com/ibeckermayer/x2notion/internal/notion"
	"github.com/ibeckermayer/x2notion/internal/store"
	"github.com/ibeckermayer/x2notion/internal/summary"
	"github.com/ibeckermayer/x2notion/internal/thread"
	"github.com/ibeckermayer/x2notion/internal/types"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"
)

// Page kinds recorded in the status store
const (
	KindPost   = "post"
	KindThread = "thread"
)

// DefaultConcurrency bounds SaveMany
const DefaultConcurrency = 2

// Service implements the extraction and submission operations over one page source
type Service struct {
	source    dom.Source
	notion    *notion.Client
	builder   *blocks.Builder
	store     *store.Store
	queue     *summary.Queue
	snapshots *store.Snapshots

	creds        types.Credentials
	defaultTypes []string
	minChars     int
	concurrency  int
	now          func() time.Time

	mu       sync.Mutex
	inflight map[string]struct{}
}

// Option configures a Service
type Option func(*Service)

// WithStore records every save in st
func WithStore(st *store.Store) Option { return func(s *Service) { s.store = st } }

// WithQueue enqueues a summary task for every created page
func WithQueue(q *summary.Queue) Option { return func(s *Service) { s.queue = q } }

// WithSnapshots writes the output of each pipeline step for debugging
func WithSnapshots(sn *store.Snapshots) Option { return func(s *Service) { s.snapshots = sn } }

// WithTypes sets the Type values used when a save does not choose any
func WithTypes(t []string) Option { return func(s *Service) { s.defaultTypes = t } }

// WithMinCommentChars overrides the standalone comment threshold
func WithMinCommentChars(n int) Option { return func(s *Service) { s.minChars = n } }

// WithConcurrency bounds SaveMany
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithBuilder replaces the block builder
func WithBuilder(b *blocks.Builder) Option { return func(s *Service) { s.builder = b } }

// NewService creates a service reading pages from source and writing to Notion as creds
func NewService(source dom.Source, client *notion.Client, creds types.Credentials, opts ...Option) *Service {
	s := &Service{
		source:      source,
		notion:      client,
		builder:     blocks.New(nil),
		creds:       creds,
		minChars:    thread.DefaultMinCommentChars,
		concurrency: DefaultConcurrency,
		now:         time.Now,
		inflight:    make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SaveOptions tunes SavePost and SaveThread
type SaveOptions struct {
	Title    string   `json:"title,omitempty"`
	Types    []string `json:"types,omitempty"`
	Comments bool     `json:"comments,omitempty"`
}

// SaveResult describes a created page
type SaveResult struct {
	PageID   string `json:"page_id"`
	PageURL  string `json:"page_url"`
	StatusID string `json:"status_id,omitempty"`
	Posts    int    `json:"posts"`
	Comments int    `json:"comments"`
	Blocks   int    `json:"blocks"`
	TaskID   string `json:"summary_task,omitempty"`
}

// ThreadRequest is a thread to submit as one page
type ThreadRequest struct {
	Posts    []types.ExtractedPost `json:"posts"`
	Comments []types.CommentItem   `json:"comments,omitempty"`
	Title    string                `json:"title,omitempty"`
	Types    []string              `json:"types,omitempty"`
}

type pageView struct {
	page       *dom.Page
	extractor  *extract.Extractor
	aggregator *thread.Aggregator
}

func (s *Service) open(ctx context.Context, pageURL string) (*pageView, error) {
	page, err := s.source.Snapshot(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	s.snapshotPage(page)

	ex := extract.New(page.URL).WithClock(s.now)
	return &pageView{
		page:       page,
		extractor:  ex,
		aggregator: thread.New(ex).WithMinChars(s.minChars),
	}, nil
}

// ExtractPost extracts the main post of a status page
func (s *Service) ExtractPost(ctx context.Context, pageURL string) (*types.ExtractedPost, error) {
	v, err := s.open(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	post, err := v.extractor.ExtractMain(v.page)
	if err != nil {
		return nil, err
	}
	s.snapshotJSON(store.StepExtract, post)
	return post, nil
}

// ExtractContext probes a status page for a thread and comments
func (s *Service) ExtractContext(ctx context.Context, pageURL string) (*types.ThreadContext, error) {
	v, err := s.open(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return v.aggregator.ProbeContext(v.page.TimelineElements())
}

// ExtractFullThread extracts the author's consecutive posts from the top of the page
func (s *Service) ExtractFullThread(ctx context.Context, pageURL string) ([]types.ExtractedPost, error) {
	v, err := s.open(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	posts, err := v.aggregator.CollectThread(v.page.TimelineElements())
	if err != nil {
		return nil, err
	}
	s.snapshotJSON(store.StepExtract, posts)
	return posts, nil
}

// ExtractComments extracts the comment section below the thread
func (s *Service) ExtractComments(ctx context.Context, pageURL string) ([]types.CommentItem, error) {
	v, err := s.open(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return v.aggregator.CollectComments(v.page.TimelineElements())
}

// SubmitPost creates a page for one post. Credentials are checked before anything else.
func (s *Service) SubmitPost(ctx context.Context, post *types.ExtractedPost, creds types.Credentials) (*SaveResult, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	if post == nil {
		return nil, &types.ValidationError{Field: "post", Message: "no post to save"}
	}
	release, err := s.acquire(postKey(post))
	if err != nil {
		return nil, err
	}
	defer release()
	return s.submitPost(ctx, post, nil, SaveOptions{}, creds)
}

func (s *Service) submitPost(ctx context.Context, post *types.ExtractedPost, comments []types.CommentItem, opts SaveOptions, creds types.Credentials) (*SaveResult, error) {
	content := s.builder.Build(post, 0)
	content = append(content, s.builder.BuildCommentSection(comments, post.Author.Handle)...)
	content = append(content, s.builder.BuildFooter(s.now())...)

	title := opts.Title
	if title == "" {
		title = post.Title
	}
	return s.submit(ctx, creds, submission{
		key:      postKey(post),
		kind:     KindPost,
		lead:     post,
		title:    title,
		types:    opts.Types,
		content:  content,
		text:     post.Text(),
		posts:    1,
		comments: countPosts(comments),
	})
}

// SubmitThread creates one page for a thread and, optionally, its comments.
// Comments that repeat a thread post are dropped.
func (s *Service) SubmitThread(ctx context.Context, req ThreadRequest, creds types.Credentials) (*SaveResult, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	if len(req.Posts) == 0 {
		return nil, &types.ValidationError{Field: "posts", Message: "thread has no posts"}
	}
	release, err := s.acquire(postKey(&req.Posts[0]))
	if err != nil {
		return nil, err
	}
	defer release()
	return s.submitThread(ctx, req, creds)
}

func (s *Service) submitThread(ctx context.Context, req ThreadRequest, creds types.Credentials) (*SaveResult, error) {
	lead := &req.Posts[0]
	comments := thread.ExcludeThreadDuplicates(req.Posts, req.Comments)

	content := s.builder.BuildThread(req.Posts)
	content = append(content, s.builder.BuildCommentSection(comments, lead.Author.Handle)...)
	content = append(content, s.builder.BuildFooter(s.now())...)

	title := req.Title
	if title == "" {
		title = lead.Title
	}
	texts := make([]string, 0, len(req.Posts))
	for i := range req.Posts {
		texts = append(texts, req.Posts[i].Text())
	}

	return s.submit(ctx, creds, submission{
		key:      postKey(lead),
		kind:     KindThread,
		lead:     lead,
		title:    title,
		types:    req.Types,
		content:  content,
		text:     strings.Join(texts, "\n\n"),
		posts:    len(req.Posts),
		comments: countPosts(comments),
	})
}

// SavePost captures pageURL and saves its main post
func (s *Service) SavePost(ctx context.Context, pageURL string, opts SaveOptions) (*SaveResult, error) {
	if err := s.creds.Validate(); err != nil {
		return nil, err
	}
	release, err := s.acquire(pageKey(pageURL))
	if err != nil {
		return nil, err
	}
	defer release()

	v, err := s.open(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	post, err := v.extractor.ExtractMain(v.page)
	if err != nil {
		return nil, err
	}
	s.snapshotJSON(store.StepExtract, post)

	var comments []types.CommentItem
	if opts.Comments {
		if comments, err = v.aggregator.CollectComments(v.page.TimelineElements()); err != nil {
			return nil, err
		}
	}
	return s.submitPost(ctx, post, comments, opts, s.creds)
}

// SaveThread captures pageURL and saves the author's thread as one page
func (s *Service) SaveThread(ctx context.Context, pageURL string, opts SaveOptions) (*SaveResult, error) {
	if err := s.creds.Validate(); err != nil {
		return nil, err
	}
	release, err := s.acquire(pageKey(pageURL))
	if err != nil {
		return nil, err
	}
	defer release()

	v, err := s.open(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	elements := v.page.TimelineElements()
	posts, err := v.aggregator.CollectThread(elements)
	if err != nil {
		return nil, err
	}

	req := ThreadRequest{Posts: posts, Title: opts.Title, Types: opts.Types}
	if opts.Comments {
		if req.Comments, err = v.aggregator.CollectComments(elements); err != nil {
			return nil, err
		}
	}
	s.snapshotJSON(store.StepExtract, req)
	if len(req.Posts) == 0 {
		return nil, types.ErrNotFound
	}
	return s.submitThread(ctx, req, s.creds)
}

// Outcome is the result of saving one URL in SaveMany
type Outcome struct {
	URL    string      `json:"url"`
	Result *SaveResult `json:"result,omitempty"`
	Err    error       `json:"-"`
}

// SaveMany saves several pages concurrently. Each URL gets its own outcome; the
// returned error joins every failure.
func (s *Service) SaveMany(ctx context.Context, urls []string, asThread bool, opts SaveOptions) ([]Outcome, error) {
	if err := s.creds.Validate(); err != nil {
		return nil, err
	}

	out := make([]Outcome, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, u := range urls {
		g.Go(func() error {
			save := s.SavePost
			if asThread {
				save = s.SaveThread
			}
			res, err := save(gctx, u, opts)
			out[i] = Outcome{URL: u, Result: res, Err: err}
			if err != nil {
				log.Warn().Err(err).Str("component", "app").Str("url", u).Msg("save failed")
			}
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, o := range out {
		if o.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", o.URL, o.Err))
		}
	}
	return out, errors.Join(errs...)
}

type submission struct {
	key      string
	kind     string
	lead     *types.ExtractedPost
	title    string
	types    []string
	content  []types.Block
	text     string
	posts    int
	comments int
}

// submit creates the page and records it
func (s *Service) submit(ctx context.Context, creds types.Credentials, sub submission) (*SaveResult, error) {
	s.snapshotJSON(store.StepBlocks, sub.content)

	pageTypes := sub.types
	if len(pageTypes) == 0 {
		pageTypes = s.defaultTypes
	}
	savedAt := s.now()

	created, err := s.notion.WithCredentials(creds).CreatePage(ctx, notion.Page{
		Title:    sub.title,
		URL:      sub.lead.URL,
		Types:    pageTypes,
		Sender:   sub.lead.Author.Display(),
		PostDate: sub.lead.PostedAt,
		SaveDate: savedAt,
		Children: sub.content,
	})
	if err != nil {
		return nil, err
	}

	res := &SaveResult{
		PageID:   created.ID,
		PageURL:  created.URL,
		StatusID: sub.lead.StatusID,
		Posts:    sub.posts,
		Comments: sub.comments,
		Blocks:   len(sub.content),
	}

	status := store.StatusSaved
	if s.queue != nil && strings.TrimSpace(sub.text) != "" {
		id, err := s.queue.Enqueue(ctx, summary.Task{StatusID: sub.key, PageID: created.ID, Text: sub.text})
		if err != nil {
			log.Warn().Err(err).Str("component", "app").Str("page", created.ID).Msg("failed to enqueue summary")
		} else {
			res.TaskID = id
			status = store.StatusPending
		}
	}

	if s.store != nil {
		if err := s.store.RecordSave(&store.PostStatus{
			StatusID: sub.key,
			PostURL:  sub.lead.URL,
			PageID:   created.ID,
			PageURL:  created.URL,
			Title:    sub.title,
			Author:   sub.lead.Author.Display(),
			Kind:     sub.kind,
			Status:   status,
			SavedAt:  savedAt,
		}); err != nil {
			log.Warn().Err(err).Str("component", "app").Msg("failed to record save")
		}
	}

	log.Info().Str("component", "app").Str("kind", sub.kind).Str("url", sub.lead.URL).
		Str("page", created.URL).Int("blocks", res.Blocks).Msg("saved to Notion")
	return res, nil
}

// acquire marks key as being saved. A second save of the same post fails
// with ErrSaveInProgress until release is called.
func (s *Service) acquire(key string) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[key]; busy {
		return nil, types.ErrSaveInProgress
	}
	s.inflight[key] = struct{}{}
	return func() {
		s.mu.Lock()
		delete(s.inflight, key)
		s.mu.Unlock()
	}, nil
}

func postKey(p *types.ExtractedPost) string {
	if p.StatusID != "" {
		return p.StatusID
	}
	return p.URL
}

func pageKey(pageURL string) string {
	if id := dom.StatusID(pageURL); id != "" {
		return id
	}
	return pageURL
}

func countPosts(items []types.CommentItem) int {
	n := 0
	for _, it := range items {
		n += len(it.Posts)
	}
	return n
}

func (s *Service) snapshotPage(p *dom.Page) {
	if s.snapshots == nil || p.Root == nil {
		return
	}
	var buf bytes.Buffer
	if err := html.Render(&buf, p.Root); err != nil {
		return
	}
	if path, err := s.snapshots.SaveText(store.StepCapture, buf.String(), ".html"); err != nil {
		log.Warn().Err(err).Msg("failed to cache page capture")
	} else {
		log.Debug().Str("path", path).Msg("cached page capture")
	}
}

func (s *Service) snapshotJSON(step store.StepName, v any) {
	if s.snapshots == nil {
		return
	}
	if path, err := store.SaveJSON(s.snapshots, step, v); err != nil {
		log.Warn().Err(err).Str("step", string(step)).Msg("failed to cache step output")
	} else {
		log.Debug().Str("step", string(step)).Str("path", path).Msg("cached step output")
	}
}
