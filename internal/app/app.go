// Package app wires configuration into the save pipeline and exposes the
// operations used by the CLI and the local API.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ibeckermayer/x2notion/internal/auth"
	"github.com/ibeckermayer/x2notion/internal/config"
	"github.com/ibeckermayer/x2notion/internal/dom"
	"github.com/ibeckermayer/x2notion/internal/notion"
	"github.com/ibeckermayer/x2notion/internal/scraper"
	"github.com/ibeckermayer/x2notion/internal/store"
	"github.com/ibeckermayer/x2notion/internal/summary"
	"github.com/rs/zerolog/log"
)

// ErrSummaryDisabled is returned when the summary queue is not configured
var ErrSummaryDisabled = errors.New("summaries are disabled or DeepSeek API key is missing")

// Paths overrides where the app keeps its state
type Paths struct {
	// CacheDir holds the database, cookies and step snapshots
	CacheDir string
}

// App holds the application state.
type App struct {
	mu          sync.RWMutex
	authManager *auth.Manager    // immutable after creation
	store       *store.Store     // immutable after creation
	snapshots   *store.Snapshots // immutable after creation
	source      dom.Source       // nil means capture with the scraper

	// Mutable fields - use getSnapshot() for concurrent access.
	config  *config.Config
	scraper *scraper.Scraper
	service *Service
	queue   *summary.Queue
}

// snapshot holds fields that may be replaced by ReloadConfig.
// Use getSnapshot() to obtain a consistent, point-in-time copy.
type snapshot struct {
	config  *config.Config
	scraper *scraper.Scraper
	service *Service
	queue   *summary.Queue
}

// getSnapshot returns a snapshot of mutable fields under read lock.
func (a *App) getSnapshot() snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return snapshot{
		config:  a.config,
		scraper: a.scraper,
		service: a.service,
		queue:   a.queue,
	}
}

// New creates a new App instance. A non-nil source replaces live capture,
// e.g. dom.FileSource for saved pages.
func New(cfg *config.Config, paths Paths, source dom.Source) (*App, error) {
	if paths.CacheDir == "" {
		dir, err := config.CacheDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve cache dir: %w", err)
		}
		paths.CacheDir = dir
	}
	if err := os.MkdirAll(paths.CacheDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}

	st, err := store.New(filepath.Join(paths.CacheDir, "x2notion.db"))
	if err != nil {
		return nil, err
	}

	a := &App{
		authManager: auth.NewManager(auth.NewCookieStore(filepath.Join(paths.CacheDir, "cookies.json"))),
		store:       st,
		snapshots:   store.NewSnapshots(filepath.Join(paths.CacheDir, store.SnapshotDirName)),
		source:      source,
	}
	a.apply(a.build(cfg))
	return a, nil
}

// build creates the config-dependent components
func (a *App) build(cfg *config.Config) snapshot {
	sc := scraper.New(a.authManager, scraper.Options{
		Headless: cfg.Scraping.Headless,
		Timeout:  cfg.ScrapeTimeout(),
		Settle:   time.Duration(cfg.Scraping.SettleMillis) * time.Millisecond,
	})

	client := notion.New(cfg.Credentials(),
		notion.WithBaseURL(cfg.Notion.BaseURL),
		notion.WithVersion(cfg.Notion.Version),
		notion.WithRateLimit(cfg.Notion.RateLimit),
	)

	var queue *summary.Queue
	if cfg.Summary.Enabled {
		ds, err := summary.NewDeepSeek(cfg.Summary.APIKey, cfg.Summary.BaseURL, cfg.Summary.Model)
		if err != nil {
			log.Warn().Err(err).Msg("summaries disabled")
		} else {
			ds.WithSnapshots(a.snapshots)
			queue = summary.NewQueue(a.store, ds, client, cfg.Summary.Property, cfg.Summary.MaxRetries)
		}
	}

	var source dom.Source = sc
	if a.source != nil {
		source = a.source
	}

	opts := []Option{
		WithStore(a.store),
		WithSnapshots(a.snapshots),
		WithTypes(cfg.Notion.TypeOptions),
		WithMinCommentChars(cfg.Comments.MinChars),
		WithConcurrency(cfg.Scraping.Concurrency),
	}
	if queue != nil {
		opts = append(opts, WithQueue(queue))
	}

	return snapshot{
		config:  cfg,
		scraper: sc,
		service: NewService(source, client, cfg.Credentials(), opts...),
		queue:   queue,
	}
}

func (a *App) apply(s snapshot) {
	a.mu.Lock()
	a.config = s.config
	a.scraper = s.scraper
	a.service = s.service
	a.queue = s.queue
	a.mu.Unlock()
}

// Service returns the current save service
func (a *App) Service() *Service {
	return a.getSnapshot().service
}

// Scraper returns the current browser capture
func (a *App) Scraper() *scraper.Scraper {
	return a.getSnapshot().scraper
}

// Config returns the current configuration
func (a *App) Config() *config.Config {
	return a.getSnapshot().config
}

// Store returns the status store
func (a *App) Store() *store.Store {
	return a.store
}

// IsAuthenticated checks if X.com credentials are stored.
func (a *App) IsAuthenticated() bool {
	return a.authManager.IsAuthenticated()
}

// Login starts the X.com login flow.
func (a *App) Login(ctx context.Context) error {
	log.Info().Msg("opening browser for X.com authentication")
	if err := a.authManager.Login(ctx); err != nil {
		log.Error().Err(err).Msg("login failed")
		return err
	}
	return nil
}

// Logout clears stored X.com credentials.
func (a *App) Logout() error {
	return a.authManager.Logout()
}

// ProcessSummaries runs the summary queue once
func (a *App) ProcessSummaries(ctx context.Context) (summary.Result, error) {
	q := a.getSnapshot().queue
	if q == nil {
		return summary.Result{}, ErrSummaryDisabled
	}
	return q.ProcessAll(ctx)
}

// SummariesEnabled reports whether a summary queue is configured
func (a *App) SummariesEnabled() bool {
	return a.getSnapshot().queue != nil
}

// ReloadConfig reloads the configuration from disk.
func (a *App) ReloadConfig() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.apply(a.build(cfg))
	log.Info().Msg("configuration reloaded")
	return nil
}

// Close releases the database
func (a *App) Close() error {
	return a.store.Close()
}
