package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// DefaultJobTimeout bounds a single scheduled run
const DefaultJobTimeout = 10 * time.Minute

// Job represents a scheduled task
type Job func(ctx context.Context) error

// Scheduler manages periodic tasks
type Scheduler struct {
	cron     *cron.Cron
	timezone *time.Location
	timeout  time.Duration

	mu   sync.Mutex
	jobs map[string]cron.EntryID
}

// New creates a new scheduler with the given timezone. An empty timezone uses local time.
func New(timezone string) (*Scheduler, error) {
	loc := time.Local
	if timezone != "" {
		var err error
		loc, err = time.LoadLocation(timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone %s: %w", timezone, err)
		}
	}

	// SkipIfStillRunning keeps one summary pass at a time.
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	return &Scheduler{
		cron:     c,
		jobs:     make(map[string]cron.EntryID),
		timezone: loc,
		timeout:  DefaultJobTimeout,
	}, nil
}

// WithTimeout overrides the per-run timeout
func (s *Scheduler) WithTimeout(d time.Duration) *Scheduler {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// AddJob adds a job with a cron schedule.
// Both "*/5 * * * *" and descriptors like "@every 5m" are accepted.
func (s *Scheduler) AddJob(name, schedule string, job Job) error {
	entryID, err := s.cron.AddFunc(schedule, func() {
		s.run(name, job)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	s.mu.Lock()
	if old, ok := s.jobs[name]; ok {
		s.cron.Remove(old)
	}
	s.jobs[name] = entryID
	s.mu.Unlock()

	log.Info().Str("component", "scheduler").Str("job", name).Str("schedule", schedule).Msg("added job")
	return nil
}

// AddSummaryJob schedules the summary queue
func (s *Scheduler) AddSummaryJob(schedule string, job Job) error {
	if schedule == "" {
		schedule = "@every 5m"
	}
	return s.AddJob("summary", schedule, job)
}

func (s *Scheduler) run(name string, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	logger := log.With().Str("component", "scheduler").Str("job", name).Logger()
	logger.Debug().Msg("starting job")
	start := time.Now()

	if err := job(ctx); err != nil {
		logger.Error().Err(err).Msg("job failed")
		return
	}
	logger.Debug().Dur("took", time.Since(start)).Msg("job completed")
}

// RemoveJob removes a scheduled job
func (s *Scheduler) RemoveJob(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entryID, ok := s.jobs[name]; ok {
		s.cron.Remove(entryID)
		delete(s.jobs, name)
		log.Info().Str("component", "scheduler").Str("job", name).Msg("removed job")
	}
}

// Start begins running scheduled jobs
func (s *Scheduler) Start() {
	log.Info().Str("component", "scheduler").Msg("starting scheduler")
	s.cron.Start()
}

// Stop halts the scheduler. The returned context is done when running jobs finish.
func (s *Scheduler) Stop() context.Context {
	log.Info().Str("component", "scheduler").Msg("stopping scheduler")
	return s.cron.Stop()
}

// RunNow immediately executes a job
func (s *Scheduler) RunNow(ctx context.Context, name string, job Job) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	log.Info().Str("component", "scheduler").Str("job", name).Msg("running job now")
	return job(ctx)
}

// ListJobs returns info about scheduled jobs
func (s *Scheduler) ListJobs() []JobInfo {
	entries := s.cron.Entries()

	s.mu.Lock()
	defer s.mu.Unlock()
	infos := make([]JobInfo, 0, len(s.jobs))
	for name, entryID := range s.jobs {
		for _, entry := range entries {
			if entry.ID == entryID {
				infos = append(infos, JobInfo{
					Name:    name,
					NextRun: entry.Next,
					LastRun: entry.Prev,
				})
				break
			}
		}
	}
	return infos
}

// JobInfo contains information about a scheduled job
type JobInfo struct {
	Name    string    `json:"name"`
	NextRun time.Time `json:"next_run"`
	LastRun time.Time `json:"last_run"`
}
