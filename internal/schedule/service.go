// Package schedule runs broadcast jobs on cron patterns and on demand.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/congresbot/congresbot/internal/broadcast"
	"github.com/congresbot/congresbot/internal/logger"
)

type Service struct {
	cron        *cron.Cron
	parser      cron.Parser
	broadcaster Broadcaster
	logger      *slog.Logger

	// jobCtx is handed to cron-fired runs and canceled when Stop gives up waiting.
	jobCtx    context.Context
	cancelJob context.CancelFunc

	mu      sync.Mutex
	jobs    map[string]Job
	entries map[string]cron.EntryID
}

func NewService(log *slog.Logger, broadcaster Broadcaster, loc *time.Location) *Service {
	if log == nil {
		log = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	jobCtx, cancel := context.WithCancel(context.Background())
	return &Service{
		cron:        cron.New(cron.WithParser(parser), cron.WithLocation(loc)),
		parser:      parser,
		broadcaster: broadcaster,
		logger:      log.With(slog.String("service", "schedule")),
		jobCtx:      jobCtx,
		cancelJob:   cancel,
		jobs:        map[string]Job{},
		entries:     map[string]cron.EntryID{},
	}
}

// Register adds job. Jobs with a Pattern are scheduled on the cron; the rest
// are only reachable through Run.
func (s *Service) Register(job Job) error {
	job.Name = strings.TrimSpace(job.Name)
	if job.Name == "" {
		return fmt.Errorf("schedule job name is required")
	}
	if job.Factory == nil {
		return fmt.Errorf("schedule job %s has no message factory", job.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, job.Name)
	}
	if pattern := strings.TrimSpace(job.Pattern); pattern != "" {
		if _, err := s.parser.Parse(pattern); err != nil {
			return fmt.Errorf("invalid cron pattern %q for %s: %w", pattern, job.Name, err)
		}
		entryID, err := s.cron.AddFunc(pattern, func() {
			_, _ = s.run(s.jobCtx, job)
		})
		if err != nil {
			return err
		}
		s.entries[job.Name] = entryID
	}
	s.jobs[job.Name] = job
	return nil
}

// Start begins firing scheduled jobs.
func (s *Service) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", slog.Int("jobs", len(s.entries)))
}

// Stop halts the cron and waits for running jobs until ctx is done, after
// which their context is canceled.
func (s *Service) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.cancelJob()
		return nil
	case <-ctx.Done():
		s.cancelJob()
		return fmt.Errorf("waiting for scheduled jobs: %w", ctx.Err())
	}
}

// Run executes the named job immediately.
func (s *Service) Run(ctx context.Context, name string) (broadcast.Report, error) {
	s.mu.Lock()
	job, ok := s.jobs[strings.TrimSpace(name)]
	s.mu.Unlock()
	if !ok {
		return broadcast.Report{}, fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	return s.run(ctx, job)
}

// Next reports when the named job fires next; ok is false for unscheduled jobs.
func (s *Service) Next(name string) (time.Time, bool) {
	s.mu.Lock()
	entryID, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	next := s.cron.Entry(entryID).Next
	return next, !next.IsZero()
}

func (s *Service) run(ctx context.Context, job Job) (report broadcast.Report, err error) {
	done := logger.Track()
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("schedule job %s panicked: %v", job.Name, p)
			s.logger.Error("schedule job panicked", slog.String("job", job.Name), slog.Any("panic", p))
		}
	}()

	report, err = s.broadcaster.Broadcast(ctx, job.Category, job.Factory)
	if err != nil {
		s.logger.Error("schedule job failed", slog.String("job", job.Name), slog.Any("error", err), done())
		return report, err
	}
	s.logger.Info("schedule job finished",
		slog.String("job", job.Name),
		slog.Int("sent", report.Sent()),
		slog.Int("skipped", report.Skipped()),
		slog.Int("failed", report.Failed()),
		done(),
	)
	return report, nil
}
