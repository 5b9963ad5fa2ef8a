package scheduler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/Handydigital-dev/cmlist/categorizer"
	"github.com/Handydigital-dev/cmlist/internal/logger"
	"github.com/Handydigital-dev/cmlist/internal/talentdb"
	"github.com/robfig/cron/v3"
)

// Searcher finds talents for the scheduled report.
type Searcher interface {
	Search(ctx context.Context, f talentdb.Filter) ([]categorizer.Talent, error)
}

// RunObserver is notified after every run.
type RunObserver interface {
	ObserveScheduledRun(err error)
}

type Scheduler struct {
	cron     *cron.Cron
	svc      *categorizer.Service
	searcher Searcher
	observer RunObserver
	now      func() time.Time
	ctx      context.Context
	cancel   context.CancelFunc
	started  bool
	mu       sync.Mutex
	runMu    sync.Mutex
}

// locUTC is the timezone cron expressions are evaluated in.
var locUTC = time.UTC

// NewScheduler creates a scheduler; observer may be nil.
func NewScheduler(svc *categorizer.Service, searcher Searcher, observer RunObserver) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(locUTC)),
		svc:      svc,
		searcher: searcher,
		observer: observer,
		now:      time.Now,
	}
}

// Start registers the report job and starts the cron loop. A scheduler
// starts at most once.
func (s *Scheduler) Start() error {
	cfg := s.svc.Config()
	if cfg.Schedule.Cron == "" {
		return fmt.Errorf("schedule.cron is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.New("scheduler already started")
	}
	if _, err := s.cron.AddFunc(cfg.Schedule.Cron, s.runScheduled); err != nil {
		return fmt.Errorf("register report job: %w", err)
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.started = true
	s.cron.Start()
	logger.Infof("[Scheduler] started, report job: %s", cfg.Schedule.Cron)
	return nil
}

// Stop cancels a running job and waits for the cron loop to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Infof("[Scheduler] stopped")
}

func (s *Scheduler) runScheduled() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	path, err := s.RunOnce(ctx)
	if err != nil {
		logger.Errorf("[Scheduler] report run failed: %v", err)
		return
	}
	logger.Infof("[Scheduler] report written to %s", path)
}

// RunOnce reloads the correspondence table, searches the database with the
// configured filter and writes a timestamped workbook into the output
// directory. It returns the written path. Runs never overlap.
func (s *Scheduler) RunOnce(ctx context.Context) (path string, err error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.observer != nil {
		defer func() { s.observer.ObserveScheduledRun(err) }()
	}

	cfg := s.svc.Config()
	// Keep serving with the previous table when the file is broken.
	if err := s.svc.ReloadTable(cfg.Table.Path); err != nil {
		logger.Warnf("[Scheduler] %v; keeping current table", err)
	}

	filter, err := talentdb.FilterFromConfig(cfg.Schedule.Search)
	if err != nil {
		return "", err
	}
	talents, err := s.searcher.Search(ctx, filter)
	if err != nil {
		return "", fmt.Errorf("search talents: %w", err)
	}
	report, err := s.svc.BuildReport(ctx, talents, cfg.Schedule.Categories)
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("search_output_%s.xlsx", s.now().In(locUTC).Format("20060102150405"))
	path = filepath.Join(cfg.Schedule.OutputDir, name)
	if err := categorizer.SaveReport(path, report); err != nil {
		return "", fmt.Errorf("save report: %w", err)
	}
	return path, nil
}
