package categorizer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"
)

// Observer receives classification events, typically to export metrics.
type Observer interface {
	ObserveTalent(c Categorization)
	ObserveReport(talents int, elapsed time.Duration)
}

// TableObserver is optionally implemented by an Observer to track the active table.
type TableObserver interface {
	ObserveTable(t *CorrespondenceTable)
}

// Service orchestrates table lookups, per-talent classification and report assembly.
type Service struct {
	cfgMu sync.RWMutex
	cfg   Config

	tableMu sync.RWMutex
	table   *CorrespondenceTable

	logger   logrus.FieldLogger
	observer Observer
}

// NewService constructs a service with the given table and configuration.
// logger and observer may be nil.
func NewService(cfg Config, table *CorrespondenceTable, logger logrus.FieldLogger, observer Observer) (*Service, error) {
	if table == nil {
		return nil, errors.New("correspondence table is required")
	}
	cfg.ApplyDefaults()
	if logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		logger = discard
	}
	s := &Service{
		cfg:      cfg,
		table:    table,
		logger:   logger,
		observer: observer,
	}
	s.observeTable(table)
	return s, nil
}

func (s *Service) observeTable(t *CorrespondenceTable) {
	if o, ok := s.observer.(TableObserver); ok {
		o.ObserveTable(t)
	}
}

// Config returns a copy of the current configuration.
func (s *Service) Config() Config {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg.Clone()
}

// UpdateConfig replaces the configuration.
func (s *Service) UpdateConfig(cfg Config) {
	cfg.ApplyDefaults()
	s.cfgMu.Lock()
	s.cfg = cfg
	s.cfgMu.Unlock()
}

// Table returns the active correspondence table.
func (s *Service) Table() *CorrespondenceTable {
	s.tableMu.RLock()
	defer s.tableMu.RUnlock()
	return s.table
}

// ReloadTable loads the table at path and swaps it in. On failure the current
// table stays active.
func (s *Service) ReloadTable(path string) error {
	table, dups, err := LoadCorrespondenceTable(path)
	if err != nil {
		return fmt.Errorf("load correspondence table: %w", err)
	}
	for _, d := range dups {
		s.logger.Warnf("duplicate input label %q -> %q ignored", d.Input, d.Output)
	}
	for _, out := range table.NonCanonicalOutputs() {
		s.logger.Warnf("output category %q is not a report column", out)
	}
	s.tableMu.Lock()
	s.table = table
	s.tableMu.Unlock()
	s.observeTable(table)
	s.logger.Infof("Loaded %d correspondence entries from %s", table.Len(), path)
	return nil
}

// Categorize classifies a single note against the active table.
func (s *Service) Categorize(note string) Categorization {
	c := CategorizeDetailed(note, s.Table())
	if s.observer != nil {
		s.observer.ObserveTalent(c)
	}
	return c
}

// BuildReport classifies talents in parallel and assembles the report. Row
// order follows talents. The only error is cancellation of ctx.
func (s *Service) BuildReport(ctx context.Context, talents []Talent, selected []string) (Report, error) {
	start := time.Now()
	cfg := s.Config()
	table := s.Table()

	results := make([]Categorization, len(talents))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i := range talents {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = CategorizeParsed(ParseAdNoteValue(talents[i].Note()), table)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, fmt.Errorf("build report: %w", err)
	}

	report := Report{
		Categories: FilterCategories(selected),
		Rows:       make([]ReportRow, len(talents)),
	}
	unmapped := make(map[string]int)
	for i, t := range talents {
		report.Rows[i] = buildRow(t, results[i].Result, report.Categories)
		for _, label := range results[i].Unmapped {
			unmapped[label]++
		}
		if s.observer != nil {
			s.observer.ObserveTalent(results[i])
		}
	}
	elapsed := time.Since(start)
	if s.observer != nil {
		s.observer.ObserveReport(len(talents), elapsed)
	}
	s.logUnmapped(unmapped)
	s.logger.Infof("Built report: %d talents, %d categories in %s", len(talents), len(report.Categories), elapsed.Round(time.Millisecond))
	return report, nil
}

func (s *Service) logUnmapped(unmapped map[string]int) {
	if len(unmapped) == 0 {
		return
	}
	labels := make([]string, 0, len(unmapped))
	for label := range unmapped {
		labels = append(labels, label)
	}
	slices.SortFunc(labels, func(a, b string) int {
		if n := unmapped[b] - unmapped[a]; n != 0 {
			return n
		}
		return strings.Compare(a, b)
	})
	for _, label := range labels {
		s.logger.Debugf("label %q not in correspondence table (%d talents), routed to %s", label, unmapped[label], OtherCategory)
	}
}
