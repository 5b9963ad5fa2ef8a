// Package metrics exports classification counters for Prometheus.
package metrics

import (
	"time"

	"github.com/Handydigital-dev/cmlist/categorizer"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cmlist"

// Exporter implements categorizer.Observer on top of Prometheus collectors.
type Exporter struct {
	TalentsTotal   prometheus.Counter
	MentionsTotal  *prometheus.CounterVec
	UnmappedTotal  prometheus.Counter
	ReportsTotal   prometheus.Counter
	ReportDuration prometheus.Histogram
	ReportTalents  prometheus.Histogram
	TableEntries   prometheus.Gauge
	DBQueriesTotal *prometheus.CounterVec
	ScheduledRuns  *prometheus.CounterVec
}

// NewExporter creates the collectors and registers them with reg.
func NewExporter(reg prometheus.Registerer) *Exporter {
	e := &Exporter{
		TalentsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classify",
			Name:      "talents_total",
			Help:      "Number of talent notes classified",
		}),
		MentionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classify",
			Name:      "mentions_total",
			Help:      "Mentions extracted, by output category",
		}, []string{"category"}),
		UnmappedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unmapped_labels_total",
			Help:      "Input labels missing from the correspondence table",
		}),
		ReportsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "report",
			Name:      "builds_total",
			Help:      "Number of reports built",
		}),
		ReportDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "report",
			Name:      "build_seconds",
			Help:      "Time spent classifying talents for one report",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		ReportTalents: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "report_talents",
			Help:      "Talents per built report",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		TableEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "table",
			Name:      "entries",
			Help:      "Entries in the active correspondence table",
		}),
		DBQueriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "queries_total",
			Help:      "Talent database queries, by result",
		}, []string{"result"}),
		ScheduledRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "schedule",
			Name:      "runs_total",
			Help:      "Scheduled report runs, by result",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(
			e.TalentsTotal,
			e.MentionsTotal,
			e.UnmappedTotal,
			e.ReportsTotal,
			e.ReportDuration,
			e.ReportTalents,
			e.TableEntries,
			e.DBQueriesTotal,
			e.ScheduledRuns,
		)
	}
	return e
}

// ObserveTalent counts one classified note.
func (e *Exporter) ObserveTalent(c categorizer.Categorization) {
	e.TalentsTotal.Inc()
	e.UnmappedTotal.Add(float64(len(c.Unmapped)))
	for category, mentions := range c.Result.Map() {
		e.MentionsTotal.WithLabelValues(category).Add(float64(len(mentions)))
	}
}

// ObserveReport records one report build.
func (e *Exporter) ObserveReport(talents int, elapsed time.Duration) {
	e.ReportsTotal.Inc()
	e.ReportDuration.Observe(elapsed.Seconds())
	e.ReportTalents.Observe(float64(talents))
}

// ObserveTable records the size of a freshly loaded table.
func (e *Exporter) ObserveTable(t *categorizer.CorrespondenceTable) {
	e.TableEntries.Set(float64(t.Len()))
}

// ObserveQuery counts a talent database query.
func (e *Exporter) ObserveQuery(err error) {
	e.DBQueriesTotal.WithLabelValues(result(err)).Inc()
}

// ObserveScheduledRun counts a scheduled report run.
func (e *Exporter) ObserveScheduledRun(err error) {
	e.ScheduledRuns.WithLabelValues(result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
