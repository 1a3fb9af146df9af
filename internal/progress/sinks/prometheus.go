package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/misheard-crawler/internal/progress"
)

const (
	pageIndex = "index"
	pageSong  = "song"
)

// PrometheusSink turns progress events into crawl metrics.
type PrometheusSink struct {
	runsStarted  prometheus.Counter
	runsActive   prometheus.Gauge
	runDuration  prometheus.Histogram
	pagesFetched *prometheus.CounterVec
	pageBytes    *prometheus.CounterVec
	fetchLatency *prometheus.HistogramVec
	published    prometheus.Counter
	failures     *prometheus.CounterVec
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "misheard_crawl_runs_started_total",
			Help: "Crawl runs started.",
		}),
		runsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "misheard_crawl_runs_active",
			Help: "Crawl runs currently in progress.",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "misheard_crawl_run_duration_seconds",
			Help:    "Wall time of completed crawl runs.",
			Buckets: []float64{10, 60, 300, 900, 1800, 3600, 7200, 14400},
		}),
		pagesFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "misheard_pages_fetched_total",
			Help: "Pages fetched partitioned by page type and status class.",
		}, []string{"page", "status_class"}),
		pageBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "misheard_page_bytes_total",
			Help: "Bytes downloaded partitioned by page type.",
		}, []string{"page"}),
		fetchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "misheard_fetch_duration_seconds",
			Help:    "Fetch latency partitioned by page type.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"page"}),
		published: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "misheard_records_published_total",
			Help: "Lyric records accepted by the ingestion endpoint.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "misheard_failures_total",
			Help: "Crawl failures partitioned by kind.",
		}, []string{"kind"}),
	}
	for _, collector := range []prometheus.Collector{
		s.runsStarted,
		s.runsActive,
		s.runDuration,
		s.pagesFetched,
		s.pageBytes,
		s.fetchLatency,
		s.published,
		s.failures,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors from the batch.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		switch evt.Stage {
		case progress.StageRunStart:
			s.runsStarted.Inc()
			s.runsActive.Inc()
		case progress.StageRunDone:
			s.runsActive.Dec()
			if evt.Dur > 0 {
				s.runDuration.Observe(evt.Dur.Seconds())
			}
		case progress.StageIndexFetched:
			s.observeFetch(pageIndex, evt)
		case progress.StageSongFetched:
			s.observeFetch(pageSong, evt)
		case progress.StageRecordPublished:
			s.published.Inc()
		case progress.StageFailure:
			s.failures.WithLabelValues(evt.Kind).Inc()
		}
	}
	return nil
}

func (s *PrometheusSink) observeFetch(page string, evt progress.Event) {
	class := evt.StatusClass
	if class == "" {
		class = progress.StatusOther
	}
	s.pagesFetched.WithLabelValues(page, string(class)).Inc()
	if evt.Bytes > 0 {
		s.pageBytes.WithLabelValues(page).Add(float64(evt.Bytes))
	}
	if evt.Dur > 0 {
		s.fetchLatency.WithLabelValues(page).Observe(evt.Dur.Seconds())
	}
}

// Close implements progress.Sink.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
