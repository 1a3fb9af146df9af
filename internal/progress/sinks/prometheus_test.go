package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/misheard-crawler/internal/progress"
)

func TestPrometheusSinkRecordsMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	now := time.Now()
	batch := []progress.Event{
		{RunID: "r", TS: now, Stage: progress.StageRunStart},
		{RunID: "r", TS: now, Stage: progress.StageIndexFetched, URL: "https://x/A-artists.htm", StatusClass: progress.Status2xx, Bytes: 2048, Dur: 100 * time.Millisecond},
		{RunID: "r", TS: now, Stage: progress.StageSongFetched, URL: "https://x/misheard-1.htm", StatusClass: progress.Status2xx, Bytes: 512, Dur: 50 * time.Millisecond},
		{RunID: "r", TS: now, Stage: progress.StageRecordPublished, Artist: "Queen"},
		{RunID: "r", TS: now, Stage: progress.StageRecordPublished, Artist: "Queen"},
		{RunID: "r", TS: now, Stage: progress.StageFailure, Kind: "http_status"},
		{RunID: "r", TS: now, Stage: progress.StageRunDone, Dur: 30 * time.Second},
	}
	require.NoError(t, sink.Consume(context.Background(), batch))

	require.Equal(t, 1.0, testutil.ToFloat64(sink.runsStarted))
	require.Equal(t, 0.0, testutil.ToFloat64(sink.runsActive))
	require.Equal(t, 2.0, testutil.ToFloat64(sink.published))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.failures.WithLabelValues("http_status")))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.pagesFetched.WithLabelValues(pageIndex, "2xx")))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.pagesFetched.WithLabelValues(pageSong, "2xx")))
	require.InDelta(t, 2048.0, testutil.ToFloat64(sink.pageBytes.WithLabelValues(pageIndex)), 1e-9)
	require.Equal(t, 2, testutil.CollectAndCount(sink.fetchLatency, "misheard_fetch_duration_seconds"))
	require.Equal(t, 1, testutil.CollectAndCount(sink.runDuration, "misheard_crawl_run_duration_seconds"))
}

func TestPrometheusSinkDuplicateRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := NewPrometheusSink(reg)
	require.NoError(t, err)
	_, err = NewPrometheusSink(reg)
	require.Error(t, err)
}
