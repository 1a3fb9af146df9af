package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/JakeFAU/misheard-crawler/internal/api"
	"github.com/JakeFAU/misheard-crawler/internal/config"
	"github.com/JakeFAU/misheard-crawler/internal/crawler"
	collyfetcher "github.com/JakeFAU/misheard-crawler/internal/fetcher/colly"
	headlessfetcher "github.com/JakeFAU/misheard-crawler/internal/fetcher/headless"
	"github.com/JakeFAU/misheard-crawler/internal/headless/detector"
	"github.com/JakeFAU/misheard-crawler/internal/metrics"
	"github.com/JakeFAU/misheard-crawler/internal/policy/ratelimit"
	"github.com/JakeFAU/misheard-crawler/internal/progress"
	"github.com/JakeFAU/misheard-crawler/internal/progress/sinks"
	"github.com/JakeFAU/misheard-crawler/internal/publisher/ingest"
	memorypublisher "github.com/JakeFAU/misheard-crawler/internal/publisher/memory"
	pubsubpublisher "github.com/JakeFAU/misheard-crawler/internal/publisher/pubsub"
	gcsstorage "github.com/JakeFAU/misheard-crawler/internal/storage/gcs"
	localstorage "github.com/JakeFAU/misheard-crawler/internal/storage/local"
	memorystorage "github.com/JakeFAU/misheard-crawler/internal/storage/memory"
)

const progressCloseTimeout = 5 * time.Second

// closer releases a resource built for one command run.
type closer func() error

func noopCloser() error { return nil }

func buildFetcher(cfg config.Config, logger *zap.Logger) (crawler.Fetcher, closer, error) {
	fast := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.Crawler.UserAgent,
		Timeout:   cfg.FetchTimeout(),
	})
	if cfg.Fetcher.Mode != config.FetcherHeadless && cfg.Fetcher.Mode != config.FetcherAuto {
		return fast, noopCloser, nil
	}

	headless, err := headlessfetcher.NewChromedp(headlessfetcher.Config{
		MaxParallel:       cfg.Fetcher.HeadlessMaxParallel,
		UserAgent:         cfg.Crawler.UserAgent,
		NavigationTimeout: cfg.HeadlessNavTimeout(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init headless fetcher: %w", err)
	}
	closeHeadless := func() error { headless.Close(); return nil }
	if cfg.Fetcher.Mode == config.FetcherHeadless {
		return headless, closeHeadless, nil
	}
	promoter := detector.NewHeuristic(cfg.Fetcher.PromoteMinBytes)
	return detector.NewPromotingFetcher(fast, headless, promoter, logger), closeHeadless, nil
}

func buildPublisher(ctx context.Context, cfg config.Config, dryRun bool, m *metrics.Metrics) (crawler.Publisher, closer, error) {
	if dryRun {
		return memorypublisher.New(), noopCloser, nil
	}
	switch cfg.Publisher.Mode {
	case config.PublisherMemory:
		return memorypublisher.New(), noopCloser, nil
	case config.PublisherPubSub:
		pub, err := pubsubpublisher.Dial(ctx, pubsubpublisher.Config{
			ProjectID: cfg.PubSub.ProjectID,
			Topic:     cfg.PubSub.TopicName,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("init pubsub publisher: %w", err)
		}
		return pub, pub.Close, nil
	default:
		var client *http.Client
		if m != nil {
			client = &http.Client{Timeout: cfg.IngestTimeout(), Transport: m.InstrumentTransport(nil)}
		}
		pub, err := ingest.New(ingest.Config{URL: cfg.Ingest.URL, Timeout: cfg.IngestTimeout()}, client)
		if err != nil {
			return nil, nil, fmt.Errorf("init ingest publisher: %w", err)
		}
		return pub, noopCloser, nil
	}
}

// buildArchive returns a nil store when archiving is off.
func buildArchive(ctx context.Context, cfg config.Config) (crawler.BlobStore, closer, error) {
	switch cfg.Archive.Mode {
	case config.ArchiveLocal:
		store, err := localstorage.New(localstorage.Config{BaseDir: cfg.Archive.BaseDir})
		if err != nil {
			return nil, nil, fmt.Errorf("init local archive: %w", err)
		}
		return store, store.Close, nil
	case config.ArchiveMemory:
		return memorystorage.NewBlobStore(), noopCloser, nil
	case config.ArchiveGCS:
		store, err := gcsstorage.Dial(ctx, gcsstorage.Config{Bucket: cfg.Archive.GCSBucket})
		if err != nil {
			return nil, nil, fmt.Errorf("init gcs archive: %w", err)
		}
		return store, store.Close, nil
	default:
		return nil, noopCloser, nil
	}
}

// buildLimiter returns nil when no rate is configured.
func buildLimiter(cfg config.Config, m *metrics.Metrics, logger *zap.Logger) crawler.Limiter {
	if cfg.Crawler.RateLimitRPS <= 0 {
		return nil
	}
	return ratelimit.New(ratelimit.Config{
		RPS:   cfg.Crawler.RateLimitRPS,
		Burst: cfg.Crawler.RateLimitBurst,
		OnDelay: func(host string, waited time.Duration) {
			logger.Debug("rate limited", zap.String("host", host), zap.Duration("waited", waited))
			if m != nil {
				m.ObserveRateLimitDelay(host, waited)
			}
		},
	})
}

// runTelemetry bundles the progress hub with the sinks the metrics server reads.
type runTelemetry struct {
	hub      *progress.Hub
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	status   *api.StatusSink
}

func buildTelemetry(logger *zap.Logger) (*runTelemetry, error) {
	registry := prometheus.NewRegistry()
	promSink, err := sinks.NewPrometheusSink(registry)
	if err != nil {
		return nil, fmt.Errorf("init prometheus sink: %w", err)
	}
	status := api.NewStatusSink()
	hub := progress.NewHub(progress.Config{Logger: logger.Named("progress")},
		sinks.NewLogSink(logger.Named("events")),
		promSink,
		status,
	)
	return &runTelemetry{hub: hub, registry: registry, metrics: metrics.New(registry), status: status}, nil
}

func (t *runTelemetry) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), progressCloseTimeout)
	defer cancel()
	return t.hub.Close(ctx)
}

// closeAll runs closers in reverse order and joins their errors.
func closeAll(closers ...closer) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if closers[i] == nil {
			continue
		}
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
