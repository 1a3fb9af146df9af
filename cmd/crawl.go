package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/misheard-crawler/internal/api"
	"github.com/JakeFAU/misheard-crawler/internal/crawler"
	"github.com/JakeFAU/misheard-crawler/internal/extract"
	memorypublisher "github.com/JakeFAU/misheard-crawler/internal/publisher/memory"
	"github.com/JakeFAU/misheard-crawler/internal/telemetry"
)

const serviceName = "misheard-crawler"

type crawlOptions struct {
	letters string
	dryRun  bool
}

// newCrawlCmd creates the 'crawl' subcommand.
func newCrawlCmd() *cobra.Command {
	opts := &crawlOptions{}
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawls every configured letter and publishes the lyric records",
		Long: `Visits the artist index page of each letter, fetches every song page it
links to and publishes one record per misheard lyric. Failures are logged and
counted; the crawl always moves on to the next unit of work.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCrawl(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.letters, "letters", "", "letters to crawl, e.g. ABC or a-f (default from config, else A-Z)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "collect records in memory instead of publishing them")
	return cmd
}

func runCrawl(cmd *cobra.Command, opts *crawlOptions) error {
	e, err := resolveEnv(cmd.Context())
	if err != nil {
		return err
	}
	cfg := e.cfg
	logger := e.logger

	selection := cfg.Crawler.Letters
	if cmd.Flags().Changed("letters") {
		selection = opts.letters
	}
	letters, err := extract.ParseLetters(selection)
	if err != nil {
		return fmt.Errorf("parse letters: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.InitTracerProvider(ctx, serviceName)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		if terr := tp.Shutdown(context.Background()); terr != nil {
			logger.Warn("Failed to shut down tracer provider", zap.Error(terr))
		}
	}()

	tel, err := buildTelemetry(logger)
	if err != nil {
		return err
	}
	fetcher, closeFetcher, err := buildFetcher(cfg, logger)
	if err != nil {
		_ = tel.Close()
		return err
	}
	publisher, closePublisher, err := buildPublisher(ctx, cfg, opts.dryRun, tel.metrics)
	if err != nil {
		_ = closeAll(tel.Close, closeFetcher)
		return err
	}
	archive, closeArchive, err := buildArchive(ctx, cfg)
	if err != nil {
		_ = closeAll(tel.Close, closeFetcher, closePublisher)
		return err
	}
	defer func() {
		if cerr := closeAll(tel.Close, closeFetcher, closePublisher, closeArchive); cerr != nil {
			logger.Warn("Failed to release crawl resources", zap.Error(cerr))
		}
	}()

	engineOpts := []crawler.Option{
		crawler.WithProgress(tel.hub),
		crawler.WithLogger(logger),
	}
	if archive != nil {
		engineOpts = append(engineOpts, crawler.WithArchive(archive))
	}
	if limiter := buildLimiter(cfg, tel.metrics, logger); limiter != nil {
		engineOpts = append(engineOpts, crawler.WithLimiter(limiter))
	}

	engine, err := crawler.NewEngine(crawler.EngineConfig{
		IndexURLTemplate: cfg.Source.IndexURLTemplate,
		SongBaseURL:      cfg.Source.SongBaseURL,
		Letters:          letters,
		Concurrency:      cfg.Crawler.Concurrency,
		ArchivePrefix:    cfg.Archive.Prefix,
	}, fetcher, publisher, engineOpts...)
	if err != nil {
		return fmt.Errorf("init engine: %w", err)
	}

	serverDone := startMetricsServer(ctx, cfg.Metrics.Addr, tel, logger)
	summary := engine.Run(ctx)
	stop()
	if serverDone != nil {
		if serr := <-serverDone; serr != nil {
			logger.Warn("Metrics server stopped with error", zap.Error(serr))
		}
	}

	printSummary(cmd.OutOrStdout(), summary)
	if mem, ok := publisher.(*memorypublisher.Publisher); ok && opts.dryRun {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "dry run: %d records would have been sent\n", mem.Len())
	}
	if summary.InterruptedEarly {
		logger.Warn("Crawl interrupted before all letters were visited", zap.String("run_id", summary.RunID))
	}
	logger.Info("Crawl command finished.", zap.String("run_id", summary.RunID))
	return nil
}

// startMetricsServer serves /metrics, /healthz and /v1/run until ctx ends.
// It returns nil when no address is configured.
func startMetricsServer(ctx context.Context, addr string, tel *runTelemetry, logger *zap.Logger) <-chan error {
	if addr == "" {
		return nil
	}
	server := api.NewServer(tel.status, tel.registry, tel.metrics, logger)
	done := make(chan error, 1)
	go func() {
		err := server.Serve(ctx, addr)
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		done <- err
	}()
	return done
}

func printSummary(w io.Writer, s crawler.Summary) {
	_, _ = fmt.Fprintf(w, "run %s finished in %s\n", s.RunID, s.Duration.Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "  letters:          %d\n", s.Letters)
	_, _ = fmt.Fprintf(w, "  index pages:      %d\n", s.IndexPages)
	_, _ = fmt.Fprintf(w, "  candidates:       %d\n", s.Candidates)
	_, _ = fmt.Fprintf(w, "  song pages:       %d\n", s.SongPages)
	_, _ = fmt.Fprintf(w, "  records accepted: %d\n", s.RecordsAccepted)
	_, _ = fmt.Fprintf(w, "  records rejected: %d\n", s.RecordsRejected)

	kinds := make([]string, 0, len(s.Failures))
	for kind := range s.Failures {
		kinds = append(kinds, string(kind))
	}
	slices.Sort(kinds)
	for _, kind := range kinds {
		_, _ = fmt.Fprintf(w, "  failures[%s]: %d\n", kind, s.Failures[crawler.FailureKind(kind)])
	}
	if s.InterruptedEarly {
		_, _ = fmt.Fprintln(w, "  interrupted early")
	}
}
