package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/misheard-crawler/internal/clock/system"
	"github.com/JakeFAU/misheard-crawler/internal/dispatcher"
	"github.com/JakeFAU/misheard-crawler/internal/extract"
	"github.com/JakeFAU/misheard-crawler/internal/id/uuid"
	"github.com/JakeFAU/misheard-crawler/internal/progress"
)

const (
	archiveContentType = "text/html; charset=utf-8"
	tracerName         = "github.com/JakeFAU/misheard-crawler/internal/crawler"
)

// errRecoveredPanic marks a fetcher or publisher that panicked instead of
// returning an error. KindOf reports it as a transport failure.
var errRecoveredPanic = errors.New("recovered panic")

// EngineConfig controls what the engine crawls.
type EngineConfig struct {
	// IndexURLTemplate contains a {letter} placeholder.
	IndexURLTemplate string
	// SongBaseURL is prepended verbatim to every candidate href.
	SongBaseURL string
	// Letters are visited in order. Empty means A through Z.
	Letters []rune
	// Concurrency above 1 fetches the songs of one letter in parallel.
	Concurrency int
	// ArchivePrefix is the leading path segment for archived pages.
	ArchivePrefix string
}

// Option customizes an Engine.
type Option func(*Engine)

// WithArchive stores every fetched song page in store.
func WithArchive(store BlobStore) Option {
	return func(e *Engine) { e.archive = store }
}

// WithLimiter paces every page fetch through limiter.
func WithLimiter(limiter Limiter) Option {
	return func(e *Engine) { e.limiter = limiter }
}

// WithProgress sends progress events to emitter.
func WithProgress(emitter progress.Emitter) Option {
	return func(e *Engine) { e.progress = emitter }
}

// WithClock overrides the wall clock.
func WithClock(clock Clock) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithIDGenerator overrides how run IDs are made.
func WithIDGenerator(ids IDGenerator) Option {
	return func(e *Engine) { e.ids = ids }
}

// WithTracerProvider overrides the global OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) { e.tracer = tp.Tracer(tracerName) }
}

// WithLogger sets the engine logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// Engine runs the crawl pipeline: letter, index page, candidate link, song
// page, lyric pair, publish. A failure at any level is recorded and the loop
// moves on to the next unit of work.
type Engine struct {
	cfg       EngineConfig
	fetcher   Fetcher
	publisher Publisher
	archive   BlobStore
	limiter   Limiter
	progress  progress.Emitter
	clock     Clock
	ids       IDGenerator
	tracer    trace.Tracer
	logger    *zap.Logger
}

// NewEngine validates cfg and wires the engine's collaborators.
func NewEngine(cfg EngineConfig, fetcher Fetcher, publisher Publisher, opts ...Option) (*Engine, error) {
	if fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if publisher == nil {
		return nil, errors.New("publisher is required")
	}
	if !strings.Contains(cfg.IndexURLTemplate, "{letter}") {
		return nil, fmt.Errorf("index url template %q has no {letter} placeholder", cfg.IndexURLTemplate)
	}
	if len(cfg.Letters) == 0 {
		cfg.Letters = []rune(extract.AllLetters)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}

	e := &Engine{
		cfg:       cfg,
		fetcher:   fetcher,
		publisher: publisher,
		progress:  progress.Discard,
		clock:     system.New(),
		ids:       uuid.New(),
		tracer:    otel.Tracer(tracerName),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.Named("engine")
	return e, nil
}

// run carries the per-run state shared by every unit of work.
type run struct {
	id    string
	tally *tally
}

// workUnit identifies what a failure belongs to in logs and events.
type workUnit struct {
	letter rune
	url    string
	artist string
	song   string
}

func (u workUnit) fields() []zap.Field {
	fields := []zap.Field{zap.String("letter", string(u.letter)), zap.String("url", u.url)}
	if u.artist != "" {
		fields = append(fields, zap.String("artist", u.artist))
	}
	if u.song != "" {
		fields = append(fields, zap.String("song", u.song))
	}
	return fields
}

// Run crawls every configured letter and returns the tally. It only stops
// early when ctx is canceled; that is reported through InterruptedEarly.
func (e *Engine) Run(ctx context.Context) Summary {
	start := e.clock.Now()
	r := &run{id: e.newRunID(start), tally: newTally()}
	ctx, span := e.tracer.Start(ctx, "crawl.run", trace.WithAttributes(attribute.String("run_id", r.id)))
	defer span.End()

	e.logger.Info("crawl started",
		zap.String("run_id", r.id),
		zap.String("letters", string(e.cfg.Letters)),
		zap.Int("concurrency", e.cfg.Concurrency),
	)
	e.emit(r, progress.Event{Stage: progress.StageRunStart, Note: string(e.cfg.Letters)})

	letters := 0
	for _, letter := range e.cfg.Letters {
		if ctx.Err() != nil {
			break
		}
		letters++
		e.crawlLetter(ctx, r, letter)
	}

	summary := r.tally.summary()
	summary.RunID = r.id
	summary.Letters = letters
	summary.Duration = e.clock.Now().Sub(start)
	summary.InterruptedEarly = ctx.Err() != nil
	span.SetAttributes(
		attribute.Int("records_accepted", summary.RecordsAccepted),
		attribute.Bool("interrupted", summary.InterruptedEarly),
	)

	e.emit(r, progress.Event{Stage: progress.StageRunDone, Count: summary.RecordsAccepted, Dur: summary.Duration})
	e.logger.Info("crawl finished",
		zap.String("run_id", r.id),
		zap.Int("letters", summary.Letters),
		zap.Int("candidates", summary.Candidates),
		zap.Int("song_pages", summary.SongPages),
		zap.Int("records_accepted", summary.RecordsAccepted),
		zap.Int("records_rejected", summary.RecordsRejected),
		zap.Any("failures", summary.Failures),
		zap.Duration("duration", summary.Duration),
		zap.Bool("interrupted", summary.InterruptedEarly),
	)
	return summary
}

func (e *Engine) newRunID(start time.Time) string {
	id, err := e.ids.NewID()
	if err != nil {
		e.logger.Warn("run id generation failed, using timestamp", zap.Error(err))
		return start.UTC().Format("20060102T150405Z")
	}
	return id
}

func (e *Engine) crawlLetter(ctx context.Context, r *run, letter rune) {
	indexURL := extract.IndexURL(e.cfg.IndexURLTemplate, letter)
	unit := workUnit{letter: letter, url: indexURL}
	ctx, span := e.tracer.Start(ctx, "crawl.letter", trace.WithAttributes(
		attribute.String("letter", string(letter)),
		attribute.String("url", indexURL),
	))
	defer span.End()
	defer func() {
		if rec := recover(); rec != nil {
			e.fail(ctx, r, unit, fmt.Errorf("%w: index %c: %w: %v", extract.ErrParse, letter, errRecoveredPanic, rec))
		}
	}()

	resp, err := e.fetch(ctx, indexURL)
	if err != nil {
		e.fail(ctx, r, unit, fmt.Errorf("fetch index: %w", err))
		return
	}
	r.tally.add(func(t *tally) { t.indexPages++ })
	e.emit(r, progress.Event{
		Stage:       progress.StageIndexFetched,
		Letter:      string(letter),
		URL:         indexURL,
		StatusClass: progress.ClassifyStatus(resp.StatusCode),
		Bytes:       int64(len(resp.Body)),
		Dur:         resp.Duration,
	})

	links, err := extract.ParseIndex(letter, string(resp.Body), e.cfg.SongBaseURL)
	if err != nil {
		e.fail(ctx, r, unit, err)
		return
	}

	dispatcher.Run(ctx, e.cfg.Concurrency, links, func(ctx context.Context, link extract.CandidateLink) {
		r.tally.add(func(t *tally) { t.candidates++ })
		e.crawlSong(ctx, r, link)
	})
}

func (e *Engine) crawlSong(ctx context.Context, r *run, link extract.CandidateLink) {
	unit := workUnit{letter: link.Letter, url: link.URL}
	ctx, span := e.tracer.Start(ctx, "crawl.song", trace.WithAttributes(attribute.String("url", link.URL)))
	defer span.End()
	defer func() {
		if rec := recover(); rec != nil {
			e.fail(ctx, r, unit, fmt.Errorf("%w: %w: %v", extract.ErrParse, errRecoveredPanic, rec))
		}
	}()

	resp, err := e.fetch(ctx, link.URL)
	if err != nil {
		e.fail(ctx, r, unit, fmt.Errorf("fetch song: %w", err))
		return
	}
	r.tally.add(func(t *tally) { t.songPages++ })
	e.emit(r, progress.Event{
		Stage:       progress.StageSongFetched,
		Letter:      string(link.Letter),
		URL:         link.URL,
		StatusClass: progress.ClassifyStatus(resp.StatusCode),
		Bytes:       int64(len(resp.Body)),
		Dur:         resp.Duration,
	})
	e.archivePage(ctx, r, link, resp.Body)

	song, err := extract.ParseSong(string(resp.Body))
	if err != nil {
		e.fail(ctx, r, unit, err)
		return
	}
	unit.artist, unit.song = song.Artist, song.Title
	if song.Skipped > 0 {
		e.logger.Debug("skipped incomplete lyric links", append(unit.fields(), zap.Int("skipped", song.Skipped))...)
	}
	if len(song.Pairs) == 0 {
		e.fail(ctx, r, unit, ErrNoLyrics)
		return
	}

	for _, pair := range song.Pairs {
		if ctx.Err() != nil {
			return
		}
		e.publish(ctx, r, unit, BuildRecord(song, pair))
	}
}

func (e *Engine) publish(ctx context.Context, r *run, unit workUnit, record Record) {
	if err := record.Validate(); err != nil {
		e.recordRejected(ctx, r, unit, &RejectedError{StatusCode: http.StatusBadRequest, Body: err.Error()})
		return
	}
	receipt, err := e.send(ctx, record)
	if err != nil {
		if KindOf(err) == FailurePublishRejected {
			e.recordRejected(ctx, r, unit, err)
			return
		}
		e.fail(ctx, r, unit, fmt.Errorf("publish: %w", err))
		return
	}
	r.tally.add(func(t *tally) { t.accepted++ })
	e.logger.Debug("record accepted", append(unit.fields(), zap.String("receipt_id", receipt.ID))...)
	e.emit(r, progress.Event{
		Stage:  progress.StageRecordPublished,
		Letter: string(unit.letter),
		URL:    unit.url,
		Artist: record.Artist,
		Song:   record.SongTitle,
		Note:   receipt.ID,
	})
}

func (e *Engine) recordRejected(ctx context.Context, r *run, unit workUnit, err error) {
	r.tally.add(func(t *tally) { t.rejected++ })
	e.fail(ctx, r, unit, err)
}

// BuildRecord combines a song's metadata with one lyric pair.
func BuildRecord(song extract.Song, pair extract.Pair) Record {
	return Record{
		SongTitle: song.Title,
		Artist:    song.Artist,
		Misheard:  pair.Misheard,
		Original:  pair.Original,
	}
}

// send publishes one record. A panicking publisher fails only this record.
func (e *Engine) send(ctx context.Context, record Record) (receipt Receipt, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			receipt, err = Receipt{}, fmt.Errorf("%w in publisher: %v", errRecoveredPanic, rec)
		}
	}()
	return e.publisher.Publish(ctx, record)
}

func (e *Engine) fetch(ctx context.Context, url string) (resp FetchResponse, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			resp, err = FetchResponse{}, fmt.Errorf("%w in fetcher: %v", errRecoveredPanic, rec)
		}
	}()
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx, url); err != nil {
			return FetchResponse{}, err
		}
	}
	return e.fetcher.Fetch(ctx, FetchRequest{URL: url})
}

func (e *Engine) archivePage(ctx context.Context, r *run, link extract.CandidateLink, body []byte) {
	if e.archive == nil {
		return
	}
	objectPath := ArchivePath(e.cfg.ArchivePrefix, r.id, link.Letter, link.URL)
	uri, err := e.archive.PutObject(ctx, objectPath, archiveContentType, bytes.NewReader(body))
	if err != nil {
		e.logger.Warn("archive page failed", zap.String("url", link.URL), zap.String("path", objectPath), zap.Error(err))
		return
	}
	e.logger.Debug("archived page", zap.String("url", link.URL), zap.String("uri", uri))
}

// fail records a failed unit of work. Errors caused by ctx cancellation are
// not counted as failures.
func (e *Engine) fail(ctx context.Context, r *run, unit workUnit, err error) {
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		e.logger.Debug("work interrupted", append(unit.fields(), zap.Error(err))...)
		return
	}
	kind := KindOf(err)
	r.tally.add(func(t *tally) { t.failures[kind]++ })

	span := trace.SpanFromContext(ctx)
	span.RecordError(err, trace.WithAttributes(attribute.String("kind", string(kind))))
	span.SetStatus(codes.Error, string(kind))

	fields := append(unit.fields(), zap.String("kind", string(kind)), zap.Error(err))
	switch kind {
	case FailureParseMiss:
		e.logger.Info("no lyrics extracted", fields...)
	default:
		e.logger.Warn("crawl step failed", fields...)
	}
	e.emit(r, progress.Event{
		Stage:  progress.StageFailure,
		Letter: string(unit.letter),
		URL:    unit.url,
		Artist: unit.artist,
		Song:   unit.song,
		Kind:   string(kind),
		Note:   err.Error(),
	})
}

func (e *Engine) emit(r *run, evt progress.Event) {
	evt.RunID = r.id
	evt.TS = e.clock.Now()
	e.progress.Emit(evt)
}

// tally accumulates counters from concurrent song workers.
type tally struct {
	mu         sync.Mutex
	indexPages int
	candidates int
	songPages  int
	accepted   int
	rejected   int
	failures   map[FailureKind]int
}

func newTally() *tally {
	return &tally{failures: make(map[FailureKind]int)}
}

func (t *tally) add(update func(*tally)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	update(t)
}

func (t *tally) summary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	failures := make(map[FailureKind]int, len(t.failures))
	for kind, n := range t.failures {
		failures[kind] = n
	}
	return Summary{
		IndexPages:      t.indexPages,
		Candidates:      t.candidates,
		SongPages:       t.songPages,
		RecordsAccepted: t.accepted,
		RecordsRejected: t.rejected,
		Failures:        failures,
	}
}
