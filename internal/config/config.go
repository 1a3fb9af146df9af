// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultUserAgent is the browser signature sent with every page request.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// EnvPrefix prefixes every environment override, e.g. MISHEARD_INGEST_URL.
const EnvPrefix = "MISHEARD"

// Fetcher and publisher modes.
const (
	FetcherColly    = "colly"
	FetcherHeadless = "headless"
	// FetcherAuto fetches with colly and retries headless when a page looks client-rendered.
	FetcherAuto = "auto"

	PublisherHTTP   = "http"
	PublisherPubSub = "pubsub"
	PublisherMemory = "memory"

	ArchiveNone   = "none"
	ArchiveLocal  = "local"
	ArchiveMemory = "memory"
	ArchiveGCS    = "gcs"
)

// Config captures all crawler configuration loaded via Viper.
type Config struct {
	Source    SourceConfig    `mapstructure:"source"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Crawler   CrawlerConfig   `mapstructure:"crawler"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Fetcher   FetcherConfig   `mapstructure:"fetcher"`
	Publisher PublisherConfig `mapstructure:"publisher"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// SourceConfig locates the lyric site.
type SourceConfig struct {
	// IndexURLTemplate contains a {letter} placeholder.
	IndexURLTemplate string `mapstructure:"index_url_template"`
	// SongBaseURL is prepended verbatim to every song href.
	SongBaseURL string `mapstructure:"song_base_url"`
}

// IngestConfig points at the record ingestion endpoint.
type IngestConfig struct {
	URL            string `mapstructure:"url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// CrawlerConfig governs the crawl loop.
type CrawlerConfig struct {
	UserAgent      string  `mapstructure:"user_agent"`
	Letters        string  `mapstructure:"letters"`
	Concurrency    int     `mapstructure:"concurrency"`
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// HTTPConfig configures page fetch timeouts.
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// FetcherConfig selects and tunes the page fetcher.
type FetcherConfig struct {
	Mode                      string `mapstructure:"mode"`
	HeadlessMaxParallel       int    `mapstructure:"headless_max_parallel"`
	HeadlessNavTimeoutSeconds int    `mapstructure:"headless_nav_timeout_seconds"`
	// PromoteMinBytes is the auto mode size below which script-heavy pages are promoted.
	PromoteMinBytes int `mapstructure:"promote_min_bytes"`
}

// PublisherConfig selects where records go.
type PublisherConfig struct {
	Mode string `mapstructure:"mode"`
}

// PubSubConfig holds the Pub/Sub destination for the pubsub publisher.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// ArchiveConfig controls raw page archiving.
type ArchiveConfig struct {
	Mode      string `mapstructure:"mode"`
	BaseDir   string `mapstructure:"base_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// MetricsConfig enables the metrics/health listener when Addr is set.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig tunes zap.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from defaults, an optional file and the environment.
// A .env file in the working directory is read first when present.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source.index_url_template", "https://www.kissthisguy.com/{letter}-artists.htm")
	v.SetDefault("source.song_base_url", "https://www.kissthisguy.com/")
	v.SetDefault("ingest.url", "https://misheard-melodies-api.onrender.com/lyrics")
	v.SetDefault("ingest.timeout_seconds", 10)
	v.SetDefault("crawler.user_agent", DefaultUserAgent)
	v.SetDefault("crawler.letters", "")
	v.SetDefault("crawler.concurrency", 1)
	v.SetDefault("crawler.rate_limit_rps", 0)
	v.SetDefault("crawler.rate_limit_burst", 1)
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("fetcher.mode", FetcherColly)
	v.SetDefault("fetcher.headless_max_parallel", 1)
	v.SetDefault("fetcher.headless_nav_timeout_seconds", 45)
	v.SetDefault("fetcher.promote_min_bytes", 2048)
	v.SetDefault("publisher.mode", PublisherHTTP)
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
	v.SetDefault("archive.mode", ArchiveNone)
	v.SetDefault("archive.base_dir", "")
	v.SetDefault("archive.gcs_bucket", "")
	v.SetDefault("archive.prefix", "pages")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if !strings.Contains(c.Source.IndexURLTemplate, "{letter}") {
		return fmt.Errorf("source.index_url_template must contain {letter}")
	}
	if c.Source.SongBaseURL == "" {
		return fmt.Errorf("source.song_base_url is required")
	}
	if c.Crawler.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be > 0")
	}
	if c.Crawler.RateLimitRPS < 0 {
		return fmt.Errorf("crawler.rate_limit_rps must be >= 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}

	switch c.Fetcher.Mode {
	case FetcherColly:
	case FetcherHeadless, FetcherAuto:
		if c.Fetcher.HeadlessMaxParallel <= 0 {
			return fmt.Errorf("fetcher.headless_max_parallel must be > 0 in %s mode", c.Fetcher.Mode)
		}
	default:
		return fmt.Errorf("fetcher.mode %q is not one of colly, headless, auto", c.Fetcher.Mode)
	}

	switch c.Publisher.Mode {
	case PublisherHTTP:
		if c.Ingest.URL == "" {
			return fmt.Errorf("ingest.url is required for the http publisher")
		}
	case PublisherPubSub:
		if c.PubSub.ProjectID == "" || c.PubSub.TopicName == "" {
			return fmt.Errorf("pubsub.project_id and pubsub.topic_name are required for the pubsub publisher")
		}
	case PublisherMemory:
	default:
		return fmt.Errorf("publisher.mode %q is not one of http, pubsub, memory", c.Publisher.Mode)
	}

	switch c.Archive.Mode {
	case ArchiveNone, ArchiveMemory:
	case ArchiveLocal:
		if c.Archive.BaseDir == "" {
			return fmt.Errorf("archive.base_dir is required for the local archive")
		}
	case ArchiveGCS:
		if c.Archive.GCSBucket == "" {
			return fmt.Errorf("archive.gcs_bucket is required for the gcs archive")
		}
	default:
		return fmt.Errorf("archive.mode %q is not one of none, local, memory, gcs", c.Archive.Mode)
	}
	return nil
}

// FetchTimeout is the per-request page timeout.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// IngestTimeout is the per-record publish timeout.
func (c Config) IngestTimeout() time.Duration {
	return time.Duration(c.Ingest.TimeoutSeconds) * time.Second
}

// HeadlessNavTimeout bounds one headless navigation.
func (c Config) HeadlessNavTimeout() time.Duration {
	return time.Duration(c.Fetcher.HeadlessNavTimeoutSeconds) * time.Second
}
