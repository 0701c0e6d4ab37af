package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FeedSource is one configured RSS/Atom feed.
type FeedSource struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Language string `yaml:"language"`
}

type feedsFile struct {
	Feeds []FeedSource `yaml:"feeds"`
}

type Config struct {
	MongoURI    string
	MongoDBName string
	HTTPAddr    string

	Feeds               []FeedSource
	FeedTimeout         time.Duration
	FetchWorkers        int
	AnalysisWorkers     int
	RunTimeout          time.Duration
	DefaultLimitPerFeed int
	ExtractFullText     bool
	DefaultLanguage     string

	PollInterval     time.Duration
	MaxPolls         int // -1 is unlimited
	PollLimitPerFeed int // 0 disables background ingestion

	IndexRetries      int
	IndexRetryBackoff time.Duration

	SearchMaxSize  int
	SearchCacheTTL time.Duration
	RedisAddr      string // empty keeps the search cache in process
	RedisPassword  string
	RedisDB        int

	RabbitURI        string // empty disables the alert relay
	RabbitExchange   string
	RabbitRoutingKey string

	MonitorInterval          time.Duration
	MonitorWindow            time.Duration
	MonitorNegativeThreshold float64
	MonitorBaselineDelta     float64
	MonitorMinVolume         int
	MonitorBaselineAlpha     float64
	MonitorMaxArticles       int
}

const (
	MongoURI                 = "MONGO_URI"
	MongoDBName              = "MONGO_DB_NAME"
	HTTPAddr                 = "HTTP_ADDR"
	FeedsConfig              = "FEEDS_CONFIG"
	FeedTimeout              = "FEED_TIMEOUT"
	FetchWorkers             = "FETCH_WORKERS"
	AnalysisWorkers          = "ANALYSIS_WORKERS"
	RunTimeout               = "RUN_TIMEOUT"
	DefaultLimitPerFeed      = "DEFAULT_LIMIT_PER_FEED"
	ExtractFullText          = "EXTRACT_FULL_TEXT"
	DefaultLanguage          = "DEFAULT_LANGUAGE"
	PollInterval             = "POLL_INTERVAL"
	MaxPolls                 = "MAX_POLLS"
	PollLimitPerFeed         = "POLL_LIMIT_PER_FEED"
	IndexRetries             = "INDEX_RETRIES"
	IndexRetryBackoff        = "INDEX_RETRY_BACKOFF"
	SearchMaxSize            = "SEARCH_MAX_SIZE"
	SearchCacheTTL           = "SEARCH_CACHE_TTL"
	RedisAddrEnv             = "REDIS_ADDR"
	RedisPasswordEnv         = "REDIS_PASSWORD"
	RedisDBEnv               = "REDIS_DB"
	RabbitURIEnv             = "RABBIT_URI"
	RabbitExchangeEnv        = "RABBIT_EXCHANGE"
	RabbitRoutingKeyEnv      = "RABBIT_ROUTING_KEY"
	MonitorInterval          = "MONITOR_INTERVAL"
	MonitorWindow            = "MONITOR_WINDOW"
	MonitorNegativeThreshold = "MONITOR_NEGATIVE_THRESHOLD"
	MonitorBaselineDelta     = "MONITOR_BASELINE_DELTA"
	MonitorMinVolume         = "MONITOR_MIN_VOLUME"
	MonitorBaselineAlpha     = "MONITOR_BASELINE_ALPHA"
	MonitorMaxArticles       = "MONITOR_MAX_ARTICLES"
)

// Error marks configuration the process cannot start with.
type Error struct {
	Key string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid %v: %v", e.Key, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// FromEnv reads the configuration from the environment and the optional
// feeds file, then validates it. Every returned error is a *Error.
func FromEnv() (Config, error) {
	var cfg Config

	cfg.MongoURI = getEnv(MongoURI, "mongodb://localhost:27017")
	cfg.MongoDBName = getEnv(MongoDBName, "newsradar")
	cfg.HTTPAddr = getEnv(HTTPAddr, ":8080")
	cfg.DefaultLanguage = strings.ToLower(getEnv(DefaultLanguage, "en"))
	cfg.RedisAddr = os.Getenv(RedisAddrEnv)
	cfg.RedisPassword = os.Getenv(RedisPasswordEnv)
	cfg.RabbitURI = os.Getenv(RabbitURIEnv)
	cfg.RabbitExchange = getEnv(RabbitExchangeEnv, "newsradar.alerts")
	cfg.RabbitRoutingKey = getEnv(RabbitRoutingKeyEnv, "briefing.created")

	feeds, err := loadFeeds(os.Getenv(FeedsConfig))
	if err != nil {
		return cfg, err
	}
	cfg.Feeds = feeds

	ints := []struct {
		key      string
		dst      *int
		fallback int
	}{
		{FetchWorkers, &cfg.FetchWorkers, 5},
		{AnalysisWorkers, &cfg.AnalysisWorkers, 4},
		{DefaultLimitPerFeed, &cfg.DefaultLimitPerFeed, 20},
		{MaxPolls, &cfg.MaxPolls, -1},
		{PollLimitPerFeed, &cfg.PollLimitPerFeed, 5},
		{IndexRetries, &cfg.IndexRetries, 3},
		{SearchMaxSize, &cfg.SearchMaxSize, 100},
		{RedisDBEnv, &cfg.RedisDB, 0},
		{MonitorMinVolume, &cfg.MonitorMinVolume, 3},
		{MonitorMaxArticles, &cfg.MonitorMaxArticles, 200},
	}
	for _, v := range ints {
		if *v.dst, err = getEnvInt(v.key, v.fallback); err != nil {
			return cfg, &Error{Key: v.key, Err: err}
		}
	}

	durations := []struct {
		key      string
		dst      *time.Duration
		fallback string
	}{
		{FeedTimeout, &cfg.FeedTimeout, "10s"},
		{RunTimeout, &cfg.RunTimeout, "5m"},
		{PollInterval, &cfg.PollInterval, "10m"},
		{IndexRetryBackoff, &cfg.IndexRetryBackoff, "200ms"},
		{SearchCacheTTL, &cfg.SearchCacheTTL, "30s"},
		{MonitorInterval, &cfg.MonitorInterval, "10m"},
		{MonitorWindow, &cfg.MonitorWindow, "24h"},
	}
	for _, v := range durations {
		if *v.dst, err = time.ParseDuration(getEnv(v.key, v.fallback)); err != nil {
			return cfg, &Error{Key: v.key, Err: err}
		}
	}

	floats := []struct {
		key      string
		dst      *float64
		fallback float64
	}{
		{MonitorNegativeThreshold, &cfg.MonitorNegativeThreshold, 0.6},
		{MonitorBaselineDelta, &cfg.MonitorBaselineDelta, 0.25},
		{MonitorBaselineAlpha, &cfg.MonitorBaselineAlpha, 0.3},
	}
	for _, v := range floats {
		if *v.dst, err = getEnvFloat(v.key, v.fallback); err != nil {
			return cfg, &Error{Key: v.key, Err: err}
		}
	}

	if cfg.ExtractFullText, err = getEnvBool(ExtractFullText, true); err != nil {
		return cfg, &Error{Key: ExtractFullText, Err: err}
	}

	return cfg, cfg.Validate()
}

// Validate rejects values no component can run with.
func (c Config) Validate() error {
	positive := []struct {
		key string
		ok  bool
	}{
		{FetchWorkers, c.FetchWorkers > 0},
		{AnalysisWorkers, c.AnalysisWorkers > 0},
		{DefaultLimitPerFeed, c.DefaultLimitPerFeed > 0},
		{FeedTimeout, c.FeedTimeout > 0},
		{RunTimeout, c.RunTimeout > 0},
		{PollInterval, c.PollInterval > 0},
		{PollLimitPerFeed, c.PollLimitPerFeed >= 0},
		{IndexRetries, c.IndexRetries >= 0},
		{IndexRetryBackoff, c.IndexRetryBackoff >= 0},
		{SearchMaxSize, c.SearchMaxSize > 0},
		{SearchCacheTTL, c.SearchCacheTTL >= 0},
		{MonitorInterval, c.MonitorInterval > 0},
		{MonitorWindow, c.MonitorWindow > 0},
		{MonitorMinVolume, c.MonitorMinVolume > 0},
		{MonitorMaxArticles, c.MonitorMaxArticles > 0},
		{MonitorNegativeThreshold, c.MonitorNegativeThreshold > 0 && c.MonitorNegativeThreshold <= 1},
		{MonitorBaselineDelta, c.MonitorBaselineDelta > 0 && c.MonitorBaselineDelta <= 1},
		{MonitorBaselineAlpha, c.MonitorBaselineAlpha > 0 && c.MonitorBaselineAlpha <= 1},
	}
	for _, p := range positive {
		if !p.ok {
			return &Error{Key: p.key, Err: errors.New("value out of range")}
		}
	}

	if c.MongoURI == "" {
		return &Error{Key: MongoURI, Err: errors.New("must be set")}
	}
	if c.DefaultLanguage == "" {
		return &Error{Key: DefaultLanguage, Err: errors.New("must be set")}
	}
	if len(c.Feeds) == 0 {
		return &Error{Key: FeedsConfig, Err: errors.New("no feeds configured")}
	}
	for i, f := range c.Feeds {
		u, err := url.Parse(f.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return &Error{Key: FeedsConfig, Err: fmt.Errorf("feed %d (%q) has invalid url %q", i, f.Name, f.URL)}
		}
	}
	return nil
}

// loadFeeds reads the YAML feed list at path. An empty path selects the
// built-in list; a path that cannot be read or parsed is fatal.
func loadFeeds(path string) ([]FeedSource, error) {
	if path == "" {
		return DefaultFeeds(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Key: FeedsConfig, Err: err}
	}

	var file feedsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, &Error{Key: FeedsConfig, Err: err}
	}

	for i := range file.Feeds {
		f := &file.Feeds[i]
		f.URL = strings.TrimSpace(f.URL)
		if f.Name == "" {
			if u, err := url.Parse(f.URL); err == nil {
				f.Name = strings.TrimPrefix(u.Hostname(), "www.")
			}
		}
	}
	return file.Feeds, nil
}

// DefaultFeeds is the feed list used when FEEDS_CONFIG is unset.
func DefaultFeeds() []FeedSource {
	return []FeedSource{
		{Name: "NDTV", URL: "https://feeds.feedburner.com/ndtvnews-top-stories", Language: "en"},
		{Name: "Times of India", URL: "https://timesofindia.indiatimes.com/rssfeedstopstories.cms", Language: "en"},
		{Name: "The Hindu", URL: "https://www.thehindu.com/feeder/default.rss", Language: "en"},
		{Name: "BBC News", URL: "http://feeds.bbci.co.uk/news/rss.xml", Language: "en"},
		{Name: "CNN", URL: "http://rss.cnn.com/rss/cnn_topstories.rss", Language: "en"},
		{Name: "Al Jazeera", URL: "https://www.aljazeera.com/xml/rss/all.xml", Language: "en"},
		{Name: "TechCrunch", URL: "https://techcrunch.com/feed/", Language: "en"},
		{Name: "Economic Times", URL: "https://economictimes.indiatimes.com/rssfeedstopstories.cms", Language: "en"},
		{Name: "Mint Markets", URL: "https://www.livemint.com/rss/markets", Language: "en"},
		{Name: "CNBC", URL: "https://search.cnbc.com/rs/search/combinedcms/view.xml?partnerId=wrss01&id=100003114", Language: "en"},
		{Name: "Wired", URL: "https://www.wired.com/feed/rss", Language: "en"},
		{Name: "The Verge", URL: "https://www.theverge.com/rss/index.xml", Language: "en"},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	return i, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(v, 64)
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseBool(v)
}
