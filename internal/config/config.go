package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "campuscrawl"

	// DefaultWorkers is the number of concurrent crawl workers.
	// Each worker owns at most one domain at a time, so more workers than
	// active domains only adds idle polling.
	DefaultWorkers = 4

	// DefaultDelay is the politeness pause a worker takes after every URL.
	DefaultDelay = 500 * time.Millisecond

	// DefaultIdlePoll is how long an idle worker waits before asking the
	// frontier for a domain again.
	DefaultIdlePoll = 6 * time.Second

	// DefaultTimeout bounds a single fetch, including redirects and body read.
	DefaultTimeout = 30 * time.Second

	// DefaultRetries is the number of extra attempts for a fetch that failed
	// with a network error or a 5xx status.
	DefaultRetries = 2

	// DefaultMinWords is the token count a page needs before it contributes
	// to the word-frequency store.
	DefaultMinWords = 50

	// DefaultDupThreshold is the Hamming distance below which two page
	// fingerprints are treated as near-duplicates.
	DefaultDupThreshold = 10

	// DefaultMaxBodySize limits the response body read per page.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultUserAgent identifies the crawler in HTTP requests.
	DefaultUserAgent = "campuscrawl/1.0 (+https://github.com/nao1215/campuscrawl)"
)

// DefaultSeeds are the entry points of the academic crawl scope.
var DefaultSeeds = []string{
	"https://www.ics.uci.edu",
	"https://www.cs.uci.edu",
	"https://www.informatics.uci.edu",
	"https://www.stat.uci.edu",
}

// Config holds all configuration options for a crawl.
// It is populated from defaults, the config file, the environment and CLI
// flags, then passed through the application by value.
type Config struct {
	// Seeds is the list of URLs injected into an empty frontier.
	Seeds []string

	// Workers is the number of concurrent crawl workers.
	Workers int

	// Delay is the politeness pause after each processed URL.
	Delay time.Duration

	// IdlePoll is the back-off interval of a worker with no domain.
	IdlePoll time.Duration

	// Restart discards the ledger, dedup cache and word store before crawling.
	Restart bool

	// DBDir is the directory holding the SQLite database.
	// Defaults to the XDG data directory (~/.local/share/campuscrawl on Linux).
	DBDir string

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// Timeout bounds a single fetch attempt.
	Timeout time.Duration

	// Retries is the number of extra attempts after a transient fetch failure.
	Retries int

	// RequestsPerSecond caps the global fetch rate across all workers.
	// Zero disables the limiter and leaves pacing to Delay.
	RequestsPerSecond float64

	// Proxy is the optional cache-proxy backend the fetcher talks to.
	// Accepted forms are "socks5://host:port" and "http://host:port".
	Proxy string

	// MinWords is the token threshold for the word-frequency store.
	MinWords int

	// DupThreshold is the near-duplicate Hamming distance threshold.
	DupThreshold int

	// MaxBodySize is the maximum response body size in bytes.
	MaxBodySize int64

	// MetricsAddr exposes Prometheus metrics on this address when set.
	MetricsAddr string

	// Verbose enables debug level logging.
	Verbose bool

	// JSONLog switches the log output to JSON.
	JSONLog bool

	// ConfigFilePath is the explicit configuration file path, if any.
	ConfigFilePath string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	seeds := make([]string, len(DefaultSeeds))
	copy(seeds, DefaultSeeds)

	return &Config{
		Seeds:        seeds,
		Workers:      DefaultWorkers,
		Delay:        DefaultDelay,
		IdlePoll:     DefaultIdlePoll,
		DBDir:        XDGDataDir(),
		UserAgent:    DefaultUserAgent,
		Timeout:      DefaultTimeout,
		Retries:      DefaultRetries,
		MinWords:     DefaultMinWords,
		DupThreshold: DefaultDupThreshold,
		MaxBodySize:  DefaultMaxBodySize,
	}
}

// XDGDataDir returns the XDG data directory for campuscrawl.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for campuscrawl.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found as one of the sentinel errors.
func (c *Config) Validate() error {
	if len(c.Seeds) == 0 {
		return ErrNoSeeds
	}
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if c.Delay < 0 {
		return ErrInvalidDelay
	}
	if c.IdlePoll <= 0 {
		return ErrInvalidIdlePoll
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Retries < 0 {
		return ErrInvalidRetries
	}
	if c.RequestsPerSecond < 0 {
		return ErrInvalidRequestsPerSecond
	}
	if c.MinWords < 0 {
		return ErrInvalidMinWords
	}
	if c.DupThreshold < 1 || c.DupThreshold > 64 {
		return ErrInvalidDupThreshold
	}
	if c.MaxBodySize <= 0 {
		return ErrInvalidMaxBodySize
	}
	return nil
}
