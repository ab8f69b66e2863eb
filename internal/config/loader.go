package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".campuscrawl"

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "CAMPUSCRAWL_"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File represents the structure of the .campuscrawl configuration file.
// Zero values mean "not set" and leave the current Config value untouched.
type File struct {
	Seeds             []string      `yaml:"seeds,omitempty"`
	Workers           int           `yaml:"workers,omitempty"`
	Delay             time.Duration `yaml:"delay,omitempty"`
	IdlePoll          time.Duration `yaml:"idlePoll,omitempty"`
	DBDir             string        `yaml:"dbDir,omitempty"`
	UserAgent         string        `yaml:"userAgent,omitempty"`
	Timeout           time.Duration `yaml:"timeout,omitempty"`
	Retries           *int          `yaml:"retries,omitempty"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond,omitempty"`
	Proxy             string        `yaml:"proxy,omitempty"`
	MinWords          int           `yaml:"minWords,omitempty"`
	DupThreshold      int           `yaml:"dupThreshold,omitempty"`
	MaxBodySize       int64         `yaml:"maxBodySize,omitempty"`
	MetricsAddr       string        `yaml:"metricsAddr,omitempty"`
}

// LoadConfigFile loads a configuration file from a YAML file.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}
	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .campuscrawl in the current directory
// 3. Look for config.yaml in the XDG config directory
// 4. Look for .campuscrawl in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	candidates := make([]string, 0, 3)
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), "config.yaml"))
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// Apply copies every value set in the file onto cfg.
func (cf *File) Apply(cfg *Config) {
	if len(cf.Seeds) > 0 {
		cfg.Seeds = append([]string(nil), cf.Seeds...)
	}
	if cf.Workers != 0 {
		cfg.Workers = cf.Workers
	}
	if cf.Delay != 0 {
		cfg.Delay = cf.Delay
	}
	if cf.IdlePoll != 0 {
		cfg.IdlePoll = cf.IdlePoll
	}
	if cf.DBDir != "" {
		cfg.DBDir = cf.DBDir
	}
	if cf.UserAgent != "" {
		cfg.UserAgent = cf.UserAgent
	}
	if cf.Timeout != 0 {
		cfg.Timeout = cf.Timeout
	}
	if cf.Retries != nil {
		cfg.Retries = *cf.Retries
	}
	if cf.RequestsPerSecond != 0 {
		cfg.RequestsPerSecond = cf.RequestsPerSecond
	}
	if cf.Proxy != "" {
		cfg.Proxy = cf.Proxy
	}
	if cf.MinWords != 0 {
		cfg.MinWords = cf.MinWords
	}
	if cf.DupThreshold != 0 {
		cfg.DupThreshold = cf.DupThreshold
	}
	if cf.MaxBodySize != 0 {
		cfg.MaxBodySize = cf.MaxBodySize
	}
	if cf.MetricsAddr != "" {
		cfg.MetricsAddr = cf.MetricsAddr
	}
}

// LoadEnv collects CAMPUSCRAWL_* variables from the optional dotenv file
// and the process environment. Process variables win over the file.
// A missing dotenv file is not an error.
func LoadEnv(dotenvPath string) (map[string]string, error) {
	env := make(map[string]string)

	if dotenvPath != "" {
		fileEnv, err := godotenv.Read(dotenvPath)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read %s: %w", dotenvPath, err)
		}
		for k, v := range fileEnv {
			if strings.HasPrefix(k, EnvPrefix) {
				env[k] = v
			}
		}
	}

	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok && strings.HasPrefix(k, EnvPrefix) {
			env[k] = v
		}
	}
	return env, nil
}

// ApplyEnv overrides cfg with the recognized variables in env.
// Unknown CAMPUSCRAWL_* keys are ignored.
func ApplyEnv(cfg *Config, env map[string]string) error {
	for key, value := range env {
		name := strings.TrimPrefix(key, EnvPrefix)
		var err error
		switch name {
		case "SEEDS":
			cfg.Seeds = splitList(value)
		case "WORKERS":
			cfg.Workers, err = strconv.Atoi(value)
		case "DELAY":
			cfg.Delay, err = time.ParseDuration(value)
		case "IDLE_POLL":
			cfg.IdlePoll, err = time.ParseDuration(value)
		case "DB_DIR":
			cfg.DBDir = value
		case "USER_AGENT":
			cfg.UserAgent = value
		case "TIMEOUT":
			cfg.Timeout, err = time.ParseDuration(value)
		case "RETRIES":
			cfg.Retries, err = strconv.Atoi(value)
		case "RPS":
			cfg.RequestsPerSecond, err = strconv.ParseFloat(value, 64)
		case "PROXY":
			cfg.Proxy = value
		case "MIN_WORDS":
			cfg.MinWords, err = strconv.Atoi(value)
		case "DUP_THRESHOLD":
			cfg.DupThreshold, err = strconv.Atoi(value)
		case "METRICS_ADDR":
			cfg.MetricsAddr = value
		}
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidEnvValue, key, value)
		}
	}
	return nil
}

// splitList splits a comma or whitespace separated list, dropping blanks.
func splitList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\n' || r == '\t'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
