// Package config loads process settings from the environment, optional
// .env files and an optional a2abridge.yml.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment is the deployment environment. It selects logging defaults
// only.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
	Test        Environment = "test"
)

// ParseEnvironment maps an APP_ENV value to an Environment. Empty means
// production; unrecognized values mean development.
func ParseEnvironment(s string) Environment {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "production", "prod":
		return Production
	case "staging", "stage":
		return Staging
	case "test":
		return Test
	default:
		return Development
	}
}

// Defaults.
const (
	DefaultA2AClient     = "http://localhost:8010/a2a"
	DefaultAppVersion    = "1.0.0"
	DefaultHTTPAddr      = ":8000"
	DefaultAgentCardPath = "/.well-known/agent-card.json"
	DefaultA2ATimeout    = 5 * time.Minute
)

// Config holds the resolved settings. It is read once at startup.
type Config struct {
	Environment Environment
	// EnvFile is the .env file that was read, if any.
	EnvFile string

	AppVersion     string
	A2AClient      string
	HTTPAddr       string
	AgentCardPath  string
	A2ATimeout     time.Duration
	CardCacheTTL   time.Duration
	MetricsEnabled bool

	Debug     bool
	LogLevel  string
	LogFormat string
}

// FileConfig holds settings loaded from a2abridge.yml. Environment
// variables take precedence over every field.
type FileConfig struct {
	A2AClient      string `yaml:"a2aClient,omitempty"`
	AppVersion     string `yaml:"appVersion,omitempty"`
	HTTPAddr       string `yaml:"httpAddr,omitempty"`
	AgentCardPath  string `yaml:"agentCardPath,omitempty"`
	A2ATimeoutMS   *int64 `yaml:"a2aTimeoutMs,omitempty"`
	CardCacheTTLMS *int64 `yaml:"cardCacheTtlMs,omitempty"`
	MetricsEnabled *bool  `yaml:"metricsEnabled,omitempty"`
	Debug          *bool  `yaml:"debug,omitempty"`
	LogLevel       string `yaml:"logLevel,omitempty"`
	LogFormat      string `yaml:"logFormat,omitempty"`
}

// LoadFile attempts to read a2abridge.yml or a2abridge.yaml from the given
// directory. Returns a zero-value config (not an error) if no config file
// exists.
func LoadFile(dir string) (*FileConfig, error) {
	for _, name := range []string{"a2abridge.yml", "a2abridge.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var cfg FileConfig
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
		return &cfg, nil
	}
	return &FileConfig{}, nil
}

// EnvFiles returns the candidate .env files for env in priority order.
func EnvFiles(dir string, env Environment) []string {
	return []string{
		filepath.Join(dir, ".env."+string(env)+".local"),
		filepath.Join(dir, ".env."+string(env)),
		filepath.Join(dir, ".env.local"),
		filepath.Join(dir, ".env"),
	}
}

// Load resolves the configuration for the process environment, reading
// .env and YAML files from dir.
func Load(dir string) (*Config, error) {
	return load(dir, os.LookupEnv)
}

// load resolves settings with precedence: process environment, then the
// first existing .env file, then the YAML file, then defaults.
func load(dir string, lookupEnv func(string) (string, bool)) (*Config, error) {
	appEnv, _ := lookupEnv("APP_ENV")
	cfg := &Config{Environment: ParseEnvironment(appEnv)}

	fileVars := map[string]string{}
	for _, path := range EnvFiles(dir, cfg.Environment) {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		vars, err := godotenv.Read(path)
		if err != nil {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
		fileVars = vars
		cfg.EnvFile = path
		break
	}

	lookup := func(key string) (string, bool) {
		if v, ok := lookupEnv(key); ok {
			return v, true
		}
		v, ok := fileVars[key]
		return v, ok
	}

	fc, err := LoadFile(dir)
	if err != nil {
		return nil, err
	}

	defLevel, defFormat, defDebug := environmentDefaults(cfg.Environment)

	var errs []error
	str := func(key, fromFile, def string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		if fromFile != "" {
			return fromFile
		}
		return def
	}
	millis := func(key string, fromFile *int64, def time.Duration) time.Duration {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			if err != nil || n < 0 {
				errs = append(errs, fmt.Errorf("%s: want a non-negative integer, got %q", key, v))
				return def
			}
			return time.Duration(n) * time.Millisecond
		}
		if fromFile != nil {
			if *fromFile < 0 {
				errs = append(errs, fmt.Errorf("%s: want a non-negative integer, got %d", key, *fromFile))
				return def
			}
			return time.Duration(*fromFile) * time.Millisecond
		}
		return def
	}
	boolean := func(key string, fromFile *bool, def bool) bool {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: want a boolean, got %q", key, v))
				return def
			}
			return b
		}
		if fromFile != nil {
			return *fromFile
		}
		return def
	}

	cfg.AppVersion = str("APP_VERSION", fc.AppVersion, DefaultAppVersion)
	cfg.A2AClient = str("A2A_CLIENT", fc.A2AClient, DefaultA2AClient)
	cfg.HTTPAddr = str("HTTP_ADDR", fc.HTTPAddr, DefaultHTTPAddr)
	cfg.AgentCardPath = str("AGENT_CARD_PATH", fc.AgentCardPath, DefaultAgentCardPath)
	cfg.A2ATimeout = millis("A2A_TIMEOUT_MS", fc.A2ATimeoutMS, DefaultA2ATimeout)
	cfg.CardCacheTTL = millis("CARD_CACHE_TTL_MS", fc.CardCacheTTLMS, 0)
	cfg.MetricsEnabled = boolean("METRICS_ENABLED", fc.MetricsEnabled, true)
	cfg.Debug = boolean("DEBUG", fc.Debug, defDebug)
	cfg.LogLevel = normalizeLevel(str("LOG_LEVEL", fc.LogLevel, defLevel))
	cfg.LogFormat = strings.ToLower(str("LOG_FORMAT", fc.LogFormat, defFormat))

	if u, err := url.Parse(cfg.A2AClient); err != nil || !u.IsAbs() || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, fmt.Errorf("A2A_CLIENT: want an absolute http(s) url, got %q", cfg.A2AClient))
	}
	if !strings.HasPrefix(cfg.AgentCardPath, "/") {
		errs = append(errs, fmt.Errorf("AGENT_CARD_PATH: want an absolute path, got %q", cfg.AgentCardPath))
	}
	switch cfg.LogFormat {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT: want console or json, got %q", cfg.LogFormat))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// environmentDefaults returns the log level, log format and debug flag used
// when they are not set explicitly.
func environmentDefaults(env Environment) (level, format string, debug bool) {
	switch env {
	case Development, Test:
		return "debug", "console", true
	case Staging:
		return "info", "json", false
	default:
		return "warn", "json", false
	}
}

func normalizeLevel(s string) string {
	s = strings.ToLower(s)
	if s == "warning" {
		return "warn"
	}
	return s
}
