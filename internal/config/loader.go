package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/example/feedback-analytics/internal/logging"
	"github.com/example/feedback-analytics/internal/token"
)

// Environment keys understood by Load.
const (
	KeyHTTPPort     = "FEEDBACK_HTTP_PORT"
	KeySQLiteDSN    = "FEEDBACK_SQLITE_DSN"
	KeyJWTSecret    = "JWT_SECRET"
	KeyFrontendURL  = "FRONTEND_URL"
	KeyTokenTTL     = "FEEDBACK_TOKEN_TTL"
	KeyQueryTimeout = "FEEDBACK_QUERY_TIMEOUT"
	KeySeedFile     = "FEEDBACK_SEED_FILE"
	KeyLogLevel     = "FEEDBACK_LOG_LEVEL"
	KeyConfigFile   = "FEEDBACK_CONFIG_FILE"
)

// DisabledJournalDSN selects the in-memory session journal instead of SQLite.
const DisabledJournalDSN = "none"

const (
	defaultSQLiteDSN   = "file:attendance.db?_pragma=busy_timeout(5000)"
	defaultFrontendURL = "http://localhost:3000"
)

// Config captures configuration values for the feedback service.
type Config struct {
	HTTPPort     int
	SQLiteDSN    string
	JWTSecret    string
	FrontendURL  string
	TokenTTL     time.Duration
	QueryTimeout time.Duration
	SeedFile     string
	LogLevel     slog.Level

	// UsingDefaultSecret reports that JWT_SECRET was unset and the public
	// fallback secret is signing tokens.
	UsingDefaultSecret bool
}

// JournalEnabled reports whether attendance sessions are persisted to SQLite.
func (c Config) JournalEnabled() bool {
	return !strings.EqualFold(c.SQLiteDSN, DisabledJournalDSN)
}

// fileConfig mirrors the keys accepted in the optional YAML file.
type fileConfig struct {
	HTTPPort     string `yaml:"httpPort"`
	SQLiteDSN    string `yaml:"sqliteDsn"`
	JWTSecret    string `yaml:"jwtSecret"`
	FrontendURL  string `yaml:"frontendUrl"`
	TokenTTL     string `yaml:"tokenTtl"`
	QueryTimeout string `yaml:"queryTimeout"`
	SeedFile     string `yaml:"seedFile"`
	LogLevel     string `yaml:"logLevel"`
}

func (f fileConfig) values() map[string]string {
	return map[string]string{
		KeyHTTPPort:     f.HTTPPort,
		KeySQLiteDSN:    f.SQLiteDSN,
		KeyJWTSecret:    f.JWTSecret,
		KeyFrontendURL:  f.FrontendURL,
		KeyTokenTTL:     f.TokenTTL,
		KeyQueryTimeout: f.QueryTimeout,
		KeySeedFile:     f.SeedFile,
		KeyLogLevel:     f.LogLevel,
	}
}

// Load parses configuration from an optional .env file, an optional YAML file
// named by FEEDBACK_CONFIG_FILE and the process environment, in increasing
// order of precedence.
//
// Missing and invalid entries are collected and reported together with
// localized messages.
func Load() (Config, error) {
	// A missing .env file is not an error.
	_ = godotenv.Load()

	overlay := map[string]string{}
	if path := strings.TrimSpace(os.Getenv(KeyConfigFile)); path != "" {
		file, err := readFile(path)
		if err != nil {
			return Config{}, err
		}
		overlay = file.values()
	}

	lookup := func(key string) string {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
		return strings.TrimSpace(overlay[key])
	}
	return parse(lookup)
}

func readFile(path string) (fileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, fmt.Errorf("設定ファイルを読み込めません: %s: %w", path, err)
	}
	var file fileConfig
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fileConfig{}, fmt.Errorf("設定ファイルの形式が不正です: %s: %w", path, err)
	}
	return file, nil
}

func parse(lookup func(string) string) (Config, error) {
	cfg := Config{
		HTTPPort:     8080,
		SQLiteDSN:    defaultSQLiteDSN,
		JWTSecret:    token.DefaultSecret,
		FrontendURL:  defaultFrontendURL,
		TokenTTL:     token.DefaultTTL,
		QueryTimeout: 5 * time.Second,
		LogLevel:     slog.LevelInfo,
	}

	invalid := make([]string, 0, 2)

	if portValue := lookup(KeyHTTPPort); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, KeyHTTPPort)
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := lookup(KeySQLiteDSN); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if secret := lookup(KeyJWTSecret); secret != "" {
		cfg.JWTSecret = secret
	} else {
		cfg.UsingDefaultSecret = true
	}

	if frontend := lookup(KeyFrontendURL); frontend != "" {
		normalized, err := normalizeFrontendURL(frontend)
		if err != nil {
			invalid = append(invalid, KeyFrontendURL)
		} else {
			cfg.FrontendURL = normalized
		}
	}

	if ttlValue := lookup(KeyTokenTTL); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, KeyTokenTTL)
		} else {
			cfg.TokenTTL = ttl
		}
	}

	if timeoutValue := lookup(KeyQueryTimeout); timeoutValue != "" {
		timeout, err := time.ParseDuration(timeoutValue)
		if err != nil || timeout < 0 {
			invalid = append(invalid, KeyQueryTimeout)
		} else {
			cfg.QueryTimeout = timeout
		}
	}

	cfg.SeedFile = lookup(KeySeedFile)

	if levelValue := lookup(KeyLogLevel); levelValue != "" {
		level, err := logging.ParseLevel(levelValue)
		if err != nil {
			invalid = append(invalid, KeyLogLevel)
		} else {
			cfg.LogLevel = level
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("環境変数の値が不正です: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

var errRelativeURL = errors.New("frontend url must be absolute")

func normalizeFrontendURL(raw string) (string, error) {
	trimmed := strings.TrimRight(raw, "/")
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", err
	}
	if !parsed.IsAbs() || parsed.Host == "" {
		return "", errRelativeURL
	}
	return trimmed, nil
}
