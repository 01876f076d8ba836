package config

import (
	"encoding/base64"
	"encoding/json"
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

// Config holds all configuration options for the harvester. It is built once
// at startup and handed to the constructors that need it; core packages never
// read the environment themselves.
type Config struct {
	// Twitter/X account sources
	Accounts AccountsConfig `yaml:"accounts" json:"accounts"`

	// Search settings
	Search SearchConfig `yaml:"search" json:"search"`

	// Rate limiting for outgoing requests
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Session persistence
	Session SessionConfig `yaml:"session" json:"session"`

	// Output artifacts
	Output OutputConfig `yaml:"output" json:"output"`

	// Metrics listener
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// AccountEntry is one account in the multi-account bundle.
type AccountEntry struct {
	Username string `yaml:"username" json:"username"`
	Email    string `yaml:"email" json:"email"`
	Password string `yaml:"password" json:"password"`
	Label    string `yaml:"label" json:"label"`
}

// AccountsConfig holds the credential sources, in precedence order: the
// multi-account bundle wins over the single username/password triple.
type AccountsConfig struct {
	// Bundle is a JSON array of AccountEntry, raw or base64-encoded.
	// Populated from the TWITTER_ACCOUNTS secret in CI.
	Bundle string `yaml:"bundle" json:"bundle"`

	Username string `yaml:"username" json:"username"`
	Email    string `yaml:"email" json:"email"`
	Password string `yaml:"password" json:"password"`

	// Shuffle distributes login load across runs.
	Shuffle bool `yaml:"shuffle" json:"shuffle"`
}

// SearchConfig holds the keyword list and pacing knobs.
type SearchConfig struct {
	Keywords      []string      `yaml:"keywords" json:"keywords"`
	Language      string        `yaml:"language" json:"language"`
	MaxPerKeyword int           `yaml:"max_per_keyword" json:"max_per_keyword"`
	PagePause     time.Duration `yaml:"page_pause" json:"page_pause"`
	KeywordPause  time.Duration `yaml:"keyword_pause" json:"keyword_pause"`
	LoginCooldown time.Duration `yaml:"login_cooldown" json:"login_cooldown"`
	UserAgent     string        `yaml:"user_agent" json:"user_agent"`
}

// RateLimitConfig holds the client-side request limiter settings.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second"`
	Burst             int     `yaml:"burst" json:"burst"`
}

// SessionConfig holds session-state persistence settings.
type SessionConfig struct {
	// StateFile is where the serialized session blob lives.
	StateFile string `yaml:"state_file" json:"state_file"`

	// CookiesB64 is a base64 session blob injected via secret (CI restore path).
	CookiesB64 string `yaml:"cookies_b64" json:"cookies_b64"`

	// Passphrase protects the state file at rest. Empty disables encryption.
	Passphrase string `yaml:"passphrase" json:"passphrase"`
}

// OutputConfig holds report artifact locations.
type OutputConfig struct {
	DataFile   string `yaml:"data_file" json:"data_file"`
	SiteDir    string `yaml:"site_dir" json:"site_dir"`
	SQLitePath string `yaml:"sqlite_path" json:"sqlite_path"`
}

// MetricsConfig holds the optional Prometheus listener address.
type MetricsConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Accounts: AccountsConfig{
			Shuffle: true,
		},
		Search: SearchConfig{
			Keywords:      []string{"comarb", "sifere", "sircar", "sirpei", "sircreb", "sircupa", "sirtac"},
			Language:      "es",
			MaxPerKeyword: 200,
			PagePause:     3 * time.Second,
			KeywordPause:  30 * time.Second,
			LoginCooldown: 5 * time.Second,
			UserAgent:     "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 1.0,
			Burst:             3,
		},
		Session: SessionConfig{
			StateFile: "twitter_cookies.json",
		},
		Output: OutputConfig{
			DataFile: "tweets_data.json",
			SiteDir:  "docs",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DecodeBundle parses the multi-account bundle, accepting raw JSON first and
// falling back to base64-encoded JSON, the two shapes the CI secret may carry.
func (a *AccountsConfig) DecodeBundle() ([]AccountEntry, error) {
	if a.Bundle == "" {
		return nil, nil
	}

	var entries []AccountEntry
	if err := json.Unmarshal([]byte(a.Bundle), &entries); err == nil {
		return entries, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(a.Bundle))
	if err != nil {
		return nil, fmt.Errorf("account bundle is neither JSON nor base64: %w", err)
	}
	if err := json.Unmarshal(decoded, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse decoded account bundle: %w", err)
	}
	return entries, nil
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if bundle := os.Getenv("TWITTER_ACCOUNTS"); bundle != "" {
		c.Accounts.Bundle = bundle
	}
	if username := os.Getenv("TWITTER_USERNAME"); username != "" {
		c.Accounts.Username = username
	}
	if email := os.Getenv("TWITTER_EMAIL"); email != "" {
		c.Accounts.Email = email
	}
	if password := os.Getenv("TWITTER_PASSWORD"); password != "" {
		c.Accounts.Password = password
	}
	if cookies := os.Getenv("TWITTER_COOKIES"); cookies != "" {
		c.Session.CookiesB64 = cookies
	}
	if passphrase := os.Getenv("XPULSE_SESSION_PASSPHRASE"); passphrase != "" {
		c.Session.Passphrase = passphrase
	}
	if keywords := os.Getenv("XPULSE_KEYWORDS"); keywords != "" {
		parts := strings.Split(keywords, ",")
		c.Search.Keywords = nil
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				c.Search.Keywords = append(c.Search.Keywords, p)
			}
		}
	}
	if maxPer := os.Getenv("XPULSE_MAX_PER_KEYWORD"); maxPer != "" {
		if val, err := strconv.Atoi(maxPer); err == nil && val > 0 {
			c.Search.MaxPerKeyword = val
		}
	}
	if outputDir := os.Getenv("OUTPUT_DIR"); outputDir != "" {
		c.Output.SiteDir = outputDir
	}
	if sqlitePath := os.Getenv("XPULSE_SQLITE_PATH"); sqlitePath != "" {
		c.Output.SQLitePath = sqlitePath
	}
	if metricsAddr := os.Getenv("METRICS_ADDR"); metricsAddr != "" {
		c.Metrics.Addr = metricsAddr
	}
	if logLevel := os.Getenv("XPULSE_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	// Check in order of precedence
	locations := []string{
		".xpulse.yaml",
		".xpulse.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "xpulse", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "xpulse", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if len(c.Search.Keywords) == 0 {
		errs = append(errs, errors.New("at least one search keyword is required"))
	}
	if c.Search.MaxPerKeyword <= 0 {
		errs = append(errs, errors.New("max posts per keyword must be positive"))
	}
	if c.Search.Language == "" {
		errs = append(errs, errors.New("search language is required"))
	}

	if c.RateLimit.RequestsPerSecond <= 0 {
		errs = append(errs, errors.New("requests per second must be positive"))
	}
	if c.RateLimit.Burst <= 0 {
		errs = append(errs, errors.New("burst size must be positive"))
	}

	if c.Session.StateFile == "" {
		errs = append(errs, errors.New("session state file is required"))
	}
	if c.Output.DataFile == "" {
		errs = append(errs, errors.New("output data file is required"))
	}

	if _, err := c.Accounts.DecodeBundle(); err != nil {
		errs = append(errs, err)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if keywords, ok := flags["keywords"].([]string); ok && len(keywords) > 0 {
		c.Search.Keywords = keywords
	}
	if maxPer, ok := flags["max-per-keyword"].(int); ok && maxPer > 0 {
		c.Search.MaxPerKeyword = maxPer
	}
	if dataFile, ok := flags["data-file"].(string); ok && dataFile != "" {
		c.Output.DataFile = dataFile
	}
	if siteDir, ok := flags["site-dir"].(string); ok && siteDir != "" {
		c.Output.SiteDir = siteDir
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".xpulse.env"))

	// Start with defaults
	config := DefaultConfig()

	// Load from config file
	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Override with command line flags
	config.MergeCommandLineFlags(flags)

	// Validate final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
