// ABOUTME: Configuration loading and parsing for userd
// ABOUTME: YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete userd configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Accounts AccountsConfig `yaml:"accounts"`
	Sessions SessionsConfig `yaml:"sessions"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds the HTTP listen address.
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// DatabaseConfig holds the key-value store location.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AccountsConfig holds the name/password policy and hashing work factor.
type AccountsConfig struct {
	NameMinLength  int  `yaml:"name_min_length"`
	NameMaxLength  int  `yaml:"name_max_length"`
	PassMinLength  int  `yaml:"pass_min_length"`
	RequireNumbers bool `yaml:"require_numbers"`
	RequireCase    bool `yaml:"require_case"`
	RequireSpecial bool `yaml:"require_special"`
	HashCost       int  `yaml:"hash_cost"`
}

// SessionsConfig holds the per-kind TTLs and the sweep period.
type SessionsConfig struct {
	ShortTTL    time.Duration `yaml:"-"`
	LongTTL     time.Duration `yaml:"-"`
	ElevatedTTL time.Duration `yaml:"-"`
	SweepPeriod time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	ShortTTLRaw    string `yaml:"short_ttl"`
	LongTTLRaw     string `yaml:"long_ttl"`
	ElevatedTTLRaw string `yaml:"elevated_ttl"`
	SweepPeriodRaw string `yaml:"sweep_period"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration userd init writes out.
func Default() *Config {
	return &Config{
		Server:   ServerConfig{HTTPAddr: ":8420"},
		Database: DatabaseConfig{Path: "user.db"},
		Accounts: AccountsConfig{
			NameMinLength:  3,
			NameMaxLength:  32,
			PassMinLength:  10,
			RequireNumbers: true,
			RequireCase:    true,
			RequireSpecial: true,
			HashCost:       10,
		},
		Sessions: SessionsConfig{
			ShortTTLRaw:    "1h",
			LongTTLRaw:     "720h",
			ElevatedTTLRaw: "5m",
			SweepPeriodRaw: "1m",
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads a configuration file from the given path and returns a parsed
// Config. Environment variables in the format ${VAR_NAME} are expanded, and
// duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables become empty strings.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and
// valid. Returns an error describing the first failure encountered.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}

	if c.Accounts.NameMinLength < 1 {
		return fmt.Errorf("accounts.name_min_length must be at least 1")
	}
	if c.Accounts.NameMaxLength < c.Accounts.NameMinLength {
		return fmt.Errorf("accounts.name_max_length must be >= name_min_length")
	}
	if c.Accounts.PassMinLength < 1 {
		return fmt.Errorf("accounts.pass_min_length must be at least 1")
	}
	if c.Accounts.HashCost < 4 || c.Accounts.HashCost > 31 {
		return fmt.Errorf("accounts.hash_cost must be between 4 and 31")
	}

	if c.Sessions.ShortTTL <= 0 {
		return fmt.Errorf("sessions.short_ttl is required")
	}
	if c.Sessions.LongTTL <= 0 {
		return fmt.Errorf("sessions.long_ttl is required")
	}
	if c.Sessions.ElevatedTTL <= 0 {
		return fmt.Errorf("sessions.elevated_ttl is required")
	}
	if c.Sessions.ElevatedTTL > c.Sessions.ShortTTL || c.Sessions.ElevatedTTL > c.Sessions.LongTTL {
		return fmt.Errorf("sessions.elevated_ttl must not exceed the short or long TTL")
	}
	if c.Sessions.SweepPeriod <= 0 {
		return fmt.Errorf("sessions.sweep_period is required")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		raw  string
		dst  *time.Duration
		name string
	}{
		{cfg.Sessions.ShortTTLRaw, &cfg.Sessions.ShortTTL, "short_ttl"},
		{cfg.Sessions.LongTTLRaw, &cfg.Sessions.LongTTL, "long_ttl"},
		{cfg.Sessions.ElevatedTTLRaw, &cfg.Sessions.ElevatedTTL, "elevated_ttl"},
		{cfg.Sessions.SweepPeriodRaw, &cfg.Sessions.SweepPeriod, "sweep_period"},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}
	return nil
}
