// Package config reads server settings from the environment, an optional
// .env file and an optional YAML rules file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Addr            string
	Env             string
	LogLevel        zapcore.Level
	WinsNeeded      int
	LeaderboardSize int
	OutboxSize      int
	QueueTick       time.Duration
	PingInterval    time.Duration
	AllowedOrigins  []string
	DatabaseURL     string
	RulesFile       string
}

// Rules is the YAML rules file. Zero fields leave the environment value.
type Rules struct {
	WinsNeeded      int    `yaml:"wins_needed"`
	LeaderboardSize int    `yaml:"leaderboard_size"`
	QueueTick       string `yaml:"queue_tick"`
}

func Default() Config {
	return Config{
		Addr:            ":8080",
		LogLevel:        zapcore.InfoLevel,
		WinsNeeded:      3,
		LeaderboardSize: 10,
		OutboxSize:      16,
		QueueTick:       5 * time.Second,
		PingInterval:    20 * time.Second,
	}
}

func (c Config) Development() bool { return c.Env == "development" }

// Load reads .env if present, then the environment, then RULES_FILE.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from lookup. Every bad value is reported, not just
// the first.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	c := Default()
	var errs error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = n
	}
	dur := func(key string, dst *time.Duration) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = d
	}

	str("ADDR", &c.Addr)
	str("APP_ENV", &c.Env)
	str("DATABASE_URL", &c.DatabaseURL)
	str("RULES_FILE", &c.RulesFile)
	num("WINS_NEEDED", &c.WinsNeeded)
	num("LEADERBOARD_SIZE", &c.LeaderboardSize)
	num("OUTBOX_SIZE", &c.OutboxSize)
	dur("QUEUE_TICK", &c.QueueTick)
	dur("PING_INTERVAL", &c.PingInterval)

	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		if err := c.LogLevel.UnmarshalText([]byte(v)); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
		}
	}
	if v, ok := lookup("ALLOWED_ORIGINS"); ok {
		c.AllowedOrigins = splitList(v)
	}

	if c.RulesFile != "" {
		rules, err := ReadRules(c.RulesFile)
		if err != nil {
			errs = multierr.Append(errs, err)
		} else if err := c.apply(rules); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if errs != nil {
		return Config{}, errs
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func ReadRules(path string) (Rules, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules file: %w", err)
	}
	var r Rules
	if err := yaml.UnmarshalStrict(raw, &r); err != nil {
		return Rules{}, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	return r, nil
}

func (c *Config) apply(r Rules) error {
	if r.WinsNeeded != 0 {
		c.WinsNeeded = r.WinsNeeded
	}
	if r.LeaderboardSize != 0 {
		c.LeaderboardSize = r.LeaderboardSize
	}
	if r.QueueTick != "" {
		d, err := time.ParseDuration(r.QueueTick)
		if err != nil {
			return fmt.Errorf("rules queue_tick: %w", err)
		}
		c.QueueTick = d
	}
	return nil
}

func (c Config) Validate() error {
	var errs error
	if c.WinsNeeded < 1 {
		errs = multierr.Append(errs, fmt.Errorf("wins needed must be at least 1, got %d", c.WinsNeeded))
	}
	if c.LeaderboardSize < 1 {
		errs = multierr.Append(errs, fmt.Errorf("leaderboard size must be at least 1, got %d", c.LeaderboardSize))
	}
	if c.OutboxSize < 1 {
		errs = multierr.Append(errs, fmt.Errorf("outbox size must be at least 1, got %d", c.OutboxSize))
	}
	if c.QueueTick <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("queue tick must be positive, got %s", c.QueueTick))
	}
	if c.PingInterval <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("ping interval must be positive, got %s", c.PingInterval))
	}
	return errs
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
