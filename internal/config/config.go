package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Bind      string `yaml:"bind"`
		Port      int    `yaml:"port"`
		PublicURL string `yaml:"public_url"`
		HostKey   string `yaml:"host_key"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`
	Quiz struct {
		TTL       string `yaml:"ttl"`
		File      string `yaml:"file"`
		DefaultID string `yaml:"default_id"`
	} `yaml:"quiz"`
	Game struct {
		CountdownSeconds int    `yaml:"countdown_seconds"`
		QuestionSeconds  int    `yaml:"question_seconds"`
		RevealDelay      string `yaml:"reveal_delay"`
		LeaderboardDelay string `yaml:"leaderboard_delay"`
	} `yaml:"game"`
	NATS struct {
		URL     string `yaml:"url"`
		Subject string `yaml:"subject"`
	} `yaml:"nats"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
}

// Default returns the settings used when no file or override says otherwise.
func Default() Config {
	var cfg Config
	cfg.Server.Bind = "0.0.0.0"
	cfg.Server.Port = 3000
	cfg.Redis.TTL = "10m"
	cfg.Quiz.TTL = "10m"
	cfg.Game.CountdownSeconds = 5
	cfg.Game.QuestionSeconds = 15
	cfg.Game.RevealDelay = "3s"
	cfg.Game.LeaderboardDelay = "5s"
	cfg.NATS.Subject = "quiz.host"
	cfg.Log.Level = "info"
	return cfg
}

// Load reads YAML config from path on top of Default.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOptional is Load, except that a missing file yields Default.
func LoadOptional(path string) (Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Game.CountdownSeconds < 0 {
		return fmt.Errorf("game.countdown_seconds must not be negative")
	}
	if c.Game.QuestionSeconds < 1 {
		return fmt.Errorf("game.question_seconds must be at least 1")
	}
	for name, raw := range map[string]string{
		"game.reveal_delay":      c.Game.RevealDelay,
		"game.leaderboard_delay": c.Game.LeaderboardDelay,
		"quiz.ttl":               c.Quiz.TTL,
		"redis.ttl":              c.Redis.TTL,
	} {
		if raw == "" {
			continue
		}
		if _, err := time.ParseDuration(raw); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
