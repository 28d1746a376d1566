package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port" env:"PORT"`
	} `yaml:"server" envPrefix:"SERVER_"`
	API struct {
		BaseURL string `yaml:"base_url" env:"BASE_URL"`
		Timeout string `yaml:"timeout" env:"TIMEOUT"`
	} `yaml:"api" envPrefix:"API_"`
	Redis struct {
		Addr     string `yaml:"addr" env:"ADDR"`
		Password string `yaml:"password" env:"PASSWORD"`
		DB       int    `yaml:"db" env:"DB"`
		TTL      string `yaml:"ttl" env:"TTL"`
	} `yaml:"redis" envPrefix:"REDIS_"`
	Postgres struct {
		URL string `yaml:"url" env:"URL"`
	} `yaml:"postgres" envPrefix:"POSTGRES_"`
	Scenario struct {
		// Source selects the scenario backend: api, postgres or file.
		Source string `yaml:"source" env:"SOURCE"`
		File   string `yaml:"file" env:"FILE"`
		TTL    string `yaml:"ttl" env:"TTL"`
	} `yaml:"scenario" envPrefix:"SCENARIO_"`
	Run struct {
		AutoFinishDelay string `yaml:"auto_finish_delay" env:"AUTO_FINISH_DELAY"`
		SaveAttempts    int    `yaml:"save_attempts" env:"SAVE_ATTEMPTS"`
		SaveTimeout     string `yaml:"save_timeout" env:"SAVE_TIMEOUT"`
	} `yaml:"run" envPrefix:"RUN_"`
	RabbitMQ struct {
		URL      string `yaml:"url" env:"URL"`
		Exchange string `yaml:"exchange" env:"EXCHANGE"`
	} `yaml:"rabbitmq" envPrefix:"RABBITMQ_"`
	Log struct {
		Level string `yaml:"level" env:"LEVEL"`
	} `yaml:"log" envPrefix:"LOG_"`
}

// Default returns the settings used when neither the file nor the environment set a value.
func Default() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.API.BaseURL = "http://localhost:3000"
	cfg.API.Timeout = "15s"
	cfg.Redis.TTL = "10m"
	cfg.Scenario.Source = "api"
	cfg.Scenario.TTL = "5m"
	cfg.Run.AutoFinishDelay = "1s"
	cfg.Run.SaveAttempts = 3
	cfg.Run.SaveTimeout = "10s"
	cfg.RabbitMQ.Exchange = "practice.events"
	cfg.Log.Level = "info"
	return cfg
}

// Load reads YAML config from path and applies PRACTICE_* environment overrides.
// A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, err
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "PRACTICE_"}); err != nil {
		return cfg, fmt.Errorf("parsing environment: %w", err)
	}
	return cfg, nil
}

// LogLevel parses Log.Level, defaulting to info.
func (c Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
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
