package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		BaseURL string `yaml:"base_url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"server"`
	Session struct {
		FeedbackDelay string `yaml:"feedback_delay"`
		AutoAdvance   string `yaml:"auto_advance"`
	} `yaml:"session"`
	Polling struct {
		Interval string `yaml:"interval"`
	} `yaml:"polling"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Results struct {
		FinalTTL string `yaml:"final_ttl"`
		LiveTTL  string `yaml:"live_ttl"`
	} `yaml:"results"`
}

// Load reads YAML config from path. A missing file yields the zero config so
// every setting falls back to its default.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Duration parses a duration string or returns the fallback if empty or invalid.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
