package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration: defaults, then the
// optional YAML file, then environment overrides.
type Config struct {
	HTTPPort  int
	MySQLDSN  string
	RedisAddr string

	LinkSecret   string
	LinkBaseURL  string
	LinkTokenTTL time.Duration

	LicensedURLTTL time.Duration
}

type configFile struct {
	Service struct {
		HTTPPort int `yaml:"http_port"`
	} `yaml:"service"`
	Dependencies struct {
		MySQLDSN  string `yaml:"mysql_dsn"`
		RedisAddr string `yaml:"redis_addr"`
	} `yaml:"dependencies"`
	Links struct {
		Secret        string `yaml:"secret"`
		BaseURL       string `yaml:"base_url"`
		TokenTTLHours int    `yaml:"token_ttl_hours"`
	} `yaml:"links"`
	Cache struct {
		LicensedURLTTLMinutes int `yaml:"licensed_url_ttl_minutes"`
	} `yaml:"cache"`
}

func Load(path string) (Config, error) {
	cfg := Config{
		HTTPPort:       8080,
		MySQLDSN:       "root:root@tcp(localhost:3306)/edd?parseTime=true",
		RedisAddr:      "localhost:6379",
		LinkSecret:     "edd-local-dev-secret",
		LinkBaseURL:    "http://localhost:8080/download",
		LinkTokenTTL:   24 * time.Hour,
		LicensedURLTTL: time.Hour,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Dependencies.MySQLDSN != "" {
			cfg.MySQLDSN = f.Dependencies.MySQLDSN
		}
		if f.Dependencies.RedisAddr != "" {
			cfg.RedisAddr = f.Dependencies.RedisAddr
		}
		if f.Links.Secret != "" {
			cfg.LinkSecret = f.Links.Secret
		}
		if f.Links.BaseURL != "" {
			cfg.LinkBaseURL = f.Links.BaseURL
		}
		if f.Links.TokenTTLHours > 0 {
			cfg.LinkTokenTTL = time.Duration(f.Links.TokenTTLHours) * time.Hour
		}
		if f.Cache.LicensedURLTTLMinutes > 0 {
			cfg.LicensedURLTTL = time.Duration(f.Cache.LicensedURLTTLMinutes) * time.Minute
		}
	}

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.MySQLDSN = envOrDefault("MYSQL_DSN", cfg.MySQLDSN)
	cfg.RedisAddr = envOrDefault("REDIS_ADDR", cfg.RedisAddr)
	cfg.LinkSecret = envOrDefault("LINK_SECRET", cfg.LinkSecret)
	cfg.LinkBaseURL = envOrDefault("LINK_BASE_URL", cfg.LinkBaseURL)
	cfg.LinkTokenTTL = time.Duration(envInt("LINK_TOKEN_TTL_HOURS", int(cfg.LinkTokenTTL.Hours()))) * time.Hour
	cfg.LicensedURLTTL = time.Duration(envInt("LICENSED_URL_TTL_MINUTES", int(cfg.LicensedURLTTL.Minutes()))) * time.Minute

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
