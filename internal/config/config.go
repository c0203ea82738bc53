package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix - префикс переменных окружения: MOUNTAINMERGE_SERVER_ADDR -> server.addr.
const EnvPrefix = "MOUNTAINMERGE_"

// Config represents the application configuration
type Config struct {
	Server struct {
		Addr string `koanf:"addr"`
		Seed bool   `koanf:"seed"`
	} `koanf:"server"`

	Storage struct {
		Driver string `koanf:"driver"`
		DSN    string `koanf:"dsn"`
		Debug  bool   `koanf:"debug"`
	} `koanf:"storage"`

	Auth struct {
		Secret string        `koanf:"secret"`
		TTL    time.Duration `koanf:"ttl"`
	} `koanf:"auth"`

	Limits struct {
		RPS   float64 `koanf:"rps"`
		Burst int     `koanf:"burst"`
	} `koanf:"limits"`

	Log struct {
		Level  string `koanf:"level"`
		Pretty bool   `koanf:"pretty"`
	} `koanf:"log"`

	Client struct {
		URL     string        `koanf:"url"`
		Token   string        `koanf:"token"`
		Timeout time.Duration `koanf:"timeout"`
		RPS     float64       `koanf:"rps"`
	} `koanf:"client"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"server.addr":    ":8080",
		"server.seed":    false,
		"storage.driver": "memory",
		"storage.dsn":    "",
		"storage.debug":  false,
		"auth.secret":    "",
		"auth.ttl":       "336h",
		"limits.rps":     2.0,
		"limits.burst":   5,
		"log.level":      "info",
		"log.pretty":     false,
		"client.url":     "http://localhost:8080",
		"client.token":   "",
		"client.timeout": "10s",
		"client.rps":     5.0,
	}
}

// Load загружает конфигурацию: значения по умолчанию, затем TOML-файл
// (если путь задан), затем переменные окружения с префиксом MOUNTAINMERGE_.
func Load(configPath string) (*Config, error) {
	var k = koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("error loading defaults: %w", err)
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("error loading environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}
	return &cfg, nil
}

// ValidateServer проверяет настройки, необходимые серверу.
func (c *Config) ValidateServer() error {
	switch c.Storage.Driver {
	case "memory":
	case "postgres":
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn must be set for postgres storage")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Auth.Secret == "" {
		return fmt.Errorf("auth.secret is required")
	}
	if c.Auth.TTL <= 0 {
		return fmt.Errorf("auth.ttl must be positive")
	}
	if c.Limits.RPS <= 0 || c.Limits.Burst < 1 {
		return fmt.Errorf("limits.rps and limits.burst must be positive")
	}
	return nil
}
