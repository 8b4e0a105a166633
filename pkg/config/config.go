package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App     AppConfig     `mapstructure:"app"`
	API     APIConfig     `mapstructure:"api"`
	Session SessionConfig `mapstructure:"session"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Events  EventsConfig  `mapstructure:"events"`
	Monitor MonitorConfig `mapstructure:"monitor"`
	Audit   AuditConfig   `mapstructure:"audit"`
	Sandbox SandboxConfig `mapstructure:"sandbox"`
	Lock    LockConfig    `mapstructure:"lock"`
}

type AppConfig struct {
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
}

type APIConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"` // 0 = 不设置客户端超时
	MaxRetries int           `mapstructure:"max_retries"`
}

type SessionConfig struct {
	Driver string `mapstructure:"driver"` // "file", "redis" or "memory"
	Path   string `mapstructure:"path"`
	Key    string `mapstructure:"key"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type EventsConfig struct {
	Driver  string   `mapstructure:"driver"` // "none", "redis" or "kafka"
	Topic   string   `mapstructure:"topic"`
	Brokers []string `mapstructure:"brokers"`
}

type MonitorConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	AutoRefresh  bool          `mapstructure:"auto_refresh"`
}

type AuditConfig struct {
	PageSize int `mapstructure:"page_size"`
}

// LockConfig guards the distribute call with a Redis lock shared by every console.
type LockConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

type SandboxConfig struct {
	Addr string `mapstructure:"addr"`
}

// Global is set by the root command before any subcommand runs.
var Global Config

// Load reads config.yaml (or the explicit path) and REWARD_* environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config") // name of config file (without extension)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.reward-console")
	}

	// 环境变量: REWARD_API_BASE_URL -> api.base_url
	v.SetEnvPrefix("REWARD")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || path != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	// Next.js 前端使用的变量名，作为兜底
	if cfg.API.BaseURL == "" {
		_ = v.BindEnv("next_public_api_url", "NEXT_PUBLIC_API_URL")
		cfg.API.BaseURL = v.GetString("next_public_api_url")
	}
	if cfg.Monitor.PollInterval <= 0 {
		return nil, fmt.Errorf("monitor.poll_interval must be positive, got %s", cfg.Monitor.PollInterval)
	}
	if cfg.Audit.PageSize <= 0 {
		return nil, fmt.Errorf("audit.page_size must be positive, got %d", cfg.Audit.PageSize)
	}
	if cfg.API.MaxRetries < 0 {
		cfg.API.MaxRetries = 0
	}

	return &cfg, nil
}

// RequireAPI fails when no backend base URL is configured. The sandbox command does not need one.
func (c *Config) RequireAPI() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return errors.New("api.base_url is not configured (REWARD_API_BASE_URL or NEXT_PUBLIC_API_URL)")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.log_level", "warn")

	v.SetDefault("api.base_url", "")
	v.SetDefault("api.timeout", "0s")
	v.SetDefault("api.max_retries", 1)

	v.SetDefault("session.driver", "file")
	v.SetDefault("session.path", "$HOME/.reward-console/session.json")
	v.SetDefault("session.key", "reward-console:session")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("events.driver", "none")
	v.SetDefault("events.topic", "reward_distribution_events")
	v.SetDefault("events.brokers", []string{"localhost:9092"})

	v.SetDefault("monitor.poll_interval", "5s")
	v.SetDefault("monitor.auto_refresh", true)

	v.SetDefault("audit.page_size", 20)

	v.SetDefault("sandbox.addr", ":8000")

	v.SetDefault("lock.enabled", false)
	v.SetDefault("lock.ttl", "2m")
}
