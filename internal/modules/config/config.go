package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "CONFIG_FILE"
	configDirENV      = "CONFIG_DIR"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	databaseDSN       = "DATABASE_DSN"
)

const (
	SnapshotSourceREST  = "rest"
	SnapshotSourceCache = "cache"
)

// OKX ...
type OKX struct {
	WSURL          string        `yaml:"ws_url"`
	WSURLSimulated string        `yaml:"ws_url_simulated"`
	RESTURL        string        `yaml:"rest_url"`
	InstType       string        `yaml:"inst_type"`
	PingInterval   time.Duration `yaml:"ping_interval"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	LoginTimeout   time.Duration `yaml:"login_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Snapshot: минутные снапшоты и чистка старых.
type Snapshot struct {
	Enabled       bool          `yaml:"enabled"`
	Interval      time.Duration `yaml:"interval"`
	MaxConcurrent int           `yaml:"max_concurrent"`
	RetentionDays int           `yaml:"retention_days"`
	TickTimeout   time.Duration `yaml:"tick_timeout"`
	Source        string        `yaml:"source"` // rest | cache
}

type Tracing struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

type Kafka struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// Config ...
type Config struct {
	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`
	DB      string `yaml:"db_dsn"`
	Service struct {
		Host       string `yaml:"host"`
		PublicPort int    `yaml:"public_port"`
		AdminPort  int    `yaml:"admin_port"`
	} `yaml:"service"`

	LogLevel string `yaml:"log_level"`

	OKX      OKX       `yaml:"okx"`
	Snapshot Snapshot  `yaml:"snapshot"`
	Tracing  Tracing   `yaml:"tracing"`
	Kafka    Kafka     `yaml:"kafka"`
	Accounts []Account `yaml:"accounts"`

	skipped []string
}

func defaults() Config {
	c := Config{
		LogLevel: getenvDefault("LOG_LEVEL", "info"),
		OKX: OKX{
			WSURL:          "wss://ws.okx.com:8443/ws/v5/private",
			WSURLSimulated: "wss://wspap.okx.com:8443/ws/v5/private?brokerId=9999",
			RESTURL:        "https://www.okx.com",
			InstType:       "SWAP",
			PingInterval:   25 * time.Second,
			ReconnectDelay: 5 * time.Second,
			LoginTimeout:   10 * time.Second,
			RequestTimeout: 30 * time.Second,
		},
		Snapshot: Snapshot{
			Enabled:       true,
			Interval:      time.Minute,
			MaxConcurrent: 5,
			RetentionDays: 90,
			TickTimeout:   50 * time.Second,
			Source:        SnapshotSourceREST,
		},
		Tracing: Tracing{Host: "localhost", Port: 6831},
	}
	c.Service.Host = "0.0.0.0"
	c.Service.PublicPort = 8000
	c.Service.AdminPort = 8080
	return c
}

func NewConfig() (*Config, error) {
	configFileName := getenvDefault(configFilePathENV, "values_local.yaml")
	dir := getenvDefault(configDirENV, "configs")

	cfg, err := Load(dir + "/" + configFileName)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load: yaml-файл (если есть) + переопределения из env. Вызывается один раз на старте.
func Load(path string) (*Config, error) {
	config := defaults()

	file, err := os.Open(path)
	switch {
	case err == nil:
		defer func() {
			_ = file.Close()
		}()
		if err := yaml.NewDecoder(file).Decode(&config); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode config file %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// без файла живём на дефолтах + env
	default:
		return nil, fmt.Errorf("open config file %s: %w", path, err)
	}

	applyEnv(&config)

	envAccounts, skipped := accountsFromEnv(os.Environ())
	config.Accounts = mergeAccounts(config.Accounts, envAccounts)
	config.skipped = skipped

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func applyEnv(c *Config) {
	if token := os.Getenv(tokenTelegramENV); token != "" {
		c.Telegram.Token = token
	}
	if dsn := os.Getenv(databaseDSN); dsn != "" {
		c.DB = dsn
	}
	c.Telegram.ChatID = int64(intFromEnv("TELEGRAM_CHAT_ID", int(c.Telegram.ChatID)))
	c.LogLevel = getenvDefault("LOG_LEVEL", c.LogLevel)

	c.Service.PublicPort = intFromEnv("PUBLIC_PORT", c.Service.PublicPort)
	c.Service.AdminPort = intFromEnv("ADMIN_PORT", c.Service.AdminPort)

	c.OKX.WSURL = getenvDefault("OKX_WS_URL", c.OKX.WSURL)
	c.OKX.RESTURL = getenvDefault("OKX_REST_URL", c.OKX.RESTURL)
	c.OKX.PingInterval = durationFromEnv("OKX_PING_INTERVAL", c.OKX.PingInterval)
	c.OKX.ReconnectDelay = durationFromEnv("OKX_RECONNECT_DELAY", c.OKX.ReconnectDelay)

	c.Snapshot.Enabled = boolFromEnv("SNAPSHOT_ENABLED", c.Snapshot.Enabled)
	c.Snapshot.RetentionDays = intFromEnv("SNAPSHOT_RETENTION_DAYS", c.Snapshot.RetentionDays)
	c.Snapshot.MaxConcurrent = intFromEnv("SNAPSHOT_MAX_CONCURRENT", c.Snapshot.MaxConcurrent)
	c.Snapshot.Source = getenvDefault("SNAPSHOT_SOURCE", c.Snapshot.Source)

	c.Tracing.Enabled = boolFromEnv("TRACING_ENABLED", c.Tracing.Enabled)
}

func (c *Config) Validate() error {
	if c.OKX.PingInterval <= 0 || c.OKX.PingInterval >= 30*time.Second {
		return fmt.Errorf("okx.ping_interval must be in (0, 30s), got %s", c.OKX.PingInterval)
	}
	if c.OKX.ReconnectDelay <= 0 {
		return fmt.Errorf("okx.reconnect_delay must be positive, got %s", c.OKX.ReconnectDelay)
	}
	if c.Snapshot.MaxConcurrent <= 0 {
		return fmt.Errorf("snapshot.max_concurrent must be positive, got %d", c.Snapshot.MaxConcurrent)
	}
	if c.Snapshot.RetentionDays <= 0 {
		return fmt.Errorf("snapshot.retention_days must be positive, got %d", c.Snapshot.RetentionDays)
	}
	if c.Snapshot.Source != SnapshotSourceREST && c.Snapshot.Source != SnapshotSourceCache {
		return fmt.Errorf("snapshot.source must be %q or %q, got %q", SnapshotSourceREST, SnapshotSourceCache, c.Snapshot.Source)
	}

	seen := make(map[string]struct{}, len(c.Accounts))
	for _, a := range c.Accounts {
		if _, dup := seen[a.ID]; dup {
			return fmt.Errorf("duplicate account id %q", a.ID)
		}
		seen[a.ID] = struct{}{}
	}
	return nil
}

// Retention: окно хранения снапшотов.
func (s Snapshot) Retention() time.Duration {
	return time.Duration(s.RetentionDays) * 24 * time.Hour
}

// WSURLFor: у демо-аккаунтов свой хост.
func (o OKX) WSURLFor(a Account) string {
	if a.Simulated && o.WSURLSimulated != "" {
		return o.WSURLSimulated
	}
	return o.WSURL
}

// SkippedAccounts: номера аккаунтов из env, у которых не хватило ключей.
func (c *Config) SkippedAccounts() []string { return c.skipped }

func intFromEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func boolFromEnv(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if v == "1" || v == "true" || v == "TRUE" {
			return true
		}
		if v == "0" || v == "false" || v == "FALSE" {
			return false
		}
	}
	return def
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationFromEnv(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
