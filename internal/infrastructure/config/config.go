package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// 額度儲存驅動
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreSQL    = "sql"
	StoreRemote = "remote"
)

// Config 應用配置
type Config struct {
	App         AppConfig       `mapstructure:"app"`
	Server      ServerConfig    `mapstructure:"server"`
	Quota       QuotaConfig     `mapstructure:"quota"`
	Store       StoreConfig     `mapstructure:"store"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	DedupWindow time.Duration   `mapstructure:"dedup_window"`
	LogLevel    string          `mapstructure:"log_level"`
	LogFile     string          `mapstructure:"log_file"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
	AllowOrigins   []string      `mapstructure:"allow_origins"`
}

// QuotaConfig 每日 AI 修改額度設定
type QuotaConfig struct {
	DailyLimit     int           `mapstructure:"daily_limit"`
	Timezone       string        `mapstructure:"timezone"`
	MaxRetries     int           `mapstructure:"max_retries"`
	StoreTimeout   time.Duration `mapstructure:"store_timeout"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
}

// Location 解析額度日界使用的時區
func (q QuotaConfig) Location() (*time.Location, error) {
	if q.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(q.Timezone)
}

// StoreConfig 額度儲存設定
type StoreConfig struct {
	Driver string       `mapstructure:"driver"`
	Memory MemoryConfig `mapstructure:"memory"`
	Redis  RedisConfig  `mapstructure:"redis"`
	SQL    SQLConfig    `mapstructure:"sql"`
	Remote RemoteConfig `mapstructure:"remote"`
}

// MemoryConfig 記憶體儲存設定
type MemoryConfig struct {
	IdleTTL         time.Duration `mapstructure:"idle_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RedisConfig Redis 設定
type RedisConfig struct {
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// SQLConfig 關聯式資料庫設定
type SQLConfig struct {
	Dialect     string `mapstructure:"dialect"` // postgres / sqlite
	DSN         string `mapstructure:"dsn"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

// RemoteConfig 託管資料庫 REST 端點設定
type RemoteConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// .env 為選用
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	// 設定環境變數前綴
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 綁定環境變量
	_ = v.BindEnv("quota.daily_limit", "QUOTA_DAILY_LIMIT")
	_ = v.BindEnv("quota.timezone", "QUOTA_TIMEZONE")
	_ = v.BindEnv("store.driver", "QUOTA_STORE_DRIVER")
	_ = v.BindEnv("store.redis.addr", "REDIS_ADDR")
	_ = v.BindEnv("store.redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("store.sql.dialect", "DATABASE_DIALECT")
	_ = v.BindEnv("store.sql.dsn", "DATABASE_DSN")
	_ = v.BindEnv("store.remote.base_url", "REMOTE_STORE_URL")
	_ = v.BindEnv("store.remote.api_key", "REMOTE_STORE_API_KEY")
	_ = v.BindEnv("server.port", "PORT")
	_ = v.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	_ = v.BindEnv("rate_limit.requests", "RATE_LIMIT_REQUESTS")
	_ = v.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	_ = v.BindEnv("dedup_window", "DEDUP_WINDOW")
	_ = v.BindEnv("log_level", "LOG_LEVEL")
	_ = v.BindEnv("log_file", "LOG_FILE")

	// 設定檔為選用
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// setDefaults 設定預設值
func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", true)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "recipe-modifier")

	// 伺服器設定
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "15s")
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.allow_origins", []string{"*"})

	// 額度設定
	v.SetDefault("quota.daily_limit", 5)
	v.SetDefault("quota.timezone", "UTC")
	v.SetDefault("quota.max_retries", 3)
	v.SetDefault("quota.store_timeout", "2s")
	v.SetDefault("quota.initial_backoff", "100ms")
	v.SetDefault("quota.max_backoff", "1s")

	// 儲存設定
	v.SetDefault("store.driver", StoreMemory)
	v.SetDefault("store.memory.idle_ttl", "48h")
	v.SetDefault("store.memory.cleanup_interval", "10m")
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.key_prefix", "quota:usage:")
	v.SetDefault("store.redis.ttl", "48h")
	v.SetDefault("store.sql.dialect", "postgres")
	v.SetDefault("store.sql.auto_migrate", true)
	v.SetDefault("store.remote.timeout", "5s")

	// 限流設定
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", "1m")

	v.SetDefault("dedup_window", "1s")
	v.SetDefault("log_level", "info")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}

	// 額度上限必須為正數
	if config.Quota.DailyLimit <= 0 {
		return fmt.Errorf("quota daily limit must be positive, got %d", config.Quota.DailyLimit)
	}
	if config.Quota.MaxRetries < 0 {
		return fmt.Errorf("quota max retries cannot be negative")
	}
	if config.Quota.StoreTimeout <= 0 {
		return fmt.Errorf("invalid quota store timeout")
	}
	if _, err := config.Quota.Location(); err != nil {
		return fmt.Errorf("invalid quota timezone %q: %w", config.Quota.Timezone, err)
	}

	switch config.Store.Driver {
	case StoreMemory:
	case StoreRedis:
		if config.Store.Redis.Addr == "" {
			return fmt.Errorf("redis addr is required for redis store")
		}
	case StoreSQL:
		if config.Store.SQL.DSN == "" {
			return fmt.Errorf("database dsn is required for sql store")
		}
		if config.Store.SQL.Dialect != "postgres" && config.Store.SQL.Dialect != "sqlite" {
			return fmt.Errorf("unsupported sql dialect %q", config.Store.SQL.Dialect)
		}
	case StoreRemote:
		if config.Store.Remote.BaseURL == "" {
			return fmt.Errorf("remote store base url is required for remote store")
		}
	default:
		return fmt.Errorf("unknown quota store driver %q", config.Store.Driver)
	}

	if config.RateLimit.Enabled {
		if config.RateLimit.Requests <= 0 || config.RateLimit.Window <= 0 {
			return fmt.Errorf("invalid rate limit settings")
		}
	}

	return nil
}
