package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"AstroAI/pkg/logger"
)

type Config struct {
	Environment string           `yaml:"environment" default:"development"`
	Server      ServerConfig     `yaml:"server"`
	Metrics     MetricsConfig    `yaml:"metrics"`
	Log         LogConfig        `yaml:"log"`
	Ephemeris   EphemerisConfig  `yaml:"ephemeris"`
	Cache       CacheConfig      `yaml:"cache"`
	Kafka       KafkaConfig      `yaml:"kafka"`
	ClickHouse  ClickHouseConfig `yaml:"clickhouse"`
	Retrieval   RetrievalConfig  `yaml:"retrieval"`
	LLM         LLMConfig        `yaml:"llm"`
	RateLimit   RateLimitConfig  `yaml:"rate_limit"`
}

type ServerConfig struct {
	Port            int           `yaml:"port" default:"8000"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	SlowRequest     time.Duration `yaml:"slow_request" default:"2s"`
	CORSOrigins     []string      `yaml:"cors_origins" default:"[\"*\"]"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" default:"/metrics"`
}

type LogConfig struct {
	logger.Config `yaml:",inline"`
	Collector     struct {
		Enabled   bool          `yaml:"enabled"`
		Topic     string        `yaml:"topic" default:"astro.logs"`
		Interval  time.Duration `yaml:"interval" default:"30s"`
		Threshold int           `yaml:"threshold" default:"100"`
	} `yaml:"collector"`
}

type EphemerisConfig struct {
	Path               string  `yaml:"path" default:"ephe"`
	DefaultHouseSystem string  `yaml:"default_house_system" default:"P"`
	DefaultTZOffset    float64 `yaml:"default_tz_offset" default:"3.0"`
	Nutation           bool    `yaml:"nutation"`
}

type CacheConfig struct {
	Type    string        `yaml:"type" default:"memory"` // memory, redis, layered, none
	TTL     time.Duration `yaml:"ttl" default:"24h"`
	MaxSize int           `yaml:"max_size" default:"5000"`
	Redis   struct {
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		PoolSize int    `yaml:"pool_size" default:"10"`
		Prefix   string `yaml:"prefix" default:"astro"`
	} `yaml:"redis"`
}

type KafkaConfig struct {
	Enabled      bool     `yaml:"enabled"`
	Brokers      []string `yaml:"brokers"`
	ChartTopic   string   `yaml:"chart_topic" default:"astro.charts"`
	RequestTopic string   `yaml:"request_topic" default:"astro.chart-requests"`
	RequiredAcks int      `yaml:"required_acks" default:"-1"`
	Compression  string   `yaml:"compression" default:"snappy"`
	Producer     struct {
		MaxAttempts  int           `yaml:"max_attempts" default:"5"`
		Linger       time.Duration `yaml:"linger" default:"20ms"`
		BatchSize    int           `yaml:"batch_size" default:"100"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		Async        bool          `yaml:"async"`
	} `yaml:"producer"`
	Consumer struct {
		Enabled    bool          `yaml:"enabled"`
		GroupID    string        `yaml:"group_id" default:"astro-chart-workers"`
		Workers    int           `yaml:"workers" default:"4"`
		BufferSize int           `yaml:"buffer_size" default:"256"`
		RetryMax   int           `yaml:"retry_max" default:"3"`
		BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
		BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
		DLQTopic   string        `yaml:"dlq_topic" default:"astro.chart-requests.dlq"`
	} `yaml:"consumer"`
}

type ClickHouseConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Host         string        `yaml:"host" default:"localhost"`
	Port         int           `yaml:"port" default:"9000"`
	Database     string        `yaml:"database" default:"astro"`
	User         string        `yaml:"user" default:"default"`
	Password     string        `yaml:"password"`
	UseHTTP      bool          `yaml:"use_http"`
	AsyncInsert  bool          `yaml:"async_insert"`
	DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout  time.Duration `yaml:"read_timeout" default:"30s"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"30s"`
}

type RetrievalConfig struct {
	CorpusDir    string `yaml:"corpus_dir" default:"corpus"`
	IndexPath    string `yaml:"index_path" default:"data/index"`
	ChunkSize    int    `yaml:"chunk_size" default:"1200"`
	ChunkOverlap int    `yaml:"chunk_overlap" default:"150"`
	MinChars     int    `yaml:"min_chars" default:"20"`
	TopK         int    `yaml:"top_k" default:"40"`
}

type LLMConfig struct {
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url" default:"https://api.openai.com/v1"`
	Model       string        `yaml:"model" default:"gpt-4o-mini"`
	Temperature float64       `yaml:"temperature" default:"0.8"`
	MaxTokens   int           `yaml:"max_tokens" default:"2500"`
	MaxPassages int           `yaml:"max_passages" default:"10"`
	Timeout     time.Duration `yaml:"timeout" default:"60s"`
	Retries     int           `yaml:"retries" default:"1"`
}

type RateLimitConfig struct {
	InterpretCapacity int     `yaml:"interpret_capacity" default:"5"`
	InterpretRefill   float64 `yaml:"interpret_refill_per_sec" default:"0.2"`
}

// envOverrides are applied on top of the YAML file; empty values leave the file untouched.
type envOverrides struct {
	Environment  string   `envconfig:"APP_ENV"`
	Port         int      `envconfig:"PORT"`
	LogLevel     string   `envconfig:"LOG_LEVEL"`
	EphePath     string   `envconfig:"SE_EPHE_PATH"`
	OpenAIKey    string   `envconfig:"OPENAI_API_KEY"`
	OpenAIBase   string   `envconfig:"OPENAI_BASE_URL"`
	OpenAIModel  string   `envconfig:"OPENAI_MODEL"`
	RedisAddr    string   `envconfig:"REDIS_ADDR"`
	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	CorpusDir    string   `envconfig:"CORPUS_DIR"`
	IndexPath    string   `envconfig:"INDEX_PATH"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var c Config
	_ = defaults.Set(&c)
	c.Log.Level, c.Log.Format, c.Log.Output = "info", "json", "stdout"
	return &c
}

// Load reads, defaults and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes on top of the defaults.
func Parse(b []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads the YAML file, then a .env file when present, then environment overrides.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := c.ApplyEnv(); err != nil {
		return nil, err
	}
	return c, c.Validate()
}

// ApplyEnv overrides fields from process environment variables.
func (c *Config) ApplyEnv() error {
	var ov envOverrides
	if err := envconfig.Process("", &ov); err != nil {
		return fmt.Errorf("env overrides: %w", err)
	}
	setString(&c.Environment, ov.Environment)
	setString(&c.Log.Level, ov.LogLevel)
	setString(&c.Ephemeris.Path, ov.EphePath)
	setString(&c.LLM.APIKey, ov.OpenAIKey)
	setString(&c.LLM.BaseURL, ov.OpenAIBase)
	setString(&c.LLM.Model, ov.OpenAIModel)
	setString(&c.Cache.Redis.Addr, ov.RedisAddr)
	setString(&c.Retrieval.CorpusDir, ov.CorpusDir)
	setString(&c.Retrieval.IndexPath, ov.IndexPath)
	if ov.Port > 0 {
		c.Server.Port = ov.Port
	}
	if len(ov.KafkaBrokers) > 0 {
		c.Kafka.Brokers = ov.KafkaBrokers
	}
	return nil
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	switch c.Cache.Type {
	case "memory", "redis", "layered", "none":
	default:
		return fmt.Errorf("cache.type must be memory, redis, layered or none, got '%s'", c.Cache.Type)
	}
	if len(c.Ephemeris.DefaultHouseSystem) != 1 {
		return fmt.Errorf("ephemeris.default_house_system must be a single letter")
	}
	if c.Ephemeris.DefaultTZOffset < -14 || c.Ephemeris.DefaultTZOffset > 14 {
		return fmt.Errorf("ephemeris.default_tz_offset out of range")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers required when kafka is enabled")
	}
	if c.Log.Collector.Enabled && !c.Kafka.Enabled {
		return fmt.Errorf("log.collector requires kafka")
	}
	if c.ClickHouse.Enabled && (c.ClickHouse.Host == "" || c.ClickHouse.Database == "") {
		return fmt.Errorf("clickhouse.host and clickhouse.database are required when clickhouse is enabled")
	}
	if c.Retrieval.ChunkSize <= 0 || c.Retrieval.ChunkOverlap < 0 || c.Retrieval.ChunkOverlap >= c.Retrieval.ChunkSize {
		return fmt.Errorf("retrieval.chunk_overlap must be in [0, chunk_size)")
	}
	return nil
}
