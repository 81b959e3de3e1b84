// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"storybook-platform/internal/domain/model"
)

type RuntimeConfig struct {
	Dev bool
}

type HTTPConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	CreatePerMinute int           `yaml:"create_per_minute"` // per-user story creation rate limit
}

type AuthConfig struct {
	JWTSecret    string   `yaml:"jwt_secret"`
	AdminUserIDs []string `yaml:"admin_user_ids"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL       string        `yaml:"url"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	StatusTTL time.Duration `yaml:"status_ttl"`
	LockTTL   time.Duration `yaml:"lock_ttl"`
}

type AIConfig struct {
	OpenAIKey       string `yaml:"openai_key"`
	OpenAIBaseURL   string `yaml:"openai_base_url"`
	TextModel       string `yaml:"text_model"`
	TextMaxTokens   int    `yaml:"text_max_tokens"`
	GeminiKey       string `yaml:"gemini_key"`
	GeminiURL       string `yaml:"gemini_url"`
	GeminiTextModel string `yaml:"gemini_text_model"`
	ImagenModel     string `yaml:"imagen_model"`
	ReplicateToken  string `yaml:"replicate_token"`
	ReplicateModel  string `yaml:"replicate_model"`
	DalleModel      string `yaml:"dalle_model"`
	TTSModel        string `yaml:"tts_model"`
	ConcurrentLimit int    `yaml:"concurrent_limit"` // max concurrent provider calls
	Synthetic       bool   `yaml:"synthetic"`        // offline generators for local runs
}

type StorageConfig struct {
	ObjectStoreURL   string        `yaml:"object_store_url"`
	ObjectStoreToken string        `yaml:"object_store_token"`
	PublicBaseURL    string        `yaml:"public_base_url"`
	UploadRetries    int           `yaml:"upload_retries"`
	RetryBackoff     time.Duration `yaml:"retry_backoff"`
	LocalDir         string        `yaml:"local_dir"`
	LocalBaseURL     string        `yaml:"local_base_url"`
	DownloadTimeout  time.Duration `yaml:"download_timeout"`
}

type WorkerConfig struct {
	Workers     int           `yaml:"workers"`
	QueueSize   int           `yaml:"queue_size"`
	JobTimeout  time.Duration `yaml:"job_timeout"`
	ImageFanout int           `yaml:"image_fanout"` // max concurrent page requests per job
}

type SchedulerConfig struct {
	RenewalInterval time.Duration `yaml:"renewal_interval"`
	ReaperInterval  time.Duration `yaml:"reaper_interval"`
}

type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Auth      AuthConfig      `yaml:"auth"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	AI        AIConfig        `yaml:"ai"`
	Storage   StorageConfig   `yaml:"storage"`
	Worker    WorkerConfig    `yaml:"worker"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Pricing   model.Pricing   `yaml:"pricing"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path, fills defaults and validates.
func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b, dev)
}

func Parse(b []byte, dev bool) (*Config, error) {
	cfg := Config{Pricing: model.DefaultPricing()}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&cfg)

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Auth.JWTSecret == "" && !dev {
		return nil, errors.New("auth.jwt_secret is required")
	}
	if !cfg.AI.Synthetic && cfg.AI.OpenAIKey == "" && cfg.AI.GeminiKey == "" {
		return nil, errors.New("no text provider configured: set ai.openai_key or ai.gemini_key, or ai.synthetic")
	}
	if len(cfg.Pricing.PagesPerLength) == 0 {
		return nil, errors.New("pricing.pages_per_length must not be empty")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.ReadTimeout <= 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout <= 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.CreatePerMinute <= 0 {
		cfg.HTTP.CreatePerMinute = 5
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.StatusTTL = normalizeTTL(cfg.Redis.StatusTTL, 3*time.Second)
	cfg.Redis.LockTTL = normalizeTTL(cfg.Redis.LockTTL, 30*time.Second)

	if cfg.AI.TextModel == "" {
		cfg.AI.TextModel = "gpt-4o-mini"
	}
	if cfg.AI.TextMaxTokens <= 0 {
		cfg.AI.TextMaxTokens = 3000
	}
	if cfg.AI.GeminiTextModel == "" {
		cfg.AI.GeminiTextModel = "gemini-2.0-flash"
	}
	if cfg.AI.ImagenModel == "" {
		cfg.AI.ImagenModel = "imagen-3.0-generate-002"
	}
	if cfg.AI.ReplicateModel == "" {
		cfg.AI.ReplicateModel = "black-forest-labs/flux-schnell"
	}
	if cfg.AI.DalleModel == "" {
		cfg.AI.DalleModel = "dall-e-3"
	}
	if cfg.AI.TTSModel == "" {
		cfg.AI.TTSModel = "tts-1"
	}
	if cfg.AI.ConcurrentLimit <= 0 {
		cfg.AI.ConcurrentLimit = 16
	}

	if cfg.Storage.UploadRetries <= 0 {
		cfg.Storage.UploadRetries = 3
	}
	if cfg.Storage.RetryBackoff <= 0 {
		cfg.Storage.RetryBackoff = 500 * time.Millisecond
	}
	if cfg.Storage.DownloadTimeout <= 0 {
		cfg.Storage.DownloadTimeout = 30 * time.Second
	}

	if cfg.Worker.Workers <= 0 {
		cfg.Worker.Workers = 4
	}
	if cfg.Worker.QueueSize <= 0 {
		cfg.Worker.QueueSize = cfg.Worker.Workers * 16
	}
	if cfg.Worker.JobTimeout <= 0 {
		cfg.Worker.JobTimeout = 5 * time.Minute
	}
	if cfg.Worker.ImageFanout <= 0 {
		cfg.Worker.ImageFanout = 8
	}

	cfg.Scheduler.RenewalInterval = normalizeTTL(cfg.Scheduler.RenewalInterval, time.Hour)
	cfg.Scheduler.ReaperInterval = normalizeTTL(cfg.Scheduler.ReaperInterval, 5*time.Minute)

	if cfg.Pricing.DefaultPages <= 0 {
		cfg.Pricing.DefaultPages = 4
	}
}

func normalizeTTL(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
