package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables that override the file.
const (
	EnvConfigPath = "TOD_CONFIG"
	EnvAPIKey     = "OPENAI_API_KEY"
	EnvBaseURL    = "OPENAI_BASE_URL"
	EnvModel      = "TOD_MODEL"
	EnvLogLevel   = "TOD_LOG_LEVEL"

	DefaultPath = "config.yaml"
)

type Config struct {
	AI struct {
		APIKey         string        `yaml:"apiKey"`
		BaseURL        string        `yaml:"baseURL"`
		Model          string        `yaml:"model"`
		MaxTokens      int           `yaml:"maxTokens"`
		Timeout        time.Duration `yaml:"timeout"`
		MaxRetries     int           `yaml:"maxRetries"`
		InitialBackoff time.Duration `yaml:"initialBackoff"`
		MaxBackoff     time.Duration `yaml:"maxBackoff"`
		Preflight      bool          `yaml:"preflight"`
	} `yaml:"ai"`

	Input struct {
		Path  string `yaml:"path"`
		Sheet string `yaml:"sheet"`
	} `yaml:"input"`

	Output struct {
		Path string `yaml:"path"`
	} `yaml:"output"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		File   string `yaml:"file"`
	} `yaml:"log"`

	Server struct {
		Port      int               `yaml:"port"`
		APIKeys   map[string]string `yaml:"apiKeys"` // tenant -> key
		RateLimit struct {
			Capacity   int `yaml:"capacity"`
			RefillRate int `yaml:"refillRate"`
		} `yaml:"rateLimit"`
		MaxUploadBytes int64    `yaml:"maxUploadBytes"`
		CORSOrigins    []string `yaml:"corsOrigins"`
	} `yaml:"server"`

	Database struct {
		Driver   string `yaml:"driver"` // mysql | postgres | empty to disable
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
	} `yaml:"database"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`
}

// Default returns the built-in settings: gpt-4o, five attempts per prompt, preflight on.
func Default() *Config {
	var cfg Config
	cfg.AI.Model = "gpt-4o"
	cfg.AI.MaxTokens = 2048
	cfg.AI.Timeout = 120 * time.Second
	cfg.AI.MaxRetries = 4
	cfg.AI.InitialBackoff = time.Second
	cfg.AI.MaxBackoff = 60 * time.Second
	cfg.AI.Preflight = true
	cfg.Log.Level = "info"
	cfg.Log.Format = "console"
	cfg.Server.Port = 8080
	cfg.Server.RateLimit.Capacity = 10
	cfg.Server.RateLimit.RefillRate = 1
	cfg.Server.MaxUploadBytes = 10 << 20
	cfg.Server.CORSOrigins = []string{"*"}
	return &cfg
}

// Load reads the yaml file over the defaults, then applies environment overrides.
// A missing file is not an error when path is the implicit default.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		if v := os.Getenv(EnvConfigPath); v != "" {
			path, explicit = v, true
		} else {
			path = DefaultPath
		}
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.AI.APIKey = v
	}
	if v := os.Getenv(EnvBaseURL); v != "" {
		c.AI.BaseURL = v
	}
	if v := os.Getenv(EnvModel); v != "" {
		c.AI.Model = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
}

// Validate checks the settings needed to run an analysis.
func (c *Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.AI.APIKey) == "" {
		problems = append(problems, EnvAPIKey+" (or ai.apiKey) is required")
	}
	if c.AI.MaxRetries < 0 {
		problems = append(problems, "ai.maxRetries must not be negative")
	}
	if c.AI.InitialBackoff < 0 || c.AI.MaxBackoff < 0 {
		problems = append(problems, "ai backoff durations must not be negative")
	}
	switch c.Database.Driver {
	case "", "mysql", "postgres":
	default:
		problems = append(problems, fmt.Sprintf("database.driver %q is not mysql or postgres", c.Database.Driver))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN builds a lib/pq connection string.
func (c *Config) PostgresDSN() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		sslMode,
	)
}

// MinioEnabled reports whether report uploads are configured.
func (c *Config) MinioEnabled() bool {
	return c.Minio.Endpoint != "" && c.Minio.BucketName != ""
}
