package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	defaultMaxUploadBytes = 10 * 1024 * 1024
)

type Config struct {
	Service struct {
		Name string `yaml:"name"`
	} `yaml:"service"`

	Server struct {
		Host            string        `yaml:"host"`
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"readTimeout"`
		WriteTimeout    time.Duration `yaml:"writeTimeout"`
		IdleTimeout     time.Duration `yaml:"idleTimeout"`
		ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	} `yaml:"server"`

	Upload struct {
		MaxBytes int64 `yaml:"maxBytes"`
	} `yaml:"upload"`

	AI struct {
		Provider string        `yaml:"provider"`
		APIKey   string        `yaml:"apiKey"`
		Model    string        `yaml:"model"`
		BaseURL  string        `yaml:"baseURL"`
		Timeout  time.Duration `yaml:"timeout"`
		JSONMode *bool         `yaml:"jsonMode"`
	} `yaml:"ai"`

	CORS struct {
		AllowedOrigins []string `yaml:"allowedOrigins"`
	} `yaml:"cors"`

	Storage struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"storage"`

	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
}

// Load reads the YAML file at path, then applies .env and environment overrides.
// A missing file is fine; a malformed one is not.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("FILEGUARD_AI_PROVIDER"); v != "" {
		c.AI.Provider = v
	}
	if v := os.Getenv("FILEGUARD_AI_MODEL"); v != "" {
		c.AI.Model = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if c.AI.APIKey == "" {
		c.AI.APIKey = firstEnv(c.keyEnvNames()...)
	}
	return nil
}

func (c *Config) keyEnvNames() []string {
	if strings.EqualFold(c.AI.Provider, ProviderOpenAI) {
		return []string{"FILEGUARD_API_KEY", "OPENAI_API_KEY"}
	}
	return []string{"FILEGUARD_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"}
}

func (c *Config) applyDefaults() {
	if c.Service.Name == "" {
		c.Service.Name = "FileGuard Local Backend"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 5000
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 120 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 5 * time.Second
	}
	if c.Upload.MaxBytes == 0 {
		c.Upload.MaxBytes = defaultMaxUploadBytes
	}
	c.AI.Provider = strings.ToLower(strings.TrimSpace(c.AI.Provider))
	if c.AI.Provider == "" {
		c.AI.Provider = ProviderGemini
	}
	if c.AI.JSONMode == nil {
		on := true
		c.AI.JSONMode = &on
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate reports misconfiguration that must stop startup.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Upload.MaxBytes < 0 {
		errs = append(errs, fmt.Errorf("upload.maxBytes must be positive, got %d", c.Upload.MaxBytes))
	}
	if c.AI.Provider != ProviderGemini && c.AI.Provider != ProviderOpenAI {
		errs = append(errs, fmt.Errorf("ai.provider %q not supported (allowed: %s, %s)", c.AI.Provider, ProviderGemini, ProviderOpenAI))
	}
	if c.StorageEnabled() && c.Storage.BucketName == "" {
		errs = append(errs, errors.New("storage.bucketName is required when storage.endpoint is set"))
	}
	return errors.Join(errs...)
}

// Warnings reports misconfiguration that only degrades the service.
func (c *Config) Warnings() []string {
	var out []string
	if c.AI.APIKey == "" {
		out = append(out, fmt.Sprintf("no API key configured for provider %s (set ai.apiKey or one of %s); analysis requests will fail",
			c.AI.Provider, strings.Join(c.keyEnvNames(), ", ")))
	}
	return out
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) StorageEnabled() bool {
	return c.Storage.Endpoint != ""
}

func (c *Config) JSONMode() bool {
	return c.AI.JSONMode == nil || *c.AI.JSONMode
}

func firstEnv(names ...string) string {
	for _, n := range names {
		if v := strings.TrimSpace(os.Getenv(n)); v != "" {
			return v
		}
	}
	return ""
}
