package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/NeuralTrust/SecurityProxy/pkg/common"
	"github.com/NeuralTrust/SecurityProxy/pkg/domain/security"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Security SecurityConfig `mapstructure:"security"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type ServerConfig struct {
	Port        int        `mapstructure:"port"`
	MetricsPort int        `mapstructure:"metrics_port"`
	BodyLimitMB int        `mapstructure:"body_limit_mb"`
	CORS        CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowOrigins     []string `mapstructure:"allow_origins"`
	AllowMethods     []string `mapstructure:"allow_methods"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	ExposeHeaders    []string `mapstructure:"expose_headers"`
	MaxAge           string   `mapstructure:"max_age"`
}

type MetricsConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	EnableLatency bool `mapstructure:"enable_latency"`
	EnableProcess bool `mapstructure:"enable_process"`
}

type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	ToFile  bool   `mapstructure:"to_file"`
	Console bool   `mapstructure:"console"`
}

type SecurityConfig struct {
	CallTimeout      time.Duration         `mapstructure:"call_timeout"`
	DummyDelay       time.Duration         `mapstructure:"dummy_delay"`
	ProviderFallback bool                  `mapstructure:"provider_fallback"`
	Credentials      CredentialsConfig     `mapstructure:"credentials"`
	CircuitBreaker   CircuitBreakerConfig  `mapstructure:"circuit_breaker"`
	Settings         map[string]interface{} `mapstructure:"settings"`
}

type CredentialsConfig struct {
	AimGuardKey        string `mapstructure:"aim_guard_key"`
	AprismInferenceKey string `mapstructure:"aprism_inference_key"`
}

type CircuitBreakerConfig struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxFailures uint32        `mapstructure:"max_failures"`
}

type LLMConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type StorageConfig struct {
	Driver string        `mapstructure:"driver"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	TLS      bool   `mapstructure:"tls"`
}

// Credentials returns the process-wide moderation keys.
func (c *Config) Credentials() security.Credentials {
	return security.Credentials{
		AimGuardKey:        c.Security.Credentials.AimGuardKey,
		AprismInferenceKey: c.Security.Credentials.AprismInferenceKey,
	}
}

func (c *Config) LLMDefaults() security.LLMConfig {
	return security.LLMConfig{
		BaseURL: c.LLM.BaseURL,
		APIKey:  c.LLM.APIKey,
		Model:   c.LLM.Model,
	}
}

// Load reads <configPath>/config.yaml and overlays the environment, where a
// key such as security.credentials.aim_guard_key maps to
// SECURITY_CREDENTIALS_AIM_GUARD_KEY.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file config.yaml: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.metrics_port", 9090)
	v.SetDefault("server.body_limit_mb", 32)
	v.SetDefault("server.cors.allow_origins", []string{})
	v.SetDefault("server.cors.allow_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("server.cors.allow_credentials", false)
	v.SetDefault("server.cors.expose_headers", []string{common.RequestIDHeader})
	v.SetDefault("server.cors.max_age", "600")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.enable_latency", true)
	v.SetDefault("metrics.enable_process", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.to_file", false)
	v.SetDefault("logging.console", true)
	v.SetDefault("security.call_timeout", 60*time.Second)
	v.SetDefault("security.dummy_delay", security.DummyDelay)
	v.SetDefault("security.provider_fallback", false)
	v.SetDefault("security.credentials.aim_guard_key", "")
	v.SetDefault("security.credentials.aprism_inference_key", "")
	v.SetDefault("security.circuit_breaker.timeout", 30*time.Second)
	v.SetDefault("security.circuit_breaker.max_failures", 5)
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.timeout", 120*time.Second)
	v.SetDefault("storage.driver", StorageMemory)
	v.SetDefault("storage.ttl", common.DefaultFileTTL)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.tls", false)
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case StorageMemory, StorageRedis:
	default:
		return fmt.Errorf("unsupported storage driver %q", c.Storage.Driver)
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	return nil
}

// DecodeSettings turns a loosely typed option bag into Settings. Unknown keys
// are ignored and values are weakly typed, so "true" and true both decode.
func DecodeSettings(raw map[string]interface{}) (*security.Settings, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var out security.Settings
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("invalid security settings: %w", err)
	}
	return &out, nil
}
