// Package config reads process settings from the environment and an
// optional .env file.
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	DatabaseURL    string `mapstructure:"database_url" validate:"required_if=SessionStore postgres"`
	RedisAddr      string `mapstructure:"redis_addr"`
	MinioEndpoint  string `mapstructure:"minio_endpoint"`
	MinioBucket    string `mapstructure:"minio_bucket"`
	MinioAccessKey string `mapstructure:"minio_access_key"`
	MinioSecretKey string `mapstructure:"minio_secret_key"`
	APIToken       string `mapstructure:"api_token"`

	ListenAddr   string `mapstructure:"listen_addr" validate:"required"`
	ModelPath    string `mapstructure:"model_path" validate:"required"`
	FeaturesPath string `mapstructure:"features_path" validate:"required"`
	LogLevel     string `mapstructure:"log_level"`
	LogFormat    string `mapstructure:"log_format" validate:"oneof=json text"`
	SessionStore string `mapstructure:"session_store" validate:"oneof=postgres memory"`
	ArtifactDir  string `mapstructure:"artifact_dir"`
}

var defaults = map[string]any{
	"database_url":     "",
	"redis_addr":       "",
	"minio_endpoint":   "",
	"minio_bucket":     "",
	"minio_access_key": "",
	"minio_secret_key": "",
	"api_token":        "",
	"listen_addr":      ":8000",
	"model_path":       "model/pipeline.json",
	"features_path":    "model/features.txt",
	"log_level":        "info",
	"log_format":       "json",
	"session_store":    StorePostgres,
	"artifact_dir":     "artifacts",
}

// Load reads .env (when present) and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromViper(viper.New())
}

// FromViper fills a Config from v, with environment variables taking
// precedence over values already set on v.
func FromViper(v *viper.Viper) (*Config, error) {
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.AutomaticEnv()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := validator.New().Struct(&c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &c, nil
}

// TrainingEnabled reports whether training runs can be queued. Runs are
// shared with the worker through Postgres, so the memory store disables them.
func (c *Config) TrainingEnabled() bool {
	return c.RedisAddr != "" && c.SessionStore == StorePostgres
}

// StorageEnabled reports whether object storage is configured.
func (c *Config) StorageEnabled() bool { return c.MinioEndpoint != "" && c.MinioBucket != "" }
