package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/fc")

	c, err := FromViper(viper.New())
	require.NoError(t, err)
	assert.Equal(t, ":8000", c.ListenAddr)
	assert.Equal(t, "model/pipeline.json", c.ModelPath)
	assert.Equal(t, "model/features.txt", c.FeaturesPath)
	assert.Equal(t, StorePostgres, c.SessionStore)
	assert.Equal(t, "postgres://localhost/fc", c.DatabaseURL)
	assert.False(t, c.TrainingEnabled())
	assert.False(t, c.StorageEnabled())
}

func TestFromViper_Env(t *testing.T) {
	t.Setenv("SESSION_STORE", "memory")
	t.Setenv("LISTEN_ADDR", ":9090")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("MINIO_ENDPOINT", "localhost:9000")
	t.Setenv("MINIO_BUCKET", "models")
	t.Setenv("LOG_FORMAT", "text")

	c, err := FromViper(viper.New())
	require.NoError(t, err)
	assert.Equal(t, ":9090", c.ListenAddr)
	assert.Equal(t, StoreMemory, c.SessionStore)
	assert.False(t, c.TrainingEnabled(), "memory sessions cannot share runs with the worker")
	assert.True(t, c.StorageEnabled())
	assert.Equal(t, "text", c.LogFormat)
	assert.Equal(t, "artifacts", c.ArtifactDir)

	t.Setenv("SESSION_STORE", "postgres")
	t.Setenv("DATABASE_URL", "postgres://db/fc")
	c, err = FromViper(viper.New())
	require.NoError(t, err)
	assert.True(t, c.TrainingEnabled())
}

func TestFromViper_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"postgres without dsn", map[string]string{"SESSION_STORE": "postgres"}},
		{"unknown store", map[string]string{"SESSION_STORE": "redis"}},
		{"unknown log format", map[string]string{"SESSION_STORE": "memory", "LOG_FORMAT": "xml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := FromViper(viper.New())
			assert.Error(t, err)
		})
	}
}
