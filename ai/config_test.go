package ai

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "http://localhost:11434/v1", cfg.Host)
	assert.Equal(t, "embeddinggemma", cfg.Model)
	assert.Equal(t, 64, cfg.BatchSize)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
}

func TestNewConfigWithOptions(t *testing.T) {
	cfg := NewConfig(
		WithHost("http://example.com"),
		WithModel("text-embedding-3-small"),
		WithBatchSize(16),
		WithRequestTimeout(5*time.Second),
	)

	assert.Equal(t, "http://example.com", cfg.Host)
	assert.Equal(t, "text-embedding-3-small", cfg.Model)
	assert.Equal(t, 16, cfg.BatchSize)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
}

func TestConfigNormalize(t *testing.T) {
	tests := []struct {
		name string
		host string
		want string
	}{
		{"adds v1 suffix", "http://localhost:11434", "http://localhost:11434/v1"},
		{"strips trailing slash", "http://localhost:11434/", "http://localhost:11434/v1"},
		{"keeps existing suffix", "http://localhost:11434/v1", "http://localhost:11434/v1"},
		{"empty host untouched", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Host: tt.host}
			cfg.Normalize()
			assert.Equal(t, tt.want, cfg.Host)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config { return DefaultConfig() }

	t.Run("valid config passes", func(t *testing.T) {
		require.NoError(t, valid().Validate())
	})

	t.Run("missing host", func(t *testing.T) {
		cfg := valid()
		cfg.Host = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing model", func(t *testing.T) {
		cfg := valid()
		cfg.Model = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("zero batch size", func(t *testing.T) {
		cfg := valid()
		cfg.BatchSize = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("zero timeout", func(t *testing.T) {
		cfg := valid()
		cfg.RequestTimeout = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("validate normalizes host", func(t *testing.T) {
		cfg := valid()
		cfg.Host = "http://localhost:8080"
		require.NoError(t, cfg.Validate())
		assert.Equal(t, "http://localhost:8080/v1", cfg.Host)
	})
}
