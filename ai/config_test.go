package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()
	assert.Equal(t, "https://api.openai.com/v1", cfg.Host)
	assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingModel)
	assert.Equal(t, "gpt-3.5-turbo", cfg.ChatModel)
	assert.Equal(t, 1536, cfg.Dimensions)
	require.NoError(t, cfg.Validate())
}

func TestNewConfig_Options(t *testing.T) {
	cfg := NewConfig(
		WithHost("http://localhost:11434"),
		WithAPIKey("secret"),
		WithEmbeddingModel("nomic-embed-text"),
		WithChatModel("qwen2.5:3b"),
		WithDimensions(768),
		WithBatchSize(16),
	)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "http://localhost:11434/v1", cfg.Host)
	assert.Equal(t, "secret", cfg.APIKey)
	assert.Equal(t, "nomic-embed-text", cfg.EmbeddingModel)
	assert.Equal(t, "qwen2.5:3b", cfg.ChatModel)
	assert.Equal(t, 768, cfg.Dimensions)
	assert.Equal(t, 16, cfg.BatchSize)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"http://localhost:11434", "http://localhost:11434/v1"},
		{"http://localhost:11434/", "http://localhost:11434/v1"},
		{"http://localhost:11434/v1", "http://localhost:11434/v1"},
		{"", ""},
	}
	for _, tt := range tests {
		cfg := &Config{Host: tt.host}
		cfg.Normalize()
		assert.Equal(t, tt.want, cfg.Host)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		opt  ConfigOption
	}{
		{"missing host", WithHost("")},
		{"missing embedding model", WithEmbeddingModel("")},
		{"missing chat model", WithChatModel("")},
		{"zero dimensions", WithDimensions(0)},
		{"zero batch size", WithBatchSize(0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, NewConfig(tt.opt).Validate())
		})
	}
}

func TestProviderError(t *testing.T) {
	cause := assert.AnError
	err := &ProviderError{Provider: "openai", StatusCode: 429, Message: "slow down", Err: cause}
	assert.Equal(t, "openai: status 429: slow down", err.Error())
	assert.ErrorIs(t, err, cause)
}
