// Package config loads application settings from the environment.
//
// Settings may also come from a .env file; variables already set in the
// environment take precedence over the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/poiesic/docrag/ai"
)

// Vector index backends.
const (
	BackendBadger = "badger"
	BackendQdrant = "qdrant"
)

// ErrInvalidConfig marks a configuration rejected at startup.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds every setting of the service. Each field is read from the
// environment variable named by its mapstructure tag.
type Config struct {
	OpenAIAPIKey   string `mapstructure:"OPENAI_API_KEY"`
	OpenAIBaseURL  string `mapstructure:"OPENAI_BASE_URL"`
	EmbeddingModel string `mapstructure:"LLM_EMBEDDING_MODEL"`
	ChatModel      string `mapstructure:"LLM_CHAT_MODEL"`
	Dimensions     int    `mapstructure:"LLM_VECTOR_DIMENSIONS"`

	VectorBackend   string        `mapstructure:"LLM_VECTOR_DB_BACKEND"`
	VectorDBURL     string        `mapstructure:"LLM_VECTOR_DB_URL"`
	VectorDBAPIKey  string        `mapstructure:"LLM_VECTOR_DB_API_KEY"`
	VectorDBTimeout time.Duration `mapstructure:"LLM_VECTOR_DB_TIMEOUT"`
	Collection      string        `mapstructure:"LLM_VECTOR_DB_COLLECTION_NAME"`
	VectorDBPath    string        `mapstructure:"LLM_VECTOR_DB_PATH"`
	ChunkSize       int           `mapstructure:"LLM_PREPROCESS_CHUNK_SIZE"`
	ChunkOverlap    int           `mapstructure:"LLM_PREPROCESS_CHUNK_OVERLAP"`
	TopK            int           `mapstructure:"LLM_VECTOR_SEARCH_TOP_K"`
	TokenizerModel  string        `mapstructure:"LLM_TOKENIZER_MODEL"`

	StorageEndpoint  string `mapstructure:"STORAGE_SERVICE_ENDPOINT"`
	StorageAccessKey string `mapstructure:"STORAGE_ACCESS_KEY"`
	StorageSecretKey string `mapstructure:"STORAGE_SECRET_KEY"`
	StorageBucket    string `mapstructure:"STORAGE_BUCKET_NAME"`
	StorageSecure    bool   `mapstructure:"STORAGE_SECURE_CONNECTION"`
	StorageLocalDir  string `mapstructure:"STORAGE_LOCAL_DIR"`

	OCRResultDir string `mapstructure:"OCR_RESULT_DIR"`
	TaskDBPath   string `mapstructure:"TASK_DB_PATH"`
	TaskWorkers  int    `mapstructure:"TASK_WORKERS"`
	Debug        bool   `mapstructure:"DEBUG"`
}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	return &Config{
		OpenAIBaseURL:   "https://api.openai.com/v1",
		EmbeddingModel:  "text-embedding-3-small",
		ChatModel:       "gpt-3.5-turbo",
		Dimensions:      1536,
		VectorBackend:   BackendBadger,
		VectorDBURL:     "http://localhost:6333",
		VectorDBTimeout: 30 * time.Second,
		Collection:      "tektome",
		VectorDBPath:    "data/docrag",
		ChunkSize:       128,
		ChunkOverlap:    20,
		TopK:            1,
		TokenizerModel:  "gpt-3.5-turbo",
		StorageBucket:   "tektome",
		StorageLocalDir: "data/uploads",
		OCRResultDir:    "test_files/ocr",
		TaskDBPath:      "data/docrag",
		TaskWorkers:     2,
	}
}

// Load reads the given .env files, or ".env" when none are named, and then
// the environment. Missing files are skipped.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg, err := FromEnv(os.LookupEnv)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv builds a Config from lookup, starting from Default. Variables that
// are unset or blank keep their default.
func FromEnv(lookup func(string) (string, bool)) (*Config, error) {
	v, err := newViper(lookup)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	cfg.VectorBackend = strings.ToLower(cfg.VectorBackend)
	return cfg, nil
}

// newViper registers every setting with its default and overrides it with
// the value lookup returns for the setting's variable.
func newViper(lookup func(string) (string, bool)) (*viper.Viper, error) {
	var defaults map[string]any
	if err := mapstructure.Decode(*Default(), &defaults); err != nil {
		return nil, fmt.Errorf("encode defaults: %w", err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
		if raw, ok := lookup(key); ok {
			if raw = strings.TrimSpace(raw); raw != "" {
				v.Set(key, raw)
			}
		}
	}
	return v, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.ChunkSize <= 0 {
		errs = append(errs, errors.New("LLM_PREPROCESS_CHUNK_SIZE must be positive"))
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		errs = append(errs, errors.New("LLM_PREPROCESS_CHUNK_OVERLAP must be in [0, chunk size)"))
	}
	if c.TopK <= 0 {
		errs = append(errs, errors.New("LLM_VECTOR_SEARCH_TOP_K must be positive"))
	}
	if c.TaskWorkers <= 0 {
		errs = append(errs, errors.New("TASK_WORKERS must be positive"))
	}
	switch c.VectorBackend {
	case BackendBadger:
		if c.VectorDBPath == "" {
			errs = append(errs, errors.New("LLM_VECTOR_DB_PATH is required for the badger backend"))
		}
	case BackendQdrant:
		if c.VectorDBURL == "" {
			errs = append(errs, errors.New("LLM_VECTOR_DB_URL is required for the qdrant backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown LLM_VECTOR_DB_BACKEND %q", c.VectorBackend))
	}
	if c.Collection == "" {
		errs = append(errs, errors.New("LLM_VECTOR_DB_COLLECTION_NAME is required"))
	}
	if c.StorageEndpoint != "" && c.StorageBucket == "" {
		errs = append(errs, errors.New("STORAGE_BUCKET_NAME is required with STORAGE_SERVICE_ENDPOINT"))
	}
	if c.TaskDBPath == "" {
		errs = append(errs, errors.New("TASK_DB_PATH is required"))
	}
	if err := c.AIConfig().Validate(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// AIConfig returns the provider settings.
func (c *Config) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithHost(c.OpenAIBaseURL),
		ai.WithAPIKey(c.OpenAIAPIKey),
		ai.WithEmbeddingModel(c.EmbeddingModel),
		ai.WithChatModel(c.ChatModel),
		ai.WithDimensions(c.Dimensions),
	)
}

// UsesMinio reports whether uploads go to an object storage service rather
// than a local directory.
func (c *Config) UsesMinio() bool {
	return c.StorageEndpoint != ""
}
