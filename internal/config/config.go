package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Vector store types.
const (
	StoreMemory   = "memory"
	StoreQdrant   = "qdrant"
	StorePGVector = "pgvector"
)

// OpenAIConfig holds connection and model settings for the embedding and generation services.
type OpenAIConfig struct {
	BaseURL        string `yaml:"base_url" toml:"base_url" validate:"omitempty,url"`
	APIKeyEnv      string `yaml:"api_key_env" toml:"api_key_env" validate:"required"`
	EmbeddingModel string `yaml:"embedding_model" toml:"embedding_model" validate:"required"`
	ChatModel      string `yaml:"chat_model" toml:"chat_model" validate:"required"`
	Dimensions     int    `yaml:"dimensions" toml:"dimensions" validate:"gt=0"`
	TimeoutSecs    int    `yaml:"timeout_secs" toml:"timeout_secs" validate:"gte=0"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url" toml:"url" validate:"required,url"`
	APIKey      string `yaml:"api_key" toml:"api_key"`
	Distance    string `yaml:"distance" toml:"distance" validate:"omitempty,oneof=Cosine Dot Euclid Manhattan"`
	TimeoutSecs int    `yaml:"timeout_secs" toml:"timeout_secs" validate:"gte=0"`
}

// PGVectorConfig contains connection details for a Postgres table with the vector extension.
type PGVectorConfig struct {
	DSN   string `yaml:"dsn" toml:"dsn" validate:"required"`
	Table string `yaml:"table" toml:"table"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type       string          `yaml:"type" toml:"type" validate:"oneof=memory qdrant pgvector"`
	Collection string          `yaml:"collection" toml:"collection" validate:"required"`
	Qdrant     *QdrantConfig   `yaml:"qdrant,omitempty" toml:"qdrant,omitempty" validate:"required_if=Type qdrant,omitempty"`
	PGVector   *PGVectorConfig `yaml:"pgvector,omitempty" toml:"pgvector,omitempty" validate:"required_if=Type pgvector,omitempty"`
}

// AgentConfig tunes the prompt sent to the generation service.
type AgentConfig struct {
	SystemPrompt string `yaml:"system_prompt,omitempty" toml:"system_prompt,omitempty"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" toml:"format" validate:"oneof=json console"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr" toml:"addr" validate:"required"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	OpenAI      OpenAIConfig      `yaml:"openai" toml:"openai"`
	VectorStore VectorStoreConfig `yaml:"vector_store" toml:"vector_store"`
	Agent       AgentConfig       `yaml:"agent" toml:"agent"`
	Logging     LoggingConfig     `yaml:"logging" toml:"logging"`
	Server      ServerConfig      `yaml:"server" toml:"server"`
}

var validate = validator.New()

// Validate checks the config against its field constraints.
func (c *AppConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Load reads a config from a specified path. YAML and TOML are chosen by extension.
// If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if isTOML(path) {
		err = toml.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/rag/config.yaml.
// If neither exists, it writes defaults to ~/.config/rag/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	for _, cwdPath := range []string{"config.yaml", "config.toml"} {
		if _, err := os.Stat(cwdPath); err == nil {
			cfg, err := Load(cwdPath)
			return cfg, cwdPath, err
		}
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var (
		data []byte
		err  error
	)
	if isTOML(path) {
		data, err = toml.Marshal(cfg)
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "rag", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		VectorStore: VectorStoreConfig{Type: StoreMemory},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.OpenAI.BaseURL == "" {
		cfg.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.OpenAI.APIKeyEnv == "" {
		cfg.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.OpenAI.EmbeddingModel == "" {
		cfg.OpenAI.EmbeddingModel = "text-embedding-ada-002"
	}
	if cfg.OpenAI.ChatModel == "" {
		cfg.OpenAI.ChatModel = "gpt-4o"
	}
	if cfg.OpenAI.Dimensions == 0 {
		cfg.OpenAI.Dimensions = 1536
	}
	if cfg.OpenAI.TimeoutSecs == 0 {
		cfg.OpenAI.TimeoutSecs = 30
	}

	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = StoreMemory
	}
	if cfg.VectorStore.Collection == "" {
		cfg.VectorStore.Collection = "my-collection"
	}
	if cfg.VectorStore.Type == StoreQdrant && cfg.VectorStore.Qdrant != nil {
		if cfg.VectorStore.Qdrant.Distance == "" {
			cfg.VectorStore.Qdrant.Distance = "Cosine"
		}
		if cfg.VectorStore.Qdrant.TimeoutSecs == 0 {
			cfg.VectorStore.Qdrant.TimeoutSecs = 15
		}
	}
	if cfg.VectorStore.Type == StorePGVector && cfg.VectorStore.PGVector != nil {
		if cfg.VectorStore.PGVector.Table == "" {
			cfg.VectorStore.PGVector.Table = "rag_points"
		}
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
}
