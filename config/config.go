package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the course chat system.
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	Documents DocumentsConfig `mapstructure:"documents"`
	Vector    VectorConfig    `mapstructure:"vector"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Session   SessionConfig   `mapstructure:"session"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings.
type GeneralConfig struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Address string        `mapstructure:"address"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DocumentsConfig controls corpus ingestion and chunking.
type DocumentsConfig struct {
	Folder       string `mapstructure:"folder"`
	ChunkSize    int    `mapstructure:"chunk_size"`
	ChunkOverlap int    `mapstructure:"chunk_overlap"`
}

// VectorConfig selects and configures the vector-search backend.
type VectorConfig struct {
	// Backend is "memory" or "qdrant".
	Backend    string        `mapstructure:"backend"`
	MaxResults int           `mapstructure:"max_results"`
	// MinSimilarity is the cutoff below which a fuzzy course-name match is
	// treated as not found.
	MinSimilarity float64       `mapstructure:"min_similarity"`
	QdrantURL     string        `mapstructure:"qdrant_url"`
	QdrantAPIKey  string        `mapstructure:"qdrant_api_key"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// LLMConfig configures the language-model provider.
type LLMConfig struct {
	// Provider is "anthropic" (the only implemented generation backend).
	Provider      string        `mapstructure:"provider"`
	APIKey        string        `mapstructure:"api_key"`
	BaseURL       string        `mapstructure:"base_url"`
	Model         string        `mapstructure:"model"`
	MaxTokens     int           `mapstructure:"max_tokens"`
	Temperature   float64       `mapstructure:"temperature"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxToolRounds int           `mapstructure:"max_tool_rounds"`
}

// EmbeddingConfig configures the embedding backend.
type EmbeddingConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// SessionConfig controls chat session history.
type SessionConfig struct {
	// Store is "inmemory" or "redis".
	Store      string        `mapstructure:"store"`
	MaxHistory int           `mapstructure:"max_history"`
	TTL        time.Duration `mapstructure:"ttl"`
	Redis      RedisConfig   `mapstructure:"redis"`
}

// RedisConfig contains redis connection settings for the session store.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// TelemetryConfig contains metrics settings.
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.debug", false)
	v.SetDefault("general.log_level", "info")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.timeout", 90*time.Second)
	v.SetDefault("documents.folder", "./docs")
	v.SetDefault("documents.chunk_size", 800)
	v.SetDefault("documents.chunk_overlap", 100)
	v.SetDefault("vector.backend", "memory")
	v.SetDefault("vector.max_results", 5)
	v.SetDefault("vector.min_similarity", 0.3)
	v.SetDefault("vector.qdrant_url", "http://localhost:6333")
	// Secrets and optional URLs default to empty so AutomaticEnv picks
	// them up; viper only surfaces env values for keys it already knows.
	v.SetDefault("vector.qdrant_api_key", "")
	v.SetDefault("vector.timeout", 15*time.Second)
	v.SetDefault("llm.provider", "anthropic")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.model", "claude-sonnet-4-20250514")
	v.SetDefault("llm.max_tokens", 800)
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.max_tool_rounds", 2)
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.base_url", "")
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.timeout", 30*time.Second)
	v.SetDefault("session.store", "inmemory")
	v.SetDefault("session.max_history", 2)
	v.SetDefault("session.ttl", 2*time.Hour)
	v.SetDefault("session.redis.addr", "localhost:6379")
	v.SetDefault("session.redis.password", "")
	v.SetDefault("session.redis.db", 0)
	v.SetDefault("telemetry.enabled", true)
}

// LoadConfig reads configuration from the given file (or ./config.yaml when
// empty), layering environment variables on top. Env keys use the
// COURSECHAT_ prefix with underscores, e.g. COURSECHAT_LLM_API_KEY.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("COURSECHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; env and defaults still apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && path != "" {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that would otherwise fail at an awkward moment.
func (c *Config) Validate() error {
	if c.Documents.ChunkSize <= 0 {
		return fmt.Errorf("documents.chunk_size must be > 0")
	}
	if c.Documents.ChunkOverlap < 0 || c.Documents.ChunkOverlap >= c.Documents.ChunkSize {
		return fmt.Errorf("documents.chunk_overlap must be in [0, chunk_size)")
	}
	if c.Vector.MaxResults <= 0 {
		return fmt.Errorf("vector.max_results must be > 0")
	}
	if c.Session.MaxHistory < 0 {
		return fmt.Errorf("session.max_history must be >= 0")
	}
	if c.LLM.MaxToolRounds <= 0 {
		return fmt.Errorf("llm.max_tool_rounds must be > 0")
	}
	switch c.Vector.Backend {
	case "memory", "qdrant":
	default:
		return fmt.Errorf("vector.backend must be memory or qdrant, got %q", c.Vector.Backend)
	}
	switch c.Session.Store {
	case "inmemory", "redis":
	default:
		return fmt.Errorf("session.store must be inmemory or redis, got %q", c.Session.Store)
	}
	return nil
}
