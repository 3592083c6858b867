package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Address != ":8000" {
		t.Fatalf("unexpected default address %q", cfg.Server.Address)
	}
	if cfg.Documents.ChunkSize != 800 || cfg.Documents.ChunkOverlap != 100 {
		t.Fatalf("unexpected chunking defaults %d/%d", cfg.Documents.ChunkSize, cfg.Documents.ChunkOverlap)
	}
	if cfg.Vector.Backend != "memory" || cfg.Vector.MaxResults != 5 {
		t.Fatalf("unexpected vector defaults %+v", cfg.Vector)
	}
	if cfg.LLM.MaxToolRounds != 2 {
		t.Fatalf("unexpected max_tool_rounds %d", cfg.LLM.MaxToolRounds)
	}
	if cfg.Session.MaxHistory != 2 || cfg.Session.TTL != 2*time.Hour {
		t.Fatalf("unexpected session defaults %+v", cfg.Session)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("COURSECHAT_VECTOR_BACKEND", "qdrant")
	t.Setenv("COURSECHAT_LLM_API_KEY", "sk-test")
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Vector.Backend != "qdrant" {
		t.Fatalf("env override ignored, backend %q", cfg.Vector.Backend)
	}
	if cfg.LLM.APIKey != "sk-test" {
		t.Fatalf("env override ignored, api key %q", cfg.LLM.APIKey)
	}
}

// Keys with no interesting default (secrets, optional URLs) must still be
// settable purely through the environment.
func TestLoadConfigEnvOnlyKeys(t *testing.T) {
	t.Setenv("COURSECHAT_LLM_API_KEY", "sk-anthropic")
	t.Setenv("COURSECHAT_LLM_BASE_URL", "http://localhost:9999")
	t.Setenv("COURSECHAT_EMBEDDING_API_KEY", "sk-openai")
	t.Setenv("COURSECHAT_EMBEDDING_BASE_URL", "http://localhost:9998/v1")
	t.Setenv("COURSECHAT_VECTOR_QDRANT_API_KEY", "qdrant-secret")
	t.Setenv("COURSECHAT_SESSION_REDIS_PASSWORD", "redis-secret")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.LLM.APIKey != "sk-anthropic" {
		t.Fatalf("llm.api_key env override lost: %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.BaseURL != "http://localhost:9999" {
		t.Fatalf("llm.base_url env override lost: %q", cfg.LLM.BaseURL)
	}
	if cfg.Embedding.APIKey != "sk-openai" {
		t.Fatalf("embedding.api_key env override lost: %q", cfg.Embedding.APIKey)
	}
	if cfg.Embedding.BaseURL != "http://localhost:9998/v1" {
		t.Fatalf("embedding.base_url env override lost: %q", cfg.Embedding.BaseURL)
	}
	if cfg.Vector.QdrantAPIKey != "qdrant-secret" {
		t.Fatalf("vector.qdrant_api_key env override lost: %q", cfg.Vector.QdrantAPIKey)
	}
	if cfg.Session.Redis.Password != "redis-secret" {
		t.Fatalf("session.redis.password env override lost: %q", cfg.Session.Redis.Password)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("server:\n  address: \":9100\"\ndocuments:\n  chunk_size: 400\n  chunk_overlap: 50\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Address != ":9100" {
		t.Fatalf("file value ignored, address %q", cfg.Server.Address)
	}
	if cfg.Documents.ChunkSize != 400 || cfg.Documents.ChunkOverlap != 50 {
		t.Fatalf("file values ignored: %+v", cfg.Documents)
	}
	// Untouched keys keep their defaults.
	if cfg.Vector.MaxResults != 5 {
		t.Fatalf("defaults lost when loading from file: %+v", cfg.Vector)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero chunk size", func(c *Config) { c.Documents.ChunkSize = 0 }},
		{"overlap >= size", func(c *Config) { c.Documents.ChunkOverlap = c.Documents.ChunkSize }},
		{"zero max results", func(c *Config) { c.Vector.MaxResults = 0 }},
		{"negative history", func(c *Config) { c.Session.MaxHistory = -1 }},
		{"zero tool rounds", func(c *Config) { c.LLM.MaxToolRounds = 0 }},
		{"unknown vector backend", func(c *Config) { c.Vector.Backend = "pinecone" }},
		{"unknown session store", func(c *Config) { c.Session.Store = "postgres" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := LoadConfig("")
			if err != nil {
				t.Fatalf("LoadConfig: %v", err)
			}
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
