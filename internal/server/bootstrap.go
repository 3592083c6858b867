package server

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"coursechat/config"
	"coursechat/internal/docproc"
	"coursechat/internal/rag"
	"coursechat/internal/telemetry"
	"coursechat/internal/vectorstore"
	memstore "coursechat/internal/vectorstore/memory"
	"coursechat/internal/vectorstore/qdrant"
	"coursechat/provider"
	anthropic "coursechat/provider/anthropic"
	openai "coursechat/provider/openai"
	"coursechat/session"
	sessmem "coursechat/session/inmemory"
	sessredis "coursechat/session/redis"
)

// text-embedding-3-small output width.
const embeddingDimension = 1536

// BuildSystem wires the full orchestrator from configuration.
func BuildSystem(cfg *config.Config, logger *log.Logger) (*rag.System, prometheus.Gatherer, error) {
	embedder := openai.NewEmbeddingClient(
		cfg.Embedding.APIKey, cfg.Embedding.BaseURL, cfg.Embedding.Model, cfg.Embedding.Timeout)

	var store vectorstore.Store
	switch cfg.Vector.Backend {
	case "memory":
		store = memstore.New(embedder, cfg.Vector.MaxResults, cfg.Vector.MinSimilarity)
	case "qdrant":
		raw, err := qdrant.New(qdrant.Config{
			URL:           cfg.Vector.QdrantURL,
			APIKey:        cfg.Vector.QdrantAPIKey,
			Dimension:     embeddingDimension,
			MaxResults:    cfg.Vector.MaxResults,
			MinSimilarity: cfg.Vector.MinSimilarity,
			Timeout:       cfg.Vector.Timeout,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect qdrant at %s: %w", cfg.Vector.QdrantURL, err)
		}
		store = qdrant.Wrap(raw, embedder)
	default:
		return nil, nil, fmt.Errorf("unknown vector backend %q", cfg.Vector.Backend)
	}

	var prov provider.Provider
	switch provider.Client(cfg.LLM.Provider) {
	case provider.Anthropic:
		prov = anthropic.NewClient(
			cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model,
			cfg.LLM.MaxTokens, cfg.LLM.Temperature, cfg.LLM.Timeout)
	case provider.OpenAI:
		return nil, nil, fmt.Errorf("llm provider %q: %w", cfg.LLM.Provider, provider.ErrNotImplemented)
	default:
		return nil, nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}

	var sessions session.Store
	switch cfg.Session.Store {
	case "inmemory":
		sessions = sessmem.New(cfg.Session.MaxHistory)
	case "redis":
		rs, err := sessredis.New(
			cfg.Session.Redis.Addr, cfg.Session.Redis.Password, cfg.Session.Redis.DB,
			cfg.Session.MaxHistory, cfg.Session.TTL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect session store: %w", err)
		}
		sessions = rs
	default:
		return nil, nil, fmt.Errorf("unknown session store %q", cfg.Session.Store)
	}

	var metrics *telemetry.Metrics
	var gatherer prometheus.Gatherer
	if cfg.Telemetry.Enabled {
		registry := prometheus.NewRegistry()
		metrics = telemetry.NewMetrics(registry)
		gatherer = registry
	}

	processor := docproc.New(cfg.Documents.ChunkSize, cfg.Documents.ChunkOverlap)
	sys, err := rag.New(processor, store, prov, sessions, cfg.LLM.MaxToolRounds, metrics, logger)
	if err != nil {
		return nil, nil, err
	}
	return sys, gatherer, nil
}

// Run wires the system, ingests the configured documents folder and serves
// HTTP until the process receives SIGINT or SIGTERM.
func Run(cfg *config.Config) error {
	logger := log.New(os.Stdout, "[COURSECHAT] ", log.LstdFlags)

	sys, gatherer, err := BuildSystem(cfg, logger)
	if err != nil {
		return err
	}

	if cfg.Documents.Folder != "" {
		if _, err := os.Stat(cfg.Documents.Folder); err == nil {
			report, err := sys.AddCourseFolder(context.Background(), cfg.Documents.Folder)
			if err != nil {
				return fmt.Errorf("ingest %s: %w", cfg.Documents.Folder, err)
			}
			logger.Printf("loaded %d new courses (%d chunks) from %s",
				report.CoursesAdded, report.ChunksAdded, cfg.Documents.Folder)
			for _, f := range report.Failures {
				logger.Printf("failed to ingest %s: %v", f.File, f.Err)
			}
		} else {
			logger.Printf("documents folder %s not found, starting with current catalog", cfg.Documents.Folder)
		}
	}

	srv := New(sys, gatherer, logger)

	errc := make(chan error, 1)
	go func() { errc <- srv.Start(cfg.Server.Address) }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errc:
		return err
	case sig := <-stop:
		logger.Printf("received %s, shutting down", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
