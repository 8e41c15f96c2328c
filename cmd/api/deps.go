package main

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/capitalize-ai/localchat/internal/cache"
	"github.com/capitalize-ai/localchat/internal/config"
	"github.com/capitalize-ai/localchat/internal/llm"
	natsclient "github.com/capitalize-ai/localchat/internal/nats"
	"github.com/capitalize-ai/localchat/internal/store"
	"github.com/capitalize-ai/localchat/internal/store/memory"
	"github.com/capitalize-ai/localchat/internal/store/postgres"
	"github.com/capitalize-ai/localchat/pkg/logger"
)

// openStore opens the configured store, migrating Postgres when migrate is
// set and wrapping it in the Redis cache when REDIS_URL is set.
func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger, migrate bool) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		log.Warn("using in-memory store; data is lost on exit")
		return memory.New(), nil
	case config.StoreDriverPostgres:
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	pg, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if migrate {
		if err := pg.Migrate(ctx, log); err != nil {
			pg.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	if cfg.RedisURL == "" {
		return pg, nil
	}
	kv, err := cache.NewRedisKV(ctx, cfg.RedisURL)
	if err != nil {
		log.Warn("conversation cache disabled", zap.Error(err))
		return pg, nil
	}
	log.Info("conversation cache enabled", zap.Duration("ttl", cfg.CacheTTL))
	return cache.NewStore(pg, kv, cfg.CacheTTL, log), nil
}

// newBackend builds the model router: Ollama for every tag, plus each
// hosted provider that has an API key.
func newBackend(ctx context.Context, cfg *config.Config, log *logger.Logger) (*llm.Router, func(), error) {
	ollama, err := llm.NewOllamaClient(cfg.OllamaURL, cfg.DefaultModel, &http.Client{})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Ollama client: %w", err)
	}

	router, err := llm.NewRouter(ollama)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {}

	if cfg.AnthropicAPIKey != "" {
		c, err := llm.NewAnthropicClient(cfg.AnthropicAPIKey)
		if err != nil {
			log.Warn("failed to create Anthropic client", zap.Error(err))
		} else {
			router.Register(llm.ProviderAnthropic, c)
		}
	}
	if cfg.OpenAIAPIKey != "" {
		c, err := llm.NewOpenAIClient(cfg.OpenAIAPIKey)
		if err != nil {
			log.Warn("failed to create OpenAI client", zap.Error(err))
		} else {
			router.Register(llm.ProviderOpenAI, c)
		}
	}
	if cfg.GeminiAPIKey != "" {
		c, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			log.Warn("failed to create Gemini client", zap.Error(err))
		} else {
			router.Register(llm.ProviderGemini, c)
			cleanup = func() { c.Close() }
		}
	}

	log.Info("model backends ready", zap.Strings("models", router.Models()))
	return router, cleanup, nil
}

// connectEvents connects the NATS event feed when enabled. Both results
// are nil when it is disabled.
func connectEvents(ctx context.Context, cfg *config.Config, log *logger.Logger) (*natsclient.Client, *natsclient.StreamManager, error) {
	if !cfg.NATSEnabled {
		return nil, nil, nil
	}

	client, err := natsclient.Connect(ctx, natsclient.Config{
		URL:      cfg.NATSURL,
		CAFile:   cfg.NATSCAFile,
		CertFile: cfg.NATSCertFile,
		KeyFile:  cfg.NATSKeyFile,
		Token:    cfg.NATSToken,
	}, log)
	if err != nil {
		return nil, nil, err
	}

	streams := natsclient.NewStreamManager(client)
	if err := streams.EnsureStream(ctx); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to ensure stream: %w", err)
	}
	return client, streams, nil
}
