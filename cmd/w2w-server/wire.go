package main

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"w2w-assistant-backend/internal/completion"
	"w2w-assistant-backend/internal/config"
	"w2w-assistant-backend/internal/prompt"
	"w2w-assistant-backend/internal/server"
	"w2w-assistant-backend/internal/store"
)

type app struct {
	server     *server.Server
	promptName string
	cacheKind  string
	closers    []io.Closer
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			log.Warn().Err(err).Msg("close failed")
		}
	}
}

func build(ctx context.Context, cfg config.Config) (*app, error) {
	spec, err := prompt.LoadSpec(cfg.PromptFile)
	if err != nil {
		return nil, fmt.Errorf("load prompt: %w", err)
	}
	assembler := prompt.NewAssembler(spec)
	a := &app{promptName: assembler.Name(), cacheKind: "none"}

	chain := buildChain(cfg)
	if chain.Model() == "" {
		log.Warn().Msg("primary model client not initialized")
	}

	var responder server.Responder = chain
	if cache := buildCache(ctx, cfg, a); cache != nil {
		responder = completion.NewCached(chain, cache, assembler.Name()+"/"+cfg.Model)
	}

	a.server = server.NewServer(cfg, assembler, responder)
	return a, nil
}

func buildChain(cfg config.Config) *completion.Chain {
	httpClient := &http.Client{Timeout: cfg.RequestTimeout}

	primary := completion.NewOpenAICompat(cfg.GeminiAPIKey, cfg.OpenAICompatBaseURL, cfg.Model, httpClient)
	fallbacks := []completion.Generator{
		completion.NewGeminiREST(cfg.GeminiAPIKey, cfg.RESTBaseURL, cfg.Model, completion.WithRESTHTTPClient(httpClient)),
	}
	if cfg.FallbackEnabled {
		fallbacks = append(fallbacks, completion.Canned{})
	}
	return completion.NewChain(cfg.Model, primary, fallbacks, completion.WithTimeout(cfg.RequestTimeout))
}

// buildCache returns nil when caching is disabled.
func buildCache(ctx context.Context, cfg config.Config, a *app) completion.Cache {
	if cfg.CacheTTL == 0 {
		return nil
	}
	if cfg.RedisAddr != "" {
		rs, err := store.NewRedisStore(ctx, store.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.CacheTTL,
		})
		if err == nil {
			a.cacheKind = "redis"
			a.closers = append(a.closers, rs)
			return rs
		}
		log.Warn().Err(err).Msg("redis unavailable, using in-memory cache")
	}
	a.cacheKind = "memory"
	return store.NewMemoryStore(cfg.CacheTTL, cfg.CacheMaxEntries)
}
