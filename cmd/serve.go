package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/waindex/internal/channels/whatsapp"
	"github.com/nextlevelbuilder/waindex/internal/config"
	"github.com/nextlevelbuilder/waindex/internal/mcp"
	"github.com/nextlevelbuilder/waindex/internal/search"
	"github.com/nextlevelbuilder/waindex/internal/store"
	"github.com/nextlevelbuilder/waindex/internal/tools"
	"github.com/nextlevelbuilder/waindex/internal/vector"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the query tools over MCP stdio, optionally ingesting live WhatsApp traffic",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runServe(cfg)
		},
	}
}

// openEngine builds the full store/index/engine stack from config. The
// returned closer releases both backends.
func openEngine(cfg *config.Config) (*search.Engine, func(), error) {
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open message store: %w", err)
	}

	inner, err := embeddingProvider(cfg)
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	provider, err := vector.NewCachedProvider(inner, st, cfg.Vector.CacheSize, store.ContentHash)
	if err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("embedding provider: %w", err)
	}
	ix, err := vector.Open(cfg.Vector.Dir, provider)
	if err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("open vector index: %w", err)
	}

	closer := func() {
		ix.Close()
		st.Close()
	}
	return search.New(st, ix), closer, nil
}

// embeddingProvider selects the embedder from config. The local hashing
// provider keeps indexing fully offline; the openai provider trades that
// for higher-quality vectors.
func embeddingProvider(cfg *config.Config) (vector.EmbeddingProvider, error) {
	emb := cfg.Vector.Embedding
	switch emb.Provider {
	case "", "local":
		return vector.NewLocalProvider(), nil
	case "openai":
		return vector.NewOpenAIProvider(vector.OpenAIConfig{
			APIKey:  emb.APIKey,
			APIBase: emb.APIBase,
			Model:   emb.Model,
		}), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", emb.Provider)
	}
}

func runServe(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine, closeEngine, err := openEngine(cfg)
	if err != nil {
		return err
	}
	defer closeEngine()

	registry := tools.NewRegistry()
	limiter := tools.NewRateLimiter(cfg.Tools.RateLimitPerHour)
	registry.SetRateLimiter(limiter)
	tools.RegisterAll(registry, engine)
	if limiter != nil {
		go limiterCleanupLoop(ctx, limiter)
	}

	if cfg.WhatsApp.Enabled {
		connector, err := whatsapp.NewConnector(ctx, whatsapp.Config{
			SessionDBPath: cfg.WhatsApp.SessionPath,
		}, engine)
		if err != nil {
			return fmt.Errorf("whatsapp connector: %w", err)
		}
		if err := connector.Start(ctx); err != nil {
			return fmt.Errorf("whatsapp connect: %w", err)
		}
		defer connector.Stop()
	}

	go compactLoop(ctx, engine, cfg.Vector.CompactInterval)

	srv, err := mcp.NewServer("waindex", version, registry)
	if err != nil {
		return err
	}
	return srv.ServeStdio(ctx)
}

// limiterCleanupLoop drops expired rate-limit windows so idle caller
// keys do not accumulate.
func limiterCleanupLoop(ctx context.Context, limiter *tools.RateLimiter) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Cleanup()
		}
	}
}

// compactLoop periodically offers the vector index a chance to rebuild.
// The engine skips the rebuild below the deleted-fraction threshold.
func compactLoop(ctx context.Context, engine *search.Engine, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			compacted, err := engine.Compact(ctx)
			if err != nil {
				slog.Error("compaction failed", "err", err)
				continue
			}
			if compacted {
				slog.Info("vector index compacted")
			}
		}
	}
}
