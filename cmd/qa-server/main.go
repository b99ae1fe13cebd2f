package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tourist-kgqa/internal/common/config"
	"tourist-kgqa/internal/common/database"
	"tourist-kgqa/internal/common/logger"
	"tourist-kgqa/internal/common/observability"
	"tourist-kgqa/internal/fallback"
	"tourist-kgqa/internal/pipeline"
	"tourist-kgqa/internal/pipeline/classifier"
	"tourist-kgqa/internal/pipeline/formatter"
	"tourist-kgqa/internal/pipeline/matcher"
	"tourist-kgqa/internal/pipeline/synthesizer"
	"tourist-kgqa/internal/server"
	"tourist-kgqa/internal/vocab"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	zapLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()
	log := logger.NewZapAdapter(zapLogger)
	log.Info("starting qa server", map[string]interface{}{
		"app":         cfg.App.Name,
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	})

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	neo4jClient, err := database.NewNeo4j(cfg.Database.Neo4j)
	if err != nil {
		log.Error("failed to create neo4j client", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	defer neo4jClient.Close(context.Background())

	// The graph may still be starting; keep the process up and retry. The
	// pipeline degrades to the fallback while the graph is unreachable.
	if err := retryWithBackoff(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return neo4jClient.Ping(ctx)
	}, 5, 2*time.Second); err != nil {
		log.Warn("neo4j not reachable at startup, continuing degraded", map[string]interface{}{
			"uri":   cfg.Database.Neo4j.URI,
			"error": err.Error(),
		})
	}

	store := vocab.Load(cfg.Vocabulary.Path, cfg.Vocabulary.Aliases, log)

	historyStore := fallback.NewHistoryStore(cfg.History.MaxChars, log)
	resultStore, redisClient, err := buildResultStore(cfg, log)
	if err != nil {
		log.Error("failed to build result store", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	sparkClient := fallback.NewSparkClient(cfg.Spark, log)
	dispatcher := fallback.NewDispatcher(sparkClient, historyStore, resultStore, log)

	pipe := pipeline.New(
		matcher.New(store, log),
		classifier.New(),
		synthesizer.New(),
		formatter.New(neo4jClient, log),
		dispatcher,
		historyStore,
		obs,
		log,
	)

	srv, err := server.New(cfg.Server, pipe, resultStore, neo4jClient, obs.Gatherer(), log)
	if err != nil {
		log.Error("failed to build http server", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Error("http server failed", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	case sig := <-stop:
		log.Info("shutting down", map[string]interface{}{"signal": sig.String()})
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", map[string]interface{}{"error": err.Error()})
	}
}

// buildResultStore picks the configured backend. Redis gets pinged eagerly
// so a misconfigured address fails at startup rather than on the first
// deferred question.
func buildResultStore(cfg *config.Config, log logger.Logger) (fallback.ResultStore, *database.RedisClient, error) {
	if cfg.Results.Backend != "redis" {
		return fallback.NewMemoryResultStore(), nil, nil
	}

	redisClient, err := database.NewRedis(cfg.Database.Redis)
	if err != nil {
		return nil, nil, err
	}

	if err := retryWithBackoff(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return redisClient.Ping(ctx)
	}, 3, time.Second); err != nil {
		redisClient.Close()
		return nil, nil, err
	}

	log.Info("redis result store ready", map[string]interface{}{
		"address": cfg.Database.Redis.Address,
		"ttl_s":   cfg.Results.TTL,
	})
	return fallback.NewRedisResultStore(redisClient, time.Duration(cfg.Results.TTL)*time.Second), redisClient, nil
}

func retryWithBackoff(fn func() error, attempts int, delay time.Duration) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < attempts-1 {
			time.Sleep(delay * time.Duration(i+1))
		}
	}
	return err
}
