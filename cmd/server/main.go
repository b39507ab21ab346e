package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"domstudio/internal/app"
	"domstudio/internal/config"
	"domstudio/internal/exporter"
	"domstudio/internal/ratelimit"
	"domstudio/internal/server"
	"domstudio/internal/usertoken"
	"domstudio/internal/util"
	"domstudio/pkg/ai"
	"domstudio/pkg/prompt"
	"domstudio/pkg/queue"
	"domstudio/pkg/storage"
	"domstudio/pkg/store"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := util.InitLogger(cfg.LogLevel)

	st, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to init store: %v", err)
	}

	registry := prompt.NewRegistry()
	if cfg.TemplatesFile != "" {
		if err := registry.LoadFile(cfg.TemplatesFile); err != nil {
			log.Fatalf("failed to load templates: %v", err)
		}
	}
	composer := prompt.NewComposer(registry)

	providerLimit := cfg.ProviderRateLimitPerMinute
	if providerLimit <= 0 {
		providerLimit = 50
	}
	model := cfg.OpenAIModel
	if model == "" {
		model = "gpt-4o"
	}
	generator, err := ai.NewOpenAIClient(ai.OpenAIConfig{
		BaseURL:     cfg.OpenAIBaseURL,
		APIKey:      cfg.OpenAIAPIKey,
		Model:       model,
		Temperature: cfg.OpenAITemperature,
		MaxTokens:   cfg.OpenAIMaxTokens,
		Limiter:     ratelimit.NewSlidingWindowLimiter(providerLimit, time.Minute),
	})
	if err != nil {
		log.Fatalf("failed to init generation client: %v", err)
	}

	var (
		jobQueue  *queue.RedisJobQueue
		artifacts storage.ObjectStore
	)
	if config.ExportsEnabled(cfg) {
		queueName := cfg.QueueName
		if queueName == "" {
			queueName = "domstudio:exports"
		}
		jobQueue, err = queue.NewRedisJobQueue(queue.RedisQueueConfig{
			Addr:       cfg.RedisAddr,
			Password:   cfg.RedisPassword,
			Stream:     queueName,
			Group:      cfg.QueueGroup,
			MaxRetries: cfg.QueueMaxRetries,
			RetryDelay: time.Duration(cfg.QueueRetryDelaySeconds) * time.Second,
		})
		if err != nil {
			log.Fatalf("failed to init export queue: %v", err)
		}
		artifacts, err = storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Fatalf("failed to init object store: %v", err)
		}
	}

	appCfg := app.Config{
		Store:           st,
		Generator:       generator,
		Composer:        composer,
		GenerateTimeout: time.Duration(cfg.GenerateTimeoutSeconds) * time.Second,
	}
	if jobQueue != nil {
		appCfg.Exports = jobQueue
		appCfg.Artifacts = artifacts
	}
	appCore, err := app.New(appCfg)
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	leeway, err := config.ParseJWTLeeway(cfg.JWTLeeway)
	if err != nil {
		log.Fatalf("failed to parse jwt leeway: %v", err)
	}
	verifier, err := usertoken.NewVerifier(usertoken.Config{
		JWKSURL:  cfg.AuthJWKSURL,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		Leeway:   leeway,
	})
	if err != nil {
		log.Fatalf("failed to init token verifier: %v", err)
	}

	generateLimit := cfg.GenerateRateLimitPerMinute
	if generateLimit <= 0 {
		generateLimit = 20
	}
	generateLimiter, err := ratelimit.NewRedisFixedWindowLimiter(
		cfg.RedisAddr, cfg.RedisPassword, "domstudio:ratelimit:generate", generateLimit, time.Minute)
	if err != nil {
		log.Fatalf("failed to init rate limiter: %v", err)
	}

	httpServer, err := server.New(server.Config{
		App:             appCore,
		TokenVerifier:   verifier,
		GenerateLimiter: generateLimiter,
		MaxUploadBytes:  cfg.MaxUploadBytes,
		AIModel:         model,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 150 * time.Second, // generation requests can hold the connection
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if jobQueue != nil {
		worker, err := exporter.New(exporter.Config{
			Store:     st,
			Queue:     jobQueue,
			Artifacts: artifacts,
			Workers:   cfg.QueueConcurrency,
			URLExpiry: time.Duration(cfg.ExportURLTTLHours) * time.Hour,
		})
		if err != nil {
			log.Fatalf("failed to init export worker: %v", err)
		}
		g.Go(func() error {
			slog.Info("export worker started")
			if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("server error", "err", err)
	}
}
