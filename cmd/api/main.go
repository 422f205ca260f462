package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	appanalysis "github.com/bryanwahyu/fileguard/internal/application/analysis"
	"github.com/bryanwahyu/fileguard/internal/config"
	"github.com/bryanwahyu/fileguard/internal/domain/ai"
	domain "github.com/bryanwahyu/fileguard/internal/domain/analysis"
	"github.com/bryanwahyu/fileguard/internal/infra/ai/gemini"
	"github.com/bryanwahyu/fileguard/internal/infra/ai/openai"
	"github.com/bryanwahyu/fileguard/internal/infra/ai/prompt"
	"github.com/bryanwahyu/fileguard/internal/infra/httpserver"
	minioStore "github.com/bryanwahyu/fileguard/internal/infra/storage"
	"github.com/bryanwahyu/fileguard/internal/logging"
	"github.com/bryanwahyu/fileguard/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		l := logging.New(logging.Config{Level: "info"})
		l.Fatal().Err(err).Str("kind", domain.StartupFailure.String()).Msg("config load error")
	}
	logger := logging.New(logging.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Str("kind", domain.StartupFailure.String()).Msg("invalid configuration")
	}
	for _, w := range cfg.Warnings() {
		logger.Warn().Msg(w)
	}

	ctx := context.Background()

	// init classifier
	classifier, model := newClassifier(ctx, cfg, logger)

	// init service
	svc := &appanalysis.Service{
		Classifier:   classifier,
		Instructions: prompt.GetSystemPrompt(),
		MaxBytes:     cfg.Upload.MaxBytes,
	}

	// init minio (optional)
	if cfg.StorageEnabled() {
		store, err := minioStore.New(
			cfg.Storage.Endpoint,
			cfg.Storage.Region,
			cfg.Storage.BucketName,
			cfg.Storage.AccessKey,
			cfg.Storage.SecretKey,
			cfg.Storage.UseSSL,
		)
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = store.Ping(pingCtx)
			cancel()
		}
		if err != nil {
			logger.Warn().Err(err).Str("endpoint", cfg.Storage.Endpoint).Msg("object storage unavailable, /analyze/object disabled")
		} else {
			svc.Objects = store
		}
	}

	// init router
	metrics := middleware.NewMetrics()
	handler := httpserver.NewRouter(svc, httpserver.Options{
		ServiceName:    cfg.Service.Name,
		MaxUploadBytes: cfg.Upload.MaxBytes,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Logger:         logger,
		Metrics:        metrics,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// run server
	go func() {
		logger.Info().
			Str("service", cfg.Service.Name).
			Str("addr", srv.Addr).
			Str("provider", cfg.AI.Provider).
			Str("model", model).
			Bool("credential_configured", cfg.AI.APIKey != "").
			Bool("storage", svc.Objects != nil).
			Int64("max_upload_bytes", cfg.Upload.MaxBytes).
			Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Str("kind", domain.StartupFailure.String()).Msg("server error")
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info().Msg("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}
}

// newClassifier builds the configured provider client. Without a usable
// credential the server still starts and every analysis fails with a 500.
func newClassifier(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (ai.Classifier, string) {
	if cfg.AI.APIKey == "" {
		return ai.Unavailable{Provider: cfg.AI.Provider}, cfg.AI.Model
	}

	switch cfg.AI.Provider {
	case config.ProviderOpenAI:
		c := openai.NewClient(openai.Options{
			APIKey:   cfg.AI.APIKey,
			Model:    cfg.AI.Model,
			BaseURL:  cfg.AI.BaseURL,
			Timeout:  cfg.AI.Timeout,
			JSONMode: cfg.JSONMode(),
		})
		return c, c.Model
	default:
		c, err := gemini.NewClient(ctx, gemini.Options{
			APIKey:   cfg.AI.APIKey,
			Model:    cfg.AI.Model,
			BaseURL:  cfg.AI.BaseURL,
			Timeout:  cfg.AI.Timeout,
			JSONMode: cfg.JSONMode(),
		})
		if err != nil {
			logger.Warn().Err(err).Str("provider", cfg.AI.Provider).Msg("classifier unavailable")
			return ai.Unavailable{Provider: cfg.AI.Provider, Cause: err}, cfg.AI.Model
		}
		return c, c.Model
	}
}
