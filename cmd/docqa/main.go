package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/docqa/docqa/internal/ai"
	"github.com/docqa/docqa/internal/chunker"
	"github.com/docqa/docqa/internal/config"
	"github.com/docqa/docqa/internal/embedcache"
	"github.com/docqa/docqa/internal/handler"
	"github.com/docqa/docqa/internal/job"
	"github.com/docqa/docqa/internal/llm"
	"github.com/docqa/docqa/internal/middleware"
	"github.com/docqa/docqa/internal/retriever"
	"github.com/docqa/docqa/internal/schedule"
	"github.com/docqa/docqa/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "docqa",
		Short: "document question answering server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run docqa server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			_ = godotenv.Load()
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))
			return runServer(cfg)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func buildBackend(cfg *config.Config) (retriever.Backend, error) {
	switch cfg.Backend {
	case "dense":
		provider, err := ai.NewProvider(cfg.Embedding.Provider, cfg.Embedding.Data)
		if err != nil {
			return nil, fmt.Errorf("init embedding provider: %w", err)
		}
		emb := embedcache.Wrap(
			ai.NewEmbedder(provider, cfg.Embedding.Model),
			cfg.Embedding.CacheSize,
			time.Duration(cfg.Embedding.CacheTTLHours)*time.Hour,
		)
		return retriever.NewDenseBackend(emb.Embed, emb.ModelName()), nil
	case "lexical":
		return retriever.NewLexicalBackend(), nil
	default:
		return nil, fmt.Errorf("unsupported backend: %s", cfg.Backend)
	}
}

func buildRouter(cfg *config.Config) (*llm.Router, error) {
	provider, err := ai.NewProvider(cfg.Generation.Provider, cfg.Generation.Data)
	if err != nil {
		return nil, fmt.Errorf("init generation provider: %w", err)
	}
	entries := make([]llm.Entry, 0, len(cfg.Generation.Models))
	for _, m := range cfg.Generation.Models {
		entries = append(entries, llm.Entry{
			Spec: llm.ModelSpec{
				Name:             m.Name,
				Identifier:       m.Identifier,
				MaxContextTokens: m.MaxContextTokens,
				Timeout:          time.Duration(m.TimeoutSeconds) * time.Second,
			},
			Generator: ai.NewGenerator(provider, m.Identifier),
		})
	}
	return llm.NewRouter(entries), nil
}

func runServer(cfg *config.Config) error {
	logutil.GetLogger(context.Background()).Info("starting server",
		zap.Int("port", cfg.Port),
		zap.String("backend", cfg.Backend),
		zap.Int("models", len(cfg.Generation.Models)),
	)

	backend, err := buildBackend(cfg)
	if err != nil {
		return err
	}
	router, err := buildRouter(cfg)
	if err != nil {
		return err
	}

	ck := chunker.New(cfg.Chunking.TargetTokens, cfg.Chunking.OverlapTokens)
	ingestService := service.NewIngestService(ck, backend)
	qaService := service.NewQAService(backend, router)

	deps := handler.RouterDeps{
		Upload: handler.NewUploadHandler(ingestService),
		QA:     handler.NewQAHandler(qaService, cfg.TopKDefault, cfg.TopKMax),
		Stats:  handler.NewStatsHandler(ingestService, qaService, cfg.APIKeyConfigured()),
	}

	middlewares := []gin.HandlerFunc{
		middleware.CORS(cfg.CORSAllowlist),
		gzip.Gzip(gzip.DefaultCompression),
	}
	if cfg.RateLimitSeconds > 0 {
		middlewares = append(middlewares, middleware.RateLimit(time.Duration(cfg.RateLimitSeconds)*time.Second))
	}

	engine, err := webapi.NewEngine(
		"/",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(middlewares...),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if cfg.StatsLogSchedule != "" {
		if err := scheduler.AddJob(job.NewStoreStatsJob(ingestService), cfg.StatsLogSchedule); err != nil {
			return fmt.Errorf("schedule stats job: %w", err)
		}
		scheduler.Start(ctx)
		defer scheduler.Stop()
	}

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
