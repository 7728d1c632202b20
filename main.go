package main

import (
	"errors"
	"log"
	"net/http"

	"go.uber.org/zap"

	"github.com/tabletalk-ai/tabletalk/pkg/apperrors"
	"github.com/tabletalk-ai/tabletalk/pkg/config"
	"github.com/tabletalk-ai/tabletalk/pkg/handlers"
	"github.com/tabletalk-ai/tabletalk/pkg/llm"
	"github.com/tabletalk-ai/tabletalk/pkg/middleware"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("bind_addr", cfg.BindAddr),
		zap.String("port", cfg.Port),
		zap.String("database_path", cfg.Database.Path),
		zap.Duration("query_timeout", cfg.Database.QueryTimeout()))

	generator, err := llm.New(llm.Config{
		OpenAIAPIKey:   cfg.LLM.OpenAIAPIKey,
		OpenAIModel:    cfg.LLM.OpenAIModel,
		AnthropicKey:   cfg.LLM.AnthropicKey,
		AnthropicModel: cfg.LLM.AnthropicModel,
	}, logger)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNoLLMConfigured) {
			logger.Fatal("Failed to create LLM client", zap.Error(err))
		}
		logger.Warn("No LLM provider configured; query and data generation endpoints will reject requests")
		generator = llm.Unconfigured()
	} else {
		logger.Info("LLM provider ready", zap.String("model", generator.Model()))
	}

	mux := http.NewServeMux()

	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewUploadHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewQueryHandler(cfg, generator, logger).RegisterRoutes(mux)
	handlers.NewSchemaHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewTableHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewExportHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewInsightsHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewDatagenHandler(cfg, generator, logger).RegisterRoutes(mux)

	handler := middleware.CORS(cfg.FrontendOrigin)(middleware.RequestLogger(logger)(mux))

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting tabletalk", zap.String("addr", addr), zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
