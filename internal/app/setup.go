package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/firebase/genkit/go/core/tracing"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/richardwu/ai-chatbot/db"
	"github.com/richardwu/ai-chatbot/internal/api"
	"github.com/richardwu/ai-chatbot/internal/auth"
	"github.com/richardwu/ai-chatbot/internal/chat"
	"github.com/richardwu/ai-chatbot/internal/config"
	"github.com/richardwu/ai-chatbot/internal/log"
	"github.com/richardwu/ai-chatbot/internal/store"
	"github.com/richardwu/ai-chatbot/internal/toolkit"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup. Call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if logger == nil {
		logger = log.NewNop()
	}

	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	// Tracing must be wired before Genkit initializes its TracerProvider.
	a.otelCleanup = provideOtelShutdown(ctx, cfg, logger)

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	pool, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.DBPool = pool
	a.Store = store.New(pool, logger)

	local := toolkit.NewCatalog(logger, nil)
	local.Add(
		toolkit.DefineWeatherTool(g, toolkit.WeatherConfig{}, logger),
		toolkit.DefineTimeTool(g),
	)

	bridge := toolkit.NewBridge(g, toolkit.BridgeConfig{
		ServerURL: cfg.ToolServerURL,
		Timeout:   cfg.ToolServerTimeout,
	}, logger)

	titleModel, err := cfg.ResolveModel(config.ModelTitle)
	if err != nil {
		return nil, fmt.Errorf("resolving title model: %w", err)
	}
	titles := chat.NewTitleGenerator(g, titleModel, logger)

	orch, err := chat.New(chat.Config{
		Genkit:     g,
		Store:      a.Store,
		Tools:      bridge,
		LocalTools: local,
		Titles:     titles,
		Logger:     logger,
		MaxSteps:   cfg.MaxSteps,
	})
	if err != nil {
		return nil, fmt.Errorf("creating orchestrator: %w", err)
	}
	a.Orchestrator = orch

	srv, err := api.NewServer(api.ServerConfig{
		Logger:       logger,
		Orchestrator: orch,
		Chats:        a.Store,
		Auth:         auth.New([]byte(cfg.AuthSecret), cfg.TrustProxy),
		ResolveModel: cfg.ResolveModel,
		Pool:         pool,
		CORSOrigins:  cfg.CORSOrigins,
		TrustProxy:   cfg.TrustProxy,
		Secure:       cfg.TrustProxy,
		TurnTimeout:  cfg.TurnTimeout,
		RateRPS:      cfg.RateLimitRPS,
		RateBurst:    cfg.RateLimitBurst,
	})
	if err != nil {
		return nil, fmt.Errorf("creating api server: %w", err)
	}
	a.Server = srv

	return a, nil
}

// provideOtelShutdown wires an OTLP HTTP exporter into Genkit's
// TracerProvider when tracing is enabled. Returns the shutdown hook.
func provideOtelShutdown(ctx context.Context, cfg *config.Config, logger log.Logger) func() {
	tc := cfg.Tracing
	if !tc.Enabled {
		return func() {}
	}

	endpoint := tc.Endpoint
	if endpoint == "" {
		endpoint = "localhost:4318"
	}

	// Genkit's TracerProvider reads OTEL resource attributes from the
	// environment. Called once during startup, before goroutines spawn.
	if tc.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", tc.ServiceName)
	}
	if tc.Environment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+tc.Environment)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		logger.Warn("creating OTLP exporter, tracing disabled", "error", err)
		return func() {}
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)
	logger.Debug("tracing enabled", "endpoint", endpoint, "service", tc.ServiceName)

	shutdown := tracing.TracerProvider().Shutdown
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideGenkit initializes Genkit with the configured AI provider.
func provideGenkit(ctx context.Context, cfg *config.Config, logger log.Logger) (*genkit.Genkit, error) {
	var g *genkit.Genkit

	switch cfg.Provider {
	case config.ProviderOllama:
		ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g = genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}
		// Ollama requires explicit model registration (no auto-discovery).
		for _, name := range ollamaModelNames(cfg.Models) {
			ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
				Name: name,
				Type: "chat",
			}, nil)
		}
		logger.Info("initialized Genkit with ollama provider", "host", cfg.OllamaHost)

	case config.ProviderOpenAI:
		g = genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with openai provider")
		}
		logger.Info("initialized Genkit with openai provider")

	default: // gemini / googleai
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with googleai provider")
		}
		logger.Info("initialized Genkit with googleai provider")
	}

	return g, nil
}

// ollamaModelNames extracts the distinct bare model names from the
// alias map, stripping the "ollama/" prefix.
func ollamaModelNames(models map[string]string) []string {
	seen := make(map[string]struct{}, len(models))
	var names []string
	for _, qualified := range models {
		name := strings.TrimPrefix(qualified, "ollama/")
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// provideDBPool runs migrations and creates the connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}
