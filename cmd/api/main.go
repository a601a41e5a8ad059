package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	openai "github.com/sashabaranov/go-openai"

	"github.com/rtlaser/clinic-assistant/internal/admin"
	"github.com/rtlaser/clinic-assistant/internal/afterhours"
	"github.com/rtlaser/clinic-assistant/internal/api/router"
	appconfig "github.com/rtlaser/clinic-assistant/internal/config"
	"github.com/rtlaser/clinic-assistant/internal/gateway"
	"github.com/rtlaser/clinic-assistant/internal/observability/metrics"
	"github.com/rtlaser/clinic-assistant/internal/outcome"
	"github.com/rtlaser/clinic-assistant/internal/persona"
	"github.com/rtlaser/clinic-assistant/internal/pipeline"
	"github.com/rtlaser/clinic-assistant/internal/ratelimit"
	"github.com/rtlaser/clinic-assistant/internal/reply"
	"github.com/rtlaser/clinic-assistant/internal/robot"
	"github.com/rtlaser/clinic-assistant/internal/scenario"
	"github.com/rtlaser/clinic-assistant/internal/webhook"
	"github.com/rtlaser/clinic-assistant/pkg/logging"
)

func main() {
	// Local development convenience; production sets real env vars.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinic-assistant API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		var err error
		pool, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to create database pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
	} else {
		logger.Warn("DATABASE_URL not set, running with in-memory stores")
	}

	// Robot configuration: database-backed when available, defaults otherwise.
	robotCfg := robot.DefaultConfig()
	var robotStore *robot.PostgresStore
	if pool != nil {
		robotStore = robot.NewPostgresStore(pool)
		loaded, err := robotStore.GetOrCreate(ctx)
		if err != nil {
			logger.Error("failed to load robot config", "error", err)
			os.Exit(1)
		}
		robotCfg = loaded
	}
	state := robot.NewState(robotCfg)

	personaResolver := persona.NewResolver(persona.ResolverConfig{
		Personas: persona.DefaultPersonas(),
		Windows:  persona.DefaultSchedule(),
		Timezone: robotCfg.Timezone,
	}, logger)

	var scenarioStore scenario.Store
	var adminScenarios admin.ScenarioStore
	if pool != nil {
		pg := scenario.NewPostgresStore(pool)
		scenarioStore = pg
		adminScenarios = pg
	} else {
		scenarioStore = scenario.NewMemoryStore(defaultScenarios()...)
	}

	loc, err := time.LoadLocation(robotCfg.Timezone)
	if err != nil {
		logger.Warn("invalid timezone, using UTC for rate limiting", "timezone", robotCfg.Timezone)
		loc = time.UTC
	}

	var limiter ratelimit.Limiter
	if cfg.UseRedisRateLimit && cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer redisClient.Close()
		limiter = ratelimit.NewRedisLimiter(redisClient, cfg.AutoReplyDailyLimit, loc, logger)
	} else {
		limiter = ratelimit.NewMemoryLimiter(cfg.AutoReplyDailyLimit, loc)
	}

	brain := reply.NewBrain(cfg.BrainPath, logger)
	generator := reply.NewGenerator(openai.NewClient(cfg.OpenAIAPIKey), brain, cfg.OpenAIModel, logger)

	sender, err := gateway.New(gateway.Config{
		BaseURL:   cfg.GatewayBaseURL,
		APIKey:    cfg.GatewayAPIKey,
		AccountID: cfg.GatewayAccountID,
		PhoneID:   cfg.GatewayPhoneID,
		Timeout:   cfg.GatewayTimeout,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("failed to create delivery gateway", "error", err)
		os.Exit(1)
	}

	var interceptor pipeline.Interceptor
	if cfg.AfterHoursEnabled && cfg.AfterHoursWebhookURL != "" {
		interceptor = afterhours.NewClient(cfg.AfterHoursWebhookURL, cfg.AfterHoursWebhookToken, cfg.AfterHoursTimeout, logger)
	}

	var recorder *outcome.Recorder
	var adminOutcomes admin.OutcomeLister
	var pipelineOutcomes pipeline.OutcomeRecorder
	if pool != nil {
		recorder = outcome.NewRecorder(pool, logger)
		adminOutcomes = recorder
		pipelineOutcomes = recorder
	}

	pipelineMetrics := metrics.NewPipelineMetrics(nil)

	proc := pipeline.New(pipeline.Deps{
		Config: pipeline.Config{
			APIEnabled:      cfg.APIEnabled,
			AutoSendEnabled: cfg.AutoSendEnabled,
		},
		State:      state,
		Personas:   personaResolver,
		Scenarios:  scenario.NewResolver(scenarioStore),
		Limiter:    limiter,
		Replier:    generator,
		Sender:     sender,
		AfterHours: interceptor,
		Outcomes:   pipelineOutcomes,
		Metrics:    pipelineMetrics,
		Logger:     logger,
	})

	webhookHandler := webhook.NewHandler(
		webhook.NewNormalizer(cfg.DefaultInstanceID),
		proc,
		webhook.HandlerConfig{
			Token:        cfg.WebhookToken,
			AllowedPhone: cfg.TestAllowedPhone,
		},
		logger,
	)

	var adminRobotStore admin.RobotStore
	if robotStore != nil {
		adminRobotStore = robotStore
	}
	adminHandler := admin.NewHandler(state, adminRobotStore, adminScenarios, adminOutcomes, admin.GatewayInfo{
		BaseURL:   cfg.GatewayBaseURL,
		AccountID: cfg.GatewayAccountID,
		PhoneID:   cfg.GatewayPhoneID,
		MaskedKey: admin.MaskKey(cfg.GatewayAPIKey),
	}, logger)

	r := router.New(&router.Config{
		Logger:          logger,
		WebhookHandler:  webhookHandler,
		AdminHandler:    adminHandler,
		AdminAuthSecret: cfg.AdminJWTSecret,
		MetricsHandler:  promhttp.Handler(),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// defaultScenarios seeds the in-memory store for database-less runs.
func defaultScenarios() []scenario.Definition {
	return []scenario.Definition{
		{
			Key:         scenario.IntentSaudacao,
			Active:      true,
			Description: "Saudação inicial de novos contatos",
			AIInstructions: "Cumprimente com simpatia, pergunte se a pessoa quer remover tatuagem ou micropigmentação " +
				"e ofereça uma avaliação gratuita.",
		},
		{
			Key:         scenario.DefaultScenarioKey,
			Active:      true,
			Description: "Atendimento geral",
			AIInstructions: "Responda dúvidas sobre remoção a laser com objetividade. Para orçamento, peça uma foto " +
				"da região. Encaminhe casos clínicos para a equipe humana.",
		},
	}
}
