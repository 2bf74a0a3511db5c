package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopmind/shopmind/engine/chat"
	"github.com/shopmind/shopmind/engine/commerce"
	"github.com/shopmind/shopmind/engine/gateway"
	"github.com/shopmind/shopmind/engine/guardrail"
	"github.com/shopmind/shopmind/engine/infra/cache"
	"github.com/shopmind/shopmind/engine/infra/monitoring"
	"github.com/shopmind/shopmind/engine/infra/retry"
	"github.com/shopmind/shopmind/engine/infra/server"
	llmadapter "github.com/shopmind/shopmind/engine/llm/adapter"
	"github.com/shopmind/shopmind/engine/session"
	"github.com/shopmind/shopmind/engine/tool"
	"github.com/shopmind/shopmind/pkg/config"
	"github.com/shopmind/shopmind/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Init(logger.DefaultConfig())
		logger.FromContext(context.Background()).Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger.Init(&logger.Config{
		Level:      logger.LogLevel(cfg.Log.Level),
		Output:     os.Stdout,
		JSON:       cfg.Log.JSON,
		TimeFormat: "15:04:05",
	})
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	log := logger.FromContext(ctx)

	sessions, err := session.NewStore(session.Config{
		MaxConversations: cfg.Session.MaxConversations,
		MaxMessages:      cfg.Session.MaxMessages,
	})
	if err != nil {
		log.Error("failed to create session store", "error", err)
		os.Exit(1)
	}
	guard := guardrail.NewFilter(guardrail.Config{
		MaxMessageLength: cfg.Guardrail.MaxMessageLength,
		RateLimit:        cfg.Guardrail.RateLimit,
		RatePeriod:       cfg.Guardrail.RatePeriod,
		MaxConversations: cfg.Guardrail.MaxConversations,
		SafeEmailDomain:  cfg.Guardrail.SafeEmailDomain,
	})
	sessions.OnEvict = func(conv *session.Conversation) {
		guard.ReleaseConversation(conv.OwnerID, conv.ID)
	}

	commerceClient := commerce.NewClient(commerce.Config{
		BaseURL:   cfg.Commerce.BaseURL,
		AccessKey: cfg.Commerce.AccessKey,
		Timeout:   cfg.Commerce.Timeout,
	})
	monitor := monitoring.NewMonitor(cfg.Health.CheckInterval)
	monitor.Start(ctx)
	defer monitor.Stop()

	gw := gateway.New(
		tool.NewRegistry(commerceClient),
		retry.Policy{
			MaxAttempts:  cfg.Retry.MaxAttempts,
			InitialDelay: cfg.Retry.InitialDelay,
			MaxDelay:     cfg.Retry.MaxDelay,
		},
		cache.New(cfg.Cache.TTL, cfg.Cache.Capacity),
		monitor,
	)

	chatService := chat.NewService(sessions, guard, gw, llmadapter.NewFactory(), chat.Options{
		Provider:      cfg.Provider.Default,
		Model:         cfg.Provider.Model,
		APIKey:        cfg.Provider.APIKey,
		BaseURL:       cfg.Provider.BaseURL,
		Temperature:   cfg.Provider.Temperature,
		MaxTokens:     cfg.Provider.MaxTokens,
		HistoryWindow: cfg.Chat.HistoryWindow,
		TurnTimeout:   cfg.Chat.TurnTimeout,
	})
	chatService.LoadReferenceData(ctx, commerceClient)

	srv := server.New(server.Config{Host: cfg.Server.Host, Port: cfg.Server.Port}, chatService, monitor)
	go func() {
		log.Info("server listening", "host", cfg.Server.Host, "port", cfg.Server.Port)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "error", err)
	}
}
