package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"bioneuro/backend/internal/config"
	"bioneuro/backend/internal/db"
	"bioneuro/backend/internal/decoder"
	"bioneuro/backend/internal/handlers"
	"bioneuro/backend/internal/llm"
	"bioneuro/backend/internal/logger"
	"bioneuro/backend/internal/metrics"
	"bioneuro/backend/internal/middleware"
	"bioneuro/backend/internal/router"
	"bioneuro/backend/internal/session"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.App.LogFilePath, cfg.IsProduction())
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collector := metrics.New()

	apiKey, err := cfg.LLM.ResolveAPIKey()
	if err != nil {
		log.Fatal("failed to resolve chat credential", zap.Error(err))
	}
	factory := llm.NewFactory()
	if !factory.Supports(cfg.LLM.Provider) {
		log.Fatal("unsupported chat provider", zap.String("provider", cfg.LLM.Provider))
	}
	system, err := llm.LoadSystemInstruction(cfg.LLM.PersonaFile)
	if err != nil {
		log.Fatal("failed to load persona", zap.Error(err))
	}

	proxyOpts := []llm.ProxyOption{
		llm.WithLogger(logger.Module(log, "chat")),
		llm.WithMetrics(collector),
	}
	if cfg.Storage.DatabaseURL != "" {
		connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		store, err := db.New(connectCtx, cfg.Storage.DatabaseURL)
		if err == nil {
			err = store.EnsureSchema(connectCtx)
		}
		cancel()
		if err != nil {
			log.Fatal("failed to prepare database", zap.Error(err))
		}
		defer store.Close()
		proxyOpts = append(proxyOpts, llm.WithUsageSink(llm.NewUsageStore(store)))
		log.Info("usage logging enabled")
	}

	proxy := llm.NewProxy(llm.ProxyConfig{
		Provider: llm.ProviderConfig{
			ProviderName: cfg.LLM.Provider,
			APIKey:       apiKey,
			ModelName:    cfg.LLM.Model,
			BaseURL:      cfg.LLM.BaseURL,
			Temperature:  cfg.LLM.Temperature,
			MaxTokens:    cfg.LLM.MaxTokens,
		},
		Timeout:       cfg.LLM.Timeout,
		RetryAttempts: cfg.LLM.RetryAttempts,
		RetryDelay:    cfg.LLM.RetryDelay,
		MaxRPM:        cfg.LLM.MaxRPM,
	}, factory, proxyOpts...)
	if proxy.DemoMode() {
		log.Warn("no chat credential configured, assistant runs in demo mode")
	}

	links := decoder.LinkBuilder{
		BaseURL:   cfg.Contact.MessagingBaseURL,
		Recipient: cfg.Contact.WhatsAppNumber,
		Template:  cfg.Contact.MessageTemplate,
	}
	classifier := decoder.DefaultClassifier()
	visitors := session.NewStore(cfg.App.SessionTTL, func() *decoder.Widget {
		return decoder.NewWidget(classifier, links, cfg.Decoder.Delay)
	}, system)
	visitors.OnChange(collector.SetActiveSessions)

	contact := handlers.ContactInfo{
		WhatsApp:   cfg.Contact.WhatsAppNumber,
		Link:       links.Contact(),
		Email:      cfg.Contact.Email,
		Modalities: []string{"Sesiones Online (Zoom)", "Presencial: Mérida, Yucatán"},
	}
	api := handlers.NewAPI(visitors, proxy, classifier, links, contact, collector, logger.Module(log, "http"))
	api.SecureCookies = cfg.IsProduction()
	api.CookieTTL = cfg.App.SessionTTL

	limits := router.Limits{
		General: middleware.NewRateLimiter(cfg.App.RateLimitPerMinute, time.Minute),
		Chat:    middleware.NewRateLimiter(cfg.App.ChatRateLimitPerMinute, time.Minute),
	}
	if cfg.Storage.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.Storage.RedisURL)
		if err != nil {
			log.Fatal("invalid REDIS_URL", zap.Error(err))
		}
		client := redis.NewClient(opts)
		defer func() { _ = client.Close() }()
		limiterLog := logger.Module(log, "ratelimit")
		limits.General = middleware.NewRedisRateLimiter(client, "bioneuro:rl:api", cfg.App.RateLimitPerMinute, time.Minute, limiterLog)
		limits.Chat = middleware.NewRedisRateLimiter(client, "bioneuro:rl:chat", cfg.App.ChatRateLimitPerMinute, time.Minute, limiterLog)
		log.Info("rate limits shared through redis")
	}

	monitor := &llm.HealthMonitor{Proxy: proxy, Interval: cfg.LLM.HealthInterval, Log: logger.Module(log, "health")}
	go monitor.Run(ctx)

	server := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router.New(api, limits, cfg.App.FrontendOrigin, collector),
		ReadHeaderTimeout: 10 * time.Second,
		// Streaming replies can outlast a fixed write deadline; the chat
		// proxy bounds each turn with its own timeout.
		WriteTimeout: cfg.LLM.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.App.Port), zap.String("provider", proxy.ProviderName()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", zap.Error(err))
		os.Exit(1)
	}
}
