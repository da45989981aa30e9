package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"communityhub/internal/core/services"
	httphandlers "communityhub/internal/handlers/http"
	"communityhub/internal/infrastructure/chat"
	cluster "communityhub/internal/infrastructure/distributed"
	"communityhub/internal/infrastructure/middleware"
	"communityhub/internal/infrastructure/monitoring"
	"communityhub/internal/infrastructure/repositories"
	redisrepo "communityhub/internal/infrastructure/repositories/redis"
	"communityhub/internal/infrastructure/security"
	"communityhub/internal/infrastructure/statusproxy"
	"communityhub/internal/infrastructure/webhook"
	"communityhub/pkg/circuitbreaker"
	"communityhub/pkg/config"
	"communityhub/pkg/distributed"
)

// app holds everything main starts and stops
type app struct {
	cfg       *config.Config
	log       *zap.SugaredLogger
	router    *gin.Engine
	repos     *repositories.RepositoryFactory
	scheduler *security.Scheduler
	chat      *chat.WebSocketServer
	chatSvc   *services.ChatService
	relay     *cluster.ChatRelay
	status    *services.StatusService
	startTime time.Time
}

func newApp(cfg *config.Config, zapLogger *zap.Logger, reg *prometheus.Registry) (*app, error) {
	log := zapLogger.Sugar()

	repos, err := repositories.NewRepositoryFactory(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("repositories: %w", err)
	}

	collector := monitoring.NewPrometheusCollector(reg)
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// security
	window := services.NewMetricsWindow(cfg.Security.Window, nil)
	notifier := webhook.NewNotifier(cfg.Backup.WebhookURL, cfg.Backup.WebhookSecret, cfg.Backup.Timeout, log.Named("webhook"))
	if !notifier.Configured() {
		log.Warn("CLOUD_BACKUP_WEBHOOK not set, backup triggers will be refused")
	}
	trigger := services.NewBackupTrigger(notifier, cfg.Backup.Cooldown, nil, collector, log.Named("backup"))
	if client := repos.RedisClient(); client != nil {
		leases := distributed.NewLeaseManager(client, redisrepo.KeyPrefix+"lease:")
		trigger.SetGate(leases.Lease("backup-auto", cfg.Backup.Cooldown))
	}
	securityService := services.NewSecurityService(window, services.Thresholds{
		Window:        cfg.Security.Window,
		RPMWarning:    cfg.Security.RPMWarning,
		RPMCritical:   cfg.Security.RPMCritical,
		ErrorWarning:  cfg.Security.ErrorWarning,
		ErrorCritical: cfg.Security.ErrorCritical,
		TopSources:    cfg.Security.TopSources,
	}, trigger, collector, log.Named("security"))
	scheduler := security.NewScheduler(securityService, security.Config{
		PruneInterval:    cfg.Security.PruneInterval,
		EvaluateInterval: cfg.Security.EvaluateInterval,
	}, log.Named("security"))

	// chat
	chatService := services.NewChatService(repos.CreateChatRepository(), services.ChatConfig{
		SendInterval:  cfg.Chat.SendInterval,
		MaxTextLength: cfg.Chat.MaxTextLength,
		MaxAuthor:     cfg.Chat.MaxAuthor,
		AnonymousName: cfg.Chat.AnonymousName,
		UploadPrefix:  cfg.Uploads.URLPrefix,
	}, nil, collector, log.Named("chat"))
	chatServer := chat.NewWebSocketServer(chatService, chat.Config{
		PingInterval:   cfg.Chat.PingInterval,
		PongTimeout:    cfg.Chat.PongTimeout,
		WriteTimeout:   cfg.Chat.WriteTimeout,
		SendBuffer:     cfg.Chat.SendBuffer,
		MaxMessageSize: cfg.RateLimiting.WebSocket.MaxMessageSizeBytes,
		MaxConnections: cfg.RateLimiting.WebSocket.MaxConcurrent,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, log.Named("chat"))
	var relay *cluster.ChatRelay
	if client := repos.RedisClient(); client != nil && cfg.Chat.Store == "redis" {
		relay = cluster.NewChatRelay(client, uuid.NewString(), cluster.DefaultChatChannel, log.Named("chat_relay"))
		chatService.SetRelay(relay)
	}

	// content
	reportService := services.NewReportService(repos.CreateReportRepository(), nil, log.Named("reports"))
	metaService := services.NewMetaService(repos.CreateMetaRepository(), nil, log.Named("meta"))
	uploadService := services.NewUploadService(repos.CreateMediaRepository(), services.UploadConfig{
		URLPrefix:    cfg.Uploads.URLPrefix,
		MaxSizeBytes: cfg.Uploads.MaxSizeBytes,
		AllowedMIMEs: cfg.Uploads.AllowedMIMEs,
	}, nil, log.Named("uploads"))

	statusClient := statusproxy.NewClient(cfg.StatusProxy.BaseURL, statusproxy.Options{
		Timeout: cfg.StatusProxy.Timeout,
	}, log.Named("statusproxy"))
	statusService := services.NewStatusService(
		statusClient,
		cfg.StatusProxy.DefaultHost,
		cfg.StatusProxy.DefaultPort,
		cfg.StatusProxy.CacheTTL,
		log.Named("statusproxy"),
	)

	// health
	health := monitoring.NewHealthChecker()
	for name, root := range repos.Storages() {
		health.AddStorageCheck(name, root, 2*time.Second)
	}
	if client := repos.RedisClient(); client != nil {
		health.AddRedisCheck(client, 2*time.Second)
	}
	health.AddComponentCheck("status_proxy", func() error {
		if statusClient.BreakerState() == circuitbreaker.StateOpen {
			return circuitbreaker.ErrOpen
		}
		return nil
	})

	a := &app{
		cfg:       cfg,
		log:       log,
		repos:     repos,
		scheduler: scheduler,
		chat:      chatServer,
		chatSvc:   chatService,
		relay:     relay,
		status:    statusService,
		startTime: time.Now(),
	}

	router := gin.New()
	router.Use(
		middleware.RequestIDMiddleware(),
		middleware.TracingMiddleware("/health", "/ready", "/metrics"),
		middleware.RequestLoggingMiddleware(zapLogger, collector),
		middleware.SecurityMetricsMiddleware(window),
		// innermost, so recovered panics reach the window and the logs as 500s
		middleware.RecoveryMiddleware(log),
		middleware.ErrorHandlerMiddleware(log),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC(),
			"uptime":    time.Since(a.startTime).String(),
			"chat":      chatServer.ActiveConnections(),
		})
	})
	router.GET("/ready", func(c *gin.Context) {
		status := health.CheckAll(c.Request.Context())
		code := http.StatusOK
		if !status.Healthy() {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, status)
	})
	if cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}

	router.Static("/reports", repos.Storages()["reports"].BasePath())
	router.Static(cfg.Uploads.URLPrefix, repos.Storages()["uploads"].BasePath())

	// Rate limiting applies to the API only; static files and probes are exempt.
	api := router.Group("/", middleware.NewHTTPRateLimitMiddleware(cfg))
	httphandlers.NewSecurityHandler(securityService).SetupRoutes(api)
	httphandlers.NewContentHandler(reportService, metaService, cfg.Uploads.MaxSizeBytes).SetupRoutes(api)
	httphandlers.NewChatHandler(uploadService, chatServer.HandleWebSocket).SetupRoutes(api)
	httphandlers.NewStatusHandler(statusService).SetupRoutes(api)

	a.router = router
	return a, nil
}

// start launches background work that lives as long as ctx
func (a *app) start(ctx context.Context) {
	go a.scheduler.Start(ctx)
	if a.relay != nil {
		go func() {
			if err := a.relay.Run(ctx, a.chatSvc.Relayed); err != nil && !errors.Is(err, context.Canceled) {
				a.log.Errorw("Chat relay stopped", "error", err)
			}
		}()
	}
}

// stop releases what newApp and start acquired
func (a *app) stop() {
	a.scheduler.Stop()
	a.chat.Close()
	if a.relay != nil {
		_ = a.relay.Close()
	}
	a.status.Stop()
	if err := a.repos.Close(); err != nil {
		a.log.Errorw("Error closing repositories", "error", err)
	}
}
