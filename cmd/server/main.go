package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"orderflow/internal/common/aws"
	"orderflow/internal/common/config"
	"orderflow/internal/common/database"
	"orderflow/internal/common/logger"
	"orderflow/internal/common/observability"
	"orderflow/internal/notification"
	"orderflow/internal/order"
	"orderflow/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zapLog := logger.New("info", "console")
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("starting order service",
		zap.String("name", cfg.App.Name),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		zapLog.Fatal("postgres init failed", zap.Error(err))
	}
	defer pg.Close()
	if err := pg.Ping(ctx); err != nil {
		zapLog.Fatal("postgres unreachable", zap.Error(err))
	}

	rdb, err := database.NewRedis(cfg.Database.Redis)
	if err != nil {
		zapLog.Fatal("redis init failed", zap.Error(err))
	}
	defer rdb.Close()
	if err := rdb.Ping(ctx); err != nil {
		// Degraded but functional: unread counters fall through to Postgres.
		zapLog.Warn("redis unreachable, unread cache disabled", zap.Error(err))
		rdb = nil
	}

	var emailSender notification.EmailSender = notification.DisabledEmailSender{}
	var smsSender notification.SMSSender = notification.DisabledSMSSender{}
	if cfg.Notifications.Email.Enabled {
		sesClient, err := aws.NewSES(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("SES init failed", zap.Error(err))
		}
		emailSender = notification.NewSESEmailSender(sesClient, cfg.Notifications.Email.FromEmail)
	}
	if cfg.Notifications.SMS.Enabled {
		snsClient, err := aws.NewSNS(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("SNS init failed", zap.Error(err))
		}
		smsSender = notification.NewSNSSMSSender(snsClient, cfg.Notifications.SMS.SenderID)
	}

	var cache *redis.Client
	if rdb != nil {
		cache = rdb.Client
	}
	notifStore := notification.NewStore(pg.DB, cache, config.GetDuration(cfg.Notifications.UnreadCacheTTL))

	dispatcher := notification.NewDispatcher(
		notifStore, emailSender, smsSender, log, obs,
		config.GetDuration(cfg.Notifications.ChannelTimeout),
	)

	orderStore := order.NewStore(pg.DB)
	orderService := order.NewService(orderStore, dispatcher, log)
	aggregator := notification.NewAggregator(notifStore, orderStore)

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	handler := server.NewHandler(orderService, aggregator, notifStore, log, obs)
	server.Setup(r, handler)

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      r,
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	var metricsSrv *http.Server
	if cfg.Server.MetricsAddress != "" {
		metricsSrv = server.NewMetricsServer(cfg.Server.MetricsAddress)
		go func() {
			zapLog.Info("metrics listening", zap.String("address", cfg.Server.MetricsAddress))
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				zapLog.Error("metrics server failed", zap.Error(err))
			}
		}()
	}

	go func() {
		zapLog.Info("listening", zap.String("address", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, config.GetDuration(cfg.Server.ShutdownGrace))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("shutdown incomplete", zap.Error(err))
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			zapLog.Error("metrics shutdown incomplete", zap.Error(err))
		}
	}
}
