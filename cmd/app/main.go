// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"telegram-topup-bot/internal/config"
	pg "telegram-topup-bot/internal/infra/db/postgres"
	"telegram-topup-bot/internal/infra/i18n"
	"telegram-topup-bot/internal/infra/logging"
	"telegram-topup-bot/internal/infra/metrics"
	"telegram-topup-bot/internal/infra/payment"
	"telegram-topup-bot/internal/infra/qr"
	red "telegram-topup-bot/internal/infra/redis"
	"telegram-topup-bot/internal/infra/sched"
	tele "telegram-topup-bot/internal/infra/telegram"
	"telegram-topup-bot/internal/infra/web"
	"telegram-topup-bot/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logging, verbose)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("dev mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()

	// ---- Repositories ----
	stateRepo := red.NewStateRepo(redisClient, cfg.Redis.StateTTL)
	refRepo := red.NewReferenceRepo(redisClient, cfg.Redis.RefTTL)
	balanceRepo := red.NewBalanceRepo(redisClient)
	authRepo := red.NewAuthRepo(redisClient)
	rateLimiter := red.NewRateLimiter(redisClient)
	locker := red.NewLocker(redisClient)
	depositRepo := pg.NewDepositRepo(pool)

	// ---- Gateway & i18n ----
	gateway := payment.NewAtlanticGateway(&cfg.Gateway)
	translator, err := i18n.NewTranslator(i18n.LocalesFS, "id")
	if err != nil {
		logger.Fatal().Err(err).Msg("i18n")
	}

	// ---- Telegram ----
	botAdapter, err := tele.NewRealTelegramBotAdapter(&cfg.Bot, authRepo, rateLimiter, locker, translator, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("telegram")
	}

	// ---- Use cases ----
	topUpUC := usecase.NewTopUpUseCase(stateRepo, refRepo, depositRepo, authRepo, balanceRepo, gateway, botAdapter, qr.RenderPNG, translator, logger)
	statusUC := usecase.NewStatusUseCase(stateRepo, gateway, botAdapter, translator, logger)
	confirmUC := usecase.NewConfirmUseCase(refRepo, depositRepo, balanceRepo, botAdapter, translator, logger)
	botAdapter.Bind(topUpUC, statusUC)

	go func() {
		if err := botAdapter.StartPolling(ctx); err != nil {
			logger.Error().Err(err).Msg("telegram polling stopped")
		}
	}()

	// ---- Stale deposit reconciler ----
	reconciler := sched.NewDepositReconciler(confirmUC, depositRepo, gateway, time.Minute, 10*time.Minute, logger)
	go reconciler.Start(ctx)

	// ---- Webhook server ----
	srv := web.NewServer(confirmUC, cfg.Gateway.WebhookSecret, logger)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Web.Port),
		Handler: srv.Router(),
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("webhook server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	botAdapter.StopPolling()
}
