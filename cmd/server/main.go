package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ErlanBelekov/accounts/config"
	"github.com/ErlanBelekov/accounts/internal/cookie"
	"github.com/ErlanBelekov/accounts/internal/email"
	"github.com/ErlanBelekov/accounts/internal/health"
	"github.com/ErlanBelekov/accounts/internal/infrastructure/postgres"
	ctxlog "github.com/ErlanBelekov/accounts/internal/log"
	"github.com/ErlanBelekov/accounts/internal/metrics"
	"github.com/ErlanBelekov/accounts/internal/oauth"
	httptransport "github.com/ErlanBelekov/accounts/internal/transport/http"
	"github.com/ErlanBelekov/accounts/internal/transport/http/handler"
	"github.com/ErlanBelekov/accounts/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const issuer = "Accounts"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := ctxlog.New(cfg.Env, cfg.SlogLevel(), os.Stdout)

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	if cfg.MigrateOnStart {
		if err = postgres.Migrate(ctx, pool); err != nil {
			stop()
			log.Fatalf("migrate: %v", err)
		}
	}

	codec, err := cookie.NewCodec(cfg.SessionSecrets...)
	if err != nil {
		stop()
		log.Fatalf("cookies: %v", err)
	}
	cookies := handler.NewCookies(codec, cfg.SecureCookies())

	// Storage
	userRepo := postgres.NewUserRepository(pool)
	passwordRepo := postgres.NewPasswordRepository(pool)
	sessionRepo := postgres.NewSessionRepository(pool)
	connectionRepo := postgres.NewConnectionRepository(pool)
	imageRepo := postgres.NewImageRepository(pool)
	verificationRepo := postgres.NewVerificationRepository(pool)

	sender := email.NewSender(cfg.Env, cfg.ResendAPIKey, cfg.ResendFrom, logger)
	verifier := usecase.NewVerifier(verificationRepo, cfg.AppBaseURL, issuer, logger)

	// Usecases
	authUsecase := usecase.NewAuthUsecase(userRepo, passwordRepo, sessionRepo, connectionRepo,
		verifier, sender, oauth.NewAvatarFetcher(usecase.MaxPhotoSize), logger)
	passwordUsecase := usecase.NewPasswordUsecase(passwordRepo)
	profileUsecase := usecase.NewProfileUsecase(userRepo, imageRepo, verifier, sender, logger)

	providers := newProviders(ctx, cfg, logger)

	handlers := httptransport.Handlers{
		Auth:       handler.NewAuthHandler(authUsecase, cookies, logger),
		Verify:     handler.NewVerifyHandler(verifier, authUsecase, profileUsecase, cookies, logger),
		Onboarding: handler.NewOnboardingHandler(authUsecase, providers, cookies, cfg.AppBaseURL, logger),
		Settings:   handler.NewSettingsHandler(profileUsecase, passwordUsecase, verifier, cookies, logger),
		Resources:  handler.NewResourceHandler(profileUsecase, cookies, logger),
		Toast:      handler.NewToastHandler(cookies),
	}

	metrics.Register()
	checker := health.NewChecker(map[string]health.Pinger{"postgres": pool}, logger, prometheus.DefaultRegisterer)

	srv := http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httptransport.NewRouter(logger, handlers, cookies, authUsecase),
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	go func() {
		logger.Info("server started", "port", cfg.Port, "providers", providers.Names())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
}
