package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/sumire/triage/internal/config"
	"github.com/sumire/triage/internal/handler"
	"github.com/sumire/triage/internal/repository"
	"github.com/sumire/triage/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := sqlx.Connect("pgx", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelMigrate()
	if err := repository.Migrate(migrateCtx, db); err != nil {
		return err
	}

	slog.Info("database ready")

	userRepo := repository.NewUserRepository(db)
	memberRepo := repository.NewMemberRepository(db)
	stateRepo := repository.NewStateRepository(db)
	issueRepo := repository.NewIssueRepository(db)
	inboxRepo := repository.NewInboxRepository(db)
	boardRepo := repository.NewDeployBoardRepository(db)
	activityRepo := repository.NewActivityRepository(db)

	dispatcher := service.NewActivityDispatcher(activityRepo, service.ActivityConfig{
		Workers:    cfg.ActivityWorkers,
		QueueSize:  cfg.ActivityQueueSize,
		WebhookURL: cfg.ActivityWebhookURL,
	})
	dispatcher.Start()
	defer dispatcher.Stop()

	authSvc := service.NewAuthService(userRepo, service.AuthConfig{
		GoogleClientID:     cfg.GoogleClientID,
		GitHubClientID:     cfg.GitHubClientID,
		GitHubClientSecret: cfg.GitHubClientSecret,
		JWTSecret:          cfg.JWTSecret,
	})
	gate := service.NewAuthorizationGate(memberRepo, boardRepo)
	inboxSvc := service.NewInboxService(inboxRepo, issueRepo, stateRepo, activityRepo, dispatcher)

	authHandler := handler.NewAuthHandler(authSvc)
	inboxHandler := handler.NewInboxHandler(inboxSvc, gate)
	publicHandler := handler.NewPublicInboxHandler(inboxSvc, gate)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.HTTPErrorHandler
	e.Validator = handler.NewAppValidator()

	e.Use(middleware.RequestID())
	e.Use(handler.RequestLogger())
	e.Use(handler.Metrics())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderContentType},
		ExposeHeaders:    []string{echo.HeaderXRequestID},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	api := e.Group("/api")
	api.GET("/metrics", handler.MetricsEndpoint())
	api.POST("/sign-in", authHandler.SignIn)
	api.POST("/refresh", authHandler.Refresh)

	authed := api.Group("", handler.JWTAuth(authSvc))
	authed.GET("/users/me", authHandler.Me)

	inboxHandler.Register(authed.Group("/workspaces/:slug/projects/:project_id"))
	publicHandler.Register(authed.Group("/public/workspaces/:slug/projects/:project_id"))

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutdown signal received", "signal", sig)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
