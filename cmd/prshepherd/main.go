package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	gitcliadapter "github.com/prshepherd/prshepherd/internal/adapter/driven/gitcli"
	githubadapter "github.com/prshepherd/prshepherd/internal/adapter/driven/github"
	sqliteadapter "github.com/prshepherd/prshepherd/internal/adapter/driven/sqlite"
	toolfmtadapter "github.com/prshepherd/prshepherd/internal/adapter/driven/toolfmt"
	httphandler "github.com/prshepherd/prshepherd/internal/adapter/driving/http"
	"github.com/prshepherd/prshepherd/internal/application"
	"github.com/prshepherd/prshepherd/internal/config"
	"github.com/prshepherd/prshepherd/internal/domain/model"
	"github.com/prshepherd/prshepherd/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on missing required env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"repos", cfg.Repos,
		"github_username", cfg.GitHubUsername,
		"check_interval", cfg.CheckInterval,
		"discovery_interval", cfg.DiscoveryInterval,
		"max_iterations", cfg.MaxIterations,
		"auto_fix", cfg.AutoFix,
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire driven adapters.
	sessionStore := sqliteadapter.NewSessionRepo(db)

	ghClient := githubadapter.NewClient(cfg.GitHubToken, cfg.GitHubUsername, cfg.Repos)
	slog.Info("github client created", "username", cfg.GitHubUsername)

	workspaces := gitcliadapter.NewManager(
		cfg.Workdir,
		cfg.GitHubToken,
		cfg.GitHubUsername,
		cfg.GitHubUsername+"@users.noreply.github.com",
	)

	formatter := toolfmtadapter.NewRunner(nil)

	// 6. Wire application services.
	categorizer := application.NewCategorizer(application.Keywords{
		Escalation: cfg.EscalationKeywords,
	})
	remediator := application.NewRemediator(formatter, ghClient, cfg.AutoFix)
	escalator := application.NewEscalator(ghClient)

	sessionCfg := application.SessionConfig{
		InitialWait:       cfg.InitialWait,
		CheckInterval:     cfg.CheckInterval,
		MaxIterations:     cfg.MaxIterations,
		RequiredReviewers: cfg.RequiredReviewers,
	}
	newSession := func(target model.Target, vcs driven.VCS) *application.Session {
		return application.NewSession(ghClient, vcs, remediator, escalator, categorizer, sessionStore, target, sessionCfg)
	}

	watchSvc := application.NewWatchService(ghClient, workspaces, newSession, cfg.DiscoveryInterval)
	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		watchSvc.Start(ctx)
	}()

	// 7. Create HTTP handler and start the status API server.
	apiHandler := httphandler.NewHandler(sessionStore, watchSvc, slog.Default())
	handler := httphandler.NewServeMux(apiHandler, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("prshepherd started",
		"listen_addr", cfg.ListenAddr,
		"repos", cfg.Repos,
	)

	// 8. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 9. Graceful shutdown: drain the HTTP server, then wait for sessions.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	<-watchDone

	slog.Info("shutdown complete")
	return nil
}
