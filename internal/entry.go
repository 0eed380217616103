// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"

	"github.com/leadnotes/leadnotes/internal/api"
	"github.com/leadnotes/leadnotes/internal/auth"
	"github.com/leadnotes/leadnotes/internal/mail"
	"github.com/leadnotes/leadnotes/internal/mcpserver"
	"github.com/leadnotes/leadnotes/internal/noteservice"
	"github.com/leadnotes/leadnotes/internal/store"
)

// services bundles the wired-up application core shared by the HTTP server
// and the MCP server.
type services struct {
	svc     *noteservice.Service
	monitor *store.Monitor // nil when no durable store is configured
	client  *mongo.Client  // nil when no durable store is configured
}

// buildServices wires the persistence facade, the mail dispatcher, and the
// note service from config. The Mongo client is created eagerly but the
// server never waits on it: connectivity is observed by the monitor, and the
// facade falls back to the in-process store while the deployment is down.
func buildServices(ctx context.Context, cfg *Config, logger *slog.Logger) (*services, error) {
	fallback := store.NewMemory()

	var (
		durable store.Store
		monitor *store.Monitor
		client  *mongo.Client
	)
	probe := store.Probe(func() bool { return false })

	if cfg.Mongo.Enabled() {
		opts := options.Client().
			ApplyURI(cfg.Mongo.URI).
			SetServerSelectionTimeout(time.Second)
		c, err := mongo.Connect(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("init mongo client: %w", err)
		}
		client = c
		coll := c.Database(cfg.Mongo.Database).Collection(cfg.Mongo.Collection)
		durable = store.NewMongo(coll)
		monitor = store.NewMonitor(c, time.Duration(cfg.Mongo.PingSeconds)*time.Second, logger)
		probe = monitor.Probe()
	} else {
		logger.Warn("no mongo uri configured, in-memory fallback is active for the process lifetime")
	}

	mailer, err := buildMailer(cfg, logger)
	if err != nil {
		return nil, err
	}

	facade := store.NewFacade(durable, fallback, probe)
	svc := noteservice.NewService(facade, mailer, logger)
	return &services{svc: svc, monitor: monitor, client: client}, nil
}

func buildMailer(cfg *Config, logger *slog.Logger) (mail.Dispatcher, error) {
	if cfg.Mail.Mode == MailModeSMTP {
		d, err := mail.NewSMTPDispatcher(cfg.Mail.From, cfg.Mail.SMTP.Host, cfg.Mail.SMTP.Port,
			cfg.Mail.SMTP.Username, cfg.Mail.SMTP.Password, logger)
		if err != nil {
			return nil, fmt.Errorf("init mail transport: %w", err)
		}
		return d, nil
	}
	return mail.NewFileDispatcher(cfg.Mail.From, cfg.Mail.SpoolDir, logger), nil
}

func newLogger(cfg *Config) (*slog.Logger, *slog.LevelVar) {
	level := new(slog.LevelVar)
	level.Set(cfg.App.LogLevel)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger, level
}

func logAuthPosture(cfg *Config, logger *slog.Logger) {
	switch cfg.Auth.Mode {
	case auth.ModeEnforced:
		logger.Info("authentication enforced, bearer tokens required")
	case auth.ModeDev:
		logger.Warn("AUTH BYPASS: development mode, tokens are NOT verified")
	default:
		logger.Warn("AUTH DISABLED: no identity provider configured, all requests pass through")
	}
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	logger, level := newLogger(cfg)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.Bool("mongo_configured", cfg.Mongo.Enabled()),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("mail_mode", cfg.Mail.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))
	logAuthPosture(cfg, logger)

	deps, err := buildServices(ctx, cfg, logger)
	if err != nil {
		return err
	}

	var verifier auth.Verifier
	if cfg.Auth.Enforced() {
		verifier = auth.NewJWTVerifier(cfg.Auth.Secret)
	}
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Mount("/", api.NewRouter(deps.svc, cfg.Auth.Mode, verifier))

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: router,
	}

	g, gCtx := errgroup.WithContext(ctx)

	if deps.monitor != nil {
		g.Go(func() error {
			deps.monitor.Run(gCtx)
			return nil
		})
	}

	if app.configPath != "" {
		g.Go(func() error {
			if err := WatchConfig(gCtx, app.configPath, level, logger); err != nil {
				logger.Warn("config watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		if deps.client != nil {
			if err := deps.client.Disconnect(shutdownCtx); err != nil {
				logger.Error("mongo disconnect error", slog.String("error", err.Error()))
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP starts the MCP stdio server with the given options. It shares the
// persistence and mail wiring with the HTTP server.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	// Logs go to stderr: stdout is the MCP transport.
	level := new(slog.LevelVar)
	level.Set(cfg.App.LogLevel)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	deps, err := buildServices(ctx, cfg, logger)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gCtx := errgroup.WithContext(runCtx)
	if deps.monitor != nil {
		g.Go(func() error {
			deps.monitor.Run(gCtx)
			return nil
		})
	}

	srv := mcpserver.New(deps.svc)
	serveErr := srv.ServeStdio()

	// Transport closed: stop the monitor and release the connection.
	cancel()
	if err := g.Wait(); err != nil {
		logger.Warn("monitor stopped with error", slog.String("error", err.Error()))
	}
	if deps.client != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := deps.client.Disconnect(shutdownCtx); err != nil {
			logger.Error("mongo disconnect error", slog.String("error", err.Error()))
		}
	}
	return serveErr
}
