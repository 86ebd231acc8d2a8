package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"Divelog/internal/config"
	"Divelog/internal/server"
	"Divelog/internal/store"

	"github.com/gin-gonic/gin"
)

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.StoreDriver {
	case "mysql", "sqlite":
		st, err = store.OpenSQL(ctx, cfg.StoreDriver, cfg.DatabaseDSN, logger)
	default:
		st, err = store.NewFileStore(store.Paths{
			Divers: cfg.Path(cfg.DiversFile),
			Sites:  cfg.Path(cfg.SitesFile),
			Log:    cfg.Path(cfg.LogFile),
			Users:  cfg.Path(cfg.UsersFile),
		}, logger)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Cache {
		return store.NewCached(st), nil
	}
	return st, nil
}

func main() {
	configPath := flag.String("config", os.Getenv("DIVELOG_CONFIG"), "path to a YAML or TOML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := newLogger(cfg.LogLevel)
	if cfg.GeneratedSecret {
		logger.Warn("no session secret configured, sessions end when the server restarts")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", slog.String("driver", cfg.StoreDriver), slog.Any("error", err))
		os.Exit(1)
	}
	defer st.Close()

	if err := store.EnsureAdmin(ctx, st, cfg.AdminUsername, cfg.AdminName, cfg.AdminPassword, logger); err != nil {
		logger.Error("failed to create initial admin", slog.Any("error", err))
		os.Exit(1)
	}

	fee, err := cfg.Fee()
	if err != nil {
		logger.Error("invalid fee", slog.Any("error", err))
		os.Exit(1)
	}

	gin.SetMode(gin.ReleaseMode)
	srv, err := server.New(st, server.Options{
		SessionSecret: cfg.SessionSecret,
		DefaultFee:    fee,
		SecureCookie:  cfg.SecureCookie,
	}, logger)
	if err != nil {
		logger.Error("failed to set up server", slog.Any("error", err))
		os.Exit(1)
	}

	if err := srv.Run(ctx, cfg.Addr); err != nil {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
