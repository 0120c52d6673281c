package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labadmin/pulldown/derive"
	"github.com/labadmin/pulldown/internal/config"
	"github.com/labadmin/pulldown/internal/logger"
	"github.com/labadmin/pulldown/survey"
)

func main() {
	if err := logger.Setup(context.Background(), logger.OptionsFromEnv()); err != nil {
		logger.Warn("logger setup", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", "error", err)
	}

	src, closeDB, err := survey.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to open store", "driver", cfg.DatabaseDriver, "error", err)
	}
	defer closeDB()

	options := []survey.EngineOption{
		survey.WithOptions(survey.Options{OutOfDomain: cfg.OutOfDomain}),
	}
	if cfg.MetadataCacheTTL > 0 {
		options = append(options, survey.WithCatalogCache(
			survey.NewInMemoryCatalogCache(survey.CacheConfig{TTL: cfg.MetadataCacheTTL}),
		))
	}
	engine := survey.NewEngine(src, options...)

	profiles, err := derive.NewManager()
	if err != nil {
		logger.Fatal("failed to create profile manager", "error", err)
	}
	defs, err := config.LoadProfiles(cfg.ProfilesFile)
	if err != nil {
		logger.Fatal("failed to load profiles", "file", cfg.ProfilesFile, "error", err)
	}
	if err := profiles.LoadAll(defs); err != nil {
		logger.Fatal("failed to compile profiles", "error", err)
	}
	logger.Info("profiles loaded", "profiles", profiles.List())

	server := NewServer(engine, profiles, src, cfg.ColumnSeparator)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port, "driver", cfg.DatabaseDriver,
			"outOfDomain", cfg.OutOfDomain.String(), "catalogCacheTTL", cfg.MetadataCacheTTL)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed to start", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	if err := logger.Shutdown(ctx); err != nil {
		logger.Error("logger shutdown error", "error", err)
	}

	logger.Info("server stopped")
}
