package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"tabular-rl-server/pkg/config"
	"tabular-rl-server/pkg/logger"
	"tabular-rl-server/pkg/server"
)

func main() {
	// CONFIG_FILE_PATH or "" for auto-discovery
	cfg, err := config.LoadConfig(os.Getenv("CONFIG_FILE_PATH"))
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logger.Initialize(&cfg.Logging)

	logger.GetLogger().Info("Starting tabular agent gRPC server...")
	logger.GetLogger().Infof("Server configuration: %+v", cfg.Server)
	logger.GetLogger().Infof("Default agent: states=%d actions=%d learning_rate=%.3f decay_steps=%d discount=%.3f tie_break=%s",
		cfg.Agent.StateCount, cfg.Agent.ActionCount, cfg.Agent.LearningRate,
		cfg.Agent.DecaySteps, cfg.Agent.DiscountFactor, cfg.Agent.TieBreak)

	// Only the log level is applied live; everything else needs a restart
	if err := config.WatchConfig(func(next *config.Config) {
		if err := logger.SetLevel(next.Logging.Level); err != nil {
			logger.GetLogger().Warnf("Ignoring reloaded log level: %v", err)
			return
		}
		logger.GetLogger().Infof("Log level set to %s", next.Logging.Level)
	}); err != nil {
		logger.GetLogger().Infof("Config hot reload disabled: %v", err)
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		logger.GetLogger().Fatalf("Failed to create server: %v", err)
	}

	// Setup graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			serverErr <- err
		}
	}()

	select {
	case sig := <-sigCh:
		logger.GetLogger().Infof("Received signal: %v", sig)
	case err := <-serverErr:
		logger.GetLogger().Errorf("Server error: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		logger.GetLogger().Errorf("Failed to stop server gracefully: %v", err)
		os.Exit(1)
	}

	logger.GetLogger().Info("Tabular agent gRPC server stopped successfully")
}
