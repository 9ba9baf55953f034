// ====================================
// File: cmd/hedger/main.go
// ====================================
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/lp-hedger/internal/bot"
	"github.com/rovshanmuradov/lp-hedger/internal/config"
	"github.com/rovshanmuradov/lp-hedger/internal/logger"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.CreatePrettyLogger(cfg.DebugLogging)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	appLogger.Info("Starting LP delta hedger",
		zap.String("mode", cfg.DataSource),
		zap.String("config_hash", cfg.Hash()))

	runner := bot.NewRunner(cfg, appLogger)
	if err := runner.Run(context.Background()); err != nil {
		appLogger.Error("💥 Hedger exited with error", zap.Error(err))
		runner.Shutdown()
		os.Exit(1)
	}

	runner.Shutdown()
}
