package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/lp-hedger/internal/bot"
	"github.com/rovshanmuradov/lp-hedger/internal/config"
	"github.com/rovshanmuradov/lp-hedger/internal/logger"
	"github.com/rovshanmuradov/lp-hedger/internal/ui"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	flag.Parse()

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Nothing may write to stdout while the dashboard owns the terminal;
	// all logging goes through the ring buffer the log pane tails.
	buffer, err := logger.NewLogBuffer(1000, "logs/tui-spill.log", zap.NewNop())
	if err != nil {
		log.Fatalf("Failed to init log buffer: %v", err)
	}

	appLogger, err := logger.CreateTUILoggerWithBuffer(cfg.DebugLogging, buffer)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	appLogger.Info("🚀 Starting LP hedger dashboard", zap.String("config_hash", cfg.Hash()))

	service, err := bot.NewService(rootCtx, &bot.ServiceConfig{Config: cfg, Logger: appLogger})
	if err != nil {
		log.Fatalf("Failed to build hedger service: %v", err)
	}

	if _, err := service.Start(); err != nil {
		log.Fatalf("Failed to start hedger: %v", err)
	}

	program := tea.NewProgram(
		ui.NewSafeModel(ui.NewDashboard(service, buffer), appLogger),
		tea.WithAltScreen(),
	)

	done := make(chan error, 1)
	go func() {
		_, runErr := program.Run()
		done <- runErr
	}()

	select {
	case <-rootCtx.Done():
		appLogger.Info("📡 Signal received, closing dashboard")
		program.Quit()
		<-done
	case runErr := <-done:
		if runErr != nil {
			appLogger.Error("💥 Dashboard failed", zap.Error(runErr))
		}
	}

	// The buffer registers before the service so the LIFO shutdown stops
	// the bot while its logger still has somewhere to write.
	shutdown := bot.NewShutdownHandler(appLogger, 30*time.Second)
	shutdown.AddFunc("log_buffer", buffer.Close)
	shutdown.Add("bot_service", service)
	if err := shutdown.ShutdownAll(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
