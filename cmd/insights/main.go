package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/duyhung112/crypto-insights/internal/common"
	"github.com/duyhung112/crypto-insights/internal/config"
	"github.com/duyhung112/crypto-insights/internal/exchanges"
	"github.com/duyhung112/crypto-insights/internal/monitor"
	"github.com/duyhung112/crypto-insights/internal/news"
	"github.com/duyhung112/crypto-insights/internal/notify"
	"github.com/duyhung112/crypto-insights/internal/server"
	"github.com/duyhung112/crypto-insights/internal/service"
	"github.com/duyhung112/crypto-insights/internal/ticker"
	"github.com/duyhung112/crypto-insights/internal/util"
)

func main() {
	configPath := flag.String("config", common.DefaultConfigPath, "Path to config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	// Set global log level from config
	switch cfg.LogLevel {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		log.Fatal().Str("log_level", cfg.LogLevel).Msg("Invalid log level in config, use: debug, info, warn, error")
	}

	// Configure logger
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	logger := util.NewLogger("main")

	registry := exchanges.NewRegistry(cfg)
	svc := service.NewService(cfg, registry, news.NewProvider())
	dispatcher := notify.NewDiscord(cfg.Notify)
	scheduler := monitor.NewScheduler(svc, dispatcher, cfg.GetMonitorInterval())

	stream := ticker.NewStream(cfg.Ticker)
	scheduler.SetPriceSource(stream.Latest)

	rootCtx, stop := context.WithCancel(context.Background())
	go stream.Run(rootCtx)

	srv := server.New(cfg, svc, scheduler, stream)
	httpServer := &http.Server{
		Addr:    srv.Addr(),
		Handler: srv.Router(),
	}

	go func() {
		logger.Info("Starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(err, common.ErrCodeHTTPServeFailed, common.ErrMsgHTTPServeFailed, "HTTP serve failed")
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("Shutting down server...")
	stop()
	scheduler.StopAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error(err, common.ErrCodeHTTPServeFailed, common.ErrMsgHTTPServeFailed, "HTTP shutdown failed")
	}
	logger.Info("Server stopped gracefully")
}
