package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"supplierhub/internal/config"
	"supplierhub/internal/logging"
	"supplierhub/internal/server"
)

func main() {
	configPath := os.Getenv("CONFIG_FILE")
	if configPath == "" {
		configPath = "config.toml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	s, db, err := server.NewServer(ctx, cfg)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise server")
	}

	printBanner(cfg)

	bgCtx, stopBackground := context.WithCancel(context.Background())
	s.RunBackground(bgCtx)

	done := make(chan bool, 1)
	go s.GracefulShutdown(done)

	err = s.Start()
	if err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("HTTP server error")
	}

	<-done
	stopBackground()

	closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCancel()
	if err := db.Close(closeCtx); err != nil {
		log.Error().Err(err).Msg("Failed to disconnect from MongoDB")
	}

	printShutdownBanner()
	log.Info().Msg("Graceful shutdown complete.")
}
