package main

import (
	"go-hts-pipeline/internal/api"
	"go-hts-pipeline/internal/api/handler"
	"go-hts-pipeline/internal/config"
	"go-hts-pipeline/internal/store"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// @title HTS Pipeline API
// @version 1.0
// @description Build hierarchical and grouped time series models from panel data.
// @BasePath /api/v1
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	setupLogging(cfg)

	if err := store.InitDB(cfg.DBPath); err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("failed to initialize database")
	}

	handler.SetOutputDir(cfg.OutputDir)

	r := api.NewRouter()
	if err := r.Start(cfg.Addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if !cfg.LogJSON {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
