package main

import (
	"context"
	"flag"
	"go-hts-pipeline/internal/config"
	"go-hts-pipeline/internal/model"
	"go-hts-pipeline/internal/pipeline"
	"go-hts-pipeline/internal/store"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Builds a model from a CSV panel and exports the summation matrix and
// aggregated series, e.g.:
//
//	hts -input panel.csv -hierarchy State,Region -groups Purpose \
//	    -time quarter -value value -formats csv,json
func main() {
	input := flag.String("input", "", "CSV file or URL with the bottom-level panel")
	hierarchy := flag.String("hierarchy", "", "comma-separated hierarchy columns, coarsest first")
	groups := flag.String("groups", "", "comma-separated group columns")
	timeCol := flag.String("time", "time", "time column name")
	valueCol := flag.String("value", "value", "value column name")
	separator := flag.String("separator", "", "label separator (default \"/\")")
	crossing := flag.String("crossing", "per-column", "group crossing: per-column or full")
	formats := flag.String("formats", "csv", "comma-separated export formats (csv, json)")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if *input == "" {
		log.Fatal().Msg("-input is required")
	}
	if *hierarchy == "" && *groups == "" {
		log.Fatal().Msg("at least one of -hierarchy or -groups is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if err := store.InitDB(cfg.DBPath); err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("failed to initialize database")
	}

	job := model.BuildJobSpec{
		Sources: []model.Source{{Type: "csv", URL: *input}},
		Structure: model.Structure{
			Hierarchy:     splitList(*hierarchy),
			Groups:        splitList(*groups),
			TimeColumn:    *timeCol,
			ValueColumn:   *valueCol,
			Separator:     *separator,
			GroupCrossing: *crossing,
		},
		Export: &model.Export{
			Formats: splitList(*formats),
			DB:      true,
		},
		Concurrency: model.Concurrency{
			Workers:    model.Workers{Aggregation: cfg.WorkerCount},
			JobTimeout: cfg.JobTimeout,
		},
	}

	jobID := uuid.New().String()
	if err := store.SaveJob(jobID, job); err != nil {
		log.Fatal().Err(err).Msg("failed to save job")
	}

	if err := pipeline.Run(context.Background(), jobID, job, cfg.OutputDir); err != nil {
		log.Fatal().Err(err).Str("job_id", jobID).Msg("build failed")
	}

	log.Info().Str("job_id", jobID).Str("output_dir", cfg.OutputDir).Msg("build succeeded")
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
