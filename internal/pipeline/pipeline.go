package pipeline

import (
	"context"
	"fmt"
	"go-hts-pipeline/internal/hts"
	"go-hts-pipeline/internal/model"
	"go-hts-pipeline/internal/store"
	"go-hts-pipeline/pkg/utils"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Run executes one model build end to end: ingest the sources, validate the
// records against the declared structure, build the hierarchy model, persist
// the summary, summation matrix and aggregated series, and export files.
func Run(ctx context.Context, jobID string, job model.BuildJobSpec, outputDir string) (err error) {
	start := time.Now()
	log.Info().Str("job_id", jobID).Msg("starting model build")

	store.UpdateJobStatus(jobID, "running")

	defer func() {
		if err != nil {
			store.UpdateJobStatus(jobID, "failed")
			store.SaveJobError(jobID, err)
			log.Error().Str("job_id", jobID).Err(err).Msg("model build failed")
		}
	}()

	timeout := utils.ParseDuration(job.Concurrency.JobTimeout)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	bufSize := job.Concurrency.ChannelBufferSize
	if bufSize <= 0 {
		bufSize = 100
	}
	recordsCh := make(chan hts.Record, bufSize)
	validatedCh := make(chan hts.Record, bufSize)
	errorCh := make(chan error, bufSize)

	// --- ERROR COLLECTOR ---
	// Any ingestion or validation error fails the whole build. The model
	// never sees a partial panel.
	var stageErrs []error
	collectorDone := make(chan struct{})
	go func() {
		defer close(collectorDone)
		for e := range errorCh {
			log.Error().Str("job_id", jobID).Err(e).Msg("stage error")
			store.SaveJobError(jobID, e)
			stageErrs = append(stageErrs, e)
		}
	}()

	var wg sync.WaitGroup

	// --- INGESTION STAGE ---
	wg.Add(1)
	go func() {
		defer wg.Done()
		startTime := time.Now()
		store.UpdateJobStatus(jobID, "ingesting")
		store.SaveStageProgress(jobID, "ingestion", "started", &startTime, nil, 0)
		store.SaveBuildLog(jobID, "ingestion", "info", "Starting ingestion stage", map[string]interface{}{
			"sources_count": len(job.Sources),
			"inline_rows":   len(job.Rows),
		})

		StartIngestion(ctx, job.Sources, job.Rows, job.Structure.ValueColumn, recordsCh, errorCh)
		close(recordsCh) // only this goroutine closes recordsCh

		endTime := time.Now()
		store.SaveStageProgress(jobID, "ingestion", "completed", &startTime, &endTime, 0)
	}()

	// --- VALIDATION STAGE ---
	wg.Add(1)
	go func() {
		defer wg.Done()
		store.UpdateJobStatus(jobID, "validating")

		numWorkers := job.Concurrency.Workers.Validation
		if numWorkers == 0 {
			numWorkers = 3
		}

		ValidateRecords(ctx, job.Structure, recordsCh, validatedCh, errorCh, numWorkers)
	}()

	// --- COLLECT STAGE ---
	// The model builder needs the full panel at once; drain the validated
	// channel into a slice.
	var rows []hts.Record
	wg.Add(1)
	go func() {
		defer wg.Done()
		for rec := range validatedCh {
			rows = append(rows, rec)
		}
	}()

	wg.Wait()
	close(errorCh)
	<-collectorDone

	if len(stageErrs) > 0 {
		return fmt.Errorf("build aborted: %d record(s) failed ingestion or validation, first: %w",
			len(stageErrs), stageErrs[0])
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("build cancelled: %w", err)
	}

	// --- AGGREGATION STAGE ---
	aggStart := time.Now()
	store.UpdateJobStatus(jobID, "aggregating")
	store.SaveStageProgress(jobID, "aggregation", "started", &aggStart, nil, len(rows))

	spec, err := hts.NewHierarchySpec(job.Structure.Hierarchy, job.Structure.Groups)
	if err != nil {
		return err
	}
	opts := hts.Options{
		Separator: job.Structure.Separator,
		Workers:   job.Concurrency.Workers.Aggregation,
	}
	if job.Structure.GroupCrossing == "full" {
		opts.GroupCrossing = hts.CrossFull
	}

	m, err := hts.Build(rows, spec, job.Structure.TimeColumn, job.Structure.ValueColumn, opts)
	if err != nil {
		return err
	}

	matrix := m.SummationMatrix()
	records := m.AggregatedSeries()

	aggEnd := time.Now()
	store.SaveStageProgress(jobID, "aggregation", "completed", &aggStart, &aggEnd, len(records))
	store.SaveBuildLog(jobID, "aggregation", "info", "Model built", map[string]interface{}{
		"total_series":  m.NSeries(),
		"bottom_series": m.NBottom(),
		"periods":       m.NPeriods(),
		"frequency":     m.Index.Frequency().String(),
		"duration_ms":   aggEnd.Sub(aggStart).Milliseconds(),
	})

	// --- PERSIST STAGE ---
	summary := model.Summary{
		TotalSeries:  m.NSeries(),
		BottomSeries: m.NBottom(),
		Periods:      m.NPeriods(),
		Frequency:    m.Index.Frequency().String(),
		InputRows:    len(rows),
	}
	if err := store.SaveSummary(jobID, summary); err != nil {
		return fmt.Errorf("failed to save summary: %w", err)
	}
	if job.Export == nil || job.Export.DB {
		if err := store.SaveMatrix(jobID, matrix); err != nil {
			return fmt.Errorf("failed to save summation matrix: %w", err)
		}
		if err := store.SaveAggregatedSeries(jobID, records); err != nil {
			return fmt.Errorf("failed to save aggregated series: %w", err)
		}
	}

	// --- EXPORT STAGE ---
	if job.Export != nil && len(job.Export.Formats) > 0 {
		store.UpdateJobStatus(jobID, "exporting")
		exportStart := time.Now()
		results := ExportArtifacts(jobID, spec, matrix, records, job.Export, outputDir)
		for _, r := range results {
			if !r.Success {
				return fmt.Errorf("export failed (%s/%s): %s", r.Type, r.Format, r.Error)
			}
		}
		exportEnd := time.Now()
		store.SaveStageProgress(jobID, "export", "completed", &exportStart, &exportEnd, len(results))
	}

	store.UpdateJobStatus(jobID, "completed")
	log.Info().Str("job_id", jobID).Dur("duration", time.Since(start)).Msg("model build completed")
	return nil
}
