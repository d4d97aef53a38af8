package pipeline

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"go-hts-pipeline/internal/hts"
	"go-hts-pipeline/internal/model"
	"go-hts-pipeline/pkg/utils"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// IngestSource starts ingestion for a single source (CSV/JSON/API). valueCol
// names the one CSV column coerced to a number; every other cell stays a raw
// string so zero-padded category codes like "01" keep their label.
func IngestSource(ctx context.Context, source model.Source, valueCol string, out chan<- hts.Record, errs chan<- error) {
	log.Info().Str("url", source.URL).Str("type", source.Type).Msg("starting ingestion for source")
	defer log.Info().Str("url", source.URL).Str("type", source.Type).Msg("finished ingestion for source")

	switch strings.ToLower(source.Type) {
	case "", "csv":
		ingestCSV(ctx, source.URL, valueCol, out, errs)
	case "json", "api":
		ingestJSON(ctx, source.URL, out, errs)
	default:
		errs <- fmt.Errorf("unknown source type: %s", source.Type)
	}
}

// StartIngestion ingests all sources in parallel plus any inline rows, fanning
// everything into a single record channel.
func StartIngestion(ctx context.Context, sources []model.Source, rows []map[string]any, valueCol string, out chan<- hts.Record, errs chan<- error) {
	var wg sync.WaitGroup

	for _, src := range sources {
		wg.Add(1)
		go func(s model.Source) {
			defer wg.Done()
			IngestSource(ctx, s, valueCol, out, errs)
		}(src)
	}

	// On cancellation the source goroutines may still be sending; never
	// return while they are live, the caller closes out right after.
	for _, row := range rows {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		case out <- hts.Record(row):
		}
	}

	wg.Wait()
}

func ingestCSV(ctx context.Context, pathOrURL, valueCol string, out chan<- hts.Record, errs chan<- error) {
	var reader io.Reader
	if strings.HasPrefix(pathOrURL, "http") {
		resp, err := http.Get(pathOrURL)
		if err != nil {
			errs <- fmt.Errorf("failed to GET CSV: %w", err)
			return
		}
		defer resp.Body.Close()
		reader = resp.Body
	} else {
		file, err := os.Open(pathOrURL)
		if err != nil {
			errs <- fmt.Errorf("failed to open CSV file: %w", err)
			return
		}
		defer file.Close()
		reader = file
	}

	csvReader := csv.NewReader(reader)
	csvReader.LazyQuotes = true
	headers, err := csvReader.Read()
	if err != nil {
		errs <- fmt.Errorf("failed to read CSV header: %w", err)
		return
	}
	for i, h := range headers {
		h = strings.TrimSpace(h)
		h = strings.ReplaceAll(h, `"`, "")
		headers[i] = h
	}

	recordCount := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
			row, err := csvReader.Read()
			if err == io.EOF {
				log.Info().Int("records", recordCount).Str("url", pathOrURL).Msg("CSV ingestion done")
				return
			} else if err != nil {
				errs <- fmt.Errorf("CSV read error: %w", err)
				continue
			}

			rec := make(hts.Record, len(headers))
			for i, h := range headers {
				if i >= len(row) {
					continue
				}
				if h == valueCol {
					rec[h] = utils.ParseValue(row[i])
				} else {
					rec[h] = strings.TrimSpace(row[i])
				}
			}

			select {
			case <-ctx.Done():
				return
			case out <- rec:
				recordCount++
			}
		}
	}
}

func ingestJSON(ctx context.Context, url string, out chan<- hts.Record, errs chan<- error) {
	var reader io.Reader
	if strings.HasPrefix(url, "http") {
		resp, err := http.Get(url)
		if err != nil {
			errs <- fmt.Errorf("failed to GET JSON: %w", err)
			return
		}
		defer resp.Body.Close()
		reader = resp.Body
	} else {
		file, err := os.Open(url)
		if err != nil {
			errs <- fmt.Errorf("failed to open JSON file: %w", err)
			return
		}
		defer file.Close()
		reader = file
	}

	bodyBytes, err := io.ReadAll(reader)
	if err != nil {
		errs <- fmt.Errorf("failed to read JSON body: %w", err)
		return
	}

	var raw interface{}
	if err := json.Unmarshal(bodyBytes, &raw); err != nil {
		errs <- fmt.Errorf("failed to decode JSON: %w", err)
		return
	}

	recordCount := 0
	switch data := raw.(type) {
	case []interface{}:
		for _, item := range data {
			m, ok := item.(map[string]interface{})
			if !ok {
				errs <- fmt.Errorf("unexpected JSON array element: %T", item)
				continue
			}
			select {
			case <-ctx.Done():
				return
			case out <- hts.Record(m):
				recordCount++
			}
		}
	case map[string]interface{}:
		select {
		case <-ctx.Done():
			return
		case out <- hts.Record(data):
			recordCount++
		}
	default:
		errs <- fmt.Errorf("unexpected JSON structure")
		return
	}

	log.Info().Int("records", recordCount).Str("url", url).Msg("JSON ingestion done")
}
