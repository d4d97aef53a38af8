package pipeline

import (
	"context"
	"fmt"
	"go-hts-pipeline/internal/hts"
	"go-hts-pipeline/internal/model"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// ValidateRecords checks each ingested record against the declared structure
// before it reaches the model builder: every hierarchy and group column must
// carry a non-empty, separator-free string, and the value column must be
// numeric. Valid records are forwarded; invalid ones are reported on errs.
func ValidateRecords(
	ctx context.Context,
	structure model.Structure,
	in <-chan hts.Record,
	out chan<- hts.Record,
	errs chan<- error,
	workerCount int,
) {
	separator := structure.Separator
	if separator == "" {
		separator = hts.DefaultSeparator
	}
	categories := make([]string, 0, len(structure.Hierarchy)+len(structure.Groups))
	categories = append(categories, structure.Hierarchy...)
	categories = append(categories, structure.Groups...)

	var wg sync.WaitGroup
	wg.Add(workerCount)

	var validCount, invalidCount int64
	var mu sync.Mutex

	for i := 0; i < workerCount; i++ {
		go func(workerID int) {
			defer wg.Done()
			workerValid := 0
			workerInvalid := 0

			for rec := range in {
				select {
				case <-ctx.Done():
					return
				default:
					if err := validateRecord(rec, categories, structure, separator); err != nil {
						workerInvalid++
						errs <- err
					} else {
						out <- rec
						workerValid++
					}
				}
			}

			mu.Lock()
			validCount += int64(workerValid)
			invalidCount += int64(workerInvalid)
			mu.Unlock()
		}(i)
	}

	go func() {
		wg.Wait()
		mu.Lock()
		log.Info().Int64("valid", validCount).Int64("invalid", invalidCount).Msg("validation summary")
		mu.Unlock()
		close(out)
	}()
}

func validateRecord(rec hts.Record, categories []string, structure model.Structure, separator string) error {
	for _, col := range categories {
		raw, ok := rec[col]
		if !ok || raw == nil {
			return fmt.Errorf("missing category column %q", col)
		}
		// Numeric region/sector codes are legal; coerce the way the engine
		// does rather than requiring strings.
		s := hts.FormatValue(raw)
		if s == "" {
			return fmt.Errorf("category column %q is empty", col)
		}
		if strings.Contains(s, separator) {
			return fmt.Errorf("category column %q contains separator %q: %s", col, separator, s)
		}
	}

	raw, ok := rec[structure.TimeColumn]
	if !ok || raw == nil {
		return fmt.Errorf("missing time column %q", structure.TimeColumn)
	}

	val, ok := rec[structure.ValueColumn]
	if !ok || val == nil {
		return fmt.Errorf("missing value column %q", structure.ValueColumn)
	}
	switch v := val.(type) {
	case float64, float32, int, int32, int64:
		// ok
	case string:
		if _, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err != nil {
			return fmt.Errorf("value column %q is not numeric: %q", structure.ValueColumn, v)
		}
	default:
		return fmt.Errorf("value column %q must be numeric, got %T", structure.ValueColumn, val)
	}

	return nil
}
