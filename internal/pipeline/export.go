package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"go-hts-pipeline/internal/hts"
	"go-hts-pipeline/internal/model"
	"go-hts-pipeline/pkg/utils"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// ExportArtifacts writes the summation matrix and the aggregated series to
// files in the requested formats under the job's output directory.
func ExportArtifacts(
	jobID string,
	spec *hts.HierarchySpec,
	matrix *hts.SummationMatrix,
	records []hts.AggregatedRecord,
	export *model.Export,
	outputDir string,
) []model.ExportResult {
	if export == nil || len(export.Formats) == 0 {
		return nil
	}

	om := utils.NewOutputManager(outputDir)
	var results []model.ExportResult

	for _, format := range export.Formats {
		switch format {
		case "csv":
			results = append(results, exportMatrixCSV(om, jobID, matrix))
			results = append(results, exportSeriesCSV(om, jobID, spec, records))
		case "json":
			results = append(results, exportJSON(om, jobID, "matrix", "summation_matrix.json", matrix, matrix.Rows))
			results = append(results, exportJSON(om, jobID, "series", "aggregated_series.json", records, len(records)))
		default:
			results = append(results, model.ExportResult{
				Type:       "unknown",
				Format:     format,
				Success:    false,
				Error:      fmt.Sprintf("unsupported export format: %s", format),
				ExportedAt: time.Now(),
			})
		}
	}

	for _, r := range results {
		if r.Success {
			log.Info().Str("type", r.Type).Str("format", r.Format).Str("path", r.Path).
				Int("records", r.RecordCount).Msg("export completed")
		} else {
			log.Error().Str("type", r.Type).Str("format", r.Format).Str("error", r.Error).
				Msg("export failed")
		}
	}
	return results
}

func exportMatrixCSV(om *utils.OutputManager, jobID string, matrix *hts.SummationMatrix) model.ExportResult {
	result := model.ExportResult{Type: "matrix", Format: "csv", ExportedAt: time.Now()}

	path, err := om.FilePath(jobID, "summation_matrix.csv")
	if err != nil {
		result.Error = err.Error()
		return result
	}
	file, err := os.Create(path)
	if err != nil {
		result.Error = fmt.Sprintf("failed to create file: %v", err)
		return result
	}
	defer file.Close()

	w := csv.NewWriter(file)
	header := append([]string{"series"}, matrix.ColLabels...)
	if err := w.Write(header); err != nil {
		result.Error = err.Error()
		return result
	}
	for i := 0; i < matrix.Rows; i++ {
		row := make([]string, 1+matrix.Cols)
		row[0] = matrix.RowLabels[i]
		for j := 0; j < matrix.Cols; j++ {
			row[1+j] = strconv.Itoa(int(matrix.At(i, j)))
		}
		if err := w.Write(row); err != nil {
			result.Error = err.Error()
			return result
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		result.Error = err.Error()
		return result
	}

	result.Path = path
	result.RecordCount = matrix.Rows
	result.Success = true
	return result
}

func exportSeriesCSV(om *utils.OutputManager, jobID string, spec *hts.HierarchySpec, records []hts.AggregatedRecord) model.ExportResult {
	result := model.ExportResult{Type: "series", Format: "csv", ExportedAt: time.Now()}

	path, err := om.FilePath(jobID, "aggregated_series.csv")
	if err != nil {
		result.Error = err.Error()
		return result
	}
	file, err := os.Create(path)
	if err != nil {
		result.Error = fmt.Sprintf("failed to create file: %v", err)
		return result
	}
	defer file.Close()

	columns := spec.Columns()
	w := csv.NewWriter(file)
	header := append(append([]string{}, columns...), "period", "value")
	if err := w.Write(header); err != nil {
		result.Error = err.Error()
		return result
	}
	for _, rec := range records {
		row := make([]string, 0, len(columns)+2)
		for _, col := range columns {
			row = append(row, rec.Categories[col])
		}
		row = append(row, rec.Period, strconv.FormatFloat(rec.Value, 'f', -1, 64))
		if err := w.Write(row); err != nil {
			result.Error = err.Error()
			return result
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		result.Error = err.Error()
		return result
	}

	result.Path = path
	result.RecordCount = len(records)
	result.Success = true
	return result
}

func exportJSON(om *utils.OutputManager, jobID, exportType, fileName string, payload interface{}, count int) model.ExportResult {
	result := model.ExportResult{Type: exportType, Format: "json", ExportedAt: time.Now()}

	path, err := om.FilePath(jobID, fileName)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	file, err := os.Create(path)
	if err != nil {
		result.Error = fmt.Sprintf("failed to create file: %v", err)
		return result
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		result.Error = fmt.Sprintf("failed to encode JSON: %v", err)
		return result
	}

	result.Path = path
	result.RecordCount = count
	result.Success = true
	return result
}
