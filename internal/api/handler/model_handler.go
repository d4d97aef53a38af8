package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"go-hts-pipeline/internal/model"
	"go-hts-pipeline/internal/pipeline"
	"go-hts-pipeline/internal/store"
	"go-hts-pipeline/pkg/utils"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

var outputDir = "outputs"

// SetOutputDir sets the base directory for export files and downloads.
func SetOutputDir(dir string) {
	if dir != "" {
		outputDir = dir
	}
}

// CreateModel creates and starts a new model build job
// @Summary Create a new model
// @Description Build a hierarchical/grouped time series model from the provided sources and structure
// @Tags models
// @Accept json
// @Produce json
// @Param model body model.BuildJobSpec true "Build job configuration"
// @Success 200 {object} map[string]interface{} "Model build started"
// @Failure 400 {object} map[string]interface{} "Invalid request payload"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /models [post]
func CreateModel(w http.ResponseWriter, r *http.Request) {
	var job model.BuildJobSpec
	if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	if err := validate.Struct(job); err != nil {
		http.Error(w, fmt.Sprintf("Invalid build job: %v", err), http.StatusBadRequest)
		return
	}
	if len(job.Sources) == 0 && len(job.Rows) == 0 {
		http.Error(w, "At least one source or inline rows are required", http.StatusBadRequest)
		return
	}
	if len(job.Structure.Hierarchy) == 0 && len(job.Structure.Groups) == 0 {
		http.Error(w, "Structure must declare at least one hierarchy or group column", http.StatusBadRequest)
		return
	}

	jobID := uuid.New().String()

	if err := store.SaveJob(jobID, job); err != nil {
		http.Error(w, "Failed to save job", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), utils.ParseDuration(job.Concurrency.JobTimeout))
	go func() {
		defer cancel()
		pipeline.Run(ctx, jobID, job, outputDir)
	}()

	resp := map[string]interface{}{
		"message":   "Model build started",
		"jobID":     jobID,
		"status":    "pending",
		"createdAt": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// ListModels retrieves all model build jobs
// @Summary List all models
// @Description Get a list of all model build jobs with their current status
// @Tags models
// @Accept json
// @Produce json
// @Success 200 {array} map[string]interface{} "List of models"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /models [get]
func ListModels(w http.ResponseWriter, r *http.Request) {
	jobs, err := store.ListJobs()
	if err != nil {
		http.Error(w, "Failed to fetch models", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(jobs)
}

// GetModel retrieves a specific model build job
// @Summary Get model
// @Description Retrieve details and summary of a specific model build job
// @Tags models
// @Accept json
// @Produce json
// @Param id path string true "Model ID"
// @Success 200 {object} map[string]interface{} "Model details"
// @Failure 404 {object} map[string]interface{} "Model not found"
// @Router /models/{id} [get]
func GetModel(w http.ResponseWriter, r *http.Request) {
	jobID, ok := jobIDFromPath(w, r, "")
	if !ok {
		return
	}

	job, err := store.GetJob(jobID)
	if err != nil {
		http.Error(w, "Model not found", http.StatusNotFound)
		return
	}

	resp := map[string]interface{}{
		"id":        job.ID,
		"spec":      job.Spec,
		"status":    job.Status,
		"createdAt": job.CreatedAt,
		"updatedAt": job.UpdatedAt,
	}
	if summary, err := store.GetSummary(jobID); err == nil {
		resp["summary"] = summary
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// GetModelMatrix retrieves the summation matrix of a built model
// @Summary Get summation matrix
// @Description Retrieve the labelled 0/1 summation matrix of a built model
// @Tags models
// @Accept json
// @Produce json
// @Param id path string true "Model ID"
// @Success 200 {object} map[string]interface{} "Summation matrix"
// @Failure 404 {object} map[string]interface{} "Matrix not found"
// @Router /models/{id}/matrix [get]
func GetModelMatrix(w http.ResponseWriter, r *http.Request) {
	jobID, ok := jobIDFromPath(w, r, "/matrix")
	if !ok {
		return
	}

	matrix, err := store.GetMatrix(jobID)
	if err != nil {
		http.Error(w, "Matrix not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"job_id": jobID,
		"matrix": matrix,
	})
}

// GetModelSeries retrieves the aggregated series of a built model
// @Summary Get aggregated series
// @Description Retrieve the long-form aggregated series of a built model
// @Tags models
// @Accept json
// @Produce json
// @Param id path string true "Model ID"
// @Success 200 {object} map[string]interface{} "Aggregated series"
// @Failure 404 {object} map[string]interface{} "Series not found"
// @Router /models/{id}/series [get]
func GetModelSeries(w http.ResponseWriter, r *http.Request) {
	jobID, ok := jobIDFromPath(w, r, "/series")
	if !ok {
		return
	}

	records, err := store.GetAggregatedSeries(jobID)
	if err != nil {
		http.Error(w, "Series not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"job_id":  jobID,
		"records": records,
		"count":   len(records),
	})
}

// GetModelSummary retrieves the headline counts of a built model
// @Summary Get model summary
// @Description Retrieve series, period and frequency counts of a built model
// @Tags models
// @Accept json
// @Produce json
// @Param id path string true "Model ID"
// @Success 200 {object} model.Summary "Model summary"
// @Failure 404 {object} map[string]interface{} "Summary not found"
// @Router /models/{id}/summary [get]
func GetModelSummary(w http.ResponseWriter, r *http.Request) {
	jobID, ok := jobIDFromPath(w, r, "/summary")
	if !ok {
		return
	}

	summary, err := store.GetSummary(jobID)
	if err != nil {
		http.Error(w, "Summary not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

// GetModelErrors retrieves errors of a model build
// @Summary Get model errors
// @Description Retrieve all errors recorded during a model build
// @Tags models
// @Accept json
// @Produce json
// @Param id path string true "Model ID"
// @Success 200 {object} map[string]interface{} "Model errors"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /models/{id}/errors [get]
func GetModelErrors(w http.ResponseWriter, r *http.Request) {
	jobID, ok := jobIDFromPath(w, r, "/errors")
	if !ok {
		return
	}

	errors, err := store.GetJobErrors(jobID)
	if err != nil {
		http.Error(w, "Failed to retrieve errors", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"job_id": jobID,
		"errors": errors,
		"count":  len(errors),
	})
}

// GetModelLogs retrieves build logs of a model
// @Summary Get model logs
// @Description Retrieve the stage logs recorded during a model build
// @Tags models
// @Accept json
// @Produce json
// @Param id path string true "Model ID"
// @Param limit query int false "Maximum number of log entries"
// @Success 200 {object} map[string]interface{} "Model logs"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /models/{id}/logs [get]
func GetModelLogs(w http.ResponseWriter, r *http.Request) {
	jobID, ok := jobIDFromPath(w, r, "/logs")
	if !ok {
		return
	}

	limit := 100
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 {
			limit = parsedLimit
		}
	}

	logs, err := store.GetBuildLogs(jobID, limit)
	if err != nil {
		http.Error(w, "Failed to retrieve logs", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"job_id": jobID,
		"logs":   logs,
		"count":  len(logs),
		"limit":  limit,
	})
}

// GetModelProgress retrieves per-stage progress of a model build
// @Summary Get model progress
// @Description Retrieve per-stage progress of a model build
// @Tags models
// @Accept json
// @Produce json
// @Param id path string true "Model ID"
// @Success 200 {object} map[string]interface{} "Stage progress"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /models/{id}/progress [get]
func GetModelProgress(w http.ResponseWriter, r *http.Request) {
	jobID, ok := jobIDFromPath(w, r, "/progress")
	if !ok {
		return
	}

	progress, err := store.GetStageProgress(jobID)
	if err != nil {
		http.Error(w, "Failed to retrieve progress", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"job_id":   jobID,
		"progress": progress,
		"count":    len(progress),
	})
}

// RebuildModel re-runs a model build with its stored configuration
// @Summary Rebuild model
// @Description Re-run a model build job with the same configuration
// @Tags models
// @Accept json
// @Produce json
// @Param id path string true "Model ID"
// @Success 200 {object} map[string]interface{} "Rebuild initiated"
// @Failure 404 {object} map[string]interface{} "Model not found"
// @Router /models/{id}/rebuild [post]
func RebuildModel(w http.ResponseWriter, r *http.Request) {
	jobID, ok := jobIDFromPath(w, r, "/rebuild")
	if !ok {
		return
	}

	job, err := store.GetJob(jobID)
	if err != nil {
		http.Error(w, "Model not found", http.StatusNotFound)
		return
	}

	store.UpdateJobStatus(jobID, "pending")

	ctx, cancel := context.WithTimeout(context.Background(), utils.ParseDuration(job.Spec.Concurrency.JobTimeout))
	go func() {
		defer cancel()
		pipeline.Run(ctx, jobID, job.Spec, outputDir)
	}()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Rebuild initiated",
		"job_id":  jobID,
		"status":  "pending",
	})
}

// DeleteModel deletes a model build job and its artifacts
// @Summary Delete model
// @Description Delete a model build job and all its stored data and export files
// @Tags models
// @Accept json
// @Produce json
// @Param id path string true "Model ID"
// @Success 200 {object} map[string]interface{} "Model deleted"
// @Failure 404 {object} map[string]interface{} "Model not found"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /models/{id} [delete]
func DeleteModel(w http.ResponseWriter, r *http.Request) {
	jobID, ok := jobIDFromPath(w, r, "")
	if !ok {
		return
	}

	if _, err := store.GetJob(jobID); err != nil {
		http.Error(w, "Model not found", http.StatusNotFound)
		return
	}

	jobDir := filepath.Join(outputDir, jobID)
	os.RemoveAll(jobDir)

	if err := store.DeleteJob(jobID); err != nil {
		http.Error(w, "Failed to delete model", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Model and all artifacts deleted",
		"job_id":  jobID,
	})
}

// DownloadFile serves an exported file for download
// @Summary Download file
// @Description Download an exported file of a model build job
// @Tags files
// @Produce application/octet-stream
// @Param jobID path string true "Model ID"
// @Param filename path string true "File name"
// @Success 200 {file} file "File download"
// @Failure 400 {object} map[string]interface{} "Invalid URL format"
// @Failure 404 {object} map[string]interface{} "File not found"
// @Router /download/{jobID}/{filename} [get]
func DownloadFile(w http.ResponseWriter, r *http.Request) {
	// URL format: /api/v1/download/jobID/filename
	pathParts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(pathParts) < 5 {
		http.Error(w, "Invalid URL format", http.StatusBadRequest)
		return
	}
	jobID := pathParts[3]
	fileName := filepath.Base(pathParts[4])

	filePath := filepath.Join(outputDir, jobID, fileName)
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.Header().Set("Content-Type", "application/octet-stream")
	http.ServeFile(w, r, filePath)
}

// jobIDFromPath extracts the job ID between the /api/v1/models/ prefix and
// the given suffix, writing an error response when the path is malformed.
func jobIDFromPath(w http.ResponseWriter, r *http.Request, suffix string) (string, bool) {
	path := r.URL.Path
	prefix := "/api/v1/models/"

	if !strings.HasPrefix(path, prefix) || !strings.HasSuffix(path, suffix) {
		http.Error(w, "Invalid path", http.StatusBadRequest)
		return "", false
	}

	jobID := path[len(prefix) : len(path)-len(suffix)]
	if jobID == "" || strings.Contains(jobID, "/") {
		http.Error(w, "Job ID is required", http.StatusBadRequest)
		return "", false
	}
	return jobID, true
}
