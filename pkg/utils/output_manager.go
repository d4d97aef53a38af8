package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// OutputManager organizes per-job export files under a base directory.
type OutputManager struct {
	BaseOutputDir string
}

func NewOutputManager(baseOutputDir string) *OutputManager {
	return &OutputManager{BaseOutputDir: baseOutputDir}
}

// JobDir creates (if needed) and returns the output directory of a job.
func (om *OutputManager) JobDir(jobID string) (string, error) {
	dir := filepath.Join(om.BaseOutputDir, jobID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create job output directory: %w", err)
	}
	return dir, nil
}

// FilePath returns the full path for one output file of a job. Path
// separators in the file name are stripped.
func (om *OutputManager) FilePath(jobID, fileName string) (string, error) {
	dir, err := om.JobDir(jobID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, filepath.Base(fileName)), nil
}

// DownloadURL returns the API download URL for one exported file.
func (om *OutputManager) DownloadURL(jobID, fileName string) string {
	return fmt.Sprintf("/api/v1/download/%s/%s", jobID, filepath.Base(fileName))
}

// FileType derives a coarse type from the file extension.
func (om *OutputManager) FileType(fileName string) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv":
		return "csv"
	case ".json":
		return "json"
	case ".txt":
		return "text"
	default:
		return "unknown"
	}
}
