package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"go-hts-pipeline/internal/hts"
	"go-hts-pipeline/internal/model"
)

var db *sql.DB

// InitDB opens the sqlite database and creates the schema.
func InitDB(dbPath string) error {
	var err error
	db, err = sql.Open("sqlite3", dbPath)
	if err != nil {
		return err
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			spec TEXT,
			status TEXT,
			created_at DATETIME,
			updated_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS job_errors (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			job_id TEXT,
			error_message TEXT,
			created_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS model_summaries (
			job_id TEXT PRIMARY KEY,
			total_series INTEGER,
			bottom_series INTEGER,
			periods INTEGER,
			frequency TEXT,
			input_rows INTEGER,
			created_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS summation_matrices (
			job_id TEXT PRIMARY KEY,
			matrix TEXT,
			created_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS aggregated_series (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			job_id TEXT,
			categories TEXT,
			period TEXT,
			value REAL
		);`,
		`CREATE TABLE IF NOT EXISTS build_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			job_id TEXT,
			stage TEXT,
			level TEXT,
			message TEXT,
			details TEXT,
			created_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS stage_progress (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			job_id TEXT,
			stage TEXT,
			status TEXT,
			started_at DATETIME,
			ended_at DATETIME,
			record_count INTEGER
		);`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// SaveJob stores a new build job.
func SaveJob(jobID string, spec model.BuildJobSpec) error {
	specJSON, err := json.Marshal(spec)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err = db.Exec(`INSERT INTO jobs (id, spec, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		jobID, specJSON, "pending", now, now)
	return err
}

// GetJob fetches a job with its full spec.
func GetJob(jobID string) (*model.Job, error) {
	var specJSON string
	job := &model.Job{ID: jobID}
	err := db.QueryRow(`SELECT spec, status, created_at, updated_at FROM jobs WHERE id = ?`, jobID).
		Scan(&specJSON, &job.Status, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(specJSON), &job.Spec); err != nil {
		return nil, err
	}
	return job, nil
}

// ListJobs returns all jobs with basic info, newest first.
func ListJobs() ([]map[string]interface{}, error) {
	rows, err := db.Query(`SELECT id, status, created_at, updated_at FROM jobs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []map[string]interface{}
	for rows.Next() {
		var id, status string
		var createdAt, updatedAt time.Time
		if err := rows.Scan(&id, &status, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		jobs = append(jobs, map[string]interface{}{
			"id":        id,
			"status":    status,
			"createdAt": createdAt,
			"updatedAt": updatedAt,
		})
	}
	return jobs, rows.Err()
}

// UpdateJobStatus updates job status.
func UpdateJobStatus(jobID string, status string) error {
	now := time.Now().UTC()
	_, err := db.Exec(`UPDATE jobs SET status = ?, updated_at = ? WHERE id = ?`, status, now, jobID)
	return err
}

// SaveJobError records an error for a job.
func SaveJobError(jobID string, err error) error {
	if err == nil {
		return nil
	}
	now := time.Now().UTC()
	_, e := db.Exec(`INSERT INTO job_errors (job_id, error_message, created_at) VALUES (?, ?, ?)`,
		jobID, err.Error(), now)
	return e
}

// GetJobErrors returns all recorded errors for a job, oldest first.
func GetJobErrors(jobID string) ([]map[string]interface{}, error) {
	rows, err := db.Query(`SELECT error_message, created_at FROM job_errors WHERE job_id = ? ORDER BY id`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []map[string]interface{}
	for rows.Next() {
		var msg string
		var createdAt time.Time
		if err := rows.Scan(&msg, &createdAt); err != nil {
			return nil, err
		}
		out = append(out, map[string]interface{}{"error": msg, "createdAt": createdAt})
	}
	return out, rows.Err()
}

// SaveSummary persists the headline counts of a built model.
func SaveSummary(jobID string, s model.Summary) error {
	_, err := db.Exec(`INSERT OR REPLACE INTO model_summaries
		(job_id, total_series, bottom_series, periods, frequency, input_rows, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		jobID, s.TotalSeries, s.BottomSeries, s.Periods, s.Frequency, s.InputRows, time.Now().UTC())
	return err
}

// GetSummary fetches a model's summary counts.
func GetSummary(jobID string) (*model.Summary, error) {
	s := &model.Summary{}
	err := db.QueryRow(`SELECT total_series, bottom_series, periods, frequency, input_rows
		FROM model_summaries WHERE job_id = ?`, jobID).
		Scan(&s.TotalSeries, &s.BottomSeries, &s.Periods, &s.Frequency, &s.InputRows)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// SaveMatrix persists the summation matrix with its labels.
func SaveMatrix(jobID string, sm *hts.SummationMatrix) error {
	blob, err := json.Marshal(sm)
	if err != nil {
		return err
	}
	_, err = db.Exec(`INSERT OR REPLACE INTO summation_matrices (job_id, matrix, created_at) VALUES (?, ?, ?)`,
		jobID, blob, time.Now().UTC())
	return err
}

// GetMatrix fetches the persisted summation matrix of a job.
func GetMatrix(jobID string) (*hts.SummationMatrix, error) {
	var blob string
	if err := db.QueryRow(`SELECT matrix FROM summation_matrices WHERE job_id = ?`, jobID).Scan(&blob); err != nil {
		return nil, err
	}
	sm := &hts.SummationMatrix{}
	if err := json.Unmarshal([]byte(blob), sm); err != nil {
		return nil, err
	}
	return sm, nil
}

// SaveAggregatedSeries replaces the aggregated table of a job in one
// transaction, preserving record order.
func SaveAggregatedSeries(jobID string, records []hts.AggregatedRecord) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM aggregated_series WHERE job_id = ?`, jobID); err != nil {
		tx.Rollback()
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO aggregated_series (job_id, categories, period, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, rec := range records {
		categories, err := json.Marshal(rec.Categories)
		if err != nil {
			tx.Rollback()
			return err
		}
		if _, err := stmt.Exec(jobID, categories, rec.Period, rec.Value); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// GetAggregatedSeries returns the aggregated table of a job in insertion
// order.
func GetAggregatedSeries(jobID string) ([]hts.AggregatedRecord, error) {
	rows, err := db.Query(`SELECT categories, period, value FROM aggregated_series WHERE job_id = ? ORDER BY id`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []hts.AggregatedRecord
	for rows.Next() {
		var categories string
		rec := hts.AggregatedRecord{}
		if err := rows.Scan(&categories, &rec.Period, &rec.Value); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(categories), &rec.Categories); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SaveBuildLog records one structured log line for a job stage.
func SaveBuildLog(jobID, stage, level, message string, details map[string]interface{}) error {
	var detailsJSON []byte
	if details != nil {
		var err error
		detailsJSON, err = json.Marshal(details)
		if err != nil {
			return err
		}
	}
	_, err := db.Exec(`INSERT INTO build_logs (job_id, stage, level, message, details, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		jobID, stage, level, message, string(detailsJSON), time.Now().UTC())
	return err
}

// GetBuildLogs returns up to limit log lines for a job, oldest first.
func GetBuildLogs(jobID string, limit int) ([]map[string]interface{}, error) {
	rows, err := db.Query(`SELECT stage, level, message, details, created_at FROM build_logs
		WHERE job_id = ? ORDER BY id LIMIT ?`, jobID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []map[string]interface{}
	for rows.Next() {
		var stage, level, message, details string
		var createdAt time.Time
		if err := rows.Scan(&stage, &level, &message, &details, &createdAt); err != nil {
			return nil, err
		}
		entry := map[string]interface{}{
			"stage":     stage,
			"level":     level,
			"message":   message,
			"createdAt": createdAt,
		}
		if details != "" {
			var parsed map[string]interface{}
			if err := json.Unmarshal([]byte(details), &parsed); err == nil {
				entry["details"] = parsed
			}
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

// SaveStageProgress records the lifecycle of one pipeline stage.
func SaveStageProgress(jobID, stage, status string, startedAt, endedAt *time.Time, recordCount int) error {
	_, err := db.Exec(`INSERT INTO stage_progress (job_id, stage, status, started_at, ended_at, record_count)
		VALUES (?, ?, ?, ?, ?, ?)`,
		jobID, stage, status, startedAt, endedAt, recordCount)
	return err
}

// GetStageProgress returns stage progress entries for a job in order.
func GetStageProgress(jobID string) ([]map[string]interface{}, error) {
	rows, err := db.Query(`SELECT stage, status, started_at, ended_at, record_count FROM stage_progress
		WHERE job_id = ? ORDER BY id`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []map[string]interface{}
	for rows.Next() {
		var stage, status string
		var startedAt, endedAt sql.NullTime
		var recordCount int
		if err := rows.Scan(&stage, &status, &startedAt, &endedAt, &recordCount); err != nil {
			return nil, err
		}
		entry := map[string]interface{}{
			"stage":       stage,
			"status":      status,
			"recordCount": recordCount,
		}
		if startedAt.Valid {
			entry["startedAt"] = startedAt.Time
		}
		if endedAt.Valid {
			entry["endedAt"] = endedAt.Time
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

// DeleteJob removes a job and all its derived records.
func DeleteJob(jobID string) error {
	tables := map[string]string{
		"aggregated_series":  "job_id",
		"summation_matrices": "job_id",
		"model_summaries":    "job_id",
		"build_logs":         "job_id",
		"stage_progress":     "job_id",
		"job_errors":         "job_id",
		"jobs":               "id",
	}
	for table, col := range tables {
		if _, err := db.Exec(fmt.Sprintf(`DELETE FROM %s WHERE %s = ?`, table, col), jobID); err != nil {
			return err
		}
	}
	return nil
}
