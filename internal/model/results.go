package model

import "time"

// Summary holds the headline counts of a built model.
type Summary struct {
	TotalSeries  int    `json:"total_series"`
	BottomSeries int    `json:"bottom_series"`
	Periods      int    `json:"periods"`
	Frequency    string `json:"frequency"`
	InputRows    int    `json:"input_rows"`
}

// ExportResult represents the outcome of one export operation.
type ExportResult struct {
	Type        string    `json:"type"` // "matrix", "series"
	Format      string    `json:"format"`
	Path        string    `json:"path"`
	RecordCount int       `json:"record_count"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
	ExportedAt  time.Time `json:"exported_at"`
}
