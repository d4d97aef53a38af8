package model

import "time"

// Source is one bottom-level data source for a build job.
type Source struct {
	Type string `json:"type" validate:"omitempty,oneof=csv json api"` // csv, json, api
	URL  string `json:"url" validate:"required"`                      // file path or http(s) URL
}

// Structure declares how the bottom-level columns form the hierarchy and the
// groups, and which columns carry time and value.
type Structure struct {
	Hierarchy   []string `json:"hierarchy"`
	Groups      []string `json:"groups"`
	TimeColumn  string   `json:"timeColumn" validate:"required"`
	ValueColumn string   `json:"valueColumn" validate:"required"`
	// Separator joins path segments in labels; defaults to "/".
	Separator string `json:"separator,omitempty"`
	// GroupCrossing is "per-column" (default) or "full".
	GroupCrossing string `json:"groupCrossing,omitempty" validate:"omitempty,oneof=per-column full"`
}

// Export defines where build artifacts go besides the job store.
type Export struct {
	Formats []string `json:"formats"` // "csv", "json"
	DB      bool     `json:"db"`      // persist matrix and series to the job store
}

// Workers defines worker counts per stage.
type Workers struct {
	Ingest      int `json:"ingest"`
	Validation  int `json:"validation"`
	Aggregation int `json:"aggregation"`
}

// Concurrency defines worker and job options.
type Concurrency struct {
	Workers           Workers `json:"workers"`
	ChannelBufferSize int     `json:"channelBufferSize"`
	JobTimeout        string  `json:"jobTimeout"` // e.g., "5m"
}

// BuildJobSpec is the full configuration of one model build, as posted to
// POST /api/v1/models. Rows may be supplied inline, via Sources, or both.
type BuildJobSpec struct {
	Sources     []Source         `json:"sources" validate:"dive"`
	Rows        []map[string]any `json:"rows"`
	Structure   Structure        `json:"structure" validate:"required"`
	Export      *Export          `json:"export,omitempty"`
	Concurrency Concurrency      `json:"concurrency"`
}

// Job is one build job as persisted in the store.
type Job struct {
	ID        string       `json:"id"`
	Spec      BuildJobSpec `json:"spec"`
	Status    string       `json:"status"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}
