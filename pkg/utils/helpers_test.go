package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseValue(t *testing.T) {
	assert.Equal(t, 42, ParseValue("42"))
	assert.Equal(t, 3.5, ParseValue(" 3.5 "))
	assert.Equal(t, "Rio de Janeiro", ParseValue("Rio de Janeiro"))
	assert.Equal(t, "2024 Q1", ParseValue("2024 Q1"))
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 30*time.Second, ParseDuration("30s"))
	assert.Equal(t, 5*time.Minute, ParseDuration(""))
	assert.Equal(t, 5*time.Minute, ParseDuration("bogus"))
}

func TestOutputManager(t *testing.T) {
	om := NewOutputManager(t.TempDir())

	path, err := om.FilePath("job-1", "../escape.csv")
	assert.NoError(t, err)
	assert.Contains(t, path, "job-1")
	assert.NotContains(t, path, "..")

	assert.Equal(t, "/api/v1/download/job-1/out.csv", om.DownloadURL("job-1", "out.csv"))
	assert.Equal(t, "csv", om.FileType("out.csv"))
	assert.Equal(t, "json", om.FileType("out.JSON"))
	assert.Equal(t, "unknown", om.FileType("out.bin"))
}
