package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreateModelRejectsBadPayloads(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{not json`},
		{"no sources or rows", `{"structure":{"hierarchy":["region"],"timeColumn":"t","valueColumn":"v"}}`},
		{"no structure columns", `{"rows":[{"t":"2024","v":1}],"structure":{"timeColumn":"t","valueColumn":"v"}}`},
		{"missing time column", `{"rows":[{"t":"2024","v":1}],"structure":{"hierarchy":["region"],"valueColumn":"v"}}`},
		{"bad crossing mode", `{"rows":[{"t":"2024","v":1}],"structure":{"hierarchy":["region"],"timeColumn":"t","valueColumn":"v","groupCrossing":"diagonal"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/models", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			CreateModel(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestJobIDFromPath(t *testing.T) {
	extract := func(path, suffix string) (string, int) {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		id, ok := jobIDFromPath(rec, req, suffix)
		if !ok {
			return "", rec.Code
		}
		return id, rec.Code
	}

	id, _ := extract("/api/v1/models/abc-123/matrix", "/matrix")
	assert.Equal(t, "abc-123", id)

	id, _ = extract("/api/v1/models/abc-123", "")
	assert.Equal(t, "abc-123", id)

	_, code := extract("/api/v1/models//matrix", "/matrix")
	assert.Equal(t, http.StatusBadRequest, code)

	_, code = extract("/api/v1/models/abc/extra/matrix", "/matrix")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestDownloadFileRejectsMalformedPaths(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/download/only-job-id", nil)
	rec := httptest.NewRecorder()

	DownloadFile(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDownloadFileMissingFile(t *testing.T) {
	SetOutputDir(t.TempDir())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/download/job-1/nope.csv", nil)
	rec := httptest.NewRecorder()

	DownloadFile(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
