package ui

import (
	"encoding/json"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"

	"github.com/pii-scanner/pii-scanner/internal/core/models"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	orig := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	fn()

	require.NoError(t, w.Close())
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(out)
}

func sampleReport() *models.Report {
	return &models.Report{
		JobID:        "job-1",
		ConnectionID: "conn-1",
		GeneratedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Counts:       models.ScanCounts{Tables: 1, Columns: 1, Pii: 0},
		Risk:         models.RiskAssessment{OverallRisk: models.RiskLow},
	}
}

func TestNewFormatterSelectsByName(t *testing.T) {
	assert.IsType(t, &jsonFormatter{}, NewFormatter("json"))
	assert.IsType(t, &jsonFormatter{}, NewFormatter("JSON"))
	assert.IsType(t, &yamlFormatter{}, NewFormatter("yaml"))
	assert.IsType(t, &textFormatter{}, NewFormatter("text"))
	assert.IsType(t, &textFormatter{}, NewFormatter("anything-else"))
}

func TestJSONFormatterPrintsValidJSON(t *testing.T) {
	f := NewFormatter("json")
	out := captureStdout(t, func() {
		require.NoError(t, f.Print(sampleReport()))
	})
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "job-1", decoded["JobID"])
}

func TestYAMLFormatterPrintsValidYAML(t *testing.T) {
	f := NewFormatter("yaml")
	out := captureStdout(t, func() {
		require.NoError(t, f.Print(sampleReport()))
	})
	var decoded map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "job-1", decoded["jobid"])
}

func TestTextFormatterPrintsReportSummary(t *testing.T) {
	f := NewFormatter("text")
	out := captureStdout(t, func() {
		require.NoError(t, f.Print(sampleReport()))
	})
	assert.Contains(t, out, "PII Scan Report")
	assert.Contains(t, out, "job-1")
	assert.Contains(t, out, "No PII detected")
}

func TestTextFormatterFallsBackToJSONForUnknownType(t *testing.T) {
	f := NewFormatter("text")
	out := captureStdout(t, func() {
		require.NoError(t, f.Print(map[string]string{"foo": "bar"}))
	})
	assert.Contains(t, out, `"foo"`)
}
