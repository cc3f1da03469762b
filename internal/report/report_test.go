package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/annolab/apidoctor/internal/models"
	"github.com/annolab/apidoctor/internal/policy"
	"github.com/annolab/apidoctor/internal/suite"
)

func TestWriteSuiteRoundTrips(t *testing.T) {
	run := suite.Run{
		Timestamp: time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC),
		Target:    "http://localhost:18011",
		Passed:    3,
		Failed:    1,
		Skipped:   1,
		Results: []suite.ProbeResult{
			{
				Name:     "Basic Health Check",
				Category: suite.CategoryHealth,
				Path:     "/health",
				Policy:   policy.Required,
				Verdict:  policy.Verdict{Passed: true, Detail: "status 200"},
			},
		},
	}

	path := filepath.Join(t.TempDir(), "results.json")
	abs, err := WriteSuite(path, run)
	if err != nil {
		t.Fatalf("write suite: %v", err)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	var artifact SuiteArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		t.Fatalf("decode artifact: %v", err)
	}

	if artifact.TestRun.BaseURL != run.Target {
		t.Fatalf("base_url = %q", artifact.TestRun.BaseURL)
	}
	if artifact.TestRun.TotalTests != 4 {
		t.Fatalf("total_tests = %d, want executed count", artifact.TestRun.TotalTests)
	}
	if artifact.TestRun.PassRate != 75.0 {
		t.Fatalf("pass_rate = %v", artifact.TestRun.PassRate)
	}
	if len(artifact.Results) != 1 || artifact.Results[0].Name != "Basic Health Check" {
		t.Fatalf("results = %+v", artifact.Results)
	}
}

func TestWriteBundleRoundTrips(t *testing.T) {
	bundle := models.DiagnosticBundle{
		Timestamp: time.Now().UTC(),
		Server:    models.ServerIdentity{URL: "http://localhost:18011", Version: "1.2.1"},
		Summary:   models.JobSummary{Total: 4, Completed: 2, Pending: 1, Failed: 1},
		FailedJobs: []models.FailedJobRecord{
			{JobID: "c", Status: models.JobFailed, ErrorMessage: "OOM"},
		},
		Partial: true,
	}

	path := filepath.Join(t.TempDir(), "diagnostics.json")
	abs, err := WriteBundle(path, bundle)
	if err != nil {
		t.Fatalf("write bundle: %v", err)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	var decoded models.DiagnosticBundle
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode artifact: %v", err)
	}
	if decoded.Summary.Failed != len(decoded.FailedJobs) {
		t.Fatalf("bundle invariant broken: %+v", decoded)
	}
	if !decoded.Partial {
		t.Fatalf("partial marker lost")
	}
}

func TestWriteSuiteFailsOnBadPath(t *testing.T) {
	_, err := WriteSuite(filepath.Join(t.TempDir(), "missing", "results.json"), suite.Run{})
	if err == nil {
		t.Fatalf("expected write error for missing directory")
	}
}
