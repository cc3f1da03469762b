// Package report persists diagnostic output as structured JSON artifacts
// suitable for handing to server operators.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/annolab/apidoctor/internal/models"
	"github.com/annolab/apidoctor/internal/suite"
)

// SuiteMeta summarises one suite run for the artifact header.
type SuiteMeta struct {
	Timestamp  string  `json:"timestamp"`
	BaseURL    string  `json:"base_url"`
	TotalTests int     `json:"total_tests"`
	Passed     int     `json:"passed"`
	Failed     int     `json:"failed"`
	Skipped    int     `json:"skipped"`
	PassRate   float64 `json:"pass_rate"`
}

// SuiteArtifact is the on-disk shape of a suite run.
type SuiteArtifact struct {
	TestRun SuiteMeta           `json:"test_run"`
	Results []suite.ProbeResult `json:"results"`
}

// WriteSuite persists the suite run and returns the artifact's absolute path.
func WriteSuite(path string, run suite.Run) (string, error) {
	total := run.Total()
	rate := 0.0
	if total > 0 {
		rate = float64(run.Passed) / float64(total) * 100
	}
	artifact := SuiteArtifact{
		TestRun: SuiteMeta{
			Timestamp:  run.Timestamp.Format(time.RFC3339),
			BaseURL:    run.Target,
			TotalTests: total,
			Passed:     run.Passed,
			Failed:     run.Failed,
			Skipped:    run.Skipped,
			PassRate:   rate,
		},
		Results: run.Results,
	}
	return writeJSON(path, artifact)
}

// WriteBundle persists a triage diagnostic bundle and returns its absolute path.
func WriteBundle(path string, bundle models.DiagnosticBundle) (string, error) {
	return writeJSON(path, bundle)
}

// WriteJSON persists any document, used for discovery output.
func WriteJSON(path string, doc any) (string, error) {
	return writeJSON(path, doc)
}

func writeJSON(path string, v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path, nil
	}
	return abs, nil
}
