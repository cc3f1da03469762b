package models

import "time"

// NoErrorMessage is the marker recorded when neither the job list view nor
// the job detail carries an error message. The bundle never leaves the
// field silently empty.
const NoErrorMessage = "no error message available"

// ServerIdentity captures what the target reports about itself.
type ServerIdentity struct {
	URL        string `json:"url"`
	Version    string `json:"version,omitempty"`
	APIVersion string `json:"api_version,omitempty"`
	Status     string `json:"status,omitempty"`
}

// JobSummary is the status histogram over the fetched job collection.
type JobSummary struct {
	Total     int `json:"total_jobs"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
	Failed    int `json:"failed"`
}

// FailedJobRecord is one troubleshooting entry per terminally failed job.
// ErrorMessage is resolved with fallback: list-view message, then detail
// message, then NoErrorMessage.
type FailedJobRecord struct {
	JobID         string    `json:"job_id"`
	Status        JobStatus `json:"status"`
	CreatedAt     string    `json:"created_at,omitempty"`
	UpdatedAt     string    `json:"updated_at,omitempty"`
	VideoFilename string    `json:"video_filename,omitempty"`
	Pipelines     []string  `json:"pipelines,omitempty"`
	ErrorMessage  string    `json:"error_message"`
	Detail        Document  `json:"details,omitempty"`
}

// DiagnosticBundle is the compiled output of a triage run, intended for
// handoff to server operators. Partial is set when at least one per-job
// detail fetch failed and the record degraded to list-view data.
type DiagnosticBundle struct {
	Timestamp  time.Time         `json:"timestamp"`
	Server     ServerIdentity    `json:"server"`
	Summary    JobSummary        `json:"summary"`
	FailedJobs []FailedJobRecord `json:"failed_jobs"`
	Partial    bool              `json:"partial,omitempty"`
}
