package models

// JobStatus enumerates the states reported by the job API.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
	JobError      JobStatus = "error"
	JobCancelled  JobStatus = "cancelled"
)

// TerminalFailure reports whether the status is one a job never leaves
// without operator intervention: failed, error or cancelled.
func (s JobStatus) TerminalFailure() bool {
	switch s {
	case JobFailed, JobError, JobCancelled:
		return true
	}
	return false
}

// Job is the list-view record returned by GET /api/v1/jobs. The harness
// never mutates jobs; it only reads what the server reports.
type Job struct {
	ID            string    `json:"id"`
	Status        JobStatus `json:"status"`
	CreatedAt     string    `json:"created_at"`
	UpdatedAt     string    `json:"updated_at"`
	VideoFilename string    `json:"video_filename"`
	Pipelines     []string  `json:"pipelines"`
	ErrorMessage  string    `json:"error_message"`
}

// JobPage is the envelope of the job collection endpoint.
type JobPage struct {
	Total int   `json:"total"`
	Jobs  []Job `json:"jobs"`
}
