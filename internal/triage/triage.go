// Package triage compiles a troubleshooting bundle for terminally failed
// jobs: it gates on server health, fetches the job collection, partitions
// by status, cross-references per-job detail, and resolves a single error
// message per failing job.
package triage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/annolab/apidoctor/internal/client"
	"github.com/annolab/apidoctor/internal/config"
	"github.com/annolab/apidoctor/internal/models"
)

// ErrFatalPrecondition marks failures that abort the whole triage run:
// an unreachable or unhealthy server, or an unavailable job collection.
// Nothing downstream can be meaningfully interpreted past either.
var ErrFatalPrecondition = errors.New("fatal precondition")

// Engine fetches and compiles the diagnostic bundle.
type Engine struct {
	logger *slog.Logger
	client *client.Client
	cfg    config.TriageConfig
}

// NewEngine constructs a triage engine for the given target.
func NewEngine(logger *slog.Logger, c *client.Client, cfg config.TriageConfig) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger, client: c, cfg: cfg}
}

// Diagnose runs the full triage flow. It returns ErrFatalPrecondition
// (wrapped) when the health gate or the job collection fetch fails;
// individual job-detail failures only degrade the affected record and
// mark the bundle partial.
func (e *Engine) Diagnose(ctx context.Context) (models.DiagnosticBundle, error) {
	bundle := models.DiagnosticBundle{
		Timestamp: time.Now().UTC(),
		Server:    models.ServerIdentity{URL: e.client.BaseURL()},
	}

	health, err := e.checkHealth(ctx)
	if err != nil {
		return models.DiagnosticBundle{}, fmt.Errorf("%w: %v", ErrFatalPrecondition, err)
	}
	bundle.Server.Version = health.StringOr("version", health.String("api_version"))
	bundle.Server.APIVersion = health.String("api_version")
	bundle.Server.Status = health.String("status")
	e.logger.Info("server reachable",
		slog.String("version", bundle.Server.Version),
		slog.String("status", bundle.Server.Status))

	page, err := e.fetchJobs(ctx)
	if err != nil {
		return models.DiagnosticBundle{}, fmt.Errorf("%w: %v", ErrFatalPrecondition, err)
	}
	e.logger.Info("jobs fetched", slog.Int("total", len(page.Jobs)))

	var failed []models.Job
	bundle.Summary.Total = len(page.Jobs)
	for _, job := range page.Jobs {
		switch {
		case job.Status.TerminalFailure():
			bundle.Summary.Failed++
			failed = append(failed, job)
		case job.Status == models.JobCompleted:
			bundle.Summary.Completed++
		default:
			bundle.Summary.Pending++
		}
	}
	e.logger.Info("job status summary",
		slog.Int("completed", bundle.Summary.Completed),
		slog.Int("pending", bundle.Summary.Pending),
		slog.Int("failed", bundle.Summary.Failed))

	bundle.FailedJobs = make([]models.FailedJobRecord, 0, len(failed))
	for i, job := range failed {
		e.logger.Info("analyzing failed job",
			slog.Int("n", i+1),
			slog.Int("of", len(failed)),
			slog.String("job_id", job.ID),
			slog.String("status", string(job.Status)))

		detail, err := e.fetchJobDetail(ctx, job.ID)
		if err != nil {
			// Degrade to list-view data rather than aborting the run.
			e.logger.Warn("job detail unavailable",
				slog.String("job_id", job.ID),
				slog.Any("error", err))
			bundle.Partial = true
		}

		record := buildRecord(job, detail)
		if record.ErrorMessage == models.NoErrorMessage {
			e.logger.Warn("no error message available", slog.String("job_id", job.ID))
		} else {
			e.logger.Info("error resolved",
				slog.String("job_id", job.ID),
				slog.String("error", record.ErrorMessage))
		}
		bundle.FailedJobs = append(bundle.FailedJobs, record)
	}

	return bundle, nil
}

func (e *Engine) checkHealth(ctx context.Context) (models.Document, error) {
	healthCtx, cancel := context.WithTimeout(ctx, e.cfg.HealthTimeout)
	defer cancel()

	out := e.client.Get(healthCtx, "/api/v1/system/health")
	if !out.Responded() {
		return nil, fmt.Errorf("server health check: %w", out.Err)
	}
	if out.StatusCode != 200 {
		return nil, fmt.Errorf("server health check: status %d", out.StatusCode)
	}
	if out.Err != nil {
		return nil, fmt.Errorf("server health check: %w", out.Err)
	}
	return out.Body, nil
}

func (e *Engine) fetchJobs(ctx context.Context) (models.JobPage, error) {
	jobsCtx, cancel := context.WithTimeout(ctx, e.cfg.JobTimeout)
	defer cancel()

	out := e.client.Get(jobsCtx, fmt.Sprintf("/api/v1/jobs?per_page=%d", e.cfg.PerPage))
	if !out.Responded() {
		return models.JobPage{}, fmt.Errorf("fetch jobs: %w", out.Err)
	}
	if out.StatusCode != 200 {
		return models.JobPage{}, fmt.Errorf("fetch jobs: status %d", out.StatusCode)
	}
	var page models.JobPage
	if err := out.DecodeInto(&page); err != nil {
		return models.JobPage{}, fmt.Errorf("fetch jobs: %w", err)
	}
	return page, nil
}

func (e *Engine) fetchJobDetail(ctx context.Context, jobID string) (models.Document, error) {
	detailCtx, cancel := context.WithTimeout(ctx, e.cfg.JobTimeout)
	defer cancel()

	out := e.client.Get(detailCtx, "/api/v1/jobs/"+jobID)
	if !out.Responded() {
		return nil, out.Err
	}
	if out.StatusCode != 200 {
		return nil, fmt.Errorf("status %d", out.StatusCode)
	}
	if out.Err != nil {
		return nil, out.Err
	}
	if out.Body == nil {
		return nil, fmt.Errorf("empty response body")
	}
	return out.Body, nil
}

// buildRecord merges the list view with the detail document and resolves
// the error message with fallback: job-level, then detail-level, then the
// explicit no-message marker.
func buildRecord(job models.Job, detail models.Document) models.FailedJobRecord {
	record := models.FailedJobRecord{
		JobID:         job.ID,
		Status:        job.Status,
		CreatedAt:     job.CreatedAt,
		UpdatedAt:     job.UpdatedAt,
		VideoFilename: job.VideoFilename,
		Pipelines:     job.Pipelines,
		Detail:        detail,
	}

	switch {
	case job.ErrorMessage != "":
		record.ErrorMessage = job.ErrorMessage
	case detail.String("error_message") != "":
		record.ErrorMessage = detail.String("error_message")
	default:
		record.ErrorMessage = models.NoErrorMessage
	}
	return record
}
