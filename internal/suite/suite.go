// Package suite drives the probe catalog against a live target: it
// executes every probe through the HTTP client, judges outcomes with the
// policy evaluator, and accumulates an ordered run summary.
package suite

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/annolab/apidoctor/internal/client"
	"github.com/annolab/apidoctor/internal/config"
	"github.com/annolab/apidoctor/internal/metrics"
	"github.com/annolab/apidoctor/internal/policy"
	"github.com/annolab/apidoctor/internal/utils"
)

// Category names one group of probes. Categories execute in the order
// listed by CategoryOrder so reports stay comparable between runs.
type Category string

const (
	CategoryHealth    Category = "health"
	CategoryAuth      Category = "auth"
	CategoryPipelines Category = "pipelines"
	CategoryJobs      Category = "jobs"
	CategoryMissing   Category = "missing-endpoints"
	CategoryDebug     Category = "debug"
	CategoryStreaming Category = "streaming"
)

// CategoryOrder fixes the execution and reporting order.
var CategoryOrder = []Category{
	CategoryHealth,
	CategoryAuth,
	CategoryPipelines,
	CategoryJobs,
	CategoryMissing,
	CategoryDebug,
	CategoryStreaming,
}

// ProbeResult pairs one executed (or skipped) probe with its verdict.
type ProbeResult struct {
	Name     string         `json:"test"`
	Category Category       `json:"category"`
	Path     string         `json:"path"`
	Policy   policy.Kind    `json:"policy"`
	Skipped  bool           `json:"skipped,omitempty"`
	Verdict  policy.Verdict `json:"verdict"`
}

// Run is the terminal record of one suite execution. Passed plus Failed
// always equals the number of probes actually executed; skipped dependent
// probes count as neither.
type Run struct {
	Timestamp time.Time     `json:"timestamp"`
	Target    string        `json:"target"`
	Passed    int           `json:"passed"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Results   []ProbeResult `json:"results"`
}

// Total returns the number of probes executed.
func (r Run) Total() int { return r.Passed + r.Failed }

// Runner executes the probe catalog against one target.
type Runner struct {
	logger    *slog.Logger
	client    *client.Client
	cfg       config.SuiteConfig
	latencies *utils.LatencyTracker
}

// NewRunner constructs a suite runner.
func NewRunner(logger *slog.Logger, c *client.Client, cfg config.SuiteConfig) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		logger:    logger,
		client:    c,
		cfg:       cfg,
		latencies: utils.NewLatencyTracker(256),
	}
}

// Execute runs every category and returns the completed run. Categories
// without inter-probe dependencies may run concurrently when the
// configured concurrency allows; the jobs chain stays strictly ordered
// and counts are folded only after every category has joined.
func (r *Runner) Execute(ctx context.Context) Run {
	run := Run{
		Timestamp: time.Now().UTC(),
		Target:    r.client.BaseURL(),
	}

	byCategory := make(map[Category][]ProbeResult, len(CategoryOrder))

	if r.cfg.Concurrency > 1 {
		// Health, pipelines, missing-endpoints and debug probes have no
		// side effects on one another and may overlap. The jobs chain
		// feeds a submitted id into a dependent status probe, so auth,
		// jobs and streaming stay strictly ordered after the join.
		independent := []Category{CategoryHealth, CategoryPipelines, CategoryMissing, CategoryDebug}
		var mu sync.Mutex
		var wg sync.WaitGroup
		sem := make(chan struct{}, r.cfg.Concurrency)
		for _, cat := range independent {
			wg.Add(1)
			go func(cat Category) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()
				results := r.runCategory(ctx, cat)
				mu.Lock()
				byCategory[cat] = results
				mu.Unlock()
			}(cat)
		}
		wg.Wait()
		byCategory[CategoryAuth] = r.runAuth(ctx)
		byCategory[CategoryJobs] = r.runJobs(ctx)
		byCategory[CategoryStreaming] = r.runStreaming(ctx)
	} else {
		for _, cat := range CategoryOrder {
			byCategory[cat] = r.runCategory(ctx, cat)
		}
	}

	for _, cat := range CategoryOrder {
		run.Results = append(run.Results, byCategory[cat]...)
	}
	for _, result := range run.Results {
		switch {
		case result.Skipped:
			run.Skipped++
		case result.Verdict.Passed:
			run.Passed++
		default:
			run.Failed++
		}
	}

	metrics.ObserveRun(run.Failed)
	if r.latencies.Count() > 0 {
		r.logger.Info("probe latency",
			slog.Duration("p95", r.latencies.Percentile(95)),
			slog.Int("samples", r.latencies.Count()))
	}
	r.logger.Info("suite complete",
		slog.Int("passed", run.Passed),
		slog.Int("failed", run.Failed),
		slog.Int("skipped", run.Skipped))
	return run
}

func (r *Runner) runCategory(ctx context.Context, cat Category) []ProbeResult {
	switch cat {
	case CategoryHealth:
		return r.runHealth(ctx)
	case CategoryAuth:
		return r.runAuth(ctx)
	case CategoryPipelines:
		return r.runPipelines(ctx)
	case CategoryJobs:
		return r.runJobs(ctx)
	case CategoryMissing:
		return r.runMissing(ctx)
	case CategoryDebug:
		return r.runDebug(ctx)
	case CategoryStreaming:
		return r.runStreaming(ctx)
	}
	return nil
}

// probe executes one GET definition, evaluates it, and records metrics.
// annotate, when non nil, may append body-derived detail to a passing
// verdict so failures stay diagnosable without re-running.
func (r *Runner) probe(ctx context.Context, spec probeSpec) ProbeResult {
	out := r.client.Get(ctx, spec.path)
	verdict := policy.Evaluate(spec.policy, out)
	if verdict.Passed && spec.annotate != nil {
		if extra := spec.annotate(out); extra != "" {
			verdict.Detail += ", " + extra
		}
	}
	r.observe(spec.name, out.Elapsed, verdict)
	return ProbeResult{
		Name:     spec.name,
		Category: spec.category,
		Path:     spec.path,
		Policy:   spec.policy,
		Verdict:  verdict,
	}
}

func (r *Runner) observe(name string, elapsed time.Duration, verdict policy.Verdict) {
	metrics.ObserveProbe(elapsed, verdict.Passed)
	if elapsed > 0 {
		r.latencies.Observe(elapsed)
	}
	status := "FAIL"
	if verdict.Passed {
		status = "PASS"
	}
	r.logger.Info("probe",
		slog.String("name", name),
		slog.String("status", status),
		slog.String("detail", verdict.Detail))
}
