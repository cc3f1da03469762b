package suite

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/annolab/apidoctor/internal/client"
	"github.com/annolab/apidoctor/internal/config"
	"github.com/annolab/apidoctor/internal/policy"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSuiteConfig() config.SuiteConfig {
	return config.SuiteConfig{
		StreamTimeout: 200 * time.Millisecond,
		Concurrency:   1,
	}
}

// healthyServer implements every catalog endpoint the way a well-behaved
// target would: working health/pipeline/job APIs, debug and v1.2 feature
// endpoints absent.
func healthyServer(t *testing.T, submitStatus int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/health":
			w.Write([]byte(`{"status":"healthy","api_version":"1.2.0"}`))
		case r.URL.Path == "/api/v1/system/health":
			w.Write([]byte(`{"status":"healthy","services":{"database":{"status":"up"}}}`))
		case r.URL.Path == "/api/v1/jobs" && r.Method == http.MethodGet:
			w.Write([]byte(`{"total":2,"jobs":[]}`))
		case r.URL.Path == "/api/v1/jobs/" && r.Method == http.MethodPost:
			w.WriteHeader(submitStatus)
			if submitStatus == http.StatusCreated {
				w.Write([]byte(`{"id":"job-1","status":"pending"}`))
			}
		case r.URL.Path == "/api/v1/jobs/job-1":
			w.Write([]byte(`{"id":"job-1","status":"pending"}`))
		case r.URL.Path == "/api/v1/pipelines":
			w.Write([]byte(`{"pipelines":[{"name":"person_tracking"},{"name":"scene_detection"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestExecuteHealthyTargetAllPass(t *testing.T) {
	server := healthyServer(t, http.StatusCreated)
	defer server.Close()

	runner := NewRunner(testLogger(), client.New(server.URL, "dev-token", time.Second), testSuiteConfig())
	run := runner.Execute(context.Background())

	if run.Failed != 0 {
		for _, res := range run.Results {
			if !res.Verdict.Passed && !res.Skipped {
				t.Logf("failed probe: %s: %s", res.Name, res.Verdict.Detail)
			}
		}
		t.Fatalf("expected zero failures, got %d", run.Failed)
	}
	if run.Skipped != 0 {
		t.Fatalf("expected no skipped probes, got %d", run.Skipped)
	}
	if got := len(run.Results); got != 18 {
		t.Fatalf("expected 18 probe results, got %d", got)
	}
	if run.Passed+run.Failed != len(run.Results)-run.Skipped {
		t.Fatalf("counts out of balance: %d+%d != %d-%d",
			run.Passed, run.Failed, len(run.Results), run.Skipped)
	}
}

func TestExecuteSkipsDependentProbeWithoutJobID(t *testing.T) {
	server := healthyServer(t, http.StatusUnprocessableEntity)
	defer server.Close()

	runner := NewRunner(testLogger(), client.New(server.URL, "dev-token", time.Second), testSuiteConfig())
	run := runner.Execute(context.Background())

	if run.Skipped != 1 {
		t.Fatalf("expected exactly one skipped probe, got %d", run.Skipped)
	}
	var found bool
	for _, res := range run.Results {
		if res.Name != "Job Status Retrieval" {
			continue
		}
		found = true
		if !res.Skipped {
			t.Fatalf("dependent probe must be skipped, got verdict %+v", res.Verdict)
		}
		if res.Verdict.Passed {
			t.Fatalf("a skipped probe must not count as a pass")
		}
		if !strings.Contains(res.Verdict.Detail, "skipped") {
			t.Fatalf("skip detail = %q", res.Verdict.Detail)
		}
	}
	if !found {
		t.Fatalf("dependent probe missing from results")
	}
	// A validation rejection still satisfies the submission policy.
	if run.Failed != 0 {
		t.Fatalf("expected zero failures, got %d", run.Failed)
	}
	if run.Passed+run.Failed != len(run.Results)-run.Skipped {
		t.Fatalf("counts out of balance")
	}
}

func TestExecuteConcurrentCategoriesKeepOrderAndCounts(t *testing.T) {
	server := healthyServer(t, http.StatusCreated)
	defer server.Close()

	cfg := testSuiteConfig()
	cfg.Concurrency = 4
	runner := NewRunner(testLogger(), client.New(server.URL, "dev-token", time.Second), cfg)
	run := runner.Execute(context.Background())

	if run.Failed != 0 || run.Skipped != 0 {
		t.Fatalf("unexpected counts: %+v", run)
	}

	order := make(map[Category]int, len(CategoryOrder))
	for i, cat := range CategoryOrder {
		order[cat] = i
	}
	last := -1
	for _, res := range run.Results {
		idx := order[res.Category]
		if idx < last {
			t.Fatalf("results out of category order at %s", res.Name)
		}
		last = idx
	}
}

func TestExecuteFlagsUnexpectedlyImplementedEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.Write([]byte(`{"status":"healthy"}`))
		case "/api/v1/videos":
			w.Write([]byte(`{"videos":[]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	runner := NewRunner(testLogger(), client.New(server.URL, "dev-token", time.Second), testSuiteConfig())
	run := runner.Execute(context.Background())

	for _, res := range run.Results {
		if res.Name != "Video Upload" {
			continue
		}
		if !res.Verdict.Passed {
			t.Fatalf("unexpectedly implemented endpoint must still pass: %s", res.Verdict.Detail)
		}
		if res.Verdict.Flag != policy.FlagUnexpectedFeature {
			t.Fatalf("expected unexpected-feature flag, got %q", res.Verdict.Flag)
		}
		return
	}
	t.Fatalf("Video Upload probe missing from results")
}

func TestExecuteFailsRequiredProbeOnMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html>totally not json</html>"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	runner := NewRunner(testLogger(), client.New(server.URL, "dev-token", time.Second), testSuiteConfig())
	run := runner.Execute(context.Background())

	for _, res := range run.Results {
		if res.Name != "Basic Health Check" {
			continue
		}
		if res.Verdict.Passed {
			t.Fatalf("200 with an undecodable body must fail, detail %q", res.Verdict.Detail)
		}
		if !strings.Contains(res.Verdict.Detail, "malformed body") {
			t.Fatalf("detail %q missing malformed-body marker", res.Verdict.Detail)
		}
		if run.Failed == 0 {
			t.Fatalf("run must count the malformed-body probe as a failure")
		}
		return
	}
	t.Fatalf("health probe missing from results")
}

func TestExecuteStreamingTimeoutIsAcceptable(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/v1/events/stream") && r.URL.RawQuery != "" {
			w.Header().Set("Content-Type", "text/event-stream")
			w.(http.Flusher).Flush()
			<-release
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer func() {
		close(release)
		server.Close()
	}()

	runner := NewRunner(testLogger(), client.New(server.URL, "dev-token", time.Second), testSuiteConfig())
	run := runner.Execute(context.Background())

	for _, res := range run.Results {
		if res.Category != CategoryStreaming {
			continue
		}
		if !res.Verdict.Passed {
			t.Fatalf("stream timeout must be an acceptable pass: %s", res.Verdict.Detail)
		}
		if res.Verdict.Detail != "connection timeout (expected if not implemented)" {
			t.Fatalf("detail = %q", res.Verdict.Detail)
		}
		return
	}
	t.Fatalf("streaming probe missing from results")
}
