package discovery

import "testing"

func TestClassifyPartitionsEveryPath(t *testing.T) {
	paths := []string{
		"/api/v1/system/health",
		"/api/v1/pipelines",
		"/api/v1/pipelines/catalog",
		"/api/v1/jobs",
		"/api/v1/jobs/{id}",
		"/api/v1/debug/server-info",
		"/health",
		"/openapi.json",
	}

	classified := Classify(paths)

	if got := classified.Total(); got != len(paths) {
		t.Fatalf("expected %d classified paths, got %d", len(paths), got)
	}

	seen := make(map[string]int)
	for _, bucket := range classified {
		for _, p := range bucket {
			seen[p]++
		}
	}
	for _, p := range paths {
		if seen[p] != 1 {
			t.Fatalf("path %s appears %d times, want exactly once", p, seen[p])
		}
	}

	expect := map[Category][]string{
		CategorySystem:   {"/api/v1/system/health"},
		CategoryPipeline: {"/api/v1/pipelines", "/api/v1/pipelines/catalog"},
		CategoryJob:      {"/api/v1/jobs", "/api/v1/jobs/{id}"},
		CategoryDebug:    {"/api/v1/debug/server-info"},
		CategoryOther:    {"/health", "/openapi.json"},
	}
	for cat, want := range expect {
		got := classified[cat]
		if len(got) != len(want) {
			t.Fatalf("%s: got %v, want %v", cat, got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("%s[%d]: got %s, want %s", cat, i, got[i], want[i])
			}
		}
	}
}

func TestClassifyPriorityOrder(t *testing.T) {
	// A path containing both markers lands in the higher-priority bucket.
	classified := Classify([]string{"/api/v1/system/jobs"})
	if len(classified[CategorySystem]) != 1 {
		t.Fatalf("expected system bucket to claim the path, got %v", classified)
	}
	if len(classified[CategoryJob]) != 0 {
		t.Fatalf("job bucket must not also claim the path")
	}
}

func TestClassifyCaseSensitive(t *testing.T) {
	classified := Classify([]string{"/api/v1/SYSTEM/health"})
	if len(classified[CategoryOther]) != 1 {
		t.Fatalf("uppercase segment must not match, got %v", classified)
	}
}

func TestClassifyEmptyInput(t *testing.T) {
	classified := Classify(nil)
	if len(classified) != len(Categories) {
		t.Fatalf("expected %d buckets, got %d", len(Categories), len(classified))
	}
	for _, cat := range Categories {
		bucket, ok := classified[cat]
		if !ok {
			t.Fatalf("missing bucket %s", cat)
		}
		if len(bucket) != 0 {
			t.Fatalf("bucket %s not empty: %v", cat, bucket)
		}
	}
}
