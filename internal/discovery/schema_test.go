package discovery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/annolab/apidoctor/internal/client"
)

func TestFetchSchemaUsesFirstWorkingLocation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/openapi.json":
			w.WriteHeader(http.StatusNotFound)
		case "/api/v1/openapi.json":
			w.Write([]byte(`{"paths":{"/health":{},"/api/v1/jobs":{}}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	c := client.New(server.URL, "dev-token", time.Second)
	schema, err := FetchSchema(context.Background(), c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if schema.Source != "/api/v1/openapi.json" {
		t.Fatalf("source = %q", schema.Source)
	}
	if len(schema.Paths) != 2 {
		t.Fatalf("paths = %v", schema.Paths)
	}
	// Paths come back sorted for stable reports.
	if schema.Paths[0] != "/api/v1/jobs" || schema.Paths[1] != "/health" {
		t.Fatalf("paths not sorted: %v", schema.Paths)
	}
}

func TestFetchSchemaSkipsDocumentsWithoutPaths(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"info":"no paths here"}`))
	}))
	defer server.Close()

	c := client.New(server.URL, "", time.Second)
	if _, err := FetchSchema(context.Background(), c); err == nil {
		t.Fatalf("expected error when no location has a paths mapping")
	}
}

func TestCompareExpectedFlagsMissingEndpoints(t *testing.T) {
	schema := Schema{Paths: []string{"/api/v1/system/health", "/api/v1/pipelines"}}
	expected := []string{
		"/api/v1/system/health",
		"/api/v1/pipelines/catalog",
	}

	drift := CompareExpected(schema, expected)
	if len(drift) != 2 {
		t.Fatalf("drift entries = %d, want 2", len(drift))
	}
	if !drift[0].Exists {
		t.Fatalf("%s should exist", drift[0].Path)
	}
	if drift[1].Exists {
		t.Fatalf("%s should be missing", drift[1].Path)
	}
}
