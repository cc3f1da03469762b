package discovery

import (
	"context"
	"fmt"
	"sort"

	"github.com/annolab/apidoctor/internal/client"
)

// discoveryPaths are tried in order until one yields a document with a
// paths mapping. Servers differ on where they publish their schema.
var discoveryPaths = []string{
	"/openapi.json",
	"/api/v1/openapi.json",
	"/docs",
}

// Schema is the endpoint inventory recovered from the target's OpenAPI
// document.
type Schema struct {
	Source string   `json:"source"`
	Paths  []string `json:"paths"`
}

// FetchSchema retrieves the target's self-published endpoint list. It
// returns an error only when no discovery location produced a usable
// paths mapping.
func FetchSchema(ctx context.Context, c *client.Client) (Schema, error) {
	var lastStatus int
	for _, p := range discoveryPaths {
		out := c.Get(ctx, p)
		if out.Err != nil || out.StatusCode != 200 {
			if out.Responded() {
				lastStatus = out.StatusCode
			}
			continue
		}
		pathsDoc := out.Body.Child("paths")
		if pathsDoc == nil {
			continue
		}
		paths := make([]string, 0, len(pathsDoc))
		for path := range pathsDoc {
			paths = append(paths, path)
		}
		sort.Strings(paths)
		return Schema{Source: p, Paths: paths}, nil
	}
	if lastStatus != 0 {
		return Schema{}, fmt.Errorf("no discovery endpoint returned an OpenAPI document (last status %d)", lastStatus)
	}
	return Schema{}, fmt.Errorf("no discovery endpoint reachable")
}

// DriftEntry records whether one client-expected endpoint actually exists
// on the server.
type DriftEntry struct {
	Path   string `json:"path"`
	Exists bool   `json:"exists"`
}

// CompareExpected checks each client-assumed endpoint against the
// server's advertised paths. Missing entries explain 404s observed by
// the client.
func CompareExpected(schema Schema, expected []string) []DriftEntry {
	advertised := make(map[string]struct{}, len(schema.Paths))
	for _, p := range schema.Paths {
		advertised[p] = struct{}{}
	}

	drift := make([]DriftEntry, 0, len(expected))
	for _, p := range expected {
		_, ok := advertised[p]
		drift = append(drift, DriftEntry{Path: p, Exists: ok})
	}
	return drift
}
