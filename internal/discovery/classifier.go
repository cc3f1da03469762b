// Package discovery inspects the target's self-published schema: it
// fetches the OpenAPI document, groups the advertised paths into semantic
// categories, and compares them against the endpoints a client assumes.
package discovery

import "strings"

// Category names a semantic group of endpoint paths.
type Category string

const (
	CategorySystem   Category = "system"
	CategoryPipeline Category = "pipeline"
	CategoryJob      Category = "job"
	CategoryDebug    Category = "debug"
	CategoryOther    Category = "other"
)

// Categories lists the buckets in classification priority order, with the
// catch-all last.
var Categories = []Category{CategorySystem, CategoryPipeline, CategoryJob, CategoryDebug, CategoryOther}

// classifierRules pairs each category with the substring that claims a
// path. Matching is case-sensitive and checked in order; the first hit
// wins, so a path like /api/v1/system/jobs lands in system, not job.
var classifierRules = []struct {
	category Category
	needle   string
}{
	{CategorySystem, "/system/"},
	{CategoryPipeline, "/pipeline"},
	{CategoryJob, "/job"},
	{CategoryDebug, "/debug/"},
}

// Classification maps every input path into exactly one category bucket,
// preserving input order within each bucket.
type Classification map[Category][]string

// Classify partitions the paths into the five category buckets. It never
// fails: unmatched paths land in "other", and empty input yields five
// empty groups.
func Classify(paths []string) Classification {
	result := make(Classification, len(Categories))
	for _, cat := range Categories {
		result[cat] = []string{}
	}

	for _, p := range paths {
		cat := classify(p)
		result[cat] = append(result[cat], p)
	}
	return result
}

func classify(path string) Category {
	for _, rule := range classifierRules {
		if strings.Contains(path, rule.needle) {
			return rule.category
		}
	}
	return CategoryOther
}

// Total returns the number of classified paths across all buckets.
func (c Classification) Total() int {
	n := 0
	for _, bucket := range c {
		n += len(bucket)
	}
	return n
}
