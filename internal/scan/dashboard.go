package scan

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ferncroft/helper-audit/internal/corpus"
)

// ScanDashboard extracts entity-id references from one UI-managed dashboard
// persistence document (.storage JSON).
//
// The walking logic is identical to the structural YAML scan - the two tree
// shapes are isomorphic - but hits are tagged SourceDashboard because
// dashboard references drive the actively_used vs dashboard_only split: an
// entity referenced only here is displayed, not used by automation logic.
//
// Template-marker scalars are scanned here rather than deferred: the
// template extractor never visits storage files, and a reference inside a
// dashboard card template is still a dashboard reference.
//
// Returns:
//   - []Hit: Dashboard hits in walk order
//   - error: ErrParse (wrapped) when the document is not valid JSON
func ScanDashboard(doc corpus.Document) ([]Hit, error) {
	var root any
	if err := json.Unmarshal([]byte(doc.Text), &root); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, doc.Path, err)
	}

	result := &YAMLScan{}
	walkDashboard(root, doc.Path, result)
	return result.Hits, nil
}

// walkDashboard mirrors walkTree for JSON trees, without template-marker
// deferral and without name collection.
func walkDashboard(node any, path string, result *YAMLScan) {
	switch v := node.(type) {
	case map[string]any:
		for _, key := range sortedKeys(v) {
			walkDashboard(v[key], path, result)
		}
	case []any:
		for _, item := range v {
			walkDashboard(item, path, result)
		}
	case string:
		scanDashboardScalar(v, path, result)
	}
}

// scanDashboardScalar records a dashboard hit for every entity-id occurrence
// in one scalar, template-marked or not.
func scanDashboardScalar(s, path string, result *YAMLScan) {
	for _, match := range bareRegex.FindAllString(s, -1) {
		if !helperBearingID(match) {
			continue
		}
		result.Hits = append(result.Hits, Hit{
			EntityID:   match,
			Source:     SourceDashboard,
			Path:       path,
			Excerpt:    scalarExcerpt(s),
			Confidence: ConfidenceStructural,
		})
	}
}

// sortedKeys returns a map's keys in sorted order for deterministic walks.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
