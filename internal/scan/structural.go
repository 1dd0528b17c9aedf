package scan

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ferncroft/helper-audit/internal/corpus"
	"github.com/ferncroft/helper-audit/internal/helper"
)

// ErrParse is returned when a document cannot be parsed as YAML.
// Callers record it as a per-file load error and continue.
var ErrParse = errors.New("scan: parse failure")

// YAMLScan is the outcome of structurally scanning one YAML document.
type YAMLScan struct {
	// Hits are direct entity-id occurrences found in the parsed tree.
	Hits []Hit

	// Names are alias/id/name scalar values collected during the walk,
	// feeding the naming-pattern inference pass.
	Names []string
}

// nameKeys are mapping keys whose scalar values name an automation, script
// or scene. Collected for naming-pattern inference.
var nameKeys = map[string]struct{}{
	"alias": {},
	"id":    {},
	"name":  {},
}

// ScanYAML parses a YAML document into a generic tree and walks it, testing
// every scalar string for entity-id occurrences.
//
// Multi-document files (--- separators) are fully scanned, with each
// document decoded on its own: a malformed document cannot discard hits
// from valid documents before it. Scalars that contain template markers
// are left to the template extractor, which scans the raw text of the
// same file; reporting the same reference under two kinds would
// double-count evidence.
//
// Parameters:
//   - doc: The document to scan (raw text plus originating path)
//
// Returns:
//   - *YAMLScan: Hits and collected names, in walk order
//   - error: ErrParse (wrapped) when a document is not valid YAML; the
//     result still carries everything scanned before the failure
func ScanYAML(doc corpus.Document) (*YAMLScan, error) {
	result := &YAMLScan{}

	for i, text := range splitDocuments(doc.Text) {
		var root any
		err := yaml.NewDecoder(strings.NewReader(text)).Decode(&root)
		if errors.Is(err, io.EOF) {
			continue
		}
		if err != nil {
			return result, fmt.Errorf("%w: %s document %d: %v", ErrParse, doc.Path, i+1, err)
		}
		walkTree(root, doc.Path, SourceStructural, ConfidenceStructural, result)
	}

	return result, nil
}

// splitDocuments cuts a YAML stream on top-level document separators so
// each document decodes independently. Content on the separator line
// itself ("--- inline") starts the next document.
func splitDocuments(text string) []string {
	var (
		docs []string
		cur  strings.Builder
	)
	for _, line := range strings.SplitAfter(text, "\n") {
		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == "---" || strings.HasPrefix(trimmed, "--- ") {
			docs = append(docs, cur.String())
			cur.Reset()
			if rest := strings.TrimSpace(trimmed[3:]); rest != "" {
				cur.WriteString(rest)
				cur.WriteString("\n")
			}
			continue
		}
		cur.WriteString(line)
	}
	return append(docs, cur.String())
}

// walkTree recursively visits mappings, sequences and scalars, appending
// entity-id hits and collected names to result.
func walkTree(node any, path string, kind SourceKind, confidence float64, result *YAMLScan) {
	switch v := node.(type) {
	case map[string]any:
		// Sorted key order keeps hit discovery order deterministic;
		// byte-identical re-runs depend on it.
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			child := v[key]
			if s, ok := child.(string); ok {
				if _, isName := nameKeys[key]; isName && !helper.ValidEntityID(s) {
					result.Names = append(result.Names, s)
				}
			}
			walkTree(child, path, kind, confidence, result)
		}
	case map[any]any:
		// yaml.v3 produces map[string]any for string keys, but non-string
		// keys force this shape.
		keys := make([]string, 0, len(v))
		byKey := make(map[string]any, len(v))
		for key, child := range v {
			k := fmt.Sprint(key)
			keys = append(keys, k)
			byKey[k] = child
		}
		sort.Strings(keys)
		for _, key := range keys {
			walkTree(byKey[key], path, kind, confidence, result)
		}
	case []any:
		for _, item := range v {
			walkTree(item, path, kind, confidence, result)
		}
	case string:
		scanScalar(v, path, kind, confidence, result)
	}
}

// scanScalar records a hit for every entity-id occurrence in one scalar.
// Scalars holding template expressions belong to the template extractor.
func scanScalar(s, path string, kind SourceKind, confidence float64, result *YAMLScan) {
	if HasTemplateMarkers(s) {
		return
	}
	for _, match := range bareRegex.FindAllString(s, -1) {
		if !helperBearingID(match) {
			continue
		}
		result.Hits = append(result.Hits, Hit{
			EntityID:   match,
			Source:     kind,
			Path:       path,
			Excerpt:    scalarExcerpt(s),
			Confidence: confidence,
		})
	}
}

// helperBearingID reports whether id is a well-formed entity ID in a domain
// that can hold helpers. Restricting the bare-token match keeps dotted noise
// (URLs, version strings, trigger.entity_id) out of the index.
func helperBearingID(id string) bool {
	domain, _, ok := helper.SplitEntityID(id)
	if !ok {
		return false
	}
	return helper.IsDirectDomain(domain) || helper.IsCandidateDomain(domain)
}

// scalarExcerpt reduces a scalar to a bounded single-line snippet.
func scalarExcerpt(s string) string {
	return truncateRunes(strings.Join(strings.Fields(s), " "), maxExcerptLen)
}
