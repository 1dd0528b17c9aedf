package scan

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ferncroft/helper-audit/internal/corpus"
	"github.com/ferncroft/helper-audit/internal/helper"
)

// entityID is the shared sub-pattern for a well-formed entity ID.
const entityID = `[a-z][a-z0-9_]*\.[a-z0-9_]+`

// Template accessor functions whose first argument is an entity-id literal.
// Matching the call syntax lexically recovers references without evaluating
// the template.
var accessorRegex = regexp.MustCompile(
	`(?:\b)(?:states|is_state|state_attr|is_state_attr|has_value|state_translated|expand|device_id|device_name|area_id|area_name)\s*\(\s*['"](` + entityID + `)['"]`)

// Dotted state access: states.domain.object_id(.state/.attributes/...).
var dottedRegex = regexp.MustCompile(`\bstates\.([a-z][a-z0-9_]*)\.([a-z0-9_]+)\b`)

// Bare or quoted entity-id literals anywhere in template source.
var bareRegex = regexp.MustCompile(`\b` + entityID + `\b`)

// maxExcerptLen bounds the context snippet attached to each hit.
const maxExcerptLen = 80

// HasTemplateMarkers reports whether text contains Jinja expression or
// statement delimiters.
func HasTemplateMarkers(text string) bool {
	return (strings.Contains(text, "{{") && strings.Contains(text, "}}")) ||
		(strings.Contains(text, "{%") && strings.Contains(text, "%}"))
}

// ScanTemplate lexically extracts entity-id references from a document that
// may contain Jinja template source.
//
// Three idioms are recognised:
//   - accessor calls with an entity-id first argument: states('x.y'),
//     is_state("x.y", ...), state_attr('x.y', ...)
//   - dotted state access: states.x.y.state
//   - bare or quoted entity-id literals
//
// Bare literals are restricted to helper-bearing domains, since arbitrary
// dotted tokens in template source (value_json.field, trigger.entity_id)
// would otherwise flood the index with noise.
//
// Hits carry reduced confidence: lexical matching over template source can
// mistake variable names for entity ids, and the classification engine
// treats any hit as "used" regardless, so the low score is provenance
// metadata rather than a filter.
//
// Documents without template markers yield no hits.
func ScanTemplate(doc corpus.Document) []Hit {
	if !HasTemplateMarkers(doc.Text) {
		return nil
	}

	var hits []Hit
	seen := make(map[string]struct{})

	record := func(id string, start, end int) {
		if !helper.ValidEntityID(id) {
			return
		}
		// One hit per entity per document is enough provenance for
		// template source; repeats add nothing.
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		hits = append(hits, Hit{
			EntityID:   id,
			Source:     SourceTemplate,
			Path:       doc.Path,
			Excerpt:    excerpt(doc.Text, start, end),
			Confidence: ConfidenceTemplate,
		})
	}

	for _, m := range accessorRegex.FindAllStringSubmatchIndex(doc.Text, -1) {
		id := doc.Text[m[2]:m[3]]
		record(id, m[0], m[1])
	}

	for _, m := range dottedRegex.FindAllStringSubmatchIndex(doc.Text, -1) {
		id := doc.Text[m[2]:m[3]] + "." + doc.Text[m[4]:m[5]]
		record(id, m[0], m[1])
	}

	for _, m := range bareRegex.FindAllStringIndex(doc.Text, -1) {
		id := doc.Text[m[0]:m[1]]
		if !helperBearingID(id) {
			continue
		}
		record(id, m[0], m[1])
	}

	return hits
}

// excerpt returns a bounded, single-line snippet of text around [start, end).
func excerpt(text string, start, end int) string {
	pad := (maxExcerptLen - (end - start)) / 2
	if pad < 0 {
		pad = 0
	}
	from := start - pad
	if from < 0 {
		from = 0
	}
	from = runeFloor(text, from)
	to := end + pad
	if to > len(text) {
		to = len(text)
	}
	to = runeFloor(text, to)

	snippet := strings.Join(strings.Fields(text[from:to]), " ")
	return truncateRunes(snippet, maxExcerptLen)
}

// runeFloor moves a byte offset back to the nearest rune boundary so that
// padding around a match never slices a multibyte character.
func runeFloor(s string, i int) int {
	for i > 0 && i < len(s) && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}

// truncateRunes shortens s to at most max bytes without splitting a rune.
// Excerpts end up in JSON report documents, which must stay valid UTF-8.
func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
