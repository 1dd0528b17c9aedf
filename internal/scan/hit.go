package scan

import "sort"

// SourceKind identifies which scanner produced a reference hit.
type SourceKind string

const (
	// SourceStructural is a direct entity-id occurrence in a parsed YAML tree.
	SourceStructural SourceKind = "yaml_structural"

	// SourceTemplate is a lexical match inside Jinja template source.
	SourceTemplate SourceKind = "template"

	// SourceDashboard is an occurrence in a UI-managed dashboard document.
	SourceDashboard SourceKind = "dashboard"

	// SourceNamingPattern is an inferred reference from token overlap between
	// an automation/script name and a helper's object id.
	SourceNamingPattern SourceKind = "naming_pattern"
)

// Confidence values per source kind. Confidence is reporting metadata, not a
// gating threshold: classification treats any hit as evidence of use.
const (
	ConfidenceStructural = 1.0
	ConfidenceTemplate   = 0.6
	ConfidenceNaming     = 0.3
)

// Hit is one piece of evidence that an entity is referenced somewhere.
type Hit struct {
	EntityID   string     `json:"entity_id"`
	Source     SourceKind `json:"source_kind"`
	Path       string     `json:"source_path"`
	Excerpt    string     `json:"excerpt,omitempty"`
	Confidence float64    `json:"confidence"`
}

// Index maps entity IDs to their reference hits in discovery order.
// Hits are never deduplicated; every piece of evidence is retained for
// provenance. Built once per run, read-only afterwards.
type Index struct {
	hits  map[string][]Hit
	total int
}

// NewIndex creates an empty reference index.
func NewIndex() *Index {
	return &Index{hits: make(map[string][]Hit)}
}

// Add appends a hit, preserving discovery order per entity.
func (x *Index) Add(h Hit) {
	x.hits[h.EntityID] = append(x.hits[h.EntityID], h)
	x.total++
}

// AddAll appends a batch of hits in order.
func (x *Index) AddAll(hits []Hit) {
	for _, h := range hits {
		x.Add(h)
	}
}

// Hits returns the hits recorded for an entity ID, in discovery order.
// The returned slice is the index's own; callers must not mutate it.
func (x *Index) Hits(entityID string) []Hit {
	return x.hits[entityID]
}

// Has reports whether any hit exists for the entity ID.
func (x *Index) Has(entityID string) bool {
	return len(x.hits[entityID]) > 0
}

// Kinds returns the distinct source kinds recorded for an entity ID,
// in first-seen order.
func (x *Index) Kinds(entityID string) []SourceKind {
	seen := make(map[SourceKind]struct{}, 4)
	var kinds []SourceKind
	for _, h := range x.hits[entityID] {
		if _, ok := seen[h.Source]; ok {
			continue
		}
		seen[h.Source] = struct{}{}
		kinds = append(kinds, h.Source)
	}
	return kinds
}

// Entities returns every entity ID with at least one hit, sorted.
func (x *Index) Entities() []string {
	ids := make([]string, 0, len(x.hits))
	for id := range x.hits {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Size returns the total number of hits recorded.
func (x *Index) Size() int {
	return x.total
}
