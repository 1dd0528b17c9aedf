// Package scan extracts entity references from a configuration corpus.
//
// Four passes contribute evidence, each with its own confidence weight:
// structural YAML scanning (plain scalar entity IDs), template extraction
// (Jinja state accessors over raw file text), dashboard scanning
// (Lovelace JSON from storage) and naming-pattern inference (shared
// tokens between helper object IDs and declared names). Hits from all
// passes accumulate in an Index keyed by entity ID, which the analysis
// layer consumes to classify each helper.
//
// Scalar values containing template markers are skipped by the
// structural pass and left to the template extractor, so a reference
// inside an expression is counted once with template confidence rather
// than twice.
package scan
