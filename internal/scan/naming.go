package scan

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ferncroft/helper-audit/internal/helper"
)

// NamingOptions controls the naming-pattern inference pass.
type NamingOptions struct {
	// Enabled gates the whole pass. When false InferNaming returns nil.
	Enabled bool

	// MinTokenLength drops short tokens that match too freely.
	MinTokenLength int

	// StopTokens are excluded regardless of length. Compared case-folded.
	StopTokens []string
}

// DefaultNamingOptions returns the options used when the configuration
// file does not override them.
func DefaultNamingOptions() NamingOptions {
	return NamingOptions{
		Enabled:        true,
		MinTokenLength: 4,
		StopTokens:     []string{"the", "and", "mode", "state", "status", "sensor", "helper"},
	}
}

// InferNaming correlates helper object IDs with names declared in a
// document. Names are the alias/id/name scalars a structural scan
// collected, plus the document's base file name. A helper whose object
// ID shares a significant token with any of those names receives a
// single low-confidence hit for the document.
//
// Parameters:
//   - path: corpus-relative path of the document the names came from.
//   - names: declared names collected by ScanYAML.
//   - helpers: discovered helper entities to test against.
//   - opts: tokenisation controls.
//
// Returns:
//   - []Hit: at most one hit per helper, in helper order. Nil when the
//     pass is disabled or nothing correlates.
func InferNaming(path string, names []string, helpers []helper.Entity, opts NamingOptions) []Hit {
	if !opts.Enabled {
		return nil
	}

	stop := make(map[string]struct{}, len(opts.StopTokens))
	for _, t := range opts.StopTokens {
		stop[strings.ToLower(t)] = struct{}{}
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	sources := make(map[string]map[string]struct{})
	for _, name := range append([]string{base}, names...) {
		toks := tokenise(name, opts.MinTokenLength, stop)
		if len(toks) == 0 {
			continue
		}
		set, ok := sources[name]
		if !ok {
			set = make(map[string]struct{}, len(toks))
			sources[name] = set
		}
		for _, t := range toks {
			set[t] = struct{}{}
		}
	}
	if len(sources) == 0 {
		return nil
	}

	sourceNames := make([]string, 0, len(sources))
	for name := range sources {
		sourceNames = append(sourceNames, name)
	}
	sort.Strings(sourceNames)

	var hits []Hit
	for _, h := range helpers {
		token, source, ok := firstSharedToken(h.ObjectID, sourceNames, sources, opts.MinTokenLength, stop)
		if !ok {
			continue
		}
		hits = append(hits, Hit{
			EntityID:   h.EntityID,
			Source:     SourceNamingPattern,
			Path:       path,
			Excerpt:    fmt.Sprintf("shared token %q with %q", token, source),
			Confidence: ConfidenceNaming,
		})
	}
	return hits
}

// firstSharedToken finds the lexically first helper token present in
// any source name's token set, so repeated runs report the same match.
func firstSharedToken(objectID string, sourceNames []string, sources map[string]map[string]struct{}, minLen int, stop map[string]struct{}) (token, source string, ok bool) {
	toks := tokenise(objectID, minLen, stop)
	sort.Strings(toks)
	for _, t := range toks {
		for _, name := range sourceNames {
			if _, found := sources[name][t]; found {
				return t, name, true
			}
		}
	}
	return "", "", false
}

// tokenise lowercases s, splits on non-alphanumeric runs and filters
// tokens below minLen or present in stop.
func tokenise(s string, minLen int, stop map[string]struct{}) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	var out []string
	for _, f := range fields {
		if len(f) < minLen {
			continue
		}
		if _, skip := stop[f]; skip {
			continue
		}
		out = append(out, f)
	}
	return out
}
