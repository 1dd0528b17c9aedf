package scan

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/ferncroft/helper-audit/internal/corpus"
)

func TestScanTemplate_AccessorCalls(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "states call single quotes",
			text: `{{ states('input_number.target_temp') | float }}`,
			want: []string{"input_number.target_temp"},
		},
		{
			name: "is_state double quotes",
			text: `{% if is_state("input_boolean.guest_mode", "on") %}yes{% endif %}`,
			want: []string{"input_boolean.guest_mode"},
		},
		{
			name: "state_attr with whitespace",
			text: `{{ state_attr( 'climate.living_room' , 'temperature' ) }}`,
			want: []string{"climate.living_room"},
		},
		{
			name: "multiple accessors",
			text: `{{ states('counter.visits') }} {{ has_value('timer.laundry') }}`,
			want: []string{"counter.visits", "timer.laundry"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits := ScanTemplate(corpus.Document{Path: "scripts.yaml", Text: tt.text})
			assertHitIDs(t, hits, tt.want)
			for _, h := range hits {
				if h.Source != SourceTemplate {
					t.Errorf("source = %q, want %q", h.Source, SourceTemplate)
				}
				if h.Confidence != ConfidenceTemplate {
					t.Errorf("confidence = %v, want %v", h.Confidence, ConfidenceTemplate)
				}
			}
		})
	}
}

func TestScanTemplate_DottedAccess(t *testing.T) {
	doc := corpus.Document{
		Path: "templates.yaml",
		Text: `{{ states.input_select.house_mode.state }}`,
	}
	hits := ScanTemplate(doc)
	assertHitIDs(t, hits, []string{"input_select.house_mode"})
}

func TestScanTemplate_BareLiteralDomainFilter(t *testing.T) {
	// value_json.power and trigger.entity_id look like entity ids but are
	// not helper-bearing domains; input_text.note is.
	doc := corpus.Document{
		Path: "sensors.yaml",
		Text: `{{ value_json.power }} {{ trigger.entity_id }} {{ 'input_text.note' }}`,
	}
	hits := ScanTemplate(doc)
	assertHitIDs(t, hits, []string{"input_text.note"})
}

func TestScanTemplate_NoMarkersNoHits(t *testing.T) {
	doc := corpus.Document{
		Path: "automations.yaml",
		Text: `entity_id: input_boolean.vacation`,
	}
	if hits := ScanTemplate(doc); hits != nil {
		t.Fatalf("hits = %v, want nil for plain document", hits)
	}
}

func TestScanTemplate_OneHitPerEntityPerDocument(t *testing.T) {
	doc := corpus.Document{
		Path: "scripts.yaml",
		Text: `{{ states('input_number.rate') }} {{ states('input_number.rate') }}`,
	}
	hits := ScanTemplate(doc)
	if len(hits) != 1 {
		t.Fatalf("len(hits) = %d, want 1", len(hits))
	}
}

func TestScanTemplate_ExcerptBounded(t *testing.T) {
	doc := corpus.Document{
		Path: "scripts.yaml",
		Text: strings.Repeat("x ", 200) + `{{ states('input_number.rate') }}` + strings.Repeat(" y", 200),
	}
	hits := ScanTemplate(doc)
	if len(hits) != 1 {
		t.Fatalf("len(hits) = %d, want 1", len(hits))
	}
	if len(hits[0].Excerpt) > maxExcerptLen {
		t.Errorf("excerpt length = %d, want <= %d", len(hits[0].Excerpt), maxExcerptLen)
	}
	if !strings.Contains(hits[0].Excerpt, "input_number.rate") {
		t.Errorf("excerpt %q does not contain the matched id", hits[0].Excerpt)
	}
}

func TestScanTemplate_ExcerptMultibyteSafe(t *testing.T) {
	// Padding and truncation land inside multibyte characters; the
	// excerpt must still be valid UTF-8 for the JSON report.
	doc := corpus.Document{
		Path: "scripts.yaml",
		Text: strings.Repeat("温度", 60) + `{{ states('input_number.rate') }}` + strings.Repeat("湿度", 60),
	}
	hits := ScanTemplate(doc)
	if len(hits) != 1 {
		t.Fatalf("len(hits) = %d, want 1", len(hits))
	}
	if !utf8.ValidString(hits[0].Excerpt) {
		t.Errorf("excerpt %q is not valid UTF-8", hits[0].Excerpt)
	}
	if len(hits[0].Excerpt) > maxExcerptLen {
		t.Errorf("excerpt length = %d, want <= %d", len(hits[0].Excerpt), maxExcerptLen)
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name string
		s    string
		max  int
		want string
	}{
		{name: "short unchanged", s: "abc", max: 10, want: "abc"},
		{name: "ascii cut", s: "abcdef", max: 4, want: "abcd"},
		{name: "boundary inside rune", s: "ab°C", max: 3, want: "ab"},
		{name: "boundary after rune", s: "ab°C", max: 4, want: "ab°"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateRunes(tt.s, tt.max)
			if got != tt.want {
				t.Errorf("truncateRunes(%q, %d) = %q, want %q", tt.s, tt.max, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncateRunes(%q, %d) = %q is not valid UTF-8", tt.s, tt.max, got)
			}
		})
	}
}

func TestHasTemplateMarkers(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{`{{ states('a.b') }}`, true},
		{`{% if x %}{% endif %}`, true},
		{`plain scalar`, false},
		{`unbalanced {{ only`, false},
	}
	for _, tt := range tests {
		if got := HasTemplateMarkers(tt.text); got != tt.want {
			t.Errorf("HasTemplateMarkers(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

// assertHitIDs checks the entity ids of hits against want, in order.
func assertHitIDs(t *testing.T, hits []Hit, want []string) {
	t.Helper()
	if len(hits) != len(want) {
		t.Fatalf("len(hits) = %d, want %d (%v)", len(hits), len(want), hits)
	}
	for i, id := range want {
		if hits[i].EntityID != id {
			t.Errorf("hits[%d].EntityID = %q, want %q", i, hits[i].EntityID, id)
		}
	}
}
