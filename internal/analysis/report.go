package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Artifact file names. These are the report contract; consumers (the
// deletion runner, dashboards, humans) address artifacts by these names.
const (
	ArtifactAnalysis   = "helper_analysis.json"
	ArtifactSummary    = "helper_summary.txt"
	ArtifactOrphanList = "orphaned_helpers.txt"
	ArtifactReviewCard = "review_card.json"
)

// commentMarker prefixes a kept line in the orphan action list.
const commentMarker = "#"

// Artifact is one named report blob.
type Artifact struct {
	Name string
	Data []byte
}

// Sink receives report artifacts. Injected so report generation stays a
// pure function of the result.
type Sink interface {
	Store(name string, data []byte) error
}

// DirSink writes artifacts into a directory.
type DirSink struct {
	dir string
}

// NewDirSink returns a sink writing into dir, creating it when missing.
func NewDirSink(dir string) *DirSink {
	return &DirSink{dir: dir}
}

// Store writes one artifact to the sink's directory.
func (s *DirSink) Store(name string, data []byte) error {
	if err := os.MkdirAll(s.dir, 0750); err != nil {
		return fmt.Errorf("creating reports directory: %w", err)
	}
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

// Dir returns the sink's target directory.
func (s *DirSink) Dir() string {
	return s.dir
}

// BuildArtifacts renders every report artifact for a result. Pure: the
// same result yields byte-identical artifacts.
//
// Returns:
//   - []Artifact: All four artifacts, in fixed order
//   - error: If JSON marshalling fails
func BuildArtifacts(result *Result) ([]Artifact, error) {
	analysisDoc, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling analysis document: %w", err)
	}
	analysisDoc = append(analysisDoc, '\n')

	card, err := buildReviewCard(result)
	if err != nil {
		return nil, fmt.Errorf("marshalling review card: %w", err)
	}

	return []Artifact{
		{Name: ArtifactAnalysis, Data: analysisDoc},
		{Name: ArtifactSummary, Data: buildSummary(result)},
		{Name: ArtifactOrphanList, Data: buildOrphanList(result)},
		{Name: ArtifactReviewCard, Data: card},
	}, nil
}

// WriteArtifacts renders and stores every artifact for a result.
func WriteArtifacts(result *Result, sink Sink) error {
	artifacts, err := BuildArtifacts(result)
	if err != nil {
		return err
	}
	for _, a := range artifacts {
		if err := sink.Store(a.Name, a.Data); err != nil {
			return err
		}
	}
	return nil
}

// buildSummary renders the human-readable run summary.
func buildSummary(result *Result) []byte {
	var b bytes.Buffer

	fmt.Fprintf(&b, "Helper analysis summary\n")
	fmt.Fprintf(&b, "Run:  %s\n", result.RunID)
	fmt.Fprintf(&b, "Time: %s\n\n", result.Timestamp.Format(time.RFC3339))

	fmt.Fprintf(&b, "Classification:\n")
	for _, c := range []Classification{ActivelyUsed, DashboardOnly, TrulyOrphaned} {
		fmt.Fprintf(&b, "  %-16s %d\n", c, result.Counts.ByClassification[c])
	}
	fmt.Fprintf(&b, "  %-16s %d\n\n", "total", result.Counts.Total)

	fmt.Fprintf(&b, "By domain:\n")
	domains := make([]string, 0, len(result.Counts.ByDomain))
	for d := range result.Counts.ByDomain {
		domains = append(domains, d)
	}
	sort.Strings(domains)
	for _, d := range domains {
		fmt.Fprintf(&b, "  %-16s %d\n", d, result.Counts.ByDomain[d])
	}

	manual := 0
	for _, f := range result.Helpers {
		if f.RequiresManualRemoval && f.Classification != ActivelyUsed {
			manual++
		}
	}
	if manual > 0 {
		fmt.Fprintf(&b, "\nRequires manual config removal: %d (template-type)\n", manual)
	}

	if len(result.LoadErrors) > 0 {
		fmt.Fprintf(&b, "\nFiles with errors:\n")
		for _, le := range result.LoadErrors {
			fmt.Fprintf(&b, "  %s: %s\n", le.Path, le.Err)
		}
	}

	return b.Bytes()
}

// buildOrphanList renders the editable action list. Plain lines are
// deletion candidates; a line prefixed with the comment marker is kept.
// Dashboard-only and template-type helpers start commented out so
// deleting them is always an explicit user decision.
func buildOrphanList(result *Result) []byte {
	var b bytes.Buffer

	fmt.Fprintf(&b, "# Orphaned helpers - review before deletion.\n")
	fmt.Fprintf(&b, "# A line starting with '#' is kept. Remove the marker to mark an entity\n")
	fmt.Fprintf(&b, "# for deletion, or add one to protect it.\n")
	fmt.Fprintf(&b, "# Generated: %s (run %s)\n\n", result.Timestamp.Format(time.RFC3339), result.RunID)

	var manual []Finding
	for _, f := range result.Orphans() {
		if f.RequiresManualRemoval {
			manual = append(manual, f)
			continue
		}
		fmt.Fprintf(&b, "%s  %s\n", f.Entity.EntityID, annotation(f))
	}

	dashboardOnly := result.DashboardOnly()
	if len(dashboardOnly) > 0 {
		fmt.Fprintf(&b, "\n# Dashboard-only helpers. Uncomment to include in deletion.\n")
		for _, f := range dashboardOnly {
			if f.RequiresManualRemoval {
				manual = append(manual, f)
				continue
			}
			fmt.Fprintf(&b, "# %s  %s\n", f.Entity.EntityID, annotation(f))
		}
	}

	if len(manual) > 0 {
		fmt.Fprintf(&b, "\n# Requires manual config removal (template-type), not deletable here:\n")
		for _, f := range manual {
			fmt.Fprintf(&b, "# %s  %s\n", f.Entity.EntityID, annotation(f))
		}
	}

	return b.Bytes()
}

// annotation renders the trailing comment carrying name and last state.
func annotation(f Finding) string {
	state := "unknown"
	if f.Entity.State != nil {
		state = *f.Entity.State
	}
	if f.Entity.FriendlyName != "" {
		return fmt.Sprintf("# %s (last state: %s)", f.Entity.FriendlyName, state)
	}
	return fmt.Sprintf("# (last state: %s)", state)
}

// reviewCard mirrors the dashboard card document shape: a two-column
// stack of markdown cards, orphaned on the left, dashboard-only on the
// right.
type reviewCard struct {
	Type  string           `json:"type"`
	Title string           `json:"title"`
	Cards []reviewCardCard `json:"cards"`
}

type reviewCardCard struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

func buildReviewCard(result *Result) ([]byte, error) {
	card := reviewCard{
		Type:  "horizontal-stack",
		Title: "Helper audit",
		Cards: []reviewCardCard{
			{
				Type:    "markdown",
				Title:   "Truly orphaned",
				Content: cardContent(result.Orphans()),
			},
			{
				Type:    "markdown",
				Title:   "Dashboard only",
				Content: cardContent(result.DashboardOnly()),
			},
		},
	}

	data, err := json.MarshalIndent(card, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func cardContent(findings []Finding) string {
	if len(findings) == 0 {
		return "None found."
	}
	var b bytes.Buffer
	for _, f := range findings {
		fmt.Fprintf(&b, "- `%s`", f.Entity.EntityID)
		if f.RequiresManualRemoval {
			fmt.Fprintf(&b, " (manual removal)")
		}
		fmt.Fprintf(&b, "\n")
	}
	return b.String()
}
