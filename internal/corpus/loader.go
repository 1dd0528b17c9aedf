package corpus

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Document is one configuration file held in memory.
type Document struct {
	// Path is the file's path relative to the corpus root.
	Path string

	// Text is the raw file content.
	Text string
}

// LoadError records a file that could not be read. Load errors never abort
// a run; they are carried through to the final report.
type LoadError struct {
	Path string `json:"path"`
	Err  string `json:"error"`
}

// skipFiles are configuration files that never contain entity references
// worth scanning, or that must not be read at all (secrets).
var skipFiles = map[string]struct{}{
	"secrets.yaml":       {},
	"known_devices.yaml": {},
}

// yamlExtensions are the file extensions included in the corpus.
var yamlExtensions = map[string]struct{}{
	".yaml": {},
	".yml":  {},
}

// Corpus is the in-memory set of configuration documents for one run,
// in deterministic (lexical path) order.
type Corpus struct {
	Documents []Document
	Errors    []LoadError
}

// Load reads every YAML configuration file under root into memory,
// recursing through package and blueprint subdirectories.
//
// Hidden directories (including the host's .storage) are excluded; dashboard
// storage is scanned separately with its own JSON walker.
//
// A single unreadable or missing file is recorded as a LoadError and loading
// continues. Only a completely unreadable root returns an error.
//
// Parameters:
//   - root: Configuration root directory (e.g. /config)
//
// Returns:
//   - *Corpus: Documents in lexical path order plus any per-file errors
//   - error: If root itself cannot be walked
func Load(root string) (*Corpus, error) {
	c := &Corpus{}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			// An unreadable subdirectory is a per-path error, not a run killer.
			if path == root {
				return walkErr
			}
			c.Errors = append(c.Errors, LoadError{Path: rel(root, path), Err: walkErr.Error()})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}

		if !includeFile(d.Name()) {
			return nil
		}

		data, readErr := os.ReadFile(path)
		if readErr != nil {
			c.Errors = append(c.Errors, LoadError{Path: rel(root, path), Err: readErr.Error()})
			return nil
		}

		c.Documents = append(c.Documents, Document{
			Path: rel(root, path),
			Text: string(data),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking config root %s: %w", root, err)
	}

	// WalkDir visits lexically, but be explicit: downstream determinism
	// depends on this ordering.
	sort.Slice(c.Documents, func(i, j int) bool {
		return c.Documents[i].Path < c.Documents[j].Path
	})

	return c, nil
}

// includeFile reports whether a file belongs in the corpus.
func includeFile(name string) bool {
	if _, skip := skipFiles[name]; skip {
		return false
	}
	_, ok := yamlExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// rel returns path relative to root, falling back to the absolute path when
// the two do not share a prefix.
func rel(root, path string) string {
	r, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return r
}

// LoadStorage reads UI-managed dashboard persistence documents from a Home
// Assistant .storage directory. Only lovelace files are loaded; the rest of
// storage (registries, auth, restore state) holds no dashboard references.
//
// A missing storage directory is not an error: YAML-mode installations have
// no UI dashboards to scan.
//
// Parameters:
//   - storageDir: The .storage directory path
//
// Returns:
//   - *Corpus: Dashboard documents in lexical name order plus per-file errors
//   - error: If the directory exists but cannot be listed
func LoadStorage(storageDir string) (*Corpus, error) {
	c := &Corpus{}

	entries, err := os.ReadDir(storageDir)
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading storage dir %s: %w", storageDir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !isDashboardFile(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		data, readErr := os.ReadFile(filepath.Join(storageDir, name))
		if readErr != nil {
			c.Errors = append(c.Errors, LoadError{Path: storagePath(name), Err: readErr.Error()})
			continue
		}
		c.Documents = append(c.Documents, Document{
			Path: storagePath(name),
			Text: string(data),
		})
	}

	return c, nil
}

// isDashboardFile reports whether a storage file holds dashboard state.
// Matches lovelace (the default dashboard), lovelace.<dashboard> and
// lovelace_dashboards/lovelace_resources metadata.
func isDashboardFile(name string) bool {
	return name == "lovelace" || strings.HasPrefix(name, "lovelace.") || strings.HasPrefix(name, "lovelace_")
}

// storagePath renders a storage file name as a report-facing path.
func storagePath(name string) string {
	return ".storage/" + name
}
