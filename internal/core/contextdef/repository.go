// Package contextdef loads the live context-dimension taxonomy: for every
// dimension key, the complete ordered set of valid value identifiers. The
// resolution engine treats these definitions as ground truth when proving
// partition completeness; it never infers value sets from the data itself.
package contextdef

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Repository exposes the loaded taxonomy.
type Repository interface {
	// Definitions returns dimension key -> ordered valid values.
	Definitions() map[string][]string

	// Hash returns the taxonomy version hash for a dimension. This is the
	// live-side context hash that cached data must match.
	Hash(key string) (string, bool)

	// ContextHashes returns the hash of every loaded dimension, in the
	// shape queries embed in their signature.
	ContextHashes() map[string]string
}

// rawDefinition is the on-disk YAML shape. Each file declares exactly one
// dimension at the top level.
type rawDefinition struct {
	Dimension string   `yaml:"dimension"`
	Values    []string `yaml:"values"`
}

// FileSystemRepository loads dimension definitions from *.yaml files in a
// directory. Definitions are loaded once at startup and cached in memory;
// no hot reload.
type FileSystemRepository struct {
	dir    string
	defs   map[string][]string
	hashes map[string]string
}

// NewFileSystemRepository creates a repository and eagerly loads all
// definitions from dir. Returns an error if any file is malformed or two
// files declare the same dimension.
func NewFileSystemRepository(dir string) (*FileSystemRepository, error) {
	repo := &FileSystemRepository{
		dir:    dir,
		defs:   make(map[string][]string),
		hashes: make(map[string]string),
	}
	if err := repo.load(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *FileSystemRepository) load() error {
	info, err := os.Stat(r.dir)
	if os.IsNotExist(err) {
		return nil // no taxonomy directory: zero dimensions configured
	}
	if err != nil {
		return fmt.Errorf("taxonomy dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("taxonomy path %q is not a directory", r.dir)
	}

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("reading taxonomy dir: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() || (!strings.HasSuffix(e.Name(), ".yaml") && !strings.HasSuffix(e.Name(), ".yml")) {
			continue
		}

		path := filepath.Join(r.dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading taxonomy file %s: %w", path, err)
		}

		var raw rawDefinition
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("parsing taxonomy file %s: %w", path, err)
		}
		if raw.Dimension == "" {
			continue // skip empty / comment-only files
		}

		if len(raw.Values) == 0 {
			return fmt.Errorf("dimension %q: values must not be empty", raw.Dimension)
		}
		seen := make(map[string]struct{}, len(raw.Values))
		for _, v := range raw.Values {
			if strings.TrimSpace(v) == "" {
				return fmt.Errorf("dimension %q: empty value identifier", raw.Dimension)
			}
			if _, dup := seen[v]; dup {
				return fmt.Errorf("dimension %q: duplicate value %q", raw.Dimension, v)
			}
			seen[v] = struct{}{}
		}

		if _, exists := r.defs[raw.Dimension]; exists {
			return fmt.Errorf("dimension %q: declared in multiple files", raw.Dimension)
		}

		r.defs[raw.Dimension] = raw.Values
		r.hashes[raw.Dimension] = versionHash(raw.Dimension, raw.Values)
	}
	return nil
}

// versionHash fingerprints a dimension's value set. Value order matters:
// reordering the taxonomy is a version change.
func versionHash(dimension string, values []string) string {
	h := sha256.New()
	h.Write([]byte(dimension))
	for _, v := range values {
		h.Write([]byte{0})
		h.Write([]byte(v))
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Definitions returns dimension key -> ordered valid values.
func (r *FileSystemRepository) Definitions() map[string][]string {
	out := make(map[string][]string, len(r.defs))
	for k, v := range r.defs {
		vals := make([]string, len(v))
		copy(vals, v)
		out[k] = vals
	}
	return out
}

// Hash returns the taxonomy version hash for a dimension.
func (r *FileSystemRepository) Hash(key string) (string, bool) {
	h, ok := r.hashes[key]
	return h, ok
}

// ContextHashes returns the hash of every loaded dimension.
func (r *FileSystemRepository) ContextHashes() map[string]string {
	out := make(map[string]string, len(r.hashes))
	for k, v := range r.hashes {
		out[k] = v
	}
	return out
}

// Len reports the number of loaded dimensions.
func (r *FileSystemRepository) Len() int {
	return len(r.defs)
}
