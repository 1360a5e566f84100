// Package config handles project configuration.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/matsen/grnrefine/internal/library"
	"github.com/matsen/grnrefine/internal/search"
)

// Config represents project configuration stored in .grn/config.json.
type Config struct {
	LibraryName              string       `json:"library_name"`                // Curated database to prune against
	LibraryDir               string       `json:"library_dir,omitempty"`       // Root holding one folder per library
	UseBothLibraries         bool         `json:"use_both_libraries"`          // Union with TRANSFACpredicted
	UseRegexOutputs          bool         `json:"use_regex_outputs"`           // Outputs by gene-family pattern
	Thresholds               search.Rules `json:"thresholds"`                  // Forward/backward admission rules
	IncludeIntermediateEdges bool         `json:"include_intermediate_edges"`  // Keep TF-TF bridge edges
	Inputs                   []string     `json:"inputs,omitempty"`            // Empty means endpoint defaults
	Outputs                  []string     `json:"outputs,omitempty"`           // Empty means endpoint defaults
	OutputPatterns           []string     `json:"output_patterns,omitempty"`   // Empty means endpoint defaults
}

// Layout of the .grn directory.
const (
	GRNDir     = ".grn"
	ConfigFile = "config.json"
	RunsFile   = "runs.jsonl"
	CacheDir   = "cache"
	DBFile     = "runs.db"
)

// Default returns the configuration the refinement was tuned with.
func Default() *Config {
	return &Config{
		LibraryName:              library.CHEA,
		UseBothLibraries:         true,
		UseRegexOutputs:          false,
		Thresholds:               search.DefaultRules,
		IncludeIntermediateEdges: false,
	}
}

// ErrEmptyLibraryName is returned by Validate when no library is named.
var ErrEmptyLibraryName = errors.New("library_name is required")

// Validate checks the option values.
func (c *Config) Validate() error {
	if c.LibraryName == "" {
		return ErrEmptyLibraryName
	}
	return c.Thresholds.Validate()
}

// ErrNotInProject is returned by FindProject when no ancestor holds a .grn
// directory.
var ErrNotInProject = errors.New("not in a grn project (no .grn directory found)")

// GRNPath is root/.grn.
func GRNPath(root string) string { return filepath.Join(root, GRNDir) }

// ConfigPath is root/.grn/config.json.
func ConfigPath(root string) string { return filepath.Join(GRNPath(root), ConfigFile) }

// RunsPath is root/.grn/runs.jsonl, the source of truth for recorded runs.
func RunsPath(root string) string { return filepath.Join(GRNPath(root), RunsFile) }

// CachePath is the directory holding the rebuildable SQLite cache.
func CachePath(root string) string { return filepath.Join(GRNPath(root), CacheDir) }

func DBPath(root string) string { return filepath.Join(CachePath(root), DBFile) }

// IsProject reports whether root/.grn is a directory.
func IsProject(root string) bool {
	info, err := os.Stat(GRNPath(root))
	return err == nil && info.IsDir()
}

// FindProject returns the nearest ancestor of start (start included) that is
// a grn project.
func FindProject(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", start, err)
	}
	for ; ; dir = filepath.Dir(dir) {
		if IsProject(dir) {
			return dir, nil
		}
		if dir == filepath.Dir(dir) {
			return "", ErrNotInProject
		}
	}
}

// Load reads .grn/config.json. Fields missing from the file keep their
// defaults.
func Load(root string) (*Config, error) {
	f, err := os.Open(ConfigPath(root))
	if err != nil {
		return nil, fmt.Errorf("opening project config: %w", err)
	}
	defer f.Close()

	cfg := Default()
	if err := json.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", ConfigPath(root), err)
	}
	return cfg, nil
}

// Save overwrites .grn/config.json with indented JSON.
func (c *Config) Save(root string) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encoding project config: %w", err)
	}
	return os.WriteFile(ConfigPath(root), buf.Bytes(), 0644)
}

// ValidateLibraryDir accepts an empty path (resolved later from the
// environment or global config) or an existing directory.
func ValidateLibraryDir(path string) error {
	if path == "" {
		return nil
	}
	dir := ExpandPath(path)
	info, err := os.Stat(dir)
	switch {
	case err != nil:
		return fmt.Errorf("library directory %s: %w", dir, err)
	case !info.IsDir():
		return fmt.Errorf("library directory %s is not a directory", dir)
	}
	return nil
}

// ExpandPath replaces a leading ~ with the home directory.
func ExpandPath(path string) string {
	rest, ok := strings.CutPrefix(path, "~")
	if !ok {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, rest)
}
