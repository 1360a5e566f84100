// Package library loads curated TF-target reference databases and prunes
// inferred networks against them.
package library

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/matsen/grnrefine/internal/network"
)

// File suffixes of the gzip-compressed library tables.
const (
	EdgesExtension = "_gene_attribute_edges.txt.gz"
	TFsExtension   = "_attribute_list_entries.txt.gz"
)

// Known library names. Each lives in a directory of the same name under the
// library root.
const (
	CHEA              = "CHEA"
	TRANSFACPredicted = "TRANSFACpredicted"
	TRANSFACCurated   = "TRANSFACcurated"
	ENCODE            = "ENCODE"
)

// CompanionLibrary is unioned with the requested library in "both" mode to
// widen TF coverage.
const CompanionLibrary = TRANSFACPredicted

// KnownLibraries lists the supported library names.
var KnownLibraries = []string{CHEA, TRANSFACPredicted, TRANSFACCurated, ENCODE}

var (
	// ErrLibraryNotFound is returned when no file matching a library name exists.
	ErrLibraryNotFound = errors.New("library file not found")
	// ErrMissingColumn is returned when a table lacks a required column.
	ErrMissingColumn = errors.New("missing required column")
	// ErrEmptyTable is returned when a table has no header row.
	ErrEmptyTable = errors.New("table has no header")
)

// Library is an immutable set of curated (source, target) gene pairs.
//
// In the curated tables the "target" column holds the regulating TF and the
// "source" column the regulated gene, so a network edge (TF, target) matches
// a library pair when TF == pair.Target and target == pair.Source.
type Library struct {
	pairs map[Interaction]bool
	order []Interaction
}

// Interaction is one row of a library table.
type Interaction struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// New builds a library from interactions, dropping duplicates.
func New(rows []Interaction) *Library {
	lib := &Library{pairs: make(map[Interaction]bool, len(rows))}
	for _, r := range rows {
		lib.add(r)
	}
	return lib
}

func (l *Library) add(r Interaction) {
	if l.pairs[r] {
		return
	}
	l.pairs[r] = true
	l.order = append(l.order, r)
}

// Len returns the number of distinct interactions.
func (l *Library) Len() int {
	return len(l.order)
}

// Interactions returns the distinct interactions in load order.
func (l *Library) Interactions() []Interaction {
	out := make([]Interaction, len(l.order))
	copy(out, l.order)
	return out
}

// Contains reports whether the network pair (tf, target) is curated.
func (l *Library) Contains(tf, target string) bool {
	return l.pairs[Interaction{Source: target, Target: tf}]
}

// Union returns a new library holding the interactions of all inputs.
func Union(libs ...*Library) *Library {
	out := &Library{pairs: make(map[Interaction]bool)}
	for _, lib := range libs {
		if lib == nil {
			continue
		}
		for _, r := range lib.order {
			out.add(r)
		}
	}
	return out
}

// Filter returns the edges of net whose (TF, target) pair is curated in lib.
// Row order and identities are preserved.
func Filter(net network.Network, lib *Library) network.Network {
	return net.Where(func(e network.Edge) bool {
		return lib.Contains(e.TF, e.Target)
	})
}

// Locate searches root/name top-down and returns the first regular file whose
// lower-cased name ends with ext. The files of a directory are checked, in
// lexical order, before any of its subdirectories.
func Locate(root, name, ext string) (string, error) {
	start := filepath.Join(root, name)
	found, err := locateIn(start, strings.ToLower(ext))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("searching %s: %w", start, err)
	}
	if found == "" {
		return "", fmt.Errorf("%w: no *%s under %s", ErrLibraryNotFound, ext, start)
	}
	return found, nil
}

func locateIn(dir, ext string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var subdirs []string
	for _, d := range entries {
		if d.IsDir() {
			subdirs = append(subdirs, filepath.Join(dir, d.Name()))
			continue
		}
		if d.Type().IsRegular() && strings.HasSuffix(strings.ToLower(d.Name()), ext) {
			return filepath.Join(dir, d.Name()), nil
		}
	}
	for _, sub := range subdirs {
		found, err := locateIn(sub, ext)
		if err != nil {
			return "", err
		}
		if found != "" {
			return found, nil
		}
	}
	return "", nil
}

// Read parses a whitespace-delimited library table. The header names the
// columns and the first data row repeats header metadata, so it is dropped.
func Read(r io.Reader) (*Library, error) {
	header, rows, err := readTable(r, strings.Fields)
	if err != nil {
		return nil, err
	}

	srcIdx, err := columnIndex(header, "source")
	if err != nil {
		return nil, err
	}
	tgtIdx, err := columnIndex(header, "target")
	if err != nil {
		return nil, err
	}

	lib := &Library{pairs: make(map[Interaction]bool, len(rows))}
	for i, fields := range rows {
		if i == 0 {
			continue
		}
		if srcIdx >= len(fields) || tgtIdx >= len(fields) {
			return nil, fmt.Errorf("row %d: expected at least %d fields, got %d", i+2, max(srcIdx, tgtIdx)+1, len(fields))
		}
		lib.add(Interaction{Source: fields[srcIdx], Target: fields[tgtIdx]})
	}
	return lib, nil
}

// Open reads a gzip-compressed library table from disk.
func Open(path string) (*Library, error) {
	rc, err := openGzip(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	lib, err := Read(rc)
	if err != nil {
		return nil, fmt.Errorf("reading library %s: %w", path, err)
	}
	return lib, nil
}

// Load locates and reads the named library under dir. When both is set the
// companion library is loaded as well and the two are unioned.
func Load(dir, name string, both bool) (*Library, error) {
	names := []string{name}
	if both {
		names = append(names, CompanionLibrary)
	}

	libs := make([]*Library, 0, len(names))
	for _, n := range names {
		path, err := Locate(dir, n, EdgesExtension)
		if err != nil {
			return nil, err
		}
		lib, err := Open(path)
		if err != nil {
			return nil, err
		}
		libs = append(libs, lib)
	}
	if len(libs) == 1 {
		return libs[0], nil
	}
	return Union(libs...), nil
}

// LoadTFs reads the TF gene symbols listed by the named library (and the
// companion library when both is set). Symbols are unique and in file order.
func LoadTFs(dir, name string, both bool) ([]string, error) {
	names := []string{name}
	if both {
		names = append(names, CompanionLibrary)
	}

	seen := make(map[string]bool)
	var tfs []string
	for _, n := range names {
		path, err := Locate(dir, n, TFsExtension)
		if err != nil {
			return nil, err
		}
		symbols, err := readTFList(path)
		if err != nil {
			return nil, err
		}
		for _, s := range symbols {
			if !seen[s] {
				seen[s] = true
				tfs = append(tfs, s)
			}
		}
	}
	return tfs, nil
}

func readTFList(path string) ([]string, error) {
	rc, err := openGzip(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	header, rows, err := readTable(rc, splitTabs)
	if err != nil {
		return nil, fmt.Errorf("reading TF list %s: %w", path, err)
	}
	idx, err := columnIndex(header, "GeneSym")
	if err != nil {
		return nil, fmt.Errorf("reading TF list %s: %w", path, err)
	}

	symbols := make([]string, 0, len(rows))
	for _, fields := range rows {
		if idx < len(fields) && fields[idx] != "" {
			symbols = append(symbols, fields[idx])
		}
	}
	return symbols, nil
}

type gzipFile struct {
	*gzip.Reader
	f *os.File
}

func (g gzipFile) Close() error {
	gerr := g.Reader.Close()
	ferr := g.f.Close()
	if gerr != nil {
		return gerr
	}
	return ferr
}

func openGzip(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decompressing %s: %w", path, err)
	}
	return gzipFile{Reader: zr, f: f}, nil
}

func splitTabs(line string) []string {
	return strings.Split(line, "\t")
}

// readTable splits a text table into its header and data rows. Blank lines
// are skipped.
func readTable(r io.Reader, split func(string) []string) ([]string, [][]string, error) {
	scanner := bufio.NewScanner(r)
	const maxCapacity = 1024 * 1024
	scanner.Buffer(make([]byte, maxCapacity), maxCapacity)

	var header []string
	var rows [][]string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if header == nil {
			header = split(line)
			continue
		}
		rows = append(rows, split(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	if header == nil {
		return nil, nil, ErrEmptyTable
	}
	return header, rows, nil
}

func columnIndex(header []string, name string) (int, error) {
	for i, h := range header {
		if strings.TrimSpace(h) == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrMissingColumn, name)
}
