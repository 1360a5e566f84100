package library

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/matsen/grnrefine/internal/network"
)

const chea = `source	source_desc	source_id	target	target_desc	target_id	weight
GeneSym	na	na	na	na	na	na
JUN	na	3725	STAT3	na	na	1.0
FOS	na	2353	STAT3	na	na	1.0
MYC	na	4609	JUN	na	na	1.0
`

const transfac = `source	source_desc	source_id	target	target_desc	target_id	weight
GeneSym	na	na	na	na	na	na
JUN	na	3725	STAT3	na	na	1.0
COL1A1	na	1277	SMAD3	na	na	1.0
`

const tfList = "GeneSym\tGeneID\nSTAT3\t6774\nJUN\t3725\n\nSTAT3\t6774\n"

// writeGzip writes content gzip-compressed to dir/name/file.
func writeGzip(t *testing.T, dir, name, file, content string) string {
	t.Helper()
	sub := filepath.Join(dir, name)
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(sub, file)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := gzip.NewWriter(f)
	if _, err := zw.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func setupLibraries(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeGzip(t, dir, CHEA, "chea"+EdgesExtension, chea)
	writeGzip(t, dir, TRANSFACPredicted, "transfac"+EdgesExtension, transfac)
	writeGzip(t, dir, CHEA, "chea"+TFsExtension, tfList)
	writeGzip(t, dir, TRANSFACPredicted, "transfac"+TFsExtension, "GeneSym\nSMAD3\nJUN\n")
	return dir
}

func TestRead_DropsHeaderArtifact(t *testing.T) {
	lib, err := Read(strings.NewReader(chea))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if lib.Len() != 3 {
		t.Errorf("Len() = %d, want 3", lib.Len())
	}
	if lib.Contains("na", "GeneSym") {
		t.Error("header artifact row must be dropped")
	}
}

func TestRead_MissingColumn(t *testing.T) {
	_, err := Read(strings.NewReader("gene\ttf\nA\tB\n"))
	if !errors.Is(err, ErrMissingColumn) {
		t.Errorf("Read() error = %v, want ErrMissingColumn", err)
	}
}

func TestRead_Empty(t *testing.T) {
	_, err := Read(strings.NewReader(""))
	if !errors.Is(err, ErrEmptyTable) {
		t.Errorf("Read() error = %v, want ErrEmptyTable", err)
	}
}

func TestLibrary_ContainsIsReversed(t *testing.T) {
	lib := New([]Interaction{{Source: "JUN", Target: "STAT3"}})

	tests := []struct {
		tf, target string
		want       bool
	}{
		{"STAT3", "JUN", true},
		{"JUN", "STAT3", false},
		{"stat3", "JUN", false},
		{"STAT3", "FOS", false},
	}
	for _, tt := range tests {
		if got := lib.Contains(tt.tf, tt.target); got != tt.want {
			t.Errorf("Contains(%q, %q) = %v, want %v", tt.tf, tt.target, got, tt.want)
		}
	}
}

func TestUnion_Deduplicates(t *testing.T) {
	a := New([]Interaction{{"JUN", "STAT3"}, {"FOS", "STAT3"}})
	b := New([]Interaction{{"JUN", "STAT3"}, {"COL1A1", "SMAD3"}})
	u := Union(a, nil, b)
	if u.Len() != 3 {
		t.Errorf("Union Len() = %d, want 3", u.Len())
	}
	got := u.Interactions()
	if got[2] != (Interaction{"COL1A1", "SMAD3"}) {
		t.Errorf("Union order = %v", got)
	}
}

func TestFilter(t *testing.T) {
	lib := New([]Interaction{{"JUN", "STAT3"}, {"MYC", "JUN"}})
	net := network.FromRows([]network.Row{
		{"STAT3", "JUN", 3},
		{"STAT3", "FOS", 1},
		{"JUN", "MYC", 2},
		{"MYC", "JUN", 2},
	})

	got := Filter(net, lib)
	if len(got) != 2 {
		t.Fatalf("Filter returned %d edges, want 2: %v", len(got), got)
	}
	if got[0].ID != 0 || got[1].ID != 2 {
		t.Errorf("Filter must preserve row identities, got %v", got)
	}
}

func TestFilter_Idempotent(t *testing.T) {
	lib, err := Read(strings.NewReader(chea))
	if err != nil {
		t.Fatal(err)
	}
	net := network.FromRows([]network.Row{
		{"STAT3", "JUN", 3},
		{"STAT3", "FOS", 1},
		{"JUN", "MYC", 2},
		{"SMAD3", "COL1A1", 4},
	})

	once := Filter(net, lib)
	twice := Filter(once, lib)
	if len(once) != len(twice) {
		t.Fatalf("second filter changed size: %d -> %d", len(once), len(twice))
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Errorf("row %d changed: %v -> %v", i, once[i], twice[i])
		}
	}
}

func TestLocate(t *testing.T) {
	dir := setupLibraries(t)

	path, err := Locate(dir, CHEA, EdgesExtension)
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if filepath.Base(path) != "chea"+EdgesExtension {
		t.Errorf("Locate returned %s", path)
	}
}

func TestLocate_TopLevelBeforeSubdirectories(t *testing.T) {
	dir := t.TempDir()
	writeGzip(t, filepath.Join(dir, CHEA), "a_old", "x"+EdgesExtension, chea)
	writeGzip(t, dir, CHEA, "z"+EdgesExtension, chea)

	path, err := Locate(dir, CHEA, EdgesExtension)
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if want := filepath.Join(dir, CHEA, "z"+EdgesExtension); path != want {
		t.Errorf("Locate() = %s, want %s", path, want)
	}
}

func TestLocate_NotFound(t *testing.T) {
	dir := setupLibraries(t)

	tests := []struct {
		name string
		lib  string
		ext  string
	}{
		{"missing directory", ENCODE, EdgesExtension},
		{"missing extension", CHEA, ".csv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Locate(dir, tt.lib, tt.ext)
			if !errors.Is(err, ErrLibraryNotFound) {
				t.Errorf("Locate() error = %v, want ErrLibraryNotFound", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := setupLibraries(t)

	single, err := Load(dir, CHEA, false)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if single.Len() != 3 {
		t.Errorf("single Len() = %d, want 3", single.Len())
	}

	both, err := Load(dir, CHEA, true)
	if err != nil {
		t.Fatalf("Load(both) failed: %v", err)
	}
	if both.Len() != 4 {
		t.Errorf("both Len() = %d, want 4", both.Len())
	}
	if !both.Contains("SMAD3", "COL1A1") {
		t.Error("companion library interactions missing from union")
	}
}

func TestLoad_MissingLibrary(t *testing.T) {
	dir := setupLibraries(t)
	if _, err := Load(dir, ENCODE, false); !errors.Is(err, ErrLibraryNotFound) {
		t.Errorf("Load() error = %v, want ErrLibraryNotFound", err)
	}
}

func TestLoadTFs(t *testing.T) {
	dir := setupLibraries(t)

	tfs, err := LoadTFs(dir, CHEA, true)
	if err != nil {
		t.Fatalf("LoadTFs failed: %v", err)
	}
	want := []string{"STAT3", "JUN", "SMAD3"}
	if len(tfs) != len(want) {
		t.Fatalf("LoadTFs = %v, want %v", tfs, want)
	}
	for i := range want {
		if tfs[i] != want[i] {
			t.Errorf("LoadTFs[%d] = %q, want %q", i, tfs[i], want[i])
		}
	}
}
