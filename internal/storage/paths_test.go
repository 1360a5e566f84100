package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEncodePaths(t *testing.T) {
	sd := 0.5
	paths := []PathRecord{
		{Path: []string{"A", "B", "C"}, Total: 3, SD: &sd, Mean: 1, CV: &sd, Input: "A", Output: "C", TF: "B"},
		{Path: []string{"A", "C"}, Total: 10, SD: nil, Mean: 5, CV: nil, Input: "A", Output: "C", TF: "A"},
	}

	var buf bytes.Buffer
	if err := EncodePaths(&buf, paths); err != nil {
		t.Fatalf("EncodePaths() error = %v", err)
	}

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), buf.String())
	}
	wantHeader := "path\timportance_total\timportance_sd\timportance_mean\timportance_cv\tpath_string\tinput\toutput\tTF"
	if lines[0] != wantHeader {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "A,B,C\t3\t0.5\t1\t0.5\tA->B->C\tA\tC\tB" {
		t.Errorf("row 1 = %q", lines[1])
	}
	if !strings.Contains(lines[2], "\tNaN\t5\tNaN\t") {
		t.Errorf("row 2 should carry NaN statistics: %q", lines[2])
	}
}

func TestWritePaths(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paths.tsv")
	if err := WritePaths(path, nil); err != nil {
		t.Fatalf("WritePaths() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(string(data), "\n") != 1 {
		t.Errorf("empty path table should hold only the header: %q", data)
	}
}
