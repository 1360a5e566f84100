package main

import (
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/klauspost/compress/gzip"
)

var (
	grnBinary     string
	grnBinaryOnce sync.Once
	grnBinaryErr  error
)

// getGRNBinary builds the grn binary once and returns its path.
func getGRNBinary(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping binary integration test in short mode")
	}
	grnBinaryOnce.Do(func() {
		_, filename, _, ok := runtime.Caller(0)
		if !ok {
			grnBinaryErr = os.ErrInvalid
			return
		}
		moduleRoot := filepath.Dir(filepath.Dir(filepath.Dir(filename)))

		tmpDir, err := os.MkdirTemp("", "grn-test-*")
		if err != nil {
			grnBinaryErr = err
			return
		}
		grnBinary = filepath.Join(tmpDir, "grn")

		cmd := exec.Command("go", "build", "-o", grnBinary, "./cmd/grn")
		cmd.Dir = moduleRoot
		if output, err := cmd.CombinedOutput(); err != nil {
			grnBinaryErr = &buildError{output: string(output), err: err}
		}
	})
	if grnBinaryErr != nil {
		t.Fatalf("failed to build grn: %v", grnBinaryErr)
	}
	return grnBinary
}

type buildError struct {
	output string
	err    error
}

func (e *buildError) Error() string {
	return e.err.Error() + ": " + e.output
}

const libraryHeader = "source\tsource_desc\tsource_id\ttarget\ttarget_desc\ttarget_id\tweight\n" +
	"GeneSym\tna\tna\tna\tna\tna\tna\n"

func writeGzipFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
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
}

// setupTestProject creates a directory holding a network, a CHEA and a
// TRANSFACpredicted library, and a global config pointing at both.
func setupTestProject(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()

	network := "TF\ttarget\timportance\n" +
		"A\tB\t5\n" +
		"B\tC\t0.2\n" +
		"B\tD\t6\n" +
		"D\tE\t7\n" +
		"Q\tE\t3\n"
	if err := os.WriteFile(filepath.Join(tmpDir, "net.tsv"), []byte(network), 0644); err != nil {
		t.Fatal(err)
	}

	libDir := filepath.Join(tmpDir, "libs")
	writeGzipFile(t, filepath.Join(libDir, "CHEA", "chea_gene_attribute_edges.txt.gz"), libraryHeader+
		"B\tna\t1\tA\tna\tna\t1.0\n"+
		"C\tna\t1\tB\tna\tna\t1.0\n")
	writeGzipFile(t, filepath.Join(libDir, "TRANSFACpredicted", "tp_gene_attribute_edges.txt.gz"), libraryHeader+
		"D\tna\t1\tB\tna\tna\t1.0\n"+
		"E\tna\t1\tD\tna\tna\t1.0\n")

	configDir := filepath.Join(tmpDir, "config", "grn")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatal(err)
	}
	globalConfig := "project_path: " + tmpDir + "\nlibrary_dir: " + libDir + "\nlog_mode: quiet\n"
	if err := os.WriteFile(filepath.Join(configDir, "config.yml"), []byte(globalConfig), 0644); err != nil {
		t.Fatal(err)
	}

	return tmpDir
}

// runGRN executes grn in dir and returns its stdout.
func runGRN(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(getGRNBinary(t), args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"XDG_CONFIG_HOME="+filepath.Join(dir, "config"),
		"GRN_LIBRARY_DIR=",
	)
	output, err := cmd.Output()
	return string(output), err
}

var scenarioArgs = []string{
	"--inputs", "A", "--outputs", "E",
	"--intermediates", "--absolute", "1", "--quantile", "0.5",
}

func TestRefineRecordAndQuery(t *testing.T) {
	dir := setupTestProject(t)

	if output, err := runGRN(t, dir, "init"); err != nil {
		t.Fatalf("init failed: %v\nOutput: %s", err, output)
	}

	output, err := runGRN(t, dir, append([]string{"refine", "net.tsv"}, scenarioArgs...)...)
	if err != nil {
		t.Fatalf("refine failed: %v\nOutput: %s", err, output)
	}
	var refined RefineResponse
	if err := json.Unmarshal([]byte(output), &refined); err != nil {
		t.Fatalf("failed to parse JSON output: %v\nOutput: %s", err, output)
	}
	if refined.RunID == "" {
		t.Error("run should be recorded inside a project")
	}
	if refined.FilteredEdges != 4 || refined.Paths != 1 || len(refined.Edges) != 3 {
		t.Errorf("unexpected refine result: %+v", refined)
	}
	if len(refined.Edges) > 0 && refined.Edges[0].Importance != 7 {
		t.Errorf("refined edges should be sorted by importance: %+v", refined.Edges)
	}

	output, err = runGRN(t, dir, "edges", "query", "--tf", "D")
	if err != nil {
		t.Fatalf("edges query failed: %v\nOutput: %s", err, output)
	}
	var hits []struct {
		RunID  string `json:"run_id"`
		TF     string `json:"tf"`
		Target string `json:"target"`
	}
	if err := json.Unmarshal([]byte(output), &hits); err != nil {
		t.Fatalf("failed to parse JSON output: %v\nOutput: %s", err, output)
	}
	if len(hits) != 1 || hits[0].Target != "E" || hits[0].RunID != refined.RunID {
		t.Errorf("edges query = %+v", hits)
	}

	// Drop the cache and restore it from runs.jsonl.
	if err := os.RemoveAll(filepath.Join(dir, ".grn", "cache")); err != nil {
		t.Fatal(err)
	}
	output, err = runGRN(t, dir, "rebuild")
	if err != nil {
		t.Fatalf("rebuild failed: %v\nOutput: %s", err, output)
	}
	var rebuilt RebuildResult
	if err := json.Unmarshal([]byte(output), &rebuilt); err != nil {
		t.Fatalf("failed to parse JSON output: %v\nOutput: %s", err, output)
	}
	if rebuilt.Runs != 1 {
		t.Errorf("rebuild runs = %d, want 1", rebuilt.Runs)
	}

	output, err = runGRN(t, dir, "runs", "show", refined.RunID[:8], "--paths")
	if err != nil {
		t.Fatalf("runs show failed: %v\nOutput: %s", err, output)
	}
	var shown struct {
		ID    string `json:"id"`
		Paths []struct {
			Path []string `json:"path"`
		} `json:"paths"`
	}
	if err := json.Unmarshal([]byte(output), &shown); err != nil {
		t.Fatalf("failed to parse JSON output: %v\nOutput: %s", err, output)
	}
	if shown.ID != refined.RunID || len(shown.Paths) != 1 || len(shown.Paths[0].Path) != 4 {
		t.Errorf("runs show = %+v", shown)
	}
}

func TestPathsWithoutIntermediates(t *testing.T) {
	dir := setupTestProject(t)

	output, err := runGRN(t, dir, "paths", "net.tsv", "--inputs", "A", "--outputs", "E")
	if err != nil {
		t.Fatalf("paths failed: %v\nOutput: %s", err, output)
	}
	var resp PathsResponse
	if err := json.Unmarshal([]byte(output), &resp); err != nil {
		t.Fatalf("failed to parse JSON output: %v\nOutput: %s", err, output)
	}
	if resp.Total != 0 {
		t.Errorf("expected no paths without TF-TF bridges, got %d", resp.Total)
	}
}

func TestRefineMissingLibrary(t *testing.T) {
	dir := setupTestProject(t)

	_, err := runGRN(t, dir, "refine", "net.tsv", "--library", "ENCODE", "--no-record")
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected exit error, got %v", err)
	}
	if exitErr.ExitCode() != ExitLibraryNotFound {
		t.Errorf("exit code = %d, want %d", exitErr.ExitCode(), ExitLibraryNotFound)
	}
}

func TestRefineMissingColumn(t *testing.T) {
	dir := setupTestProject(t)
	if err := os.WriteFile(filepath.Join(dir, "bad.tsv"), []byte("TF\ttarget\nA\tB\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := runGRN(t, dir, "refine", "bad.tsv", "--no-record")
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected exit error, got %v", err)
	}
	if exitErr.ExitCode() != ExitDataError {
		t.Errorf("exit code = %d, want %d", exitErr.ExitCode(), ExitDataError)
	}
}

func TestRefineWithoutLibraryDir(t *testing.T) {
	dir := setupTestProject(t)
	globalConfig := "project_path: " + dir + "\nlog_mode: quiet\n"
	if err := os.WriteFile(filepath.Join(dir, "config", "grn", "config.yml"), []byte(globalConfig), 0644); err != nil {
		t.Fatal(err)
	}

	output, err := runGRN(t, dir, "refine", "net.tsv", "--no-record")
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected exit error, got %v", err)
	}
	if exitErr.ExitCode() != ExitConfigError {
		t.Errorf("exit code = %d, want %d", exitErr.ExitCode(), ExitConfigError)
	}

	var resp ErrorResponse
	if err := json.Unmarshal([]byte(output), &resp); err != nil {
		t.Fatalf("failed to parse JSON output: %v\nOutput: %s", err, output)
	}
	if resp.Code != ExitConfigError || resp.Error == "" {
		t.Errorf("error response = %+v", resp)
	}
}
