package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/matsen/grnrefine/internal/network"
	"github.com/matsen/grnrefine/internal/storage"
)

// Output formatting limits.
const (
	DefaultEdgeLimit = 50 // Default limit for edge queries
	PathColumnWidth  = 48 // Path column width in human path tables
)

// outputJSON prints v to stdout as indented JSON.
func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "error: encoding output: %v\n", err)
	}
}

// outputHuman prints formatted text to stdout.
func outputHuman(format string, args ...any) {
	fmt.Printf(format, args...)
}

// outputError prints a plain message to stderr and hands back code.
func outputError(code int, format string, args ...any) int {
	fmt.Fprintln(os.Stderr, "error: "+fmt.Sprintf(format, args...))
	return code
}

// exitWithError reports the failure on stderr (as text with --human, as an
// ErrorResponse on stdout otherwise) and exits with code.
func exitWithError(code int, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		outputError(code, "%s", msg)
	} else {
		outputJSON(ErrorResponse{Error: msg, Code: code})
	}
	os.Exit(code)
}

// StatusResponse reports a state change on a path, e.g. grn init.
type StatusResponse struct {
	Status string `json:"status"`
	Path   string `json:"path,omitempty"`
}

// UpdateResponse echoes a config set.
type UpdateResponse struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Path  string `json:"path"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// rows strips row IDs for output.
func rows(net network.Network) []network.Row {
	out := make([]network.Row, 0, len(net))
	for _, e := range net {
		out = append(out, e.Row())
	}
	return out
}

// printEdges writes a TF/target/importance table.
func printEdges(net network.Network) {
	outputHuman("%-12s %-12s %s\n", "TF", "target", "importance")
	for _, e := range net {
		outputHuman("%-12s %-12s %.6g\n", e.TF, e.Target, e.Importance)
	}
}

// formatStat renders a nullable statistic.
func formatStat(v *float64) string {
	if v == nil {
		return "NaN"
	}
	return fmt.Sprintf("%.4g", *v)
}

// printPaths writes a scored path table.
func printPaths(paths []storage.PathRecord) {
	outputHuman("%-*s %8s %8s %8s %8s\n", PathColumnWidth, "path", "total", "sd", "mean", "cv")
	for _, p := range paths {
		outputHuman("%-*s %8.4g %8s %8.4g %8s\n", PathColumnWidth, truncate(p.String(), PathColumnWidth),
			p.Total, formatStat(p.SD), p.Mean, formatStat(p.CV))
	}
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

// joinOrNone renders a key list for humans.
func joinOrNone(keys []string) string {
	if len(keys) == 0 {
		return "(none)"
	}
	return strings.Join(keys, ", ")
}
