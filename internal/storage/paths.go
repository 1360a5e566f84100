package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/matsen/grnrefine/internal/score"
)

// EncodePaths writes scored paths as a tab-separated table headed by
// score.Columns. The path column lists genes comma-separated; missing
// statistics are written as NaN.
func EncodePaths(w io.Writer, paths []PathRecord) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'

	if err := cw.Write(score.Columns); err != nil {
		return err
	}
	for _, p := range paths {
		rec := []string{
			strings.Join(p.Path, ","),
			formatFloat(p.Total),
			formatNullable(p.SD),
			formatFloat(p.Mean),
			formatNullable(p.CV),
			p.String(),
			p.Input,
			p.Output,
			p.TF,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WritePaths writes the scored path table to path.
func WritePaths(path string, paths []PathRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := EncodePaths(f, paths); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatNullable(v *float64) string {
	if v == nil {
		return "NaN"
	}
	return formatFloat(*v)
}
