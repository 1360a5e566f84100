package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/matsen/grnrefine/internal/network"
)

// Network table column names.
const (
	ColumnTF         = "TF"
	ColumnTarget     = "target"
	ColumnImportance = "importance"
)

var (
	ErrMissingColumn = errors.New("network table is missing a required column")
	ErrEmptyNetwork  = errors.New("network table has no header")
)

// Delimiter picks the field separator from the file name: comma for .csv
// (optionally gzipped), tab otherwise.
func Delimiter(path string) rune {
	name := strings.TrimSuffix(strings.ToLower(filepath.Base(path)), ".gz")
	if strings.HasSuffix(name, ".csv") {
		return ','
	}
	return '\t'
}

// ReadNetwork loads a network table from disk, decompressing .gz files.
// Rows are numbered in file order.
func ReadNetwork(path string) (network.Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening network: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("decompressing network: %w", err)
		}
		defer zr.Close()
		r = zr
	}

	net, err := DecodeNetwork(r, Delimiter(path))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return net, nil
}

// DecodeNetwork parses a delimited network table with a header row naming
// the TF, target and importance columns. Extra columns are ignored.
func DecodeNetwork(r io.Reader, comma rune) (network.Network, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmptyNetwork
	}
	if err != nil {
		return nil, err
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	cols := make([]int, 0, 3)
	for _, name := range []string{ColumnTF, ColumnTarget, ColumnImportance} {
		i, ok := idx[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
		}
		cols = append(cols, i)
	}
	need := max(cols[0], cols[1], cols[2]) + 1

	rows := make([]network.Row, 0)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)
		if len(rec) < need {
			return nil, fmt.Errorf("line %d: expected at least %d fields, got %d", line, need, len(rec))
		}

		imp, err := strconv.ParseFloat(strings.TrimSpace(rec[cols[2]]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: parsing importance: %w", line, err)
		}
		e := network.Edge{TF: rec[cols[0]], Target: rec[cols[1]], Importance: imp}
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, e.Row())
	}
	return network.FromRows(rows), nil
}

// EncodeNetwork writes net as a tab-separated table with a header row.
func EncodeNetwork(w io.Writer, net network.Network) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'

	if err := cw.Write([]string{ColumnTF, ColumnTarget, ColumnImportance}); err != nil {
		return err
	}
	for _, e := range net {
		rec := []string{e.TF, e.Target, strconv.FormatFloat(e.Importance, 'g', -1, 64)}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteNetwork writes net to path as TSV, gzip-compressed when path ends
// in .gz.
func WriteNetwork(path string, net network.Network) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	if !strings.HasSuffix(strings.ToLower(path), ".gz") {
		if err := EncodeNetwork(f, net); err != nil {
			f.Close()
			return fmt.Errorf("writing %s: %w", path, err)
		}
		return f.Close()
	}

	zw := gzip.NewWriter(f)
	if err := EncodeNetwork(zw, net); err != nil {
		zw.Close()
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return fmt.Errorf("compressing %s: %w", path, err)
	}
	return f.Close()
}
