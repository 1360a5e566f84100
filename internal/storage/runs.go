package storage

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/matsen/grnrefine/internal/network"
	"github.com/matsen/grnrefine/internal/refine"
	"github.com/matsen/grnrefine/internal/score"
)

// Run is one refinement recorded in runs.jsonl.
type Run struct {
	ID              string         `json:"id"`
	CreatedAt       string         `json:"created_at"`
	NetworkPath     string         `json:"network_path"`
	Digest          string         `json:"digest"`
	Options         refine.Options `json:"options"`
	InputKeys       []string       `json:"input_keys"`
	OutputKeys      []string       `json:"output_keys"`
	FilteredEdges   int            `json:"filtered_edges"`
	SubnetworkEdges int            `json:"subnetwork_edges"`
	Edges           []network.Edge `json:"edges"`
	Paths           []PathRecord   `json:"paths"`
}

// PathRecord is the stored form of a scored path. SD and CV are null when
// they are not numbers.
type PathRecord struct {
	Path   []string `json:"path"`
	Total  float64  `json:"importance_total"`
	SD     *float64 `json:"importance_sd"`
	Mean   float64  `json:"importance_mean"`
	CV     *float64 `json:"importance_cv"`
	Input  string   `json:"input"`
	Output string   `json:"output"`
	TF     string   `json:"tf"`
}

// String renders the path as "A->B->C".
func (p PathRecord) String() string {
	return strings.Join(p.Path, "->")
}

var (
	ErrMissingRunID  = errors.New("run id is required")
	ErrRunNotFound   = errors.New("run not found")
	ErrAmbiguousRun  = errors.New("run id prefix is ambiguous")
	ErrMissingDigest = errors.New("run digest is required")
)

// Validate checks the fields every stored run must carry.
func (r *Run) Validate() error {
	if r.ID == "" {
		return ErrMissingRunID
	}
	if r.Digest == "" {
		return ErrMissingDigest
	}
	for i := range r.Edges {
		if err := r.Edges[i].Validate(); err != nil {
			return fmt.Errorf("edge %d: %w", i, err)
		}
	}
	return nil
}

// NewRun records the outcome of a refinement of the network at networkPath.
func NewRun(networkPath, digest string, opts refine.Options, res *refine.Result) Run {
	return Run{
		ID:              uuid.New().String(),
		CreatedAt:       time.Now().UTC().Format(time.RFC3339),
		NetworkPath:     networkPath,
		Digest:          digest,
		Options:         opts,
		InputKeys:       res.InputKeys,
		OutputKeys:      res.OutputKeys,
		FilteredEdges:   len(res.Filtered),
		SubnetworkEdges: len(res.Subnetwork),
		Edges:           res.Refined,
		Paths:           PathRecords(res.Scores),
	}
}

// PathRecords converts scored paths to their stored form.
func PathRecords(scored []score.ScoredPath) []PathRecord {
	records := make([]PathRecord, 0, len(scored))
	for _, s := range scored {
		records = append(records, PathRecord{
			Path:   s.Path,
			Total:  s.Total,
			SD:     finite(s.SD),
			Mean:   s.Mean,
			CV:     finite(s.CV),
			Input:  s.Input,
			Output: s.Output,
			TF:     s.TF,
		})
	}
	return records
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// ReadAllRuns reads every run from a JSONL file.
func ReadAllRuns(path string) ([]Run, error) {
	return readJSONL(path, (*Run).Validate)
}

// AppendRun adds a run to the end of a JSONL file.
func AppendRun(path string, r Run) error {
	if err := r.Validate(); err != nil {
		return err
	}
	return appendJSONL(path, r)
}

// WriteAllRuns replaces the content of a JSONL file.
func WriteAllRuns(path string, runs []Run) error {
	return writeAllJSONL(path, runs)
}

// FindRun looks a run up by full id or unique id prefix.
func FindRun(runs []Run, id string) (int, error) {
	if id == "" {
		return -1, ErrMissingRunID
	}
	match := -1
	for i, r := range runs {
		if r.ID == id {
			return i, nil
		}
		if strings.HasPrefix(r.ID, id) {
			if match >= 0 {
				return -1, fmt.Errorf("%w: %s", ErrAmbiguousRun, id)
			}
			match = i
		}
	}
	if match < 0 {
		return -1, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return match, nil
}
