// Package refine runs the five refinement stages end to end: library
// filtering, endpoint selection, subnetwork extraction, bidirectional path
// search, and scoring.
package refine

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/matsen/grnrefine/internal/config"
	"github.com/matsen/grnrefine/internal/endpoint"
	"github.com/matsen/grnrefine/internal/library"
	"github.com/matsen/grnrefine/internal/logging"
	"github.com/matsen/grnrefine/internal/network"
	"github.com/matsen/grnrefine/internal/score"
	"github.com/matsen/grnrefine/internal/search"
	"github.com/matsen/grnrefine/internal/subnet"
)

// ProgressInterval bounds how often per-input progress is logged.
const ProgressInterval = 2 * time.Second

// Options is the recognized configuration surface of a refinement.
type Options struct {
	LibraryName              string       `json:"library_name"`
	LibraryDir               string       `json:"library_dir,omitempty"`
	UseBothLibraries         bool         `json:"use_both_libraries"`
	UseRegexOutputs          bool         `json:"use_regex_outputs"`
	Rules                    search.Rules `json:"rules"`
	IncludeIntermediateEdges bool         `json:"include_intermediate_edges"`
	Inputs                   []string     `json:"inputs,omitempty"`
	Outputs                  []string     `json:"outputs,omitempty"`
	OutputPatterns           []string     `json:"output_patterns,omitempty"`
}

// FromConfig copies the project configuration into pipeline options.
// libraryDir is the already-resolved library root.
func FromConfig(cfg *config.Config, libraryDir string) Options {
	return Options{
		LibraryName:              cfg.LibraryName,
		LibraryDir:               libraryDir,
		UseBothLibraries:         cfg.UseBothLibraries,
		UseRegexOutputs:          cfg.UseRegexOutputs,
		Rules:                    cfg.Thresholds,
		IncludeIntermediateEdges: cfg.IncludeIntermediateEdges,
		Inputs:                   cfg.Inputs,
		Outputs:                  cfg.Outputs,
		OutputPatterns:           cfg.OutputPatterns,
	}
}

// InputCandidates returns the configured inputs, or the defaults when none
// are configured.
func (o Options) InputCandidates() []string {
	if len(o.Inputs) == 0 {
		return endpoint.DefaultInputs
	}
	return o.Inputs
}

// OutputCandidates returns the configured output list, or the defaults.
func (o Options) OutputCandidates() []string {
	if len(o.Outputs) == 0 {
		return endpoint.DefaultOutputs
	}
	return o.Outputs
}

// Patterns returns the configured output families, or the defaults.
func (o Options) Patterns() []string {
	if len(o.OutputPatterns) == 0 {
		return endpoint.DefaultOutputPatterns
	}
	return o.OutputPatterns
}

// Result holds the output of every stage.
type Result struct {
	Filtered   network.Network
	InputKeys  []string
	OutputKeys []string
	Subnetwork network.Network
	Paths      []search.Path
	Scores     []score.ScoredPath
	Refined    network.Network
}

// Run loads the configured library and refines net against it.
func Run(ctx context.Context, net network.Network, opts Options, log *logging.Logger) (*Result, error) {
	if opts.LibraryDir == "" {
		return nil, config.ErrLibraryDirNotConfigured
	}
	lib, err := library.Load(opts.LibraryDir, opts.LibraryName, opts.UseBothLibraries)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.Nop()
	}
	log.Debug("library loaded", "library", opts.LibraryName, "both", opts.UseBothLibraries, "interactions", lib.Len())
	return Refine(ctx, net, lib, opts, log)
}

// Refine runs the pipeline against an already loaded library.
func Refine(ctx context.Context, net network.Network, lib *library.Library, opts Options, log *logging.Logger) (*Result, error) {
	if err := opts.Rules.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.Nop()
	}

	if dups, loops := net.FindDuplicatePairs(), net.SelfLoops(); len(dups) > 0 || len(loops) > 0 {
		log.Debug("network shape", "duplicate_pairs", len(dups), "self_loops", len(loops))
	}

	res := &Result{}
	res.Filtered = library.Filter(net, lib)
	log.Info("library filter", "edges_in", len(net), "edges_kept", len(res.Filtered))

	res.InputKeys = endpoint.Select(res.Filtered, opts.InputCandidates(), network.SourceRole)
	if opts.UseRegexOutputs {
		matched, err := endpoint.MatchOutputs(net, opts.Patterns())
		if err != nil {
			return nil, fmt.Errorf("matching output families: %w", err)
		}
		res.OutputKeys = endpoint.Select(res.Filtered, matched, network.TargetRole)
	} else {
		res.OutputKeys = endpoint.Select(res.Filtered, opts.OutputCandidates(), network.TargetRole)
	}
	log.Info("endpoints", "inputs", len(res.InputKeys), "outputs", len(res.OutputKeys))
	if len(res.InputKeys) == 0 || len(res.OutputKeys) == 0 {
		log.Warn("no endpoints survive the library filter; result is empty")
	}

	in := endpoint.Restrict(res.Filtered, res.InputKeys, network.SourceRole)
	out := endpoint.Restrict(res.Filtered, res.OutputKeys, network.TargetRole)
	res.Subnetwork = subnet.Extract(in, out, res.Filtered, opts.IncludeIntermediateEdges)
	log.Info("subnetwork", "edges", len(res.Subnetwork), "intermediates", opts.IncludeIntermediateEdges)

	searcher := search.New(res.Subnetwork)
	progress := rate.Sometimes{Interval: ProgressInterval}
	res.Paths = make([]search.Path, 0)
	for i, input := range res.InputKeys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for p := range searcher.Paths(input, res.OutputKeys, opts.Rules) {
			res.Paths = append(res.Paths, p)
		}
		progress.Do(func() {
			log.Info("searching", "input", input, "done", i+1, "of", len(res.InputKeys), "paths", len(res.Paths))
		})
	}
	log.Info("path search", "paths", len(res.Paths))

	res.Scores = score.Score(res.Subnetwork, res.Paths)
	res.Refined = score.Rows(res.Subnetwork, res.Paths)
	log.Info("refined network", "edges", len(res.Refined))
	return res, nil
}
