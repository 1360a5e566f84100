package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matsen/grnrefine/internal/config"
	"github.com/matsen/grnrefine/internal/logging"
	"github.com/matsen/grnrefine/internal/network"
	"github.com/matsen/grnrefine/internal/refine"
	"github.com/matsen/grnrefine/internal/storage"
)

// pipelineFlags override the project config for one invocation.
type pipelineFlags struct {
	library       string
	libraryDir    string
	both          bool
	regexOutputs  bool
	intermediates bool
	absolute      float64
	quantile      float64
	inputs        []string
	outputs       []string
	patterns      []string
}

func (f *pipelineFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&f.library, "library", "l", "", "Curated library name (default from config)")
	flags.StringVar(&f.libraryDir, "library-dir", "", "Root holding one folder per library")
	flags.BoolVar(&f.both, "both", true, "Union the library with TRANSFACpredicted")
	flags.BoolVar(&f.regexOutputs, "regex-outputs", false, "Select outputs by gene-family pattern")
	flags.BoolVar(&f.intermediates, "intermediates", false, "Keep TF-TF bridge edges in the subnetwork")
	flags.Float64Var(&f.absolute, "absolute", 1, "Absolute importance admission threshold")
	flags.Float64Var(&f.quantile, "quantile", 0.75, "Local quantile admission fraction")
	flags.StringSliceVarP(&f.inputs, "inputs", "i", nil, "Input TFs (default from config)")
	flags.StringSliceVarP(&f.outputs, "outputs", "O", nil, "Output genes (default from config)")
	flags.StringArrayVar(&f.patterns, "pattern", nil, "Output gene regex, repeatable (default from config)")
}

// apply copies explicitly set flags onto cfg.
func (f *pipelineFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("library") {
		cfg.LibraryName = f.library
	}
	if flags.Changed("library-dir") {
		cfg.LibraryDir = config.ExpandPath(f.libraryDir)
	}
	if flags.Changed("both") {
		cfg.UseBothLibraries = f.both
	}
	if flags.Changed("regex-outputs") {
		cfg.UseRegexOutputs = f.regexOutputs
	}
	if flags.Changed("intermediates") {
		cfg.IncludeIntermediateEdges = f.intermediates
	}
	if flags.Changed("absolute") {
		cfg.Thresholds.Absolute = f.absolute
	}
	if flags.Changed("quantile") {
		cfg.Thresholds.Quantile = f.quantile
	}
	if flags.Changed("inputs") {
		cfg.Inputs = f.inputs
	}
	if flags.Changed("outputs") {
		cfg.Outputs = f.outputs
	}
	if flags.Changed("pattern") {
		cfg.OutputPatterns = f.patterns
	}
}

// mustOptions resolves the effective options for a pipeline command.
func (f *pipelineFlags) mustOptions(cmd *cobra.Command) (string, refine.Options) {
	root, cfg := loadProjectConfig()
	f.apply(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		exitWithError(exitCodeFor(err), "%v", err)
	}
	return root, refine.FromConfig(cfg, mustResolveLibraryDir(cfg))
}

// mustRefine reads the network and runs the whole pipeline on it.
func mustRefine(cmd *cobra.Command, networkPath string, opts refine.Options, log *logging.Logger) *refine.Result {
	net := mustReadNetwork(networkPath)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	res, err := refine.Run(ctx, net, opts, log.With("network", filepath.Base(networkPath)))
	if err != nil {
		exitWithError(exitCodeFor(err), "%v", err)
	}
	return res
}

// recordRun appends the run to runs.jsonl and mirrors it into the cache.
// A cache failure only warns: 'grn rebuild' restores it from JSONL.
func recordRun(root, networkPath string, opts refine.Options, res *refine.Result, log *logging.Logger) string {
	digest, err := storage.Digest(networkPath)
	if err != nil {
		exitWithError(ExitError, "fingerprinting network: %v", err)
	}

	run := storage.NewRun(networkPath, digest, opts, res)
	if err := storage.AppendRun(config.RunsPath(root), run); err != nil {
		exitWithError(ExitError, "recording run: %v", err)
	}

	db := mustOpenDatabase(root)
	defer db.Close()
	if err := db.InsertRun(run); err != nil {
		log.Warn("run cache is stale; run 'grn rebuild'", "error", err)
	}
	return run.ID
}

var refineFlags pipelineFlags

func init() {
	refineFlags.register(refineCmd)
	refineCmd.Flags().StringP("output", "o", "", "Write the refined network to this TSV file (.gz to compress)")
	refineCmd.Flags().Bool("no-record", false, "Do not record the run in the project")
	rootCmd.AddCommand(refineCmd)
}

var refineCmd = &cobra.Command{
	Use:   "refine <network>",
	Short: "Refine a network into its admitted input-to-output edges",
	Long: `Refine a network table (TF, target, importance) in five stages:

  1. keep edges confirmed by the curated library
  2. select the configured inputs and outputs present after filtering
  3. extract the input-to-output subnetwork
  4. search paths admitted both top-down and bottom-up
  5. flatten the paths into a deduplicated, importance-ranked edge table

Inside a project the run is recorded in .grn/runs.jsonl.`,
	Args: cobra.ExactArgs(1),
	RunE: runRefine,
}

// RefineResponse is the response for the refine command.
type RefineResponse struct {
	RunID           string        `json:"run_id,omitempty"`
	Network         string        `json:"network"`
	Output          string        `json:"output,omitempty"`
	InputKeys       []string      `json:"input_keys"`
	OutputKeys      []string      `json:"output_keys"`
	FilteredEdges   int           `json:"filtered_edges"`
	SubnetworkEdges int           `json:"subnetwork_edges"`
	Paths           int           `json:"paths"`
	Edges           []network.Row `json:"edges,omitempty"`
}

func runRefine(cmd *cobra.Command, args []string) error {
	networkPath := args[0]
	output, _ := cmd.Flags().GetString("output")
	noRecord, _ := cmd.Flags().GetBool("no-record")

	root, opts := refineFlags.mustOptions(cmd)
	log := mustLogger()
	defer log.Sync()

	res := mustRefine(cmd, networkPath, opts, log)

	if output != "" {
		if err := storage.WriteNetwork(output, res.Refined); err != nil {
			exitWithError(ExitError, "%v", err)
		}
	}

	var runID string
	if root != "" && !noRecord {
		runID = recordRun(root, networkPath, opts, res, log)
	}

	if humanOutput {
		fmt.Printf("Inputs:  %s\n", joinOrNone(res.InputKeys))
		fmt.Printf("Outputs: %s\n", joinOrNone(res.OutputKeys))
		fmt.Printf("%d library-confirmed edges, %d in subnetwork, %d paths, %d refined edges\n",
			len(res.Filtered), len(res.Subnetwork), len(res.Paths), len(res.Refined))
		if runID != "" {
			fmt.Printf("Recorded run %s\n", runID)
		}
		if output != "" {
			fmt.Printf("Wrote %s\n", output)
		} else if len(res.Refined) > 0 {
			fmt.Println()
			printEdges(res.Refined)
		}
		return nil
	}

	resp := RefineResponse{
		RunID:           runID,
		Network:         networkPath,
		Output:          output,
		InputKeys:       res.InputKeys,
		OutputKeys:      res.OutputKeys,
		FilteredEdges:   len(res.Filtered),
		SubnetworkEdges: len(res.Subnetwork),
		Paths:           len(res.Paths),
	}
	if output == "" {
		resp.Edges = rows(res.Refined)
	}
	outputJSON(resp)
	return nil
}
