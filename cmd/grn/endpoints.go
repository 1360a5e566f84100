package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/matsen/grnrefine/internal/endpoint"
	"github.com/matsen/grnrefine/internal/library"
	"github.com/matsen/grnrefine/internal/network"
)

var endpointsFlags pipelineFlags

func init() {
	endpointsFlags.register(endpointsCmd)
	rootCmd.AddCommand(endpointsCmd)
}

var endpointsCmd = &cobra.Command{
	Use:   "endpoints <network>",
	Short: "Show which configured inputs and outputs survive the library filter",
	Long: `Filter the network against the library and report the input TFs found in the
TF column and the output genes found in the target column. Candidates that
are absent are listed as missing.`,
	Args: cobra.ExactArgs(1),
	RunE: runEndpoints,
}

// EndpointsResponse is the response for the endpoints command.
type EndpointsResponse struct {
	Network        string   `json:"network"`
	InputKeys      []string `json:"input_keys"`
	OutputKeys     []string `json:"output_keys"`
	MissingInputs  []string `json:"missing_inputs"`
	MissingOutputs []string `json:"missing_outputs"`
}

func runEndpoints(cmd *cobra.Command, args []string) error {
	_, opts := endpointsFlags.mustOptions(cmd)

	lib, err := library.Load(opts.LibraryDir, opts.LibraryName, opts.UseBothLibraries)
	if err != nil {
		exitWithError(exitCodeFor(err), "%v", err)
	}
	net := mustReadNetwork(args[0])
	filtered := library.Filter(net, lib)

	outputCandidates := opts.OutputCandidates()
	if opts.UseRegexOutputs {
		outputCandidates, err = endpoint.MatchOutputs(net, opts.Patterns())
		if err != nil {
			exitWithError(ExitConfigError, "%v", err)
		}
	}

	inputs := endpoint.Select(filtered, opts.InputCandidates(), network.SourceRole)
	outputs := endpoint.Select(filtered, outputCandidates, network.TargetRole)
	resp := EndpointsResponse{
		Network:        args[0],
		InputKeys:      inputs,
		OutputKeys:     outputs,
		MissingInputs:  missing(opts.InputCandidates(), inputs),
		MissingOutputs: missing(outputCandidates, outputs),
	}

	if humanOutput {
		fmt.Printf("Inputs:          %s\n", joinOrNone(resp.InputKeys))
		fmt.Printf("Outputs:         %s\n", joinOrNone(resp.OutputKeys))
		fmt.Printf("Missing inputs:  %s\n", joinOrNone(resp.MissingInputs))
		fmt.Printf("Missing outputs: %s\n", joinOrNone(resp.MissingOutputs))
		return nil
	}
	outputJSON(resp)
	return nil
}

// missing returns the candidates not among found, in candidate order.
func missing(candidates, found []string) []string {
	out := make([]string, 0)
	for _, c := range candidates {
		if !slices.Contains(found, c) {
			out = append(out, c)
		}
	}
	return out
}
