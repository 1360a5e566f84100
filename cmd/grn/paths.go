package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/grnrefine/internal/storage"
)

var pathsFlags pipelineFlags

func init() {
	pathsFlags.register(pathsCmd)
	pathsCmd.Flags().StringP("output", "o", "", "Write the scored path table to this TSV file")
	pathsCmd.Flags().IntP("limit", "n", 0, "Show at most this many paths (0 for all)")
	rootCmd.AddCommand(pathsCmd)
}

var pathsCmd = &cobra.Command{
	Use:   "paths <network>",
	Short: "List the scored input-to-output paths of a network",
	Long: `Run the refinement pipeline and report every accepted path with its total,
standard deviation, mean and coefficient of variation of edge importance.

Paths are listed per input in depth-first discovery order. Nothing is
recorded; use 'grn refine' to keep a run.`,
	Args: cobra.ExactArgs(1),
	RunE: runPaths,
}

// PathsResponse is the response for the paths command.
type PathsResponse struct {
	Network    string               `json:"network"`
	InputKeys  []string             `json:"input_keys"`
	OutputKeys []string             `json:"output_keys"`
	Total      int                  `json:"total"`
	Paths      []storage.PathRecord `json:"paths"`
}

func runPaths(cmd *cobra.Command, args []string) error {
	networkPath := args[0]
	output, _ := cmd.Flags().GetString("output")
	limit, _ := cmd.Flags().GetInt("limit")

	_, opts := pathsFlags.mustOptions(cmd)
	log := mustLogger()
	defer log.Sync()

	res := mustRefine(cmd, networkPath, opts, log)
	records := storage.PathRecords(res.Scores)

	if output != "" {
		if err := storage.WritePaths(output, records); err != nil {
			exitWithError(ExitError, "%v", err)
		}
	}

	shown := records
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}

	if humanOutput {
		if len(records) == 0 {
			fmt.Println("No paths found")
			return nil
		}
		printPaths(shown)
		if len(shown) < len(records) {
			fmt.Printf("... %d more\n", len(records)-len(shown))
		}
		return nil
	}

	outputJSON(PathsResponse{
		Network:    networkPath,
		InputKeys:  res.InputKeys,
		OutputKeys: res.OutputKeys,
		Total:      len(records),
		Paths:      shown,
	})
	return nil
}
