package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/grnrefine/internal/config"
	"github.com/matsen/grnrefine/internal/network"
	"github.com/matsen/grnrefine/internal/storage"
)

func init() {
	rootCmd.AddCommand(runsCmd)

	runsListCmd.Flags().String("digest", "", "Only runs of the network with this digest")
	runsListCmd.Flags().String("network", "", "Only runs of this network file")
	runsCmd.AddCommand(runsListCmd)

	runsShowCmd.Flags().Bool("paths", false, "Include scored paths")
	runsShowCmd.Flags().StringP("output", "o", "", "Write the run's refined network to this TSV file")
	runsCmd.AddCommand(runsShowCmd)
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect recorded refinement runs",
	Long:  `Commands for the refinement runs recorded in .grn/runs.jsonl.`,
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		digest, _ := cmd.Flags().GetString("digest")
		networkPath, _ := cmd.Flags().GetString("network")
		if networkPath != "" {
			d, err := storage.Digest(networkPath)
			if err != nil {
				exitWithError(ExitError, "fingerprinting network: %v", err)
			}
			digest = d
		}

		root := mustFindProject()
		db := mustOpenDatabase(root)
		defer db.Close()

		runs, err := db.ListRuns(digest)
		if err != nil {
			exitWithError(ExitError, "listing runs: %v", err)
		}

		if humanOutput {
			if len(runs) == 0 {
				fmt.Println("No runs recorded (run 'grn rebuild' if runs.jsonl was pulled from git)")
				return nil
			}
			for _, r := range runs {
				fmt.Printf("%s  %s  %-18s %4d paths %5d edges  %s\n",
					shortID(r.ID), r.CreatedAt, r.LibraryName, r.PathCount, r.EdgeCount, r.NetworkPath)
			}
			return nil
		}
		outputJSON(runs)
		return nil
	},
}

// RunResponse is the response for runs show.
type RunResponse struct {
	storage.Run
	Edges []network.Row        `json:"edges"`
	Paths []storage.PathRecord `json:"paths,omitempty"`
}

var runsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a recorded run by id or unique id prefix",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		withPaths, _ := cmd.Flags().GetBool("paths")
		output, _ := cmd.Flags().GetString("output")

		root := mustFindProject()
		runs, err := storage.ReadAllRuns(config.RunsPath(root))
		if err != nil {
			exitWithError(ExitDataError, "reading runs: %v", err)
		}
		idx, err := storage.FindRun(runs, args[0])
		if err != nil {
			code := ExitError
			if errors.Is(err, storage.ErrAmbiguousRun) {
				code = ExitConfigError
			}
			exitWithError(code, "%v", err)
		}
		run := runs[idx]
		refined := network.Network(run.Edges)

		if output != "" {
			if err := storage.WriteNetwork(output, refined); err != nil {
				exitWithError(ExitError, "%v", err)
			}
		}

		if humanOutput {
			fmt.Printf("Run:      %s (%s)\n", run.ID, run.CreatedAt)
			fmt.Printf("Network:  %s\n", run.NetworkPath)
			fmt.Printf("Digest:   %s\n", run.Digest)
			fmt.Printf("Library:  %s (both=%t)\n", run.Options.LibraryName, run.Options.UseBothLibraries)
			fmt.Printf("Rules:    absolute=%g quantile=%g intermediates=%t\n",
				run.Options.Rules.Absolute, run.Options.Rules.Quantile, run.Options.IncludeIntermediateEdges)
			fmt.Printf("Inputs:   %s\n", joinOrNone(run.InputKeys))
			fmt.Printf("Outputs:  %s\n", joinOrNone(run.OutputKeys))
			fmt.Println()
			printEdges(refined)
			if withPaths {
				fmt.Println()
				printPaths(run.Paths)
			}
			return nil
		}

		resp := RunResponse{Run: run, Edges: rows(refined)}
		if withPaths {
			resp.Paths = run.Paths
		}
		outputJSON(resp)
		return nil
	},
}

// shortID abbreviates a run id for listings; any unique prefix works with
// 'grn runs show'.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
