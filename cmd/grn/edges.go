package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/grnrefine/internal/config"
	"github.com/matsen/grnrefine/internal/storage"
)

func init() {
	rootCmd.AddCommand(edgesCmd)

	edgesQueryCmd.Flags().String("tf", "", "Only edges regulated by this TF")
	edgesQueryCmd.Flags().String("target", "", "Only edges regulating this target")
	edgesQueryCmd.Flags().String("run", "", "Only edges of this run")
	edgesQueryCmd.Flags().Float64("min", 0, "Minimum importance")
	edgesQueryCmd.Flags().IntP("limit", "n", DefaultEdgeLimit, "Maximum number of edges (0 for all)")
	edgesCmd.AddCommand(edgesQueryCmd)
}

var edgesCmd = &cobra.Command{
	Use:   "edges",
	Short: "Query refined edges across recorded runs",
}

var edgesQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Find refined edges by TF, target, run or importance",
	Long: `Find refined edges in the run cache, ordered by importance descending.

Examples:
  grn edges query --tf STAT3
  grn edges query --target MMP9 --min 2
  grn edges query --run 1f3c --limit 0`,
	Args: cobra.NoArgs,
	RunE: runEdgesQuery,
}

func runEdgesQuery(cmd *cobra.Command, args []string) error {
	var q storage.EdgeQuery
	q.TF, _ = cmd.Flags().GetString("tf")
	q.Target, _ = cmd.Flags().GetString("target")
	q.MinImportance, _ = cmd.Flags().GetFloat64("min")
	q.Limit, _ = cmd.Flags().GetInt("limit")
	runID, _ := cmd.Flags().GetString("run")

	root := mustFindProject()
	if runID != "" {
		q.RunID = mustResolveRunID(root, runID)
	}

	db := mustOpenDatabase(root)
	defer db.Close()

	hits, err := db.QueryEdges(q)
	if err != nil {
		exitWithError(ExitError, "querying edges: %v", err)
	}

	if humanOutput {
		if len(hits) == 0 {
			fmt.Println("No edges found")
			return nil
		}
		fmt.Printf("%-8s %-12s %-12s %s\n", "run", "TF", "target", "importance")
		for _, h := range hits {
			fmt.Printf("%-8s %-12s %-12s %.6g\n", shortID(h.RunID), h.TF, h.Target, h.Importance)
		}
		return nil
	}
	outputJSON(hits)
	return nil
}

// mustResolveRunID expands a run id prefix using runs.jsonl.
func mustResolveRunID(root, id string) string {
	runs, err := storage.ReadAllRuns(config.RunsPath(root))
	if err != nil {
		exitWithError(ExitDataError, "reading runs: %v", err)
	}
	idx, err := storage.FindRun(runs, id)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}
	return runs[idx].ID
}
