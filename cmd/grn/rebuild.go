package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/grnrefine/internal/config"
)

func init() {
	rootCmd.AddCommand(rebuildCmd)
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Recreate .grn/cache/runs.db from runs.jsonl",
	Long: `Drop every cached run and reload .grn/runs.jsonl into SQLite.

The cache is never committed; rebuild after cloning or pulling a project,
or whenever 'runs list' and 'edges query' disagree with runs.jsonl.`,
	Args: cobra.NoArgs,
	RunE: runRebuild,
}

type RebuildResult struct {
	Status string `json:"status"`
	Runs   int    `json:"runs"`
}

func runRebuild(cmd *cobra.Command, args []string) error {
	root := mustFindProject()

	db := mustOpenDatabase(root)
	defer db.Close()

	count, err := db.RebuildFromJSONL(config.RunsPath(root))
	if err != nil {
		exitWithError(ExitDataError, "rebuilding run cache: %v", err)
	}

	if humanOutput {
		fmt.Printf("Rebuilt run cache with %d runs\n", count)
	} else {
		outputJSON(RebuildResult{
			Status: "rebuilt",
			Runs:   count,
		})
	}
	return nil
}
