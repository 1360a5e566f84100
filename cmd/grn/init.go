package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matsen/grnrefine/internal/config"
)

func init() {
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new grn project",
	Long: `Initialize a new grn project in the current directory.

Creates:
  .grn/
  ├── runs.jsonl      # Empty file
  ├── config.json     # Default refinement options
  └── cache/          # Empty directory (gitignored)`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	root, err := os.Getwd()
	if err != nil {
		exitWithError(ExitError, "getting current directory: %v", err)
	}

	if config.IsProject(root) {
		exitWithError(ExitError, "directory already contains a grn project")
	}

	if err := os.MkdirAll(config.CachePath(root), 0755); err != nil {
		exitWithError(ExitError, "creating .grn directory: %v", err)
	}

	runsFile, err := os.Create(config.RunsPath(root))
	if err != nil {
		exitWithError(ExitError, "creating runs.jsonl: %v", err)
	}
	runsFile.Close()

	if err := os.WriteFile(filepath.Join(config.GRNPath(root), ".gitignore"), []byte(config.CacheDir+"/\n"), 0644); err != nil {
		exitWithError(ExitError, "creating .gitignore: %v", err)
	}

	if err := config.Default().Save(root); err != nil {
		exitWithError(ExitError, "creating config.json: %v", err)
	}

	if humanOutput {
		fmt.Printf("Initialized grn project in %s\n", root)
	} else {
		outputJSON(StatusResponse{
			Status: "initialized",
			Path:   root,
		})
	}

	return nil
}
