// Package main provides the grn CLI entry point.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/matsen/grnrefine/internal/config"
	"github.com/matsen/grnrefine/internal/library"
	"github.com/matsen/grnrefine/internal/logging"
	"github.com/matsen/grnrefine/internal/network"
	"github.com/matsen/grnrefine/internal/search"
	"github.com/matsen/grnrefine/internal/storage"
)

// Version is overridden with -ldflags "-X main.Version=...".
var Version = "dev"

var (
	// humanOutput controls whether to use human-readable output
	humanOutput bool
	// verbose switches the logger to development mode
	verbose bool
)

func main() {
	// GRN_LIBRARY_DIR may come from a .env next to the data
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(outputError(exitCodeFor(err), "%v", err))
	}
}

var rootCmd = &cobra.Command{
	Use:   "grn",
	Short: "Refine gene regulatory networks against curated TF-target libraries",
	Long: `grn prunes an inferred gene regulatory network against curated TF-target
libraries and extracts input-to-output signalling paths whose every edge is
admitted both top-down and bottom-up.

Runs are recorded in git-versionable JSONL with an ephemeral SQLite cache
for queries. All commands output JSON by default; use --human for text.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log pipeline stages at debug level")
	rootCmd.Version = Version
}

// getStartingDirectory returns the directory to start searching for a project.
// Checks global config project_path first, then current working directory.
func getStartingDirectory() (string, int) {
	if root := config.GetProjectPath(); root != "" {
		return root, 0
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", outputError(ExitError, "getting current directory: %v", err)
	}
	return cwd, 0
}

// mustFindProject finds the enclosing grn project, exits if there is none.
func mustFindProject() string {
	start, exitCode := getStartingDirectory()
	if exitCode != 0 {
		os.Exit(exitCode)
	}

	root, err := config.FindProject(start)
	if err != nil {
		exitWithError(ExitConfigError, "%v\n\nRun 'grn init' to create a project.", err)
	}
	return root
}

// loadProjectConfig returns the enclosing project and its config. Outside a
// project the root is empty and the defaults apply.
func loadProjectConfig() (string, *config.Config) {
	start, exitCode := getStartingDirectory()
	if exitCode != 0 {
		os.Exit(exitCode)
	}

	root, err := config.FindProject(start)
	if err != nil {
		return "", config.Default()
	}
	return root, mustLoadConfig(root)
}

// mustLoadConfig loads configuration, exits on error.
func mustLoadConfig(root string) *config.Config {
	cfg, err := config.Load(root)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	return cfg
}

// mustOpenDatabase opens the SQLite cache, creating its directory if needed.
// The caller is responsible for calling Close() on the returned DB.
func mustOpenDatabase(root string) *storage.DB {
	if err := os.MkdirAll(config.CachePath(root), 0755); err != nil {
		exitWithError(ExitError, "creating cache directory: %v", err)
	}
	db, err := storage.OpenDB(config.DBPath(root))
	if err != nil {
		exitWithError(ExitError, "opening database: %v", err)
	}
	return db
}

// mustResolveLibraryDir resolves the library root, exits with a hint when
// none is configured.
func mustResolveLibraryDir(cfg *config.Config) string {
	dir, err := config.ResolveLibraryDir(cfg)
	if err != nil {
		if !humanOutput {
			outputJSON(ErrorResponse{Error: err.Error(), Code: ExitConfigError})
		}
		fmt.Fprintln(os.Stderr, config.HelpfulConfigMessage())
		os.Exit(ExitConfigError)
	}
	return dir
}

// mustReadNetwork reads a network table, exits on error.
func mustReadNetwork(path string) network.Network {
	net, err := storage.ReadNetwork(path)
	if err != nil {
		exitWithError(exitCodeFor(err), "%v", err)
	}
	return net
}

// mustLogger builds the stderr logger. --verbose wins over the global
// log_mode setting.
func mustLogger() *logging.Logger {
	mode := config.GetLogMode()
	if verbose {
		mode = "dev"
	}
	log, err := logging.New(mode)
	if err != nil {
		exitWithError(ExitError, "creating logger: %v", err)
	}
	return log
}

// exitCodeFor maps pipeline errors to exit codes.
func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, library.ErrLibraryNotFound):
		return ExitLibraryNotFound
	case errors.Is(err, config.ErrLibraryDirNotConfigured),
		errors.Is(err, config.ErrEmptyLibraryName),
		errors.Is(err, search.ErrInvalidRules):
		return ExitConfigError
	case errors.Is(err, library.ErrMissingColumn),
		errors.Is(err, library.ErrEmptyTable),
		errors.Is(err, storage.ErrMissingColumn),
		errors.Is(err, storage.ErrEmptyNetwork),
		errors.Is(err, network.ErrEmptyTF),
		errors.Is(err, network.ErrEmptyTarget),
		errors.Is(err, network.ErrNegativeImportance),
		errors.Is(err, network.ErrNonFiniteImportance):
		return ExitDataError
	default:
		return ExitError
	}
}
