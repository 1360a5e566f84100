package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/grnrefine/internal/library"
	"github.com/matsen/grnrefine/internal/network"
	"github.com/matsen/grnrefine/internal/storage"
)

var libraryFilterFlags pipelineFlags

func init() {
	rootCmd.AddCommand(libraryCmd)

	libraryLocateCmd.Flags().Bool("tfs", false, "Locate the TF list instead of the edge table")
	libraryCmd.AddCommand(libraryLocateCmd)

	libraryCmd.AddCommand(libraryListCmd)

	libraryFilterFlags.register(libraryFilterCmd)
	libraryFilterCmd.Flags().StringP("output", "o", "", "Write the filtered network to this TSV file (.gz to compress)")
	libraryCmd.AddCommand(libraryFilterCmd)

	libraryTFsCmd.Flags().Bool("both", true, "Include the TRANSFACpredicted TF list")
	libraryCmd.AddCommand(libraryTFsCmd)
}

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Inspect and apply curated TF-target libraries",
	Long: `Commands for the curated TF-target libraries.

Each library lives in its own folder under the library directory and holds a
gzip-compressed edge table (*` + library.EdgesExtension + `) and TF list
(*` + library.TFsExtension + `).`,
}

// LocateResponse is the response for library locate.
type LocateResponse struct {
	Library string `json:"library"`
	Path    string `json:"path"`
}

var libraryLocateCmd = &cobra.Command{
	Use:   "locate <name>",
	Short: "Print the table file of a library",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tfs, _ := cmd.Flags().GetBool("tfs")
		ext := library.EdgesExtension
		if tfs {
			ext = library.TFsExtension
		}

		_, cfg := loadProjectConfig()
		path, err := library.Locate(mustResolveLibraryDir(cfg), args[0], ext)
		if err != nil {
			exitWithError(exitCodeFor(err), "%v", err)
		}

		if humanOutput {
			fmt.Println(path)
		} else {
			outputJSON(LocateResponse{Library: args[0], Path: path})
		}
		return nil
	},
}

// LibraryStatus reports whether a known library is installed.
type LibraryStatus struct {
	Library string `json:"library"`
	Edges   string `json:"edges,omitempty"`
	TFs     string `json:"tfs,omitempty"`
}

var libraryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known libraries and where their files are",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, cfg := loadProjectConfig()
		dir := mustResolveLibraryDir(cfg)

		statuses := make([]LibraryStatus, 0, len(library.KnownLibraries))
		for _, name := range library.KnownLibraries {
			s := LibraryStatus{Library: name}
			s.Edges, _ = library.Locate(dir, name, library.EdgesExtension)
			s.TFs, _ = library.Locate(dir, name, library.TFsExtension)
			statuses = append(statuses, s)
		}

		if humanOutput {
			for _, s := range statuses {
				state := "missing"
				if s.Edges != "" {
					state = s.Edges
				}
				fmt.Printf("%-18s %s\n", s.Library, state)
			}
			return nil
		}
		outputJSON(statuses)
		return nil
	},
}

// FilterResponse is the response for library filter.
type FilterResponse struct {
	Network      string        `json:"network"`
	Libraries    []string      `json:"libraries"`
	Interactions int           `json:"interactions"`
	EdgesIn      int           `json:"edges_in"`
	EdgesKept    int           `json:"edges_kept"`
	Output       string        `json:"output,omitempty"`
	Edges        []network.Row `json:"edges,omitempty"`
}

var libraryFilterCmd = &cobra.Command{
	Use:   "filter <network>",
	Short: "Keep only the network edges confirmed by the library",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		_, opts := libraryFilterFlags.mustOptions(cmd)

		lib, err := library.Load(opts.LibraryDir, opts.LibraryName, opts.UseBothLibraries)
		if err != nil {
			exitWithError(exitCodeFor(err), "%v", err)
		}
		net := mustReadNetwork(args[0])
		filtered := library.Filter(net, lib)

		if output != "" {
			if err := storage.WriteNetwork(output, filtered); err != nil {
				exitWithError(ExitError, "%v", err)
			}
		}

		libs := []string{opts.LibraryName}
		if opts.UseBothLibraries {
			libs = append(libs, library.CompanionLibrary)
		}

		if humanOutput {
			fmt.Printf("Kept %d of %d edges confirmed by %v (%d interactions)\n",
				len(filtered), len(net), libs, lib.Len())
			if output == "" && len(filtered) > 0 {
				printEdges(filtered)
			}
			return nil
		}

		resp := FilterResponse{
			Network:      args[0],
			Libraries:    libs,
			Interactions: lib.Len(),
			EdgesIn:      len(net),
			EdgesKept:    len(filtered),
			Output:       output,
		}
		if output == "" {
			resp.Edges = rows(filtered)
		}
		outputJSON(resp)
		return nil
	},
}

var libraryTFsCmd = &cobra.Command{
	Use:   "tfs [name]",
	Short: "List the TF gene symbols a library covers",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, cfg := loadProjectConfig()
		name := cfg.LibraryName
		if len(args) == 1 {
			name = args[0]
		}
		both := cfg.UseBothLibraries
		if cmd.Flags().Changed("both") {
			both, _ = cmd.Flags().GetBool("both")
		}

		tfs, err := library.LoadTFs(mustResolveLibraryDir(cfg), name, both)
		if err != nil {
			exitWithError(exitCodeFor(err), "%v", err)
		}

		if humanOutput {
			for _, tf := range tfs {
				fmt.Println(tf)
			}
			return nil
		}
		outputJSON(map[string]any{"library": name, "count": len(tfs), "tfs": tfs})
		return nil
	},
}
