package main

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsen/grnrefine/internal/config"
	"github.com/matsen/grnrefine/internal/library"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Get or set project configuration values",
	Long: `Get or set project configuration values.

Usage:
  grn config                              # Show all config
  grn config library-name                 # Get specific value
  grn config library-name ENCODE          # Set value
  grn config quantile 0.5                 # Set quantile fraction
  grn config inputs STAT3,SMAD3,JUN       # Set input TFs

Keys:
  library-name                Curated library (CHEA, TRANSFACpredicted, TRANSFACcurated, ENCODE)
  library-dir                 Root holding one folder per library
  use-both-libraries          Union the library with TRANSFACpredicted (true/false)
  use-regex-outputs           Select outputs by gene-family pattern (true/false)
  absolute-threshold          Absolute importance admission threshold
  quantile                    Local quantile admission fraction in [0, 1]
  include-intermediate-edges  Keep TF-TF bridge edges (true/false)
  inputs                      Comma-separated input TFs (empty for defaults)
  outputs                     Comma-separated output genes (empty for defaults)
  output-patterns             Semicolon-separated output regexes (empty for defaults)`,
	Args: cobra.MaximumNArgs(2),
	RunE: runConfig,
}

// configKeys lists the settable keys in display order.
var configKeys = []string{
	"library-name", "library-dir", "use-both-libraries", "use-regex-outputs",
	"absolute-threshold", "quantile", "include-intermediate-edges",
	"inputs", "outputs", "output-patterns",
}

func runConfig(cmd *cobra.Command, args []string) error {
	root := mustFindProject()
	cfg := mustLoadConfig(root)

	if len(args) == 0 {
		if humanOutput {
			for _, k := range configKeys {
				v, _ := getConfigValue(cfg, k)
				fmt.Printf("%-28s %s\n", k+":", v)
			}
		} else {
			outputJSON(cfg)
		}
		return nil
	}

	key := normalizeKey(args[0])

	if len(args) == 1 {
		value, err := getConfigValue(cfg, key)
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		if humanOutput {
			fmt.Println(value)
		} else {
			outputJSON(map[string]string{strings.ReplaceAll(key, "-", "_"): value})
		}
		return nil
	}

	value := args[1]
	if err := setConfigValue(cfg, key, value); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	if err := cfg.Validate(); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	if err := cfg.Save(root); err != nil {
		exitWithError(ExitError, "saving config: %v", err)
	}

	if humanOutput {
		fmt.Printf("Updated %s to %s\n", key, value)
	} else {
		outputJSON(UpdateResponse{
			Key:   key,
			Value: value,
			Path:  config.ConfigPath(root),
		})
	}
	return nil
}

// normalizeKey folds library_dir and Library_Dir to library-dir.
func normalizeKey(key string) string {
	key = strings.ToLower(key)
	key = strings.ReplaceAll(key, "_", "-")
	return key
}

func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch key {
	case "library-name":
		return cfg.LibraryName, nil
	case "library-dir":
		return cfg.LibraryDir, nil
	case "use-both-libraries":
		return strconv.FormatBool(cfg.UseBothLibraries), nil
	case "use-regex-outputs":
		return strconv.FormatBool(cfg.UseRegexOutputs), nil
	case "absolute-threshold":
		return strconv.FormatFloat(cfg.Thresholds.Absolute, 'g', -1, 64), nil
	case "quantile":
		return strconv.FormatFloat(cfg.Thresholds.Quantile, 'g', -1, 64), nil
	case "include-intermediate-edges":
		return strconv.FormatBool(cfg.IncludeIntermediateEdges), nil
	case "inputs":
		return strings.Join(cfg.Inputs, ","), nil
	case "outputs":
		return strings.Join(cfg.Outputs, ","), nil
	case "output-patterns":
		return strings.Join(cfg.OutputPatterns, patternSeparator), nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

func setConfigValue(cfg *config.Config, key, value string) error {
	var err error
	switch key {
	case "library-name":
		if !slices.Contains(library.KnownLibraries, value) {
			return fmt.Errorf("unknown library %q (valid: %s)", value, strings.Join(library.KnownLibraries, ", "))
		}
		cfg.LibraryName = value
	case "library-dir":
		expanded := config.ExpandPath(value)
		if err := config.ValidateLibraryDir(expanded); err != nil {
			return err
		}
		cfg.LibraryDir = expanded
	case "use-both-libraries":
		cfg.UseBothLibraries, err = strconv.ParseBool(value)
	case "use-regex-outputs":
		cfg.UseRegexOutputs, err = strconv.ParseBool(value)
	case "absolute-threshold":
		cfg.Thresholds.Absolute, err = strconv.ParseFloat(value, 64)
	case "quantile":
		cfg.Thresholds.Quantile, err = strconv.ParseFloat(value, 64)
	case "include-intermediate-edges":
		cfg.IncludeIntermediateEdges, err = strconv.ParseBool(value)
	case "inputs":
		cfg.Inputs = splitList(value)
	case "outputs":
		cfg.Outputs = splitList(value)
	case "output-patterns":
		cfg.OutputPatterns = splitOn(value, patternSeparator)
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return nil
}

// patternSeparator separates regexes, which may themselves contain commas.
const patternSeparator = ";"

// splitList splits a comma-separated value, dropping blanks.
func splitList(value string) []string {
	return splitOn(value, ",")
}

func splitOn(value, sep string) []string {
	var out []string
	for _, s := range strings.Split(value, sep) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
