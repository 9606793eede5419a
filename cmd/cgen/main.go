package main

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/teranos/cgen/cmd/cgen/commands"
	"github.com/teranos/cgen/logger"
)

var rootCmd = &cobra.Command{
	Use:   "cgen",
	Short: "cgen - generate C extension sources from class manifests",
	Long: `cgen - compose C extension libraries and shadow-struct attribute code.

A manifest names a library, its source files and the classes whose
attributes live in a C struct behind each host object. cgen renders the
sources, compiles and links them, and keeps generated files up to date.

Available commands:
  render - Print or write the generated sources
  build  - Render, compile, link and load a library
  check  - Report generated files that are missing or stale
  watch  - Re-render whenever the manifest changes

Examples:
  cgen render shapes.toml            # Print every generated file
  cgen render -o out shapes.toml     # Write changed files into out/
  cgen build -vv shapes.toml         # Build with debug logging
  cgen check shapes.toml             # Exit 1 when sources are stale`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		jsonOutput, _ := cmd.Flags().GetBool("json")
		verbosity, _ := cmd.Flags().GetCount("verbose")

		cfg, err := commands.LoadConfig(configPath)
		if err != nil {
			return err
		}
		if cfg.Log.Verbosity > verbosity {
			verbosity = cfg.Log.Verbosity
		}
		if err := logger.Initialize(jsonOutput || cfg.Log.JSON, verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		// Plain output when piped
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			pterm.DisableStyling()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().String("config", "", "Config file (default: cgen.toml search)")
	rootCmd.PersistentFlags().Bool("json", false, "Log as JSON")

	rootCmd.AddCommand(commands.RenderCmd)
	rootCmd.AddCommand(commands.BuildCmd)
	rootCmd.AddCommand(commands.CheckCmd)
	rootCmd.AddCommand(commands.WatchCmd)
}

func main() {
	err := rootCmd.Execute()
	logger.Cleanup()
	if err != nil {
		commands.Report(os.Stderr, err)
		os.Exit(commands.ExitCode(err))
	}
}
