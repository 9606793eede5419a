package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/cgen/errors"
)

// CheckCmd reports generated files that are missing or differ from a fresh render
var CheckCmd = &cobra.Command{
	Use:   "check <manifest>",
	Short: "Report generated files that are missing or stale",
	Long: `Render the manifest in memory and compare the result with the files on
disk. Nothing is written.

Exit codes:
  0 - every file is up to date
  1 - at least one file is missing or differs
  2 - the manifest or config could not be processed`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")

		p, err := openProject(args[0], false)
		if err != nil {
			return err
		}
		if dir == "" {
			dir = p.lib.Dir()
		}
		stale, err := p.lib.Check(cmd.Context(), dir)
		if err != nil {
			return err
		}
		if len(stale) == 0 {
			pterm.Success.Printfln("✓ %s is up to date", p.lib.Name())
			return nil
		}
		for _, name := range stale {
			pterm.Warning.Printfln("✗ %s", name)
		}
		return errors.WithHintf(errors.Mark(errors.Newf("%d of %d files in %s are out of date", len(stale), len(p.lib.FileNames()), dir), errStale),
			"run: cgen render -o %s %s", dir, args[0])
	},
}

func init() {
	CheckCmd.Flags().String("dir", "", "Directory holding the generated files (default: the library directory)")
}
