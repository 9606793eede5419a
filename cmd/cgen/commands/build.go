package commands

import (
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/cgen/logger"
)

// BuildCmd renders, compiles, links and loads a library
var BuildCmd = &cobra.Command{
	Use:   "build <manifest>",
	Short: "Render, compile, link and load a library",
	Long: `Commit the library described by the manifest: render its files into
the library directory, run the configured C compiler and linker, then bind
the generated classes into a host runtime to confirm every registration
resolves.

The compiler, flags and include directories come from cgen.toml or the
CGEN_BUILD_* environment variables.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openProject(args[0], true)
		if err != nil {
			return err
		}

		start := time.Now()
		if err := p.lib.Commit(cmd.Context()); err != nil {
			return err
		}
		logger.Debugw("build finished",
			logger.FieldLibrary, p.lib.Name(),
			logger.FieldDurationMS, time.Since(start).Milliseconds())

		classes := p.tree.Classes()
		pterm.Success.Printfln("Built %s in %s (%d classes, %d files)",
			p.lib.Name(), p.lib.Dir(), len(classes), len(p.lib.FileNames()))
		for _, c := range classes {
			pterm.Printf("  %s  %s\n", c.Name(), c.StructName())
		}
		return nil
	},
}
