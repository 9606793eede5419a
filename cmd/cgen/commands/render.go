package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// RenderCmd prints or writes the generated sources of a manifest
var RenderCmd = &cobra.Command{
	Use:   "render <manifest>",
	Short: "Print or write the generated sources",
	Long: `Render every header and source file the manifest describes.

Without --out the files are printed one after another, each preceded by a
"==> name <==" line. With --out only files whose content changed are
written, so build tools relying on timestamps stay quiet.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")

		p, err := openProject(args[0], false)
		if err != nil {
			return err
		}
		if err := p.lib.Prepare(cmd.Context()); err != nil {
			return err
		}

		if out == "" {
			files := p.lib.RenderFiles()
			w := cmd.OutOrStdout()
			for i, name := range p.lib.FileNames() {
				if i > 0 {
					fmt.Fprintln(w)
				}
				fmt.Fprintf(w, "==> %s <==\n%s", name, files[name])
			}
			return nil
		}

		written, err := p.lib.WriteFiles(out)
		if err != nil {
			return err
		}
		for _, name := range written {
			pterm.Success.Printfln("Wrote %s", name)
		}
		pterm.Info.Printfln("%d of %d files changed in %s", len(written), len(p.lib.FileNames()), out)
		return nil
	},
}

func init() {
	RenderCmd.Flags().StringP("out", "o", "", "Write changed files into this directory instead of printing")
}
