package main

import (
	"io"
	"path/filepath"

	"github.com/aretw0/easyyaml/internal/cli"
	"github.com/aretw0/easyyaml/pkg/session"
	"github.com/aretw0/easyyaml/pkg/tree"
	"github.com/spf13/cobra"
)

// treeCmd represents the tree command
var treeCmd = &cobra.Command{
	Use:   "tree <file>",
	Short: "Show the tree view of a document",
	Long: `Prints the tree view as a plain outline, a rich terminal rendering, a Mermaid
diagram (graph TD) or JSON. With --highlight, nodes selected by a JSONPath
expression are marked on the diagram.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd, cli.EditorOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		opts := renderOptions(cmd)
		opts.Title = filepath.Base(args[0])
		return cli.EditFile(cmd.Context(), a.editor, args[0], cli.Output{Out: io.Discard}, func(doc *session.Session, t tree.Reader) error {
			opts.Text = doc.Text()
			return cli.RenderTree(cmd.OutOrStdout(), t, opts)
		})
	},
}

func renderFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("format", "f", cli.FormatOutline, "Output format: outline, rich, mermaid or json")
	cmd.Flags().String("highlight", "", "JSONPath expression to highlight (mermaid only)")
}

func renderOptions(cmd *cobra.Command) cli.RenderOptions {
	format, _ := cmd.Flags().GetString("format")
	highlight, _ := cmd.Flags().GetString("highlight")
	return cli.RenderOptions{Format: format, Highlight: highlight}
}

func init() {
	renderFlags(treeCmd)
	rootCmd.AddCommand(treeCmd)
}
