package main

import (
	"strconv"

	"github.com/aretw0/easyyaml/internal/cli"
	"github.com/spf13/cobra"
)

var fmtCmd = &cobra.Command{
	Use:   "fmt <file>",
	Short: "Rewrite a document in canonical form",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd, cli.EditorOptions{})
		if err != nil {
			return err
		}
		defer a.Close()
		return cli.Format(cmd.Context(), a.editor, args[0], output(cmd))
	},
}

var getCmd = &cobra.Command{
	Use:   "get <file> <path>",
	Short: "Print the node at a path",
	Long: `Prints a scalar's value, or a mapping or sequence as YAML.
Paths are dot separated keys and sequence positions, e.g. "spec.ports.0".`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd, cli.EditorOptions{})
		if err != nil {
			return err
		}
		defer a.Close()
		return cli.Get(cmd.Context(), a.editor, args[0], args[1], cmd.OutOrStdout())
	},
}

// editCommand builds a command that applies one tree edit.
func editCommand(use, short string, nargs int, build func(args []string) (cli.EditFunc, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(nargs),
		RunE: func(cmd *cobra.Command, args []string) error {
			fn, err := build(args[1:])
			if err != nil {
				return err
			}
			a, err := setup(cmd, cli.EditorOptions{})
			if err != nil {
				return err
			}
			defer a.Close()
			return cli.EditFile(cmd.Context(), a.editor, args[0], output(cmd), fn)
		},
	}
	outputFlags(cmd)
	return cmd
}

func init() {
	outputFlags(fmtCmd)

	addCmd := editCommand("add <file> <parent> <key> <type> [value]", "Append a node under a mapping or sequence", 0,
		func(args []string) (cli.EditFunc, error) {
			value := ""
			if len(args) == 4 {
				value = args[3]
			}
			return cli.Add(args[0], args[1], args[2], value), nil
		})
	addCmd.Args = cobra.RangeArgs(4, 5)
	addCmd.Long = `Appends a node of the given type (string, int, float, bool, null, mapping
or sequence). The key is ignored under sequences; pass "-".`

	moveCmd := editCommand("mv <file> <parent> <from> <to>", "Move a child to another position", 4,
		func(args []string) (cli.EditFunc, error) {
			from, err := strconv.Atoi(args[1])
			if err != nil {
				return nil, err
			}
			to, err := strconv.Atoi(args[2])
			if err != nil {
				return nil, err
			}
			return cli.Move(args[0], from, to), nil
		})

	rootCmd.AddCommand(
		fmtCmd,
		getCmd,
		editCommand("set <file> <path> <value>", "Set the value of a scalar", 3,
			func(args []string) (cli.EditFunc, error) { return cli.Set(args[0], args[1]), nil }),
		addCmd,
		editCommand("rm <file> <path>", "Remove a node and its children", 2,
			func(args []string) (cli.EditFunc, error) { return cli.Remove(args[0]), nil }),
		moveCmd,
		editCommand("rename <file> <path> <key>", "Rename a mapping key", 3,
			func(args []string) (cli.EditFunc, error) { return cli.Rename(args[0], args[1]), nil }),
		editCommand("retype <file> <path> <type>", "Convert a node to another type", 3,
			func(args []string) (cli.EditFunc, error) { return cli.Retype(args[0], args[1]), nil }),
	)
}
