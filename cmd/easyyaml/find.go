package main

import (
	"github.com/aretw0/easyyaml/internal/cli"
	"github.com/aretw0/easyyaml/pkg/adapters/file"
	"github.com/spf13/cobra"
)

var findCmd = &cobra.Command{
	Use:   "find <file> <text>",
	Short: "Find text in a document",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		caseSensitive, _ := cmd.Flags().GetBool("case")
		a, err := setup(cmd, cli.EditorOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := cli.Find(cmd.Context(), a.editor, args[0], args[1], caseSensitive, cmd.OutOrStdout())
		if err == nil {
			a.logger.Debug("Find finished", "matches", n)
		}
		return err
	},
}

var replaceCmd = &cobra.Command{
	Use:   "replace <file> <text> <replacement>",
	Short: "Replace every occurrence of text in a document",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		caseSensitive, _ := cmd.Flags().GetBool("case")
		a, err := setup(cmd, cli.EditorOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := cli.Replace(cmd.Context(), a.editor, args[0], args[1], args[2], caseSensitive, output(cmd))
		if err != nil {
			return err
		}
		a.logger.Info("Replaced", "count", n)
		return nil
	},
}

var queryCmd = &cobra.Command{
	Use:   "query <file> <jsonpath>",
	Short: "Select nodes with a JSONPath expression",
	Long:  `Evaluates a JSONPath expression, e.g. "$.spec.containers[*].image", and prints every match with its tree path.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := file.ReadDocument(args[0])
		if err != nil {
			return err
		}
		_, err = cli.Query(cmd.OutOrStdout(), text, args[1])
		return err
	},
}

func init() {
	findCmd.Flags().BoolP("case", "c", false, "Match case")
	replaceCmd.Flags().BoolP("case", "c", false, "Match case")
	outputFlags(replaceCmd)

	rootCmd.AddCommand(findCmd, replaceCmd, queryCmd)
}
