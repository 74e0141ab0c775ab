package main

import (
	"fmt"

	"github.com/aretw0/easyyaml/internal/cli"
	"github.com/spf13/cobra"
)

var newCmd = &cobra.Command{
	Use:   "new <file>",
	Short: "Create a document from a template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, _ := cmd.Flags().GetString("template")
		force, _ := cmd.Flags().GetBool("force")
		a, err := setup(cmd, cli.EditorOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		if err := cli.CreateFromTemplate(cmd.Context(), a.editor, ref, args[0], force); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s from %s\n", args[0], ref)
		return nil
	},
}

var templatesCmd = &cobra.Command{
	Use:     "templates",
	Aliases: []string{"tpl"},
	Short:   "Manage document templates",
}

var templatesListCmd = &cobra.Command{
	Use:   "ls [query]",
	Short: "List templates, optionally filtered by a fuzzy query",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd, cli.EditorOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		q := ""
		if len(args) == 1 {
			q = args[0]
		}
		return cli.ListTemplates(cmd.Context(), a.editor.Templates, q, cmd.OutOrStdout())
	},
}

var templatesAddCmd = &cobra.Command{
	Use:   "add <name> <file>",
	Short: "Save a YAML file as a user template",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		category, _ := cmd.Flags().GetString("category")
		description, _ := cmd.Flags().GetString("description")
		a, err := setup(cmd, cli.EditorOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		entry, err := cli.AddTemplate(cmd.Context(), a.editor.Templates, args[0], category, description, args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", entry.Ref, entry.Display)
		return nil
	},
}

var templatesRemoveCmd = &cobra.Command{
	Use:   "rm <ref>",
	Short: "Delete a user template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd, cli.EditorOptions{})
		if err != nil {
			return err
		}
		defer a.Close()
		return a.editor.Templates.DeleteUser(cmd.Context(), args[0])
	},
}

var templatesRenameCmd = &cobra.Command{
	Use:   "rename <ref> <name>",
	Short: "Rename a user template",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd, cli.EditorOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		entry, err := a.editor.Templates.RenameUser(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Renamed to %s\n", entry.Ref)
		return nil
	},
}

func init() {
	newCmd.Flags().StringP("template", "t", "", "Template reference (see 'easyyaml templates ls')")
	_ = newCmd.MarkFlagRequired("template")
	newCmd.Flags().Bool("force", false, "Overwrite an existing file")

	templatesAddCmd.Flags().String("category", "general", "Template category")
	templatesAddCmd.Flags().String("description", "", "Template description")

	templatesCmd.AddCommand(templatesListCmd, templatesAddCmd, templatesRemoveCmd, templatesRenameCmd)
	rootCmd.AddCommand(newCmd, templatesCmd)
}
