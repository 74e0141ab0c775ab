package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/easyyaml"
	"github.com/aretw0/easyyaml/internal/cli"
	"github.com/aretw0/easyyaml/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "easyyaml",
	Short: "easyyaml edits YAML documents as text or as a tree",
	Long: `easyyaml keeps a text view and a tree view of YAML documents in sync.
Use it to inspect and edit files from the command line, start documents from
templates, or serve open documents over HTTP and MCP.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", config.DefaultPath, "Path to the easyyaml config file")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
}

// app bundles what a command needs to work on documents.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	editor *easyyaml.Editor
	close  func() error
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}

func setup(cmd *cobra.Command, opts cli.EditorOptions) (*app, error) {
	debug, _ := cmd.Flags().GetBool("debug")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := cli.CreateLogger(cfg, debug)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	opts.Debug = debug
	editor, closer, err := cli.CreateEditor(cfg, opts, logger)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, editor: editor, close: closer}, nil
}

func (a *app) Close() {
	if err := a.close(); err != nil {
		a.logger.Warn("Failed to close store", "err", err)
	}
}

// outputFlags registers --write and --diff on commands that change files.
func outputFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("write", "w", false, "Write the result back to the file")
	cmd.Flags().BoolP("diff", "d", false, "Print a diff instead of the document")
}

func output(cmd *cobra.Command) cli.Output {
	write, _ := cmd.Flags().GetBool("write")
	diff, _ := cmd.Flags().GetBool("diff")
	return cli.Output{Write: write, Diff: diff, Out: cmd.OutOrStdout()}
}
