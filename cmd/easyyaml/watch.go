package main

import (
	"strings"

	"github.com/aretw0/easyyaml"
	"github.com/aretw0/easyyaml/internal/cli"
	"github.com/aretw0/easyyaml/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch <file>",
	Short: "Show the tree view and refresh it when the file changes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		debounce, _ := cmd.Flags().GetDuration("debounce")
		a, err := setup(cmd, cli.EditorOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		if cli.IsTerminal(out) {
			tui.PrintBanner(out, strings.TrimSpace(easyyaml.Version))
		}

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		err = cli.Watch(sigCtx, args[0], cli.WatchOptions{
			Debounce: debounce,
			Render:   renderOptions(cmd),
			Out:      out,
			Logger:   a.logger,
		})
		if sig := sigCtx.Signal(); sig != nil {
			a.logger.Info("Stopping watcher (signal received)", "signal", sig)
		}
		return err
	},
}

func init() {
	renderFlags(watchCmd)
	watchCmd.Flags().Duration("debounce", cli.DefaultDebounce, "Quiet period before reloading")
	rootCmd.AddCommand(watchCmd)
}
