package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/easyyaml"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of easyyaml",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "easyyaml version %s\n", strings.TrimSpace(easyyaml.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
