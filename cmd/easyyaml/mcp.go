package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/aretw0/easyyaml/internal/cli"
	"github.com/aretw0/easyyaml/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp [file...]",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts easyyaml as an MCP Server.
This allows AI agents to open, inspect and edit YAML documents as tools.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		a, err := setup(cmd, cli.EditorOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		for _, path := range args {
			if _, err := a.editor.OpenFile(cmd.Context(), path); err != nil {
				return err
			}
		}

		srv := mcp.NewServer(a.editor.Docs, mcp.WithCatalog(a.editor.Templates), mcp.WithLogger(a.logger))

		switch transport {
		case "stdio":
			// Ensure logs don't corrupt JSON-RPC on Stdout
			log.SetOutput(os.Stderr)
			a.logger.Info("Starting easyyaml MCP Server (Stdio)...")
			return srv.ServeStdio()
		case "sse":
			a.logger.Info("Starting easyyaml MCP Server (SSE)", "port", port)

			sigCtx := cli.NewSignalContext(cmd.Context())
			defer sigCtx.Cancel()

			if err := srv.ServeSSE(sigCtx, port); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			a.logger.Info("MCP Server stopped gracefully")
			return nil
		default:
			return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
}
