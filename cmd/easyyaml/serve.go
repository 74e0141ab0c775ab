package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/easyyaml"
	"github.com/aretw0/easyyaml/internal/cli"
	"github.com/aretw0/easyyaml/internal/presentation/tui"
	httpAdapter "github.com/aretw0/easyyaml/pkg/adapters/http"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve [file...]",
	Short: "Start the document HTTP server",
	Long: `Serves a document workspace over HTTP: a JSON API described by /openapi.yaml,
server-sent events per document and, when enabled, Prometheus metrics on /metrics.
Files given as arguments are opened at startup.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			registry *prometheus.Registry
			opts     cli.EditorOptions
		)
		streams := httpAdapter.NewStreamManager(nil)
		opts.Events = streams.Publish

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.Metrics.Enabled {
			registry = prometheus.NewRegistry()
			registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			opts.Metrics = registry
		}

		a, err := setup(cmd, opts)
		if err != nil {
			return err
		}
		defer a.Close()

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		for _, path := range args {
			doc, err := a.editor.OpenFile(sigCtx, path)
			if err != nil {
				return err
			}
			a.logger.Info("Document opened", "document_id", doc.ID())
		}

		version := strings.TrimSpace(easyyaml.Version)
		handlerOpts := []httpAdapter.Option{
			httpAdapter.WithCatalog(a.editor.Templates),
			httpAdapter.WithStreams(streams),
			httpAdapter.WithVersion(version),
			httpAdapter.WithLogger(a.logger),
		}
		if registry != nil {
			handlerOpts = append(handlerOpts, httpAdapter.WithMetrics(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
		}
		handler, err := httpAdapter.NewHandler(a.editor.Docs, handlerOpts...)
		if err != nil {
			return err
		}

		port, _ := cmd.Flags().GetInt("port")
		if !cmd.Flags().Changed("port") {
			port = a.cfg.HTTP.Port
		}
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		out := cmd.OutOrStdout()
		if cli.IsTerminal(out) {
			tui.PrintBanner(out, version)
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			a.logger.Info("Starting easyyaml server", "addr", srv.Addr)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
			return nil

		case <-sigCtx.Done():
			a.logger.Info("Start shutdown", "signal", sigCtx.Signal())

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				a.logger.Warn("Graceful shutdown did not complete", "timeout", 5*time.Second, "err", err)
				if err := srv.Close(); err != nil {
					a.logger.Error("Error killing server", "err", err)
				}
			}
			// Unsaved work survives as drafts.
			if err := a.editor.Docs.PersistAll(ctx); err != nil {
				a.logger.Error("Failed to persist drafts", "err", err)
			}
			a.logger.Info("easyyaml server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on (overrides the config file)")
}
