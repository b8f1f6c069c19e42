package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/GauravPandit27/AI-Data-Analyst/internal/parser"
	"github.com/GauravPandit27/AI-Data-Analyst/internal/pipeline"
	"github.com/GauravPandit27/AI-Data-Analyst/internal/web"
	"github.com/spf13/cobra"
)

var (
	serveAddr  string
	serveLimit string
	serveNoAI  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the upload page and JSON/msgpack analysis API",
	Example: `  dataanalyst serve
  dataanalyst serve --addr 127.0.0.1:9000 --upload-limit 64M`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		setupLogger(slog.LevelInfo)

		var n pipeline.Narrator
		if !serveNoAI {
			hn, err := newNarrator(cmd.Context(), c)
			if err != nil {
				return fmt.Errorf("init %s runtime: %w", c.Provider, err)
			}
			n = hn
		}
		addr := c.ServerAddr
		if cmd.Flags().Changed("addr") {
			addr = serveAddr
		}
		limit := c.UploadLimit
		if cmd.Flags().Changed("upload-limit") {
			limit = serveLimit
		}

		srv, err := web.New(pipeline.NewRunner(n, parser.Options{}, slog.Default()), web.Options{
			Addr:           addr,
			UploadLimit:    limit,
			RequestLogging: c.RequestLogging,
			Version:        Version,
			Provider:       c.Provider,
			Model:          c.Model,
			Logger:         slog.Default(),
		})
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Serving on %s (Ctrl+C to stop)\n", addr)
		return srv.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8501", "listen address (overrides server_addr)")
	serveCmd.Flags().StringVar(&serveLimit, "upload-limit", "32M", "maximum request body, e.g. 32M (overrides upload_limit)")
	serveCmd.Flags().BoolVar(&serveNoAI, "no-ai", false, "serve statistics and charts without the language model")
}
