package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ragquery/internal/server"
)

var (
	serveHost string
	servePort int
	serveSeed string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the query API over HTTP",
	Long: `Start the HTTP query service.

Endpoints:
  POST /query   {"query": "...", "maxSources": 5, "maxTokens": 500}
  GET  /health

Examples:
  ragquery serve
  ragquery serve --port 9090 --seed kb.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveHost, "host", "", "listen host (default from config)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (default from config)")
	serveCmd.Flags().StringVar(&serveSeed, "seed", "", "YAML chunk file loaded before serving")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	logger := GetLogger()

	if serveHost != "" {
		cfg.Server.Host = serveHost
	}
	if servePort > 0 {
		cfg.Server.Port = servePort
	}
	if serveSeed != "" {
		cfg.Store.Seed = serveSeed
	}

	svc, err := newQueryService(GetRootDir(), cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	n, err := svc.Store.Size()
	if err != nil {
		return fmt.Errorf("failed to read chunk store: %w", err)
	}
	if n == 0 {
		logger.Warn().Str("backend", cfg.Store.Backend).Msg("chunk store is empty, every query will get the no-information answer")
	}

	srv := server.New(cfg.Server, svc.Queries, svc.Store, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
