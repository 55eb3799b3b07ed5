package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/aretw0/bugjar/internal/cli"
	bjhttp "github.com/aretw0/bugjar/pkg/adapters/http"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose the session over HTTP",
	Long: `Attaches to the debuggee and serves the session API described by
/openapi.yaml, including the /events SSE stream and Prometheus /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.HTTP.Port, _ = cmd.Flags().GetInt("port")
		}

		sc := cli.NewSignalContext(context.Background())
		defer sc.Cancel()

		api := bjhttp.NewServer(nil, bjhttp.WithLogger(logger), bjhttp.WithSessionID(cfg.Session))
		app, err := cli.NewApp(sc, cfg, logger, api.Observer())
		if err != nil {
			return err
		}
		defer app.Close()
		api.Session = app.Controller
		bjhttp.WithGatherer(app.Registry)(api)

		if err := app.Controller.Start(sc); err != nil {
			return fmt.Errorf("start session: %w", err)
		}

		srv := &http.Server{
			Addr:    ":" + strconv.Itoa(cfg.HTTP.Port),
			Handler: api.Handler(),
		}
		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("Starting bugjar HTTP server", "addr", srv.Addr, "session_id", cfg.Session)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-sc.Done():
			logger.Info("Start shutdown", "signal", sc.Signal())
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("Graceful shutdown did not complete", "timeout", 5*time.Second, "err", err)
			return srv.Close()
		}
		logger.Info("Bugjar HTTP server stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on (overrides http.port)")
}
