package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aretw0/bugjar/internal/cli"
	"github.com/aretw0/bugjar/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Attaches to the debuggee and exposes breakpoint and stepping tools to MCP
clients.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		transport, _ := cmd.Flags().GetString("transport")
		addr, _ := cmd.Flags().GetString("addr")
		if transport != "stdio" && transport != "sse" {
			return fmt.Errorf("unknown transport %q, supported: stdio, sse", transport)
		}

		sc := cli.NewSignalContext(context.Background())
		defer sc.Cancel()

		srv := mcp.NewServer(nil, mcp.WithLogger(logger))
		app, err := cli.NewApp(sc, cfg, logger, srv.Observer())
		if err != nil {
			return err
		}
		defer app.Close()
		srv.Bind(app.Controller)

		if err := app.Controller.Start(sc); err != nil {
			return fmt.Errorf("start session: %w", err)
		}

		if transport == "stdio" {
			logger.Info("Starting bugjar MCP server (stdio)")
			return srv.ServeStdio()
		}

		logger.Info("Starting bugjar MCP server (SSE)", "addr", addr)
		if err := srv.ServeSSE(sc, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		logger.Info("MCP server stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().String("addr", ":8081", "Address to listen on (only for SSE)")
}
