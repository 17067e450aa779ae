package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dshills/exfor-index/internal/mcp"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a built index to MCP clients over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			server, err := mcp.NewServer(a.cfg.Layout())
			if err != nil {
				return err
			}
			server.SetLogger(a.logger)

			ctx := cmd.Context()
			errChan := make(chan error, 1)
			go func() {
				errChan <- server.Serve(ctx)
			}()

			// stdout carries the protocol; logs go to stderr
			select {
			case <-ctx.Done():
				a.logger.Info("shutting down MCP server")
				return nil
			case err := <-errChan:
				if err != nil {
					return err
				}
				a.logger.Info("MCP server stopped", slog.String("dir", a.cfg.Out))
				return nil
			}
		},
	}
	a.addOutFlag(cmd)
	return cmd
}
