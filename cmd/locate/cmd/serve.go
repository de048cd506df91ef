package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dshills/locate/internal/mcp"
	"github.com/dshills/locate/internal/storage"
)

func newServeCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdio",
		Long: `Run the Model Context Protocol server on stdin/stdout.

Logs go to stderr; stdout is reserved for the protocol.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			server, err := mcp.NewServer(g.cfg)
			if err != nil {
				return err
			}

			slog.Info("MCP server ready, listening on stdio",
				slog.String("version", version),
				slog.String("build_mode", storage.BuildMode),
				slog.String("database", g.cfg.DatabasePath))

			err = server.Serve(cmd.Context())
			slog.Info("server stopped")
			return err
		},
	}
}
