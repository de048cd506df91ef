package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/locate/internal/storage"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version and SQLite capabilities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Locate\n")
			fmt.Fprintf(out, "Version: %s\n", version)
			fmt.Fprintf(out, "Build Time: %s\n", buildTime)
			fmt.Fprintf(out, "Build Mode: %s\n", storage.BuildMode)
			fmt.Fprintf(out, "SQLite Driver: %s\n", storage.DriverName)

			caps, err := storage.Verify(cmd.Context())
			if err != nil {
				return fmt.Errorf("sqlite check failed: %w", err)
			}
			fmt.Fprintf(out, "SQLite Version: %s\n", caps.Version)
			fmt.Fprintf(out, "FTS5: %v\n", caps.HasFTS5)
			return nil
		},
	}
}
