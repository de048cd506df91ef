package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newRootsCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "roots",
		Short: "List indexed folders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := g.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			roots, err := store.FetchRoots(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(roots) == 0 {
				fmt.Fprintln(out, "No folders indexed yet. Run 'locate build-index <path>'.")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "PATH\tFILES\tFOLDERS\tLAST INDEXED\tVOLUME")
			for _, root := range roots {
				last := "never"
				if root.LastIndexed != nil {
					last = humanize.Time(time.Unix(*root.LastIndexed, 0))
				}
				volume := "-"
				if root.VolumeName != nil {
					volume = *root.VolumeName
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					root.Path,
					humanize.Comma(root.FileCount),
					humanize.Comma(root.DirCount),
					last,
					volume)
			}
			return tw.Flush()
		},
	}
}
