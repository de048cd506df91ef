package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dshills/locate/internal/indexer"
)

// buildIndexOptions holds CLI flags for build-index
type buildIndexOptions struct {
	batchSize     int
	includeHidden bool
	exclusions    []string
	volume        string
	all           bool
	quiet         bool
}

func newBuildIndexCmd(g *globalOptions) *cobra.Command {
	var opts buildIndexOptions

	cmd := &cobra.Command{
		Use:   "build-index [path...]",
		Short: "Scan folders and replace their entries in the index",
		Long: `Scan each folder and replace everything previously indexed under it.

Top-level entries named in the exclusion list (default: Library, .git,
node_modules) are skipped along with their contents. Names starting with
"." are skipped unless --include-hidden is set.

Examples:
  locate build-index ~/Documents ~/Downloads
  locate build-index ~/src --exclude vendor --exclude dist
  locate build-index --all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !opts.all {
				return errors.New("specify at least one folder or --all")
			}
			if len(args) > 0 && opts.all {
				return errors.New("--all cannot be combined with folder arguments")
			}
			return runBuildIndex(cmd.Context(), cmd, g, opts, args)
		},
	}

	cmd.Flags().IntVarP(&opts.batchSize, "batch-size", "b", 0, "Entries committed per transaction (default from config)")
	cmd.Flags().BoolVar(&opts.includeHidden, "include-hidden", false, "Index names starting with '.'")
	cmd.Flags().StringSliceVarP(&opts.exclusions, "exclude", "e", nil, "Top-level names to skip (repeatable, replaces config list)")
	cmd.Flags().StringVar(&opts.volume, "volume", "", "Volume label recorded on the root")
	cmd.Flags().BoolVar(&opts.all, "all", false, "Rebuild every indexed folder")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Suppress progress output")

	return cmd
}

func runBuildIndex(ctx context.Context, cmd *cobra.Command, g *globalOptions, opts buildIndexOptions, paths []string) error {
	store, err := g.openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	config := g.cfg.IndexerConfig()
	if cmd.Flags().Changed("batch-size") {
		if opts.batchSize < 1 {
			return fmt.Errorf("batch size must be positive, got %d", opts.batchSize)
		}
		config.BatchSize = opts.batchSize
	}
	if cmd.Flags().Changed("include-hidden") {
		config.IncludeHidden = opts.includeHidden
	}
	if cmd.Flags().Changed("exclude") {
		config.Exclusions = append([]string{}, opts.exclusions...)
	}
	if opts.volume != "" {
		config.VolumeName = &opts.volume
	}

	var progress indexer.ProgressFunc
	if !opts.quiet {
		progress = newProgressPrinter(cmd.ErrOrStderr()).Report
	}

	idx := indexer.New(store)
	out := cmd.OutOrStdout()

	if opts.all {
		all, err := idx.RebuildAll(ctx, config, progress)
		for _, stats := range all {
			printStats(cmd, stats)
		}
		if err != nil {
			return err
		}
		if len(all) == 0 {
			fmt.Fprintln(out, "No folders indexed yet.")
		}
		return nil
	}

	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", path, err)
		}
		stats, err := idx.RebuildIndex(ctx, abs, config, progress)
		if err != nil {
			return fmt.Errorf("indexing %s failed: %w", abs, err)
		}
		printStats(cmd, stats)
	}
	return nil
}

func printStats(cmd *cobra.Command, stats *indexer.Statistics) {
	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %s: %s files, %s folders in %s\n",
		stats.RootPath,
		humanize.Comma(stats.FilesIndexed),
		humanize.Comma(stats.DirsIndexed),
		stats.Duration.Round(time.Millisecond))
}
