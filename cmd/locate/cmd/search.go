package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dshills/locate/internal/searcher"
	"github.com/dshills/locate/internal/storage"
	"github.com/dshills/locate/pkg/types"
)

// searchOptions holds CLI flags for search
type searchOptions struct {
	limit         int
	regex         bool
	caseSensitive bool
	matchPath     bool
	extensions    []string
	excludeExts   []string
	filesOnly     bool
	dirsOnly      bool
	fileType      string
	size          string
	modified      string
	folder        string
	format        string
}

func newSearchCmd(g *globalOptions) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search indexed file and folder names",
		Long: `Search indexed names. Plain terms are prefix-matched, +term must appear
and -term must not appear in the name.

Examples:
  locate search report
  locate search invoice +2024 -draft --type documents --modified last30Days
  locate search '\.(heic|jpe?g)$' --regex --folder ~/Pictures
  locate search src/internal --path`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, g, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default from config)")
	cmd.Flags().BoolVarP(&opts.regex, "regex", "r", false, "Treat the query as a regular expression")
	cmd.Flags().BoolVarP(&opts.caseSensitive, "case-sensitive", "c", false, "Match case exactly")
	cmd.Flags().BoolVarP(&opts.matchPath, "path", "p", false, "Match against the full path instead of the name")
	cmd.Flags().StringSliceVar(&opts.extensions, "ext", nil, "Only these extensions (repeatable)")
	cmd.Flags().StringSliceVar(&opts.excludeExts, "exclude-ext", nil, "Skip these extensions (repeatable)")
	cmd.Flags().BoolVar(&opts.filesOnly, "files-only", false, "Only return files")
	cmd.Flags().BoolVar(&opts.dirsOnly, "dirs-only", false, "Only return folders")
	cmd.Flags().StringVarP(&opts.fileType, "type", "t", "", "File type: all, documents, images, code")
	cmd.Flags().StringVar(&opts.size, "size", "", "Size: any, over1MB, over10MB, over100MB")
	cmd.Flags().StringVar(&opts.modified, "modified", "", "Modified: any, last24Hours, last7Days, last30Days")
	cmd.Flags().StringVar(&opts.folder, "folder", "", "Only return entries inside this folder")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, g *globalOptions, text string, opts searchOptions) error {
	if opts.format != "text" && opts.format != "json" {
		return fmt.Errorf("unknown format %q (want text or json)", opts.format)
	}
	if opts.filesOnly && opts.dirsOnly {
		return errors.New("--files-only and --dirs-only are mutually exclusive")
	}

	req, err := buildSearchRequest(text, opts, time.Now())
	if err != nil {
		return err
	}

	store, err := g.openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	srch, err := searcher.New(store, g.cfg.SearcherOptions())
	if err != nil {
		return err
	}

	resp, err := srch.Search(ctx, req, opts.limit)
	if err != nil {
		return err
	}

	if opts.format == "json" {
		return writeJSONResults(cmd.OutOrStdout(), resp)
	}
	return writeTextResults(cmd.OutOrStdout(), resp)
}

func buildSearchRequest(text string, opts searchOptions, now time.Time) (searcher.SearchRequest, error) {
	req := searcher.SearchRequest{
		Query:         text,
		UseRegex:      opts.regex,
		CaseSensitive: opts.caseSensitive,
		MatchPath:     opts.matchPath,
	}
	req.ExcludeDirectories = opts.filesOnly
	req.ExcludeFiles = opts.dirsOnly
	req.Extensions = opts.extensions
	req.ExcludedExtensions = opts.excludeExts

	if opts.folder != "" {
		abs, err := filepath.Abs(opts.folder)
		if err != nil {
			return req, fmt.Errorf("failed to resolve folder: %w", err)
		}
		req.FolderScope = abs
	}

	presets := types.Presets{
		FileType: types.FileType(opts.fileType),
		Size:     types.SizePreset(opts.size),
		Date:     types.DatePreset(opts.modified),
	}
	if err := presets.Validate(); err != nil {
		return req, err
	}
	req.ApplyPresets(presets, now)

	return req, nil
}

func writeTextResults(w io.Writer, resp *searcher.SearchResponse) error {
	if len(resp.Results) == 0 {
		_, err := fmt.Fprintln(w, "No results.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, rec := range resp.Results {
		size := "-"
		if rec.Size != nil {
			size = humanize.Bytes(uint64(max(*rec.Size, 0)))
		}
		modified := "-"
		if rec.ModifiedAt != nil {
			modified = humanize.Time(time.Unix(*rec.ModifiedAt, 0))
		}
		path := rec.Path
		if rec.IsDirectory {
			path += string(filepath.Separator)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", path, size, modified)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d results (%s)\n", len(resp.Results), resp.Duration.Round(time.Microsecond))
	return err
}

// jsonResult is the search output record for --format json
type jsonResult struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Path        string  `json:"path"`
	IsDirectory bool    `json:"is_directory"`
	Size        *int64  `json:"size,omitempty"`
	Extension   *string `json:"extension,omitempty"`
	ModifiedAt  *int64  `json:"modified_at,omitempty"`
}

func writeJSONResults(w io.Writer, resp *searcher.SearchResponse) error {
	results := make([]jsonResult, 0, len(resp.Results))
	for _, rec := range resp.Results {
		results = append(results, toJSONResult(rec))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]interface{}{
		"results":  results,
		"count":    len(results),
		"strategy": resp.Strategy.String(),
	})
}

func toJSONResult(rec storage.FileRecord) jsonResult {
	return jsonResult{
		ID:          rec.ID,
		Name:        rec.Name,
		Path:        rec.Path,
		IsDirectory: rec.IsDirectory,
		Size:        rec.Size,
		Extension:   rec.Extension,
		ModifiedAt:  rec.ModifiedAt,
	}
}
