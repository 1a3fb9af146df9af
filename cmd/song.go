package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/misheard-crawler/internal/crawler"
	"github.com/JakeFAU/misheard-crawler/internal/extract"
)

// newSongCmd creates the 'song' subcommand, a debugging aid that shows what
// the crawler would publish for one song page.
func newSongCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "song <url>",
		Short: "Fetches one song page and prints its records as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runSong,
	}
}

func runSong(cmd *cobra.Command, args []string) error {
	e, err := resolveEnv(cmd.Context())
	if err != nil {
		return err
	}
	fetcher, closeFetcher, err := buildFetcher(e.cfg, e.logger)
	if err != nil {
		return err
	}
	defer func() { _ = closeFetcher() }()

	resp, err := fetcher.Fetch(cmd.Context(), crawler.FetchRequest{URL: args[0]})
	if err != nil {
		return fmt.Errorf("fetch song page: %w", err)
	}
	song, err := extract.ParseSong(string(resp.Body))
	if err != nil {
		return fmt.Errorf("parse song page: %w", err)
	}
	if len(song.Pairs) == 0 {
		e.logger.Warn("No lyrics found", zap.String("url", args[0]), zap.String("song", song.Title))
	}

	records := make([]crawler.Record, 0, len(song.Pairs))
	for _, pair := range song.Pairs {
		records = append(records, crawler.BuildRecord(song, pair))
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}
