package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/misheard-crawler/internal/crawler"
	"github.com/JakeFAU/misheard-crawler/internal/extract"
)

// newIndexCmd creates the 'index' subcommand.
func newIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index <letter>",
		Short: "Fetches one artist index page and prints the song URLs it links to",
		Args:  cobra.ExactArgs(1),
		RunE:  runIndex,
	}
}

func runIndex(cmd *cobra.Command, args []string) error {
	e, err := resolveEnv(cmd.Context())
	if err != nil {
		return err
	}
	letters, err := extract.ParseLetters(args[0])
	if err != nil {
		return err
	}
	if len(letters) != 1 {
		return fmt.Errorf("expected a single letter, got %q", args[0])
	}
	letter := letters[0]

	fetcher, closeFetcher, err := buildFetcher(e.cfg, e.logger)
	if err != nil {
		return err
	}
	defer func() { _ = closeFetcher() }()

	url := extract.IndexURL(e.cfg.Source.IndexURLTemplate, letter)
	resp, err := fetcher.Fetch(cmd.Context(), crawler.FetchRequest{URL: url})
	if err != nil {
		return fmt.Errorf("fetch index page: %w", err)
	}
	links, err := extract.ParseIndex(letter, string(resp.Body), e.cfg.Source.SongBaseURL)
	if err != nil {
		return fmt.Errorf("parse index page: %w", err)
	}
	for link := range links {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), link.URL); err != nil {
			return err
		}
	}
	return nil
}
