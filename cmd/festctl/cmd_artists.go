package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"freakfest/internal/artists"
)

var artistsJSON bool

// artistsCmd fetches the lineup the same way the server does and prints it.
var artistsCmd = &cobra.Command{
	Use:   "artists",
	Short: "Fetch and print the artist lineup from the sheet",
	RunE:  runArtists,
}

func init() {
	artistsCmd.Flags().BoolVar(&artistsJSON, "json", false, "print JSON instead of a table")
}

func runArtists(cmd *cobra.Command, args []string) error {
	csvSrc := artists.NewCSVSource(cfg.Sheet.ID, cfg.Sheet.GID)
	csvSrc.BaseURL = cfg.Sheet.Base
	htmlSrc := artists.NewHTMLSource(cfg.Sheet.ID, cfg.Sheet.GID)
	htmlSrc.BaseURL = cfg.Sheet.Base
	loader := artists.NewLoader(logger.Named("artists"), csvSrc, htmlSrc)

	ctx, cancel := commandContext(cmd)
	defer cancel()

	lineup, err := loader.Load(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if artistsJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(lineup)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tINSTAGRAM")
	for _, a := range lineup {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", a.ID, a.Name, a.InstagramHandle)
	}
	return tw.Flush()
}
