// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/autobrr/qremote/internal/bitfield"
	"github.com/autobrr/qremote/internal/domain"
	"github.com/autobrr/qremote/internal/filetree"
	"github.com/autobrr/qremote/internal/listing"
	"github.com/autobrr/qremote/internal/models"
	"github.com/autobrr/qremote/internal/selection"
)

func RunTorrentsCommand(flags *globalFlags) *cobra.Command {
	var server string

	command := &cobra.Command{
		Use:   "torrents",
		Short: "Browse torrents on a server",
	}
	command.PersistentFlags().StringVarP(&server, "server", "s", "", "server id or name (default is the active server)")

	command.AddCommand(runTorrentsList(flags, &server))
	command.AddCommand(runTorrentsFiles(flags, &server))
	command.AddCommand(runTorrentsPieces(flags, &server))

	return command
}

type listFlags struct {
	sort      string
	direction string
	filter    string
	search    string
	fuzzy     bool
	expr      string
	dir       string
	selected  []string
	counts    bool
	json      bool
}

// preferences overlays the flags that were set on the stored preferences.
func (f *listFlags) preferences(cmd *cobra.Command, prefs models.ListingPreferences) (models.ListingPreferences, error) {
	if cmd.Flags().Changed("sort") {
		prefs.Sort = models.SortKey(f.sort)
	}
	if cmd.Flags().Changed("direction") {
		prefs.Direction = models.SortDirection(f.direction)
	}
	if cmd.Flags().Changed("filter") {
		prefs.Filter = models.Filter(f.filter)
	}
	if !prefs.Valid() {
		return prefs, fmt.Errorf("invalid listing options: sort=%q direction=%q filter=%q", prefs.Sort, prefs.Direction, prefs.Filter)
	}
	return prefs, nil
}

func runTorrentsList(flags *globalFlags, server *string) *cobra.Command {
	var lf listFlags

	command := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List torrents using the saved sort and filter",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApplication(flags)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), app.cfg.RequestTimeout())
			defer cancel()

			prefs, err := lf.preferences(cmd, app.settings.Load(ctx).Listing)
			if err != nil {
				return err
			}

			_, client, err := app.client(ctx, *server)
			if err != nil {
				return err
			}
			torrents, err := client.ListTorrents(ctx, domain.ListingFields)
			if err != nil {
				return err
			}

			visible, err := listing.Derive(torrents, prefs, listing.Query{Text: lf.search, Fuzzy: lf.fuzzy, Expr: lf.expr}, lf.dir)
			if err != nil {
				return err
			}

			sel := selection.New()
			for _, id := range lf.selected {
				sel.Select(domain.ParseTorrentID(id))
			}
			sel.Retain(selection.IDsOf(visible))

			out := cmd.OutOrStdout()
			if lf.json {
				return printJSON(out, visible)
			}
			if lf.counts {
				printCounts(out, listing.Counts(torrents))
			}
			if err := printTorrents(out, visible, sel); err != nil {
				return err
			}
			if sel.Active() {
				fmt.Fprintf(out, "%d of %d selected\n", sel.Len(), len(visible))
			}
			return nil
		},
	}

	command.Flags().StringVar(&lf.sort, "sort", "", "sort key: "+joinValues(models.SortKeys))
	command.Flags().StringVar(&lf.direction, "direction", "", "asc or desc")
	command.Flags().StringVar(&lf.filter, "filter", "", "status filter: "+joinValues(models.Filters))
	command.Flags().StringVarP(&lf.search, "search", "q", "", "case and accent insensitive name search")
	command.Flags().BoolVar(&lf.fuzzy, "fuzzy", false, "fuzzy name matching")
	command.Flags().StringVar(&lf.expr, "expr", "", `filter expression, e.g. 'ratio > 2 && status == "seeding"'`)
	command.Flags().StringVar(&lf.dir, "dir", "", "only torrents in this download directory")
	command.Flags().StringSliceVar(&lf.selected, "select", nil, "mark torrent ids as selected")
	command.Flags().BoolVar(&lf.counts, "counts", false, "print per-filter counts")
	command.Flags().BoolVar(&lf.json, "json", false, "print JSON")

	return command
}

func joinValues[T ~string](values []T) string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return strings.Join(out, ", ")
}

func printCounts(w io.Writer, counts map[models.Filter]int) {
	parts := make([]string, 0, len(models.Filters))
	for _, f := range models.Filters {
		parts = append(parts, fmt.Sprintf("%s: %d", f, counts[f]))
	}
	fmt.Fprintln(w, strings.Join(parts, "  "))
}

func printTorrents(w io.Writer, torrents []domain.Torrent, sel *selection.Set) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tID\tNAME\tSTATUS\tDONE\tSIZE\tRATIO\tDIR")
	for _, t := range torrents {
		marker := ""
		if sel.Contains(t.ID) {
			marker = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.0f%%\t%s\t%.2f\t%s\n",
			marker, t.ID, t.Name, t.Status, t.PercentDone*100, humanBytes(t.SizeWhenDone), t.UploadRatio, t.DownloadDir)
	}
	return tw.Flush()
}

func runTorrentsFiles(flags *globalFlags, server *string) *cobra.Command {
	var (
		path   string
		asJSON bool
	)

	command := &cobra.Command{
		Use:   "files <torrent-id>",
		Short: "Show one folder of a torrent's files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApplication(flags)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), app.cfg.RequestTimeout())
			defer cancel()

			_, client, err := app.client(ctx, *server)
			if err != nil {
				return err
			}
			files, err := client.TorrentFiles(ctx, domain.ParseTorrentID(args[0]))
			if err != nil {
				return err
			}

			browser := filetree.NewBrowser(filetree.Build(files))
			if err := browser.EnterFolder(path); err != nil {
				return err
			}

			tree := browser.Tree()
			out := cmd.OutOrStdout()
			if asJSON {
				type entry struct {
					Name   string         `json:"name"`
					IsFile bool           `json:"isFile"`
					Stats  filetree.Stats `json:"stats"`
				}
				entries := []entry{}
				for _, id := range tree.Children(browser.Current()) {
					node := tree.Node(id)
					entries = append(entries, entry{Name: node.Name, IsFile: node.IsFile, Stats: tree.Stats(id)})
				}
				return printJSON(out, entries)
			}

			current := tree.Stats(browser.Current())
			fmt.Fprintf(out, "/%s  %d files, %s, %.0f%%\n", browser.Path(), current.Files, humanBytes(current.TotalBytes), current.Progress()*100)

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tSIZE\tDONE\tPRIORITY\tWANTED")
			for _, id := range tree.Children(browser.Current()) {
				node := tree.Node(id)
				st := tree.Stats(id)
				name := node.Name
				if !node.IsFile {
					name += "/"
				}
				fmt.Fprintf(tw, "%s\t%s\t%.0f%%\t%s\t%s\n", name, humanBytes(st.TotalBytes), st.Progress()*100, st.Priority, wantedLabel(st))
			}
			return tw.Flush()
		},
	}

	command.Flags().StringVar(&path, "path", "", "folder inside the torrent")
	command.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return command
}

func wantedLabel(s filetree.Stats) string {
	switch {
	case s.AllWanted:
		return "yes"
	case s.Wanted:
		return "partly"
	default:
		return "no"
	}
}

func runTorrentsPieces(flags *globalFlags, server *string) *cobra.Command {
	var width int

	command := &cobra.Command{
		Use:   "pieces <torrent-id>",
		Short: "Show which pieces of a torrent are present",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApplication(flags)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), app.cfg.RequestTimeout())
			defer cancel()

			_, client, err := app.client(ctx, *server)
			if err != nil {
				return err
			}
			t, err := client.GetTorrent(ctx, domain.ParseTorrentID(args[0]), []domain.Field{domain.FieldName, domain.FieldPieces, domain.FieldPieceCount})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			summary := bitfield.Summarize(t.Pieces, t.PieceCount)
			fmt.Fprintf(out, "%s: %s\n", t.Name, summary)
			if width > 0 {
				printGrid(out, bitfield.Grid(t.Pieces, t.PieceCount), width)
			}
			return nil
		},
	}

	command.Flags().IntVar(&width, "width", 64, "grid width in pieces, 0 to skip the grid")
	return command
}

func printGrid(w io.Writer, grid []bool, width int) {
	var sb strings.Builder
	for i, have := range grid {
		if have {
			sb.WriteByte('#')
		} else {
			sb.WriteByte('.')
		}
		if (i+1)%width == 0 || i == len(grid)-1 {
			sb.WriteByte('\n')
		}
	}
	fmt.Fprint(w, sb.String())
}
