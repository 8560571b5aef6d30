package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/automerge/automerge-go"
	"github.com/spf13/cobra"

	"github.com/astromechza/todoboard/pkg/printer"
	"github.com/astromechza/todoboard/pkg/store"
	"github.com/astromechza/todoboard/pkg/viz"
)

var (
	historyDB       string
	historyFromFile string
	historySvg      string
	historyExport   string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the revisions of a board kept in a sqlite store",
	Long: `history lists every saved revision of the board held by the sqlite store.
The revision graph can be rendered to svg, and the raw document exported for
later inspection with --from-file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := loadHistory(cmd.Context())
		if err != nil {
			return err
		}
		return showHistory(doc)
	},
}

func init() {
	historyCmd.Flags().StringVar(&historyDB, "db", "", "sqlite database to read (defaults to the configured store path)")
	historyCmd.Flags().StringVar(&historyFromFile, "from-file", "", "read an exported document instead of a database")
	historyCmd.Flags().StringVar(&historySvg, "svg", "", "render the revision graph to this svg file")
	historyCmd.Flags().StringVar(&historyExport, "export", "", "write the raw document to this file")
}

func loadHistory(ctx context.Context) (*automerge.Doc, error) {
	if historyFromFile != "" {
		buff, err := os.ReadFile(historyFromFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read input file: %w", err)
		}
		doc, err := automerge.Load(buff)
		if err != nil {
			return nil, fmt.Errorf("failed to load doc: %w", err)
		}
		return doc, nil
	}

	path := historyDB
	if path == "" {
		cfg, err := loadConfig()
		if err != nil {
			return nil, err
		}
		if cfg.Store.Driver != store.DriverSQLite {
			return nil, printer.Error(
				"no history available",
				fmt.Sprintf("The configured store driver is '%s'. Only the sqlite store keeps revisions.", cfg.Store.Driver),
				[]string{"todoboard history --db ./todoboard.sqlite", "todoboard serve --store-driver sqlite --store-path ./todoboard.sqlite"},
			)
		}
		path = cfg.Store.Path
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s, err := store.OpenSQLite(ctx, path, 0)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	doc, err := s.History(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, printer.Error("no history available", fmt.Sprintf("Nothing has been saved to %s yet.", path), nil)
	}
	return doc, err
}

func showHistory(doc *automerge.Doc) error {
	revisions, err := viz.Revisions(doc)
	if err != nil {
		return err
	}
	slog.Debug("loaded heads", "heads", doc.Heads())
	for i, rev := range revisions {
		printer.Info("%4d  %s  %-18s %d lists, %d/%d done\n", i, rev.Hash[:min(8, len(rev.Hash))], rev.Message, rev.Lists, rev.Completed, rev.Todos)
	}

	if historySvg != "" {
		if err := viz.RenderDocToSvg(doc, historySvg); err != nil {
			return err
		}
		printer.Success("wrote revision graph to %s\n", historySvg)
	}
	if historyExport != "" {
		if err := os.WriteFile(historyExport, doc.Save(), 0o644); err != nil {
			return fmt.Errorf("failed to export document: %w", err)
		}
		printer.Success("exported %d revisions to %s\n", len(revisions), historyExport)
	}
	return nil
}
