package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"stcgate/internal/format"
	"stcgate/internal/journal"
	"stcgate/internal/render"
)

var historyFlags struct {
	limit   int
	journal string
	format  string
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent compilations from the journal",
	RunE:  runHistory,
}

func init() {
	f := historyCmd.Flags()
	f.IntVar(&historyFlags.limit, "limit", 20, "number of entries, newest first")
	f.StringVar(&historyFlags.journal, "journal", "", "SQLite journal path (overrides journal_path)")
	f.StringVar(&historyFlags.format, "format", "ascii", "output format: ascii or markdown")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	mode, err := format.ParseMode(historyFlags.format)
	if err != nil {
		return err
	}
	if historyFlags.limit < 1 {
		return fmt.Errorf("--limit must be positive, got %d", historyFlags.limit)
	}
	path := historyFlags.journal
	if path == "" {
		path = cfg.JournalPath
	}
	if path == "" {
		return errors.New("no journal configured: journal_path is empty, so compilations are only kept in memory")
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("open journal: %w", err)
	}

	j, err := journal.OpenSQL(path)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	entries, err := j.Recent(historyFlags.limit)
	if err != nil {
		return fmt.Errorf("read journal: %w", err)
	}
	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintf(out, "No compilations recorded in %s\n", path)
		return nil
	}
	fmt.Fprint(out, render.History(entries, mode))
	return nil
}
