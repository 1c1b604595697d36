package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"stcgate/internal/compile"
	"stcgate/internal/httpapi"
	"stcgate/internal/journal"
	"stcgate/internal/logging"
	"stcgate/internal/metrics"
)

var serveFlags struct {
	listen   string
	compiler string
	timeout  time.Duration
	workdir  string
	journal  string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP gateway",
	Long: `Serves POST /compilar for the web editor, plus an HTML form at /, the
compilation journal at /compilaciones and Prometheus metrics at /metrics.

On SIGINT or SIGTERM the server stops accepting requests, finishes the ones
in flight and waits for their work directories to be removed.`,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveFlags.listen, "listen", "", "listen address (overrides listen)")
	f.StringVar(&serveFlags.compiler, "compiler", "", "compiler executable (overrides compiler.executable)")
	f.DurationVar(&serveFlags.timeout, "timeout", 0, "per-compilation time limit (overrides compiler.timeout)")
	f.StringVar(&serveFlags.workdir, "workdir", "", "root for per-request directories (overrides workdir)")
	f.StringVar(&serveFlags.journal, "journal", "", "SQLite journal path (overrides journal_path)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	if serveFlags.listen != "" {
		cfg.Listen = serveFlags.listen
	}
	if serveFlags.compiler != "" {
		cfg.Compiler.Executable = serveFlags.compiler
	}
	if serveFlags.timeout > 0 {
		cfg.Compiler.Timeout = serveFlags.timeout
	}
	if serveFlags.workdir != "" {
		cfg.WorkDir = serveFlags.workdir
	}
	if serveFlags.journal != "" {
		cfg.JournalPath = serveFlags.journal
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	j, err := journal.Open(cfg.JournalPath)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	m := metrics.New()
	svc := compile.New(cfg, j, m)

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logging.New("http").Info("starting stcgate",
		"listen", cfg.Listen,
		"compiler", cfg.Compiler.Executable,
		"workdir", cfg.WorkDir,
		"version", version)
	return httpapi.New(cfg, svc, j, m).ListenAndServe(ctx)
}
