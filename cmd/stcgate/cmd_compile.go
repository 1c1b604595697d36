package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"stcgate/internal/compile"
	"stcgate/internal/format"
	"stcgate/internal/journal"
	"stcgate/internal/render"
)

var compileFlags struct {
	format   string
	compiler string
}

var compileCmd = &cobra.Command{
	Use:   "compile <file.stc>",
	Short: "Compile one program locally and print the result",
	Long: `Runs the same pipeline as POST /compilar on a local file and prints the
tokens, errors, syntax tree and generated code.

Exit status is 0 on success, 2 when the program has errors, and 1 when the
compiler could not run or timed out.`,
	Args: cobra.ExactArgs(1),
	RunE: runCompile,
}

func init() {
	f := compileCmd.Flags()
	f.StringVar(&compileFlags.format, "format", "ascii", "output format: ascii, markdown or json")
	f.StringVar(&compileFlags.compiler, "compiler", "", "compiler executable (overrides compiler.executable)")
}

func runCompile(cmd *cobra.Command, args []string) error {
	asJSON := compileFlags.format == "json"
	var mode format.Mode
	if !asJSON {
		m, err := format.ParseMode(compileFlags.format)
		if err != nil {
			return err
		}
		mode = m
	}
	if compileFlags.compiler != "" {
		cfg.Compiler.Executable = compileFlags.compiler
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	src, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer src.Close()

	j, err := journal.Open(cfg.JournalPath)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	svc := compile.New(cfg, j, nil)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = svc.Wait(ctx)
	}()

	b, err := svc.Compile(cmd.Context(), filepath.Base(args[0]), src)
	if err != nil {
		return fmt.Errorf("compile %s: %w", args[0], err)
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(b); err != nil {
			return fmt.Errorf("encode bundle: %w", err)
		}
	} else {
		fmt.Fprint(out, render.Text(b, mode))
	}

	if compile.OutcomeOf(b) == compile.OutcomeDiagnostics {
		return &exitError{code: 2, msg: fmt.Sprintf("%s: %d error(s) found", args[0], b.DiagnosticCount())}
	}
	return nil
}
