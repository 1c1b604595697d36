// stcgate is the gateway in front of the compiladorStC compiler: an HTTP
// service for the web editor, a local compile command, and an MCP server.
//
// Usage:
//
//	stcgate serve [--listen=:3000] [--compiler=<path>] [--journal=<db>]
//	stcgate compile <file.stc> [--format=ascii|markdown|json]
//	stcgate render <bundle.json> [--format=ascii|markdown]
//	stcgate history [--limit=20]
//	stcgate mcp
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"stcgate/internal/config"
	"stcgate/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

// cfg is loaded once in PersistentPreRunE and read by every subcommand.
var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "stcgate",
	Short: "Gateway for the compiladorStC compiler",
	Long: "stcgate stages uploaded StC programs, runs compiladorStC on them and\n" +
		"returns its tokens, errors, syntax tree and generated C++ as one response.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.configPath, "config", config.DefaultPath, "YAML config file")
	pf.StringVar(&rootFlags.logLevel, "log-level", "", "debug, info, warn or error (overrides log.level)")
	pf.StringVar(&rootFlags.logFormat, "log-format", "", "text or json (overrides log.format)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.Version = version
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	loaded, err := config.LoadFromPath(rootFlags.configPath)
	if err != nil {
		return err
	}
	if rootFlags.logLevel != "" {
		loaded.Log.Level = rootFlags.logLevel
	}
	if rootFlags.logFormat != "" {
		loaded.Log.Format = rootFlags.logFormat
	}
	level, err := logging.ParseLevel(loaded.Log.Level)
	if err != nil {
		return err
	}
	logging.Init(level, loaded.Log.Format, cmd.ErrOrStderr())
	cfg = loaded
	return nil
}

// exitError carries a process exit code other than 1 out of RunE.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}
