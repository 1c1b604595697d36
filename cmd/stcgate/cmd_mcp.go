package main

import (
	"context"
	"fmt"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"stcgate/internal/compile"
	"stcgate/internal/journal"
	"stcgate/internal/logging"
	mcpserver "stcgate/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server over stdio",
	Long: `Starts an MCP server over stdin/stdout exposing compile_source and
recent_compilations, so an editor agent can compile StC programs directly.

The server exits when the process that launched it goes away.`,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, _ []string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	j, err := journal.Open(cfg.JournalPath)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	svc := compile.New(cfg, j, nil)
	srv := mcpserver.NewServer(svc, j, version)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	mcpserver.WatchParent(ctx, cancel)

	logging.New("mcp").Info("starting stcgate MCP server over stdio (parent watchdog active)")
	err = srv.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
	waitCtx, waitCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer waitCancel()
	_ = svc.Wait(waitCtx)
	return err
}
