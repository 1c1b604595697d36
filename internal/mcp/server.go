// Package mcp exposes the compile pipeline as MCP tools, so an editor agent
// can compile a program and read the result without going through HTTP.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"stcgate/internal/compile"
	"stcgate/internal/display"
	"stcgate/internal/format"
	"stcgate/internal/journal"
	"stcgate/internal/logging"
	"stcgate/internal/render"
	"stcgate/internal/workdir"
)

const (
	defaultRecentLimit = 10
	maxRecentLimit     = 200
)

// Server wraps the MCP SDK server around a compile Service.
type Server struct {
	MCPServer *sdkmcp.Server

	svc     *compile.Service
	journal journal.Store
}

// NewServer registers the compile tools. j may be nil, in which case
// recent_compilations reports that no journal is configured.
func NewServer(svc *compile.Service, j journal.Store, version string) *Server {
	s := &Server{svc: svc, journal: j}
	s.MCPServer = sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: "stcgate", Version: version},
		nil,
	)
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "compile_source",
		Description: "Compile a StC program with compiladorStC. Returns tokens, diagnostics, syntax tree and generated C++ as JSON plus a readable rendering. Tree and code are omitted when the program has errors.",
	}, s.handleCompileSource)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "recent_compilations",
		Description: "List the most recent compilations handled by this gateway, newest first.",
	}, s.handleRecentCompilations)
}

// --- Tool input/output types ---

type compileSourceInput struct {
	Source   string `json:"source" jsonschema:"program text to compile"`
	Filename string `json:"filename,omitempty" jsonschema:"file name for the program (default fuente.stc)"`
	Format   string `json:"format,omitempty" jsonschema:"rendering of the result: ascii (default) or markdown"`
}

type compileSourceOutput struct {
	Outcome     string `json:"outcome"`
	Summary     string `json:"summary"`
	Tokens      int    `json:"tokens"`
	Diagnostics int    `json:"diagnostics"`
	Rendered    string `json:"rendered"`
	// Bundle is the /compilar response body. Typed as any: the syntax tree
	// is recursive and has no finite schema.
	Bundle any `json:"bundle"`
}

type recentCompilationsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum entries to return (default 10)"`
}

type recentCompilationsOutput struct {
	Entries []*journal.Entry `json:"entries"`
	Table   string           `json:"table"`
}

// --- Tool handlers ---

func (s *Server) handleCompileSource(ctx context.Context, _ *sdkmcp.CallToolRequest, input compileSourceInput) (*sdkmcp.CallToolResult, compileSourceOutput, error) {
	logger := logging.New("mcp")
	if strings.TrimSpace(input.Source) == "" {
		return nil, compileSourceOutput{}, errors.New("source is required")
	}
	mode, err := format.ParseMode(input.Format)
	if err != nil {
		return nil, compileSourceOutput{}, err
	}
	name := input.Filename
	if name == "" {
		name = workdir.FallbackName
	}

	b, err := s.svc.Compile(ctx, name, strings.NewReader(input.Source))
	if err != nil {
		logger.Info("compile_source failed", "kind", compile.KindOf(err).String())
		return nil, compileSourceOutput{}, errors.New(compile.ClientMessage(err))
	}
	outcome := string(compile.OutcomeOf(b))
	return nil, compileSourceOutput{
		Outcome:     outcome,
		Summary:     display.Outcome(outcome),
		Tokens:      b.TokenCount(),
		Diagnostics: b.DiagnosticCount(),
		Rendered:    render.Text(b, mode),
		Bundle:      b,
	}, nil
}

func (s *Server) handleRecentCompilations(_ context.Context, _ *sdkmcp.CallToolRequest, input recentCompilationsInput) (*sdkmcp.CallToolResult, recentCompilationsOutput, error) {
	if s.journal == nil {
		return nil, recentCompilationsOutput{}, errors.New("no compilation journal configured")
	}
	limit := input.Limit
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	entries, err := s.journal.Recent(min(limit, maxRecentLimit))
	if err != nil {
		return nil, recentCompilationsOutput{}, fmt.Errorf("recent_compilations: %w", err)
	}
	if entries == nil {
		entries = []*journal.Entry{}
	}
	return nil, recentCompilationsOutput{
		Entries: entries,
		Table:   render.History(entries, format.Markdown),
	}, nil
}
