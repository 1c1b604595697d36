// Package format draws the gateway's tables: the token table, the error
// table and the compilation journal. Each has a fixed column layout defined
// here; callers only supply rows. Tables render boxed for a terminal or as
// Markdown for MCP clients and pasted reports.
package format

import (
	"fmt"
	"slices"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Mode selects how a table is drawn.
type Mode int

const (
	ASCII    Mode = iota // box-drawn, for terminals
	Markdown             // pipe tables
)

// ParseMode maps "ascii"/"text" and "markdown"/"md" to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "ascii", "text":
		return ASCII, nil
	case "markdown", "md":
		return Markdown, nil
	}
	return ASCII, fmt.Errorf("unknown table format %q (want ascii or markdown)", s)
}

// Column is one column of a layout.
type Column struct {
	Title    string
	Numeric  bool // right-aligned
	MaxWidth int  // wrap beyond this many cells; 0 means no limit
}

var (
	// TokenColumns is the lexical table: row number, position, lexeme, class.
	TokenColumns = []Column{
		{Title: "#", Numeric: true},
		{Title: "Línea", Numeric: true},
		{Title: "Columna", Numeric: true},
		{Title: "Lexema", MaxWidth: 40},
		{Title: "Clase"},
	}
	// ValueColumn is appended to TokenColumns when some token has a literal value.
	ValueColumn = Column{Title: "Valor", MaxWidth: 40}

	// DiagnosticColumns is the error table.
	DiagnosticColumns = []Column{
		{Title: "Posición"},
		{Title: "Tipo"},
		{Title: "Descripción", MaxWidth: 72},
	}

	// HistoryColumns is the journal listing.
	HistoryColumns = []Column{
		{Title: "Inicio"},
		{Title: "Archivo", MaxWidth: 32},
		{Title: "Resultado"},
		{Title: "Duración", Numeric: true},
		{Title: "Tokens", Numeric: true},
		{Title: "Errores", Numeric: true},
		{Title: "Salida", Numeric: true},
	}
)

// TokenLayout returns TokenColumns, plus ValueColumn when withValue is set.
func TokenLayout(withValue bool) []Column {
	if !withValue {
		return TokenColumns
	}
	return append(slices.Clone(TokenColumns), ValueColumn)
}

// Table accumulates rows for one layout.
type Table struct {
	mode   Mode
	cols   []Column
	writer table.Writer
	rows   int
}

// NewTable starts a table with the given layout.
func NewTable(mode Mode, cols ...Column) *Table {
	w := table.NewWriter()
	if mode == ASCII {
		w.SetStyle(table.StyleLight)
	}
	header := make(table.Row, len(cols))
	configs := make([]table.ColumnConfig, len(cols))
	for i, c := range cols {
		header[i] = c.Title
		configs[i] = table.ColumnConfig{Number: i + 1, WidthMax: c.MaxWidth}
		if c.Numeric {
			configs[i].Align = text.AlignRight
		}
	}
	w.AppendHeader(header)
	w.SetColumnConfigs(configs)
	return &Table{mode: mode, cols: cols, writer: w}
}

// Row appends one row. Cells are printed with fmt.Sprint; missing trailing
// cells are left blank.
func (t *Table) Row(vals ...any) {
	t.writer.AppendRow(t.pad(vals))
	t.rows++
}

// Footer appends a summary row under the data.
func (t *Table) Footer(vals ...any) {
	t.writer.AppendFooter(t.pad(vals))
}

// Len is the number of data rows.
func (t *Table) Len() int { return t.rows }

func (t *Table) String() string {
	if t.mode == Markdown {
		return t.writer.RenderMarkdown()
	}
	return t.writer.Render()
}

func (t *Table) pad(vals []any) table.Row {
	row := make(table.Row, max(len(vals), len(t.cols)))
	copy(row, vals)
	for i := len(vals); i < len(row); i++ {
		row[i] = ""
	}
	return row
}
