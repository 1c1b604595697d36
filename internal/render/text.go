// Package render presents a compilation bundle to people: as terminal or
// Markdown text for the CLI, and as an HTML page for the browser form.
//
// The syntax tree is rendered from TreeNode.Fields, so node kinds the
// compiler adds later show up without changes here.
package render

import (
	"fmt"
	"strings"

	"stcgate/internal/artifact"
	"stcgate/internal/display"
	"stcgate/internal/format"
)

// Section titles, shared by the text and HTML renderers.
const (
	TitleTokens      = "Tabla de tokens"
	TitleDiagnostics = "Errores"
	TitleTree        = "Árbol sintáctico"
	TitleCode        = "Código generado"
	TitleToolError   = "Mensajes del compilador"
)

// Notes shown when a section has no content.
const (
	NoteUnavailable = "no disponible"
	NoteWithheld    = "omitido: el código fuente tiene errores"
	NoteNoErrors    = "sin errores"
)

// Text renders every section of b in mode.
func Text(b *artifact.Bundle, mode format.Mode) string {
	var sb strings.Builder
	heading := func(title string, count int) {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		label := title
		if count >= 0 {
			label = fmt.Sprintf("%s (%d)", title, count)
		}
		if mode == format.Markdown {
			sb.WriteString("## " + label + "\n\n")
		} else {
			sb.WriteString("== " + label + " ==\n")
		}
	}
	note := func(s string) { sb.WriteString("(" + s + ")\n") }

	if b.Tokens != nil {
		heading(TitleTokens, len(*b.Tokens))
		sb.WriteString(TokenTable(*b.Tokens, mode) + "\n")
	} else {
		heading(TitleTokens, -1)
		note(NoteUnavailable)
	}

	switch {
	case b.Diagnostics == nil:
		heading(TitleDiagnostics, -1)
		note(NoteUnavailable)
	case len(*b.Diagnostics) == 0:
		heading(TitleDiagnostics, 0)
		note(NoteNoErrors)
	default:
		heading(TitleDiagnostics, len(*b.Diagnostics))
		sb.WriteString(DiagnosticTable(*b.Diagnostics, mode) + "\n")
	}

	switch {
	case b.Tree != nil:
		heading(TitleTree, b.Tree.Count())
		if mode == format.Markdown {
			sb.WriteString("```\n" + Tree(b.Tree) + "```\n")
		} else {
			sb.WriteString(Tree(b.Tree))
		}
	case b.HasErrors():
		heading(TitleTree, -1)
		note(NoteWithheld)
	default:
		heading(TitleTree, -1)
		note(NoteUnavailable)
	}

	switch {
	case b.Code != nil:
		heading(TitleCode, -1)
		code := strings.TrimRight(*b.Code, "\n")
		if mode == format.Markdown {
			sb.WriteString("```cpp\n" + code + "\n```\n")
		} else {
			sb.WriteString(code + "\n")
		}
	case b.HasErrors():
		heading(TitleCode, -1)
		note(NoteWithheld)
	default:
		heading(TitleCode, -1)
		note(NoteUnavailable)
	}

	if b.ToolError != "" {
		heading(TitleToolError, -1)
		sb.WriteString(strings.TrimRight(b.ToolError, "\n") + "\n")
	}
	return sb.String()
}

// TokenTable renders the lexical table. The Valor column appears only when
// some token carries a literal value.
func TokenTable(toks artifact.TokenTable, mode format.Mode) string {
	withValue := toks.HasValues()
	tb := format.NewTable(mode, format.TokenLayout(withValue)...)
	for i, tok := range toks {
		row := []any{i + 1, tok.Line, tok.Column, tok.Lexeme, display.TokenClass(tok.Class)}
		if withValue {
			row = append(row, tok.Value)
		}
		tb.Row(row...)
	}
	return tb.String()
}

// DiagnosticTable renders the error table.
func DiagnosticTable(diags artifact.DiagnosticTable, mode format.Mode) string {
	tb := format.NewTable(mode, format.DiagnosticColumns...)
	for _, d := range diags {
		tb.Row(format.FmtPosition(d.Line, d.Column), display.DiagnosticKind(d.Kind), d.Message)
	}
	return tb.String()
}
