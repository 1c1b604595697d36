package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"

	"stcgate/internal/artifact"
	"stcgate/internal/display"
	"stcgate/internal/format"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var pages = template.Must(template.New("").Funcs(template.FuncMap{
	"tokenClass":     display.TokenClass,
	"diagnosticKind": display.DiagnosticKind,
	"treeKey":        display.TreeKey,
	"pos":            format.FmtPosition,
	"add":            func(a, b int) int { return a + b },
}).ParseFS(templateFS, "templates/*.html"))

// View is the data behind the result page.
type View struct {
	Filename  string
	RequestID string
	Bundle    *artifact.Bundle
	// Error is the client-safe message of a failed request; Bundle is nil then.
	Error string
}

// Titles are exported to templates so text and HTML agree.
func (View) Titles() map[string]string {
	return map[string]string{
		"tokens":      TitleTokens,
		"diagnostics": TitleDiagnostics,
		"tree":        TitleTree,
		"code":        TitleCode,
		"toolError":   TitleToolError,
		"unavailable": NoteUnavailable,
		"withheld":    NoteWithheld,
		"noErrors":    NoteNoErrors,
	}
}

// HTML writes the result page for v.
func HTML(w io.Writer, v View) error {
	if err := pages.ExecuteTemplate(w, "result.html", v); err != nil {
		return fmt.Errorf("render result page: %w", err)
	}
	return nil
}

// Form writes the upload page.
func Form(w io.Writer) error {
	if err := pages.ExecuteTemplate(w, "form.html", nil); err != nil {
		return fmt.Errorf("render form page: %w", err)
	}
	return nil
}

// Static serves the embedded stylesheet.
func Static() http.FileSystem {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil
	}
	return http.FS(sub)
}
