package render

import (
	"stcgate/internal/display"
	"stcgate/internal/format"
	"stcgate/internal/journal"
)

// History renders journal entries, newest first, with a count footer.
func History(entries []*journal.Entry, mode format.Mode) string {
	tb := format.NewTable(mode, format.HistoryColumns...)
	failed := 0
	for _, e := range entries {
		if e.Outcome == "invocation_failure" || e.Outcome == "timeout" {
			failed++
		}
		tb.Row(
			e.StartedAt.Local().Format("2006-01-02 15:04:05"),
			format.Truncate(e.Filename, 32),
			display.Outcome(e.Outcome),
			format.FmtDuration(e.Duration),
			format.FmtCount(e.TokenCount),
			e.DiagnosticCount,
			e.ExitCode,
		)
	}
	tb.Footer("", "", "", "", "", "fallidas", failed)
	return tb.String()
}
