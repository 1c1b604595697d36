package compile

import "stcgate/internal/artifact"

// Phase is where a Compilation stands in its lifecycle.
//
//	Staged → Invoking → Collecting → Deciding → Responding → CleaningUp
//	Staged → Invoking → RespondingError → CleaningUp
type Phase int

const (
	PhaseStaged Phase = iota
	PhaseInvoking
	PhaseCollecting
	PhaseDeciding
	PhaseResponding
	PhaseRespondingError
	PhaseCleaningUp
)

var phaseNames = [...]string{
	PhaseStaged:          "staged",
	PhaseInvoking:        "invoking",
	PhaseCollecting:      "collecting",
	PhaseDeciding:        "deciding",
	PhaseResponding:      "responding",
	PhaseRespondingError: "responding_error",
	PhaseCleaningUp:      "cleaning_up",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// Outcome labels a finished compilation in the journal and metrics.
type Outcome string

const (
	OutcomeOK                Outcome = "ok"
	OutcomeDiagnostics       Outcome = "diagnostics"
	OutcomeToolError         Outcome = "tool_error"
	OutcomeInvocationFailure Outcome = "invocation_failure"
	OutcomeTimeout           Outcome = "timeout"
)

// Outcomes lists every outcome, in display order.
func Outcomes() []Outcome {
	return []Outcome{OutcomeOK, OutcomeDiagnostics, OutcomeToolError, OutcomeInvocationFailure, OutcomeTimeout}
}

// OutcomeOf labels a bundle from a run that exited cleanly. Diagnostics win
// over a tool complaint.
func OutcomeOf(b *artifact.Bundle) Outcome {
	switch {
	case b.HasErrors():
		return OutcomeDiagnostics
	case b.ToolError != "":
		return OutcomeToolError
	}
	return OutcomeOK
}
