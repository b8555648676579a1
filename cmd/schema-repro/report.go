package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/eventlite-io/eventlite/store"
)

// Report is the deterministic summary of one repro run. It carries no
// clocks, durations or file paths, so its rendering is stable across runs
// and suitable for golden file comparison.
type Report struct {
	Definitions DefinitionsReport
	AsReported  PhaseReport
	Corrected   PhaseReport
}

// DefinitionsReport describes the object graph under diagnosis.
type DefinitionsReport struct {
	EventName     string
	PayloadSchema string
	TableName     string
	Columns       []string
	Materializer  string
}

// PhaseReport captures one diagnosis phase: the inspected schema shape and
// the outcomes of the store checks.
type PhaseReport struct {
	Title      string
	EventNames []string
	TableNames []string
	Warnings   []string
	StoreState string
	Subscribe  CallOutcome
	Commit     CallOutcome
	Update     string
	Journal    string
}

// CallOutcome records one subscribe or commit attempt: a success detail, or
// the error message together with the Go error type.
type CallOutcome struct {
	OK        bool
	Skipped   bool
	Detail    string
	Error     string
	ErrorType string
}

func outcomeOK(detail string) CallOutcome {
	return CallOutcome{OK: true, Detail: detail}
}

func outcomeSkipped() CallOutcome {
	return CallOutcome{Skipped: true}
}

func outcomeFromError(err error) CallOutcome {
	return CallOutcome{
		Error:     oneLine(err),
		ErrorType: fmt.Sprintf("%T", err),
	}
}

// oneLine flattens a possibly joined error message for single-line output.
func oneLine(err error) string {
	return strings.ReplaceAll(err.Error(), "\n", "; ")
}

// verdictLines document the diagnosis result.
var verdictLines = []string{
	"The store behaves as documented. A state literal assembled by hand",
	"carries no compiled registries, so schema compilation registers neither",
	"tables nor materializers: subscribing fails with a table error and a",
	"commit journals the event without materializing a row. The same",
	"definitions compiled with sqlitestate.MakeState register the table, the",
	"subscription delivers rows, and the commit materializes one.",
	"Conclusion: incorrect API usage, not a library bug.",
}

// Render returns the report as plain text with stable ordering.
func (r *Report) Render() string {
	var sb strings.Builder

	sb.WriteString("SCHEMA REPRO DIAGNOSIS\n")

	sb.WriteString("\n[definitions]\n")
	sb.WriteString("event: " + r.Definitions.EventName + "\n")
	sb.WriteString("payload schema: " + r.Definitions.PayloadSchema + "\n")
	sb.WriteString("table: " + r.Definitions.TableName + " (" + strings.Join(r.Definitions.Columns, ", ") + ")\n")
	sb.WriteString("materializer: " + r.Definitions.Materializer + "\n")

	renderPhase(&sb, r.AsReported)
	renderPhase(&sb, r.Corrected)

	sb.WriteString("\n[verdict]\n")
	for _, line := range verdictLines {
		sb.WriteString(line + "\n")
	}

	return sb.String()
}

func renderPhase(sb *strings.Builder, phase PhaseReport) {
	sb.WriteString("\n[" + phase.Title + "]\n")
	sb.WriteString("event names: " + joinOrNone(phase.EventNames) + "\n")
	sb.WriteString("table names: " + joinOrNone(phase.TableNames) + "\n")

	if len(phase.Warnings) == 0 {
		sb.WriteString("warnings: (none)\n")
	} else {
		for _, warning := range phase.Warnings {
			sb.WriteString("warning: " + warning + "\n")
		}
	}

	sb.WriteString("store: " + phase.StoreState + "\n")
	sb.WriteString("subscribe: " + renderOutcome(phase.Subscribe) + "\n")
	sb.WriteString("commit: " + renderOutcome(phase.Commit) + "\n")

	if phase.Update != "" {
		sb.WriteString("update: " + phase.Update + "\n")
	}

	if phase.Journal != "" {
		sb.WriteString("journal: " + phase.Journal + "\n")
	}
}

func renderOutcome(outcome CallOutcome) string {
	switch {
	case outcome.Skipped:
		return "skipped"
	case outcome.OK:
		return "ok: " + outcome.Detail
	default:
		return fmt.Sprintf("failed: %s (%s)", outcome.Error, outcome.ErrorType)
	}
}

// renderUpdate flattens a table update into one line with stable row and
// column ordering.
func renderUpdate(update store.TableUpdate) string {
	rows := make([]string, 0, len(update.Rows))

	for _, row := range update.Rows {
		names := make([]string, 0, len(row))
		for name := range row {
			names = append(names, name)
		}
		sort.Strings(names)

		columns := make([]string, 0, len(names))
		for _, name := range names {
			columns = append(columns, fmt.Sprintf("%s=%v", name, row[name]))
		}

		rows = append(rows, strings.Join(columns, ", "))
	}

	return fmt.Sprintf("%d row(s) at sequence %d: %s", len(update.Rows), update.SequenceNumber, strings.Join(rows, "; "))
}

func joinOrNone(values []string) string {
	if len(values) == 0 {
		return "(none)"
	}

	return strings.Join(values, ", ")
}
