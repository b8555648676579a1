package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/eventlite-io/eventlite/schema"
	"github.com/eventlite-io/eventlite/sqlitestate"
	"github.com/eventlite-io/eventlite/store"
	"github.com/eventlite-io/eventlite/store/sqliteengine"
)

func main() {
	cfg := parseFlags()
	configureColors(cfg.NoColor)

	r := newRepro(cfg, os.Stdout, log.Default())

	if err := r.execute(context.Background()); err != nil {
		log.Fatalf("Repro failed: %v", err)
	}

	r.printReport()

	// A store opening that lost the race keeps running unobserved; exit
	// without waiting for it.
	os.Exit(0)
}

// repro drives the two diagnosis phases and collects the report.
type repro struct {
	cfg    Config
	out    io.Writer
	logger *log.Logger
	report *Report
}

func newRepro(cfg Config, out io.Writer, logger *log.Logger) *repro {
	return &repro{
		cfg:    cfg,
		out:    out,
		logger: logger,
		report: &Report{},
	}
}

// execute runs the full diagnosis: the definitions, the as-reported build
// from a hand-assembled state, the corrected build from a factory-made
// state, and the store checks for both. Subscribe and commit failures are
// narrated and recorded but never abort the run; everything else is fatal.
func (r *repro) execute(ctx context.Context) error {
	if r.cfg.OpenStore && r.cfg.DBPath == "" {
		path, pathErr := tempDatabasePath()
		if pathErr != nil {
			return pathErr
		}

		r.cfg.DBPath = path
	}

	r.printHeader("🔍 Schema repro: hand-assembled state vs. factory-made state")

	if r.cfg.OpenStore {
		r.logger.Printf("%s Using SQLite database at %s", StatusIcon("info"), r.cfg.DBPath)
	} else {
		r.logger.Printf("%s Store checks are disabled (-store=false)", StatusIcon("warning"))
	}

	defs, defsErr := buildNoteDefinitions()
	if defsErr != nil {
		return fmt.Errorf("building the note definitions failed: %w", defsErr)
	}

	r.report.Definitions = describeDefinitions(defs)
	r.logger.Printf("%s Defined event %s, table %s and one materializer", StatusIcon("success"), defs.Event.Name, defs.Table.Name)

	if err := r.runAsReportedPhase(ctx, defs); err != nil {
		return err
	}

	if err := r.runCorrectedPhase(ctx, defs); err != nil {
		return err
	}

	r.logger.Printf("🎉 Diagnosis complete: incorrect API usage, not a library bug")

	return nil
}

// runAsReportedPhase compiles the schema from a state literal assembled by
// hand, exactly the misuse under diagnosis, and runs the store checks on
// the result.
func (r *repro) runAsReportedPhase(ctx context.Context, defs noteDefinitions) error {
	phase := PhaseReport{Title: "phase 1: state assembled by hand (as reported)"}

	r.printHeader("📋 Phase 1: schema compiled from a hand-assembled state (as reported)")

	// The misuse under diagnosis: the state fields are filled in directly,
	// so MakeState never compiles the registries.
	handAssembled := sqlitestate.State{
		Tables:        []schema.TableDef{defs.Table},
		Materializers: []schema.Materializer{defs.Materializer},
	}

	compiled, buildErr := schema.Build(schema.Definition{
		Events: []schema.EventDef{defs.Event},
		State:  handAssembled,
	})
	if buildErr != nil {
		return fmt.Errorf("compiling the hand-assembled schema failed: %w", buildErr)
	}

	r.inspect(compiled, &phase)

	streamFilter := store.BuildEventFilter().
		Matching().
		AnyEventTypeOf(eventNameNoteCreated).
		AndAnyPredicateOf(store.P(columnID, noteIDAsReported)).
		Finalize()

	if err := r.runStoreChecks(ctx, compiled, noteIDAsReported, noteTextAsReported, streamFilter, &phase); err != nil {
		return err
	}

	r.report.AsReported = phase

	return nil
}

// runCorrectedPhase compiles the same definitions through the state factory
// and runs the identical store checks on the result.
func (r *repro) runCorrectedPhase(ctx context.Context, defs noteDefinitions) error {
	phase := PhaseReport{Title: "phase 2: state compiled by the factory (corrected)"}

	r.printHeader("💡 Phase 2: schema compiled from a factory-made state (corrected)")

	factoryMade, stateErr := sqlitestate.MakeState(sqlitestate.Input{
		Tables:        []schema.TableDef{defs.Table},
		Materializers: []schema.Materializer{defs.Materializer},
	})
	if stateErr != nil {
		return fmt.Errorf("making the state failed: %w", stateErr)
	}

	compiled, buildErr := schema.Build(schema.Definition{
		Events: []schema.EventDef{defs.Event},
		State:  factoryMade,
	})
	if buildErr != nil {
		return fmt.Errorf("compiling the corrected schema failed: %w", buildErr)
	}

	r.inspect(compiled, &phase)

	journalFilter := store.BuildEventFilter().MatchingAnyEvent()

	if err := r.runStoreChecks(ctx, compiled, noteIDCorrected, noteTextCorrected, journalFilter, &phase); err != nil {
		return err
	}

	r.report.Corrected = phase

	return nil
}

// inspect narrates the shape of a compiled schema and records it.
func (r *repro) inspect(compiled schema.Schema, phase *PhaseReport) {
	phase.EventNames = compiled.EventNames()
	phase.TableNames = compiled.TableNames()
	phase.Warnings = compiled.Warnings()

	r.logger.Printf("%s Event names: %s", StatusIcon("info"), joinOrNone(phase.EventNames))
	r.logger.Printf("%s Table names: %s", StatusIcon("info"), joinOrNone(phase.TableNames))

	if len(phase.Warnings) == 0 {
		r.logger.Printf("%s No schema warnings", StatusIcon("success"))
		return
	}

	for _, warning := range phase.Warnings {
		r.logger.Printf("%s Schema warning: %s", StatusIcon("warning"), warning)
	}
}

// runStoreChecks opens a store for the compiled schema and exercises the
// subscribe, commit and query surface. Subscribe and commit run inside
// local catches: their failures are narrated with the error message and the
// Go error type, then the checks continue.
func (r *repro) runStoreChecks(
	ctx context.Context,
	compiled schema.Schema,
	noteID string,
	noteText string,
	journalFilter store.Filter,
	phase *PhaseReport,
) error {

	if !r.cfg.OpenStore {
		phase.StoreState = "skipped"
		phase.Subscribe = outcomeSkipped()
		phase.Commit = outcomeSkipped()

		return nil
	}

	st, openErr := r.openStoreRaced(compiled)
	if openErr != nil {
		return openErr
	}
	defer func() { _ = st.Close() }()

	phase.StoreState = "opened"
	r.logger.Printf("%s Store opened before the %s timeout", StatusIcon("success"), r.cfg.Timeout)

	subscription := r.trySubscribe(ctx, st, &phase.Subscribe)
	if subscription != nil {
		defer subscription.Close()
	}

	result, committed := r.tryCommit(ctx, st, noteID, noteText, &phase.Commit)

	if subscription != nil && committed && result.MutationsApplied > 0 {
		update := <-subscription.Updates()
		phase.Update = renderUpdate(update)
		r.logger.Printf("%s Subscriber received %d row(s) at sequence %d", StatusIcon("success"), len(update.Rows), update.SequenceNumber)
	}

	phase.Journal = r.journalDiagnostics(ctx, st, journalFilter)

	return nil
}

type openResult struct {
	store *sqliteengine.Store
	err   error
}

// openStoreRaced opens the store in a goroutine and races the result against
// the configured timeout. Whichever settles first wins; a losing open is
// abandoned without cancellation and keeps running unobserved.
func (r *repro) openStoreRaced(compiled schema.Schema) (*sqliteengine.Store, error) {
	var options []sqliteengine.Option
	if r.cfg.Verbose {
		options = append(options, sqliteengine.WithLogger(newVerboseLogger(os.Stderr, r.cfg.NoColor)))
	}

	results := make(chan openResult, 1)

	go func() {
		st, openErr := sqliteengine.Open(r.cfg.DBPath, compiled, options...)
		results <- openResult{store: st, err: openErr}
	}()

	select {
	case result := <-results:
		if result.err != nil {
			return nil, fmt.Errorf("opening the store failed: %w", result.err)
		}

		return result.store, nil

	case <-time.After(r.cfg.Timeout):
		return nil, fmt.Errorf("opening the store did not settle within %s", r.cfg.Timeout)
	}
}

// trySubscribe opens a subscription inside a local catch. On failure it
// narrates the error message and its Go type, records the outcome, and lets
// the checks continue.
func (r *repro) trySubscribe(ctx context.Context, st *sqliteengine.Store, outcome *CallOutcome) *store.Subscription {
	subscription, subscribeErr := st.Subscribe(ctx, tableNotes)
	if subscribeErr != nil {
		r.logger.Printf("%s Subscribe(%q) failed: %s (%T)", StatusIcon("error"), tableNotes, oneLine(subscribeErr), subscribeErr)

		if errors.Is(subscribeErr, store.ErrTableNotRegistered) {
			r.logger.Printf("%s The schema registered no tables, so there is nothing to subscribe to", StatusIcon("warning"))
		}

		*outcome = outcomeFromError(subscribeErr)

		return nil
	}

	snapshot := <-subscription.Updates()
	r.logger.Printf("%s Subscribe(%q) delivered a snapshot of %d row(s)", StatusIcon("success"), tableNotes, len(snapshot.Rows))

	*outcome = outcomeOK(fmt.Sprintf("snapshot of %d row(s)", len(snapshot.Rows)))

	return subscription
}

// tryCommit builds and commits one note event inside a local catch. On
// failure it narrates the error message and its Go type, records the
// outcome, and lets the checks continue.
func (r *repro) tryCommit(
	ctx context.Context,
	st *sqliteengine.Store,
	noteID string,
	noteText string,
	outcome *CallOutcome,
) (store.CommitResult, bool) {

	event, buildErr := noteCreatedEvent(noteID, noteText)
	if buildErr != nil {
		r.logger.Printf("%s Building the %s event failed: %s (%T)", StatusIcon("error"), eventNameNoteCreated, oneLine(buildErr), buildErr)
		*outcome = outcomeFromError(buildErr)

		return store.CommitResult{}, false
	}

	result, commitErr := st.Commit(ctx, event)
	if commitErr != nil {
		r.logger.Printf("%s Commit of %s failed: %s (%T)", StatusIcon("error"), eventNameNoteCreated, oneLine(commitErr), commitErr)
		*outcome = outcomeFromError(commitErr)

		return store.CommitResult{}, false
	}

	r.logger.Printf("%s Committed %s: sequence %d, mutations applied %d", StatusIcon("success"), eventNameNoteCreated, result.SequenceNumber, result.MutationsApplied)

	if result.MutationsApplied == 0 {
		r.logger.Printf("%s The event was journaled but no table row was materialized", StatusIcon("warning"))
	}

	*outcome = outcomeOK(fmt.Sprintf("sequence %d, mutations applied %d", result.SequenceNumber, result.MutationsApplied))

	return result, true
}

// journalDiagnostics queries the journal with the given filter and narrates
// the match count together with the filter's fingerprint.
func (r *repro) journalDiagnostics(ctx context.Context, st *sqliteengine.Store, journalFilter store.Filter) string {
	events, maxSequence, queryErr := st.Query(ctx, journalFilter)
	if queryErr != nil {
		r.logger.Printf("%s Journal query failed: %s (%T)", StatusIcon("error"), oneLine(queryErr), queryErr)

		return fmt.Sprintf("query failed: %s", oneLine(queryErr))
	}

	r.logger.Printf("%s Journal holds %d matching event(s) up to sequence %d, filter %s", StatusIcon("stats"), len(events), maxSequence, journalFilter.Hash())

	return fmt.Sprintf("%d event(s) up to sequence %d, filter %s", len(events), maxSequence, journalFilter.Hash())
}

// describeDefinitions records the object graph in report form.
func describeDefinitions(defs noteDefinitions) DefinitionsReport {
	columns := make([]string, 0, len(defs.Table.Columns))
	for _, column := range defs.Table.Columns {
		description := column.Name + " " + column.Type.String()
		if column.PrimaryKey {
			description += " primary key"
		}

		columns = append(columns, description)
	}

	return DefinitionsReport{
		EventName:     defs.Event.Name,
		PayloadSchema: defs.Event.PayloadSchema,
		TableName:     defs.Table.Name,
		Columns:       columns,
		Materializer:  defs.Materializer.EventName + " -> insert into " + defs.Table.Name,
	}
}

func (r *repro) printHeader(title string) {
	fmt.Fprintf(r.out, "\n%s\n", Header(title))
	fmt.Fprintf(r.out, "%s\n", Separator("=", 64))
}

// printReport renders the deterministic diagnosis report.
func (r *repro) printReport() {
	r.printHeader("📄 Diagnosis report")
	fmt.Fprint(r.out, r.report.Render())
}
