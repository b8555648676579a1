package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"
	"time"
)

type FilterEventTypeString = string
type FilterKeyString = string
type FilterValString = string

/***** Filter *****/

type Filter struct {
	items                    []FilterItem
	occurredFrom             time.Time
	occurredUntil            time.Time
	sequenceNumberHigherThan uint
}

func (f Filter) Items() []FilterItem {
	return f.items
}

func (f Filter) OccurredFrom() time.Time {
	return f.occurredFrom
}

func (f Filter) OccurredUntil() time.Time {
	return f.occurredUntil
}

func (f Filter) SequenceNumberHigherThan() uint {
	return f.sequenceNumberHigherThan
}

// Serialize returns a deterministic textual representation of the Filter.
// Since the builder sorts and dedupes all inputs, two filters with the same
// criteria always serialize identically, regardless of input order.
func (f Filter) Serialize() string {
	var sb strings.Builder

	for i, item := range f.items {
		if i > 0 {
			sb.WriteString("\n")
		}

		sb.WriteString(fmt.Sprintf("item:%d", i))

		if len(item.eventTypes) > 0 {
			sb.WriteString("|event_types:")
			sb.WriteString(strings.Join(item.eventTypes, ","))
		}

		if len(item.predicates) > 0 {
			pairs := make([]string, len(item.predicates))
			for j, predicate := range item.predicates {
				pairs[j] = predicate.key + "=" + predicate.val
			}

			sb.WriteString("|predicates:")
			sb.WriteString(strings.Join(pairs, ","))
		}

		if item.allPredicatesMustMatch {
			sb.WriteString("|predicate_logic:AND")
		} else {
			sb.WriteString("|predicate_logic:OR")
		}
	}

	if !f.occurredFrom.IsZero() {
		sb.WriteString("\noccurred_from:" + f.occurredFrom.UTC().Format(time.RFC3339Nano))
	}

	if !f.occurredUntil.IsZero() {
		sb.WriteString("\noccurred_until:" + f.occurredUntil.UTC().Format(time.RFC3339Nano))
	}

	if f.sequenceNumberHigherThan > 0 {
		sb.WriteString(fmt.Sprintf("\nsequence_higher_than:%d", f.sequenceNumberHigherThan))
	}

	return sb.String()
}

// Hash returns a deterministic fingerprint of the Filter, prefixed with "sha256:".
// Filters with the same criteria share the same hash, which makes it usable as
// a cache or identity key for derived read models.
func (f Filter) Hash() string {
	sum := sha256.Sum256([]byte(f.Serialize()))

	return "sha256:" + hex.EncodeToString(sum[:])
}

// ReopenForSequenceFiltering reopens a finalized Filter so that a sequence
// number boundary can be added, typically to query only the events that were
// committed after a known journal position.
//
// The result is either a SequenceFilteringCapable, when the boundary can be
// added, or a SequenceFilteringIncompatible, when the Filter already carries
// time boundaries (time and sequence boundaries are mutually exclusive).
func (f Filter) ReopenForSequenceFiltering() ReopenedFilter {
	if !f.occurredFrom.IsZero() || !f.occurredUntil.IsZero() {
		return sequenceFilteringIncompatibleFilter{}
	}

	builder := filterBuilder{}

	if len(f.items) > 0 {
		builder.filter.items = slices.Clone(f.items[:len(f.items)-1])
		builder.currentFilterItem = f.items[len(f.items)-1]
	}

	return builder
}

/***** FilterItem *****/

type FilterItem struct {
	eventTypes             []FilterEventTypeString
	predicates             []FilterPredicate
	allPredicatesMustMatch bool
}

func (fi FilterItem) EventTypes() []FilterEventTypeString {
	return fi.eventTypes
}

func (fi FilterItem) Predicates() []FilterPredicate {
	return fi.predicates
}

func (fi FilterItem) AllPredicatesMustMatch() bool {
	return fi.allPredicatesMustMatch
}

/***** FilterPredicate *****/

type FilterPredicate struct {
	key FilterKeyString
	val FilterValString
}

func P(key FilterKeyString, val FilterValString) FilterPredicate {
	return FilterPredicate{key: key, val: val}
}

func (fp FilterPredicate) Key() FilterKeyString {
	return fp.key
}

func (fp FilterPredicate) Val() FilterValString {
	return fp.val
}

/***** FilterBuilder *****/

// FilterBuilder builds a generic event filter to be used in DB type-specific store implementations to build queries for
// the specific query language, e.g.: SQLite, Postgres, Mysql, MongoDB, ...
// It is designed with the idea to only allow "useful" filter combinations for event-sourced workflows:
//
//   - empty filter
//   - (eventType)
//   - (eventType OR eventType...)
//   - (predicate)
//   - (predicate OR predicate...)
//   - (predicate AND predicate...)
//   - (eventType AND predicate)
//   - (eventType AND (predicate OR predicate...))
//   - (eventType AND (predicate AND predicate...))
//   - ((eventType OR eventType...) AND (predicate OR predicate...))
//   - ((eventType OR eventType...) AND (predicate AND predicate...))
//   - ((eventType AND predicate) OR (eventType AND predicate)...) -> multiple FilterItem(s)
//
// Each combination can additionally be bounded by occurred-at time boundaries
// OR a sequence number boundary (never both), and those boundaries can also
// be used on their own.
type FilterBuilder interface {
	// Matching starts a new FilterItem.
	Matching() EmptyFilterItemBuilder

	// MatchingAnyEvent directly creates an empty Filter.
	MatchingAnyEvent() Filter

	// OccurredFrom restricts the Filter to events that occurred at or after the given time.
	OccurredFrom(from time.Time) CompletedFilterItemBuilderWithOccurredFrom

	// OccurredUntil restricts the Filter to events that occurred at or before the given time.
	OccurredUntil(until time.Time) CompletedFilterItemBuilderWithOccurredUntil

	// WithSequenceNumberHigherThan restricts the Filter to events with a sequence number higher than the given one.
	WithSequenceNumberHigherThan(sequenceNumber uint) CompletedFilterItemBuilderWithSequenceNumber
}

type EmptyFilterItemBuilder interface {
	// AnyEventTypeOf adds one or multiple EventTypes to the current FilterItem.
	//
	// It sanitizes the input:
	//	- removing empty EventTypes ("")
	//	- sorting the EventTypes
	//	- removing duplicate EventTypes
	AnyEventTypeOf(eventType FilterEventTypeString, eventTypes ...FilterEventTypeString) FilterItemBuilderLackingPredicates

	// AnyPredicateOf adds one or multiple FilterPredicate(s) to the current FilterItem.
	//
	// It sanitizes the input:
	//	- removing empty/partial FilterPredicate(s) (key or val is "")
	//	- sorting the FilterPredicate(s)
	//	- removing duplicate FilterPredicate(s)
	AnyPredicateOf(predicate FilterPredicate, predicates ...FilterPredicate) FilterItemBuilderLackingEventTypes

	AllPredicatesOf(predicate FilterPredicate, predicates ...FilterPredicate) FilterItemBuilderLackingEventTypes
}

type FilterItemBuilderLackingPredicates interface {
	// AndAnyPredicateOf adds one or multiple FilterPredicate(s) to the current FilterItem.
	//
	// It sanitizes the input:
	//	- removing empty/partial FilterPredicate(s) (key or val is "")
	//	- sorting the FilterPredicate(s)
	//	- removing duplicate FilterPredicate(s)

	AndAnyPredicateOf(predicate FilterPredicate, predicates ...FilterPredicate) CompletedFilterItemBuilder

	AndAllPredicatesOf(predicate FilterPredicate, predicates ...FilterPredicate) CompletedFilterItemBuilder

	// OrMatching finalizes the current FilterItem and starts a new one.
	OrMatching() EmptyFilterItemBuilder

	// OccurredFrom restricts the Filter to events that occurred at or after the given time.
	OccurredFrom(from time.Time) CompletedFilterItemBuilderWithOccurredFrom

	// OccurredUntil restricts the Filter to events that occurred at or before the given time.
	OccurredUntil(until time.Time) CompletedFilterItemBuilderWithOccurredUntil

	// WithSequenceNumberHigherThan restricts the Filter to events with a sequence number higher than the given one.
	WithSequenceNumberHigherThan(sequenceNumber uint) CompletedFilterItemBuilderWithSequenceNumber

	// Finalize returns the Filter once it has at least one FilterItem with at least one EventType OR one Predicate.
	Finalize() Filter
}

type FilterItemBuilderLackingEventTypes interface {
	// AndAnyEventTypeOf adds one or multiple EventTypes to the current FilterItem.
	//
	// It sanitizes the input:
	//	- removing empty EventTypes ("")
	//	- sorting the EventTypes
	//	- removing duplicate EventTypes
	AndAnyEventTypeOf(eventType FilterEventTypeString, eventTypes ...FilterEventTypeString) CompletedFilterItemBuilder

	// OrMatching finalizes the current FilterItem and starts a new one.
	OrMatching() EmptyFilterItemBuilder

	// OccurredFrom restricts the Filter to events that occurred at or after the given time.
	OccurredFrom(from time.Time) CompletedFilterItemBuilderWithOccurredFrom

	// OccurredUntil restricts the Filter to events that occurred at or before the given time.
	OccurredUntil(until time.Time) CompletedFilterItemBuilderWithOccurredUntil

	// WithSequenceNumberHigherThan restricts the Filter to events with a sequence number higher than the given one.
	WithSequenceNumberHigherThan(sequenceNumber uint) CompletedFilterItemBuilderWithSequenceNumber

	// Finalize returns the Filter once it has at least one FilterItem with at least one EventType OR one Predicate.
	Finalize() Filter
}

type CompletedFilterItemBuilder interface {
	// OrMatching finalizes the current FilterItem and starts a new one.
	OrMatching() EmptyFilterItemBuilder

	// OccurredFrom restricts the Filter to events that occurred at or after the given time.
	OccurredFrom(from time.Time) CompletedFilterItemBuilderWithOccurredFrom

	// OccurredUntil restricts the Filter to events that occurred at or before the given time.
	OccurredUntil(until time.Time) CompletedFilterItemBuilderWithOccurredUntil

	// WithSequenceNumberHigherThan restricts the Filter to events with a sequence number higher than the given one.
	WithSequenceNumberHigherThan(sequenceNumber uint) CompletedFilterItemBuilderWithSequenceNumber

	// Finalize returns the Filter once it has at least one FilterItem with at least one EventType OR one Predicate.
	Finalize() Filter
}

type CompletedFilterItemBuilderWithOccurredFrom interface {
	// AndOccurredUntil restricts the Filter to events that occurred at or before the given time.
	AndOccurredUntil(until time.Time) CompletedFilterItemBuilderWithOccurredFromToUntil

	// Finalize returns the Filter.
	Finalize() Filter
}

type CompletedFilterItemBuilderWithOccurredUntil interface {
	// Finalize returns the Filter.
	Finalize() Filter
}

type CompletedFilterItemBuilderWithOccurredFromToUntil interface {
	// Finalize returns the Filter.
	Finalize() Filter
}

type CompletedFilterItemBuilderWithSequenceNumber interface {
	// Finalize returns the Filter.
	Finalize() Filter
}

// ReopenedFilter is the result of Filter.ReopenForSequenceFiltering.
// It is either a SequenceFilteringCapable or a SequenceFilteringIncompatible.
type ReopenedFilter any

// SequenceFilteringCapable allows adding a sequence number boundary to a reopened Filter.
type SequenceFilteringCapable interface {
	WithSequenceNumberHigherThan(sequenceNumber uint) CompletedFilterItemBuilderWithSequenceNumber
}

// SequenceFilteringIncompatible documents why a sequence number boundary cannot be added to a reopened Filter.
type SequenceFilteringIncompatible interface {
	CannotAddSequenceFiltering() string
}

// sequenceFilteringIncompatibleFilter is returned for reopened filters that carry time boundaries.
type sequenceFilteringIncompatibleFilter struct{}

func (sequenceFilteringIncompatibleFilter) CannotAddSequenceFiltering() string {
	return "cannot add sequence filtering: time boundaries already present"
}

// filterBuilder implements all the interfaces of FilterBuilder
type filterBuilder struct {
	filter            Filter
	currentFilterItem FilterItem
}

// BuildEventFilter creates a FilterBuilder which must eventually be finalized with Finalize() or MatchingAnyEvent().
func BuildEventFilter() FilterBuilder {
	return filterBuilder{}
}

// Matching starts a new FilterItem.
func (fb filterBuilder) Matching() EmptyFilterItemBuilder {
	fb.currentFilterItem = FilterItem{}

	return fb
}

// AnyEventTypeOf adds one or multiple EventTypes to the current FilterItem expecting ANY EventType to match.
//
// It sanitizes the input:
//   - removing empty EventTypes ("")
//   - sorting the EventTypes
//   - removing duplicate EventTypes
func (fb filterBuilder) AnyEventTypeOf(
	eventType FilterEventTypeString,
	eventTypes ...FilterEventTypeString,
) FilterItemBuilderLackingPredicates {

	fb.currentFilterItem.eventTypes = append(
		fb.currentFilterItem.eventTypes,
		fb.sanitizeEventTypes(eventType, eventTypes...)...,
	)

	return fb
}

// AndAnyEventTypeOf adds one or multiple EventTypes to the current FilterItem expecting ANY EventType to match.
//
// It sanitizes the input:
//   - removing empty EventTypes ("")
//   - sorting the EventTypes
//   - removing duplicate EventTypes
func (fb filterBuilder) AndAnyEventTypeOf(
	eventType FilterEventTypeString,
	eventTypes ...FilterEventTypeString,
) CompletedFilterItemBuilder {

	return fb.AnyEventTypeOf(eventType, eventTypes...)
}

func (fb filterBuilder) sanitizeEventTypes(
	eventType FilterEventTypeString,
	eventTypes ...FilterEventTypeString,
) []FilterEventTypeString {

	allEventTypes := append([]FilterEventTypeString{eventType}, eventTypes...)
	allEventTypes = slices.DeleteFunc(
		allEventTypes,
		func(e FilterEventTypeString) bool {
			return e == ""
		})
	slices.Sort(allEventTypes)
	allEventTypes = slices.Compact(allEventTypes)
	allEventTypes = slices.Clip(allEventTypes)

	return allEventTypes
}

// AnyPredicateOf adds one or multiple FilterPredicate(s) to the current FilterItem expecting ANY predicate to match.
//
// It sanitizes the input:
//   - removing empty/partial FilterPredicate(s) (key or val is "")
//   - sorting the FilterPredicate(s)
//   - removing duplicate FilterPredicate(s)
func (fb filterBuilder) AnyPredicateOf(
	predicate FilterPredicate,
	predicates ...FilterPredicate,
) FilterItemBuilderLackingEventTypes {

	fb.currentFilterItem.predicates = append(
		fb.currentFilterItem.predicates,
		fb.sanitizePredicates(predicate, predicates...)...,
	)

	return fb
}

// AndAnyPredicateOf adds one or multiple FilterPredicate(s) to the current FilterItem expecting ANY predicate to match.
//
// It sanitizes the input:
//   - removing empty/partial FilterPredicate(s) (key or val is "")
//   - sorting the FilterPredicate(s)
//   - removing duplicate FilterPredicate(s)
func (fb filterBuilder) AndAnyPredicateOf(
	predicate FilterPredicate,
	predicates ...FilterPredicate,
) CompletedFilterItemBuilder {

	return fb.AnyPredicateOf(predicate, predicates...)
}

// AllPredicatesOf adds one or multiple FilterPredicate(s) to the current FilterItem expecting ALL predicates to match.
//
// It sanitizes the input:
//   - removing empty/partial FilterPredicate(s) (key or val is "")
//   - sorting the FilterPredicate(s)
//   - removing duplicate FilterPredicate(s)
func (fb filterBuilder) AllPredicatesOf(
	predicate FilterPredicate,
	predicates ...FilterPredicate,
) FilterItemBuilderLackingEventTypes {

	fb.currentFilterItem.allPredicatesMustMatch = true

	fb.currentFilterItem.predicates = append(
		fb.currentFilterItem.predicates,
		fb.sanitizePredicates(predicate, predicates...)...,
	)

	return fb
}

// AndAllPredicatesOf adds one or multiple FilterPredicate(s) to the current FilterItem expecting ALL predicates to match.
//
// It sanitizes the input:
//   - removing empty/partial FilterPredicate(s) (key or val is "")
//   - sorting the FilterPredicate(s)
//   - removing duplicate FilterPredicate(s)
func (fb filterBuilder) AndAllPredicatesOf(
	predicate FilterPredicate,
	predicates ...FilterPredicate,
) CompletedFilterItemBuilder {

	return fb.AllPredicatesOf(predicate, predicates...)
}

func (fb filterBuilder) sanitizePredicates(
	predicate FilterPredicate,
	predicates ...FilterPredicate,
) []FilterPredicate {

	allPredicates := append([]FilterPredicate{predicate}, predicates...)
	allPredicates = slices.DeleteFunc(allPredicates, func(e FilterPredicate) bool { return len(e.key) == 0 || len(e.val) == 0 })
	slices.SortFunc(
		allPredicates,
		func(a, b FilterPredicate) int {
			if a.key > b.key {
				return 1
			}

			if a.key < b.key {
				return -1
			}

			return 0
		})

	allPredicates = slices.Compact(allPredicates)
	allPredicates = slices.Clip(allPredicates)

	return allPredicates
}

// OrMatching finalizes the current FilterItem and starts a new one.
func (fb filterBuilder) OrMatching() EmptyFilterItemBuilder {
	fb.filter.items = append(fb.filter.items, fb.currentFilterItem)
	fb.currentFilterItem = FilterItem{}

	return fb
}

// OccurredFrom restricts the Filter to events that occurred at or after the given time.
func (fb filterBuilder) OccurredFrom(from time.Time) CompletedFilterItemBuilderWithOccurredFrom {
	fb.filter.occurredFrom = from

	return fb
}

// OccurredUntil restricts the Filter to events that occurred at or before the given time.
func (fb filterBuilder) OccurredUntil(until time.Time) CompletedFilterItemBuilderWithOccurredUntil {
	fb.filter.occurredUntil = until

	return fb
}

// AndOccurredUntil restricts the Filter to events that occurred at or before the given time.
func (fb filterBuilder) AndOccurredUntil(until time.Time) CompletedFilterItemBuilderWithOccurredFromToUntil {
	fb.filter.occurredUntil = until

	return fb
}

// WithSequenceNumberHigherThan restricts the Filter to events with a sequence number higher than the given one.
func (fb filterBuilder) WithSequenceNumberHigherThan(sequenceNumber uint) CompletedFilterItemBuilderWithSequenceNumber {
	fb.filter.sequenceNumberHigherThan = sequenceNumber

	return fb
}

// MatchingAnyEvent directly creates an empty filter.
func (fb filterBuilder) MatchingAnyEvent() Filter {
	return fb.filter
}

// Finalize returns the Filter once it has at least one FilterItem with at least one EventType OR one Predicate.
func (fb filterBuilder) Finalize() Filter {
	fb.filter.items = append(fb.filter.items, fb.currentFilterItem)

	return fb.filter
}
