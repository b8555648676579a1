package store

// CommittedEvents is an alias type for a slice of CommittedEvent
type CommittedEvents = []CommittedEvent

// CommittedEvent is a StorableEvent that was read back from the journal,
// enriched with the position it was assigned when it was committed.
type CommittedEvent struct {
	StorableEvent
	SequenceNumber uint
}

// CommitResult reports the outcome of a successful commit.
type CommitResult struct {
	// SequenceNumber is the journal position assigned to the last event of the commit.
	SequenceNumber uint

	// MutationsApplied is the number of table mutations the registered
	// materializers produced for this commit. It is zero when no materializer
	// is registered for any of the committed event types, which is a valid
	// outcome, not an error.
	MutationsApplied int
}
