package store

import (
	"errors"
)

var ErrNilDatabaseConnection = errors.New("database connection must not be nil")
var ErrNilSchema = errors.New("schema must not be nil")
var ErrEmptyEventsTableName = errors.New("empty events table name supplied")
var ErrConcurrencyConflict = errors.New("concurrency error, no rows were affected")
var ErrEventNotRegistered = errors.New("event type is not registered in the schema")
var ErrTableNotRegistered = errors.New("table is not registered in the schema")
var ErrStoreClosed = errors.New("store is closed")
var ErrBuildingQueryFailed = errors.New("building the query failed")
var ErrQueryingEventsFailed = errors.New("querying events failed")
var ErrScanningDBRowFailed = errors.New("scanning db row failed")
var ErrBuildingStorableEventFailed = errors.New("building storable event failed")
var ErrAppendingEventFailed = errors.New("appending the event failed")
var ErrGettingRowsAffectedFailed = errors.New("getting rows affected failed")
var ErrOpeningDatabaseFailed = errors.New("opening the database failed")
var ErrMigratingDatabaseFailed = errors.New("migrating the database failed")
var ErrOpeningTransactionFailed = errors.New("opening the transaction failed")
var ErrCommittingTransactionFailed = errors.New("committing the transaction failed")
var ErrApplyingMaterializerFailed = errors.New("applying the materializer failed")
var ErrExecutingMutationFailed = errors.New("executing the mutation failed")

// MaxSequenceNumberUint is a type alias for uint, representing the maximum sequence number for a "dynamic event stream".
type MaxSequenceNumberUint = uint
