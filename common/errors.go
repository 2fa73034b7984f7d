package common

import "errors"

// ErrStorageUnavailable is returned when a connection cannot be opened or a
// statement fails to execute. The underlying driver error is wrapped alongside it.
var ErrStorageUnavailable = errors.New("record: storage unavailable")

// Additional package-level errors
var (
	ErrPoolClosed     = errors.New("record: connection pool is closed")
	ErrNoPrimaryKey   = errors.New("record: instance has no primary key")
	ErrRecordDeleted  = errors.New("record: instance was deleted")
	ErrDatabaseNotSet = errors.New("record: database not set")
	ErrInvalidTable   = errors.New("record: invalid table name")
	ErrNoColumns      = errors.New("record: no columns given")
)
