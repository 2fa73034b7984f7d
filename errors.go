package record

import "github.com/burugo/record/common"

// ErrStorageUnavailable is returned when a connection cannot be opened or a
// statement fails. Use errors.Is to match it; the driver error is wrapped too.
var ErrStorageUnavailable = common.ErrStorageUnavailable

// Additional package-level errors
var (
	ErrPoolClosed     = common.ErrPoolClosed
	ErrNoPrimaryKey   = common.ErrNoPrimaryKey
	ErrRecordDeleted  = common.ErrRecordDeleted
	ErrDatabaseNotSet = common.ErrDatabaseNotSet
	ErrInvalidTable   = common.ErrInvalidTable
	ErrNoColumns      = common.ErrNoColumns
)
