// Package sqlite provides connection openers for SQLite databases.
//
// Two drivers are supported: github.com/mattn/go-sqlite3 (cgo, registered as
// "sqlite3") and modernc.org/sqlite (pure Go, registered as "sqlite").
package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/burugo/record"

	_ "github.com/mattn/go-sqlite3" // SQLite driver (cgo)
	_ "modernc.org/sqlite"          // SQLite driver (pure Go)
)

// Driver names as registered with database/sql.
const (
	DriverCGO  = "sqlite3"
	DriverPure = "sqlite"
)

const pingTimeout = 5 * time.Second

// Opener returns an Opener for the database file at path using the cgo
// driver. Each connection waits up to five seconds on a locked database and
// enforces foreign keys. A path of ":memory:" opens an in-memory database
// shared by every connection of the returned Opener.
func Opener(path string) record.Opener {
	return withPingTimeout(record.DriverOpener(DriverCGO, DSN(DriverCGO, path)))
}

// PureOpener is Opener on the pure Go driver.
func PureOpener(path string) record.Opener {
	return withPingTimeout(record.DriverOpener(DriverPure, DSN(DriverPure, path)))
}

// OpenerFor returns the Opener for the named driver.
func OpenerFor(driverName, path string) record.Opener {
	if driverName == DriverPure {
		return PureOpener(path)
	}
	return Opener(path)
}

// DSN appends the busy timeout and foreign key settings to path in the
// syntax the named driver understands.
func DSN(driverName, path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	if driverName == DriverPure {
		return path + sep + "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	}
	return path + sep + "_busy_timeout=5000&_foreign_keys=on"
}

func withPingTimeout(open record.Opener) record.Opener {
	return func(ctx context.Context) (*sqlx.DB, error) {
		ctx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		return open(ctx)
	}
}
