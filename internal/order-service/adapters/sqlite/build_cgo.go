//go:build sqlite_cgo

package sqlite

// Built with -tags sqlite_cgo: the cgo driver.
//
//	CGO_ENABLED=1 go build -tags sqlite_cgo ./...

import (
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const DriverName = "sqlite3"

func dsn(path string) string {
	return fmt.Sprintf("file:%s?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000&_txlock=immediate", path)
}
