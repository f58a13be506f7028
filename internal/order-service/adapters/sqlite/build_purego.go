//go:build !sqlite_cgo

package sqlite

// Default build: the pure-Go driver, no C toolchain needed.

import (
	"fmt"

	_ "modernc.org/sqlite"
)

const DriverName = "sqlite"

// dsn configures every pooled connection through _pragma parameters:
// WAL so readers do not block the writer, foreign keys for the item
// cascades, and a busy timeout so writers queue behind the lock holder.
// Transactions begin IMMEDIATE: a deferred transaction that reads and then
// writes gets SQLITE_BUSY on the upgrade without waiting on busy_timeout.
func dsn(path string) string {
	return fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)&_txlock=immediate", path)
}
