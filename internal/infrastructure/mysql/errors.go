package mysql

import (
	"errors"

	gomysql "github.com/go-sql-driver/mysql"
)

const (
	errDuplicateEntry  = 1062
	errOutOfRange      = 1264
	errLockWaitTimeout = 1205
	errDeadlock        = 1213
	errNoReferencedRow = 1452
)

func errorNumber(err error) (uint16, bool) {
	var mysqlErr *gomysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number, true
	}
	return 0, false
}

// IsDeadlock reports an InnoDB deadlock. InnoDB rolls back the whole victim
// transaction, so nothing it wrote survives.
func IsDeadlock(err error) bool {
	n, ok := errorNumber(err)
	return ok && n == errDeadlock
}

func IsLockWaitTimeout(err error) bool {
	n, ok := errorNumber(err)
	return ok && n == errLockWaitTimeout
}

func IsDuplicateEntry(err error) bool {
	n, ok := errorNumber(err)
	return ok && n == errDuplicateEntry
}

// IsForeignKeyViolation reports an insert that references a missing parent row.
func IsForeignKeyViolation(err error) bool {
	n, ok := errorNumber(err)
	return ok && n == errNoReferencedRow
}

// IsOutOfRange reports a value that does not fit its column. Strict SQL mode raises it
// instead of clamping.
func IsOutOfRange(err error) bool {
	n, ok := errorNumber(err)
	return ok && n == errOutOfRange
}
