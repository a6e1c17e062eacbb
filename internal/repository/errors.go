package repository

import (
	"errors"

	"github.com/mattn/go-sqlite3"
)

// ErrDuplicate marks an insert rejected by a unique constraint, e.g. a user
// email or a cost center code that is already taken.
var ErrDuplicate = errors.New("duplicate record")

// isUniqueViolation reports whether err is a sqlite unique-constraint failure.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
