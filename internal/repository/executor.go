package repository

import "database/sql"

// executor covers both *sql.DB and *sql.Tx so repository methods can run
// standalone or inside a caller-owned transaction.
type executor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// pick returns tx when present, the pooled db otherwise.
func pick(db *sql.DB, tx *sql.Tx) executor {
	if tx != nil {
		return tx
	}
	return db
}
