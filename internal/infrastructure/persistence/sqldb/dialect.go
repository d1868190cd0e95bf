package sqldb

import (
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

// Dialect captures the differences between the supported SQL backends.
// Queries are written with ? placeholders and rebound per dialect.
type Dialect struct {
	Name string

	numberedPlaceholders bool
	rowLockClause        string
	ownerLockQuery       string
}

var (
	// SQLite relies on BEGIN IMMEDIATE (set through the DSN) so every
	// transaction already holds the database write lock.
	SQLite = Dialect{Name: "sqlite3"}

	// Postgres locks the request row and takes a transaction-scoped advisory
	// lock per owner.
	Postgres = Dialect{
		Name:                 "postgres",
		numberedPlaceholders: true,
		rowLockClause:        " FOR UPDATE",
		ownerLockQuery:       "SELECT pg_advisory_xact_lock(hashtext(?))",
	}
)

// DialectFor returns the dialect for a configured driver name
func DialectFor(driver string) (Dialect, bool) {
	switch driver {
	case "sqlite", "sqlite3":
		return SQLite, true
	case "postgres", "postgresql", "pgx":
		return Postgres, true
	default:
		return Dialect{}, false
	}
}

// Rebind rewrites ? placeholders into the dialect's form
func (d Dialect) Rebind(query string) string {
	if !d.numberedPlaceholders {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// ForUpdate appends the row lock clause, if the dialect has one
func (d Dialect) ForUpdate(query string) string {
	return query + d.rowLockClause
}

// OwnerLockQuery returns the statement that serializes creators for one
// owner inside a transaction, or "" when the dialect needs none
func (d Dialect) OwnerLockQuery() string {
	return d.ownerLockQuery
}

// UniqueViolation reports whether err is a unique constraint failure and
// returns text naming the violated constraint or columns
func UniqueViolation(err error) (string, bool) {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return sqliteErr.Error(), true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr.ConstraintName, true
	}

	return "", false
}
