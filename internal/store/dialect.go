// ABOUTME: SQL dialect differences between SQLite and Postgres
// ABOUTME: Placeholder rebinding, column types, catalog queries and constraint error detection

package store

import (
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

type dialect interface {
	name() string
	rebind(query string) string
	boolType() string
	falseLiteral() string
	decimalType() string
	columnsQuery() string
	isForeignKeyViolation(err error) bool
	isUniqueViolation(err error) bool
}

type sqliteDialect struct{}

func (sqliteDialect) name() string               { return "sqlite" }
func (sqliteDialect) rebind(query string) string { return query }
func (sqliteDialect) boolType() string           { return "INTEGER" }
func (sqliteDialect) falseLiteral() string       { return "0" }
func (sqliteDialect) decimalType() string        { return "TEXT" }

func (sqliteDialect) columnsQuery() string {
	return `SELECT name FROM pragma_table_info(?)`
}

func (sqliteDialect) isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func (sqliteDialect) isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

type postgresDialect struct{}

func (postgresDialect) name() string         { return "postgres" }
func (postgresDialect) boolType() string     { return "BOOLEAN" }
func (postgresDialect) falseLiteral() string { return "FALSE" }
func (postgresDialect) decimalType() string  { return "NUMERIC(12,2)" }

func (postgresDialect) columnsQuery() string {
	return `SELECT column_name FROM information_schema.columns WHERE table_name = $1`
}

// rebind turns ? placeholders into $1..$n. Queries never contain a
// literal question mark.
func (postgresDialect) rebind(query string) string {
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

func (postgresDialect) isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

func (postgresDialect) isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
