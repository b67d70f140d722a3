// ABOUTME: Tests for SQL dialect helpers
// ABOUTME: Placeholder rebinding and constraint error detection

package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestPostgresDialect_Rebind(t *testing.T) {
	got := postgresDialect{}.rebind("SELECT 1 FROM t WHERE a = ? AND b = ? LIMIT ?")
	assert.Equal(t, "SELECT 1 FROM t WHERE a = $1 AND b = $2 LIMIT $3", got)
}

func TestSQLiteDialect_RebindIsIdentity(t *testing.T) {
	q := "SELECT 1 FROM t WHERE a = ?"
	assert.Equal(t, q, sqliteDialect{}.rebind(q))
}

func TestPostgresDialect_ConstraintErrors(t *testing.T) {
	d := postgresDialect{}
	fk := fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23503"})
	uniq := &pgconn.PgError{Code: "23505"}

	assert.True(t, d.isForeignKeyViolation(fk))
	assert.False(t, d.isForeignKeyViolation(uniq))
	assert.True(t, d.isUniqueViolation(uniq))
	assert.False(t, d.isUniqueViolation(errors.New("boom")))
}

func TestSQLiteDialect_ConstraintErrors(t *testing.T) {
	d := sqliteDialect{}
	assert.True(t, d.isForeignKeyViolation(errors.New("constraint failed: FOREIGN KEY constraint failed (787)")))
	assert.True(t, d.isUniqueViolation(errors.New("UNIQUE constraint failed: users.username")))
	assert.False(t, d.isForeignKeyViolation(nil))
}
