// ABOUTME: SQL store over database/sql for SQLite (modernc.org/sqlite) and Postgres (pgx stdlib)
// ABOUTME: Tables are generated from the resource schemas; schema creation and migrations are idempotent

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/2389/storeadmin/internal/resource"
)

// ErrNotFound is returned when a row doesn't exist.
var ErrNotFound = resource.ErrNotFound

// timeLayout is fixed-width so text timestamps order lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// Options selects and configures the database.
type Options struct {
	Driver string // "sqlite" or "postgres"
	Path   string // sqlite file path
	DSN    string // postgres connection string
}

// SQLStore implements resource.Repository plus users, sessions and audit.
type SQLStore struct {
	db       *sql.DB
	dialect  dialect
	registry *resource.Registry
	logger   *slog.Logger
	now      func() time.Time
}

var _ resource.Repository = (*SQLStore)(nil)

// Open connects to the configured database and creates the schema.
func Open(opts Options, registry *resource.Registry) (*SQLStore, error) {
	switch opts.Driver {
	case "", "sqlite":
		return NewSQLiteStore(opts.Path, registry)
	case "postgres":
		return NewPostgresStore(opts.DSN, registry)
	default:
		return nil, fmt.Errorf("unknown database driver %q", opts.Driver)
	}
}

// NewSQLiteStore creates a SQLite store at the given path.
// Parent directories are created if needed.
func NewSQLiteStore(path string, registry *resource.Registry) (*SQLStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	// Pragmas go in the DSN so every pooled connection gets them.
	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s, err := newSQLStore(db, sqliteDialect{}, registry)
	if err != nil {
		return nil, err
	}
	s.logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// NewPostgresStore connects to Postgres through the pgx stdlib driver.
func NewPostgresStore(dsn string, registry *resource.Registry) (*SQLStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	s, err := newSQLStore(db, postgresDialect{}, registry)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Postgres store initialized")
	return s, nil
}

func newSQLStore(db *sql.DB, d dialect, registry *resource.Registry) (*SQLStore, error) {
	s := &SQLStore{
		db:       db,
		dialect:  d,
		registry: registry,
		logger:   slog.Default().With("component", "store", "driver", d.name()),
		now:      time.Now,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := s.createSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	if err := s.runMigrations(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Registry returns the schemas this store was created with.
func (s *SQLStore) Registry() *resource.Registry {
	return s.registry
}

// Ping checks the database connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	s.logger.Info("closing store")
	return s.db.Close()
}

// createSchema creates the fixed tables and one table per resource schema.
func (s *SQLStore) createSchema(ctx context.Context) error {
	fixed := `
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			display_name  TEXT NOT NULL,
			created_at    TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS sessions (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at TEXT NOT NULL,
			expires_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);

		CREATE TABLE IF NOT EXISTS audit_log (
			audit_id    TEXT PRIMARY KEY,
			actor_id    TEXT NOT NULL,
			action      TEXT NOT NULL,
			target_type TEXT NOT NULL,
			target_id   TEXT NOT NULL,
			scope_id    TEXT NOT NULL,
			ts          TEXT NOT NULL,
			detail_json TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_audit_ts ON audit_log(ts);
		CREATE INDEX IF NOT EXISTS idx_audit_scope ON audit_log(scope_id, ts);
	`
	for _, stmt := range splitStatements(fixed) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing %q: %w", firstLine(stmt), err)
		}
	}

	for _, schema := range s.registry.All() {
		for _, stmt := range s.tableDDL(schema) {
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("creating %s: %w", schema.Table(), err)
			}
		}
	}
	return nil
}

// tableDDL renders CREATE statements for one schema.
func (s *SQLStore) tableDDL(schema *resource.Schema) []string {
	var cols []string
	cols = append(cols, "id TEXT PRIMARY KEY")
	if schema.Scope == resource.ScopeUser {
		cols = append(cols, "user_id TEXT NOT NULL")
	} else {
		cols = append(cols, "store_id TEXT NOT NULL REFERENCES stores(id) ON DELETE RESTRICT")
	}
	for _, f := range schema.Columns() {
		cols = append(cols, f.Column+" "+s.columnType(f))
	}
	cols = append(cols, "created_at TEXT NOT NULL", "updated_at TEXT NOT NULL")

	table := schema.Table()
	stmts := []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", table, strings.Join(cols, ",\n\t")),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_scope ON %s(%s, created_at)", table, table, schema.ScopeColumn()),
	}
	for _, f := range schema.Refs() {
		stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s(%s)", table, f.Column, table, f.Column))
	}
	if schema.HasImages() {
		images := imagesTable(schema)
		owner := ownerColumn(schema)
		stmts = append(stmts,
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	%s TEXT NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
	url TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`, images, owner, table),
			fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_owner ON %s(%s)", images, images, owner),
		)
	}
	return stmts
}

// columnType is the full column definition after the name.
func (s *SQLStore) columnType(f resource.Field) string {
	var def string
	switch f.Kind {
	case resource.KindBool:
		return s.dialect.boolType() + " NOT NULL DEFAULT " + s.dialect.falseLiteral()
	case resource.KindDecimal:
		def = s.dialect.decimalType()
	case resource.KindRef:
		def = "TEXT"
	default:
		def = "TEXT"
	}
	if f.Required {
		def += " NOT NULL"
	}
	if f.Kind == resource.KindRef {
		def += fmt.Sprintf(" REFERENCES %s(id) ON DELETE RESTRICT", f.Ref)
	}
	return def
}

// runMigrations adds columns that newer schemas declare but existing
// tables lack. Idempotent.
func (s *SQLStore) runMigrations(ctx context.Context) error {
	for _, schema := range s.registry.All() {
		existing, err := s.tableColumns(ctx, schema.Table())
		if err != nil {
			return err
		}
		for _, f := range schema.Columns() {
			if existing[f.Column] {
				continue
			}
			// Added columns are nullable so existing rows stay valid.
			def := "TEXT"
			switch f.Kind {
			case resource.KindBool:
				def = s.dialect.boolType() + " NOT NULL DEFAULT " + s.dialect.falseLiteral()
			case resource.KindDecimal:
				def = s.dialect.decimalType()
			}
			stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", schema.Table(), f.Column, def)
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("adding %s column to %s: %w", f.Column, schema.Table(), err)
			}
			s.logger.Info("applied migration", "column", f.Column, "table", schema.Table())
		}
	}
	return nil
}

func (s *SQLStore) tableColumns(ctx context.Context, table string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.columnsQuery(), table)
	if err != nil {
		return nil, fmt.Errorf("listing columns of %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	cols := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning column name: %w", err)
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

func imagesTable(schema *resource.Schema) string {
	return strings.TrimSuffix(schema.Table(), "s") + "_images"
}

func ownerColumn(schema *resource.Schema) string {
	return strings.TrimSuffix(schema.Table(), "s") + "_id"
}

// q rebinds ? placeholders for the active dialect.
func (s *SQLStore) q(query string) string {
	return s.dialect.rebind(query)
}

func splitStatements(sqlText string) []string {
	var out []string
	for _, stmt := range strings.Split(sqlText, ";") {
		if strings.TrimSpace(stmt) != "" {
			out = append(out, stmt)
		}
	}
	return out
}

func firstLine(stmt string) string {
	stmt = strings.TrimSpace(stmt)
	if i := strings.IndexByte(stmt, '\n'); i >= 0 {
		return stmt[:i]
	}
	return stmt
}

// isNoRows reports whether err is sql.ErrNoRows.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
