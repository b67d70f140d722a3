// Package store provides persistent storage for the store dashboard.
//
// # Architecture
//
// SQLStore runs over database/sql with one of two drivers:
//
//   - sqlite: modernc.org/sqlite, the default, a single file on disk
//   - postgres: github.com/jackc/pgx/v5/stdlib
//
// Differences between the two (placeholders, column types, constraint
// error codes) live behind the dialect interface.
//
// Entity tables are generated from resource schemas. Each table carries
// id, its owner column (store_id or user_id), one column per scalar field,
// and created_at/updated_at. Ref fields become foreign keys with
// ON DELETE RESTRICT so a referenced record cannot be deleted; product
// images live in a child table that cascades with the product.
//
// # Interfaces
//
//   - resource.Repository: generic create/get/list/update/delete
//   - resource.Observer: RecordChange appends to the audit log
//   - UserStore: dashboard users and sessions
//
// # Timestamps
//
// Timestamps are stored as fixed-width UTC text so that ORDER BY
// created_at DESC is newest-first on both drivers.
//
// # Migrations
//
// createSchema is idempotent. runMigrations adds columns that a schema
// declares but an existing table lacks.
package store
