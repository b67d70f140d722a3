// ABOUTME: Generic record persistence for every resource schema
// ABOUTME: Conditional (owner-scoped) updates and deletes, filtered newest-first reads, eager relations

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/2389/storeadmin/internal/resource"
)

// relationDepth bounds eager loading: product -> category -> parent -> parent.
const relationDepth = 3

// Create inserts a record and its images in one transaction and returns
// the stored record with relations attached.
func (s *SQLStore) Create(ctx context.Context, schema *resource.Schema, scopeID string, in resource.Input) (*resource.Record, error) {
	now := formatTime(s.now())
	id := uuid.New().String()

	cols := []string{"id", schema.ScopeColumn()}
	args := []any{id, scopeID}
	for _, f := range schema.Columns() {
		cols = append(cols, f.Column)
		args = append(args, columnValue(f, in))
	}
	cols = append(cols, "created_at", "updated_at")
	args = append(args, now, now)

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		schema.Table(), strings.Join(cols, ", "), placeholders(len(cols)))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, s.q(query), args...); err != nil {
		if s.dialect.isForeignKeyViolation(err) {
			return nil, fmt.Errorf("inserting %s: %w", schema.Entity, resource.ErrNotFound)
		}
		return nil, fmt.Errorf("inserting %s: %w", schema.Entity, err)
	}
	if schema.HasImages() {
		if err := s.insertImages(ctx, tx, schema, id, in.Images, now); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing %s: %w", schema.Entity, err)
	}

	s.logger.Debug("created record", "entity", schema.Entity, "id", id, "scope", scopeID)
	return s.Get(ctx, schema, scopeID, id)
}

// Get returns one record with relations attached. An empty scopeID looks
// the record up by id alone.
func (s *SQLStore) Get(ctx context.Context, schema *resource.Schema, scopeID, id string) (*resource.Record, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", selectColumns(schema), schema.Table())
	args := []any{id}
	if scopeID != "" {
		query += fmt.Sprintf(" AND %s = ?", schema.ScopeColumn())
		args = append(args, scopeID)
	}

	rec, err := scanRecord(schema, s.db.QueryRowContext(ctx, s.q(query), args...))
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", schema.Entity, err)
	}

	if err := s.attach(ctx, []*resource.Record{rec}, relationDepth, map[string]*resource.Record{}); err != nil {
		return nil, err
	}
	return rec, nil
}

// List returns the scope's records newest first. Filters combine with AND;
// rows flagged by the schema's HideField are skipped unless requested.
func (s *SQLStore) List(ctx context.Context, schema *resource.Schema, scopeID string, q resource.Query) ([]*resource.Record, error) {
	where := []string{schema.ScopeColumn() + " = ?"}
	args := []any{scopeID}

	for _, f := range schema.Fields {
		val, ok := q.Equal[f.Name]
		if !ok {
			continue
		}
		if f.Name == schema.ParentField && val == resource.RootsOnly {
			where = append(where, f.Column+" IS NULL")
			continue
		}
		where = append(where, f.Column+" = ?")
		args = append(args, val)
	}
	for _, name := range q.Flags {
		f, ok := schema.Field(name)
		if !ok || f.Kind != resource.KindBool {
			return nil, fmt.Errorf("unknown flag %q on %s", name, schema.Entity)
		}
		where = append(where, f.Column+" = ?")
		args = append(args, true)
	}
	if schema.HideField != "" && !q.IncludeHidden {
		f, _ := schema.Field(schema.HideField)
		where = append(where, f.Column+" = ?")
		args = append(args, false)
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY created_at DESC, id DESC",
		selectColumns(schema), schema.Table(), strings.Join(where, " AND "))

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", schema.Entity, err)
	}
	defer func() { _ = rows.Close() }()

	records := []*resource.Record{}
	for rows.Next() {
		rec, err := scanRecord(schema, rows)
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", schema.Entity, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", schema.Entity, err)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("closing %s rows: %w", schema.Entity, err)
	}

	if err := s.attach(ctx, records, relationDepth, map[string]*resource.Record{}); err != nil {
		return nil, err
	}
	return records, nil
}

// Count returns the number of records in scope.
func (s *SQLStore) Count(ctx context.Context, schema *resource.Schema, scopeID string) (int, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = ?", schema.Table(), schema.ScopeColumn())
	var n int
	if err := s.db.QueryRowContext(ctx, s.q(query), scopeID).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s: %w", schema.Entity, err)
	}
	return n, nil
}

// Update replaces every field of a record the owner controls. Internal
// fields missing from the input keep their stored value. Images are
// replaced wholesale. Returns the number of rows matched.
func (s *SQLStore) Update(ctx context.Context, schema *resource.Schema, own resource.Owner, id string, in resource.Input) (int64, error) {
	var sets []string
	var args []any
	for _, f := range schema.Columns() {
		if f.Internal && !in.Present[f.Name] {
			continue
		}
		sets = append(sets, f.Column+" = ?")
		args = append(args, columnValue(f, in))
	}
	now := formatTime(s.now())
	sets = append(sets, "updated_at = ?")
	args = append(args, now)

	cond, condArgs := ownerCondition(schema, own)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ? AND %s", schema.Table(), strings.Join(sets, ", "), cond)
	args = append(args, id)
	args = append(args, condArgs...)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, s.q(query), args...)
	if err != nil {
		if s.dialect.isForeignKeyViolation(err) {
			return 0, fmt.Errorf("updating %s: %w", schema.Entity, resource.ErrNotFound)
		}
		return 0, fmt.Errorf("updating %s: %w", schema.Entity, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}

	if n > 0 && schema.HasImages() && in.Present[imagesField(schema)] {
		del := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", imagesTable(schema), ownerColumn(schema))
		if _, err := tx.ExecContext(ctx, s.q(del), id); err != nil {
			return 0, fmt.Errorf("clearing images: %w", err)
		}
		if err := s.insertImages(ctx, tx, schema, id, in.Images, now); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing %s: %w", schema.Entity, err)
	}

	s.logger.Debug("updated record", "entity", schema.Entity, "id", id, "rows", n)
	return n, nil
}

// Delete removes a record the owner controls. Returns resource.ErrReferenced
// while other rows point at it.
func (s *SQLStore) Delete(ctx context.Context, schema *resource.Schema, own resource.Owner, id string) (int64, error) {
	cond, condArgs := ownerCondition(schema, own)
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ? AND %s", schema.Table(), cond)
	args := append([]any{id}, condArgs...)

	res, err := s.db.ExecContext(ctx, s.q(query), args...)
	if err != nil {
		if s.dialect.isForeignKeyViolation(err) {
			return 0, fmt.Errorf("deleting %s %s: %w", schema.Entity, id, resource.ErrReferenced)
		}
		return 0, fmt.Errorf("deleting %s: %w", schema.Entity, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}

	s.logger.Debug("deleted record", "entity", schema.Entity, "id", id, "rows", n)
	return n, nil
}

// Exists reports whether id exists, within scopeID when non-empty.
func (s *SQLStore) Exists(ctx context.Context, schema *resource.Schema, scopeID, id string) (bool, error) {
	query := fmt.Sprintf("SELECT 1 FROM %s WHERE id = ?", schema.Table())
	args := []any{id}
	if scopeID != "" {
		query += fmt.Sprintf(" AND %s = ?", schema.ScopeColumn())
		args = append(args, scopeID)
	}
	var one int
	err := s.db.QueryRowContext(ctx, s.q(query), args...).Scan(&one)
	if isNoRows(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking %s: %w", schema.Entity, err)
	}
	return true, nil
}

// StoreOwnedBy reports whether the store belongs to the user.
func (s *SQLStore) StoreOwnedBy(ctx context.Context, storeID, userID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, s.q("SELECT 1 FROM stores WHERE id = ? AND user_id = ?"), storeID, userID).Scan(&one)
	if isNoRows(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking store owner: %w", err)
	}
	return true, nil
}

// ownerCondition matches rows the caller controls: its own stores, or
// children of a store it owns.
func ownerCondition(schema *resource.Schema, own resource.Owner) (string, []any) {
	if schema.Scope == resource.ScopeUser {
		return "user_id = ?", []any{own.UserID}
	}
	return "store_id = ? AND store_id IN (SELECT id FROM stores WHERE user_id = ?)", []any{own.ScopeID, own.UserID}
}

func (s *SQLStore) insertImages(ctx context.Context, tx *sql.Tx, schema *resource.Schema, ownerID string, urls []string, now string) error {
	query := fmt.Sprintf("INSERT INTO %s (id, %s, url, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		imagesTable(schema), ownerColumn(schema))
	for _, u := range urls {
		if _, err := tx.ExecContext(ctx, s.q(query), uuid.New().String(), ownerID, u, now, now); err != nil {
			return fmt.Errorf("inserting image: %w", err)
		}
	}
	return nil
}

// attach loads images and ref relations for records, depth levels deep.
// seen caches records already loaded during this call.
func (s *SQLStore) attach(ctx context.Context, records []*resource.Record, depth int, seen map[string]*resource.Record) error {
	for _, rec := range records {
		if rec.Schema.HasImages() {
			imgs, err := s.loadImages(ctx, rec.Schema, rec.ID)
			if err != nil {
				return err
			}
			rec.Images = imgs
		}
		if depth == 0 {
			continue
		}
		for _, f := range rec.Schema.Refs() {
			target, ok := s.registry.Lookup(f.Ref)
			if !ok {
				continue
			}
			id, _ := rec.Values[f.Name].(string)
			if id == "" {
				rec.Related[f.Relation()] = nil
				continue
			}
			key := target.Entity + "/" + id
			rel, ok := seen[key]
			if !ok {
				query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", selectColumns(target), target.Table())
				var err error
				rel, err = scanRecord(target, s.db.QueryRowContext(ctx, s.q(query), id))
				if isNoRows(err) {
					rec.Related[f.Relation()] = nil
					continue
				}
				if err != nil {
					return fmt.Errorf("loading %s %s: %w", f.Relation(), id, err)
				}
				seen[key] = rel
				if err := s.attach(ctx, []*resource.Record{rel}, depth-1, seen); err != nil {
					return err
				}
			}
			rec.Related[f.Relation()] = rel
		}
	}
	return nil
}

func (s *SQLStore) loadImages(ctx context.Context, schema *resource.Schema, ownerID string) ([]resource.Image, error) {
	query := fmt.Sprintf("SELECT id, url, created_at FROM %s WHERE %s = ? ORDER BY url ASC",
		imagesTable(schema), ownerColumn(schema))
	rows, err := s.db.QueryContext(ctx, s.q(query), ownerID)
	if err != nil {
		return nil, fmt.Errorf("querying images: %w", err)
	}
	defer func() { _ = rows.Close() }()

	imgs := []resource.Image{}
	for rows.Next() {
		var img resource.Image
		var createdAt string
		if err := rows.Scan(&img.ID, &img.URL, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning image: %w", err)
		}
		if img.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parsing image created_at: %w", err)
		}
		imgs = append(imgs, img)
	}
	return imgs, rows.Err()
}

// columnValue converts an input field into a driver argument. Absent
// values and empty refs become NULL.
func columnValue(f resource.Field, in resource.Input) any {
	v, ok := in.Values[f.Name]
	switch f.Kind {
	case resource.KindBool:
		b, _ := v.(bool)
		return b
	case resource.KindDecimal:
		d, ok := v.(decimal.Decimal)
		if !ok {
			return nil
		}
		return d
	case resource.KindRef:
		str, _ := v.(string)
		if str == "" {
			return nil
		}
		return str
	default:
		if !ok {
			return nil
		}
		str, _ := v.(string)
		return str
	}
}

func imagesField(schema *resource.Schema) string {
	for _, f := range schema.Fields {
		if f.Kind == resource.KindImages {
			return f.Name
		}
	}
	return ""
}

func selectColumns(schema *resource.Schema) string {
	cols := []string{"id", schema.ScopeColumn()}
	for _, f := range schema.Columns() {
		cols = append(cols, f.Column)
	}
	cols = append(cols, "created_at", "updated_at")
	return strings.Join(cols, ", ")
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// scanRecord reads a row produced by selectColumns.
func scanRecord(schema *resource.Schema, scanner interface{ Scan(dest ...any) error }) (*resource.Record, error) {
	fields := schema.Columns()
	rec := &resource.Record{
		Schema:  schema,
		Values:  make(map[string]any, len(fields)),
		Related: map[string]*resource.Record{},
	}
	var createdAt, updatedAt string

	dest := []any{&rec.ID, &rec.ScopeID}
	holders := make([]any, len(fields))
	for i, f := range fields {
		switch f.Kind {
		case resource.KindBool:
			holders[i] = new(bool)
		case resource.KindDecimal:
			holders[i] = new(decimal.NullDecimal)
		default:
			holders[i] = new(sql.NullString)
		}
		dest = append(dest, holders[i])
	}
	dest = append(dest, &createdAt, &updatedAt)

	if err := scanner.Scan(dest...); err != nil {
		return nil, err
	}

	for i, f := range fields {
		switch h := holders[i].(type) {
		case *bool:
			rec.Values[f.Name] = *h
		case *decimal.NullDecimal:
			if h.Valid {
				rec.Values[f.Name] = h.Decimal
			} else {
				rec.Values[f.Name] = nil
			}
		case *sql.NullString:
			switch {
			case h.Valid:
				rec.Values[f.Name] = h.String
			case f.Kind == resource.KindRef:
				rec.Values[f.Name] = nil
			default:
				rec.Values[f.Name] = ""
			}
		}
	}

	var err error
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if rec.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return rec, nil
}
