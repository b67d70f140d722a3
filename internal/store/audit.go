// ABOUTME: Audit log of dashboard writes: who created, updated or deleted which record
// ABOUTME: Fed by the resource service as a change observer; read by the dashboard activity feed

package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/2389/storeadmin/internal/resource"
)

// AuditEntry is a single audit log entry.
type AuditEntry struct {
	ID         string
	ActorID    string          // user who performed the action, empty for public writes
	Action     resource.Action // created, updated, deleted
	TargetType string          // entity name, e.g. "billboards"
	TargetID   string
	ScopeID    string // owning store (or user for stores)
	Timestamp  time.Time
	Detail     map[string]any
}

// AuditFilter specifies filtering options for listing audit entries.
type AuditFilter struct {
	ScopeID    string
	ActorID    string
	TargetType string
	Since      *time.Time
	Limit      int // default 100, max 1000
}

// AppendAuditLog appends an entry. Generates ID and Timestamp if not set.
func (s *SQLStore) AppendAuditLog(ctx context.Context, e *AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = s.now().UTC()
	}

	var detailJSON *string
	if e.Detail != nil {
		data, err := json.Marshal(e.Detail)
		if err != nil {
			return fmt.Errorf("marshaling audit detail: %w", err)
		}
		str := string(data)
		detailJSON = &str
	}

	query := `
		INSERT INTO audit_log (audit_id, actor_id, action, target_type, target_id, scope_id, ts, detail_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, s.q(query),
		e.ID,
		e.ActorID,
		string(e.Action),
		e.TargetType,
		e.TargetID,
		e.ScopeID,
		formatTime(e.Timestamp),
		detailJSON,
	)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}

	s.logger.Debug("appended audit log",
		"id", e.ID,
		"actor", e.ActorID,
		"action", e.Action,
		"target", e.TargetType+"/"+e.TargetID,
	)
	return nil
}

// RecordChange implements resource.Observer.
func (s *SQLStore) RecordChange(ctx context.Context, c resource.Change) error {
	return s.AppendAuditLog(ctx, &AuditEntry{
		ActorID:    c.ActorID,
		Action:     c.Action,
		TargetType: c.Entity,
		TargetID:   c.ID,
		ScopeID:    c.ScopeID,
		Timestamp:  c.At,
	})
}

// normalizeAuditLimit applies default (100) and cap (1000) to audit limit.
func normalizeAuditLimit(limit int) int {
	switch {
	case limit <= 0:
		return 100
	case limit > 1000:
		return 1000
	default:
		return limit
	}
}

// ListAuditLog returns entries matching the filter, newest first.
func (s *SQLStore) ListAuditLog(ctx context.Context, f AuditFilter) ([]*AuditEntry, error) {
	var where []string
	var args []any
	if f.ScopeID != "" {
		where = append(where, "scope_id = ?")
		args = append(args, f.ScopeID)
	}
	if f.ActorID != "" {
		where = append(where, "actor_id = ?")
		args = append(args, f.ActorID)
	}
	if f.TargetType != "" {
		where = append(where, "target_type = ?")
		args = append(args, f.TargetType)
	}
	if f.Since != nil {
		where = append(where, "ts >= ?")
		args = append(args, formatTime(*f.Since))
	}

	query := `SELECT audit_id, actor_id, action, target_type, target_id, scope_id, ts, detail_json FROM audit_log`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY ts DESC, audit_id DESC LIMIT ?"
	args = append(args, normalizeAuditLimit(f.Limit))

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []*AuditEntry
	for rows.Next() {
		e, err := scanAuditEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit log: %w", err)
	}
	return entries, nil
}

func scanAuditEntry(scanner interface{ Scan(dest ...any) error }) (*AuditEntry, error) {
	var e AuditEntry
	var action, ts string
	var detailJSON *string

	if err := scanner.Scan(&e.ID, &e.ActorID, &action, &e.TargetType, &e.TargetID, &e.ScopeID, &ts, &detailJSON); err != nil {
		return nil, fmt.Errorf("scanning audit entry: %w", err)
	}
	e.Action = resource.Action(action)

	var err error
	if e.Timestamp, err = parseTime(ts); err != nil {
		return nil, fmt.Errorf("parsing timestamp: %w", err)
	}
	if detailJSON != nil {
		if err := json.Unmarshal([]byte(*detailJSON), &e.Detail); err != nil {
			return nil, fmt.Errorf("unmarshaling detail: %w", err)
		}
	}
	return &e, nil
}
