// ABOUTME: Generic CRUD pipeline shared by the REST endpoints and the admin forms
// ABOUTME: auth -> validate -> scope -> ownership -> refs -> one repository call -> change observers

package resource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Owner identifies the caller and the owning store for a conditional write.
// For user-scoped entities only UserID is used.
type Owner struct {
	ScopeID string
	UserID  string
}

// Repository persists records for any schema.
type Repository interface {
	Create(ctx context.Context, s *Schema, scopeID string, in Input) (*Record, error)
	// Get returns ErrNotFound if the record is absent. An empty scopeID
	// looks the record up by id alone.
	Get(ctx context.Context, s *Schema, scopeID, id string) (*Record, error)
	List(ctx context.Context, s *Schema, scopeID string, q Query) ([]*Record, error)
	Count(ctx context.Context, s *Schema, scopeID string) (int, error)
	// Update and Delete match on id AND owner; zero affected rows is not an error.
	Update(ctx context.Context, s *Schema, own Owner, id string, in Input) (int64, error)
	Delete(ctx context.Context, s *Schema, own Owner, id string) (int64, error)
	StoreOwnedBy(ctx context.Context, storeID, userID string) (bool, error)
	Exists(ctx context.Context, s *Schema, scopeID, id string) (bool, error)
}

// Action is the kind of change a write produced.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// Change describes one successful write.
type Change struct {
	Entity  string
	Action  Action
	ID      string
	ScopeID string
	ActorID string
	At      time.Time
}

// Observer is notified after every successful write. Errors are logged and
// never fail the write.
type Observer interface {
	RecordChange(ctx context.Context, c Change) error
}

// Service runs the generic CRUD pipeline over a repository.
type Service struct {
	repo      Repository
	registry  *Registry
	observers []Observer
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a service. Observers receive every successful write.
func NewService(repo Repository, registry *Registry, logger *slog.Logger, observers ...Observer) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		registry:  registry,
		observers: observers,
		logger:    logger.With("component", "resource"),
		now:       time.Now,
	}
}

// Registry returns the schema registry.
func (svc *Service) Registry() *Registry {
	return svc.registry
}

// Create validates and persists a new record in scopeID.
func (svc *Service) Create(ctx context.Context, s *Schema, userID, scopeID string, in Input) (*Record, error) {
	if !s.PublicCreate && userID == "" {
		return nil, ErrUnauthenticated
	}
	if errs := Validate(s, in, ModeEndpoint); len(errs) > 0 {
		return nil, errs[0]
	}

	if s.Scope == ScopeUser {
		scopeID = userID
	} else {
		if scopeID == "" {
			return nil, ErrMissingScope
		}
		if err := svc.checkCreateScope(ctx, s, userID, scopeID); err != nil {
			return nil, err
		}
		if err := svc.checkRefs(ctx, s, scopeID, in); err != nil {
			return nil, err
		}
	}

	rec, err := svc.repo.Create(ctx, s, scopeID, in)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", s.Singular, err)
	}
	svc.notify(ctx, Change{Entity: s.Entity, Action: ActionCreated, ID: rec.ID, ScopeID: changeScope(s, scopeID, rec.ID), ActorID: userID})
	return rec, nil
}

// CreateChild creates a record nested under parentID via the schema's
// ParentField. Used for sub-categories.
func (svc *Service) CreateChild(ctx context.Context, s *Schema, userID, scopeID, parentID string, in Input) (*Record, error) {
	if s.ParentField == "" {
		return nil, fmt.Errorf("%s does not support nesting", s.Entity)
	}
	if parentID == "" {
		f, _ := s.Field(s.ParentField)
		return nil, &ValidationError{Field: f.Name, Message: f.Label + " is required"}
	}
	in.Set(s.ParentField, parentID)
	return svc.Create(ctx, s, userID, scopeID, in)
}

func (svc *Service) checkCreateScope(ctx context.Context, s *Schema, userID, scopeID string) error {
	if s.PublicCreate {
		ok, err := svc.repo.Exists(ctx, Stores, "", scopeID)
		if err != nil {
			return fmt.Errorf("checking store: %w", err)
		}
		if !ok {
			return ErrNotFound
		}
		return nil
	}
	owned, err := svc.repo.StoreOwnedBy(ctx, scopeID, userID)
	if err != nil {
		return fmt.Errorf("checking store ownership: %w", err)
	}
	if !owned {
		return ErrForbidden
	}
	return nil
}

// checkRefs verifies every supplied ref points at a record in the same store.
func (svc *Service) checkRefs(ctx context.Context, s *Schema, scopeID string, in Input) error {
	for _, f := range s.Refs() {
		id, _ := in.Values[f.Name].(string)
		if id == "" {
			continue
		}
		target, ok := svc.registry.Lookup(f.Ref)
		if !ok {
			return fmt.Errorf("unknown ref target %q", f.Ref)
		}
		exists, err := svc.repo.Exists(ctx, target, scopeID, id)
		if err != nil {
			return fmt.Errorf("checking %s: %w", f.Name, err)
		}
		if !exists {
			return &ValidationError{Field: f.Name, Message: f.Label + " is invalid"}
		}
	}
	return nil
}

// Get returns one record. For user-scoped entities the lookup is by id only.
func (svc *Service) Get(ctx context.Context, s *Schema, scopeID, id string) (*Record, error) {
	if id == "" {
		return nil, ErrMissingID
	}
	if s.Scope == ScopeStore && scopeID == "" {
		return nil, ErrMissingScope
	}
	if s.Scope == ScopeUser {
		scopeID = ""
	}
	return svc.repo.Get(ctx, s, scopeID, id)
}

// GetChild returns a nested record only if it hangs off parentID.
func (svc *Service) GetChild(ctx context.Context, s *Schema, scopeID, parentID, id string) (*Record, error) {
	rec, err := svc.Get(ctx, s, scopeID, id)
	if err != nil {
		return nil, err
	}
	if rec.String(s.ParentField) != parentID {
		return nil, ErrNotFound
	}
	return rec, nil
}

// List returns the scope's records newest first.
func (svc *Service) List(ctx context.Context, s *Schema, scopeID string, q Query) ([]*Record, error) {
	if scopeID == "" {
		if s.Scope == ScopeUser {
			return nil, ErrUnauthenticated
		}
		return nil, ErrMissingScope
	}
	return svc.repo.List(ctx, s, scopeID, q)
}

// Count returns the number of records in scope.
func (svc *Service) Count(ctx context.Context, s *Schema, scopeID string) (int, error) {
	return svc.repo.Count(ctx, s, scopeID)
}

// Update replaces every field of the record if the caller owns it.
// A mismatched owner is not reported: zero rows match and 0 is returned.
func (svc *Service) Update(ctx context.Context, s *Schema, userID, scopeID, id string, in Input) (int64, error) {
	if userID == "" {
		return 0, ErrUnauthenticated
	}
	if errs := Validate(s, in, ModeEndpoint); len(errs) > 0 {
		return 0, errs[0]
	}
	if s.Scope == ScopeStore && scopeID == "" {
		return 0, ErrMissingScope
	}
	if id == "" {
		return 0, ErrMissingID
	}
	if s.ParentField != "" && in.Values[s.ParentField] == id {
		f, _ := s.Field(s.ParentField)
		return 0, &ValidationError{Field: f.Name, Message: f.Label + " is invalid"}
	}
	if s.Scope == ScopeStore {
		if err := svc.checkRefs(ctx, s, scopeID, in); err != nil {
			return 0, err
		}
	}

	n, err := svc.repo.Update(ctx, s, Owner{ScopeID: scopeID, UserID: userID}, id, in)
	if err != nil {
		return 0, fmt.Errorf("updating %s: %w", s.Singular, err)
	}
	if n == 0 {
		svc.logger.Warn("update matched no rows", "tag", s.Tag+"_PATCH", "id", id, "scope", scopeID, "user", userID)
		return 0, nil
	}
	svc.notify(ctx, Change{Entity: s.Entity, Action: ActionUpdated, ID: id, ScopeID: changeScope(s, scopeID, id), ActorID: userID})
	return n, nil
}

// Delete removes the record if the caller owns it. ErrReferenced is
// returned while other records point at it.
func (svc *Service) Delete(ctx context.Context, s *Schema, userID, scopeID, id string) (int64, error) {
	if userID == "" {
		return 0, ErrUnauthenticated
	}
	if s.Scope == ScopeStore && scopeID == "" {
		return 0, ErrMissingScope
	}
	if id == "" {
		return 0, ErrMissingID
	}

	n, err := svc.repo.Delete(ctx, s, Owner{ScopeID: scopeID, UserID: userID}, id)
	if err != nil {
		if errors.Is(err, ErrReferenced) {
			return 0, err
		}
		return 0, fmt.Errorf("deleting %s: %w", s.Singular, err)
	}
	if n == 0 {
		svc.logger.Warn("delete matched no rows", "tag", s.Tag+"_DELETE", "id", id, "scope", scopeID, "user", userID)
		return 0, nil
	}
	svc.notify(ctx, Change{Entity: s.Entity, Action: ActionDeleted, ID: id, ScopeID: changeScope(s, scopeID, id), ActorID: userID})
	return n, nil
}

// StoreOwnedBy reports whether userID owns storeID.
func (svc *Service) StoreOwnedBy(ctx context.Context, storeID, userID string) (bool, error) {
	if storeID == "" || userID == "" {
		return false, nil
	}
	return svc.repo.StoreOwnedBy(ctx, storeID, userID)
}

// changeScope is the store a change belongs to; a store is its own scope.
func changeScope(s *Schema, scopeID, id string) string {
	if s.Scope == ScopeUser {
		return id
	}
	return scopeID
}

func (svc *Service) notify(ctx context.Context, c Change) {
	c.At = svc.now().UTC()
	for _, o := range svc.observers {
		if err := o.RecordChange(ctx, c); err != nil {
			svc.logger.Warn("change observer failed", "entity", c.Entity, "action", c.Action, "error", err)
		}
	}
}
