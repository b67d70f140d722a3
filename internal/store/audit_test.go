// ABOUTME: Tests for audit log store operations
// ABOUTME: Covers Append, RecordChange and List with scope/actor/type filters

package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/storeadmin/internal/resource"
)

func TestAuditStore_Append(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	entry := &AuditEntry{
		ActorID:    "user-123",
		Action:     resource.ActionCreated,
		TargetType: "billboards",
		TargetID:   "bb-1",
		ScopeID:    "store-1",
		Detail:     map[string]any{"label": "Summer"},
	}
	require.NoError(t, store.AppendAuditLog(ctx, entry))

	// Should have generated ID and timestamp
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.Timestamp.IsZero())

	entries, err := store.ListAuditLog(ctx, AuditFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Summer", entries[0].Detail["label"])
}

func TestAuditStore_RecordChange(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	err := store.RecordChange(ctx, resource.Change{
		Entity: "colors", Action: resource.ActionDeleted, ID: "c-1", ScopeID: "store-1", ActorID: "user-1",
		At: time.Now(),
	})
	require.NoError(t, err)

	entries, err := store.ListAuditLog(ctx, AuditFilter{ScopeID: "store-1"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, resource.ActionDeleted, entries[0].Action)
	assert.Equal(t, "colors", entries[0].TargetType)
}

func TestAuditStore_List_FiltersAndOrder(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i, scope := range []string{"store-1", "store-2", "store-1"} {
		require.NoError(t, store.AppendAuditLog(ctx, &AuditEntry{
			ActorID:    "user-1",
			Action:     resource.ActionUpdated,
			TargetType: "sizes",
			TargetID:   fmt.Sprintf("size-%d", i),
			ScopeID:    scope,
			Timestamp:  base.Add(time.Duration(i) * time.Minute),
		}))
	}

	entries, err := store.ListAuditLog(ctx, AuditFilter{ScopeID: "store-1"})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "size-2", entries[0].TargetID, "newest first")

	since := base.Add(90 * time.Second)
	entries, err = store.ListAuditLog(ctx, AuditFilter{Since: &since})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entries, err = store.ListAuditLog(ctx, AuditFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestNormalizeAuditLimit(t *testing.T) {
	assert.Equal(t, 100, normalizeAuditLimit(0))
	assert.Equal(t, 1000, normalizeAuditLimit(5000))
	assert.Equal(t, 42, normalizeAuditLimit(42))
}
