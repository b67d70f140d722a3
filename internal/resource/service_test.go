// ABOUTME: Tests for the generic CRUD pipeline over a real SQLite repository
// ABOUTME: Auth, ownership, silent no-op writes, ref checks, sub-categories and change notification

package resource_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/storeadmin/internal/resource"
	"github.com/2389/storeadmin/internal/store"
)

type recordingObserver struct {
	mu      sync.Mutex
	changes []resource.Change
}

func (o *recordingObserver) RecordChange(_ context.Context, c resource.Change) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.changes = append(o.changes, c)
	return nil
}

func (o *recordingObserver) all() []resource.Change {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]resource.Change(nil), o.changes...)
}

func setupService(t *testing.T) (*resource.Service, *recordingObserver) {
	t.Helper()
	registry := resource.DefaultRegistry()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), registry)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	obs := &recordingObserver{}
	return resource.NewService(s, registry, nil, obs), obs
}

func in(values map[string]any) resource.Input {
	input := resource.NewInput()
	for k, v := range values {
		input.Set(k, v)
	}
	return input
}

func createStore(t *testing.T, svc *resource.Service, userID string) *resource.Record {
	t.Helper()
	rec, err := svc.Create(context.Background(), resource.Stores, userID, "", in(map[string]any{"name": "Shop"}))
	require.NoError(t, err)
	return rec
}

func TestService_CreateRequiresAuth(t *testing.T) {
	svc, obs := setupService(t)

	_, err := svc.Create(context.Background(), resource.Sizes, "", "store-1", in(map[string]any{"name": "S", "value": "s"}))
	assert.ErrorIs(t, err, resource.ErrUnauthenticated)
	assert.Empty(t, obs.all())
}

func TestService_CreateReportsFirstMissingField(t *testing.T) {
	svc, _ := setupService(t)
	shop := createStore(t, svc, "alice")

	_, err := svc.Create(context.Background(), resource.Sizes, "alice", shop.ID, in(map[string]any{"value": "s"}))
	var verr *resource.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Name is required", verr.Message)
}

func TestService_CreateInStoreOwnedBySomeoneElse(t *testing.T) {
	svc, _ := setupService(t)
	shop := createStore(t, svc, "alice")

	_, err := svc.Create(context.Background(), resource.Sizes, "mallory", shop.ID, in(map[string]any{"name": "S", "value": "s"}))
	assert.ErrorIs(t, err, resource.ErrForbidden)

	_, err = svc.Create(context.Background(), resource.Sizes, "alice", "", in(map[string]any{"name": "S", "value": "s"}))
	assert.ErrorIs(t, err, resource.ErrMissingScope)
}

func TestService_StoreScopesToCaller(t *testing.T) {
	svc, obs := setupService(t)
	shop := createStore(t, svc, "alice")

	assert.Equal(t, "alice", shop.ScopeID)
	changes := obs.all()
	require.Len(t, changes, 1)
	assert.Equal(t, resource.ActionCreated, changes[0].Action)
	assert.Equal(t, shop.ID, changes[0].ScopeID)
	assert.Equal(t, "alice", changes[0].ActorID)

	stores, err := svc.List(context.Background(), resource.Stores, "alice", resource.Query{})
	require.NoError(t, err)
	require.Len(t, stores, 1)

	_, err = svc.List(context.Background(), resource.Stores, "", resource.Query{})
	assert.ErrorIs(t, err, resource.ErrUnauthenticated)
}

func TestService_RefMustBelongToStore(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	alice := createStore(t, svc, "alice")
	bob := createStore(t, svc, "bob")

	bobsBoard, err := svc.Create(ctx, resource.Billboards, "bob", bob.ID, in(map[string]any{"label": "B", "imageUrl": "https://img/b"}))
	require.NoError(t, err)

	_, err = svc.Create(ctx, resource.Categories, "alice", alice.ID, in(map[string]any{"name": "Tees", "billboardId": bobsBoard.ID}))
	var verr *resource.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "billboardId", verr.Field)
}

func TestService_UpdateAndDeleteOwnerMismatchAreSilent(t *testing.T) {
	svc, obs := setupService(t)
	ctx := context.Background()
	shop := createStore(t, svc, "alice")

	size, err := svc.Create(ctx, resource.Sizes, "alice", shop.ID, in(map[string]any{"name": "Small", "value": "S"}))
	require.NoError(t, err)
	before := len(obs.all())

	n, err := svc.Update(ctx, resource.Sizes, "mallory", shop.ID, size.ID, in(map[string]any{"name": "Hacked", "value": "H"}))
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = svc.Delete(ctx, resource.Sizes, "mallory", shop.ID, size.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, obs.all(), before, "no-op writes are not observed")

	got, err := svc.Get(ctx, resource.Sizes, shop.ID, size.ID)
	require.NoError(t, err)
	assert.Equal(t, "Small", got.String("name"))

	n, err = svc.Update(ctx, resource.Sizes, "alice", shop.ID, size.ID, in(map[string]any{"name": "Smol", "value": "S"}))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestService_WritesRequireAuth(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.Update(ctx, resource.Sizes, "", "s", "id", in(nil))
	assert.ErrorIs(t, err, resource.ErrUnauthenticated)
	_, err = svc.Delete(ctx, resource.Sizes, "", "s", "id")
	assert.ErrorIs(t, err, resource.ErrUnauthenticated)

	_, err = svc.Delete(ctx, resource.Sizes, "alice", "s", "")
	assert.ErrorIs(t, err, resource.ErrMissingID)
}

func TestService_DeleteReferenced(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	shop := createStore(t, svc, "alice")

	bb, err := svc.Create(ctx, resource.Billboards, "alice", shop.ID, in(map[string]any{"label": "B", "imageUrl": "https://img/b"}))
	require.NoError(t, err)
	_, err = svc.Create(ctx, resource.Categories, "alice", shop.ID, in(map[string]any{"name": "Tees", "billboardId": bb.ID}))
	require.NoError(t, err)

	_, err = svc.Delete(ctx, resource.Billboards, "alice", shop.ID, bb.ID)
	assert.ErrorIs(t, err, resource.ErrReferenced)
}

func TestService_SubCategories(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	shop := createStore(t, svc, "alice")

	bb, err := svc.Create(ctx, resource.Billboards, "alice", shop.ID, in(map[string]any{"label": "B", "imageUrl": "https://img/b"}))
	require.NoError(t, err)
	parent, err := svc.Create(ctx, resource.Categories, "alice", shop.ID, in(map[string]any{"name": "Clothing", "billboardId": bb.ID}))
	require.NoError(t, err)

	child, err := svc.CreateChild(ctx, resource.Categories, "alice", shop.ID, parent.ID, in(map[string]any{"name": "Shirts", "billboardId": bb.ID}))
	require.NoError(t, err)
	assert.Equal(t, parent.ID, child.String("parentCategoryId"))

	got, err := svc.GetChild(ctx, resource.Categories, shop.ID, parent.ID, child.ID)
	require.NoError(t, err)
	assert.Equal(t, "Shirts", got.String("name"))

	_, err = svc.GetChild(ctx, resource.Categories, shop.ID, child.ID, parent.ID)
	assert.ErrorIs(t, err, resource.ErrNotFound)

	roots, err := svc.List(ctx, resource.Categories, shop.ID, resource.Query{Equal: map[string]string{"parentCategoryId": resource.RootsOnly}})
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, parent.ID, roots[0].ID)

	_, err = svc.CreateChild(ctx, resource.Sizes, "alice", shop.ID, parent.ID, in(nil))
	assert.Error(t, err)

	selfParent := in(map[string]any{"name": "Loop", "billboardId": bb.ID, "parentCategoryId": parent.ID})
	_, err = svc.Update(ctx, resource.Categories, "alice", shop.ID, parent.ID, selfParent)
	var verr *resource.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestService_PublicContactCreate(t *testing.T) {
	svc, obs := setupService(t)
	ctx := context.Background()
	shop := createStore(t, svc, "alice")

	msg := in(map[string]any{"email": "a@b.c", "title": "Hi", "message": "Hello there"})
	rec, err := svc.Create(ctx, resource.Contacts, "", shop.ID, msg)
	require.NoError(t, err)
	assert.Equal(t, shop.ID, rec.ScopeID)

	changes := obs.all()
	assert.Equal(t, "", changes[len(changes)-1].ActorID)

	_, err = svc.Create(ctx, resource.Contacts, "", "no-such-store", msg)
	assert.ErrorIs(t, err, resource.ErrNotFound)
}

func TestService_ProductFlow(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	shop := createStore(t, svc, "alice")
	sid := shop.ID

	bb, err := svc.Create(ctx, resource.Billboards, "alice", sid, in(map[string]any{"label": "B", "imageUrl": "https://img/b"}))
	require.NoError(t, err)
	cat, err := svc.Create(ctx, resource.Categories, "alice", sid, in(map[string]any{"name": "Tees", "billboardId": bb.ID}))
	require.NoError(t, err)
	color, err := svc.Create(ctx, resource.Colors, "alice", sid, in(map[string]any{"name": "Red", "value": "#f00f"}))
	require.NoError(t, err)
	size, err := svc.Create(ctx, resource.Sizes, "alice", sid, in(map[string]any{"name": "M", "value": "m"}))
	require.NoError(t, err)

	product := in(map[string]any{
		"name": "Tee", "price": decimal.RequireFromString("20"), "description": "Soft",
		"categoryId": cat.ID, "sizeId": size.ID, "colorId": color.ID, "isFeatured": true,
	})
	product.Images = []string{"https://img/p.png"}
	product.Present["images"] = true

	rec, err := svc.Create(ctx, resource.Products, "alice", sid, product)
	require.NoError(t, err)

	got, err := svc.Get(ctx, resource.Products, sid, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tees", got.Related["category"].String("name"))
	assert.Equal(t, []string{"https://img/p.png"}, got.ImageURLs())

	featured, err := svc.List(ctx, resource.Products, sid, resource.Query{Equal: map[string]string{"colorId": color.ID}, Flags: []string{"isFeatured"}})
	require.NoError(t, err)
	assert.Len(t, featured, 1)

	n, err := svc.Count(ctx, resource.Products, sid)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = svc.Delete(ctx, resource.Colors, "alice", sid, color.ID)
	assert.ErrorIs(t, err, resource.ErrReferenced)
}
