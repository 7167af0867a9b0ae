package address

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeStore assigns ids by identity key the way the Postgres upsert does:
// a key seen before keeps its id, mutable fields are overwritten.
type fakeStore struct {
	ids       map[string]int64
	nextID    int64
	persisted map[string]Components
	links     map[string]Link

	addrErr error
	linkErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		ids:       make(map[string]int64),
		persisted: make(map[string]Components),
		links:     make(map[string]Link),
	}
}

func (f *fakeStore) UpsertAddresses(ctx context.Context, addrs []Components) (map[string]int64, error) {
	if f.addrErr != nil {
		return nil, f.addrErr
	}
	out := make(map[string]int64, len(addrs))
	for _, a := range addrs {
		key := a.IdentityKey()
		id, ok := f.ids[key]
		if !ok {
			f.nextID++
			id = f.nextID
			f.ids[key] = id
		}
		f.persisted[key] = a
		out[key] = id
	}
	return out, nil
}

func (f *fakeStore) UpsertOrderLinks(ctx context.Context, links []Link) error {
	if f.linkErr != nil {
		return f.linkErr
	}
	for _, l := range links {
		f.links[l.OrderID] = l
	}
	return nil
}

func newTestReconciler(store Store) *Reconciler {
	return NewReconciler(SpaceDelimited{}, store, zap.NewNop())
}

func TestReconcileEndToEnd(t *testing.T) {
	store := newFakeStore()
	r := newTestReconciler(store)

	// Two orders share a shipping address; billing addresses differ.
	rows := []OrderRow{
		{OrderID: "111-001", ShippingRaw: "742 Evergreen DR Apt 4 Springfield OR 97477", BillingRaw: "500 Oak AVE Reno NV 89501"},
		{OrderID: "111-002", ShippingRaw: "742 Evergreen DR Apt 4 Springfield OR 97477", BillingRaw: "12 Birch LN Tacoma WA 98402"},
		{OrderID: "111-003", ShippingRaw: "9 Elm CT Boise ID 83702", BillingRaw: "9 Elm CT Boise ID 83702"},
	}

	links, err := r.Reconcile(context.Background(), rows)
	require.NoError(t, err)
	require.Len(t, links, 3)

	// 1 shared shipping + 2 billing + 1 shared shipping/billing = 4 unique addresses.
	assert.Len(t, store.persisted, 4)

	assert.Equal(t, links["111-001"].ShippingAddressID, links["111-002"].ShippingAddressID)
	assert.NotEqual(t, links["111-001"].BillingAddressID, links["111-002"].BillingAddressID)

	// Identical shipping and billing strings resolve to the same id.
	assert.Equal(t, links["111-003"].ShippingAddressID, links["111-003"].BillingAddressID)

	stats := r.Stats()
	assert.Equal(t, 4, stats.AddressesPersisted)
	assert.Equal(t, 3, stats.OrdersLinked)
	assert.Equal(t, 0, stats.OrdersSkipped)
}

func TestReconcileIdempotent(t *testing.T) {
	store := newFakeStore()
	r := newTestReconciler(store)

	rows := []OrderRow{
		{OrderID: "222-001", ShippingRaw: "742 Evergreen DR Springfield OR 97477", BillingRaw: "500 Oak AVE Reno NV 89501"},
	}

	first, err := r.Reconcile(context.Background(), rows)
	require.NoError(t, err)
	second, err := r.Reconcile(context.Background(), rows)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, store.persisted, 2)
	assert.Len(t, store.links, 1)
}

func TestReconcileIdentityDedup(t *testing.T) {
	store := newFakeStore()
	r := newTestReconciler(store)

	// Same identity key (line1 case-insensitive), different line2: one
	// persisted row, first parse wins in-batch.
	rows := []OrderRow{
		{OrderID: "333-001", ShippingRaw: "742 Evergreen DR Apt 4 Springfield OR 97477", BillingRaw: "742 EVERGREEN DR Unit 9 Springfield OR 97477"},
	}

	links, err := r.Reconcile(context.Background(), rows)
	require.NoError(t, err)
	require.Len(t, links, 1)

	assert.Len(t, store.persisted, 1)
	assert.Equal(t, links["333-001"].ShippingAddressID, links["333-001"].BillingAddressID)
}

func TestReconcileAllOrNothingLink(t *testing.T) {
	store := newFakeStore()
	r := newTestReconciler(store)

	rows := []OrderRow{
		{OrderID: "444-001", ShippingRaw: "742 Evergreen DR Springfield OR 97477", BillingRaw: "Not Available"},
		{OrderID: "444-002", ShippingRaw: "", BillingRaw: "500 Oak AVE Reno NV 89501"},
	}

	links, err := r.Reconcile(context.Background(), rows)
	require.NoError(t, err)

	// Neither order links, but the parseable addresses still persist.
	assert.Empty(t, links)
	assert.Empty(t, store.links)
	assert.Len(t, store.persisted, 2)

	stats := r.Stats()
	assert.Equal(t, 2, stats.OrdersSkipped)
	assert.Equal(t, 0, stats.OrdersLinked)
}

func TestReconcileNoValidAddresses(t *testing.T) {
	store := newFakeStore()
	r := newTestReconciler(store)

	rows := []OrderRow{
		{OrderID: "555-001", ShippingRaw: "Not Available", BillingRaw: ""},
	}

	links, err := r.Reconcile(context.Background(), rows)
	require.NoError(t, err)
	assert.Empty(t, links)
	assert.Empty(t, store.persisted)
}

func TestReconcileStoreFailureAborts(t *testing.T) {
	store := newFakeStore()
	store.addrErr = errors.New("connection reset")
	r := newTestReconciler(store)

	rows := []OrderRow{
		{OrderID: "666-001", ShippingRaw: "742 Evergreen DR Springfield OR 97477", BillingRaw: "500 Oak AVE Reno NV 89501"},
	}

	_, err := r.Reconcile(context.Background(), rows)
	require.Error(t, err)
	assert.ErrorContains(t, err, "upserting addresses")
	assert.Empty(t, store.links)
}

func TestReconcileLinkFailureAborts(t *testing.T) {
	store := newFakeStore()
	store.linkErr = errors.New("deadlock detected")
	r := newTestReconciler(store)

	rows := []OrderRow{
		{OrderID: "777-001", ShippingRaw: "742 Evergreen DR Springfield OR 97477", BillingRaw: "500 Oak AVE Reno NV 89501"},
	}

	_, err := r.Reconcile(context.Background(), rows)
	require.Error(t, err)
	assert.ErrorContains(t, err, "upserting order links")
}
