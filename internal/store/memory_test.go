package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIntent() Intent {
	return Intent{
		Email:     "friend@example.com",
		Message:   "Ti voglio bene, ma no.",
		Signed:    true,
		Custom:    false,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestMemoryOrders_PutTake(t *testing.T) {
	orders := NewMemoryOrders(10, time.Hour)
	ctx := context.Background()

	require.NoError(t, orders.Put(ctx, "ord_1", testIntent()))

	got, err := orders.Take(ctx, "ord_1")
	require.NoError(t, err)
	assert.Equal(t, testIntent(), got)

	_, err = orders.Take(ctx, "ord_1")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestMemoryOrders_UnknownID(t *testing.T) {
	orders := NewMemoryOrders(10, time.Hour)

	_, err := orders.Take(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestMemoryOrders_Delete(t *testing.T) {
	orders := NewMemoryOrders(10, time.Hour)
	ctx := context.Background()

	require.NoError(t, orders.Put(ctx, "ord_1", testIntent()))
	require.NoError(t, orders.Delete(ctx, "ord_1"))
	require.NoError(t, orders.Delete(ctx, "never_stored"))

	_, err := orders.Take(ctx, "ord_1")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestMemoryOrders_CapacityEvictsOldest(t *testing.T) {
	orders := NewMemoryOrders(3, time.Hour)
	ctx := context.Background()

	for i := range 5 {
		require.NoError(t, orders.Put(ctx, fmt.Sprintf("ord_%d", i), testIntent()))
	}
	assert.Equal(t, 3, orders.Len())

	_, err := orders.Take(ctx, "ord_0")
	assert.ErrorIs(t, err, ErrOrderNotFound)
	_, err = orders.Take(ctx, "ord_4")
	assert.NoError(t, err)
}

func TestMemoryOrders_Expires(t *testing.T) {
	orders := NewMemoryOrders(10, 20*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, orders.Put(ctx, "ord_1", testIntent()))
	time.Sleep(60 * time.Millisecond)

	_, err := orders.Take(ctx, "ord_1")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestMemoryLedger_RecordsOnce(t *testing.T) {
	ledger := NewMemoryLedger(10, time.Hour)
	ctx := context.Background()

	first, err := ledger.Record(ctx, "evt_1", "checkout.session.completed", nil)
	require.NoError(t, err)
	assert.True(t, first)

	first, err = ledger.Record(ctx, "evt_1", "checkout.session.completed", nil)
	require.NoError(t, err)
	assert.False(t, first)

	first, err = ledger.Record(ctx, "evt_2", "checkout.session.completed", nil)
	require.NoError(t, err)
	assert.True(t, first)
}
