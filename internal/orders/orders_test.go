package orders

import (
	"context"
	"testing"

	"storefront/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCancelStore struct {
	status    string
	statusErr error
	items     []orderedQuantity

	restored  map[int64]int
	cancelled bool
}

func (f *fakeCancelStore) OrderStatusForUpdate(_ context.Context, _, _ int64) (string, error) {
	return f.status, f.statusErr
}

func (f *fakeCancelStore) OrderedQuantities(_ context.Context, _ int64) ([]orderedQuantity, error) {
	return f.items, nil
}

func (f *fakeCancelStore) RestoreStock(_ context.Context, productID int64, quantity int) error {
	if f.restored == nil {
		f.restored = map[int64]int{}
	}
	f.restored[productID] += quantity
	return nil
}

func (f *fakeCancelStore) MarkCancelled(_ context.Context, _ int64) error {
	f.cancelled = true
	return nil
}

func TestRunCancelRestoresStock(t *testing.T) {
	store := &fakeCancelStore{
		status: StatusPending,
		items: []orderedQuantity{
			{productID: 7, quantity: 2},
			{productID: 8, quantity: 3},
		},
	}

	err := runCancel(context.Background(), store, 1, 101)
	require.NoError(t, err)

	// every ordered unit goes back to its product, exactly once
	assert.Equal(t, map[int64]int{7: 2, 8: 3}, store.restored)
	assert.True(t, store.cancelled)
}

func TestRunCancelOnlyPending(t *testing.T) {
	for _, status := range []string{StatusConfirmed, StatusShipped, StatusDelivered, StatusCancelled} {
		t.Run(status, func(t *testing.T) {
			store := &fakeCancelStore{
				status: status,
				items:  []orderedQuantity{{productID: 7, quantity: 2}},
			}

			err := runCancel(context.Background(), store, 1, 101)
			require.Error(t, err)
			assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
			assert.Equal(t, "INVALID_ORDER_STATE", apperr.As(err).Code)
			assert.Empty(t, store.restored)
			assert.False(t, store.cancelled)
		})
	}
}

func TestRunCancelUnknownOrder(t *testing.T) {
	store := &fakeCancelStore{
		statusErr: apperr.NotFound("ORDER_NOT_FOUND", "Order not found"),
	}

	err := runCancel(context.Background(), store, 1, 999)
	require.Error(t, err)
	assert.Equal(t, "ORDER_NOT_FOUND", apperr.As(err).Code)
	assert.False(t, store.cancelled)
}
