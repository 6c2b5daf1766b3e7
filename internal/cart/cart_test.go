package cart

import (
	"context"
	"database/sql"
	"testing"

	"storefront/pkg/apperr"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergedQuantity(t *testing.T) {
	tests := []struct {
		name     string
		existing int
		add      int
		stock    int
		clamp    bool
		want     int
		wantCode string
	}{
		{name: "fresh line within stock", add: 2, stock: 5, want: 2},
		{name: "same variant stacks onto existing line", existing: 2, add: 3, stock: 10, want: 5},
		{name: "fresh line over stock fails", add: 6, stock: 5, wantCode: "INSUFFICIENT_STOCK"},
		{name: "merged sum over stock fails", existing: 4, add: 4, stock: 5, wantCode: "INSUFFICIENT_STOCK"},
		{name: "merged sum clamps at stock for sync", existing: 4, add: 4, stock: 5, clamp: true, want: 5},
		{name: "fresh line clamps at stock for sync", add: 9, stock: 3, clamp: true, want: 3},
		{name: "clamp to zero stock still fails", add: 1, stock: 0, clamp: true, wantCode: "INSUFFICIENT_STOCK"},
		{name: "exactly stock passes", existing: 2, add: 3, stock: 5, want: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := mergedQuantity(tt.existing, tt.add, tt.stock, tt.clamp)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
				assert.Equal(t, tt.wantCode, apperr.As(err).Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAddLineRejectsBadQuantity(t *testing.T) {
	c := &Conf{}

	for _, qty := range []int{0, -1, MaxQuantity + 1} {
		err := c.AddLine(context.Background(), 1, 1, qty, nil, nil)
		require.Error(t, err)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		assert.Equal(t, "INVALID_QUANTITY", apperr.As(err).Code)
	}
}

func TestUpdateLineRejectsQuantityAboveCap(t *testing.T) {
	c := &Conf{}

	err := c.UpdateLine(context.Background(), 1, 1, MaxQuantity+1)
	require.Error(t, err)
	assert.Equal(t, "INVALID_QUANTITY", apperr.As(err).Code)
}

func TestAddLineUnreachableDatabaseIsTransient(t *testing.T) {
	// nothing listens on port 1, so BeginTx fails at connect time
	db, err := sql.Open("pgx", "postgres://u:p@127.0.0.1:1/storefront?connect_timeout=1")
	require.NoError(t, err)
	defer db.Close()

	c := &Conf{db: db}
	err = c.AddLine(context.Background(), 1, 1, 1, nil, nil)
	require.Error(t, err)
	assert.Equal(t, apperr.KindTransient, apperr.KindOf(err))
}

func TestNewConfRequiresDB(t *testing.T) {
	_, err := NewConf(nil)
	require.Error(t, err)
}
