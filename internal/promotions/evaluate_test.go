package promotions

import (
	"testing"
	"time"

	"storefront/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int              { return &n }
func timePtr(t time.Time) *time.Time { return &t }

func TestEvaluatePercent(t *testing.T) {
	p := Promotion{
		Code:          "SALE10",
		DiscountType:  DiscountPercent,
		DiscountValue: 10,
		IsActive:      true,
	}

	discount, err := p.Evaluate(50000, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(5000), discount)

	// fractional results floor toward zero
	discount, err = p.Evaluate(999, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(99), discount)
}

func TestEvaluateFixedClampsAtAmount(t *testing.T) {
	p := Promotion{
		Code:          "FLAT500",
		DiscountType:  DiscountFixed,
		DiscountValue: 500,
		IsActive:      true,
	}

	discount, err := p.Evaluate(2000, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(500), discount)

	// a fixed discount never exceeds the order amount
	discount, err = p.Evaluate(300, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(300), discount)
}

func TestEvaluateRejections(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		promo    Promotion
		amount   int64
		wantKind apperr.Kind
		wantCode string
	}{
		{
			name:     "inactive",
			promo:    Promotion{DiscountType: DiscountPercent, DiscountValue: 10, IsActive: false},
			amount:   1000,
			wantKind: apperr.KindNotFound,
			wantCode: "INVALID_PROMOTION",
		},
		{
			name: "not started yet",
			promo: Promotion{
				DiscountType: DiscountPercent, DiscountValue: 10, IsActive: true,
				StartDate: timePtr(now.Add(24 * time.Hour)),
			},
			amount:   1000,
			wantKind: apperr.KindConflict,
			wantCode: "PROMOTION_EXPIRED",
		},
		{
			name: "ended",
			promo: Promotion{
				DiscountType: DiscountPercent, DiscountValue: 10, IsActive: true,
				EndDate: timePtr(now.Add(-24 * time.Hour)),
			},
			amount:   1000,
			wantKind: apperr.KindConflict,
			wantCode: "PROMOTION_EXPIRED",
		},
		{
			name: "usage limit reached",
			promo: Promotion{
				DiscountType: DiscountPercent, DiscountValue: 10, IsActive: true,
				UsageLimit: intPtr(5), UsedCount: 5,
			},
			amount:   1000,
			wantKind: apperr.KindConflict,
			wantCode: "PROMOTION_EXHAUSTED",
		},
		{
			name: "below minimum order amount",
			promo: Promotion{
				DiscountType: DiscountPercent, DiscountValue: 10, IsActive: true,
				MinOrderAmount: 5000,
			},
			amount:   4999,
			wantKind: apperr.KindConflict,
			wantCode: "PROMOTION_BELOW_MINIMUM",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.promo.Evaluate(tt.amount, now)
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, apperr.KindOf(err))
			require.NotNil(t, apperr.As(err))
			assert.Equal(t, tt.wantCode, apperr.As(err).Code)
		})
	}
}

// An inactive promotion wins over every other failure, and the date window
// wins over the usage limit.
func TestEvaluateFailureOrder(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	p := Promotion{
		DiscountType: DiscountPercent, DiscountValue: 10,
		IsActive:       false,
		EndDate:        timePtr(now.Add(-time.Hour)),
		UsageLimit:     intPtr(1),
		UsedCount:      1,
		MinOrderAmount: 100000,
	}
	_, err := p.Evaluate(1, now)
	require.NotNil(t, apperr.As(err))
	assert.Equal(t, "INVALID_PROMOTION", apperr.As(err).Code)

	p.IsActive = true
	_, err = p.Evaluate(1, now)
	require.NotNil(t, apperr.As(err))
	assert.Equal(t, "PROMOTION_EXPIRED", apperr.As(err).Code)

	p.EndDate = nil
	_, err = p.Evaluate(1, now)
	require.NotNil(t, apperr.As(err))
	assert.Equal(t, "PROMOTION_EXHAUSTED", apperr.As(err).Code)
}

func TestEvaluateNoDatesNoLimit(t *testing.T) {
	p := Promotion{DiscountType: DiscountFixed, DiscountValue: 100, IsActive: true}

	discount, err := p.Evaluate(1000, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(100), discount)
}

func TestEvaluateDryRunDoesNotMutate(t *testing.T) {
	p := Promotion{
		DiscountType: DiscountPercent, DiscountValue: 10, IsActive: true,
		UsageLimit: intPtr(10), UsedCount: 3,
	}

	_, err := p.Evaluate(1000, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 3, p.UsedCount)
}
