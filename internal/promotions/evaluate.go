package promotions

import (
	"fmt"
	"time"

	"storefront/pkg/apperr"
)

// Evaluate decides whether the promotion applies to an order of the given
// amount at the given instant and returns the discount. It never mutates
// usage counters; redemption is a separate, transactional step.
//
// Checks run in a fixed order and the first failure wins: active, date
// window, usage limit, minimum order amount.
func (p Promotion) Evaluate(amount int64, now time.Time) (int64, error) {
	if !p.IsActive {
		return 0, apperr.NotFound("INVALID_PROMOTION", "Promotion code is not valid")
	}
	if p.StartDate != nil && now.Before(*p.StartDate) {
		return 0, apperr.Conflict("PROMOTION_EXPIRED", "Promotion code is outside its validity window")
	}
	if p.EndDate != nil && now.After(*p.EndDate) {
		return 0, apperr.Conflict("PROMOTION_EXPIRED", "Promotion code has expired")
	}
	if p.UsageLimit != nil && p.UsedCount >= *p.UsageLimit {
		return 0, apperr.Conflict("PROMOTION_EXHAUSTED", "Promotion code has no uses left")
	}
	if amount < p.MinOrderAmount {
		return 0, apperr.Conflict("PROMOTION_BELOW_MINIMUM",
			fmt.Sprintf("Order amount must be at least %d to use this code", p.MinOrderAmount))
	}

	switch p.DiscountType {
	case DiscountPercent:
		return amount * p.DiscountValue / 100, nil
	case DiscountFixed:
		if p.DiscountValue > amount {
			return amount, nil
		}
		return p.DiscountValue, nil
	default:
		return 0, fmt.Errorf("unknown discount type %q", p.DiscountType)
	}
}
