package promotions

import "time"

const (
	DiscountPercent = "percent"
	DiscountFixed   = "fixed"
)

// Promotion is a discount code. Codes are unique and case sensitive.
type Promotion struct {
	ID             int64      `json:"promotion_id"`
	Code           string     `json:"code"`
	DiscountType   string     `json:"discount_type"`
	DiscountValue  int64      `json:"discount_value"`
	MinOrderAmount int64      `json:"min_order_amount"`
	UsageLimit     *int       `json:"usage_limit"`
	UsedCount      int        `json:"used_count"`
	StartDate      *time.Time `json:"start_date"`
	EndDate        *time.Time `json:"end_date"`
	IsActive       bool       `json:"is_active"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NewPromotion is the admin create/update payload.
type NewPromotion struct {
	Code           string     `json:"code" validate:"required"`
	DiscountType   string     `json:"discount_type" validate:"required,oneof=percent fixed"`
	DiscountValue  int64      `json:"discount_value" validate:"required,min=0"`
	MinOrderAmount int64      `json:"min_order_amount" validate:"min=0"`
	UsageLimit     *int       `json:"usage_limit" validate:"omitempty,min=1"`
	StartDate      *time.Time `json:"start_date"`
	EndDate        *time.Time `json:"end_date"`
	IsActive       *bool      `json:"is_active"`
}
