package orders

import "time"

// Order status values. An order is created pending and only ever moves via
// status transitions; its lines are frozen at creation.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusShipped   = "shipped"
	StatusDelivered = "delivered"
	StatusCancelled = "cancelled"
)

// Payment method values, stored lowercase.
const (
	PaymentCOD  = "cod"
	PaymentCard = "card"
)

// ValidStatus reports whether s is one of the known order states.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Order is one order row. Amounts are in the smallest currency unit.
type Order struct {
	ID                int64     `json:"order_id"`
	UserID            int64     `json:"user_id"`
	TotalAmount       int64     `json:"total_amount"`
	Status            string    `json:"status"`
	ShippingAddress   string    `json:"shipping_address"`
	Phone             string    `json:"phone"`
	Notes             string    `json:"notes"`
	PaymentMethod     string    `json:"payment_method"`
	PromotionCode     *string   `json:"promotion_code,omitempty"`
	PromotionDiscount int64     `json:"promotion_discount"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
	Items             []Detail  `json:"items,omitempty"`
}

// Detail is an immutable snapshot of a cart line at purchase time. Price is
// the post-discount unit price frozen when the order was created.
type Detail struct {
	ID        int64   `json:"order_detail_id"`
	OrderID   int64   `json:"order_id"`
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	ImageURL  string  `json:"image_url"`
	Brand     string  `json:"brand"`
	Quantity  int     `json:"quantity"`
	Price     int64   `json:"price"`
	Color     *string `json:"color"`
	Size      *string `json:"size"`
}

// Summary is one row of an order listing.
type Summary struct {
	ID              int64     `json:"order_id"`
	TotalAmount     int64     `json:"total_amount"`
	Status          string    `json:"status"`
	ShippingAddress string    `json:"shipping_address"`
	Phone           string    `json:"phone"`
	Notes           string    `json:"notes,omitempty"`
	Username        string    `json:"username,omitempty"`
	FullName        string    `json:"full_name,omitempty"`
	Email           string    `json:"email,omitempty"`
	ItemCount       int       `json:"item_count"`
	CreatedAt       time.Time `json:"created_at"`
}

// CheckoutRequest is what the orchestrator needs beyond the stored cart.
type CheckoutRequest struct {
	ShippingAddress string
	Phone           string
	Notes           string
	PromotionCode   string
	PaymentMethod   string
}

// CheckoutResult reports a committed checkout.
type CheckoutResult struct {
	OrderID           int64 `json:"order_id"`
	TotalAmount       int64 `json:"total_amount"`
	PromotionDiscount int64 `json:"promotion_discount"`
	ItemsCount        int   `json:"items_count"`
}

// ListFilters narrows the admin order listing.
type ListFilters struct {
	Status   string
	UserID   *int64
	FromDate *time.Time
	ToDate   *time.Time
	Page     int
	Limit    int
}

// Overview aggregates order counts and delivered revenue.
type Overview struct {
	TotalOrders     int   `json:"total_orders"`
	PendingOrders   int   `json:"pending_orders"`
	ConfirmedOrders int   `json:"confirmed_orders"`
	ShippedOrders   int   `json:"shipped_orders"`
	DeliveredOrders int   `json:"delivered_orders"`
	CancelledOrders int   `json:"cancelled_orders"`
	TotalRevenue    int64 `json:"total_revenue"`
}

// MonthlyRevenue is one month of delivered-order revenue.
type MonthlyRevenue struct {
	Year       int   `json:"year"`
	Month      int   `json:"month"`
	Revenue    int64 `json:"revenue"`
	OrderCount int   `json:"order_count"`
}

// TopProduct is one best seller by delivered quantity.
type TopProduct struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	ImageURL  string `json:"image_url"`
	TotalSold int    `json:"total_sold"`
	Revenue   int64  `json:"revenue"`
}

// Stats is the admin dashboard payload.
type Stats struct {
	Overview       Overview         `json:"overview"`
	MonthlyRevenue []MonthlyRevenue `json:"monthly_revenue"`
	TopProducts    []TopProduct     `json:"top_products"`
}
