package cart

// MaxQuantity caps a single cart line.
const MaxQuantity = 99

// Line is one cart row joined with its product.
type Line struct {
	CartID          int64   `json:"cart_id"`
	ProductID       int64   `json:"product_id"`
	Name            string  `json:"name"`
	Price           int64   `json:"price"`
	ImageURL        string  `json:"image_url"`
	Color           *string `json:"color"`
	Size            *string `json:"size"`
	Quantity        int     `json:"quantity"`
	Stock           int     `json:"stock"`
	DiscountPercent int     `json:"discount_percent"`
	Brand           string  `json:"brand"`
}

// Snapshot is the full cart with the server computed subtotal. The subtotal
// is advisory; checkout recomputes from fresh catalog rows.
type Snapshot struct {
	Items      []Line `json:"items"`
	Subtotal   int64  `json:"subtotal"`
	TotalItems int    `json:"total_items"`
}

// SyncItem is one client held line pushed up at login.
type SyncItem struct {
	ProductID int64   `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Color     *string `json:"color"`
	Size      *string `json:"size"`
}

// SyncResult reports how the client cart merged into the server cart.
type SyncResult struct {
	Synced  int `json:"synced_items"`
	Skipped int `json:"error_items"`
}
