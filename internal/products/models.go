package products

import "time"

// Product is a catalog row. Price is in the smallest currency unit.
type Product struct {
	ID              int64     `json:"product_id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	Price           int64     `json:"price"`
	Stock           int       `json:"stock"`
	DiscountPercent int       `json:"discount_percent"`
	ImageURL        string    `json:"image_url"`
	Brand           string    `json:"brand"`
	CategoryID      *int64    `json:"category_id,omitempty"`
	CategoryName    *string   `json:"category_name,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewProduct is the create/update payload.
type NewProduct struct {
	Name            string `json:"name" validate:"required"`
	Description     string `json:"description"`
	Price           int64  `json:"price" validate:"required,min=0"`
	Stock           int    `json:"stock" validate:"min=0"`
	DiscountPercent int    `json:"discount_percent" validate:"min=0,max=100"`
	ImageURL        string `json:"image_url"`
	Brand           string `json:"brand"`
	CategoryID      *int64 `json:"category_id"`
}

// ListParams narrows and pages the catalog listing.
type ListParams struct {
	Category string
	Search   string
	Brand    string
	MinPrice *int64
	MaxPrice *int64
	Sort     string
	Page     int
	Limit    int
}

// Pagination is the envelope returned next to every paged list.
type Pagination struct {
	CurrentPage  int `json:"current_page"`
	TotalPages   int `json:"total_pages"`
	TotalItems   int `json:"total_items"`
	ItemsPerPage int `json:"items_per_page"`
}

type Category struct {
	ID        int64     `json:"category_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
