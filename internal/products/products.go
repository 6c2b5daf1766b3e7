// Package products is the catalog: read paths consumed by cart and checkout,
// plus the administrative CRUD.
package products

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"storefront/pkg/apperr"

	"github.com/jackc/pgx/v5/pgconn"
)

// isForeignKeyViolation reports whether err is Postgres error 23503, a
// foreign key constraint violation.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (*Conf, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	return &Conf{db: db}, nil
}

const productColumns = `
	p.product_id, p.name, p.description, p.price, p.stock, p.discount_percent,
	p.image_url, p.brand, p.category_id, c.name, p.created_at, p.updated_at
`

func scanProduct(row interface{ Scan(...any) error }) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.DiscountPercent,
		&p.ImageURL, &p.Brand, &p.CategoryID, &p.CategoryName, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// GetByID is the catalog read used by the cart and by checkout.
func (c *Conf) GetByID(ctx context.Context, productID int64) (Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products p
		LEFT JOIN categories c ON p.category_id = c.category_id
		WHERE p.product_id = $1
	`
	p, err := scanProduct(c.db.QueryRowContext(ctx, query, productID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, apperr.NotFound("PRODUCT_NOT_FOUND", "Product not found")
		}
		return Product{}, fmt.Errorf("querying product %d: %w", productID, err)
	}
	return p, nil
}

// List returns in-stock products matching the filters, newest first by
// default. Sort keys are whitelisted; anything unknown falls back to newest.
func (c *Conf) List(ctx context.Context, params ListParams) ([]Product, Pagination, error) {
	conditions := []string{"p.stock > 0"}
	var args []any

	add := func(cond string, val any) {
		args = append(args, val)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if params.Category != "" {
		add("c.name = $%d", params.Category)
	}
	if params.Search != "" {
		args = append(args, "%"+params.Search+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(p.name ILIKE $%d OR p.brand ILIKE $%d)", n, n))
	}
	if params.Brand != "" {
		add("p.brand = $%d", params.Brand)
	}
	if params.MinPrice != nil {
		add("p.price >= $%d", *params.MinPrice)
	}
	if params.MaxPrice != nil {
		add("p.price <= $%d", *params.MaxPrice)
	}

	var orderBy string
	switch params.Sort {
	case "price_asc":
		orderBy = "p.price ASC"
	case "price_desc":
		orderBy = "p.price DESC"
	case "name":
		orderBy = "p.name ASC"
	default:
		orderBy = "p.created_at DESC, p.product_id DESC"
	}

	if params.Limit <= 0 {
		params.Limit = 12
	}
	if params.Page <= 0 {
		params.Page = 1
	}
	offset := (params.Page - 1) * params.Limit

	where := strings.Join(conditions, " AND ")

	countQuery := `
		SELECT COUNT(*)
		FROM products p
		LEFT JOIN categories c ON p.category_id = c.category_id
		WHERE ` + where
	var total int
	if err := c.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, Pagination{}, fmt.Errorf("counting products: %w", err)
	}

	listArgs := append(args, params.Limit, offset)
	listQuery := fmt.Sprintf(`
		SELECT `+productColumns+`
		FROM products p
		LEFT JOIN categories c ON p.category_id = c.category_id
		WHERE %s
		ORDER BY %s
		LIMIT $%d OFFSET $%d
	`, where, orderBy, len(args)+1, len(args)+2)

	rows, err := c.db.QueryContext(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, Pagination{}, fmt.Errorf("querying products: %w", err)
	}
	defer rows.Close()

	var list []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, Pagination{}, fmt.Errorf("scanning product: %w", err)
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, Pagination{}, fmt.Errorf("iterating products: %w", err)
	}

	totalPages := (total + params.Limit - 1) / params.Limit
	return list, Pagination{
		CurrentPage:  params.Page,
		TotalPages:   totalPages,
		TotalItems:   total,
		ItemsPerPage: params.Limit,
	}, nil
}

// ListNew returns the eight most recently added in-stock products.
func (c *Conf) ListNew(ctx context.Context) ([]Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products p
		LEFT JOIN categories c ON p.category_id = c.category_id
		WHERE p.stock > 0
		ORDER BY p.created_at DESC, p.product_id DESC
		LIMIT 8
	`
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying new products: %w", err)
	}
	defer rows.Close()

	var list []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating new products: %w", err)
	}
	return list, nil
}

// Insert creates a product and returns the stored row.
func (c *Conf) Insert(ctx context.Context, np NewProduct) (Product, error) {
	query := `
		INSERT INTO products (name, description, price, stock, discount_percent, image_url, brand, category_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING product_id, created_at, updated_at
	`
	p := Product{
		Name:            np.Name,
		Description:     np.Description,
		Price:           np.Price,
		Stock:           np.Stock,
		DiscountPercent: np.DiscountPercent,
		ImageURL:        np.ImageURL,
		Brand:           np.Brand,
		CategoryID:      np.CategoryID,
	}
	err := c.db.QueryRowContext(ctx, query, np.Name, np.Description, np.Price, np.Stock,
		np.DiscountPercent, np.ImageURL, np.Brand, np.CategoryID).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, fmt.Errorf("inserting product: %w", err)
	}
	return p, nil
}

// Update replaces all mutable fields of an existing product.
func (c *Conf) Update(ctx context.Context, productID int64, np NewProduct) (Product, error) {
	query := `
		UPDATE products
		SET name = $1, description = $2, price = $3, stock = $4, discount_percent = $5,
		    image_url = $6, brand = $7, category_id = $8, updated_at = now()
		WHERE product_id = $9
	`
	res, err := c.db.ExecContext(ctx, query, np.Name, np.Description, np.Price, np.Stock,
		np.DiscountPercent, np.ImageURL, np.Brand, np.CategoryID, productID)
	if err != nil {
		return Product{}, fmt.Errorf("updating product %d: %w", productID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Product{}, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return Product{}, apperr.NotFound("PRODUCT_NOT_FOUND", "Product not found")
	}
	return c.GetByID(ctx, productID)
}

// Delete removes a product. Products referenced by order history cannot be
// deleted; the snapshot rows in order_details must keep pointing somewhere.
func (c *Conf) Delete(ctx context.Context, productID int64) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM products WHERE product_id = $1`, productID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperr.Conflict("PRODUCT_IN_ORDERS",
				"Product appears in existing orders and cannot be deleted")
		}
		return fmt.Errorf("deleting product %d: %w", productID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return apperr.NotFound("PRODUCT_NOT_FOUND", "Product not found")
	}
	return nil
}
