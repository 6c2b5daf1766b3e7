package products

import (
	"context"
	"fmt"

	"storefront/pkg/apperr"
)

// ListCategories returns every category, alphabetically.
func (c *Conf) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT category_id, name, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	defer rows.Close()

	var list []Category
	for rows.Next() {
		var cat Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		list = append(list, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating categories: %w", err)
	}
	return list, nil
}

// InsertCategory creates a category, rejecting duplicate names.
func (c *Conf) InsertCategory(ctx context.Context, name string) (Category, error) {
	var exists bool
	err := c.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM categories WHERE name = $1)`, name).Scan(&exists)
	if err != nil {
		return Category{}, fmt.Errorf("checking category name: %w", err)
	}
	if exists {
		return Category{}, apperr.Conflict("CATEGORY_EXISTS", "Category already exists")
	}

	var cat Category
	cat.Name = name
	err = c.db.QueryRowContext(ctx,
		`INSERT INTO categories (name) VALUES ($1) RETURNING category_id, created_at`, name).
		Scan(&cat.ID, &cat.CreatedAt)
	if err != nil {
		return Category{}, fmt.Errorf("inserting category: %w", err)
	}
	return cat, nil
}
