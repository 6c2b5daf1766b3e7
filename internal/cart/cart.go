// Package cart is the authoritative per-user cart store. A cart line is keyed
// by (user, product, color, size); adding the same key again merges quantities
// instead of duplicating the line. Add, update and sync all go through the one
// merge rule in mergeLine.
package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/products"
	"storefront/pkg/apperr"
)

type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (*Conf, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	return &Conf{db: db}, nil
}

// AddLine adds quantity of a product variant to the user's cart, merging with
// an existing line for the same variant. The merged quantity must not exceed
// the product's stock.
func (c *Conf) AddLine(ctx context.Context, userID, productID int64, quantity int, color, size *string) error {
	if quantity <= 0 || quantity > MaxQuantity {
		return apperr.Validation("INVALID_QUANTITY", fmt.Sprintf("Quantity must be between 1 and %d", MaxQuantity))
	}

	return c.withTx(ctx, func(tx *sql.Tx) error {
		var stock int
		err := tx.QueryRowContext(ctx, `SELECT stock FROM products WHERE product_id = $1`, productID).Scan(&stock)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.NotFound("PRODUCT_NOT_FOUND", "Product not found")
			}
			return fmt.Errorf("querying product %d: %w", productID, err)
		}

		return mergeLine(ctx, tx, userID, productID, quantity, color, size, stock, false)
	})
}

// mergeLine is the single upsert rule shared by AddLine and Sync. With clamp
// set, quantities are capped at stock instead of failing, which is what cart
// sync wants.
func mergeLine(ctx context.Context, tx *sql.Tx, userID, productID int64, quantity int, color, size *string, stock int, clamp bool) error {
	var cartID int64
	var existing int
	err := tx.QueryRowContext(ctx, `
		SELECT cart_id, quantity
		FROM cart
		WHERE user_id = $1 AND product_id = $2
		  AND color IS NOT DISTINCT FROM $3
		  AND size IS NOT DISTINCT FROM $4
	`, userID, productID, color, size).Scan(&cartID, &existing)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		newQuantity, mErr := mergedQuantity(0, quantity, stock, clamp)
		if mErr != nil {
			return mErr
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO cart (user_id, product_id, quantity, color, size)
			VALUES ($1, $2, $3, $4, $5)
		`, userID, productID, newQuantity, color, size)
		if err != nil {
			return fmt.Errorf("inserting cart line: %w", err)
		}
		return nil

	case err != nil:
		return fmt.Errorf("querying cart line: %w", err)

	default:
		newQuantity, mErr := mergedQuantity(existing, quantity, stock, clamp)
		if mErr != nil {
			return mErr
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE cart SET quantity = $1, updated_at = now() WHERE cart_id = $2
		`, newQuantity, cartID)
		if err != nil {
			return fmt.Errorf("updating cart line: %w", err)
		}
		return nil
	}
}

// mergedQuantity applies the merge rule for one variant line: the requested
// quantity stacks onto whatever the line already holds. A sum over stock
// fails, or clamps to stock when clamp is set (cart sync).
func mergedQuantity(existing, add, stock int, clamp bool) (int, error) {
	newQuantity := existing + add
	if newQuantity > stock {
		if !clamp {
			if existing > 0 {
				return 0, apperr.Conflict("INSUFFICIENT_STOCK",
					fmt.Sprintf("Merged quantity exceeds stock (available %d)", stock))
			}
			return 0, apperr.Conflict("INSUFFICIENT_STOCK",
				fmt.Sprintf("Requested quantity exceeds stock (available %d)", stock))
		}
		newQuantity = stock
	}
	if newQuantity <= 0 {
		return 0, apperr.Conflict("INSUFFICIENT_STOCK", "Product is out of stock")
	}
	return newQuantity, nil
}

// UpdateLine sets a line's quantity. Zero or negative removes the line.
func (c *Conf) UpdateLine(ctx context.Context, userID, cartID int64, quantity int) error {
	if quantity > MaxQuantity {
		return apperr.Validation("INVALID_QUANTITY", fmt.Sprintf("Quantity must be at most %d", MaxQuantity))
	}

	return c.withTx(ctx, func(tx *sql.Tx) error {
		var stock int
		err := tx.QueryRowContext(ctx, `
			SELECT p.stock
			FROM cart c
			JOIN products p ON c.product_id = p.product_id
			WHERE c.cart_id = $1 AND c.user_id = $2
		`, cartID, userID).Scan(&stock)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.NotFound("CART_ITEM_NOT_FOUND", "Cart item not found")
			}
			return fmt.Errorf("querying cart line %d: %w", cartID, err)
		}

		if quantity <= 0 {
			if _, err := tx.ExecContext(ctx, `DELETE FROM cart WHERE cart_id = $1`, cartID); err != nil {
				return fmt.Errorf("deleting cart line %d: %w", cartID, err)
			}
			return nil
		}

		if quantity > stock {
			return apperr.Conflict("INSUFFICIENT_STOCK",
				fmt.Sprintf("Requested quantity exceeds stock (available %d)", stock))
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE cart SET quantity = $1, updated_at = now() WHERE cart_id = $2
		`, quantity, cartID)
		if err != nil {
			return fmt.Errorf("updating cart line %d: %w", cartID, err)
		}
		return nil
	})
}

// RemoveLine deletes a line by its cart id.
func (c *Conf) RemoveLine(ctx context.Context, userID, cartID int64) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM cart WHERE cart_id = $1 AND user_id = $2`, cartID, userID)
	if err != nil {
		return fmt.Errorf("deleting cart line %d: %w", cartID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return apperr.NotFound("CART_ITEM_NOT_FOUND", "Cart item not found")
	}
	return nil
}

// RemoveLineByProduct deletes the line matching a product variant.
func (c *Conf) RemoveLineByProduct(ctx context.Context, userID, productID int64, color, size *string) error {
	res, err := c.db.ExecContext(ctx, `
		DELETE FROM cart
		WHERE user_id = $1 AND product_id = $2
		  AND color IS NOT DISTINCT FROM $3
		  AND size IS NOT DISTINCT FROM $4
	`, userID, productID, color, size)
	if err != nil {
		return fmt.Errorf("deleting cart line for product %d: %w", productID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return apperr.NotFound("CART_ITEM_NOT_FOUND", "Cart item not found")
	}
	return nil
}

// Clear removes every line for the user. Clearing an empty cart is fine.
func (c *Conf) Clear(ctx context.Context, userID int64) (int, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM cart WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("clearing cart: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

// Snapshot returns the cart joined with current product data plus the
// computed subtotal.
func (c *Conf) Snapshot(ctx context.Context, userID int64) (Snapshot, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT c.cart_id, c.product_id, p.name, p.price, p.image_url,
		       c.color, c.size, c.quantity, p.stock, p.discount_percent, p.brand
		FROM cart c
		JOIN products p ON c.product_id = p.product_id
		WHERE c.user_id = $1
		ORDER BY c.created_at DESC
	`, userID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("querying cart: %w", err)
	}
	defer rows.Close()

	snap := Snapshot{Items: []Line{}}
	for rows.Next() {
		var l Line
		err := rows.Scan(&l.CartID, &l.ProductID, &l.Name, &l.Price, &l.ImageURL,
			&l.Color, &l.Size, &l.Quantity, &l.Stock, &l.DiscountPercent, &l.Brand)
		if err != nil {
			return Snapshot{}, fmt.Errorf("scanning cart line: %w", err)
		}
		snap.Items = append(snap.Items, l)
		snap.Subtotal += products.FinalPrice(l.Price, l.DiscountPercent) * int64(l.Quantity)
		snap.TotalItems += l.Quantity
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("iterating cart lines: %w", err)
	}
	return snap, nil
}

// Count is the header badge number: the sum of line quantities.
func (c *Conf) Count(ctx context.Context, userID int64) (int, error) {
	var count sql.NullInt64
	err := c.db.QueryRowContext(ctx, `SELECT SUM(quantity) FROM cart WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting cart items: %w", err)
	}
	return int(count.Int64), nil
}

// Sync merges a client held cart into the server cart in one transaction.
// Unknown products are skipped and quantities clamp at available stock.
func (c *Conf) Sync(ctx context.Context, userID int64, items []SyncItem) (SyncResult, error) {
	var result SyncResult
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		for _, item := range items {
			if item.ProductID == 0 {
				result.Skipped++
				continue
			}
			quantity := item.Quantity
			if quantity <= 0 {
				quantity = 1
			}
			if quantity > MaxQuantity {
				quantity = MaxQuantity
			}

			var stock int
			err := tx.QueryRowContext(ctx, `SELECT stock FROM products WHERE product_id = $1`, item.ProductID).Scan(&stock)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					result.Skipped++
					continue
				}
				return fmt.Errorf("querying product %d: %w", item.ProductID, err)
			}
			if stock <= 0 {
				result.Skipped++
				continue
			}

			if err := mergeLine(ctx, tx, userID, item.ProductID, quantity, item.Color, item.Size, stock, true); err != nil {
				return err
			}
			result.Synced++
		}
		return nil
	})
	if err != nil {
		return SyncResult{}, err
	}
	return result, nil
}

func (c *Conf) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		// the database itself is unreachable, not a business failure
		return apperr.Transient(err, "Database unavailable, try again")
	}

	if err := fn(tx); err != nil {
		if er := tx.Rollback(); er != nil && !errors.Is(er, sql.ErrTxDone) {
			return fmt.Errorf("failed to rollback withTx: %w", err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return apperr.Transient(err, "Database unavailable, try again")
	}
	return nil
}
