// Package orders owns the order lifecycle: the checkout orchestrator that
// turns a cart into an order, cancellation, history and the admin paths.
package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

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

// cancelStore is the storage surface one cancellation transaction uses.
type cancelStore interface {
	OrderStatusForUpdate(ctx context.Context, orderID, userID int64) (string, error)
	OrderedQuantities(ctx context.Context, orderID int64) ([]orderedQuantity, error)
	RestoreStock(ctx context.Context, productID int64, quantity int) error
	MarkCancelled(ctx context.Context, orderID int64) error
}

// orderedQuantity is one order line's stock to give back on cancellation.
type orderedQuantity struct {
	productID int64
	quantity  int
}

// Cancel aborts a pending order owned by the user: each line's quantity is
// restored to its product's stock and the status flips to cancelled, in one
// transaction. Non-pending orders cannot be cancelled.
func (c *Conf) Cancel(ctx context.Context, userID, orderID int64) error {
	return c.withTx(ctx, func(tx *sql.Tx) error {
		return runCancel(ctx, &txCancelStore{tx: tx}, userID, orderID)
	})
}

// runCancel is the cancellation choreography over an already-open transaction.
func runCancel(ctx context.Context, s cancelStore, userID, orderID int64) error {
	status, err := s.OrderStatusForUpdate(ctx, orderID, userID)
	if err != nil {
		return err
	}

	if status != StatusPending {
		return apperr.Conflict("INVALID_ORDER_STATE",
			fmt.Sprintf("Only pending orders can be cancelled (current status %q)", status))
	}

	restores, err := s.OrderedQuantities(ctx, orderID)
	if err != nil {
		return err
	}
	for _, r := range restores {
		if err := s.RestoreStock(ctx, r.productID, r.quantity); err != nil {
			return err
		}
	}

	return s.MarkCancelled(ctx, orderID)
}

// txCancelStore runs the cancellation steps on one open transaction.
type txCancelStore struct {
	tx *sql.Tx
}

func (s *txCancelStore) OrderStatusForUpdate(ctx context.Context, orderID, userID int64) (string, error) {
	var status string
	err := s.tx.QueryRowContext(ctx, `
		SELECT status FROM orders
		WHERE order_id = $1 AND user_id = $2
		FOR UPDATE
	`, orderID, userID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", apperr.NotFound("ORDER_NOT_FOUND", "Order not found")
		}
		return "", fmt.Errorf("querying order %d: %w", orderID, err)
	}
	return status, nil
}

func (s *txCancelStore) OrderedQuantities(ctx context.Context, orderID int64) ([]orderedQuantity, error) {
	rows, err := s.tx.QueryContext(ctx, `
		SELECT product_id, quantity FROM order_details WHERE order_id = $1
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("querying order details: %w", err)
	}
	defer rows.Close()

	var restores []orderedQuantity
	for rows.Next() {
		var r orderedQuantity
		if err := rows.Scan(&r.productID, &r.quantity); err != nil {
			return nil, fmt.Errorf("scanning order detail: %w", err)
		}
		restores = append(restores, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating order details: %w", err)
	}
	return restores, nil
}

func (s *txCancelStore) RestoreStock(ctx context.Context, productID int64, quantity int) error {
	_, err := s.tx.ExecContext(ctx, `
		UPDATE products SET stock = stock + $1, updated_at = now() WHERE product_id = $2
	`, quantity, productID)
	if err != nil {
		return fmt.Errorf("restoring stock for product %d: %w", productID, err)
	}
	return nil
}

func (s *txCancelStore) MarkCancelled(ctx context.Context, orderID int64) error {
	_, err := s.tx.ExecContext(ctx, `
		UPDATE orders SET status = $1, updated_at = now() WHERE order_id = $2
	`, StatusCancelled, orderID)
	if err != nil {
		return fmt.Errorf("cancelling order %d: %w", orderID, err)
	}
	return nil
}

// ListForUser pages through the caller's own orders, newest first.
func (c *Conf) ListForUser(ctx context.Context, userID int64, page, limit int) ([]Summary, int, error) {
	if limit <= 0 {
		limit = 10
	}
	if page <= 0 {
		page = 1
	}

	var total int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting orders: %w", err)
	}

	rows, err := c.db.QueryContext(ctx, `
		SELECT o.order_id, o.total_amount, o.status, o.shipping_address, o.phone, o.notes,
		       COUNT(od.order_detail_id), o.created_at
		FROM orders o
		LEFT JOIN order_details od ON o.order_id = od.order_id
		WHERE o.user_id = $1
		GROUP BY o.order_id
		ORDER BY o.created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("querying orders: %w", err)
	}
	defer rows.Close()

	var list []Summary
	for rows.Next() {
		var s Summary
		err := rows.Scan(&s.ID, &s.TotalAmount, &s.Status, &s.ShippingAddress, &s.Phone,
			&s.Notes, &s.ItemCount, &s.CreatedAt)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning order summary: %w", err)
		}
		list = append(list, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating orders: %w", err)
	}
	return list, total, nil
}

// GetByID loads one order with its lines. Non-admin callers only see their
// own orders.
func (c *Conf) GetByID(ctx context.Context, orderID, userID int64, isAdmin bool) (Order, error) {
	query := `
		SELECT order_id, user_id, total_amount, status, shipping_address, phone, notes,
		       payment_method, promotion_code, promotion_discount, created_at, updated_at
		FROM orders
		WHERE order_id = $1
	`
	args := []any{orderID}
	if !isAdmin {
		query += ` AND user_id = $2`
		args = append(args, userID)
	}

	var o Order
	err := c.db.QueryRowContext(ctx, query, args...).Scan(&o.ID, &o.UserID, &o.TotalAmount,
		&o.Status, &o.ShippingAddress, &o.Phone, &o.Notes, &o.PaymentMethod,
		&o.PromotionCode, &o.PromotionDiscount, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, apperr.NotFound("ORDER_NOT_FOUND", "Order not found")
		}
		return Order{}, fmt.Errorf("querying order %d: %w", orderID, err)
	}

	rows, err := c.db.QueryContext(ctx, `
		SELECT od.order_detail_id, od.order_id, od.product_id, p.name, p.image_url, p.brand,
		       od.quantity, od.price, od.color, od.size
		FROM order_details od
		JOIN products p ON od.product_id = p.product_id
		WHERE od.order_id = $1
		ORDER BY od.order_detail_id
	`, orderID)
	if err != nil {
		return Order{}, fmt.Errorf("querying order details: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d Detail
		err := rows.Scan(&d.ID, &d.OrderID, &d.ProductID, &d.Name, &d.ImageURL, &d.Brand,
			&d.Quantity, &d.Price, &d.Color, &d.Size)
		if err != nil {
			return Order{}, fmt.Errorf("scanning order detail: %w", err)
		}
		o.Items = append(o.Items, d)
	}
	if err := rows.Err(); err != nil {
		return Order{}, fmt.Errorf("iterating order details: %w", err)
	}
	return o, nil
}

// ListAll pages through every order for the admin screen, with optional
// status, user and date filters.
func (c *Conf) ListAll(ctx context.Context, f ListFilters) ([]Summary, int, error) {
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Page <= 0 {
		f.Page = 1
	}

	conditions := []string{"1=1"}
	var args []any
	add := func(cond string, val any) {
		args = append(args, val)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if f.Status != "" {
		add("o.status = $%d", f.Status)
	}
	if f.UserID != nil {
		add("o.user_id = $%d", *f.UserID)
	}
	if f.FromDate != nil {
		add("o.created_at >= $%d", *f.FromDate)
	}
	if f.ToDate != nil {
		add("o.created_at <= $%d", *f.ToDate)
	}

	where := strings.Join(conditions, " AND ")

	countQuery := `SELECT COUNT(*) FROM orders o WHERE ` + where
	var total int
	if err := c.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting orders: %w", err)
	}

	listArgs := append(args, f.Limit, (f.Page-1)*f.Limit)
	listQuery := fmt.Sprintf(`
		SELECT o.order_id, o.total_amount, o.status, o.shipping_address, o.phone,
		       u.username, u.full_name, u.email,
		       COUNT(od.order_detail_id), o.created_at
		FROM orders o
		JOIN users u ON o.user_id = u.user_id
		LEFT JOIN order_details od ON o.order_id = od.order_id
		WHERE %s
		GROUP BY o.order_id, u.username, u.full_name, u.email
		ORDER BY o.created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)+1, len(args)+2)

	rows, err := c.db.QueryContext(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying orders: %w", err)
	}
	defer rows.Close()

	var list []Summary
	for rows.Next() {
		var s Summary
		err := rows.Scan(&s.ID, &s.TotalAmount, &s.Status, &s.ShippingAddress, &s.Phone,
			&s.Username, &s.FullName, &s.Email, &s.ItemCount, &s.CreatedAt)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning order summary: %w", err)
		}
		list = append(list, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating orders: %w", err)
	}
	return list, total, nil
}

// UpdateStatus sets an order's status (admin only; no transition graph beyond
// the status whitelist).
func (c *Conf) UpdateStatus(ctx context.Context, orderID int64, status string) error {
	if !ValidStatus(status) {
		return apperr.Validation("INVALID_STATUS", "Unknown order status")
	}

	res, err := c.db.ExecContext(ctx, `
		UPDATE orders SET status = $1, updated_at = now() WHERE order_id = $2
	`, status, orderID)
	if err != nil {
		return fmt.Errorf("updating order %d status: %w", orderID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return apperr.NotFound("ORDER_NOT_FOUND", "Order not found")
	}
	return nil
}

// Confirm moves a pending order to confirmed after a successful payment.
// Confirming a non-pending order is a no-op so webhook retries stay safe.
func (c *Conf) Confirm(ctx context.Context, orderID int64) error {
	_, err := c.db.ExecContext(ctx, `
		UPDATE orders SET status = $1, updated_at = now()
		WHERE order_id = $2 AND status = $3
	`, StatusConfirmed, orderID, StatusPending)
	if err != nil {
		return fmt.Errorf("confirming order %d: %w", orderID, err)
	}
	return nil
}

// SetStripeSession records the Stripe checkout session created for an order.
func (c *Conf) SetStripeSession(ctx context.Context, orderID int64, sessionID string) error {
	_, err := c.db.ExecContext(ctx, `
		UPDATE orders SET stripe_session_id = $1, updated_at = now() WHERE order_id = $2
	`, sessionID, orderID)
	if err != nil {
		return fmt.Errorf("recording stripe session for order %d: %w", orderID, err)
	}
	return nil
}

// GetStats aggregates the admin dashboard numbers.
func (c *Conf) GetStats(ctx context.Context) (Stats, error) {
	var stats Stats

	err := c.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'pending'),
		       COUNT(*) FILTER (WHERE status = 'confirmed'),
		       COUNT(*) FILTER (WHERE status = 'shipped'),
		       COUNT(*) FILTER (WHERE status = 'delivered'),
		       COUNT(*) FILTER (WHERE status = 'cancelled'),
		       COALESCE(SUM(total_amount) FILTER (WHERE status = 'delivered'), 0)
		FROM orders
	`).Scan(&stats.Overview.TotalOrders, &stats.Overview.PendingOrders,
		&stats.Overview.ConfirmedOrders, &stats.Overview.ShippedOrders,
		&stats.Overview.DeliveredOrders, &stats.Overview.CancelledOrders,
		&stats.Overview.TotalRevenue)
	if err != nil {
		return Stats{}, fmt.Errorf("querying order overview: %w", err)
	}

	rows, err := c.db.QueryContext(ctx, `
		SELECT EXTRACT(YEAR FROM created_at)::int, EXTRACT(MONTH FROM created_at)::int,
		       SUM(total_amount), COUNT(*)
		FROM orders
		WHERE status = 'delivered' AND created_at >= now() - INTERVAL '12 months'
		GROUP BY 1, 2
		ORDER BY 1 DESC, 2 DESC
	`)
	if err != nil {
		return Stats{}, fmt.Errorf("querying monthly revenue: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m MonthlyRevenue
		if err := rows.Scan(&m.Year, &m.Month, &m.Revenue, &m.OrderCount); err != nil {
			return Stats{}, fmt.Errorf("scanning monthly revenue: %w", err)
		}
		stats.MonthlyRevenue = append(stats.MonthlyRevenue, m)
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("iterating monthly revenue: %w", err)
	}

	topRows, err := c.db.QueryContext(ctx, `
		SELECT p.product_id, p.name, p.image_url,
		       SUM(od.quantity), SUM(od.quantity * od.price)
		FROM order_details od
		JOIN products p ON od.product_id = p.product_id
		JOIN orders o ON od.order_id = o.order_id
		WHERE o.status = 'delivered'
		GROUP BY p.product_id, p.name, p.image_url
		ORDER BY SUM(od.quantity) DESC
		LIMIT 10
	`)
	if err != nil {
		return Stats{}, fmt.Errorf("querying top products: %w", err)
	}
	defer topRows.Close()

	for topRows.Next() {
		var t TopProduct
		if err := topRows.Scan(&t.ProductID, &t.Name, &t.ImageURL, &t.TotalSold, &t.Revenue); err != nil {
			return Stats{}, fmt.Errorf("scanning top product: %w", err)
		}
		stats.TopProducts = append(stats.TopProducts, t)
	}
	if err := topRows.Err(); err != nil {
		return Stats{}, fmt.Errorf("iterating top products: %w", err)
	}

	return stats, nil
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
