package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/products"
	"storefront/internal/promotions"
	"storefront/pkg/apperr"
)

// checkoutLine is a cart line joined with the product row it was priced
// against, loaded under lock at the start of the checkout transaction.
type checkoutLine struct {
	cartID          int64
	productID       int64
	name            string
	price           int64
	stock           int
	discountPercent int
	quantity        int
	color           *string
	size            *string
}

// checkoutStore is the set of storage operations one checkout transaction
// performs, in order. The production implementation runs them on a single
// *sql.Tx so an error from any step rolls back all of them.
type checkoutStore interface {
	LoadCart(ctx context.Context, userID int64) ([]checkoutLine, error)
	LockPromotion(ctx context.Context, code string) (promotions.Promotion, error)
	InsertOrder(ctx context.Context, userID, total int64, req CheckoutRequest, promoCode *string, discount int64) (int64, error)
	InsertDetail(ctx context.Context, orderID int64, line checkoutLine, unitPrice int64) error
	// DecrementStock reports false when stock changed underneath the lock
	// and the conditional decrement matched no row.
	DecrementStock(ctx context.Context, productID int64, quantity int) (bool, error)
	// RedeemPromotion reports false when the usage limit is already spent.
	RedeemPromotion(ctx context.Context, promotionID int64) (bool, error)
	ClearCart(ctx context.Context, userID int64) error
}

// Checkout converts the user's cart into an order inside one transaction:
// re-validate stock against fresh product rows, apply an optional promotion,
// insert the order and its line snapshots, decrement stock, redeem the
// promotion and empty the cart. Any failure rolls back every prior step.
//
// Product rows are locked FOR UPDATE for the duration and the decrement
// re-checks stock conditionally, so concurrent checkouts for the same
// product serialize and can never drive stock negative.
func (c *Conf) Checkout(ctx context.Context, userID int64, req CheckoutRequest) (CheckoutResult, error) {
	req, err := req.normalized()
	if err != nil {
		return CheckoutResult{}, err
	}

	var result CheckoutResult
	err = c.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		result, err = runCheckout(ctx, &txCheckoutStore{tx: tx}, userID, req, time.Now().UTC())
		return err
	})
	if err != nil {
		return CheckoutResult{}, err
	}
	return result, nil
}

// normalized validates the request and settles the payment method on one
// lowercase spelling, defaulting to cash on delivery.
func (r CheckoutRequest) normalized() (CheckoutRequest, error) {
	if r.ShippingAddress == "" || r.Phone == "" {
		return r, apperr.Validation("MISSING_REQUIRED_FIELDS",
			"Shipping address and phone are required")
	}
	if r.PaymentMethod == "" {
		r.PaymentMethod = PaymentCOD
	}
	r.PaymentMethod = strings.ToLower(r.PaymentMethod)
	return r, nil
}

// runCheckout is the checkout choreography over an already-open transaction.
func runCheckout(ctx context.Context, s checkoutStore, userID int64, req CheckoutRequest, now time.Time) (CheckoutResult, error) {
	lines, err := s.LoadCart(ctx, userID)
	if err != nil {
		return CheckoutResult{}, err
	}
	if len(lines) == 0 {
		return CheckoutResult{}, apperr.Validation("EMPTY_CART", "Cart is empty")
	}

	total, unavailable := priceLines(lines)
	if len(unavailable) > 0 {
		return CheckoutResult{}, apperr.Conflict("UNAVAILABLE_ITEMS",
			"Some items in the cart are unavailable", unavailable...)
	}

	var promo *promotions.Promotion
	var discount int64
	if req.PromotionCode != "" {
		p, err := s.LockPromotion(ctx, req.PromotionCode)
		if err != nil {
			return CheckoutResult{}, err
		}
		discount, err = p.Evaluate(total, now)
		if err != nil {
			return CheckoutResult{}, err
		}
		promo = &p
		total -= discount
		if total < 0 {
			total = 0
		}
	}

	var promoCode *string
	if promo != nil {
		promoCode = &promo.Code
	}
	orderID, err := s.InsertOrder(ctx, userID, total, req, promoCode, discount)
	if err != nil {
		return CheckoutResult{}, err
	}

	for _, line := range lines {
		unitPrice := products.FinalPrice(line.price, line.discountPercent)
		if err := s.InsertDetail(ctx, orderID, line, unitPrice); err != nil {
			return CheckoutResult{}, err
		}

		ok, err := s.DecrementStock(ctx, line.productID, line.quantity)
		if err != nil {
			return CheckoutResult{}, err
		}
		if !ok {
			return CheckoutResult{}, apperr.Conflict("STOCK_RACE",
				fmt.Sprintf("Stock for %q changed during checkout", line.name))
		}
	}

	if promo != nil {
		ok, err := s.RedeemPromotion(ctx, promo.ID)
		if err != nil {
			return CheckoutResult{}, err
		}
		if !ok {
			return CheckoutResult{}, apperr.Conflict("PROMOTION_EXHAUSTED", "Promotion code has no uses left")
		}
	}

	if err := s.ClearCart(ctx, userID); err != nil {
		return CheckoutResult{}, err
	}

	return CheckoutResult{
		OrderID:           orderID,
		TotalAmount:       total,
		PromotionDiscount: discount,
		ItemsCount:        len(lines),
	}, nil
}

// priceLines computes the order total from freshly loaded rows and collects
// every line whose quantity exceeds current stock. Checkout is all or
// nothing: one unavailable line fails the whole call, with the full list.
func priceLines(lines []checkoutLine) (total int64, unavailable []string) {
	for _, l := range lines {
		if l.stock < l.quantity {
			unavailable = append(unavailable,
				fmt.Sprintf("%s - insufficient stock (available %d)", l.name, l.stock))
			continue
		}
		total += products.FinalPrice(l.price, l.discountPercent) * int64(l.quantity)
	}
	return total, unavailable
}

// txCheckoutStore runs the checkout steps on one open transaction.
type txCheckoutStore struct {
	tx *sql.Tx
}

// LoadCart reads the cart joined with fresh product rows, locking the product
// rows for the rest of the transaction.
func (s *txCheckoutStore) LoadCart(ctx context.Context, userID int64) ([]checkoutLine, error) {
	rows, err := s.tx.QueryContext(ctx, `
		SELECT c.cart_id, c.product_id, p.name, p.price, p.stock, p.discount_percent,
		       c.quantity, c.color, c.size
		FROM cart c
		JOIN products p ON c.product_id = p.product_id
		WHERE c.user_id = $1
		ORDER BY c.cart_id
		FOR UPDATE OF p
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying cart for checkout: %w", err)
	}
	defer rows.Close()

	var lines []checkoutLine
	for rows.Next() {
		var l checkoutLine
		err := rows.Scan(&l.cartID, &l.productID, &l.name, &l.price, &l.stock,
			&l.discountPercent, &l.quantity, &l.color, &l.size)
		if err != nil {
			return nil, fmt.Errorf("scanning checkout line: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating checkout lines: %w", err)
	}
	return lines, nil
}

// LockPromotion loads a promotion row FOR UPDATE so concurrent redemptions
// against a usage limit serialize.
func (s *txCheckoutStore) LockPromotion(ctx context.Context, code string) (promotions.Promotion, error) {
	var p promotions.Promotion
	err := s.tx.QueryRowContext(ctx, `
		SELECT promotion_id, code, discount_type, discount_value, min_order_amount,
		       usage_limit, used_count, start_date, end_date, is_active, created_at, updated_at
		FROM promotions
		WHERE code = $1
		FOR UPDATE
	`, code).Scan(&p.ID, &p.Code, &p.DiscountType, &p.DiscountValue, &p.MinOrderAmount,
		&p.UsageLimit, &p.UsedCount, &p.StartDate, &p.EndDate, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return promotions.Promotion{}, apperr.NotFound("INVALID_PROMOTION", "Promotion code is not valid")
		}
		return promotions.Promotion{}, fmt.Errorf("locking promotion %q: %w", code, err)
	}
	return p, nil
}

func (s *txCheckoutStore) InsertOrder(ctx context.Context, userID, total int64, req CheckoutRequest, promoCode *string, discount int64) (int64, error) {
	var orderID int64
	err := s.tx.QueryRowContext(ctx, `
		INSERT INTO orders (user_id, total_amount, status, shipping_address, phone, notes,
		                    payment_method, promotion_code, promotion_discount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING order_id
	`, userID, total, StatusPending, req.ShippingAddress, req.Phone, req.Notes,
		req.PaymentMethod, promoCode, discount).Scan(&orderID)
	if err != nil {
		return 0, fmt.Errorf("inserting order: %w", err)
	}
	return orderID, nil
}

func (s *txCheckoutStore) InsertDetail(ctx context.Context, orderID int64, line checkoutLine, unitPrice int64) error {
	_, err := s.tx.ExecContext(ctx, `
		INSERT INTO order_details (order_id, product_id, quantity, price, color, size)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, orderID, line.productID, line.quantity, unitPrice, line.color, line.size)
	if err != nil {
		return fmt.Errorf("inserting order detail for product %d: %w", line.productID, err)
	}
	return nil
}

func (s *txCheckoutStore) DecrementStock(ctx context.Context, productID int64, quantity int) (bool, error) {
	// the WHERE clause keeps stock from ever going negative
	res, err := s.tx.ExecContext(ctx, `
		UPDATE products
		SET stock = stock - $1, updated_at = now()
		WHERE product_id = $2 AND stock >= $1
	`, quantity, productID)
	if err != nil {
		return false, fmt.Errorf("decrementing stock for product %d: %w", productID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *txCheckoutStore) RedeemPromotion(ctx context.Context, promotionID int64) (bool, error) {
	res, err := s.tx.ExecContext(ctx, `
		UPDATE promotions
		SET used_count = used_count + 1, updated_at = now()
		WHERE promotion_id = $1
		  AND (usage_limit IS NULL OR used_count < usage_limit)
	`, promotionID)
	if err != nil {
		return false, fmt.Errorf("redeeming promotion %d: %w", promotionID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *txCheckoutStore) ClearCart(ctx context.Context, userID int64) error {
	if _, err := s.tx.ExecContext(ctx, `DELETE FROM cart WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clearing cart: %w", err)
	}
	return nil
}
