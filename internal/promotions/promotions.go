// Package promotions validates, lists and administers discount codes.
// Redemption (the used_count increment) happens inside the checkout
// transaction in the orders package.
package promotions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

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

const promotionColumns = `
	promotion_id, code, discount_type, discount_value, min_order_amount,
	usage_limit, used_count, start_date, end_date, is_active, created_at, updated_at
`

func scanPromotion(row interface{ Scan(...any) error }) (Promotion, error) {
	var p Promotion
	err := row.Scan(&p.ID, &p.Code, &p.DiscountType, &p.DiscountValue, &p.MinOrderAmount,
		&p.UsageLimit, &p.UsedCount, &p.StartDate, &p.EndDate, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// GetByCode loads a promotion regardless of its state so the caller can
// report the precise rejection reason.
func (c *Conf) GetByCode(ctx context.Context, code string) (Promotion, error) {
	query := `SELECT ` + promotionColumns + ` FROM promotions WHERE code = $1`
	p, err := scanPromotion(c.db.QueryRowContext(ctx, query, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Promotion{}, apperr.NotFound("INVALID_PROMOTION", "Promotion code is not valid")
		}
		return Promotion{}, fmt.Errorf("querying promotion %q: %w", code, err)
	}
	return p, nil
}

// Validate checks a code against an order amount without redeeming it.
func (c *Conf) Validate(ctx context.Context, code string, amount int64) (Promotion, int64, error) {
	p, err := c.GetByCode(ctx, code)
	if err != nil {
		return Promotion{}, 0, err
	}
	discount, err := p.Evaluate(amount, time.Now().UTC())
	if err != nil {
		return Promotion{}, 0, err
	}
	return p, discount, nil
}

// ListActive returns the codes a storefront may advertise: active, inside
// their window, with uses left.
func (c *Conf) ListActive(ctx context.Context) ([]Promotion, error) {
	query := `
		SELECT ` + promotionColumns + `
		FROM promotions
		WHERE is_active
		  AND (start_date IS NULL OR start_date <= now())
		  AND (end_date IS NULL OR end_date >= now())
		  AND (usage_limit IS NULL OR used_count < usage_limit)
		ORDER BY created_at DESC
	`
	return c.queryList(ctx, query)
}

// Create inserts a new code, rejecting duplicates.
func (c *Conf) Create(ctx context.Context, np NewPromotion) (Promotion, error) {
	var exists bool
	err := c.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM promotions WHERE code = $1)`, np.Code).Scan(&exists)
	if err != nil {
		return Promotion{}, fmt.Errorf("checking promotion code: %w", err)
	}
	if exists {
		return Promotion{}, apperr.Conflict("PROMOTION_EXISTS", "Promotion code already exists")
	}

	active := true
	if np.IsActive != nil {
		active = *np.IsActive
	}

	query := `
		INSERT INTO promotions (code, discount_type, discount_value, min_order_amount,
		                        usage_limit, start_date, end_date, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + promotionColumns
	p, err := scanPromotion(c.db.QueryRowContext(ctx, query, np.Code, np.DiscountType, np.DiscountValue,
		np.MinOrderAmount, np.UsageLimit, np.StartDate, np.EndDate, active))
	if err != nil {
		return Promotion{}, fmt.Errorf("inserting promotion: %w", err)
	}
	return p, nil
}

// Update replaces a promotion's definition. used_count is never touched here.
func (c *Conf) Update(ctx context.Context, promotionID int64, np NewPromotion) error {
	active := true
	if np.IsActive != nil {
		active = *np.IsActive
	}

	res, err := c.db.ExecContext(ctx, `
		UPDATE promotions
		SET code = $1, discount_type = $2, discount_value = $3, min_order_amount = $4,
		    usage_limit = $5, start_date = $6, end_date = $7, is_active = $8, updated_at = now()
		WHERE promotion_id = $9
	`, np.Code, np.DiscountType, np.DiscountValue, np.MinOrderAmount,
		np.UsageLimit, np.StartDate, np.EndDate, active, promotionID)
	if err != nil {
		return fmt.Errorf("updating promotion %d: %w", promotionID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return apperr.NotFound("PROMOTION_NOT_FOUND", "Promotion not found")
	}
	return nil
}

// Delete removes a promotion.
func (c *Conf) Delete(ctx context.Context, promotionID int64) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM promotions WHERE promotion_id = $1`, promotionID)
	if err != nil {
		return fmt.Errorf("deleting promotion %d: %w", promotionID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return apperr.NotFound("PROMOTION_NOT_FOUND", "Promotion not found")
	}
	return nil
}

// ListAll pages through every promotion for the admin screen.
func (c *Conf) ListAll(ctx context.Context, page, limit int) ([]Promotion, int, error) {
	if limit <= 0 {
		limit = 20
	}
	if page <= 0 {
		page = 1
	}

	var total int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM promotions`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting promotions: %w", err)
	}

	query := `
		SELECT ` + promotionColumns + `
		FROM promotions
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	list, err := c.queryList(ctx, query, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (c *Conf) queryList(ctx context.Context, query string, args ...any) ([]Promotion, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying promotions: %w", err)
	}
	defer rows.Close()

	var list []Promotion
	for rows.Next() {
		p, err := scanPromotion(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning promotion: %w", err)
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating promotions: %w", err)
	}
	return list, nil
}
