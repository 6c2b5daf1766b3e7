package orders

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"storefront/internal/promotions"
	"storefront/pkg/apperr"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCheckoutStore records every mutation the choreography asks for, so
// tests can assert exactly what a rolled-back transaction would discard.
type fakeCheckoutStore struct {
	lines    []checkoutLine
	loadErr  error
	promo    promotions.Promotion
	promoErr error

	failDecrementFor map[int64]bool
	redeemSpent      bool

	orderInserted bool
	orderTotal    int64
	orderDiscount int64
	orderPromo    *string
	orderReq      CheckoutRequest

	details     map[int64]int // productID -> quantity
	detailPrice map[int64]int64
	decrements  map[int64]int
	redeemCalls int
	cartCleared bool
}

func (f *fakeCheckoutStore) LoadCart(_ context.Context, _ int64) ([]checkoutLine, error) {
	return f.lines, f.loadErr
}

func (f *fakeCheckoutStore) LockPromotion(_ context.Context, _ string) (promotions.Promotion, error) {
	return f.promo, f.promoErr
}

func (f *fakeCheckoutStore) InsertOrder(_ context.Context, _, total int64, req CheckoutRequest, promoCode *string, discount int64) (int64, error) {
	f.orderInserted = true
	f.orderTotal = total
	f.orderDiscount = discount
	f.orderPromo = promoCode
	f.orderReq = req
	return 101, nil
}

func (f *fakeCheckoutStore) InsertDetail(_ context.Context, _ int64, line checkoutLine, unitPrice int64) error {
	if f.details == nil {
		f.details = map[int64]int{}
		f.detailPrice = map[int64]int64{}
	}
	f.details[line.productID] = line.quantity
	f.detailPrice[line.productID] = unitPrice
	return nil
}

func (f *fakeCheckoutStore) DecrementStock(_ context.Context, productID int64, quantity int) (bool, error) {
	if f.failDecrementFor[productID] {
		return false, nil
	}
	if f.decrements == nil {
		f.decrements = map[int64]int{}
	}
	f.decrements[productID] += quantity
	return true, nil
}

func (f *fakeCheckoutStore) RedeemPromotion(_ context.Context, _ int64) (bool, error) {
	f.redeemCalls++
	return !f.redeemSpent, nil
}

func (f *fakeCheckoutStore) ClearCart(_ context.Context, _ int64) error {
	f.cartCleared = true
	return nil
}

func validRequest() CheckoutRequest {
	return CheckoutRequest{ShippingAddress: "12 Main St", Phone: "0912345678"}
}

func TestRunCheckoutSuccess(t *testing.T) {
	store := &fakeCheckoutStore{
		lines: []checkoutLine{
			{cartID: 1, productID: 7, name: "Sneaker", price: 10000, stock: 5, quantity: 2},
			{cartID: 2, productID: 8, name: "Hoodie", price: 5000, discountPercent: 20, stock: 10, quantity: 3},
		},
	}

	result, err := runCheckout(context.Background(), store, 1, validRequest(), time.Now())
	require.NoError(t, err)

	// 2*10000 + 3*4000
	assert.Equal(t, int64(101), result.OrderID)
	assert.Equal(t, int64(32000), result.TotalAmount)
	assert.Zero(t, result.PromotionDiscount)
	assert.Equal(t, 2, result.ItemsCount)

	// stock moves by exactly the purchased quantity, once per product
	assert.Equal(t, map[int64]int{7: 2, 8: 3}, store.decrements)
	// line snapshots freeze the discounted unit price
	assert.Equal(t, int64(10000), store.detailPrice[7])
	assert.Equal(t, int64(4000), store.detailPrice[8])
	assert.True(t, store.cartCleared)
	assert.Zero(t, store.redeemCalls)
}

func TestRunCheckoutAppliesPromotion(t *testing.T) {
	store := &fakeCheckoutStore{
		lines: []checkoutLine{
			{cartID: 1, productID: 7, name: "Sneaker", price: 10000, stock: 5, quantity: 2},
		},
		promo: promotions.Promotion{
			ID: 3, Code: "SALE10", DiscountType: promotions.DiscountPercent,
			DiscountValue: 10, IsActive: true,
		},
	}
	req := validRequest()
	req.PromotionCode = "SALE10"

	result, err := runCheckout(context.Background(), store, 1, req, time.Now())
	require.NoError(t, err)

	assert.Equal(t, int64(18000), result.TotalAmount)
	assert.Equal(t, int64(2000), result.PromotionDiscount)
	assert.Equal(t, 1, store.redeemCalls)
	require.NotNil(t, store.orderPromo)
	assert.Equal(t, "SALE10", *store.orderPromo)
	assert.Equal(t, int64(18000), store.orderTotal)
	assert.True(t, store.cartCleared)
}

func TestRunCheckoutUnavailableItemsMutatesNothing(t *testing.T) {
	store := &fakeCheckoutStore{
		lines: []checkoutLine{
			{cartID: 1, productID: 7, name: "Sneaker", price: 10000, stock: 1, quantity: 2},
			{cartID: 2, productID: 8, name: "Hoodie", price: 5000, stock: 10, quantity: 1},
		},
	}

	_, err := runCheckout(context.Background(), store, 1, validRequest(), time.Now())
	require.Error(t, err)
	e := apperr.As(err)
	require.NotNil(t, e)
	assert.Equal(t, apperr.KindConflict, e.Kind)
	assert.Equal(t, "UNAVAILABLE_ITEMS", e.Code)
	require.Len(t, e.Details, 1)
	assert.Contains(t, e.Details[0], "Sneaker")

	// one bad line fails the whole checkout before any write
	assert.False(t, store.orderInserted)
	assert.Empty(t, store.details)
	assert.Empty(t, store.decrements)
	assert.Zero(t, store.redeemCalls)
	assert.False(t, store.cartCleared)
}

func TestRunCheckoutEmptyCart(t *testing.T) {
	store := &fakeCheckoutStore{}

	_, err := runCheckout(context.Background(), store, 1, validRequest(), time.Now())
	require.Error(t, err)
	assert.Equal(t, "EMPTY_CART", apperr.As(err).Code)
	assert.False(t, store.orderInserted)
}

func TestRunCheckoutStockRaceAborts(t *testing.T) {
	store := &fakeCheckoutStore{
		lines: []checkoutLine{
			{cartID: 1, productID: 7, name: "Sneaker", price: 10000, stock: 1, quantity: 1},
		},
		failDecrementFor: map[int64]bool{7: true},
	}

	_, err := runCheckout(context.Background(), store, 1, validRequest(), time.Now())
	require.Error(t, err)
	assert.Equal(t, "STOCK_RACE", apperr.As(err).Code)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.False(t, store.cartCleared)
	assert.Zero(t, store.redeemCalls)
}

// Two buyers race for the last unit: the snapshot both loaded shows stock 1,
// but the conditional decrement only matches once. The loser's checkout fails
// whole instead of overselling.
func TestRunCheckoutLastUnitRace(t *testing.T) {
	line := checkoutLine{cartID: 1, productID: 7, name: "Sneaker", price: 10000, stock: 1, quantity: 1}

	winner := &fakeCheckoutStore{lines: []checkoutLine{line}}
	_, err := runCheckout(context.Background(), winner, 1, validRequest(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, winner.decrements[7])

	loser := &fakeCheckoutStore{
		lines:            []checkoutLine{line},
		failDecrementFor: map[int64]bool{7: true},
	}
	_, err = runCheckout(context.Background(), loser, 2, validRequest(), time.Now())
	require.Error(t, err)
	assert.Equal(t, "STOCK_RACE", apperr.As(err).Code)
	assert.Empty(t, loser.decrements)
	assert.False(t, loser.cartCleared)
}

func TestRunCheckoutExhaustedPromotionAborts(t *testing.T) {
	store := &fakeCheckoutStore{
		lines: []checkoutLine{
			{cartID: 1, productID: 7, name: "Sneaker", price: 10000, stock: 5, quantity: 1},
		},
		promo: promotions.Promotion{
			ID: 3, Code: "SALE10", DiscountType: promotions.DiscountPercent,
			DiscountValue: 10, IsActive: true,
		},
		redeemSpent: true,
	}
	req := validRequest()
	req.PromotionCode = "SALE10"

	_, err := runCheckout(context.Background(), store, 1, req, time.Now())
	require.Error(t, err)
	assert.Equal(t, "PROMOTION_EXHAUSTED", apperr.As(err).Code)
	// the redemption check is the last gate before the cart clears; its
	// failure leaves the transaction to roll the earlier writes back
	assert.Equal(t, 1, store.redeemCalls)
	assert.False(t, store.cartCleared)
}

func TestRunCheckoutRejectedPromotionAborts(t *testing.T) {
	end := time.Now().Add(-time.Hour)
	store := &fakeCheckoutStore{
		lines: []checkoutLine{
			{cartID: 1, productID: 7, name: "Sneaker", price: 10000, stock: 5, quantity: 1},
		},
		promo: promotions.Promotion{
			ID: 3, Code: "EXPIRED5", DiscountType: promotions.DiscountPercent,
			DiscountValue: 5, IsActive: true, EndDate: &end,
		},
	}
	req := validRequest()
	req.PromotionCode = "EXPIRED5"

	_, err := runCheckout(context.Background(), store, 1, req, time.Now())
	require.Error(t, err)
	assert.Equal(t, "PROMOTION_EXPIRED", apperr.As(err).Code)
	assert.False(t, store.orderInserted)
	assert.Empty(t, store.decrements)
}

func TestNormalizedPaymentMethod(t *testing.T) {
	req, err := validRequest().normalized()
	require.NoError(t, err)
	assert.Equal(t, PaymentCOD, req.PaymentMethod)

	withCard := validRequest()
	withCard.PaymentMethod = "CARD"
	req, err = withCard.normalized()
	require.NoError(t, err)
	assert.Equal(t, PaymentCard, req.PaymentMethod)
}

func TestRunCheckoutStoresNormalizedPaymentMethod(t *testing.T) {
	store := &fakeCheckoutStore{
		lines: []checkoutLine{
			{cartID: 1, productID: 7, name: "Sneaker", price: 10000, stock: 5, quantity: 1},
		},
	}
	req, err := validRequest().normalized()
	require.NoError(t, err)

	_, err = runCheckout(context.Background(), store, 1, req, time.Now())
	require.NoError(t, err)
	assert.Equal(t, PaymentCOD, store.orderReq.PaymentMethod)
}

func TestPriceLines(t *testing.T) {
	lines := []checkoutLine{
		{name: "Sneaker", price: 10000, discountPercent: 0, stock: 10, quantity: 2},
		{name: "Hoodie", price: 5000, discountPercent: 20, stock: 5, quantity: 3},
	}

	total, unavailable := priceLines(lines)
	require.Empty(t, unavailable)
	// 2*10000 + 3*4000
	assert.Equal(t, int64(32000), total)
}

func TestPriceLinesCollectsAllUnavailable(t *testing.T) {
	lines := []checkoutLine{
		{name: "Sneaker", price: 10000, stock: 1, quantity: 2},
		{name: "Hoodie", price: 5000, stock: 10, quantity: 1},
		{name: "Cap", price: 2000, stock: 0, quantity: 1},
	}

	_, unavailable := priceLines(lines)
	require.Len(t, unavailable, 2)
	assert.Contains(t, unavailable[0], "Sneaker")
	assert.Contains(t, unavailable[0], "available 1")
	assert.Contains(t, unavailable[1], "Cap")
	assert.Contains(t, unavailable[1], "available 0")
}

func TestPriceLinesEmpty(t *testing.T) {
	total, unavailable := priceLines(nil)
	assert.Zero(t, total)
	assert.Empty(t, unavailable)
}

func TestCheckoutRequiresAddressAndPhone(t *testing.T) {
	c := &Conf{}

	tests := []struct {
		name string
		req  CheckoutRequest
	}{
		{"missing address", CheckoutRequest{Phone: "0912345678"}},
		{"missing phone", CheckoutRequest{ShippingAddress: "12 Main St"}},
		{"missing both", CheckoutRequest{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Checkout(context.Background(), 1, tt.req)
			require.Error(t, err)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
			assert.Equal(t, "MISSING_REQUIRED_FIELDS", apperr.As(err).Code)
		})
	}
}

func TestCheckoutUnreachableDatabaseIsTransient(t *testing.T) {
	// nothing listens on port 1, so BeginTx fails at connect time
	db, err := sql.Open("pgx", "postgres://u:p@127.0.0.1:1/storefront?connect_timeout=1")
	require.NoError(t, err)
	defer db.Close()

	c := &Conf{db: db}
	_, err = c.Checkout(context.Background(), 1, validRequest())
	require.Error(t, err)
	assert.Equal(t, apperr.KindTransient, apperr.KindOf(err))
}

func TestValidStatus(t *testing.T) {
	for _, s := range []string{StatusPending, StatusConfirmed, StatusShipped, StatusDelivered, StatusCancelled} {
		assert.True(t, ValidStatus(s), s)
	}
	assert.False(t, ValidStatus("paid"))
	assert.False(t, ValidStatus(""))
	assert.False(t, ValidStatus("Pending"))
}
