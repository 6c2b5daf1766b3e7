package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"storefront/internal/orders"
	"storefront/internal/stores/kafka"
	"storefront/pkg/ctxmanage"
	"storefront/pkg/logkey"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/checkout/session"
)

// Checkout converts the cart into an order in one transaction and, for card
// payments, hands back a Stripe checkout URL. COD orders are done once the
// transaction commits.
func (h *Handler) Checkout(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, userID, ok := currentClaims(c, traceId)
	if !ok {
		return
	}

	var req struct {
		ShippingAddress string `json:"shipping_address" validate:"required"`
		Phone           string `json:"phone" validate:"required"`
		Notes           string `json:"notes"`
		PromotionCode   string `json:"promotion_code"`
		PaymentMethod   string `json:"payment_method" validate:"omitempty,oneof=cod card"`
	}
	if !h.bindJSON(c, traceId, &req) {
		return
	}

	result, err := h.o.Checkout(c.Request.Context(), userID, orders.CheckoutRequest{
		ShippingAddress: req.ShippingAddress,
		Phone:           req.Phone,
		Notes:           req.Notes,
		PromotionCode:   req.PromotionCode,
		PaymentMethod:   req.PaymentMethod,
	})
	if err != nil {
		respondError(c, traceId, err, "Checkout failed")
		return
	}

	slog.Info("order placed", slog.String(logkey.TraceID, traceId),
		slog.Int64(logkey.OrderID, result.OrderID), slog.Int64(logkey.UserID, userID),
		slog.Int64("TotalAmount", result.TotalAmount))

	h.publishOrderEvent(traceId, kafka.TopicOrderPlaced, kafka.OrderEvent{
		OrderID:   result.OrderID,
		UserID:    userID,
		Total:     result.TotalAmount,
		Status:    orders.StatusPending,
		CreatedAt: time.Now().UTC(),
	})

	if req.PaymentMethod == orders.PaymentCard {
		paymentURL, err := h.stripeSession(c, traceId, userID, claims.Username, result)
		if err != nil {
			// the order exists and stays pending; the client can retry payment
			slog.Error("stripe session creation failed", slog.String(logkey.TraceID, traceId),
				slog.Int64(logkey.OrderID, result.OrderID), slog.String(logkey.ERROR, err.Error()))
			c.JSON(http.StatusCreated, gin.H{
				"message": "Order placed, payment initialization failed",
				"order":   result,
			})
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"message":     "Order placed successfully",
			"order":       result,
			"payment_url": paymentURL,
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Order placed successfully", "order": result})
}

// stripeSession creates a checkout session for the committed order and stores
// the session id so the webhook can correlate the payment.
func (h *Handler) stripeSession(c *gin.Context, traceId string, userID int64, username string, result orders.CheckoutResult) (string, error) {
	sKey := os.Getenv("STRIPE_TEST_KEY")
	if sKey == "" {
		return "", fmt.Errorf("stripe secret key not configured")
	}
	stripe.Key = sKey

	successURL := os.Getenv("STRIPE_SUCCESS_URL")
	if successURL == "" {
		successURL = "http://localhost:3000/checkout/success"
	}
	cancelURL := os.Getenv("STRIPE_CANCEL_URL")
	if cancelURL == "" {
		cancelURL = "http://localhost:3000/checkout/cancel"
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(cancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(string(stripe.CurrencyUSD)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(fmt.Sprintf("Order #%d", result.OrderID)),
					},
					UnitAmount: stripe.Int64(result.TotalAmount),
				},
				Quantity: stripe.Int64(1),
			},
		},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{
				"order_id": strconv.FormatInt(result.OrderID, 10),
				"user_id":  strconv.FormatInt(userID, 10),
				"username": username,
			},
		},
	}

	s, err := session.New(params)
	if err != nil {
		return "", fmt.Errorf("creating checkout session: %w", err)
	}

	if err := h.o.SetStripeSession(c.Request.Context(), result.OrderID, s.ID); err != nil {
		return "", fmt.Errorf("storing session id: %w", err)
	}
	return s.URL, nil
}

// publishOrderEvent produces asynchronously; event delivery never blocks or
// fails a request.
func (h *Handler) publishOrderEvent(traceId, topic string, ev kafka.OrderEvent) {
	if h.k == nil {
		return
	}
	go func() {
		data, err := json.Marshal(ev)
		if err != nil {
			slog.Error("failed to marshal order event", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
			return
		}
		key := []byte(strconv.FormatInt(ev.OrderID, 10))
		if err := h.k.ProduceMessage(topic, key, data); err != nil {
			slog.Error("failed to produce order event", slog.String(logkey.TraceID, traceId),
				slog.String("Topic", topic), slog.String(logkey.ERROR, err.Error()))
			return
		}
		slog.Info("order event produced", slog.String(logkey.TraceID, traceId),
			slog.String("Topic", topic), slog.Int64(logkey.OrderID, ev.OrderID))
	}()
}
