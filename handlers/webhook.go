package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"storefront/internal/orders"
	"storefront/internal/stores/kafka"
	"storefront/pkg/logkey"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v81"
)

// Webhook receives Stripe events. Only payment_intent.succeeded matters: it
// confirms the pending order named in the intent metadata. Confirmation is
// idempotent, so Stripe retries are harmless.
func (h *Handler) Webhook(c *gin.Context) {
	traceId := uuid.NewString()
	const maxBodyBytes = int64(65536)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)

	var event stripe.Event
	if err := c.ShouldBindJSON(&event); err != nil {
		slog.Error("failed to bind webhook event", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Invalid event payload", "code": "INVALID_JSON"})
		return
	}

	switch event.Type {
	case "payment_intent.succeeded":
		var paymentIntent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &paymentIntent); err != nil {
			slog.Error("failed to unmarshal payment intent", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Invalid event payload", "code": "INVALID_JSON"})
			return
		}

		orderID, err := strconv.ParseInt(paymentIntent.Metadata["order_id"], 10, 64)
		if err != nil {
			slog.Error("payment intent missing order_id metadata", slog.String(logkey.TraceID, traceId),
				slog.String("PaymentIntentID", paymentIntent.ID))
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Missing order metadata", "code": "MISSING_METADATA"})
			return
		}
		userID, _ := strconv.ParseInt(paymentIntent.Metadata["user_id"], 10, 64)

		if err := h.o.Confirm(c.Request.Context(), orderID); err != nil {
			respondError(c, traceId, err, "Failed to confirm order")
			return
		}

		slog.Info("order payment confirmed", slog.String(logkey.TraceID, traceId),
			slog.Int64(logkey.OrderID, orderID), slog.String("PaymentIntentID", paymentIntent.ID))

		h.publishOrderEvent(traceId, kafka.TopicOrderPaid, kafka.OrderEvent{
			OrderID:   orderID,
			UserID:    userID,
			Total:     paymentIntent.Amount,
			Status:    orders.StatusConfirmed,
			CreatedAt: time.Now().UTC(),
		})
		c.Status(http.StatusOK)

	default:
		slog.Info("unhandled webhook event type", slog.String(logkey.TraceID, traceId), slog.String("EventType", string(event.Type)))
		c.JSON(http.StatusOK, gin.H{"message": "Event type not handled", "event": event.Type})
	}
}
