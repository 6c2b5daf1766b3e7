package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"storefront/internal/auth"
	"storefront/internal/orders"
	"storefront/internal/stores/kafka"
	"storefront/pkg/ctxmanage"
	"storefront/pkg/logkey"

	"github.com/gin-gonic/gin"
)

func (h *Handler) MyOrders(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	_, userID, ok := currentClaims(c, traceId)
	if !ok {
		return
	}
	page, limit := pageParams(c, 10)

	list, total, err := h.o.ListForUser(c.Request.Context(), userID, page, limit)
	if err != nil {
		respondError(c, traceId, err, "Failed to fetch orders")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"orders":     list,
		"pagination": paginationOf(page, limit, total),
	})
}

func (h *Handler) GetOrder(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, userID, ok := currentClaims(c, traceId)
	if !ok {
		return
	}
	orderID, ok := pathID(c, traceId, "id")
	if !ok {
		return
	}

	order, err := h.o.GetByID(c.Request.Context(), orderID, userID, claims.Role == auth.RoleAdmin)
	if err != nil {
		respondError(c, traceId, err, "Failed to fetch order")
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) CancelOrder(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	_, userID, ok := currentClaims(c, traceId)
	if !ok {
		return
	}
	orderID, ok := pathID(c, traceId, "id")
	if !ok {
		return
	}

	if err := h.o.Cancel(c.Request.Context(), userID, orderID); err != nil {
		respondError(c, traceId, err, "Failed to cancel order")
		return
	}

	slog.Info("order cancelled", slog.String(logkey.TraceID, traceId),
		slog.Int64(logkey.OrderID, orderID), slog.Int64(logkey.UserID, userID))

	h.publishOrderEvent(traceId, kafka.TopicOrderCancelled, kafka.OrderEvent{
		OrderID:   orderID,
		UserID:    userID,
		Status:    orders.StatusCancelled,
		CreatedAt: time.Now().UTC(),
	})
	c.JSON(http.StatusOK, gin.H{"message": "Order cancelled successfully"})
}

func (h *Handler) AdminListOrders(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	page, limit := pageParams(c, 20)

	f := orders.ListFilters{
		Status: c.Query("status"),
		Page:   page,
		Limit:  limit,
	}
	if f.Status != "" && !orders.ValidStatus(f.Status) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Invalid status filter", "code": "INVALID_STATUS"})
		return
	}
	if v := c.Query("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Invalid user_id filter", "code": "INVALID_ID"})
			return
		}
		f.UserID = &id
	}
	if v := c.Query("from_date"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Invalid from_date, expected YYYY-MM-DD", "code": "INVALID_DATE"})
			return
		}
		f.FromDate = &t
	}
	if v := c.Query("to_date"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Invalid to_date, expected YYYY-MM-DD", "code": "INVALID_DATE"})
			return
		}
		f.ToDate = &t
	}

	list, total, err := h.o.ListAll(c.Request.Context(), f)
	if err != nil {
		respondError(c, traceId, err, "Failed to fetch orders")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"orders":     list,
		"pagination": paginationOf(page, limit, total),
	})
}

func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	orderID, ok := pathID(c, traceId, "id")
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status" validate:"required"`
	}
	if !h.bindJSON(c, traceId, &req) {
		return
	}

	if err := h.o.UpdateStatus(c.Request.Context(), orderID, req.Status); err != nil {
		respondError(c, traceId, err, "Failed to update order status")
		return
	}

	slog.Info("order status updated", slog.String(logkey.TraceID, traceId),
		slog.Int64(logkey.OrderID, orderID), slog.String("Status", req.Status))
	c.JSON(http.StatusOK, gin.H{"message": "Order status updated successfully"})
}

func (h *Handler) OrderStats(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	stats, err := h.o.GetStats(c.Request.Context())
	if err != nil {
		respondError(c, traceId, err, "Failed to fetch order stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}
