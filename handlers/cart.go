package handlers

import (
	"net/http"

	"storefront/internal/cart"
	"storefront/pkg/ctxmanage"

	"github.com/gin-gonic/gin"
)

func (h *Handler) GetCart(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	_, userID, ok := currentClaims(c, traceId)
	if !ok {
		return
	}

	snapshot, err := h.ct.Snapshot(c.Request.Context(), userID)
	if err != nil {
		respondError(c, traceId, err, "Failed to fetch cart")
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (h *Handler) AddToCart(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	_, userID, ok := currentClaims(c, traceId)
	if !ok {
		return
	}

	var req struct {
		ProductID int64   `json:"product_id" validate:"required,min=1"`
		Quantity  int     `json:"quantity" validate:"required,min=1"`
		Color     *string `json:"color"`
		Size      *string `json:"size"`
	}
	if !h.bindJSON(c, traceId, &req) {
		return
	}

	if err := h.ct.AddLine(c.Request.Context(), userID, req.ProductID, req.Quantity, req.Color, req.Size); err != nil {
		respondError(c, traceId, err, "Failed to add to cart")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Added to cart"})
}

func (h *Handler) UpdateCartItem(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	_, userID, ok := currentClaims(c, traceId)
	if !ok {
		return
	}
	cartID, ok := pathID(c, traceId, "id")
	if !ok {
		return
	}

	// quantity zero or below removes the line, so required,min tags do not fit
	var req struct {
		Quantity int `json:"quantity"`
	}
	if !h.bindJSON(c, traceId, &req) {
		return
	}

	if err := h.ct.UpdateLine(c.Request.Context(), userID, cartID, req.Quantity); err != nil {
		respondError(c, traceId, err, "Failed to update cart item")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart updated"})
}

func (h *Handler) RemoveCartItem(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	_, userID, ok := currentClaims(c, traceId)
	if !ok {
		return
	}
	cartID, ok := pathID(c, traceId, "id")
	if !ok {
		return
	}

	if err := h.ct.RemoveLine(c.Request.Context(), userID, cartID); err != nil {
		respondError(c, traceId, err, "Failed to remove cart item")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Removed from cart"})
}

func (h *Handler) RemoveCartItemByProduct(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	_, userID, ok := currentClaims(c, traceId)
	if !ok {
		return
	}

	var req struct {
		ProductID int64   `json:"product_id" validate:"required,min=1"`
		Color     *string `json:"color"`
		Size      *string `json:"size"`
	}
	if !h.bindJSON(c, traceId, &req) {
		return
	}

	if err := h.ct.RemoveLineByProduct(c.Request.Context(), userID, req.ProductID, req.Color, req.Size); err != nil {
		respondError(c, traceId, err, "Failed to remove cart item")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Removed from cart"})
}

func (h *Handler) ClearCart(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	_, userID, ok := currentClaims(c, traceId)
	if !ok {
		return
	}

	removed, err := h.ct.Clear(c.Request.Context(), userID)
	if err != nil {
		respondError(c, traceId, err, "Failed to clear cart")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared", "removed_items": removed})
}

func (h *Handler) CartCount(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	_, userID, ok := currentClaims(c, traceId)
	if !ok {
		return
	}

	count, err := h.ct.Count(c.Request.Context(), userID)
	if err != nil {
		respondError(c, traceId, err, "Failed to count cart")
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

func (h *Handler) SyncCart(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	_, userID, ok := currentClaims(c, traceId)
	if !ok {
		return
	}

	var req struct {
		Items []cart.SyncItem `json:"items" validate:"required,dive"`
	}
	if !h.bindJSON(c, traceId, &req) {
		return
	}

	result, err := h.ct.Sync(c.Request.Context(), userID, req.Items)
	if err != nil {
		respondError(c, traceId, err, "Failed to sync cart")
		return
	}
	c.JSON(http.StatusOK, result)
}
