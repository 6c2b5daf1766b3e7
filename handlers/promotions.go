package handlers

import (
	"net/http"

	"storefront/internal/promotions"
	"storefront/pkg/apperr"
	"storefront/pkg/ctxmanage"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListPromotions(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	list, err := h.pr.ListActive(c.Request.Context())
	if err != nil {
		respondError(c, traceId, err, "Failed to fetch promotions")
		return
	}
	c.JSON(http.StatusOK, gin.H{"promotions": list})
}

// ValidatePromotion dry-runs a code against an order amount without touching
// the usage counter. A code that does not apply is still a successful lookup:
// the verdict comes back 200 with valid set to false and the reason, matching
// what checkout would later reject it for. Only transport failures error.
func (h *Handler) ValidatePromotion(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	var req struct {
		Code        string `json:"code" validate:"required"`
		OrderAmount int64  `json:"order_amount" validate:"required,min=1"`
	}
	if !h.bindJSON(c, traceId, &req) {
		return
	}

	promo, discount, err := h.pr.Validate(c.Request.Context(), req.Code, req.OrderAmount)
	verdict, ok := promotionVerdict(promo, discount, req.OrderAmount, err)
	if !ok {
		respondError(c, traceId, err, "Promotion validation failed")
		return
	}
	c.JSON(http.StatusOK, verdict)
}

// promotionVerdict maps a validation outcome onto the response body. Domain
// rejections become a negative verdict; anything untyped is reported as not
// ok so the caller falls back to the error envelope.
func promotionVerdict(promo promotions.Promotion, discount, amount int64, err error) (gin.H, bool) {
	if err == nil {
		return gin.H{
			"valid":           true,
			"code":            promo.Code,
			"discount_type":   promo.DiscountType,
			"discount_value":  promo.DiscountValue,
			"discount_amount": discount,
			"final_amount":    amount - discount,
		}, true
	}
	if e := apperr.As(err); e != nil && e.Kind != apperr.KindTransient {
		return gin.H{
			"valid":   false,
			"code":    e.Code,
			"message": e.Message,
		}, true
	}
	return nil, false
}

func (h *Handler) CreatePromotion(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	var np promotions.NewPromotion
	if !h.bindJSON(c, traceId, &np) {
		return
	}

	promo, err := h.pr.Create(c.Request.Context(), np)
	if err != nil {
		respondError(c, traceId, err, "Promotion creation failed")
		return
	}
	c.JSON(http.StatusCreated, promo)
}

func (h *Handler) AdminListPromotions(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	page, limit := pageParams(c, 20)

	list, total, err := h.pr.ListAll(c.Request.Context(), page, limit)
	if err != nil {
		respondError(c, traceId, err, "Failed to fetch promotions")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"promotions": list,
		"pagination": paginationOf(page, limit, total),
	})
}

func (h *Handler) UpdatePromotion(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	promotionID, ok := pathID(c, traceId, "id")
	if !ok {
		return
	}

	var np promotions.NewPromotion
	if !h.bindJSON(c, traceId, &np) {
		return
	}

	if err := h.pr.Update(c.Request.Context(), promotionID, np); err != nil {
		respondError(c, traceId, err, "Promotion update failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Promotion updated successfully"})
}

func (h *Handler) DeletePromotion(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	promotionID, ok := pathID(c, traceId, "id")
	if !ok {
		return
	}

	if err := h.pr.Delete(c.Request.Context(), promotionID); err != nil {
		respondError(c, traceId, err, "Promotion deletion failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Promotion deleted successfully"})
}
