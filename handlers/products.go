package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"storefront/internal/products"
	"storefront/pkg/ctxmanage"
	"storefront/pkg/logkey"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListProducts(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	page, limit := pageParams(c, 12)

	params := products.ListParams{
		Category: c.Query("category"),
		Search:   c.Query("search"),
		Brand:    c.Query("brand"),
		Sort:     c.Query("sort"),
		Page:     page,
		Limit:    limit,
	}
	if v := c.Query("min_price"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Invalid min_price", "code": "INVALID_PRICE"})
			return
		}
		params.MinPrice = &n
	}
	if v := c.Query("max_price"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Invalid max_price", "code": "INVALID_PRICE"})
			return
		}
		params.MaxPrice = &n
	}

	list, pagination, err := h.p.List(c.Request.Context(), params)
	if err != nil {
		respondError(c, traceId, err, "Failed to fetch products")
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": list, "pagination": pagination})
}

func (h *Handler) NewProducts(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	list, err := h.p.ListNew(c.Request.Context())
	if err != nil {
		respondError(c, traceId, err, "Failed to fetch new products")
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": list})
}

func (h *Handler) GetProduct(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	productID, ok := pathID(c, traceId, "id")
	if !ok {
		return
	}

	product, err := h.p.GetByID(c.Request.Context(), productID)
	if err != nil {
		respondError(c, traceId, err, "Failed to fetch product")
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) CreateProduct(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	var np products.NewProduct
	if !h.bindJSON(c, traceId, &np) {
		return
	}

	product, err := h.p.Insert(c.Request.Context(), np)
	if err != nil {
		respondError(c, traceId, err, "Product creation failed")
		return
	}

	slog.Info("product created", slog.String(logkey.TraceID, traceId), slog.Int64(logkey.ProductID, product.ID))
	c.JSON(http.StatusCreated, product)
}

func (h *Handler) UpdateProduct(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	productID, ok := pathID(c, traceId, "id")
	if !ok {
		return
	}

	var np products.NewProduct
	if !h.bindJSON(c, traceId, &np) {
		return
	}

	product, err := h.p.Update(c.Request.Context(), productID, np)
	if err != nil {
		respondError(c, traceId, err, "Product update failed")
		return
	}

	slog.Info("product updated", slog.String(logkey.TraceID, traceId), slog.Int64(logkey.ProductID, productID))
	c.JSON(http.StatusOK, gin.H{"message": "Product updated successfully", "product": product})
}

func (h *Handler) DeleteProduct(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	productID, ok := pathID(c, traceId, "id")
	if !ok {
		return
	}

	if err := h.p.Delete(c.Request.Context(), productID); err != nil {
		respondError(c, traceId, err, "Product deletion failed")
		return
	}

	slog.Info("product deleted", slog.String(logkey.TraceID, traceId), slog.Int64(logkey.ProductID, productID))
	c.JSON(http.StatusOK, gin.H{"message": "Product successfully deleted"})
}

func (h *Handler) ListCategories(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	list, err := h.p.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, traceId, err, "Failed to fetch categories")
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": list})
}

func (h *Handler) CreateCategory(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	var req struct {
		Name string `json:"name" validate:"required,min=2,max=100"`
	}
	if !h.bindJSON(c, traceId, &req) {
		return
	}

	category, err := h.p.InsertCategory(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, traceId, err, "Category creation failed")
		return
	}
	c.JSON(http.StatusCreated, category)
}
