// Package handlers exposes the storefront over HTTP. Handlers bind and
// validate input, delegate to the domain packages and translate their typed
// errors into status codes at this boundary.
package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"storefront/internal/auth"
	"storefront/internal/cart"
	"storefront/internal/orders"
	"storefront/internal/products"
	"storefront/internal/promotions"
	"storefront/internal/stores/kafka"
	"storefront/internal/users"
	"storefront/middleware"
	"storefront/pkg/apperr"
	"storefront/pkg/logkey"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	u        *users.Conf
	p        *products.Conf
	ct       *cart.Conf
	o        *orders.Conf
	pr       *promotions.Conf
	k        *kafka.Conf
	keys     *auth.Keys
	validate *validator.Validate
}

func NewHandler(u *users.Conf, p *products.Conf, ct *cart.Conf, o *orders.Conf,
	pr *promotions.Conf, k *kafka.Conf, keys *auth.Keys) (*Handler, error) {
	if u == nil || p == nil || ct == nil || o == nil || pr == nil || keys == nil {
		return nil, fmt.Errorf("handler dependencies are incomplete")
	}
	return &Handler{
		u: u, p: p, ct: ct, o: o, pr: pr, k: k,
		keys:     keys,
		validate: validator.New(),
	}, nil
}

func API(h *Handler) *gin.Engine {
	r := gin.New()
	mode := os.Getenv("GIN_MODE")
	if mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	m, err := middleware.NewMid(h.keys)
	if err != nil {
		panic(err)
	}

	r.Use(middleware.Logger(), gin.Recovery())
	r.GET("/ping", healthCheck)

	v1 := r.Group("/api")

	u := v1.Group("/users")
	{
		u.POST("/register", h.Register)
		u.POST("/login", h.Login)

		u.Use(m.Authentication())
		u.GET("/profile", h.Profile)
		u.PUT("/profile", h.UpdateProfile)
		u.PUT("/change-password", h.ChangePassword)
		u.GET("/all", m.Authorize(h.ListUsers, auth.RoleAdmin))
		u.PUT("/role", m.Authorize(h.UpdateUserRole, auth.RoleAdmin))
	}

	p := v1.Group("/products")
	{
		p.GET("", h.ListProducts)
		p.GET("/new", h.NewProducts)
		p.GET("/:id", h.GetProduct)

		p.Use(m.Authentication())
		p.POST("", m.Authorize(h.CreateProduct, auth.RoleAdmin))
		p.PUT("/:id", m.Authorize(h.UpdateProduct, auth.RoleAdmin))
		p.DELETE("/:id", m.Authorize(h.DeleteProduct, auth.RoleAdmin))
	}

	cg := v1.Group("/categories")
	{
		cg.GET("", h.ListCategories)
		cg.POST("", m.Authentication(), m.Authorize(h.CreateCategory, auth.RoleAdmin))
	}

	ct := v1.Group("/cart")
	{
		ct.Use(m.Authentication())
		ct.GET("", h.GetCart)
		ct.POST("", h.AddToCart)
		ct.GET("/count", h.CartCount)
		ct.POST("/sync", h.SyncCart)
		ct.POST("/clear", h.ClearCart)
		ct.POST("/checkout", h.Checkout)
		ct.PUT("/:id", h.UpdateCartItem)
		ct.DELETE("/:id", h.RemoveCartItem)
		ct.DELETE("", h.RemoveCartItemByProduct)
	}

	o := v1.Group("/orders")
	{
		o.POST("/webhook", h.Webhook)

		o.Use(m.Authentication())
		o.GET("/my-orders", h.MyOrders)
		o.GET("/admin/all", m.Authorize(h.AdminListOrders, auth.RoleAdmin))
		o.GET("/admin/stats", m.Authorize(h.OrderStats, auth.RoleAdmin))
		o.GET("/:id", h.GetOrder)
		o.PUT("/:id/cancel", h.CancelOrder)
		o.PUT("/:id/status", m.Authorize(h.UpdateOrderStatus, auth.RoleAdmin))
	}

	pr := v1.Group("/promotions")
	{
		pr.GET("", h.ListPromotions)

		pr.Use(m.Authentication())
		pr.POST("/validate", h.ValidatePromotion)
		pr.POST("", m.Authorize(h.CreatePromotion, auth.RoleAdmin))
		pr.GET("/admin/all", m.Authorize(h.AdminListPromotions, auth.RoleAdmin))
		pr.PUT("/:id", m.Authorize(h.UpdatePromotion, auth.RoleAdmin))
		pr.DELETE("/:id", m.Authorize(h.DeletePromotion, auth.RoleAdmin))
	}

	return r
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// currentClaims reads the claims the authentication middleware stored. A miss
// means the route was wired without the middleware, so treat it as a 401.
func currentClaims(c *gin.Context, traceId string) (auth.Claims, int64, bool) {
	claims, ok := c.Request.Context().Value(auth.ClaimsKey).(auth.Claims)
	if !ok {
		slog.Error("claims not found in context", slog.String(logkey.TraceID, traceId))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized", "code": "UNAUTHORIZED"})
		return auth.Claims{}, 0, false
	}
	userID, err := claims.UserID()
	if err != nil {
		slog.Error("invalid token subject", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized", "code": "UNAUTHORIZED"})
		return auth.Claims{}, 0, false
	}
	return claims, userID, true
}

// bindJSON decodes and validates the request body, replying 400 with the
// offending fields on failure.
func (h *Handler) bindJSON(c *gin.Context, traceId string, v any) bool {
	if c.Request.ContentLength > 5*1024 {
		slog.Error("request body limit breached", slog.String(logkey.TraceID, traceId),
			slog.Int64("Size Received", c.Request.ContentLength))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Request body too large", "code": "BODY_TOO_LARGE"})
		return false
	}

	if err := c.ShouldBindJSON(v); err != nil {
		slog.Error("json decode error", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Invalid JSON payload", "code": "INVALID_JSON"})
		return false
	}

	if err := h.validate.Struct(v); err != nil {
		var fields []string
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			for _, vErr := range vErrs {
				switch vErr.Tag() {
				case "required":
					fields = append(fields, vErr.Field()+" value missing")
				case "min":
					fields = append(fields, vErr.Field()+" value is less than "+vErr.Param())
				case "max":
					fields = append(fields, vErr.Field()+" value is more than "+vErr.Param())
				default:
					fields = append(fields, vErr.Field()+" is invalid")
				}
			}
		} else {
			fields = append(fields, "Validation failed")
		}
		slog.Error("validation failed", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Validation failed", "code": "VALIDATION_FAILED", "details": fields})
		return false
	}
	return true
}

// respondError maps a domain error onto its HTTP status. Untyped errors stay
// opaque to the client.
func respondError(c *gin.Context, traceId string, err error, fallback string) {
	slog.Error(fallback, slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))

	if e := apperr.As(err); e != nil {
		body := gin.H{"message": e.Message, "code": e.Code}
		if len(e.Details) > 0 {
			body["details"] = e.Details
		}
		c.AbortWithStatusJSON(apperr.HTTPStatus(err), body)
		return
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": fallback, "code": "INTERNAL"})
}

// pathID parses a :id style parameter.
func pathID(c *gin.Context, traceId, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		slog.Error("invalid path parameter", slog.String(logkey.TraceID, traceId), slog.String("Param", name))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Invalid " + name, "code": "INVALID_ID"})
		return 0, false
	}
	return id, true
}

// pageParams reads ?page and ?limit with defaults.
func pageParams(c *gin.Context, defaultLimit int) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page <= 0 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit <= 0 || limit > 100 {
		limit = defaultLimit
	}
	return page, limit
}

// paginationOf builds the listing envelope for endpoints that count rows
// themselves.
func paginationOf(page, limit, total int) products.Pagination {
	pages := 0
	if total > 0 {
		pages = (total + limit - 1) / limit
	}
	return products.Pagination{CurrentPage: page, TotalPages: pages, TotalItems: total, ItemsPerPage: limit}
}
