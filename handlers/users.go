package handlers

import (
	"log/slog"
	"net/http"

	"storefront/internal/users"
	"storefront/pkg/ctxmanage"
	"storefront/pkg/logkey"

	"github.com/gin-gonic/gin"
)

func (h *Handler) Register(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	var nu users.NewUser
	if !h.bindJSON(c, traceId, &nu) {
		return
	}

	u, err := h.u.Insert(c.Request.Context(), nu)
	if err != nil {
		respondError(c, traceId, err, "Registration failed")
		return
	}

	token, err := h.keys.GenerateToken(u.ID, u.Username, u.Role)
	if err != nil {
		respondError(c, traceId, err, "Registration failed")
		return
	}

	slog.Info("user registered", slog.String(logkey.TraceID, traceId), slog.Int64(logkey.UserID, u.ID))
	c.JSON(http.StatusCreated, gin.H{"message": "Registration successful", "token": token, "user": u})
}

func (h *Handler) Login(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	var req struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}
	if !h.bindJSON(c, traceId, &req) {
		return
	}

	u, err := h.u.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, traceId, err, "Login failed")
		return
	}

	token, err := h.keys.GenerateToken(u.ID, u.Username, u.Role)
	if err != nil {
		respondError(c, traceId, err, "Login failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Login successful", "token": token, "user": u})
}

func (h *Handler) Profile(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	_, userID, ok := currentClaims(c, traceId)
	if !ok {
		return
	}

	u, err := h.u.GetByID(c.Request.Context(), userID)
	if err != nil {
		respondError(c, traceId, err, "Failed to fetch profile")
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	_, userID, ok := currentClaims(c, traceId)
	if !ok {
		return
	}

	var p users.ProfileUpdate
	if !h.bindJSON(c, traceId, &p) {
		return
	}

	u, err := h.u.UpdateProfile(c.Request.Context(), userID, p)
	if err != nil {
		respondError(c, traceId, err, "Failed to update profile")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully", "user": u})
}

func (h *Handler) ChangePassword(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	_, userID, ok := currentClaims(c, traceId)
	if !ok {
		return
	}

	var req struct {
		CurrentPassword string `json:"current_password" validate:"required"`
		NewPassword     string `json:"new_password" validate:"required,min=6"`
	}
	if !h.bindJSON(c, traceId, &req) {
		return
	}

	if err := h.u.ChangePassword(c.Request.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, traceId, err, "Failed to change password")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}

func (h *Handler) ListUsers(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	page, limit := pageParams(c, 20)

	list, total, err := h.u.ListAll(c.Request.Context(), page, limit)
	if err != nil {
		respondError(c, traceId, err, "Failed to fetch users")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"users":      list,
		"pagination": paginationOf(page, limit, total),
	})
}

func (h *Handler) UpdateUserRole(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	var req struct {
		UserID int64  `json:"user_id" validate:"required"`
		Role   string `json:"role" validate:"required,oneof=user admin"`
	}
	if !h.bindJSON(c, traceId, &req) {
		return
	}

	if err := h.u.UpdateRole(c.Request.Context(), req.UserID, req.Role); err != nil {
		respondError(c, traceId, err, "Failed to update role")
		return
	}

	slog.Info("user role updated", slog.String(logkey.TraceID, traceId),
		slog.Int64(logkey.UserID, req.UserID), slog.String("Role", req.Role))
	c.JSON(http.StatusOK, gin.H{"message": "Role updated successfully"})
}
