package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/shinyyama/inventory-backend/internal/service"
)

type UserHandler struct {
	users service.UserService
	ai    service.AIService
	log   *zap.Logger
}

func NewUserHandler(users service.UserService, ai service.AIService, log *zap.Logger) *UserHandler {
	return &UserHandler{users: users, ai: ai, log: log}
}

type AIUsageResponse struct {
	Count       int    `json:"count"`
	Limit       int    `json:"limit"`
	Remaining   int    `json:"remaining"`
	Tier        string `json:"subscriptionTier"`
	CallsLast30 int64  `json:"callsLast30Days"`
}

type MeResponse struct {
	ID        uint64          `json:"id"`
	Email     string          `json:"email"`
	Name      *string         `json:"name"`
	Image     *string         `json:"image"`
	AIUsage   AIUsageResponse `json:"aiUsage"`
	CreatedAt string          `json:"createdAt"`
}

func (h *UserHandler) Me(c echo.Context) error {
	owner, err := currentUser(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	u, err := h.users.Get(c.Request().Context(), owner)
	if err != nil {
		return respondError(c, h.log, err)
	}
	usage, err := h.ai.Usage(c.Request().Context(), owner)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, MeResponse{
		ID:    u.ID,
		Email: u.Email,
		Name:  u.Name,
		Image: u.Image,
		AIUsage: AIUsageResponse{
			Count:       usage.Count,
			Limit:       usage.Limit,
			Remaining:   usage.Remaining,
			Tier:        string(usage.Tier),
			CallsLast30: usage.CallsLast30,
		},
		CreatedAt: formatTime(u.CreatedAt),
	})
}
