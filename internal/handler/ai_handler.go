package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/shinyyama/inventory-backend/internal/service"
)

type AIHandler struct {
	svc service.AIService
	log *zap.Logger
}

func NewAIHandler(svc service.AIService, log *zap.Logger) *AIHandler {
	return &AIHandler{svc: svc, log: log}
}

type RecognitionResponse struct {
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	Category       string  `json:"category"`
	Manufacturer   string  `json:"manufacturer"`
	Condition      string  `json:"condition"`
	EstimatedPrice *int64  `json:"estimatedPrice"`
	Confidence     float64 `json:"confidence"`
}

func (h *AIHandler) Recognize(c echo.Context) error {
	owner, err := currentUser(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	_, data, err := readUpload(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	r, err := h.svc.Recognize(c.Request().Context(), owner, data)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, RecognitionResponse{
		Name:           r.Name,
		Description:    r.Description,
		Category:       r.Category,
		Manufacturer:   r.Manufacturer,
		Condition:      r.Condition,
		EstimatedPrice: r.EstimatedPrice,
		Confidence:     r.Confidence,
	})
}
