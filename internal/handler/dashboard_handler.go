package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/shinyyama/inventory-backend/internal/service"
)

type DashboardHandler struct {
	svc service.DashboardService
	log *zap.Logger
}

func NewDashboardHandler(svc service.DashboardService, log *zap.Logger) *DashboardHandler {
	return &DashboardHandler{svc: svc, log: log}
}

type ItemTrendResponse struct {
	ItemID     uint64  `json:"itemId"`
	ItemName   string  `json:"itemName"`
	Trend      string  `json:"trend"`
	ChangeRate float64 `json:"changeRate"`
	LatestAvg  *int64  `json:"latestAvgPrice"`
}

type DashboardResponse struct {
	ItemCount    int64               `json:"itemCount"`
	FolderCount  int64               `json:"folderCount"`
	UnfiledCount int64               `json:"unfiledCount"`
	TotalValue   int64               `json:"totalValue"`
	ByCategory   map[string]int64    `json:"byCategory"`
	PriceTrends  []ItemTrendResponse `json:"priceTrends"`
}

func (h *DashboardHandler) Stats(c echo.Context) error {
	owner, err := currentUser(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	s, err := h.svc.Stats(c.Request().Context(), owner)
	if err != nil {
		return respondError(c, h.log, err)
	}
	resp := DashboardResponse{
		ItemCount:    s.ItemCount,
		FolderCount:  s.FolderCount,
		UnfiledCount: s.UnfiledCount,
		TotalValue:   s.TotalValue,
		ByCategory:   s.ByCategory,
		PriceTrends:  make([]ItemTrendResponse, 0, len(s.PriceTrends)),
	}
	for _, t := range s.PriceTrends {
		resp.PriceTrends = append(resp.PriceTrends, ItemTrendResponse{
			ItemID:     t.ItemID,
			ItemName:   t.ItemName,
			Trend:      string(t.Trend),
			ChangeRate: t.ChangeRate,
			LatestAvg:  t.LatestAvg,
		})
	}
	return c.JSON(http.StatusOK, resp)
}
