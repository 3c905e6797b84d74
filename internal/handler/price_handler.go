package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/shinyyama/inventory-backend/internal/model"
	"github.com/shinyyama/inventory-backend/internal/service"
)

type PriceHandler struct {
	svc service.PriceService
	log *zap.Logger
}

func NewPriceHandler(svc service.PriceService, log *zap.Logger) *PriceHandler {
	return &PriceHandler{svc: svc, log: log}
}

type PriceDetailResponse struct {
	Site      string `json:"site"`
	Title     string `json:"title"`
	Price     string `json:"price"`
	URL       string `json:"url"`
	Condition string `json:"condition"`
}

type PriceHistoryResponse struct {
	ID           uint64                `json:"id"`
	ItemID       uint64                `json:"itemId"`
	Source       string                `json:"source"`
	SearchDate   string                `json:"searchDate"`
	MinPrice     *int64                `json:"minPrice"`
	AvgPrice     *int64                `json:"avgPrice"`
	MaxPrice     *int64                `json:"maxPrice"`
	ListingCount int                   `json:"listingCount"`
	Summary      string                `json:"summary"`
	IsActive     bool                  `json:"isActive"`
	Details      []PriceDetailResponse `json:"details"`
}

type PriceReportResponse struct {
	Histories []PriceHistoryResponse `json:"histories"`
	Trend     *string                `json:"trend"`
	Change    *float64               `json:"changeRate"`
	Lowest    *int64                 `json:"lowestPrice"`
	Highest   *int64                 `json:"highestPrice"`
	LatestAvg *int64                 `json:"latestAvgPrice"`
}

type historyQuery struct {
	Limit int `query:"limit" validate:"omitempty,min=1,max=100"`
}

func toPriceHistoryResponse(h *model.PriceHistory) PriceHistoryResponse {
	resp := PriceHistoryResponse{
		ID:           h.ID,
		ItemID:       h.ItemID,
		Source:       h.Source,
		SearchDate:   formatTime(h.SearchDate),
		MinPrice:     h.MinPrice,
		AvgPrice:     h.AvgPrice,
		MaxPrice:     h.MaxPrice,
		ListingCount: h.ListingCount,
		Summary:      h.Summary,
		IsActive:     h.IsActive(),
		Details:      make([]PriceDetailResponse, 0, len(h.Details)),
	}
	for _, d := range h.Details {
		resp.Details = append(resp.Details, PriceDetailResponse{
			Site:      d.Site,
			Title:     d.Title,
			Price:     d.Price,
			URL:       d.URL,
			Condition: d.Condition,
		})
	}
	return resp
}

func (h *PriceHandler) History(c echo.Context) error {
	owner, err := currentUser(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	itemID, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	var q historyQuery
	if err := bind(c, &q); err != nil {
		return respondError(c, h.log, err)
	}
	report, err := h.svc.History(c.Request().Context(), owner, itemID, q.Limit)
	if err != nil {
		return respondError(c, h.log, err)
	}
	resp := PriceReportResponse{
		Histories: make([]PriceHistoryResponse, 0, len(report.Snapshots)),
		Change:    report.ChangeRate,
		Lowest:    report.LowestPrice,
		Highest:   report.HighestPrice,
		LatestAvg: report.LatestAvg,
	}
	if report.Trend != "" {
		t := string(report.Trend)
		resp.Trend = &t
	}
	for i := range report.Snapshots {
		resp.Histories = append(resp.Histories, toPriceHistoryResponse(&report.Snapshots[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *PriceHandler) Delete(c echo.Context) error {
	owner, err := currentUser(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	itemID, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	hid, err := pathID(c, "hid")
	if err != nil {
		return respondError(c, h.log, err)
	}
	if err := h.svc.SoftDelete(c.Request().Context(), owner, itemID, hid); err != nil {
		return respondError(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *PriceHandler) Search(c echo.Context) error {
	owner, err := currentUser(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	itemID, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	snap, err := h.svc.Search(c.Request().Context(), owner, itemID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, toPriceHistoryResponse(snap))
}
