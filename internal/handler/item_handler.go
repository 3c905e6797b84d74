package handler

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/shinyyama/inventory-backend/internal/model"
	"github.com/shinyyama/inventory-backend/internal/service"
)

type ItemHandler struct {
	svc service.ItemService
	log *zap.Logger
}

func NewItemHandler(svc service.ItemService, log *zap.Logger) *ItemHandler {
	return &ItemHandler{svc: svc, log: log}
}

type ImageResponse struct {
	ID           uint64  `json:"id"`
	URL          string  `json:"url"`
	ThumbnailURL *string `json:"thumbnailUrl"`
	MediumURL    *string `json:"mediumUrl"`
	Filename     string  `json:"filename"`
	MimeType     string  `json:"mimeType"`
	Size         int64   `json:"size"`
	Order        int     `json:"order"`
	CreatedAt    string  `json:"createdAt"`
}

type ItemResponse struct {
	ID               uint64          `json:"id"`
	Name             string          `json:"name"`
	Description      *string         `json:"description"`
	Category         *string         `json:"category"`
	Manufacturer     *string         `json:"manufacturer"`
	PurchaseDate     *string         `json:"purchaseDate"`
	PurchasePrice    *int64          `json:"purchasePrice"`
	PurchaseLocation *string         `json:"purchaseLocation"`
	Condition        *string         `json:"condition"`
	Notes            *string         `json:"notes"`
	FolderID         *uint64         `json:"folderId"`
	Images           []ImageResponse `json:"images"`
	CreatedAt        string          `json:"createdAt"`
	UpdatedAt        string          `json:"updatedAt"`
}

type createItemRequest struct {
	Name             string  `json:"name" validate:"required,max=200"`
	Description      *string `json:"description" validate:"omitempty,max=2000"`
	Category         *string `json:"category" validate:"omitempty,max=100"`
	Manufacturer     *string `json:"manufacturer" validate:"omitempty,max=200"`
	PurchaseDate     *Date   `json:"purchaseDate"`
	PurchasePrice    *int64  `json:"purchasePrice" validate:"omitempty,min=0"`
	PurchaseLocation *string `json:"purchaseLocation" validate:"omitempty,max=200"`
	Condition        *string `json:"condition" validate:"omitempty,oneof=new like_new good fair poor"`
	Notes            *string `json:"notes" validate:"omitempty,max=5000"`
	FolderID         *uint64 `json:"folderId" validate:"omitempty,gt=0"`
}

type updateItemRequest struct {
	Name             service.Optional[string] `json:"name"`
	Description      service.Optional[string] `json:"description"`
	Category         service.Optional[string] `json:"category"`
	Manufacturer     service.Optional[string] `json:"manufacturer"`
	PurchaseDate     service.Optional[Date]   `json:"purchaseDate"`
	PurchasePrice    service.Optional[int64]  `json:"purchasePrice"`
	PurchaseLocation service.Optional[string] `json:"purchaseLocation"`
	Condition        service.Optional[string] `json:"condition"`
	Notes            service.Optional[string] `json:"notes"`
	FolderID         service.Optional[uint64] `json:"folderId"`
}

type moveItemRequest struct {
	ItemID         uint64  `json:"itemId" validate:"required"`
	TargetFolderID *uint64 `json:"targetFolderId" validate:"omitempty,gt=0"`
}

type searchItemsQuery struct {
	Sort      string `query:"sort" validate:"omitempty,oneof=createdAt updatedAt name purchaseDate purchasePrice"`
	Order     string `query:"order" validate:"omitempty,oneof=asc desc"`
	Q         string `query:"q" validate:"max=200"`
	Category  string `query:"category" validate:"max=100"`
	Condition string `query:"condition" validate:"omitempty,oneof=new like_new good fair poor"`
	Unfiled   bool   `query:"unfiled"`
}

func toImageResponse(img *model.ItemImage) ImageResponse {
	resp := ImageResponse{
		ID:        img.ID,
		URL:       img.URL,
		Filename:  img.Filename,
		MimeType:  img.MimeType,
		Size:      img.Size,
		Order:     img.Order,
		CreatedAt: formatTime(img.CreatedAt),
	}
	var variants map[string]model.ImageVariant
	if len(img.Variants) > 0 && json.Unmarshal(img.Variants, &variants) == nil {
		if v, ok := variants["thumb"]; ok {
			resp.ThumbnailURL = &v.URL
		}
		if v, ok := variants["medium"]; ok {
			resp.MediumURL = &v.URL
		}
	}
	return resp
}

func toItemResponse(it *model.Item) ItemResponse {
	resp := ItemResponse{
		ID:               it.ID,
		Name:             it.Name,
		Description:      it.Description,
		Category:         it.Category,
		Manufacturer:     it.Manufacturer,
		PurchaseDate:     formatDate(it.PurchaseDate),
		PurchasePrice:    it.PurchasePrice,
		PurchaseLocation: it.PurchaseLocation,
		Notes:            it.Notes,
		FolderID:         it.FolderID,
		Images:           make([]ImageResponse, 0, len(it.Images)),
		CreatedAt:        formatTime(it.CreatedAt),
		UpdatedAt:        formatTime(it.UpdatedAt),
	}
	if it.Condition != nil {
		c := string(*it.Condition)
		resp.Condition = &c
	}
	for i := range it.Images {
		resp.Images = append(resp.Images, toImageResponse(&it.Images[i]))
	}
	return resp
}

func (h *ItemHandler) Search(c echo.Context) error {
	owner, err := currentUser(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	var q searchItemsQuery
	if err := bind(c, &q); err != nil {
		return respondError(c, h.log, err)
	}
	pr, err := parsePage(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	folderID, err := queryID(c, "folderId")
	if err != nil {
		return respondError(c, h.log, err)
	}
	page, err := h.svc.Search(c.Request().Context(), owner, service.ItemQuery{
		Q:         q.Q,
		Category:  q.Category,
		Condition: q.Condition,
		FolderID:  folderID,
		Unfiled:   q.Unfiled,
		Sort:      q.Sort,
		Order:     q.Order,
		Page:      pr,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, toPage(page, toItemResponse))
}

func (h *ItemHandler) Uncategorized(c echo.Context) error {
	owner, err := currentUser(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	var q itemSortQuery
	if err := bind(c, &q); err != nil {
		return respondError(c, h.log, err)
	}
	pr, err := parsePage(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	page, err := h.svc.Uncategorized(c.Request().Context(), owner, pr, q.Sort, q.Order)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, toPage(page, toItemResponse))
}

func (h *ItemHandler) Create(c echo.Context) error {
	owner, err := currentUser(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	var req createItemRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	item, err := h.svc.Create(c.Request().Context(), owner, service.ItemInput{
		Name:             req.Name,
		Description:      req.Description,
		Category:         req.Category,
		Manufacturer:     req.Manufacturer,
		PurchaseDate:     datePtr(req.PurchaseDate),
		PurchasePrice:    req.PurchasePrice,
		PurchaseLocation: req.PurchaseLocation,
		Condition:        req.Condition,
		Notes:            req.Notes,
		FolderID:         req.FolderID,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, toItemResponse(item))
}

func (h *ItemHandler) Get(c echo.Context) error {
	owner, err := currentUser(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	item, err := h.svc.Get(c.Request().Context(), owner, id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, toItemResponse(item))
}

func (h *ItemHandler) Update(c echo.Context) error {
	owner, err := currentUser(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	var req updateItemRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	item, err := h.svc.Update(c.Request().Context(), owner, id, service.ItemPatch{
		Name:             req.Name,
		Description:      req.Description,
		Category:         req.Category,
		Manufacturer:     req.Manufacturer,
		PurchaseDate:     optionalDate(req.PurchaseDate),
		PurchasePrice:    req.PurchasePrice,
		PurchaseLocation: req.PurchaseLocation,
		Condition:        req.Condition,
		Notes:            req.Notes,
		FolderID:         req.FolderID,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, toItemResponse(item))
}

func (h *ItemHandler) Move(c echo.Context) error {
	owner, err := currentUser(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	var req moveItemRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	item, err := h.svc.Move(c.Request().Context(), owner, req.ItemID, req.TargetFolderID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, toItemResponse(item))
}

func (h *ItemHandler) Delete(c echo.Context) error {
	owner, err := currentUser(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	if err := h.svc.Delete(c.Request().Context(), owner, id); err != nil {
		return respondError(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
