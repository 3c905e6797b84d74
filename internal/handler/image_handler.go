package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/shinyyama/inventory-backend/internal/service"
)

type ImageHandler struct {
	svc service.ImageService
	log *zap.Logger
}

func NewImageHandler(svc service.ImageService, log *zap.Logger) *ImageHandler {
	return &ImageHandler{svc: svc, log: log}
}

type reorderImagesRequest struct {
	ImageIDs []uint64 `json:"imageIds" validate:"required,max=10,dive,gt=0"`
}

func (h *ImageHandler) Upload(c echo.Context) error {
	owner, err := currentUser(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	itemID, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	name, data, err := readUpload(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	img, err := h.svc.Upload(c.Request().Context(), owner, itemID, name, data)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, toImageResponse(img))
}

func (h *ImageHandler) List(c echo.Context) error {
	owner, err := currentUser(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	itemID, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	list, err := h.svc.List(c.Request().Context(), owner, itemID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	resp := make([]ImageResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toImageResponse(&list[i]))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"images": resp})
}

func (h *ImageHandler) Reorder(c echo.Context) error {
	owner, err := currentUser(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	itemID, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	var req reorderImagesRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	list, err := h.svc.Reorder(c.Request().Context(), owner, itemID, req.ImageIDs)
	if err != nil {
		return respondError(c, h.log, err)
	}
	resp := make([]ImageResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toImageResponse(&list[i]))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"images": resp})
}

func (h *ImageHandler) Delete(c echo.Context) error {
	owner, err := currentUser(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	itemID, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	imageID, err := pathID(c, "imageId")
	if err != nil {
		return respondError(c, h.log, err)
	}
	if err := h.svc.Delete(c.Request().Context(), owner, itemID, imageID); err != nil {
		return respondError(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
