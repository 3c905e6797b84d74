package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/shinyyama/inventory-backend/internal/model"
	"github.com/shinyyama/inventory-backend/internal/service"
)

type FolderHandler struct {
	svc service.FolderService
	log *zap.Logger
}

func NewFolderHandler(svc service.FolderService, log *zap.Logger) *FolderHandler {
	return &FolderHandler{svc: svc, log: log}
}

type FolderResponse struct {
	ID          uint64            `json:"id"`
	Name        string            `json:"name"`
	Description *string           `json:"description"`
	ParentID    *uint64           `json:"parentId"`
	Depth       int               `json:"depth"`
	Path        []model.FolderRef `json:"path"`
	ItemCount   int64             `json:"itemCount"`
	ChildCount  int64             `json:"childCount"`
	CreatedAt   string            `json:"createdAt"`
	UpdatedAt   string            `json:"updatedAt"`
}

type TreeNodeResponse struct {
	ID          uint64              `json:"id"`
	Name        string              `json:"name"`
	Description *string             `json:"description"`
	ParentID    *uint64             `json:"parentId"`
	Depth       int                 `json:"depth"`
	HasChildren bool                `json:"hasChildren"`
	ItemCount   *int64              `json:"itemCount,omitempty"`
	ChildCount  *int64              `json:"childCount,omitempty"`
	Children    []*TreeNodeResponse `json:"children"`
}

type TreeResponse struct {
	Folders []*TreeNodeResponse `json:"folders"`
	Stats   struct {
		TotalFolders      int         `json:"totalFolders"`
		DepthDistribution map[int]int `json:"depthDistribution"`
		MaxDepthReached   int         `json:"maxDepthReached"`
	} `json:"stats"`
}

type createFolderRequest struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	ParentID    *uint64 `json:"parentId" validate:"omitempty,gt=0"`
}

type updateFolderRequest struct {
	Name        service.Optional[string] `json:"name"`
	Description service.Optional[string] `json:"description"`
	ParentID    service.Optional[uint64] `json:"parentId"`
}

type moveFolderRequest struct {
	FolderID       uint64  `json:"folderId" validate:"required"`
	TargetParentID *uint64 `json:"targetParentId" validate:"omitempty,gt=0"`
}

// Sort and order stay plain fields; echo's binder skips unexported embedded structs.
type listFoldersQuery struct {
	Sort  string `query:"sort" validate:"omitempty,oneof=name createdAt updatedAt"`
	Order string `query:"order" validate:"omitempty,oneof=asc desc"`
}

type treeQuery struct {
	MaxDepth      int  `query:"maxDepth" validate:"omitempty,min=1,max=3"`
	IncludeCounts bool `query:"includeCounts"`
}

type itemSortQuery struct {
	Sort  string `query:"sort" validate:"omitempty,oneof=createdAt updatedAt name purchaseDate purchasePrice"`
	Order string `query:"order" validate:"omitempty,oneof=asc desc"`
}

func toFolderResponse(v *service.FolderView) FolderResponse {
	path := v.Path
	if path == nil {
		path = []model.FolderRef{}
	}
	return FolderResponse{
		ID:          v.ID,
		Name:        v.Name,
		Description: v.Description,
		ParentID:    v.ParentID,
		Depth:       v.Depth,
		Path:        path,
		ItemCount:   v.ItemCount,
		ChildCount:  v.ChildCount,
		CreatedAt:   formatTime(v.CreatedAt),
		UpdatedAt:   formatTime(v.UpdatedAt),
	}
}

func toTreeNodes(nodes []*service.TreeNode) []*TreeNodeResponse {
	out := make([]*TreeNodeResponse, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &TreeNodeResponse{
			ID:          n.ID,
			Name:        n.Name,
			Description: n.Description,
			ParentID:    n.ParentID,
			Depth:       n.Depth,
			HasChildren: n.HasChildren,
			ItemCount:   n.ItemCount,
			ChildCount:  n.ChildCount,
			Children:    toTreeNodes(n.Children),
		})
	}
	return out
}

func (h *FolderHandler) List(c echo.Context) error {
	owner, err := currentUser(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	var q listFoldersQuery
	if err := bind(c, &q); err != nil {
		return respondError(c, h.log, err)
	}
	parentID, err := queryID(c, "parentId")
	if err != nil {
		return respondError(c, h.log, err)
	}
	views, err := h.svc.List(c.Request().Context(), owner, parentID, q.Sort, q.Order)
	if err != nil {
		return respondError(c, h.log, err)
	}
	resp := make([]FolderResponse, 0, len(views))
	for i := range views {
		resp = append(resp, toFolderResponse(&views[i]))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"folders": resp})
}

func (h *FolderHandler) Create(c echo.Context) error {
	owner, err := currentUser(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	var req createFolderRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	v, err := h.svc.Create(c.Request().Context(), owner, service.CreateFolderInput{
		Name:        req.Name,
		Description: req.Description,
		ParentID:    req.ParentID,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, toFolderResponse(v))
}

func (h *FolderHandler) Get(c echo.Context) error {
	owner, err := currentUser(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	v, err := h.svc.Get(c.Request().Context(), owner, id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, toFolderResponse(v))
}

func (h *FolderHandler) Update(c echo.Context) error {
	owner, err := currentUser(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	var req updateFolderRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	v, err := h.svc.Update(c.Request().Context(), owner, id, service.UpdateFolderInput{
		Name:        req.Name,
		Description: req.Description,
		ParentID:    req.ParentID,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, toFolderResponse(v))
}

func (h *FolderHandler) Move(c echo.Context) error {
	owner, err := currentUser(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	var req moveFolderRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	v, err := h.svc.Move(c.Request().Context(), owner, req.FolderID, req.TargetParentID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, toFolderResponse(v))
}

func (h *FolderHandler) Delete(c echo.Context) error {
	owner, err := currentUser(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	n, err := h.svc.Delete(c.Request().Context(), owner, id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"deleted": true, "unfiledItems": n})
}

func (h *FolderHandler) Tree(c echo.Context) error {
	owner, err := currentUser(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	var q treeQuery
	if err := bind(c, &q); err != nil {
		return respondError(c, h.log, err)
	}
	tree, err := h.svc.Tree(c.Request().Context(), owner, q.MaxDepth, q.IncludeCounts)
	if err != nil {
		return respondError(c, h.log, err)
	}
	var resp TreeResponse
	resp.Folders = toTreeNodes(tree.Roots)
	resp.Stats.TotalFolders = tree.Stats.TotalFolders
	resp.Stats.DepthDistribution = tree.Stats.DepthDistribution
	resp.Stats.MaxDepthReached = tree.Stats.MaxDepthReached
	return c.JSON(http.StatusOK, resp)
}

func (h *FolderHandler) Path(c echo.Context) error {
	owner, err := currentUser(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	path, err := h.svc.Path(c.Request().Context(), owner, id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"path": path})
}

func (h *FolderHandler) Items(c echo.Context) error {
	owner, err := currentUser(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	id, err := pathID(c, "id")
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
	page, err := h.svc.Items(c.Request().Context(), owner, id, pr, q.Sort, q.Order)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, toPage(page, toItemResponse))
}
