package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/shinyyama/inventory-backend/internal/apperr"
	"github.com/shinyyama/inventory-backend/internal/logging"
	"github.com/shinyyama/inventory-backend/internal/model"
	"github.com/shinyyama/inventory-backend/internal/repository"
	"github.com/shinyyama/inventory-backend/internal/storage"
)

var itemSortColumns = map[string]string{
	"createdAt":     "created_at",
	"updatedAt":     "updated_at",
	"name":          "name",
	"purchaseDate":  "purchase_date",
	"purchasePrice": "purchase_price",
}

func itemSortColumn(sort string) string {
	if col, ok := itemSortColumns[sort]; ok {
		return col
	}
	return "created_at"
}

type ItemInput struct {
	Name             string
	Description      *string
	Category         *string
	Manufacturer     *string
	PurchaseDate     *time.Time
	PurchasePrice    *int64
	PurchaseLocation *string
	Condition        *string
	Notes            *string
	FolderID         *uint64
}

// ItemPatch changes only the fields that are Set.
type ItemPatch struct {
	Name             Optional[string]
	Description      Optional[string]
	Category         Optional[string]
	Manufacturer     Optional[string]
	PurchaseDate     Optional[time.Time]
	PurchasePrice    Optional[int64]
	PurchaseLocation Optional[string]
	Condition        Optional[string]
	Notes            Optional[string]
	FolderID         Optional[uint64]
}

type ItemQuery struct {
	Q         string
	Category  string
	Condition string
	FolderID  *uint64
	Unfiled   bool
	Sort      string
	Order     string
	Page      PageRequest
}

type ItemService interface {
	Create(ctx context.Context, ownerID uint64, in ItemInput) (*model.Item, error)
	Get(ctx context.Context, ownerID, id uint64) (*model.Item, error)
	Update(ctx context.Context, ownerID, id uint64, patch ItemPatch) (*model.Item, error)
	Search(ctx context.Context, ownerID uint64, q ItemQuery) (PageResult[model.Item], error)
	Uncategorized(ctx context.Context, ownerID uint64, page PageRequest, sort, order string) (PageResult[model.Item], error)
	Move(ctx context.Context, ownerID, id uint64, targetFolderID *uint64) (*model.Item, error)
	Delete(ctx context.Context, ownerID, id uint64) error
}

type itemService struct {
	tx      repository.Transactor
	items   repository.ItemRepository
	folders repository.FolderRepository
	images  repository.ImageRepository
	prices  repository.PriceHistoryRepository
	blobs   storage.BlobStore
	log     *zap.Logger
}

func NewItemService(
	tx repository.Transactor,
	items repository.ItemRepository,
	folders repository.FolderRepository,
	images repository.ImageRepository,
	prices repository.PriceHistoryRepository,
	blobs storage.BlobStore,
	log *zap.Logger,
) ItemService {
	if log == nil {
		log = zap.NewNop()
	}
	return &itemService{tx: tx, items: items, folders: folders, images: images, prices: prices, blobs: blobs, log: log}
}

func (s *itemService) Create(ctx context.Context, ownerID uint64, in ItemInput) (*model.Item, error) {
	item := &model.Item{
		Name:             strings.TrimSpace(in.Name),
		Description:      trimPtr(in.Description),
		Category:         trimPtr(in.Category),
		Manufacturer:     trimPtr(in.Manufacturer),
		PurchaseDate:     in.PurchaseDate,
		PurchasePrice:    in.PurchasePrice,
		PurchaseLocation: trimPtr(in.PurchaseLocation),
		Notes:            trimPtr(in.Notes),
		FolderID:         in.FolderID,
		OwnerID:          ownerID,
	}
	if c := trimPtr(in.Condition); c != nil {
		cond := model.ItemCondition(*c)
		item.Condition = &cond
	}
	if err := validateItem(item); err != nil {
		return nil, err
	}
	if err := s.checkFolder(ctx, ownerID, item.FolderID); err != nil {
		return nil, err
	}

	if err := s.items.Create(ctx, item); err != nil {
		return nil, wrapInternal(err)
	}
	logging.FromContext(ctx, s.log).Info("item created", zap.Uint64("item_id", item.ID))
	return s.Get(ctx, ownerID, item.ID)
}

func (s *itemService) Get(ctx context.Context, ownerID, id uint64) (*model.Item, error) {
	item, err := s.items.FindByID(ctx, ownerID, id)
	if err != nil {
		return nil, notFound(err, msgItemNotFound)
	}
	return item, nil
}

func (s *itemService) Update(ctx context.Context, ownerID, id uint64, patch ItemPatch) (*model.Item, error) {
	item, err := s.items.FindByID(ctx, ownerID, id)
	if err != nil {
		return nil, notFound(err, msgItemNotFound)
	}

	if patch.Name.Set {
		if patch.Name.Value == nil {
			return nil, apperr.FieldError("name", "名前を入力してください")
		}
		item.Name = strings.TrimSpace(*patch.Name.Value)
	}
	applyString(&item.Description, patch.Description)
	applyString(&item.Category, patch.Category)
	applyString(&item.Manufacturer, patch.Manufacturer)
	applyString(&item.PurchaseLocation, patch.PurchaseLocation)
	applyString(&item.Notes, patch.Notes)
	if patch.PurchaseDate.Set {
		item.PurchaseDate = patch.PurchaseDate.Value
	}
	if patch.PurchasePrice.Set {
		item.PurchasePrice = patch.PurchasePrice.Value
	}
	if patch.Condition.Set {
		item.Condition = nil
		if c := trimPtr(patch.Condition.Value); c != nil {
			cond := model.ItemCondition(*c)
			item.Condition = &cond
		}
	}
	folderChanged := patch.FolderID.Set && !sameID(patch.FolderID.Value, item.FolderID)
	if patch.FolderID.Set {
		item.FolderID = patch.FolderID.Value
	}

	if err := validateItem(item); err != nil {
		return nil, err
	}
	if folderChanged {
		if err := s.checkFolder(ctx, ownerID, item.FolderID); err != nil {
			return nil, err
		}
	}

	if err := s.items.Update(ctx, item); err != nil {
		return nil, wrapInternal(err)
	}
	return item, nil
}

func (s *itemService) Search(ctx context.Context, ownerID uint64, q ItemQuery) (PageResult[model.Item], error) {
	page := q.Page.normalize()
	filter := repository.ItemFilter{
		OwnerID:    ownerID,
		Query:      strings.TrimSpace(q.Q),
		Category:   strings.TrimSpace(q.Category),
		Condition:  strings.TrimSpace(q.Condition),
		FolderID:   q.FolderID,
		Unfiled:    q.Unfiled,
		SortColumn: itemSortColumn(q.Sort),
		Desc:       isDesc(q.Order),
		Limit:      page.Limit,
		Offset:     page.offset(),
	}
	list, total, err := s.items.Search(ctx, filter)
	if err != nil {
		return PageResult[model.Item]{}, wrapInternal(err)
	}
	return newPageResult(list, total, page), nil
}

func (s *itemService) Uncategorized(ctx context.Context, ownerID uint64, page PageRequest, sort, order string) (PageResult[model.Item], error) {
	return s.Search(ctx, ownerID, ItemQuery{Unfiled: true, Sort: sort, Order: order, Page: page})
}

func (s *itemService) Move(ctx context.Context, ownerID, id uint64, targetFolderID *uint64) (*model.Item, error) {
	item, err := s.items.FindByID(ctx, ownerID, id)
	if err != nil {
		return nil, notFound(err, msgItemNotFound)
	}
	if err := s.checkFolder(ctx, ownerID, targetFolderID); err != nil {
		return nil, err
	}
	if sameID(item.FolderID, targetFolderID) {
		return nil, apperr.BadRequest(msgAlreadyHere)
	}
	if err := s.items.UpdateFolder(ctx, ownerID, id, targetFolderID); err != nil {
		return nil, notFound(err, msgItemNotFound)
	}
	item.FolderID = targetFolderID
	return item, nil
}

func (s *itemService) Delete(ctx context.Context, ownerID, id uint64) error {
	item, err := s.items.FindByID(ctx, ownerID, id)
	if err != nil {
		return notFound(err, msgItemNotFound)
	}

	var retired int64
	err = s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		if err := s.images.WithTx(tx).DeleteByItem(ctx, id); err != nil {
			return wrapInternal(err)
		}
		n, err := s.prices.WithTx(tx).DeactivateByItem(ctx, ownerID, id)
		if err != nil {
			return wrapInternal(err)
		}
		retired = n
		return notFound(s.items.WithTx(tx).Delete(ctx, ownerID, id), msgItemNotFound)
	})
	if err != nil {
		return err
	}

	log := logging.FromContext(ctx, s.log)
	log.Info("item deleted", zap.Uint64("item_id", id),
		zap.Int("images", len(item.Images)), zap.Int64("retired_price_histories", retired))
	deleteBlobs(ctx, s.blobs, log, blobPaths(item.Images))
	return nil
}

func (s *itemService) checkFolder(ctx context.Context, ownerID uint64, folderID *uint64) error {
	if folderID == nil {
		return nil
	}
	if _, err := s.folders.FindByID(ctx, ownerID, *folderID); err != nil {
		return notFound(err, msgFolderNotFound)
	}
	return nil
}

var itemFieldLimits = []struct {
	field string
	max   int
	get   func(*model.Item) *string
}{
	{"description", 2000, func(i *model.Item) *string { return i.Description }},
	{"category", 100, func(i *model.Item) *string { return i.Category }},
	{"manufacturer", 200, func(i *model.Item) *string { return i.Manufacturer }},
	{"purchaseLocation", 200, func(i *model.Item) *string { return i.PurchaseLocation }},
	{"notes", 5000, func(i *model.Item) *string { return i.Notes }},
}

// validateItem checks the merged state of an item, so it covers create and update alike.
func validateItem(item *model.Item) error {
	fields := map[string]string{}
	switch n := utf8.RuneCountInString(item.Name); {
	case n == 0:
		fields["name"] = "名前を入力してください"
	case n > 200:
		fields["name"] = "名前は200文字以内で入力してください"
	}
	for _, l := range itemFieldLimits {
		if v := l.get(item); v != nil && utf8.RuneCountInString(*v) > l.max {
			fields[l.field] = fmt.Sprintf("%d文字以内で入力してください", l.max)
		}
	}
	if item.Condition != nil && !item.Condition.Valid() {
		fields["condition"] = "状態の値が不正です"
	}
	if item.PurchasePrice != nil {
		if *item.PurchasePrice < 0 {
			fields["purchasePrice"] = "購入価格は0以上で入力してください"
		} else if *item.PurchasePrice > 0 && item.PurchaseDate == nil {
			fields["purchaseDate"] = "購入価格を入力する場合は購入日も入力してください"
		}
	}
	if item.PurchaseDate != nil && item.PurchaseDate.After(time.Now().Add(24*time.Hour)) {
		fields["purchaseDate"] = "購入日に未来の日付は指定できません"
	}
	if len(fields) > 0 {
		return apperr.Validation(fields)
	}
	return nil
}

func applyString(dst **string, o Optional[string]) {
	if o.Set {
		*dst = trimPtr(o.Value)
	}
}

// blobPaths lists every stored object behind images, originals and variants alike.
func blobPaths(images []model.ItemImage) []string {
	var paths []string
	for _, img := range images {
		if img.ObjectPath != "" {
			paths = append(paths, img.ObjectPath)
		}
		var variants map[string]model.ImageVariant
		if len(img.Variants) > 0 && json.Unmarshal(img.Variants, &variants) == nil {
			for _, v := range variants {
				if v.ObjectPath != "" {
					paths = append(paths, v.ObjectPath)
				}
			}
		}
	}
	return paths
}

// deleteBlobs removes objects in parallel. Failures are logged and dropped.
func deleteBlobs(ctx context.Context, blobs storage.BlobStore, log *zap.Logger, paths []string) {
	if blobs == nil || len(paths) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	var g errgroup.Group
	g.SetLimit(4)
	for _, p := range paths {
		g.Go(func() error {
			if err := blobs.Delete(ctx, p); err != nil {
				log.Warn("blob delete failed", zap.String("object", p), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
}
