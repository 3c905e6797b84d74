package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/shinyyama/inventory-backend/internal/apperr"
	"github.com/shinyyama/inventory-backend/internal/imaging"
	"github.com/shinyyama/inventory-backend/internal/keylock"
	"github.com/shinyyama/inventory-backend/internal/logging"
	"github.com/shinyyama/inventory-backend/internal/model"
	"github.com/shinyyama/inventory-backend/internal/repository"
	"github.com/shinyyama/inventory-backend/internal/storage"
)

type ImageService interface {
	Upload(ctx context.Context, ownerID, itemID uint64, filename string, data []byte) (*model.ItemImage, error)
	List(ctx context.Context, ownerID, itemID uint64) ([]model.ItemImage, error)
	Delete(ctx context.Context, ownerID, itemID, imageID uint64) error
	Reorder(ctx context.Context, ownerID, itemID uint64, imageIDs []uint64) ([]model.ItemImage, error)
}

type imageService struct {
	tx     repository.Transactor
	items  repository.ItemRepository
	images repository.ImageRepository
	blobs  storage.BlobStore
	locks  *keylock.Map[uint64]
	log    *zap.Logger
}

func NewImageService(tx repository.Transactor, items repository.ItemRepository, images repository.ImageRepository, blobs storage.BlobStore, log *zap.Logger) ImageService {
	if log == nil {
		log = zap.NewNop()
	}
	if blobs == nil {
		blobs = storage.Disabled{}
	}
	return &imageService{tx: tx, items: items, images: images, blobs: blobs, locks: keylock.New[uint64](), log: log}
}

func (s *imageService) Upload(ctx context.Context, ownerID, itemID uint64, filename string, data []byte) (*model.ItemImage, error) {
	if _, err := s.items.FindByID(ctx, ownerID, itemID); err != nil {
		return nil, notFound(err, msgItemNotFound)
	}
	if len(data) == 0 {
		return nil, apperr.FieldError("file", "画像ファイルを選択してください")
	}

	unlock, err := s.locks.Lock(ctx, itemID)
	if err != nil {
		return nil, interrupted(err)
	}
	defer unlock()

	count, err := s.images.CountByItem(ctx, itemID)
	if err != nil {
		return nil, wrapInternal(err)
	}
	if count >= model.MaxImagesPerItem {
		return nil, apperr.BadRequest(fmt.Sprintf("画像は1アイテムにつき%d枚までです", model.MaxImagesPerItem))
	}

	processed, err := imaging.Process(data)
	if err != nil {
		if errors.Is(err, imaging.ErrUnsupported) {
			return nil, apperr.FieldError("file", "JPEG・PNG・WebP形式の画像を選択してください")
		}
		return nil, apperr.Wrap(apperr.KindBadRequest, "画像を読み込めませんでした", err)
	}

	log := logging.FromContext(ctx, s.log).With(zap.Uint64("item_id", itemID))
	base := fmt.Sprintf("users/%d/items/%d/%s", ownerID, itemID, uuid.NewString())
	var uploaded []string

	url, err := s.blobs.Put(ctx, base+".jpg", "image/jpeg", processed.Original.Data)
	if err != nil {
		return nil, s.uploadFailed(ctx, log, uploaded, err)
	}
	uploaded = append(uploaded, base+".jpg")

	variants := make(map[string]model.ImageVariant, len(processed.Variants))
	for _, v := range imaging.Variants {
		enc := processed.Variants[v.Name]
		path := fmt.Sprintf("%s_%s.jpg", base, v.Name)
		vURL, err := s.blobs.Put(ctx, path, "image/jpeg", enc.Data)
		if err != nil {
			return nil, s.uploadFailed(ctx, log, uploaded, err)
		}
		uploaded = append(uploaded, path)
		variants[v.Name] = model.ImageVariant{URL: vURL, ObjectPath: path, Width: enc.Width, Height: enc.Height}
	}
	variantJSON, err := json.Marshal(variants)
	if err != nil {
		return nil, s.uploadFailed(ctx, log, uploaded, err)
	}

	img := &model.ItemImage{
		ItemID:     itemID,
		URL:        url,
		ObjectPath: base + ".jpg",
		Filename:   cleanFilename(filename),
		MimeType:   "image/jpeg",
		Size:       int64(len(processed.Original.Data)),
		Order:      int(count),
		Variants:   datatypes.JSON(variantJSON),
	}
	if err := s.images.Create(ctx, img); err != nil {
		return nil, s.uploadFailed(ctx, log, uploaded, err)
	}

	log.Info("image uploaded", zap.Uint64("image_id", img.ID), zap.String("source_mime", processed.SourceMIME),
		zap.Int("position", img.Order))
	return img, nil
}

func (s *imageService) uploadFailed(ctx context.Context, log *zap.Logger, uploaded []string, err error) error {
	deleteBlobs(ctx, s.blobs, log, uploaded)
	if errors.Is(err, storage.ErrDisabled) {
		return apperr.Wrap(apperr.KindInternal, "画像の保存先が設定されていません", err)
	}
	return wrapInternal(err)
}

func (s *imageService) List(ctx context.Context, ownerID, itemID uint64) ([]model.ItemImage, error) {
	if _, err := s.items.FindByID(ctx, ownerID, itemID); err != nil {
		return nil, notFound(err, msgItemNotFound)
	}
	list, err := s.images.ListByItem(ctx, itemID)
	if err != nil {
		return nil, wrapInternal(err)
	}
	return list, nil
}

// Delete answers Forbidden rather than NotFound when the image belongs to someone else.
func (s *imageService) Delete(ctx context.Context, ownerID, itemID, imageID uint64) error {
	img, err := s.images.FindByID(ctx, imageID)
	if err != nil {
		return notFound(err, msgImageNotFound)
	}
	if img.ItemID != itemID {
		return apperr.NotFound(msgImageNotFound)
	}
	owner, err := s.items.OwnerOf(ctx, img.ItemID)
	if err != nil {
		return notFound(err, msgImageNotFound)
	}
	if owner != ownerID {
		return apperr.Forbidden("この画像を削除する権限がありません")
	}

	unlock, err := s.locks.Lock(ctx, itemID)
	if err != nil {
		return interrupted(err)
	}
	defer unlock()

	err = s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		images := s.images.WithTx(tx)
		if err := images.Delete(ctx, imageID); err != nil {
			return notFound(err, msgImageNotFound)
		}
		rest, err := images.ListByItem(ctx, itemID)
		if err != nil {
			return wrapInternal(err)
		}
		return wrapInternal(renumber(ctx, images, rest))
	})
	if err != nil {
		return err
	}

	log := logging.FromContext(ctx, s.log)
	log.Info("image deleted", zap.Uint64("image_id", imageID), zap.Uint64("item_id", itemID))
	deleteBlobs(ctx, s.blobs, log, blobPaths([]model.ItemImage{*img}))
	return nil
}

func (s *imageService) Reorder(ctx context.Context, ownerID, itemID uint64, imageIDs []uint64) ([]model.ItemImage, error) {
	if _, err := s.items.FindByID(ctx, ownerID, itemID); err != nil {
		return nil, notFound(err, msgItemNotFound)
	}

	unlock, err := s.locks.Lock(ctx, itemID)
	if err != nil {
		return nil, interrupted(err)
	}
	defer unlock()

	var out []model.ItemImage
	err = s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		images := s.images.WithTx(tx)
		current, err := images.ListByItem(ctx, itemID)
		if err != nil {
			return wrapInternal(err)
		}
		ordered, ok := permute(current, imageIDs)
		if !ok {
			return apperr.FieldError("imageIds", "画像の並び順が現在の画像と一致しません")
		}
		if err := renumber(ctx, images, ordered); err != nil {
			return wrapInternal(err)
		}
		out = ordered
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// renumber rewrites positions to 0..n-1 in slice order.
func renumber(ctx context.Context, images repository.ImageRepository, list []model.ItemImage) error {
	for i := range list {
		if list[i].Order == i {
			continue
		}
		if err := images.UpdateOrder(ctx, list[i].ID, i); err != nil {
			return err
		}
		list[i].Order = i
	}
	return nil
}

// permute reorders current by ids; ids must name every image exactly once.
func permute(current []model.ItemImage, ids []uint64) ([]model.ItemImage, bool) {
	if len(ids) != len(current) {
		return nil, false
	}
	byID := make(map[uint64]model.ItemImage, len(current))
	for _, img := range current {
		byID[img.ID] = img
	}
	out := make([]model.ItemImage, 0, len(ids))
	for _, id := range ids {
		img, ok := byID[id]
		if !ok {
			return nil, false
		}
		delete(byID, id)
		out = append(out, img)
	}
	return out, true
}

func cleanFilename(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if r := []rune(name); len(r) > 255 {
		name = string(r[:255])
	}
	return name
}
