package repository

import (
	"context"

	"github.com/shinyyama/inventory-backend/internal/model"
	"gorm.io/gorm"
)

type ImageRepository interface {
	Create(ctx context.Context, img *model.ItemImage) error
	FindByID(ctx context.Context, id uint64) (*model.ItemImage, error)
	ListByItem(ctx context.Context, itemID uint64) ([]model.ItemImage, error)
	CountByItem(ctx context.Context, itemID uint64) (int64, error)
	UpdateOrder(ctx context.Context, id uint64, order int) error
	Delete(ctx context.Context, id uint64) error
	DeleteByItem(ctx context.Context, itemID uint64) error
	WithTx(tx *gorm.DB) ImageRepository
	SetDB(db *gorm.DB)
}

type imageRepository struct {
	db *gorm.DB
}

func NewImageRepository(db *gorm.DB) ImageRepository {
	return &imageRepository{db: db}
}

func (r *imageRepository) Create(ctx context.Context, img *model.ItemImage) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Create(img).Error
}

func (r *imageRepository) FindByID(ctx context.Context, id uint64) (*model.ItemImage, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var img model.ItemImage
	if err := r.db.WithContext(ctx).First(&img, id).Error; err != nil {
		return nil, err
	}
	return &img, nil
}

func (r *imageRepository) ListByItem(ctx context.Context, itemID uint64) ([]model.ItemImage, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.ItemImage
	if err := r.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("position ASC").
		Order("id ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *imageRepository) CountByItem(ctx context.Context, itemID uint64) (int64, error) {
	if r.db == nil {
		return 0, ErrDBNotReady
	}
	var n int64
	err := r.db.WithContext(ctx).Model(&model.ItemImage{}).Where("item_id = ?", itemID).Count(&n).Error
	return n, err
}

func (r *imageRepository) UpdateOrder(ctx context.Context, id uint64, order int) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Model(&model.ItemImage{}).
		Where("id = ?", id).
		Update("position", order).Error
}

func (r *imageRepository) Delete(ctx context.Context, id uint64) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	res := r.db.WithContext(ctx).Delete(&model.ItemImage{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *imageRepository) DeleteByItem(ctx context.Context, itemID uint64) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Where("item_id = ?", itemID).Delete(&model.ItemImage{}).Error
}

func (r *imageRepository) WithTx(tx *gorm.DB) ImageRepository {
	return &imageRepository{db: tx}
}

func (r *imageRepository) SetDB(db *gorm.DB) {
	r.db = db
}
