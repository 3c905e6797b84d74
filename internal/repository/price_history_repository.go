package repository

import (
	"context"

	"github.com/shinyyama/inventory-backend/internal/model"
	"gorm.io/gorm"
)

// PriceHistoryRepository stores price snapshots. Rows are never removed; they go inactive.
type PriceHistoryRepository interface {
	// Create inserts the snapshot together with its Details.
	Create(ctx context.Context, h *model.PriceHistory) error
	FindByID(ctx context.Context, ownerID, id uint64) (*model.PriceHistory, error)
	// ListActive returns active snapshots newest first; limit <= 0 means all.
	ListActive(ctx context.Context, ownerID, itemID uint64, limit int) ([]model.PriceHistory, error)
	Deactivate(ctx context.Context, ownerID, itemID, id uint64) (bool, error)
	DeactivateByItem(ctx context.Context, ownerID, itemID uint64) (int64, error)
	// ItemsWithActive lists items having at least min active snapshots.
	ItemsWithActive(ctx context.Context, ownerID uint64, min int) ([]uint64, error)
	WithTx(tx *gorm.DB) PriceHistoryRepository
	SetDB(db *gorm.DB)
}

type priceHistoryRepository struct {
	db *gorm.DB
}

func NewPriceHistoryRepository(db *gorm.DB) PriceHistoryRepository {
	return &priceHistoryRepository{db: db}
}

func (r *priceHistoryRepository) Create(ctx context.Context, h *model.PriceHistory) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Create(h).Error
}

func (r *priceHistoryRepository) FindByID(ctx context.Context, ownerID, id uint64) (*model.PriceHistory, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var h model.PriceHistory
	if err := r.db.WithContext(ctx).
		Preload("Details").
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&h).Error; err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *priceHistoryRepository) ListActive(ctx context.Context, ownerID, itemID uint64, limit int) ([]model.PriceHistory, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	q := r.db.WithContext(ctx).
		Preload("Details", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("owner_id = ? AND item_id = ? AND status = ?", ownerID, itemID, model.PriceHistoryActive).
		Order("search_date DESC").
		Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var list []model.PriceHistory
	if err := q.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *priceHistoryRepository) Deactivate(ctx context.Context, ownerID, itemID, id uint64) (bool, error) {
	if r.db == nil {
		return false, ErrDBNotReady
	}
	res := r.db.WithContext(ctx).Model(&model.PriceHistory{}).
		Where("id = ? AND owner_id = ? AND item_id = ? AND status = ?", id, ownerID, itemID, model.PriceHistoryActive).
		Update("status", model.PriceHistoryInactive)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *priceHistoryRepository) DeactivateByItem(ctx context.Context, ownerID, itemID uint64) (int64, error) {
	if r.db == nil {
		return 0, ErrDBNotReady
	}
	res := r.db.WithContext(ctx).Model(&model.PriceHistory{}).
		Where("owner_id = ? AND item_id = ? AND status = ?", ownerID, itemID, model.PriceHistoryActive).
		Update("status", model.PriceHistoryInactive)
	return res.RowsAffected, res.Error
}

func (r *priceHistoryRepository) ItemsWithActive(ctx context.Context, ownerID uint64, min int) ([]uint64, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var ids []uint64
	err := r.db.WithContext(ctx).Model(&model.PriceHistory{}).
		Where("owner_id = ? AND status = ?", ownerID, model.PriceHistoryActive).
		Group("item_id").
		Having("COUNT(*) >= ?", min).
		Order("item_id ASC").
		Pluck("item_id", &ids).Error
	return ids, err
}

func (r *priceHistoryRepository) WithTx(tx *gorm.DB) PriceHistoryRepository {
	return &priceHistoryRepository{db: tx}
}

func (r *priceHistoryRepository) SetDB(db *gorm.DB) {
	r.db = db
}
