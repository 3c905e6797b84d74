package repository

import (
	"context"
	"time"

	"github.com/shinyyama/inventory-backend/internal/model"
	"gorm.io/gorm"
)

type AIUsageRepository interface {
	Create(ctx context.Context, log *model.AIUsageLog) error
	CountSince(ctx context.Context, userID uint64, since time.Time) (int64, error)
	SetDB(db *gorm.DB)
}

type aiUsageRepository struct {
	db *gorm.DB
}

func NewAIUsageRepository(db *gorm.DB) AIUsageRepository {
	return &aiUsageRepository{db: db}
}

func (r *aiUsageRepository) Create(ctx context.Context, log *model.AIUsageLog) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *aiUsageRepository) CountSince(ctx context.Context, userID uint64, since time.Time) (int64, error) {
	if r.db == nil {
		return 0, ErrDBNotReady
	}
	var n int64
	err := r.db.WithContext(ctx).Model(&model.AIUsageLog{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Count(&n).Error
	return n, err
}

func (r *aiUsageRepository) SetDB(db *gorm.DB) {
	r.db = db
}
