package repository

import (
	"context"

	"github.com/shinyyama/inventory-backend/internal/model"
	"gorm.io/gorm"
)

// FolderRepository reads and writes folders. Every call is scoped to one owner.
type FolderRepository interface {
	Create(ctx context.Context, f *model.Folder) error
	FindByID(ctx context.Context, ownerID, id uint64) (*model.Folder, error)
	// ListChildren returns folders under parentID, or root folders when parentID is nil.
	ListChildren(ctx context.Context, ownerID uint64, parentID *uint64, orderBy string) ([]model.Folder, error)
	ListByParents(ctx context.Context, ownerID uint64, parentIDs []uint64) ([]model.Folder, error)
	CountChildren(ctx context.Context, ownerID, id uint64) (int64, error)
	ListChildNames(ctx context.Context, ownerID, id uint64, limit int) ([]string, error)
	ExistsSiblingName(ctx context.Context, ownerID uint64, parentID *uint64, name string, excludeID uint64) (bool, error)
	UpdateFields(ctx context.Context, ownerID, id uint64, fields map[string]interface{}) error
	Delete(ctx context.Context, ownerID, id uint64) error
	CountItems(ctx context.Context, ownerID, folderID uint64) (int64, error)
	ItemCounts(ctx context.Context, ownerID uint64, folderIDs []uint64) (map[uint64]int64, error)
	ChildCounts(ctx context.Context, ownerID uint64, folderIDs []uint64) (map[uint64]int64, error)
	CountByOwner(ctx context.Context, ownerID uint64) (int64, error)
	WithTx(tx *gorm.DB) FolderRepository
	SetDB(db *gorm.DB)
}

type folderRepository struct {
	db *gorm.DB
}

func NewFolderRepository(db *gorm.DB) FolderRepository {
	return &folderRepository{db: db}
}

func (r *folderRepository) Create(ctx context.Context, f *model.Folder) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *folderRepository) FindByID(ctx context.Context, ownerID, id uint64) (*model.Folder, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var f model.Folder
	if err := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&f).Error; err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *folderRepository) ListChildren(ctx context.Context, ownerID uint64, parentID *uint64, orderBy string) ([]model.Folder, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	if orderBy == "" {
		orderBy = "name ASC"
	}
	var list []model.Folder
	if err := scopeParent(r.db.WithContext(ctx), parentID).
		Where("owner_id = ?", ownerID).
		Order(orderBy).
		Order("id ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *folderRepository) ListByParents(ctx context.Context, ownerID uint64, parentIDs []uint64) ([]model.Folder, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	if len(parentIDs) == 0 {
		return nil, nil
	}
	var list []model.Folder
	if err := r.db.WithContext(ctx).
		Where("owner_id = ? AND parent_id IN ?", ownerID, parentIDs).
		Order("name ASC").
		Order("id ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *folderRepository) CountChildren(ctx context.Context, ownerID, id uint64) (int64, error) {
	if r.db == nil {
		return 0, ErrDBNotReady
	}
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Folder{}).
		Where("owner_id = ? AND parent_id = ?", ownerID, id).
		Count(&n).Error
	return n, err
}

func (r *folderRepository) ListChildNames(ctx context.Context, ownerID, id uint64, limit int) ([]string, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var names []string
	err := r.db.WithContext(ctx).Model(&model.Folder{}).
		Where("owner_id = ? AND parent_id = ?", ownerID, id).
		Order("name ASC").
		Limit(limit).
		Pluck("name", &names).Error
	return names, err
}

func (r *folderRepository) ExistsSiblingName(ctx context.Context, ownerID uint64, parentID *uint64, name string, excludeID uint64) (bool, error) {
	if r.db == nil {
		return false, ErrDBNotReady
	}
	q := scopeParent(r.db.WithContext(ctx).Model(&model.Folder{}), parentID).
		Where("owner_id = ? AND name = ?", ownerID, name)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *folderRepository) UpdateFields(ctx context.Context, ownerID, id uint64, fields map[string]interface{}) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	res := r.db.WithContext(ctx).Model(&model.Folder{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *folderRepository) Delete(ctx context.Context, ownerID, id uint64) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	res := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Delete(&model.Folder{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *folderRepository) CountItems(ctx context.Context, ownerID, folderID uint64) (int64, error) {
	if r.db == nil {
		return 0, ErrDBNotReady
	}
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Item{}).
		Where("owner_id = ? AND folder_id = ?", ownerID, folderID).
		Count(&n).Error
	return n, err
}

type groupCount struct {
	GroupKey uint64
	N        int64
}

func (r *folderRepository) ItemCounts(ctx context.Context, ownerID uint64, folderIDs []uint64) (map[uint64]int64, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	return r.groupCounts(ctx, &model.Item{}, "folder_id", ownerID, folderIDs)
}

func (r *folderRepository) ChildCounts(ctx context.Context, ownerID uint64, folderIDs []uint64) (map[uint64]int64, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	return r.groupCounts(ctx, &model.Folder{}, "parent_id", ownerID, folderIDs)
}

func (r *folderRepository) groupCounts(ctx context.Context, table interface{}, column string, ownerID uint64, ids []uint64) (map[uint64]int64, error) {
	out := make(map[uint64]int64, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []groupCount
	if err := r.db.WithContext(ctx).Model(table).
		Select(column + " AS group_key, COUNT(*) AS n").
		Where("owner_id = ? AND "+column+" IN ?", ownerID, ids).
		Group(column).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.GroupKey] = row.N
	}
	return out, nil
}

func (r *folderRepository) CountByOwner(ctx context.Context, ownerID uint64) (int64, error) {
	if r.db == nil {
		return 0, ErrDBNotReady
	}
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Folder{}).Where("owner_id = ?", ownerID).Count(&n).Error
	return n, err
}

func (r *folderRepository) WithTx(tx *gorm.DB) FolderRepository {
	return &folderRepository{db: tx}
}

func (r *folderRepository) SetDB(db *gorm.DB) {
	r.db = db
}

func scopeParent(q *gorm.DB, parentID *uint64) *gorm.DB {
	if parentID == nil {
		return q.Where("parent_id IS NULL")
	}
	return q.Where("parent_id = ?", *parentID)
}
