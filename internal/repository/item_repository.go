package repository

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/shinyyama/inventory-backend/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ItemFilter narrows an owner's items. Zero values mean "no constraint".
type ItemFilter struct {
	OwnerID   uint64
	Query     string
	Category  string
	Condition string
	FolderID  *uint64
	Unfiled   bool
	// SortColumn must be a real column name; callers map their own enum onto it.
	SortColumn string
	Desc       bool
	Limit      int
	Offset     int
}

// Where compiles the filter into a SQL predicate with "?" placeholders.
func (f ItemFilter) Where() (string, []interface{}, error) {
	cond := sq.And{sq.Eq{"owner_id": f.OwnerID}}
	if f.Query != "" {
		pat := "%" + likeEscaper.Replace(f.Query) + "%"
		cond = append(cond, sq.Or{
			contains("name", pat),
			contains("description", pat),
			contains("manufacturer", pat),
			contains("notes", pat),
		})
	}
	if f.Category != "" {
		cond = append(cond, sq.Eq{"category": f.Category})
	}
	if f.Condition != "" {
		cond = append(cond, sq.Eq{"item_condition": f.Condition})
	}
	switch {
	case f.Unfiled:
		cond = append(cond, sq.Eq{"folder_id": nil})
	case f.FolderID != nil:
		cond = append(cond, sq.Eq{"folder_id": *f.FolderID})
	}
	return cond.ToSql()
}

// '!' is the LIKE escape on both MySQL and SQLite; backslash literals differ between them.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func contains(col, pat string) sq.Sqlizer {
	return sq.Expr(col+" LIKE ? ESCAPE '!'", pat)
}

// ItemStats is an owner-wide aggregate used by the dashboard.
type ItemStats struct {
	Total      int64
	Unfiled    int64
	TotalValue int64
	ByCategory map[string]int64
}

type ItemRepository interface {
	Create(ctx context.Context, item *model.Item) error
	FindByID(ctx context.Context, ownerID, id uint64) (*model.Item, error)
	// OwnerOf returns the owner of an item regardless of caller.
	OwnerOf(ctx context.Context, id uint64) (uint64, error)
	Search(ctx context.Context, f ItemFilter) ([]model.Item, int64, error)
	Update(ctx context.Context, item *model.Item) error
	UpdateFolder(ctx context.Context, ownerID, id uint64, folderID *uint64) error
	UnfileByFolder(ctx context.Context, ownerID, folderID uint64) (int64, error)
	Delete(ctx context.Context, ownerID, id uint64) error
	Stats(ctx context.Context, ownerID uint64) (*ItemStats, error)
	WithTx(tx *gorm.DB) ItemRepository
	SetDB(db *gorm.DB)
}

type itemRepository struct {
	db *gorm.DB
}

func NewItemRepository(db *gorm.DB) ItemRepository {
	return &itemRepository{db: db}
}

func (r *itemRepository) Create(ctx context.Context, item *model.Item) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(item).Error
}

func (r *itemRepository) FindByID(ctx context.Context, ownerID, id uint64) (*model.Item, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var item model.Item
	if err := r.db.WithContext(ctx).
		Preload("Images", orderedImages).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *itemRepository) OwnerOf(ctx context.Context, id uint64) (uint64, error) {
	if r.db == nil {
		return 0, ErrDBNotReady
	}
	var item model.Item
	if err := r.db.WithContext(ctx).Select("id", "owner_id").First(&item, id).Error; err != nil {
		return 0, err
	}
	return item.OwnerID, nil
}

func (r *itemRepository) Search(ctx context.Context, f ItemFilter) ([]model.Item, int64, error) {
	if r.db == nil {
		return nil, 0, ErrDBNotReady
	}
	where, args, err := f.Where()
	if err != nil {
		return nil, 0, err
	}

	var (
		items []model.Item
		total int64
	)
	if err := r.db.WithContext(ctx).Model(&model.Item{}).Where(where, args...).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortCol := f.SortColumn
	if sortCol == "" {
		sortCol = "created_at"
	}
	if err := r.db.WithContext(ctx).
		Preload("Images", orderedImages).
		Where(where, args...).
		Order(clause.OrderByColumn{Column: clause.Column{Name: sortCol}, Desc: f.Desc}).
		Order("id DESC").
		Limit(f.Limit).
		Offset(f.Offset).
		Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *itemRepository) Update(ctx context.Context, item *model.Item) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(item).Error
}

func (r *itemRepository) UpdateFolder(ctx context.Context, ownerID, id uint64, folderID *uint64) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	var value interface{}
	if folderID != nil {
		value = *folderID
	}
	res := r.db.WithContext(ctx).Model(&model.Item{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Update("folder_id", value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *itemRepository) UnfileByFolder(ctx context.Context, ownerID, folderID uint64) (int64, error) {
	if r.db == nil {
		return 0, ErrDBNotReady
	}
	res := r.db.WithContext(ctx).Model(&model.Item{}).
		Where("owner_id = ? AND folder_id = ?", ownerID, folderID).
		Update("folder_id", nil)
	return res.RowsAffected, res.Error
}

func (r *itemRepository) Delete(ctx context.Context, ownerID, id uint64) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	res := r.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).Delete(&model.Item{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *itemRepository) Stats(ctx context.Context, ownerID uint64) (*ItemStats, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var agg struct {
		Total      int64
		Unfiled    int64
		TotalValue int64
	}
	if err := r.db.WithContext(ctx).Model(&model.Item{}).
		Select("COUNT(*) AS total, "+
			"COALESCE(SUM(CASE WHEN folder_id IS NULL THEN 1 ELSE 0 END), 0) AS unfiled, "+
			"COALESCE(SUM(purchase_price), 0) AS total_value").
		Where("owner_id = ?", ownerID).
		Scan(&agg).Error; err != nil {
		return nil, err
	}

	var rows []struct {
		Category string
		N        int64
	}
	if err := r.db.WithContext(ctx).Model(&model.Item{}).
		Select("category, COUNT(*) AS n").
		Where("owner_id = ? AND category IS NOT NULL AND category <> ''", ownerID).
		Group("category").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	stats := &ItemStats{
		Total:      agg.Total,
		Unfiled:    agg.Unfiled,
		TotalValue: agg.TotalValue,
		ByCategory: make(map[string]int64, len(rows)),
	}
	for _, row := range rows {
		stats.ByCategory[row.Category] = row.N
	}
	return stats, nil
}

func (r *itemRepository) WithTx(tx *gorm.DB) ItemRepository {
	return &itemRepository{db: tx}
}

func (r *itemRepository) SetDB(db *gorm.DB) {
	r.db = db
}

func orderedImages(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}
