package model

import "time"

type PriceHistoryStatus string

const (
	PriceHistoryActive   PriceHistoryStatus = "active"
	PriceHistoryInactive PriceHistoryStatus = "inactive"
)

type PriceHistory struct {
	ID           uint64               `gorm:"primaryKey;autoIncrement"`
	ItemID       uint64               `gorm:"column:item_id;not null;index:idx_price_histories_item"`
	OwnerID      uint64               `gorm:"column:owner_id;not null;index"`
	Source       string               `gorm:"size:64;not null"`
	SearchDate   time.Time            `gorm:"column:search_date;not null;index:idx_price_histories_item"`
	MinPrice     *int64               `gorm:"column:min_price"`
	AvgPrice     *int64               `gorm:"column:avg_price"`
	MaxPrice     *int64               `gorm:"column:max_price"`
	ListingCount int                  `gorm:"column:listing_count;not null"`
	Summary      string               `gorm:"type:text"`
	Status       PriceHistoryStatus   `gorm:"column:status;size:16;not null;default:active"`
	Details      []PriceHistoryDetail `gorm:"foreignKey:PriceHistoryID"`
	CreatedAt    time.Time            `gorm:"autoCreateTime"`
	UpdatedAt    time.Time            `gorm:"autoUpdateTime"`
}

func (PriceHistory) TableName() string {
	return "price_histories"
}

func (p PriceHistory) IsActive() bool {
	return p.Status == PriceHistoryActive
}

type PriceHistoryDetail struct {
	ID             uint64 `gorm:"primaryKey;autoIncrement"`
	PriceHistoryID uint64 `gorm:"column:price_history_id;not null;index"`
	Site           string `gorm:"size:120"`
	Price          string `gorm:"size:64"`
	URL            string `gorm:"column:url;size:1024"`
	Condition      string `gorm:"column:item_condition;size:64"`
	Title          string `gorm:"size:512"`
}

func (PriceHistoryDetail) TableName() string {
	return "price_history_details"
}
