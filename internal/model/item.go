package model

import "time"

type ItemCondition string

const (
	ConditionNew     ItemCondition = "new"
	ConditionLikeNew ItemCondition = "like_new"
	ConditionGood    ItemCondition = "good"
	ConditionFair    ItemCondition = "fair"
	ConditionPoor    ItemCondition = "poor"
)

func (c ItemCondition) Valid() bool {
	switch c {
	case ConditionNew, ConditionLikeNew, ConditionGood, ConditionFair, ConditionPoor:
		return true
	}
	return false
}

type Item struct {
	ID               uint64         `gorm:"primaryKey;autoIncrement"`
	Name             string         `gorm:"size:200;not null"`
	Description      *string        `gorm:"type:text"`
	Category         *string        `gorm:"size:100;index"`
	Manufacturer     *string        `gorm:"size:200"`
	PurchaseDate     *time.Time     `gorm:"column:purchase_date"`
	PurchasePrice    *int64         `gorm:"column:purchase_price"`
	PurchaseLocation *string        `gorm:"column:purchase_location;size:200"`
	Condition        *ItemCondition `gorm:"column:item_condition;size:20"`
	Notes            *string        `gorm:"type:text"`
	FolderID         *uint64        `gorm:"column:folder_id;index"`
	OwnerID          uint64         `gorm:"column:owner_id;not null;index"`
	CreatedAt        time.Time      `gorm:"autoCreateTime"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime"`
	Images           []ItemImage    `gorm:"foreignKey:ItemID"`
}

func (Item) TableName() string {
	return "items"
}
