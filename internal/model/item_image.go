package model

import (
	"time"

	"gorm.io/datatypes"
)

const MaxImagesPerItem = 10

type ItemImage struct {
	ID         uint64         `gorm:"primaryKey;autoIncrement"`
	ItemID     uint64         `gorm:"column:item_id;not null;index:idx_item_images_item_id"`
	URL        string         `gorm:"column:url;size:1024;not null"`
	ObjectPath string         `gorm:"column:object_path;size:512;not null"`
	Filename   string         `gorm:"size:255"`
	MimeType   string         `gorm:"column:mime_type;size:64"`
	Size       int64          `gorm:"not null"`
	Order      int            `gorm:"column:position;not null"`
	Variants   datatypes.JSON `gorm:"column:variants"`
	CreatedAt  time.Time      `gorm:"autoCreateTime"`
}

func (ItemImage) TableName() string {
	return "item_images"
}

// ImageVariant is a resized copy stored next to the original.
type ImageVariant struct {
	URL        string `json:"url"`
	ObjectPath string `json:"objectPath"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
}
