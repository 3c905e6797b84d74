package model

import (
	"time"

	"gorm.io/datatypes"
)

type AIUsageKind string

const (
	AIUsageRecognize   AIUsageKind = "recognize"
	AIUsagePriceSearch AIUsageKind = "price_search"
)

type AIUsageLog struct {
	ID            uint64         `gorm:"primaryKey;autoIncrement"`
	UserID        uint64         `gorm:"column:user_id;not null;index"`
	Kind          AIUsageKind    `gorm:"column:kind;size:32;not null"`
	Success       bool           `gorm:"not null"`
	ErrorCategory string         `gorm:"column:error_category;size:32"`
	Metadata      datatypes.JSON `gorm:"column:metadata"`
	CreatedAt     time.Time      `gorm:"autoCreateTime"`
}

func (AIUsageLog) TableName() string {
	return "ai_usage_logs"
}
