package model

import "time"

type SubscriptionTier string

const (
	TierFree    SubscriptionTier = "free"
	TierPremium SubscriptionTier = "premium"
)

// User mirrors an identity from the auth provider and carries AI usage counters.
type User struct {
	ID               uint64           `gorm:"primaryKey;autoIncrement"`
	AuthUID          string           `gorm:"column:auth_uid;size:128;not null;uniqueIndex:uk_users_auth_uid"`
	Email            string           `gorm:"size:255;not null;uniqueIndex:uk_users_email"`
	Name             *string          `gorm:"size:120"`
	Image            *string          `gorm:"size:1024"`
	AIUsageCount     int              `gorm:"column:ai_usage_count;not null;default:0"`
	AIUsageLimit     int              `gorm:"column:ai_usage_limit;not null;default:30"`
	SubscriptionTier SubscriptionTier `gorm:"column:subscription_tier;size:20;not null;default:free"`
	CreatedAt        time.Time        `gorm:"autoCreateTime"`
	UpdatedAt        time.Time        `gorm:"autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}
