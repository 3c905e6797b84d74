package model

// All lists every table managed by AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Folder{},
		&Item{},
		&ItemImage{},
		&PriceHistory{},
		&PriceHistoryDetail{},
		&AIUsageLog{},
	}
}
