package model

import "time"

// MaxFolderDepth is the deepest level a folder may sit at; roots are depth 1.
const MaxFolderDepth = 3

type Folder struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	Name        string    `gorm:"size:100;not null"`
	Description *string   `gorm:"size:500"`
	ParentID    *uint64   `gorm:"column:parent_id;index:idx_folders_owner_parent"`
	OwnerID     uint64    `gorm:"column:owner_id;not null;index:idx_folders_owner_parent"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (Folder) TableName() string {
	return "folders"
}

// FolderRef is one hop of a folder path.
type FolderRef struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}
