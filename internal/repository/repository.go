package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var ErrDBNotReady = errors.New("database not initialized")

// Transactor runs fn inside one database transaction. Repositories bound to tx
// through their WithTx method take part in it.
type Transactor interface {
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
	SetDB(db *gorm.DB)
}

type gormTransactor struct {
	db *gorm.DB
}

func NewTransactor(db *gorm.DB) Transactor {
	return &gormTransactor{db: db}
}

func (t *gormTransactor) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if t.db == nil {
		return ErrDBNotReady
	}
	return t.db.WithContext(ctx).Transaction(fn)
}

func (t *gormTransactor) SetDB(db *gorm.DB) {
	t.db = db
}

// IsNotFound reports whether err means the row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
