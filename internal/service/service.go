package service

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/shinyyama/inventory-backend/internal/apperr"
	"github.com/shinyyama/inventory-backend/internal/repository"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
	MaxPage          = 10000
)

const (
	msgFolderNotFound  = "フォルダが見つかりません"
	msgParentNotFound  = "親フォルダが見つかりません"
	msgDepthExceeded   = "階層は3階層までです"
	msgDuplicateFolder = "同じ階層に同じ名前のフォルダが既に存在します"
	msgSelfParent      = "フォルダを自分自身の子にすることはできません"
	msgCycle           = "フォルダを自身の子孫フォルダへ移動することはできません"
	msgAlreadyHere     = "既にこの場所にあります"
	msgItemNotFound    = "アイテムが見つかりません"
	msgImageNotFound   = "画像が見つかりません"
	msgHistoryNotFound = "価格履歴が見つかりません"
	msgUserNotFound    = "ユーザーが見つかりません"
	msgInterrupted     = "リクエストが中断されました"
)

// PageRequest is a 1-based page of at most Limit rows.
type PageRequest struct {
	Page  int
	Limit int
}

func (p PageRequest) normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

func (p PageRequest) offset() int {
	return (p.Page - 1) * p.Limit
}

type PageResult[T any] struct {
	Items      []T
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

func newPageResult[T any](items []T, total int64, p PageRequest) PageResult[T] {
	pages := int((total + int64(p.Limit) - 1) / int64(p.Limit))
	if items == nil {
		items = []T{}
	}
	return PageResult[T]{Items: items, Total: total, Page: p.Page, Limit: p.Limit, TotalPages: pages}
}

// Optional is a patch slot decoded from JSON: absent keys leave Set false,
// an explicit null sets it with a nil Value.
type Optional[T any] struct {
	Set   bool
	Value *T
}

func Some[T any](v T) Optional[T] { return Optional[T]{Set: true, Value: &v} }

func Null[T any]() Optional[T] { return Optional[T]{Set: true} }

func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// Sort orders are "asc" or "desc"; anything else falls back to desc.
func isDesc(order string) bool {
	return !strings.EqualFold(order, "asc")
}

// notFound converts a missing row into a NotFound error and wraps everything else as internal.
func notFound(err error, msg string) error {
	if repository.IsNotFound(err) {
		return apperr.NotFound(msg)
	}
	return wrapInternal(err)
}

// interrupted reports a lock wait cut short by the caller's context.
func interrupted(err error) error {
	return apperr.Wrap(apperr.KindBadRequest, msgInterrupted, err)
}

// wrapInternal leaves classified errors alone.
func wrapInternal(err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Internal(err)
}

func sameID(a, b *uint64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func nullableID(p *uint64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func nullableString(p *string) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
