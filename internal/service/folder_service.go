package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/shinyyama/inventory-backend/internal/apperr"
	"github.com/shinyyama/inventory-backend/internal/keylock"
	"github.com/shinyyama/inventory-backend/internal/logging"
	"github.com/shinyyama/inventory-backend/internal/model"
	"github.com/shinyyama/inventory-backend/internal/repository"
)

const (
	maxFolderName        = 100
	maxFolderDescription = 500
	// walkGuard bounds parent/child walks so corrupted rows cannot loop forever.
	walkGuard = 16
)

var folderSortColumns = map[string]string{
	"name":      "name",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

type FolderView struct {
	model.Folder
	Depth      int
	Path       []model.FolderRef
	ItemCount  int64
	ChildCount int64
}

type TreeNode struct {
	ID          uint64
	Name        string
	Description *string
	ParentID    *uint64
	Depth       int
	HasChildren bool
	ItemCount   *int64
	ChildCount  *int64
	Children    []*TreeNode
}

type TreeStats struct {
	TotalFolders      int
	DepthDistribution map[int]int
	MaxDepthReached   int
}

type FolderTree struct {
	Roots []*TreeNode
	Stats TreeStats
}

type CreateFolderInput struct {
	Name        string
	Description *string
	ParentID    *uint64
}

type UpdateFolderInput struct {
	Name        Optional[string]
	Description Optional[string]
	ParentID    Optional[uint64]
}

type FolderService interface {
	Create(ctx context.Context, ownerID uint64, in CreateFolderInput) (*FolderView, error)
	Get(ctx context.Context, ownerID, id uint64) (*FolderView, error)
	List(ctx context.Context, ownerID uint64, parentID *uint64, sort, order string) ([]FolderView, error)
	Update(ctx context.Context, ownerID, id uint64, in UpdateFolderInput) (*FolderView, error)
	Move(ctx context.Context, ownerID, id uint64, targetParentID *uint64) (*FolderView, error)
	// Delete removes an empty-of-folders folder and returns how many items became unfiled.
	Delete(ctx context.Context, ownerID, id uint64) (int64, error)
	Tree(ctx context.Context, ownerID uint64, maxDepth int, includeCounts bool) (*FolderTree, error)
	Path(ctx context.Context, ownerID, id uint64) ([]model.FolderRef, error)
	Items(ctx context.Context, ownerID, id uint64, page PageRequest, sort, order string) (PageResult[model.Item], error)
}

// folderService serialises structural changes per owner and re-checks every
// invariant inside the transaction that writes.
type folderService struct {
	tx      repository.Transactor
	folders repository.FolderRepository
	items   repository.ItemRepository
	locks   *keylock.Map[uint64]
	log     *zap.Logger
}

func NewFolderService(tx repository.Transactor, folders repository.FolderRepository, items repository.ItemRepository, log *zap.Logger) FolderService {
	if log == nil {
		log = zap.NewNop()
	}
	return &folderService{
		tx:      tx,
		folders: folders,
		items:   items,
		locks:   keylock.New[uint64](),
		log:     log,
	}
}

func (s *folderService) Create(ctx context.Context, ownerID uint64, in CreateFolderInput) (*FolderView, error) {
	name, err := cleanFolderName(in.Name)
	if err != nil {
		return nil, err
	}
	desc := trimPtr(in.Description)
	if err := checkDescription(desc); err != nil {
		return nil, err
	}

	unlock, err := s.locks.Lock(ctx, ownerID)
	if err != nil {
		return nil, interrupted(err)
	}
	defer unlock()

	f := &model.Folder{Name: name, Description: desc, ParentID: in.ParentID, OwnerID: ownerID}
	err = s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		folders := s.folders.WithTx(tx)
		if in.ParentID != nil {
			parent, err := folders.FindByID(ctx, ownerID, *in.ParentID)
			if err != nil {
				return notFound(err, msgParentNotFound)
			}
			chain, err := ancestry(ctx, folders, ownerID, parent)
			if err != nil {
				return err
			}
			if len(chain)+1 > model.MaxFolderDepth {
				return apperr.BadRequest(msgDepthExceeded)
			}
		}
		if err := checkSiblingName(ctx, folders, ownerID, in.ParentID, name, 0); err != nil {
			return err
		}
		return wrapInternal(folders.Create(ctx, f))
	})
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx, s.log).Info("folder created", zap.Uint64("folder_id", f.ID))
	return s.Get(ctx, ownerID, f.ID)
}

func (s *folderService) Get(ctx context.Context, ownerID, id uint64) (*FolderView, error) {
	f, err := s.folders.FindByID(ctx, ownerID, id)
	if err != nil {
		return nil, notFound(err, msgFolderNotFound)
	}
	chain, err := ancestry(ctx, s.folders, ownerID, f)
	if err != nil {
		return nil, err
	}
	items, err := s.folders.CountItems(ctx, ownerID, id)
	if err != nil {
		return nil, wrapInternal(err)
	}
	children, err := s.folders.CountChildren(ctx, ownerID, id)
	if err != nil {
		return nil, wrapInternal(err)
	}
	return &FolderView{
		Folder:     *f,
		Depth:      len(chain),
		Path:       refs(chain),
		ItemCount:  items,
		ChildCount: children,
	}, nil
}

func (s *folderService) List(ctx context.Context, ownerID uint64, parentID *uint64, sort, order string) ([]FolderView, error) {
	depth := 1
	var path []model.FolderRef
	if parentID != nil {
		parent, err := s.folders.FindByID(ctx, ownerID, *parentID)
		if err != nil {
			return nil, notFound(err, msgParentNotFound)
		}
		chain, err := ancestry(ctx, s.folders, ownerID, parent)
		if err != nil {
			return nil, err
		}
		depth = len(chain) + 1
		path = refs(chain)
	}

	col, ok := folderSortColumns[sort]
	if !ok {
		col = "name"
	}
	dir := "ASC"
	if strings.EqualFold(order, "desc") {
		dir = "DESC"
	}

	list, err := s.folders.ListChildren(ctx, ownerID, parentID, col+" "+dir)
	if err != nil {
		return nil, wrapInternal(err)
	}
	ids := folderIDs(list)
	itemCounts, err := s.folders.ItemCounts(ctx, ownerID, ids)
	if err != nil {
		return nil, wrapInternal(err)
	}
	childCounts, err := s.folders.ChildCounts(ctx, ownerID, ids)
	if err != nil {
		return nil, wrapInternal(err)
	}

	out := make([]FolderView, 0, len(list))
	for _, f := range list {
		p := append(append([]model.FolderRef{}, path...), model.FolderRef{ID: f.ID, Name: f.Name})
		out = append(out, FolderView{
			Folder:     f,
			Depth:      depth,
			Path:       p,
			ItemCount:  itemCounts[f.ID],
			ChildCount: childCounts[f.ID],
		})
	}
	return out, nil
}

func (s *folderService) Update(ctx context.Context, ownerID, id uint64, in UpdateFolderInput) (*FolderView, error) {
	var newName string
	if in.Name.Set {
		if in.Name.Value == nil {
			return nil, apperr.FieldError("name", "フォルダ名を入力してください")
		}
		name, err := cleanFolderName(*in.Name.Value)
		if err != nil {
			return nil, err
		}
		newName = name
	}
	var desc *string
	if in.Description.Set {
		desc = trimPtr(in.Description.Value)
		if err := checkDescription(desc); err != nil {
			return nil, err
		}
	}

	unlock, err := s.locks.Lock(ctx, ownerID)
	if err != nil {
		return nil, interrupted(err)
	}
	defer unlock()

	err = s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		folders := s.folders.WithTx(tx)
		f, err := folders.FindByID(ctx, ownerID, id)
		if err != nil {
			return notFound(err, msgFolderNotFound)
		}

		fields := map[string]interface{}{}
		name := f.Name
		if in.Name.Set && newName != f.Name {
			name = newName
			fields["name"] = newName
		}
		if in.Description.Set {
			fields["description"] = nullableString(desc)
		}

		if in.ParentID.Set && !sameID(in.ParentID.Value, f.ParentID) {
			if err := checkReparent(ctx, folders, ownerID, f, in.ParentID.Value, name); err != nil {
				return err
			}
			fields["parent_id"] = nullableID(in.ParentID.Value)
		} else if _, renamed := fields["name"]; renamed {
			if err := checkSiblingName(ctx, folders, ownerID, f.ParentID, name, f.ID); err != nil {
				return err
			}
		}

		if len(fields) == 0 {
			return nil
		}
		return wrapInternal(folders.UpdateFields(ctx, ownerID, id, fields))
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, ownerID, id)
}

func (s *folderService) Move(ctx context.Context, ownerID, id uint64, targetParentID *uint64) (*FolderView, error) {
	unlock, err := s.locks.Lock(ctx, ownerID)
	if err != nil {
		return nil, interrupted(err)
	}
	defer unlock()

	err = s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		folders := s.folders.WithTx(tx)
		f, err := folders.FindByID(ctx, ownerID, id)
		if err != nil {
			return notFound(err, msgFolderNotFound)
		}
		if sameID(f.ParentID, targetParentID) {
			return apperr.BadRequest(msgAlreadyHere)
		}
		if err := checkReparent(ctx, folders, ownerID, f, targetParentID, f.Name); err != nil {
			return err
		}
		return wrapInternal(folders.UpdateFields(ctx, ownerID, id, map[string]interface{}{
			"parent_id": nullableID(targetParentID),
		}))
	})
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx, s.log).Info("folder moved", zap.Uint64("folder_id", id))
	return s.Get(ctx, ownerID, id)
}

func (s *folderService) Delete(ctx context.Context, ownerID, id uint64) (int64, error) {
	unlock, err := s.locks.Lock(ctx, ownerID)
	if err != nil {
		return 0, interrupted(err)
	}
	defer unlock()

	var unfiled int64
	err = s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		folders := s.folders.WithTx(tx)
		if _, err := folders.FindByID(ctx, ownerID, id); err != nil {
			return notFound(err, msgFolderNotFound)
		}
		children, err := folders.CountChildren(ctx, ownerID, id)
		if err != nil {
			return wrapInternal(err)
		}
		if children > 0 {
			names, err := folders.ListChildNames(ctx, ownerID, id, 3)
			if err != nil {
				return wrapInternal(err)
			}
			return apperr.BadRequest(hasChildrenMessage(names, children))
		}

		n, err := s.items.WithTx(tx).UnfileByFolder(ctx, ownerID, id)
		if err != nil {
			return wrapInternal(err)
		}
		if err := folders.Delete(ctx, ownerID, id); err != nil {
			return wrapInternal(err)
		}
		unfiled = n
		return nil
	})
	if err != nil {
		return 0, err
	}

	logging.FromContext(ctx, s.log).Info("folder deleted",
		zap.Uint64("folder_id", id), zap.Int64("unfiled_items", unfiled))
	return unfiled, nil
}

func (s *folderService) Tree(ctx context.Context, ownerID uint64, maxDepth int, includeCounts bool) (*FolderTree, error) {
	if maxDepth < 1 || maxDepth > model.MaxFolderDepth {
		maxDepth = model.MaxFolderDepth
	}

	tree := &FolderTree{
		Roots: []*TreeNode{},
		Stats: TreeStats{DepthDistribution: map[int]int{}},
	}
	roots, err := s.folders.ListChildren(ctx, ownerID, nil, "")
	if err != nil {
		return nil, wrapInternal(err)
	}

	var all []*TreeNode
	byID := map[uint64]*TreeNode{}
	level := roots
	for depth := 1; depth <= maxDepth && len(level) > 0; depth++ {
		var ids []uint64
		for _, f := range level {
			n := &TreeNode{
				ID:          f.ID,
				Name:        f.Name,
				Description: f.Description,
				ParentID:    f.ParentID,
				Depth:       depth,
				Children:    []*TreeNode{},
			}
			if parent, ok := byID[derefID(f.ParentID)]; ok && f.ParentID != nil {
				parent.Children = append(parent.Children, n)
			} else {
				tree.Roots = append(tree.Roots, n)
			}
			byID[f.ID] = n
			all = append(all, n)
			ids = append(ids, f.ID)

			tree.Stats.DepthDistribution[depth]++
			tree.Stats.MaxDepthReached = depth
		}
		if depth == maxDepth {
			break
		}
		if level, err = s.folders.ListByParents(ctx, ownerID, ids); err != nil {
			return nil, wrapInternal(err)
		}
	}
	tree.Stats.TotalFolders = len(all)

	ids := make([]uint64, 0, len(all))
	for _, n := range all {
		ids = append(ids, n.ID)
	}
	childCounts, err := s.folders.ChildCounts(ctx, ownerID, ids)
	if err != nil {
		return nil, wrapInternal(err)
	}
	var itemCounts map[uint64]int64
	if includeCounts {
		if itemCounts, err = s.folders.ItemCounts(ctx, ownerID, ids); err != nil {
			return nil, wrapInternal(err)
		}
	}
	for _, n := range all {
		cc := childCounts[n.ID]
		n.HasChildren = cc > 0
		if includeCounts {
			ic := itemCounts[n.ID]
			n.ChildCount = &cc
			n.ItemCount = &ic
		}
	}
	return tree, nil
}

func (s *folderService) Path(ctx context.Context, ownerID, id uint64) ([]model.FolderRef, error) {
	f, err := s.folders.FindByID(ctx, ownerID, id)
	if err != nil {
		return nil, notFound(err, msgFolderNotFound)
	}
	chain, err := ancestry(ctx, s.folders, ownerID, f)
	if err != nil {
		return nil, err
	}
	return refs(chain), nil
}

func (s *folderService) Items(ctx context.Context, ownerID, id uint64, page PageRequest, sort, order string) (PageResult[model.Item], error) {
	if _, err := s.folders.FindByID(ctx, ownerID, id); err != nil {
		return PageResult[model.Item]{}, notFound(err, msgFolderNotFound)
	}
	page = page.normalize()
	list, total, err := s.items.Search(ctx, repository.ItemFilter{
		OwnerID:    ownerID,
		FolderID:   &id,
		SortColumn: itemSortColumn(sort),
		Desc:       isDesc(order),
		Limit:      page.Limit,
		Offset:     page.offset(),
	})
	if err != nil {
		return PageResult[model.Item]{}, wrapInternal(err)
	}
	return newPageResult(list, total, page), nil
}

// checkReparent validates moving f under newParent (nil means root) and keeping name.
func checkReparent(ctx context.Context, folders repository.FolderRepository, ownerID uint64, f *model.Folder, newParent *uint64, name string) error {
	descendants, height, err := subtree(ctx, folders, ownerID, f.ID)
	if err != nil {
		return err
	}

	parentDepth := 0
	if newParent != nil {
		if *newParent == f.ID {
			return apperr.BadRequest(msgSelfParent)
		}
		parent, err := folders.FindByID(ctx, ownerID, *newParent)
		if err != nil {
			return notFound(err, msgParentNotFound)
		}
		if _, ok := descendants[parent.ID]; ok {
			return apperr.BadRequest(msgCycle)
		}
		chain, err := ancestry(ctx, folders, ownerID, parent)
		if err != nil {
			return err
		}
		parentDepth = len(chain)
	}
	if parentDepth+height > model.MaxFolderDepth {
		return apperr.BadRequest(msgDepthExceeded)
	}
	return checkSiblingName(ctx, folders, ownerID, newParent, name, f.ID)
}

func checkSiblingName(ctx context.Context, folders repository.FolderRepository, ownerID uint64, parentID *uint64, name string, excludeID uint64) error {
	exists, err := folders.ExistsSiblingName(ctx, ownerID, parentID, name, excludeID)
	if err != nil {
		return wrapInternal(err)
	}
	if exists {
		return apperr.Conflict(msgDuplicateFolder)
	}
	return nil
}

// ancestry returns the chain from the root down to f, inclusive.
func ancestry(ctx context.Context, folders repository.FolderRepository, ownerID uint64, f *model.Folder) ([]model.Folder, error) {
	chain := []model.Folder{*f}
	cur := f
	for cur.ParentID != nil {
		if len(chain) >= walkGuard {
			return nil, apperr.Internal(fmt.Errorf("folder %d: parent chain exceeds %d", f.ID, walkGuard))
		}
		parent, err := folders.FindByID(ctx, ownerID, *cur.ParentID)
		if err != nil {
			return nil, wrapInternal(err)
		}
		chain = append(chain, *parent)
		cur = parent
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// subtree walks down from id one level at a time. It returns every descendant
// and the height of the subtree, counting id itself as 1.
func subtree(ctx context.Context, folders repository.FolderRepository, ownerID, id uint64) (map[uint64]struct{}, int, error) {
	seen := map[uint64]struct{}{}
	height := 1
	frontier := []uint64{id}
	for i := 0; i < walkGuard; i++ {
		children, err := folders.ListByParents(ctx, ownerID, frontier)
		if err != nil {
			return nil, 0, wrapInternal(err)
		}
		frontier = frontier[:0]
		for _, c := range children {
			if _, ok := seen[c.ID]; ok || c.ID == id {
				continue
			}
			seen[c.ID] = struct{}{}
			frontier = append(frontier, c.ID)
		}
		if len(frontier) == 0 {
			return seen, height, nil
		}
		height++
	}
	return nil, 0, apperr.Internal(fmt.Errorf("folder %d: subtree deeper than %d", id, walkGuard))
}

func cleanFolderName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperr.FieldError("name", "フォルダ名を入力してください")
	}
	if utf8.RuneCountInString(name) > maxFolderName {
		return "", apperr.FieldError("name", fmt.Sprintf("フォルダ名は%d文字以内で入力してください", maxFolderName))
	}
	return name, nil
}

func checkDescription(desc *string) error {
	if desc != nil && utf8.RuneCountInString(*desc) > maxFolderDescription {
		return apperr.FieldError("description", fmt.Sprintf("説明は%d文字以内で入力してください", maxFolderDescription))
	}
	return nil
}

func hasChildrenMessage(names []string, total int64) string {
	msg := "子フォルダが存在するため削除できません（" + strings.Join(names, "、")
	if extra := total - int64(len(names)); extra > 0 {
		msg += fmt.Sprintf(" 他%d件", extra)
	}
	return msg + "）"
}

func refs(chain []model.Folder) []model.FolderRef {
	out := make([]model.FolderRef, 0, len(chain))
	for _, f := range chain {
		out = append(out, model.FolderRef{ID: f.ID, Name: f.Name})
	}
	return out
}

func folderIDs(list []model.Folder) []uint64 {
	ids := make([]uint64, 0, len(list))
	for _, f := range list {
		ids = append(ids, f.ID)
	}
	return ids
}

func derefID(p *uint64) uint64 {
	if p == nil {
		return 0
	}
	return *p
}
