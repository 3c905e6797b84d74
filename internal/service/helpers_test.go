package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shinyyama/inventory-backend/internal/ai"
	"github.com/shinyyama/inventory-backend/internal/apperr"
	"github.com/shinyyama/inventory-backend/internal/db"
	"github.com/shinyyama/inventory-backend/internal/marketprice"
	"github.com/shinyyama/inventory-backend/internal/model"
	"github.com/shinyyama/inventory-backend/internal/ratelimit"
	"github.com/shinyyama/inventory-backend/internal/repository"
)

type memBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newMemBlobs() *memBlobs {
	return &memBlobs{objects: map[string][]byte{}}
}

func (m *memBlobs) Put(_ context.Context, path, _ string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[path] = data
	return "https://blobs.test/" + path, nil
}

func (m *memBlobs) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, path)
	m.deleted = append(m.deleted, path)
	return nil
}

func (m *memBlobs) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

type stubRecognizer struct {
	result *ai.Recognition
	err    error
	calls  int
}

func (s *stubRecognizer) Recognize(context.Context, []byte, string) (*ai.Recognition, error) {
	s.calls++
	return s.result, s.err
}

type stubSearcher struct {
	result *marketprice.Result
	err    error
	query  string
}

func (s *stubSearcher) Search(_ context.Context, query string) (*marketprice.Result, error) {
	s.query = query
	return s.result, s.err
}

type fixture struct {
	db         *gorm.DB
	users      repository.UserRepository
	usage      repository.AIUsageRepository
	itemRepo   repository.ItemRepository
	priceRepo  repository.PriceHistoryRepository
	blobs      *memBlobs
	recognizer *stubRecognizer
	searcher   *stubSearcher

	Folders   FolderService
	Items     ItemService
	Images    ImageService
	Prices    PriceService
	AI        AIService
	Users     UserService
	Dashboard DashboardService
}

func newFixture(t *testing.T, limiter ratelimit.Limiter) *fixture {
	t.Helper()
	gdb := db.NewTestDB(t)
	if limiter == nil {
		limiter = ratelimit.NewSlidingWindow(15, time.Minute)
	}

	tx := repository.NewTransactor(gdb)
	folders := repository.NewFolderRepository(gdb)
	items := repository.NewItemRepository(gdb)
	images := repository.NewImageRepository(gdb)
	prices := repository.NewPriceHistoryRepository(gdb)
	users := repository.NewUserRepository(gdb)
	usage := repository.NewAIUsageRepository(gdb)

	f := &fixture{
		db:         gdb,
		users:      users,
		usage:      usage,
		itemRepo:   items,
		priceRepo:  prices,
		blobs:      newMemBlobs(),
		recognizer: &stubRecognizer{},
		searcher:   &stubSearcher{},
	}
	f.Folders = NewFolderService(tx, folders, items, nil)
	f.Items = NewItemService(tx, items, folders, images, prices, f.blobs, nil)
	f.Images = NewImageService(tx, items, images, f.blobs, nil)
	f.Prices = NewPriceService(items, prices, f.searcher, limiter, users, usage, nil)
	f.AI = NewAIService(f.recognizer, limiter, users, usage, nil)
	f.Users = NewUserService(users, 30, nil)
	f.Dashboard = NewDashboardService(items, folders, prices)
	return f
}

func (f *fixture) user(t *testing.T, uid string) *model.User {
	t.Helper()
	u, err := f.Users.Ensure(context.Background(), Identity{AuthUID: uid, Email: uid + "@example.com"})
	require.NoError(t, err)
	return u
}

func (f *fixture) folder(t *testing.T, owner uint64, name string, parent *uint64) uint64 {
	t.Helper()
	v, err := f.Folders.Create(context.Background(), owner, CreateFolderInput{Name: name, ParentID: parent})
	require.NoError(t, err)
	return v.ID
}

func (f *fixture) item(t *testing.T, owner uint64, name string, folder *uint64) *model.Item {
	t.Helper()
	it, err := f.Items.Create(context.Background(), owner, ItemInput{Name: name, FolderID: folder})
	require.NoError(t, err)
	return it
}

func requireKind(t *testing.T, err error, kind apperr.Kind) *apperr.Error {
	t.Helper()
	require.Error(t, err)
	var ae *apperr.Error
	require.True(t, errors.As(err, &ae), "got %T: %v", err, err)
	require.Equal(t, kind, ae.Kind, ae.Error())
	return ae
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func ptr[T any](v T) *T { return &v }
