package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinyyama/inventory-backend/internal/db"
	"github.com/shinyyama/inventory-backend/internal/model"
)

func TestItemFilter_Where(t *testing.T) {
	folder := uint64(9)
	tests := []struct {
		name     string
		filter   ItemFilter
		wantSQL  string
		wantArgs []interface{}
	}{
		{
			name:     "owner only",
			filter:   ItemFilter{OwnerID: 1},
			wantSQL:  "(owner_id = ?)",
			wantArgs: []interface{}{uint64(1)},
		},
		{
			name:     "unfiled wins over folder",
			filter:   ItemFilter{OwnerID: 1, Unfiled: true, FolderID: &folder},
			wantSQL:  "(owner_id = ? AND folder_id IS NULL)",
			wantArgs: []interface{}{uint64(1)},
		},
		{
			name:    "query category folder",
			filter:  ItemFilter{OwnerID: 2, Query: "cam", Category: "photo", FolderID: &folder},
			wantSQL: "(owner_id = ? AND (name LIKE ? ESCAPE '!' OR description LIKE ? ESCAPE '!' OR manufacturer LIKE ? ESCAPE '!' OR notes LIKE ? ESCAPE '!') AND category = ? AND folder_id = ?)",
			wantArgs: []interface{}{
				uint64(2), "%cam%", "%cam%", "%cam%", "%cam%", "photo", uint64(9),
			},
		},
		{
			name:    "wildcards in query are literal",
			filter:  ItemFilter{OwnerID: 3, Query: "100%_!"},
			wantSQL: "(owner_id = ? AND (name LIKE ? ESCAPE '!' OR description LIKE ? ESCAPE '!' OR manufacturer LIKE ? ESCAPE '!' OR notes LIKE ? ESCAPE '!'))",
			wantArgs: []interface{}{
				uint64(3), "%100!%!_!!%", "%100!%!_!!%", "%100!%!_!!%", "%100!%!_!!%",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := tt.filter.Where()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func strPtr(s string) *string { return &s }

func TestItemRepository_SearchAndStats(t *testing.T) {
	gdb := db.NewTestDB(t)
	ctx := context.Background()
	folders := NewFolderRepository(gdb)
	items := NewItemRepository(gdb)

	f := &model.Folder{Name: "Cameras", OwnerID: 1}
	require.NoError(t, folders.Create(ctx, f))

	price := int64(50000)
	bought := time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC)
	seed := []*model.Item{
		{Name: "Canon EOS R6", Category: strPtr("camera"), FolderID: &f.ID, OwnerID: 1, PurchasePrice: &price, PurchaseDate: &bought},
		{Name: "Fuji X100V", Category: strPtr("camera"), OwnerID: 1},
		{Name: "Desk lamp", Notes: strPtr("canon-style hinge"), OwnerID: 1},
		{Name: "Canon printer", OwnerID: 2},
	}
	for _, it := range seed {
		require.NoError(t, items.Create(ctx, it))
	}

	got, total, err := items.Search(ctx, ItemFilter{OwnerID: 1, Query: "canon", SortColumn: "name", Limit: 10})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	assert.Equal(t, "Canon EOS R6", got[0].Name)
	assert.Equal(t, "Desk lamp", got[1].Name)

	_, total, err = items.Search(ctx, ItemFilter{OwnerID: 1, Unfiled: true, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	stats, err := items.Stats(ctx, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.Total)
	assert.EqualValues(t, 2, stats.Unfiled)
	assert.EqualValues(t, 50000, stats.TotalValue)
	assert.Equal(t, map[string]int64{"camera": 2}, stats.ByCategory)

	n, err := items.UnfileByFolder(ctx, 1, f.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	owner, err := items.OwnerOf(ctx, seed[3].ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, owner)

	_, err = items.FindByID(ctx, 1, seed[3].ID)
	assert.True(t, IsNotFound(err))
}

func TestItemRepository_SearchMatchesWildcardsLiterally(t *testing.T) {
	gdb := db.NewTestDB(t)
	ctx := context.Background()
	items := NewItemRepository(gdb)

	for _, name := range []string{"100% cotton shirt", "1000 yen coin", "a_b cable", "axb cable"} {
		require.NoError(t, items.Create(ctx, &model.Item{Name: name, OwnerID: 1}))
	}

	got, total, err := items.Search(ctx, ItemFilter{OwnerID: 1, Query: "100%", SortColumn: "name", Limit: 10})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	assert.Equal(t, "100% cotton shirt", got[0].Name)

	got, total, err = items.Search(ctx, ItemFilter{OwnerID: 1, Query: "a_b", SortColumn: "name", Limit: 10})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	assert.Equal(t, "a_b cable", got[0].Name)
}
