package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinyyama/inventory-backend/internal/apperr"
	"github.com/shinyyama/inventory-backend/internal/marketprice"
	"github.com/shinyyama/inventory-backend/internal/model"
)

func TestItemService_PurchasePriceNeedsDate(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	owner := f.user(t, "price-date").ID

	_, err := f.Items.Create(ctx, owner, ItemInput{Name: "Camera", PurchasePrice: ptr(int64(1000))})
	ae := requireKind(t, err, apperr.KindValidation)
	assert.Contains(t, ae.Fields, "purchaseDate")

	_, err = f.Items.Create(ctx, owner, ItemInput{Name: "Gift", PurchasePrice: ptr(int64(0))})
	require.NoError(t, err)

	bought := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	it, err := f.Items.Create(ctx, owner, ItemInput{
		Name:          " Camera ",
		PurchasePrice: ptr(int64(1000)),
		PurchaseDate:  &bought,
		Condition:     ptr("good"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Camera", it.Name)

	_, err = f.Items.Update(ctx, owner, it.ID, ItemPatch{PurchaseDate: Null[time.Time]()})
	ae = requireKind(t, err, apperr.KindValidation)
	assert.Contains(t, ae.Fields, "purchaseDate")

	updated, err := f.Items.Update(ctx, owner, it.ID, ItemPatch{
		PurchaseDate:  Null[time.Time](),
		PurchasePrice: Null[int64](),
		Notes:         Some("shutter sticks"),
	})
	require.NoError(t, err)
	assert.Nil(t, updated.PurchaseDate)
	assert.Nil(t, updated.PurchasePrice)
	require.NotNil(t, updated.Condition)
	assert.Equal(t, model.ConditionGood, *updated.Condition)

	_, err = f.Items.Create(ctx, owner, ItemInput{Name: "Mug", Condition: ptr("broken")})
	ae = requireKind(t, err, apperr.KindValidation)
	assert.Contains(t, ae.Fields, "condition")
}

func TestItemService_MoveAndOwnership(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	owner := f.user(t, "move").ID
	other := f.user(t, "move-other").ID

	shelf := f.folder(t, owner, "Shelf", nil)
	foreign := f.folder(t, other, "Foreign", nil)
	it := f.item(t, owner, "Book", nil)

	_, err := f.Items.Move(ctx, owner, it.ID, nil)
	ae := requireKind(t, err, apperr.KindBadRequest)
	assert.Equal(t, msgAlreadyHere, ae.Message)

	_, err = f.Items.Move(ctx, owner, it.ID, &foreign)
	requireKind(t, err, apperr.KindNotFound)

	moved, err := f.Items.Move(ctx, owner, it.ID, &shelf)
	require.NoError(t, err)
	assert.Equal(t, shelf, *moved.FolderID)

	_, err = f.Items.Get(ctx, other, it.ID)
	requireKind(t, err, apperr.KindNotFound)
	_, err = f.Items.Update(ctx, other, it.ID, ItemPatch{Name: Some("mine")})
	requireKind(t, err, apperr.KindNotFound)
}

func TestItemService_Search(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	owner := f.user(t, "search").ID
	shelf := f.folder(t, owner, "Shelf", nil)

	for _, in := range []ItemInput{
		{Name: "Red Kettle", Category: ptr("kitchen")},
		{Name: "Blue Kettle", Category: ptr("kitchen"), FolderID: &shelf},
		{Name: "Desk Lamp", Category: ptr("office"), Description: ptr("kettle-shaped shade")},
		{Name: "Stapler", Category: ptr("office")},
	} {
		_, err := f.Items.Create(ctx, owner, in)
		require.NoError(t, err)
	}

	res, err := f.Items.Search(ctx, owner, ItemQuery{Q: "kettle", Sort: "name", Order: "asc"})
	require.NoError(t, err)
	assert.EqualValues(t, 3, res.Total)
	assert.Equal(t, "Blue Kettle", res.Items[0].Name)

	res, err = f.Items.Search(ctx, owner, ItemQuery{Category: "office", Page: PageRequest{Page: 2, Limit: 1}, Sort: "name", Order: "asc"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Total)
	assert.Equal(t, 2, res.TotalPages)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Stapler", res.Items[0].Name)

	res, err = f.Items.Search(ctx, owner, ItemQuery{FolderID: &shelf})
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Total)

	res, err = f.Items.Search(ctx, owner, ItemQuery{Page: PageRequest{Limit: 1000}})
	require.NoError(t, err)
	assert.Equal(t, MaxPageLimit, res.Limit)
}

func TestItemService_DeleteCleansUp(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	owner := f.user(t, "delete").ID
	it := f.item(t, owner, "Speaker", nil)

	_, err := f.Images.Upload(ctx, owner, it.ID, "front.png", pngBytes(t, 40, 30))
	require.NoError(t, err)
	require.Equal(t, 3, f.blobs.count())

	snap, err := f.Prices.Ingest(ctx, owner, it.ID, "manual", "", []marketprice.Listing{{Price: "¥1,000"}})
	require.NoError(t, err)

	require.NoError(t, f.Items.Delete(ctx, owner, it.ID))
	assert.Equal(t, 0, f.blobs.count())

	_, err = f.Items.Get(ctx, owner, it.ID)
	requireKind(t, err, apperr.KindNotFound)

	var stored model.PriceHistory
	require.NoError(t, f.db.First(&stored, snap.ID).Error)
	assert.Equal(t, model.PriceHistoryInactive, stored.Status)

	var images int64
	require.NoError(t, f.db.Model(&model.ItemImage{}).Where("item_id = ?", it.ID).Count(&images).Error)
	assert.Zero(t, images)
}
