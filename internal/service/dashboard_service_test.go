package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinyyama/inventory-backend/internal/marketprice"
)

func TestDashboardService_Stats(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.Prices.(*priceService).now = stepClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	owner := f.user(t, "dash").ID
	shelf := f.folder(t, owner, "Shelf", nil)
	bought := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	watch, err := f.Items.Create(ctx, owner, ItemInput{
		Name: "Watch", Category: ptr("accessories"), PurchasePrice: ptr(int64(30000)), PurchaseDate: &bought, FolderID: &shelf,
	})
	require.NoError(t, err)
	_, err = f.Items.Create(ctx, owner, ItemInput{
		Name: "Belt", Category: ptr("accessories"), PurchasePrice: ptr(int64(5000)), PurchaseDate: &bought,
	})
	require.NoError(t, err)
	f.item(t, owner, "Pen", nil)

	for _, p := range []string{"¥20,000", "¥18,000"} {
		_, err := f.Prices.Ingest(ctx, owner, watch.ID, "manual", "", []marketprice.Listing{{Price: p}})
		require.NoError(t, err)
	}

	stats, err := f.Dashboard.Stats(ctx, owner)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.ItemCount)
	assert.EqualValues(t, 1, stats.FolderCount)
	assert.EqualValues(t, 2, stats.UnfiledCount)
	assert.EqualValues(t, 35000, stats.TotalValue)
	assert.EqualValues(t, 2, stats.ByCategory["accessories"])
	require.Len(t, stats.PriceTrends, 1)
	assert.Equal(t, "Watch", stats.PriceTrends[0].ItemName)
	assert.Equal(t, TrendDown, stats.PriceTrends[0].Trend)
	assert.EqualValues(t, 18000, *stats.PriceTrends[0].LatestAvg)

	empty, err := f.Dashboard.Stats(ctx, f.user(t, "dash-empty").ID)
	require.NoError(t, err)
	assert.Zero(t, empty.ItemCount)
	assert.Empty(t, empty.PriceTrends)
}
