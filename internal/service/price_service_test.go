package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinyyama/inventory-backend/internal/apperr"
	"github.com/shinyyama/inventory-backend/internal/marketprice"
	"github.com/shinyyama/inventory-backend/internal/model"
)

// stepClock advances by a day on every call so snapshots have distinct dates.
func stepClock(start time.Time) func() time.Time {
	cur := start
	return func() time.Time {
		cur = cur.Add(24 * time.Hour)
		return cur
	}
}

func TestPriceService_IngestAndSoftDelete(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.Prices.(*priceService).now = stepClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	owner := f.user(t, "prices").ID
	it := f.item(t, owner, "Watch", nil)

	snap, err := f.Prices.Ingest(ctx, owner, it.ID, "manual", "  three hits ", []marketprice.Listing{
		{Site: "A", Price: "¥1,000"},
		{Site: "B", Price: "¥2,000"},
		{Site: "C", Price: "価格不明"},
		{Site: "D", Price: "3,000円"},
	})
	require.NoError(t, err)
	require.NotNil(t, snap.AvgPrice)
	assert.EqualValues(t, 1000, *snap.MinPrice)
	assert.EqualValues(t, 2000, *snap.AvgPrice)
	assert.EqualValues(t, 3000, *snap.MaxPrice)
	assert.Equal(t, 4, snap.ListingCount)
	assert.Equal(t, "three hits", snap.Summary)

	empty, err := f.Prices.Ingest(ctx, owner, it.ID, "manual", "", []marketprice.Listing{{Price: "ask"}})
	require.NoError(t, err)
	assert.Nil(t, empty.AvgPrice)

	report, err := f.Prices.History(ctx, owner, it.ID, 0)
	require.NoError(t, err)
	require.Len(t, report.Snapshots, 2)
	assert.Equal(t, empty.ID, report.Snapshots[0].ID)
	assert.Len(t, report.Snapshots[1].Details, 4)
	assert.Empty(t, report.Trend)

	require.NoError(t, f.Prices.SoftDelete(ctx, owner, it.ID, snap.ID))
	err = f.Prices.SoftDelete(ctx, owner, it.ID, snap.ID)
	requireKind(t, err, apperr.KindNotFound)

	report, err = f.Prices.History(ctx, owner, it.ID, 0)
	require.NoError(t, err)
	require.Len(t, report.Snapshots, 1)
	assert.Equal(t, empty.ID, report.Snapshots[0].ID)

	var stored model.PriceHistory
	require.NoError(t, f.db.First(&stored, snap.ID).Error)
	assert.False(t, stored.IsActive())

	other := f.user(t, "prices-other").ID
	_, err = f.Prices.History(ctx, other, it.ID, 0)
	requireKind(t, err, apperr.KindNotFound)
}

func TestPriceService_HistoryTrend(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.Prices.(*priceService).now = stepClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	owner := f.user(t, "trend").ID
	it := f.item(t, owner, "Lens", nil)

	for _, p := range []string{"¥10,000", "¥10,200", "¥12,000"} {
		_, err := f.Prices.Ingest(ctx, owner, it.ID, "manual", "", []marketprice.Listing{{Price: p}})
		require.NoError(t, err)
	}

	report, err := f.Prices.History(ctx, owner, it.ID, 2)
	require.NoError(t, err)
	assert.Len(t, report.Snapshots, 2)
	assert.Equal(t, TrendUp, report.Trend)
	require.NotNil(t, report.ChangeRate)
	assert.InDelta(t, 0.2, *report.ChangeRate, 1e-9)
	assert.EqualValues(t, 10000, *report.LowestPrice)
	assert.EqualValues(t, 12000, *report.HighestPrice)
	assert.EqualValues(t, 12000, *report.LatestAvg)
}

func TestPriceService_SearchGoesThroughGate(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	owner := f.user(t, "search-price").ID
	it, err := f.Items.Create(ctx, owner, ItemInput{Name: "WH-1000XM4", Manufacturer: ptr("Sony")})
	require.NoError(t, err)

	f.searcher.result = &marketprice.Result{
		Source:   "yahoo_auctions",
		Listings: []marketprice.Listing{{Price: "15,000円"}, {Price: "17,000円"}},
	}
	snap, err := f.Prices.Search(ctx, owner, it.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sony WH-1000XM4", f.searcher.query)
	assert.Equal(t, "yahoo_auctions", snap.Source)
	assert.EqualValues(t, 16000, *snap.AvgPrice)

	f.searcher.err = errors.New("dial tcp: connection refused")
	_, err = f.Prices.Search(ctx, owner, it.ID)
	requireKind(t, err, apperr.KindAINetwork)

	u, err := f.users.FindByID(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 1, u.AIUsageCount)

	n, err := f.usage.CountSince(ctx, owner, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}
