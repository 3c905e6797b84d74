package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shinyyama/inventory-backend/internal/apperr"
	"github.com/shinyyama/inventory-backend/internal/logging"
	"github.com/shinyyama/inventory-backend/internal/marketprice"
	"github.com/shinyyama/inventory-backend/internal/model"
	"github.com/shinyyama/inventory-backend/internal/ratelimit"
	"github.com/shinyyama/inventory-backend/internal/repository"
)

const defaultHistoryLimit = 10

// PriceReport is the history view of one item.
type PriceReport struct {
	Snapshots []model.PriceHistory
	// Trend is empty when fewer than two snapshots carry an average.
	Trend        Trend
	ChangeRate   *float64
	LowestPrice  *int64
	HighestPrice *int64
	LatestAvg    *int64
}

type PriceService interface {
	Ingest(ctx context.Context, ownerID, itemID uint64, source, summary string, listings []marketprice.Listing) (*model.PriceHistory, error)
	History(ctx context.Context, ownerID, itemID uint64, limit int) (*PriceReport, error)
	SoftDelete(ctx context.Context, ownerID, itemID, historyID uint64) error
	Search(ctx context.Context, ownerID, itemID uint64) (*model.PriceHistory, error)
}

type priceService struct {
	items    repository.ItemRepository
	prices   repository.PriceHistoryRepository
	searcher marketprice.Searcher
	gate     *aiGate
	now      func() time.Time
	log      *zap.Logger
}

func NewPriceService(
	items repository.ItemRepository,
	prices repository.PriceHistoryRepository,
	searcher marketprice.Searcher,
	limiter ratelimit.Limiter,
	users repository.UserRepository,
	usage repository.AIUsageRepository,
	log *zap.Logger,
) PriceService {
	if log == nil {
		log = zap.NewNop()
	}
	return &priceService{
		items:    items,
		prices:   prices,
		searcher: searcher,
		gate:     &aiGate{limiter: limiter, users: users, usage: usage, log: log},
		now:      time.Now,
		log:      log,
	}
}

func (s *priceService) Ingest(ctx context.Context, ownerID, itemID uint64, source, summary string, listings []marketprice.Listing) (*model.PriceHistory, error) {
	if _, err := s.items.FindByID(ctx, ownerID, itemID); err != nil {
		return nil, notFound(err, msgItemNotFound)
	}

	prices := make([]string, 0, len(listings))
	details := make([]model.PriceHistoryDetail, 0, len(listings))
	for _, l := range listings {
		prices = append(prices, l.Price)
		details = append(details, model.PriceHistoryDetail{
			Site:      clip(l.Site, 120),
			Price:     clip(l.Price, 64),
			URL:       clip(l.URL, 1024),
			Condition: clip(l.Condition, 64),
			Title:     clip(l.Title, 512),
		})
	}
	agg := Aggregate(prices)

	h := &model.PriceHistory{
		ItemID:       itemID,
		OwnerID:      ownerID,
		Source:       clip(source, 64),
		SearchDate:   s.now(),
		MinPrice:     agg.Min,
		AvgPrice:     agg.Avg,
		MaxPrice:     agg.Max,
		ListingCount: len(listings),
		Summary:      strings.TrimSpace(summary),
		Status:       model.PriceHistoryActive,
		Details:      details,
	}
	if err := s.prices.Create(ctx, h); err != nil {
		return nil, wrapInternal(err)
	}

	logging.FromContext(ctx, s.log).Info("price snapshot stored",
		zap.Uint64("item_id", itemID), zap.Int("listings", len(listings)), zap.Int("parsed", agg.Parsed))
	return h, nil
}

func (s *priceService) History(ctx context.Context, ownerID, itemID uint64, limit int) (*PriceReport, error) {
	if _, err := s.items.FindByID(ctx, ownerID, itemID); err != nil {
		return nil, notFound(err, msgItemNotFound)
	}
	if limit < 1 || limit > MaxPageLimit {
		limit = defaultHistoryLimit
	}

	all, err := s.prices.ListActive(ctx, ownerID, itemID, 0)
	if err != nil {
		return nil, wrapInternal(err)
	}
	report := &PriceReport{Snapshots: all}
	if len(all) > limit {
		report.Snapshots = all[:limit]
	}
	if report.Snapshots == nil {
		report.Snapshots = []model.PriceHistory{}
	}

	if trend, change, ok := ComputeTrend(all); ok {
		report.Trend = trend
		report.ChangeRate = &change
	}
	for _, h := range all {
		if h.MinPrice != nil && (report.LowestPrice == nil || *h.MinPrice < *report.LowestPrice) {
			report.LowestPrice = h.MinPrice
		}
		if h.MaxPrice != nil && (report.HighestPrice == nil || *h.MaxPrice > *report.HighestPrice) {
			report.HighestPrice = h.MaxPrice
		}
		if report.LatestAvg == nil && h.AvgPrice != nil {
			report.LatestAvg = h.AvgPrice
		}
	}
	return report, nil
}

func (s *priceService) SoftDelete(ctx context.Context, ownerID, itemID, historyID uint64) error {
	ok, err := s.prices.Deactivate(ctx, ownerID, itemID, historyID)
	if err != nil {
		return wrapInternal(err)
	}
	if !ok {
		return apperr.NotFound(msgHistoryNotFound)
	}
	logging.FromContext(ctx, s.log).Info("price snapshot retired",
		zap.Uint64("item_id", itemID), zap.Uint64("history_id", historyID))
	return nil
}

// Search asks the configured market source for listings and stores the result as a snapshot.
func (s *priceService) Search(ctx context.Context, ownerID, itemID uint64) (*model.PriceHistory, error) {
	item, err := s.items.FindByID(ctx, ownerID, itemID)
	if err != nil {
		return nil, notFound(err, msgItemNotFound)
	}
	if s.searcher == nil {
		return nil, apperr.New(apperr.KindAIGeneric, "価格検索は現在利用できません")
	}

	query := searchQuery(item)
	var res *marketprice.Result
	meta := map[string]interface{}{"itemId": itemID, "query": query}
	err = s.gate.run(ctx, ownerID, model.AIUsagePriceSearch, meta, func(ctx context.Context) error {
		r, err := s.searcher.Search(ctx, query)
		res = r
		return err
	})
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = &marketprice.Result{Source: "unknown"}
	}
	return s.Ingest(ctx, ownerID, itemID, res.Source, res.Summary, res.Listings)
}

func searchQuery(item *model.Item) string {
	parts := []string{}
	if item.Manufacturer != nil && !strings.Contains(item.Name, *item.Manufacturer) {
		parts = append(parts, *item.Manufacturer)
	}
	parts = append(parts, item.Name)
	return strings.Join(parts, " ")
}

func clip(s string, n int) string {
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > n {
		return string(r[:n])
	}
	return s
}
