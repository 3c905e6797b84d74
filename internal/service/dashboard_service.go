package service

import (
	"context"

	"github.com/shinyyama/inventory-backend/internal/repository"
)

const maxDashboardTrends = 10

type ItemTrend struct {
	ItemID     uint64
	ItemName   string
	Trend      Trend
	ChangeRate float64
	LatestAvg  *int64
}

type DashboardStats struct {
	ItemCount    int64
	FolderCount  int64
	UnfiledCount int64
	TotalValue   int64
	ByCategory   map[string]int64
	PriceTrends  []ItemTrend
}

type DashboardService interface {
	Stats(ctx context.Context, ownerID uint64) (*DashboardStats, error)
}

type dashboardService struct {
	items   repository.ItemRepository
	folders repository.FolderRepository
	prices  repository.PriceHistoryRepository
}

func NewDashboardService(items repository.ItemRepository, folders repository.FolderRepository, prices repository.PriceHistoryRepository) DashboardService {
	return &dashboardService{items: items, folders: folders, prices: prices}
}

func (s *dashboardService) Stats(ctx context.Context, ownerID uint64) (*DashboardStats, error) {
	itemStats, err := s.items.Stats(ctx, ownerID)
	if err != nil {
		return nil, wrapInternal(err)
	}
	folders, err := s.folders.CountByOwner(ctx, ownerID)
	if err != nil {
		return nil, wrapInternal(err)
	}

	out := &DashboardStats{
		ItemCount:    itemStats.Total,
		FolderCount:  folders,
		UnfiledCount: itemStats.Unfiled,
		TotalValue:   itemStats.TotalValue,
		ByCategory:   itemStats.ByCategory,
		PriceTrends:  []ItemTrend{},
	}

	ids, err := s.prices.ItemsWithActive(ctx, ownerID, 2)
	if err != nil {
		return nil, wrapInternal(err)
	}
	for _, id := range ids {
		if len(out.PriceTrends) == maxDashboardTrends {
			break
		}
		item, err := s.items.FindByID(ctx, ownerID, id)
		if repository.IsNotFound(err) {
			continue
		} else if err != nil {
			return nil, wrapInternal(err)
		}
		snaps, err := s.prices.ListActive(ctx, ownerID, id, 0)
		if err != nil {
			return nil, wrapInternal(err)
		}
		trend, change, ok := ComputeTrend(snaps)
		if !ok {
			continue
		}
		t := ItemTrend{ItemID: id, ItemName: item.Name, Trend: trend, ChangeRate: change}
		for _, h := range snaps {
			if h.AvgPrice != nil {
				t.LatestAvg = h.AvgPrice
				break
			}
		}
		out.PriceTrends = append(out.PriceTrends, t)
	}
	return out, nil
}
