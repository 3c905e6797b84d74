package service

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/shinyyama/inventory-backend/internal/model"
)

type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// trendThreshold is the relative change between the first and last average that counts as movement.
const trendThreshold = 0.05

var priceDigits = regexp.MustCompile(`\d[\d,]*`)

// ParsePrice reads the first run of digits and commas in a display price such as "¥2,980".
func ParsePrice(display string) (int64, bool) {
	m := priceDigits.FindString(display)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(strings.ReplaceAll(m, ",", ""), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// PriceSummary is min/avg/max over the parseable prices; all nil when none parse.
type PriceSummary struct {
	Min    *int64
	Avg    *int64
	Max    *int64
	Parsed int
}

func Aggregate(displayPrices []string) PriceSummary {
	var (
		s      PriceSummary
		sum    float64
		lo, hi int64
	)
	for _, p := range displayPrices {
		v, ok := ParsePrice(p)
		if !ok {
			continue
		}
		if s.Parsed == 0 || v < lo {
			lo = v
		}
		if s.Parsed == 0 || v > hi {
			hi = v
		}
		sum += float64(v)
		s.Parsed++
	}
	if s.Parsed == 0 {
		return s
	}
	avg := int64(math.Round(sum / float64(s.Parsed)))
	s.Min, s.Avg, s.Max = &lo, &avg, &hi
	return s
}

// ComputeTrend compares the oldest and newest snapshots that carry an average.
// ok is false when fewer than two such snapshots exist.
func ComputeTrend(snapshots []model.PriceHistory) (trend Trend, change float64, ok bool) {
	points := make([]model.PriceHistory, 0, len(snapshots))
	for _, h := range snapshots {
		if h.AvgPrice != nil && *h.AvgPrice > 0 {
			points = append(points, h)
		}
	}
	if len(points) < 2 {
		return "", 0, false
	}
	sort.SliceStable(points, func(i, j int) bool {
		if points[i].SearchDate.Equal(points[j].SearchDate) {
			return points[i].ID < points[j].ID
		}
		return points[i].SearchDate.Before(points[j].SearchDate)
	})

	first := float64(*points[0].AvgPrice)
	last := float64(*points[len(points)-1].AvgPrice)
	change = (last - first) / first
	switch {
	case change > trendThreshold:
		return TrendUp, change, true
	case change < -trendThreshold:
		return TrendDown, change, true
	}
	return TrendStable, change, true
}
