package marketprice

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const (
	yahooSource  = "yahoo_auctions"
	yahooSite    = "ヤフオク!"
	yahooPerPage = 50
)

// YahooAuctions scrapes closed Yahoo! Auctions listings, which reflect prices things actually sold for.
type YahooAuctions struct {
	client      *http.Client
	baseURL     string
	maxListings int
	log         *zap.Logger
}

type YahooOption func(*YahooAuctions)

func WithBaseURL(u string) YahooOption {
	return func(y *YahooAuctions) { y.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(c *http.Client) YahooOption {
	return func(y *YahooAuctions) { y.client = c }
}

func NewYahooAuctions(log *zap.Logger, opts ...YahooOption) *YahooAuctions {
	y := &YahooAuctions{
		client:      &http.Client{Timeout: 30 * time.Second},
		baseURL:     "https://auctions.yahoo.co.jp",
		maxListings: 20,
		log:         log,
	}
	for _, opt := range opts {
		opt(y)
	}
	if y.log == nil {
		y.log = zap.NewNop()
	}
	return y
}

func (y *YahooAuctions) Search(ctx context.Context, query string) (*Result, error) {
	u, err := url.Parse(y.baseURL + "/closedsearch/closedsearch")
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	q := u.Query()
	q.Set("p", query)
	q.Set("va", query)
	q.Set("b", "1")
	q.Set("n", fmt.Sprint(yahooPerPage))
	q.Set("s1", "end")
	q.Set("o1", "d")
	u.RawQuery = q.Encode()

	doc, err := fetchHTML(ctx, y.client, u.String())
	if err != nil {
		return nil, err
	}

	listings := extractListings(doc, y.maxListings)
	y.log.Debug("yahoo auctions scraped", zap.String("query", query), zap.Int("listings", len(listings)))

	return &Result{
		Source:   yahooSource,
		Summary:  fmt.Sprintf("ヤフオク!の落札相場から%d件の出品を取得しました", len(listings)),
		Listings: listings,
	}, nil
}

func extractListings(doc *goquery.Document, limit int) []Listing {
	var out []Listing
	doc.Find("div.Products__list ul.Products__items li.Product").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		titleLink := s.Find("h3.Product__title a.Product__titleLink")
		l := Listing{
			Site:  yahooSite,
			Title: strings.TrimSpace(titleLink.Text()),
		}
		if href, ok := titleLink.Attr("href"); ok && strings.HasPrefix(href, "http") {
			l.URL = href
		} else if id, ok := titleLink.Attr("data-auction-id"); ok {
			l.URL = "https://page.auctions.yahoo.co.jp/jp/auction/" + id
		}

		l.Price = strings.TrimSpace(s.Find("div.Product__priceInfo span.Product__price").First().Find("span.Product__priceValue").Text())
		l.Condition = strings.TrimSpace(s.Find("span.Product__icon--condition").First().Text())

		if l.Title == "" && l.Price == "" {
			return true
		}
		out = append(out, l)
		return limit <= 0 || len(out) < limit
	})
	return out
}

func fetchHTML(ctx context.Context, client *http.Client, target string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ja,en-US;q=0.9,en;q=0.8")

	res, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch page: status %d", res.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}
