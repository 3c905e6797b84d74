package marketprice

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const closedSearchHTML = `
<html><body>
<div class="Products__list">
	<ul class="Products__items">
		<li class="Product">
			<h3 class="Product__title">
				<a href="#" class="Product__titleLink" data-auction-id="x111">Nikon Z6 ボディ</a>
			</h3>
			<div class="Product__priceInfo">
				<span class="Product__price"><span class="Product__priceValue">98,000円</span></span>
				<span class="Product__price"><span class="Product__priceValue">120,000円</span></span>
			</div>
			<span class="Product__icon Product__icon--condition">目立った傷や汚れなし</span>
		</li>
		<li class="Product">
			<h3 class="Product__title">
				<a href="https://page.auctions.yahoo.co.jp/jp/auction/y222" class="Product__titleLink">Nikon Z6 ジャンク</a>
			</h3>
			<div class="Product__priceInfo">
				<span class="Product__price"><span class="Product__priceValue">41,500円</span></span>
			</div>
		</li>
		<li class="Product"></li>
	</ul>
</div>
</body></html>`

func TestExtractListings(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(closedSearchHTML))
	require.NoError(t, err)

	got := extractListings(doc, 0)
	require.Len(t, got, 2)

	assert.Equal(t, Listing{
		Site:      "ヤフオク!",
		Title:     "Nikon Z6 ボディ",
		Price:     "98,000円",
		URL:       "https://page.auctions.yahoo.co.jp/jp/auction/x111",
		Condition: "目立った傷や汚れなし",
	}, got[0])
	assert.Equal(t, "https://page.auctions.yahoo.co.jp/jp/auction/y222", got[1].URL)
	assert.Equal(t, "41,500円", got[1].Price)

	assert.Len(t, extractListings(doc, 1), 1)
}

func TestYahooAuctions_Search(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/closedsearch/closedsearch", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		gotQuery = r.URL.Query().Get("p")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(closedSearchHTML))
	}))
	defer srv.Close()

	y := NewYahooAuctions(nil, WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	res, err := y.Search(context.Background(), "Nikon Z6")
	require.NoError(t, err)

	assert.Equal(t, "Nikon Z6", gotQuery)
	assert.Equal(t, "yahoo_auctions", res.Source)
	assert.Len(t, res.Listings, 2)
}

func TestYahooAuctions_SearchUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	y := NewYahooAuctions(nil, WithBaseURL(srv.URL))
	_, err := y.Search(context.Background(), "anything")
	require.ErrorContains(t, err, "status 503")
}
