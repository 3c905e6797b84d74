// Package marketprice looks up second-hand market listings for an item.
package marketprice

import "context"

// Listing is one marketplace hit. Price keeps the marketplace's display text.
type Listing struct {
	Site      string `json:"site"`
	Title     string `json:"title"`
	Price     string `json:"price"`
	URL       string `json:"url"`
	Condition string `json:"condition"`
}

type Result struct {
	Source   string
	Summary  string
	Listings []Listing
}

// Searcher finds listings matching a free-text query.
type Searcher interface {
	Search(ctx context.Context, query string) (*Result, error)
}
