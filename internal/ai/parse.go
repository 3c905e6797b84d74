package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shinyyama/inventory-backend/internal/marketprice"
	"github.com/shinyyama/inventory-backend/internal/model"
)

var (
	fencePattern   = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	ErrParseFailed = errors.New("parse_failed")
)

// Recognition is what the model reports about a photographed item.
type Recognition struct {
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	Category       string  `json:"category"`
	Manufacturer   string  `json:"manufacturer"`
	Condition      string  `json:"condition"`
	EstimatedPrice *int64  `json:"estimatedPrice"`
	Confidence     float64 `json:"confidence"`
}

// ExtractJSON pulls the JSON object out of model output, tolerating code fences and chatter.
func ExtractJSON(text string) (string, error) {
	if m := fencePattern.FindStringSubmatch(text); len(m) >= 2 {
		text = m[1]
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", fmt.Errorf("%w: no json object found", ErrParseFailed)
	}
	return text[start : end+1], nil
}

func ParseRecognition(text string) (*Recognition, error) {
	raw, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}
	var r Recognition
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailed, err)
	}
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrParseFailed)
	}
	if !model.ItemCondition(r.Condition).Valid() {
		r.Condition = ""
	}
	if r.EstimatedPrice != nil && *r.EstimatedPrice < 0 {
		r.EstimatedPrice = nil
	}
	r.Confidence = min(max(r.Confidence, 0), 1)
	return &r, nil
}

type priceSearchOutput struct {
	Summary  string                `json:"summary"`
	Listings []marketprice.Listing `json:"listings"`
}

func ParsePriceSearch(text string) (string, []marketprice.Listing, error) {
	raw, err := ExtractJSON(text)
	if err != nil {
		return "", nil, err
	}
	var out priceSearchOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrParseFailed, err)
	}
	listings := out.Listings[:0]
	for _, l := range out.Listings {
		if strings.TrimSpace(l.Price) == "" && strings.TrimSpace(l.Title) == "" {
			continue
		}
		listings = append(listings, l)
	}
	return strings.TrimSpace(out.Summary), listings, nil
}
