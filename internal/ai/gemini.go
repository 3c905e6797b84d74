package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/shinyyama/inventory-backend/internal/logging"
	"github.com/shinyyama/inventory-backend/internal/marketprice"
)

const geminiSource = "gemini"

// Recognizer identifies the item shown in a photo.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte, mimeType string) (*Recognition, error)
}

// Gemini talks to the Gemini API for item recognition and grounded price search.
type Gemini struct {
	client *genai.Client
	model  string
	log    *zap.Logger
}

func NewGemini(ctx context.Context, apiKey, model string, log *zap.Logger) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is not set")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("init gemini client: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Gemini{client: client, model: model, log: log}, nil
}

func (g *Gemini) Recognize(ctx context.Context, image []byte, mimeType string) (*Recognition, error) {
	log := logging.FromContext(ctx, g.log).With(zap.String("op", "recognize"), zap.String("model", g.model))
	if len(image) == 0 {
		return nil, errors.New("image is required")
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(recognizePrompt),
			genai.NewPartFromBytes(image, mimeType),
		}, genai.RoleUser),
	}
	temp := float32(0.2)
	config := &genai.GenerateContentConfig{
		Temperature:      &temp,
		ResponseMIMEType: "application/json",
	}

	start := time.Now()
	log.Info("gemini_start", zap.Int("bytes", len(image)))
	res, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		log.Warn("gemini_fail", zap.Error(err), zap.String("category", string(Classify(err))))
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	text := res.Text()
	log.Info("gemini_done", zap.Int64("genMs", time.Since(start).Milliseconds()), zap.Int("len", len(text)))

	r, err := ParseRecognition(text)
	if err != nil {
		log.Warn("parse_fail", zap.String("text", truncate(text, 80)), zap.Error(err))
		return nil, err
	}
	return r, nil
}

// Search asks Gemini with Google Search grounding for market listings.
func (g *Gemini) Search(ctx context.Context, query string) (*marketprice.Result, error) {
	log := logging.FromContext(ctx, g.log).With(zap.String("op", "price_search"), zap.String("model", g.model))

	contents := []*genai.Content{
		genai.NewContentFromText(BuildPriceSearchPrompt(query), genai.RoleUser),
	}
	temp := float32(0)
	config := &genai.GenerateContentConfig{
		Temperature: &temp,
		Tools:       []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
	}

	start := time.Now()
	res, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		log.Warn("gemini_fail", zap.Error(err), zap.String("category", string(Classify(err))))
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	text := res.Text()
	log.Info("gemini_done", zap.Int64("genMs", time.Since(start).Milliseconds()), zap.Int("len", len(text)))

	summary, listings, err := ParsePriceSearch(text)
	if err != nil {
		log.Warn("parse_fail", zap.String("text", truncate(text, 80)), zap.Error(err))
		return nil, err
	}
	return &marketprice.Result{Source: geminiSource, Summary: summary, Listings: listings}, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
