package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/shinyyama/inventory-backend/internal/ai"
	"github.com/shinyyama/inventory-backend/internal/apperr"
	"github.com/shinyyama/inventory-backend/internal/imaging"
	"github.com/shinyyama/inventory-backend/internal/model"
	"github.com/shinyyama/inventory-backend/internal/ratelimit"
	"github.com/shinyyama/inventory-backend/internal/repository"
)

type AIUsage struct {
	Count       int
	Limit       int
	Remaining   int
	Tier        model.SubscriptionTier
	CallsLast30 int64
}

type AIService interface {
	Recognize(ctx context.Context, ownerID uint64, image []byte) (*ai.Recognition, error)
	Usage(ctx context.Context, ownerID uint64) (*AIUsage, error)
}

type aiService struct {
	recognizer ai.Recognizer
	users      repository.UserRepository
	usage      repository.AIUsageRepository
	gate       *aiGate
}

func NewAIService(recognizer ai.Recognizer, limiter ratelimit.Limiter, users repository.UserRepository, usage repository.AIUsageRepository, log *zap.Logger) AIService {
	if log == nil {
		log = zap.NewNop()
	}
	return &aiService{
		recognizer: recognizer,
		users:      users,
		usage:      usage,
		gate:       &aiGate{limiter: limiter, users: users, usage: usage, log: log},
	}
}

func (s *aiService) Recognize(ctx context.Context, ownerID uint64, image []byte) (*ai.Recognition, error) {
	if len(image) == 0 {
		return nil, apperr.FieldError("file", "画像ファイルを選択してください")
	}
	if len(image) > imaging.MaxUploadBytes {
		return nil, apperr.FieldError("file", "画像サイズは10MB以下にしてください")
	}
	mime := imaging.DetectMIME(image)
	if mime != "image/jpeg" && mime != "image/png" && mime != "image/webp" {
		return nil, apperr.FieldError("file", "JPEG・PNG・WebP形式の画像を選択してください")
	}
	if s.recognizer == nil {
		return nil, apperr.New(apperr.KindAIGeneric, "AI機能は現在利用できません")
	}

	var out *ai.Recognition
	meta := map[string]interface{}{"mimeType": mime, "bytes": len(image)}
	err := s.gate.run(ctx, ownerID, model.AIUsageRecognize, meta, func(ctx context.Context) error {
		r, err := s.recognizer.Recognize(ctx, image, mime)
		out = r
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *aiService) Usage(ctx context.Context, ownerID uint64) (*AIUsage, error) {
	u, err := s.users.FindByID(ctx, ownerID)
	if err != nil {
		return nil, notFound(err, msgUserNotFound)
	}
	recent, err := s.usage.CountSince(ctx, ownerID, time.Now().AddDate(0, 0, -30))
	if err != nil {
		return nil, wrapInternal(err)
	}
	return &AIUsage{
		Count:       u.AIUsageCount,
		Limit:       u.AIUsageLimit,
		Remaining:   max(u.AIUsageLimit-u.AIUsageCount, 0),
		Tier:        u.SubscriptionTier,
		CallsLast30: recent,
	}, nil
}
