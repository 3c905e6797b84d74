package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/shinyyama/inventory-backend/internal/ai"
	"github.com/shinyyama/inventory-backend/internal/apperr"
	"github.com/shinyyama/inventory-backend/internal/logging"
	"github.com/shinyyama/inventory-backend/internal/model"
	"github.com/shinyyama/inventory-backend/internal/ratelimit"
	"github.com/shinyyama/inventory-backend/internal/repository"
)

// aiGate fronts every call to a paid upstream: per-user rate limit, then the
// usage quota, then the call, then an audit row.
type aiGate struct {
	limiter ratelimit.Limiter
	users   repository.UserRepository
	usage   repository.AIUsageRepository
	log     *zap.Logger
}

func (g *aiGate) run(ctx context.Context, userID uint64, kind model.AIUsageKind, meta map[string]interface{}, call func(context.Context) error) error {
	log := logging.FromContext(ctx, g.log).With(zap.String("kind", string(kind)))

	if ok, retry := g.limiter.Allow(ctx, strconv.FormatUint(userID, 10)); !ok {
		g.record(ctx, log, userID, kind, apperr.KindRateLimited, meta)
		secs := int(math.Ceil(retry.Seconds()))
		return apperr.RateLimited(fmt.Sprintf("リクエストが多すぎます。%d秒後に再度お試しください", max(secs, 1)))
	}

	user, err := g.users.FindByID(ctx, userID)
	if err != nil {
		return notFound(err, msgUserNotFound)
	}
	if user.AIUsageCount >= user.AIUsageLimit {
		g.record(ctx, log, userID, kind, apperr.KindAIQuota, meta)
		return apperr.New(apperr.KindAIQuota, "AI機能の利用上限に達しました")
	}

	if err := call(ctx); err != nil {
		var appErr *apperr.Error
		if !errors.As(err, &appErr) {
			appErr = ai.AsAppError(err)
		}
		g.record(ctx, log, userID, kind, appErr.Kind, meta)
		return appErr
	}

	if ok, err := g.users.IncrementAIUsage(ctx, userID); err != nil {
		log.Warn("ai usage increment failed", zap.Error(err))
	} else if !ok {
		log.Warn("ai usage limit reached concurrently")
	}
	g.record(ctx, log, userID, kind, "", meta)
	return nil
}

func (g *aiGate) record(ctx context.Context, log *zap.Logger, userID uint64, kind model.AIUsageKind, category apperr.Kind, meta map[string]interface{}) {
	raw, _ := json.Marshal(meta)
	entry := &model.AIUsageLog{
		UserID:        userID,
		Kind:          kind,
		Success:       category == "",
		ErrorCategory: string(category),
		Metadata:      datatypes.JSON(raw),
	}
	if err := g.usage.Create(ctx, entry); err != nil {
		log.Warn("ai usage log write failed", zap.Error(err))
	}
}
