package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinyyama/inventory-backend/internal/ai"
	"github.com/shinyyama/inventory-backend/internal/apperr"
	"github.com/shinyyama/inventory-backend/internal/model"
	"github.com/shinyyama/inventory-backend/internal/ratelimit"
)

func TestAIService_QuotaThenRateLimit(t *testing.T) {
	f := newFixture(t, ratelimit.NewSlidingWindow(3, time.Minute))
	ctx := context.Background()
	u := f.user(t, "ai")
	require.NoError(t, f.users.UpdateFields(ctx, u.ID, map[string]interface{}{"ai_usage_limit": 1}))

	f.recognizer.result = &ai.Recognition{Name: "Kettle", Confidence: 0.9}
	img := pngBytes(t, 8, 8)

	got, err := f.AI.Recognize(ctx, u.ID, img)
	require.NoError(t, err)
	assert.Equal(t, "Kettle", got.Name)

	_, err = f.AI.Recognize(ctx, u.ID, img)
	requireKind(t, err, apperr.KindAIQuota)
	_, err = f.AI.Recognize(ctx, u.ID, img)
	requireKind(t, err, apperr.KindAIQuota)

	_, err = f.AI.Recognize(ctx, u.ID, img)
	ae := requireKind(t, err, apperr.KindRateLimited)
	assert.Contains(t, ae.Message, "秒後")
	assert.Equal(t, 1, f.recognizer.calls)

	usage, err := f.AI.Usage(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, usage.Count)
	assert.Equal(t, 0, usage.Remaining)
	assert.EqualValues(t, 4, usage.CallsLast30)

	var failed []model.AIUsageLog
	require.NoError(t, f.db.Where("user_id = ? AND success = ?", u.ID, false).Order("id").Find(&failed).Error)
	require.Len(t, failed, 3)
	assert.Equal(t, string(apperr.KindAIQuota), failed[0].ErrorCategory)
	assert.Equal(t, string(apperr.KindRateLimited), failed[2].ErrorCategory)
}

func TestAIService_ProviderFailureIsClassified(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	u := f.user(t, "ai-fail")

	f.recognizer.err = context.DeadlineExceeded
	_, err := f.AI.Recognize(ctx, u.ID, pngBytes(t, 8, 8))
	requireKind(t, err, apperr.KindAITimeout)

	usage, err := f.AI.Usage(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, usage.Count)
	assert.EqualValues(t, 1, usage.CallsLast30)

	_, err = f.AI.Recognize(ctx, u.ID, []byte("GIF89a not supported"))
	requireKind(t, err, apperr.KindValidation)
	assert.Equal(t, 1, f.recognizer.calls)
}
