// Package logging builds the zap logger and attaches request-scoped fields.
package logging

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/shinyyama/inventory-backend/internal/reqctx"
)

// New builds a logger. format is "json" (production encoder) or "console".
func New(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	var cfg zap.Config
	if strings.EqualFold(format, "console") {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

// FromContext returns log enriched with the request id and user id found in ctx.
func FromContext(ctx context.Context, log *zap.Logger) *zap.Logger {
	if log == nil {
		log = zap.NewNop()
	}
	if rid := reqctx.RID(ctx); rid != "" {
		log = log.With(zap.String("rid", rid))
	}
	if uid := reqctx.UserID(ctx); uid != 0 {
		log = log.With(zap.Uint64("user_id", uid))
	}
	return log
}
