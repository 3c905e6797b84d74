package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shinyyama/inventory-backend/internal/ai"
	"github.com/shinyyama/inventory-backend/internal/db"
	"github.com/shinyyama/inventory-backend/internal/marketprice"
	appmw "github.com/shinyyama/inventory-backend/internal/middleware"
	"github.com/shinyyama/inventory-backend/internal/ratelimit"
	"github.com/shinyyama/inventory-backend/internal/server"
	"github.com/shinyyama/inventory-backend/internal/storage"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, log := a.cfg, a.log

	verifier, err := a.verifier(ctx)
	if err != nil {
		return fmt.Errorf("init auth: %w", err)
	}

	var blobs storage.BlobStore = storage.Disabled{}
	if cfg.StorageBucket != "" {
		gcs, err := storage.NewGCS(ctx, cfg.StorageBucket, cfg.GoogleCredentialsFile)
		if err != nil {
			return fmt.Errorf("init storage: %w", err)
		}
		defer gcs.Close()
		blobs = gcs
	} else {
		log.Warn("STORAGE_BUCKET is not set; image uploads are disabled")
	}

	var (
		recognizer ai.Recognizer
		searcher   marketprice.Searcher = marketprice.NewYahooAuctions(log)
	)
	if cfg.GeminiAPIKey != "" {
		gemini, err := ai.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, log)
		if err != nil {
			return fmt.Errorf("init gemini: %w", err)
		}
		recognizer = gemini
		if strings.EqualFold(cfg.PriceSource, "gemini") {
			searcher = gemini
		}
	} else {
		log.Warn("GEMINI_API_KEY is not set; AI recognition is disabled")
	}

	limiter := ratelimit.NewSlidingWindow(cfg.AIRateLimit, cfg.AIRateWindow, ratelimit.WithSweepInterval(5*time.Minute))
	defer limiter.Close()

	srv := server.New(nil, server.Options{
		Verifier:       verifier,
		Blobs:          blobs,
		Recognizer:     recognizer,
		Searcher:       searcher,
		Limiter:        limiter,
		DefaultAILimit: cfg.DefaultAIUsageLimit,
		CORSOrigins:    cfg.CORSAllowedOrigins,
		Log:            log,
		GitSHA:         gitSHA,
		BuildTime:      buildTime,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(":" + cfg.Port)
	}()

	// Listen first so the platform health check passes while the database comes up.
	go func() {
		conn, err := db.Connect(cfg)
		if err != nil {
			log.Error("db connect failed", zap.Error(err))
			return
		}
		if err := db.Migrate(conn); err != nil {
			log.Error("auto migrate failed", zap.Error(err))
			return
		}
		srv.SetDB(conn)
		log.Info("database ready", zap.String("driver", cfg.DBDriver))
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (a *app) verifier(ctx context.Context) (appmw.TokenVerifier, error) {
	if strings.EqualFold(a.cfg.AuthProvider, "jwt") {
		return appmw.NewJWTVerifier(a.cfg.JWTSecret), nil
	}
	return appmw.NewFirebaseVerifier(ctx, a.cfg.FirebaseProjectID, a.cfg.GoogleCredentialsFile)
}
