package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/shinyyama/inventory-backend/internal/ai"
	"github.com/shinyyama/inventory-backend/internal/handler"
	"github.com/shinyyama/inventory-backend/internal/marketprice"
	appmw "github.com/shinyyama/inventory-backend/internal/middleware"
	"github.com/shinyyama/inventory-backend/internal/ratelimit"
	"github.com/shinyyama/inventory-backend/internal/repository"
	"github.com/shinyyama/inventory-backend/internal/service"
	"github.com/shinyyama/inventory-backend/internal/storage"
)

// Options carries the external clients and settings the server is built from.
type Options struct {
	Verifier       appmw.TokenVerifier
	Blobs          storage.BlobStore
	Recognizer     ai.Recognizer
	Searcher       marketprice.Searcher
	Limiter        ratelimit.Limiter
	DefaultAILimit int
	CORSOrigins    []string
	Log            *zap.Logger
	GitSHA         string
	BuildTime      string
}

type dbSetter interface {
	SetDB(db *gorm.DB)
}

type Server struct {
	e       *echo.Echo
	log     *zap.Logger
	setters []dbSetter
	ready   atomic.Bool
}

// New wires repositories, services and routes. db may be nil and supplied later via SetDB;
// until then /api answers 503.
func New(db *gorm.DB, opts Options) *Server {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.NewSlidingWindow(15, time.Minute)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.ErrorHandler(log)

	e.Use(middleware.Recover())
	e.Use(appmw.RequestID)
	e.Use(requestLogger(log))
	e.Use(middleware.BodyLimit("12M"))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization, echo.HeaderXRequestID},
		ExposeHeaders:    []string{echo.HeaderXRequestID},
		AllowCredentials: true,
		AllowOriginFunc:  originAllowed(opts.CORSOrigins),
	}))

	tx := repository.NewTransactor(db)
	folderRepo := repository.NewFolderRepository(db)
	itemRepo := repository.NewItemRepository(db)
	imageRepo := repository.NewImageRepository(db)
	priceRepo := repository.NewPriceHistoryRepository(db)
	userRepo := repository.NewUserRepository(db)
	usageRepo := repository.NewAIUsageRepository(db)

	folderSvc := service.NewFolderService(tx, folderRepo, itemRepo, log)
	itemSvc := service.NewItemService(tx, itemRepo, folderRepo, imageRepo, priceRepo, opts.Blobs, log)
	imageSvc := service.NewImageService(tx, itemRepo, imageRepo, opts.Blobs, log)
	priceSvc := service.NewPriceService(itemRepo, priceRepo, opts.Searcher, opts.Limiter, userRepo, usageRepo, log)
	aiSvc := service.NewAIService(opts.Recognizer, opts.Limiter, userRepo, usageRepo, log)
	userSvc := service.NewUserService(userRepo, opts.DefaultAILimit, log)
	dashSvc := service.NewDashboardService(itemRepo, folderRepo, priceRepo)

	s := &Server{
		e:       e,
		log:     log,
		setters: []dbSetter{tx, folderRepo, itemRepo, imageRepo, priceRepo, userRepo, usageRepo},
	}

	folders := handler.NewFolderHandler(folderSvc, log)
	items := handler.NewItemHandler(itemSvc, log)
	images := handler.NewImageHandler(imageSvc, log)
	prices := handler.NewPriceHandler(priceSvc, log)
	aiH := handler.NewAIHandler(aiSvc, log)
	me := handler.NewUserHandler(userSvc, aiSvc, log)
	dash := handler.NewDashboardHandler(dashSvc, log)
	auth := appmw.NewAuth(opts.Verifier, userSvc, log)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"ok":         true,
			"db":         s.ready.Load(),
			"git_sha":    opts.GitSHA,
			"build_time": opts.BuildTime,
		})
	})

	api := e.Group("/api", s.requireDB, auth.RequireAuth, auth.EnsureUser)
	api.GET("/me", me.Me)
	api.GET("/dashboard", dash.Stats)

	api.GET("/folders", folders.List)
	api.POST("/folders", folders.Create)
	api.GET("/folders/tree", folders.Tree)
	api.POST("/folders/move", folders.Move)
	api.GET("/folders/:id", folders.Get)
	api.PUT("/folders/:id", folders.Update)
	api.DELETE("/folders/:id", folders.Delete)
	api.GET("/folders/:id/path", folders.Path)
	api.GET("/folders/:id/items", folders.Items)

	api.GET("/items", items.Search)
	api.POST("/items", items.Create)
	api.POST("/items/move", items.Move)
	api.GET("/items/uncategorized", items.Uncategorized)
	api.GET("/items/:id", items.Get)
	api.PUT("/items/:id", items.Update)
	api.DELETE("/items/:id", items.Delete)
	api.GET("/items/:id/images", images.List)
	api.POST("/items/:id/images", images.Upload)
	api.PUT("/items/:id/images/order", images.Reorder)
	api.DELETE("/items/:id/images/:imageId", images.Delete)
	api.GET("/items/:id/price-history", prices.History)
	api.DELETE("/items/:id/price-history/:hid", prices.Delete)
	api.POST("/items/:id/price-search", prices.Search)

	api.POST("/ai/recognize", aiH.Recognize)

	if db != nil {
		s.SetDB(db)
	}
	return s
}

// SetDB points every repository at db and opens /api.
func (s *Server) SetDB(db *gorm.DB) {
	for _, r := range s.setters {
		r.SetDB(db)
	}
	s.ready.Store(true)
}

func (s *Server) requireDB(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !s.ready.Load() {
			return echo.NewHTTPError(http.StatusServiceUnavailable)
		}
		return next(c)
	}
}

func (s *Server) Handler() http.Handler {
	return s.e
}

func (s *Server) Start(addr string) error {
	s.log.Info("starting server", zap.String("addr", addr))
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

func requestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("rid", v.RequestID),
			}
			if uid := appmw.UserID(c); uid != 0 {
				fields = append(fields, zap.Uint64("user_id", uid))
			}
			if v.Status >= http.StatusInternalServerError {
				log.Error("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			log.Info("request", fields...)
			return nil
		},
	})
}

// originAllowed accepts localhost during development plus the configured origins.
func originAllowed(allowed []string) func(string) (bool, error) {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			set[strings.ToLower(o)] = struct{}{}
		}
	}
	return func(origin string) (bool, error) {
		low := strings.ToLower(origin)
		if _, ok := set[low]; ok {
			return true, nil
		}
		u, err := url.Parse(low)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return false, nil
		}
		host := u.Hostname()
		return host == "localhost" || host == "127.0.0.1", nil
	}
}
