package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/lottery/internal/activity"
	activitydomain "github.com/smallbiznis/lottery/internal/activity/domain"
	"github.com/smallbiznis/lottery/internal/config"
	"github.com/smallbiznis/lottery/internal/draw"
	drawdomain "github.com/smallbiznis/lottery/internal/draw/domain"
	"github.com/smallbiznis/lottery/internal/drawevent"
	"github.com/smallbiznis/lottery/internal/drawlock"
	"github.com/smallbiznis/lottery/internal/drawrecord"
	"github.com/smallbiznis/lottery/internal/observability"
	obsmiddleware "github.com/smallbiznis/lottery/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/lottery/internal/observability/metrics"
	obstracing "github.com/smallbiznis/lottery/internal/observability/tracing"
	"github.com/smallbiznis/lottery/internal/quota"
	"github.com/smallbiznis/lottery/internal/stock"
	"github.com/smallbiznis/lottery/internal/user"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	user.Module,
	activity.Module,
	quota.Module,
	stock.Module,
	drawrecord.Module,
	drawlock.Module,
	drawevent.Module,
	draw.Module,
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, s *Server, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	drawSvc     drawdomain.Service
	activitySvc activitydomain.Service
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	DrawSvc     drawdomain.Service
	ActivitySvc activitydomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		drawSvc:     p.DrawSvc,
		activitySvc: p.ActivitySvc,
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Activities --------
	api.GET("/activities", s.ListActivities)
	api.GET("/activities/:id", s.GetActivityByID)

	// -------- Lottery --------
	lottery := api.Group("/lottery", s.UserRequired())
	{
		lottery.POST("/draw", s.Draw)
		lottery.GET("/remaining-draws", s.RemainingDraws)
		lottery.GET("/history", s.ListHistory)
		lottery.GET("/history/:batch_id", s.GetBatch)
	}
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
