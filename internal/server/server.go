package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/bursar/internal/clock"
	"github.com/smallbiznis/bursar/internal/config"
	"github.com/smallbiznis/bursar/internal/feetransaction"
	feedomain "github.com/smallbiznis/bursar/internal/feetransaction/domain"
	"github.com/smallbiznis/bursar/internal/observability"
	obslogger "github.com/smallbiznis/bursar/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/bursar/internal/observability/metrics"
	obstracing "github.com/smallbiznis/bursar/internal/observability/tracing"
	"github.com/smallbiznis/bursar/internal/receipt"
	"github.com/smallbiznis/bursar/internal/receiptledger"
	ledgerdomain "github.com/smallbiznis/bursar/internal/receiptledger/domain"
	"github.com/smallbiznis/bursar/internal/sequence"
	"github.com/smallbiznis/bursar/internal/student"
	studentdomain "github.com/smallbiznis/bursar/internal/student/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	clock.Module,
	sequence.Module,
	student.Module,
	feetransaction.Module,
	receiptledger.Module,
	receipt.Module,
	fx.Provide(registerGin),
	fx.Provide(provideReceiptRenderer),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

// ReceiptRenderer prints the receipt PDF of a fee transaction.
type ReceiptRenderer interface {
	Render(ctx context.Context, feeTransactionID string) (receipt.Rendered, error)
}

func provideReceiptRenderer(svc *receipt.Service) ReceiptRenderer {
	return svc
}

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type engineParams struct {
	fx.In

	ObsCfg  observability.Config
	Metrics *obsmetrics.Metrics `optional:"true"`
}

func registerGin(p engineParams) *gin.Engine {
	return NewEngine(p.ObsCfg, p.Metrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
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
	engine     *gin.Engine
	cfg        config.Config
	log        *zap.Logger
	studentSvc studentdomain.Service
	feeSvc     feedomain.Service
	ledgerSvc  ledgerdomain.Service
	receipts   ReceiptRenderer
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Log        *zap.Logger
	StudentSvc studentdomain.Service
	FeeSvc     feedomain.Service
	LedgerSvc  ledgerdomain.Service
	Receipts   ReceiptRenderer
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		log:        p.Log.Named("http.server"),
		studentSvc: p.StudentSvc,
		feeSvc:     p.FeeSvc,
		ledgerSvc:  p.LedgerSvc,
		receipts:   p.Receipts,
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

	api.POST("/students", s.CreateStudent)
	api.GET("/students/:id", s.GetStudentByID)

	fees := api.Group("/fees")
	{
		fees.POST("", s.CreateFee)
		fees.GET("", s.ListFees)
		fees.POST("/import", s.ImportFees)
		fees.GET("/:id", s.GetFeeByID)
		fees.DELETE("/:id", s.DeleteFee)
		fees.POST("/:id/assign-serial", s.AssignSerial)
		fees.POST("/:id/ledger", s.BuildLedger)
		fees.GET("/:id/ledger", s.GetLedger)
		fees.GET("/:id/receipt.pdf", s.GetReceiptPDF)
	}

	api.GET("/receipts", s.ListLedgers)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
