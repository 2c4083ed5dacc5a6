package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/lumapix/lumapix/internal/catalog"
	"github.com/lumapix/lumapix/internal/checkout"
	checkoutdomain "github.com/lumapix/lumapix/internal/checkout/domain"
	"github.com/lumapix/lumapix/internal/config"
	"github.com/lumapix/lumapix/internal/creditpack"
	creditpackdomain "github.com/lumapix/lumapix/internal/creditpack/domain"
	"github.com/lumapix/lumapix/internal/ledger"
	ledgerdomain "github.com/lumapix/lumapix/internal/ledger/domain"
	obsmiddleware "github.com/lumapix/lumapix/internal/observability/logger"
	"github.com/lumapix/lumapix/internal/subscription"
	subscriptiondomain "github.com/lumapix/lumapix/internal/subscription/domain"
	"github.com/lumapix/lumapix/internal/webhook"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	catalog.Module,
	ledger.Module,
	subscription.Module,
	creditpack.Module,
	checkout.Module,
	webhook.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware())
	r.HandleMethodNotAllowed = true

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
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
	engine          *gin.Engine
	cfg             config.Config
	db              *gorm.DB
	log             *zap.Logger
	catalogHolder   *catalog.Holder
	webhookSvc      *webhook.Service
	subscriptionSvc subscriptiondomain.Service
	creditPackSvc   creditpackdomain.Service
	checkoutSvc     checkoutdomain.Service
	ledgerSvc       ledgerdomain.Service
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	DB              *gorm.DB
	Log             *zap.Logger
	CatalogHolder   *catalog.Holder
	WebhookSvc      *webhook.Service
	SubscriptionSvc subscriptiondomain.Service
	CreditPackSvc   creditpackdomain.Service
	CheckoutSvc     checkoutdomain.Service
	LedgerSvc       ledgerdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		db:              p.DB,
		log:             p.Log.Named("server"),
		catalogHolder:   p.CatalogHolder,
		webhookSvc:      p.WebhookSvc,
		subscriptionSvc: p.SubscriptionSvc,
		creditPackSvc:   p.CreditPackSvc,
		checkoutSvc:     p.CheckoutSvc,
		ledgerSvc:       p.LedgerSvc,
	}

	svc.registerWebhookRoutes()
	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerWebhookRoutes() {
	s.engine.POST("/webhooks/stripe", s.HandleStripeWebhook)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1")

	api.GET("/catalog", s.GetCatalog)
	api.GET("/users/:user_id/credits", s.GetUserCredits)
	api.GET("/users/:user_id/credits/history", s.GetUserCreditHistory)
	api.POST("/checkout/sessions", s.TrackCheckoutSession)
}
