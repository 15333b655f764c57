package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	checkoutdomain "github.com/smallbiznis/storefront/internal/checkout/domain"
	"github.com/smallbiznis/storefront/internal/config"
	"github.com/smallbiznis/storefront/internal/observability"
	obsmiddleware "github.com/smallbiznis/storefront/internal/observability/logger"
	obstracing "github.com/smallbiznis/storefront/internal/observability/tracing"
	orderdomain "github.com/smallbiznis/storefront/internal/order/domain"
	paymentdomain "github.com/smallbiznis/storefront/internal/payment/domain"
	webhookdomain "github.com/smallbiznis/storefront/internal/webhook/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config) *gin.Engine {
	return NewEngine(obsCfg)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
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
	engine      *gin.Engine
	cfg         config.Config
	log         *zap.Logger
	webhookSvc  webhookdomain.Service
	checkoutSvc checkoutdomain.Service
	orderSvc    orderdomain.Service
	paymentSvc  paymentdomain.Service
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	Log         *zap.Logger
	WebhookSvc  webhookdomain.Service
	CheckoutSvc checkoutdomain.Service
	OrderSvc    orderdomain.Service
	PaymentSvc  paymentdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		log:         p.Log.Named("http.server"),
		webhookSvc:  p.WebhookSvc,
		checkoutSvc: p.CheckoutSvc,
		orderSvc:    p.OrderSvc,
		paymentSvc:  p.PaymentSvc,
	}

	svc.registerWebhookRoutes()
	svc.registerCheckoutRoutes()
	svc.registerOrderRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerWebhookRoutes() {
	s.engine.POST("/webhooks/:provider", s.HandleWebhook)
}

func (s *Server) registerCheckoutRoutes() {
	checkout := s.engine.Group("/v1/checkout")

	checkout.POST("/charge", s.Charge)
	checkout.POST("/track", s.TrackCheckout)
	checkout.POST("/abandon", s.AbandonCheckout)
}

func (s *Server) registerOrderRoutes() {
	s.engine.GET("/v1/orders/:external_id", s.GetOrder)
}
