package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	handlers "github.com/petmily/billing-service/internal/adapter/handler/http"
	"github.com/petmily/billing-service/internal/config"
	"github.com/petmily/billing-service/internal/infrastructure/metrics"
	"github.com/petmily/billing-service/internal/middleware/auth"
	"github.com/petmily/billing-service/internal/middleware/ratelimit"
	"github.com/petmily/billing-service/internal/usecase"
)

type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// Services bundles the usecases the HTTP surface exposes.
type Services struct {
	Confirmation *usecase.ConfirmationService
	Subscription *usecase.SubscriptionService
}

type Server struct {
	config    *config.Config
	logger    *zap.Logger
	echo      *echo.Echo
	services  Services
	metrics   *metrics.Metrics
	registry  *prometheus.Registry
	limiter   *ratelimit.Limiter
	stopPurge func()
}

func NewServer(cfg *config.Config, logger *zap.Logger, services Services, collector *metrics.Metrics, registry *prometheus.Registry) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &requestValidator{validate: validator.New()}

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.Service.ClientURL},
		AllowMethods: []string{echo.GET, echo.POST, echo.PUT, echo.DELETE},
	}))

	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore(), cfg.RateLimit.Policy())

	return &Server{
		config:   cfg,
		logger:   logger,
		echo:     e,
		services: services,
		metrics:  collector,
		registry: registry,
		limiter:  limiter,
	}
}

func (s *Server) Start() error {
	// Setup routes
	s.setupRoutes()

	s.stopPurge = s.limiter.StartPurging(time.Minute)

	addr := fmt.Sprintf("%s:%d", s.config.Server.HTTP.Host, s.config.Server.HTTP.Port)
	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.stopPurge != nil {
		s.stopPurge()
	}
	return s.echo.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	// Health check
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": s.config.Service.Name,
		})
	})

	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	// Initialize handlers
	billingHandler := handlers.NewBillingHandler(s.services.Confirmation, s.logger)
	subscriptionHandler := handlers.NewSubscriptionHandler(s.services.Subscription, s.logger)

	requireAuth := auth.JWTMiddleware(auth.JWTConfig{
		Secret: s.config.JWT.Secret,
		Logger: s.logger,
	})
	optionalAuth := auth.JWTMiddleware(auth.JWTConfig{
		Secret:   s.config.JWT.Secret,
		Logger:   s.logger,
		Optional: true,
	})
	limited := ratelimit.Middleware(ratelimit.MiddlewareConfig{
		Limiter: s.limiter,
		Metrics: s.metrics,
		Logger:  s.logger,
	})

	// Confirmation is rate limited per account, or per client IP for
	// unauthenticated callers, so the identifier must be resolved after
	// the token is parsed.
	billing := s.echo.Group("/billing")
	billing.POST("/confirm", billingHandler.Confirm, optionalAuth, limited)
	// Operator endpoint: exposes raw payment keys, keep it off the public
	// ingress and route it through the internal operator gateway.
	billing.GET("/reconciliation", billingHandler.ListReconciliation, requireAuth)

	s.echo.GET("/subscription", subscriptionHandler.GetSubscription, optionalAuth)
	// Cancellation mutates billing state, so it always requires a token.
	s.echo.DELETE("/subscription", subscriptionHandler.Cancel, requireAuth)
}
