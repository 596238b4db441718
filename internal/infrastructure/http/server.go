package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	handlers "github.com/growthlab/mentorship-backend/internal/adapter/handler/http"
	"github.com/growthlab/mentorship-backend/internal/config"
	"github.com/growthlab/mentorship-backend/internal/domain/provider"
	"github.com/growthlab/mentorship-backend/internal/infrastructure/database"
	"github.com/growthlab/mentorship-backend/internal/middleware/auth"
	"github.com/growthlab/mentorship-backend/internal/usecase"
)

type Server struct {
	config    *config.Config
	logger    *zap.Logger
	echo      *echo.Echo
	repos     *database.Repositories
	billing   provider.BillingProvider
	community provider.CommunityProvider
}

func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	repos *database.Repositories,
	billing provider.BillingProvider,
	community provider.CommunityProvider,
) *Server {
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.Service.ClientURL},
		AllowMethods: []string{echo.GET, echo.POST, echo.PUT, echo.DELETE},
	}))

	return &Server{
		config:    cfg,
		logger:    logger,
		echo:      e,
		repos:     repos,
		billing:   billing,
		community: community,
	}
}

func (s *Server) Start() error {
	// Setup routes
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.config.Server.HTTP.Host, s.config.Server.HTTP.Port)
	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	// Health check
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": "billing",
		})
	})

	// Initialize services
	accessService := usecase.NewAccessService(
		s.billing,
		s.repos.UserSubscription,
		s.config.Service.RequiredPriceID,
		s.config.Service.CheckoutRetryDelay,
		s.logger,
	)
	webhookService := usecase.NewWebhookService(
		s.billing,
		s.community,
		s.repos.UserSubscription,
		s.repos.WebhookEvent,
		s.logger,
	)
	metricsService := usecase.NewMetricsService(s.billing, s.config.Service.AdminRole, s.logger)

	// Initialize handlers
	accessHandler := handlers.NewAccessHandler(s.logger, accessService, s.config.Service.CheckoutRetryCount)
	metricsHandler := handlers.NewMetricsHandler(s.logger, metricsService)
	billingHandler := handlers.NewBillingHandler(s.logger, s.billing, s.repos.UserSubscription, s.config.Service.ClientURL)
	webhookHandler := handlers.NewWebhookHandler(s.logger, s.config.Service.StripeWebhookSecret, webhookService)

	// JWT middleware configuration
	jwtConfig := auth.JWTConfig{
		Secret: s.config.Service.JWTSecret,
		Logger: s.logger,
		SkipPaths: []string{
			"/health",
			"/webhook",
		},
	}

	// API v1 routes (require JWT authentication)
	v1 := s.echo.Group("/api/v1", auth.JWTMiddleware(jwtConfig))

	v1.GET("/access", accessHandler.GetAccess)
	v1.GET("/metrics", metricsHandler.GetMetrics)
	v1.POST("/billing/portal", billingHandler.CreatePortalSession)

	// Webhook route (outside API versioning, signature-verified)
	s.echo.POST("/webhook", webhookHandler.HandleWebhook)
}
