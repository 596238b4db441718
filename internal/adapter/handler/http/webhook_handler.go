package http

import (
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stripe/stripe-go/v79/webhook"
	"go.uber.org/zap"

	"github.com/growthlab/mentorship-backend/internal/usecase"
)

type WebhookHandler struct {
	logger         *zap.Logger
	webhookSecret  string
	webhookService *usecase.WebhookService
}

func NewWebhookHandler(logger *zap.Logger, webhookSecret string, webhookService *usecase.WebhookService) *WebhookHandler {
	return &WebhookHandler{
		logger:         logger,
		webhookSecret:  webhookSecret,
		webhookService: webhookService,
	}
}

// HandleWebhook verifies and dispatches a provider-pushed event. A 2xx
// acknowledges the event; any non-2xx makes the provider redeliver.
func (h *WebhookHandler) HandleWebhook(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		h.logger.Error("Error reading request body", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Error reading request body"})
	}

	sig := c.Request().Header.Get("Stripe-Signature")

	event, err := webhook.ConstructEventWithOptions(
		body,
		sig,
		h.webhookSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		},
	)
	if err != nil {
		h.logger.Error("Webhook signature verification failed",
			zap.Error(err),
			zap.String("signature", sig),
		)
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Webhook signature verification failed",
		})
	}

	h.logger.Info("Webhook event received",
		zap.String("type", string(event.Type)),
		zap.String("id", event.ID),
		zap.Time("created", time.Unix(event.Created, 0)),
	)

	if err := h.webhookService.Handle(c.Request().Context(), event); err != nil {
		h.logger.Error("Webhook processing failed",
			zap.String("id", event.ID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Webhook processing failed",
		})
	}

	return c.JSON(http.StatusOK, echo.Map{"received": true})
}
