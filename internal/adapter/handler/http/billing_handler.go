package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/growthlab/mentorship-backend/internal/domain/provider"
	"github.com/growthlab/mentorship-backend/internal/domain/repository"
	"github.com/growthlab/mentorship-backend/internal/middleware/auth"
)

type BillingHandler struct {
	logger    *zap.Logger
	billing   provider.BillingProvider
	records   repository.UserSubscriptionRepository
	clientURL string
}

func NewBillingHandler(
	logger *zap.Logger,
	billing provider.BillingProvider,
	records repository.UserSubscriptionRepository,
	clientURL string,
) *BillingHandler {
	return &BillingHandler{
		logger:    logger,
		billing:   billing,
		records:   records,
		clientURL: clientURL,
	}
}

// CreatePortalSession creates a hosted self-service billing portal
// session for the caller's billing customer.
func (h *BillingHandler) CreatePortalSession(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err // RequireAuth already returns the JSON error response
	}

	record, err := h.records.GetByUserID(c.Request().Context(), user.UserID)
	if err != nil {
		h.logger.Error("Failed to look up billing record",
			zap.String("user_id", user.UserID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to look up billing account",
		})
	}
	if record == nil || record.StripeCustomerID == "" {
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "No billing account for user",
		})
	}

	url, err := h.billing.CreatePortalSession(c.Request().Context(), record.StripeCustomerID, h.clientURL)
	if err != nil {
		h.logger.Error("Failed to create billing portal session",
			zap.String("user_id", user.UserID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to create billing portal session",
		})
	}

	return c.JSON(http.StatusOK, echo.Map{"url": url})
}
