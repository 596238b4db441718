package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/growthlab/mentorship-backend/internal/middleware/auth"
	"github.com/growthlab/mentorship-backend/internal/usecase"
)

type AccessHandler struct {
	logger        *zap.Logger
	accessService *usecase.AccessService
	retryCount    int
}

func NewAccessHandler(logger *zap.Logger, accessService *usecase.AccessService, retryCount int) *AccessHandler {
	if retryCount <= 0 {
		retryCount = 3
	}
	return &AccessHandler{
		logger:        logger,
		accessService: accessService,
		retryCount:    retryCount,
	}
}

// GetAccess resolves the caller's membership access state. The
// post_checkout flag engages the bounded provider retry for callers
// landing here straight from a checkout redirect.
func (h *AccessHandler) GetAccess(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err // RequireAuth already returns the JSON error response
	}

	postCheckout := c.QueryParam("post_checkout") == "true" || c.QueryParam("post_checkout") == "1"
	opts := usecase.ResolveOptions{
		PostCheckout:    postCheckout,
		RequiredPriceID: c.QueryParam("price_id"),
	}
	if postCheckout {
		opts.RetryCount = h.retryCount
	}

	result, err := h.accessService.Resolve(c.Request().Context(), user.UserID, opts)
	if err != nil {
		h.logger.Error("Failed to resolve access",
			zap.String("user_id", user.UserID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to resolve access state",
		})
	}

	return c.JSON(http.StatusOK, result)
}
