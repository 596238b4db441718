package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	domainErrors "github.com/growthlab/mentorship-backend/internal/domain/errors"
	"github.com/growthlab/mentorship-backend/internal/middleware/auth"
	"github.com/growthlab/mentorship-backend/internal/usecase"
)

const dateLayout = "2006-01-02"

type MetricsHandler struct {
	logger         *zap.Logger
	metricsService *usecase.MetricsService
}

func NewMetricsHandler(logger *zap.Logger, metricsService *usecase.MetricsService) *MetricsHandler {
	return &MetricsHandler{
		logger:         logger,
		metricsService: metricsService,
	}
}

// GetMetrics produces the financial report for the requested inclusive
// date range, defaulting to year-start through today (UTC).
func (h *MetricsHandler) GetMetrics(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err // RequireAuth already returns the JSON error response
	}

	now := time.Now().UTC()
	from := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, time.UTC)

	if raw := c.QueryParam("from"); raw != "" {
		parsed, err := time.ParseInLocation(dateLayout, raw, time.UTC)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error": "from must be a YYYY-MM-DD date",
			})
		}
		from = parsed
	}
	if raw := c.QueryParam("to"); raw != "" {
		parsed, err := time.ParseInLocation(dateLayout, raw, time.UTC)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error": "to must be a YYYY-MM-DD date",
			})
		}
		// Inclusive range: cover the whole end day
		to = parsed.Add(24*time.Hour - time.Second)
	}

	report, err := h.metricsService.Aggregate(c.Request().Context(), from, to, user.Role)
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrAdminRequired):
			return c.JSON(http.StatusForbidden, echo.Map{
				"error": "Administrator role required",
			})
		case errors.Is(err, domainErrors.ErrInvalidDateRange):
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error": "Invalid date range",
			})
		default:
			h.logger.Error("Metrics aggregation failed",
				zap.String("user_id", user.UserID),
				zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"error": "Failed to aggregate metrics",
			})
		}
	}

	c.Response().Header().Set("Cache-Control", "no-store")
	return c.JSON(http.StatusOK, report)
}
