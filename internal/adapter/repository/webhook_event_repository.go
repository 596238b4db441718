package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/growthlab/mentorship-backend/internal/domain/model"
	"github.com/growthlab/mentorship-backend/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type webhookEventRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewWebhookEventRepository creates a new webhook event repository
func NewWebhookEventRepository(db *gorm.DB, logger *zap.Logger) repository.WebhookEventRepository {
	return &webhookEventRepository{
		db:     db,
		logger: logger,
	}
}

// Record inserts the event audit row, ignoring redelivered duplicates
func (r *webhookEventRepository) Record(ctx context.Context, event *model.WebhookEvent) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(event).Error
	if err != nil {
		r.logger.Error("Failed to record webhook event",
			zap.String("stripe_event_id", event.StripeEventID),
			zap.Error(err))
		return fmt.Errorf("failed to record webhook event: %w", err)
	}

	return nil
}

// MarkProcessed stamps the processing outcome on the audit row
func (r *webhookEventRepository) MarkProcessed(ctx context.Context, stripeEventID string, processErr error) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at": &now,
	}
	if processErr != nil {
		msg := processErr.Error()
		updates["last_error"] = &msg
	}

	err := r.db.WithContext(ctx).
		Model(&model.WebhookEvent{}).
		Where("stripe_event_id = ?", stripeEventID).
		Updates(updates).Error
	if err != nil {
		r.logger.Error("Failed to mark webhook event processed",
			zap.String("stripe_event_id", stripeEventID),
			zap.Error(err))
		return fmt.Errorf("failed to mark webhook event processed: %w", err)
	}

	return nil
}
