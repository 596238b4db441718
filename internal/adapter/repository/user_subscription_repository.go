package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/growthlab/mentorship-backend/internal/domain/model"
	"github.com/growthlab/mentorship-backend/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type userSubscriptionRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewUserSubscriptionRepository creates a new user subscription repository
func NewUserSubscriptionRepository(db *gorm.DB, logger *zap.Logger) repository.UserSubscriptionRepository {
	return &userSubscriptionRepository{
		db:     db,
		logger: logger,
	}
}

// GetByUserID retrieves the snapshot record for a user
func (r *userSubscriptionRepository) GetByUserID(ctx context.Context, userID string) (*model.UserSubscriptionRecord, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id: %w", err)
	}

	var record model.UserSubscriptionRecord
	err = r.db.WithContext(ctx).Where("user_id = ?", userUUID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get subscription record",
			zap.String("user_id", userID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get subscription record: %w", err)
	}

	return &record, nil
}

// Upsert writes the snapshot keyed by user id. Racing writers (a
// redelivered webhook against a cache-miss pull) converge to whichever
// snapshot lands last; each write is a full copy of external truth.
func (r *userSubscriptionRepository) Upsert(ctx context.Context, record *model.UserSubscriptionRecord) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"stripe_customer_id",
				"stripe_subscription_id",
				"status",
				"cancel_at_period_end",
				"cancel_at",
				"current_period_end",
				"price_ids",
				"updated_at",
			}),
		}).
		Create(record).Error
	if err != nil {
		r.logger.Error("Failed to upsert subscription record",
			zap.String("user_id", record.UserID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to upsert subscription record: %w", err)
	}

	return nil
}
