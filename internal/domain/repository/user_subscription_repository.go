package repository

import (
	"context"

	"github.com/growthlab/mentorship-backend/internal/domain/model"
)

// UserSubscriptionRepository persists the local billing snapshot, one
// record per user identity.
type UserSubscriptionRepository interface {
	// GetByUserID returns the record for the user, or nil when none exists.
	GetByUserID(ctx context.Context, userID string) (*model.UserSubscriptionRecord, error)

	// Upsert writes the record keyed by user id. Concurrent writers
	// converge to whichever snapshot lands last.
	Upsert(ctx context.Context, record *model.UserSubscriptionRecord) error
}
