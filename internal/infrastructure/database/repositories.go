package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/growthlab/mentorship-backend/internal/adapter/repository"
	domainRepo "github.com/growthlab/mentorship-backend/internal/domain/repository"
)

// Repositories holds all repository instances
type Repositories struct {
	UserSubscription domainRepo.UserSubscriptionRepository
	WebhookEvent     domainRepo.WebhookEventRepository
}

// NewRepositories creates new repository instances with database connection
func NewRepositories(db *gorm.DB, logger *zap.Logger) *Repositories {
	return &Repositories{
		UserSubscription: repository.NewUserSubscriptionRepository(db, logger),
		WebhookEvent:     repository.NewWebhookEventRepository(db, logger),
	}
}
