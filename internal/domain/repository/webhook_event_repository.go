package repository

import (
	"context"

	"github.com/growthlab/mentorship-backend/internal/domain/model"
)

// WebhookEventRepository records received provider events for auditing.
type WebhookEventRepository interface {
	// Record inserts the event, ignoring duplicates by provider event id.
	Record(ctx context.Context, event *model.WebhookEvent) error

	// MarkProcessed stamps the processing outcome on the audit row.
	MarkProcessed(ctx context.Context, stripeEventID string, processErr error) error
}
