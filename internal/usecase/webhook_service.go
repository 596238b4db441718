package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"
	"go.uber.org/zap"

	"github.com/growthlab/mentorship-backend/internal/domain/model"
	"github.com/growthlab/mentorship-backend/internal/domain/provider"
	"github.com/growthlab/mentorship-backend/internal/domain/repository"
)

// Customer metadata keys carrying platform cross-references.
const (
	metadataUserID   = "userId"
	metadataMemberID = "discordId"
)

// amountTaxDisplay is the invoice rendering setting every customer must
// carry so finalized invoices break out tax.
const amountTaxDisplay = "include_inclusive_tax"

// WebhookService keeps the local snapshot current from provider-pushed
// events and fires the community side effects. Handling is idempotent
// under redelivery; no side effect failure blocks another.
type WebhookService struct {
	billing   provider.BillingProvider
	community provider.CommunityProvider
	records   repository.UserSubscriptionRepository
	events    repository.WebhookEventRepository
	logger    *zap.Logger
}

// NewWebhookService creates a new webhook synchronization service
func NewWebhookService(
	billing provider.BillingProvider,
	community provider.CommunityProvider,
	records repository.UserSubscriptionRepository,
	events repository.WebhookEventRepository,
	logger *zap.Logger,
) *WebhookService {
	return &WebhookService{
		billing:   billing,
		community: community,
		records:   records,
		events:    events,
		logger:    logger,
	}
}

// Handle dispatches a verified provider event. Only errors on the
// primary state write are returned, so the provider redelivers exactly
// the events whose snapshot did not land.
func (s *WebhookService) Handle(ctx context.Context, event stripe.Event) error {
	s.recordEvent(ctx, event)

	var err error
	switch event.Type {
	case stripe.EventTypeCustomerCreated:
		err = s.handleCustomerCreated(ctx, event)
	case stripe.EventTypeCustomerSubscriptionCreated,
		stripe.EventTypeCustomerSubscriptionUpdated,
		stripe.EventTypeCustomerSubscriptionDeleted:
		err = s.handleSubscriptionEvent(ctx, event)
	case stripe.EventTypeInvoiceFinalized:
		err = s.handleInvoiceFinalized(ctx, event)
	default:
		s.logger.Debug("Ignoring unhandled event type",
			zap.String("type", string(event.Type)),
			zap.String("id", event.ID))
	}

	s.markProcessed(ctx, event.ID, err)
	return err
}

func (s *WebhookService) handleCustomerCreated(ctx context.Context, event stripe.Event) error {
	var cust stripe.Customer
	if err := json.Unmarshal(event.Data.Raw, &cust); err != nil {
		return fmt.Errorf("failed to parse customer event: %w", err)
	}

	s.ensureTaxMetadata(ctx, cust.ID, customerTaxDisplay(&cust))
	return nil
}

func (s *WebhookService) handleSubscriptionEvent(ctx context.Context, event stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return fmt.Errorf("failed to parse subscription event: %w", err)
	}
	if sub.Customer == nil || sub.Customer.ID == "" {
		s.logger.Warn("Subscription event without customer reference",
			zap.String("event_id", event.ID),
			zap.String("subscription_id", sub.ID))
		return nil
	}

	cust, err := s.billing.GetCustomer(ctx, sub.Customer.ID)
	if err != nil {
		return fmt.Errorf("failed to resolve customer %s: %w", sub.Customer.ID, err)
	}

	userID, ok := cust.Metadata[metadataUserID]
	if !ok || userID == "" {
		s.logger.Warn("Billing customer carries no user cross-reference, skipping sync",
			zap.String("customer_id", cust.ID),
			zap.String("subscription_id", sub.ID))
		return nil
	}
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		s.logger.Warn("Billing customer carries malformed user id, skipping sync",
			zap.String("customer_id", cust.ID),
			zap.String("user_id", userID))
		return nil
	}

	record := &model.UserSubscriptionRecord{
		UserID:               userUUID,
		StripeCustomerID:     cust.ID,
		StripeSubscriptionID: sub.ID,
		Status:               string(sub.Status),
		CancelAtPeriodEnd:    sub.CancelAtPeriodEnd,
		CancelAt:             unixTimePtr(sub.CancelAt),
		CurrentPeriodEnd:     unixTimePtr(sub.CurrentPeriodEnd),
		PriceIDs:             subscriptionPriceIDs(&sub),
		UpdatedAt:            time.Now(),
	}
	if err := s.records.Upsert(ctx, record); err != nil {
		return fmt.Errorf("failed to upsert subscription snapshot: %w", err)
	}

	// Side effects below are isolated: each failure is logged and
	// dropped so the authoritative snapshot write above stands alone.
	s.syncCommunityRole(ctx, cust, &sub)
	s.notifyTransition(ctx, event, cust, &sub)

	return nil
}

func (s *WebhookService) handleInvoiceFinalized(ctx context.Context, event stripe.Event) error {
	var inv stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
		return fmt.Errorf("failed to parse invoice event: %w", err)
	}
	if inv.Customer == nil || inv.Customer.ID == "" {
		return nil
	}

	display := ""
	if inv.Rendering != nil {
		display = string(inv.Rendering.AmountTaxDisplay)
	}
	s.ensureTaxMetadata(ctx, inv.Customer.ID, display)
	return nil
}

// ensureTaxMetadata self-heals the customer's invoice tax rendering
// setting. Best effort, never blocking.
func (s *WebhookService) ensureTaxMetadata(ctx context.Context, customerID, currentDisplay string) {
	if currentDisplay == amountTaxDisplay {
		return
	}

	params := &stripe.CustomerParams{
		InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{
			RenderingOptions: &stripe.CustomerInvoiceSettingsRenderingOptionsParams{
				AmountTaxDisplay: stripe.String(amountTaxDisplay),
			},
		},
	}
	if err := s.billing.UpdateCustomer(ctx, customerID, params); err != nil {
		s.logger.Warn("Failed to apply invoice tax metadata",
			zap.String("customer_id", customerID),
			zap.Error(err))
		return
	}

	s.logger.Info("Applied invoice tax metadata",
		zap.String("customer_id", customerID))
}

func (s *WebhookService) syncCommunityRole(ctx context.Context, cust *stripe.Customer, sub *stripe.Subscription) {
	memberID, ok := cust.Metadata[metadataMemberID]
	if !ok || memberID == "" {
		s.logger.Debug("Customer has no community member link, skipping role sync",
			zap.String("customer_id", cust.ID))
		return
	}

	var err error
	if ShouldGrantAccess(sub, time.Now()) {
		err = s.community.GrantMemberRole(ctx, memberID)
	} else {
		err = s.community.RevokeMemberRole(ctx, memberID)
	}
	if err != nil {
		s.logger.Warn("Community role sync failed",
			zap.String("customer_id", cust.ID),
			zap.String("member_id", memberID),
			zap.Error(err))
	}
}

func (s *WebhookService) notifyTransition(ctx context.Context, event stripe.Event, cust *stripe.Customer, sub *stripe.Subscription) {
	variant := TransitionNotification(event.Type, event.Data.PreviousAttributes, sub)
	if variant == NotifyNone {
		return
	}

	msg := notificationMessage(variant, cust, sub)
	if err := s.community.PostNotification(ctx, msg); err != nil {
		s.logger.Warn("Operational notification failed",
			zap.String("subscription_id", sub.ID),
			zap.Error(err))
	}
}

func notificationMessage(variant NotificationVariant, cust *stripe.Customer, sub *stripe.Subscription) string {
	who := cust.Email
	if who == "" {
		who = cust.ID
	}

	switch variant {
	case NotifySubscriptionStarted:
		return fmt.Sprintf("New subscription: %s (%s)", who, sub.ID)
	case NotifyCancellationScheduled:
		when := "period end"
		if t := unixTimePtr(sub.CancelAt); t != nil {
			when = t.Format("2006-01-02")
		} else if t := unixTimePtr(sub.CurrentPeriodEnd); t != nil {
			when = t.Format("2006-01-02")
		}
		return fmt.Sprintf("Cancellation scheduled: %s (%s), effective %s", who, sub.ID, when)
	case NotifyCancellationReversed:
		return fmt.Sprintf("Cancellation reversed: %s (%s)", who, sub.ID)
	case NotifySubscriptionEnded:
		return fmt.Sprintf("Subscription ended: %s (%s)", who, sub.ID)
	default:
		return ""
	}
}

func (s *WebhookService) recordEvent(ctx context.Context, event stripe.Event) {
	audit := &model.WebhookEvent{
		StripeEventID:   event.ID,
		EventType:       string(event.Type),
		StripeCreatedAt: unixTimePtr(event.Created),
	}
	var data model.JSONB
	if err := json.Unmarshal(event.Data.Raw, &data); err == nil {
		audit.Data = data
	}

	if err := s.events.Record(ctx, audit); err != nil {
		s.logger.Warn("Failed to record webhook audit row",
			zap.String("event_id", event.ID),
			zap.Error(err))
	}
}

func (s *WebhookService) markProcessed(ctx context.Context, eventID string, processErr error) {
	if err := s.events.MarkProcessed(ctx, eventID, processErr); err != nil {
		s.logger.Warn("Failed to stamp webhook audit row",
			zap.String("event_id", eventID),
			zap.Error(err))
	}
}

func customerTaxDisplay(cust *stripe.Customer) string {
	if cust.InvoiceSettings == nil || cust.InvoiceSettings.RenderingOptions == nil {
		return ""
	}
	return string(cust.InvoiceSettings.RenderingOptions.AmountTaxDisplay)
}
