package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"
	"go.uber.org/zap"

	"github.com/growthlab/mentorship-backend/internal/domain/entity"
	"github.com/growthlab/mentorship-backend/internal/domain/model"
	"github.com/growthlab/mentorship-backend/internal/domain/provider"
	"github.com/growthlab/mentorship-backend/internal/domain/repository"
)

// AccessService resolves a user's membership access through a
// read-through snapshot cache over the billing provider.
type AccessService struct {
	billing         provider.BillingProvider
	records         repository.UserSubscriptionRepository
	requiredPriceID string
	retryDelay      time.Duration
	logger          *zap.Logger

	// sleep is swapped out in tests
	sleep func(time.Duration)
}

// ResolveOptions tunes a single resolution.
type ResolveOptions struct {
	// RetryCount bounds provider re-queries on the post-checkout path.
	RetryCount int
	// PostCheckout forces a provider refresh, tolerating propagation
	// lag right after a checkout redirect.
	PostCheckout bool
	// RequiredPriceID overrides the service-wide required offering.
	RequiredPriceID string
}

// NewAccessService creates a new access resolution service
func NewAccessService(
	billing provider.BillingProvider,
	records repository.UserSubscriptionRepository,
	requiredPriceID string,
	retryDelay time.Duration,
	logger *zap.Logger,
) *AccessService {
	if retryDelay <= 0 {
		retryDelay = 2 * time.Second
	}
	return &AccessService{
		billing:         billing,
		records:         records,
		requiredPriceID: requiredPriceID,
		retryDelay:      retryDelay,
		logger:          logger,
		sleep:           time.Sleep,
	}
}

// Resolve returns the user's current access state. Cached records are
// served without external calls; misses and post-checkout refreshes
// pull from the billing provider and write through. Access checks fail
// closed on unrecoverable errors.
func (s *AccessService) Resolve(ctx context.Context, userID string, opts ResolveOptions) (*entity.AccessResult, error) {
	requiredPrice := opts.RequiredPriceID
	if requiredPrice == "" {
		requiredPrice = s.requiredPriceID
	}

	record, err := s.records.GetByUserID(ctx, userID)
	if err != nil {
		// Read hiccups degrade to a provider pull
		s.logger.Warn("Failed to read subscription record, falling back to provider",
			zap.String("user_id", userID),
			zap.Error(err))
		record = nil
	}

	if record != nil && !opts.PostCheckout {
		if record.Status == string(entity.SubscriptionStatusNone) {
			// Confirmed non-subscriber, never re-query the provider
			return &entity.AccessResult{HasAccess: false}, nil
		}
		details := detailsFromRecord(record)
		return &entity.AccessResult{
			HasAccess: hasAccess(details, requiredPrice),
			Details:   details,
		}, nil
	}

	result, err := s.resolveFromProvider(ctx, userID, requiredPrice, opts)
	if err != nil {
		if record != nil && record.Status != string(entity.SubscriptionStatusNone) {
			s.logger.Warn("Provider resolution failed, degrading to cached record",
				zap.String("user_id", userID),
				zap.Error(err))
			details := detailsFromRecord(record)
			return &entity.AccessResult{
				HasAccess: hasAccess(details, requiredPrice),
				Details:   details,
			}, nil
		}
		s.logger.Error("Provider resolution failed with no usable cache, denying access",
			zap.String("user_id", userID),
			zap.Error(err))
		return &entity.AccessResult{HasAccess: false}, nil
	}

	return result, nil
}

// resolveFromProvider pulls the customer and subscription state from the
// billing provider, retrying under the post-checkout policy, and writes
// the outcome (including a negative one) back to the local cache.
func (s *AccessService) resolveFromProvider(ctx context.Context, userID, requiredPrice string, opts ResolveOptions) (*entity.AccessResult, error) {
	attempts := 1
	if opts.PostCheckout && opts.RetryCount > 0 {
		attempts += opts.RetryCount
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			s.sleep(s.retryDelay)
		}

		cust, err := s.billing.FindCustomerByUserID(ctx, userID)
		if err != nil {
			lastErr = err
			continue
		}

		if cust == nil {
			if opts.PostCheckout && attempt < attempts-1 {
				// The customer may not be visible yet right after checkout
				continue
			}
			s.persist(ctx, userID, "", nil)
			return &entity.AccessResult{HasAccess: false}, nil
		}

		subs, err := s.billing.ListSubscriptionsForCustomer(ctx, cust.ID)
		if err != nil {
			lastErr = err
			continue
		}

		chosen := chooseSubscription(subs, requiredPrice)
		if chosen == nil {
			if opts.PostCheckout && attempt < attempts-1 {
				continue
			}
			s.persist(ctx, userID, cust.ID, nil)
			return &entity.AccessResult{HasAccess: false}, nil
		}

		details := detailsFromSubscription(cust.ID, chosen)
		s.persist(ctx, userID, cust.ID, details)
		return &entity.AccessResult{
			HasAccess: hasAccess(details, requiredPrice),
			Details:   details,
		}, nil
	}

	return nil, fmt.Errorf("billing provider unavailable: %w", lastErr)
}

// persist writes the resolved snapshot through to the local cache.
// Write errors are logged and swallowed so a store hiccup never
// regresses a read.
func (s *AccessService) persist(ctx context.Context, userID, customerID string, details *entity.SubscriptionDetails) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		s.logger.Warn("Skipping cache write for non-UUID user id", zap.String("user_id", userID))
		return
	}

	record := &model.UserSubscriptionRecord{
		UserID:           userUUID,
		StripeCustomerID: customerID,
		Status:           string(entity.SubscriptionStatusNone),
		UpdatedAt:        time.Now(),
	}
	if details != nil {
		record.StripeCustomerID = details.CustomerID
		record.StripeSubscriptionID = details.SubscriptionID
		record.Status = string(details.Status)
		record.CancelAtPeriodEnd = details.CancelAtPeriodEnd
		record.CancelAt = details.CancelAt
		record.CurrentPeriodEnd = details.CurrentPeriodEnd
		record.PriceIDs = model.StringList(details.PriceIDs)
	}

	if err := s.records.Upsert(ctx, record); err != nil {
		s.logger.Warn("Failed to write subscription snapshot",
			zap.String("user_id", userID),
			zap.Error(err))
	}
}

// chooseSubscription prefers a subscription that is both access-eligible
// and holds the required price, else falls back to the first.
func chooseSubscription(subs []*stripe.Subscription, requiredPrice string) *stripe.Subscription {
	if len(subs) == 0 {
		return nil
	}

	for _, sub := range subs {
		if sub.Status != stripe.SubscriptionStatusActive && sub.Status != stripe.SubscriptionStatusTrialing {
			continue
		}
		if requiredPrice != "" && !subscriptionHasPrice(sub, requiredPrice) {
			continue
		}
		return sub
	}

	return subs[0]
}

func subscriptionHasPrice(sub *stripe.Subscription, priceID string) bool {
	if sub.Items == nil {
		return false
	}
	for _, item := range sub.Items.Data {
		if item.Price != nil && item.Price.ID == priceID {
			return true
		}
	}
	return false
}

// hasAccess applies the snapshot access rule: not scheduled for
// cancellation, in an eligible status, and holding the required price
// when one is mandated.
func hasAccess(details *entity.SubscriptionDetails, requiredPrice string) bool {
	if details == nil {
		return false
	}

	isActive := !details.CancelAtPeriodEnd &&
		(details.Status == entity.SubscriptionStatusActive || details.Status == entity.SubscriptionStatusTrialing)
	if !isActive {
		return false
	}

	if requiredPrice != "" && !details.HasPrice(requiredPrice) {
		return false
	}

	return true
}

func detailsFromRecord(record *model.UserSubscriptionRecord) *entity.SubscriptionDetails {
	return &entity.SubscriptionDetails{
		CustomerID:        record.StripeCustomerID,
		SubscriptionID:    record.StripeSubscriptionID,
		Status:            entity.SubscriptionStatus(record.Status),
		CancelAtPeriodEnd: record.CancelAtPeriodEnd,
		CancelAt:          record.CancelAt,
		CurrentPeriodEnd:  record.CurrentPeriodEnd,
		PriceIDs:          record.PriceIDs,
	}
}

func detailsFromSubscription(customerID string, sub *stripe.Subscription) *entity.SubscriptionDetails {
	return &entity.SubscriptionDetails{
		CustomerID:        customerID,
		SubscriptionID:    sub.ID,
		Status:            entity.SubscriptionStatus(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		CancelAt:          unixTimePtr(sub.CancelAt),
		CurrentPeriodEnd:  unixTimePtr(sub.CurrentPeriodEnd),
		PriceIDs:          subscriptionPriceIDs(sub),
	}
}

// subscriptionPriceIDs returns the deduplicated, sorted set of price ids
// across the subscription's current line items.
func subscriptionPriceIDs(sub *stripe.Subscription) []string {
	if sub.Items == nil {
		return nil
	}

	seen := make(map[string]struct{}, len(sub.Items.Data))
	var ids []string
	for _, item := range sub.Items.Data {
		if item.Price == nil || item.Price.ID == "" {
			continue
		}
		if _, ok := seen[item.Price.ID]; ok {
			continue
		}
		seen[item.Price.ID] = struct{}{}
		ids = append(ids, item.Price.ID)
	}
	sort.Strings(ids)

	return ids
}

func unixTimePtr(ts int64) *time.Time {
	if ts <= 0 {
		return nil
	}
	t := time.Unix(ts, 0).UTC()
	return &t
}
