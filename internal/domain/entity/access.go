package entity

import "time"

// SubscriptionStatus mirrors the billing provider's subscription lifecycle,
// extended with "none" for users confirmed to have no subscription.
type SubscriptionStatus string

const (
	SubscriptionStatusNone              SubscriptionStatus = "none"
	SubscriptionStatusTrialing          SubscriptionStatus = "trialing"
	SubscriptionStatusActive            SubscriptionStatus = "active"
	SubscriptionStatusPastDue           SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled          SubscriptionStatus = "canceled"
	SubscriptionStatusUnpaid            SubscriptionStatus = "unpaid"
	SubscriptionStatusIncomplete        SubscriptionStatus = "incomplete"
	SubscriptionStatusIncompleteExpired SubscriptionStatus = "incomplete_expired"
	SubscriptionStatusPaused            SubscriptionStatus = "paused"
)

// SubscriptionDetails is the access-relevant snapshot of a user's subscription.
type SubscriptionDetails struct {
	CustomerID        string             `json:"customer_id"`
	SubscriptionID    string             `json:"subscription_id,omitempty"`
	Status            SubscriptionStatus `json:"status"`
	CancelAtPeriodEnd bool               `json:"cancel_at_period_end"`
	CancelAt          *time.Time         `json:"cancel_at,omitempty"`
	CurrentPeriodEnd  *time.Time         `json:"current_period_end,omitempty"`
	PriceIDs          []string           `json:"price_ids"`
}

// HasPrice reports whether the subscription includes the given price.
func (d *SubscriptionDetails) HasPrice(priceID string) bool {
	for _, id := range d.PriceIDs {
		if id == priceID {
			return true
		}
	}
	return false
}

// AccessResult is the outcome of resolving a user's membership access.
type AccessResult struct {
	HasAccess bool                 `json:"has_access"`
	Details   *SubscriptionDetails `json:"details"`
}
