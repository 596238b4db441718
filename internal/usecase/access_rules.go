package usecase

import (
	"time"

	"github.com/stripe/stripe-go/v79"
)

// ShouldGrantAccess decides whether a subscription grants community
// access at the given instant.
//
// Trialing subscriptions lose access the moment a cancellation is
// scheduled; active (paid) subscriptions keep access through the end of
// the paid period even with a cancellation scheduled. This asymmetry is
// business policy, not an accident.
func ShouldGrantAccess(sub *stripe.Subscription, now time.Time) bool {
	if sub == nil {
		return false
	}

	if sub.Status != stripe.SubscriptionStatusActive && sub.Status != stripe.SubscriptionStatusTrialing {
		return false
	}

	if sub.CurrentPeriodEnd > 0 && time.Unix(sub.CurrentPeriodEnd, 0).Before(now) {
		return false
	}

	cancelScheduled := sub.CancelAtPeriodEnd || sub.CancelAt > 0
	if sub.Status == stripe.SubscriptionStatusTrialing {
		return !cancelScheduled
	}

	return true
}

// NotificationVariant classifies a meaningful subscription transition
// worth an operational notification.
type NotificationVariant int

const (
	NotifyNone NotificationVariant = iota
	NotifySubscriptionStarted
	NotifyCancellationScheduled
	NotifyCancellationReversed
	NotifySubscriptionEnded
)

// TransitionNotification maps a subscription event plus the event's
// embedded previous values to a notification variant. The diff is taken
// against the previous attributes the provider delivered, never against
// local storage, so a replay with unchanged previous values yields the
// same variant.
func TransitionNotification(eventType stripe.EventType, previous map[string]interface{}, current *stripe.Subscription) NotificationVariant {
	switch eventType {
	case stripe.EventTypeCustomerSubscriptionCreated:
		return NotifySubscriptionStarted
	case stripe.EventTypeCustomerSubscriptionDeleted:
		return NotifySubscriptionEnded
	case stripe.EventTypeCustomerSubscriptionUpdated:
		// fall through to the cancel-state diff below
	default:
		return NotifyNone
	}

	if current == nil {
		return NotifyNone
	}

	curScheduled := current.CancelAtPeriodEnd || current.CancelAt > 0

	// Reconstruct the prior cancel state: start from the current value
	// and override with whatever previous attributes the event carries.
	prevPeriodEnd := current.CancelAtPeriodEnd
	prevCancelAt := current.CancelAt > 0
	changed := false

	if v, ok := previous["cancel_at_period_end"]; ok {
		changed = true
		b, _ := v.(bool)
		prevPeriodEnd = b
	}
	if v, ok := previous["cancel_at"]; ok {
		changed = true
		f, isNum := v.(float64)
		prevCancelAt = isNum && f > 0
	}

	if !changed {
		return NotifyNone
	}

	prevScheduled := prevPeriodEnd || prevCancelAt
	switch {
	case !prevScheduled && curScheduled:
		return NotifyCancellationScheduled
	case prevScheduled && !curScheduled:
		return NotifyCancellationReversed
	default:
		return NotifyNone
	}
}
