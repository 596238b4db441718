package provider

import (
	"context"
	"time"

	"github.com/stripe/stripe-go/v79"
)

// BillingProvider is the explicit, injectable surface of the external
// billing system. Implementations must not rely on package-global
// clients; the aggregation paths call these methods through
// request-scoped memoization.
type BillingProvider interface {
	// FindCustomerByUserID searches customers by the opaque user
	// cross-reference metadata. Returns nil when no customer matches.
	FindCustomerByUserID(ctx context.Context, userID string) (*stripe.Customer, error)

	// GetCustomer fetches a single customer by id.
	GetCustomer(ctx context.Context, customerID string) (*stripe.Customer, error)

	// UpdateCustomer applies the given params to a customer.
	UpdateCustomer(ctx context.Context, customerID string, params *stripe.CustomerParams) error

	// ListSubscriptionsForCustomer lists all of a customer's
	// subscriptions (any status), with price data expanded.
	ListSubscriptionsForCustomer(ctx context.Context, customerID string) ([]*stripe.Subscription, error)

	// ListAllSubscriptions pages through every subscription (any
	// status), with customer and price data expanded one level.
	ListAllSubscriptions(ctx context.Context) ([]*stripe.Subscription, error)

	// ListPaidInvoices pages through all paid invoices created within
	// the inclusive range, with customer data expanded.
	ListPaidInvoices(ctx context.Context, from, to time.Time) ([]*stripe.Invoice, error)

	// ListInvoiceLines fetches the line items of a single invoice.
	ListInvoiceLines(ctx context.Context, invoiceID string) ([]*stripe.InvoiceLineItem, error)

	// GetPrice fetches a price by id.
	GetPrice(ctx context.Context, priceID string) (*stripe.Price, error)

	// GetProduct fetches a product by id.
	GetProduct(ctx context.Context, productID string) (*stripe.Product, error)

	// CreatePortalSession creates a hosted self-service billing portal
	// session for the customer and returns its URL.
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
}

// CommunityProvider grants and revokes the paid-member role in the chat
// community and posts operational notifications. All methods are
// best-effort side effects for callers.
type CommunityProvider interface {
	GrantMemberRole(ctx context.Context, memberID string) error
	RevokeMemberRole(ctx context.Context, memberID string) error
	PostNotification(ctx context.Context, message string) error
}
