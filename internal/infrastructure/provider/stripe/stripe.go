package stripe

import (
	"context"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"go.uber.org/zap"

	"github.com/growthlab/mentorship-backend/internal/domain/provider"
)

// userIDMetadataKey is the customer metadata key carrying the opaque
// platform user identity.
const userIDMetadataKey = "userId"

// Provider implements provider.BillingProvider against Stripe through
// an explicit, injected API client.
type Provider struct {
	api    *client.API
	logger *zap.Logger
}

// NewProvider creates a Stripe-backed billing provider
func NewProvider(secretKey string, logger *zap.Logger) *Provider {
	api := &client.API{}
	api.Init(secretKey, nil)

	return &Provider{
		api:    api,
		logger: logger,
	}
}

// FindCustomerByUserID searches customers by user cross-reference metadata
func (p *Provider) FindCustomerByUserID(ctx context.Context, userID string) (*stripe.Customer, error) {
	params := &stripe.CustomerSearchParams{
		SearchParams: stripe.SearchParams{
			Query: fmt.Sprintf("metadata['%s']:'%s'", userIDMetadataKey, userID),
		},
	}
	params.Context = ctx

	iter := p.api.Customers.Search(params)
	for iter.Next() {
		return iter.Customer(), nil
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("error searching customers: %w", err)
	}

	return nil, nil
}

// GetCustomer fetches a single customer by id
func (p *Provider) GetCustomer(ctx context.Context, customerID string) (*stripe.Customer, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx

	cust, err := p.api.Customers.Get(customerID, params)
	if err != nil {
		return nil, fmt.Errorf("error fetching customer %s: %w", customerID, err)
	}
	return cust, nil
}

// UpdateCustomer applies the given params to a customer
func (p *Provider) UpdateCustomer(ctx context.Context, customerID string, params *stripe.CustomerParams) error {
	if params == nil {
		params = &stripe.CustomerParams{}
	}
	params.Context = ctx

	if _, err := p.api.Customers.Update(customerID, params); err != nil {
		return fmt.Errorf("error updating customer %s: %w", customerID, err)
	}
	return nil
}

// ListSubscriptionsForCustomer lists all of a customer's subscriptions
// with price data expanded (expansion stops at price, 4 levels max).
func (p *Provider) ListSubscriptionsForCustomer(ctx context.Context, customerID string) ([]*stripe.Subscription, error) {
	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String("all"),
	}
	params.Context = ctx
	params.AddExpand("data.items.data.price")

	var subs []*stripe.Subscription
	iter := p.api.Subscriptions.List(params)
	for iter.Next() {
		subs = append(subs, iter.Subscription())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("error listing subscriptions: %w", err)
	}

	return subs, nil
}

// ListAllSubscriptions pages through every subscription of any status
func (p *Provider) ListAllSubscriptions(ctx context.Context) ([]*stripe.Subscription, error) {
	params := &stripe.SubscriptionListParams{
		Status: stripe.String("all"),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(100)
	params.AddExpand("data.customer")
	params.AddExpand("data.items.data.price")

	var subs []*stripe.Subscription
	iter := p.api.Subscriptions.List(params)
	for iter.Next() {
		subs = append(subs, iter.Subscription())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("error listing all subscriptions: %w", err)
	}

	p.logger.Debug("Fetched subscription history", zap.Int("count", len(subs)))
	return subs, nil
}

// ListPaidInvoices pages through paid invoices created within the range
func (p *Provider) ListPaidInvoices(ctx context.Context, from, to time.Time) ([]*stripe.Invoice, error) {
	params := &stripe.InvoiceListParams{
		Status: stripe.String(string(stripe.InvoiceStatusPaid)),
		CreatedRange: &stripe.RangeQueryParams{
			GreaterThanOrEqual: from.Unix(),
			LesserThanOrEqual:  to.Unix(),
		},
	}
	params.Context = ctx
	params.Limit = stripe.Int64(100)
	params.AddExpand("data.customer")

	var invoices []*stripe.Invoice
	iter := p.api.Invoices.List(params)
	for iter.Next() {
		invoices = append(invoices, iter.Invoice())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("error listing invoices: %w", err)
	}

	p.logger.Debug("Fetched paid invoices", zap.Int("count", len(invoices)))
	return invoices, nil
}

// ListInvoiceLines fetches the line items of a single invoice
func (p *Provider) ListInvoiceLines(ctx context.Context, invoiceID string) ([]*stripe.InvoiceLineItem, error) {
	params := &stripe.InvoiceListLinesParams{
		Invoice: stripe.String(invoiceID),
	}
	params.Context = ctx

	var lines []*stripe.InvoiceLineItem
	iter := p.api.Invoices.ListLines(params)
	for iter.Next() {
		lines = append(lines, iter.InvoiceLineItem())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("error listing invoice lines for %s: %w", invoiceID, err)
	}

	return lines, nil
}

// GetPrice fetches a price by id
func (p *Provider) GetPrice(ctx context.Context, priceID string) (*stripe.Price, error) {
	params := &stripe.PriceParams{}
	params.Context = ctx

	price, err := p.api.Prices.Get(priceID, params)
	if err != nil {
		return nil, fmt.Errorf("error fetching price %s: %w", priceID, err)
	}
	return price, nil
}

// GetProduct fetches a product by id
func (p *Provider) GetProduct(ctx context.Context, productID string) (*stripe.Product, error) {
	params := &stripe.ProductParams{}
	params.Context = ctx

	prod, err := p.api.Products.Get(productID, params)
	if err != nil {
		return nil, fmt.Errorf("error fetching product %s: %w", productID, err)
	}
	return prod, nil
}

// CreatePortalSession creates a hosted billing portal session
func (p *Provider) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	session, err := p.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("error creating portal session: %w", err)
	}

	return session.URL, nil
}

var _ provider.BillingProvider = (*Provider)(nil)
