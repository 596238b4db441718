package usecase

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stripe/stripe-go/v79"

	"github.com/growthlab/mentorship-backend/internal/domain/model"
)

// MockBillingProvider is a mock implementation of provider.BillingProvider
type MockBillingProvider struct {
	mock.Mock
}

func (m *MockBillingProvider) FindCustomerByUserID(ctx context.Context, userID string) (*stripe.Customer, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripe.Customer), args.Error(1)
}

func (m *MockBillingProvider) GetCustomer(ctx context.Context, customerID string) (*stripe.Customer, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripe.Customer), args.Error(1)
}

func (m *MockBillingProvider) UpdateCustomer(ctx context.Context, customerID string, params *stripe.CustomerParams) error {
	args := m.Called(ctx, customerID, params)
	return args.Error(0)
}

func (m *MockBillingProvider) ListSubscriptionsForCustomer(ctx context.Context, customerID string) ([]*stripe.Subscription, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*stripe.Subscription), args.Error(1)
}

func (m *MockBillingProvider) ListAllSubscriptions(ctx context.Context) ([]*stripe.Subscription, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*stripe.Subscription), args.Error(1)
}

func (m *MockBillingProvider) ListPaidInvoices(ctx context.Context, from, to time.Time) ([]*stripe.Invoice, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*stripe.Invoice), args.Error(1)
}

func (m *MockBillingProvider) ListInvoiceLines(ctx context.Context, invoiceID string) ([]*stripe.InvoiceLineItem, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*stripe.InvoiceLineItem), args.Error(1)
}

func (m *MockBillingProvider) GetPrice(ctx context.Context, priceID string) (*stripe.Price, error) {
	args := m.Called(ctx, priceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripe.Price), args.Error(1)
}

func (m *MockBillingProvider) GetProduct(ctx context.Context, productID string) (*stripe.Product, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripe.Product), args.Error(1)
}

func (m *MockBillingProvider) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	args := m.Called(ctx, customerID, returnURL)
	return args.String(0), args.Error(1)
}

// MockCommunityProvider is a mock implementation of provider.CommunityProvider
type MockCommunityProvider struct {
	mock.Mock
}

func (m *MockCommunityProvider) GrantMemberRole(ctx context.Context, memberID string) error {
	args := m.Called(ctx, memberID)
	return args.Error(0)
}

func (m *MockCommunityProvider) RevokeMemberRole(ctx context.Context, memberID string) error {
	args := m.Called(ctx, memberID)
	return args.Error(0)
}

func (m *MockCommunityProvider) PostNotification(ctx context.Context, message string) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

// MockUserSubscriptionRepository is a mock implementation of repository.UserSubscriptionRepository
type MockUserSubscriptionRepository struct {
	mock.Mock
}

func (m *MockUserSubscriptionRepository) GetByUserID(ctx context.Context, userID string) (*model.UserSubscriptionRecord, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserSubscriptionRecord), args.Error(1)
}

func (m *MockUserSubscriptionRepository) Upsert(ctx context.Context, record *model.UserSubscriptionRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

// MockWebhookEventRepository is a mock implementation of repository.WebhookEventRepository
type MockWebhookEventRepository struct {
	mock.Mock
}

func (m *MockWebhookEventRepository) Record(ctx context.Context, event *model.WebhookEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockWebhookEventRepository) MarkProcessed(ctx context.Context, stripeEventID string, processErr error) error {
	args := m.Called(ctx, stripeEventID, processErr)
	return args.Error(0)
}
