package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stripe/stripe-go/v79"
	"go.uber.org/zap"

	"github.com/growthlab/mentorship-backend/internal/domain/entity"
	domainErrors "github.com/growthlab/mentorship-backend/internal/domain/errors"
)

func newTestMetricsService(billing *MockBillingProvider, now time.Time) *MetricsService {
	svc := NewMetricsService(billing, "admin", zap.NewNop())
	svc.now = func() time.Time { return now }
	return svc
}

func mentorshipSubscription(id string, status stripe.SubscriptionStatus, created time.Time, price *stripe.Price, cust *stripe.Customer) *stripe.Subscription {
	return &stripe.Subscription{
		ID:               id,
		Status:           status,
		Created:          created.Unix(),
		CurrentPeriodEnd: created.AddDate(0, 1, 0).Unix(),
		Customer:         cust,
		Items: &stripe.SubscriptionItemList{
			Data: []*stripe.SubscriptionItem{
				{Price: price, Quantity: 1},
			},
		},
	}
}

func monthlyEURPrice(id, productID string, unitAmount int64) *stripe.Price {
	return &stripe.Price{
		ID:         id,
		UnitAmount: unitAmount,
		Currency:   stripe.CurrencyEUR,
		Product:    &stripe.Product{ID: productID},
		Recurring:  &stripe.PriceRecurring{Interval: stripe.PriceRecurringIntervalMonth, IntervalCount: 1},
	}
}

func germanCustomer(id, email string) *stripe.Customer {
	return &stripe.Customer{
		ID:      id,
		Email:   email,
		Address: &stripe.Address{Country: "DE"},
	}
}

func TestMetricsService_Aggregate_RejectsNonAdminBeforeExternalCalls(t *testing.T) {
	billing := new(MockBillingProvider)
	svc := newTestMetricsService(billing, time.Now())

	report, err := svc.Aggregate(context.Background(), time.Now().AddDate(0, -1, 0), time.Now(), "mentor")

	assert.ErrorIs(t, err, domainErrors.ErrAdminRequired)
	assert.Nil(t, report)
	billing.AssertNotCalled(t, "ListAllSubscriptions", mock.Anything)
	billing.AssertNotCalled(t, "ListPaidInvoices", mock.Anything, mock.Anything, mock.Anything)
}

func TestMetricsService_Aggregate_RejectsInvertedRange(t *testing.T) {
	billing := new(MockBillingProvider)
	svc := newTestMetricsService(billing, time.Now())

	_, err := svc.Aggregate(context.Background(), time.Now(), time.Now().AddDate(0, -1, 0), "admin")

	assert.ErrorIs(t, err, domainErrors.ErrInvalidDateRange)
}

func TestMetricsService_Aggregate_TrialingSubscriptionRollup(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 28, 23, 59, 59, 0, time.UTC)
	created := time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC)

	billing := new(MockBillingProvider)
	svc := newTestMetricsService(billing, now)

	sub := mentorshipSubscription("sub_1", stripe.SubscriptionStatusTrialing, created,
		monthlyEURPrice("price_mentor", "prod_mentor", 15000),
		germanCustomer("cus_1", "mentee@example.com"))
	sub.CurrentPeriodEnd = time.Date(2026, 2, 15, 9, 30, 0, 0, time.UTC).Unix()

	billing.On("ListAllSubscriptions", mock.Anything).Return([]*stripe.Subscription{sub}, nil)
	billing.On("ListPaidInvoices", mock.Anything, from, to).Return([]*stripe.Invoice{}, nil)
	billing.On("GetProduct", mock.Anything, "prod_mentor").Return(&stripe.Product{
		ID: "prod_mentor", Name: "Mentorship", Active: true,
	}, nil)

	report, err := svc.Aggregate(context.Background(), from, to, "admin")

	assert.NoError(t, err)
	assert.Equal(t, "2026-01-01", report.From)
	assert.Equal(t, "2026-02-28", report.To)
	assert.Len(t, report.Products, 1)

	prod := report.Products[0]
	assert.Equal(t, "Mentorship", prod.Name)
	assert.Equal(t, 1, prod.Current)
	assert.Equal(t, 1, prod.Trialing)
	assert.Equal(t, 0, prod.Paying)
	assert.Equal(t, 0, prod.Churned)
	assert.Equal(t, 150.00, prod.ForecastMonthlyGross)
	assert.Equal(t, 126.05, prod.ForecastMonthlyNet)
	assert.Equal(t, 1800.00, prod.ForecastYearlyGross)

	assert.Len(t, prod.Countries, 1)
	assert.Equal(t, "DE", prod.Countries[0].Country)
	assert.Equal(t, 1, prod.Countries[0].Current)

	assert.Len(t, report.Timeline, 1)
	points := report.Timeline[0].Points
	assert.Len(t, points, 2)
	assert.Equal(t, entity.MonthlyPoint{Month: "2026-01", Signups: 1}, points[0])
	assert.Equal(t, entity.MonthlyPoint{Month: "2026-02"}, points[1])

	assert.Len(t, report.RecentEvents, 1)
	assert.Equal(t, entity.EventKindSignup, report.RecentEvents[0].Kind)
	assert.Equal(t, "mentee@example.com", report.RecentEvents[0].CustomerEmail)
}

func TestMetricsService_Aggregate_YearlyPriceNormalizedToMonthly(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 28, 23, 59, 59, 0, time.UTC)

	price := &stripe.Price{
		ID:         "price_yearly",
		UnitAmount: 120000,
		Currency:   stripe.CurrencyEUR,
		Product:    &stripe.Product{ID: "prod_mentor"},
		Recurring:  &stripe.PriceRecurring{Interval: stripe.PriceRecurringIntervalYear, IntervalCount: 1},
	}
	sub := mentorshipSubscription("sub_1", stripe.SubscriptionStatusActive,
		time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), price, nil)
	sub.CurrentPeriodEnd = time.Date(2027, 1, 5, 0, 0, 0, 0, time.UTC).Unix()

	billing := new(MockBillingProvider)
	svc := newTestMetricsService(billing, now)
	billing.On("ListAllSubscriptions", mock.Anything).Return([]*stripe.Subscription{sub}, nil)
	billing.On("ListPaidInvoices", mock.Anything, from, to).Return([]*stripe.Invoice{}, nil)
	billing.On("GetProduct", mock.Anything, "prod_mentor").Return(&stripe.Product{
		ID: "prod_mentor", Name: "Mentorship", Active: true,
	}, nil)

	report, err := svc.Aggregate(context.Background(), from, to, "admin")

	assert.NoError(t, err)
	assert.Len(t, report.Products, 1)
	// 1200.00 a year lists as 100.00 a month, no tax for an unknown country
	assert.Equal(t, 100.00, report.Products[0].ForecastMonthlyGross)
	assert.Equal(t, 1200.00, report.Products[0].ForecastYearlyGross)
}

func TestMetricsService_Aggregate_ArchivedProductWithoutActivityIsHidden(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 28, 23, 59, 59, 0, time.UTC)

	// Churned long before the range on a product no longer sold.
	sub := mentorshipSubscription("sub_old", stripe.SubscriptionStatusCanceled,
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		monthlyEURPrice("price_legacy", "prod_legacy", 9900), nil)
	sub.CurrentPeriodEnd = time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC).Unix()
	sub.EndedAt = time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC).Unix()

	billing := new(MockBillingProvider)
	svc := newTestMetricsService(billing, now)
	billing.On("ListAllSubscriptions", mock.Anything).Return([]*stripe.Subscription{sub}, nil)
	billing.On("ListPaidInvoices", mock.Anything, from, to).Return([]*stripe.Invoice{}, nil)
	billing.On("GetProduct", mock.Anything, "prod_legacy").Return(&stripe.Product{
		ID: "prod_legacy", Name: "Legacy Plan", Active: false,
	}, nil)

	report, err := svc.Aggregate(context.Background(), from, to, "admin")

	assert.NoError(t, err)
	assert.Empty(t, report.Products)
	assert.Empty(t, report.Timeline)
}

func TestMetricsService_Aggregate_InvoiceNetPrefersExcludingTaxSubtotal(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 28, 23, 59, 59, 0, time.UTC)

	sub := mentorshipSubscription("sub_1", stripe.SubscriptionStatusActive,
		time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC),
		monthlyEURPrice("price_mentor", "prod_mentor", 15000),
		germanCustomer("cus_1", ""))
	sub.CurrentPeriodEnd = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC).Unix()

	invoices := []*stripe.Invoice{
		{
			ID:                   "in_1",
			Subscription:         &stripe.Subscription{ID: "sub_1"},
			Total:                15000,
			SubtotalExcludingTax: 12605,
			Tax:                  2500,
			Created:              time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC).Unix(),
		},
		{
			ID:           "in_2",
			Subscription: &stripe.Subscription{ID: "sub_1"},
			Total:        15000,
			Tax:          2395,
			Created:      time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC).Unix(),
		},
	}

	billing := new(MockBillingProvider)
	svc := newTestMetricsService(billing, now)
	billing.On("ListAllSubscriptions", mock.Anything).Return([]*stripe.Subscription{sub}, nil)
	billing.On("ListPaidInvoices", mock.Anything, from, to).Return(invoices, nil)
	billing.On("GetProduct", mock.Anything, "prod_mentor").Return(&stripe.Product{
		ID: "prod_mentor", Name: "Mentorship", Active: true,
	}, nil)

	report, err := svc.Aggregate(context.Background(), from, to, "admin")

	assert.NoError(t, err)
	assert.Len(t, report.Products, 1)
	assert.Equal(t, 300.00, report.Products[0].PeriodGross)
	// in_1 uses the reported ex-tax subtotal, in_2 falls back to total minus tax
	assert.Equal(t, 252.10, report.Products[0].PeriodNet)
	// Attribution went through the subscription map, no line fetch needed
	billing.AssertNotCalled(t, "ListInvoiceLines", mock.Anything, mock.Anything)

	points := report.Timeline[0].Points
	assert.Equal(t, 150.00, points[0].Gross)
	assert.Equal(t, 150.00, points[1].Gross)
}

func TestMetricsService_Aggregate_SubscriptionlessInvoiceFallsBackToLines(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 28, 23, 59, 59, 0, time.UTC)

	invoices := []*stripe.Invoice{
		{
			ID:      "in_oneoff",
			Total:   5000,
			Created: time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC).Unix(),
		},
	}

	billing := new(MockBillingProvider)
	svc := newTestMetricsService(billing, now)
	billing.On("ListAllSubscriptions", mock.Anything).Return([]*stripe.Subscription{}, nil)
	billing.On("ListPaidInvoices", mock.Anything, from, to).Return(invoices, nil)
	billing.On("ListInvoiceLines", mock.Anything, "in_oneoff").Return([]*stripe.InvoiceLineItem{
		{Price: monthlyEURPrice("price_workshop", "prod_workshop", 5000)},
	}, nil)
	billing.On("GetProduct", mock.Anything, "prod_workshop").Return(&stripe.Product{
		ID: "prod_workshop", Name: "Workshop", Active: true,
	}, nil)

	report, err := svc.Aggregate(context.Background(), from, to, "admin")

	assert.NoError(t, err)
	assert.Len(t, report.Products, 1)
	assert.Equal(t, "Workshop", report.Products[0].Name)
	assert.Equal(t, 50.00, report.Products[0].PeriodGross)
	billing.AssertExpectations(t)
}

func TestMetricsService_Aggregate_UpcomingCancellationsFeed(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 28, 23, 59, 59, 0, time.UTC)

	cancelAt := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	sub := mentorshipSubscription("sub_1", stripe.SubscriptionStatusActive,
		time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		monthlyEURPrice("price_mentor", "prod_mentor", 15000),
		germanCustomer("cus_1", "leaving@example.com"))
	sub.CurrentPeriodEnd = cancelAt.Unix()
	sub.CancelAtPeriodEnd = true
	sub.CancelAt = cancelAt.Unix()
	sub.CanceledAt = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC).Unix()

	billing := new(MockBillingProvider)
	svc := newTestMetricsService(billing, now)
	billing.On("ListAllSubscriptions", mock.Anything).Return([]*stripe.Subscription{sub}, nil)
	billing.On("ListPaidInvoices", mock.Anything, from, to).Return([]*stripe.Invoice{}, nil)
	billing.On("GetProduct", mock.Anything, "prod_mentor").Return(&stripe.Product{
		ID: "prod_mentor", Name: "Mentorship", Active: true,
	}, nil)

	report, err := svc.Aggregate(context.Background(), from, to, "admin")

	assert.NoError(t, err)
	assert.Len(t, report.UpcomingCancellations, 1)
	assert.Equal(t, cancelAt, report.UpcomingCancellations[0].EffectiveAt)
	assert.Equal(t, "leaving@example.com", report.UpcomingCancellations[0].CustomerEmail)

	// The scheduling itself shows up in the event feed.
	var kinds []entity.EventKind
	for _, ev := range report.RecentEvents {
		kinds = append(kinds, ev.Kind)
	}
	assert.Contains(t, kinds, entity.EventKindCancelScheduled)

	assert.Len(t, report.Products, 1)
	assert.Equal(t, 1, report.Products[0].CancelScheduled)
}
