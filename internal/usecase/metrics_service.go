package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v79"
	"go.uber.org/zap"

	"github.com/growthlab/mentorship-backend/internal/domain/entity"
	domainErrors "github.com/growthlab/mentorship-backend/internal/domain/errors"
	"github.com/growthlab/mentorship-backend/internal/domain/provider"
)

// feedLimit caps the event and cancellation feeds to the most relevant
// entries.
const feedLimit = 200

const dateLayout = "2006-01-02"

// MetricsService cross-references the full subscription and invoice
// history into per-product, per-month financial rollups.
type MetricsService struct {
	billing   provider.BillingProvider
	adminRole string
	logger    *zap.Logger

	// now is swapped out in tests
	now func() time.Time
}

// NewMetricsService creates a new metrics aggregation service
func NewMetricsService(billing provider.BillingProvider, adminRole string, logger *zap.Logger) *MetricsService {
	if adminRole == "" {
		adminRole = "admin"
	}
	return &MetricsService{
		billing:   billing,
		adminRole: adminRole,
		logger:    logger,
		now:       time.Now,
	}
}

// Aggregate produces the financial report for the inclusive UTC date
// range. Non-administrators are rejected before any external call.
func (s *MetricsService) Aggregate(ctx context.Context, from, to time.Time, callerRole string) (*entity.MetricsReport, error) {
	if callerRole != s.adminRole {
		return nil, domainErrors.ErrAdminRequired
	}
	if to.Before(from) {
		return nil, domainErrors.ErrInvalidDateRange
	}

	subs, err := s.billing.ListAllSubscriptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subscription history: %w", err)
	}

	invoices, err := s.billing.ListPaidInvoices(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch invoice history: %w", err)
	}

	run := &aggregationRun{
		svc:         s,
		from:        from,
		to:          to,
		now:         s.now(),
		products:    make(map[string]*productAccumulator),
		priceCache:  make(map[string]string),
		infoCache:   make(map[string]productInfo),
		subProducts: make(map[string]string),
	}

	for _, sub := range subs {
		run.processSubscription(ctx, sub)
	}
	for _, inv := range invoices {
		run.processInvoice(ctx, inv)
	}

	return run.report(), nil
}

type productInfo struct {
	name   string
	active bool
}

type countryAccumulator struct {
	current, paying, trialing, cancelScheduled, churned int
	forecastGross, forecastNet                          decimal.Decimal
}

type monthAccumulator struct {
	signups, churns int
	gross, net      decimal.Decimal
}

type productAccumulator struct {
	id, name string
	active   bool

	current, paying, trialing, cancelScheduled, churned int
	forecastMonthlyGross, forecastMonthlyNet            decimal.Decimal
	periodGross, periodNet                              decimal.Decimal

	countries map[string]*countryAccumulator
	months    map[string]*monthAccumulator
}

// aggregationRun holds all request-scoped state, including memoized
// price/product resolution, never shared across invocations.
type aggregationRun struct {
	svc      *MetricsService
	from, to time.Time
	now      time.Time

	products    map[string]*productAccumulator
	priceCache  map[string]string      // price id -> product id
	infoCache   map[string]productInfo // product id -> display info
	subProducts map[string]string      // subscription id -> product id

	events        []entity.MentorshipEvent
	cancellations []entity.UpcomingCancellation
}

func (r *aggregationRun) product(id string, info productInfo) *productAccumulator {
	acc, ok := r.products[id]
	if !ok {
		acc = &productAccumulator{
			id:        id,
			name:      info.name,
			active:    info.active,
			countries: make(map[string]*countryAccumulator),
			months:    make(map[string]*monthAccumulator),
		}
		r.products[id] = acc
	}
	return acc
}

func (r *aggregationRun) country(acc *productAccumulator, code string) *countryAccumulator {
	c, ok := acc.countries[code]
	if !ok {
		c = &countryAccumulator{}
		acc.countries[code] = c
	}
	return c
}

func (r *aggregationRun) month(acc *productAccumulator, t time.Time) *monthAccumulator {
	key := t.UTC().Format("2006-01")
	m, ok := acc.months[key]
	if !ok {
		m = &monthAccumulator{}
		acc.months[key] = m
	}
	return m
}

func (r *aggregationRun) inRange(t time.Time) bool {
	return !t.Before(r.from) && !t.After(r.to)
}

// resolveProduct maps a price to its product identity, memoized for the
// run. Resolution failures degrade to the raw identifier as display
// name and never abort the batch.
func (r *aggregationRun) resolveProduct(ctx context.Context, price *stripe.Price) (string, productInfo) {
	if id, ok := r.priceCache[price.ID]; ok {
		return id, r.infoCache[id]
	}

	productID := ""
	if price.Product != nil {
		productID = price.Product.ID
	}
	if productID == "" {
		full, err := r.svc.billing.GetPrice(ctx, price.ID)
		if err != nil || full.Product == nil || full.Product.ID == "" {
			r.svc.logger.Warn("Could not resolve product for price, using raw id",
				zap.String("price_id", price.ID),
				zap.Error(err))
			info := productInfo{name: price.ID, active: true}
			r.priceCache[price.ID] = price.ID
			r.infoCache[price.ID] = info
			return price.ID, info
		}
		productID = full.Product.ID
	}

	info, ok := r.infoCache[productID]
	if !ok {
		prod, err := r.svc.billing.GetProduct(ctx, productID)
		if err != nil {
			r.svc.logger.Warn("Could not resolve product details, using raw id",
				zap.String("product_id", productID),
				zap.Error(err))
			info = productInfo{name: productID, active: true}
		} else {
			info = productInfo{name: prod.Name, active: prod.Active}
		}
		r.infoCache[productID] = info
	}

	r.priceCache[price.ID] = productID
	return productID, info
}

func (r *aggregationRun) processSubscription(ctx context.Context, sub *stripe.Subscription) {
	price := firstItemPrice(sub)
	if price == nil {
		r.svc.logger.Warn("Subscription without priced items, skipping",
			zap.String("subscription_id", sub.ID))
		return
	}

	productID, info := r.resolveProduct(ctx, price)
	acc := r.product(productID, info)
	r.subProducts[sub.ID] = productID

	country := customerCountry(sub.Customer)
	cAcc := r.country(acc, country)

	statusEligible := sub.Status == stripe.SubscriptionStatusActive || sub.Status == stripe.SubscriptionStatusTrialing
	pastPeriodEnd := sub.CurrentPeriodEnd > 0 && time.Unix(sub.CurrentPeriodEnd, 0).Before(r.now)
	current := statusEligible && !pastPeriodEnd
	trialing := sub.Status == stripe.SubscriptionStatusTrialing
	paying := sub.Status == stripe.SubscriptionStatusActive
	churned := sub.Status == stripe.SubscriptionStatusCanceled || sub.EndedAt > 0
	scheduled := statusEligible && (sub.CancelAtPeriodEnd || sub.CancelAt > 0)

	if current {
		acc.current++
		cAcc.current++
	}
	if trialing {
		acc.trialing++
		cAcc.trialing++
	}
	if paying {
		acc.paying++
		cAcc.paying++
	}
	if churned {
		acc.churned++
		cAcc.churned++
	}
	if scheduled {
		acc.cancelScheduled++
		cAcc.cancelScheduled++
	}

	if current {
		gross, net := r.forecastMonthly(sub, price, country)
		acc.forecastMonthlyGross = acc.forecastMonthlyGross.Add(gross)
		acc.forecastMonthlyNet = acc.forecastMonthlyNet.Add(net)
		cAcc.forecastGross = cAcc.forecastGross.Add(gross)
		cAcc.forecastNet = cAcc.forecastNet.Add(net)
	}

	email := customerEmail(sub.Customer)

	if created := time.Unix(sub.Created, 0).UTC(); sub.Created > 0 && r.inRange(created) {
		r.month(acc, created).signups++
		r.events = append(r.events, entity.MentorshipEvent{
			Timestamp:     created,
			Kind:          entity.EventKindSignup,
			ProductID:     productID,
			Product:       acc.name,
			CustomerID:    customerID(sub.Customer),
			CustomerEmail: email,
			Country:       country,
		})
	}

	if endTS := subscriptionEnd(sub); endTS != nil && r.inRange(*endTS) {
		r.month(acc, *endTS).churns++
		r.events = append(r.events, entity.MentorshipEvent{
			Timestamp:     *endTS,
			Kind:          entity.EventKindChurn,
			ProductID:     productID,
			Product:       acc.name,
			CustomerID:    customerID(sub.Customer),
			CustomerEmail: email,
			Country:       country,
		})
	}

	if scheduled {
		effective := unixTimePtr(sub.CancelAt)
		if effective == nil {
			effective = unixTimePtr(sub.CurrentPeriodEnd)
		}
		if effective != nil && effective.After(r.now) {
			r.cancellations = append(r.cancellations, entity.UpcomingCancellation{
				EffectiveAt:   *effective,
				ProductID:     productID,
				Product:       acc.name,
				CustomerID:    customerID(sub.Customer),
				CustomerEmail: email,
				Country:       country,
			})
			if scheduledAt := unixTimePtr(sub.CanceledAt); scheduledAt != nil && r.inRange(*scheduledAt) {
				r.events = append(r.events, entity.MentorshipEvent{
					Timestamp:     *scheduledAt,
					Kind:          entity.EventKindCancelScheduled,
					ProductID:     productID,
					Product:       acc.name,
					CustomerID:    customerID(sub.Customer),
					CustomerEmail: email,
					Country:       country,
				})
			}
		}
	}
}

// forecastMonthly computes the tax-normalized monthly gross and net
// (minor units) a current subscription contributes.
func (r *aggregationRun) forecastMonthly(sub *stripe.Subscription, price *stripe.Price, country string) (gross, net decimal.Decimal) {
	quantity := int64(1)
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Quantity > 0 {
		quantity = sub.Items.Data[0].Quantity
	}

	amount := decimal.NewFromInt(price.UnitAmount * quantity)
	if price.Recurring != nil {
		months := int64(1)
		switch price.Recurring.Interval {
		case stripe.PriceRecurringIntervalYear:
			months = 12
		case stripe.PriceRecurringIntervalMonth:
			months = 1
		default:
			r.svc.logger.Warn("Unexpected billing interval, treating as monthly",
				zap.String("price_id", price.ID),
				zap.String("interval", string(price.Recurring.Interval)))
		}
		if price.Recurring.IntervalCount > 1 {
			months *= price.Recurring.IntervalCount
		}
		if months > 1 {
			amount = amount.Div(decimal.NewFromInt(months))
		}
	}

	return normalizeTax(amount, taxRateForCountry(country), effectiveTaxBehavior(price))
}

func (r *aggregationRun) processInvoice(ctx context.Context, inv *stripe.Invoice) {
	productID, info, ok := r.resolveInvoiceProduct(ctx, inv)
	if !ok {
		r.svc.logger.Warn("Could not attribute invoice to a product, skipping",
			zap.String("invoice_id", inv.ID))
		return
	}
	acc := r.product(productID, info)

	gross := decimal.NewFromInt(inv.Total)
	var net decimal.Decimal
	switch {
	case inv.SubtotalExcludingTax > 0:
		net = decimal.NewFromInt(inv.SubtotalExcludingTax)
	case inv.Tax > 0:
		net = decimal.NewFromInt(inv.Total - inv.Tax)
	default:
		net = gross
	}

	acc.periodGross = acc.periodGross.Add(gross)
	acc.periodNet = acc.periodNet.Add(net)

	if inv.Created > 0 {
		m := r.month(acc, time.Unix(inv.Created, 0).UTC())
		m.gross = m.gross.Add(gross)
		m.net = m.net.Add(net)
	}
}

// resolveInvoiceProduct prefers the subscription map built during the
// subscription pass (O(1)); only subscription-less invoices fall back
// to a line-item fetch.
func (r *aggregationRun) resolveInvoiceProduct(ctx context.Context, inv *stripe.Invoice) (string, productInfo, bool) {
	if inv.Subscription != nil && inv.Subscription.ID != "" {
		if productID, ok := r.subProducts[inv.Subscription.ID]; ok {
			return productID, r.infoCache[productID], true
		}
	}

	lines, err := r.svc.billing.ListInvoiceLines(ctx, inv.ID)
	if err != nil {
		r.svc.logger.Warn("Failed to fetch invoice lines",
			zap.String("invoice_id", inv.ID),
			zap.Error(err))
		return "", productInfo{}, false
	}
	for _, line := range lines {
		if line.Price != nil && line.Price.ID != "" {
			productID, info := r.resolveProduct(ctx, line.Price)
			return productID, info, true
		}
	}

	return "", productInfo{}, false
}

// report post-processes the accumulators into the response shape:
// archived-product filtering, sorting, zero-filled timelines, capped
// feeds, and minor-to-major unit conversion at this boundary only.
func (r *aggregationRun) report() *entity.MetricsReport {
	months := monthRange(r.from, r.to)

	var products []*entity.ProductAggregate
	var timeline []*entity.ProductTimeline
	for _, acc := range r.products {
		if !acc.active && acc.current == 0 && acc.periodGross.IsZero() && acc.cancelScheduled == 0 {
			// Stale catalog entries keep their historical churn out of
			// admin views
			continue
		}

		products = append(products, acc.toAggregate())
		timeline = append(timeline, acc.toTimeline(months))
	}

	sort.Slice(products, func(i, j int) bool {
		if products[i].Current != products[j].Current {
			return products[i].Current > products[j].Current
		}
		return products[i].Name < products[j].Name
	})
	sort.Slice(timeline, func(i, j int) bool {
		return timeline[i].Name < timeline[j].Name
	})

	sort.Slice(r.events, func(i, j int) bool {
		return r.events[i].Timestamp.After(r.events[j].Timestamp)
	})
	if len(r.events) > feedLimit {
		r.events = r.events[:feedLimit]
	}

	sort.Slice(r.cancellations, func(i, j int) bool {
		return r.cancellations[i].EffectiveAt.Before(r.cancellations[j].EffectiveAt)
	})
	if len(r.cancellations) > feedLimit {
		r.cancellations = r.cancellations[:feedLimit]
	}

	if products == nil {
		products = []*entity.ProductAggregate{}
	}
	if timeline == nil {
		timeline = []*entity.ProductTimeline{}
	}
	if r.events == nil {
		r.events = []entity.MentorshipEvent{}
	}
	if r.cancellations == nil {
		r.cancellations = []entity.UpcomingCancellation{}
	}

	return &entity.MetricsReport{
		From:                  r.from.UTC().Format(dateLayout),
		To:                    r.to.UTC().Format(dateLayout),
		Products:              products,
		Timeline:              timeline,
		RecentEvents:          r.events,
		UpcomingCancellations: r.cancellations,
	}
}

func (acc *productAccumulator) toAggregate() *entity.ProductAggregate {
	agg := &entity.ProductAggregate{
		ProductID:            acc.id,
		Name:                 acc.name,
		Current:              acc.current,
		Paying:               acc.paying,
		Trialing:             acc.trialing,
		CancelScheduled:      acc.cancelScheduled,
		Churned:              acc.churned,
		ForecastMonthlyGross: minorToMajor(acc.forecastMonthlyGross),
		ForecastMonthlyNet:   minorToMajor(acc.forecastMonthlyNet),
		ForecastYearlyGross:  minorToMajor(acc.forecastMonthlyGross.Mul(decimal.NewFromInt(12))),
		ForecastYearlyNet:    minorToMajor(acc.forecastMonthlyNet.Mul(decimal.NewFromInt(12))),
		PeriodGross:          minorToMajor(acc.periodGross),
		PeriodNet:            minorToMajor(acc.periodNet),
	}

	codes := make([]string, 0, len(acc.countries))
	for code := range acc.countries {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		c := acc.countries[code]
		agg.Countries = append(agg.Countries, entity.CountryBreakdown{
			Country:              code,
			Current:              c.current,
			Paying:               c.paying,
			Trialing:             c.trialing,
			CancelScheduled:      c.cancelScheduled,
			Churned:              c.churned,
			ForecastMonthlyGross: minorToMajor(c.forecastGross),
			ForecastMonthlyNet:   minorToMajor(c.forecastNet),
		})
	}

	return agg
}

// toTimeline emits exactly one point per month of the range, zero-filled
// where the product saw no activity.
func (acc *productAccumulator) toTimeline(months []string) *entity.ProductTimeline {
	tl := &entity.ProductTimeline{
		ProductID: acc.id,
		Name:      acc.name,
		Points:    make([]entity.MonthlyPoint, 0, len(months)),
	}

	for _, key := range months {
		point := entity.MonthlyPoint{Month: key}
		if m, ok := acc.months[key]; ok {
			point.Signups = m.signups
			point.Churns = m.churns
			point.Gross = minorToMajor(m.gross)
			point.Net = minorToMajor(m.net)
		}
		tl.Points = append(tl.Points, point)
	}

	return tl
}

// monthRange lists the YYYY-MM keys covering from..to inclusive.
func monthRange(from, to time.Time) []string {
	var months []string
	cursor := time.Date(from.UTC().Year(), from.UTC().Month(), 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(to.UTC().Year(), to.UTC().Month(), 1, 0, 0, 0, 0, time.UTC)
	for !cursor.After(end) {
		months = append(months, cursor.Format("2006-01"))
		cursor = cursor.AddDate(0, 1, 0)
	}
	return months
}

func minorToMajor(d decimal.Decimal) float64 {
	f, _ := d.Div(decimal.NewFromInt(100)).Round(2).Float64()
	return f
}

func firstItemPrice(sub *stripe.Subscription) *stripe.Price {
	if sub.Items == nil {
		return nil
	}
	for _, item := range sub.Items.Data {
		if item.Price != nil && item.Price.ID != "" {
			return item.Price
		}
	}
	return nil
}

func customerCountry(cust *stripe.Customer) string {
	if cust == nil || cust.Address == nil {
		return ""
	}
	return cust.Address.Country
}

func customerEmail(cust *stripe.Customer) string {
	if cust == nil {
		return ""
	}
	return cust.Email
}

func customerID(cust *stripe.Customer) string {
	if cust == nil {
		return ""
	}
	return cust.ID
}

func subscriptionEnd(sub *stripe.Subscription) *time.Time {
	if t := unixTimePtr(sub.EndedAt); t != nil {
		return t
	}
	if sub.Status == stripe.SubscriptionStatusCanceled {
		return unixTimePtr(sub.CanceledAt)
	}
	return nil
}
