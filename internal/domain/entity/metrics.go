package entity

import "time"

// EventKind classifies a derived subscription lifecycle event.
type EventKind string

const (
	EventKindSignup          EventKind = "signup"
	EventKindChurn           EventKind = "churn"
	EventKindCancelScheduled EventKind = "cancellation_scheduled"
)

// CountryBreakdown mirrors a product's counters for a single customer country.
type CountryBreakdown struct {
	Country              string  `json:"country"`
	Current              int     `json:"current"`
	Paying               int     `json:"paying"`
	Trialing             int     `json:"trialing"`
	CancelScheduled      int     `json:"cancel_scheduled"`
	Churned              int     `json:"churned"`
	ForecastMonthlyGross float64 `json:"forecast_monthly_gross"`
	ForecastMonthlyNet   float64 `json:"forecast_monthly_net"`
}

// ProductAggregate is the per-offering rollup for a reporting period.
// All amounts are major currency units.
type ProductAggregate struct {
	ProductID            string             `json:"product_id"`
	Name                 string             `json:"name"`
	Current              int                `json:"current"`
	Paying               int                `json:"paying"`
	Trialing             int                `json:"trialing"`
	CancelScheduled      int                `json:"cancel_scheduled"`
	Churned              int                `json:"churned"`
	ForecastMonthlyGross float64            `json:"forecast_monthly_gross"`
	ForecastMonthlyNet   float64            `json:"forecast_monthly_net"`
	ForecastYearlyGross  float64            `json:"forecast_yearly_gross"`
	ForecastYearlyNet    float64            `json:"forecast_yearly_net"`
	PeriodGross          float64            `json:"period_gross"`
	PeriodNet            float64            `json:"period_net"`
	Countries            []CountryBreakdown `json:"countries"`
}

// MonthlyPoint is one month of a product's timeline, zero-filled for
// months without activity.
type MonthlyPoint struct {
	Month   string  `json:"month"` // YYYY-MM
	Signups int     `json:"signups"`
	Churns  int     `json:"churns"`
	Gross   float64 `json:"gross"`
	Net     float64 `json:"net"`
}

// ProductTimeline holds a product's monthly points across the full
// requested range.
type ProductTimeline struct {
	ProductID string         `json:"product_id"`
	Name      string         `json:"name"`
	Points    []MonthlyPoint `json:"points"`
}

// MentorshipEvent is a derived lifecycle event for the admin feed.
type MentorshipEvent struct {
	Timestamp     time.Time `json:"timestamp"`
	Kind          EventKind `json:"kind"`
	ProductID     string    `json:"product_id"`
	Product       string    `json:"product"`
	CustomerID    string    `json:"customer_id"`
	CustomerEmail string    `json:"customer_email,omitempty"`
	Country       string    `json:"country,omitempty"`
}

// UpcomingCancellation is a scheduled cancellation with a future
// effective date.
type UpcomingCancellation struct {
	EffectiveAt   time.Time `json:"effective_at"`
	ProductID     string    `json:"product_id"`
	Product       string    `json:"product"`
	CustomerID    string    `json:"customer_id"`
	CustomerEmail string    `json:"customer_email,omitempty"`
	Country       string    `json:"country,omitempty"`
}

// MetricsReport is the full aggregation output for an admin-requested
// date range.
type MetricsReport struct {
	From                  string                 `json:"from"`
	To                    string                 `json:"to"`
	Products              []*ProductAggregate    `json:"products"`
	Timeline              []*ProductTimeline     `json:"timeline"`
	RecentEvents          []MentorshipEvent      `json:"recent_events"`
	UpcomingCancellations []UpcomingCancellation `json:"upcoming_cancellations"`
}
