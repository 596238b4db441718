package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// StringList stores a deduplicated set of strings as a JSON column.
type StringList []string

// Value implements driver.Valuer interface
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal([]string{})
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner interface
func (l *StringList) Scan(src interface{}) error {
	if src == nil {
		*l = nil
		return nil
	}

	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		*l = nil
		return nil
	}
}

// UserSubscriptionRecord is the local snapshot of a user's billing state.
// Exactly one row per user; a confirmed non-subscriber keeps a row with
// status "none" rather than being deleted.
type UserSubscriptionRecord struct {
	ID                   int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID               uuid.UUID  `gorm:"column:user_id;type:uuid;uniqueIndex;not null" json:"user_id"`
	StripeCustomerID     string     `gorm:"size:100;index" json:"stripe_customer_id"`
	StripeSubscriptionID string     `gorm:"size:100" json:"stripe_subscription_id"`
	Status               string     `gorm:"size:40;not null;default:'none'" json:"status"`
	CancelAtPeriodEnd    bool       `gorm:"not null;default:false" json:"cancel_at_period_end"`
	CancelAt             *time.Time `json:"cancel_at,omitempty"`
	CurrentPeriodEnd     *time.Time `json:"current_period_end,omitempty"`
	PriceIDs             StringList `gorm:"type:jsonb" json:"price_ids"`
	CreatedAt            time.Time  `gorm:"default:now()" json:"created_at"`
	UpdatedAt            time.Time  `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (UserSubscriptionRecord) TableName() string {
	return "user_subscription_records"
}
