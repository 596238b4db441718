package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// JSONB represents a JSONB database type
type JSONB map[string]interface{}

// Value implements driver.Valuer interface
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner interface
func (j *JSONB) Scan(src interface{}) error {
	if src == nil {
		*j = nil
		return nil
	}

	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		*j = make(JSONB)
		return nil
	}
}

// WebhookEvent is an audit record of a received billing provider event.
// The unique event id makes the insert idempotent under redelivery, but
// processing itself is not deduplicated by event id: out-of-order
// redelivery remains a known limitation of the notification path.
type WebhookEvent struct {
	ID              int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	StripeEventID   string     `gorm:"unique;not null;size:255;index" json:"stripe_event_id"`
	EventType       string     `gorm:"not null;size:100;index" json:"event_type"`
	Data            JSONB      `gorm:"type:jsonb" json:"data"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty"`
	LastError       *string    `json:"last_error,omitempty"`
	CreatedAt       time.Time  `gorm:"default:now()" json:"created_at"`
	StripeCreatedAt *time.Time `json:"stripe_created_at,omitempty"`
}

// TableName specifies the table name for GORM
func (WebhookEvent) TableName() string {
	return "webhook_events"
}
