package model

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus represents the status of a subscription
type SubscriptionStatus string

const (
	SubscriptionStatusActive        SubscriptionStatus = "active"
	SubscriptionStatusCancelled     SubscriptionStatus = "cancelled"
	SubscriptionStatusPaymentFailed SubscriptionStatus = "payment_failed"
	SubscriptionStatusExpired       SubscriptionStatus = "expired"
	SubscriptionStatusPaused        SubscriptionStatus = "paused"
)

// Scan implements sql.Scanner interface
func (s *SubscriptionStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = SubscriptionStatus(v)
	case []byte:
		*s = SubscriptionStatus(v)
	default:
		return fmt.Errorf("unsupported subscription status type %T", src)
	}
	return nil
}

// Value implements driver.Valuer interface
func (s SubscriptionStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// IsTerminal reports whether no further transitions are allowed from s.
// A cancelled or expired row is never reactivated; a later re-subscription
// creates a new row.
func (s SubscriptionStatus) IsTerminal() bool {
	return s == SubscriptionStatusCancelled || s == SubscriptionStatusExpired
}

// transitions is the allowed state machine over a subscription's life.
// active decays through payment_failed or paused before expiring; both are
// recoverable back to active by a successful renewal charge.
var transitions = map[SubscriptionStatus][]SubscriptionStatus{
	SubscriptionStatusActive: {
		SubscriptionStatusCancelled,
		SubscriptionStatusPaymentFailed,
		SubscriptionStatusExpired,
		SubscriptionStatusPaused,
	},
	SubscriptionStatusPaymentFailed: {
		SubscriptionStatusActive,
		SubscriptionStatusExpired,
	},
	SubscriptionStatusPaused: {
		SubscriptionStatusActive,
		SubscriptionStatusExpired,
	},
}

// CanTransition reports whether a subscription may move from one status to another.
func CanTransition(from, to SubscriptionStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Subscription represents an account's paid subscription. Rows are never
// hard-deleted; cancellation and expiry are status transitions.
type Subscription struct {
	ID                  int64              `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID           uuid.UUID          `gorm:"type:uuid;not null;index" json:"account_id"`
	PlanType            PlanType           `gorm:"size:20;not null" json:"plan_type"`
	Price               int64              `gorm:"not null" json:"price"`
	BillingKey          string             `gorm:"size:200;not null" json:"-"`
	CustomerKey         string             `gorm:"size:300;not null" json:"-"`
	CardCompany         string             `gorm:"size:50" json:"card_company,omitempty"`
	CardLastFour        string             `gorm:"size:4" json:"card_last_four,omitempty"`
	Status              SubscriptionStatus `gorm:"size:20;not null;default:'active'" json:"status"`
	CurrentPeriodStart  time.Time          `gorm:"not null" json:"current_period_start"`
	CurrentPeriodEnd    time.Time          `gorm:"not null" json:"current_period_end"`
	ConsultationCredits int                `gorm:"not null;default:0" json:"consultation_credits"`
	CancelledAt         *time.Time         `json:"cancelled_at,omitempty"`
	CreatedAt           time.Time          `gorm:"default:now()" json:"created_at"`
	UpdatedAt           time.Time          `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Subscription) TableName() string {
	return "subscriptions"
}

// IsEntitled reports whether the subscription still grants access at the given
// instant. Cancellation is not an immediate cutoff: the entitlement remains
// usable until the end of the paid period.
func (s *Subscription) IsEntitled(now time.Time) bool {
	switch s.Status {
	case SubscriptionStatusActive:
		return true
	case SubscriptionStatusCancelled:
		return now.Before(s.CurrentPeriodEnd)
	default:
		return false
	}
}
