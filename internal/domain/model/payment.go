package model

import (
	"time"
)

// Payment is one row of the append-only payment ledger. Rows are only ever
// inserted, never updated. A row whose SubscriptionID is nil is a
// reconciliation marker: money moved at the gateway but the corresponding
// entitlement failed to persist and must be resolved manually.
type Payment struct {
	ID             int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	SubscriptionID *int64     `gorm:"index" json:"subscription_id,omitempty"`
	PaymentKey     string     `gorm:"uniqueIndex;size:200;not null" json:"payment_key"`
	OrderID        string     `gorm:"size:100;not null" json:"order_id"`
	Amount         int64      `gorm:"not null" json:"amount"`
	PlanType       PlanType   `gorm:"size:20;not null" json:"plan_type"`
	Status         string     `gorm:"size:50;not null" json:"status"`
	ApprovedAt     *time.Time `json:"approved_at,omitempty"`
	CreatedAt      time.Time  `gorm:"default:now()" json:"created_at"`
}

// TableName specifies the table name for GORM
func (Payment) TableName() string {
	return "payments"
}
