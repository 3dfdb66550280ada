package repository

import (
	"context"

	"github.com/petmily/billing-service/internal/domain/model"
)

// PaymentRepository persists the append-only payment ledger. There is no
// update or delete operation by design.
type PaymentRepository interface {
	Create(ctx context.Context, payment *model.Payment) error

	ListBySubscription(ctx context.Context, subscriptionID int64) ([]model.Payment, error)

	// ListUnlinked returns payments with no linked subscription, newest first.
	// These are the reconciliation markers an operator must resolve manually.
	ListUnlinked(ctx context.Context, limit int) ([]model.Payment, error)
}
