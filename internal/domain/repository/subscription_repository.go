package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/petmily/billing-service/internal/domain/model"
)

// SubscriptionRepository is the narrow persistence interface for subscriptions.
// Implementations must back Create with a storage-level uniqueness guarantee on
// (account_id, status=active); the application-level existence check is an
// optimization, not the safety mechanism.
type SubscriptionRepository interface {
	// GetActiveByAccount returns the account's active subscription, or
	// (nil, nil) when there is none.
	GetActiveByAccount(ctx context.Context, accountID uuid.UUID) (*model.Subscription, error)

	// GetCurrentByAccount returns the subscription that currently grants
	// entitlement: active, or cancelled with the paid period not yet over.
	// Returns (nil, nil) when there is none.
	GetCurrentByAccount(ctx context.Context, accountID uuid.UUID) (*model.Subscription, error)

	// GetByID returns a subscription by id, or ErrSubscriptionNotFound.
	GetByID(ctx context.Context, id int64) (*model.Subscription, error)

	// Create inserts a new subscription row. A concurrent duplicate active
	// subscription for the same account fails with ErrAlreadySubscribed.
	Create(ctx context.Context, sub *model.Subscription) error

	// Cancel moves the account's active subscription to cancelled, recording
	// the cancellation time and leaving the period end untouched. Fails with
	// ErrNoActiveSubscription when there is nothing to cancel.
	Cancel(ctx context.Context, accountID uuid.UUID, at time.Time) (*model.Subscription, error)

	// UpdateStatus sets the subscription's status. Transition validity is the
	// caller's responsibility.
	UpdateStatus(ctx context.Context, id int64, to model.SubscriptionStatus) error

	// RenewPeriod reactivates the subscription with a fresh billing period and
	// replenished consultation credits after a successful renewal charge.
	RenewPeriod(ctx context.Context, id int64, start, end time.Time, credits int) error
}
