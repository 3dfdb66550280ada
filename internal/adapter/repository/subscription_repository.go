package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	domainerrors "github.com/petmily/billing-service/internal/domain/errors"
	"github.com/petmily/billing-service/internal/domain/model"
	"github.com/petmily/billing-service/internal/domain/repository"
)

// activeSubscriptionIndex is the partial unique index that guarantees at most
// one active subscription per account. Insert races surface as a violation of
// this index and are mapped to ErrAlreadySubscribed.
const activeSubscriptionIndex = "unique_active_subscription_per_account"

type subscriptionRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db *gorm.DB, logger *zap.Logger) repository.SubscriptionRepository {
	return &subscriptionRepository{
		db:     db,
		logger: logger,
	}
}

// GetActiveByAccount retrieves the account's active subscription, or nil when
// there is none.
func (r *subscriptionRepository) GetActiveByAccount(ctx context.Context, accountID uuid.UUID) (*model.Subscription, error) {
	var sub model.Subscription

	err := r.db.WithContext(ctx).
		Where("account_id = ? AND status = ?", accountID, model.SubscriptionStatusActive).
		First(&sub).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get active subscription",
			zap.String("account_id", accountID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get active subscription: %w", err)
	}

	return &sub, nil
}

// GetCurrentByAccount retrieves the subscription the account is currently
// entitled to: an active one, or a cancelled one whose paid period has not
// ended yet. Returns nil when there is none.
func (r *subscriptionRepository) GetCurrentByAccount(ctx context.Context, accountID uuid.UUID) (*model.Subscription, error) {
	var sub model.Subscription

	err := r.db.WithContext(ctx).
		Where("account_id = ? AND (status = ? OR (status = ? AND current_period_end > ?))",
			accountID, model.SubscriptionStatusActive, model.SubscriptionStatusCancelled, time.Now()).
		Order("current_period_end DESC").
		First(&sub).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get current subscription",
			zap.String("account_id", accountID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get current subscription: %w", err)
	}

	return &sub, nil
}

// GetByID retrieves a subscription by its primary key
func (r *subscriptionRepository) GetByID(ctx context.Context, id int64) (*model.Subscription, error) {
	var sub model.Subscription

	err := r.db.WithContext(ctx).First(&sub, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrSubscriptionNotFound
		}
		r.logger.Error("Failed to get subscription by ID",
			zap.Int64("subscription_id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return &sub, nil
}

// Create inserts a new subscription. A violation of the active-per-account
// unique index is reported as ErrAlreadySubscribed.
func (r *subscriptionRepository) Create(ctx context.Context, subscription *model.Subscription) error {
	err := r.db.WithContext(ctx).Create(subscription).Error
	if err != nil {
		if isActiveUniqueViolation(err) {
			return domainerrors.ErrAlreadySubscribed
		}
		r.logger.Error("Failed to create subscription",
			zap.String("account_id", subscription.AccountID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to create subscription: %w", err)
	}

	return nil
}

// Cancel marks the account's active subscription as cancelled, preserving the
// paid period. Returns ErrNoActiveSubscription when nothing was active.
func (r *subscriptionRepository) Cancel(ctx context.Context, accountID uuid.UUID, at time.Time) (*model.Subscription, error) {
	var cancelled *model.Subscription

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sub model.Subscription
		err := tx.Where("account_id = ? AND status = ?", accountID, model.SubscriptionStatusActive).
			First(&sub).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrNoActiveSubscription
			}
			return fmt.Errorf("failed to retrieve subscription for cancellation: %w", err)
		}

		result := tx.Model(&model.Subscription{}).
			Where("id = ? AND status = ?", sub.ID, model.SubscriptionStatusActive).
			Updates(map[string]interface{}{
				"status":       model.SubscriptionStatusCancelled,
				"cancelled_at": &at,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to update subscription status: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrNoActiveSubscription
		}

		sub.Status = model.SubscriptionStatusCancelled
		sub.CancelledAt = &at
		cancelled = &sub
		return nil
	})

	if err != nil {
		if !errors.Is(err, domainerrors.ErrNoActiveSubscription) {
			r.logger.Error("Failed to cancel subscription",
				zap.String("account_id", accountID.String()),
				zap.Error(err))
		}
		return nil, err
	}

	r.logger.Info("Subscription cancelled",
		zap.Int64("subscription_id", cancelled.ID),
		zap.String("account_id", accountID.String()))

	return cancelled, nil
}

// UpdateStatus sets the subscription's status without touching the period
func (r *subscriptionRepository) UpdateStatus(ctx context.Context, id int64, to model.SubscriptionStatus) error {
	result := r.db.WithContext(ctx).
		Model(&model.Subscription{}).
		Where("id = ?", id).
		Update("status", to)

	if result.Error != nil {
		if isActiveUniqueViolation(result.Error) {
			return domainerrors.ErrAlreadySubscribed
		}
		r.logger.Error("Failed to update subscription status",
			zap.Int64("subscription_id", id),
			zap.String("status", string(to)),
			zap.Error(result.Error))
		return fmt.Errorf("failed to update subscription status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrSubscriptionNotFound
	}

	return nil
}

// RenewPeriod advances the billing period and replenishes monthly credits
func (r *subscriptionRepository) RenewPeriod(ctx context.Context, id int64, start, end time.Time, credits int) error {
	result := r.db.WithContext(ctx).
		Model(&model.Subscription{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"current_period_start": start,
			"current_period_end":   end,
			"consultation_credits": credits,
		})

	if result.Error != nil {
		r.logger.Error("Failed to renew subscription period",
			zap.Int64("subscription_id", id),
			zap.Error(result.Error))
		return fmt.Errorf("failed to renew subscription period: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrSubscriptionNotFound
	}

	return nil
}

// isActiveUniqueViolation reports whether the error is a violation of the
// active-per-account partial unique index. gorm's translated error covers the
// common case; the index name match catches drivers that bypass translation.
func isActiveUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), activeSubscriptionIndex)
}
