package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/petmily/billing-service/internal/domain/model"
	"github.com/petmily/billing-service/internal/domain/repository"
)

type paymentRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *gorm.DB, logger *zap.Logger) repository.PaymentRepository {
	return &paymentRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends a payment record to the ledger
func (r *paymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	err := r.db.WithContext(ctx).Create(payment).Error
	if err != nil {
		r.logger.Error("Failed to create payment record",
			zap.String("order_id", payment.OrderID),
			zap.Error(err))
		return fmt.Errorf("failed to create payment record: %w", err)
	}

	return nil
}

// ListBySubscription lists payments for a subscription, newest first
func (r *paymentRepository) ListBySubscription(ctx context.Context, subscriptionID int64) ([]model.Payment, error) {
	var payments []model.Payment

	err := r.db.WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		Order("created_at DESC").
		Find(&payments).Error

	if err != nil {
		r.logger.Error("Failed to list payments",
			zap.Int64("subscription_id", subscriptionID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	return payments, nil
}

// ListUnlinked lists charged payments that never got linked to a subscription,
// newest first. These are the candidates for manual reconciliation.
func (r *paymentRepository) ListUnlinked(ctx context.Context, limit int) ([]model.Payment, error) {
	var payments []model.Payment

	query := r.db.WithContext(ctx).
		Where("subscription_id IS NULL").
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	err := query.Find(&payments).Error
	if err != nil {
		r.logger.Error("Failed to list unlinked payments", zap.Error(err))
		return nil, fmt.Errorf("failed to list unlinked payments: %w", err)
	}

	return payments, nil
}
