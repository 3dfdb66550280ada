package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domainerrors "github.com/petmily/billing-service/internal/domain/errors"
	"github.com/petmily/billing-service/internal/domain/model"
	"github.com/petmily/billing-service/internal/domain/repository"
)

// SubscriptionView is a subscription annotated with the entitlement flags the
// app checks before unlocking premium features.
type SubscriptionView struct {
	Subscription  *model.Subscription
	IsPremium     bool
	IsPremiumPlus bool
}

// SubscriptionService covers reads and lifecycle transitions of existing
// subscriptions. Creation goes through ConfirmationService.
type SubscriptionService struct {
	subscriptionRepo repository.SubscriptionRepository
	plans            map[model.PlanType]model.Plan
	logger           *zap.Logger
}

func NewSubscriptionService(subscriptionRepo repository.SubscriptionRepository, logger *zap.Logger) *SubscriptionService {
	return &SubscriptionService{
		subscriptionRepo: subscriptionRepo,
		plans:            model.DefaultPlans(),
		logger:           logger,
	}
}

// GetSubscription returns the subscription the account is entitled to right
// now, or a view with nil Subscription when there is none. A cancelled
// subscription keeps its entitlement until the paid period ends.
func (s *SubscriptionService) GetSubscription(ctx context.Context, accountID uuid.UUID) (*SubscriptionView, error) {
	sub, err := s.subscriptionRepo.GetCurrentByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	if sub == nil || !sub.IsEntitled(time.Now()) {
		return &SubscriptionView{}, nil
	}

	return &SubscriptionView{
		Subscription:  sub,
		IsPremium:     sub.PlanType.Valid(),
		IsPremiumPlus: sub.PlanType == model.PlanPremiumPlus,
	}, nil
}

// Cancel cancels the account's active subscription. Entitlement runs until
// the end of the already-paid period.
func (s *SubscriptionService) Cancel(ctx context.Context, accountID uuid.UUID) (*model.Subscription, error) {
	sub, err := s.subscriptionRepo.Cancel(ctx, accountID, time.Now())
	if err != nil {
		return nil, err
	}

	s.logger.Info("Subscription cancelled by account",
		zap.Int64("subscription_id", sub.ID),
		zap.String("account_id", accountID.String()),
		zap.Time("entitled_until", sub.CurrentPeriodEnd))

	return sub, nil
}

// TransitionStatus moves a subscription to a new status, rejecting moves the
// lifecycle does not allow.
func (s *SubscriptionService) TransitionStatus(ctx context.Context, id int64, to model.SubscriptionStatus) error {
	sub, err := s.subscriptionRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if !model.CanTransition(sub.Status, to) {
		return fmt.Errorf("%w: %s -> %s", domainerrors.ErrInvalidTransition, sub.Status, to)
	}

	if err := s.subscriptionRepo.UpdateStatus(ctx, id, to); err != nil {
		return err
	}

	s.logger.Info("Subscription status changed",
		zap.Int64("subscription_id", id),
		zap.String("from", string(sub.Status)),
		zap.String("to", string(to)))

	return nil
}

// MarkRenewed advances the billing period by one month and replenishes the
// plan's monthly consultation credits.
func (s *SubscriptionService) MarkRenewed(ctx context.Context, id int64) error {
	sub, err := s.subscriptionRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	plan, ok := s.plans[sub.PlanType]
	if !ok {
		return fmt.Errorf("unknown plan type on subscription %d: %s", id, sub.PlanType)
	}

	start := sub.CurrentPeriodEnd
	end := start.AddDate(0, 1, 0)
	if err := s.subscriptionRepo.RenewPeriod(ctx, id, start, end, plan.ConsultationCredits); err != nil {
		return err
	}

	s.logger.Info("Subscription period renewed",
		zap.Int64("subscription_id", id),
		zap.Time("period_start", start),
		zap.Time("period_end", end))

	return nil
}
