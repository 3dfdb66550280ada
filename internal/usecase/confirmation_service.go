package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domainerrors "github.com/petmily/billing-service/internal/domain/errors"
	"github.com/petmily/billing-service/internal/domain/gateway"
	"github.com/petmily/billing-service/internal/domain/model"
	"github.com/petmily/billing-service/internal/domain/repository"
	"github.com/petmily/billing-service/internal/infrastructure/metrics"
)

// ConfirmRequest carries everything needed to turn a card authorization into
// an active subscription.
type ConfirmRequest struct {
	AccountID   uuid.UUID
	AuthKey     string
	CustomerKey string
	PlanType    model.PlanType
}

// ConfirmResult is returned on a fully completed confirmation.
type ConfirmResult struct {
	SubscriptionID   int64
	PlanType         model.PlanType
	Price            int64
	CurrentPeriodEnd time.Time
}

// ConfirmationService runs the subscription confirmation flow: issue a billing
// key for the card authorization, charge the first period, then persist the
// subscription and its ledger entry.
type ConfirmationService struct {
	subscriptionRepo repository.SubscriptionRepository
	paymentRepo      repository.PaymentRepository
	gateway          gateway.Client
	plans            map[model.PlanType]model.Plan
	metrics          *metrics.Metrics
	logger           *zap.Logger
}

func NewConfirmationService(
	subscriptionRepo repository.SubscriptionRepository,
	paymentRepo repository.PaymentRepository,
	gatewayClient gateway.Client,
	metricsCollector *metrics.Metrics,
	logger *zap.Logger,
) *ConfirmationService {
	return &ConfirmationService{
		subscriptionRepo: subscriptionRepo,
		paymentRepo:      paymentRepo,
		gateway:          gatewayClient,
		plans:            model.DefaultPlans(),
		metrics:          metricsCollector,
		logger:           logger,
	}
}

// Confirm executes the confirmation flow. The charge happens before any row is
// written, so a failure after the money moved is reported as a
// PersistenceError carrying the payment key for manual reconciliation.
func (s *ConfirmationService) Confirm(ctx context.Context, req *ConfirmRequest) (*ConfirmResult, error) {
	// Step 1: validate input before touching anything external
	plan, err := s.validate(req)
	if err != nil {
		s.metrics.ConfirmationsTotal.WithLabelValues(metrics.ResultValidationError).Inc()
		return nil, err
	}

	// Step 2: fast-path uniqueness check. The partial unique index is the
	// real guard; this check just avoids charging a card we would refuse
	// to subscribe anyway.
	existing, err := s.subscriptionRepo.GetActiveByAccount(ctx, req.AccountID)
	if err != nil {
		s.metrics.ConfirmationsTotal.WithLabelValues(metrics.ResultError).Inc()
		return nil, fmt.Errorf("failed to check existing subscription: %w", err)
	}
	if existing != nil {
		s.metrics.ConfirmationsTotal.WithLabelValues(metrics.ResultConflict).Inc()
		return nil, domainerrors.ErrAlreadySubscribed
	}

	// Step 3: exchange the one-time auth key for a reusable billing key
	authorization, err := s.gateway.IssueBillingKey(ctx, req.AuthKey, req.CustomerKey)
	if err != nil {
		s.metrics.ConfirmationsTotal.WithLabelValues(metrics.ResultGatewayError).Inc()
		s.logger.Error("Failed to issue billing key",
			zap.String("account_id", req.AccountID.String()),
			zap.Error(err))
		return nil, err
	}

	// Step 4: charge the first billing period
	orderID := s.generateOrderID()
	receipt, err := s.gateway.ChargeBilling(ctx, &gateway.ChargeRequest{
		BillingKey:  authorization.BillingKey,
		CustomerKey: req.CustomerKey,
		Amount:      plan.Price,
		OrderID:     orderID,
		OrderName:   plan.OrderName,
	})
	if err != nil {
		s.metrics.ConfirmationsTotal.WithLabelValues(metrics.ResultGatewayError).Inc()
		s.logger.Error("Failed to charge billing key",
			zap.String("account_id", req.AccountID.String()),
			zap.String("order_id", orderID),
			zap.Error(err))
		return nil, err
	}

	// Step 5: persist the subscription. From here on the account has been
	// charged, so failures must keep the payment key visible.
	now := time.Now()
	var cardCompany string
	if authorization.Card != nil {
		cardCompany = authorization.Card.Company
	}
	subscription := &model.Subscription{
		AccountID:           req.AccountID,
		PlanType:            plan.Type,
		Price:               plan.Price,
		BillingKey:          authorization.BillingKey,
		CustomerKey:         req.CustomerKey,
		CardCompany:         cardCompany,
		CardLastFour:        authorization.Card.LastFour(),
		Status:              model.SubscriptionStatusActive,
		CurrentPeriodStart:  now,
		CurrentPeriodEnd:    now.AddDate(0, 1, 0),
		ConsultationCredits: plan.ConsultationCredits,
	}

	if err := s.subscriptionRepo.Create(ctx, subscription); err != nil {
		if errors.Is(err, domainerrors.ErrAlreadySubscribed) {
			// Lost the race to a concurrent confirmation. The charge
			// already went through, so surface the payment key.
			s.metrics.ConfirmationsTotal.WithLabelValues(metrics.ResultConflict).Inc()
		} else {
			s.metrics.ConfirmationsTotal.WithLabelValues(metrics.ResultPersistenceError).Inc()
		}
		s.logger.Error("Charged but failed to persist subscription",
			zap.String("account_id", req.AccountID.String()),
			zap.String("order_id", orderID),
			zap.String("payment_key", receipt.PaymentKey),
			zap.Error(err))
		s.recordUnlinkedPayment(ctx, receipt, plan)
		return nil, &domainerrors.PersistenceError{PaymentKey: receipt.PaymentKey, Err: err}
	}

	// Step 6: append the ledger entry. The subscription already exists, so
	// a ledger failure is logged but does not fail the confirmation.
	payment := &model.Payment{
		SubscriptionID: &subscription.ID,
		PaymentKey:     receipt.PaymentKey,
		OrderID:        receipt.OrderID,
		Amount:         receipt.Amount,
		PlanType:       plan.Type,
		Status:         receipt.Status,
		ApprovedAt:     receipt.ApprovedAt,
	}
	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		s.logger.Warn("Subscription created but ledger entry failed",
			zap.Int64("subscription_id", subscription.ID),
			zap.String("payment_key", receipt.PaymentKey),
			zap.Error(err))
	}

	s.metrics.ConfirmationsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	s.logger.Info("Subscription confirmed",
		zap.Int64("subscription_id", subscription.ID),
		zap.String("account_id", req.AccountID.String()),
		zap.String("plan_type", string(plan.Type)),
		zap.String("order_id", orderID))

	return &ConfirmResult{
		SubscriptionID:   subscription.ID,
		PlanType:         plan.Type,
		Price:            plan.Price,
		CurrentPeriodEnd: subscription.CurrentPeriodEnd,
	}, nil
}

// UnreconciledPayments lists charges that never got linked to a subscription.
func (s *ConfirmationService) UnreconciledPayments(ctx context.Context, limit int) ([]model.Payment, error) {
	return s.paymentRepo.ListUnlinked(ctx, limit)
}

func (s *ConfirmationService) validate(req *ConfirmRequest) (model.Plan, error) {
	if req.AccountID == uuid.Nil {
		return model.Plan{}, &domainerrors.ValidationError{Field: "account_id", Reason: "account id is required"}
	}
	if req.AuthKey == "" {
		return model.Plan{}, &domainerrors.ValidationError{Field: "auth_key", Reason: "auth key is required"}
	}
	if req.CustomerKey == "" {
		return model.Plan{}, &domainerrors.ValidationError{Field: "customer_key", Reason: "customer key is required"}
	}
	plan, ok := s.plans[req.PlanType]
	if !ok {
		return model.Plan{}, &domainerrors.ValidationError{Field: "plan_type", Reason: fmt.Sprintf("unknown plan type: %s", req.PlanType)}
	}
	return plan, nil
}

// recordUnlinkedPayment best-effort writes a ledger row with no subscription
// so the charge stays queryable for reconciliation. Failures only log; the
// payment key was already logged by the caller.
func (s *ConfirmationService) recordUnlinkedPayment(ctx context.Context, receipt *gateway.PaymentReceipt, plan model.Plan) {
	payment := &model.Payment{
		PaymentKey: receipt.PaymentKey,
		OrderID:    receipt.OrderID,
		Amount:     receipt.Amount,
		PlanType:   plan.Type,
		Status:     receipt.Status,
		ApprovedAt: receipt.ApprovedAt,
	}
	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		s.logger.Warn("Failed to record unlinked payment",
			zap.String("payment_key", receipt.PaymentKey),
			zap.Error(err))
	}
}

func (s *ConfirmationService) generateOrderID() string {
	return fmt.Sprintf("ORDER_%d_%s", time.Now().Unix(), uuid.New().String()[:8])
}
