package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	domainerrors "github.com/petmily/billing-service/internal/domain/errors"
	"github.com/petmily/billing-service/internal/domain/model"
	"github.com/petmily/billing-service/internal/usecase"
)

// Confirmer is the slice of ConfirmationService the billing handler needs.
type Confirmer interface {
	Confirm(ctx context.Context, req *usecase.ConfirmRequest) (*usecase.ConfirmResult, error)
	UnreconciledPayments(ctx context.Context, limit int) ([]model.Payment, error)
}

type BillingHandler struct {
	confirmer Confirmer
	logger    *zap.Logger
}

func NewBillingHandler(confirmer Confirmer, logger *zap.Logger) *BillingHandler {
	return &BillingHandler{
		confirmer: confirmer,
		logger:    logger,
	}
}

type confirmRequest struct {
	AuthKey     string `json:"authKey" validate:"required"`
	CustomerKey string `json:"customerKey" validate:"required"`
	AccountID   string `json:"accountId"`
	PlanType    string `json:"planType" validate:"required"`
}

type confirmedSubscription struct {
	ID               int64     `json:"id"`
	PlanType         string    `json:"plan_type"`
	Price            int64     `json:"price"`
	CurrentPeriodEnd time.Time `json:"current_period_end"`
}

// Confirm handles POST /billing/confirm
func (h *BillingHandler) Confirm(c echo.Context) error {
	var req confirmRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "authKey, customerKey and planType are required"})
	}

	accountID, ok := resolveAccountID(c, req.AccountID)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "a valid account id is required"})
	}

	result, err := h.confirmer.Confirm(c.Request().Context(), &usecase.ConfirmRequest{
		AccountID:   accountID,
		AuthKey:     req.AuthKey,
		CustomerKey: req.CustomerKey,
		PlanType:    model.PlanType(req.PlanType),
	})
	if err != nil {
		return h.confirmError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"subscription": confirmedSubscription{
			ID:               result.SubscriptionID,
			PlanType:         string(result.PlanType),
			Price:            result.Price,
			CurrentPeriodEnd: result.CurrentPeriodEnd,
		},
	})
}

func (h *BillingHandler) confirmError(c echo.Context, err error) error {
	var validationErr *domainerrors.ValidationError
	if errors.As(err, &validationErr) {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": validationErr.Error(),
			"code":  "VALIDATION_ERROR",
		})
	}

	if errors.Is(err, domainerrors.ErrAlreadySubscribed) {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "이미 구독 중입니다.",
			"code":  "ALREADY_SUBSCRIBED",
		})
	}

	var gatewayErr *domainerrors.GatewayError
	if errors.As(err, &gatewayErr) {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": gatewayErr.Message,
			"code":  gatewayErr.Code,
		})
	}

	var persistenceErr *domainerrors.PersistenceError
	if errors.As(err, &persistenceErr) {
		// The card was charged. Return the payment key so support can
		// reconcile or refund.
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error":       "결제는 완료되었으나 구독 처리에 실패했습니다. 고객센터로 문의해주세요.",
			"code":        "PERSISTENCE_ERROR",
			"payment_key": persistenceErr.PaymentKey,
		})
	}

	h.logger.Error("Confirmation failed", zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{
		"error": "internal server error",
		"code":  "INTERNAL_ERROR",
	})
}

// ListReconciliation handles GET /billing/reconciliation. The listing carries
// raw payment keys so an operator can refund or re-link charges whose
// subscription insert failed; the route must stay on the internal network
// behind the operator gateway, never on the public surface.
func (h *BillingHandler) ListReconciliation(c echo.Context) error {
	limit := 100
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "limit must be a positive integer"})
		}
		limit = parsed
	}

	payments, err := h.confirmer.UnreconciledPayments(c.Request().Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list unreconciled payments", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list unreconciled payments"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"payments": payments,
		"count":    len(payments),
	})
}

// resolveAccountID prefers the authenticated account id from the context and
// falls back to the one in the request body.
func resolveAccountID(c echo.Context, fromBody string) (uuid.UUID, bool) {
	if raw, ok := c.Get("account_id").(string); ok && raw != "" {
		id, err := uuid.Parse(raw)
		if err == nil {
			return id, true
		}
	}
	if fromBody != "" {
		id, err := uuid.Parse(fromBody)
		if err == nil {
			return id, true
		}
	}
	return uuid.Nil, false
}
