package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	domainerrors "github.com/petmily/billing-service/internal/domain/errors"
	"github.com/petmily/billing-service/internal/domain/model"
	"github.com/petmily/billing-service/internal/middleware/auth"
	"github.com/petmily/billing-service/internal/usecase"
)

// SubscriptionReader covers the subscription operations exposed over HTTP.
type SubscriptionReader interface {
	GetSubscription(ctx context.Context, accountID uuid.UUID) (*usecase.SubscriptionView, error)
	Cancel(ctx context.Context, accountID uuid.UUID) (*model.Subscription, error)
}

type SubscriptionHandler struct {
	subscriptions SubscriptionReader
	logger        *zap.Logger
}

func NewSubscriptionHandler(subscriptions SubscriptionReader, logger *zap.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptions: subscriptions,
		logger:        logger,
	}
}

// GetSubscription handles GET /subscription
func (h *SubscriptionHandler) GetSubscription(c echo.Context) error {
	accountID, ok := requestAccountID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "a valid account id is required"})
	}

	view, err := h.subscriptions.GetSubscription(c.Request().Context(), accountID)
	if err != nil {
		h.logger.Error("Failed to get subscription",
			zap.String("account_id", accountID.String()),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to get subscription"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"subscription":  view.Subscription,
		"isPremium":     view.IsPremium,
		"isPremiumPlus": view.IsPremiumPlus,
	})
}

// Cancel handles DELETE /subscription. Unlike GetSubscription there is no
// query-parameter fallback: only the authenticated account can cancel its
// own subscription.
func (h *SubscriptionHandler) Cancel(c echo.Context) error {
	accountID, ok := auth.AccountID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "a valid account id is required"})
	}

	sub, err := h.subscriptions.Cancel(c.Request().Context(), accountID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNoActiveSubscription) {
			return c.JSON(http.StatusNotFound, echo.Map{
				"error": "활성화된 구독이 없습니다.",
				"code":  "NO_ACTIVE_SUBSCRIPTION",
			})
		}
		h.logger.Error("Failed to cancel subscription",
			zap.String("account_id", accountID.String()),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to cancel subscription"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":       true,
		"message":       "구독이 해지되었습니다. 남은 기간 동안은 계속 이용하실 수 있습니다.",
		"entitledUntil": sub.CurrentPeriodEnd,
	})
}

// requestAccountID resolves the account for read-only lookups: the auth
// context when present, otherwise the accountId query parameter.
func requestAccountID(c echo.Context) (uuid.UUID, bool) {
	if raw, ok := c.Get("account_id").(string); ok && raw != "" {
		id, err := uuid.Parse(raw)
		if err == nil {
			return id, true
		}
	}
	if raw := c.QueryParam("accountId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err == nil {
			return id, true
		}
	}
	return uuid.Nil, false
}
