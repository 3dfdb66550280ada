package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domainerrors "github.com/petmily/billing-service/internal/domain/errors"
	"github.com/petmily/billing-service/internal/domain/model"
	"github.com/petmily/billing-service/internal/usecase"
)

// MockSubscriptionReader is a mock implementation of SubscriptionReader
type MockSubscriptionReader struct {
	mock.Mock
}

func (m *MockSubscriptionReader) GetSubscription(ctx context.Context, accountID uuid.UUID) (*usecase.SubscriptionView, error) {
	args := m.Called(ctx, accountID)
	if view := args.Get(0); view != nil {
		return view.(*usecase.SubscriptionView), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSubscriptionReader) Cancel(ctx context.Context, accountID uuid.UUID) (*model.Subscription, error) {
	args := m.Called(ctx, accountID)
	if sub := args.Get(0); sub != nil {
		return sub.(*model.Subscription), args.Error(1)
	}
	return nil, args.Error(1)
}

func newSubscriptionContext(method, target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestGetSubscriptionHandler(t *testing.T) {
	reader := new(MockSubscriptionReader)
	handler := NewSubscriptionHandler(reader, zap.NewNop())
	accountID := uuid.New()

	reader.On("GetSubscription", mock.Anything, accountID).Return(&usecase.SubscriptionView{
		Subscription: &model.Subscription{
			ID:       1,
			PlanType: model.PlanPremiumPlus,
			Status:   model.SubscriptionStatusActive,
		},
		IsPremium:     true,
		IsPremiumPlus: true,
	}, nil)

	c, rec := newSubscriptionContext(http.MethodGet, "/subscription")
	c.Set("account_id", accountID.String())
	require.NoError(t, handler.GetSubscription(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"isPremium":true`)
	assert.Contains(t, rec.Body.String(), `"isPremiumPlus":true`)
}

func TestGetSubscriptionHandler_NoSubscription(t *testing.T) {
	reader := new(MockSubscriptionReader)
	handler := NewSubscriptionHandler(reader, zap.NewNop())
	accountID := uuid.New()

	reader.On("GetSubscription", mock.Anything, accountID).Return(&usecase.SubscriptionView{}, nil)

	c, rec := newSubscriptionContext(http.MethodGet, "/subscription?accountId="+accountID.String())
	require.NoError(t, handler.GetSubscription(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"subscription":null`)
	assert.Contains(t, rec.Body.String(), `"isPremium":false`)
}

func TestGetSubscriptionHandler_NoAccount(t *testing.T) {
	reader := new(MockSubscriptionReader)
	handler := NewSubscriptionHandler(reader, zap.NewNop())

	c, rec := newSubscriptionContext(http.MethodGet, "/subscription")
	require.NoError(t, handler.GetSubscription(c))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	reader.AssertNotCalled(t, "GetSubscription", mock.Anything, mock.Anything)
}

func TestCancelHandler_Success(t *testing.T) {
	reader := new(MockSubscriptionReader)
	handler := NewSubscriptionHandler(reader, zap.NewNop())
	accountID := uuid.New()

	reader.On("Cancel", mock.Anything, accountID).Return(&model.Subscription{
		ID:               1,
		Status:           model.SubscriptionStatusCancelled,
		CurrentPeriodEnd: time.Now().AddDate(0, 1, 0),
	}, nil)

	c, rec := newSubscriptionContext(http.MethodDelete, "/subscription")
	c.Set("account_id", accountID.String())
	require.NoError(t, handler.Cancel(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":true`)
	assert.Contains(t, rec.Body.String(), "entitledUntil")
}

func TestCancelHandler_NoActiveSubscription(t *testing.T) {
	reader := new(MockSubscriptionReader)
	handler := NewSubscriptionHandler(reader, zap.NewNop())
	accountID := uuid.New()

	reader.On("Cancel", mock.Anything, accountID).Return(nil, domainerrors.ErrNoActiveSubscription)

	c, rec := newSubscriptionContext(http.MethodDelete, "/subscription")
	c.Set("account_id", accountID.String())
	require.NoError(t, handler.Cancel(c))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NO_ACTIVE_SUBSCRIPTION")
}

func TestCancelHandler_NoAccount(t *testing.T) {
	reader := new(MockSubscriptionReader)
	handler := NewSubscriptionHandler(reader, zap.NewNop())

	c, rec := newSubscriptionContext(http.MethodDelete, "/subscription")
	require.NoError(t, handler.Cancel(c))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	reader.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything)
}

func TestCancelHandler_IgnoresQueryAccount(t *testing.T) {
	reader := new(MockSubscriptionReader)
	handler := NewSubscriptionHandler(reader, zap.NewNop())
	victimID := uuid.New()

	c, rec := newSubscriptionContext(http.MethodDelete, "/subscription?accountId="+victimID.String())
	require.NoError(t, handler.Cancel(c))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	reader.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything)
}
