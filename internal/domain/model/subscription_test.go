package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from    SubscriptionStatus
		to      SubscriptionStatus
		allowed bool
	}{
		{SubscriptionStatusActive, SubscriptionStatusCancelled, true},
		{SubscriptionStatusActive, SubscriptionStatusPaymentFailed, true},
		{SubscriptionStatusActive, SubscriptionStatusExpired, true},
		{SubscriptionStatusActive, SubscriptionStatusPaused, true},
		{SubscriptionStatusPaymentFailed, SubscriptionStatusActive, true},
		{SubscriptionStatusPaymentFailed, SubscriptionStatusExpired, true},
		{SubscriptionStatusPaused, SubscriptionStatusActive, true},
		{SubscriptionStatusPaused, SubscriptionStatusExpired, true},

		{SubscriptionStatusCancelled, SubscriptionStatusActive, false},
		{SubscriptionStatusCancelled, SubscriptionStatusPaused, false},
		{SubscriptionStatusExpired, SubscriptionStatusActive, false},
		{SubscriptionStatusExpired, SubscriptionStatusPaymentFailed, false},
		{SubscriptionStatusPaymentFailed, SubscriptionStatusCancelled, false},
		{SubscriptionStatusPaused, SubscriptionStatusCancelled, false},
		{SubscriptionStatusActive, SubscriptionStatusActive, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, CanTransition(tc.from, tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestSubscriptionStatusScan(t *testing.T) {
	var s SubscriptionStatus
	assert.NoError(t, s.Scan("active"))
	assert.Equal(t, SubscriptionStatusActive, s)

	assert.NoError(t, s.Scan([]byte("paused")))
	assert.Equal(t, SubscriptionStatusPaused, s)

	assert.Error(t, s.Scan(42))
	assert.Equal(t, SubscriptionStatusPaused, s, "failed scan must not overwrite the value")
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, SubscriptionStatusCancelled.IsTerminal())
	assert.True(t, SubscriptionStatusExpired.IsTerminal())
	assert.False(t, SubscriptionStatusActive.IsTerminal())
	assert.False(t, SubscriptionStatusPaymentFailed.IsTerminal())
	assert.False(t, SubscriptionStatusPaused.IsTerminal())
}

func TestIsEntitled(t *testing.T) {
	now := time.Now()

	active := &Subscription{Status: SubscriptionStatusActive, CurrentPeriodEnd: now.Add(-time.Hour)}
	assert.True(t, active.IsEntitled(now))

	cancelledInPeriod := &Subscription{Status: SubscriptionStatusCancelled, CurrentPeriodEnd: now.Add(time.Hour)}
	assert.True(t, cancelledInPeriod.IsEntitled(now))

	cancelledExpired := &Subscription{Status: SubscriptionStatusCancelled, CurrentPeriodEnd: now.Add(-time.Hour)}
	assert.False(t, cancelledExpired.IsEntitled(now))

	paymentFailed := &Subscription{Status: SubscriptionStatusPaymentFailed, CurrentPeriodEnd: now.Add(time.Hour)}
	assert.False(t, paymentFailed.IsEntitled(now))

	paused := &Subscription{Status: SubscriptionStatusPaused, CurrentPeriodEnd: now.Add(time.Hour)}
	assert.False(t, paused.IsEntitled(now))
}

func TestPlanCatalog(t *testing.T) {
	plans := DefaultPlans()

	premium := plans[PlanPremium]
	assert.Equal(t, int64(5900), premium.Price)
	assert.Equal(t, 0, premium.ConsultationCredits)

	plus := plans[PlanPremiumPlus]
	assert.Equal(t, int64(9900), plus.Price)
	assert.Equal(t, 2, plus.ConsultationCredits)

	assert.True(t, PlanPremium.Valid())
	assert.True(t, PlanPremiumPlus.Valid())
	assert.False(t, PlanType("gold").Valid())
}
