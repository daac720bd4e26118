package square

import (
	"testing"
	"time"

	sq "github.com/square/square-go-sdk"
	"github.com/pulseboardhq/pulseboard-backend/pkg/config"
	"github.com/stretchr/testify/require"
)

func subscription(status sq.SubscriptionStatus, planVariationID string) *sq.Subscription {
	sub := &sq.Subscription{Status: &status}
	if planVariationID != "" {
		sub.PlanVariationID = &planVariationID
	}
	return sub
}

func cancelledSubscription(status sq.SubscriptionStatus, canceledDate string) *sq.Subscription {
	sub := subscription(status, "")
	sub.CanceledDate = &canceledDate
	return sub
}

func TestNewValidatesCredentials(t *testing.T) {
	_, err := New(config.SquareCredentials{LocationIDs: []string{"L1"}})
	require.ErrorIs(t, err, errAccessTokenRequired)

	_, err = New(config.SquareCredentials{AccessToken: "tok"})
	require.ErrorIs(t, err, errLocationRequired)

	_, err = New(config.SquareCredentials{AccessToken: "tok", LocationIDs: []string{"L1"}, Environment: "staging"})
	require.ErrorContains(t, err, "square environment")

	adapter, err := New(config.SquareCredentials{AccessToken: "tok", LocationIDs: []string{"L1"}})
	require.NoError(t, err)
	require.NotNil(t, adapter)
}

func TestParseQuantity(t *testing.T) {
	require.Equal(t, 2, parseQuantity("2"))
	require.Equal(t, 3, parseQuantity(" 3.0 "))
	require.Equal(t, 1, parseQuantity("0.5"), "fractional units count as one")
	require.Equal(t, 0, parseQuantity(""))
	require.Equal(t, 0, parseQuantity("two"))
}

func TestMoneyCents(t *testing.T) {
	amount := int64(1250)
	require.Equal(t, int64(1250), moneyCents(&sq.Money{Amount: &amount}))
	require.Equal(t, int64(0), moneyCents(nil))
	require.Equal(t, int64(0), moneyCents(&sq.Money{}))
}

func TestDeriveSubscriptionStats(t *testing.T) {
	pricing := map[string]planPricing{
		"PV_MONTHLY": {cents: 2500, cadence: sq.SubscriptionCadenceMonthly},
		"PV_ANNUAL":  {cents: 12000, cadence: sq.SubscriptionCadenceAnnual},
	}
	overrideCents := int64(1500)
	overridden := subscription(sq.SubscriptionStatusActive, "PV_MONTHLY")
	overridden.PriceOverrideMoney = &sq.Money{Amount: &overrideCents}

	stats := deriveSubscriptionStats([]*sq.Subscription{
		subscription(sq.SubscriptionStatusActive, "PV_MONTHLY"),
		subscription(sq.SubscriptionStatusActive, "PV_ANNUAL"),
		overridden,
		subscription(sq.SubscriptionStatusCanceled, "PV_MONTHLY"),
		subscription(sq.SubscriptionStatusPaused, "PV_MONTHLY"),
	}, pricing)

	require.Equal(t, 3, stats.ActiveSubscribers)
	// 25.00 monthly + 12000 annual / 12 + 15.00 override at monthly cadence.
	require.InDelta(t, 50.0, stats.MRR, 1e-9)
}

func TestDeriveSubscriptionStatsUnknownPlanCountsAsMonthly(t *testing.T) {
	overrideCents := int64(999)
	sub := subscription(sq.SubscriptionStatusActive, "PV_MISSING")
	sub.PriceOverrideMoney = &sq.Money{Amount: &overrideCents}

	stats := deriveSubscriptionStats([]*sq.Subscription{sub}, map[string]planPricing{})
	require.Equal(t, 1, stats.ActiveSubscribers)
	require.InDelta(t, 9.99, stats.MRR, 1e-9)
}

func TestDeriveChurnStats(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	subs := []*sq.Subscription{
		cancelledSubscription(sq.SubscriptionStatusCanceled, "2026-03-10"),
		cancelledSubscription(sq.SubscriptionStatusDeactivated, "2026-02-20"),
		cancelledSubscription(sq.SubscriptionStatusCanceled, "2025-12-01"),
	}
	for i := 0; i < 8; i++ {
		subs = append(subs, subscription(sq.SubscriptionStatusActive, "PV"))
	}

	stats := deriveChurnStats(subs, now)
	require.Equal(t, 2, stats.CancelledThisMonth, "cancellation outside the lookback is excluded")
	require.Equal(t, 10, stats.ActiveStart)
	require.InDelta(t, 20.0, stats.ChurnRate, 1e-9)
}

func TestDeriveChurnStatsWithoutBase(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	stats := deriveChurnStats([]*sq.Subscription{
		cancelledSubscription(sq.SubscriptionStatusCanceled, "2025-01-01"),
		cancelledSubscription(sq.SubscriptionStatusCanceled, "not-a-date"),
	}, now)
	require.Equal(t, 0, stats.CancelledThisMonth)
	require.Equal(t, 0, stats.ActiveStart)
	require.Zero(t, stats.ChurnRate)
}
