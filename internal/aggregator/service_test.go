package aggregator

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pulseboardhq/pulseboard-backend/internal/periods"
	"github.com/pulseboardhq/pulseboard-backend/internal/providers"
	"github.com/pulseboardhq/pulseboard-backend/internal/report"
	pkgerrors "github.com/pulseboardhq/pulseboard-backend/pkg/errors"
)

type fakeOrders struct {
	stats    *providers.OrderStats
	products []providers.TopProduct
	subs     *providers.SubscriptionStats
	churn    *providers.ChurnStats
	err      error
	delay    time.Duration

	// prevStats is returned for windows that ended more than a day ago, so
	// comparison passes can observe different figures.
	prevStats *providers.OrderStats

	statCalls atomic.Int32
}

func (f *fakeOrders) GetOrderStats(ctx context.Context, window periods.Window) (*providers.OrderStats, error) {
	f.statCalls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.prevStats != nil && window.End.Before(time.Now().AddDate(0, 0, -1)) {
		return f.prevStats, nil
	}
	return f.stats, nil
}

func (f *fakeOrders) GetTopProducts(ctx context.Context, window periods.Window, limit int) ([]providers.TopProduct, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.products, nil
}

func (f *fakeOrders) GetSubscriptionStats(ctx context.Context) (*providers.SubscriptionStats, error) {
	return f.subs, nil
}

func (f *fakeOrders) GetChurnData(ctx context.Context) (*providers.ChurnStats, error) {
	return f.churn, nil
}

type fakeTraffic struct {
	stats    *providers.TrafficStats
	channels []providers.ChannelTraffic
	err      error
}

func (f *fakeTraffic) GetTrafficStats(ctx context.Context, window periods.Window) (*providers.TrafficStats, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.stats, nil
}

func (f *fakeTraffic) GetTrafficByChannel(ctx context.Context, window periods.Window) ([]providers.ChannelTraffic, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.channels, nil
}

type fakeAds struct {
	summary *providers.AdAccountSummary
	err     error
}

func (f *fakeAds) GetAccountSummary(ctx context.Context, window periods.Window) (*providers.AdAccountSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.summary, nil
}

type fakeEmail struct {
	stats *providers.EmailListStats
	err   error
}

func (f *fakeEmail) GetListStats(ctx context.Context) (*providers.EmailListStats, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.stats, nil
}

func findMetric(t *testing.T, metrics []report.MetricWithDelta, key string) report.MetricWithDelta {
	t.Helper()
	for _, m := range metrics {
		if m.Key == key {
			return m
		}
	}
	t.Fatalf("metric %q not found", key)
	return report.MetricWithDelta{}
}

func TestBrandDataMixedAvailability(t *testing.T) {
	// Orders never configured, analytics live: revenue must be an explicit
	// placeholder, sessions must be live, and the conversion rate must be
	// unavailable rather than 0%.
	brand := &providers.Brand{
		Key:      "acme",
		Name:     "Acme",
		Currency: "USD",
		Traffic: &fakeTraffic{stats: &providers.TrafficStats{
			Sessions: 1000, TotalUsers: 800, NewUsers: 300, BounceRate: 42.5, AvgSessionDuration: 92, PageViews: 4100,
		}},
	}
	svc := New(Params{Brands: []*providers.Brand{brand}})

	payload, err := svc.BrandData(context.Background(), "acme", Query{Period: periods.KindWeek})
	require.NoError(t, err)

	revenue := findMetric(t, payload.Metrics, "revenue")
	require.False(t, revenue.IsLive)
	require.Equal(t, report.PlaceholderValue, revenue.Value)
	require.Equal(t, report.StatusNotConnected, revenue.Status)

	sessions := findMetric(t, payload.Metrics, "sessions")
	require.True(t, sessions.IsLive)
	require.Equal(t, "1,000", sessions.Value)
	require.Equal(t, float64(1000), sessions.RawValue)

	conversion := findMetric(t, payload.Metrics, "conversion_rate")
	require.False(t, conversion.IsLive)
	require.Equal(t, report.PlaceholderValue, conversion.Value)

	require.False(t, payload.Sources[providers.ClassOrders])
	require.True(t, payload.Sources[providers.ClassTraffic])
}

func TestBrandDataAllLive(t *testing.T) {
	brand := &providers.Brand{
		Key:      "acme",
		Name:     "Acme",
		Currency: "GBP",
		Orders: &fakeOrders{
			stats:    &providers.OrderStats{Revenue: 12500.50, Orders: 50, AvgOrderValue: 250.01},
			products: []providers.TopProduct{{Name: "Hoodie", Revenue: 4000, Units: 80}},
			subs:     &providers.SubscriptionStats{ActiveSubscribers: 210, MRR: 6300},
			churn:    &providers.ChurnStats{ChurnRate: 2.4, CancelledThisMonth: 5, ActiveStart: 208},
		},
		Traffic: &fakeTraffic{
			stats:    &providers.TrafficStats{Sessions: 1000, TotalUsers: 750, BounceRate: 38.2, AvgSessionDuration: 104, PageViews: 5200},
			channels: []providers.ChannelTraffic{{Channel: "Organic Search", Sessions: 620}},
		},
		Ads: &fakeAds{summary: &providers.AdAccountSummary{
			Impressions: 100000, Clicks: 2000, Spend: 1000, Conversions: 40, ConversionValue: 3420,
		}},
		Email: &fakeEmail{stats: &providers.EmailListStats{TotalContacts: 5200, ActiveContacts: 4900, UnsubscribedContacts: 300}},
	}
	svc := New(Params{Brands: []*providers.Brand{brand}})

	payload, err := svc.BrandData(context.Background(), "acme", Query{Period: periods.KindMonth})
	require.NoError(t, err)

	require.Equal(t, "£12,500.50", findMetric(t, payload.Metrics, "revenue").Value)
	require.Equal(t, "£250.01", findMetric(t, payload.Metrics, "avg_order_value").Value)

	// 50 orders over 1000 sessions.
	conversion := findMetric(t, payload.Metrics, "conversion_rate")
	require.True(t, conversion.IsLive)
	require.Equal(t, "5.0%", conversion.Value)

	// Ratios derive from ad totals: 2000/100000 clicks, 3420/1000 return.
	require.Equal(t, "2.0%", findMetric(t, payload.Metrics, "ctr").Value)
	require.Equal(t, "£0.50", findMetric(t, payload.Metrics, "avg_cpc").Value)
	require.Equal(t, "£25.00", findMetric(t, payload.Metrics, "cpa").Value)
	require.Equal(t, "3.42x", findMetric(t, payload.Metrics, "roas").Value)

	require.Equal(t, "1m 44s", findMetric(t, payload.Metrics, "avg_session_duration").Value)
	require.Equal(t, "5,200", findMetric(t, payload.Metrics, "email_contacts").Value)

	require.Len(t, payload.TopProducts, 1)
	require.Len(t, payload.Channels, 1)
	for _, class := range []string{providers.ClassOrders, providers.ClassTraffic, providers.ClassAds, providers.ClassEmail} {
		require.True(t, payload.Sources[class], class)
	}
}

func TestBrandDataSubscriptionsNotOffered(t *testing.T) {
	brand := &providers.Brand{
		Key:      "acme",
		Name:     "Acme",
		Currency: "USD",
		Orders:   &fakeOrders{stats: &providers.OrderStats{Revenue: 100, Orders: 2, AvgOrderValue: 50}},
	}
	svc := New(Params{Brands: []*providers.Brand{brand}})

	payload, err := svc.BrandData(context.Background(), "acme", Query{Period: periods.KindWeek})
	require.NoError(t, err)

	require.True(t, findMetric(t, payload.Metrics, "revenue").IsLive)
	require.False(t, findMetric(t, payload.Metrics, "active_subscribers").IsLive)
	require.False(t, findMetric(t, payload.Metrics, "churn_rate").IsLive)
}

func TestBrandDataProviderFailureDegrades(t *testing.T) {
	brand := &providers.Brand{
		Key:      "acme",
		Name:     "Acme",
		Currency: "USD",
		Orders:   &fakeOrders{err: errors.New("square down")},
		Traffic:  &fakeTraffic{stats: &providers.TrafficStats{Sessions: 500}},
	}
	svc := New(Params{Brands: []*providers.Brand{brand}})

	payload, err := svc.BrandData(context.Background(), "acme", Query{Period: periods.KindWeek})
	require.NoError(t, err)

	require.False(t, findMetric(t, payload.Metrics, "revenue").IsLive)
	require.True(t, findMetric(t, payload.Metrics, "sessions").IsLive)
	require.False(t, payload.Sources[providers.ClassOrders])
}

func TestBrandDataProviderTimeoutDegrades(t *testing.T) {
	brand := &providers.Brand{
		Key:      "acme",
		Name:     "Acme",
		Currency: "USD",
		Orders:   &fakeOrders{stats: &providers.OrderStats{Revenue: 100}, delay: 500 * time.Millisecond},
		Traffic:  &fakeTraffic{stats: &providers.TrafficStats{Sessions: 500}},
	}
	svc := New(Params{
		Brands:   []*providers.Brand{brand},
		Timeouts: Timeouts{Orders: 30 * time.Millisecond},
	})

	payload, err := svc.BrandData(context.Background(), "acme", Query{Period: periods.KindWeek})
	require.NoError(t, err)

	require.False(t, findMetric(t, payload.Metrics, "revenue").IsLive)
	require.True(t, findMetric(t, payload.Metrics, "sessions").IsLive)
}

func TestBrandDataUnknownBrand(t *testing.T) {
	svc := New(Params{Brands: []*providers.Brand{{Key: "acme"}}})

	_, err := svc.BrandData(context.Background(), "ghost", Query{Period: periods.KindWeek})
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestBrandDataComparisonDeltas(t *testing.T) {
	orders := &fakeOrders{
		stats:     &providers.OrderStats{Revenue: 120, Orders: 12, AvgOrderValue: 10},
		prevStats: &providers.OrderStats{Revenue: 100, Orders: 10, AvgOrderValue: 10},
	}
	brand := &providers.Brand{Key: "acme", Name: "Acme", Currency: "USD", Orders: orders}
	svc := New(Params{Brands: []*providers.Brand{brand}})

	payload, err := svc.BrandData(context.Background(), "acme", Query{
		Period:  periods.KindWeek,
		Compare: periods.ComparisonPreviousPeriod,
	})
	require.NoError(t, err)
	require.NotNil(t, payload.Comparison)

	revenue := findMetric(t, payload.Metrics, "revenue")
	require.True(t, revenue.IsLive)
	require.NotNil(t, revenue.DeltaPercent)
	require.InDelta(t, 20.0, *revenue.DeltaPercent, 0.001)
	require.Equal(t, "up", revenue.Direction)
	require.NotNil(t, revenue.PreviousRaw)
	require.InDelta(t, 100.0, *revenue.PreviousRaw, 0.001)

	// Flat within the dead band.
	aov := findMetric(t, payload.Metrics, "avg_order_value")
	require.Equal(t, "flat", aov.Direction)

	// Sessions were never live in either window; no delta fields appear.
	sessions := findMetric(t, payload.Metrics, "sessions")
	require.False(t, sessions.IsLive)
	require.Nil(t, sessions.DeltaPercent)
	require.Empty(t, sessions.Direction)
}

func TestBrandDataNoComparisonByDefault(t *testing.T) {
	brand := &providers.Brand{
		Key: "acme", Name: "Acme", Currency: "USD",
		Orders: &fakeOrders{stats: &providers.OrderStats{Revenue: 100, Orders: 10}},
	}
	svc := New(Params{Brands: []*providers.Brand{brand}})

	payload, err := svc.BrandData(context.Background(), "acme", Query{Period: periods.KindWeek})
	require.NoError(t, err)
	require.Nil(t, payload.Comparison)

	revenue := findMetric(t, payload.Metrics, "revenue")
	require.True(t, revenue.IsLive)
	require.Nil(t, revenue.DeltaPercent)
	require.Nil(t, revenue.PreviousValue)
}

func TestBrandDataCachesProviderCalls(t *testing.T) {
	orders := &fakeOrders{stats: &providers.OrderStats{Revenue: 100, Orders: 10}}
	brand := &providers.Brand{Key: "acme", Name: "Acme", Currency: "USD", Orders: orders}
	svc := New(Params{Brands: []*providers.Brand{brand}})

	_, err := svc.BrandData(context.Background(), "acme", Query{Period: periods.KindWeek})
	require.NoError(t, err)
	_, err = svc.BrandData(context.Background(), "acme", Query{Period: periods.KindWeek})
	require.NoError(t, err)

	require.Equal(t, int32(1), orders.statCalls.Load())
}

func TestOverviewRollup(t *testing.T) {
	north := &providers.Brand{
		Key: "north", Name: "North", Currency: "USD",
		Orders:  &fakeOrders{stats: &providers.OrderStats{Revenue: 1000, Orders: 20}},
		Traffic: &fakeTraffic{stats: &providers.TrafficStats{Sessions: 400}},
	}
	south := &providers.Brand{
		Key: "south", Name: "South", Currency: "USD",
		// No order source; its revenue cannot be counted.
		Traffic: &fakeTraffic{stats: &providers.TrafficStats{Sessions: 600}},
	}
	svc := New(Params{Brands: []*providers.Brand{north, south}})

	payload, err := svc.Overview(context.Background(), Query{Period: periods.KindWeek})
	require.NoError(t, err)

	revenue := findMetric(t, payload.Totals, "revenue")
	require.True(t, revenue.IsLive)
	require.Equal(t, float64(1000), revenue.RawValue)

	sessions := findMetric(t, payload.Totals, "sessions")
	require.Equal(t, float64(1000), sessions.RawValue)

	// 20 orders over 1000 sessions across the portfolio.
	conversion := findMetric(t, payload.Totals, "conversion_rate")
	require.True(t, conversion.IsLive)
	require.Equal(t, "2.0%", conversion.Value)

	// Ads were live nowhere; the totals stay placeholders.
	require.False(t, findMetric(t, payload.Totals, "ad_spend").IsLive)
	require.False(t, findMetric(t, payload.Totals, "roas").IsLive)

	require.Equal(t, []string{"south"}, payload.MissingRevenue)
	require.Len(t, payload.Brands, 2)
	require.Equal(t, "north", payload.Brands[0].Key)
	require.True(t, payload.Brands[0].Revenue.IsLive)
	require.False(t, payload.Brands[1].Revenue.IsLive)
	require.True(t, payload.Brands[1].Sessions.IsLive)
}

func TestOverviewAllDark(t *testing.T) {
	svc := New(Params{Brands: []*providers.Brand{
		{Key: "north", Name: "North", Currency: "USD"},
		{Key: "south", Name: "South", Currency: "USD"},
	}})

	payload, err := svc.Overview(context.Background(), Query{Period: periods.KindWeek})
	require.NoError(t, err)

	for _, total := range payload.Totals {
		require.False(t, total.IsLive, total.Key)
		require.Equal(t, report.PlaceholderValue, total.Value, total.Key)
	}
	require.ElementsMatch(t, []string{"north", "south"}, payload.MissingRevenue)
}

func TestBrandsListsRosterOrder(t *testing.T) {
	svc := New(Params{Brands: []*providers.Brand{
		{Key: "b", Name: "B", Currency: "USD"},
		{Key: "a", Name: "A", Currency: "GBP"},
	}})

	infos := svc.Brands()
	require.Equal(t, "b", infos[0].Key)
	require.Equal(t, "a", infos[1].Key)
	require.Equal(t, "GBP", infos[1].Currency)
}
