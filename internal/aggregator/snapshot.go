package aggregator

import (
	"context"
	"fmt"

	"github.com/pulseboardhq/pulseboard-backend/internal/fetch"
	"github.com/pulseboardhq/pulseboard-backend/internal/periods"
	"github.com/pulseboardhq/pulseboard-backend/internal/providers"
)

// Fan-out task keys. Each key is one provider call; a brand with every
// provider configured runs all eight concurrently.
const (
	callOrderStats    = "order_stats"
	callTopProducts   = "top_products"
	callSubscriptions = "subscriptions"
	callChurn         = "churn"
	callTrafficStats  = "traffic_stats"
	callChannels      = "channels"
	callAdsSummary    = "ads_summary"
	callEmailList     = "email_list"
)

const topProductsLimit = 5

// snapshot is the raw harvest for one brand and one window. A nil pointer or
// nil slice means the backing call produced no live data, whether because the
// provider was never configured, errored, timed out, or does not offer the
// capability.
type snapshot struct {
	orders      *providers.OrderStats
	topProducts []providers.TopProduct
	subs        *providers.SubscriptionStats
	churn       *providers.ChurnStats
	traffic     *providers.TrafficStats
	channels    []providers.ChannelTraffic
	ads         *providers.AdAccountSummary
	email       *providers.EmailListStats
}

func (s *snapshot) sources() map[string]bool {
	return map[string]bool{
		providers.ClassOrders:  s.orders != nil,
		providers.ClassTraffic: s.traffic != nil,
		providers.ClassAds:     s.ads != nil,
		providers.ClassEmail:   s.email != nil,
	}
}

func windowKey(w periods.Window) string {
	return w.Start.Format("20060102") + "-" + w.End.Format("20060102")
}

// snapshotBrand fans out every configured provider call for the brand,
// each guarded by its class deadline and read through the dashboard cache.
// It never fails: a broken call leaves its field nil and the rest intact.
func (s *Service) snapshotBrand(ctx context.Context, brand *providers.Brand, window periods.Window) *snapshot {
	wk := windowKey(window)
	key := func(call string, windowed bool) string {
		if windowed {
			return fmt.Sprintf("brand:%s:%s:%s", brand.Key, call, wk)
		}
		return fmt.Sprintf("brand:%s:%s", brand.Key, call)
	}

	var tasks []fetch.Task[any]
	if brand.Orders != nil {
		tasks = append(tasks,
			s.task(callOrderStats, providers.ClassOrders, s.timeouts.Orders, key(callOrderStats, true), s.ttls.Orders,
				func(ctx context.Context) (any, error) { return brand.Orders.GetOrderStats(ctx, window) }),
			s.task(callTopProducts, providers.ClassOrders, s.timeouts.Orders, key(callTopProducts, true), s.ttls.Orders,
				func(ctx context.Context) (any, error) {
					return brand.Orders.GetTopProducts(ctx, window, topProductsLimit)
				}),
			s.task(callSubscriptions, providers.ClassOrders, s.timeouts.Orders, key(callSubscriptions, false), s.ttls.Orders,
				func(ctx context.Context) (any, error) { return brand.Orders.GetSubscriptionStats(ctx) }),
			s.task(callChurn, providers.ClassOrders, s.timeouts.Orders, key(callChurn, false), s.ttls.Orders,
				func(ctx context.Context) (any, error) { return brand.Orders.GetChurnData(ctx) }),
		)
	}
	if brand.Traffic != nil {
		tasks = append(tasks,
			s.task(callTrafficStats, providers.ClassTraffic, s.timeouts.Traffic, key(callTrafficStats, true), s.ttls.Traffic,
				func(ctx context.Context) (any, error) { return brand.Traffic.GetTrafficStats(ctx, window) }),
			s.task(callChannels, providers.ClassTraffic, s.timeouts.Traffic, key(callChannels, true), s.ttls.Traffic,
				func(ctx context.Context) (any, error) { return brand.Traffic.GetTrafficByChannel(ctx, window) }),
		)
	}
	if brand.Ads != nil {
		tasks = append(tasks,
			s.task(callAdsSummary, providers.ClassAds, s.timeouts.Ads, key(callAdsSummary, true), s.ttls.Ads,
				func(ctx context.Context) (any, error) { return brand.Ads.GetAccountSummary(ctx, window) }),
		)
	}
	if brand.Email != nil {
		tasks = append(tasks,
			s.task(callEmailList, providers.ClassEmail, s.timeouts.Email, key(callEmailList, false), s.ttls.Email,
				func(ctx context.Context) (any, error) { return brand.Email.GetListStats(ctx) }),
		)
	}

	results := fetch.All(ctx, s.defaultTimeout(), tasks)
	s.recordOutcomes(ctx, brand.Key, results)

	snap := &snapshot{}
	snap.orders = valueAs[*providers.OrderStats](results, callOrderStats)
	snap.topProducts = valueAs[[]providers.TopProduct](results, callTopProducts)
	snap.subs = valueAs[*providers.SubscriptionStats](results, callSubscriptions)
	snap.churn = valueAs[*providers.ChurnStats](results, callChurn)
	snap.traffic = valueAs[*providers.TrafficStats](results, callTrafficStats)
	snap.channels = valueAs[[]providers.ChannelTraffic](results, callChannels)
	snap.ads = valueAs[*providers.AdAccountSummary](results, callAdsSummary)
	snap.email = valueAs[*providers.EmailListStats](results, callEmailList)
	return snap
}

// valueAs extracts a live typed value from the fan-out results. Anything not
// present, not live, or of an unexpected shape comes back as the zero value.
func valueAs[T any](results map[string]fetch.Result[any], key string) T {
	var zero T
	result, ok := results[key]
	if !ok || !result.Status.Live() || result.Value == nil {
		return zero
	}
	value, ok := result.Value.(T)
	if !ok {
		return zero
	}
	return value
}
