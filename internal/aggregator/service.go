// Package aggregator assembles dashboard payloads: it fans provider calls out
// per brand, normalizes the harvest into display metrics, rolls brands up
// into the portfolio overview, and attaches period-over-period deltas. A
// brand or provider that produces nothing degrades to explicit placeholders;
// aggregation itself never fails on provider trouble.
package aggregator

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/pulseboardhq/pulseboard-backend/internal/cache"
	"github.com/pulseboardhq/pulseboard-backend/internal/fetch"
	"github.com/pulseboardhq/pulseboard-backend/internal/periods"
	"github.com/pulseboardhq/pulseboard-backend/internal/providers"
	pkgerrors "github.com/pulseboardhq/pulseboard-backend/pkg/errors"
	"github.com/pulseboardhq/pulseboard-backend/pkg/logger"
	"github.com/pulseboardhq/pulseboard-backend/pkg/metrics"
)

// Query selects the reporting window and the optional comparison window.
type Query struct {
	Period  periods.Kind
	Custom  periods.CustomRange
	Compare periods.ComparisonMode
}

// Params wires a Service. Brands keeps roster order; it drives tab order in
// the payloads.
type Params struct {
	Brands   []*providers.Brand
	Resolver *periods.Resolver
	Cache    *cache.Cache
	TTLs     CacheTTLs
	Timeouts Timeouts
	Calls    *metrics.ProviderCallMetrics
	Logger   *logger.Logger
}

// CacheTTLs carries per-provider-class cache lifetimes.
type CacheTTLs struct {
	Orders  time.Duration
	Traffic time.Duration
	Ads     time.Duration
	Email   time.Duration
}

// Timeouts carries per-provider-class call deadlines.
type Timeouts struct {
	Orders  time.Duration
	Traffic time.Duration
	Ads     time.Duration
	Email   time.Duration
}

type Service struct {
	brands   []*providers.Brand
	byKey    map[string]*providers.Brand
	resolver *periods.Resolver
	cache    *cache.Cache
	ttls     CacheTTLs
	timeouts Timeouts
	calls    *metrics.ProviderCallMetrics
	logg     *logger.Logger
}

func New(p Params) *Service {
	if p.Resolver == nil {
		p.Resolver = periods.NewResolver(time.UTC)
	}
	if p.Cache == nil {
		p.Cache = cache.New(5 * time.Minute)
	}
	if p.Logger == nil {
		p.Logger = logger.New(logger.Options{ServiceName: "aggregator", Level: zerolog.Disabled, Output: io.Discard})
	}

	byKey := make(map[string]*providers.Brand, len(p.Brands))
	for _, brand := range p.Brands {
		byKey[brand.Key] = brand
	}

	return &Service{
		brands:   p.Brands,
		byKey:    byKey,
		resolver: p.Resolver,
		cache:    p.Cache,
		ttls: CacheTTLs{
			Orders:  orDefault(p.TTLs.Orders, 2*time.Minute),
			Traffic: orDefault(p.TTLs.Traffic, 5*time.Minute),
			Ads:     orDefault(p.TTLs.Ads, 10*time.Minute),
			Email:   orDefault(p.TTLs.Email, 15*time.Minute),
		},
		timeouts: Timeouts{
			Orders:  orDefault(p.Timeouts.Orders, 8*time.Second),
			Traffic: orDefault(p.Timeouts.Traffic, 10*time.Second),
			Ads:     orDefault(p.Timeouts.Ads, 12*time.Second),
			Email:   orDefault(p.Timeouts.Email, 8*time.Second),
		},
		calls: p.Calls,
		logg:  p.Logger,
	}
}

func orDefault(value, fallback time.Duration) time.Duration {
	if value > 0 {
		return value
	}
	return fallback
}

func (s *Service) defaultTimeout() time.Duration {
	return s.timeouts.Traffic
}

// Brands lists the roster in configured order, for tab rendering.
func (s *Service) Brands() []BrandInfo {
	infos := make([]BrandInfo, 0, len(s.brands))
	for _, brand := range s.brands {
		infos = append(infos, BrandInfo{Key: brand.Key, Name: brand.Name, Currency: brand.Currency})
	}
	return infos
}

// BrandData builds the payload for one brand tab.
func (s *Service) BrandData(ctx context.Context, brandKey string, q Query) (*BrandPayload, error) {
	brand, ok := s.byKey[brandKey]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "unknown brand").WithDetails(map[string]any{"brand": brandKey})
	}
	ctx = s.logg.WithBrand(ctx, brand.Key)

	window := s.resolver.Resolve(q.Period, q.Custom)
	snap := s.snapshotBrand(ctx, brand, window)
	current := buildBrandMetrics(snap, brand.Currency)

	payload := &BrandPayload{
		Brand:       BrandInfo{Key: brand.Key, Name: brand.Name, Currency: brand.Currency},
		Window:      window,
		GeneratedAt: time.Now().UTC(),
		TopProducts: snap.topProducts,
		Channels:    snap.channels,
		Sources:     snap.sources(),
	}

	if prevWindow, ok := s.resolver.Comparison(window, q.Compare); ok {
		prevSnap := s.snapshotBrand(ctx, brand, prevWindow)
		payload.Comparison = &prevWindow
		payload.Metrics = zipDeltas(current, buildBrandMetrics(prevSnap, brand.Currency))
	} else {
		payload.Metrics = zipDeltas(current, nil)
	}
	return payload, nil
}

// Overview builds the cross-brand rollup. Brand snapshots run concurrently;
// each is already bounded by its per-class deadlines.
func (s *Service) Overview(ctx context.Context, q Query) (*OverviewPayload, error) {
	window := s.resolver.Resolve(q.Period, q.Custom)

	snaps := s.snapshotAll(ctx, window)
	payload := &OverviewPayload{
		Window:      window,
		GeneratedAt: time.Now().UTC(),
	}

	currentTotals := buildOverviewTotals(snaps, s.overviewCurrency())
	if prevWindow, ok := s.resolver.Comparison(window, q.Compare); ok {
		prevSnaps := s.snapshotAll(ctx, prevWindow)
		payload.Comparison = &prevWindow
		payload.Totals = zipDeltas(currentTotals, buildOverviewTotals(prevSnaps, s.overviewCurrency()))
	} else {
		payload.Totals = zipDeltas(currentTotals, nil)
	}

	payload.Brands = make([]BrandSummary, 0, len(s.brands))
	payload.MissingRevenue = []string{}
	for i, brand := range s.brands {
		snap := snaps[i]
		payload.Brands = append(payload.Brands, summarizeBrand(brand, snap))
		if snap.orders == nil {
			payload.MissingRevenue = append(payload.MissingRevenue, brand.Key)
		}
	}
	return payload, nil
}

// snapshotAll harvests every brand for the window, preserving roster order.
func (s *Service) snapshotAll(ctx context.Context, window periods.Window) []*snapshot {
	tasks := make([]fetch.Task[*snapshot], 0, len(s.brands))
	for _, brand := range s.brands {
		tasks = append(tasks, fetch.Task[*snapshot]{
			Key: brand.Key,
			// Generous outer bound; the inner calls carry the real deadlines.
			Timeout: s.timeouts.Ads + s.timeouts.Traffic,
			Run: func(ctx context.Context) (*snapshot, error) {
				return s.snapshotBrand(s.logg.WithBrand(ctx, brand.Key), brand, window), nil
			},
		})
	}
	results := fetch.All(ctx, s.defaultTimeout(), tasks)

	// A brand whose outer guard fired still gets a placeholder snapshot.
	snaps := make([]*snapshot, len(s.brands))
	for i, brand := range s.brands {
		if snap := results[brand.Key].Value; snap != nil {
			snaps[i] = snap
			continue
		}
		snaps[i] = &snapshot{}
	}
	return snaps
}

// overviewCurrency picks the display currency for portfolio money totals.
// The roster's first brand wins; mixed-currency rosters are summed as-is.
func (s *Service) overviewCurrency() string {
	if len(s.brands) > 0 && s.brands[0].Currency != "" {
		return s.brands[0].Currency
	}
	return "USD"
}

// task wraps one provider call with its cache read-through and call metrics.
// Metrics are recorded only when the producer actually runs; cache hits are
// not provider calls.
func (s *Service) task(name, class string, timeout time.Duration, cacheKey string, ttl time.Duration, run func(context.Context) (any, error)) fetch.Task[any] {
	return fetch.Task[any]{
		Key:     name,
		Timeout: timeout,
		Run: func(ctx context.Context) (any, error) {
			return cache.Cached(s.cache, cacheKey, ttl, func() (any, error) {
				started := time.Now()
				value, err := run(ctx)
				s.calls.ObserveDuration(class, time.Since(started))
				if err != nil {
					s.calls.IncFailure(class)
					return nil, err
				}
				s.calls.IncSuccess(class)
				return value, nil
			})
		},
	}
}

var classByCall = map[string]string{
	callOrderStats:    providers.ClassOrders,
	callTopProducts:   providers.ClassOrders,
	callSubscriptions: providers.ClassOrders,
	callChurn:         providers.ClassOrders,
	callTrafficStats:  providers.ClassTraffic,
	callChannels:      providers.ClassTraffic,
	callAdsSummary:    providers.ClassAds,
	callEmailList:     providers.ClassEmail,
}

func (s *Service) recordOutcomes(ctx context.Context, brandKey string, results map[string]fetch.Result[any]) {
	for name, result := range results {
		if result.Status.Live() {
			continue
		}
		callCtx := s.logg.WithFields(ctx, map[string]any{"brand": brandKey, "call": name, "outcome": result.Status.String()})
		if result.Status == fetch.StatusTimedOut {
			s.calls.IncFallback(classByCall[name])
			s.logg.Warn(callCtx, "provider call timed out, serving placeholder")
			continue
		}
		s.logg.Warn(callCtx, "provider call failed, serving placeholder")
	}
}
