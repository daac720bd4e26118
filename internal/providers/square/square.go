// Package square adapts the Square Orders API to the dashboard's order
// provider contract.
package square

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	sq "github.com/square/square-go-sdk"
	sqclient "github.com/square/square-go-sdk/client"
	sqoption "github.com/square/square-go-sdk/option"

	"github.com/pulseboardhq/pulseboard-backend/internal/periods"
	"github.com/pulseboardhq/pulseboard-backend/internal/providers"
	"github.com/pulseboardhq/pulseboard-backend/pkg/config"
)

const (
	sandboxEnv    = "sandbox"
	productionEnv = "production"

	searchPageSize = 200
	maxSearchPages = 25

	dateLayout        = "2006-01-02"
	churnLookbackDays = 30
)

var baseURLs = map[string]string{
	sandboxEnv:    "https://connect.squareupsandbox.com",
	productionEnv: "https://connect.squareup.com",
}

var (
	errAccessTokenRequired = errors.New("square access token is required")
	errLocationRequired    = errors.New("square location ids are required")
	errInvalidEnv          = fmt.Errorf("square environment must be %q or %q", sandboxEnv, productionEnv)
)

// Adapter implements providers.OrderProvider on top of the Square SDK.
type Adapter struct {
	sdk         *sqclient.Client
	locationIDs []string
}

// New validates the credentials and builds the adapter.
func New(creds config.SquareCredentials) (*Adapter, error) {
	token := strings.TrimSpace(creds.AccessToken)
	if token == "" {
		return nil, errAccessTokenRequired
	}
	if len(creds.LocationIDs) == 0 {
		return nil, errLocationRequired
	}

	env := strings.ToLower(strings.TrimSpace(creds.Environment))
	if env == "" {
		env = productionEnv
	}
	baseURL, ok := baseURLs[env]
	if !ok {
		return nil, errInvalidEnv
	}

	sdk := sqclient.NewClient(
		sqoption.WithBaseURL(baseURL),
		sqoption.WithToken(token),
	)
	return &Adapter{sdk: sdk, locationIDs: creds.LocationIDs}, nil
}

// GetOrderStats sums completed orders inside the window. Revenue sums across
// every page of results before any ratio is taken.
func (a *Adapter) GetOrderStats(ctx context.Context, window periods.Window) (*providers.OrderStats, error) {
	orders, err := a.searchOrders(ctx, window)
	if err != nil {
		return nil, err
	}

	stats := &providers.OrderStats{}
	var revenueCents int64
	for _, order := range orders {
		stats.Orders++
		revenueCents += orderTotalCents(order)
	}
	stats.Revenue = float64(revenueCents) / 100
	if stats.Orders > 0 {
		stats.AvgOrderValue = stats.Revenue / float64(stats.Orders)
	}
	return stats, nil
}

// GetTopProducts ranks line items by revenue inside the window.
func (a *Adapter) GetTopProducts(ctx context.Context, window periods.Window, limit int) ([]providers.TopProduct, error) {
	orders, err := a.searchOrders(ctx, window)
	if err != nil {
		return nil, err
	}

	type rollup struct {
		revenueCents int64
		units        int
	}
	byName := map[string]*rollup{}
	for _, order := range orders {
		for _, item := range order.GetLineItems() {
			name := stringValue(item.GetName())
			if name == "" {
				continue
			}
			r := byName[name]
			if r == nil {
				r = &rollup{}
				byName[name] = r
			}
			r.revenueCents += moneyCents(item.GetTotalMoney())
			r.units += parseQuantity(item.GetQuantity())
		}
	}

	products := make([]providers.TopProduct, 0, len(byName))
	for name, r := range byName {
		products = append(products, providers.TopProduct{
			Name:    name,
			Revenue: float64(r.revenueCents) / 100,
			Units:   r.units,
		})
	}
	sort.Slice(products, func(i, j int) bool {
		if products[i].Revenue != products[j].Revenue {
			return products[i].Revenue > products[j].Revenue
		}
		return products[i].Name < products[j].Name
	})
	if limit > 0 && len(products) > limit {
		products = products[:limit]
	}
	return products, nil
}

// monthlyFactor normalizes a billing cadence to whole months for MRR. An
// unlisted cadence counts as monthly.
var monthlyFactor = map[sq.SubscriptionCadence]float64{
	sq.SubscriptionCadenceDaily:          30,
	sq.SubscriptionCadenceWeekly:         52.0 / 12,
	sq.SubscriptionCadenceEveryTwoWeeks:  26.0 / 12,
	sq.SubscriptionCadenceThirtyDays:     1,
	sq.SubscriptionCadenceSixtyDays:      1.0 / 2,
	sq.SubscriptionCadenceNinetyDays:     1.0 / 3,
	sq.SubscriptionCadenceMonthly:        1,
	sq.SubscriptionCadenceEveryTwoMonths: 1.0 / 2,
	sq.SubscriptionCadenceQuarterly:      1.0 / 3,
	sq.SubscriptionCadenceEverySixMonths: 1.0 / 6,
	sq.SubscriptionCadenceAnnual:         1.0 / 12,
}

// planPricing is a subscription plan variation's recurring charge, read from
// the catalog.
type planPricing struct {
	cents   int64
	cadence sq.SubscriptionCadence
}

// GetSubscriptionStats counts active subscriptions and derives MRR from each
// subscription's recurring charge normalized to a month. A (nil, nil) return
// means the account has no subscriptions at all.
func (a *Adapter) GetSubscriptionStats(ctx context.Context) (*providers.SubscriptionStats, error) {
	subs, err := a.searchSubscriptions(ctx)
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, nil
	}
	pricing, err := a.planPricing(ctx, subs)
	if err != nil {
		return nil, err
	}
	return deriveSubscriptionStats(subs, pricing), nil
}

// GetChurnData reports cancellations over the trailing thirty days against
// the subscriber base at the start of that window.
func (a *Adapter) GetChurnData(ctx context.Context) (*providers.ChurnStats, error) {
	subs, err := a.searchSubscriptions(ctx)
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, nil
	}
	return deriveChurnStats(subs, time.Now().UTC()), nil
}

func (a *Adapter) searchSubscriptions(ctx context.Context) ([]*sq.Subscription, error) {
	var (
		subs   []*sq.Subscription
		cursor *string
	)

	query := &sq.SearchSubscriptionsQuery{
		Filter: &sq.SearchSubscriptionsFilter{LocationIDs: a.locationIDs},
	}
	for page := 0; page < maxSearchPages; page++ {
		resp, err := a.sdk.Subscriptions.Search(ctx, &sq.SearchSubscriptionsRequest{
			Query:  query,
			Limit:  ptrInt(searchPageSize),
			Cursor: cursor,
		})
		if err != nil {
			return nil, fmt.Errorf("square subscription search: %w", err)
		}
		subs = append(subs, resp.GetSubscriptions()...)

		cursor = resp.GetCursor()
		if cursor == nil || *cursor == "" {
			break
		}
	}
	return subs, nil
}

// planPricing resolves the recurring charge of every plan variation the
// subscriptions reference. The first phase carrying a price wins; later
// phases describe upgrades the dashboard does not model.
func (a *Adapter) planPricing(ctx context.Context, subs []*sq.Subscription) (map[string]planPricing, error) {
	seen := map[string]bool{}
	ids := make([]string, 0, len(subs))
	for _, sub := range subs {
		id := stringValue(sub.GetPlanVariationID())
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}

	pricing := make(map[string]planPricing, len(ids))
	if len(ids) == 0 {
		return pricing, nil
	}

	resp, err := a.sdk.Catalog.BatchGet(ctx, &sq.BatchGetCatalogObjectsRequest{ObjectIDs: ids})
	if err != nil {
		return nil, fmt.Errorf("square catalog lookup: %w", err)
	}
	for _, obj := range resp.GetObjects() {
		variation := obj.GetSubscriptionPlanVariation()
		if variation == nil {
			continue
		}
		data := variation.GetSubscriptionPlanVariationData()
		if data == nil {
			continue
		}
		for _, phase := range data.GetPhases() {
			money := phase.GetRecurringPriceMoney()
			if money == nil {
				continue
			}
			pricing[variation.GetID()] = planPricing{
				cents:   moneyCents(money),
				cadence: phase.GetCadence(),
			}
			break
		}
	}
	return pricing, nil
}

func deriveSubscriptionStats(subs []*sq.Subscription, pricing map[string]planPricing) *providers.SubscriptionStats {
	stats := &providers.SubscriptionStats{}
	for _, sub := range subs {
		if subscriptionStatus(sub) != sq.SubscriptionStatusActive {
			continue
		}
		stats.ActiveSubscribers++

		plan := pricing[stringValue(sub.GetPlanVariationID())]
		cents := plan.cents
		if override := sub.GetPriceOverrideMoney(); override != nil {
			cents = moneyCents(override)
		}
		factor, ok := monthlyFactor[plan.cadence]
		if !ok {
			factor = 1
		}
		stats.MRR += float64(cents) / 100 * factor
	}
	return stats
}

func deriveChurnStats(subs []*sq.Subscription, now time.Time) *providers.ChurnStats {
	cutoff := now.AddDate(0, 0, -churnLookbackDays)

	stats := &providers.ChurnStats{}
	active := 0
	for _, sub := range subs {
		switch subscriptionStatus(sub) {
		case sq.SubscriptionStatusActive:
			active++
		case sq.SubscriptionStatusCanceled, sq.SubscriptionStatusDeactivated:
			when, err := time.Parse(dateLayout, stringValue(sub.GetCanceledDate()))
			if err != nil {
				continue
			}
			if !when.Before(cutoff) {
				stats.CancelledThisMonth++
			}
		}
	}
	stats.ActiveStart = active + stats.CancelledThisMonth
	if stats.ActiveStart > 0 {
		stats.ChurnRate = float64(stats.CancelledThisMonth) / float64(stats.ActiveStart) * 100
	}
	return stats
}

func subscriptionStatus(sub *sq.Subscription) sq.SubscriptionStatus {
	if sub == nil {
		return ""
	}
	if status := sub.GetStatus(); status != nil {
		return *status
	}
	return ""
}

func (a *Adapter) searchOrders(ctx context.Context, window periods.Window) ([]*sq.Order, error) {
	var (
		orders []*sq.Order
		cursor *string
	)

	query := &sq.SearchOrdersQuery{
		Filter: &sq.SearchOrdersFilter{
			StateFilter: &sq.SearchOrdersStateFilter{
				States: []sq.OrderState{sq.OrderStateCompleted},
			},
			DateTimeFilter: &sq.SearchOrdersDateTimeFilter{
				CreatedAt: &sq.TimeRange{
					StartAt: ptrString(window.Start.Format(time.RFC3339)),
					EndAt:   ptrString(window.End.Format(time.RFC3339)),
				},
			},
		},
	}

	for page := 0; page < maxSearchPages; page++ {
		req := &sq.SearchOrdersRequest{
			LocationIDs: a.locationIDs,
			Query:       query,
			Limit:       ptrInt(searchPageSize),
			Cursor:      cursor,
		}
		resp, err := a.sdk.Orders.Search(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("square order search: %w", err)
		}
		orders = append(orders, resp.GetOrders()...)

		cursor = resp.GetCursor()
		if cursor == nil || *cursor == "" {
			break
		}
	}
	return orders, nil
}

func orderTotalCents(order *sq.Order) int64 {
	if order == nil {
		return 0
	}
	return moneyCents(order.GetTotalMoney())
}

func moneyCents(money *sq.Money) int64 {
	if money == nil {
		return 0
	}
	if amount := money.GetAmount(); amount != nil {
		return *amount
	}
	return 0
}

func parseQuantity(raw string) int {
	// Square quantities are decimal strings; fractional units count as one.
	qty, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	if qty > 0 && qty < 1 {
		return 1
	}
	return int(qty)
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func ptrString(s string) *string { return &s }
func ptrInt(i int) *int          { return &i }
