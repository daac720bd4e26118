// Package providers defines the adapter contracts for every external data
// source the dashboard reads. Adapters return normalized shapes or an error;
// a nil stats pointer with a nil error means the source does not offer that
// capability. Brands may have any subset of providers configured.
package providers

import (
	"context"

	"github.com/pulseboardhq/pulseboard-backend/internal/periods"
)

// Provider class names used for cache keys, metrics labels, and payload
// source maps.
const (
	ClassOrders  = "orders"
	ClassTraffic = "traffic"
	ClassAds     = "ads"
	ClassEmail   = "email"
)

// OrderStats is the normalized order/revenue snapshot for one window.
type OrderStats struct {
	Revenue       float64 `json:"revenue"`
	Orders        int     `json:"orders"`
	AvgOrderValue float64 `json:"avg_order_value"`
}

type TopProduct struct {
	Name    string  `json:"name"`
	Revenue float64 `json:"revenue"`
	Units   int     `json:"units"`
}

type SubscriptionStats struct {
	ActiveSubscribers int     `json:"active_subscribers"`
	MRR               float64 `json:"mrr"`
}

type ChurnStats struct {
	ChurnRate          float64 `json:"churn_rate"`
	CancelledThisMonth int     `json:"cancelled_this_month"`
	ActiveStart        int     `json:"active_start"`
}

type TrafficStats struct {
	Sessions           int     `json:"sessions"`
	TotalUsers         int     `json:"total_users"`
	NewUsers           int     `json:"new_users"`
	BounceRate         float64 `json:"bounce_rate"`
	AvgSessionDuration float64 `json:"avg_session_duration"`
	PageViews          int     `json:"page_views"`
}

type ChannelTraffic struct {
	Channel     string `json:"channel"`
	Sessions    int    `json:"sessions"`
	Users       int    `json:"users"`
	Conversions int    `json:"conversions"`
}

// AdAccountSummary carries pre-aggregation totals; the ratio fields are
// derived from those totals by the adapter, never averaged across rows.
type AdAccountSummary struct {
	Impressions     int     `json:"impressions"`
	Clicks          int     `json:"clicks"`
	Spend           float64 `json:"spend"`
	Conversions     int     `json:"conversions"`
	ConversionValue float64 `json:"conversion_value"`
	CTR             float64 `json:"ctr"`
	AvgCPC          float64 `json:"avg_cpc"`
	CPA             float64 `json:"cpa"`
	ROAS            float64 `json:"roas"`
}

type EmailListStats struct {
	TotalContacts        int `json:"total_contacts"`
	ActiveContacts       int `json:"active_contacts"`
	UnsubscribedContacts int `json:"unsubscribed_contacts"`
}

// OrderProvider reads order and revenue facts from a storefront backend.
// GetSubscriptionStats and GetChurnData may return (nil, nil) when the
// backend has no subscription commerce.
type OrderProvider interface {
	GetOrderStats(ctx context.Context, window periods.Window) (*OrderStats, error)
	GetTopProducts(ctx context.Context, window periods.Window, limit int) ([]TopProduct, error)
	GetSubscriptionStats(ctx context.Context) (*SubscriptionStats, error)
	GetChurnData(ctx context.Context) (*ChurnStats, error)
}

// TrafficProvider reads web-analytics facts.
type TrafficProvider interface {
	GetTrafficStats(ctx context.Context, window periods.Window) (*TrafficStats, error)
	GetTrafficByChannel(ctx context.Context, window periods.Window) ([]ChannelTraffic, error)
}

// AdsProvider reads paid-media totals for the account bound at construction.
type AdsProvider interface {
	GetAccountSummary(ctx context.Context, window periods.Window) (*AdAccountSummary, error)
}

// EmailProvider reads mailing-list size and health.
type EmailProvider interface {
	GetListStats(ctx context.Context) (*EmailListStats, error)
}

// Brand groups one brand's configured adapters. A nil field means that
// provider was never configured for the brand (required credentials absent);
// aggregation surfaces those metrics as not connected.
type Brand struct {
	Key      string
	Name     string
	Currency string

	Orders  OrderProvider
	Traffic TrafficProvider
	Ads     AdsProvider
	Email   EmailProvider
}
