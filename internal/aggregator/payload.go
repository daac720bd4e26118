package aggregator

import (
	"time"

	"github.com/pulseboardhq/pulseboard-backend/internal/periods"
	"github.com/pulseboardhq/pulseboard-backend/internal/providers"
	"github.com/pulseboardhq/pulseboard-backend/internal/report"
)

// BrandInfo is the identity block attached to every payload.
type BrandInfo struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
}

// BrandPayload is one brand tab: the full metric set plus the richer blocks
// only available per brand. Sources maps each provider class to whether live
// data backed it on this render.
type BrandPayload struct {
	Brand       BrandInfo                  `json:"brand"`
	Window      periods.Window             `json:"window"`
	Comparison  *periods.Window            `json:"comparison,omitempty"`
	GeneratedAt time.Time                  `json:"generated_at"`
	Metrics     []report.MetricWithDelta   `json:"metrics"`
	TopProducts []providers.TopProduct     `json:"top_products"`
	Channels    []providers.ChannelTraffic `json:"channels"`
	Sources     map[string]bool            `json:"sources"`
}

// BrandSummary is the per-brand row on the overview tab.
type BrandSummary struct {
	BrandInfo
	Revenue  report.Metric `json:"revenue"`
	Orders   report.Metric `json:"orders"`
	Sessions report.Metric `json:"sessions"`
}

// OverviewPayload is the cross-brand rollup. Totals sum only brands that
// produced live data; MissingRevenue names the brands the revenue total could
// not include, so an undercount is always visible to the reader.
type OverviewPayload struct {
	Window         periods.Window           `json:"window"`
	Comparison     *periods.Window          `json:"comparison,omitempty"`
	GeneratedAt    time.Time                `json:"generated_at"`
	Totals         []report.MetricWithDelta `json:"totals"`
	Brands         []BrandSummary           `json:"brands"`
	MissingRevenue []string                 `json:"missing_revenue"`
}
