package aggregator

import (
	"github.com/pulseboardhq/pulseboard-backend/internal/providers"
	"github.com/pulseboardhq/pulseboard-backend/internal/report"
)

// buildBrandMetrics normalizes a snapshot into the fixed brand metric set.
// Every key is always present; a metric whose backing call produced nothing
// renders as a placeholder rather than being dropped or zero-filled. Ratios
// are derived here from totals, the single place cross-provider division
// happens.
func buildBrandMetrics(snap *snapshot, currency string) []report.Metric {
	money := report.CurrencyFormatter(currency)

	var revenue, orderCount, aov report.Sample
	if snap.orders != nil {
		revenue = report.Live(snap.orders.Revenue)
		orderCount = report.Live(float64(snap.orders.Orders))
		aov = report.Live(snap.orders.AvgOrderValue)
	}

	var sessions, users, newUsers, bounceRate, avgSession, pageViews report.Sample
	if snap.traffic != nil {
		sessions = report.Live(float64(snap.traffic.Sessions))
		users = report.Live(float64(snap.traffic.TotalUsers))
		newUsers = report.Live(float64(snap.traffic.NewUsers))
		bounceRate = report.Live(snap.traffic.BounceRate)
		avgSession = report.Live(snap.traffic.AvgSessionDuration)
		pageViews = report.Live(float64(snap.traffic.PageViews))
	}

	var spend, impressions, clicks, conversions, convValue report.Sample
	if snap.ads != nil {
		spend = report.Live(snap.ads.Spend)
		impressions = report.Live(float64(snap.ads.Impressions))
		clicks = report.Live(float64(snap.ads.Clicks))
		conversions = report.Live(float64(snap.ads.Conversions))
		convValue = report.Live(snap.ads.ConversionValue)
	}

	var activeSubs, mrr report.Sample
	if snap.subs != nil {
		activeSubs = report.Live(float64(snap.subs.ActiveSubscribers))
		mrr = report.Live(snap.subs.MRR)
	}
	var churnRate report.Sample
	if snap.churn != nil {
		churnRate = report.Live(snap.churn.ChurnRate)
	}

	var contacts, activeContacts, unsubscribed report.Sample
	if snap.email != nil {
		contacts = report.Live(float64(snap.email.TotalContacts))
		activeContacts = report.Live(float64(snap.email.ActiveContacts))
		unsubscribed = report.Live(float64(snap.email.UnsubscribedContacts))
	}

	conversionRate := report.Ratio(orderCount, sessions).Scale(100)
	ctr := report.Ratio(clicks, impressions).Scale(100)
	avgCPC := report.Ratio(spend, clicks)
	cpa := report.Ratio(spend, conversions)
	roas := report.Ratio(convValue, spend)

	return []report.Metric{
		report.NewMetric("revenue", "Revenue", revenue, money),
		report.NewMetric("orders", "Orders", orderCount, report.FormatCount),
		report.NewMetric("avg_order_value", "Avg Order Value", aov, money),
		report.NewMetric("sessions", "Sessions", sessions, report.FormatCount),
		report.NewMetric("users", "Users", users, report.FormatCount),
		report.NewMetric("new_users", "New Users", newUsers, report.FormatCount),
		report.NewMetric("bounce_rate", "Bounce Rate", bounceRate, report.FormatPercent),
		report.NewMetric("avg_session_duration", "Avg Session", avgSession, report.FormatDuration),
		report.NewMetric("page_views", "Page Views", pageViews, report.FormatCount),
		report.NewMetric("conversion_rate", "Conversion Rate", conversionRate, report.FormatPercent),
		report.NewMetric("ad_spend", "Ad Spend", spend, money),
		report.NewMetric("impressions", "Impressions", impressions, report.FormatCount),
		report.NewMetric("clicks", "Clicks", clicks, report.FormatCount),
		report.NewMetric("ctr", "CTR", ctr, report.FormatPercent),
		report.NewMetric("avg_cpc", "Avg CPC", avgCPC, money),
		report.NewMetric("cpa", "CPA", cpa, money),
		report.NewMetric("roas", "ROAS", roas, report.FormatRatio),
		report.NewMetric("active_subscribers", "Active Subscribers", activeSubs, report.FormatCount),
		report.NewMetric("mrr", "MRR", mrr, money),
		report.NewMetric("churn_rate", "Churn Rate", churnRate, report.FormatPercent),
		report.NewMetric("email_contacts", "Email Contacts", contacts, report.FormatCount),
		report.NewMetric("email_active", "Active Contacts", activeContacts, report.FormatCount),
		report.NewMetric("email_unsubscribed", "Unsubscribed", unsubscribed, report.FormatCount),
	}
}

// buildOverviewTotals sums per-brand samples into portfolio totals. A brand
// with no live data for a metric is skipped rather than counted as zero;
// totals go unavailable only when no brand produced that metric at all.
func buildOverviewTotals(snaps []*snapshot, currency string) []report.Metric {
	money := report.CurrencyFormatter(currency)

	revenue := report.Unavailable()
	orderCount := report.Unavailable()
	sessions := report.Unavailable()
	spend := report.Unavailable()
	convValue := report.Unavailable()

	for _, snap := range snaps {
		if snap.orders != nil {
			revenue = accumulate(revenue, snap.orders.Revenue)
			orderCount = accumulate(orderCount, float64(snap.orders.Orders))
		}
		if snap.traffic != nil {
			sessions = accumulate(sessions, float64(snap.traffic.Sessions))
		}
		if snap.ads != nil {
			spend = accumulate(spend, snap.ads.Spend)
			convValue = accumulate(convValue, snap.ads.ConversionValue)
		}
	}

	aov := report.Ratio(revenue, orderCount)
	conversionRate := report.Ratio(orderCount, sessions).Scale(100)
	roas := report.Ratio(convValue, spend)

	return []report.Metric{
		report.NewMetric("revenue", "Total Revenue", revenue, money),
		report.NewMetric("orders", "Total Orders", orderCount, report.FormatCount),
		report.NewMetric("avg_order_value", "Avg Order Value", aov, money),
		report.NewMetric("sessions", "Total Sessions", sessions, report.FormatCount),
		report.NewMetric("conversion_rate", "Conversion Rate", conversionRate, report.FormatPercent),
		report.NewMetric("ad_spend", "Ad Spend", spend, money),
		report.NewMetric("roas", "ROAS", roas, report.FormatRatio),
	}
}

// accumulate folds one live value into a running total that may still be
// unavailable.
func accumulate(total report.Sample, value float64) report.Sample {
	if !total.OK() {
		return report.Live(value)
	}
	return report.Live(total.Value() + value)
}

// summarizeBrand builds the overview row for one brand.
func summarizeBrand(brand *providers.Brand, snap *snapshot) BrandSummary {
	money := report.CurrencyFormatter(brand.Currency)

	var revenue, orderCount, sessions report.Sample
	if snap.orders != nil {
		revenue = report.Live(snap.orders.Revenue)
		orderCount = report.Live(float64(snap.orders.Orders))
	}
	if snap.traffic != nil {
		sessions = report.Live(float64(snap.traffic.Sessions))
	}

	return BrandSummary{
		BrandInfo: BrandInfo{Key: brand.Key, Name: brand.Name, Currency: brand.Currency},
		Revenue:   report.NewMetric("revenue", "Revenue", revenue, money),
		Orders:    report.NewMetric("orders", "Orders", orderCount, report.FormatCount),
		Sessions:  report.NewMetric("sessions", "Sessions", sessions, report.FormatCount),
	}
}

// zipDeltas pairs current metrics with their previous-window counterparts by
// key. A nil previous slice passes every metric through without delta fields.
func zipDeltas(current, previous []report.Metric) []report.MetricWithDelta {
	prevByKey := make(map[string]report.Metric, len(previous))
	for _, m := range previous {
		prevByKey[m.Key] = m
	}

	out := make([]report.MetricWithDelta, 0, len(current))
	for _, m := range current {
		if prev, ok := prevByKey[m.Key]; ok {
			out = append(out, report.WithDelta(m, prev))
		} else {
			out = append(out, report.MetricWithDelta{Metric: m})
		}
	}
	return out
}
