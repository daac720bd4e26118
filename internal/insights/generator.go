package insights

import (
	"context"
	"fmt"
	"strings"

	"github.com/pulseboardhq/pulseboard-backend/internal/report"
)

// Generator produces marker-prefixed insight lines for an input. The hosted
// language-model generator satisfies this from outside the module; RuleBased
// is the in-process default.
type Generator interface {
	Generate(ctx context.Context, input Input) (string, error)
}

// Metrics where an upward move is a problem, not a win.
var inverseMetrics = map[string]bool{
	"bounce_rate":        true,
	"churn_rate":         true,
	"cpa":                true,
	"avg_cpc":            true,
	"email_unsubscribed": true,
}

// RuleBased is a deterministic generator built on delta magnitudes. It keeps
// the insights panel useful when no language-model generator is wired in, and
// it exercises the same line format.
type RuleBased struct {
	// StrongMove is the delta percent that turns a move into a win or a
	// concern; moves between WatchMove and StrongMove only warrant a watch.
	StrongMove float64
	WatchMove  float64
}

func NewRuleBased() RuleBased {
	return RuleBased{StrongMove: 10, WatchMove: 5}
}

func (r RuleBased) Generate(_ context.Context, input Input) (string, error) {
	var lines []string

	for _, metric := range input.Metrics {
		if metric.DeltaPercent == nil {
			continue
		}

		move := *metric.DeltaPercent
		magnitude := move
		if magnitude < 0 {
			magnitude = -magnitude
		}
		if magnitude < r.WatchMove {
			continue
		}

		phrase := fmt.Sprintf("%s %s %.1f%% (%s vs %s)", metric.Label, direction(move), magnitude, metric.Value, previousValue(metric))
		improved := move > 0
		if inverseMetrics[metric.Key] {
			improved = !improved
		}

		switch {
		case magnitude < r.StrongMove:
			lines = append(lines, "WATCH: "+phrase)
		case improved:
			lines = append(lines, "WIN: "+phrase)
		default:
			lines = append(lines, "CONCERN: "+phrase)
		}
	}

	for _, metric := range input.Metrics {
		if !metric.IsLive && disconnectOpportunities[metric.Key] {
			lines = append(lines, fmt.Sprintf("OPPORTUNITY: %s has no connected data source for %s.", metric.Label, input.Scope))
		}
	}

	return strings.Join(lines, "\n"), nil
}

// Placeholder metrics worth calling out as missing integrations. Derived
// metrics are excluded; they go dark whenever an ingredient does.
var disconnectOpportunities = map[string]bool{
	"revenue":        true,
	"sessions":       true,
	"ad_spend":       true,
	"email_contacts": true,
}

func direction(move float64) string {
	if move < 0 {
		return "down"
	}
	return "up"
}

func previousValue(metric report.MetricWithDelta) string {
	if metric.PreviousValue != nil {
		return *metric.PreviousValue
	}
	return "n/a"
}
