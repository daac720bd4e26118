// Package dashboard exposes the aggregated analytics endpoints: the tab
// roster, the overview rollup, per-brand payloads, and generated insights.
package dashboard

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pulseboardhq/pulseboard-backend/api/responses"
	"github.com/pulseboardhq/pulseboard-backend/api/validators"
	"github.com/pulseboardhq/pulseboard-backend/internal/aggregator"
	"github.com/pulseboardhq/pulseboard-backend/internal/insights"
	"github.com/pulseboardhq/pulseboard-backend/internal/periods"
	pkgerrors "github.com/pulseboardhq/pulseboard-backend/pkg/errors"
	"github.com/pulseboardhq/pulseboard-backend/pkg/logger"
)

// OverviewTab is the reserved tab key for the cross-brand rollup; brand keys
// are forbidden from colliding with it.
const OverviewTab = "overview"

// Service is the aggregation surface the handlers consume.
type Service interface {
	Brands() []aggregator.BrandInfo
	Overview(ctx context.Context, q aggregator.Query) (*aggregator.OverviewPayload, error)
	BrandData(ctx context.Context, brandKey string, q aggregator.Query) (*aggregator.BrandPayload, error)
}

// Insighter generates typed findings for a metric set.
type Insighter interface {
	Insights(ctx context.Context, input insights.Input) ([]insights.Insight, error)
}

type tabInfo struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// Tabs lists the dashboard tabs: the overview first, then every brand in
// roster order.
func Tabs(service Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tabs := []tabInfo{{Key: OverviewTab, Name: "Overview"}}
		for _, brand := range service.Brands() {
			tabs = append(tabs, tabInfo{Key: brand.Key, Name: brand.Name})
		}
		responses.WriteSuccess(w, map[string]any{"tabs": tabs})
	}
}

// Overview serves the cross-brand rollup.
func Overview(service Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		query, err := queryFromParams(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		payload, err := service.Overview(ctx, query)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, payload)
	}
}

// Brand serves one brand tab.
func Brand(service Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		query, err := queryFromParams(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		payload, err := service.BrandData(ctx, chi.URLParam(r, "brandKey"), query)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, payload)
	}
}

// Query is the POST form: the same selectors in a validated JSON body, with
// the target tab included. UI clients batch their state into one request
// body instead of assembling query strings.
func Query(service Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var body queryRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		query, err := body.toQuery()
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		tab := body.Tab
		if tab == "" || tab == OverviewTab {
			payload, err := service.Overview(ctx, query)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			responses.WriteSuccess(w, payload)
			return
		}

		payload, err := service.BrandData(ctx, tab, query)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, payload)
	}
}

// Insights serves generated findings for one tab. Without an explicit
// comparison mode the previous period is used; findings are mostly about
// movement, and movement needs a baseline.
func Insights(service Service, insighter Insighter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		query, err := queryFromParams(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if query.Compare == periods.ComparisonNone {
			query.Compare = periods.ComparisonPreviousPeriod
		}

		tab := chi.URLParam(r, "tab")
		if logg != nil {
			ctx = logg.WithTab(ctx, tab)
		}

		input, err := insightInput(ctx, service, tab, query)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		findings, err := insighter.Insights(ctx, *input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"tab":      tab,
			"window":   input.Window,
			"insights": findings,
		})
	}
}

func insightInput(ctx context.Context, service Service, tab string, query aggregator.Query) (*insights.Input, error) {
	if tab == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tab is required")
	}

	if tab == OverviewTab {
		payload, err := service.Overview(ctx, query)
		if err != nil {
			return nil, err
		}
		return &insights.Input{
			Scope:       OverviewTab,
			Window:      payload.Window,
			Comparison:  payload.Comparison,
			GeneratedAt: payload.GeneratedAt,
			Metrics:     payload.Totals,
		}, nil
	}

	payload, err := service.BrandData(ctx, tab, query)
	if err != nil {
		return nil, err
	}
	return &insights.Input{
		Scope:       payload.Brand.Key,
		Window:      payload.Window,
		Comparison:  payload.Comparison,
		GeneratedAt: payload.GeneratedAt,
		Metrics:     payload.Metrics,
	}, nil
}
