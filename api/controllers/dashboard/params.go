package dashboard

import (
	"net/http"
	"time"

	"github.com/pulseboardhq/pulseboard-backend/api/validators"
	"github.com/pulseboardhq/pulseboard-backend/internal/aggregator"
	"github.com/pulseboardhq/pulseboard-backend/internal/periods"
	pkgerrors "github.com/pulseboardhq/pulseboard-backend/pkg/errors"
)

// queryRequest is the POST body form of the dashboard query. The GET form
// carries the same fields as query parameters.
type queryRequest struct {
	Tab     string `json:"tab" validate:"omitempty,min=1,max=64"`
	Period  string `json:"period" validate:"omitempty,oneof=today week month year custom"`
	Compare string `json:"compare" validate:"omitempty,oneof=none previous_period previous_year"`
	Start   string `json:"start" validate:"omitempty,datetime=2006-01-02"`
	End     string `json:"end" validate:"omitempty,datetime=2006-01-02"`
}

const bodyDateLayout = "2006-01-02"

func queryFromParams(r *http.Request) (aggregator.Query, error) {
	kind, err := periods.ParseKind(r.URL.Query().Get("period"))
	if err != nil {
		return aggregator.Query{}, err
	}
	compare, err := periods.ParseComparisonMode(r.URL.Query().Get("compare"))
	if err != nil {
		return aggregator.Query{}, err
	}
	start, err := validators.ParseQueryDate(r, "start")
	if err != nil {
		return aggregator.Query{}, err
	}
	end, err := validators.ParseQueryDate(r, "end")
	if err != nil {
		return aggregator.Query{}, err
	}
	custom, err := customRange(start, end)
	if err != nil {
		return aggregator.Query{}, err
	}

	return aggregator.Query{Period: kind, Custom: custom, Compare: compare}, nil
}

func (q queryRequest) toQuery() (aggregator.Query, error) {
	kind, err := periods.ParseKind(q.Period)
	if err != nil {
		return aggregator.Query{}, err
	}
	compare, err := periods.ParseComparisonMode(q.Compare)
	if err != nil {
		return aggregator.Query{}, err
	}

	var start, end *time.Time
	if q.Start != "" {
		parsed, err := time.Parse(bodyDateLayout, q.Start)
		if err != nil {
			return aggregator.Query{}, pkgerrors.New(pkgerrors.CodeValidation, "start must be a YYYY-MM-DD date")
		}
		start = &parsed
	}
	if q.End != "" {
		parsed, err := time.Parse(bodyDateLayout, q.End)
		if err != nil {
			return aggregator.Query{}, pkgerrors.New(pkgerrors.CodeValidation, "end must be a YYYY-MM-DD date")
		}
		end = &parsed
	}
	custom, err := customRange(start, end)
	if err != nil {
		return aggregator.Query{}, err
	}

	return aggregator.Query{Period: kind, Custom: custom, Compare: compare}, nil
}

func customRange(start, end *time.Time) (periods.CustomRange, error) {
	if start != nil && end != nil && end.Before(*start) {
		return periods.CustomRange{}, pkgerrors.New(pkgerrors.CodeValidation, "end must not be before start")
	}
	return periods.CustomRange{Start: start, End: end}, nil
}
