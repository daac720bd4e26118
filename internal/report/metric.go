package report

// MetricStatus tells the UI whether a figure is real or a placeholder.
type MetricStatus string

const (
	StatusLive         MetricStatus = "live"
	StatusNotConnected MetricStatus = "not_connected"
)

// PlaceholderValue is rendered wherever a backing provider was absent, slow,
// or erroring. Metrics are never omitted or zero-filled: omission would
// misrepresent coverage and a zero would misrepresent performance.
const PlaceholderValue = "Not connected"

// Metric is a single normalized dashboard figure.
type Metric struct {
	Key      string       `json:"key"`
	Label    string       `json:"label"`
	Value    string       `json:"value"`
	RawValue float64      `json:"raw_value"`
	Status   MetricStatus `json:"status"`
	IsLive   bool         `json:"is_live"`
	Color    string       `json:"color,omitempty"`
}

// Formatter renders a raw numeric value for display.
type Formatter func(float64) string

// NewMetric builds a display metric from a sample. Unavailable samples come
// out as explicit placeholders.
func NewMetric(key, label string, sample Sample, format Formatter) Metric {
	if !sample.OK() {
		return Metric{
			Key:    key,
			Label:  label,
			Value:  PlaceholderValue,
			Status: StatusNotConnected,
		}
	}
	return Metric{
		Key:      key,
		Label:    label,
		Value:    format(sample.Value()),
		RawValue: sample.Value(),
		Status:   StatusLive,
		IsLive:   true,
	}
}

// MetricWithDelta augments a metric with its previous-period counterpart.
// Delta fields are present iff both current and previous raw values were
// obtainable; a missing previous value suppresses the delta instead of
// fabricating a swing against zero.
type MetricWithDelta struct {
	Metric
	PreviousValue *string  `json:"previous_value,omitempty"`
	PreviousRaw   *float64 `json:"previous_raw,omitempty"`
	DeltaPercent  *float64 `json:"delta_percent,omitempty"`
	DeltaAbsolute *float64 `json:"delta_absolute,omitempty"`
	Direction     string   `json:"direction,omitempty"`
}

// WithDelta pairs a current metric with its previous-period counterpart.
// When either side is not live the metric passes through unchanged.
func WithDelta(current, previous Metric) MetricWithDelta {
	out := MetricWithDelta{Metric: current}
	if !current.IsLive || !previous.IsLive {
		return out
	}

	delta := CalculateDelta(current.RawValue, previous.RawValue)
	prevValue := previous.Value
	prevRaw := previous.RawValue
	out.PreviousValue = &prevValue
	out.PreviousRaw = &prevRaw
	out.DeltaPercent = &delta.Percent
	out.DeltaAbsolute = &delta.Absolute
	out.Direction = string(delta.Direction)
	return out
}
