// Package insights bridges the dashboard and the natural-language insight
// generator. The generator contract is plain text, one finding per line, each
// line prefixed by one of four fixed category markers; this package supplies
// the generator's input and parses the marker format back into typed records.
package insights

import (
	"strings"
	"time"

	"github.com/pulseboardhq/pulseboard-backend/internal/periods"
	"github.com/pulseboardhq/pulseboard-backend/internal/report"
)

// Category classifies one insight line.
type Category string

const (
	CategoryWin         Category = "win"
	CategoryConcern     Category = "concern"
	CategoryOpportunity Category = "opportunity"
	CategoryWatch       Category = "watch"
)

// The four line markers of the generator wire format.
var categoryByMarker = map[string]Category{
	"WIN:":         CategoryWin,
	"CONCERN:":     CategoryConcern,
	"OPPORTUNITY:": CategoryOpportunity,
	"WATCH:":       CategoryWatch,
}

// Insight is one parsed finding.
type Insight struct {
	Category Category `json:"category"`
	Text     string   `json:"text"`
}

// Input is what a generator receives: the scope being narrated plus the
// flattened metric set with deltas attached.
type Input struct {
	Scope       string                   `json:"scope"`
	Window      periods.Window           `json:"window"`
	Comparison  *periods.Window          `json:"comparison,omitempty"`
	GeneratedAt time.Time                `json:"generated_at"`
	Metrics     []report.MetricWithDelta `json:"metrics"`
}

// ParseLines decodes generator output. Lines without a recognized marker are
// dropped: generators ramble, and an unmarked line has no category to file
// under. Marker matching is case-sensitive.
func ParseLines(raw string) []Insight {
	var out []Insight
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for marker, category := range categoryByMarker {
			if strings.HasPrefix(line, marker) {
				text := strings.TrimSpace(strings.TrimPrefix(line, marker))
				if text != "" {
					out = append(out, Insight{Category: category, Text: text})
				}
				break
			}
		}
	}
	return out
}
