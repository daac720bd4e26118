package report

import (
	"strconv"
	"strings"
)

// Direction classifies a period-over-period move.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
	DirectionFlat Direction = "flat"
)

// Delta is the outcome of comparing a metric across two windows.
type Delta struct {
	Percent   float64   `json:"percent"`
	Absolute  float64   `json:"absolute"`
	Direction Direction `json:"direction"`
}

// deadBandPercent is the noise threshold: moves within ±0.5% read as flat.
const deadBandPercent = 0.5

// CalculateDelta compares current against previous. previous == 0 is defined
// as +100% when current is positive and 0%/flat otherwise; going from zero to
// any activity reads as "+100%", not an undefined division.
func CalculateDelta(current, previous float64) Delta {
	if previous == 0 {
		if current > 0 {
			return Delta{Percent: 100, Absolute: current, Direction: DirectionUp}
		}
		return Delta{Percent: 0, Absolute: current, Direction: DirectionFlat}
	}

	percent := (current - previous) / previous * 100
	d := Delta{Percent: percent, Absolute: current - previous}
	switch {
	case percent > deadBandPercent:
		d.Direction = DirectionUp
	case percent < -deadBandPercent:
		d.Direction = DirectionDown
	default:
		d.Direction = DirectionFlat
	}
	return d
}

// ParseMetricValue inverse-formats a rendered metric string back to a number:
// currency symbols, thousands separators, percent signs, and ratio suffixes
// are stripped. Unparseable input degrades to 0 so a malformed display string
// yields a visible flat delta rather than a failed render.
func ParseMetricValue(display string) float64 {
	cleaned := strings.TrimSpace(display)
	if cleaned == "" {
		return 0
	}

	var b strings.Builder
	for _, r := range cleaned {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		}
	}

	value, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0
	}
	return value
}
