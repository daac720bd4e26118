package periods

import (
	"strings"
	"time"

	pkgerrors "github.com/pulseboardhq/pulseboard-backend/pkg/errors"
)

// Kind is a logical dashboard period selector.
type Kind string

const (
	KindToday  Kind = "today"
	KindWeek   Kind = "week"
	KindMonth  Kind = "month"
	KindYear   Kind = "year"
	KindCustom Kind = "custom"
)

// ComparisonMode selects how the previous window is derived.
type ComparisonMode string

const (
	ComparisonNone           ComparisonMode = "none"
	ComparisonPreviousPeriod ComparisonMode = "previous_period"
	ComparisonPreviousYear   ComparisonMode = "previous_year"
)

// Window is a concrete [start,end] range used to query providers.
// Start is a local midnight and End a local end-of-day, both in the
// resolver's timezone.
type Window struct {
	Kind  Kind      `json:"kind"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// DurationDays is the inclusive day count of the window.
func (w Window) DurationDays() int {
	return daysInclusive(w.Start, w.End)
}

// CustomRange carries caller-supplied bounds for KindCustom.
type CustomRange struct {
	Start *time.Time
	End   *time.Time
}

func (c CustomRange) complete() bool {
	return c.Start != nil && c.End != nil
}

// ParseKind maps a request string onto a period kind.
func ParseKind(value string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(value))) {
	case KindToday:
		return KindToday, nil
	case KindWeek, "":
		return KindWeek, nil
	case KindMonth:
		return KindMonth, nil
	case KindYear:
		return KindYear, nil
	case KindCustom:
		return KindCustom, nil
	default:
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid period").WithDetails(map[string]any{"period": value})
	}
}

// ParseComparisonMode maps a request string onto a comparison mode.
func ParseComparisonMode(value string) (ComparisonMode, error) {
	switch ComparisonMode(strings.ToLower(strings.TrimSpace(value))) {
	case ComparisonNone, "":
		return ComparisonNone, nil
	case ComparisonPreviousPeriod:
		return ComparisonPreviousPeriod, nil
	case ComparisonPreviousYear:
		return ComparisonPreviousYear, nil
	default:
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid comparison mode").WithDetails(map[string]any{"compare": value})
	}
}

// Resolver turns period selectors into concrete windows. All arithmetic
// happens in a single configured timezone so metric and comparison windows
// can never disagree about where a day starts.
type Resolver struct {
	loc *time.Location
	now func() time.Time
}

func NewResolver(loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	return &Resolver{loc: loc, now: time.Now}
}

// Resolve maps a period kind onto a rolling window ending at end-of-day now.
// A custom range missing either bound falls back to the rolling 30-day
// default, mirroring the non-custom path.
func (r *Resolver) Resolve(kind Kind, custom CustomRange) Window {
	now := r.now().In(r.loc)

	switch kind {
	case KindToday:
		return Window{Kind: kind, Start: startOfDay(now), End: endOfDay(now)}
	case KindWeek:
		return r.rolling(kind, now, 7)
	case KindYear:
		return r.rolling(kind, now, 365)
	case KindCustom:
		if !custom.complete() {
			return r.rolling(KindMonth, now, 30)
		}
		return Window{
			Kind:  kind,
			Start: startOfDay(custom.Start.In(r.loc)),
			End:   endOfDay(custom.End.In(r.loc)),
		}
	default:
		return r.rolling(KindMonth, now, 30)
	}
}

// Comparison derives the previous window for the given mode. The second
// return value is false when no comparison was requested; callers must not
// read that as "comparison unavailable".
func (r *Resolver) Comparison(w Window, mode ComparisonMode) (Window, bool) {
	switch mode {
	case ComparisonPreviousPeriod:
		shift := w.DurationDays()
		return Window{
			Kind:  w.Kind,
			Start: w.Start.AddDate(0, 0, -shift),
			End:   w.End.AddDate(0, 0, -shift),
		}, true
	case ComparisonPreviousYear:
		// Calendar-year subtraction, not 365 days, so leap years do not drift.
		return Window{
			Kind:  w.Kind,
			Start: w.Start.AddDate(-1, 0, 0),
			End:   w.End.AddDate(-1, 0, 0),
		}, true
	default:
		return Window{}, false
	}
}

func (r *Resolver) rolling(kind Kind, now time.Time, days int) Window {
	return Window{
		Kind:  kind,
		Start: startOfDay(now.AddDate(0, 0, -(days - 1))),
		End:   endOfDay(now),
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

// daysInclusive counts calendar days from start through end. Dates are
// normalized to UTC midnights first so DST transitions cannot skew the count.
func daysInclusive(start, end time.Time) int {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	if e.Before(s) {
		return 0
	}
	return int(e.Sub(s)/(24*time.Hour)) + 1
}
