package timex

import (
	"fmt"
	"strings"
	"time"
)

// LabelUnknown is rendered wherever an instant could not be parsed. Downstream
// code must treat a zero time.Time as "unknown", never as a real duration.
const LabelUnknown = "—"

// Severity is a coarse urgency tier derived from elapsed time.
type Severity string

const (
	SeverityGreen  Severity = "green"
	SeverityYellow Severity = "yellow"
	SeverityRed    Severity = "red"

	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Tier maps an inclusive upper bound in hours to a severity. MaxHours < 0
// marks the unbounded final tier.
type Tier struct {
	MaxHours float64
	Severity Severity
}

// ResponseTiers is the scheme for response-time badges: green up to and
// including 12h, yellow up to and including 24h, red beyond.
var ResponseTiers = []Tier{
	{MaxHours: 12, Severity: SeverityGreen},
	{MaxHours: 24, Severity: SeverityYellow},
	{MaxHours: -1, Severity: SeverityRed},
}

// WaitingTiers is the scheme for the "waiting to be picked up" badge. It is a
// distinct table from ResponseTiers; the two must not be conflated.
var WaitingTiers = []Tier{
	{MaxHours: 4, Severity: SeverityLow},
	{MaxHours: 12, Severity: SeverityMedium},
	{MaxHours: 24, Severity: SeverityHigh},
	{MaxHours: -1, Severity: SeverityCritical},
}

// Wait describes an elapsed span between two instants.
type Wait struct {
	Label    string
	Minutes  int
	Severity Severity
}

// layouts accepted by Normalize, tried in order.
var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
}

// Normalize resolves a possibly timezone-ambiguous timestamp string into an
// absolute instant. Strings with no explicit zone are assumed to be UTC.
// Malformed input yields the zero time.Time, which every caller must render
// as LabelUnknown rather than computing a duration from it.
//
// This is the single place zone disambiguation happens; comparing timestamps
// that were not run through Normalize silently corrupts every downstream
// duration and calendar-day comparison.
func Normalize(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if !hasExplicitZone(s) {
		s += "Z"
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// hasExplicitZone reports whether s carries timezone information: a trailing
// zone designator, or a +/- offset marker past index 10 so date hyphens
// (positions 4 and 7) are never misread as an offset.
func hasExplicitZone(s string) bool {
	if strings.HasSuffix(s, "Z") || strings.HasSuffix(s, "z") {
		return true
	}
	for i := 11; i < len(s); i++ {
		if s[i] == '+' || s[i] == '-' {
			return true
		}
	}
	return false
}

// Elapsed computes the span from a to b and classifies it against the given
// tier table. Negative spans (clock skew, future timestamps) clamp to zero.
// If either instant is unknown the result is the LabelUnknown sentinel with
// an empty severity.
func Elapsed(a, b time.Time, tiers []Tier) Wait {
	if a.IsZero() || b.IsZero() {
		return Wait{Label: LabelUnknown}
	}
	d := b.Sub(a)
	if d < 0 {
		d = 0
	}
	minutes := int(d / time.Minute)
	return Wait{
		Label:    formatSpan(minutes),
		Minutes:  minutes,
		Severity: Classify(d.Hours(), tiers),
	}
}

// Classify picks the first tier whose inclusive upper bound covers the given
// hour count. An empty table yields an empty severity.
func Classify(hours float64, tiers []Tier) Severity {
	if hours < 0 {
		hours = 0
	}
	for _, t := range tiers {
		if t.MaxHours < 0 || hours <= t.MaxHours {
			return t.Severity
		}
	}
	return ""
}

// formatSpan renders whole minutes as "<1m", "{m}m", "{h}h {m}m" or
// "{d}d {h}h", omitting trailing zero components.
func formatSpan(minutes int) string {
	switch {
	case minutes < 1:
		return "<1m"
	case minutes < 60:
		return fmt.Sprintf("%dm", minutes)
	case minutes < 24*60:
		h, m := minutes/60, minutes%60
		if m == 0 {
			return fmt.Sprintf("%dh", h)
		}
		return fmt.Sprintf("%dh %dm", h, m)
	default:
		d, h := minutes/(24*60), (minutes%(24*60))/60
		if h == 0 {
			return fmt.Sprintf("%dd", d)
		}
		return fmt.Sprintf("%dd %dh", d, h)
	}
}
