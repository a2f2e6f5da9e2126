package timex

import (
	"testing"
	"time"
)

func TestNormalize_ZoneHandling(t *testing.T) {
	tests := []struct {
		in   string
		want string // RFC3339 in UTC; empty means zero time expected
	}{
		{"2025-01-01T00:00:00", "2025-01-01T00:00:00Z"},         // naive -> UTC
		{"2025-01-01T00:00:00Z", "2025-01-01T00:00:00Z"},        // already UTC
		{"2025-01-01T00:00:00+02:00", "2024-12-31T22:00:00Z"},   // explicit offset
		{"2025-01-01T00:00:00-05:00", "2025-01-01T05:00:00Z"},   // negative offset past index 10
		{"2025-06-15 08:30:00", "2025-06-15T08:30:00Z"},         // space separator, naive
		{"2025-01-01T12:00:00.500Z", "2025-01-01T12:00:00.5Z"},  // fractional seconds
		{"not a timestamp", ""},
		{"", ""},
		{"2025-13-40T99:00:00", ""},
	}
	for _, tc := range tests {
		got := Normalize(tc.in)
		if tc.want == "" {
			if !got.IsZero() {
				t.Errorf("Normalize(%q) = %v; want zero time", tc.in, got)
			}
			continue
		}
		want, err := time.Parse(time.RFC3339Nano, tc.want)
		if err != nil {
			t.Fatalf("bad test case %q: %v", tc.want, err)
		}
		if !got.Equal(want) {
			t.Errorf("Normalize(%q) = %v; want %v", tc.in, got, want)
		}
	}
}

func TestElapsed_ClampAndLabels(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		delta   time.Duration
		label   string
		minutes int
	}{
		{30 * time.Second, "<1m", 0},
		{5 * time.Minute, "5m", 5},
		{59 * time.Minute, "59m", 59},
		{60 * time.Minute, "1h", 60},
		{3*time.Hour + 12*time.Minute, "3h 12m", 192},
		{23*time.Hour + 59*time.Minute, "23h 59m", 1439},
		{24 * time.Hour, "1d", 1440},
		{2*24*time.Hour + 5*time.Hour, "2d 5h", 3180},
		{2*24*time.Hour + 5*time.Hour + 59*time.Minute, "2d 5h", 3239},
	}
	for _, tc := range tests {
		w := Elapsed(base, base.Add(tc.delta), ResponseTiers)
		if w.Label != tc.label || w.Minutes != tc.minutes {
			t.Errorf("Elapsed(+%v) = {%q, %d}; want {%q, %d}", tc.delta, w.Label, w.Minutes, tc.label, tc.minutes)
		}
	}

	// Clock skew: a > b clamps to zero, never a negative label.
	w := Elapsed(base.Add(time.Hour), base, ResponseTiers)
	if w.Minutes != 0 || w.Label != "<1m" {
		t.Errorf("skewed Elapsed = {%q, %d}; want {\"<1m\", 0}", w.Label, w.Minutes)
	}
}

func TestElapsed_UnknownInstant(t *testing.T) {
	now := time.Now()
	for _, w := range []Wait{
		Elapsed(time.Time{}, now, ResponseTiers),
		Elapsed(now, time.Time{}, ResponseTiers),
	} {
		if w.Label != LabelUnknown || w.Minutes != 0 || w.Severity != "" {
			t.Errorf("unknown instant gave %+v", w)
		}
	}
}

func TestClassify_Boundaries(t *testing.T) {
	tests := []struct {
		hours float64
		tiers []Tier
		want  Severity
	}{
		{0, ResponseTiers, SeverityGreen},
		{12, ResponseTiers, SeverityGreen}, // inclusive upper bound
		{12.01, ResponseTiers, SeverityYellow},
		{24, ResponseTiers, SeverityYellow}, // inclusive upper bound
		{24.01, ResponseTiers, SeverityRed},
		{4, WaitingTiers, SeverityLow},
		{12, WaitingTiers, SeverityMedium},
		{24, WaitingTiers, SeverityHigh},
		{25, WaitingTiers, SeverityCritical},
		{-3, ResponseTiers, SeverityGreen}, // negative clamps
	}
	for _, tc := range tests {
		if got := Classify(tc.hours, tc.tiers); got != tc.want {
			t.Errorf("Classify(%v) = %q; want %q", tc.hours, got, tc.want)
		}
	}
}

// The scenario from the dashboard: an email received at a naive midnight
// timestamp, viewed from 13:00 UTC the same day, is 13 hours old and yellow.
func TestElapsed_NaiveTimestampScenario(t *testing.T) {
	received := Normalize("2025-01-01T00:00:00")
	now := Normalize("2025-01-01T13:00:00Z")
	w := Elapsed(received, now, ResponseTiers)
	if w.Minutes != 13*60 {
		t.Fatalf("minutes = %d; want %d", w.Minutes, 13*60)
	}
	if w.Severity != SeverityYellow {
		t.Fatalf("severity = %q; want yellow", w.Severity)
	}
	if w.Label != "13h" {
		t.Fatalf("label = %q; want 13h", w.Label)
	}
}
