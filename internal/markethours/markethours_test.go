package markethours

import (
	"testing"
	"time"
)

func et(month time.Month, day, hour, min int) time.Time {
	return time.Date(2026, month, day, hour, min, 0, 0, Eastern)
}

func TestIsMarketOpen(t *testing.T) {
	cases := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"tuesday midday", et(time.August, 25, 11, 0), true},
		{"at the open", et(time.August, 25, 9, 30), true},
		{"before the open", et(time.August, 25, 9, 29), false},
		{"at the close", et(time.August, 25, 16, 0), false},
		{"saturday", et(time.August, 22, 11, 0), false},
		{"sunday", et(time.August, 23, 11, 0), false},
		{"july 4 observed", et(time.July, 3, 11, 0), false},
		{"christmas", et(time.December, 25, 11, 0), false},
	}
	for _, tc := range cases {
		if got := IsMarketOpen(tc.t); got != tc.want {
			t.Errorf("%s: IsMarketOpen=%v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestNextOpen(t *testing.T) {
	// Early on a trading day: today's open.
	got := NextOpen(et(time.August, 25, 8, 0))
	if !got.Equal(et(time.August, 25, 9, 30)) {
		t.Errorf("same-day open: got %v", got)
	}

	// After the close: next trading day.
	got = NextOpen(et(time.August, 25, 17, 0))
	if !got.Equal(et(time.August, 26, 9, 30)) {
		t.Errorf("next-day open: got %v", got)
	}

	// Friday holiday (Jul 3 observed) plus weekend: Monday.
	got = NextOpen(et(time.July, 3, 8, 0))
	if !got.Equal(et(time.July, 6, 9, 30)) {
		t.Errorf("post-holiday open: got %v", got)
	}
}

func TestTimeUntilClose(t *testing.T) {
	d := TimeUntilClose(et(time.August, 25, 15, 0))
	if d != time.Hour {
		t.Errorf("want 1h to close, got %v", d)
	}
	if d := TimeUntilClose(et(time.August, 25, 17, 0)); d != 0 {
		t.Errorf("after close should be 0, got %v", d)
	}
}

func TestIsTradingDay(t *testing.T) {
	if IsTradingDay(et(time.July, 3, 12, 0)) {
		t.Error("observed holiday should not be a trading day")
	}
	if !IsTradingDay(et(time.July, 6, 12, 0)) {
		t.Error("the following Monday should be a trading day")
	}
}
