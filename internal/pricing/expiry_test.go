package pricing

import (
	"errors"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "15/03/2026", want: date(2026, time.March, 15)},
		{in: "2026-03-15", want: date(2026, time.March, 15)},
		{in: "2026/03/15", want: date(2026, time.March, 15)},
		{in: "  15/03/2026  ", want: date(2026, time.March, 15)},
		{in: "", wantErr: true},
		{in: "soon", wantErr: true},
		{in: "32/01/2026", wantErr: true},
	}

	for _, tc := range tests {
		got, err := ParseDate(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseDate(%q): expected error", tc.in)
			} else if !errors.Is(err, ErrBadDate) {
				t.Errorf("ParseDate(%q): error %v is not ErrBadDate", tc.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDate(%q): unexpected error %v", tc.in, err)
			continue
		}
		if !got.Equal(tc.want) {
			t.Errorf("ParseDate(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestFlatExpiry(t *testing.T) {
	t.Parallel()

	start := date(2026, time.January, 10)
	if got := FlatExpiry(start, 30); !got.Equal(date(2026, time.February, 9)) {
		t.Fatalf("FlatExpiry = %v, want 2026-02-09", got)
	}
	if got := FlatExpiry(start, 365); !got.Equal(date(2027, time.January, 10)) {
		t.Fatalf("FlatExpiry year = %v, want 2027-01-10", got)
	}
}

func TestCalendarExpiry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		start time.Time
		days  int
		want  time.Time
	}{
		{
			name:  "thirty days is one calendar month minus a day",
			start: date(2026, time.January, 10),
			days:  30,
			want:  date(2026, time.February, 9),
		},
		{
			name:  "month end clamps instead of rolling over",
			start: date(2026, time.January, 31),
			days:  30,
			want:  date(2026, time.February, 27), // Jan 31 + 1 month clamps to Feb 28, minus a day
		},
		{
			name:  "365 days is one calendar year minus a day",
			start: date(2026, time.March, 1),
			days:  365,
			want:  date(2027, time.February, 28), // one year forward, minus a day
		},
		{
			name:  "ninety days is three months minus a day",
			start: date(2026, time.April, 15),
			days:  90,
			want:  date(2026, time.July, 14),
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := CalendarExpiry(tc.start, tc.days)
			if !got.Equal(tc.want) {
				t.Fatalf("CalendarExpiry(%v, %d) = %v, want %v", tc.start, tc.days, got, tc.want)
			}
		})
	}
}

func TestRenewalStart(t *testing.T) {
	t.Parallel()

	oldExpiry := date(2026, time.May, 31)
	if got := RenewalStart(oldExpiry); !got.Equal(date(2026, time.June, 1)) {
		t.Fatalf("RenewalStart = %v, want 2026-06-01", got)
	}
}
