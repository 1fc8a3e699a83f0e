package schedule

import (
	"testing"
	"time"
)

func TestTimeToMinutes(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"02:30 PM", 870},
		{"2:30 PM", 870},
		{"12:00 AM", 0},
		{"12:30 PM", 750},
		{"12:00 PM", 720},
		{"09:15 AM", 555},
		{"14:05", 845},
		{"00:00", 0},
		{"11:59 pm", 1439},
	}
	for _, tc := range cases {
		got, err := TimeToMinutes(tc.in)
		if err != nil {
			t.Fatalf("TimeToMinutes(%q) returned error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("TimeToMinutes(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestTimeToMinutesRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "10", "10:70", "25:00", "10:00 XM", "10:00 AM PM", "ten:30"} {
		if _, err := TimeToMinutes(in); err == nil {
			t.Fatalf("TimeToMinutes(%q) accepted malformed input", in)
		}
	}
}

func TestStatus(t *testing.T) {
	// A Monday at 10:30.
	now := time.Date(2026, 8, 31, 10, 30, 0, 0, time.UTC)
	if now.Weekday() != time.Monday {
		t.Fatalf("fixture is not a Monday")
	}

	cases := []struct {
		day, start, end string
		want            ClassStatus
	}{
		{"Monday", "10:00 AM", "11:00 AM", StatusActive},
		{"Monday", "10:30 AM", "11:30 AM", StatusActive},
		{"Monday", "09:00 AM", "10:30 AM", StatusCompleted},
		{"Monday", "11:00 AM", "12:00 PM", StatusUpcoming},
		{"Sunday", "10:00 AM", "11:00 AM", StatusCompleted},
		{"Tuesday", "10:00 AM", "11:00 AM", StatusUpcoming},
	}
	for _, tc := range cases {
		got, err := Status(tc.day, tc.start, tc.end, now)
		if err != nil {
			t.Fatalf("Status(%s %s-%s) returned error: %v", tc.day, tc.start, tc.end, err)
		}
		if got != tc.want {
			t.Fatalf("Status(%s %s-%s) = %s, want %s", tc.day, tc.start, tc.end, got, tc.want)
		}
	}
}

func TestStatusUnknownDay(t *testing.T) {
	if _, err := Status("Funday", "10:00 AM", "11:00 AM", time.Now()); err == nil {
		t.Fatal("Status accepted an unknown day")
	}
}

func TestIsActiveWindowBounds(t *testing.T) {
	day := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC) // Monday
	at := func(h, m int) time.Time {
		return time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, time.UTC)
	}
	if !IsActive("Monday", "10:00 AM", "11:00 AM", at(10, 0)) {
		t.Fatal("start of window should be active")
	}
	if IsActive("Monday", "10:00 AM", "11:00 AM", at(11, 0)) {
		t.Fatal("end of window should not be active")
	}
	if IsActive("Monday", "10:00 AM", "11:00 AM", at(9, 59)) {
		t.Fatal("before window should not be active")
	}
}
