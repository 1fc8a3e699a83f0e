package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ClassStatus classifies a weekly slot against the current moment.
type ClassStatus string

const (
	StatusUpcoming  ClassStatus = "upcoming"
	StatusActive    ClassStatus = "active"
	StatusCompleted ClassStatus = "completed"
)

// days is ordered Sunday-first to match time.Weekday.
var days = [...]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// ValidDay reports whether day is a weekday name.
func ValidDay(day string) bool { return dayIndex(day) >= 0 }

func dayIndex(day string) int {
	for i, d := range days {
		if d == day {
			return i
		}
	}
	return -1
}

// TimeToMinutes parses "H:MM" with an optional AM/PM suffix into minutes
// since midnight. Hour 12 AM maps to 0; 12 PM stays 12; other PM hours
// gain 12. Both zero-padded and unpadded hours are accepted.
func TimeToMinutes(s string) (int, error) {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) == 0 || len(fields) > 2 {
		return 0, fmt.Errorf("malformed time %q", s)
	}
	hm := strings.Split(fields[0], ":")
	if len(hm) != 2 {
		return 0, fmt.Errorf("malformed time %q", s)
	}
	hours, err := strconv.Atoi(hm[0])
	if err != nil {
		return 0, fmt.Errorf("malformed time %q", s)
	}
	minutes, err := strconv.Atoi(hm[1])
	if err != nil || minutes < 0 || minutes > 59 || hours < 0 || hours > 23 {
		return 0, fmt.Errorf("malformed time %q", s)
	}
	if len(fields) == 2 {
		switch strings.ToUpper(fields[1]) {
		case "PM":
			if hours < 12 {
				hours += 12
			}
		case "AM":
			if hours == 12 {
				hours = 0
			}
		default:
			return 0, fmt.Errorf("malformed meridiem in %q", s)
		}
	}
	return hours*60 + minutes, nil
}

// Status classifies the slot. Weekday comparison wins first: an earlier
// weekday than today is completed, a later one upcoming. Same-day slots
// compare minutes: active iff start <= now < end.
func Status(dayOfWeek, startTime, endTime string, now time.Time) (ClassStatus, error) {
	idx := dayIndex(dayOfWeek)
	if idx < 0 {
		return "", fmt.Errorf("unknown day %q", dayOfWeek)
	}
	today := int(now.Weekday())
	switch {
	case idx < today:
		return StatusCompleted, nil
	case idx > today:
		return StatusUpcoming, nil
	}
	start, err := TimeToMinutes(startTime)
	if err != nil {
		return "", err
	}
	end, err := TimeToMinutes(endTime)
	if err != nil {
		return "", err
	}
	current := now.Hour()*60 + now.Minute()
	switch {
	case current < start:
		return StatusUpcoming, nil
	case current < end:
		return StatusActive, nil
	default:
		return StatusCompleted, nil
	}
}

// IsActive reports whether the slot's window covers now on the matching
// weekday. This is the sole precondition for starting a live session.
func IsActive(dayOfWeek, startTime, endTime string, now time.Time) bool {
	status, err := Status(dayOfWeek, startTime, endTime, now)
	return err == nil && status == StatusActive
}
