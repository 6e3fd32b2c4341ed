// Package timeutil provides business-hours and time-of-day helpers.
// All calculations are done in the business timezone (IST).
package timeutil

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// IST is the fixed business timezone (Asia/Kolkata, UTC+5:30).
var IST = time.FixedZone("IST", 5*3600+30*60)

// NowIST returns the current time in the business timezone.
func NowIST() time.Time {
	return time.Now().In(IST)
}

// MinutesOfDay returns minutes since midnight in IST.
func MinutesOfDay(t time.Time) int {
	local := t.In(IST)
	return local.Hour()*60 + local.Minute()
}

// BusinessDay returns the calendar day (YYYY-MM-DD) in IST.
func BusinessDay(t time.Time) string {
	return t.In(IST).Format("2006-01-02")
}

// ParseClock converts a "HH:mm" or "HH:mm:ss" string to minutes since midnight.
func ParseClock(clock string) (int, error) {
	if clock == "" {
		return 0, fmt.Errorf("empty time string")
	}
	parts := strings.Split(clock, ":")
	if len(parts) < 2 {
		return 0, fmt.Errorf("invalid time string: %s", clock)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %s: %w", clock, err)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minute in %s: %w", clock, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("time out of range: %s", clock)
	}
	return h*60 + m, nil
}

// FormatMinutes renders minutes since midnight as "HH:mm".
func FormatMinutes(mins int) string {
	if mins < 0 {
		mins = 0
	}
	return fmt.Sprintf("%02d:%02d", (mins/60)%24, mins%60)
}

// FormatClock12 renders a "HH:mm" string in 12-hour display form ("6:30 PM").
func FormatClock12(clock string) string {
	if clock == "" {
		return ""
	}
	parts := strings.Split(clock, ":")
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return clock
	}
	minutes := "00"
	if len(parts) > 1 {
		minutes = parts[1]
	}
	ampm := "AM"
	if h >= 12 {
		ampm = "PM"
	}
	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%d:%s %s", h12, minutes, ampm)
}

// OpenCheck is the result of an opening-hours check.
type OpenCheck struct {
	Open    bool
	Message string
}

// IsOpen checks whether a business is accepting customers right now.
// A manual closed-today flag overrides the opening hours entirely.
func IsOpen(openTime, closeTime string, manuallyClosed bool, now time.Time) OpenCheck {
	if manuallyClosed {
		return OpenCheck{Open: false, Message: "The business is currently closed by the owner."}
	}

	if openTime == "" {
		openTime = "09:00"
	}
	if closeTime == "" {
		closeTime = "21:00"
	}

	nowMins := MinutesOfDay(now)
	openMins, err := ParseClock(openTime)
	if err != nil {
		openMins = 9 * 60
	}
	closeMins, err := ParseClock(closeTime)
	if err != nil {
		closeMins = 21 * 60
	}

	if nowMins < openMins {
		return OpenCheck{Open: false, Message: fmt.Sprintf("The business is not open yet. It opens at %s.", FormatClock12(openTime))}
	}
	if nowMins > closeMins {
		return OpenCheck{Open: false, Message: fmt.Sprintf("The business is closed for the day. It closed at %s.", FormatClock12(closeTime))}
	}
	return OpenCheck{Open: true}
}

// Admission is the result of a closing-time feasibility check.
type Admission struct {
	CanJoin     bool
	FinishTime  string
	ClosingTime string
	Message     string
}

// CanFinishBeforeClose checks whether a service can complete before closing.
//
// estimated_finish = now + wait_ahead + duration; rejected when it lands past
// closing time minus the safety buffer.
func CanFinishBeforeClose(closeTime string, nowMins, waitAheadMins, durationMins, bufferMins int) Admission {
	closeMins, err := ParseClock(closeTime)
	if err != nil {
		closeMins = 21 * 60
	}

	estimatedStart := nowMins + waitAheadMins
	estimatedEnd := estimatedStart + durationMins
	limit := closeMins - bufferMins

	if estimatedEnd > limit {
		return Admission{
			CanJoin:     false,
			FinishTime:  FormatClock12(FormatMinutes(estimatedEnd)),
			ClosingTime: FormatClock12(closeTime),
			Message:     "We're fully booked for today. Please select a slot for tomorrow.",
		}
	}
	return Admission{CanJoin: true}
}
