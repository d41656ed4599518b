package utils

import (
	"fmt"
	"strings"
	"time"
)

// FlightDateLayout is the layout of BTS FlightDate values.
const FlightDateLayout = "2006-01-02"

// ParseFlightDate parses a YYYY-MM-DD date into a UTC midnight time.
func ParseFlightDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty flight date")
	}
	t, err := time.ParseInLocation(FlightDateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse flight date: %w", err)
	}
	return t, nil
}

// ClockMinutes converts an HHMM clock value (e.g. 1430) into minutes since midnight.
// BTS reports midnight as 2400, which maps to 0.
func ClockMinutes(hhmm int) (int, error) {
	if hhmm == 2400 {
		return 0, nil
	}
	hours, minutes := hhmm/100, hhmm%100
	if hhmm < 0 || hours > 23 || minutes > 59 {
		return 0, fmt.Errorf("invalid HHMM clock value %d", hhmm)
	}
	return hours*60 + minutes, nil
}
