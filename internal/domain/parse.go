package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Layouts used for local wall-clock strings persisted next to tasks and reminders.
const (
	LocalLayout = "2006-01-02 15:04:05"
	DateLayout  = "2006-01-02"
)

// Priority bounds.
const (
	PriorityLow  = 1
	PriorityHigh = 3
)

// ParseClock parses a 24-hour "HH:MM" time of day.
func ParseClock(s string) (hour, minute int, err error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 || parts[0] == "" || len(parts[1]) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("%w: invalid hour in %q", ErrInvalidTimeFormat, s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("%w: invalid minute in %q", ErrInvalidTimeFormat, s)
	}
	return h, m, nil
}

// ValidateClock checks an already split time of day.
func ValidateClock(hour, minute int) error {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return fmt.Errorf("%w: %d:%d out of range", ErrInvalidTimeFormat, hour, minute)
	}
	return nil
}

// ValidatePriority rejects anything outside 1..3. Values are never clamped.
func ValidatePriority(p int) error {
	if p < PriorityLow || p > PriorityHigh {
		return fmt.Errorf("%w: got %d", ErrInvalidPriority, p)
	}
	return nil
}

// ParsePriority parses a textual priority and validates it.
func ParsePriority(s string) (int, error) {
	p, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPriority, s)
	}
	if err := ValidatePriority(p); err != nil {
		return 0, err
	}
	return p, nil
}

// FormatClock returns HH:MM.
func FormatClock(hour, minute int) string {
	return fmt.Sprintf("%02d:%02d", hour, minute)
}

// FormatLocal renders t as a local wall-clock string in its own location.
func FormatLocal(t time.Time) string {
	return t.Format(LocalLayout)
}
