package scheduling

import (
	"fmt"
	"time"

	"clinic-scheduler/internal/apierrors"
)

// SlotDurationMinutes is the fixed length of every bookable slot.
const SlotDurationMinutes = 30

const clockLayout = "15:04"

// DayOfWeek maps the given date to the ISO-8601 weekday index, Monday=0 up to Sunday=6.
// Every weekday lookup in the scheduler goes through this function.
func DayOfWeek(date time.Time) int32 {
	return int32((int(date.Weekday()) + 6) % 7)
}

// parseClock parses an HH:mm value into minutes since midnight.
func parseClock(value string) (int, error) {
	parsed, err := time.Parse(clockLayout, value)
	if err != nil {
		return 0, err
	}
	return parsed.Hour()*60 + parsed.Minute(), nil
}

// formatClock renders minutes since midnight back as HH:mm.
func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// minuteOfDay truncates the given instant to minute-of-day granularity.
func minuteOfDay(instant time.Time) int {
	return instant.Hour()*60 + instant.Minute()
}

// GenerateSlots expands the window [startTime, endTime) into the ordered candidate slot
// start times, 30 minutes apart. A slot is emitted only when it fits fully before endTime.
// A degenerate window (start >= end) yields an empty list, never an error.
func GenerateSlots(startTime string, endTime string) ([]string, error) {
	start, err := parseClock(startTime)
	if err != nil {
		return nil, apierrors.NewValidationError("start_time", "must be a valid HH:mm time")
	}
	end, err := parseClock(endTime)
	if err != nil {
		return nil, apierrors.NewValidationError("end_time", "must be a valid HH:mm time")
	}
	slots := make([]string, 0)
	for minute := start; minute+SlotDurationMinutes <= end; minute += SlotDurationMinutes {
		slots = append(slots, formatClock(minute))
	}
	return slots, nil
}
