package feeder

import (
	"fmt"
	"regexp"
)

// timeOfDayPattern matches 24-hour HH:mm from 00:00 to 23:59.
var timeOfDayPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// ValidTimeOfDay reports whether s is a well-formed HH:mm time.
func ValidTimeOfDay(s string) bool {
	return timeOfDayPattern.MatchString(s)
}

// ValidateSchedule checks a single schedule entry.
func ValidateSchedule(s Schedule) error {
	if !ValidTimeOfDay(s.TimeOfDay) {
		return fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s.TimeOfDay)
	}
	if s.CaloriesPerPlate < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidCalories, s.CaloriesPerPlate)
	}
	return nil
}

// ValidateConfiguration checks every schedule entry and rejects
// duplicate times of day. Disabled schedules still count towards
// uniqueness: a slot is either occupied or free regardless of whether
// it currently feeds.
func ValidateConfiguration(c Configuration) error {
	seen := make(map[string]struct{}, len(c.Schedules))
	for _, s := range c.Schedules {
		if err := ValidateSchedule(s); err != nil {
			return err
		}
		if _, dup := seen[s.TimeOfDay]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateSchedule, s.TimeOfDay)
		}
		seen[s.TimeOfDay] = struct{}{}
	}
	return nil
}

// DefaultConfiguration returns the three-meal starter configuration
// assigned to freshly registered feeders. Schedule IDs are filled in
// by the service at creation time.
func DefaultConfiguration() Configuration {
	return Configuration{
		Schedules: []Schedule{
			{TimeOfDay: "08:00", CaloriesPerPlate: 100, Enabled: true},
			{TimeOfDay: "14:00", CaloriesPerPlate: 100, Enabled: true},
			{TimeOfDay: "20:00", CaloriesPerPlate: 100, Enabled: true},
		},
	}
}
