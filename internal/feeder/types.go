package feeder

import "time"

// Schedule is one feeding slot in a device's configuration.
type Schedule struct {
	ID               string  `json:"id"`
	TimeOfDay        string  `json:"timeOfDay"` // HH:mm, 24-hour
	CaloriesPerPlate float64 `json:"caloriesPerPlate"`
	Enabled          bool    `json:"enabled"`
}

// Configuration is the full feeding setup pushed to the device on
// control registration and after every schedule mutation.
type Configuration struct {
	Brand           string     `json:"brand,omitempty"`
	GramsPerCalorie float64    `json:"gramsPerCalorie,omitempty"`
	Schedules       []Schedule `json:"schedules"`
}

// EnabledSchedules returns the schedules that should actually feed,
// preserving order.
func (c Configuration) EnabledSchedules() []Schedule {
	out := make([]Schedule, 0, len(c.Schedules))
	for _, s := range c.Schedules {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

// ScheduleByID returns the schedule with the given ID, or nil.
func (c Configuration) ScheduleByID(id string) *Schedule {
	for i := range c.Schedules {
		if c.Schedules[i].ID == id {
			return &c.Schedules[i]
		}
	}
	return nil
}

// DeepCopy returns an independent copy safe to mutate.
func (c Configuration) DeepCopy() Configuration {
	out := c
	out.Schedules = make([]Schedule, len(c.Schedules))
	copy(out.Schedules, c.Schedules)
	return out
}

// Feeder is a registered feeder device.
type Feeder struct {
	ID            string
	DeviceID      string
	Name          string
	PasswordHash  string
	Configuration Configuration
	DepositLevel  float64
	CatPresent    bool
	UserIDs       []string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DeepCopy returns an independent copy safe to mutate.
func (f *Feeder) DeepCopy() *Feeder {
	out := *f
	out.Configuration = f.Configuration.DeepCopy()
	out.UserIDs = make([]string, len(f.UserIDs))
	copy(out.UserIDs, f.UserIDs)
	return &out
}

// HasUser reports whether the user is linked to this feeder.
func (f *Feeder) HasUser(userID string) bool {
	for _, id := range f.UserIDs {
		if id == userID {
			return true
		}
	}
	return false
}
