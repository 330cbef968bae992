package feeder

import (
	"errors"
	"testing"
)

func TestValidTimeOfDay(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"00:00", true},
		{"08:30", true},
		{"23:59", true},
		{"24:00", false},
		{"12:60", false},
		{"8:00", false},
		{"08:00:00", false},
		{"noon", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := ValidTimeOfDay(tt.in); got != tt.want {
			t.Errorf("ValidTimeOfDay(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestValidateSchedule(t *testing.T) {
	tests := []struct {
		name    string
		sched   Schedule
		wantErr error
	}{
		{"valid", Schedule{TimeOfDay: "08:00", CaloriesPerPlate: 100}, nil},
		{"bad time", Schedule{TimeOfDay: "25:00", CaloriesPerPlate: 100}, ErrInvalidTimeOfDay},
		{"zero calories allowed", Schedule{TimeOfDay: "08:00", CaloriesPerPlate: 0}, nil},
		{"negative calories", Schedule{TimeOfDay: "08:00", CaloriesPerPlate: -50}, ErrInvalidCalories},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSchedule(tt.sched)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateSchedule() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateSchedule() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateConfiguration_DuplicateTimes(t *testing.T) {
	cfg := Configuration{
		Schedules: []Schedule{
			{ID: "a", TimeOfDay: "08:00", CaloriesPerPlate: 100, Enabled: true},
			{ID: "b", TimeOfDay: "08:00", CaloriesPerPlate: 50, Enabled: false},
		},
	}

	// Disabled schedules still occupy their slot
	if err := ValidateConfiguration(cfg); !errors.Is(err, ErrDuplicateSchedule) {
		t.Errorf("ValidateConfiguration() error = %v, want ErrDuplicateSchedule", err)
	}
}

func TestValidateConfiguration_Valid(t *testing.T) {
	cfg := Configuration{
		Schedules: []Schedule{
			{ID: "a", TimeOfDay: "08:00", CaloriesPerPlate: 100, Enabled: true},
			{ID: "b", TimeOfDay: "20:00", CaloriesPerPlate: 120, Enabled: true},
		},
	}

	if err := ValidateConfiguration(cfg); err != nil {
		t.Errorf("ValidateConfiguration() error = %v", err)
	}
}

func TestDefaultConfiguration(t *testing.T) {
	cfg := DefaultConfiguration()

	if len(cfg.Schedules) != 3 {
		t.Fatalf("schedules = %d, want 3", len(cfg.Schedules))
	}
	times := []string{"08:00", "14:00", "20:00"}
	for i, s := range cfg.Schedules {
		if s.TimeOfDay != times[i] {
			t.Errorf("Schedules[%d].TimeOfDay = %q, want %q", i, s.TimeOfDay, times[i])
		}
		if !s.Enabled {
			t.Errorf("Schedules[%d] should be enabled", i)
		}
		if s.CaloriesPerPlate <= 0 {
			t.Errorf("Schedules[%d].CaloriesPerPlate = %v, want positive", i, s.CaloriesPerPlate)
		}
	}

	if err := ValidateConfiguration(cfg); err != nil {
		t.Errorf("default configuration should validate, got %v", err)
	}
}
