package record

import (
	"fmt"
	"sort"
	"time"
)

// MealStatus is a meal's position in its lifecycle.
type MealStatus string

// Meal lifecycle states. Scheduled meals may be dispensed or skipped;
// dispensed meals may be finished or skipped. Finished and skipped are
// terminal.
const (
	MealScheduled MealStatus = "scheduled"
	MealDispensed MealStatus = "dispensed"
	MealFinished  MealStatus = "finished"
	MealSkipped   MealStatus = "skipped"
)

// ParseMealStatus validates a status value from the wire.
func ParseMealStatus(s string) (MealStatus, error) {
	switch MealStatus(s) {
	case MealScheduled, MealDispensed, MealFinished, MealSkipped:
		return MealStatus(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

// Meal is one feeding slot within a daily record, created from a
// schedule entry and advanced by device reports.
type Meal struct {
	ScheduleID            string     `json:"scheduleId"`
	ScheduledAt           time.Time  `json:"scheduledAt"`
	DispensedAt           *time.Time `json:"dispensedAt,omitempty"`
	FinishedAt            *time.Time `json:"finishedAt,omitempty"`
	ConsumptionDurationMs *int64     `json:"consumptionDurationMs,omitempty"`
	CaloriesPlanned       float64    `json:"caloriesPlanned"`
	CaloriesConsumed      float64    `json:"caloriesConsumed"`
	Status                MealStatus `json:"status"`
	SkipReason            string     `json:"skipReason,omitempty"`
}

// Pending reports whether the meal has not yet reached a terminal or
// in-progress state and may still be rewritten by reconciliation.
func (m *Meal) Pending() bool {
	return m.Status == MealScheduled
}

// MarkDispensed records that food hit the plate.
func (m *Meal) MarkDispensed(at time.Time) error {
	if m.Status != MealScheduled {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, m.Status, MealDispensed)
	}
	t := at.UTC()
	m.DispensedAt = &t
	m.Status = MealDispensed
	return nil
}

// MarkFinished records that the pet finished (or abandoned) the plate.
// When the device reports consumed calories they are stored as given;
// otherwise the planned amount is assumed eaten. The consumption
// duration is derived from the dispense and finish timestamps, clamped
// to zero so a device clock that jumped backwards cannot produce a
// negative duration.
func (m *Meal) MarkFinished(at time.Time, caloriesConsumed *float64) error {
	if m.Status != MealDispensed {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, m.Status, MealFinished)
	}
	t := at.UTC()
	m.FinishedAt = &t
	m.Status = MealFinished

	if caloriesConsumed != nil {
		m.CaloriesConsumed = *caloriesConsumed
	} else {
		m.CaloriesConsumed = m.CaloriesPlanned
	}

	if m.DispensedAt != nil {
		dur := t.Sub(*m.DispensedAt).Milliseconds()
		if dur < 0 {
			dur = 0
		}
		m.ConsumptionDurationMs = &dur
	}
	return nil
}

// MarkSkipped records that the meal did not happen, either before any
// food was dispensed or after a dispense that the pet never touched.
func (m *Meal) MarkSkipped(reason string) error {
	if m.Status != MealScheduled && m.Status != MealDispensed {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, m.Status, MealSkipped)
	}
	m.Status = MealSkipped
	m.SkipReason = reason
	return nil
}

// Apply advances the meal to the given status using the device report
// fields. Scheduled resets nothing and is rejected as a target.
func (m *Meal) Apply(status MealStatus, at time.Time, caloriesConsumed *float64, skipReason string) error {
	switch status {
	case MealDispensed:
		return m.MarkDispensed(at)
	case MealFinished:
		return m.MarkFinished(at, caloriesConsumed)
	case MealSkipped:
		return m.MarkSkipped(skipReason)
	default:
		return fmt.Errorf("%w: cannot transition to %q", ErrInvalidStatus, status)
	}
}

// DailyRecord is the feeding diary for one feeder on one calendar day.
// Date is midnight of that day in the reference timezone.
type DailyRecord struct {
	ID            string
	FeederID      string
	Date          time.Time
	Meals         []Meal
	TotalCalories float64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// MealByScheduleID returns the meal for a schedule slot, or nil.
func (r *DailyRecord) MealByScheduleID(scheduleID string) *Meal {
	for i := range r.Meals {
		if r.Meals[i].ScheduleID == scheduleID {
			return &r.Meals[i]
		}
	}
	return nil
}

// RecomputeTotal recalculates TotalCalories from the meals. Only
// positive consumed values count, so unreported and zero-consumption
// meals never distort the total.
func (r *DailyRecord) RecomputeTotal() {
	total := 0.0
	for i := range r.Meals {
		if c := r.Meals[i].CaloriesConsumed; c > 0 {
			total += c
		}
	}
	r.TotalCalories = total
}

// NextMeal returns the earliest still-pending meal strictly after now,
// or nil when nothing remains today. Dispensed meals still count as
// pending until the pet finishes or the device skips them.
func (r *DailyRecord) NextMeal(now time.Time) *Meal {
	var next *Meal
	for i := range r.Meals {
		m := &r.Meals[i]
		if m.Status == MealFinished || m.Status == MealSkipped || !m.ScheduledAt.After(now) {
			continue
		}
		if next == nil || m.ScheduledAt.Before(next.ScheduledAt) {
			next = m
		}
	}
	return next
}

// SortMeals orders the meals chronologically in place.
func (r *DailyRecord) SortMeals() {
	sort.Slice(r.Meals, func(i, j int) bool {
		return r.Meals[i].ScheduledAt.Before(r.Meals[j].ScheduledAt)
	})
}

// DeepCopy returns an independent copy safe to mutate.
func (r *DailyRecord) DeepCopy() *DailyRecord {
	out := *r
	out.Meals = make([]Meal, len(r.Meals))
	copy(out.Meals, r.Meals)
	for i := range out.Meals {
		out.Meals[i].DispensedAt = copyTime(r.Meals[i].DispensedAt)
		out.Meals[i].FinishedAt = copyTime(r.Meals[i].FinishedAt)
		out.Meals[i].ConsumptionDurationMs = copyInt64(r.Meals[i].ConsumptionDurationMs)
	}
	return &out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func copyInt64(n *int64) *int64 {
	if n == nil {
		return nil
	}
	v := *n
	return &v
}

// DayKey truncates a moment to midnight of its calendar day in the
// reference timezone. All record bucketing goes through here.
func DayKey(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// FormatDayKey renders a day key in the storage format.
func FormatDayKey(day time.Time) string {
	return day.Format("2006-01-02")
}

// ParseDayKey parses a stored day string back into a midnight time in
// the reference timezone.
func ParseDayKey(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", s, loc)
}
