package record

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/feedwell/feeder-core/internal/conn"
	"github.com/feedwell/feeder-core/internal/feeder"
)

// Logger is the minimal logging interface this package needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// CommandSender pushes schedule updates to connected devices.
// Implemented by the connection dispatcher; delivery to an offline
// device is a no-op.
type CommandSender interface {
	Send(deviceID string, cmd conn.Command)
}

// MealTelemetry receives meal lifecycle events as devices report them.
type MealTelemetry interface {
	MealStatus(deviceID, scheduleID string, status string, caloriesConsumed float64, durationMs int64)
}

// Materializer is the daily record engine. It owns record creation,
// meal status transitions, and the reconciliation that follows
// schedule changes.
type Materializer struct {
	records Repository
	feeders feeder.Repository
	loc     *time.Location

	sender    CommandSender
	telemetry MealTelemetry
	logger    Logger
	now       func() time.Time
}

// NewMaterializer creates the record engine. loc is the reference
// timezone for day bucketing.
func NewMaterializer(records Repository, feeders feeder.Repository, loc *time.Location) *Materializer {
	return &Materializer{
		records: records,
		feeders: feeders,
		loc:     loc,
		logger:  noopLogger{},
		now:     time.Now,
	}
}

// SetLogger injects the application logger.
func (m *Materializer) SetLogger(l Logger) {
	if l != nil {
		m.logger = l
	}
}

// SetCommandSender injects the dispatcher used to push schedule
// changes to devices. Without one, reconciliation only updates storage.
func (m *Materializer) SetCommandSender(s CommandSender) {
	m.sender = s
}

// SetMealTelemetry injects the telemetry sink for meal events.
func (m *Materializer) SetMealTelemetry(t MealTelemetry) {
	m.telemetry = t
}

// Location returns the reference timezone for day bucketing. Callers
// parsing user-supplied dates must parse them in this zone.
func (m *Materializer) Location() *time.Location {
	return m.loc
}

// GetOrCreate returns the record for the feeder's day containing the
// given moment, synthesising it from the current enabled schedules if
// it does not exist yet. A concurrent creation losing the unique
// constraint race falls back to reading the winner, so both callers
// observe the same record.
func (m *Materializer) GetOrCreate(ctx context.Context, deviceID string, at time.Time) (*DailyRecord, error) {
	fd, err := m.feeders.GetByDeviceID(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	day := DayKey(at, m.loc)
	rec, err := m.records.GetByFeederAndDate(ctx, fd.ID, day)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, ErrRecordNotFound) {
		return nil, err
	}

	rec = m.synthesize(fd, day)
	if err := m.records.Create(ctx, rec); err != nil {
		if errors.Is(err, ErrRecordExists) {
			return m.records.GetByFeederAndDate(ctx, fd.ID, day)
		}
		return nil, err
	}

	m.logger.Info("daily record created",
		"device_id", deviceID, "date", FormatDayKey(day), "meals", len(rec.Meals))
	return rec, nil
}

// EnsureDailyRecord materialises today's record, discarding the result.
func (m *Materializer) EnsureDailyRecord(ctx context.Context, deviceID string) error {
	_, err := m.GetOrCreate(ctx, deviceID, m.now())
	return err
}

// Reconcile realigns every record from today forward with the feeder's
// current schedules, then pushes the new configuration to the device.
//
// Per record: a schedule with no meal yet gains a fresh scheduled
// meal; a still-scheduled meal is refreshed to the schedule's current
// time and calories; a meal already dispensed, finished or skipped is
// history and is left untouched. Meals whose schedule no longer exists
// are kept, still scheduled, so deleting a slot never erases what the
// diary already shows.
func (m *Materializer) Reconcile(ctx context.Context, deviceID string) error {
	fd, err := m.feeders.GetByDeviceID(ctx, deviceID)
	if err != nil {
		return err
	}

	today := DayKey(m.now(), m.loc)
	recs, err := m.records.ListFromDate(ctx, fd.ID, today)
	if err != nil {
		return err
	}

	for i := range recs {
		rec := &recs[i]
		if m.reconcileRecord(rec, fd.Configuration.EnabledSchedules()) {
			if err := m.records.Update(ctx, rec); err != nil {
				return fmt.Errorf("updating record %s: %w", FormatDayKey(rec.Date), err)
			}
		}
	}

	if m.sender != nil {
		m.sender.Send(deviceID, conn.ChangeScheduleCommand(fd.Configuration))
	}

	m.logger.Info("records reconciled", "device_id", deviceID, "records", len(recs))
	return nil
}

// reconcileRecord applies the schedule set to one record. Returns true
// when the record changed.
func (m *Materializer) reconcileRecord(rec *DailyRecord, schedules []feeder.Schedule) bool {
	changed := false
	for _, s := range schedules {
		at, err := m.scheduledAt(rec.Date, s.TimeOfDay)
		if err != nil {
			m.logger.Warn("skipping schedule with bad time",
				"schedule_id", s.ID, "time_of_day", s.TimeOfDay, "error", err)
			continue
		}

		meal := rec.MealByScheduleID(s.ID)
		if meal == nil {
			rec.Meals = append(rec.Meals, Meal{
				ScheduleID:      s.ID,
				ScheduledAt:     at,
				CaloriesPlanned: s.CaloriesPerPlate,
				Status:          MealScheduled,
			})
			changed = true
			continue
		}
		if !meal.Pending() {
			continue
		}
		if !meal.ScheduledAt.Equal(at) || meal.CaloriesPlanned != s.CaloriesPerPlate {
			meal.ScheduledAt = at
			meal.CaloriesPlanned = s.CaloriesPerPlate
			changed = true
		}
	}
	if changed {
		rec.SortMeals()
	}
	return changed
}

// SetMealStatus applies a device-reported transition to today's meal
// for the given schedule, materialising today's record first if
// needed.
func (m *Materializer) SetMealStatus(ctx context.Context, deviceID, scheduleID string, status MealStatus, caloriesConsumed *float64, skipReason string) (*DailyRecord, error) {
	now := m.now()
	rec, err := m.GetOrCreate(ctx, deviceID, now)
	if err != nil {
		return nil, err
	}

	meal := rec.MealByScheduleID(scheduleID)
	if meal == nil {
		return nil, fmt.Errorf("%w: schedule %s on %s", ErrMealNotFound, scheduleID, FormatDayKey(rec.Date))
	}

	if err := meal.Apply(status, now, caloriesConsumed, skipReason); err != nil {
		return nil, err
	}
	if err := m.records.Update(ctx, rec); err != nil {
		return nil, err
	}

	if m.telemetry != nil {
		var durMs int64
		if meal.ConsumptionDurationMs != nil {
			durMs = *meal.ConsumptionDurationMs
		}
		m.telemetry.MealStatus(deviceID, scheduleID, string(meal.Status), meal.CaloriesConsumed, durMs)
	}

	m.logger.Info("meal status updated",
		"device_id", deviceID, "schedule_id", scheduleID, "status", meal.Status)
	return rec, nil
}

// Diary is the read view served to clients: the day's record plus the
// next upcoming meal.
type Diary struct {
	Date          string  `json:"date"`
	Meals         []Meal  `json:"meals"`
	TotalCalories float64 `json:"totalCalories"`
	NextMeal      *Meal   `json:"nextMeal,omitempty"`
	UpdatedAt     string  `json:"updatedAt"`
}

// Diary returns the diary view for the feeder's day containing at.
func (m *Materializer) Diary(ctx context.Context, deviceID string, at time.Time) (*Diary, error) {
	rec, err := m.GetOrCreate(ctx, deviceID, at)
	if err != nil {
		return nil, err
	}

	return &Diary{
		Date:          FormatDayKey(rec.Date),
		Meals:         rec.Meals,
		TotalCalories: rec.TotalCalories,
		NextMeal:      rec.NextMeal(m.now()),
		UpdatedAt:     rec.UpdatedAt.UTC().Format(time.RFC3339),
	}, nil
}

// History returns diary views from the given day forward, without
// materialising missing days.
func (m *Materializer) History(ctx context.Context, deviceID string, from time.Time) ([]Diary, error) {
	fd, err := m.feeders.GetByDeviceID(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	recs, err := m.records.ListFromDate(ctx, fd.ID, DayKey(from, m.loc))
	if err != nil {
		return nil, err
	}

	out := make([]Diary, 0, len(recs))
	for i := range recs {
		out = append(out, Diary{
			Date:          FormatDayKey(recs[i].Date),
			Meals:         recs[i].Meals,
			TotalCalories: recs[i].TotalCalories,
			UpdatedAt:     recs[i].UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	return out, nil
}

// synthesize builds a fresh record from the feeder's enabled schedules.
func (m *Materializer) synthesize(fd *feeder.Feeder, day time.Time) *DailyRecord {
	rec := &DailyRecord{
		ID:       uuid.NewString(),
		FeederID: fd.ID,
		Date:     day,
	}
	for _, s := range fd.Configuration.EnabledSchedules() {
		at, err := m.scheduledAt(day, s.TimeOfDay)
		if err != nil {
			m.logger.Warn("skipping schedule with bad time",
				"schedule_id", s.ID, "time_of_day", s.TimeOfDay, "error", err)
			continue
		}
		rec.Meals = append(rec.Meals, Meal{
			ScheduleID:      s.ID,
			ScheduledAt:     at,
			CaloriesPlanned: s.CaloriesPerPlate,
			Status:          MealScheduled,
		})
	}
	rec.SortMeals()
	return rec
}

// scheduledAt pins a HH:mm time of day onto a record's date in the
// reference timezone. The date is used as-is even when the slot is
// already in the past; a record always reflects its own day's plan.
func (m *Materializer) scheduledAt(day time.Time, timeOfDay string) (time.Time, error) {
	t, err := time.Parse("15:04", timeOfDay)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing time of day %q: %w", timeOfDay, err)
	}
	d := day.In(m.loc)
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), 0, 0, m.loc), nil
}
