package feeder

import "errors"

// Sentinel errors for the feeder domain. Callers match with errors.Is.
var (
	// ErrFeederNotFound indicates no feeder matches the identifier.
	ErrFeederNotFound = errors.New("feeder: not found")

	// ErrFeederExists indicates the device ID or name is already taken.
	ErrFeederExists = errors.New("feeder: already exists")

	// ErrInvalidTimeOfDay indicates a schedule time outside HH:mm form.
	ErrInvalidTimeOfDay = errors.New("feeder: invalid time of day")

	// ErrInvalidCalories indicates a negative calories-per-plate value.
	ErrInvalidCalories = errors.New("feeder: invalid calories")

	// ErrDuplicateSchedule indicates two schedules share a time of day.
	ErrDuplicateSchedule = errors.New("feeder: duplicate schedule time")

	// ErrScheduleNotFound indicates no schedule matches the identifier.
	ErrScheduleNotFound = errors.New("feeder: schedule not found")

	// ErrInvalidParams indicates a registration request with missing
	// required fields.
	ErrInvalidParams = errors.New("feeder: invalid parameters")

	// ErrInvalidPassword indicates the supplied device password does
	// not match.
	ErrInvalidPassword = errors.New("feeder: invalid password")

	// ErrUserNotLinked indicates the user has no link to the feeder.
	ErrUserNotLinked = errors.New("feeder: user not linked")
)
