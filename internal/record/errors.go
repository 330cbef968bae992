package record

import "errors"

// Sentinel errors for the daily record engine. Callers match with
// errors.Is.
var (
	// ErrRecordNotFound indicates no record exists for the feeder and day.
	ErrRecordNotFound = errors.New("record: not found")

	// ErrRecordExists indicates a record for the feeder and day was
	// created concurrently. The materialiser resolves this by
	// re-reading the winner.
	ErrRecordExists = errors.New("record: already exists")

	// ErrMealNotFound indicates the record has no meal for the schedule.
	ErrMealNotFound = errors.New("record: meal not found")

	// ErrInvalidTransition indicates a meal status change the state
	// machine forbids.
	ErrInvalidTransition = errors.New("record: invalid meal transition")

	// ErrInvalidStatus indicates an unrecognised meal status value.
	ErrInvalidStatus = errors.New("record: invalid meal status")
)
