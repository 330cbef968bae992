// Package record implements the daily feeding diary: one record per
// feeder per calendar day, holding a meal entry for every feeding
// schedule slot.
//
// Records are materialised lazily. The first touch of a (feeder, day)
// pair, whether a device report, a diary read, or a schedule change,
// synthesises the record from the feeder's current enabled schedules.
// Day boundaries are computed in the single reference timezone the
// server is configured with, so a device's local clock can never split
// one day across two records.
//
// Each meal moves through a small state machine: scheduled, then
// either dispensed and finished, or skipped. Finishing records the
// consumption duration (clamped to zero when device timestamps
// disagree) and the record's calorie total is recomputed from the
// positive consumed values on every persist.
//
// The Materializer ties the pieces together and, after a schedule
// change, reconciles every record from today forward: pending meals
// are refreshed to the new plan, completed meals are history and are
// never rewritten, and meals for removed schedules are kept as they
// are.
package record
