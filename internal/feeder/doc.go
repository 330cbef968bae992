// Package feeder defines the feeder device domain: the registered
// device entity, its feeding configuration, persistence, and the
// service operations the API exposes.
//
// A feeder is identified two ways. The row ID is the internal primary
// key used for foreign keys; the device identifier is the stable
// hardware ID the device presents when it connects and the handle all
// external operations use. Each feeder carries a configuration of
// feeding schedules (time of day plus calories per plate) that is both
// persisted here and pushed to the device over its control channel.
//
// The Service layers business rules over the repository: default
// configuration on creation, password-proof user linking, schedule
// mutation with validation, and the daily record reconciliation that
// follows every schedule change.
package feeder
