// Package conn tracks live feeder device connections and carries the
// command protocol spoken over them.
//
// Each device may hold up to three channels at once (control, video,
// audio), registered under its device identifier. The Registry is the
// single source of truth for which channels are live; a Heartbeat
// monitor pings every channel on a fixed interval and evicts sockets
// that miss two consecutive probes. The Dispatcher sends server
// commands to a device's control channel, treating an offline device
// as a silent no-op so callers never block on connectivity.
//
// Commands travel as JSON frames of the form {"command": ..., "data": ...}.
// Server to device: "schedule" (full snapshot on control registration)
// and "change_schedule" (push after any schedule mutation). Device to
// server: "set_schedule_status", "set_deposit_status",
// "set_cat_presence" and "new_daily_record", decoded by
// DecodeDeviceCommand into typed variants.
package conn
