// Package mqtt wraps paho.mqtt.golang as the outbound telemetry relay.
//
// Feeder Core publishes feeding events (meal transitions, hopper
// levels, pet presence, schedule changes) so home automation systems
// can react to them. The relay is publish-only and optional: when the
// broker is unreachable or disabled in configuration, the rest of the
// system runs unaffected.
//
// Connection management handles auto-reconnect with exponential
// backoff and a Last Will and Testament on feedwell/system/status so
// subscribers can detect an unexpected Core outage.
package mqtt
