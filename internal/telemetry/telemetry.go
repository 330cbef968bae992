// Package telemetry fans feeding events out to the optional
// observability backends: MQTT for home automation integrations and
// InfluxDB for time-series history.
//
// Both backends are optional. A Publisher constructed with nil clients
// swallows every event, so callers never need to know which backends
// the deployment has configured. Delivery is best effort; a failed
// publish is logged and never propagates to the feeding path.
package telemetry

import (
	"encoding/json"
	"time"

	"github.com/feedwell/feeder-core/internal/infrastructure/influxdb"
	"github.com/feedwell/feeder-core/internal/infrastructure/mqtt"
)

// Logger is the minimal logging interface this package needs.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// Publisher delivers feeding events to the configured backends.
type Publisher struct {
	mqtt   *mqtt.Client
	influx *influxdb.Client
	logger Logger
}

// NewPublisher creates a publisher. Either client may be nil.
func NewPublisher(mqttClient *mqtt.Client, influxClient *influxdb.Client) *Publisher {
	return &Publisher{
		mqtt:   mqttClient,
		influx: influxClient,
		logger: noopLogger{},
	}
}

// SetLogger injects the application logger.
func (p *Publisher) SetLogger(l Logger) {
	if l != nil {
		p.logger = l
	}
}

// mealEvent is the MQTT payload for meal lifecycle events.
type mealEvent struct {
	DeviceID         string  `json:"deviceId"`
	ScheduleID       string  `json:"scheduleId"`
	Status           string  `json:"status"`
	CaloriesConsumed float64 `json:"caloriesConsumed"`
	DurationMs       int64   `json:"durationMs"`
	Timestamp        string  `json:"timestamp"`
}

// MealStatus publishes a meal lifecycle event.
func (p *Publisher) MealStatus(deviceID, scheduleID string, status string, caloriesConsumed float64, durationMs int64) {
	if p.influx != nil {
		p.influx.WriteMealMetric(deviceID, scheduleID, status, caloriesConsumed, durationMs)
	}
	if p.mqtt != nil {
		p.publish(mqtt.Topics{}.Meal(deviceID), mealEvent{
			DeviceID:         deviceID,
			ScheduleID:       scheduleID,
			Status:           status,
			CaloriesConsumed: caloriesConsumed,
			DurationMs:       durationMs,
			Timestamp:        timestamp(),
		}, false)
	}
}

// depositEvent is the MQTT payload for hopper level readings.
type depositEvent struct {
	DeviceID  string  `json:"deviceId"`
	Level     float64 `json:"level"`
	Timestamp string  `json:"timestamp"`
}

// DepositLevel publishes a hopper level reading. Retained on MQTT so
// integrations see the current level immediately on subscribe.
func (p *Publisher) DepositLevel(deviceID string, level float64) {
	if p.influx != nil {
		p.influx.WriteDepositLevel(deviceID, level)
	}
	if p.mqtt != nil {
		p.publish(mqtt.Topics{}.Deposit(deviceID), depositEvent{
			DeviceID:  deviceID,
			Level:     level,
			Timestamp: timestamp(),
		}, true)
	}
}

// presenceEvent is the MQTT payload for pet presence readings.
type presenceEvent struct {
	DeviceID  string `json:"deviceId"`
	Present   bool   `json:"present"`
	Timestamp string `json:"timestamp"`
}

// CatPresence publishes a pet presence reading. Retained on MQTT.
func (p *Publisher) CatPresence(deviceID string, present bool) {
	if p.influx != nil {
		p.influx.WritePresence(deviceID, present)
	}
	if p.mqtt != nil {
		p.publish(mqtt.Topics{}.Presence(deviceID), presenceEvent{
			DeviceID:  deviceID,
			Present:   present,
			Timestamp: timestamp(),
		}, true)
	}
}

func (p *Publisher) publish(topic string, payload any, retained bool) {
	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.Warn("telemetry payload encode failed", "topic", topic, "error", err)
		return
	}

	if retained {
		err = p.mqtt.PublishRetained(topic, data)
	} else {
		err = p.mqtt.PublishEvent(topic, data)
	}
	if err != nil {
		p.logger.Warn("telemetry publish failed", "topic", topic, "error", err)
	}
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
