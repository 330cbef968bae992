package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteMealMetric records a meal lifecycle event.
//
// The write is non-blocking; data is batched and sent asynchronously.
// Calories and duration carry real values only for finished meals;
// dispense and skip events record zeros so the event itself is still
// countable.
func (c *Client) WriteMealMetric(deviceID, scheduleID, status string, caloriesConsumed float64, durationMs int64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"meal",
		map[string]string{
			"device_id":   deviceID,
			"schedule_id": scheduleID,
			"status":      status,
		},
		map[string]interface{}{
			"calories_consumed": caloriesConsumed,
			"consumption_ms":    durationMs,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteDepositLevel records a hopper level reading.
func (c *Client) WriteDepositLevel(deviceID string, level float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"deposit",
		map[string]string{
			"device_id": deviceID,
		},
		map[string]interface{}{
			"level": level,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePresence records a pet presence reading. Stored as 0/1 so
// presence ratios can be averaged over time windows.
func (c *Client) WritePresence(deviceID string, present bool) {
	if !c.IsConnected() {
		return
	}

	presence := 0
	if present {
		presence = 1
	}

	point := write.NewPoint(
		"presence",
		map[string]string{
			"device_id": deviceID,
		},
		map[string]interface{}{
			"present": presence,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
// Use this for measurements that don't fit the helper methods.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
