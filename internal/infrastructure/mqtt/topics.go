package mqtt

import "fmt"

// topicPrefix roots every topic this service publishes.
const topicPrefix = "feedwell"

// Topics builds the topic strings used by the telemetry relay.
// Zero-value usable: mqtt.Topics{}.Meal("feeder-01").
type Topics struct{}

// SystemStatus is the retained online/offline status topic, also used
// for the Last Will and Testament.
func (Topics) SystemStatus() string {
	return topicPrefix + "/system/status"
}

// Meal carries meal lifecycle events for one feeder.
func (Topics) Meal(deviceID string) string {
	return fmt.Sprintf("%s/feeder/%s/meal", topicPrefix, deviceID)
}

// Deposit carries hopper level readings for one feeder.
func (Topics) Deposit(deviceID string) string {
	return fmt.Sprintf("%s/feeder/%s/deposit", topicPrefix, deviceID)
}

// Presence carries pet presence readings for one feeder.
func (Topics) Presence(deviceID string) string {
	return fmt.Sprintf("%s/feeder/%s/presence", topicPrefix, deviceID)
}
