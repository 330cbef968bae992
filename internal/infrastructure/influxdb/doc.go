// Package influxdb provides InfluxDB connectivity for Feeder Core.
//
// It wraps the official influxdb-client-go v2 library for connection
// management, metric writing, and health monitoring.
//
// # Purpose
//
// This package handles time-series storage for feeding telemetry:
//   - Meal lifecycle events (dispensed, finished, skipped) with
//     consumed calories and consumption duration
//   - Food hopper deposit levels
//   - Pet presence readings
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "feedwell",
//	    Bucket: "feeding",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteDepositLevel("feeder-01", 62.5)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are delivered via
// a callback. Connection and health check errors are returned directly.
package influxdb
