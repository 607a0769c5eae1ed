// Package influxdb provides InfluxDB connectivity for the 1-Wire sync daemon.
//
// It wraps the official influxdb-client-go v2 library with daemon-specific
// patterns for connection management, reading telemetry, and health monitoring.
//
// # Purpose
//
// This package handles time-series storage for:
//   - Polled device readings (temperature, counters, voltages)
//   - Gateway/bus availability tracking
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "home",
//	    Bucket: "onewire",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.RecordReading("10.aabbccddeeff", "temperature", 21.5)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are delivered via a
// callback. Connection and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size,
// flush_interval). This keeps network overhead low for frequent readings.
package influxdb
