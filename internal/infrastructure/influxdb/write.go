package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// RecordReading writes a single polled device reading to InfluxDB.
//
// This is the primary method for recording 1-Wire telemetry. The write is
// non-blocking; points are batched and sent asynchronously.
//
// Parameters:
//   - address: Canonical device address (e.g., "10.aabbccddeeff")
//   - attribute: The polled attribute (e.g., "temperature")
//   - value: The numeric reading
//
// Example:
//
//	client.RecordReading("10.aabbccddeeff", "temperature", 21.5)
func (c *Client) RecordReading(address string, attribute string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"reading",
		map[string]string{
			"address":   address,
			"attribute": attribute,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// RecordBusStatus writes a gateway connectivity measurement.
//
// Used for tracking 1-Wire server availability over time.
//
// Parameters:
//   - server: Gateway identifier (host:port)
//   - up: Whether the bus is currently reachable
//   - deviceCount: Number of devices visible on the bus
func (c *Client) RecordBusStatus(server string, up bool, deviceCount int) {
	if !c.IsConnected() {
		return
	}

	online := 0.0
	if up {
		online = 1.0
	}

	point := write.NewPoint(
		"bus_status",
		map[string]string{
			"server": server,
		},
		map[string]interface{}{
			"up":           online,
			"device_count": deviceCount,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("daemon_stats",
//	    map[string]string{"service": "owsync-001"},
//	    map[string]interface{}{"watch_count": 12})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., replayed data).
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
