package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteLightState records the state of a single light.
//
// This is the primary method for recording state telemetry. The write
// is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - deviceID: Houm device identifier
//   - kind: Light kind ("binary" or "dimmable")
//   - protocol: Remote-control protocol the light speaks
//   - on: Whether the light is on
//   - bri: Brightness 0-255
//
// Example:
//
//	client.WriteLightState("5a1f", "dimmable", "zwave", true, 128)
func (c *Client) WriteLightState(deviceID, kind, protocol string, on bool, bri int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"light_state",
		map[string]string{
			"device_id": deviceID,
			"kind":      kind,
			"protocol":  protocol,
		},
		map[string]interface{}{
			"on":  on,
			"bri": bri,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteBridgeEvent records a bridge lifecycle event such as a discovery
// pass or a stream reconnect.
//
// Parameters:
//   - event: Event name (e.g., "discovery", "reconnect")
//   - count: Event-specific count (devices discovered, attempt number)
func (c *Client) WriteBridgeEvent(event string, count int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"bridge_events",
		map[string]string{
			"event": event,
		},
		map[string]interface{}{
			"count": count,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
