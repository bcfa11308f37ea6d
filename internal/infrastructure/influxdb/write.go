package influxdb

import (
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
)

// Measurement names within the tankwatch bucket.
const (
	measurementTankLevel = "tank_level"
	measurementChannel   = "channel_state"
	measurementMode      = "control_mode"
)

// WriteTankLevel records a tank level sample.
//
// The write is non-blocking: points are batched and flushed by the
// write API on its own schedule. Errors surface through SetOnError.
//
// Parameters:
//   - percent: Fill level in percent, already clamped to [0, 100]
//   - source: Where the reading came from ("broker" for live data)
func (c *Client) WriteTankLevel(percent float64, source string) {
	if !c.IsConnected() {
		return
	}

	point := influxdb2.NewPoint(
		measurementTankLevel,
		map[string]string{
			"source": source,
		},
		map[string]interface{}{
			"percent": percent,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteChannelState records a channel transition (heater or pump on/off).
//
// Parameters:
//   - channel: Channel name ("power1", "power2", "power3", "pump")
//   - on: New state after the transition
//   - source: Who caused the change ("operator" or "broker")
func (c *Client) WriteChannelState(channel string, on bool, source string) {
	if !c.IsConnected() {
		return
	}

	point := influxdb2.NewPoint(
		measurementChannel,
		map[string]string{
			"channel": channel,
			"source":  source,
		},
		map[string]interface{}{
			"on": on,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteMode records a control mode transition.
//
// Parameters:
//   - mode: New mode ("manual" or "automatic")
//   - source: Who caused the change ("operator" or "broker")
func (c *Client) WriteMode(mode string, source string) {
	if !c.IsConnected() {
		return
	}

	point := influxdb2.NewPoint(
		measurementMode,
		map[string]string{
			"source": source,
		},
		map[string]interface{}{
			"mode": mode,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}
