package influxdb

import "errors"

// Sentinel errors for the influxdb package.
//
// Use errors.Is() to check for these conditions:
//
//	client, err := influxdb.Connect(cfg)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // telemetry is off, run without it
//	}
var (
	// ErrDisabled indicates InfluxDB is disabled in configuration.
	ErrDisabled = errors.New("influxdb is disabled in configuration")

	// ErrNotConnected indicates the client is not connected to InfluxDB.
	ErrNotConnected = errors.New("not connected to influxdb")

	// ErrConnectionFailed indicates the initial connection attempt failed.
	ErrConnectionFailed = errors.New("influxdb connection failed")
)
