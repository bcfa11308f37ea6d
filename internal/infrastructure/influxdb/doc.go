// Package influxdb provides optional time-series telemetry for tankwatch.
//
// It records tank level samples, channel transitions, and mode changes
// to InfluxDB v2 for trend charts and historical analysis. All writes are
// non-blocking and batched; telemetry failures never affect the control
// path.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // run without telemetry
//	}
//	defer client.Close()
//
//	client.SetOnError(func(err error) {
//	    log.Warn("telemetry write failed", "error", err)
//	})
//
//	client.WriteTankLevel(42.5, "broker")
//	client.WriteChannelState("pump", true, "operator")
//
// # Measurements
//
//   - tank_level: fill level samples, tagged by source
//   - channel_state: heater and pump transitions, tagged by channel and source
//   - control_mode: manual/automatic transitions, tagged by source
package influxdb
