// Package session implements the tank control session: the canonical view
// of the tank device state and the arbitration between manual (operator)
// and automatic (external agent) control.
//
// # Responsibilities
//
//   - Own the device state: four actuator channels (power1, power2, power3,
//     pump) and the tank level percentage, clamped to [0,100]
//   - Own the control mode and enforce write authority: channel commands
//     are accepted only in manual mode, and rejected defensively even if
//     the caller's UI failed to disable the control
//   - Translate inbound broker messages into state transitions through a
//     typed decode step (level / channel / mode / unknown variants)
//   - Reconcile optimistic local writes against authoritative inbound
//     reports: inbound always wins, last write by arrival
//   - Expose immutable snapshots to the presentation layer and a typed
//     event stream to observers (WebSocket hub, telemetry, command log)
//
// The broker is consumed through the Broker interface so tests can inject a
// fake; the session holds no global or ambient connection handle.
//
// # Usage
//
//	sess := session.New(mqttClient, byte(cfg.MQTT.QoS))
//	sess.SetLogger(log.With("component", "session"))
//	if err := sess.Start(); err != nil {
//	    return err
//	}
//	defer sess.Close()
//
//	// Operator write path:
//	err := sess.SetChannel(session.ChannelPump, true)
//
//	// Presentation read path:
//	snap := sess.Snapshot()
package session
