// Package mqtt provides the broker connection manager for tankwatch.
//
// This package manages:
//   - Asynchronous connection to the broker with auto-reconnect and
//     exponential backoff (never blocks the caller)
//   - The connection lifecycle state machine
//     (disconnected → connecting → connected → disconnected/faulted)
//   - Topic subscriptions, recorded locally and (re-)issued to the broker on
//     every connect — the broker keeps no memory of prior sessions
//   - Fire-and-forget message publishing; the acknowledgment is monitored in
//     the background and publishes while disconnected fail with
//     ErrNotConnected rather than queueing
//   - In-order, per-topic delivery of inbound messages with panic recovery
//
// # Architecture
//
// The connection manager is the only component that touches the broker
// handle. The control session consumes it through a narrow interface
// (publish, subscribe, state) so tests can substitute a fake broker.
//
//	Control Session ↔ Connection Manager ↔ MQTT Broker ↔ Tank Device
//
// # Usage
//
//	client := mqtt.New(cfg.MQTT)
//	client.SetLogger(log)
//	defer client.Close()
//
//	// Register before the link is up; the subscription is issued on connect.
//	client.Subscribe("/level", 1, func(topic string, payload []byte) error {
//	    return session.HandleMessage(topic, payload)
//	})
//
//	if err := client.Start(); err != nil {
//	    return err
//	}
package mqtt
