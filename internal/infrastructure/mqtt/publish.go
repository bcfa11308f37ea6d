package mqtt

import (
	"fmt"
)

// Maximum payload size for MQTT messages (1MB).
// This prevents resource exhaustion and aligns with typical broker limits.
const maxPayloadSize = 1 << 20 // 1MB

// Publish enqueues a message to the specified MQTT topic.
//
// The caller never waits on network I/O: once the message is handed to the
// transport, Publish returns nil and the broker acknowledgment is monitored
// on a background goroutine, the same way Start monitors the connect token.
// A failed or timed-out acknowledgment is reported through the client logger.
//
// When the link is down the message is NOT queued: ErrNotConnected is
// returned and the caller decides whether that matters (the control session
// logs it and carries on). Failed publishes are never retried per-message;
// recovery is the connection retry loop's job.
//
// Parameters:
//   - topic: The topic to publish to (e.g., "/pump")
//   - payload: The message payload (plain UTF-8 text on tank topics)
//   - qos: Quality of Service level (0, 1, or 2)
//   - retained: Whether the broker should retain the message for new subscribers
//
// Returns:
//   - error: nil once the message is enqueued, ErrNotConnected when the link
//     is down, or a validation error; broker-level delivery failures surface
//     through the logger, not the return value
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	// Validate inputs
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	// Check connection state
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	go func() {
		if !token.WaitTimeout(defaultPublishTimeout) {
			if logger := c.getLogger(); logger != nil {
				logger.Warn("publish not acknowledged in time",
					"topic", topic,
					"timeout", defaultPublishTimeout,
				)
			}
			return
		}
		if err := token.Error(); err != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Warn("publish failed",
					"topic", topic,
					"error", err,
				)
			}
		}
	}()

	return nil
}

// PublishString is a convenience method that publishes a string payload.
//
// This is equivalent to calling Publish with []byte(payload).
func (c *Client) PublishString(topic string, payload string, qos byte, retained bool) error {
	return c.Publish(topic, []byte(payload), qos, retained)
}
